// ABOUTME: Partner MCP tool handlers
// ABOUTME: Implements add, get, update, list, delete, stats, register_deal and generate_document tools
package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/harperreed/partneros/engine"
	"github.com/harperreed/partneros/ledger"
	"github.com/harperreed/partneros/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const timeLayout = "2006-01-02T15:04:05Z07:00"

type PartnerHandlers struct {
	engine *engine.Engine
	ledger *ledger.Ledger
}

func NewPartnerHandlers(e *engine.Engine) *PartnerHandlers {
	return &PartnerHandlers{engine: e, ledger: e.Ledger()}
}

type AddPartnerInput struct {
	Name    string `json:"name" jsonschema:"Partner company name (required)"`
	Tier    string `json:"tier,omitempty" jsonschema:"Partner tier: Bronze, Silver or Gold (default Bronze)"`
	Contact string `json:"contact,omitempty" jsonschema:"Primary contact name"`
	Email   string `json:"email,omitempty" jsonschema:"Primary contact email"`
}

type DealOutput struct {
	ID           string `json:"id"`
	Value        int64  `json:"value"`
	Account      string `json:"account"`
	Status       string `json:"status"`
	RegisteredAt string `json:"registered_at"`
}

type DocumentOutput struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Template  string `json:"template"`
	Path      string `json:"path"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

type PartnerOutput struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	Tier       string           `json:"tier"`
	Status     string           `json:"status"`
	Contact    string           `json:"contact,omitempty"`
	Email      string           `json:"email,omitempty"`
	TotalValue int64            `json:"total_value"`
	Notes      []string         `json:"notes,omitempty"`
	Deals      []DealOutput     `json:"deals"`
	Documents  []DocumentOutput `json:"documents"`
	CreatedAt  string           `json:"created_at"`
	UpdatedAt  string           `json:"updated_at"`
}

func (h *PartnerHandlers) AddPartner(_ context.Context, request *mcp.CallToolRequest, input AddPartnerInput) (*mcp.CallToolResult, PartnerOutput, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, PartnerOutput{}, fmt.Errorf("name is required")
	}

	partner, err := h.ledger.Add(input.Name, input.Tier, input.Contact, input.Email)
	if err != nil {
		return nil, PartnerOutput{}, fmt.Errorf("failed to add partner: %w", err)
	}
	return nil, partnerToOutput(partner), nil
}

type PartnerNameInput struct {
	Name string `json:"name" jsonschema:"Partner name (case-insensitive)"`
}

func (h *PartnerHandlers) GetPartner(_ context.Context, request *mcp.CallToolRequest, input PartnerNameInput) (*mcp.CallToolResult, PartnerOutput, error) {
	partner, err := h.ledger.Get(input.Name)
	if err != nil {
		return nil, PartnerOutput{}, fmt.Errorf("failed to get partner: %w", err)
	}
	if partner == nil {
		return nil, PartnerOutput{}, fmt.Errorf("partner not found: %s", input.Name)
	}
	return nil, partnerToOutput(partner), nil
}

type UpdatePartnerInput struct {
	Name    string `json:"name" jsonschema:"Partner name (required)"`
	Tier    string `json:"tier,omitempty" jsonschema:"New tier: Bronze, Silver or Gold"`
	Status  string `json:"status,omitempty" jsonschema:"New status, e.g. Active"`
	Contact string `json:"contact,omitempty" jsonschema:"New primary contact name"`
	Email   string `json:"email,omitempty" jsonschema:"New primary contact email"`
	Note    string `json:"note,omitempty" jsonschema:"Note to append to the partner record"`
}

// UpdatePartner changes only the fields that are set.
func (h *PartnerHandlers) UpdatePartner(_ context.Context, request *mcp.CallToolRequest, input UpdatePartnerInput) (*mcp.CallToolResult, PartnerOutput, error) {
	patch := ledger.Patch{Note: input.Note}
	if input.Tier != "" {
		tier := models.Tier(input.Tier)
		patch.Tier = &tier
	}
	if input.Status != "" {
		patch.Status = &input.Status
	}
	if input.Contact != "" {
		patch.Contact = &input.Contact
	}
	if input.Email != "" {
		patch.Email = &input.Email
	}

	partner, err := h.ledger.Update(input.Name, patch)
	if err != nil {
		return nil, PartnerOutput{}, fmt.Errorf("failed to update partner: %w", err)
	}
	if partner == nil {
		return nil, PartnerOutput{}, fmt.Errorf("partner not found: %s", input.Name)
	}
	return nil, partnerToOutput(partner), nil
}

type ListPartnersInput struct {
	Tier string `json:"tier,omitempty" jsonschema:"Only list partners in this tier"`
}

type ListPartnersOutput struct {
	Partners []PartnerOutput `json:"partners"`
}

func (h *PartnerHandlers) ListPartners(_ context.Context, request *mcp.CallToolRequest, input ListPartnersInput) (*mcp.CallToolResult, ListPartnersOutput, error) {
	partners, err := h.ledger.List()
	if err != nil {
		return nil, ListPartnersOutput{}, fmt.Errorf("failed to list partners: %w", err)
	}

	result := make([]PartnerOutput, 0, len(partners))
	for i := range partners {
		if input.Tier != "" && !strings.EqualFold(string(partners[i].Tier), input.Tier) {
			continue
		}
		result = append(result, partnerToOutput(&partners[i]))
	}
	return nil, ListPartnersOutput{Partners: result}, nil
}

type DeletePartnerOutput struct {
	Name    string `json:"name"`
	Deleted bool   `json:"deleted"`
}

func (h *PartnerHandlers) DeletePartner(_ context.Context, request *mcp.CallToolRequest, input PartnerNameInput) (*mcp.CallToolResult, DeletePartnerOutput, error) {
	deleted, err := h.ledger.Delete(input.Name)
	if err != nil {
		return nil, DeletePartnerOutput{}, fmt.Errorf("failed to delete partner: %w", err)
	}
	return nil, DeletePartnerOutput{Name: input.Name, Deleted: deleted}, nil
}

type StatsInput struct{}

func (h *PartnerHandlers) PartnerStats(_ context.Context, request *mcp.CallToolRequest, _ StatsInput) (*mcp.CallToolResult, ledger.Stats, error) {
	stats, err := h.ledger.Stats()
	if err != nil {
		return nil, ledger.Stats{}, fmt.Errorf("failed to compute stats: %w", err)
	}
	return nil, stats, nil
}

type RegisterDealInput struct {
	PartnerName string `json:"partner_name" jsonschema:"Partner the deal belongs to (created as Bronze if new)"`
	Value       int64  `json:"value" jsonschema:"Deal value in whole dollars"`
	Account     string `json:"account,omitempty" jsonschema:"Customer account (defaults to the partner name)"`
}

func (h *PartnerHandlers) RegisterDeal(_ context.Context, request *mcp.CallToolRequest, input RegisterDealInput) (*mcp.CallToolResult, engine.Response, error) {
	if strings.TrimSpace(input.PartnerName) == "" {
		return nil, engine.Response{}, fmt.Errorf("partner_name is required")
	}
	resp, err := h.engine.RegisterDeal(input.PartnerName, input.Value, input.Account)
	if err != nil {
		return nil, engine.Response{}, fmt.Errorf("failed to register deal: %w", err)
	}
	return nil, *resp, nil
}

type GenerateDocumentInput struct {
	PartnerName string `json:"partner_name" jsonschema:"Partner the document is for (created as Bronze if new)"`
	DocType     string `json:"doc_type" jsonschema:"Document type: nda, msa, dpa, or onboard for the full onboarding set"`
}

func (h *PartnerHandlers) GenerateDocument(_ context.Context, request *mcp.CallToolRequest, input GenerateDocumentInput) (*mcp.CallToolResult, engine.Response, error) {
	if strings.TrimSpace(input.PartnerName) == "" {
		return nil, engine.Response{}, fmt.Errorf("partner_name is required")
	}

	var resp *engine.Response
	var err error
	switch docType := strings.ToLower(strings.TrimSpace(input.DocType)); docType {
	case string(models.ActionOnboard):
		resp, err = h.engine.Onboard(input.PartnerName, "")
	case string(models.DocNDA), string(models.DocMSA), string(models.DocDPA):
		resp, err = h.engine.CreateDocument(input.PartnerName, models.DocType(docType))
	default:
		return nil, engine.Response{}, fmt.Errorf("unknown doc_type: %s (valid types: nda, msa, dpa, onboard)", input.DocType)
	}
	if err != nil {
		return nil, engine.Response{}, fmt.Errorf("failed to generate document: %w", err)
	}
	return nil, *resp, nil
}

func partnerToOutput(p *models.Partner) PartnerOutput {
	out := PartnerOutput{
		ID:         p.ID.String(),
		Name:       p.Name,
		Tier:       string(p.Tier),
		Status:     p.Status,
		Contact:    p.Contact,
		Email:      p.Email,
		TotalValue: p.TotalDealValue(),
		Notes:      p.Notes,
		Deals:      make([]DealOutput, 0, len(p.Deals)),
		Documents:  make([]DocumentOutput, 0, len(p.Documents)),
		CreatedAt:  p.CreatedAt.Format(timeLayout),
		UpdatedAt:  p.UpdatedAt.Format(timeLayout),
	}
	for _, d := range p.Deals {
		out.Deals = append(out.Deals, DealOutput{
			ID:           d.ID,
			Value:        d.Value,
			Account:      d.Account,
			Status:       d.Status,
			RegisteredAt: d.RegisteredAt.Format(timeLayout),
		})
	}
	for _, d := range p.Documents {
		out.Documents = append(out.Documents, DocumentOutput{
			ID:        d.ID,
			Type:      string(d.Type),
			Template:  d.Template,
			Path:      d.Path,
			Status:    d.Status,
			CreatedAt: d.CreatedAt.Format(timeLayout),
		})
	}
	return out
}
