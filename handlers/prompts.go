// ABOUTME: MCP prompt handlers for reusable partner program workflows
// ABOUTME: Builds partner summary, QBR prep and pipeline review prompts from ledger data
package handlers

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/harperreed/partneros/engine"
	"github.com/harperreed/partneros/ledger"
	"github.com/harperreed/partneros/models"
	"github.com/harperreed/partneros/skills"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type PromptHandlers struct {
	ledger *ledger.Ledger
}

func NewPromptHandlers(e *engine.Engine) *PromptHandlers {
	return &PromptHandlers{ledger: e.Ledger()}
}

// Prompts lists the prompts served by GetPrompt.
func Prompts() []*mcp.Prompt {
	partnerArg := []*mcp.PromptArgument{{Name: "partner_name", Description: "Partner name", Required: true}}
	return []*mcp.Prompt{
		{Name: "partner-summary", Description: "Summarize a partner's standing and suggest next steps", Arguments: partnerArg},
		{Name: "qbr-prep", Description: "Prepare a quarterly business review for a partner", Arguments: partnerArg},
		{Name: "pipeline-review", Description: "Review registered deals across the partner program"},
	}
}

// GetPrompt generates the prompt message based on the template
func (h *PromptHandlers) GetPrompt(ctx context.Context, request *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	name := request.Params.Name
	arguments := request.Params.Arguments
	switch name {
	case "partner-summary":
		return h.getPartnerSummaryPrompt(arguments)
	case "qbr-prep":
		return h.getQBRPrepPrompt(arguments)
	case "pipeline-review":
		return h.getPipelineReviewPrompt()
	default:
		return nil, fmt.Errorf("unknown prompt: %s", name)
	}
}

func (h *PromptHandlers) partnerArg(args map[string]string) (*models.Partner, error) {
	name, ok := args["partner_name"]
	if !ok || strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("partner_name is required")
	}
	partner, err := h.ledger.Get(name)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch partner: %w", err)
	}
	if partner == nil {
		return nil, fmt.Errorf("partner not found: %s", name)
	}
	return partner, nil
}

func (h *PromptHandlers) getPartnerSummaryPrompt(args map[string]string) (*mcp.GetPromptResult, error) {
	partner, err := h.partnerArg(args)
	if err != nil {
		return nil, err
	}

	var promptText strings.Builder
	promptText.WriteString("Please provide a summary of this partner:\n\n")
	fmt.Fprintf(&promptText, "Name: %s\n", partner.Name)
	fmt.Fprintf(&promptText, "Tier: %s\n", partner.Tier)
	fmt.Fprintf(&promptText, "Status: %s\n", partner.Status)
	if partner.Contact != "" {
		fmt.Fprintf(&promptText, "Contact: %s\n", partner.Contact)
	}
	fmt.Fprintf(&promptText, "Partner Since: %s\n", partner.CreatedAt.Format("2006-01-02"))
	fmt.Fprintf(&promptText, "\nDeals: %d totaling %s\n", len(partner.Deals), skills.Dollars(partner.TotalDealValue()))
	if len(partner.Documents) > 0 {
		types := make([]string, 0, len(partner.Documents))
		for _, d := range partner.Documents {
			types = append(types, d.Type.Label())
		}
		fmt.Fprintf(&promptText, "Documents: %s\n", strings.Join(types, ", "))
	}
	for _, note := range partner.Notes {
		fmt.Fprintf(&promptText, "Note: %s\n", note)
	}

	promptText.WriteString("\nPlease analyze this partner and provide:")
	promptText.WriteString("\n1. Where the partnership stands today")
	promptText.WriteString("\n2. Gaps in onboarding paperwork or enablement")
	promptText.WriteString("\n3. Recommended next actions")

	return userPrompt(fmt.Sprintf("Summary for partner: %s", partner.Name), promptText.String()), nil
}

func (h *PromptHandlers) getQBRPrepPrompt(args map[string]string) (*mcp.GetPromptResult, error) {
	partner, err := h.partnerArg(args)
	if err != nil {
		return nil, err
	}

	total := partner.TotalDealValue()
	tier, pct, commission := skills.CommissionFor(total)

	var promptText strings.Builder
	fmt.Fprintf(&promptText, "Prepare a quarterly business review for %s.\n\n", partner.Name)
	fmt.Fprintf(&promptText, "Current Tier: %s\n", partner.Tier)
	fmt.Fprintf(&promptText, "Earned Tier by Deal Value: %s (%d%% commission)\n", tier, pct)
	fmt.Fprintf(&promptText, "Total Deal Value: %s\n", skills.Dollars(total))
	fmt.Fprintf(&promptText, "Commission Owed: %s\n", skills.Dollars(commission))
	if len(partner.Deals) > 0 {
		promptText.WriteString("\nDeals:\n")
		for _, d := range partner.Deals {
			fmt.Fprintf(&promptText, "  - %s: %s (%s, %s)\n", d.Account, skills.Dollars(d.Value), d.Status, d.RegisteredAt.Format("2006-01-02"))
		}
	}

	promptText.WriteString("\nPlease draft:")
	promptText.WriteString("\n1. A results recap for the quarter")
	promptText.WriteString("\n2. Whether a tier change is warranted")
	promptText.WriteString("\n3. Joint goals for next quarter")

	return userPrompt(fmt.Sprintf("QBR prep for %s", partner.Name), promptText.String()), nil
}

func (h *PromptHandlers) getPipelineReviewPrompt() (*mcp.GetPromptResult, error) {
	partners, err := h.ledger.List()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch partners: %w", err)
	}

	slices.SortFunc(partners, func(a, b models.Partner) int {
		av, bv := a.TotalDealValue(), b.TotalDealValue()
		switch {
		case av > bv:
			return -1
		case av < bv:
			return 1
		}
		return strings.Compare(a.Name, b.Name)
	})

	var promptText strings.Builder
	var totalDeals int
	var totalValue int64
	promptText.WriteString("Please review the partner deal pipeline:\n\n")
	for _, p := range partners {
		totalDeals += len(p.Deals)
		totalValue += p.TotalDealValue()
		fmt.Fprintf(&promptText, "  - %s (%s): %d deals, %s\n", p.Name, p.Tier, len(p.Deals), skills.Dollars(p.TotalDealValue()))
	}
	fmt.Fprintf(&promptText, "\nPartners: %d\nTotal Deals: %d\nTotal Value: %s\n", len(partners), totalDeals, skills.Dollars(totalValue))

	promptText.WriteString("\nPlease provide:")
	promptText.WriteString("\n1. Analysis of pipeline concentration across partners")
	promptText.WriteString("\n2. Partners with no registered deals that need attention")
	promptText.WriteString("\n3. Suggestions for growing partner-sourced revenue")

	return userPrompt("Partner pipeline review", promptText.String()), nil
}

func userPrompt(description, text string) *mcp.GetPromptResult {
	return &mcp.GetPromptResult{
		Description: description,
		Messages: []*mcp.PromptMessage{
			{
				Role:    "user",
				Content: &mcp.TextContent{Text: text},
			},
		},
	}
}
