// ABOUTME: MCP resource handlers for exposing partner ledger data
// ABOUTME: Provides read-only access to partners, program stats and conversations via URI
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/harperreed/partneros/engine"
	"github.com/harperreed/partneros/ledger"
	"github.com/harperreed/partneros/memory"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const resourceScheme = "partners://"

type ResourceHandlers struct {
	ledger *ledger.Ledger
	memory *memory.Memory
}

func NewResourceHandlers(e *engine.Engine) *ResourceHandlers {
	return &ResourceHandlers{ledger: e.Ledger(), memory: e.Memory()}
}

// ReadResource handles resource read requests
func (h *ResourceHandlers) ReadResource(ctx context.Context, request *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := request.Params.URI
	if !strings.HasPrefix(uri, resourceScheme) {
		return nil, fmt.Errorf("invalid URI scheme: expected %s", resourceScheme)
	}

	path := strings.TrimPrefix(uri, resourceScheme)
	parts := strings.SplitN(path, "/", 2)

	switch parts[0] {
	case "all":
		return h.readAllPartners(uri)
	case "partner":
		if len(parts) < 2 || parts[1] == "" {
			return nil, fmt.Errorf("partner name required: %spartner/{name}", resourceScheme)
		}
		name, err := url.PathUnescape(parts[1])
		if err != nil {
			return nil, fmt.Errorf("invalid partner name: %w", err)
		}
		return h.readPartner(uri, name)
	case "stats":
		return h.readStats(uri)
	case "conversation":
		if len(parts) < 2 || parts[1] == "" {
			return nil, fmt.Errorf("conversation id required: %sconversation/{id}", resourceScheme)
		}
		return h.readConversation(uri, parts[1])
	default:
		return nil, fmt.Errorf("unknown resource: %s", parts[0])
	}
}

func (h *ResourceHandlers) readAllPartners(uri string) (*mcp.ReadResourceResult, error) {
	partners, err := h.ledger.List()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch partners: %w", err)
	}

	out := make([]PartnerOutput, 0, len(partners))
	for i := range partners {
		out = append(out, partnerToOutput(&partners[i]))
	}
	return jsonResource(uri, out)
}

func (h *ResourceHandlers) readPartner(uri, name string) (*mcp.ReadResourceResult, error) {
	partner, err := h.ledger.Get(name)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch partner: %w", err)
	}
	if partner == nil {
		return nil, fmt.Errorf("partner not found: %s", name)
	}
	return jsonResource(uri, partnerToOutput(partner))
}

func (h *ResourceHandlers) readStats(uri string) (*mcp.ReadResourceResult, error) {
	stats, err := h.ledger.Stats()
	if err != nil {
		return nil, fmt.Errorf("failed to compute stats: %w", err)
	}
	return jsonResource(uri, stats)
}

func (h *ResourceHandlers) readConversation(uri, id string) (*mcp.ReadResourceResult, error) {
	if err := memory.ValidateID(id); err != nil {
		return nil, err
	}
	return jsonResource(uri, map[string]any{
		"conversation_id": id,
		"messages":        h.memory.History(id, 0),
	})
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource: %w", err)
	}

	return &mcp.ReadResourceResult{Contents: []*mcp.ResourceContents{
		{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}}, nil
}

// Resources lists the fixed resources served by ReadResource.
func Resources() []*mcp.Resource {
	return []*mcp.Resource{
		{
			Name:        "partners",
			Title:       "All Partners",
			Description: "Every partner in the ledger with deals and documents",
			MIMEType:    "application/json",
			URI:         resourceScheme + "all",
		},
		{
			Name:        "program_stats",
			Title:       "Program Stats",
			Description: "Partner counts per tier, deal count and total deal value",
			MIMEType:    "application/json",
			URI:         resourceScheme + "stats",
		},
	}
}

// ResourceTemplates lists the parameterized resources served by ReadResource.
func ResourceTemplates() []*mcp.ResourceTemplate {
	return []*mcp.ResourceTemplate{
		{
			Name:        "partner",
			Title:       "Partner",
			Description: "One partner by name. URI format: partners://partner/{name}",
			MIMEType:    "application/json",
			URITemplate: resourceScheme + "partner/{name}",
		},
		{
			Name:        "conversation",
			Title:       "Conversation",
			Description: "Message history of a conversation. URI format: partners://conversation/{id}",
			MIMEType:    "application/json",
			URITemplate: resourceScheme + "conversation/{id}",
		},
	}
}
