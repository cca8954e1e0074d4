// ABOUTME: GraphViz visualization MCP handlers
// ABOUTME: Provides generate_graph and program_dashboard tools for agents
package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/harperreed/partneros/engine"
	"github.com/harperreed/partneros/ledger"
	"github.com/harperreed/partneros/viz"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type VizHandlers struct {
	ledger *ledger.Ledger
}

func NewVizHandlers(e *engine.Engine) *VizHandlers {
	return &VizHandlers{ledger: e.Ledger()}
}

type GenerateGraphInput struct {
	PartnerName string `json:"partner_name,omitempty" jsonschema:"Partner to graph; omit for the whole program"`
}

type GenerateGraphOutput struct {
	Scope     string `json:"scope"`
	DOTSource string `json:"dot_source"`
	NodeCount int    `json:"node_count"`
	EdgeCount int    `json:"edge_count"`
}

func (h *VizHandlers) GenerateGraph(ctx context.Context, request *mcp.CallToolRequest, input GenerateGraphInput) (*mcp.CallToolResult, GenerateGraphOutput, error) {
	generator := viz.NewGraphGenerator(h.ledger)
	dot, err := generator.PartnerGraph(ctx, input.PartnerName)
	if err != nil {
		return nil, GenerateGraphOutput{}, fmt.Errorf("failed to generate graph: %w", err)
	}

	scope := "program"
	if input.PartnerName != "" {
		scope = input.PartnerName
	}

	return nil, GenerateGraphOutput{
		Scope:     scope,
		DOTSource: dot,
		NodeCount: strings.Count(dot, "[label="),
		EdgeCount: strings.Count(dot, "->"),
	}, nil
}

type DashboardInput struct{}

type DashboardOutput struct {
	Text  string              `json:"text"`
	Stats *viz.DashboardStats `json:"stats"`
}

func (h *VizHandlers) Dashboard(_ context.Context, request *mcp.CallToolRequest, _ DashboardInput) (*mcp.CallToolResult, DashboardOutput, error) {
	stats, err := viz.GenerateDashboardStats(h.ledger)
	if err != nil {
		return nil, DashboardOutput{}, fmt.Errorf("failed to build dashboard: %w", err)
	}
	return nil, DashboardOutput{Text: viz.RenderDashboard(stats), Stats: stats}, nil
}
