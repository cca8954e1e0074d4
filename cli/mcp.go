// ABOUTME: MCP server subcommand
// ABOUTME: Registers partner tools, resources and prompts and serves them on stdio
package cli

import (
	"context"

	"github.com/harperreed/partneros/handlers"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

// NewMCPServer builds the MCP server over the app's engine.
func NewMCPServer(app *App, version string) *mcp.Server {
	chatHandlers := handlers.NewChatHandlers(app.Engine)
	partnerHandlers := handlers.NewPartnerHandlers(app.Engine)
	vizHandlers := handlers.NewVizHandlers(app.Engine)
	resourceHandlers := handlers.NewResourceHandlers(app.Engine)
	promptHandlers := handlers.NewPromptHandlers(app.Engine)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "partneros",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "chat",
		Description: "Send a free text request to the partner team, e.g. 'onboard Acme' or 'calculate commission for Acme'",
	}, chatHandlers.Chat)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_partner",
		Description: "Add a partner to the ledger",
	}, partnerHandlers.AddPartner)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_partner",
		Description: "Get a partner with its deals and documents by name",
	}, partnerHandlers.GetPartner)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_partner",
		Description: "Change a partner's tier, status or contact details, or append a note",
	}, partnerHandlers.UpdatePartner)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_partners",
		Description: "List partners, optionally filtered by tier",
	}, partnerHandlers.ListPartners)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "register_deal",
		Description: "Register a deal for a partner",
	}, partnerHandlers.RegisterDeal)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "generate_document",
		Description: "Generate an NDA, MSA or DPA for a partner, or the full onboarding set",
	}, partnerHandlers.GenerateDocument)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "partner_stats",
		Description: "Partner counts per tier, deal count and total deal value",
	}, partnerHandlers.PartnerStats)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_partner",
		Description: "Delete a partner from the ledger",
	}, partnerHandlers.DeletePartner)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "generate_graph",
		Description: "Render partners, deals and documents as a GraphViz graph",
	}, vizHandlers.GenerateGraph)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "program_dashboard",
		Description: "Partner program dashboard with tier breakdown and top partners",
	}, vizHandlers.Dashboard)

	for _, r := range handlers.Resources() {
		server.AddResource(r, resourceHandlers.ReadResource)
	}
	for _, t := range handlers.ResourceTemplates() {
		server.AddResourceTemplate(t, resourceHandlers.ReadResource)
	}
	for _, p := range handlers.Prompts() {
		server.AddPrompt(p, promptHandlers.GetPrompt)
	}

	return server
}

// MCPCommand starts the MCP server on stdio
func MCPCommand(ctx context.Context, app *App, version string) error {
	app.Logger.Info("starting MCP server", zap.String("version", version))
	return NewMCPServer(app, version).Run(ctx, &mcp.StdioTransport{})
}
