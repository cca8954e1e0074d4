// ABOUTME: Subcommands for chat, serving, partners, history, visualization and sync
// ABOUTME: Each command is a thin wrapper over the cli package
package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/harperreed/partneros/cli"
	"github.com/harperreed/partneros/tui"
	"github.com/harperreed/partneros/web"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
)

var (
	plainChat      bool
	conversationID string

	serveHost string
	servePort int

	partnerTier    string
	partnerContact string
	partnerEmail   string
	partnerStatus  string
	partnerNote    string

	historyLimit int
	graphOutput  string
	wipeForce    bool
)

var chatCmd = &cobra.Command{
	Use:   "chat [message...]",
	Short: "Chat with the partner team",
	Long: `With a message, dispatches it once and prints the reply.
Without one, starts an interactive session: the full-screen UI on a terminal,
or a plain line loop when stdin is piped or --plain is set.`,
	RunE: runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	if err := cli.PromptAPIKey(app, out); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
	}

	if len(args) > 0 {
		return cli.ChatCommand(ctx, app, out, strings.Join(args, " "), conversationID)
	}

	id := conversationID
	if id == "" {
		id = cli.CLIConversationID
	}
	if !plainChat && term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd())) {
		return tui.Run(app.Engine, id)
	}
	return cli.InteractiveCommand(ctx, app, cmd.InOrStdin(), out, id)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the JSON web API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := app.Config.Server
		if serveHost != "" {
			cfg.Host = serveHost
		}
		if servePort != 0 {
			cfg.Port = servePort
		}
		addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		server := web.NewServer(app.Engine, cfg, logger.Named("web"))
		fmt.Fprintf(cmd.OutOrStdout(), "PartnerOS listening on http://%s\n", addr)
		return server.Run(ctx, addr)
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the MCP server over stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.Info("starting MCP server", zap.String("version", version))
		return cli.MCPCommand(cmd.Context(), app, version)
	},
}

var partnersCmd = &cobra.Command{
	Use:   "partners",
	Short: "Manage the partner ledger",
}

var partnersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List partners",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.ListPartnersCommand(app, cmd.OutOrStdout(), partnerTier)
	},
}

var partnersAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a partner",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.AddPartnerCommand(app, cmd.OutOrStdout(), strings.Join(args, " "), partnerTier, partnerContact, partnerEmail)
	},
}

var partnersUpdateCmd = &cobra.Command{
	Use:   "update <name>",
	Short: "Change a partner's tier, status or contact, or add a note",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.UpdatePartnerCommand(app, cmd.OutOrStdout(), strings.Join(args, " "),
			partnerTier, partnerStatus, partnerContact, partnerEmail, partnerNote)
	},
}

var partnersShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a partner with its deals and documents",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.ShowPartnerCommand(app, cmd.OutOrStdout(), strings.Join(args, " "))
	},
}

var partnersDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a partner",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.DeletePartnerCommand(app, cmd.OutOrStdout(), strings.Join(args, " "))
	},
}

var partnersStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show partner program totals",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.PartnerStatsCommand(app, cmd.OutOrStdout())
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent dispatches from the audit log",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.HistoryCommand(cmd.Context(), app, cmd.OutOrStdout(), conversationID, historyLimit)
	},
}

var vizCmd = &cobra.Command{
	Use:   "viz",
	Short: "Visualize the partner program",
}

var vizGraphCmd = &cobra.Command{
	Use:   "graph [partner]",
	Short: "Print a Graphviz DOT graph of one partner or the whole program",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		partner := ""
		if len(args) == 1 {
			partner = args[0]
		}
		return cli.VizGraphCommand(cmd.Context(), app, cmd.OutOrStdout(), partner, graphOutput)
	},
}

var vizDashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Print the program dashboard",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.VizDashboardCommand(app, cmd.OutOrStdout())
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Manage charm sync of conversation memory",
}

var syncStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show charm sync status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.SyncStatusCommand(app, cmd.OutOrStdout())
	},
}

var syncNowCmd = &cobra.Command{
	Use:   "now",
	Short: "Sync conversations with the charm server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.SyncNowCommand(app, cmd.OutOrStdout())
	},
}

var syncWipeCmd = &cobra.Command{
	Use:   "wipe",
	Short: "Delete every synced conversation",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.SyncWipeCommand(cmd.Context(), app, cmd.InOrStdin(), cmd.OutOrStdout(), wipeForce)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "partneros version %s\n", version)
	},
}

func init() {
	chatCmd.Flags().BoolVar(&plainChat, "plain", false, "Use the line-oriented chat instead of the full-screen UI")
	chatCmd.Flags().StringVarP(&conversationID, "conversation", "c", "", "Conversation ID (default: cli)")

	serveCmd.Flags().StringVar(&serveHost, "host", "", "Listen host (overrides config)")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Listen port (overrides config)")

	for _, c := range []*cobra.Command{partnersListCmd, partnersAddCmd, partnersUpdateCmd} {
		c.Flags().StringVar(&partnerTier, "tier", "", "Partner tier (Bronze, Silver, Gold)")
	}
	for _, c := range []*cobra.Command{partnersAddCmd, partnersUpdateCmd} {
		c.Flags().StringVar(&partnerContact, "contact", "", "Contact name")
		c.Flags().StringVar(&partnerEmail, "email", "", "Contact email")
	}
	partnersUpdateCmd.Flags().StringVar(&partnerStatus, "status", "", "Partner status, e.g. Active")
	partnersUpdateCmd.Flags().StringVar(&partnerNote, "note", "", "Note to append")
	partnersCmd.AddCommand(partnersListCmd, partnersAddCmd, partnersUpdateCmd, partnersShowCmd, partnersDeleteCmd, partnersStatsCmd)

	historyCmd.Flags().StringVarP(&conversationID, "conversation", "c", "", "Only show one conversation")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum entries to show")

	vizGraphCmd.Flags().StringVarP(&graphOutput, "output", "o", "", "Write DOT to a file instead of stdout")
	vizCmd.AddCommand(vizGraphCmd, vizDashboardCmd)

	syncWipeCmd.Flags().BoolVar(&wipeForce, "force", false, "Skip the confirmation prompt")
	syncCmd.AddCommand(syncStatusCmd, syncNowCmd, syncWipeCmd)
}
