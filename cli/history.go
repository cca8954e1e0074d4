// ABOUTME: Dispatch history CLI command
// ABOUTME: Prints recent audit log entries, newest first
package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
)

const maxMessageColumn = 48

// HistoryCommand prints the most recent dispatches, optionally for one conversation.
func HistoryCommand(ctx context.Context, app *App, w io.Writer, conversationID string, limit int) error {
	entries, err := app.Audit.Recent(ctx, conversationID, limit)
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}
	if len(entries) == 0 {
		fmt.Fprintln(w, "No dispatches recorded")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tCONVERSATION\tOUTCOME\tAGENT\tPARTNER\tMESSAGE")
	fmt.Fprintln(tw, "----\t------------\t-------\t-----\t-------\t-------")
	for _, e := range entries {
		partner := e.Partner
		if partner == "" {
			partner = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			humanize.Time(e.CreatedAt), e.ConversationID, e.Outcome, e.Agent, partner, clip(e.Message, maxMessageColumn))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if conversationID != "" {
		return nil
	}

	counts, err := app.Audit.CountByOutcome(ctx)
	if err != nil {
		return fmt.Errorf("failed to count outcomes: %w", err)
	}
	outcomes := make([]string, 0, len(counts))
	for outcome := range counts {
		outcomes = append(outcomes, outcome)
	}
	sort.Strings(outcomes)
	parts := make([]string, 0, len(outcomes))
	for _, outcome := range outcomes {
		parts = append(parts, fmt.Sprintf("%s=%d", outcome, counts[outcome]))
	}
	fmt.Fprintf(w, "\nOutcomes: %s\n", strings.Join(parts, " "))
	return nil
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
