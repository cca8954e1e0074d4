// ABOUTME: Visualization CLI commands
// ABOUTME: Handles viz dashboard and partner graph generation commands
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/harperreed/partneros/viz"
)

// VizGraphCommand writes the partner graph as DOT to output, or w when output is empty.
func VizGraphCommand(ctx context.Context, app *App, w io.Writer, partner, output string) error {
	generator := viz.NewGraphGenerator(app.Engine.Ledger())
	dot, err := generator.PartnerGraph(ctx, partner)
	if err != nil {
		return err
	}

	if output != "" {
		if err := os.WriteFile(output, []byte(dot), 0644); err != nil {
			return fmt.Errorf("failed to write graph: %w", err)
		}
		fmt.Fprintf(w, "✓ Graph written to %s\n", output)
		return nil
	}

	fmt.Fprintln(w, dot)
	return nil
}

func VizDashboardCommand(app *App, w io.Writer) error {
	stats, err := viz.GenerateDashboardStats(app.Engine.Ledger())
	if err != nil {
		return fmt.Errorf("failed to generate dashboard stats: %w", err)
	}

	fmt.Fprint(w, viz.RenderDashboard(stats))
	return nil
}
