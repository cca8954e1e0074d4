// ABOUTME: Partner CLI commands
// ABOUTME: Human-friendly commands for listing, adding, showing and deleting partners
package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/harperreed/partneros/ledger"
	"github.com/harperreed/partneros/models"
	"github.com/harperreed/partneros/skills"
)

// ListPartnersCommand lists partners, optionally only one tier.
func ListPartnersCommand(app *App, w io.Writer, tier string) error {
	partners, err := app.Engine.Ledger().List()
	if err != nil {
		return fmt.Errorf("failed to list partners: %w", err)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	count := 0
	for _, p := range partners {
		if tier != "" && !strings.EqualFold(string(p.Tier), tier) {
			continue
		}
		if count == 0 {
			fmt.Fprintln(tw, "NAME\tTIER\tSTATUS\tDEALS\tVALUE\tDOCS")
			fmt.Fprintln(tw, "----\t----\t------\t-----\t-----\t----")
		}
		count++
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%d\n",
			p.Name, p.Tier, p.Status, len(p.Deals), skills.Dollars(p.TotalDealValue()), len(p.Documents))
	}
	if count == 0 {
		fmt.Fprintln(w, "No partners found")
		return nil
	}

	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\nTotal: %d partner(s)\n", count)
	return nil
}

// AddPartnerCommand adds a partner. Adding an existing name leaves it unchanged.
func AddPartnerCommand(app *App, w io.Writer, name, tier, contact, email string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("partner name is required")
	}
	p, err := app.Engine.Ledger().Add(name, tier, contact, email)
	if err != nil {
		return fmt.Errorf("failed to add partner: %w", err)
	}

	fmt.Fprintf(w, "✓ Partner saved: %s (ID: %s)\n", p.Name, p.ID)
	fmt.Fprintf(w, "  Tier: %s\n", p.Tier)
	if p.Contact != "" {
		fmt.Fprintf(w, "  Contact: %s\n", p.Contact)
	}
	if p.Email != "" {
		fmt.Fprintf(w, "  Email: %s\n", p.Email)
	}
	return nil
}

// ShowPartnerCommand prints one partner with its deals and documents.
func ShowPartnerCommand(app *App, w io.Writer, name string) error {
	p, err := app.Engine.Ledger().Get(name)
	if err != nil {
		return fmt.Errorf("failed to get partner: %w", err)
	}
	if p == nil {
		return fmt.Errorf("partner not found: %s", name)
	}

	fmt.Fprintf(w, "%s\n", p.Name)
	fmt.Fprintf(w, "  ID:       %s\n", p.ID)
	fmt.Fprintf(w, "  Tier:     %s\n", p.Tier)
	fmt.Fprintf(w, "  Status:   %s\n", p.Status)
	if p.Contact != "" {
		fmt.Fprintf(w, "  Contact:  %s\n", p.Contact)
	}
	if p.Email != "" {
		fmt.Fprintf(w, "  Email:    %s\n", p.Email)
	}
	fmt.Fprintf(w, "  Created:  %s (%s)\n", p.CreatedAt.Format("2006-01-02"), humanize.Time(p.CreatedAt))

	if len(p.Deals) > 0 {
		fmt.Fprintf(w, "\nDeals (%s total):\n", skills.Dollars(p.TotalDealValue()))
		for _, d := range p.Deals {
			fmt.Fprintf(w, "  %s  %-12s %s (%s)\n", d.ID, skills.Dollars(d.Value), d.Account, d.Status)
		}
	}
	if len(p.Documents) > 0 {
		fmt.Fprintln(w, "\nDocuments:")
		for _, d := range p.Documents {
			fmt.Fprintf(w, "  %-9s %s  %s\n", d.Type.Label(), d.CreatedAt.Format("2006-01-02"), d.Path)
		}
	}
	for _, note := range p.Notes {
		fmt.Fprintf(w, "  Note: %s\n", note)
	}
	return nil
}

// DeletePartnerCommand removes a partner from the ledger. Generated files stay on disk.
func DeletePartnerCommand(app *App, w io.Writer, name string) error {
	deleted, err := app.Engine.Ledger().Delete(name)
	if err != nil {
		return fmt.Errorf("failed to delete partner: %w", err)
	}
	if !deleted {
		return fmt.Errorf("partner not found: %s", name)
	}
	fmt.Fprintf(w, "✓ Deleted partner: %s\n", name)
	return nil
}

// UpdatePartnerCommand applies the non-empty fields to an existing partner.
func UpdatePartnerCommand(app *App, w io.Writer, name, tier, status, contact, email, note string) error {
	patch := ledger.Patch{Note: note}
	if tier != "" {
		t := models.Tier(tier)
		patch.Tier = &t
	}
	if status != "" {
		patch.Status = &status
	}
	if contact != "" {
		patch.Contact = &contact
	}
	if email != "" {
		patch.Email = &email
	}

	p, err := app.Engine.Ledger().Update(name, patch)
	if err != nil {
		return fmt.Errorf("failed to update partner: %w", err)
	}
	if p == nil {
		return fmt.Errorf("partner not found: %s", name)
	}
	fmt.Fprintf(w, "✓ Partner updated: %s (%s, %s)\n", p.Name, p.Tier, p.Status)
	return nil
}

// PartnerStatsCommand prints ledger totals.
func PartnerStatsCommand(app *App, w io.Writer) error {
	stats, err := app.Engine.Ledger().Stats()
	if err != nil {
		return fmt.Errorf("failed to compute stats: %w", err)
	}

	fmt.Fprintln(w, "Partner Program Stats:")
	fmt.Fprintf(w, "  Partners:    %d\n", stats.Total)
	for _, tier := range models.Tiers {
		fmt.Fprintf(w, "    %-8s   %d\n", tier, stats.Tiers[tier])
	}
	fmt.Fprintf(w, "  Deals:       %d\n", stats.TotalDeals)
	fmt.Fprintf(w, "  Deal Value:  %s\n", skills.Dollars(stats.TotalValue))
	fmt.Fprintf(w, "  Ledger:      %s\n", app.Engine.Ledger().Path())
	fmt.Fprintf(w, "  Documents:   %s\n", app.Engine.Docs().OutputDir())
	return nil
}
