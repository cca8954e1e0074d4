// ABOUTME: Terminal dashboard statistics and rendering
// ABOUTME: Summarizes tiers, the deal pipeline and the top partners by value
package viz

import (
	"fmt"
	"sort"
	"strings"

	"github.com/harperreed/partneros/ledger"
	"github.com/harperreed/partneros/models"
	"github.com/harperreed/partneros/skills"
)

const topPartnerCount = 5

type DashboardStats struct {
	TotalPartners  int
	TotalDeals     int
	TotalValue     int64
	TotalDocuments int

	Tiers       map[models.Tier]TierStats
	TopPartners []PartnerValue

	// Partners still onboarding with no registered deal.
	NeedsAttention []string
}

type TierStats struct {
	Tier     models.Tier
	Partners int
	Deals    int
	Value    int64
}

type PartnerValue struct {
	Name  string
	Tier  models.Tier
	Deals int
	Value int64
}

func GenerateDashboardStats(l *ledger.Ledger) (*DashboardStats, error) {
	partners, err := l.List()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch partners: %w", err)
	}

	stats := &DashboardStats{
		TotalPartners: len(partners),
		Tiers:         make(map[models.Tier]TierStats),
	}
	for _, p := range partners {
		value := p.TotalDealValue()

		ts := stats.Tiers[p.Tier]
		ts.Tier = p.Tier
		ts.Partners++
		ts.Deals += len(p.Deals)
		ts.Value += value
		stats.Tiers[p.Tier] = ts

		stats.TotalDeals += len(p.Deals)
		stats.TotalValue += value
		stats.TotalDocuments += len(p.Documents)

		if len(p.Deals) > 0 {
			stats.TopPartners = append(stats.TopPartners, PartnerValue{
				Name: p.Name, Tier: p.Tier, Deals: len(p.Deals), Value: value,
			})
		} else if p.Status == models.StatusOnboarding {
			stats.NeedsAttention = append(stats.NeedsAttention, p.Name)
		}
	}

	sort.SliceStable(stats.TopPartners, func(i, j int) bool {
		return stats.TopPartners[i].Value > stats.TopPartners[j].Value
	})
	if len(stats.TopPartners) > topPartnerCount {
		stats.TopPartners = stats.TopPartners[:topPartnerCount]
	}
	return stats, nil
}

func RenderDashboard(stats *DashboardStats) string {
	var out strings.Builder

	out.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	out.WriteString("  PARTNER PROGRAM DASHBOARD\n")
	out.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

	out.WriteString("TIERS\n")
	renderTiers(&out, stats.Tiers)
	out.WriteString("\n")

	out.WriteString("STATS\n")
	out.WriteString(fmt.Sprintf("  🤝 %d partners  💼 %d deals (%s)  📄 %d documents\n\n",
		stats.TotalPartners, stats.TotalDeals, skills.Dollars(stats.TotalValue), stats.TotalDocuments))

	if len(stats.TopPartners) > 0 {
		out.WriteString("TOP PARTNERS\n")
		for i, p := range stats.TopPartners {
			out.WriteString(fmt.Sprintf("  %d. %-20s %-7s %2d deals  %s\n", i+1, p.Name, p.Tier, p.Deals, skills.Dollars(p.Value)))
		}
		out.WriteString("\n")
	}

	if len(stats.NeedsAttention) > 0 {
		out.WriteString("NEEDS ATTENTION\n")
		out.WriteString(fmt.Sprintf("  ⚠️  %d onboarding partners without a deal: %s\n",
			len(stats.NeedsAttention), strings.Join(stats.NeedsAttention, ", ")))
	}

	return out.String()
}

func renderTiers(out *strings.Builder, tiers map[models.Tier]TierStats) {
	maxCount := 0
	for _, ts := range tiers {
		if ts.Partners > maxCount {
			maxCount = ts.Partners
		}
	}
	if maxCount == 0 {
		maxCount = 1
	}

	for _, tier := range models.Tiers {
		ts := tiers[tier]
		barLength := (ts.Partners * 10) / maxCount
		bar := strings.Repeat("█", barLength) + strings.Repeat("░", 10-barLength)
		out.WriteString(fmt.Sprintf("  %-7s %s  %2d (%s)\n", tier, bar, ts.Partners, skills.Dollars(ts.Value)))
	}
}
