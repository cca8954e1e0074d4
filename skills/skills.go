// ABOUTME: Read-only skill handlers: status, email, qbr, commission and roi
// ABOUTME: Each skill renders a deterministic text block and names its owning agent

package skills

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/harperreed/partneros/models"
)

// Agent labels used in responses.
const (
	AgentArchitect = "architect"
	AgentSpark     = "spark"
	AgentEngine    = "engine"
	AgentChampion  = "champion"
	AgentSystem    = "system"
)

var owners = map[models.Skill]string{
	models.SkillStatus:     AgentArchitect,
	models.SkillEmail:      AgentSpark,
	models.SkillQBR:        AgentArchitect,
	models.SkillCommission: AgentEngine,
	models.SkillROI:        AgentChampion,
}

// Owner returns the agent that answers a skill.
func Owner(skill models.Skill) (string, bool) {
	a, ok := owners[skill]
	return a, ok
}

type Result struct {
	Skill models.Skill
	Agent string
	Text  string
}

// Dollars formats whole dollars as "$1,234".
func Dollars(v int64) string {
	return "$" + humanize.Comma(v)
}

// Commission thresholds in whole dollars.
const (
	SilverThreshold int64 = 100_000
	GoldThreshold   int64 = 500_000
)

// CommissionFor returns the tier, rate in percent, and commission for a deal total.
func CommissionFor(total int64) (models.Tier, int64, int64) {
	var tier models.Tier
	var pct int64
	switch {
	case total >= GoldThreshold:
		tier, pct = models.TierGold, 20
	case total >= SilverThreshold:
		tier, pct = models.TierSilver, 15
	default:
		tier, pct = models.TierBronze, 10
	}
	return tier, pct, total * pct / 100
}

// Handle renders skill for partnerName. partner may be nil when the ledger has no record.
func Handle(skill models.Skill, partnerName string, partner *models.Partner) Result {
	agent, ok := owners[skill]
	if !ok {
		return Result{
			Skill: skill,
			Agent: AgentSystem,
			Text:  fmt.Sprintf("Skill '%s' not recognized.", skill),
		}
	}

	var text string
	switch skill {
	case models.SkillStatus:
		text = status(partnerName, partner)
	case models.SkillEmail:
		text = email(partnerName, partner)
	case models.SkillQBR:
		text = qbr(partnerName, partner)
	case models.SkillCommission:
		text = commission(partnerName, partner)
	case models.SkillROI:
		text = roi(partnerName)
	}
	return Result{Skill: skill, Agent: agent, Text: text}
}

func status(name string, p *models.Partner) string {
	if p == nil {
		return fmt.Sprintf("Partner '%s' not found.", name)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "## Partner Status: %s\n\n", p.Name)
	fmt.Fprintf(&b, "Tier: %s\n", p.Tier)
	fmt.Fprintf(&b, "Status: %s\n", p.Status)
	fmt.Fprintf(&b, "Created: %s\n\n", p.CreatedAt.Format("2006-01-02"))
	fmt.Fprintf(&b, "Deals: %d\n", len(p.Deals))
	fmt.Fprintf(&b, "Total Deal Value: %s\n", Dollars(p.TotalDealValue()))
	fmt.Fprintf(&b, "Documents: %d", len(p.Documents))
	if n := len(p.Documents); n > 0 {
		last := p.Documents[n-1]
		fmt.Fprintf(&b, "\nLatest Document: %s (%s)", last.Type.Label(), last.CreatedAt.Format("2006-01-02"))
	}
	return b.String()
}

func email(name string, p *models.Partner) string {
	tier := models.TierBronze
	if p != nil {
		tier = p.Tier
		name = p.Name
	}
	return fmt.Sprintf(`## Outreach Email for %s

Subject: Partnership Opportunity

Hi [Partner Name],

We'd like to explore working together. Our %s tier partnership includes shared
leads, technical support and a competitive commission plan.

Do you have 15 minutes for a call next week?

Best regards`, name, tier)
}

var qbrCadence = map[models.Tier]string{
	models.TierGold:   "Quarterly",
	models.TierSilver: "Bi-annually",
	models.TierBronze: "Annually",
}

func qbr(name string, p *models.Partner) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## QBR Scheduling for %s\n\n", name)
	if p != nil {
		fmt.Fprintf(&b, "Current tier: %s, recommended cadence: %s\n\n", p.Tier, qbrCadence[p.Tier])
	}
	b.WriteString(`Recommended Schedule:
- Gold partners: Quarterly
- Silver partners: Bi-annually
- Bronze partners: Annually

Topics:
1. Partnership performance review
2. Deal pipeline update
3. Marketing campaign results
4. Technical integration status
5. Goals for next period`)
	return b.String()
}

func commission(name string, p *models.Partner) string {
	var total int64
	if p != nil {
		total = p.TotalDealValue()
		name = p.Name
	}
	tier, pct, amount := CommissionFor(total)
	return fmt.Sprintf(`## Commission Calculator for %s

Total Deal Value: %s
Partner Tier: %s
Commission Rate: %d%%

Total Commission: %s

Tier Thresholds:
- Bronze: < $100K - 10%%
- Silver: $100K-$500K - 15%%
- Gold: >= $500K - 20%%`, name, Dollars(total), tier, pct, Dollars(amount))
}

func roi(name string) string {
	if name == "" {
		name = "your program"
	}
	return fmt.Sprintf(`## Program ROI for %s

Metrics to track:
- Deal Pipeline
- Closed Revenue
- Partner-sourced Leads
- Co-marketing Campaigns

Plug your own numbers into these metrics to size program ROI.`, name)
}
