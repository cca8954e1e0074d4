// ABOUTME: Tests for skill handlers
// ABOUTME: Checks the commission table, agent ownership and not-found handling

package skills

import (
	"testing"
	"time"

	"github.com/harperreed/partneros/models"
	"github.com/stretchr/testify/assert"
)

func TestCommissionFor(t *testing.T) {
	tests := []struct {
		total      int64
		tier       models.Tier
		pct        int64
		commission int64
	}{
		{0, models.TierBronze, 10, 0},
		{99_999, models.TierBronze, 10, 9_999},
		{100_000, models.TierSilver, 15, 15_000},
		{250_000, models.TierSilver, 15, 37_500},
		{499_999, models.TierSilver, 15, 74_999},
		{500_000, models.TierGold, 20, 100_000},
		{1_000_000, models.TierGold, 20, 200_000},
	}
	for _, tt := range tests {
		tier, pct, amount := CommissionFor(tt.total)
		assert.Equal(t, tt.tier, tier, tt.total)
		assert.Equal(t, tt.pct, pct, tt.total)
		assert.Equal(t, tt.commission, amount, tt.total)
	}
}

func TestCommissionSkillSumsDeals(t *testing.T) {
	p := &models.Partner{
		Name: "Acme",
		Tier: models.TierBronze,
		Deals: []models.Deal{
			{ID: "deal-1", Value: 100_000},
			{ID: "deal-2", Value: 150_000},
		},
	}

	res := Handle(models.SkillCommission, "acme", p)
	assert.Equal(t, AgentEngine, res.Agent)
	assert.Contains(t, res.Text, "Commission Calculator for Acme")
	assert.Contains(t, res.Text, "Total Deal Value: $250,000")
	assert.Contains(t, res.Text, "Partner Tier: Silver")
	assert.Contains(t, res.Text, "Commission Rate: 15%")
	assert.Contains(t, res.Text, "Total Commission: $37,500")
}

func TestOwners(t *testing.T) {
	want := map[models.Skill]string{
		models.SkillStatus:     "architect",
		models.SkillEmail:      "spark",
		models.SkillQBR:        "architect",
		models.SkillCommission: "engine",
		models.SkillROI:        "champion",
	}
	for skill, agent := range want {
		got, ok := Owner(skill)
		assert.True(t, ok)
		assert.Equal(t, agent, got, skill)
		assert.Equal(t, agent, Handle(skill, "Acme", nil).Agent, skill)
	}
}

func TestStatus(t *testing.T) {
	res := Handle(models.SkillStatus, "Ghost", nil)
	assert.Equal(t, "Partner 'Ghost' not found.", res.Text)

	p := &models.Partner{
		Name:      "Acme",
		Tier:      models.TierGold,
		Status:    models.StatusOnboarding,
		CreatedAt: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
		Deals:     []models.Deal{{Value: 1_500}},
		Documents: []models.Document{{Type: models.DocNDA, CreatedAt: time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC)}},
	}
	res = Handle(models.SkillStatus, "acme", p)
	assert.Contains(t, res.Text, "## Partner Status: Acme")
	assert.Contains(t, res.Text, "Tier: Gold")
	assert.Contains(t, res.Text, "Created: 2026-01-02")
	assert.Contains(t, res.Text, "Total Deal Value: $1,500")
	assert.Contains(t, res.Text, "Latest Document: NDA (2026-01-03)")
}

func TestEmailUsesTier(t *testing.T) {
	res := Handle(models.SkillEmail, "Globex", &models.Partner{Name: "Globex", Tier: models.TierSilver})
	assert.Contains(t, res.Text, "Outreach Email for Globex")
	assert.Contains(t, res.Text, "Silver tier partnership")

	res = Handle(models.SkillEmail, "Unknown", nil)
	assert.Contains(t, res.Text, "Bronze tier partnership")
}

func TestQBRAndROI(t *testing.T) {
	res := Handle(models.SkillQBR, "Acme", &models.Partner{Name: "Acme", Tier: models.TierGold})
	assert.Contains(t, res.Text, "recommended cadence: Quarterly")

	res = Handle(models.SkillROI, "", nil)
	assert.Contains(t, res.Text, "Program ROI for your program")
}

func TestUnknownSkill(t *testing.T) {
	res := Handle(models.Skill("teleport"), "Acme", nil)
	assert.Equal(t, AgentSystem, res.Agent)
	assert.Equal(t, "Skill 'teleport' not recognized.", res.Text)
}
