// ABOUTME: Tests for the dashboard and partner graph
// ABOUTME: Builds a small ledger and checks the rendered output

package viz

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/harperreed/partneros/ledger"
	"github.com/harperreed/partneros/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedLedger(t *testing.T) *ledger.Ledger {
	t.Helper()
	l, err := ledger.Open(filepath.Join(t.TempDir(), "partners.json"), nil)
	require.NoError(t, err)

	_, err = l.Add("Acme", "Gold", "", "")
	require.NoError(t, err)
	_, err = l.Add("Globex", "Silver", "", "")
	require.NoError(t, err)
	_, err = l.Add("Initech", "", "", "")
	require.NoError(t, err)

	_, err = l.RegisterDeal("Acme", 250_000, "Big Account")
	require.NoError(t, err)
	_, err = l.RegisterDeal("Acme", 50_000, "")
	require.NoError(t, err)
	_, err = l.RegisterDeal("Globex", 10_000, "")
	require.NoError(t, err)
	_, err = l.AddDocument("Acme", ledger.DocumentInput{Type: models.DocNDA, Template: "legal/01-nda.md", Path: "/tmp/nda.md"})
	require.NoError(t, err)
	return l
}

func TestDashboardStats(t *testing.T) {
	stats, err := GenerateDashboardStats(seedLedger(t))
	require.NoError(t, err)

	assert.Equal(t, 3, stats.TotalPartners)
	assert.Equal(t, 3, stats.TotalDeals)
	assert.Equal(t, int64(310_000), stats.TotalValue)
	assert.Equal(t, 1, stats.TotalDocuments)
	assert.Equal(t, 1, stats.Tiers[models.TierGold].Partners)
	assert.Equal(t, int64(300_000), stats.Tiers[models.TierGold].Value)

	require.Len(t, stats.TopPartners, 2)
	assert.Equal(t, "Acme", stats.TopPartners[0].Name)
	assert.Equal(t, []string{"Initech"}, stats.NeedsAttention)

	out := RenderDashboard(stats)
	assert.Contains(t, out, "PARTNER PROGRAM DASHBOARD")
	assert.Contains(t, out, "$310,000")
	assert.Contains(t, out, "Initech")
}

func TestPartnerGraph(t *testing.T) {
	g := NewGraphGenerator(seedLedger(t))

	dot, err := g.PartnerGraph(context.Background(), "acme")
	require.NoError(t, err)
	assert.Contains(t, dot, "Acme")
	assert.Contains(t, dot, "Big Account")
	assert.NotContains(t, dot, "Globex")

	dot, err = g.PartnerGraph(context.Background(), "")
	require.NoError(t, err)
	assert.Contains(t, dot, "Globex")

	_, err = g.PartnerGraph(context.Background(), "Nobody")
	assert.Error(t, err)
}
