// ABOUTME: GraphViz rendering of the partner ledger
// ABOUTME: Partners link to their deals and generated documents
package viz

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
	"github.com/harperreed/partneros/ledger"
	"github.com/harperreed/partneros/models"
	"github.com/harperreed/partneros/skills"
)

var tierColors = map[models.Tier]string{
	models.TierGold:   "gold",
	models.TierSilver: "lightgray",
	models.TierBronze: "burlywood",
}

type GraphGenerator struct {
	ledger *ledger.Ledger
}

func NewGraphGenerator(l *ledger.Ledger) *GraphGenerator {
	return &GraphGenerator{ledger: l}
}

// PartnerGraph renders one partner, or the whole ledger when name is empty, as DOT source.
func (g *GraphGenerator) PartnerGraph(ctx context.Context, name string) (string, error) {
	var partners []models.Partner
	if strings.TrimSpace(name) == "" {
		all, err := g.ledger.List()
		if err != nil {
			return "", fmt.Errorf("failed to fetch partners: %w", err)
		}
		partners = all
	} else {
		p, err := g.ledger.Get(name)
		if err != nil {
			return "", fmt.Errorf("failed to fetch partner: %w", err)
		}
		if p == nil {
			return "", fmt.Errorf("partner %q not found", name)
		}
		partners = []models.Partner{*p}
	}

	gv, err := graphviz.New(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create graphviz: %w", err)
	}
	defer gv.Close()

	graph, err := gv.Graph()
	if err != nil {
		return "", fmt.Errorf("failed to create graph: %w", err)
	}
	defer graph.Close()

	graph.SetLabel("Partner Program")
	graph.SetRankDir(cgraph.LRRank)

	for i, p := range partners {
		node, err := graph.CreateNodeByName(fmt.Sprintf("partner_%d", i))
		if err != nil {
			return "", fmt.Errorf("failed to create partner node: %w", err)
		}
		node.SetLabel(fmt.Sprintf("%s\n(%s, %s)", p.Name, p.Tier, p.Status))
		node.SetShape("box")
		node.SetStyle("filled")
		node.SetFillColor(tierColors[p.Tier])

		for _, d := range p.Deals {
			dealNode, err := graph.CreateNodeByName(fmt.Sprintf("partner_%d_%s", i, d.ID))
			if err != nil {
				return "", fmt.Errorf("failed to create deal node: %w", err)
			}
			dealNode.SetLabel(fmt.Sprintf("%s\n%s\n(%s)", d.Account, skills.Dollars(d.Value), d.Status))
			dealNode.SetShape("diamond")
			dealNode.SetStyle("filled")
			dealNode.SetFillColor("lightyellow")

			edge, err := graph.CreateEdgeByName("deal", node, dealNode)
			if err != nil {
				return "", fmt.Errorf("failed to create edge: %w", err)
			}
			edge.SetLabel("deal")
		}

		for _, d := range p.Documents {
			docNode, err := graph.CreateNodeByName(fmt.Sprintf("partner_%d_%s", i, d.ID))
			if err != nil {
				return "", fmt.Errorf("failed to create document node: %w", err)
			}
			docNode.SetLabel(fmt.Sprintf("%s\n%s", d.Type.Label(), d.CreatedAt.Format("2006-01-02")))
			docNode.SetShape("note")

			edge, err := graph.CreateEdgeByName("document", node, docNode)
			if err != nil {
				return "", fmt.Errorf("failed to create edge: %w", err)
			}
			edge.SetStyle("dashed")
		}
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, graphviz.XDOT, &buf); err != nil {
		return "", fmt.Errorf("failed to render graph: %w", err)
	}
	return buf.String(), nil
}
