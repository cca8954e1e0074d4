// ABOUTME: Data models for the partner ledger and conversation memory
// ABOUTME: Defines Partner, Deal, Document, Conversation and Message plus their enumerations
package models

import (
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Tier is a partner program level.
type Tier string

const (
	TierBronze Tier = "Bronze"
	TierSilver Tier = "Silver"
	TierGold   Tier = "Gold"
)

// Tiers lists every tier from lowest to highest.
var Tiers = []Tier{TierBronze, TierSilver, TierGold}

// ParseTier normalizes a tier name. The empty string maps to Bronze.
func ParseTier(s string) (Tier, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "bronze":
		return TierBronze, true
	case "silver":
		return TierSilver, true
	case "gold":
		return TierGold, true
	}
	return "", false
}

// Partner status values.
const (
	StatusOnboarding = "Onboarding"
	StatusActive     = "Active"
)

// Deal status values.
const (
	DealRegistered = "registered"
)

// Document status values.
const (
	DocumentDraft = "draft"
)

// DocType identifies a generated document.
type DocType string

const (
	DocNDA       DocType = "nda"
	DocMSA       DocType = "msa"
	DocDPA       DocType = "dpa"
	DocChecklist DocType = "checklist"
)

// Label is the upper-case form used in responses ("NDA", "CHECKLIST").
func (d DocType) Label() string {
	return strings.ToUpper(string(d))
}

// Action names consumed by the dispatch engine.
type Action string

const (
	ActionOnboard  Action = "onboard"
	ActionRecruit  Action = "recruit"
	ActionCampaign Action = "campaign"
	ActionDeal     Action = "deal"
)

// Skill names. Skills are read-only handlers.
type Skill string

const (
	SkillStatus     Skill = "status"
	SkillEmail      Skill = "email"
	SkillQBR        Skill = "qbr"
	SkillCommission Skill = "commission"
	SkillROI        Skill = "roi"
)

type Partner struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Tier      Tier       `json:"tier"`
	Contact   string     `json:"contact,omitempty"`
	Email     string     `json:"email,omitempty"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	Deals     []Deal     `json:"deals"`
	Documents []Document `json:"documents"`
	Notes     []string   `json:"notes"`
}

// TotalDealValue sums the value of every deal registered for the partner.
func (p *Partner) TotalDealValue() int64 {
	var total int64
	for _, d := range p.Deals {
		total += d.Value
	}
	return total
}

// Clone returns a deep copy so callers never share slices with the ledger.
func (p *Partner) Clone() *Partner {
	if p == nil {
		return nil
	}
	c := *p
	c.Deals = slices.Clone(p.Deals)
	c.Documents = slices.Clone(p.Documents)
	for i := range c.Documents {
		c.Documents[i].Fields = maps.Clone(c.Documents[i].Fields)
	}
	c.Notes = slices.Clone(p.Notes)
	return &c
}

type Deal struct {
	ID           string    `json:"id"`
	Value        int64     `json:"value"` // whole dollars
	Account      string    `json:"account"`
	Status       string    `json:"status"`
	RegisteredAt time.Time `json:"registered_at"`
}

type Document struct {
	ID        string            `json:"id"`
	Type      DocType           `json:"type"`
	Template  string            `json:"template"`
	Path      string            `json:"path"`
	Status    string            `json:"status"`
	Fields    map[string]string `json:"fields,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// IntentSummary is the slice of a classified intent kept with a message.
type IntentSummary struct {
	Kind       string  `json:"kind"`
	Name       string  `json:"name"`
	Partner    string  `json:"partner,omitempty"`
	Confidence float64 `json:"confidence"`
}

type Message struct {
	Role       string         `json:"role"`
	Content    string         `json:"content"`
	Timestamp  time.Time      `json:"timestamp"`
	Agent      string         `json:"agent"`
	SkillsUsed []string       `json:"skills_used"`
	Intent     *IntentSummary `json:"intent,omitempty"`
}

// ContextCurrentPartner is the conversation context key for the last partner mentioned.
const ContextCurrentPartner = "current_partner"

type Conversation struct {
	ID        string            `json:"id"`
	CreatedAt time.Time         `json:"created_at"`
	Messages  []Message         `json:"messages"`
	Context   map[string]string `json:"context"`
}

// Clone returns a deep copy of the conversation.
func (c *Conversation) Clone() *Conversation {
	if c == nil {
		return nil
	}
	out := *c
	out.Messages = slices.Clone(c.Messages)
	for i, m := range out.Messages {
		out.Messages[i].SkillsUsed = slices.Clone(m.SkillsUsed)
		if m.Intent != nil {
			in := *m.Intent
			out.Messages[i].Intent = &in
		}
	}
	out.Context = maps.Clone(c.Context)
	if out.Context == nil {
		out.Context = map[string]string{}
	}
	return &out
}
