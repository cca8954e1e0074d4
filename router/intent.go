// ABOUTME: Typed intent variants produced by the router
// ABOUTME: DocumentIntent, ActionIntent, SkillIntent and ChatIntent share a common Base

package router

import "github.com/harperreed/partneros/models"

// Kind is the intent family.
type Kind string

const (
	KindDocument Kind = "document"
	KindAction   Kind = "action"
	KindSkill    Kind = "skill"
	KindQuestion Kind = "question"
)

// FieldPartnerName is reported in Missing when no partner could be extracted.
const FieldPartnerName = "partner_name"

// Intent is one classified reading of a message.
type Intent interface {
	Kind() Kind
	Name() string
	Partner() string
	Confidence() float64
	Missing() []string
}

// Base carries the fields every variant has.
type Base struct {
	IntentName    string
	PartnerName   string
	Score         float64
	MissingFields []string
}

func (b Base) Name() string        { return b.IntentName }
func (b Base) Partner() string     { return b.PartnerName }
func (b Base) Confidence() float64 { return b.Score }
func (b Base) Missing() []string   { return b.MissingFields }

// NeedsPartner reports whether the partner name is still missing.
func NeedsPartner(in Intent) bool {
	for _, f := range in.Missing() {
		if f == FieldPartnerName {
			return true
		}
	}
	return false
}

type DocumentIntent struct {
	Base
	DocType models.DocType
	Tier    models.Tier
}

func (DocumentIntent) Kind() Kind { return KindDocument }

// DealTerms is only set on deal actions.
type DealTerms struct {
	Amount     int64
	AmountText string
	Account    string
}

type ActionIntent struct {
	Base
	Action models.Action
	Tier   models.Tier
	Deal   *DealTerms
}

func (ActionIntent) Kind() Kind { return KindAction }

type SkillIntent struct {
	Base
	Skill models.Skill
}

func (SkillIntent) Kind() Kind { return KindSkill }

type ChatIntent struct {
	Base
}

func (ChatIntent) Kind() Kind { return KindQuestion }

// Summarize reduces an intent to what is stored with a conversation message.
func Summarize(in Intent) *models.IntentSummary {
	if in == nil {
		return nil
	}
	return &models.IntentSummary{
		Kind:       string(in.Kind()),
		Name:       in.Name(),
		Partner:    in.Partner(),
		Confidence: in.Confidence(),
	}
}
