// ABOUTME: Intent router that turns a message into ranked typed intents
// ABOUTME: Wraps a pluggable Classifier, with a model-backed classifier that falls back to keywords

package router

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/harperreed/partneros/models"
	"go.uber.org/zap"
)

// Classifier turns text into intents. known lists partner names already in the ledger.
type Classifier interface {
	Classify(ctx context.Context, message string, known []string) ([]Intent, error)
}

// RouteContext is what the router may know beyond the message itself.
type RouteContext struct {
	KnownPartners []string
}

type Result struct {
	Intents        []Intent
	IsActionable   bool
	SuggestedReply string
}

// Primary picks the intent to dispatch: the first document or action, else the first skill.
// Returns nil when only chat intents were produced.
func (r *Result) Primary() Intent {
	for _, in := range r.Intents {
		if k := in.Kind(); k == KindDocument || k == KindAction {
			return in
		}
	}
	for _, in := range r.Intents {
		if in.Kind() == KindSkill {
			return in
		}
	}
	return nil
}

// Chat returns the first chat intent, if any.
func (r *Result) Chat() Intent {
	for _, in := range r.Intents {
		if in.Kind() == KindQuestion {
			return in
		}
	}
	return nil
}

type Router struct {
	classifier Classifier
	logger     *zap.Logger
}

// New builds a router. A nil classifier means the keyword classifier.
func New(classifier Classifier, logger *zap.Logger) *Router {
	if classifier == nil {
		classifier = KeywordClassifier{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{classifier: classifier, logger: logger}
}

// Route classifies message. A classifier that produces nothing yields a single chat intent.
func (r *Router) Route(ctx context.Context, message string, rc RouteContext) (*Result, error) {
	intents, err := r.classifier.Classify(ctx, message, rc.KnownPartners)
	if err != nil {
		return nil, fmt.Errorf("failed to classify message: %w", err)
	}
	if len(intents) == 0 {
		intents = []Intent{ChatIntent{Base: Base{IntentName: "chat", Score: ChatConfidence}}}
	}

	res := &Result{Intents: intents}
	for _, in := range intents {
		if k := in.Kind(); k == KindDocument || k == KindAction {
			res.IsActionable = true
			break
		}
	}
	res.SuggestedReply = suggestReply(intents[0])

	r.logger.Debug("message routed",
		zap.String("kind", string(intents[0].Kind())),
		zap.String("intent", intents[0].Name()),
		zap.String("partner", intents[0].Partner()),
		zap.Bool("actionable", res.IsActionable))
	return res, nil
}

func suggestReply(in Intent) string {
	partner := in.Partner()
	if partner == "" {
		partner = "your partner"
	}
	switch v := in.(type) {
	case DocumentIntent:
		return fmt.Sprintf("I'll create a %s for %s.", v.DocType.Label(), partner)
	case ActionIntent:
		return fmt.Sprintf("I'll help you %s for %s.", v.Action, partner)
	}
	return ""
}

// Completer is the slice of a language model client the router needs.
type Completer interface {
	CompleteWithSystem(ctx context.Context, system, user string) (string, error)
}

const classifyPrompt = `You classify partner-management requests.
Reply with JSON only: {"intents":[{"type":"document|action|skill|question","name":"...","partner_name":"...","tier":"","amount":0,"confidence":0.0}]}
Document names: nda, msa, dpa. Action names: onboard, recruit, campaign, deal.
Skill names: status, email, qbr, commission, roi. Use type "question" for anything else.
Known partners: %s`

type llmIntent struct {
	Type        string  `json:"type"`
	Name        string  `json:"name"`
	PartnerName string  `json:"partner_name"`
	Tier        string  `json:"tier"`
	Amount      int64   `json:"amount"`
	Confidence  float64 `json:"confidence"`
}

// LLMClassifier asks a language model for intents and falls back on any failure.
type LLMClassifier struct {
	client   Completer
	fallback Classifier
	logger   *zap.Logger
}

func NewLLMClassifier(client Completer, fallback Classifier, logger *zap.Logger) *LLMClassifier {
	if fallback == nil {
		fallback = KeywordClassifier{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLMClassifier{client: client, fallback: fallback, logger: logger}
}

func (c *LLMClassifier) Classify(ctx context.Context, message string, known []string) ([]Intent, error) {
	system := fmt.Sprintf(classifyPrompt, strings.Join(known, ", "))
	raw, err := c.client.CompleteWithSystem(ctx, system, message)
	if err != nil {
		c.logger.Warn("model classifier failed, using keywords", zap.Error(err))
		return c.fallback.Classify(ctx, message, known)
	}

	intents, err := parseLLMIntents(raw)
	if err != nil || len(intents) == 0 {
		c.logger.Warn("unusable model classification, using keywords", zap.Error(err))
		return c.fallback.Classify(ctx, message, known)
	}
	return intents, nil
}

func parseLLMIntents(raw string) ([]Intent, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var payload struct {
		Intents []llmIntent `json:"intents"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &payload); err != nil {
		return nil, fmt.Errorf("failed to decode intents: %w", err)
	}

	var out []Intent
	for _, li := range payload.Intents {
		if in := li.toIntent(); in != nil {
			out = append(out, in)
		}
	}
	return out, nil
}

func (li llmIntent) toIntent() Intent {
	name := strings.ToLower(strings.TrimSpace(li.Name))
	kind := Kind(strings.ToLower(strings.TrimSpace(li.Type)))
	score := li.Confidence
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	tier, _ := models.ParseTier(li.Tier)
	if strings.TrimSpace(li.Tier) == "" {
		tier = ""
	}

	base := Base{IntentName: name, PartnerName: strings.TrimSpace(li.PartnerName), Score: score}
	if base.PartnerName == "" && requiresPartner(kind, name) {
		base.MissingFields = []string{FieldPartnerName}
	}

	switch kind {
	case KindDocument:
		if _, ok := templateNames[name]; !ok {
			return nil
		}
		return DocumentIntent{Base: base, DocType: models.DocType(name), Tier: tier}
	case KindAction:
		switch models.Action(name) {
		case models.ActionOnboard, models.ActionRecruit, models.ActionCampaign:
			return ActionIntent{Base: base, Action: models.Action(name), Tier: tier}
		case models.ActionDeal:
			amount := li.Amount
			if amount < 0 {
				amount = 0
			}
			return ActionIntent{Base: base, Action: models.ActionDeal, Tier: tier,
				Deal: &DealTerms{Amount: amount, Account: base.PartnerName}}
		}
		return nil
	case KindSkill:
		switch models.Skill(name) {
		case models.SkillStatus, models.SkillEmail, models.SkillQBR, models.SkillCommission, models.SkillROI:
			return SkillIntent{Base: base, Skill: models.Skill(name)}
		}
		return nil
	case KindQuestion:
		base.IntentName = "chat"
		base.MissingFields = nil
		return ChatIntent{Base: base}
	}
	return nil
}

var templateNames = map[string]struct{}{
	string(models.DocNDA): {},
	string(models.DocMSA): {},
	string(models.DocDPA): {},
}
