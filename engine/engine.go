// ABOUTME: Dispatch engine that turns one chat message into exactly one side effect
// ABOUTME: Resolves partners from memory, mutates the ledger, writes documents and answers skills

package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/harperreed/partneros/db"
	"github.com/harperreed/partneros/docgen"
	"github.com/harperreed/partneros/ledger"
	"github.com/harperreed/partneros/llm"
	"github.com/harperreed/partneros/memory"
	"github.com/harperreed/partneros/models"
	"github.com/harperreed/partneros/router"
	"github.com/harperreed/partneros/skills"
	"go.uber.org/zap"
)

const (
	// Apology is the only text a caller sees when dispatch fails internally.
	Apology = "I encountered an error processing your request. Please try again or rephrase your message."

	// ClarifyPartner asks for the partner an action or skill refers to.
	ClarifyPartner = "What's the partner company name?"

	historyWindow = 10
)

var errPanic = errors.New("dispatch panicked")

type Request struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
	LastPartner    string `json:"last_partner,omitempty"`
	APIKey         string `json:"apiKey,omitempty"`
	Model          string `json:"model,omitempty"`
}

type DocumentRef struct {
	Type    string `json:"type"`
	Partner string `json:"partner"`
	Path    string `json:"path"`
}

type DealRef struct {
	ID      string `json:"id"`
	Partner string `json:"partner"`
	Value   int64  `json:"value"`
	Account string `json:"account"`
	Status  string `json:"status"`
}

type Response struct {
	Response       string       `json:"response"`
	Agent          string       `json:"agent"`
	ConversationID string       `json:"conversation_id,omitempty"`
	Skill          string       `json:"skill,omitempty"`
	Partner        string       `json:"partner,omitempty"`
	Document       *DocumentRef `json:"document,omitempty"`
	Documents      []string     `json:"documents,omitempty"`
	Deal           *DealRef     `json:"deal,omitempty"`
	NeedsInput     bool         `json:"needs_input,omitempty"`
	MissingField   string       `json:"missing_field,omitempty"`
	RateLimited    bool         `json:"rate_limited,omitempty"`
	Error          string       `json:"error,omitempty"`
}

// Chatter is the language model call used for messages with no structured intent.
type Chatter interface {
	Chat(ctx context.Context, req llm.ChatRequest) (string, error)
}

// Recorder receives one audit entry per dispatch.
type Recorder interface {
	Record(ctx context.Context, d *db.Dispatch) error
}

type Options struct {
	Ledger  *ledger.Ledger
	Memory  *memory.Memory
	Docs    *docgen.Engine
	Router  *router.Router
	Chatter Chatter
	Audit   Recorder
	// APIKey and Model are used when a request does not carry its own.
	APIKey string
	Model  string
	Logger *zap.Logger
}

// Engine is shared by every front end. Dispatches for one conversation id run one at a time.
type Engine struct {
	ledger  *ledger.Ledger
	memory  *memory.Memory
	docs    *docgen.Engine
	router  *router.Router
	chatter Chatter
	audit   Recorder
	apiKey  string
	model   string
	logger  *zap.Logger
	locks   *keyedMutex
}

func New(opts Options) (*Engine, error) {
	if opts.Ledger == nil || opts.Memory == nil || opts.Docs == nil {
		return nil, errors.New("engine requires a ledger, memory and document engine")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Router == nil {
		opts.Router = router.New(nil, opts.Logger)
	}
	return &Engine{
		ledger:  opts.Ledger,
		memory:  opts.Memory,
		docs:    opts.Docs,
		router:  opts.Router,
		chatter: opts.Chatter,
		audit:   opts.Audit,
		apiKey:  opts.APIKey,
		model:   opts.Model,
		logger:  opts.Logger,
		locks:   newKeyedMutex(),
	}, nil
}

func (e *Engine) Ledger() *ledger.Ledger { return e.ledger }
func (e *Engine) Memory() *memory.Memory { return e.memory }
func (e *Engine) Docs() *docgen.Engine   { return e.docs }

// SetAPIKey replaces the default model key. Call it before the first Dispatch.
func (e *Engine) SetAPIKey(key string) { e.apiKey = key }

// outcome is what a handler produced besides the response itself.
type outcome struct {
	intent router.Intent
	kind   string
}

// Dispatch handles one message. It never returns nil and never panics.
func (e *Engine) Dispatch(ctx context.Context, req Request) *Response {
	convID := req.ConversationID
	if convID == "" {
		convID = memory.DefaultConversationID
	}
	if err := memory.ValidateID(convID); err != nil {
		return &Response{Response: "Invalid conversation id.", Agent: skills.AgentSystem, Error: err.Error()}
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return &Response{Response: "Please enter a message.", Agent: skills.AgentSystem, ConversationID: convID}
	}

	unlock := e.locks.Lock(convID)
	defer unlock()

	log := e.logger.With(zap.String("conversation", convID))
	if err := e.memory.AddMessage(ctx, convID, models.RoleUser, message, "", nil); err != nil {
		log.Warn("failed to store user message", zap.Error(err))
	}

	lastPartner := strings.TrimSpace(req.LastPartner)
	if lastPartner == "" {
		lastPartner = e.memory.Context(convID, models.ContextCurrentPartner, "")
	}

	entry := &db.Dispatch{ConversationID: convID, Message: message}
	resp, out, err := e.safeHandle(ctx, convID, message, lastPartner, req)
	if err != nil {
		log.Error("dispatch failed", zap.String("message", message), zap.Error(err))
		resp = &Response{Response: Apology, Agent: skills.AgentSystem}
		out.kind = db.OutcomeError
		entry.Error = err.Error()
	}
	resp.ConversationID = convID

	e.finish(ctx, log, convID, resp, out, entry)
	return resp
}

func (e *Engine) safeHandle(ctx context.Context, convID, message, lastPartner string, req Request) (resp *Response, out outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("recovered from panic", zap.Any("panic", r), zap.Stack("stack"))
			resp, err = nil, fmt.Errorf("%w: %v", errPanic, r)
		}
	}()
	return e.handle(ctx, convID, message, lastPartner, req)
}

func (e *Engine) finish(ctx context.Context, log *zap.Logger, convID string, resp *Response, out outcome, entry *db.Dispatch) {
	var skillsUsed []string
	if resp.Skill != "" {
		skillsUsed = []string{resp.Skill}
	}
	msg := models.Message{
		Role:       models.RoleAssistant,
		Content:    resp.Response,
		Agent:      resp.Agent,
		SkillsUsed: skillsUsed,
		Intent:     router.Summarize(out.intent),
	}
	if err := e.memory.Append(ctx, convID, msg); err != nil {
		log.Warn("failed to store response", zap.Error(err))
	}
	if resp.Partner != "" {
		if err := e.memory.SetContext(ctx, convID, models.ContextCurrentPartner, resp.Partner); err != nil {
			log.Warn("failed to store current partner", zap.Error(err))
		}
	}

	if e.audit == nil {
		return
	}
	if out.intent != nil {
		entry.IntentKind = string(out.intent.Kind())
		entry.IntentName = out.intent.Name()
	}
	entry.Partner = resp.Partner
	entry.Agent = resp.Agent
	entry.Skill = resp.Skill
	entry.Outcome = out.kind
	if entry.Error == "" {
		entry.Error = resp.Error
	}
	if err := e.audit.Record(ctx, entry); err != nil {
		log.Warn("failed to record dispatch", zap.Error(err))
	}
}

func (e *Engine) handle(ctx context.Context, convID, message, lastPartner string, req Request) (*Response, outcome, error) {
	routed, err := e.router.Route(ctx, message, router.RouteContext{KnownPartners: e.ledger.Names()})
	if err != nil {
		return nil, outcome{}, err
	}

	primary := routed.Primary()
	if primary == nil {
		chat := routed.Chat()
		resp := e.chat(ctx, convID, message, lastPartner, chat, req)
		return resp, outcome{intent: chat, kind: db.OutcomeChat}, nil
	}

	out := outcome{intent: primary}
	partner := primary.Partner()
	if router.NeedsPartner(primary) {
		if lastPartner == "" {
			out.kind = db.OutcomeClarification
			return &Response{
				Response:     ClarifyPartner,
				Agent:        skills.AgentSystem,
				NeedsInput:   true,
				MissingField: router.FieldPartnerName,
			}, out, nil
		}
		partner = lastPartner
	}

	var resp *Response
	switch in := primary.(type) {
	case router.SkillIntent:
		resp, err = e.skill(in, partner)
		out.kind = db.OutcomeSkill
	case router.ActionIntent:
		resp, out.kind, err = e.action(in, partner)
	case router.DocumentIntent:
		resp, out.kind, err = e.document(in, partner)
	default:
		err = fmt.Errorf("unhandled intent kind %q", primary.Kind())
	}
	if err != nil {
		return nil, out, err
	}
	return resp, out, nil
}

// chat answers messages with no structured intent through the language model or the scripted fallback.
func (e *Engine) chat(ctx context.Context, convID, message, lastPartner string, chat router.Intent, req Request) *Response {
	partner := lastPartner
	if chat != nil && chat.Partner() != "" {
		partner = chat.Partner()
	}
	resp := &Response{Partner: partner}

	key := req.APIKey
	if key == "" {
		key = e.apiKey
	}
	if e.chatter == nil || llm.ValidateKey(key) != nil {
		fb := llm.Fallback(message, partner)
		resp.Response, resp.Agent = fb.Text, fb.Agent
		return resp
	}

	model := req.Model
	if model == "" {
		model = e.model
	}
	history := e.memory.History(convID, historyWindow+1)
	if n := len(history); n > 0 {
		// The current message is sent as the user turn.
		history = history[:n-1]
	}

	text, err := e.chatter.Chat(ctx, llm.ChatRequest{
		System:  llm.BuildSystemPrompt(partner, history),
		User:    message,
		History: history,
		APIKey:  key,
		Model:   model,
	})
	if err != nil {
		e.logger.Warn("model call failed, using scripted reply", zap.Error(err))
		fb := llm.Fallback(message, partner)
		resp.Response, resp.Agent = fb.Text, fb.Agent
		resp.Error = fmt.Sprintf("AI service unavailable: %v", err)
		return resp
	}
	resp.Response, resp.Agent = text, llm.AgentSwarm
	return resp
}

func (e *Engine) skill(in router.SkillIntent, partner string) (*Response, error) {
	var p *models.Partner
	if partner != "" {
		var err error
		if p, err = e.ledger.Get(partner); err != nil {
			return nil, err
		}
		if p != nil {
			partner = p.Name
		}
	}
	res := skills.Handle(in.Skill, partner, p)
	resp := &Response{
		Response: res.Text,
		Agent:    res.Agent,
		Skill:    string(res.Skill),
	}
	// Only a partner on the ledger becomes the conversation's current partner.
	if p != nil {
		resp.Partner = p.Name
	}
	return resp, nil
}

// upsert returns the partner named name, creating it with tier (Bronze when empty).
func (e *Engine) upsert(name string, tier models.Tier) (*models.Partner, error) {
	p, err := e.ledger.Add(name, string(tier), "", "")
	if err != nil {
		return nil, fmt.Errorf("failed to resolve partner %q: %w", name, err)
	}
	return p, nil
}

func (e *Engine) action(in router.ActionIntent, partner string) (*Response, string, error) {
	p, err := e.upsert(partner, in.Tier)
	if err != nil {
		return nil, "", err
	}

	switch in.Action {
	case models.ActionDeal:
		resp, err := e.registerDeal(p, in.Deal)
		return resp, db.OutcomeDeal, err
	case models.ActionOnboard:
		resp, err := e.onboard(p)
		return resp, db.OutcomeOnboarded, err
	}
	return e.createDocument(p, models.DocNDA)
}

func (e *Engine) document(in router.DocumentIntent, partner string) (*Response, string, error) {
	p, err := e.upsert(partner, in.Tier)
	if err != nil {
		return nil, "", err
	}
	return e.createDocument(p, in.DocType)
}

func (e *Engine) registerDeal(p *models.Partner, terms *router.DealTerms) (*Response, error) {
	var amount int64
	var account string
	if terms != nil {
		amount, account = terms.Amount, terms.Account
	}
	deal, err := e.ledger.RegisterDeal(p.Name, amount, account)
	if err != nil {
		return nil, err
	}
	if deal == nil {
		return nil, fmt.Errorf("partner %q was removed before the deal was registered", p.Name)
	}
	return &Response{
		Response: fmt.Sprintf("Registered deal for **%s**!\n\nDeal Value: **%s**\nAccount: %s\nStatus: %s",
			p.Name, skills.Dollars(deal.Value), deal.Account, deal.Status),
		Agent:   skills.AgentEngine,
		Partner: p.Name,
		Deal: &DealRef{
			ID:      deal.ID,
			Partner: p.Name,
			Value:   deal.Value,
			Account: deal.Account,
			Status:  deal.Status,
		},
	}, nil
}

func documentFields(p *models.Partner) map[string]string {
	return map[string]string{
		"partner_tier": string(p.Tier),
		"Partner Tier": string(p.Tier),
	}
}

// generate writes one templated document and records it on the partner. A nil result means no template.
func (e *Engine) generate(p *models.Partner, docType models.DocType) (*docgen.Result, error) {
	res, err := e.docs.Create(docType, p.Name, documentFields(p))
	if err != nil || res == nil {
		return nil, err
	}
	_, err = e.ledger.AddDocument(p.Name, ledger.DocumentInput{
		Type:     docType,
		Template: res.Template,
		Path:     res.Path,
		Fields:   res.Fields,
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (e *Engine) createDocument(p *models.Partner, docType models.DocType) (*Response, string, error) {
	res, err := e.generate(p, docType)
	if err != nil {
		return nil, "", err
	}
	if res == nil {
		return &Response{
			Response: fmt.Sprintf("I couldn't generate a %s for **%s**. No template is available for that document type.", docType.Label(), p.Name),
			Agent:    skills.AgentEngine,
			Partner:  p.Name,
		}, db.OutcomeNotGenerated, nil
	}
	return &Response{
		Response: fmt.Sprintf("Created **%s** for **%s**!\n\nSaved to: `%s`", docType.Label(), p.Name, res.RelativePath),
		Agent:    skills.AgentEngine,
		Partner:  p.Name,
		Document: &DocumentRef{Type: string(docType), Partner: p.Name, Path: res.RelativePath},
	}, db.OutcomeDocument, nil
}

var onboardingDocs = []models.DocType{models.DocNDA, models.DocMSA, models.DocDPA}

func (e *Engine) onboard(p *models.Partner) (*Response, error) {
	created := make([]string, 0, len(onboardingDocs)+1)
	for _, docType := range onboardingDocs {
		res, err := e.generate(p, docType)
		if err != nil {
			return nil, err
		}
		if res == nil {
			e.logger.Warn("onboarding document skipped, no template",
				zap.String("partner", p.Name), zap.String("type", string(docType)))
			continue
		}
		created = append(created, docType.Label())
	}

	checklist, err := e.docs.WriteChecklist(p.Name)
	if err != nil {
		return nil, err
	}
	_, err = e.ledger.AddDocument(p.Name, ledger.DocumentInput{
		Type:     models.DocChecklist,
		Template: docgen.ChecklistTemplate,
		Path:     checklist.Path,
		Fields:   map[string]string{"partner_name": p.Name},
	})
	if err != nil {
		return nil, err
	}
	created = append(created, models.DocChecklist.Label())

	var b strings.Builder
	fmt.Fprintf(&b, "## Onboarded **%s**!\n\nCreated:\n", p.Name)
	for _, d := range created {
		fmt.Fprintf(&b, "- %s\n", d)
	}
	b.WriteString("\nPartner is now ready for enablement!")

	return &Response{
		Response:  b.String(),
		Agent:     skills.AgentArchitect,
		Partner:   p.Name,
		Documents: created,
	}, nil
}

// Onboard runs the onboarding action for partner outside any conversation.
func (e *Engine) Onboard(partner string, tier models.Tier) (*Response, error) {
	p, err := e.upsert(partner, tier)
	if err != nil {
		return nil, err
	}
	return e.onboard(p)
}

// CreateDocument writes one templated document for partner outside any conversation.
func (e *Engine) CreateDocument(partner string, docType models.DocType) (*Response, error) {
	if _, ok := docgen.TemplatePath(docType); !ok {
		return nil, fmt.Errorf("unknown document type %q", docType)
	}
	p, err := e.upsert(partner, "")
	if err != nil {
		return nil, err
	}
	resp, _, err := e.createDocument(p, docType)
	return resp, err
}

// RegisterDeal records a deal for partner outside any conversation.
func (e *Engine) RegisterDeal(partner string, amount int64, account string) (*Response, error) {
	p, err := e.upsert(partner, "")
	if err != nil {
		return nil, err
	}
	return e.registerDeal(p, &router.DealTerms{Amount: amount, Account: account})
}
