// ABOUTME: Tests for the dispatch engine against real ledger, memory and document stores
// ABOUTME: Covers onboarding, deals, clarification, skills, chat fallback and concurrency

package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/harperreed/partneros/db"
	"github.com/harperreed/partneros/docgen"
	"github.com/harperreed/partneros/ledger"
	"github.com/harperreed/partneros/llm"
	"github.com/harperreed/partneros/memory"
	"github.com/harperreed/partneros/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const validKey = "sk-or-test-0123456789abcdef"

type fixture struct {
	engine  *Engine
	ledger  *ledger.Ledger
	memory  *memory.Memory
	docsDir string
	audit   *fakeRecorder
}

type fakeRecorder struct {
	mu      sync.Mutex
	entries []db.Dispatch
}

func (f *fakeRecorder) Record(_ context.Context, d *db.Dispatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, *d)
	return nil
}

func (f *fakeRecorder) last() db.Dispatch {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.entries[len(f.entries)-1]
}

type fakeChatter struct {
	reply string
	err   error
	panic bool

	mu       sync.Mutex
	requests []llm.ChatRequest
}

func (f *fakeChatter) Chat(_ context.Context, req llm.ChatRequest) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.panic {
		panic("model exploded")
	}
	return f.reply, f.err
}

func newFixture(t *testing.T, chatter Chatter, apiKey string) *fixture {
	t.Helper()
	dir := t.TempDir()

	l, err := ledger.Open(filepath.Join(dir, "partners.json"), nil)
	require.NoError(t, err)

	store, err := memory.NewFileStore(filepath.Join(dir, "memory"), nil)
	require.NoError(t, err)
	mem, err := memory.New(context.Background(), store, nil)
	require.NoError(t, err)

	docsDir := filepath.Join(dir, "partners")
	rec := &fakeRecorder{}
	e, err := New(Options{
		Ledger:  l,
		Memory:  mem,
		Docs:    docgen.New(docgen.DefaultTemplates(), docsDir, nil),
		Chatter: chatter,
		Audit:   rec,
		APIKey:  apiKey,
	})
	require.NoError(t, err)

	return &fixture{engine: e, ledger: l, memory: mem, docsDir: docsDir, audit: rec}
}

func (f *fixture) dispatch(t *testing.T, conv, message string) *Response {
	t.Helper()
	resp := f.engine.Dispatch(context.Background(), Request{Message: message, ConversationID: conv})
	require.NotNil(t, resp)
	return resp
}

func TestNewRequiresStores(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestOnboardCreatesFourArtifactsInOrder(t *testing.T) {
	f := newFixture(t, nil, "")

	resp := f.dispatch(t, "c1", "onboard Acme")
	assert.Equal(t, "architect", resp.Agent)
	assert.Equal(t, "Acme", resp.Partner)
	assert.Equal(t, []string{"NDA", "MSA", "DPA", "CHECKLIST"}, resp.Documents)
	assert.Contains(t, resp.Response, "## Onboarded **Acme**!")

	partners, err := f.ledger.List()
	require.NoError(t, err)
	require.Len(t, partners, 1)
	assert.Equal(t, "Acme", partners[0].Name)
	assert.Equal(t, models.TierBronze, partners[0].Tier)
	assert.Equal(t, models.StatusOnboarding, partners[0].Status)

	var types []models.DocType
	for _, d := range partners[0].Documents {
		types = append(types, d.Type)
		_, err := os.Stat(d.Path)
		assert.NoError(t, err, d.Path)
	}
	assert.Equal(t, []models.DocType{models.DocNDA, models.DocMSA, models.DocDPA, models.DocChecklist}, types)

	files, err := os.ReadDir(filepath.Join(f.docsDir, "acme", "documents"))
	require.NoError(t, err)
	assert.Len(t, files, 4)

	assert.Equal(t, "Acme", f.memory.Context("c1", models.ContextCurrentPartner, ""))
	assert.Equal(t, db.OutcomeOnboarded, f.audit.last().Outcome)
}

func TestOnboardingTwiceKeepsOnePartner(t *testing.T) {
	f := newFixture(t, nil, "")

	f.dispatch(t, "c1", "onboard Acme")
	f.dispatch(t, "c1", "onboard acme")

	partners, err := f.ledger.List()
	require.NoError(t, err)
	require.Len(t, partners, 1)
	assert.Len(t, partners[0].Documents, 8)
}

func TestDocumentIntentWritesOneFile(t *testing.T) {
	f := newFixture(t, nil, "")

	resp := f.dispatch(t, "c1", "Create NDA for Acme Corp")
	assert.Equal(t, "engine", resp.Agent)
	require.NotNil(t, resp.Document)
	assert.Equal(t, "nda", resp.Document.Type)
	assert.Contains(t, resp.Document.Path, "acme-corp/documents/")
	assert.Contains(t, resp.Response, "Created **NDA** for **Acme Corp**!")

	p, err := f.ledger.Get("acme corp")
	require.NoError(t, err)
	require.NotNil(t, p)
	require.Len(t, p.Documents, 1)

	content, err := os.ReadFile(p.Documents[0].Path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "Acme Corp")
}

func TestOtherActionsDefaultToNDA(t *testing.T) {
	f := newFixture(t, nil, "")

	resp := f.dispatch(t, "c1", "recruit Initech")
	require.NotNil(t, resp.Document)
	assert.Equal(t, "nda", resp.Document.Type)
}

func TestTierIsTakenFromMessage(t *testing.T) {
	f := newFixture(t, nil, "")

	f.dispatch(t, "c1", "onboard NewPartner as Gold tier")
	p, err := f.ledger.Get("NewPartner")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, models.TierGold, p.Tier)
}

func TestDealRegistration(t *testing.T) {
	f := newFixture(t, nil, "")

	resp := f.dispatch(t, "c1", "register deal for BigCorp, $50k")
	assert.Equal(t, "engine", resp.Agent)
	require.NotNil(t, resp.Deal)
	assert.Equal(t, int64(50000), resp.Deal.Value)
	assert.Equal(t, models.DealRegistered, resp.Deal.Status)
	assert.Contains(t, resp.Response, "Deal Value: **$50,000**")

	p, err := f.ledger.Get("bigcorp")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, int64(50000), p.TotalDealValue())
	assert.Empty(t, p.Documents)
	assert.Equal(t, db.OutcomeDeal, f.audit.last().Outcome)
}

func TestExplicitPartnerBeatsLastPartner(t *testing.T) {
	f := newFixture(t, nil, "")

	f.dispatch(t, "c1", "onboard Alpha")
	resp := f.engine.Dispatch(context.Background(), Request{
		Message:        "register deal for Beta, $100000",
		ConversationID: "c1",
		LastPartner:    "Alpha",
	})
	require.NotNil(t, resp.Deal)
	assert.Equal(t, "Beta", resp.Deal.Partner)

	alpha, err := f.ledger.Get("Alpha")
	require.NoError(t, err)
	assert.Empty(t, alpha.Deals)
	assert.Equal(t, "Beta", f.memory.Context("c1", models.ContextCurrentPartner, ""))
}

func TestMissingPartnerAsksWithoutMutating(t *testing.T) {
	f := newFixture(t, nil, "")

	resp := f.dispatch(t, "c1", "onboard")
	assert.True(t, resp.NeedsInput)
	assert.Equal(t, "partner_name", resp.MissingField)
	assert.Equal(t, "system", resp.Agent)
	assert.Equal(t, ClarifyPartner, resp.Response)

	partners, err := f.ledger.List()
	require.NoError(t, err)
	assert.Empty(t, partners)
	_, err = os.Stat(f.docsDir)
	assert.True(t, os.IsNotExist(err))

	history := f.memory.History("c1", 0)
	require.Len(t, history, 2)
	assert.Equal(t, models.RoleUser, history[0].Role)
	assert.Equal(t, db.OutcomeClarification, f.audit.last().Outcome)
}

func TestMissingPartnerUsesLastPartner(t *testing.T) {
	f := newFixture(t, nil, "")

	resp := f.engine.Dispatch(context.Background(), Request{Message: "onboard", ConversationID: "c1", LastPartner: "Gamma"})
	assert.False(t, resp.NeedsInput)
	assert.Equal(t, "Gamma", resp.Partner)
	assert.Len(t, resp.Documents, 4)

	// The conversation now remembers Gamma.
	resp = f.dispatch(t, "c1", "register deal $10k")
	require.NotNil(t, resp.Deal)
	assert.Equal(t, "Gamma", resp.Deal.Partner)
	assert.Equal(t, int64(10000), resp.Deal.Value)
}

func TestSkillsAreReadOnly(t *testing.T) {
	f := newFixture(t, nil, "")

	resp := f.dispatch(t, "c1", "check status of Ghost")
	assert.Equal(t, "architect", resp.Agent)
	assert.Equal(t, "status", resp.Skill)
	assert.Equal(t, "Partner 'Ghost' not found.", resp.Response)

	partners, err := f.ledger.List()
	require.NoError(t, err)
	assert.Empty(t, partners)

	f.dispatch(t, "c1", "register deal for Acme, $250,000")
	resp = f.dispatch(t, "c1", "calculate commission for Acme")
	assert.Equal(t, "engine", resp.Agent)
	assert.Contains(t, resp.Response, "Total Commission: $37,500")

	history := f.memory.History("c1", 1)
	require.Len(t, history, 1)
	assert.Equal(t, []string{"commission"}, history[0].SkillsUsed)
	require.NotNil(t, history[0].Intent)
	assert.Equal(t, "skill", history[0].Intent.Kind)
}

func TestUnknownSkillPartnerIsNotRemembered(t *testing.T) {
	f := newFixture(t, nil, "")

	resp := f.dispatch(t, "c1", "status update")
	assert.Equal(t, "status", resp.Skill)
	assert.Equal(t, "Partner 'update' not found.", resp.Response)
	assert.Empty(t, resp.Partner)
	assert.Empty(t, f.memory.Context("c1", models.ContextCurrentPartner, ""))

	resp = f.dispatch(t, "c1", "register a deal, $5k")
	assert.True(t, resp.NeedsInput)
	assert.Equal(t, "partner_name", resp.MissingField)
	assert.Nil(t, resp.Deal)

	partners, err := f.ledger.List()
	require.NoError(t, err)
	assert.Empty(t, partners)
}

func TestKnownSkillPartnerIsRemembered(t *testing.T) {
	f := newFixture(t, nil, "")
	_, err := f.ledger.Add("Acme", "", "", "")
	require.NoError(t, err)

	resp := f.dispatch(t, "c1", "check status of acme")
	assert.Equal(t, "Acme", resp.Partner)
	assert.Equal(t, "Acme", f.memory.Context("c1", models.ContextCurrentPartner, ""))
}

func TestROIDoesNotNeedPartner(t *testing.T) {
	f := newFixture(t, nil, "")

	resp := f.dispatch(t, "c1", "show program roi")
	assert.Equal(t, "champion", resp.Agent)
	assert.False(t, resp.NeedsInput)
}

func TestChatWithoutKeyUsesScriptedReply(t *testing.T) {
	chatter := &fakeChatter{reply: "unused"}
	f := newFixture(t, chatter, "")

	resp := f.dispatch(t, "c1", "what should I focus on this week?")
	assert.Equal(t, "Partner Manager", resp.Agent)
	assert.Empty(t, resp.Error)
	assert.Empty(t, chatter.requests)
	assert.Equal(t, db.OutcomeChat, f.audit.last().Outcome)
}

func TestChatUsesModel(t *testing.T) {
	chatter := &fakeChatter{reply: "Focus on Acme."}
	f := newFixture(t, chatter, validKey)

	f.dispatch(t, "c1", "onboard Acme")
	resp := f.dispatch(t, "c1", "what should I focus on this week?")
	assert.Equal(t, "Focus on Acme.", resp.Response)
	assert.Equal(t, llm.AgentSwarm, resp.Agent)

	require.Len(t, chatter.requests, 1)
	req := chatter.requests[0]
	assert.Equal(t, validKey, req.APIKey)
	assert.Equal(t, "what should I focus on this week?", req.User)
	assert.Contains(t, req.System, "CURRENT PARTNER: Acme")
	require.Len(t, req.History, 2)
	assert.Equal(t, "onboard Acme", req.History[0].Content)
}

func TestChatRequestKeyOverridesDefault(t *testing.T) {
	chatter := &fakeChatter{reply: "hi"}
	f := newFixture(t, chatter, "")

	resp := f.engine.Dispatch(context.Background(), Request{Message: "hello", ConversationID: "c1", APIKey: validKey, Model: "other/model"})
	assert.Equal(t, "hi", resp.Response)
	require.Len(t, chatter.requests, 1)
	assert.Equal(t, "other/model", chatter.requests[0].Model)
}

func TestChatFailureFallsBackWithError(t *testing.T) {
	chatter := &fakeChatter{err: errors.New("status 502")}
	f := newFixture(t, chatter, validKey)

	resp := f.dispatch(t, "c1", "how do we qualify inbound leads?")
	assert.Equal(t, "Strategy", resp.Agent)
	assert.Contains(t, resp.Error, "AI service unavailable")
	assert.Contains(t, f.audit.last().Error, "status 502")
}

func TestChatMentionSetsCurrentPartner(t *testing.T) {
	f := newFixture(t, nil, "")

	f.dispatch(t, "c1", "how are things going with Globex")
	assert.Equal(t, "Globex", f.memory.Context("c1", models.ContextCurrentPartner, ""))
}

func TestPanicBecomesApology(t *testing.T) {
	chatter := &fakeChatter{panic: true}
	f := newFixture(t, chatter, validKey)

	resp := f.dispatch(t, "c1", "hello")
	assert.Equal(t, Apology, resp.Response)
	assert.Equal(t, "system", resp.Agent)

	entry := f.audit.last()
	assert.Equal(t, db.OutcomeError, entry.Outcome)
	assert.Contains(t, entry.Error, "model exploded")

	history := f.memory.History("c1", 0)
	require.Len(t, history, 2)
	assert.Equal(t, Apology, history[1].Content)
}

func TestRejectsBadInput(t *testing.T) {
	f := newFixture(t, nil, "")

	resp := f.dispatch(t, "c1", "   ")
	assert.Equal(t, "Please enter a message.", resp.Response)
	assert.Empty(t, f.memory.History("c1", 0))

	resp = f.dispatch(t, "../etc", "onboard Acme")
	assert.NotEmpty(t, resp.Error)
	partners, err := f.ledger.List()
	require.NoError(t, err)
	assert.Empty(t, partners)
}

func TestDefaultConversation(t *testing.T) {
	f := newFixture(t, nil, "")

	resp := f.dispatch(t, "", "onboard Acme")
	assert.Equal(t, memory.DefaultConversationID, resp.ConversationID)
	assert.Len(t, f.memory.History(memory.DefaultConversationID, 0), 2)
}

func TestConcurrentConversationsStayIsolated(t *testing.T) {
	f := newFixture(t, nil, "")

	f.dispatch(t, "alpha-conv", "onboard Alpha")
	f.dispatch(t, "beta-conv", "onboard Beta")

	const perConversation = 10
	var g errgroup.Group
	for i := 0; i < perConversation; i++ {
		for _, conv := range []string{"alpha-conv", "beta-conv"} {
			conv := conv
			g.Go(func() error {
				resp := f.engine.Dispatch(context.Background(), Request{Message: "register deal $10k", ConversationID: conv})
				if resp.Deal == nil {
					return fmt.Errorf("%s: no deal in %q", conv, resp.Response)
				}
				return nil
			})
		}
	}
	require.NoError(t, g.Wait())

	for _, name := range []string{"Alpha", "Beta"} {
		p, err := f.ledger.Get(name)
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.Len(t, p.Deals, perConversation, name)
		assert.Equal(t, int64(perConversation*10000), p.TotalDealValue(), name)
	}

	// Every user message is followed by its own response.
	history := f.memory.History("alpha-conv", 0)
	require.Len(t, history, 2*(perConversation+1))
	for i, m := range history {
		if i%2 == 0 {
			assert.Equal(t, models.RoleUser, m.Role)
		} else {
			assert.Equal(t, models.RoleAssistant, m.Role)
			assert.True(t, strings.HasPrefix(m.Content, "Registered deal for **Alpha**") || i == 1)
		}
	}
	assert.Zero(t, f.engine.locks.size())
}

func TestKeyedMutexSerializes(t *testing.T) {
	k := newKeyedMutex()
	var mu sync.Mutex
	active, maxActive := 0, 0

	var g errgroup.Group
	for i := 0; i < 20; i++ {
		g.Go(func() error {
			unlock := k.Lock("same")
			defer unlock()
			mu.Lock()
			active++
			if active > maxActive {
				maxActive = active
			}
			mu.Unlock()
			mu.Lock()
			active--
			mu.Unlock()
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, 1, maxActive)
	assert.Zero(t, k.size())
}

func TestSessionReplaysMessageAfterClarification(t *testing.T) {
	f := newFixture(t, nil, "")
	s := NewSession(f.engine, "session")
	ctx := context.Background()

	resp := s.Send(ctx, "create an nda")
	require.True(t, resp.NeedsInput)
	assert.True(t, s.Pending())

	resp = s.Send(ctx, "  Acme  ")
	assert.False(t, s.Pending())
	require.NotNil(t, resp.Document)
	assert.Equal(t, "Acme", resp.Document.Partner)
	assert.Equal(t, "nda", resp.Document.Type)

	resp = s.Send(ctx, "status")
	assert.Equal(t, "status", resp.Skill)
	assert.Equal(t, "Acme", resp.Partner)
}
