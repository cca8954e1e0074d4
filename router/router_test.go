// ABOUTME: Tests for the intent router and keyword classifier
// ABOUTME: Table-driven checks of family priority, entity extraction and model fallback

package router

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/harperreed/partneros/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func route(t *testing.T, message string, known ...string) *Result {
	t.Helper()
	res, err := New(nil, nil).Route(context.Background(), message, RouteContext{KnownPartners: known})
	require.NoError(t, err)
	require.NotEmpty(t, res.Intents)
	return res
}

func TestRouteOnboardTechStartup(t *testing.T) {
	res := route(t, "onboard TechStartup")

	want := []Intent{ActionIntent{
		Base:   Base{IntentName: "onboard", PartnerName: "TechStartup", Score: 0.8},
		Action: models.ActionOnboard,
	}}
	if diff := cmp.Diff(want, res.Intents); diff != "" {
		t.Errorf("intents mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, res.IsActionable)
	assert.Equal(t, "I'll help you onboard for TechStartup.", res.SuggestedReply)
}

func TestKeywordFamilies(t *testing.T) {
	tests := []struct {
		message string
		kind    Kind
		name    string
		partner string
	}{
		{"Create NDA for Acme Corp", KindDocument, "nda", "Acme Corp"},
		{"draft a master service agreement with Beta", KindDocument, "nda", "Beta"},
		{"need the MSA for Gamma", KindDocument, "msa", "Gamma"},
		{"data processing addendum for Delta", KindDocument, "dpa", "Delta"},
		{"send the NDA for the deal with Acme", KindDocument, "nda", "Acme"},
		{"recruit Initech", KindAction, "recruit", "Initech"},
		{"launch a marketing campaign with Hooli", KindAction, "campaign", "Hooli"},
		{"register deal for BigCorp, $100000", KindAction, "deal", "BigCorp"},
		{"check status of Acme", KindSkill, "status", "Acme"},
		{"write an email to Globex", KindSkill, "email", "Globex"},
		{"schedule QBR with Umbrella", KindSkill, "qbr", "Umbrella"},
		{"calculate commission for TestPartner", KindSkill, "commission", "TestPartner"},
		{"show program roi", KindSkill, "roi", ""},
		{"what should I focus on this week?", KindQuestion, "chat", ""},
		{"Schedule a call Monday", KindQuestion, "chat", ""},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			in := route(t, tt.message).Intents[0]
			assert.Equal(t, tt.kind, in.Kind())
			assert.Equal(t, tt.name, in.Name())
			assert.Equal(t, tt.partner, in.Partner())
		})
	}
}

func TestInflectedKeywords(t *testing.T) {
	tests := []struct {
		message string
		kind    Kind
		name    string
		partner string
	}{
		{"start recruiting Acme", KindAction, "recruit", "Acme"},
		{"we onboarded Acme", KindAction, "onboard", "Acme"},
		{"find a dealer for Globex", KindAction, "deal", "Globex"},
		{"two campaigns for Hooli", KindAction, "campaign", "Hooli"},
		{"emails to Initech", KindSkill, "email", "Initech"},
		{"that sounds ideal", KindQuestion, "chat", ""},
		{"a heroic effort", KindQuestion, "chat", ""},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			in := route(t, tt.message).Intents[0]
			assert.Equal(t, tt.kind, in.Kind())
			assert.Equal(t, tt.name, in.Name())
			assert.Equal(t, tt.partner, in.Partner())
		})
	}
}

func TestIsActionVerb(t *testing.T) {
	for _, w := range []string{"onboard", "onboarded", "onboarding", "recruits", "recruiting", "adding", "added", "created", "creates"} {
		assert.True(t, isActionVerb(w), w)
	}
	for _, w := range []string{"address", "credit", "board", ""} {
		assert.False(t, isActionVerb(w), w)
	}
}

func TestConfidenceAndMissingFields(t *testing.T) {
	onboard := route(t, "onboard").Intents[0]
	assert.Equal(t, 0.8, onboard.Confidence())
	assert.Equal(t, []string{FieldPartnerName}, onboard.Missing())
	assert.True(t, NeedsPartner(onboard))

	roi := route(t, "show program roi").Intents[0]
	assert.Empty(t, roi.Missing())

	chat := route(t, "hello there").Intents[0]
	assert.Equal(t, 0.0, chat.Confidence())
	assert.Empty(t, chat.Missing())

	nda := route(t, "create NDA").Intents[0]
	assert.Equal(t, "", nda.Partner())
	assert.True(t, NeedsPartner(nda))
}

func TestSkillTrailingToken(t *testing.T) {
	in := route(t, "status acme").Intents[0]
	assert.Equal(t, KindSkill, in.Kind())
	assert.Equal(t, "acme", in.Partner())

	in = route(t, "check status").Intents[0]
	assert.Equal(t, "", in.Partner())
	assert.True(t, NeedsPartner(in))

	// The looser rule is for skills only.
	in = route(t, "onboard acme").Intents[0]
	assert.Equal(t, "", in.Partner())
}

func TestKnownPartnerPass(t *testing.T) {
	in := route(t, "what is the status of acme corp please", "Acme", "Acme Corp").Intents[0]
	assert.Equal(t, "Acme Corp", in.Partner())

	in = route(t, "onboard acmeville", "Acme").Intents[0]
	assert.Equal(t, "", in.Partner())
}

func TestPartnerExtractionStopsAtClause(t *testing.T) {
	in := route(t, "register deal for Acme, $50k").Intents[0]
	assert.Equal(t, "Acme", in.Partner())

	in = route(t, "onboard NewPartner as Gold tier").Intents[0]
	assert.Equal(t, "NewPartner", in.Partner())
	action := in.(ActionIntent)
	assert.Equal(t, models.TierGold, action.Tier)
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"$50,000", 50000},
		{"50k", 50000},
		{"$50k", 50000},
		{"$123,456", 123456},
		{"50K deal", 50000},
		{"worth 250000 dollars", 250000},
		{"$500", 500},
		{"$1,250,000", 1250000},
		{"no amount here", 0},
		{"99999999999999999999", 0},
	}
	for _, tt := range tests {
		got, _ := ParseAmount(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestDealIntentCarriesTerms(t *testing.T) {
	in := route(t, "register deal for Acme Corp, $50k").Intents[0]
	action, ok := in.(ActionIntent)
	require.True(t, ok)
	require.NotNil(t, action.Deal)
	assert.Equal(t, int64(50000), action.Deal.Amount)
	assert.Equal(t, "Acme Corp", action.Deal.Account)

	onboard := route(t, "onboard Acme").Intents[0].(ActionIntent)
	assert.Nil(t, onboard.Deal)
}

func TestMentionedPartners(t *testing.T) {
	assert.Equal(t, []string{"Acme Corp"}, MentionedPartners("Can you help with Acme Corp today"))
	assert.Empty(t, MentionedPartners("Thanks for Help"))
	assert.Equal(t, "Globex", route(t, "how are things going with Globex").Intents[0].Partner())
}

func TestResultPrimary(t *testing.T) {
	res := &Result{Intents: []Intent{
		ChatIntent{Base: Base{IntentName: "chat"}},
		SkillIntent{Base: Base{IntentName: "status"}, Skill: models.SkillStatus},
		DocumentIntent{Base: Base{IntentName: "nda"}, DocType: models.DocNDA},
	}}
	assert.Equal(t, "nda", res.Primary().Name())
	assert.Equal(t, "chat", res.Chat().Name())

	chatOnly := &Result{Intents: []Intent{ChatIntent{}}}
	assert.Nil(t, chatOnly.Primary())
}

type fakeCompleter struct {
	reply string
	err   error
}

func (f fakeCompleter) CompleteWithSystem(_ context.Context, _, _ string) (string, error) {
	return f.reply, f.err
}

func TestLLMClassifier(t *testing.T) {
	ctx := context.Background()
	reply := "```json\n" + `{"intents":[{"type":"action","name":"deal","partner_name":"Acme","amount":75000,"confidence":0.95},{"type":"skill","name":"teleport"}]}` + "\n```"
	c := NewLLMClassifier(fakeCompleter{reply: reply}, nil, nil)

	intents, err := c.Classify(ctx, "book a deal for acme, 75k", nil)
	require.NoError(t, err)
	require.Len(t, intents, 1)

	want := ActionIntent{
		Base:   Base{IntentName: "deal", PartnerName: "Acme", Score: 0.95},
		Action: models.ActionDeal,
		Deal:   &DealTerms{Amount: 75000, Account: "Acme"},
	}
	if diff := cmp.Diff(Intent(want), intents[0]); diff != "" {
		t.Errorf("intent mismatch (-want +got):\n%s", diff)
	}
}

func TestLLMClassifierFallsBack(t *testing.T) {
	ctx := context.Background()

	failing := NewLLMClassifier(fakeCompleter{err: errors.New("timeout")}, nil, nil)
	intents, err := failing.Classify(ctx, "onboard TechStartup", nil)
	require.NoError(t, err)
	assert.Equal(t, "onboard", intents[0].Name())

	garbage := NewLLMClassifier(fakeCompleter{reply: "sure thing!"}, nil, nil)
	intents, err = garbage.Classify(ctx, "status Acme", nil)
	require.NoError(t, err)
	assert.Equal(t, "status", intents[0].Name())
}
