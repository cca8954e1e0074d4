// ABOUTME: Deterministic keyword classifier used when no model classifier is configured
// ABOUTME: Families are checked in priority order document, action, skill, then chat

package router

import (
	"context"
	"regexp"
	"strings"

	"github.com/harperreed/partneros/models"
)

// keywordSet maps a group of phrases to one intent name.
type keywordSet struct {
	Name     string
	Keywords []string
	patterns []*regexp.Regexp
}

type family struct {
	Kind Kind
	Sets []keywordSet
}

// Declaration order is the tie-break order inside each family.
var families = []family{
	{Kind: KindDocument, Sets: []keywordSet{
		{Name: string(models.DocNDA), Keywords: []string{"nda", "non-disclosure", "confidentiality", "agreement"}},
		{Name: string(models.DocMSA), Keywords: []string{"msa", "master service", "service agreement"}},
		{Name: string(models.DocDPA), Keywords: []string{"dpa", "data processing", "privacy"}},
	}},
	{Kind: KindAction, Sets: []keywordSet{
		{Name: string(models.ActionOnboard), Keywords: []string{"onboard", "onboarding", "on-board"}},
		{Name: string(models.ActionRecruit), Keywords: []string{"recruit", "recruitment", "add partner"}},
		{Name: string(models.ActionCampaign), Keywords: []string{"campaign", "launch campaign", "marketing"}},
		{Name: string(models.ActionDeal), Keywords: []string{"deal", "register deal", "register a deal"}},
	}},
	{Kind: KindSkill, Sets: []keywordSet{
		{Name: string(models.SkillStatus), Keywords: []string{"status"}},
		{Name: string(models.SkillEmail), Keywords: []string{"email"}},
		{Name: string(models.SkillQBR), Keywords: []string{"qbr"}},
		{Name: string(models.SkillCommission), Keywords: []string{"commission"}},
		{Name: string(models.SkillROI), Keywords: []string{"roi"}},
	}},
}

// reserved holds single-word keywords, which can never be partner names.
var reserved = map[string]bool{}

func init() {
	for fi := range families {
		for si := range families[fi].Sets {
			set := &families[fi].Sets[si]
			for _, kw := range set.Keywords {
				// Anchored at a word start: "recruiting" and "onboarded" count, "Monday" and "ideal" do not.
				set.patterns = append(set.patterns,
					regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(kw)))
				if !strings.ContainsAny(kw, " -") {
					reserved[kw] = true
				}
			}
		}
	}
}

func (s keywordSet) matches(message string) bool {
	for _, re := range s.patterns {
		if re.MatchString(message) {
			return true
		}
	}
	return false
}

// Confidence scores of the keyword path. There is no learned scoring.
const (
	KeywordConfidence = 0.8
	ChatConfidence    = 0.0
)

// KeywordClassifier is the deterministic fallback classifier.
type KeywordClassifier struct{}

func (KeywordClassifier) Classify(_ context.Context, message string, known []string) ([]Intent, error) {
	return []Intent{classifyKeywords(message, known)}, nil
}

func classifyKeywords(message string, known []string) Intent {
	for _, f := range families {
		for _, set := range f.Sets {
			if set.matches(message) {
				return buildIntent(f.Kind, set.Name, message, known)
			}
		}
	}
	return ChatIntent{Base: Base{
		IntentName:  "chat",
		PartnerName: firstMention(message),
		Score:       ChatConfidence,
	}}
}

func firstMention(message string) string {
	if names := MentionedPartners(message); len(names) > 0 {
		return names[0]
	}
	return ""
}

func buildIntent(kind Kind, name, message string, known []string) Intent {
	partner := ExtractPartner(message, known)
	if partner == "" && kind == KindSkill {
		partner = trailingToken(strings.Fields(message))
	}

	base := Base{IntentName: name, PartnerName: partner, Score: KeywordConfidence}
	if partner == "" && requiresPartner(kind, name) {
		base.MissingFields = []string{FieldPartnerName}
	}

	switch kind {
	case KindDocument:
		return DocumentIntent{Base: base, DocType: models.DocType(name), Tier: ParseTier(message)}
	case KindAction:
		in := ActionIntent{Base: base, Action: models.Action(name), Tier: ParseTier(message)}
		if in.Action == models.ActionDeal {
			amount, text := ParseAmount(message)
			in.Deal = &DealTerms{Amount: amount, AmountText: text, Account: partner}
		}
		return in
	default:
		return SkillIntent{Base: base, Skill: models.Skill(name)}
	}
}

func requiresPartner(kind Kind, name string) bool {
	switch kind {
	case KindDocument, KindAction:
		return true
	case KindSkill:
		return name != string(models.SkillROI)
	}
	return false
}
