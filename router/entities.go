// ABOUTME: Entity extraction for partner names, deal amounts and tiers
// ABOUTME: Layered token passes mirror how operators phrase partner requests

package router

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/harperreed/partneros/models"
)

var prepositions = map[string]bool{"for": true, "with": true, "to": true, "of": true}

var actionVerbs = map[string]bool{
	"onboard":    true,
	"onboarding": true,
	"recruit":    true,
	"add":        true,
	"create":     true,
}

// Filler words skipped between an anchor and the name ("for the Acme", "add partner Acme").
var fillers = map[string]bool{
	"a": true, "an": true, "the": true, "new": true,
	"partner": true, "partners": true, "company": true, "our": true, "my": true,
}

// Capitalized words that are never partner names.
var skipWords = map[string]bool{
	"I": true, "We": true, "You": true, "What": true, "Who": true, "How": true,
	"When": true, "Where": true, "Why": true, "The": true, "A": true, "An": true,
	"This": true, "That": true, "These": true, "Those": true, "It": true, "Its": true,
	"Can": true, "Could": true, "Would": true, "Should": true, "Will": true,
	"Do": true, "Does": true, "Did": true, "Help": true, "Thanks": true, "Thank": true,
	"Please": true, "Next": true, "Now": true, "Then": true, "Me": true, "Us": true,
}

const tokenTrim = ".,!?"

func trimToken(tok string) string {
	return strings.Trim(tok, tokenTrim)
}

func startsUpper(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return r != utf8.RuneError && unicode.IsUpper(r)
}

func endsClause(tok string) bool {
	return tok != "" && strings.ContainsAny(tok[len(tok)-1:], tokenTrim)
}

// acceptable reports whether a capitalized token can be (part of) a partner name.
func acceptable(tok string) bool {
	return startsUpper(tok) && !skipWords[tok] && !reserved[strings.ToLower(tok)]
}

// nameAt reads a 1-2 token capitalized name starting at tokens[i], skipping fillers.
func nameAt(tokens []string, i int) string {
	for i < len(tokens) && fillers[strings.ToLower(trimToken(tokens[i]))] && !endsClause(tokens[i]) {
		i++
	}
	if i >= len(tokens) {
		return ""
	}
	first := trimToken(tokens[i])
	if !acceptable(first) {
		return ""
	}
	if endsClause(tokens[i]) || i+1 >= len(tokens) {
		return first
	}
	if second := trimToken(tokens[i+1]); acceptable(second) {
		return first + " " + second
	}
	return first
}

func prepositionPass(tokens []string) string {
	for i, tok := range tokens {
		if prepositions[strings.ToLower(trimToken(tok))] {
			if name := nameAt(tokens, i+1); name != "" {
				return name
			}
		}
	}
	return ""
}

// isActionVerb accepts the verbs and their inflections ("onboarded", "recruiting", "adding", "creates").
func isActionVerb(word string) bool {
	if actionVerbs[word] {
		return true
	}
	for _, suffix := range []string{"ing", "ed", "es", "s", "d"} {
		base, ok := strings.CutSuffix(word, suffix)
		if !ok || base == "" {
			continue
		}
		if actionVerbs[base] || actionVerbs[base+"e"] {
			return true
		}
		if n := len(base); n > 1 && base[n-1] == base[n-2] && actionVerbs[base[:n-1]] {
			return true
		}
	}
	return false
}

func actionPass(tokens []string) string {
	for i, tok := range tokens {
		if isActionVerb(strings.ToLower(trimToken(tok))) {
			if name := nameAt(tokens, i+1); name != "" {
				return name
			}
		}
	}
	return ""
}

// knownPass finds a known partner named anywhere in the message, longest name first.
func knownPass(message string, known []string) string {
	if len(known) == 0 {
		return ""
	}
	names := append([]string(nil), known...)
	sort.SliceStable(names, func(i, j int) bool { return len(names[i]) > len(names[j]) })

	lower := strings.ToLower(message)
	for _, name := range names {
		needle := strings.ToLower(strings.TrimSpace(name))
		if needle == "" {
			continue
		}
		for start := 0; start < len(lower); {
			idx := strings.Index(lower[start:], needle)
			if idx < 0 {
				break
			}
			idx += start
			end := idx + len(needle)
			if wordBoundary(lower, idx-1) && wordBoundary(lower, end) {
				return name
			}
			start = idx + 1
		}
	}
	return ""
}

func wordBoundary(s string, i int) bool {
	if i < 0 || i >= len(s) {
		return true
	}
	r := rune(s[i])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// trailingToken is the looser skill rule: "status acme" names acme.
func trailingToken(tokens []string) string {
	if len(tokens) < 2 {
		return ""
	}
	last := trimToken(tokens[len(tokens)-1])
	lower := strings.ToLower(last)
	if last == "" || reserved[lower] || fillers[lower] || prepositions[lower] || trailingFillers[lower] {
		return ""
	}
	if !strings.ContainsFunc(last, unicode.IsLetter) {
		return ""
	}
	return last
}

var trailingFillers = map[string]bool{
	"please": true, "now": true, "today": true, "me": true, "us": true, "it": true,
	"them": true, "check": true, "show": true, "program": true, "calculate": true,
	"schedule": true, "draft": true, "send": true, "write": true, "get": true,
}

// ExtractPartner runs the preposition, action and known-partner passes in order.
func ExtractPartner(message string, known []string) string {
	tokens := strings.Fields(message)
	if name := prepositionPass(tokens); name != "" {
		return name
	}
	if name := actionPass(tokens); name != "" {
		return name
	}
	return knownPass(message, known)
}

var amountPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\$?(\d+)k\b`),
	regexp.MustCompile(`\$\d{1,3}(?:,\d{3})+`),
	regexp.MustCompile(`\d{4,}`),
	regexp.MustCompile(`\$\d+`),
}

// ParseAmount extracts a deal value in whole dollars. Unparseable amounts are zero.
func ParseAmount(message string) (int64, string) {
	for i, re := range amountPatterns {
		m := re.FindStringSubmatch(message)
		if m == nil {
			continue
		}
		if i == 0 {
			n, err := strconv.ParseInt(m[1], 10, 64)
			if err != nil || n > math.MaxInt64/1000 {
				return 0, m[0]
			}
			return n * 1000, m[0]
		}
		digits := strings.NewReplacer("$", "", ",", "").Replace(m[0])
		n, err := strconv.ParseInt(digits, 10, 64)
		if err != nil {
			return 0, m[0]
		}
		return n, m[0]
	}
	return 0, ""
}

var tierPattern = regexp.MustCompile(`(?i)\b(gold|silver|bronze)\b`)

// ParseTier returns the first tier named in the message, or "".
func ParseTier(message string) models.Tier {
	m := tierPattern.FindStringSubmatch(message)
	if m == nil {
		return ""
	}
	t, _ := models.ParseTier(m[1])
	return t
}

var mentionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bfor\s+([A-Z][a-zA-Z]+(?:\s+[A-Z][a-zA-Z]+)*)`),
	regexp.MustCompile(`\bwith\s+([A-Z][a-zA-Z]+(?:\s+[A-Z][a-zA-Z]+)*)`),
	regexp.MustCompile(`\bto\s+([A-Z][a-zA-Z]+(?:\s+[A-Z][a-zA-Z]+)*)`),
	regexp.MustCompile(`(?i:onboard|status|check|help)\s+([A-Z][a-zA-Z]+(?:\s+[A-Z][a-zA-Z]+)*)`),
}

// MentionedPartners finds capitalized names a free-form chat message refers to.
func MentionedPartners(message string) []string {
	seen := map[string]bool{}
	var out []string
	for _, re := range mentionPatterns {
		for _, m := range re.FindAllStringSubmatch(message, -1) {
			name := m[1]
			if skipWords[name] || reserved[strings.ToLower(name)] || seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}
