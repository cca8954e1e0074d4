// ABOUTME: Scripted replies used when the language model is unavailable or fails
// ABOUTME: Coarse keyword buckets pick one of a handful of canned answers

package llm

import (
	"fmt"
	"regexp"
)

// AgentSwarm tags replies that came from the model.
const AgentSwarm = "swarm"

type Reply struct {
	Text  string
	Agent string
}

type bucket struct {
	pattern *regexp.Regexp
	agent   string
	reply   func(partner string) string
}

func forPartner(partner, generic string) string {
	if partner == "" {
		return generic
	}
	return partner
}

var buckets = []bucket{
	{
		pattern: regexp.MustCompile(`(?i)\bonboard|\bnew partner`),
		agent:   "Partner Manager",
		reply: func(p string) string {
			return fmt.Sprintf(`Let's get %s onboarded.

1. Send the NDA
2. Schedule a kickoff call
3. Create the onboarding plan
4. Set up a shared Slack channel

Try "onboard %s" to generate the paperwork.`, forPartner(p, "the new partner"), forPartner(p, "<Partner Name>"))
		},
	},
	{
		pattern: regexp.MustCompile(`(?i)\bdeal|\bregister`),
		agent:   "Operations",
		reply: func(p string) string {
			return fmt.Sprintf(`To register a deal for %s I need the account name, the deal value and the expected close date.

Example: "register deal for %s, $50k"`, forPartner(p, "a partner"), forPartner(p, "Acme"))
		},
	},
	{
		pattern: regexp.MustCompile(`(?i)\bcampaign|\bmarketing`),
		agent:   "Marketing",
		reply: func(p string) string {
			return fmt.Sprintf(`Co-marketing options for %s:

- Joint webinar
- Co-branded case study
- Shared email campaign
- Event sponsorship

Which one should we plan first?`, forPartner(p, "your partners"))
		},
	},
	{
		pattern: regexp.MustCompile(`(?i)\bicp\b|\bqualify|\bevaluate`),
		agent:   "Strategy",
		reply: func(string) string {
			return `To evaluate a prospective partner, score them on:

1. Market overlap
2. Technical fit
3. Sales capacity
4. Strategic alignment

Share what you know about the prospect and I'll score it.`
		},
	},
	{
		pattern: regexp.MustCompile(`(?i)\broi\b|\bboard\b|\bexecutive`),
		agent:   "Leader",
		reply: func(string) string {
			return `For an executive or board view, track:

- Partner-sourced pipeline
- Partner-influenced revenue
- Partner count by tier
- Program cost versus return

Try "show program roi" for the ROI summary.`
		},
	},
}

// Fallback picks a scripted reply for message. partner may be empty.
func Fallback(message, partner string) Reply {
	for _, b := range buckets {
		if b.pattern.MatchString(message) {
			return Reply{Text: b.reply(partner), Agent: b.agent}
		}
	}
	return Reply{
		Agent: "Partner Manager",
		Text: `I can help with your partner program. Try:

- "onboard Acme" to create NDA, MSA, DPA and a checklist
- "register deal for Acme, $50k"
- "status Acme" or "commission for Acme"
- "schedule QBR with Acme"
- "show program roi"`,
	}
}
