// ABOUTME: Agent roster and system prompt for free-form partner conversations
// ABOUTME: The prompt carries the current partner and a short slice of recent history

package llm

import (
	"fmt"
	"strings"

	"github.com/harperreed/partneros/models"
)

type AgentSkill struct {
	Name        string
	Description string
}

type Agent struct {
	ID     string
	Name   string
	Role   string
	Skills []AgentSkill
}

// Roster lists the agents a conversation can be handed to.
var Roster = []Agent{
	{ID: "architect", Name: "ARCHITECT", Role: "Partner Program Manager", Skills: []AgentSkill{
		{"onboard", "Build an activation path for a new partner"},
		{"status", "Quick status check on any partner"},
		{"qbr", "Lock in a quarterly business review"},
		{"qualify", "Assess whether a prospect is worth pursuing"},
	}},
	{ID: "engine", Name: "ENGINE", Role: "Partner Operations", Skills: []AgentSkill{
		{"register", "Process a deal registration"},
		{"calculate", "Calculate commission for a deal"},
		{"audit", "Check compliance status for a partner"},
	}},
	{ID: "strategist", Name: "STRATEGIST", Role: "Partner Strategy", Skills: []AgentSkill{
		{"icp", "Define the ideal partner profile"},
		{"tier", "Build a tier structure"},
		{"score", "Score partner fit"},
	}},
	{ID: "spark", Name: "SPARK", Role: "Partner Marketing", Skills: []AgentSkill{
		{"ignite", "Launch a co-marketing campaign"},
		{"sequence", "Write email outreach"},
	}},
	{ID: "champion", Name: "CHAMPION", Role: "Partner Leader", Skills: []AgentSkill{
		{"board", "Build a board presentation"},
		{"roi", "Calculate program ROI"},
	}},
	{ID: "builder", Name: "BUILDER", Role: "Partner Technical", Skills: []AgentSkill{
		{"integrate", "Plan a technical integration"},
	}},
}

const promptHistory = 5

// BuildSystemPrompt describes the agent team plus conversation context.
func BuildSystemPrompt(currentPartner string, history []models.Message) string {
	var b strings.Builder
	b.WriteString("You are the PartnerOS agent team, a group of specialists who run a partner program together.\n")
	b.WriteString("Work out what the operator needs and answer as the most relevant agent.\n")

	if currentPartner != "" {
		fmt.Fprintf(&b, "\nCURRENT PARTNER: %s\n", currentPartner)
	}

	if len(history) > promptHistory {
		history = history[len(history)-promptHistory:]
	}
	if len(history) > 0 {
		b.WriteString("\nRECENT CONVERSATION:\n")
		for _, m := range history {
			speaker := "User"
			if m.Role != models.RoleUser {
				speaker = m.Agent
				if speaker == "" {
					speaker = "Assistant"
				}
			}
			fmt.Fprintf(&b, "%s: %s\n", speaker, truncate(m.Content, 200))
		}
	}

	b.WriteString("\nAVAILABLE AGENTS AND SKILLS:\n")
	for _, a := range Roster {
		for _, s := range a.Skills {
			fmt.Fprintf(&b, "- %s.%s: %s\n", a.Name, s.Name, s.Description)
		}
	}

	b.WriteString(`
INSTRUCTIONS:
1. If a partner is named, acknowledge it and use its context.
2. Say which agent is answering.
3. Ask a clarifying question when information is missing.
4. End with a suggested next step.`)
	return b.String()
}
