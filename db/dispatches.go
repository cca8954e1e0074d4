// ABOUTME: Dispatch audit log operations
// ABOUTME: Records what the engine did for each message and reads it back newest first
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// Outcome values stored with each dispatch.
const (
	OutcomeChat          = "chat"
	OutcomeClarification = "clarification"
	OutcomeDocument      = "document"
	OutcomeOnboarded     = "onboarded"
	OutcomeDeal          = "deal"
	OutcomeSkill         = "skill"
	OutcomeNotGenerated  = "not_generated"
	OutcomeError         = "error"
)

type Dispatch struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Message        string    `json:"message"`
	IntentKind     string    `json:"intent_kind,omitempty"`
	IntentName     string    `json:"intent_name,omitempty"`
	Partner        string    `json:"partner,omitempty"`
	Agent          string    `json:"agent,omitempty"`
	Skill          string    `json:"skill,omitempty"`
	Outcome        string    `json:"outcome"`
	Error          string    `json:"error,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// AuditLog wraps the audit database for the dispatch engine.
type AuditLog struct {
	db *sql.DB
}

func NewAuditLog(db *sql.DB) *AuditLog {
	return &AuditLog{db: db}
}

// Record stores d, assigning its ID and timestamp when unset.
func (a *AuditLog) Record(ctx context.Context, d *Dispatch) error {
	if d.ID == "" {
		d.ID = ulid.Make().String()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}

	_, err := a.db.ExecContext(ctx, `
		INSERT INTO dispatches (id, conversation_id, message, intent_kind, intent_name, partner, agent, skill, outcome, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, d.ID, d.ConversationID, d.Message, d.IntentKind, d.IntentName, d.Partner, d.Agent, d.Skill, d.Outcome, d.Error, d.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record dispatch: %w", err)
	}
	return nil
}

// Recent returns up to limit dispatches, newest first. An empty conversationID means all conversations.
func (a *AuditLog) Recent(ctx context.Context, conversationID string, limit int) ([]Dispatch, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, conversation_id, message, intent_kind, intent_name, partner, agent, skill, outcome, error, created_at
		FROM dispatches`
	args := []any{}
	if conversationID != "" {
		query += " WHERE conversation_id = ?"
		args = append(args, conversationID)
	}
	// ULIDs sort by creation time, which breaks ties within the same timestamp.
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query dispatches: %w", err)
	}
	defer rows.Close()

	var out []Dispatch
	for rows.Next() {
		var d Dispatch
		var kind, name, partner, agent, skill, errText sql.NullString
		if err := rows.Scan(&d.ID, &d.ConversationID, &d.Message, &kind, &name, &partner, &agent, &skill, &d.Outcome, &errText, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan dispatch: %w", err)
		}
		d.IntentKind = kind.String
		d.IntentName = name.String
		d.Partner = partner.String
		d.Agent = agent.String
		d.Skill = skill.String
		d.Error = errText.String
		out = append(out, d)
	}
	return out, rows.Err()
}

// CountByOutcome tallies dispatches per outcome.
func (a *AuditLog) CountByOutcome(ctx context.Context) (map[string]int, error) {
	rows, err := a.db.QueryContext(ctx, `SELECT outcome, COUNT(*) FROM dispatches GROUP BY outcome`)
	if err != nil {
		return nil, fmt.Errorf("failed to count dispatches: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, err
		}
		counts[outcome] = n
	}
	return counts, rows.Err()
}
