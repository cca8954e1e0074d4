// ABOUTME: Audit log schema
// ABOUTME: One row per dispatched chat message
package db

import (
	"database/sql"
)

const schema = `
CREATE TABLE IF NOT EXISTS dispatches (
	id TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL,
	message TEXT NOT NULL,
	intent_kind TEXT,
	intent_name TEXT,
	partner TEXT,
	agent TEXT,
	skill TEXT,
	outcome TEXT NOT NULL,
	error TEXT,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_dispatches_conversation ON dispatches(conversation_id);
CREATE INDEX IF NOT EXISTS idx_dispatches_partner ON dispatches(partner);
CREATE INDEX IF NOT EXISTS idx_dispatches_created_at ON dispatches(created_at DESC);
`

func InitSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
