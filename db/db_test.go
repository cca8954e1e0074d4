// ABOUTME: Tests for the audit database
// ABOUTME: Covers WAL setup, re-initialization and dispatch recording
package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *AuditLog {
	t.Helper()
	db, err := OpenDatabase(filepath.Join(t.TempDir(), DefaultFile))
	if err != nil {
		t.Fatalf("OpenDatabase failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewAuditLog(db)
}

func TestOpenDatabase(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "nested", "test.db")

	db, err := OpenDatabase(dbPath)
	if err != nil {
		t.Fatalf("OpenDatabase failed: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}

	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='dispatches'").Scan(&count)
	if err != nil {
		t.Fatalf("Failed to query tables: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected dispatches table, got %d matches", count)
	}

	var mode string
	err = db.QueryRow("PRAGMA journal_mode").Scan(&mode)
	if err != nil {
		t.Fatalf("Failed to query journal mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("Expected WAL mode, got %s", mode)
	}
}

func TestOpenDatabaseTwice(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := OpenDatabase(dbPath)
	if err != nil {
		t.Fatalf("Initial OpenDatabase failed: %v", err)
	}
	db.Close()

	db, err = OpenDatabase(dbPath)
	if err != nil {
		t.Fatalf("OpenDatabase should handle re-initialization gracefully, but got error: %v", err)
	}
	db.Close()
}

func TestRecordAndRecent(t *testing.T) {
	ctx := context.Background()
	log := openTestDB(t)

	entries := []*Dispatch{
		{ConversationID: "a", Message: "onboard Acme", IntentKind: "action", IntentName: "onboard", Partner: "Acme", Agent: "architect", Outcome: OutcomeOnboarded},
		{ConversationID: "b", Message: "hello", Agent: "swarm", Outcome: OutcomeChat},
		{ConversationID: "a", Message: "status", IntentKind: "skill", IntentName: "status", Partner: "Acme", Agent: "architect", Skill: "status", Outcome: OutcomeSkill},
	}
	for _, e := range entries {
		if err := log.Record(ctx, e); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
		if e.ID == "" {
			t.Fatal("Record did not assign an id")
		}
	}

	got, err := log.Recent(ctx, "a", 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 dispatches for conversation a, got %d", len(got))
	}
	if got[0].Message != "status" || got[1].Message != "onboard Acme" {
		t.Errorf("Expected newest first, got %q then %q", got[0].Message, got[1].Message)
	}
	if got[0].Skill != "status" {
		t.Errorf("Expected skill to round-trip, got %q", got[0].Skill)
	}

	all, err := log.Recent(ctx, "", 2)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("Expected limit to apply, got %d", len(all))
	}
}

func TestCountByOutcome(t *testing.T) {
	ctx := context.Background()
	log := openTestDB(t)

	for _, outcome := range []string{OutcomeChat, OutcomeChat, OutcomeError} {
		if err := log.Record(ctx, &Dispatch{ConversationID: "c", Message: "m", Outcome: outcome, CreatedAt: time.Now()}); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	counts, err := log.CountByOutcome(ctx)
	if err != nil {
		t.Fatalf("CountByOutcome failed: %v", err)
	}
	if counts[OutcomeChat] != 2 || counts[OutcomeError] != 1 {
		t.Errorf("Unexpected counts: %v", counts)
	}
}
