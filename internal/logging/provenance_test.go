package logging

import (
	"database/sql"
	"testing"
	"time"

	"github.com/danielpatrickdp/rulenet/internal/symbols"
	_ "modernc.org/sqlite"
)

// #region helpers
func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	_, err = db.Exec(`CREATE TABLE resolution_log (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		version_id   TEXT NOT NULL,
		trigger_type TEXT NOT NULL,
		added        TEXT,
		deleted      TEXT,
		rule_count   INTEGER NOT NULL,
		reason       TEXT,
		created_at   TEXT NOT NULL
	)`)
	if err != nil {
		t.Fatalf("create table: %v", err)
	}
	return db
}

// #endregion helpers

// #region log-resolution-tests
func TestLogResolution_Success(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	entry := ResolutionEntry{
		VersionID:   "v1",
		TriggerType: "resolve",
		Added:       "rule(1),rule(2)",
		Deleted:     "rule(0)",
		RuleCount:   2,
		Reason:      "file reload",
		CreatedAt:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	if err := LogResolution(db, entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := ListResolutions(db, 10)
	if err != nil {
		t.Fatalf("ListResolutions: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 row, got %d", len(got))
	}
	if got[0] != entry {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got[0], entry)
	}
}

func TestLogResolution_ZeroCreatedAt(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	before := time.Now().UTC()
	if err := LogResolution(db, ResolutionEntry{VersionID: "v2", TriggerType: "load"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var createdAtStr string
	db.QueryRow("SELECT created_at FROM resolution_log").Scan(&createdAtStr)
	createdAt, err := time.Parse(time.RFC3339Nano, createdAtStr)
	if err != nil {
		t.Fatalf("parse created_at: %v", err)
	}
	if createdAt.Before(before) {
		t.Error("expected auto-filled created_at to be >= test start time")
	}
}

func TestLogResolution_EmptyOptionalFields(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	if err := LogResolution(db, ResolutionEntry{VersionID: "v3", TriggerType: "rollback"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var added, deleted, reason sql.NullString
	db.QueryRow("SELECT added, deleted, reason FROM resolution_log").Scan(&added, &deleted, &reason)
	if added.Valid || deleted.Valid || reason.Valid {
		t.Errorf("expected NULL optional columns, got %v %v %v", added, deleted, reason)
	}
}

func TestLogResolution_Error(t *testing.T) {
	db := setupDB(t)
	db.Close() // close to force error

	if err := LogResolution(db, ResolutionEntry{VersionID: "v4", TriggerType: "resolve"}); err == nil {
		t.Fatal("expected error on closed db")
	}
}

func TestListResolutions_NewestFirst(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	for _, v := range []string{"a", "b", "c"} {
		if err := LogResolution(db, ResolutionEntry{VersionID: v, TriggerType: "resolve"}); err != nil {
			t.Fatal(err)
		}
	}
	got, err := ListResolutions(db, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].VersionID != "c" || got[1].VersionID != "b" {
		t.Fatalf("got %+v", got)
	}
}

// #endregion log-resolution-tests

// #region helper-tests
func TestNullIfEmpty(t *testing.T) {
	if result := nullIfEmpty(""); result != nil {
		t.Errorf("expected nil for empty string, got %v", result)
	}
	if result := nullIfEmpty("hello"); result != "hello" {
		t.Errorf("expected 'hello', got %v", result)
	}
}

func TestJoinSymbols(t *testing.T) {
	got := JoinSymbols([]symbols.Symbol{symbols.Rule("1"), symbols.Chunk("x")})
	if got != "rule(1),chunk(x)" {
		t.Errorf("JoinSymbols = %q", got)
	}
	if JoinSymbols(nil) != "" {
		t.Error("expected empty string for no symbols")
	}
}

func TestNewLogger(t *testing.T) {
	for _, verbose := range []bool{false, true} {
		l, err := NewLogger(verbose)
		if err != nil {
			t.Fatalf("NewLogger(%v): %v", verbose, err)
		}
		if got := l.Core().Enabled(-1); got != verbose {
			t.Errorf("debug enabled = %v with verbose=%v", got, verbose)
		}
	}
}

// #endregion helper-tests
