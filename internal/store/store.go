// Package store keeps versioned snapshots of rule databases in SQLite.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/rulenet/internal/logging"
	"github.com/danielpatrickdp/rulenet/internal/rules"
	"github.com/danielpatrickdp/rulenet/internal/symbols"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS rule_snapshots (
	version_id    TEXT PRIMARY KEY,
	parent_id     TEXT,
	max_conds     INTEGER,
	rules_json    TEXT NOT NULL,
	rule_count    INTEGER NOT NULL,
	created_at    TEXT NOT NULL,
	FOREIGN KEY (parent_id) REFERENCES rule_snapshots(version_id)
);

CREATE TABLE IF NOT EXISTS resolution_log (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	version_id    TEXT NOT NULL,
	trigger_type  TEXT NOT NULL,
	added         TEXT,
	deleted       TEXT,
	rule_count    INTEGER NOT NULL,
	reason        TEXT,
	created_at    TEXT NOT NULL,
	FOREIGN KEY (version_id) REFERENCES rule_snapshots(version_id)
);

CREATE TABLE IF NOT EXISTS active_snapshot (
	id            INTEGER PRIMARY KEY CHECK (id = 1),
	version_id    TEXT NOT NULL,
	FOREIGN KEY (version_id) REFERENCES rule_snapshots(version_id)
);
`
// #endregion schema

// #region store-struct
// Store manages versioned rule snapshots in SQLite.
type Store struct {
	db *sql.DB
}
// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}
// #endregion constructor

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use by other packages (e.g. logging).
func (s *Store) DB() *sql.DB {
	return s.db
}

// #region save-snapshot
// SaveSnapshot records db as a new version and makes it active.
func (s *Store) SaveSnapshot(db *rules.Rules, parentID string) (Snapshot, error) {
	snap := Capture(db)
	snap.VersionID = uuid.New().String()
	snap.ParentID = parentID
	snap.CreatedAt = time.Now().UTC()

	rulesJSON, err := json.Marshal(snap.Rules)
	if err != nil {
		return Snapshot{}, fmt.Errorf("marshal rules: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return Snapshot{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var parentPtr interface{}
	if parentID != "" {
		parentPtr = parentID
	}
	var maxPtr interface{}
	if snap.MaxConds != nil {
		maxPtr = *snap.MaxConds
	}

	_, err = tx.Exec(
		`INSERT INTO rule_snapshots (version_id, parent_id, max_conds, rules_json, rule_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		snap.VersionID, parentPtr, maxPtr, string(rulesJSON), len(snap.Rules),
		snap.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return Snapshot{}, fmt.Errorf("insert snapshot: %w", err)
	}

	_, err = tx.Exec(
		`INSERT INTO active_snapshot (id, version_id) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET version_id = excluded.version_id`,
		snap.VersionID,
	)
	if err != nil {
		return Snapshot{}, fmt.Errorf("set active: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Snapshot{}, fmt.Errorf("commit: %w", err)
	}
	return snap, nil
}
// #endregion save-snapshot

// #region get-current
// GetCurrent reads the active snapshot.
func (s *Store) GetCurrent() (Snapshot, error) {
	var versionID string
	err := s.db.QueryRow(`SELECT version_id FROM active_snapshot WHERE id = 1`).Scan(&versionID)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, ErrNoSnapshot
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("get active: %w", err)
	}
	return s.GetVersion(versionID)
}
// #endregion get-current

// #region get-version
// GetVersion retrieves a specific snapshot by ID.
func (s *Store) GetVersion(id string) (Snapshot, error) {
	row := s.db.QueryRow(
		`SELECT version_id, parent_id, max_conds, rules_json, created_at
		 FROM rule_snapshots WHERE version_id = ?`, id,
	)
	snap, err := scanSnapshot(row)
	if err != nil {
		return Snapshot{}, fmt.Errorf("get version %s: %w", id, err)
	}
	return snap, nil
}
// #endregion get-version

// #region restore
// Restore rebuilds a rule database from a stored snapshot.
func (s *Store) Restore(versionID string) (*rules.Rules, error) {
	snap, err := s.GetVersion(versionID)
	if err != nil {
		return nil, err
	}
	return snap.Build()
}

// Rollback sets the active pointer to a previous snapshot.
func (s *Store) Rollback(targetVersionID string) error {
	var count int
	err := s.db.QueryRow(
		`SELECT rule_count FROM rule_snapshots WHERE version_id = ?`, targetVersionID,
	).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("version %s not found", targetVersionID)
	}
	if err != nil {
		return fmt.Errorf("check version: %w", err)
	}

	if _, err := s.db.Exec(`UPDATE active_snapshot SET version_id = ? WHERE id = 1`, targetVersionID); err != nil {
		return fmt.Errorf("rollback: %w", err)
	}
	return logging.LogResolution(s.db, logging.ResolutionEntry{
		VersionID:   targetVersionID,
		TriggerType: "rollback",
		RuleCount:   count,
	})
}
// #endregion restore

// #region list-versions
// ListVersions returns the most recent snapshots, newest first.
func (s *Store) ListVersions(limit int) ([]Snapshot, error) {
	rows, err := s.db.Query(
		`SELECT version_id, parent_id, max_conds, rules_json, created_at
		 FROM rule_snapshots ORDER BY rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var snaps []Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}
// #endregion list-versions

// #region hook
// Hook returns a resolution hook that snapshots the database after every
// resolution and records it in the resolution log.
func (s *Store) Hook(reason string) rules.ResolutionHook {
	return s.HookWith(func(rules.Resolution) string { return reason })
}

// HookWith is Hook with the log reason chosen per resolution.
func (s *Store) HookWith(reason func(rules.Resolution) string) rules.ResolutionHook {
	return func(db *rules.Rules, res rules.Resolution) error {
		var parentID string
		if cur, err := s.GetCurrent(); err == nil {
			parentID = cur.VersionID
		} else if !errors.Is(err, ErrNoSnapshot) {
			return err
		}

		snap, err := s.SaveSnapshot(db, parentID)
		if err != nil {
			return err
		}
		return logging.LogResolution(s.db, logging.ResolutionEntry{
			VersionID:   snap.VersionID,
			TriggerType: "resolve",
			Added:       logging.JoinSymbols(res.Added),
			Deleted:     logging.JoinSymbols(res.Deleted),
			RuleCount:   len(snap.Rules),
			Reason:      reason(res),
		})
	}
}
// #endregion hook

// #region encoding
// Capture copies db into an unsaved snapshot.
func Capture(db *rules.Rules) Snapshot {
	var snap Snapshot
	if n, ok := db.MaxConds(); ok {
		snap.MaxConds = &n
	}
	for _, id := range db.IDs() {
		form, _ := db.Get(id)
		w := make(map[string]float64, form.Weights().Len())
		form.Weights().Each(func(k symbols.Symbol, v float64) {
			w[k.String()] = v
		})
		snap.Rules = append(snap.Rules, SnapshotRule{
			ID:         id.String(),
			Conclusion: form.Conclusion().String(),
			Weights:    w,
		})
	}
	return snap
}

// Build creates a fresh database holding the snapshot's rules.
func (snap Snapshot) Build() (*rules.Rules, error) {
	data := make(map[symbols.Symbol]rules.Rule, len(snap.Rules))
	for _, r := range snap.Rules {
		id, err := symbols.ParseSymbol(r.ID)
		if err != nil {
			return nil, fmt.Errorf("snapshot %s: %w", snap.VersionID, err)
		}
		conc, err := symbols.ParseSymbol(r.Conclusion)
		if err != nil {
			return nil, fmt.Errorf("snapshot %s: %w", snap.VersionID, err)
		}
		conds := make([]symbols.Symbol, 0, len(r.Weights))
		weights := make(map[symbols.Symbol]float64, len(r.Weights))
		for k, v := range r.Weights {
			sym, err := symbols.ParseSymbol(k)
			if err != nil {
				return nil, fmt.Errorf("snapshot %s: %w", snap.VersionID, err)
			}
			conds = append(conds, sym)
			weights[sym] = v
		}
		form, err := rules.NewRule(conc, conds, weights)
		if err != nil {
			return nil, fmt.Errorf("snapshot %s: %w", snap.VersionID, err)
		}
		data[id] = form
	}

	opts := []rules.Option{rules.WithData(data)}
	if snap.MaxConds != nil {
		opts = append(opts, rules.WithMaxConds(*snap.MaxConds))
	}
	return rules.New(opts...)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row scanner) (Snapshot, error) {
	var snap Snapshot
	var parentID sql.NullString
	var maxConds sql.NullInt64
	var rulesJSON, createdStr string

	if err := row.Scan(&snap.VersionID, &parentID, &maxConds, &rulesJSON, &createdStr); err != nil {
		return Snapshot{}, err
	}
	if parentID.Valid {
		snap.ParentID = parentID.String
	}
	if maxConds.Valid {
		n := int(maxConds.Int64)
		snap.MaxConds = &n
	}
	if err := json.Unmarshal([]byte(rulesJSON), &snap.Rules); err != nil {
		return Snapshot{}, fmt.Errorf("unmarshal rules: %w", err)
	}
	snap.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	return snap, nil
}
// #endregion encoding
