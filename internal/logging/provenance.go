package logging

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/danielpatrickdp/rulenet/internal/symbols"
)

// #region log-resolution
// LogResolution writes a provenance entry to the resolution_log table.
func LogResolution(db *sql.DB, entry ResolutionEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO resolution_log (version_id, trigger_type, added, deleted, rule_count, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.VersionID,
		entry.TriggerType,
		nullIfEmpty(entry.Added),
		nullIfEmpty(entry.Deleted),
		entry.RuleCount,
		nullIfEmpty(entry.Reason),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log resolution: %w", err)
	}
	return nil
}
// #endregion log-resolution

// #region list-resolutions
// ListResolutions returns the most recent entries, newest first.
func ListResolutions(db *sql.DB, limit int) ([]ResolutionEntry, error) {
	rows, err := db.Query(
		`SELECT version_id, trigger_type, added, deleted, rule_count, reason, created_at
		 FROM resolution_log ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list resolutions: %w", err)
	}
	defer rows.Close()

	var entries []ResolutionEntry
	for rows.Next() {
		var e ResolutionEntry
		var added, deleted, reason sql.NullString
		var createdStr string
		if err := rows.Scan(&e.VersionID, &e.TriggerType, &added, &deleted, &e.RuleCount, &reason, &createdStr); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		e.Added, e.Deleted, e.Reason = added.String, deleted.String, reason.String
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
// #endregion list-resolutions

// #region helpers
// JoinSymbols renders symbols for the added/deleted columns.
func JoinSymbols(syms []symbols.Symbol) string {
	parts := make([]string, len(syms))
	for i, s := range syms {
		parts[i] = s.String()
	}
	return strings.Join(parts, ",")
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
// #endregion helpers
