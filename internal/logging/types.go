package logging

import "time"

// #region resolution-entry
// ResolutionEntry is a single row in the resolution_log table.
type ResolutionEntry struct {
	VersionID   string
	TriggerType string // "resolve" | "rollback" | "load"
	Added       string // comma-separated rule symbols
	Deleted     string
	RuleCount   int
	Reason      string
	CreatedAt   time.Time
}
// #endregion resolution-entry
