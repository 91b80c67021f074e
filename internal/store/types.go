package store

import (
	"errors"
	"time"
)

// ErrNoSnapshot is returned when no snapshot has been activated yet.
var ErrNoSnapshot = errors.New("no active snapshot")

// #region snapshot
// Snapshot is a versioned copy of a rule database.
type Snapshot struct {
	VersionID string
	ParentID  string
	MaxConds  *int
	Rules     []SnapshotRule
	CreatedAt time.Time
}

// SnapshotRule is one rule in a snapshot. Symbols are stored in text form.
type SnapshotRule struct {
	ID         string             `json:"id"`
	Conclusion string             `json:"conclusion"`
	Weights    map[string]float64 `json:"weights"`
}
// #endregion snapshot
