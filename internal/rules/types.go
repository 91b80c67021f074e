package rules

import (
	"fmt"

	"github.com/danielpatrickdp/rulenet/internal/numdict"
	"github.com/danielpatrickdp/rulenet/internal/propagate"
	"github.com/danielpatrickdp/rulenet/internal/symbols"
)

// #region errors

// Rule database errors. Each wraps propagate.ErrValue.
var (
	ErrInvalidRule       = fmt.Errorf("%w: invalid rule", propagate.ErrValue)
	ErrTooManyConditions = fmt.Errorf("%w: too many conditions", propagate.ErrValue)
	ErrPendingRequest    = fmt.Errorf("%w: update already pending", propagate.ErrValue)
	ErrNotMember         = fmt.Errorf("%w: no such rule", propagate.ErrValue)
	ErrConflict          = fmt.Errorf("%w: rule id holds a different form", propagate.ErrValue)
	ErrMaxConds          = fmt.Errorf("%w: database must be limited to single-condition rules", propagate.ErrValue)
)

// #endregion errors

// #region rule

// Rule maps weighted condition chunks to one conclusion chunk. Rules are
// immutable; build them with NewRule.
type Rule struct {
	conc    symbols.Symbol
	weights numdict.NumDict
}

// weightTolerance bounds float error when comparing rule forms and weight sums.
const weightTolerance = 1e-9

// #endregion rule

// #region resolution

// Resolution reports what a call to ResolveRequests applied.
type Resolution struct {
	Deleted []symbols.Symbol
	Added   []symbols.Symbol
}

// Empty reports whether nothing was applied.
func (r Resolution) Empty() bool {
	return len(r.Deleted) == 0 && len(r.Added) == 0
}

// ResolutionHook observes a database right after a non-empty resolution.
type ResolutionHook func(db *Rules, res Resolution) error

// #endregion resolution
