package rules

import (
	"fmt"

	"github.com/danielpatrickdp/rulenet/internal/propagate"
	"github.com/danielpatrickdp/rulenet/internal/symbols"
	"go.uber.org/zap"
)

// #region updater

// Updater flushes a database's pending requests once per update phase.
// Requests are assumed to come from constructs inside the container that
// owns the database.
type Updater struct {
	rules  *Rules
	logger *zap.Logger
	hooks  []ResolutionHook
}

func newUpdater(r *Rules) *Updater {
	return &Updater{rules: r, logger: zap.NewNop()}
}

// SetLogger replaces the updater's logger. A nil logger disables logging.
func (u *Updater) SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	u.logger = l
}

// OnResolve registers a hook run after every non-empty resolution.
func (u *Updater) OnResolve(h ResolutionHook) {
	u.hooks = append(u.hooks, h)
}

// Serves returns the scope the updater runs at.
func (u *Updater) Serves() symbols.ConstructType { return symbols.ContainerType }

// Expected is empty: resolution needs no upstream input.
func (u *Updater) Expected() []symbols.Symbol { return nil }

// Call resolves all outstanding requests. inputs, output and updateData are
// accepted for protocol compatibility and ignored.
func (u *Updater) Call(inputs propagate.Inputs[any], output any, updateData map[symbols.Symbol]any) error {
	res, err := u.rules.ResolveRequests()
	if err != nil {
		u.logger.Warn("rule resolution failed", zap.Error(err))
		return err
	}
	if res.Empty() {
		u.logger.Debug("no rule requests pending")
		return nil
	}

	u.logger.Info("resolved rule requests",
		zap.Int("added", len(res.Added)),
		zap.Int("deleted", len(res.Deleted)),
		zap.Int("size", u.rules.Len()))

	for _, h := range u.hooks {
		if err := h(u.rules, res); err != nil {
			return fmt.Errorf("resolution hook: %w", err)
		}
	}
	return nil
}

// #endregion updater
