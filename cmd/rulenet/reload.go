package main

import (
	"errors"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/rulenet/internal/rulefile"
	"github.com/danielpatrickdp/rulenet/internal/rules"
	"github.com/danielpatrickdp/rulenet/internal/symbols"
)

// #region reloader
// reloader turns rule file edits into pending requests. They resolve with the
// next step alongside any client requests. A file that collides with a pending
// request is kept and retried once that step has resolved.
//
// Calls must be serialized with steps; serve runs them under the server lock.
type reloader struct {
	retry  *rulefile.File
	queued symbols.Set
	logger *zap.Logger
}

func newReloader(logger *zap.Logger) *reloader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &reloader{queued: symbols.NewSet(), logger: logger}
}

// apply plans f against db and enqueues the changes. The latest file wins:
// a newer edit replaces any file waiting for a retry.
func (r *reloader) apply(db *rules.Rules, f *rulefile.File) error {
	r.retry = nil
	ch, err := rulefile.Plan(db, f)
	if err != nil {
		return err
	}
	if ch.Empty() {
		return nil
	}
	if err := rulefile.Apply(db, ch); err != nil {
		if errors.Is(err, rules.ErrPendingRequest) {
			r.retry = f
			r.logger.Info("rule file deferred until next step", zap.Error(err))
		}
		return err
	}
	for id := range ch.Add {
		r.queued[id] = struct{}{}
	}
	for _, id := range ch.Del {
		r.queued[id] = struct{}{}
	}
	r.logger.Info("rule file changes queued", zap.Int("add", len(ch.Add)), zap.Int("del", len(ch.Del)))
	return nil
}

// reason names what triggered res for the resolution log.
func (r *reloader) reason(res rules.Resolution) string {
	var fromFile, fromRequest bool
	for _, id := range append(append([]symbols.Symbol(nil), res.Deleted...), res.Added...) {
		if r.queued.Has(id) {
			fromFile = true
		} else {
			fromRequest = true
		}
	}
	switch {
	case fromFile && fromRequest:
		return "reload,request"
	case fromFile:
		return "reload"
	default:
		return "request"
	}
}

// hook clears resolved file ids and retries a deferred file. It must be
// registered after any hook that calls reason.
func (r *reloader) hook(db *rules.Rules, res rules.Resolution) error {
	r.queued = symbols.NewSet()
	f := r.retry
	if f == nil {
		return nil
	}
	if err := r.apply(db, f); err != nil && r.retry == nil {
		r.logger.Warn("deferred rule file not applied", zap.Error(err))
	}
	return nil
}
// #endregion reloader
