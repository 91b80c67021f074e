package rulefile

import (
	"fmt"

	"github.com/danielpatrickdp/rulenet/internal/rules"
	"github.com/danielpatrickdp/rulenet/internal/symbols"
)

// #region plan

// Plan computes the requests that make db hold exactly the file's rules.
// New and changed rules become adds; rules absent from the file become
// deletions. A file whose max_conds differs from the database's is rejected.
func Plan(db *rules.Rules, f *File) (Changes, error) {
	n, limited := db.MaxConds()
	switch {
	case f.MaxConds == nil && limited:
		return Changes{}, fmt.Errorf("%w: database limits rules to %d conditions, file sets no limit", ErrIncompatible, n)
	case f.MaxConds != nil && (!limited || *f.MaxConds != n):
		return Changes{}, fmt.Errorf("%w: file max_conds %d differs from database", ErrIncompatible, *f.MaxConds)
	}

	forms, err := f.Forms()
	if err != nil {
		return Changes{}, err
	}

	ch := Changes{Add: make(map[symbols.Symbol]rules.Rule)}
	for id, form := range forms {
		if limited && len(form.Conditions()) > n {
			return Changes{}, fmt.Errorf("rule %s: %w", id, rules.ErrTooManyConditions)
		}
		if cur, ok := db.Get(id); ok && cur.Equal(form) {
			continue
		}
		ch.Add[id] = form
	}
	for _, id := range db.IDs() {
		if _, ok := forms[id]; !ok {
			ch.Del = append(ch.Del, id)
		}
	}
	return ch, nil
}

// Apply enqueues ch against db. Nothing is enqueued if any id already has
// a pending request.
func Apply(db *rules.Rules, ch Changes) error {
	pending := symbols.NewSet(db.DelRequests()...)
	for id := range db.AddRequests() {
		pending[id] = struct{}{}
	}
	ids := make([]symbols.Symbol, 0, len(ch.Add))
	for id := range ch.Add {
		ids = append(ids, id)
	}
	symbols.Sort(ids)

	for _, id := range append(ids, ch.Del...) {
		if pending.Has(id) {
			return fmt.Errorf("%s: %w", id, rules.ErrPendingRequest)
		}
	}

	for _, id := range ch.Del {
		if err := db.RequestDel(id); err != nil {
			return err
		}
	}
	for _, id := range ids {
		if err := db.RequestAdd(id, ch.Add[id]); err != nil {
			return err
		}
	}
	return nil
}

// #endregion plan
