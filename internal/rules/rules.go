// Package rules provides weighted condition/conclusion rules, a rule
// database with a two-phase request/resolve update protocol, and the
// associative and action rule propagators that infer over it.
package rules

import (
	"fmt"

	"github.com/danielpatrickdp/rulenet/internal/symbols"
)

// #region rules-struct

// Rules is a mutable rule database keyed by rule symbol.
//
// Updates from other actors go through RequestAdd and RequestDel and take
// effect only when ResolveRequests runs. The database does no locking: the
// scheduler must never interleave resolution with inference over the same
// database.
type Rules struct {
	data     map[symbols.Symbol]Rule
	maxConds int
	limited  bool

	addRequests map[symbols.Symbol]Rule
	delRequests map[symbols.Symbol]struct{}

	updater *Updater
}

// #endregion rules-struct

// #region constructor

type config struct {
	maxConds *int
	data     map[symbols.Symbol]Rule
}

// Option configures a new Rules database.
type Option func(*config)

// WithMaxConds caps the number of distinct conditions per rule.
func WithMaxConds(n int) Option {
	return func(c *config) { c.maxConds = &n }
}

// WithData seeds the database. Seed rules are validated like any insert.
func WithData(data map[symbols.Symbol]Rule) Option {
	return func(c *config) { c.data = data }
}

// New creates a rule database.
func New(opts ...Option) (*Rules, error) {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	r := &Rules{
		data:        make(map[symbols.Symbol]Rule, len(cfg.data)),
		addRequests: make(map[symbols.Symbol]Rule),
		delRequests: make(map[symbols.Symbol]struct{}),
	}
	if cfg.maxConds != nil {
		if *cfg.maxConds < 0 {
			return nil, fmt.Errorf("%w: max conditions must be non-negative, got %d", ErrInvalidRule, *cfg.maxConds)
		}
		r.maxConds = *cfg.maxConds
		r.limited = true
	}
	if err := r.Update(cfg.data); err != nil {
		return nil, err
	}
	r.updater = newUpdater(r)
	return r, nil
}

// #endregion constructor

// #region accessors

// MaxConds returns the condition cap and whether one is set.
func (r *Rules) MaxConds() (int, bool) {
	return r.maxConds, r.limited
}

// Len returns the number of stored rules.
func (r *Rules) Len() int { return len(r.data) }

// Get returns the rule stored under id.
func (r *Rules) Get(id symbols.Symbol) (Rule, bool) {
	form, ok := r.data[id]
	return form, ok
}

// Contains reports whether id is a member.
func (r *Rules) Contains(id symbols.Symbol) bool {
	_, ok := r.data[id]
	return ok
}

// IDs returns member ids in sorted order.
func (r *Rules) IDs() []symbols.Symbol {
	ids := make([]symbols.Symbol, 0, len(r.data))
	for id := range r.data {
		ids = append(ids, id)
	}
	symbols.Sort(ids)
	return ids
}

// ContainsForm reports whether any stored rule equals form.
func (r *Rules) ContainsForm(form Rule) bool {
	for _, entry := range r.data {
		if entry.Equal(form) {
			return true
		}
	}
	return false
}

// Updater returns the update-phase hook bound to this database.
func (r *Rules) Updater() *Updater { return r.updater }

// #endregion accessors

// #region direct-mutation

// Set stores form under id, replacing any previous entry.
func (r *Rules) Set(id symbols.Symbol, form Rule) error {
	if err := r.validate(form); err != nil {
		return fmt.Errorf("set %s: %w", id, err)
	}
	r.data[id] = form
	return nil
}

// Update stores every entry of data. Nothing is stored if any entry is invalid.
func (r *Rules) Update(data map[symbols.Symbol]Rule) error {
	for _, id := range sortedIDs(data) {
		if err := r.validate(data[id]); err != nil {
			return fmt.Errorf("update %s: %w", id, err)
		}
	}
	for id, form := range data {
		r.data[id] = form
	}
	return nil
}

// Delete removes id.
func (r *Rules) Delete(id symbols.Symbol) error {
	if _, ok := r.data[id]; !ok {
		return fmt.Errorf("delete %s: %w", id, ErrNotMember)
	}
	delete(r.data, id)
	return nil
}

// Define builds a rule and stores it under id, returning id. Defining the
// same form twice is a no-op; defining a different form under an occupied
// id fails with ErrConflict.
func (r *Rules) Define(
	id symbols.Symbol,
	conc symbols.Symbol,
	conds []symbols.Symbol,
	weights map[symbols.Symbol]float64,
) (symbols.Symbol, error) {
	form, err := NewRule(conc, conds, weights)
	if err != nil {
		return id, fmt.Errorf("define %s: %w", id, err)
	}
	if existing, ok := r.data[id]; ok {
		if existing.Equal(form) {
			return id, nil
		}
		return id, fmt.Errorf("define %s: %w", id, ErrConflict)
	}
	if err := r.Set(id, form); err != nil {
		return id, err
	}
	return id, nil
}

// #endregion direct-mutation

// #region requests

// RequestAdd registers form to be stored under id at the next resolution,
// overwriting any member with that id. At most one request may be pending
// per id.
func (r *Rules) RequestAdd(id symbols.Symbol, form Rule) error {
	if r.pending(id) {
		return fmt.Errorf("request add %s: %w", id, ErrPendingRequest)
	}
	if err := r.validate(form); err != nil {
		return fmt.Errorf("request add %s: %w", id, err)
	}
	r.addRequests[id] = form
	return nil
}

// RequestDel registers id for removal at the next resolution. id must be a
// member and have no pending request.
func (r *Rules) RequestDel(id symbols.Symbol) error {
	if r.pending(id) {
		return fmt.Errorf("request del %s: %w", id, ErrPendingRequest)
	}
	if !r.Contains(id) {
		return fmt.Errorf("request del %s: %w", id, ErrNotMember)
	}
	r.delRequests[id] = struct{}{}
	return nil
}

// AddRequests returns a copy of the pending insertions.
func (r *Rules) AddRequests() map[symbols.Symbol]Rule {
	cp := make(map[symbols.Symbol]Rule, len(r.addRequests))
	for id, form := range r.addRequests {
		cp[id] = form
	}
	return cp
}

// DelRequests returns the pending deletions in sorted order.
func (r *Rules) DelRequests() []symbols.Symbol {
	ids := make([]symbols.Symbol, 0, len(r.delRequests))
	for id := range r.delRequests {
		ids = append(ids, id)
	}
	symbols.Sort(ids)
	return ids
}

// ResolveRequests applies pending deletions, then pending insertions, then
// clears both. Insertions are revalidated first; if any fails, nothing is
// applied and the pending requests are kept.
func (r *Rules) ResolveRequests() (Resolution, error) {
	adds := sortedIDs(r.addRequests)
	for _, id := range adds {
		if err := r.validate(r.addRequests[id]); err != nil {
			return Resolution{}, fmt.Errorf("resolve %s: %w", id, err)
		}
	}

	var res Resolution
	for _, id := range r.DelRequests() {
		delete(r.data, id)
		res.Deleted = append(res.Deleted, id)
	}
	for _, id := range adds {
		r.data[id] = r.addRequests[id]
		res.Added = append(res.Added, id)
	}

	clear(r.delRequests)
	clear(r.addRequests)
	return res, nil
}

func (r *Rules) pending(id symbols.Symbol) bool {
	if _, ok := r.addRequests[id]; ok {
		return true
	}
	_, ok := r.delRequests[id]
	return ok
}

// #endregion requests

// #region validation

func (r *Rules) validate(form Rule) error {
	if r.limited && form.weights.Len() > r.maxConds {
		return fmt.Errorf("%w: rule has %d conditions, maximum is %d",
			ErrTooManyConditions, form.weights.Len(), r.maxConds)
	}
	return nil
}

func sortedIDs(m map[symbols.Symbol]Rule) []symbols.Symbol {
	ids := make([]symbols.Symbol, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	symbols.Sort(ids)
	return ids
}

// #endregion validation
