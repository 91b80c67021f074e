package rules

import (
	"fmt"

	"github.com/danielpatrickdp/rulenet/internal/numdict"
	"github.com/danielpatrickdp/rulenet/internal/packets"
	"github.com/danielpatrickdp/rulenet/internal/propagate"
	"github.com/danielpatrickdp/rulenet/internal/symbols"
)

// #region associative-rules

// AssociativeRules propagates chunk strengths through associative rules.
// A conclusion's strength is the maximum strength over the rules that
// conclude it; each rule id also carries its own strength.
type AssociativeRules struct {
	propagate.Activation
	source symbols.Symbol
	rules  *Rules
}

var _ propagate.Propagator[any, numdict.NumDict, packets.ActivationPacket] = (*AssociativeRules)(nil)

// NewAssociativeRules builds a propagator reading strengths from source.
// rules is shared, not copied: its updater and this propagator see the
// same database.
func NewAssociativeRules(source symbols.Symbol, rules *Rules) *AssociativeRules {
	a := &AssociativeRules{source: source, rules: rules}
	a.Matches = symbols.MatchConstructs(source)
	return a
}

// Serves returns the construct type this propagator implements.
func (a *AssociativeRules) Serves() symbols.ConstructType { return symbols.FlowType }

// Expected lists the single upstream dependency.
func (a *AssociativeRules) Expected() []symbols.Symbol { return []symbols.Symbol{a.source} }

// Rules returns the database the propagator reads.
func (a *AssociativeRules) Rules() *Rules { return a.rules }

// Clone copies the propagator; the clone reads the same database.
func (a *AssociativeRules) Clone() (propagate.Propagator[any, numdict.NumDict, packets.ActivationPacket], error) {
	cp := &AssociativeRules{source: a.source, rules: a.rules}
	cp.Matches = a.Matches.Clone()
	return cp, nil
}

// Call computes rule and conclusion strengths. It accepts no options.
func (a *AssociativeRules) Call(
	_ symbols.Symbol,
	inputs propagate.Inputs[any],
	opts propagate.Options,
) (numdict.NumDict, error) {
	if err := propagate.CheckOptions(opts); err != nil {
		return numdict.NumDict{}, err
	}
	strengths, err := sourceStrengths(inputs, a.source)
	if err != nil {
		return numdict.NumDict{}, err
	}

	d := numdict.NewMutable(0)
	for _, id := range a.rules.IDs() {
		form, _ := a.rules.Get(id)
		s := form.Strength(strengths)
		d.SetMax(form.Conclusion(), s)
		d.Set(id, s)
	}
	d.Squeeze()

	return d.Freeze(), nil
}

// #endregion associative-rules

// #region input

// sourceStrengths pulls the source's mapping out of inputs.
func sourceStrengths(inputs propagate.Inputs[any], source symbols.Symbol) (numdict.NumDict, error) {
	v, ok := inputs[source]
	if !ok {
		return numdict.NumDict{}, fmt.Errorf("%w: no input from %s", propagate.ErrValue, source)
	}
	switch d := v.(type) {
	case numdict.NumDict:
		return d, nil
	case *numdict.MutableNumDict:
		return d.Freeze(), nil
	default:
		return numdict.NumDict{}, fmt.Errorf("%w: input from %s must be a NumDict, got %T", propagate.ErrType, source, v)
	}
}

// #endregion input
