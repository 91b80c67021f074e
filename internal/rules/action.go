package rules

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/danielpatrickdp/rulenet/internal/numdict"
	"github.com/danielpatrickdp/rulenet/internal/packets"
	"github.com/danielpatrickdp/rulenet/internal/propagate"
	"github.com/danielpatrickdp/rulenet/internal/symbols"
)

// DefaultTemperature is the selection temperature used when none is given.
const DefaultTemperature = 0.01

// #region action-rules

// ActionRules propagates strength from condition chunks to action chunks.
// Rules compete through a Boltzmann draw; only the selected rule's strength
// reaches its conclusion.
type ActionRules struct {
	propagate.Activation
	source      symbols.Symbol
	rules       *Rules
	temperature float64
	rng         *rand.Rand
}

var _ propagate.Propagator[any, numdict.NumDict, packets.ActivationPacket] = (*ActionRules)(nil)

// ActionOption configures an ActionRules propagator.
type ActionOption func(*ActionRules)

// WithTemperature sets the selection temperature. Lower is greedier.
func WithTemperature(t float64) ActionOption {
	return func(a *ActionRules) { a.temperature = t }
}

// WithRand sets the random source used for selection.
func WithRand(rng *rand.Rand) ActionOption {
	return func(a *ActionRules) { a.rng = rng }
}

// NewActionRules builds an action rule propagator. The database must be
// limited to single-condition rules.
func NewActionRules(source symbols.Symbol, rules *Rules, opts ...ActionOption) (*ActionRules, error) {
	if n, ok := rules.MaxConds(); !ok || n != 1 {
		return nil, ErrMaxConds
	}
	a := &ActionRules{
		source:      source,
		rules:       rules,
		temperature: DefaultTemperature,
	}
	a.Matches = symbols.MatchConstructs(source)
	for _, opt := range opts {
		opt(a)
	}
	if !(a.temperature > 0) || math.IsInf(a.temperature, 0) {
		return nil, fmt.Errorf("%w: temperature must be positive, got %g", propagate.ErrValue, a.temperature)
	}
	if a.rng == nil {
		a.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return a, nil
}

// Serves returns the construct type this propagator implements.
func (a *ActionRules) Serves() symbols.ConstructType { return symbols.FlowType }

// Expected lists the single upstream dependency.
func (a *ActionRules) Expected() []symbols.Symbol { return []symbols.Symbol{a.source} }

// Temperature returns the selection temperature.
func (a *ActionRules) Temperature() float64 { return a.temperature }

// Rules returns the database the propagator reads.
func (a *ActionRules) Rules() *Rules { return a.rules }

// Clone copies the propagator with its own random source, seeded from this one.
func (a *ActionRules) Clone() (propagate.Propagator[any, numdict.NumDict, packets.ActivationPacket], error) {
	cp := &ActionRules{
		source:      a.source,
		rules:       a.rules,
		temperature: a.temperature,
		rng:         rand.New(rand.NewPCG(a.rng.Uint64(), a.rng.Uint64())),
	}
	cp.Matches = a.Matches.Clone()
	return cp, nil
}

// Call selects one rule and propagates its strength to its conclusion. The
// output holds the selected rule id and its conclusion; zero strengths are
// dropped. It accepts no options.
func (a *ActionRules) Call(
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

	byRule, selection, err := a.choose(strengths)
	if err != nil {
		return numdict.NumDict{}, err
	}
	if byRule.Len() == 0 {
		return numdict.Empty(0), nil
	}

	chosen := numdict.Squeeze(numdict.Mul(byRule, selection))
	concs := numdict.TransformKeys(chosen, func(id symbols.Symbol) symbols.Symbol {
		form, _ := a.rules.Get(id)
		return form.Conclusion()
	}, math.Max)

	return numdict.Squeeze(numdict.Max(chosen, concs)), nil
}

// choose computes every rule's strength and draws a one-hot selection.
func (a *ActionRules) choose(strengths numdict.NumDict) (byRule, selection numdict.NumDict, err error) {
	d := numdict.NewMutable(0)
	for _, id := range a.rules.IDs() {
		form, _ := a.rules.Get(id)
		d.Set(id, form.Strength(strengths))
	}
	byRule = d.Freeze()
	if byRule.Len() == 0 {
		return byRule, numdict.Empty(0), nil
	}

	probs, err := numdict.Boltzmann(byRule, a.temperature)
	if err != nil {
		return byRule, numdict.NumDict{}, fmt.Errorf("%w: %v", propagate.ErrValue, err)
	}
	selection, err = numdict.Draw(probs, 1, a.rng)
	if err != nil {
		return byRule, numdict.NumDict{}, fmt.Errorf("%w: %v", propagate.ErrValue, err)
	}
	return byRule, selection, nil
}

// #endregion action-rules
