package rules

import (
	"fmt"
	"math"
	"strings"

	"github.com/danielpatrickdp/rulenet/internal/numdict"
	"github.com/danielpatrickdp/rulenet/internal/symbols"
)

// #region new-rule

// NewRule builds a rule concluding conc from conds.
//
// Conditions missing from weights get weight 1. Explicit weights must name
// conditions and be strictly positive. If the weights sum to more than 1
// they are divided by their sum, which keeps their ratios and caps the
// total at 1. A nil weights map gives every condition weight 1 before
// normalization.
func NewRule(conc symbols.Symbol, conds []symbols.Symbol, weights map[symbols.Symbol]float64) (Rule, error) {
	condSet := symbols.NewSet(conds...)
	for k, w := range weights {
		if !condSet.Has(k) {
			return Rule{}, fmt.Errorf("%w: weight given for %s, which is not a condition", ErrInvalidRule, k)
		}
		if !(w > 0) || math.IsInf(w, 0) {
			return Rule{}, fmt.Errorf("%w: weight %g for %s must be strictly positive", ErrInvalidRule, w, k)
		}
	}

	ws := numdict.NewMutable(0)
	for k, w := range weights {
		ws.Set(k, w)
	}
	ws.Extend(conds, 1.0)

	frozen := ws.Freeze()
	if sum := numdict.Sum(frozen); sum > 1.0 {
		frozen = numdict.DivScalar(frozen, sum)
	}

	return Rule{conc: conc, weights: frozen}, nil
}

// MustRule is NewRule for static tables; it panics on error.
func MustRule(conc symbols.Symbol, conds []symbols.Symbol, weights map[symbols.Symbol]float64) Rule {
	r, err := NewRule(conc, conds, weights)
	if err != nil {
		panic(err)
	}
	return r
}

// #endregion new-rule

// #region accessors

// Conclusion returns the rule's conclusion chunk.
func (r Rule) Conclusion() symbols.Symbol { return r.conc }

// Weights returns the condition weights.
func (r Rule) Weights() numdict.NumDict { return r.weights }

// Conditions returns the condition chunks in sorted order.
func (r Rule) Conditions() []symbols.Symbol { return r.weights.Keys() }

// Strength is the weighted sum of condition strengths. Conditions absent
// from strengths contribute its default.
func (r Rule) Strength(strengths numdict.NumDict) float64 {
	kept := numdict.Keep(strengths, r.weights.Keys())
	return numdict.Sum(numdict.Mul(kept, r.weights))
}

// Equal compares rule forms: same conclusion and weights within tolerance.
func (r Rule) Equal(o Rule) bool {
	return r.conc == o.conc && numdict.IsClose(r.weights, o.weights, weightTolerance)
}

func (r Rule) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Rule(conc=%s, weights={", r.conc)
	for i, k := range r.weights.Keys() {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %g", k, r.weights.Get(k))
	}
	b.WriteString("})")
	return b.String()
}

// #endregion accessors
