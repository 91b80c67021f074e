// Package propagate defines the pull-based propagation contracts: a
// Propagator turns named upstream outputs into one construct's packet, a
// Cycle assembles a container construct's packet from its members.
package propagate

import (
	"fmt"
	"sort"

	"github.com/danielpatrickdp/rulenet/internal/numdict"
	"github.com/danielpatrickdp/rulenet/internal/packets"
	"github.com/danielpatrickdp/rulenet/internal/symbols"
)

// #region execute

// Execute runs a construct's forward propagation: every pull function is
// invoked exactly once in slice order, the materialized inputs are passed to
// p.Call, and the result is wrapped by p.MakePacket. Pulls may recursively
// trigger further propagation; cycle detection is the caller's concern.
func Execute[I, X, O any](
	p Propagator[I, X, O],
	construct symbols.Symbol,
	pulls []Pull[I],
	opts Options,
) (O, error) {
	var zero O

	inputs := make(Inputs[I], len(pulls))
	for _, pl := range pulls {
		v, err := pl.Fn()
		if err != nil {
			return zero, fmt.Errorf("pull %s for %s: %w", pl.Source, construct, err)
		}
		inputs[pl.Source] = v
	}

	data, err := p.Call(construct, inputs, opts)
	if err != nil {
		return zero, fmt.Errorf("call %s: %w", construct, err)
	}

	out, err := p.MakePacket(data)
	if err != nil {
		return zero, fmt.Errorf("packet %s: %w", construct, err)
	}
	return out, nil
}

// #endregion execute

// #region options

// CheckOptions returns an ErrValue error naming every key of opts not in allowed.
func CheckOptions(opts Options, allowed ...string) error {
	var unknown []string
	for k := range opts {
		ok := false
		for _, a := range allowed {
			if k == a {
				ok = true
				break
			}
		}
		if !ok {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return fmt.Errorf("%w: unexpected options %v", ErrValue, unknown)
}

// #endregion options

// #region base

// Base supplies the match predicate and the abstract operations. Concrete
// propagators embed a specialization of Base and override Call and Clone.
type Base[I, X, O any] struct {
	Matches symbols.MatchSpec
}

// Expects reports whether construct satisfies the match predicate.
func (b Base[I, X, O]) Expects(construct symbols.Symbol) bool {
	return b.Matches.Contains(construct)
}

// Clone fails; propagators with state must override it.
func (b Base[I, X, O]) Clone() (Propagator[I, X, O], error) {
	return nil, fmt.Errorf("clone: %w", ErrNotImplemented)
}

// Call fails; concrete propagators must override it.
func (b Base[I, X, O]) Call(symbols.Symbol, Inputs[I], Options) (X, error) {
	var zero X
	return zero, fmt.Errorf("call: %w", ErrNotImplemented)
}

// MakePacket fails; specializations below override it.
func (b Base[I, X, O]) MakePacket(X) (O, error) {
	var zero O
	return zero, fmt.Errorf("make packet: %w", ErrNotImplemented)
}

// #endregion base

// #region specializations

// Activation is the base for node and flow propagators: strengths in,
// strengths out.
type Activation struct {
	Base[any, numdict.NumDict, packets.ActivationPacket]
}

// MakePacket wraps strengths in an ActivationPacket.
func (Activation) MakePacket(data numdict.NumDict) (packets.ActivationPacket, error) {
	return packets.ActivationPacket{Mapping: data}, nil
}

// Responder is the base for response-selection propagators.
type Responder struct {
	Base[any, packets.Decision, packets.ResponsePacket]
}

// MakePacket wraps a decision in a ResponsePacket.
func (Responder) MakePacket(data packets.Decision) (packets.ResponsePacket, error) {
	sel := data.Selection
	if sel == nil {
		sel = symbols.NewSet()
	}
	return packets.ResponsePacket{Mapping: data.Mapping, Selection: sel}, nil
}

// BufferBase is the base for buffers, which read subsystem packets and emit
// activations.
type BufferBase struct {
	Base[packets.SubsystemPacket, numdict.NumDict, packets.ActivationPacket]
}

// MakePacket wraps strengths in an ActivationPacket.
func (BufferBase) MakePacket(data numdict.NumDict) (packets.ActivationPacket, error) {
	return packets.ActivationPacket{Mapping: data}, nil
}

// #endregion specializations
