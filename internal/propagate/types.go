package propagate

import (
	"errors"

	"github.com/danielpatrickdp/rulenet/internal/symbols"
)

// #region errors

// Error taxonomy shared by every propagator. Concrete errors wrap one of these.
var (
	// ErrType marks an upstream input of the wrong type.
	ErrType = errors.New("type violation")
	// ErrValue marks a well-typed argument with an unacceptable value.
	ErrValue = errors.New("value violation")
	// ErrNotImplemented marks an abstract operation called without a concrete override.
	ErrNotImplemented = errors.New("not implemented")
)

// #endregion errors

// #region pull

// Options carries named per-call parameters. Propagators reject names they
// do not recognize.
type Options map[string]any

// Pull is a lazy input: Fn produces the current output of Source.
type Pull[I any] struct {
	Source symbols.Symbol
	Fn     func() (I, error)
}

// Inputs maps each upstream construct to its materialized output.
type Inputs[I any] map[symbols.Symbol]I

// #endregion pull

// #region propagator

// Propagator computes one construct's output from its upstream inputs.
// I is the input type, X the intermediate result, O the output packet.
type Propagator[I, X, O any] interface {
	// Expects reports whether the construct should be wired as an input.
	Expects(construct symbols.Symbol) bool
	// Clone returns an independently mutable copy for seeding another node.
	Clone() (Propagator[I, X, O], error)
	// Call computes the intermediate result from materialized inputs.
	Call(construct symbols.Symbol, inputs Inputs[I], opts Options) (X, error)
	// MakePacket wraps an intermediate result as the output packet.
	MakePacket(data X) (O, error)
}

// #endregion propagator

// #region cycle

// Cycle describes a container construct driven by a sequence of
// sub-propagators. The sequence is executed by the surrounding runtime.
type Cycle[X, O any] interface {
	Expects(construct symbols.Symbol) bool
	// Output lists the construct categories the output packet is assembled from.
	Output() []symbols.ConstructType
	Sequence() []symbols.Symbol
	MakePacket(data X) (O, error)
}

// #endregion cycle
