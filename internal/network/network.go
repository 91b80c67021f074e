// Package network hosts propagators as nodes and evaluates them on demand.
// Each step runs one propagation phase, pulling targets and their upstream
// constructs recursively, followed by one update phase.
package network

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/danielpatrickdp/rulenet/internal/packets"
	"github.com/danielpatrickdp/rulenet/internal/propagate"
	"github.com/danielpatrickdp/rulenet/internal/symbols"
	"go.uber.org/zap"
)

var (
	ErrCycle     = errors.New("dependency cycle")
	ErrUnknown   = errors.New("unknown construct")
	ErrDuplicate = errors.New("construct already registered")
)

// #region types

// Node is a construct the network can evaluate.
type Node interface {
	Expected() []symbols.Symbol
	Run(construct symbols.Symbol, pulls []propagate.Pull[any], opts propagate.Options) (any, error)
}

// Updater runs once per step after every target has been evaluated.
type Updater interface {
	Call(inputs propagate.Inputs[any], output any, updateData map[symbols.Symbol]any) error
}

type propagatorNode[X, O any] struct {
	p        propagate.Propagator[any, X, O]
	expected []symbols.Symbol
}

// Propagate adapts p into a Node pulling from expected, in order.
func Propagate[X, O any](p propagate.Propagator[any, X, O], expected ...symbols.Symbol) Node {
	return &propagatorNode[X, O]{p: p, expected: append([]symbols.Symbol(nil), expected...)}
}

func (n *propagatorNode[X, O]) Expected() []symbols.Symbol { return n.expected }

func (n *propagatorNode[X, O]) Run(construct symbols.Symbol, pulls []propagate.Pull[any], opts propagate.Options) (any, error) {
	out, err := propagate.Execute(n.p, construct, pulls, opts)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// #endregion types

// #region network

// Network evaluates nodes lazily. It is not safe for concurrent use.
type Network struct {
	nodes    map[symbols.Symbol]Node
	options  map[symbols.Symbol]propagate.Options
	inputs   map[symbols.Symbol]any
	updaters []Updater
	logger   *zap.Logger

	cache map[symbols.Symbol]any
	stack []symbols.Symbol
}

// Option configures a Network.
type Option func(*Network)

// WithLogger sets the network's logger.
func WithLogger(l *zap.Logger) Option {
	return func(n *Network) {
		if l != nil {
			n.logger = l
		}
	}
}

// New creates an empty network.
func New(opts ...Option) *Network {
	n := &Network{
		nodes:   make(map[symbols.Symbol]Node),
		options: make(map[symbols.Symbol]propagate.Options),
		inputs:  make(map[symbols.Symbol]any),
		cache:   make(map[symbols.Symbol]any),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Add registers node under sym. opts are passed to every evaluation.
func (n *Network) Add(sym symbols.Symbol, node Node, opts propagate.Options) error {
	if _, ok := n.nodes[sym]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, sym)
	}
	if _, ok := n.inputs[sym]; ok {
		return fmt.Errorf("%w: %s is an input", ErrDuplicate, sym)
	}
	n.nodes[sym] = node
	n.options[sym] = opts
	return nil
}

// SetInput fixes the value of a stimulus construct. Inputs are read as-is.
func (n *Network) SetInput(sym symbols.Symbol, value any) error {
	if _, ok := n.nodes[sym]; ok {
		return fmt.Errorf("%w: %s is a node", ErrDuplicate, sym)
	}
	n.inputs[sym] = value
	delete(n.cache, sym)
	return nil
}

// AddUpdater appends u to the update phase.
func (n *Network) AddUpdater(u Updater) {
	n.updaters = append(n.updaters, u)
}

// #endregion network

// #region evaluation

// Pull returns sym's output for the current step, evaluating it and its
// dependencies if needed. Results are memoized until the next Step.
func (n *Network) Pull(sym symbols.Symbol) (any, error) {
	if v, ok := n.cache[sym]; ok {
		return v, nil
	}
	if v, ok := n.inputs[sym]; ok {
		return v, nil
	}
	node, ok := n.nodes[sym]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknown, sym)
	}
	for i, s := range n.stack {
		if s == sym {
			return nil, fmt.Errorf("%w: %s", ErrCycle, cyclePath(n.stack[i:], sym))
		}
	}

	n.stack = append(n.stack, sym)
	defer func() { n.stack = n.stack[:len(n.stack)-1] }()

	expected := node.Expected()
	pulls := make([]propagate.Pull[any], 0, len(expected))
	for _, dep := range expected {
		pulls = append(pulls, propagate.Pull[any]{Source: dep, Fn: func() (any, error) {
			v, err := n.Pull(dep)
			if err != nil {
				return nil, err
			}
			if d, ok := packets.Payload(v); ok {
				return d, nil
			}
			return v, nil
		}})
	}

	out, err := node.Run(sym, pulls, n.options[sym])
	if err != nil {
		return nil, err
	}
	n.logger.Debug("evaluated construct", zap.Stringer("construct", sym))
	n.cache[sym] = out
	return out, nil
}

// Step clears memoized outputs, evaluates targets, then runs every updater
// with the step's outputs. Updaters never run if propagation fails.
func (n *Network) Step(ctx context.Context, targets ...symbols.Symbol) (map[symbols.Symbol]any, error) {
	clear(n.cache)
	n.stack = n.stack[:0]

	outputs := make(map[symbols.Symbol]any, len(targets))
	for _, sym := range targets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v, err := n.Pull(sym)
		if err != nil {
			n.logger.Warn("propagation failed", zap.Stringer("target", sym), zap.Error(err))
			return nil, err
		}
		outputs[sym] = v
	}

	inputs := make(propagate.Inputs[any], len(outputs))
	for k, v := range outputs {
		inputs[k] = v
	}
	for i, u := range n.updaters {
		if err := u.Call(inputs, nil, nil); err != nil {
			return outputs, fmt.Errorf("updater %d: %w", i, err)
		}
	}

	n.logger.Debug("step complete",
		zap.Int("targets", len(targets)),
		zap.Int("evaluated", len(n.cache)),
		zap.Int("updaters", len(n.updaters)))
	return outputs, nil
}

func cyclePath(path []symbols.Symbol, back symbols.Symbol) string {
	parts := make([]string, 0, len(path)+1)
	for _, s := range path {
		parts = append(parts, s.String())
	}
	parts = append(parts, back.String())
	return strings.Join(parts, " -> ")
}

// #endregion evaluation
