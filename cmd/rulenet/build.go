package main

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/rulenet/internal/network"
	"github.com/danielpatrickdp/rulenet/internal/numdict"
	"github.com/danielpatrickdp/rulenet/internal/packets"
	"github.com/danielpatrickdp/rulenet/internal/propagate"
	"github.com/danielpatrickdp/rulenet/internal/rules"
	"github.com/danielpatrickdp/rulenet/internal/symbols"
)

var stimulus = symbols.Buffer("stimulus")

// #region network
type buildOptions struct {
	Action      bool
	Temperature float64
	Seed        uint64
	Logger      *zap.Logger
}

// buildNetwork wires db into a one-node network reading from the stimulus
// buffer. It returns the network and the symbol of the rule construct.
func buildNetwork(db *rules.Rules, opts buildOptions) (*network.Network, symbols.Symbol, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		sym symbols.Symbol
		p   propagate.Propagator[any, numdict.NumDict, packets.ActivationPacket]
	)
	if opts.Action {
		aopts := []rules.ActionOption{rules.WithTemperature(opts.Temperature)}
		if opts.Seed != 0 {
			aopts = append(aopts, rules.WithRand(rand.New(rand.NewPCG(opts.Seed, opts.Seed))))
		}
		ar, err := rules.NewActionRules(stimulus, db, aopts...)
		if err != nil {
			return nil, symbols.Symbol{}, err
		}
		sym, p = symbols.Flow("action_rules"), ar
	} else {
		sym, p = symbols.Flow("associative_rules"), rules.NewAssociativeRules(stimulus, db)
	}

	n := network.New(network.WithLogger(logger))
	node := network.Propagate[numdict.NumDict, packets.ActivationPacket](p, stimulus)
	if err := n.Add(sym, node, nil); err != nil {
		return nil, symbols.Symbol{}, err
	}
	db.Updater().SetLogger(logger)
	n.AddUpdater(db.Updater())

	logger.Debug("network built",
		zap.Stringer("construct", sym),
		zap.Int("rules", db.Len()),
		zap.Bool("action", opts.Action))
	return n, sym, nil
}
// #endregion network

// #region input
// parseInput reads "a=0.6,chunk(b)=0.4" into chunk strengths.
func parseInput(s string) (numdict.NumDict, error) {
	d := numdict.NewMutable(0)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			return numdict.NumDict{}, fmt.Errorf("input %q: expected name=value", part)
		}
		sym, err := symbols.ParseRef(strings.TrimSpace(k), symbols.ChunkType)
		if err != nil {
			return numdict.NumDict{}, fmt.Errorf("input %q: %w", part, err)
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return numdict.NumDict{}, fmt.Errorf("input %q: %w", part, err)
		}
		d.Set(sym, f)
	}
	return d.Freeze(), nil
}
// #endregion input
