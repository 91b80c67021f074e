// Package service exposes a rule network over gRPC.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/rulenet/internal/network"
	"github.com/danielpatrickdp/rulenet/internal/numdict"
	"github.com/danielpatrickdp/rulenet/internal/packets"
	"github.com/danielpatrickdp/rulenet/internal/propagate"
	"github.com/danielpatrickdp/rulenet/internal/rules"
	"github.com/danielpatrickdp/rulenet/internal/symbols"
)

// #region server-struct
// Server runs inference steps over one network. Steps and request
// enqueueing are serialized so resolution never overlaps propagation.
type Server struct {
	mu     sync.Mutex
	net    *network.Network
	rules  *rules.Rules
	input  symbols.Symbol
	output symbols.Symbol
	logger *zap.Logger
}

var _ InferenceServer = (*Server)(nil)

// Config wires a Server to its network.
type Config struct {
	Network *network.Network
	Rules   *rules.Rules
	Input   symbols.Symbol // stimulus set from each Infer call
	Output  symbols.Symbol // construct whose packet is returned
	Logger  *zap.Logger
}

// NewServer creates a Server.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		net:    cfg.Network,
		rules:  cfg.Rules,
		input:  cfg.Input,
		output: cfg.Output,
		logger: logger,
	}
}
// #endregion server-struct

// #region infer
// Infer sets the stimulus, runs one step and returns the output mapping.
func (s *Server) Infer(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	strengths, err := decodeStrengths(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	out, err := s.Step(ctx, strengths)
	if err != nil {
		return nil, toStatus(err)
	}

	id := uuid.New().String()
	mapping := make(map[string]any, out.Len())
	out.Each(func(k symbols.Symbol, v float64) {
		mapping[k.String()] = v
	})
	resp, err := structpb.NewStruct(map[string]any{
		"request_id": id,
		"output":     mapping,
	})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	s.logger.Debug("inference served", zap.String("request_id", id), zap.Int("entries", out.Len()))
	return resp, nil
}

// Step runs one propagation and update phase with the given stimulus.
func (s *Server) Step(ctx context.Context, strengths numdict.NumDict) (numdict.NumDict, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.net.SetInput(s.input, strengths); err != nil {
		return numdict.NumDict{}, err
	}
	outs, err := s.net.Step(ctx, s.output)
	if err != nil {
		return numdict.NumDict{}, err
	}
	d, ok := packets.Payload(outs[s.output])
	if !ok {
		return numdict.NumDict{}, fmt.Errorf("%w: %s produced %T", propagate.ErrType, s.output, outs[s.output])
	}
	return d, nil
}
// #endregion infer

// #region request
// Request enqueues a rule addition or deletion. It takes effect at the end
// of the next step.
func (s *Server) Request(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	op := fields["op"].GetStringValue()
	id, err := symbols.ParseRef(fields["id"].GetStringValue(), symbols.RuleType)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	switch op {
	case "add":
		form, err := decodeRule(fields)
		if err != nil {
			return nil, toStatus(err)
		}
		err = s.Enqueue(func(db *rules.Rules) error { return db.RequestAdd(id, form) })
		if err != nil {
			return nil, toStatus(err)
		}
	case "del":
		if err := s.Enqueue(func(db *rules.Rules) error { return db.RequestDel(id) }); err != nil {
			return nil, toStatus(err)
		}
	default:
		return nil, status.Errorf(codes.InvalidArgument, "unknown op %q", op)
	}

	requestID := uuid.New().String()
	s.logger.Info("rule request queued", zap.String("op", op), zap.Stringer("rule", id), zap.String("request_id", requestID))
	return structpb.NewStruct(map[string]any{
		"request_id": requestID,
		"status":     "pending",
	})
}

// Enqueue runs fn against the rule database between steps.
func (s *Server) Enqueue(fn func(*rules.Rules) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.rules)
}
// #endregion request

// #region decoding
func decodeStrengths(req *structpb.Struct) (numdict.NumDict, error) {
	d := numdict.NewMutable(0)
	for k, v := range req.GetFields()["strengths"].GetStructValue().GetFields() {
		sym, err := symbols.ParseRef(k, symbols.ChunkType)
		if err != nil {
			return numdict.NumDict{}, err
		}
		num, ok := v.GetKind().(*structpb.Value_NumberValue)
		if !ok {
			return numdict.NumDict{}, fmt.Errorf("strength for %s must be a number", sym)
		}
		d.Set(sym, num.NumberValue)
	}
	return d.Freeze(), nil
}

func decodeRule(fields map[string]*structpb.Value) (rules.Rule, error) {
	conc, err := symbols.ParseRef(fields["conclusion"].GetStringValue(), symbols.ChunkType)
	if err != nil {
		return rules.Rule{}, fmt.Errorf("%w: conclusion: %v", propagate.ErrValue, err)
	}
	var conds []symbols.Symbol
	for _, v := range fields["conditions"].GetListValue().GetValues() {
		sym, err := symbols.ParseRef(v.GetStringValue(), symbols.ChunkType)
		if err != nil {
			return rules.Rule{}, fmt.Errorf("%w: condition: %v", propagate.ErrValue, err)
		}
		conds = append(conds, sym)
	}
	var weights map[symbols.Symbol]float64
	if w := fields["weights"].GetStructValue().GetFields(); len(w) > 0 {
		weights = make(map[symbols.Symbol]float64, len(w))
		for k, v := range w {
			sym, err := symbols.ParseRef(k, symbols.ChunkType)
			if err != nil {
				return rules.Rule{}, fmt.Errorf("%w: weight: %v", propagate.ErrValue, err)
			}
			weights[sym] = v.GetNumberValue()
		}
	}
	return rules.NewRule(conc, conds, weights)
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	case errors.Is(err, propagate.ErrType), errors.Is(err, propagate.ErrValue):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, network.ErrUnknown), errors.Is(err, network.ErrCycle):
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
// #endregion decoding
