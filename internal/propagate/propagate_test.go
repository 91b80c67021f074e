package propagate

import (
	"errors"
	"testing"

	"github.com/danielpatrickdp/rulenet/internal/numdict"
	"github.com/danielpatrickdp/rulenet/internal/packets"
	"github.com/danielpatrickdp/rulenet/internal/symbols"
)

// #region fixtures

// sumNode adds the strengths of every input into a single chunk.
type sumNode struct {
	Activation
	target symbols.Symbol
	scale  float64
}

func (s *sumNode) Clone() (Propagator[any, numdict.NumDict, packets.ActivationPacket], error) {
	cp := *s
	cp.Matches = s.Matches.Clone()
	return &cp, nil
}

func (s *sumNode) Call(_ symbols.Symbol, inputs Inputs[any], opts Options) (numdict.NumDict, error) {
	if err := CheckOptions(opts, "scale"); err != nil {
		return numdict.NumDict{}, err
	}
	scale := s.scale
	if v, ok := opts["scale"].(float64); ok {
		scale = v
	}
	var total float64
	for src, in := range inputs {
		d, ok := in.(numdict.NumDict)
		if !ok {
			return numdict.NumDict{}, errors.Join(ErrType, errors.New(src.String()))
		}
		total += numdict.Sum(d)
	}
	return numdict.New(map[symbols.Symbol]float64{s.target: total * scale}, 0), nil
}

func constPull(src symbols.Symbol, vals map[symbols.Symbol]float64, calls *[]symbols.Symbol) Pull[any] {
	return Pull[any]{Source: src, Fn: func() (any, error) {
		*calls = append(*calls, src)
		return numdict.New(vals, 0), nil
	}}
}

// #endregion fixtures

// #region execute-tests

func TestExecutePullsInOrderAndWraps(t *testing.T) {
	x, y := symbols.Chunk("x"), symbols.Chunk("y")
	p := &sumNode{target: symbols.Chunk("sum"), scale: 1}

	var calls []symbols.Symbol
	pulls := []Pull[any]{
		constPull(symbols.Buffer("b2"), map[symbols.Symbol]float64{x: 0.25}, &calls),
		constPull(symbols.Buffer("b1"), map[symbols.Symbol]float64{y: 0.5}, &calls),
	}

	out, err := Execute[any, numdict.NumDict, packets.ActivationPacket](p, symbols.Flow("f"), pulls, nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := out.Mapping.Get(symbols.Chunk("sum")); got != 0.75 {
		t.Fatalf("sum = %f, want 0.75", got)
	}
	if len(calls) != 2 || calls[0] != symbols.Buffer("b2") || calls[1] != symbols.Buffer("b1") {
		t.Fatalf("pull order = %v", calls)
	}
}

func TestExecuteStopsOnPullError(t *testing.T) {
	p := &sumNode{target: symbols.Chunk("sum"), scale: 1}
	boom := errors.New("boom")
	called := false
	pulls := []Pull[any]{
		{Source: symbols.Buffer("bad"), Fn: func() (any, error) { return nil, boom }},
		{Source: symbols.Buffer("never"), Fn: func() (any, error) { called = true; return numdict.Empty(0), nil }},
	}
	_, err := Execute[any, numdict.NumDict, packets.ActivationPacket](p, symbols.Flow("f"), pulls, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped pull error, got %v", err)
	}
	if called {
		t.Fatal("later pull ran after an earlier failure")
	}
}

func TestExecuteRejectsUnknownOptions(t *testing.T) {
	p := &sumNode{target: symbols.Chunk("sum"), scale: 1}
	_, err := Execute[any, numdict.NumDict, packets.ActivationPacket](p, symbols.Flow("f"), nil, Options{"scael": 2.0})
	if !errors.Is(err, ErrValue) {
		t.Fatalf("expected ErrValue, got %v", err)
	}

	out, err := Execute[any, numdict.NumDict, packets.ActivationPacket](p, symbols.Flow("f"), nil, Options{"scale": 2.0})
	if err != nil {
		t.Fatalf("known option rejected: %v", err)
	}
	if out.Mapping.Get(symbols.Chunk("sum")) != 0 {
		t.Fatalf("unexpected output %v", out.Mapping)
	}
}

func TestExecuteTypeViolation(t *testing.T) {
	p := &sumNode{target: symbols.Chunk("sum"), scale: 1}
	pulls := []Pull[any]{{Source: symbols.Buffer("b"), Fn: func() (any, error) { return "not a mapping", nil }}}
	_, err := Execute[any, numdict.NumDict, packets.ActivationPacket](p, symbols.Flow("f"), pulls, nil)
	if !errors.Is(err, ErrType) {
		t.Fatalf("expected ErrType, got %v", err)
	}
}

// #endregion execute-tests

// #region base-tests

func TestBaseOperationsAreAbstract(t *testing.T) {
	var b Base[any, numdict.NumDict, packets.ActivationPacket]
	if _, err := b.Clone(); !errors.Is(err, ErrNotImplemented) {
		t.Errorf("Clone: %v", err)
	}
	if _, err := b.Call(symbols.Flow("f"), nil, nil); !errors.Is(err, ErrNotImplemented) {
		t.Errorf("Call: %v", err)
	}
	if _, err := b.MakePacket(numdict.Empty(0)); !errors.Is(err, ErrNotImplemented) {
		t.Errorf("MakePacket: %v", err)
	}
}

func TestExpectsUsesMatchSpec(t *testing.T) {
	p := &sumNode{Activation: Activation{Base[any, numdict.NumDict, packets.ActivationPacket]{
		Matches: symbols.MatchTypes(symbols.BufferType),
	}}}
	if !p.Expects(symbols.Buffer("stim")) {
		t.Error("buffer should be expected")
	}
	if p.Expects(symbols.Chunk("c")) {
		t.Error("chunk should not be expected")
	}

	var zero sumNode
	if zero.Expects(symbols.Buffer("stim")) {
		t.Error("default match spec matches nothing")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	p := &sumNode{target: symbols.Chunk("sum"), scale: 1}
	cp, err := p.Clone()
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}
	cp.(*sumNode).scale = 3
	if p.scale != 1 {
		t.Fatal("clone shares state with template")
	}
}

func TestResponderAndBufferPackets(t *testing.T) {
	var r Responder
	pkt, err := r.MakePacket(packets.Decision{Mapping: numdict.Empty(0)})
	if err != nil {
		t.Fatalf("Responder.MakePacket: %v", err)
	}
	if pkt.Selection == nil || len(pkt.Selection) != 0 {
		t.Fatalf("expected empty selection set, got %v", pkt.Selection)
	}

	var bb BufferBase
	d := numdict.New(map[symbols.Symbol]float64{symbols.Chunk("a"): 1}, 0)
	ap, err := bb.MakePacket(d)
	if err != nil || ap.Mapping.Get(symbols.Chunk("a")) != 1 {
		t.Fatalf("BufferBase.MakePacket = %v, %v", ap, err)
	}
}

// #endregion base-tests

// #region cycle-tests

func TestSubsystemCycleMergesLastWins(t *testing.T) {
	a, b := symbols.Chunk("a"), symbols.Chunk("b")
	cyc := NewSubsystemCycle([]symbols.Symbol{symbols.Flow("f1"), symbols.Flow("f2")}, symbols.MatchSpec{})

	out := cyc.Output()
	if len(out) != 2 || out[0] != symbols.NodeType || out[1] != symbols.ResponseType {
		t.Fatalf("Output = %v", out)
	}

	resp := packets.ResponsePacket{Mapping: numdict.Empty(0), Selection: symbols.NewSet(a)}
	pkt, err := cyc.MakePacket(packets.SubsystemData{
		Members: []packets.Member{
			{Source: symbols.Flow("f1"), Packet: packets.ActivationPacket{Mapping: numdict.New(map[symbols.Symbol]float64{a: 0.2, b: 0.4}, 0)}},
			{Source: symbols.Flow("f2"), Packet: packets.ActivationPacket{Mapping: numdict.New(map[symbols.Symbol]float64{a: 0.9}, 0)}},
		},
		Decisions: map[symbols.Symbol]packets.ResponsePacket{symbols.Response("r"): resp},
	})
	if err != nil {
		t.Fatalf("MakePacket: %v", err)
	}
	if pkt.Mapping.Get(a) != 0.9 || pkt.Mapping.Get(b) != 0.4 {
		t.Fatalf("merged mapping = %v", pkt.Mapping)
	}
	if !pkt.Decisions[symbols.Response("r")].Selection.Has(a) {
		t.Fatal("decision not carried through")
	}
}

func TestCycleSequenceIsCopied(t *testing.T) {
	seq := []symbols.Symbol{symbols.Flow("f1")}
	cyc := NewAgentCycle(seq, symbols.MatchAll())
	seq[0] = symbols.Flow("changed")
	got := cyc.Sequence()
	if got[0] != symbols.Flow("f1") {
		t.Fatalf("sequence aliased caller slice: %v", got)
	}
	got[0] = symbols.Flow("again")
	if cyc.Sequence()[0] != symbols.Flow("f1") {
		t.Fatal("Sequence returned internal slice")
	}
	if !cyc.Expects(symbols.Subsystem("nacs")) {
		t.Error("MatchAll agent should expect subsystems")
	}
	if _, err := cyc.MakePacket(struct{}{}); !errors.Is(err, ErrNotImplemented) {
		t.Errorf("agent MakePacket: %v", err)
	}
	if cyc.Output() != nil {
		t.Error("agent declares no output categories")
	}
}

// #endregion cycle-tests
