package service

import (
	"context"
	"errors"
	"math"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/rulenet/internal/network"
	"github.com/danielpatrickdp/rulenet/internal/numdict"
	"github.com/danielpatrickdp/rulenet/internal/packets"
	"github.com/danielpatrickdp/rulenet/internal/rules"
	"github.com/danielpatrickdp/rulenet/internal/symbols"
)

var (
	stim  = symbols.Buffer("stimulus")
	assoc = symbols.Flow("assoc")
)

// #region helpers
func newTestServer(t *testing.T) (*Server, *rules.Rules) {
	t.Helper()
	db, err := rules.New()
	if err != nil {
		t.Fatal(err)
	}
	chA, chB, chC := symbols.Chunk("a"), symbols.Chunk("b"), symbols.Chunk("c")
	db.Define(symbols.Rule("1"), chC, []symbols.Symbol{chA, chB}, map[symbols.Symbol]float64{chA: 0.7, chB: 0.3})
	db.Define(symbols.Rule("2"), chC, []symbols.Symbol{chA}, nil)

	n := network.New()
	p := rules.NewAssociativeRules(stim, db)
	if err := n.Add(assoc, network.Propagate[numdict.NumDict, packets.ActivationPacket](p, stim), nil); err != nil {
		t.Fatal(err)
	}
	n.AddUpdater(db.Updater())
	return NewServer(Config{Network: n, Rules: db, Input: stim, Output: assoc}), db
}

func dialServer(t *testing.T, srv InferenceServer) *Client {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer()
	RegisterInferenceServer(s, srv)
	go s.Serve(lis)
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	c := NewClientWithConn(conn)
	t.Cleanup(func() { c.Close() })
	return c
}

type mockInferenceService struct {
	InferenceClient
	inferResp *structpb.Struct
	inferErr  error
}

func (m *mockInferenceService) Infer(_ context.Context, _ *structpb.Struct, _ ...grpc.CallOption) (*structpb.Struct, error) {
	return m.inferResp, m.inferErr
}

// #endregion helpers

// #region infer-tests
func TestInferOverGRPC(t *testing.T) {
	srv, _ := newTestServer(t)
	c := dialServer(t, srv)

	res, err := c.Infer(context.Background(), map[string]float64{"a": 0.6, "chunk(b)": 0.4})
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	if res.RequestID == "" {
		t.Error("expected request id")
	}
	want := map[string]float64{"chunk(c)": 0.6, "rule(1)": 0.54, "rule(2)": 0.6}
	if len(res.Output) != len(want) {
		t.Fatalf("output = %v", res.Output)
	}
	for k, v := range want {
		if math.Abs(res.Output[k]-v) > 1e-12 {
			t.Errorf("output[%s] = %f, want %f", k, res.Output[k], v)
		}
	}
}

func TestInferRejectsBadStrengths(t *testing.T) {
	srv, _ := newTestServer(t)
	c := dialServer(t, srv)

	req, _ := structpb.NewStruct(map[string]any{"strengths": map[string]any{"a": "high"}})
	_, err := c.client.Infer(context.Background(), req)
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}

	req, _ = structpb.NewStruct(map[string]any{"strengths": map[string]any{"widget(a)": 1.0}})
	_, err = c.client.Infer(context.Background(), req)
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument for bad symbol, got %v", err)
	}
}

func TestInferUnwiredOutput(t *testing.T) {
	srv := NewServer(Config{Network: network.New(), Input: stim, Output: assoc})
	c := dialServer(t, srv)
	_, err := c.Infer(context.Background(), nil)
	if status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("expected FailedPrecondition, got %v", err)
	}
}

func TestClientWrapsRPCError(t *testing.T) {
	boom := errors.New("boom")
	c := NewClientWithService(&mockInferenceService{inferErr: boom})
	_, err := c.Infer(context.Background(), nil)
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped rpc error, got %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close without conn: %v", err)
	}
}

// #endregion infer-tests

// #region request-tests
func TestRequestResolvesOnNextStep(t *testing.T) {
	srv, db := newTestServer(t)
	c := dialServer(t, srv)
	ctx := context.Background()

	id, err := c.Request(ctx, RuleRequest{
		Op:         "add",
		ID:         "3",
		Conclusion: "d",
		Conditions: []string{"b"},
	})
	if err != nil {
		t.Fatalf("Request add: %v", err)
	}
	if id == "" {
		t.Error("expected request id")
	}
	if db.Contains(symbols.Rule("3")) {
		t.Fatal("request applied before a step")
	}

	res, err := c.Infer(ctx, map[string]float64{"b": 0.5})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := res.Output["rule(3)"]; ok {
		t.Fatal("new rule visible during the step that resolves it")
	}
	res, err = c.Infer(ctx, map[string]float64{"b": 0.5})
	if err != nil {
		t.Fatal(err)
	}
	if res.Output["chunk(d)"] != 0.5 {
		t.Fatalf("output after resolution = %v", res.Output)
	}

	if _, err := c.Request(ctx, RuleRequest{Op: "del", ID: "rule(3)"}); err != nil {
		t.Fatalf("Request del: %v", err)
	}
	if _, err := c.Infer(ctx, nil); err != nil {
		t.Fatal(err)
	}
	if db.Contains(symbols.Rule("3")) {
		t.Fatal("deletion not applied")
	}
}

func TestRequestErrors(t *testing.T) {
	srv, _ := newTestServer(t)
	c := dialServer(t, srv)
	ctx := context.Background()

	cases := []struct {
		name string
		req  RuleRequest
	}{
		{"unknown op", RuleRequest{Op: "upsert", ID: "9"}},
		{"missing id", RuleRequest{Op: "del"}},
		{"delete non-member", RuleRequest{Op: "del", ID: "9"}},
		{"bad weights", RuleRequest{Op: "add", ID: "9", Conclusion: "c", Conditions: []string{"a"}, Weights: map[string]float64{"z": 1}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := c.Request(ctx, tc.req)
			if status.Code(err) != codes.InvalidArgument {
				t.Fatalf("expected InvalidArgument, got %v", err)
			}
		})
	}

	if _, err := c.Request(ctx, RuleRequest{Op: "del", ID: "1"}); err != nil {
		t.Fatal(err)
	}
	_, err := c.Request(ctx, RuleRequest{Op: "del", ID: "1"})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument for pending request, got %v", err)
	}
}

// #endregion request-tests
