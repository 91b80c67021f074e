package service

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// #region types
// InferResult holds the response from an Infer RPC call.
type InferResult struct {
	RequestID string
	Output    map[string]float64
}

// RuleRequest describes a rule addition or deletion.
type RuleRequest struct {
	Op         string // "add" | "del"
	ID         string
	Conclusion string
	Conditions []string
	Weights    map[string]float64
}
// #endregion types

// #region client-struct
// Client wraps the gRPC connection to an inference server.
type Client struct {
	conn   *grpc.ClientConn
	client InferenceClient
}
// #endregion client-struct

// #region constructor
// NewClient connects to the inference server at addr.
func NewClient(addr string) (*Client, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return NewClientWithConn(conn), nil
}

// NewClientWithConn wraps an existing connection. Close closes conn.
func NewClientWithConn(conn *grpc.ClientConn) *Client {
	return &Client{conn: conn, client: NewInferenceClient(conn)}
}

// NewClientWithService creates a Client with an injected service implementation.
// Used for testing without a real gRPC connection.
func NewClientWithService(svc InferenceClient) *Client {
	return &Client{client: svc}
}
// #endregion constructor

// Close shuts down the gRPC connection.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// #region infer
// Infer runs one inference step with the given chunk strengths.
func (c *Client) Infer(ctx context.Context, strengths map[string]float64) (InferResult, error) {
	in := make(map[string]any, len(strengths))
	for k, v := range strengths {
		in[k] = v
	}
	req, err := structpb.NewStruct(map[string]any{"strengths": in})
	if err != nil {
		return InferResult{}, fmt.Errorf("encode strengths: %w", err)
	}

	resp, err := c.client.Infer(ctx, req)
	if err != nil {
		return InferResult{}, fmt.Errorf("infer rpc: %w", err)
	}

	fields := resp.GetFields()
	out := make(map[string]float64)
	for k, v := range fields["output"].GetStructValue().GetFields() {
		out[k] = v.GetNumberValue()
	}
	return InferResult{
		RequestID: fields["request_id"].GetStringValue(),
		Output:    out,
	}, nil
}
// #endregion infer

// #region request
// Request enqueues a rule change and returns the request id.
func (c *Client) Request(ctx context.Context, r RuleRequest) (string, error) {
	m := map[string]any{"op": r.Op, "id": r.ID}
	if r.Op == "add" {
		conds := make([]any, len(r.Conditions))
		for i, cond := range r.Conditions {
			conds[i] = cond
		}
		weights := make(map[string]any, len(r.Weights))
		for k, w := range r.Weights {
			weights[k] = w
		}
		m["conclusion"] = r.Conclusion
		m["conditions"] = conds
		m["weights"] = weights
	}
	req, err := structpb.NewStruct(m)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	resp, err := c.client.Request(ctx, req)
	if err != nil {
		return "", fmt.Errorf("request rpc: %w", err)
	}
	return resp.GetFields()["request_id"].GetStringValue(), nil
}
// #endregion request
