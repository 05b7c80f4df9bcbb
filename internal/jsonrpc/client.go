// Package jsonrpc implements the JSON-RPC 2.0 client codec used to talk to
// ledger endpoints over HTTP.
package jsonrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
)

const maxResponseBytes = 8 << 20

// RPCError is an error object returned by an endpoint that accepted the
// HTTP request. It means the endpoint itself is reachable.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type request struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
	ID      uint64 `json:"id"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
	ID      uint64          `json:"id"`
}

type Client struct {
	http   *http.Client
	nextID atomic.Uint64
}

// NewClient returns a client without its own timeout; deadlines come from
// the caller's context.
func NewClient() *Client {
	return &Client{http: &http.Client{}}
}

func NewClientWithHTTP(h *http.Client) *Client {
	if h == nil {
		h = &http.Client{}
	}
	return &Client{http: h}
}

// Call posts one JSON-RPC request to url. A non-nil *RPCError is returned
// as the error when the endpoint answered with an error object.
func (c *Client) Call(ctx context.Context, url, method string, params any) (json.RawMessage, error) {
	if params == nil {
		params = []any{}
	}
	id := c.nextID.Add(1)
	body, err := json.Marshal(request{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      id,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("endpoint returned http %d", resp.StatusCode)
	}

	var decoded response
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("malformed rpc response: %w", err)
	}
	if decoded.Error != nil {
		return nil, decoded.Error
	}
	if decoded.ID != id {
		return nil, errors.New("rpc response id mismatch")
	}
	return decoded.Result, nil
}
