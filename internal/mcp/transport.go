package mcp

import (
	"context"
	"encoding/json"
)

// Transport is one wire carrying the JSON-RPC exchange between an agent's
// tool-server client and a single MCP server process or endpoint.
type Transport interface {
	Connect(ctx context.Context) error
	Close() error

	// Call sends a request and blocks for its matching response.
	Call(ctx context.Context, method string, params any) (json.RawMessage, error)

	// Notify sends a one-way message; no response is expected.
	Notify(ctx context.Context, method string, params any) error

	Events() <-chan *JSONRPCNotification
	Requests() <-chan *JSONRPCRequest
	Respond(ctx context.Context, id any, result any, rpcErr *JSONRPCError) error
	Connected() bool
}

// NewTransport picks stdio or HTTP per the server's configured transport.
func NewTransport(cfg *ServerConfig) Transport {
	switch cfg.Transport {
	case TransportHTTP:
		return NewHTTPTransport(cfg)
	default:
		return NewStdioTransport(cfg)
	}
}
