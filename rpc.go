package legalaudit

import (
	"bytes"
	"context"
	"encoding/json"
)

// JSONRPCVersion is the only protocol version accepted and emitted.
const JSONRPCVersion = "2.0"

// JSON-RPC error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603

	// CodeServerError is the generic code used when a handler fails
	// without producing its own error reply.
	CodeServerError = -32000
	CodeNotFound    = -32001
	CodeTimeout     = -32002
	CodeUpstream    = -32003
	CodeTooLarge    = -32004
	CodeClosed      = -32005
)

// Handler processes JSON-RPC payloads extracted from a transport.
type Handler interface {
	// HandleRequest processes one parsed JSON value. The payload is passed
	// verbatim and may not be a well-formed request. A nil result means no
	// reply is sent, which is correct for notifications.
	HandleRequest(ctx context.Context, payload json.RawMessage) (any, error)

	// Shutdown releases resources held by the handler.
	// It is safe to call more than once.
	Shutdown(ctx context.Context) error
}

// Request is a JSON-RPC 2.0 request or notification.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification reports whether the request carries no id.
func (r *Request) IsNotification() bool {
	return len(r.ID) == 0
}

// Response is a JSON-RPC 2.0 response. Exactly one of Result or Error is set.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is the error member of a JSON-RPC response.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// NewResult returns a success response for id.
func NewResult(id json.RawMessage, result any) *Response {
	return &Response{JSONRPC: JSONRPCVersion, ID: normalizeID(id), Result: result}
}

// NewErrorResponse returns an error response for id.
func NewErrorResponse(id json.RawMessage, code int, message string, data any) *Response {
	return &Response{
		JSONRPC: JSONRPCVersion,
		ID:      normalizeID(id),
		Error:   &RPCError{Code: code, Message: message, Data: data},
	}
}

// RequestID returns the id member of payload when payload is a JSON object
// carrying one, and JSON null otherwise.
func RequestID(payload json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nullID
	}
	var probe struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return nullID
	}
	return normalizeID(probe.ID)
}

var nullID = json.RawMessage("null")

func normalizeID(id json.RawMessage) json.RawMessage {
	if len(bytes.TrimSpace(id)) == 0 {
		return nullID
	}
	return id
}
