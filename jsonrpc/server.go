// Package jsonrpc routes JSON-RPC 2.0 requests to the tools a manifest
// declares.
package jsonrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/fwojciec/legalaudit"
	"golang.org/x/sync/semaphore"
)

// DefaultProtocolVersion is reported by initialize when the client does not
// ask for a version.
const DefaultProtocolVersion = "2024-11-05"

// Methods served by Server.
const (
	MethodInitialize = "initialize"
	MethodPing       = "ping"
	MethodToolsList  = "tools/list"
	MethodToolsCall  = "tools/call"
)

var _ legalaudit.Handler = (*Server)(nil)

// Server implements legalaudit.Handler. Tool calls share a concurrency
// limit taken from the manifest and each runs under its own timeout.
type Server struct {
	manifest  *legalaudit.Manifest
	tools     map[string]legalaudit.ToolFunc
	validator legalaudit.ArgumentValidator
	logger    *slog.Logger
	closers   []io.Closer

	sem    *semaphore.Weighted
	ctx    context.Context
	cancel context.CancelFunc

	closed       atomic.Bool
	shutdownOnce sync.Once
	shutdownErr  error
}

// Option configures a Server.
type Option func(*Server)

// WithValidator sets the validator applied to tool arguments.
func WithValidator(v legalaudit.ArgumentValidator) Option {
	return func(s *Server) {
		s.validator = v
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithCloser registers a resource closed by Shutdown, in registration order.
func WithCloser(c io.Closer) Option {
	return func(s *Server) {
		s.closers = append(s.closers, c)
	}
}

// NewServer creates a Server exposing the manifest tools that have an
// implementation in tools.
func NewServer(manifest *legalaudit.Manifest, tools map[string]legalaudit.ToolFunc, opts ...Option) *Server {
	s := &Server{
		manifest: manifest,
		tools:    tools,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	limit := manifest.Limits.MaxConcurrency
	if limit < 1 {
		limit = legalaudit.DefaultMaxConcurrency
	}
	s.sem = semaphore.NewWeighted(int64(limit))
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s
}

// HandleRequest parses payload as a request and returns its response, or
// nil for notifications.
func (s *Server) HandleRequest(ctx context.Context, payload json.RawMessage) (any, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return invalidRequest(nil, "request must be a JSON object"), nil
	}

	var req legalaudit.Request
	if err := json.Unmarshal(trimmed, &req); err != nil {
		return invalidRequest(legalaudit.RequestID(trimmed), err.Error()), nil
	}
	if req.JSONRPC != legalaudit.JSONRPCVersion {
		return invalidRequest(req.ID, `jsonrpc must be "2.0"`), nil
	}
	if req.Method == "" {
		return invalidRequest(req.ID, "method required"), nil
	}

	if s.closed.Load() {
		if req.IsNotification() {
			return nil, nil
		}
		return legalaudit.NewErrorResponse(req.ID, legalaudit.CodeClosed, "Server is shutting down", nil), nil
	}

	result, rpcErr := s.route(ctx, &req)
	if req.IsNotification() {
		return nil, nil
	}
	if rpcErr != nil {
		return &legalaudit.Response{JSONRPC: legalaudit.JSONRPCVersion, ID: req.ID, Error: rpcErr}, nil
	}
	return legalaudit.NewResult(req.ID, result), nil
}

// Shutdown stops accepting requests, aborts in-flight tool calls and closes
// registered resources. Later calls return the first call's result.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		s.closed.Store(true)
		s.cancel()

		var errs []error
		for _, c := range s.closers {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		s.shutdownErr = errors.Join(errs...)
	})
	return s.shutdownErr
}

func (s *Server) route(ctx context.Context, req *legalaudit.Request) (any, *legalaudit.RPCError) {
	switch req.Method {
	case MethodInitialize:
		return s.initialize(req.Params)
	case MethodPing:
		return struct{}{}, nil
	case MethodToolsList:
		return s.listTools(), nil
	case MethodToolsCall:
		return s.callTool(ctx, req.Params)
	}
	return nil, &legalaudit.RPCError{
		Code:    legalaudit.CodeMethodNotFound,
		Message: fmt.Sprintf("Method not found: %s", req.Method),
	}
}

func (s *Server) initialize(params json.RawMessage) (any, *legalaudit.RPCError) {
	var p struct {
		ProtocolVersion string `json:"protocolVersion"`
	}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	version := p.ProtocolVersion
	if version == "" {
		version = DefaultProtocolVersion
	}
	return map[string]any{
		"protocolVersion": version,
		"serverInfo": map[string]any{
			"name":    s.manifest.Name,
			"version": s.manifest.Version,
		},
		"capabilities": map[string]any{
			"tools": map[string]any{"listChanged": false},
		},
	}, nil
}

// ToolInfo is one entry of a tools/list result.
type ToolInfo struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"inputSchema"`
}

func (s *Server) listTools() any {
	tools := make([]ToolInfo, 0, len(s.manifest.Tools))
	for _, t := range s.manifest.Tools {
		if _, ok := s.tools[t.Name]; !ok {
			continue
		}
		tools = append(tools, ToolInfo{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.InputSchemaInline,
		})
	}
	return map[string]any{"tools": tools}
}

// Tools returns the names of the tools the server exposes, sorted.
func (s *Server) Tools() []string {
	var names []string
	for _, t := range s.manifest.Tools {
		if _, ok := s.tools[t.Name]; ok {
			names = append(names, t.Name)
		}
	}
	sort.Strings(names)
	return names
}

type callParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

func (s *Server) callTool(ctx context.Context, params json.RawMessage) (any, *legalaudit.RPCError) {
	var p callParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	spec, declared := s.manifest.Tool(p.Name)
	fn, implemented := s.tools[p.Name]
	if p.Name == "" || !declared || !implemented {
		return nil, &legalaudit.RPCError{
			Code:    legalaudit.CodeInvalidParams,
			Message: fmt.Sprintf("Unknown tool: %s", p.Name),
		}
	}

	if s.validator != nil {
		if err := s.validator.ValidateArguments(spec.InputSchemaInline, p.Arguments); err != nil {
			return nil, &legalaudit.RPCError{
				Code:    legalaudit.CodeInvalidParams,
				Message: "Invalid arguments",
				Data:    legalaudit.ErrorMessage(err),
			}
		}
	}

	// Calls end when the caller's context ends, the server shuts down, or
	// the tool's timeout elapses.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(s.ctx, cancel)
	defer stop()

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, errorFor(s.closedOr(err))
	}
	defer s.sem.Release(1)

	timeout := s.manifest.Timeout(spec)
	ctx, cancelTimeout := context.WithTimeout(ctx, timeout)
	defer cancelTimeout()

	result, err := fn(ctx, p.Arguments)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = legalaudit.Errorf(legalaudit.ETIMEOUT, "tool %s timed out after %s", p.Name, timeout)
		}
		return nil, errorFor(s.closedOr(err))
	}

	text, err := marshal(result)
	if err != nil {
		return nil, &legalaudit.RPCError{Code: legalaudit.CodeInternalError, Message: "Internal error"}
	}
	return map[string]any{
		"content": []map[string]any{
			{"type": "text", "text": string(text)},
		},
		"structuredContent": result,
	}, nil
}

// closedOr reports ECLOSED for failures caused by shutdown.
func (s *Server) closedOr(err error) error {
	if s.closed.Load() {
		return legalaudit.Errorf(legalaudit.ECLOSED, "Server is shutting down")
	}
	return err
}

// CodeForError maps an application error onto a JSON-RPC error code.
func CodeForError(err error) int {
	if errors.Is(err, context.DeadlineExceeded) {
		return legalaudit.CodeTimeout
	}
	switch legalaudit.ErrorCode(err) {
	case legalaudit.EINVALID:
		return legalaudit.CodeInvalidParams
	case legalaudit.ENOTFOUND:
		return legalaudit.CodeNotFound
	case legalaudit.ETIMEOUT:
		return legalaudit.CodeTimeout
	case legalaudit.EUPSTREAM:
		return legalaudit.CodeUpstream
	case legalaudit.ETOOLARGE:
		return legalaudit.CodeTooLarge
	case legalaudit.ECLOSED:
		return legalaudit.CodeClosed
	}
	return legalaudit.CodeInternalError
}

func errorFor(err error) *legalaudit.RPCError {
	return &legalaudit.RPCError{Code: CodeForError(err), Message: legalaudit.ErrorMessage(err)}
}

func invalidRequest(id json.RawMessage, detail string) *legalaudit.Response {
	return legalaudit.NewErrorResponse(id, legalaudit.CodeInvalidRequest, "Invalid Request", detail)
}

func decodeParams(params json.RawMessage, v any) *legalaudit.RPCError {
	trimmed := bytes.TrimSpace(params)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(trimmed, v); err != nil {
		return &legalaudit.RPCError{Code: legalaudit.CodeInvalidParams, Message: "Invalid params", Data: err.Error()}
	}
	return nil
}

// marshal encodes v without HTML escaping.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}
