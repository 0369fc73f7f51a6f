package slog

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/fwojciec/legalaudit"
)

var _ legalaudit.Handler = (*LoggingHandler)(nil)

// LoggingHandler wraps a Handler and logs every request it processes.
type LoggingHandler struct {
	next   legalaudit.Handler
	logger *slog.Logger
}

// NewLoggingHandler creates a new LoggingHandler.
func NewLoggingHandler(next legalaudit.Handler, logger *slog.Logger) *LoggingHandler {
	return &LoggingHandler{next: next, logger: logger}
}

// HandleRequest delegates to the wrapped handler. Requests answered with a
// JSON-RPC error are logged at warn level along with the error code.
func (h *LoggingHandler) HandleRequest(ctx context.Context, payload json.RawMessage) (result any, err error) {
	defer func(begin time.Time) {
		var probe struct {
			Method string `json:"method"`
			Params struct {
				Name string `json:"name"`
			} `json:"params"`
		}
		_ = json.Unmarshal(payload, &probe)

		level := slog.LevelInfo
		attrs := []any{
			"method", probe.Method,
			"id", string(legalaudit.RequestID(payload)),
		}
		if probe.Params.Name != "" {
			attrs = append(attrs, "tool", probe.Params.Name)
		}
		if resp, ok := result.(*legalaudit.Response); ok && resp.Error != nil {
			level = slog.LevelWarn
			attrs = append(attrs, "code", resp.Error.Code, "message", resp.Error.Message)
		}
		if err != nil {
			level = slog.LevelError
		}
		attrs = append(attrs, "duration", time.Since(begin), "err", err)
		h.logger.Log(ctx, level, "rpc", attrs...)
	}(time.Now())
	return h.next.HandleRequest(ctx, payload)
}

// Shutdown delegates to the wrapped handler and logs the outcome.
func (h *LoggingHandler) Shutdown(ctx context.Context) (err error) {
	defer func(begin time.Time) {
		h.logger.Info("shutdown", "duration", time.Since(begin), "err", err)
	}(time.Now())
	return h.next.Shutdown(ctx)
}
