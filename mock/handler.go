package mock

import (
	"context"
	"encoding/json"

	"github.com/fwojciec/legalaudit"
)

var _ legalaudit.Handler = (*Handler)(nil)

// Handler is a mock implementation of legalaudit.Handler.
type Handler struct {
	HandleRequestFn func(ctx context.Context, payload json.RawMessage) (any, error)
	ShutdownFn      func(ctx context.Context) error
}

func (h *Handler) HandleRequest(ctx context.Context, payload json.RawMessage) (any, error) {
	return h.HandleRequestFn(ctx, payload)
}

func (h *Handler) Shutdown(ctx context.Context) error {
	return h.ShutdownFn(ctx)
}
