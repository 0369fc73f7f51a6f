package stdio

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/fwojciec/legalaudit"
)

// DefaultReadBufferSize is the size of each read from the input stream.
const DefaultReadBufferSize = 32 * 1024

// State is the lifecycle state of a transport.
type State int32

// Lifecycle states. Closed is terminal.
const (
	StateActive State = iota
	StateClosed
)

// Transport connects a byte stream carrying JSON-RPC messages to a Handler.
//
// Chunks are parsed on a single goroutine in arrival order. Each extracted
// payload is dispatched on its own goroutine, so several handler calls may be
// in flight at once and replies are written in completion order, which can
// differ from request order. Every reply is emitted with a single Write call,
// so frames never interleave byte-wise.
type Transport struct {
	handler     legalaudit.Handler
	w           io.Writer
	logger      *slog.Logger
	onClose     func()
	maxBodySize int
	readSize    int

	ctx     context.Context
	parser  *Parser
	framing atomic.Int32
	state   atomic.Int32

	writeMu    sync.Mutex
	inflightMu sync.Mutex // orders inflight.Add against Detach
	inflight   sync.WaitGroup
	detached   atomic.Bool
	detachOnce sync.Once
	closeOnce  sync.Once
	done       chan struct{}
}

// Option configures a Transport.
type Option func(*Transport)

// WithLogger sets the logger. Defaults to a logger that discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Transport) {
		t.logger = logger
	}
}

// WithOnClose registers a function called once the input stream has ended
// and the handler has been shut down.
func WithOnClose(fn func()) Option {
	return func(t *Transport) {
		t.onClose = fn
	}
}

// WithMaxBodySize bounds the Content-Length a peer may declare. Frames over
// the limit are logged and skipped. Zero, the default, means unbounded.
func WithMaxBodySize(n int) Option {
	return func(t *Transport) {
		t.maxBodySize = n
	}
}

// WithReadBufferSize sets the size of each read from the input stream.
func WithReadBufferSize(n int) Option {
	return func(t *Transport) {
		if n > 0 {
			t.readSize = n
		}
	}
}

// Attach starts reading JSON-RPC messages from r and writing replies to w.
// Handler calls receive ctx. Attach returns immediately; use Done to learn
// when the input stream has been released.
func Attach(ctx context.Context, handler legalaudit.Handler, r io.Reader, w io.Writer, opts ...Option) *Transport {
	t := &Transport{
		handler:  handler,
		w:        w,
		readSize: DefaultReadBufferSize,
		ctx:      ctx,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = slog.New(slog.DiscardHandler)
	}
	t.parser = NewParser(t.logger, t.maxBodySize)

	go t.readLoop(r)

	return t
}

// Framing returns the framing detected on input so far.
func (t *Transport) Framing() Framing {
	return Framing(t.framing.Load())
}

// State returns the lifecycle state.
func (t *Transport) State() State {
	return State(t.state.Load())
}

// Done is closed when the transport stops reading input, either because the
// stream ended or failed, or because of Detach.
func (t *Transport) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until every dispatched handler call has returned and its reply
// has been written. Once Done is closed or Detach has returned, no further
// calls are dispatched. A handler call that never returns blocks Wait forever;
// the transport does not impose timeouts.
func (t *Transport) Wait() {
	t.inflight.Wait()
}

// Detach stops delivering input to the handler and asks the handler to shut
// down, ignoring any shutdown error. It is safe to call more than once;
// calls after the first do nothing. Detach leaves w open.
//
// A read already blocked on the input stream cannot be interrupted; its data
// is discarded when it returns.
func (t *Transport) Detach() {
	t.detachOnce.Do(func() {
		t.inflightMu.Lock()
		t.detached.Store(true)
		t.inflightMu.Unlock()
		t.state.Store(int32(StateClosed))
		if err := t.shutdown(); err != nil {
			t.logger.Debug("shutdown after detach failed", "err", err)
		}
	})
}

// Write serializes msg using the session's framing and emits it as one write.
func (t *Transport) Write(msg any) error {
	frame, err := Encode(t.Framing(), msg)
	if err != nil {
		return fmt.Errorf("encoding message: %w", err)
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	_, err = t.w.Write(frame)
	return err
}

func (t *Transport) readLoop(r io.Reader) {
	defer close(t.done)

	buf := make([]byte, t.readSize)
	for {
		n, err := r.Read(buf)
		if t.detached.Load() {
			return
		}
		if n > 0 {
			t.receive(buf[:n])
		}
		if err == nil {
			continue
		}
		if !errors.Is(err, io.EOF) {
			t.logger.Error("input stream error", "err", err)
		}
		t.close()
		return
	}
}

func (t *Transport) receive(chunk []byte) {
	payloads := t.parser.Feed(chunk)
	t.framing.Store(int32(t.parser.Framing()))
	for _, payload := range payloads {
		t.dispatch(payload)
	}
}

// dispatch hands payload to the handler without waiting for it to finish.
// Payloads parsed after Detach are dropped.
func (t *Transport) dispatch(payload json.RawMessage) {
	t.inflightMu.Lock()
	if t.detached.Load() {
		t.inflightMu.Unlock()
		return
	}
	t.inflight.Add(1)
	t.inflightMu.Unlock()
	go func() {
		defer t.inflight.Done()

		result, err := t.invoke(payload)
		if err == nil {
			if isAbsent(result) {
				return
			}
			var frame []byte
			frame, err = Encode(t.Framing(), result)
			if err == nil {
				t.emit(frame)
				return
			}
		}

		t.logger.Error("dispatch error",
			"id", string(legalaudit.RequestID(payload)),
			"err", err,
		)
		fallback := legalaudit.NewErrorResponse(legalaudit.RequestID(payload), legalaudit.CodeServerError, "Internal error", nil)
		if err := t.Write(fallback); err != nil {
			t.logger.Error("write failed", "err", err)
		}
	}()
}

func (t *Transport) emit(frame []byte) {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if _, err := t.w.Write(frame); err != nil {
		t.logger.Error("write failed", "err", err)
	}
}

func (t *Transport) invoke(payload json.RawMessage) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return t.handler.HandleRequest(t.ctx, payload)
}

// close runs the end-of-stream sequence: handler shutdown, then the close
// notification even when shutdown fails.
func (t *Transport) close() {
	t.closeOnce.Do(func() {
		t.state.Store(int32(StateClosed))
		defer func() {
			if t.onClose != nil {
				t.onClose()
			}
		}()
		if err := t.shutdown(); err != nil {
			t.logger.Error("handler shutdown failed", "err", err)
		}
	})
}

func (t *Transport) shutdown() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("shutdown panic: %v", r)
		}
	}()
	return t.handler.Shutdown(context.WithoutCancel(t.ctx))
}

// isAbsent reports whether a handler result means "no reply".
func isAbsent(v any) bool {
	if v == nil {
		return true
	}
	if raw, ok := v.(json.RawMessage); ok {
		trimmed := bytes.TrimSpace(raw)
		return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
