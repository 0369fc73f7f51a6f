package stdio_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"testing/iotest"
	"time"

	"github.com/fwojciec/legalaudit"
	"github.com/fwojciec/legalaudit/mock"
	"github.com/fwojciec/legalaudit/stdio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syncBuffer is a bytes.Buffer safe for the concurrent writes a transport
// performs.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// chunkReader returns one chunk per Read call.
type chunkReader struct {
	chunks [][]byte
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	r.chunks[0] = r.chunks[0][n:]
	if len(r.chunks[0]) == 0 {
		r.chunks = r.chunks[1:]
	}
	return n, nil
}

// echoHandler replies with the request id and method.
func echoHandler() *mock.Handler {
	return &mock.Handler{
		HandleRequestFn: func(_ context.Context, payload json.RawMessage) (any, error) {
			var req legalaudit.Request
			if err := json.Unmarshal(payload, &req); err != nil {
				return nil, err
			}
			if req.IsNotification() {
				return nil, nil
			}
			return legalaudit.NewResult(req.ID, map[string]string{"method": req.Method}), nil
		},
		ShutdownFn: func(context.Context) error { return nil },
	}
}

func runToEnd(t *testing.T, h legalaudit.Handler, r io.Reader, opts ...stdio.Option) (*stdio.Transport, *syncBuffer) {
	t.Helper()

	out := &syncBuffer{}
	tr := stdio.Attach(context.Background(), h, r, out, opts...)
	select {
	case <-tr.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("transport did not finish reading")
	}
	tr.Wait()
	return tr, out
}

func decodeLines(t *testing.T, s string) []map[string]any {
	t.Helper()

	var msgs []map[string]any
	sc := bufio.NewScanner(strings.NewReader(s))
	for sc.Scan() {
		var m map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &m))
		msgs = append(msgs, m)
	}
	return msgs
}

func TestTransport_NDJSON(t *testing.T) {
	t.Parallel()

	t.Run("replies with newline framing", func(t *testing.T) {
		t.Parallel()

		tr, out := runToEnd(t, echoHandler(), strings.NewReader(pingLine))

		assert.Equal(t, stdio.FramingNDJSON, tr.Framing())
		assert.Equal(t, `{"jsonrpc":"2.0","id":1,"result":{"method":"ping"}}`+"\n", out.String())
	})

	t.Run("one byte per read dispatches exactly once", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		h := echoHandler()
		next := h.HandleRequestFn
		h.HandleRequestFn = func(ctx context.Context, payload json.RawMessage) (any, error) {
			calls.Add(1)
			assert.JSONEq(t, pingLine, string(payload))
			return next(ctx, payload)
		}

		_, out := runToEnd(t, h, iotest.OneByteReader(strings.NewReader(pingLine)))

		assert.Equal(t, int32(1), calls.Load())
		assert.Len(t, decodeLines(t, out.String()), 1)
	})

	t.Run("notifications produce no output", func(t *testing.T) {
		t.Parallel()

		_, out := runToEnd(t, echoHandler(), strings.NewReader(`{"jsonrpc":"2.0","method":"notifications/initialized"}`+"\n"))

		assert.Empty(t, out.String())
	})

	t.Run("invalid and blank lines do not block later requests", func(t *testing.T) {
		t.Parallel()

		input := "\n{broken\n\n" + `{"jsonrpc":"2.0","id":"a","method":"ping"}` + "\n"
		_, out := runToEnd(t, echoHandler(), strings.NewReader(input))

		msgs := decodeLines(t, out.String())
		require.Len(t, msgs, 1)
		assert.Equal(t, "a", msgs[0]["id"])
	})
}

func TestTransport_LSP(t *testing.T) {
	t.Parallel()

	t.Run("replies with content-length framing", func(t *testing.T) {
		t.Parallel()

		body := `{"jsonrpc":"2.0","id":1,"method":"café"}`
		tr, out := runToEnd(t, echoHandler(), strings.NewReader(lspFrame(body)))

		assert.Equal(t, stdio.FramingLSP, tr.Framing())
		want := `{"jsonrpc":"2.0","id":1,"result":{"method":"café"}}`
		assert.Equal(t, lspFrame(want), out.String())
	})

	t.Run("pipelined frames split across reads are each answered", func(t *testing.T) {
		t.Parallel()

		input := []byte(lspFrame(`{"jsonrpc":"2.0","id":1,"method":"ping"}`) + lspFrame(`{"jsonrpc":"2.0","id":2,"method":"ping"}`))
		r := &chunkReader{chunks: [][]byte{input[:17], input[17:40], input[40:]}}

		_, out := runToEnd(t, echoHandler(), r)

		p := stdio.NewParser(nil, 0)
		replies := p.Feed([]byte(out.String()))
		require.Len(t, replies, 2)
		var ids []string
		for _, reply := range replies {
			ids = append(ids, string(legalaudit.RequestID(reply)))
		}
		assert.ElementsMatch(t, []string{"1", "2"}, ids)
	})
}

func TestTransport_HandlerFailure(t *testing.T) {
	t.Parallel()

	failing := func(fn func() (any, error)) *mock.Handler {
		return &mock.Handler{
			HandleRequestFn: func(context.Context, json.RawMessage) (any, error) { return fn() },
			ShutdownFn:      func(context.Context) error { return nil },
		}
	}

	tests := []struct {
		name    string
		input   string
		handler *mock.Handler
		wantID  any
	}{
		{
			name:    "error keeps numeric id",
			input:   `{"jsonrpc":"2.0","id":42,"method":"boom"}`,
			handler: failing(func() (any, error) { return nil, errors.New("boom") }),
			wantID:  float64(42),
		},
		{
			name:    "error keeps string id",
			input:   `{"jsonrpc":"2.0","id":"req-1","method":"boom"}`,
			handler: failing(func() (any, error) { return nil, errors.New("boom") }),
			wantID:  "req-1",
		},
		{
			name:    "missing id becomes null",
			input:   `{"jsonrpc":"2.0","method":"boom"}`,
			handler: failing(func() (any, error) { return nil, errors.New("boom") }),
			wantID:  nil,
		},
		{
			name:    "non-object payload becomes null",
			input:   `[1,2,3]`,
			handler: failing(func() (any, error) { return nil, errors.New("boom") }),
			wantID:  nil,
		},
		{
			name:    "panic is treated as failure",
			input:   `{"id":7}`,
			handler: failing(func() (any, error) { panic("kaboom") }),
			wantID:  float64(7),
		},
		{
			name:    "unencodable result is treated as failure",
			input:   `{"id":8}`,
			handler: failing(func() (any, error) { return map[string]any{"c": make(chan int)}, nil }),
			wantID:  float64(8),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var logs syncBuffer
			logger := slog.New(slog.NewTextHandler(&logs, nil))
			tr, out := runToEnd(t, tt.handler, strings.NewReader(tt.input+"\n"), stdio.WithLogger(logger))

			msgs := decodeLines(t, out.String())
			require.Len(t, msgs, 1)
			assert.Equal(t, "2.0", msgs[0]["jsonrpc"])
			assert.Equal(t, tt.wantID, msgs[0]["id"])
			errObj, ok := msgs[0]["error"].(map[string]any)
			require.True(t, ok)
			assert.Equal(t, float64(-32000), errObj["code"])
			assert.Equal(t, "Internal error", errObj["message"])
			assert.Contains(t, logs.String(), "dispatch error")
			assert.Equal(t, stdio.StateClosed, tr.State())
		})
	}

	t.Run("fallback uses lsp framing in lsp sessions", func(t *testing.T) {
		t.Parallel()

		h := failing(func() (any, error) { return nil, errors.New("boom") })
		_, out := runToEnd(t, h, strings.NewReader(lspFrame(`{"id":1}`)))

		assert.Equal(t, lspFrame(`{"jsonrpc":"2.0","id":1,"error":{"code":-32000,"message":"Internal error"}}`), out.String())
	})
}

func TestTransport_CompletionOrderIsNotArrivalOrder(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	h := &mock.Handler{
		HandleRequestFn: func(_ context.Context, payload json.RawMessage) (any, error) {
			id := legalaudit.RequestID(payload)
			if string(id) == "1" {
				<-release
			}
			return legalaudit.NewResult(id, "ok"), nil
		},
		ShutdownFn: func(context.Context) error { return nil },
	}

	pr, pw := io.Pipe()
	out := &syncBuffer{}
	tr := stdio.Attach(context.Background(), h, pr, out)

	_, err := pw.Write([]byte(`{"id":1}` + "\n" + `{"id":2}` + "\n"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), `"id":2`)
	}, 5*time.Second, 5*time.Millisecond)
	assert.NotContains(t, out.String(), `"id":1`)

	close(release)
	require.NoError(t, pw.Close())
	<-tr.Done()
	tr.Wait()

	msgs := decodeLines(t, out.String())
	require.Len(t, msgs, 2)
	assert.Equal(t, float64(2), msgs[0]["id"])
	assert.Equal(t, float64(1), msgs[1]["id"])
}

func TestTransport_Lifecycle(t *testing.T) {
	t.Parallel()

	t.Run("end of input shuts down then notifies", func(t *testing.T) {
		t.Parallel()

		var mu sync.Mutex
		var events []string
		h := echoHandler()
		h.ShutdownFn = func(context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			events = append(events, "shutdown")
			return nil
		}
		onClose := func() {
			mu.Lock()
			defer mu.Unlock()
			events = append(events, "close")
		}

		tr, _ := runToEnd(t, h, strings.NewReader(pingLine), stdio.WithOnClose(onClose))

		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, []string{"shutdown", "close"}, events)
		assert.Equal(t, stdio.StateClosed, tr.State())
	})

	t.Run("shutdown failure does not suppress close notification", func(t *testing.T) {
		t.Parallel()

		var closed atomic.Bool
		h := echoHandler()
		h.ShutdownFn = func(context.Context) error { return errors.New("cache busy") }

		runToEnd(t, h, strings.NewReader(""), stdio.WithOnClose(func() { closed.Store(true) }))

		assert.True(t, closed.Load())
	})

	t.Run("shutdown panic does not suppress close notification", func(t *testing.T) {
		t.Parallel()

		var closed atomic.Bool
		h := echoHandler()
		h.ShutdownFn = func(context.Context) error { panic("bad shutdown") }

		runToEnd(t, h, strings.NewReader(""), stdio.WithOnClose(func() { closed.Store(true) }))

		assert.True(t, closed.Load())
	})

	t.Run("stream error is logged and closes the session", func(t *testing.T) {
		t.Parallel()

		var logs syncBuffer
		var shutdowns atomic.Int32
		var closed atomic.Bool
		h := echoHandler()
		h.ShutdownFn = func(context.Context) error {
			shutdowns.Add(1)
			return nil
		}
		r := io.MultiReader(strings.NewReader(pingLine), iotest.ErrReader(errors.New("stdin gone")))

		_, out := runToEnd(t, h, r,
			stdio.WithLogger(slog.New(slog.NewTextHandler(&logs, nil))),
			stdio.WithOnClose(func() { closed.Store(true) }),
		)

		assert.Contains(t, logs.String(), "stdin gone")
		assert.Equal(t, int32(1), shutdowns.Load())
		assert.True(t, closed.Load())
		assert.Len(t, decodeLines(t, out.String()), 1)
	})
}

func TestTransport_Detach(t *testing.T) {
	t.Parallel()

	t.Run("second call is a no-op", func(t *testing.T) {
		t.Parallel()

		var shutdowns atomic.Int32
		h := echoHandler()
		h.ShutdownFn = func(context.Context) error {
			shutdowns.Add(1)
			return errors.New("ignored")
		}

		pr, pw := io.Pipe()
		defer pw.Close()
		tr := stdio.Attach(context.Background(), h, pr, io.Discard)

		assert.NotPanics(t, tr.Detach)
		assert.NotPanics(t, tr.Detach)
		assert.Equal(t, int32(1), shutdowns.Load())
		assert.Equal(t, stdio.StateClosed, tr.State())
	})

	t.Run("input after detach is not dispatched", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		var closed atomic.Bool
		h := echoHandler()
		h.HandleRequestFn = func(context.Context, json.RawMessage) (any, error) {
			calls.Add(1)
			return nil, nil
		}

		pr, pw := io.Pipe()
		tr := stdio.Attach(context.Background(), h, pr, io.Discard, stdio.WithOnClose(func() { closed.Store(true) }))
		tr.Detach()

		_, err := pw.Write([]byte(pingLine))
		require.NoError(t, err)
		<-tr.Done()
		tr.Wait()

		assert.Equal(t, int32(0), calls.Load())
		assert.False(t, closed.Load())
	})
}

// hookHandler is a slog.Handler that runs fn when a record with msg is
// logged.
type hookHandler struct {
	msg string
	fn  func()
}

func (h *hookHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *hookHandler) Handle(_ context.Context, r slog.Record) error {
	if r.Message == h.msg {
		h.fn()
	}
	return nil
}

func (h *hookHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *hookHandler) WithGroup(string) slog.Handler      { return h }

func TestTransport_DetachWhileParsing(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	h := echoHandler()
	h.HandleRequestFn = func(context.Context, json.RawMessage) (any, error) {
		calls.Add(1)
		return nil, nil
	}

	// Detach runs inside Feed, after the read loop's detached check and
	// before the parsed payload is dispatched.
	var tr *stdio.Transport
	ready := make(chan struct{})
	hook := &hookHandler{msg: "framing detected", fn: func() {
		<-ready
		tr.Detach()
	}}

	pr, pw := io.Pipe()
	tr = stdio.Attach(context.Background(), h, pr, io.Discard, stdio.WithLogger(slog.New(hook)))
	close(ready)

	_, err := pw.Write([]byte(pingLine))
	require.NoError(t, err)
	require.NoError(t, pw.Close())

	select {
	case <-tr.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("transport did not stop reading")
	}
	tr.Wait()

	assert.Equal(t, int32(0), calls.Load())
	assert.Equal(t, stdio.StateClosed, tr.State())
}

func TestTransport_HugeContentLength(t *testing.T) {
	t.Parallel()

	input := "Content-Length: 9223372036854775807\r\n\r\n{}"

	var tr *stdio.Transport
	var out *syncBuffer
	require.NotPanics(t, func() {
		tr, out = runToEnd(t, echoHandler(), strings.NewReader(input))
	})

	assert.Equal(t, stdio.FramingLSP, tr.Framing())
	assert.Empty(t, out.String())
}

func TestTransport_WriteBeforeInput(t *testing.T) {
	t.Parallel()

	pr, pw := io.Pipe()
	defer pw.Close()
	out := &syncBuffer{}
	tr := stdio.Attach(context.Background(), echoHandler(), pr, out)
	defer tr.Detach()

	require.NoError(t, tr.Write(map[string]any{"jsonrpc": "2.0", "method": "notifications/ready"}))

	assert.Equal(t, stdio.FramingUnknown, tr.Framing())
	assert.Equal(t, `{"jsonrpc":"2.0","method":"notifications/ready"}`+"\n", out.String())
}

func TestTransport_MaxBodySize(t *testing.T) {
	t.Parallel()

	big := `{"id":1,"pad":"` + strings.Repeat("x", 100) + `"}`
	input := lspFrame(big) + lspFrame(`{"jsonrpc":"2.0","id":2,"method":"ping"}`)

	_, out := runToEnd(t, echoHandler(), strings.NewReader(input), stdio.WithMaxBodySize(64))

	assert.Equal(t, lspFrame(`{"jsonrpc":"2.0","id":2,"result":{"method":"ping"}}`), out.String())
}
