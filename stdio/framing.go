// Package stdio implements the JSON-RPC transport that runs over a pair of
// byte streams, normally process standard input and output. Two wire
// framings are accepted: newline-delimited JSON and Content-Length framed
// messages as used by the Language Server Protocol. The framing is detected
// from the first chunk a peer sends and is kept for the rest of the session,
// including for replies.
package stdio

import (
	"bytes"
	"regexp"
)

// Framing is the message delimiting convention used on the wire.
type Framing int32

// Framing modes. A session moves from FramingUnknown to one of the others
// exactly once.
const (
	FramingUnknown Framing = iota
	FramingNDJSON
	FramingLSP
)

// String returns the framing name.
func (f Framing) String() string {
	switch f {
	case FramingNDJSON:
		return "ndjson"
	case FramingLSP:
		return "lsp"
	}
	return "unknown"
}

var (
	headerSeparator = []byte("\r\n\r\n")
	lspSignature    = regexp.MustCompile(`(?i)^\s*content-length:`)
)

// DetectFraming classifies the framing from the first chunk of input.
// A chunk starting with a Content-Length header, or containing a blank-line
// header separator, is LSP framed. Anything else, including an empty chunk,
// is NDJSON.
func DetectFraming(chunk []byte) Framing {
	if lspSignature.Match(chunk) || bytes.Contains(chunk, headerSeparator) {
		return FramingLSP
	}
	return FramingNDJSON
}
