package stdio

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"regexp"
	"strconv"
)

var contentLengthRe = regexp.MustCompile(`(?i)content-length:\s*(\d+)`)

// Parser turns an arbitrarily chunked byte stream into JSON payloads.
//
// Parser is not safe for concurrent use. A transport feeds it from the single
// goroutine that reads input, so chunks are always parsed in arrival order.
type Parser struct {
	framing     Framing
	buf         []byte
	start       int // bytes of buf already consumed
	skip        int // body bytes of an oversized frame still to discard
	maxBodySize int
	logger      *slog.Logger
}

// NewParser returns a parser in FramingUnknown. A maxBodySize of zero or less
// accepts any declared Content-Length.
func NewParser(logger *slog.Logger, maxBodySize int) *Parser {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Parser{logger: logger, maxBodySize: maxBodySize}
}

// Framing returns the framing established by the first non-empty chunk.
func (p *Parser) Framing() Framing {
	return p.framing
}

// Buffered returns the number of bytes held while waiting for a frame to
// complete.
func (p *Parser) Buffered() int {
	return len(p.buf) - p.start
}

// Feed appends chunk to the input buffer and returns every payload that is
// now complete, in the order it appeared on the wire. Frames are only
// extracted once all of their bytes are present.
//
// Empty chunks carry no information and are ignored; in particular they do
// not settle the framing, rather than defaulting it to NDJSON.
func (p *Parser) Feed(chunk []byte) []json.RawMessage {
	if len(chunk) == 0 {
		return nil
	}
	if p.framing == FramingUnknown {
		p.framing = DetectFraming(chunk)
		p.logger.Debug("framing detected", "framing", p.framing.String())
	}

	p.buf = append(p.buf, chunk...)

	var payloads []json.RawMessage
	if p.framing == FramingLSP {
		payloads = p.drainLSP()
	} else {
		payloads = p.drainNDJSON()
	}
	p.compact()
	return payloads
}

func (p *Parser) drainNDJSON() []json.RawMessage {
	var payloads []json.RawMessage
	for {
		line, n, ok := nextLine(p.buf[p.start:])
		if !ok {
			return payloads
		}
		p.start += n
		if len(line) == 0 {
			continue
		}
		payload, err := decodePayload(line)
		if err != nil {
			p.logger.Warn("invalid NDJSON line (ignored)", "err", err)
			continue
		}
		payloads = append(payloads, payload)
	}
}

func (p *Parser) drainLSP() []json.RawMessage {
	var payloads []json.RawMessage
	for {
		if p.skip > 0 {
			n := min(p.skip, len(p.buf)-p.start)
			p.start += n
			p.skip -= n
			if p.skip > 0 {
				return payloads
			}
		}

		body, n, length, status := nextLSPFrame(p.buf[p.start:], p.maxBodySize)
		switch status {
		case frameIncomplete:
			return payloads
		case frameBadHeader:
			p.logger.Warn("LSP header without Content-Length; dropping header block")
			p.start += n
		case frameTooLarge:
			p.logger.Error("LSP frame exceeds maximum body size; skipping",
				"length", length,
				"max", p.maxBodySize,
			)
			p.start += n
			p.skip = length
		case frameComplete:
			p.start += n
			payload, err := decodePayload(body)
			if err != nil {
				p.logger.Warn("invalid LSP JSON (ignored)", "err", err)
				continue
			}
			payloads = append(payloads, payload)
		}
	}
}

// compact releases consumed bytes so the buffer does not grow without bound
// across a long session.
func (p *Parser) compact() {
	switch {
	case p.start == len(p.buf):
		p.buf = p.buf[:0]
		p.start = 0
	case p.start > len(p.buf)/2:
		n := copy(p.buf, p.buf[p.start:])
		p.buf = p.buf[:n]
		p.start = 0
	}
}

// nextLine returns the first newline-terminated line of buf with surrounding
// whitespace removed, and the number of bytes it occupied including the
// newline. ok is false when buf holds no complete line yet.
func nextLine(buf []byte) (line []byte, n int, ok bool) {
	i := bytes.IndexByte(buf, '\n')
	if i < 0 {
		return nil, 0, false
	}
	return bytes.TrimSpace(buf[:i]), i + 1, true
}

type frameStatus int

const (
	frameIncomplete frameStatus = iota
	frameComplete
	frameBadHeader
	frameTooLarge
)

// nextLSPFrame inspects the start of buf for a Content-Length framed message.
// n is the number of bytes to consume: the whole frame when complete, the
// header block and separator for a bad or oversized header, and zero while
// incomplete. length is the declared body length when one was parsed.
func nextLSPFrame(buf []byte, maxBodySize int) (body []byte, n, length int, status frameStatus) {
	end := bytes.Index(buf, headerSeparator)
	if end < 0 {
		return nil, 0, 0, frameIncomplete
	}
	headerEnd := end + len(headerSeparator)

	m := contentLengthRe.FindSubmatch(buf[:end])
	if m == nil {
		return nil, headerEnd, 0, frameBadHeader
	}
	length, err := strconv.Atoi(string(m[1]))
	if err != nil {
		return nil, headerEnd, 0, frameBadHeader
	}
	if maxBodySize > 0 && length > maxBodySize {
		return nil, headerEnd, length, frameTooLarge
	}

	// Compared without adding so that lengths near MaxInt cannot overflow.
	if len(buf)-headerEnd < length {
		return nil, 0, length, frameIncomplete
	}
	return buf[headerEnd : headerEnd+length], headerEnd + length, length, frameComplete
}

// decodePayload validates b as a single JSON document and returns a copy
// that does not alias the parser buffer.
func decodePayload(b []byte) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}
