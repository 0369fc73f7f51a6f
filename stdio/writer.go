package stdio

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Encode serializes msg as compact JSON and frames it for the wire.
// LSP framing prefixes a Content-Length header counting UTF-8 bytes of the
// body. Any other framing, including FramingUnknown, appends a newline.
func Encode(framing Framing, msg any) ([]byte, error) {
	body, err := marshalCompact(msg)
	if err != nil {
		return nil, err
	}

	if framing == FramingLSP {
		out := make([]byte, 0, len(body)+32)
		out = append(out, "Content-Length: "...)
		out = strconv.AppendInt(out, int64(len(body)), 10)
		out = append(out, headerSeparator...)
		return append(out, body...), nil
	}
	return append(body, '\n'), nil
}

// marshalCompact encodes v without HTML escaping so that text such as
// "<title>" survives byte-for-byte.
func marshalCompact(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}
