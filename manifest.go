package legalaudit

import (
	"context"
	"encoding/json"
	"time"
)

// Default manifest limits.
const (
	DefaultTimeoutMS        = 12_000
	DefaultMaxConcurrency   = 5
	DefaultMaxHTMLSizeBytes = 2_000_000
)

// ManifestLimits bounds the work a server performs.
type ManifestLimits struct {
	TimeoutMSDefault int `json:"timeout_ms_default"`
	MaxConcurrency   int `json:"max_concurrency"`
	MaxHTMLSizeBytes int `json:"max_html_size_bytes"`
}

// DefaultManifestLimits returns the limits applied when a manifest omits them.
func DefaultManifestLimits() ManifestLimits {
	return ManifestLimits{
		TimeoutMSDefault: DefaultTimeoutMS,
		MaxConcurrency:   DefaultMaxConcurrency,
		MaxHTMLSizeBytes: DefaultMaxHTMLSizeBytes,
	}
}

// ToolSpec declares one remotely invokable operation.
type ToolSpec struct {
	Name               string         `json:"name"`
	Description        string         `json:"description,omitempty"`
	InputSchema        string         `json:"input_schema,omitempty"`
	OutputSchema       string         `json:"output_schema,omitempty"`
	InputSchemaInline  map[string]any `json:"input_schema_inline,omitempty"`
	OutputSchemaInline map[string]any `json:"output_schema_inline,omitempty"`
	TimeoutMS          int            `json:"timeout_ms,omitempty"`
	Optional           bool           `json:"optional,omitempty"`
}

// Manifest describes the server and the tools it declares.
type Manifest struct {
	Name        string            `json:"name"`
	Version     string            `json:"version"`
	Description string            `json:"description,omitempty"`
	Vendor      string            `json:"vendor,omitempty"`
	Transport   string            `json:"transport"`
	Limits      ManifestLimits    `json:"limits"`
	Env         map[string]string `json:"env,omitempty"`
	Tools       []ToolSpec        `json:"tools"`
}

// Tool returns the declared tool with the given name.
func (m *Manifest) Tool(name string) (*ToolSpec, bool) {
	for i := range m.Tools {
		if m.Tools[i].Name == name {
			return &m.Tools[i], true
		}
	}
	return nil, false
}

// Timeout returns the call timeout for a tool, falling back to the
// manifest default.
func (m *Manifest) Timeout(tool *ToolSpec) time.Duration {
	ms := m.Limits.TimeoutMSDefault
	if tool != nil && tool.TimeoutMS > 0 {
		ms = tool.TimeoutMS
	}
	if ms <= 0 {
		ms = DefaultTimeoutMS
	}
	return time.Duration(ms) * time.Millisecond
}

// ToolFunc implements a tool. args holds the raw "arguments" member of a
// tools/call request; the returned value is JSON-encoded into the reply.
type ToolFunc func(ctx context.Context, args json.RawMessage) (any, error)

// ArgumentValidator checks tool arguments against a JSON schema.
type ArgumentValidator interface {
	// ValidateArguments returns EINVALID with details when args do not
	// satisfy schema. A nil schema accepts anything.
	ValidateArguments(schema map[string]any, args json.RawMessage) error
}
