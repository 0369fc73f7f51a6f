// Package gojsonschema validates the server manifest and tool arguments
// with JSON Schema.
package gojsonschema

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fwojciec/legalaudit"
	"github.com/xeipuuv/gojsonschema"
)

// manifestSchema describes the structure a manifest must have once
// defaults are applied.
var manifestSchema = map[string]any{
	"type":     "object",
	"required": []any{"name", "version", "tools"},
	"properties": map[string]any{
		"name":        map[string]any{"type": "string", "minLength": 1},
		"version":     map[string]any{"type": "string", "minLength": 1},
		"description": map[string]any{"type": "string"},
		"vendor":      map[string]any{"type": "string"},
		"transport":   map[string]any{"type": "string", "enum": []any{"stdio", "http"}},
		"limits": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"timeout_ms_default":  map[string]any{"type": "integer", "minimum": 1},
				"max_concurrency":     map[string]any{"type": "integer", "minimum": 1},
				"max_html_size_bytes": map[string]any{"type": "integer", "minimum": 1},
			},
		},
		"env": map[string]any{
			"type":                 "object",
			"additionalProperties": map[string]any{"type": "string"},
		},
		"tools": map[string]any{
			"type":     "array",
			"minItems": 1,
			"items": map[string]any{
				"type":     "object",
				"required": []any{"name"},
				"properties": map[string]any{
					"name":                 map[string]any{"type": "string", "minLength": 1},
					"description":          map[string]any{"type": "string"},
					"input_schema":         map[string]any{"type": "string"},
					"output_schema":        map[string]any{"type": "string"},
					"input_schema_inline":  map[string]any{"type": "object"},
					"output_schema_inline": map[string]any{"type": "object"},
					"timeout_ms":           map[string]any{"type": "integer", "minimum": 1},
					"optional":             map[string]any{"type": "boolean"},
				},
			},
		},
	},
}

// LoadManifest reads, validates and normalizes the manifest at path.
// Schema files named by tools are resolved relative to the manifest's
// directory.
func LoadManifest(path string) (*legalaudit.Manifest, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, legalaudit.Errorf(legalaudit.ENOTFOUND, "manifest not found at %s", path)
	} else if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	return ParseManifest(data, filepath.Dir(path))
}

// ParseManifest validates and normalizes a manifest document. The transport
// defaults to "stdio", limits are merged over the defaults and tools
// without an input schema accept only an empty object.
func ParseManifest(data []byte, dir string) (*legalaudit.Manifest, error) {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, legalaudit.Errorf(legalaudit.EINVALID, "invalid JSON in manifest: %v", err)
	}
	if doc == nil {
		return nil, legalaudit.Errorf(legalaudit.EINVALID, "manifest must be a JSON object")
	}
	applyDefaults(doc)

	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(manifestSchema), gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("validating manifest: %w", err)
	}
	if !result.Valid() {
		return nil, legalaudit.Errorf(legalaudit.EINVALID, "invalid manifest structure: %s", describe(result.Errors()))
	}

	normalized, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encoding manifest: %w", err)
	}
	var m legalaudit.Manifest
	if err := json.Unmarshal(normalized, &m); err != nil {
		return nil, legalaudit.Errorf(legalaudit.EINVALID, "invalid manifest structure: %v", err)
	}

	seen := make(map[string]bool, len(m.Tools))
	for i := range m.Tools {
		tool := &m.Tools[i]
		if seen[tool.Name] {
			return nil, legalaudit.Errorf(legalaudit.EINVALID, "duplicate tool name in manifest: %s", tool.Name)
		}
		seen[tool.Name] = true

		if err := resolveSchemas(tool, dir); err != nil {
			return nil, err
		}
	}
	return &m, nil
}

func applyDefaults(doc map[string]any) {
	if t, ok := doc["transport"]; !ok || t == nil || t == "" {
		doc["transport"] = "stdio"
	}

	defaults := legalaudit.DefaultManifestLimits()
	limits := map[string]any{
		"timeout_ms_default":  defaults.TimeoutMSDefault,
		"max_concurrency":     defaults.MaxConcurrency,
		"max_html_size_bytes": defaults.MaxHTMLSizeBytes,
	}
	switch given := doc["limits"].(type) {
	case map[string]any:
		for k, v := range given {
			limits[k] = v
		}
	case nil:
	default:
		// Leave a malformed value for the schema to report.
		return
	}
	doc["limits"] = limits
}

// resolveSchemas loads file schemas into their inline fields and supplies
// the default input schema.
func resolveSchemas(tool *legalaudit.ToolSpec, dir string) error {
	if tool.InputSchemaInline == nil && tool.InputSchema != "" {
		schema, err := loadSchemaFile(dir, tool.InputSchema)
		if err != nil {
			return err
		}
		tool.InputSchemaInline = schema
	}
	if tool.InputSchemaInline == nil {
		tool.InputSchemaInline = map[string]any{"type": "object", "additionalProperties": false}
	}
	if tool.OutputSchemaInline == nil && tool.OutputSchema != "" {
		schema, err := loadSchemaFile(dir, tool.OutputSchema)
		if err != nil {
			return err
		}
		tool.OutputSchemaInline = schema
	}

	if _, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(tool.InputSchemaInline)); err != nil {
		return legalaudit.Errorf(legalaudit.EINVALID, "tool %s: invalid input schema: %v", tool.Name, err)
	}
	return nil
}

func loadSchemaFile(dir, name string) (map[string]any, error) {
	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, name)
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, legalaudit.Errorf(legalaudit.ENOTFOUND, "schema not found at %s", path)
	} else if err != nil {
		return nil, fmt.Errorf("reading schema: %w", err)
	}
	var schema map[string]any
	if err := json.Unmarshal(data, &schema); err != nil || schema == nil {
		return nil, legalaudit.Errorf(legalaudit.EINVALID, "schema %s is not a JSON object", path)
	}
	return schema, nil
}

// describe joins validation errors into one line.
func describe(errs []gojsonschema.ResultError) string {
	parts := make([]string, len(errs))
	for i, e := range errs {
		parts[i] = fmt.Sprintf("%s: %s", e.Field(), e.Description())
	}
	return strings.Join(parts, "; ")
}
