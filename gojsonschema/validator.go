package gojsonschema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/fwojciec/legalaudit"
	"github.com/xeipuuv/gojsonschema"
)

var _ legalaudit.ArgumentValidator = (*Validator)(nil)

// Validator checks tool arguments against JSON schemas. Compiled schemas
// are cached by their JSON encoding.
type Validator struct {
	mu      sync.Mutex
	schemas map[string]*gojsonschema.Schema
}

// NewValidator creates a new Validator.
func NewValidator() *Validator {
	return &Validator{schemas: make(map[string]*gojsonschema.Schema)}
}

// ValidateArguments validates args against schema. Absent arguments are
// validated as an empty object.
func (v *Validator) ValidateArguments(schema map[string]any, args json.RawMessage) error {
	if schema == nil {
		return nil
	}
	compiled, err := v.compile(schema)
	if err != nil {
		return err
	}

	doc := bytes.TrimSpace(args)
	if len(doc) == 0 || bytes.Equal(doc, []byte("null")) {
		doc = []byte("{}")
	}

	result, err := compiled.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return legalaudit.Errorf(legalaudit.EINVALID, "invalid arguments: %v", err)
	}
	if !result.Valid() {
		return legalaudit.Errorf(legalaudit.EINVALID, "invalid arguments: %s", describe(result.Errors()))
	}
	return nil
}

func (v *Validator) compile(schema map[string]any) (*gojsonschema.Schema, error) {
	key, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("encoding schema: %w", err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if s, ok := v.schemas[string(key)]; ok {
		return s, nil
	}
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(key))
	if err != nil {
		return nil, legalaudit.Errorf(legalaudit.EINVALID, "invalid schema: %v", err)
	}
	v.schemas[string(key)] = s
	return s, nil
}
