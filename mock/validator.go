package mock

import (
	"encoding/json"

	"github.com/fwojciec/legalaudit"
)

var _ legalaudit.ArgumentValidator = (*ArgumentValidator)(nil)

// ArgumentValidator is a mock implementation of legalaudit.ArgumentValidator.
type ArgumentValidator struct {
	ValidateArgumentsFn func(schema map[string]any, args json.RawMessage) error
}

func (v *ArgumentValidator) ValidateArguments(schema map[string]any, args json.RawMessage) error {
	return v.ValidateArgumentsFn(schema, args)
}
