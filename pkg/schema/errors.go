package schema

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidField is wrapped by every FieldError.
var ErrInvalidField = errors.New("invalid field")

// FieldError reports one violated constraint of one configuration field.
type FieldError struct {
	Field  string
	Reason string
	Value  any
}

func (e *FieldError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("%s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("%s: %s (got %T)", e.Field, e.Reason, e.Value)
}

func (e *FieldError) Unwrap() error { return ErrInvalidField }

// WrongType reports whether the value has the wrong type, as opposed to
// breaking a limit. Only type failures carry the offending value.
func (e *FieldError) WrongType() bool { return e.Value != nil }

// Errors collects the field errors of one Validate or ValidatePatch call.
type Errors []*FieldError

func (es Errors) Error() string {
	if len(es) == 1 {
		return es[0].Error()
	}
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = e.Error()
	}
	return fmt.Sprintf("%d invalid fields: %s", len(es), strings.Join(parts, "; "))
}

func (es Errors) Unwrap() error { return ErrInvalidField }

// FieldErrors extracts the field errors carried by err, or nil.
func FieldErrors(err error) []*FieldError {
	var es Errors
	if errors.As(err, &es) {
		return es
	}
	var fe *FieldError
	if errors.As(err, &fe) {
		return []*FieldError{fe}
	}
	return nil
}
