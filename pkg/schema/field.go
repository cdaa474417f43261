package schema

import (
	"fmt"
	"reflect"
	"slices"
	"unicode/utf8"
)

// Formats understood by the validation engine.
const (
	FormatEmail = "email"
	FormatPhone = "phone"
	FormatURL   = "url"
)

// FieldSpec declares one configuration field and its constraints.
// Zero values mean "no constraint".
type FieldSpec struct {
	Name string
	Type Type

	// MaxLen bounds the length of a string in characters.
	MaxLen int
	// MaxItems bounds the number of elements of a slice.
	MaxItems int
	// Min and Max bound numeric values.
	Min *float64
	Max *float64
	// OneOf restricts a string to an enumeration. The empty string is always accepted.
	OneOf []string
	// Format names a value format (see FormatEmail, FormatPhone, FormatURL).
	Format string
}

// Bound is a helper for the Min/Max pointers.
func Bound(v float64) *float64 { return &v }

// Check validates value against the field's type and limits.
// It returns one error per violated constraint.
func (f FieldSpec) Check(value any) []*FieldError {
	if f.Type != nil {
		if err := f.Type.Validate(value); err != nil {
			return []*FieldError{{Field: f.Name, Reason: err.Error(), Value: value}}
		}
	}

	var errs []*FieldError
	fail := func(format string, args ...any) {
		errs = append(errs, &FieldError{Field: f.Name, Reason: fmt.Sprintf(format, args...)})
	}

	if s, ok := value.(string); ok {
		if f.MaxLen > 0 {
			if n := utf8.RuneCountInString(s); n > f.MaxLen {
				fail("must be at most %d characters (got %d)", f.MaxLen, n)
			}
		}
		if len(f.OneOf) > 0 && s != "" && !slices.Contains(f.OneOf, s) {
			fail("must be one of %v", f.OneOf)
		}
	}

	if f.MaxItems > 0 {
		rv := reflect.ValueOf(value)
		if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
			if rv.Len() > f.MaxItems {
				fail("must have at most %d items (got %d)", f.MaxItems, rv.Len())
			}
		}
	}

	if n, ok := toFloat(value); ok {
		if f.Min != nil && n < *f.Min {
			fail("must be >= %v", *f.Min)
		}
		if f.Max != nil && n > *f.Max {
			fail("must be <= %v", *f.Max)
		}
	}

	return errs
}
