package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strings"
)

// Type is the value type of a configuration field, as found in a config
// decoded from JSON into map[string]any.
type Type interface {
	// Name is the type string used in serialized schemas ("string", "[object]").
	Name() string
	Validate(value any) error
}

type primitive struct {
	name   string
	accept func(any) bool
}

func (p primitive) Name() string { return p.name }

func (p primitive) Validate(value any) error {
	if !p.accept(value) {
		return fmt.Errorf("expected %s, got %T", p.name, value)
	}
	return nil
}

type sliceOf struct {
	elem Type
}

func (s sliceOf) Name() string { return "[" + s.elem.Name() + "]" }

func (s sliceOf) Validate(value any) error {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return fmt.Errorf("expected list, got %T", value)
	}
	for i := 0; i < rv.Len(); i++ {
		if err := s.elem.Validate(rv.Index(i).Interface()); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
	}
	return nil
}

var (
	stringType = primitive{name: "string", accept: func(v any) bool {
		_, ok := v.(string)
		return ok
	}}
	intType = primitive{name: "int", accept: func(v any) bool {
		n, ok := toFloat(v)
		return ok && n == math.Trunc(n)
	}}
	floatType = primitive{name: "float", accept: func(v any) bool {
		_, ok := toFloat(v)
		return ok
	}}
	boolType = primitive{name: "bool", accept: func(v any) bool {
		_, ok := v.(bool)
		return ok
	}}
	objectType = primitive{name: "object", accept: isObject}
)

var primitives = map[string]Type{
	"string": stringType,
	"int":    intType,
	"float":  floatType,
	"bool":   boolType,
	"object": objectType,
}

// String accepts strings.
func String() Type { return stringType }

// Int accepts integers, including whole float64 values produced by encoding/json.
func Int() Type { return intType }

// Float accepts any number.
func Float() Type { return floatType }

// Bool accepts booleans.
func Bool() Type { return boolType }

// Object accepts a map keyed by strings or a struct.
func Object() Type { return objectType }

// Slice accepts a list whose items all satisfy elem.
func Slice(elem Type) Type { return sliceOf{elem: elem} }

// ParseType is the inverse of Type.Name.
func ParseType(name string) (Type, error) {
	if inner, ok := strings.CutPrefix(name, "["); ok {
		if inner, ok = strings.CutSuffix(inner, "]"); ok && inner != "" {
			elem, err := ParseType(inner)
			if err != nil {
				return nil, err
			}
			return Slice(elem), nil
		}
	}
	if t, ok := primitives[name]; ok {
		return t, nil
	}
	return nil, fmt.Errorf("unsupported type %q", name)
}

func isObject(v any) bool {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Struct:
		return true
	case reflect.Map:
		return rv.Type().Key().Kind() == reflect.String
	}
	return false
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}
