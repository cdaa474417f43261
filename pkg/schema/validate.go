package schema

// Schema is the ordered list of fields of one configuration payload.
type Schema []FieldSpec

// Lookup returns the spec for a field name.
func (s Schema) Lookup(name string) (FieldSpec, bool) {
	for _, f := range s {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// Names returns the field names in declaration order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, f := range s {
		names[i] = f.Name
	}
	return names
}

// Validate checks every declared field that is present in data.
// Absent fields are not an error: every configuration field is optional.
func Validate(schema Schema, data map[string]any) error {
	var errs Errors

	for _, f := range schema {
		value, exists := data[f.Name]
		if !exists || value == nil {
			continue
		}
		errs = append(errs, f.Check(value)...)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ValidatePatch checks a partial update: every key must be declared by the schema
// and every supplied value must satisfy its field's constraints.
func ValidatePatch(schema Schema, patch map[string]any) error {
	var errs Errors

	for key, value := range patch {
		f, ok := schema.Lookup(key)
		if !ok {
			errs = append(errs, &FieldError{Field: key, Reason: "not defined in schema"})
			continue
		}
		if value == nil {
			continue
		}
		errs = append(errs, f.Check(value)...)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
