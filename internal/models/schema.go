package models

// Schema is the subset of JSON Schema the synthesizer understands.
// A schema with Ref set is a pointer into EndpointSet.Definitions and carries no other constraints.
type Schema struct {
	Ref string `json:"$ref,omitempty"`

	Type    string `json:"type,omitempty"`
	Format  string `json:"format,omitempty"`
	Enum    []any  `json:"enum,omitempty"`
	Example any    `json:"example,omitempty"`
	Default any    `json:"default,omitempty"`

	// Numeric bounds
	Minimum *float64 `json:"minimum,omitempty"`
	Maximum *float64 `json:"maximum,omitempty"`

	// String bounds
	MinLength *int64 `json:"minLength,omitempty"`
	MaxLength *int64 `json:"maxLength,omitempty"`

	// Array shape
	Items    *Schema `json:"items,omitempty"`
	MinItems *int64  `json:"minItems,omitempty"`
	MaxItems *int64  `json:"maxItems,omitempty"`

	// Object shape
	Properties map[string]*Schema `json:"properties,omitempty"`
	Required   []string           `json:"required,omitempty"`
}

// IsRequired reports whether a property is listed as required
func (s *Schema) IsRequired(name string) bool {
	if s == nil {
		return false
	}
	for _, r := range s.Required {
		if r == name {
			return true
		}
	}
	return false
}
