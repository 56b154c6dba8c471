package models

import "sort"

// Variant kinds produced by the generator
const (
	VariantHappyPath     = "happy_path"
	VariantMissingParams = "missing_params"
	VariantInvalidBody   = "invalid_body"
)

// ParamValue is a parameter slot in a template or test case
type ParamValue struct {
	Required bool    `json:"required"`
	Example  any     `json:"example"`
	Schema   *Schema `json:"schema,omitempty"`
}

// Params groups parameter slots by location, then by name
type Params map[Location]map[string]ParamValue

// NewParams returns Params with every parameter location present
func NewParams() Params {
	p := make(Params, len(ParameterLocations))
	for _, loc := range ParameterLocations {
		p[loc] = map[string]ParamValue{}
	}
	return p
}

// Clone returns a copy whose maps can be modified independently
func (p Params) Clone() Params {
	c := NewParams()
	for loc, values := range p {
		m := make(map[string]ParamValue, len(values))
		for name, v := range values {
			m[name] = v
		}
		c[loc] = m
	}
	return c
}

// Names returns the parameter names at a location in sorted order
func (p Params) Names(loc Location) []string {
	names := make([]string, 0, len(p[loc]))
	for name := range p[loc] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BodyTemplate is the request body chosen for a template
type BodyTemplate struct {
	ContentType string  `json:"content_type,omitempty"`
	Required    bool    `json:"required"`
	Schema      *Schema `json:"schema,omitempty"`
	Example     any     `json:"example,omitempty"`
}

// OmittedParameter names the item dropped from a negative test
type OmittedParameter struct {
	Name string   `json:"name"`
	In   Location `json:"in"`
}

// BodyParameterName is the name used for the request body when it is omitted
const BodyParameterName = "requestBody"

// TestCaseTemplate is the shared recipe every variant of an endpoint is built from
type TestCaseTemplate struct {
	Name               string        `json:"name"`
	Endpoint           string        `json:"endpoint"`
	Method             string        `json:"method"`
	OperationID        string        `json:"operation_id"`
	ExpectedStatusCode int           `json:"expected_status_code"`
	Params             Params        `json:"params"`
	RequestBody        *BodyTemplate `json:"request_body,omitempty"`
	ExpectedResponse   *Schema       `json:"expected_response,omitempty"`
	Tags               []string      `json:"tags,omitempty"`
}

// RequiredItems lists the required parameters in location order, sorted by name,
// followed by the request body when it is required
func (t TestCaseTemplate) RequiredItems() []OmittedParameter {
	var items []OmittedParameter
	for _, loc := range ParameterLocations {
		for _, name := range t.Params.Names(loc) {
			if t.Params[loc][name].Required {
				items = append(items, OmittedParameter{Name: name, In: loc})
			}
		}
	}
	if t.RequestBody != nil && t.RequestBody.Required {
		items = append(items, OmittedParameter{Name: BodyParameterName, In: LocationBody})
	}
	return items
}

// TestCase is a self-contained request recipe with its expected status
type TestCase struct {
	Name               string            `json:"name"`
	Variant            string            `json:"variant"`
	Description        string            `json:"description,omitempty"`
	OperationID        string            `json:"operation_id"`
	Endpoint           string            `json:"endpoint"`
	Method             string            `json:"method"`
	ExpectedStatusCode int               `json:"expected_status_code"`
	Params             Params            `json:"params"`
	RequestBody        *BodyTemplate     `json:"request_body,omitempty"`
	Body               any               `json:"request_body_value,omitempty"`
	OmittedParameter   *OmittedParameter `json:"omitted_parameter,omitempty"`
	Tags               []string          `json:"tags,omitempty"`
	ExpectedResponse   *Schema           `json:"expected_response,omitempty"`
}

// Key returns the (method, path) of the endpoint under test
func (tc TestCase) Key() EndpointKey {
	return EndpointKey{Method: tc.Method, Path: tc.Endpoint}
}
