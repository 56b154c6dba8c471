package models

import "strings"

// Location is where a parameter is carried in a request
type Location string

const (
	LocationPath   Location = "path"
	LocationQuery  Location = "query"
	LocationHeader Location = "header"
	LocationCookie Location = "cookie"
	// LocationBody marks the request body when it is the omitted item of a negative test
	LocationBody Location = "body"
)

// ParameterLocations lists the parameter locations in the order they are assembled
var ParameterLocations = []Location{LocationPath, LocationQuery, LocationHeader, LocationCookie}

// ParseLocation maps an OpenAPI "in" value to a Location, reporting false for unsupported ones
func ParseLocation(in string) (Location, bool) {
	switch Location(strings.ToLower(in)) {
	case LocationPath:
		return LocationPath, true
	case LocationQuery:
		return LocationQuery, true
	case LocationHeader:
		return LocationHeader, true
	case LocationCookie:
		return LocationCookie, true
	case LocationBody:
		return LocationBody, true
	default:
		return "", false
	}
}

// EndpointKey identifies an endpoint by method and path
type EndpointKey struct {
	Method string `json:"method"`
	Path   string `json:"path"`
}

// String renders the key as "METHOD path"
func (k EndpointKey) String() string {
	return k.Method + " " + k.Path
}

// Parameter is a declared operation parameter
type Parameter struct {
	Name     string   `json:"name"`
	In       Location `json:"in"`
	Required bool     `json:"required"`
	Example  any      `json:"example,omitempty"`
	Schema   *Schema  `json:"schema,omitempty"`
}

// MediaType is one content type entry of a request body or response
type MediaType struct {
	ContentType string  `json:"content_type"`
	Schema      *Schema `json:"schema,omitempty"`
	Example     any     `json:"example,omitempty"`
}

// RequestBody is the declared request body of an operation
type RequestBody struct {
	Required bool        `json:"required"`
	Content  []MediaType `json:"content"`
}

// MediaType returns the entry for a content type
func (rb *RequestBody) MediaType(contentType string) (MediaType, bool) {
	if rb == nil {
		return MediaType{}, false
	}
	for _, mt := range rb.Content {
		if mt.ContentType == contentType {
			return mt, true
		}
	}
	return MediaType{}, false
}

// Response is a declared response of an operation
type Response struct {
	Code        string  `json:"code"`
	Description string  `json:"description,omitempty"`
	Schema      *Schema `json:"schema,omitempty"`
}

// SecurityRequirement maps security scheme names to their required scopes
type SecurityRequirement map[string][]string

// EndpointDescriptor is a normalized (method, path) operation extracted from a document
type EndpointDescriptor struct {
	Path        string                `json:"path"`
	Method      string                `json:"method"`
	OperationID string                `json:"operation_id"`
	Summary     string                `json:"summary,omitempty"`
	Description string                `json:"description,omitempty"`
	Parameters  []Parameter           `json:"parameters,omitempty"`
	RequestBody *RequestBody          `json:"request_body,omitempty"`
	Responses   []Response            `json:"responses,omitempty"`
	Tags        []string              `json:"tags,omitempty"`
	Security    []SecurityRequirement `json:"security,omitempty"`
}

// Key returns the endpoint's (method, path) identity
func (e EndpointDescriptor) Key() EndpointKey {
	return EndpointKey{Method: e.Method, Path: e.Path}
}

// Response returns the declared response for a status code
func (e EndpointDescriptor) Response(code string) (Response, bool) {
	for _, r := range e.Responses {
		if r.Code == code {
			return r, true
		}
	}
	return Response{}, false
}

// EndpointSet is everything extracted from one document
type EndpointSet struct {
	Title       string               `json:"title"`
	Description string               `json:"description,omitempty"`
	Version     string               `json:"version,omitempty"`
	SpecVersion string               `json:"spec_version"`
	Source      string               `json:"source"`
	Servers     []string             `json:"servers,omitempty"`
	BasePath    string               `json:"base_path,omitempty"`
	Endpoints   []EndpointDescriptor `json:"endpoints"`

	// Definitions holds named schemas keyed by their $ref
	Definitions map[string]*Schema `json:"definitions,omitempty"`
}

// Keys returns the declared endpoint keys in document order
func (s *EndpointSet) Keys() []EndpointKey {
	keys := make([]EndpointKey, 0, len(s.Endpoints))
	for _, ep := range s.Endpoints {
		keys = append(keys, ep.Key())
	}
	return keys
}
