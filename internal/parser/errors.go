package parser

import "fmt"

// LoadError is returned when the document cannot be read from its source
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load OpenAPI document %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// ParseError is returned when the document is not well-formed YAML/JSON or not an OpenAPI document
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse OpenAPI document %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ValidationError is returned when the document fails OpenAPI meta-schema validation
type ValidationError struct {
	Source string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("OpenAPI document %s is invalid: %v", e.Source, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }
