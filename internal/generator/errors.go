package generator

import "fmt"

// GenerationError is returned when a schema cannot be turned into a value
type GenerationError struct {
	// Schema is the reference or type of the offending schema
	Schema string
	Err    error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("failed to generate value for %s: %v", e.Schema, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }
