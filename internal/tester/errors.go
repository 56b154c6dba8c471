package tester

import (
	"errors"
	"fmt"
)

// ErrUnsupportedMethod is wrapped by ExecutionError when a test case uses an unknown HTTP method
var ErrUnsupportedMethod = errors.New("unsupported HTTP method")

// ExecutionError is returned when a test case cannot be turned into a request
type ExecutionError struct {
	Test string
	Err  error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("failed to execute %s: %v", e.Test, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }
