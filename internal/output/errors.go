package output

import "fmt"

// ExportError is returned when an export or import cannot read or write its destination
type ExportError struct {
	// Op is the failed action, e.g. "write" or "read"
	Op   string
	Path string
	Err  error
}

func (e *ExportError) Error() string {
	path := e.Path
	if path == "" {
		path = "stdout"
	}
	return fmt.Sprintf("failed to %s %s: %v", e.Op, path, e.Err)
}

func (e *ExportError) Unwrap() error { return e.Err }
