package models

import "time"

// Status is the outcome of a single test case
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusError   Status = "error"
	StatusSkipped Status = "skipped"
)

// TestResult represents the result of executing a single test case
type TestResult struct {
	ID     string `json:"id"`
	TestID string `json:"test_id"`

	// Operation details
	Endpoint string `json:"endpoint"`
	Method   string `json:"method"`

	// Test status
	Status             Status `json:"status"`
	StatusCode         int    `json:"status_code"`
	ExpectedStatusCode int    `json:"expected_status_code"`
	Error              string `json:"error,omitempty"`

	// Timing
	ResponseTimeMs   float64   `json:"response_time_ms"`
	RequestTimestamp time.Time `json:"request_timestamp"`

	// Captured exchange
	RequestHeaders  map[string]string `json:"request_headers,omitempty"`
	RequestBody     any               `json:"request_body,omitempty"`
	ResponseHeaders map[string]string `json:"response_headers,omitempty"`
	ResponseBody    any               `json:"response_body,omitempty"`

	// Validation details
	ValidationErrors       []string `json:"validation_errors,omitempty"`
	SchemaValidated        bool     `json:"schema_validated"`
	SchemaValidationPassed *bool    `json:"schema_validation_passed,omitempty"`
}

// Key returns the (method, path) of the endpoint the result belongs to
func (r TestResult) Key() EndpointKey {
	return EndpointKey{Method: r.Method, Path: r.Endpoint}
}

// Completed reports whether the request received a response
func (r TestResult) Completed() bool {
	return r.Status == StatusPassed || r.Status == StatusFailed
}

// ValidationError represents a specific validation failure
type ValidationError struct {
	Field   string
	Message string
}

// String renders the error as "field: message"
func (v ValidationError) String() string {
	return v.Field + ": " + v.Message
}
