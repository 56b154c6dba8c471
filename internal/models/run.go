package models

import "time"

// RunSummary represents the aggregate outcome of one execution run
type RunSummary struct {
	RunID     string    `json:"run_id"`
	SpecFile  string    `json:"spec_file,omitempty"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`

	// Status counts
	TotalTests   int `json:"total_tests"`
	PassedTests  int `json:"passed_tests"`
	FailedTests  int `json:"failed_tests"`
	ErrorTests   int `json:"error_tests"`
	SkippedTests int `json:"skipped_tests"`

	// Coverage
	TotalEndpoints   int `json:"total_endpoints"`
	CoveredEndpoints int `json:"covered_endpoints"`

	// Derived statistics
	SuccessRate           float64 `json:"success_rate"`
	CoveragePercentage    float64 `json:"coverage_percentage"`
	AverageResponseTimeMs float64 `json:"average_response_time"`
	DurationSeconds       float64 `json:"duration_seconds"`
	P50ResponseTimeMs     float64 `json:"p50_response_time"`
	P90ResponseTimeMs     float64 `json:"p90_response_time"`
	P99ResponseTimeMs     float64 `json:"p99_response_time"`

	ResultIDs []string `json:"test_results,omitempty"`

	// Partial is set when the run was cancelled before every test case resolved
	Partial bool `json:"partial,omitempty"`
}

// HasFailures reports whether any test failed or errored
func (s *RunSummary) HasFailures() bool {
	return s.FailedTests > 0 || s.ErrorTests > 0
}

// Run is the record handed to a persistence collaborator when a run starts
type Run struct {
	RunID          string    `json:"run_id"`
	SpecFile       string    `json:"spec_file"`
	StartTime      time.Time `json:"start_time"`
	TotalTests     int       `json:"total_tests"`
	TotalEndpoints int       `json:"total_endpoints"`
}
