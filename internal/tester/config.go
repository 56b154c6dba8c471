package tester

import (
	"time"

	"github.com/moamenhredeen/oascov/internal/models"
)

// Config holds execution configuration
type Config struct {
	Headers          map[string]string // Extra headers sent with every request
	AuthToken        string            // Bearer token, empty for none
	Timeout          time.Duration     // Per-request timeout
	MaxConcurrency   int               // Max in-flight requests (0 = unbounded)
	RateLimit        float64           // Max requests per second (0 = unlimited)
	DisableKeepAlive bool              // Disable HTTP connection reuse
	SaveBodies       bool              // Capture response bodies in results
	ValidateSchemas  bool              // Check response bodies against the expected schema

	// SpecFile is recorded in the run summary
	SpecFile string
	// DeclaredEndpoints is the coverage denominator. When empty the distinct
	// endpoints of the executed test cases are used.
	DeclaredEndpoints []models.EndpointKey
	// Definitions resolves schema references during response validation
	Definitions map[string]*models.Schema

	// Skip excludes a test case before dispatch; it is reported as SKIPPED with the returned reason
	Skip func(tc models.TestCase) (string, bool)

	// PartialSummary requests a summary for a cancelled run
	PartialSummary bool
}

// DefaultConfig returns default execution configuration
func DefaultConfig() Config {
	return Config{
		Timeout:         10 * time.Second,
		ValidateSchemas: true,
	}
}
