package tester

import (
	"sort"
	"time"

	"github.com/moamenhredeen/oascov/internal/models"
)

// Summarize computes the run summary once every result has been collected.
// Coverage is measured against declared; skipped results do not count as exercised.
func Summarize(runID, specFile string, start, end time.Time, results []models.TestResult, declared []models.EndpointKey) models.RunSummary {
	summary := models.RunSummary{
		RunID:      runID,
		SpecFile:   specFile,
		StartTime:  start,
		EndTime:    end,
		TotalTests: len(results),
	}
	if summary.EndTime.Before(summary.StartTime) {
		summary.EndTime = summary.StartTime
	}
	summary.DurationSeconds = summary.EndTime.Sub(summary.StartTime).Seconds()

	attempted := make(map[models.EndpointKey]bool)
	var times []float64
	for _, r := range results {
		switch r.Status {
		case models.StatusPassed:
			summary.PassedTests++
		case models.StatusFailed:
			summary.FailedTests++
		case models.StatusError:
			summary.ErrorTests++
		case models.StatusSkipped:
			summary.SkippedTests++
			continue
		}
		attempted[r.Key()] = true
		if r.Completed() {
			times = append(times, r.ResponseTimeMs)
		}
	}

	declaredSet := make(map[models.EndpointKey]bool, len(declared))
	for _, k := range declared {
		declaredSet[k] = true
	}
	summary.TotalEndpoints = len(declaredSet)
	for k := range attempted {
		if declaredSet[k] {
			summary.CoveredEndpoints++
		}
	}

	if summary.TotalTests > 0 {
		summary.SuccessRate = float64(summary.PassedTests) / float64(summary.TotalTests) * 100
	}
	if summary.TotalEndpoints > 0 {
		summary.CoveragePercentage = float64(summary.CoveredEndpoints) / float64(summary.TotalEndpoints) * 100
	}

	if len(times) > 0 {
		var total float64
		for _, t := range times {
			total += t
		}
		summary.AverageResponseTimeMs = total / float64(len(times))

		sort.Float64s(times)
		summary.P50ResponseTimeMs = percentile(times, 50)
		summary.P90ResponseTimeMs = percentile(times, 90)
		summary.P99ResponseTimeMs = percentile(times, 99)
	}

	return summary
}

// distinctKeys returns the endpoints of the test cases in first-seen order
func distinctKeys(cases []models.TestCase) []models.EndpointKey {
	seen := make(map[models.EndpointKey]bool)
	var keys []models.EndpointKey
	for _, tc := range cases {
		if k := tc.Key(); !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	return keys
}

// percentile calculates the p-th percentile from sorted values
func percentile(sorted []float64, p int) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}

	index := float64(len(sorted)-1) * float64(p) / 100.0
	lower := int(index)
	upper := lower + 1

	if upper >= len(sorted) {
		return sorted[lower]
	}

	// Linear interpolation
	weight := index - float64(lower)
	return sorted[lower] + (sorted[upper]-sorted[lower])*weight
}
