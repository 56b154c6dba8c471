package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/moamenhredeen/oascov/internal/models"
)

// Format represents the output format type
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ResultsDocument is the JSON form of an exported run
type ResultsDocument struct {
	Summary *models.RunSummary  `json:"summary,omitempty"`
	Results []models.TestResult `json:"results"`
}

// ExportTestCases writes test cases as indented JSON
func ExportTestCases(cases []models.TestCase, filePath string) error {
	w, closer, err := getWriter(filePath)
	if err != nil {
		return err
	}

	if cases == nil {
		cases = []models.TestCase{}
	}
	if err := writeJSON(w, cases); err != nil {
		closeQuietly(closer)
		return &ExportError{Op: "write test cases to", Path: filePath, Err: err}
	}
	return closeOutput(closer, filePath)
}

// ImportTestCases reads test cases previously written by ExportTestCases
func ImportTestCases(filePath string) ([]models.TestCase, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, &ExportError{Op: "read test cases from", Path: filePath, Err: err}
	}

	// numbers stay json.Number until NormalizeValues gives them the generator's types
	var cases []models.TestCase
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&cases); err != nil {
		return nil, &ExportError{Op: "decode test cases from", Path: filePath, Err: err}
	}
	for i := range cases {
		if cases[i].Params == nil {
			cases[i].Params = models.NewParams()
		}
		cases[i].NormalizeValues()
	}
	return cases, nil
}

// ExportResults exports test results to the specified format
func ExportResults(results []models.TestResult, summary *models.RunSummary, format Format, filePath string) error {
	if format != FormatJSON && format != FormatCSV {
		return fmt.Errorf("unsupported format: %s", format)
	}

	w, closer, err := getWriter(filePath)
	if err != nil {
		return err
	}

	if format == FormatCSV {
		err = exportResultsCSV(w, results)
	} else {
		err = exportResultsJSON(w, results, summary)
	}
	if err != nil {
		closeQuietly(closer)
		return &ExportError{Op: "write results to", Path: filePath, Err: err}
	}
	return closeOutput(closer, filePath)
}

// getWriter returns an io.Writer for output (stdout or file)
func getWriter(filePath string) (io.Writer, io.Closer, error) {
	if filePath == "" {
		return os.Stdout, nil, nil
	}

	f, err := os.Create(filePath)
	if err != nil {
		return nil, nil, &ExportError{Op: "create output file", Path: filePath, Err: err}
	}
	return f, f, nil
}

// closeOutput closes a file opened by getWriter. Buffered data that fails to reach disk surfaces here.
func closeOutput(closer io.Closer, filePath string) error {
	if closer == nil {
		return nil
	}
	if err := closer.Close(); err != nil {
		return &ExportError{Op: "close", Path: filePath, Err: err}
	}
	return nil
}

// closeQuietly releases the file after a write error, which is the error worth reporting
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close()
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// exportResultsJSON exports test results as JSON
func exportResultsJSON(w io.Writer, results []models.TestResult, summary *models.RunSummary) error {
	if results == nil {
		results = []models.TestResult{}
	}
	return writeJSON(w, ResultsDocument{Summary: summary, Results: results})
}

// exportResultsCSV exports test results as CSV
func exportResultsCSV(w io.Writer, results []models.TestResult) error {
	cw := csv.NewWriter(w)

	// Write header
	header := []string{
		"id", "test_id", "method", "endpoint", "status", "status_code",
		"expected_status_code", "response_time_ms", "error", "validation_errors",
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	// Write rows
	for _, r := range results {
		row := []string{
			r.ID,
			r.TestID,
			r.Method,
			r.Endpoint,
			string(r.Status),
			strconv.Itoa(r.StatusCode),
			strconv.Itoa(r.ExpectedStatusCode),
			fmt.Sprintf("%.2f", r.ResponseTimeMs),
			r.Error,
			strings.Join(r.ValidationErrors, "; "),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// ParseFormat parses a string into a Format, returning error if invalid
func ParseFormat(s string) (Format, error) {
	switch s {
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("invalid format '%s': must be 'json' or 'csv'", s)
	}
}
