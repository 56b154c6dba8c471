package output

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/moamenhredeen/oascov/internal/generator"
	"github.com/moamenhredeen/oascov/internal/models"
	"github.com/moamenhredeen/oascov/internal/parser"
)

func loadPetstore(t *testing.T) *models.EndpointSet {
	t.Helper()
	set, err := parser.Load(context.Background(), "../parser/testdata/petstore.yaml")
	if err != nil {
		t.Fatalf("Failed to parse file: %v", err)
	}
	return set
}

func TestExportImportTestCases(t *testing.T) {
	set := loadPetstore(t)
	cases, err := generator.GenerateSet(set, generator.WithSeed(7))
	if err != nil {
		t.Fatalf("Failed to generate test cases: %v", err)
	}

	path := filepath.Join(t.TempDir(), "cases.json")
	if err := ExportTestCases(cases, path); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	imported, err := ImportTestCases(path)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	if len(imported) != len(cases) {
		t.Fatalf("Expected %d test cases, got %d", len(cases), len(imported))
	}
	for i := range cases {
		if !reflect.DeepEqual(cases[i], imported[i]) {
			t.Errorf("Test case %s changed on import:\n exported %#v\n imported %#v", cases[i].Name, cases[i], imported[i])
		}
	}
}

func TestExportImportKeepsNumberTypes(t *testing.T) {
	minimum := 1.0
	params := models.NewParams()
	params[models.LocationQuery]["limit"] = models.ParamValue{
		Required: true,
		Example:  int64(20),
		Schema:   &models.Schema{Type: "integer", Minimum: &minimum, Default: int64(20), Enum: []any{int64(10), int64(20)}},
	}
	cases := []models.TestCase{{
		Name:     "createPets_happy_path",
		Variant:  models.VariantHappyPath,
		Endpoint: "/pets",
		Method:   "POST",
		Params:   params,
		Body: map[string]any{
			"id":    int64(95),
			"ratio": 0.25,
			"big":   float64(1e20),
			"tags":  []any{"a", int64(-1)},
			"owner": map[string]any{"age": int64(40), "name": nil},
		},
		ExpectedStatusCode: 201,
	}}

	path := filepath.Join(t.TempDir(), "cases.json")
	if err := ExportTestCases(cases, path); err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	imported, err := ImportTestCases(path)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	if !reflect.DeepEqual(cases, imported) {
		t.Errorf("Expected %#v, got %#v", cases, imported)
	}
}

func TestExportTestCasesEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cases.json")
	if err := ExportTestCases(nil, path); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read export: %v", err)
	}
	if string(data) != "[]\n" {
		t.Errorf("Expected empty JSON array, got %q", string(data))
	}
}

func TestImportTestCasesErrors(t *testing.T) {
	dir := t.TempDir()
	invalid := filepath.Join(dir, "invalid.json")
	if err := os.WriteFile(invalid, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	tests := []struct {
		name string
		path string
	}{
		{"missing file", filepath.Join(dir, "missing.json")},
		{"invalid JSON", invalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ImportTestCases(tt.path)
			var exportErr *ExportError
			if !errors.As(err, &exportErr) {
				t.Fatalf("Expected ExportError, got %v", err)
			}
			if exportErr.Path != tt.path {
				t.Errorf("Expected path %s, got %s", tt.path, exportErr.Path)
			}
		})
	}
}

func TestExportUnwritablePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "dir", "out.json")
	cases := []models.TestCase{{Name: "a", Params: models.NewParams()}}

	err := ExportTestCases(cases, path)
	var exportErr *ExportError
	if !errors.As(err, &exportErr) {
		t.Fatalf("Expected ExportError, got %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected wrapped not-exist error, got %v", err)
	}
	if cases[0].Name != "a" {
		t.Error("Expected in-memory data to be untouched")
	}
}

type failingCloser struct{}

func (failingCloser) Close() error { return errors.New("disk full") }

func TestCloseOutputReportsError(t *testing.T) {
	err := closeOutput(failingCloser{}, "out.json")
	var exportErr *ExportError
	if !errors.As(err, &exportErr) {
		t.Fatalf("Expected ExportError, got %v", err)
	}
	if exportErr.Path != "out.json" || exportErr.Op != "close" {
		t.Errorf("Unexpected error %v", exportErr)
	}

	if err := closeOutput(nil, ""); err != nil {
		t.Errorf("Expected no error for stdout, got %v", err)
	}
}

func sampleResults() ([]models.TestResult, *models.RunSummary) {
	results := []models.TestResult{
		{ID: "res-1", TestID: "listPets_happy_path", Method: "GET", Endpoint: "/pets", Status: models.StatusPassed, StatusCode: 200, ExpectedStatusCode: 200, ResponseTimeMs: 12.5},
		{ID: "res-2", TestID: "createPets_invalid_body", Method: "POST", Endpoint: "/pets", Status: models.StatusFailed, StatusCode: 500, ExpectedStatusCode: 400,
			ValidationErrors: []string{"status_code: expected 400, got 500", "body: bad"}},
	}
	summary := &models.RunSummary{RunID: "run-1", TotalTests: 2, PassedTests: 1, FailedTests: 1, SuccessRate: 50}
	return results, summary
}

func TestExportResultsJSON(t *testing.T) {
	results, summary := sampleResults()
	path := filepath.Join(t.TempDir(), "results.json")

	if err := ExportResults(results, summary, FormatJSON, path); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read export: %v", err)
	}
	var doc ResultsDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("Expected valid JSON: %v", err)
	}
	if len(doc.Results) != 2 || doc.Summary == nil || doc.Summary.RunID != "run-1" {
		t.Errorf("Unexpected document %+v", doc)
	}
}

func TestExportResultsCSV(t *testing.T) {
	results, summary := sampleResults()
	path := filepath.Join(t.TempDir(), "results.csv")

	if err := ExportResults(results, summary, FormatCSV, path); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Failed to open export: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("Expected valid CSV: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("Expected header and 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "id" || rows[1][4] != "passed" || rows[1][7] != "12.50" {
		t.Errorf("Unexpected rows %v", rows)
	}
	if rows[2][9] != "status_code: expected 400, got 500; body: bad" {
		t.Errorf("Unexpected validation errors column %q", rows[2][9])
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in       string
		expected Format
		wantErr  bool
	}{
		{"json", FormatJSON, false},
		{"csv", FormatCSV, false},
		{"xml", "", true},
	}

	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) error = %v", tt.in, err)
		}
		if got != tt.expected {
			t.Errorf("ParseFormat(%q) = %q, expected %q", tt.in, got, tt.expected)
		}
	}
}
