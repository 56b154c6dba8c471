package tester

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/moamenhredeen/oascov/internal/generator"
	"github.com/moamenhredeen/oascov/internal/models"
	"github.com/moamenhredeen/oascov/internal/parser"
)

// createMockServer creates a mock HTTP server that implements the pet-store API
func createMockServer() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		switch {
		case r.Method == "GET" && r.URL.Path == "/pets":
			pets := []map[string]any{
				{"id": 1, "name": "Fluffy"},
				{"id": 2, "name": "Spot"},
			}
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(pets)
		case r.Method == "POST" && r.URL.Path == "/pets":
			var body map[string]any
			data, _ := io.ReadAll(r.Body)
			if err := json.Unmarshal(data, &body); err != nil || body["name"] == nil {
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(map[string]string{"error": "invalid pet"})
				return
			}
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(body)
		case r.Method == "GET" && strings.HasPrefix(r.URL.Path, "/pets/"):
			if r.Header.Get("X-Request-Id") == "" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]any{"id": 1, "name": "Fluffy"})
		case r.Method == "DELETE" && strings.HasPrefix(r.URL.Path, "/pets/"):
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func scenarioCases() []models.TestCase {
	get := newTestCase("GET", "/pets")
	get.Name = "listPets_happy_path"

	create := newTestCase("POST", "/pets")
	create.Name = "createPets_happy_path"
	create.ExpectedStatusCode = 201
	create.Body = map[string]any{"id": 1, "name": "rex"}

	invalid := newTestCase("POST", "/pets")
	invalid.Name = "createPets_invalid_body"
	invalid.ExpectedStatusCode = 400
	invalid.Body = map[string]any{}

	return []models.TestCase{get, create, invalid}
}

func TestIntegrationScenario(t *testing.T) {
	server := createMockServer()
	defer server.Close()

	config := DefaultConfig()
	config.DeclaredEndpoints = []models.EndpointKey{{Method: "GET", Path: "/pets"}, {Method: "POST", Path: "/pets"}}
	engine := NewEngine(config)

	results, summary, err := engine.Execute(context.Background(), server.URL, scenarioCases())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}
	for _, r := range results {
		if r.Status != models.StatusPassed {
			t.Errorf("%s: expected PASSED, got %s (%d, %v)", r.TestID, r.Status, r.StatusCode, r.ValidationErrors)
		}
		if r.StatusCode != r.ExpectedStatusCode {
			t.Errorf("%s: passed with status %d != %d", r.TestID, r.StatusCode, r.ExpectedStatusCode)
		}
		if !strings.HasPrefix(r.ID, "res-") || len(r.ID) != 12 {
			t.Errorf("Unexpected result id %s", r.ID)
		}
	}
	if summary.CoveragePercentage != 100 {
		t.Errorf("Expected 100%% coverage, got %f", summary.CoveragePercentage)
	}
	if summary.PassedTests != 3 || summary.SuccessRate != 100 {
		t.Errorf("Unexpected summary %+v", summary)
	}
	if !strings.HasPrefix(summary.RunID, "run-") {
		t.Errorf("Unexpected run id %s", summary.RunID)
	}
	if len(summary.ResultIDs) != 3 {
		t.Errorf("Expected 3 result ids, got %v", summary.ResultIDs)
	}
	if summary.HasFailures() {
		t.Error("Expected no failures")
	}
}

func TestIntegrationFullFlow(t *testing.T) {
	server := createMockServer()
	defer server.Close()

	set, err := parser.Load(context.Background(), "../parser/testdata/petstore.yaml")
	if err != nil {
		t.Fatalf("Failed to parse file: %v", err)
	}
	cases, err := generator.GenerateSet(set, generator.WithSeed(1))
	if err != nil {
		t.Fatalf("Failed to generate test cases: %v", err)
	}

	config := DefaultConfig()
	config.DeclaredEndpoints = set.Keys()
	config.Definitions = set.Definitions
	results, summary, err := NewEngine(config).Execute(context.Background(), server.URL, cases)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if len(results) != len(cases) {
		t.Fatalf("Expected %d results, got %d", len(cases), len(results))
	}
	for i, r := range results {
		if r.TestID != cases[i].Name {
			t.Errorf("Result %d: expected %s, got %s", i, cases[i].Name, r.TestID)
		}
	}
	if summary.CoveragePercentage != 100 {
		t.Errorf("Expected full coverage, got %f", summary.CoveragePercentage)
	}

	for _, r := range results {
		if r.TestID == "listPets_happy_path" {
			if r.Status != models.StatusPassed {
				t.Errorf("Expected listPets to pass, got %s", r.Status)
			}
			if !r.SchemaValidated || r.SchemaValidationPassed == nil || !*r.SchemaValidationPassed {
				t.Errorf("Expected schema validation to pass, got %v", r.ValidationErrors)
			}
		}
	}
}

func TestIntegrationUnreachableHost(t *testing.T) {
	config := DefaultConfig()
	config.Timeout = 2 * time.Second
	engine := NewEngine(config)

	cases := make([]models.TestCase, 20)
	for i := range cases {
		cases[i] = newTestCase("GET", fmt.Sprintf("/pets/%d", i))
	}

	start := time.Now()
	results, summary, err := engine.Execute(context.Background(), "http://127.0.0.1:1", cases)
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if len(results) != len(cases) {
		t.Fatalf("Expected %d results, got %d", len(cases), len(results))
	}
	for _, r := range results {
		if r.Status != models.StatusError {
			t.Errorf("Expected ERROR, got %s", r.Status)
		}
		if r.Error == "" {
			t.Error("Expected a diagnostic")
		}
		if r.StatusCode != 0 {
			t.Errorf("Expected status code 0, got %d", r.StatusCode)
		}
	}
	if summary.ErrorTests != len(cases) {
		t.Errorf("Expected %d errors, got %d", len(cases), summary.ErrorTests)
	}
	if elapsed > 2*config.Timeout {
		t.Errorf("Expected concurrent dispatch, took %s", elapsed)
	}
}

func TestIntegrationTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	config := DefaultConfig()
	config.Timeout = 200 * time.Millisecond
	engine := NewEngine(config)

	cases := []models.TestCase{newTestCase("GET", "/a"), newTestCase("GET", "/b"), newTestCase("GET", "/c"), newTestCase("GET", "/d")}

	start := time.Now()
	results, _, err := engine.Execute(context.Background(), server.URL, cases)
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	for _, r := range results {
		if r.Status != models.StatusError || r.Error != "request timed out" {
			t.Errorf("Expected timeout error, got %s %q", r.Status, r.Error)
		}
		if r.ResponseTimeMs <= 0 {
			t.Errorf("Expected response time to be recorded, got %f", r.ResponseTimeMs)
		}
	}
	if elapsed > 1500*time.Millisecond {
		t.Errorf("Expected timeouts to run concurrently, took %s", elapsed)
	}
}

func TestIntegrationBodyTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		fmt.Fprint(w, `[]`)
	}))
	defer server.Close()

	config := DefaultConfig()
	config.Timeout = 100 * time.Millisecond
	engine := NewEngine(config)

	results, summary, err := engine.Execute(context.Background(), server.URL, []models.TestCase{newTestCase("GET", "/pets")})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(results))
	}

	r := results[0]
	if r.Status != models.StatusError {
		t.Errorf("Expected status error, got %s", r.Status)
	}
	if r.Error != "request timed out" {
		t.Errorf("Expected timeout diagnostic, got %q", r.Error)
	}
	if r.StatusCode != 0 {
		t.Errorf("Expected no status code for an unread response, got %d", r.StatusCode)
	}
	if r.ResponseTimeMs <= 0 {
		t.Errorf("Expected response time to be recorded, got %f", r.ResponseTimeMs)
	}
	if summary.PassedTests != 0 || summary.ErrorTests != 1 {
		t.Errorf("Expected one error and no passes, got %+v", summary)
	}
}

func TestIntegrationFailedStatus(t *testing.T) {
	server := createMockServer()
	defer server.Close()

	tc := newTestCase("GET", "/missing")
	results, summary, err := NewEngine(DefaultConfig()).Execute(context.Background(), server.URL, []models.TestCase{tc})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if results[0].Status != models.StatusFailed || results[0].StatusCode != 404 {
		t.Errorf("Expected FAILED with 404, got %s %d", results[0].Status, results[0].StatusCode)
	}
	if len(results[0].ValidationErrors) == 0 {
		t.Error("Expected a status code validation message")
	}
	if !summary.HasFailures() {
		t.Error("Expected failures")
	}
}

type panicTransport struct {
	next http.RoundTripper
}

func (p panicTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	if r.URL.Path == "/boom" {
		panic("transport exploded")
	}
	return p.next.RoundTrip(r)
}

func TestIntegrationPanicIsolation(t *testing.T) {
	server := createMockServer()
	defer server.Close()

	client := &http.Client{Transport: panicTransport{next: http.DefaultTransport}}
	engine := NewEngine(DefaultConfig(), WithHTTPClient(client))

	cases := []models.TestCase{newTestCase("GET", "/pets"), newTestCase("GET", "/boom"), newTestCase("GET", "/pets")}
	results, _, err := engine.Execute(context.Background(), server.URL, cases)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}
	if results[1].Status != models.StatusError || !strings.Contains(results[1].Error, "transport exploded") {
		t.Errorf("Expected panic to become an ERROR result, got %s %q", results[1].Status, results[1].Error)
	}
	if results[0].Status != models.StatusPassed || results[2].Status != models.StatusPassed {
		t.Error("Expected sibling test cases to be unaffected")
	}
}

func TestIntegrationUnsupportedMethod(t *testing.T) {
	server := createMockServer()
	defer server.Close()

	results, _, err := NewEngine(DefaultConfig()).Execute(context.Background(), server.URL, []models.TestCase{newTestCase("TRACE", "/pets")})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if results[0].Status != models.StatusError || results[0].ResponseTimeMs != 0 {
		t.Errorf("Expected ERROR before dispatch, got %+v", results[0])
	}
}

func TestIntegrationSkip(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	config := DefaultConfig()
	config.Skip = func(tc models.TestCase) (string, bool) {
		return "excluded by filter", tc.Endpoint == "/skip"
	}
	results, summary, err := NewEngine(config).Execute(context.Background(), server.URL,
		[]models.TestCase{newTestCase("GET", "/run"), newTestCase("GET", "/skip")})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if hits.Load() != 1 {
		t.Errorf("Expected only one request to be sent, got %d", hits.Load())
	}
	if results[1].Status != models.StatusSkipped || results[1].StatusCode != 0 {
		t.Errorf("Expected SKIPPED, got %+v", results[1])
	}
	if summary.SkippedTests != 1 || summary.CoveragePercentage != 50 {
		t.Errorf("Unexpected summary %+v", summary)
	}
}

func TestIntegrationCaptureBodies(t *testing.T) {
	server := createMockServer()
	defer server.Close()

	config := DefaultConfig()
	config.SaveBodies = true
	tc := newTestCase("GET", "/pets")
	tc.ExpectedResponse = &models.Schema{Type: "object"}

	results, _, err := NewEngine(config).Execute(context.Background(), server.URL, []models.TestCase{tc})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	r := results[0]
	if body, ok := r.ResponseBody.([]any); !ok || len(body) != 2 {
		t.Errorf("Expected decoded response body, got %v", r.ResponseBody)
	}
	if r.ResponseHeaders["Content-Type"] != "application/json" {
		t.Errorf("Expected response headers, got %v", r.ResponseHeaders)
	}
	if r.RequestHeaders["User-Agent"] != "oascov/1.0" {
		t.Errorf("Expected request headers, got %v", r.RequestHeaders)
	}
	// schema mismatch is reported without changing the status
	if r.Status != models.StatusPassed {
		t.Errorf("Expected PASSED, got %s", r.Status)
	}
	if !r.SchemaValidated || r.SchemaValidationPassed == nil || *r.SchemaValidationPassed {
		t.Errorf("Expected failed schema validation flag, got %v %v", r.SchemaValidated, r.SchemaValidationPassed)
	}
}

type fakeRecorder struct {
	mu    sync.Mutex
	calls []string
	fail  bool
}

func (f *fakeRecorder) CreateRun(ctx context.Context, run models.Run) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "run:"+fmt.Sprint(run.TotalTests))
	return "", nil
}

func (f *fakeRecorder) CreateResult(ctx context.Context, result models.TestResult) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "result")
	if f.fail {
		return "", errors.New("store unavailable")
	}
	return "stored-" + result.ID, nil
}

func (f *fakeRecorder) CompleteRun(ctx context.Context, runID string, summary models.RunSummary) (*models.RunSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "complete")
	return &summary, nil
}

func TestIntegrationRecorder(t *testing.T) {
	server := createMockServer()
	defer server.Close()

	recorder := &fakeRecorder{}
	_, summary, err := NewEngine(DefaultConfig(), WithRecorder(recorder)).Execute(context.Background(), server.URL, scenarioCases())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	expected := []string{"run:3", "result", "result", "result", "complete"}
	if strings.Join(recorder.calls, ",") != strings.Join(expected, ",") {
		t.Errorf("Expected calls %v, got %v", expected, recorder.calls)
	}
	for _, id := range summary.ResultIDs {
		if !strings.HasPrefix(id, "stored-") {
			t.Errorf("Expected recorder ids in summary, got %s", id)
		}
	}

	// recorder failures never fail the run
	failing := &fakeRecorder{fail: true}
	results, _, err := NewEngine(DefaultConfig(), WithRecorder(failing)).Execute(context.Background(), server.URL, scenarioCases())
	if err != nil || len(results) != 3 {
		t.Errorf("Expected run to succeed despite recorder errors, got %d results, %v", len(results), err)
	}
}

func TestIntegrationEvents(t *testing.T) {
	server := createMockServer()
	defer server.Close()

	var mu sync.Mutex
	counts := map[EventType]int{}
	handler := func(e TestEvent) {
		mu.Lock()
		defer mu.Unlock()
		counts[e.Type]++
		if e.Type == EventRunCompleted && e.Summary == nil {
			t.Error("Expected summary on run completed event")
		}
		if e.Type == EventCompleted && e.Result == nil {
			t.Error("Expected result on completed event")
		}
	}

	config := DefaultConfig()
	config.MaxConcurrency = 2
	config.RateLimit = 100
	_, _, err := NewEngine(config, WithEventHandler(handler)).Execute(context.Background(), server.URL, scenarioCases())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if counts[EventRunStarted] != 1 || counts[EventRunCompleted] != 1 {
		t.Errorf("Expected one run start and completion, got %v", counts)
	}
	if counts[EventStarting] != 3 || counts[EventCompleted] != 3 {
		t.Errorf("Expected 3 starting and completed events, got %v", counts)
	}
}

func TestIntegrationCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/slow" {
			<-r.Context().Done()
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cases := []models.TestCase{newTestCase("GET", "/fast"), newTestCase("GET", "/slow"), newTestCase("GET", "/fast"), newTestCase("GET", "/slow")}

	for _, partial := range []bool{false, true} {
		ctx, cancel := context.WithCancel(context.Background())
		var fast atomic.Int32
		handler := func(e TestEvent) {
			if e.Type == EventCompleted && e.TestCase.Endpoint == "/fast" && fast.Add(1) == 2 {
				cancel()
			}
		}

		config := DefaultConfig()
		config.PartialSummary = partial
		results, summary, err := NewEngine(config, WithEventHandler(handler)).Execute(ctx, server.URL, cases)
		cancel()

		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Expected context.Canceled, got %v", err)
		}
		if len(results) != 2 {
			t.Errorf("Expected the 2 resolved results, got %d", len(results))
		}
		if partial {
			if summary == nil || !summary.Partial || summary.TotalTests != 2 {
				t.Errorf("Expected partial summary, got %+v", summary)
			}
		} else if summary != nil {
			t.Errorf("Expected no summary, got %+v", summary)
		}
	}
}
