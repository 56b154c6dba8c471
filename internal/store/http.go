package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/moamenhredeen/oascov/internal/models"
)

// HTTPStore records runs and results through the results API
type HTTPStore struct {
	baseURL string
	client  *http.Client
	headers map[string]string
}

// NewHTTPStore creates a store for the results API at baseURL
func NewHTTPStore(baseURL string, headers map[string]string) *HTTPStore {
	return &HTTPStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
		headers: headers,
	}
}

// CreateRun posts the run record and returns the run id the API reports
func (s *HTTPStore) CreateRun(ctx context.Context, run models.Run) (string, error) {
	var created struct {
		RunID string `json:"run_id"`
	}
	if err := s.do(ctx, http.MethodPost, "/api/results/run", run, &created); err != nil {
		return "", fmt.Errorf("failed to create run: %w", err)
	}
	return created.RunID, nil
}

// CreateResult posts a result and returns the id the API assigned
func (s *HTTPStore) CreateResult(ctx context.Context, result models.TestResult) (string, error) {
	var created struct {
		ID string `json:"id"`
	}
	if err := s.do(ctx, http.MethodPost, "/api/results", result, &created); err != nil {
		return "", fmt.Errorf("failed to create result %s: %w", result.ID, err)
	}
	return created.ID, nil
}

// CompleteRun marks a run complete. The API's view of the run is returned.
func (s *HTTPStore) CompleteRun(ctx context.Context, runID string, summary models.RunSummary) (*models.RunSummary, error) {
	var completed models.RunSummary
	path := "/api/results/run/" + url.PathEscape(runID) + "/complete"
	if err := s.do(ctx, http.MethodPut, path, summary, &completed); err != nil {
		return nil, fmt.Errorf("failed to complete run %s: %w", runID, err)
	}
	return &completed, nil
}

func (s *HTTPStore) do(ctx context.Context, method, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
