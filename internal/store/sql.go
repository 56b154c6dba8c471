package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
	"github.com/moamenhredeen/oascov/internal/models"
)

// schema is portable across sqlite3 and mysql. Timestamps are stored as fixed-width UTC text.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS test_runs (
		run_id VARCHAR(64) PRIMARY KEY,
		spec_file TEXT NOT NULL,
		start_time VARCHAR(40) NOT NULL,
		end_time VARCHAR(40),
		total_tests INTEGER NOT NULL DEFAULT 0,
		passed_tests INTEGER NOT NULL DEFAULT 0,
		failed_tests INTEGER NOT NULL DEFAULT 0,
		error_tests INTEGER NOT NULL DEFAULT 0,
		skipped_tests INTEGER NOT NULL DEFAULT 0,
		total_endpoints INTEGER NOT NULL DEFAULT 0,
		covered_endpoints INTEGER NOT NULL DEFAULT 0,
		summary TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS test_results (
		id VARCHAR(64) PRIMARY KEY,
		run_id VARCHAR(64) NOT NULL,
		test_id VARCHAR(255) NOT NULL,
		endpoint TEXT NOT NULL,
		method VARCHAR(16) NOT NULL,
		status VARCHAR(16) NOT NULL,
		status_code INTEGER NOT NULL,
		expected_status_code INTEGER NOT NULL,
		response_time_ms DOUBLE NOT NULL,
		request_timestamp VARCHAR(40) NOT NULL,
		data TEXT NOT NULL
	)`,
}

// SQLStore records runs and results in a sqlite3 or mysql database
type SQLStore struct {
	db *sql.DB

	mu    sync.Mutex
	runID string
}

// NewSQLStore opens the database, verifies connectivity and creates missing tables
func NewSQLStore(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}
	if driver == "sqlite3" {
		// sqlite allows a single writer
		db.SetMaxOpenConns(1)
	} else {
		db.SetConnMaxLifetime(3 * time.Minute)
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w", driver, err)
	}

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return &SQLStore{db: db}, nil
}

// Close closes the underlying database connection
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// CreateRun inserts a run row. Results created afterwards belong to this run.
func (s *SQLStore) CreateRun(ctx context.Context, run models.Run) (string, error) {
	query := `
		INSERT INTO test_runs (run_id, spec_file, start_time, total_tests, total_endpoints)
		VALUES (?, ?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query,
		run.RunID,
		run.SpecFile,
		formatTime(run.StartTime),
		run.TotalTests,
		run.TotalEndpoints,
	); err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	s.mu.Lock()
	s.runID = run.RunID
	s.mu.Unlock()
	return run.RunID, nil
}

// CreateResult inserts a result row for the current run
func (s *SQLStore) CreateResult(ctx context.Context, result models.TestResult) (string, error) {
	s.mu.Lock()
	runID := s.runID
	s.mu.Unlock()
	if runID == "" {
		return "", errors.New("no run has been created")
	}

	data, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("failed to encode result %s: %w", result.ID, err)
	}

	query := `
		INSERT INTO test_results (id, run_id, test_id, endpoint, method, status, status_code, expected_status_code, response_time_ms, request_timestamp, data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query,
		result.ID,
		runID,
		result.TestID,
		result.Endpoint,
		result.Method,
		string(result.Status),
		result.StatusCode,
		result.ExpectedStatusCode,
		result.ResponseTimeMs,
		formatTime(result.RequestTimestamp),
		string(data),
	); err != nil {
		return "", fmt.Errorf("failed to insert result: %w", err)
	}
	return result.ID, nil
}

// CompleteRun stores the final counts and summary of a run
func (s *SQLStore) CompleteRun(ctx context.Context, runID string, summary models.RunSummary) (*models.RunSummary, error) {
	data, err := json.Marshal(summary)
	if err != nil {
		return nil, fmt.Errorf("failed to encode summary: %w", err)
	}

	query := `
		UPDATE test_runs
		SET end_time = ?, total_tests = ?, passed_tests = ?, failed_tests = ?, error_tests = ?, skipped_tests = ?,
			total_endpoints = ?, covered_endpoints = ?, summary = ?
		WHERE run_id = ?
	`
	res, err := s.db.ExecContext(ctx, query,
		formatTime(summary.EndTime),
		summary.TotalTests,
		summary.PassedTests,
		summary.FailedTests,
		summary.ErrorTests,
		summary.SkippedTests,
		summary.TotalEndpoints,
		summary.CoveredEndpoints,
		string(data),
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, fmt.Errorf("run %s not found", runID)
	}
	return &summary, nil
}

// GetRun returns the summary of a completed run, or nil when the run is unknown or still open
func (s *SQLStore) GetRun(ctx context.Context, runID string) (*models.RunSummary, error) {
	var summary sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT summary FROM test_runs WHERE run_id = ?`, runID).Scan(&summary)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to select run: %w", err)
	}
	if !summary.Valid {
		return nil, nil
	}

	var out models.RunSummary
	if err := json.Unmarshal([]byte(summary.String), &out); err != nil {
		return nil, fmt.Errorf("failed to decode summary of run %s: %w", runID, err)
	}
	return &out, nil
}

// ListResults returns the results of a run ordered by request time
func (s *SQLStore) ListResults(ctx context.Context, runID string) ([]models.TestResult, error) {
	query := `SELECT data FROM test_results WHERE run_id = ? ORDER BY request_timestamp, id`
	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to select results: %w", err)
	}
	defer rows.Close()

	var results []models.TestResult
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		var r models.TestResult
		if err := json.Unmarshal([]byte(data), &r); err != nil {
			return nil, fmt.Errorf("failed to decode result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// timeLayout is fixed width so stored timestamps sort as text
const timeLayout = "2006-01-02T15:04:05.000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
