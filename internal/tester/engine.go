package tester

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/GabrielNunesIT/go-libs/logger"
	"github.com/google/uuid"
	"github.com/moamenhredeen/oascov/internal/models"
	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"
	"golang.org/x/time/rate"
)

// EventType represents the type of test event
type EventType int

const (
	// EventRunStarted is emitted once before any test case is dispatched
	EventRunStarted EventType = iota
	// EventStarting indicates a test is about to start
	EventStarting
	// EventCompleted indicates a test has completed
	EventCompleted
	// EventRunCompleted is emitted once with the run summary
	EventRunCompleted
)

func (t EventType) String() string {
	switch t {
	case EventRunStarted:
		return "run_started"
	case EventStarting:
		return "starting"
	case EventCompleted:
		return "completed"
	case EventRunCompleted:
		return "run_completed"
	default:
		return "unknown"
	}
}

// TestEvent represents an event during test execution
type TestEvent struct {
	Type     EventType
	RunID    string
	TestCase *models.TestCase   // nil for run events
	Result   *models.TestResult // set for Completed events
	Summary  *models.RunSummary // set for RunCompleted events
	Index    int                // test case index (0-based)
	Total    int                // total number of test cases
}

// OnTestEvent is a callback function for test events.
// It may be called from several goroutines at once.
type OnTestEvent func(event TestEvent)

// Recorder persists runs and results. Engine calls CreateRun first, CreateResult once
// per result after every test case has resolved, then CompleteRun.
type Recorder interface {
	CreateRun(ctx context.Context, run models.Run) (string, error)
	CreateResult(ctx context.Context, result models.TestResult) (string, error)
	CompleteRun(ctx context.Context, runID string, summary models.RunSummary) (*models.RunSummary, error)
}

// Engine executes test cases concurrently against a live server
type Engine struct {
	config    Config
	client    *http.Client
	builder   *RequestBuilder
	validator *Validator
	limiter   *rate.Limiter
	recorder  Recorder
	onEvent   OnTestEvent
	log       logger.ILogger
}

// EngineOption configures an Engine
type EngineOption func(*Engine)

// WithRecorder sets the persistence collaborator
func WithRecorder(r Recorder) EngineOption {
	return func(e *Engine) {
		e.recorder = r
	}
}

// WithEventHandler sets the live event callback
func WithEventHandler(h OnTestEvent) EngineOption {
	return func(e *Engine) {
		e.onEvent = h
	}
}

// WithLogger sets the logger, otherwise the one carried by the context is used
func WithLogger(l logger.ILogger) EngineOption {
	return func(e *Engine) {
		e.log = l
	}
}

// WithHTTPClient replaces the pooled client
func WithHTTPClient(c *http.Client) EngineOption {
	return func(e *Engine) {
		if c != nil {
			e.client = c
		}
	}
}

// NewEngine creates a new engine sharing one connection-pooled client across all test cases
func NewEngine(config Config, opts ...EngineOption) *Engine {
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}

	idlePerHost := config.MaxConcurrency
	if idlePerHost <= 0 {
		idlePerHost = 100
	}
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DisableKeepAlives:   config.DisableKeepAlive,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: idlePerHost,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}

	// Create rate limiter if configured
	var limiter *rate.Limiter
	if config.RateLimit > 0 {
		burst := int(config.RateLimit)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(config.RateLimit), burst)
	}

	e := &Engine{
		config: config,
		// per-request deadlines come from the request context
		client:    &http.Client{Transport: transport},
		builder:   NewRequestBuilder(config.Headers, config.AuthToken),
		validator: NewValidator(config.Definitions),
		limiter:   limiter,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// outcome is what one unit of work hands back to the join
type outcome struct {
	index    int
	result   models.TestResult
	resolved bool
}

// Execute runs every test case concurrently and returns one result per resolved case in input order.
// If ctx is cancelled, resolved results are returned with ctx.Err() and a summary only when
// Config.PartialSummary is set.
func (e *Engine) Execute(ctx context.Context, baseURL string, cases []models.TestCase) ([]models.TestResult, *models.RunSummary, error) {
	log := e.logger(ctx)
	start := time.Now()
	total := len(cases)

	declared := e.config.DeclaredEndpoints
	if len(declared) == 0 {
		declared = distinctKeys(cases)
	}

	runID := newRunID(start)
	if e.recorder != nil {
		id, err := e.recorder.CreateRun(context.WithoutCancel(ctx), models.Run{
			RunID:          runID,
			SpecFile:       e.config.SpecFile,
			StartTime:      start,
			TotalTests:     total,
			TotalEndpoints: len(declared),
		})
		if err != nil {
			log.Warningf("failed to record run %s: %v", runID, err)
		} else if id != "" {
			runID = id
		}
	}
	e.emit(TestEvent{Type: EventRunStarted, RunID: runID, Total: total})
	log.Infof("run %s: executing %d test cases against %s", runID, total, baseURL)

	p := pool.NewWithResults[outcome]()
	if e.config.MaxConcurrency > 0 {
		p = p.WithMaxGoroutines(e.config.MaxConcurrency)
	}

	slots := make([]outcome, total)
	for i := range cases {
		tc := cases[i]
		if e.config.Skip != nil {
			if reason, skip := e.config.Skip(tc); skip {
				slots[i] = outcome{index: i, result: skippedResult(tc, reason), resolved: true}
				continue
			}
		}
		if ctx.Err() != nil {
			break
		}
		p.Go(func() outcome {
			return e.runUnit(ctx, runID, baseURL, i, total, tc)
		})
	}
	for _, o := range p.Wait() {
		slots[o.index] = o
	}
	end := time.Now()

	results := make([]models.TestResult, 0, total)
	for _, o := range slots {
		if o.resolved {
			results = append(results, o.result)
		}
	}

	if err := ctx.Err(); err != nil {
		log.Warningf("run %s cancelled with %d of %d test cases resolved", runID, len(results), total)
		if !e.config.PartialSummary {
			return results, nil, err
		}
		summary := Summarize(runID, e.config.SpecFile, start, end, results, declared)
		summary.Partial = true
		e.record(context.WithoutCancel(ctx), log, results, &summary)
		e.emit(TestEvent{Type: EventRunCompleted, RunID: runID, Summary: &summary, Total: total})
		return results, &summary, err
	}

	summary := Summarize(runID, e.config.SpecFile, start, end, results, declared)
	e.record(ctx, log, results, &summary)
	e.emit(TestEvent{Type: EventRunCompleted, RunID: runID, Summary: &summary, Total: total})
	log.Infof("run %s: %d passed, %d failed, %d errors, %d skipped, %.1f%% coverage",
		runID, summary.PassedTests, summary.FailedTests, summary.ErrorTests, summary.SkippedTests, summary.CoveragePercentage)

	return results, &summary, nil
}

// runUnit executes one test case in isolation. A panic becomes an ERROR result.
func (e *Engine) runUnit(ctx context.Context, runID, baseURL string, index, total int, tc models.TestCase) outcome {
	out := outcome{index: index}
	if ctx.Err() != nil {
		return out
	}
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return out
		}
	}

	e.emit(TestEvent{Type: EventStarting, RunID: runID, TestCase: &tc, Index: index, Total: total})

	var result models.TestResult
	resolved := true
	var catcher panics.Catcher
	catcher.Try(func() {
		result, resolved = e.runCase(ctx, baseURL, tc)
	})
	if r := catcher.Recovered(); r != nil {
		e.logger(ctx).Errorf("test %s panicked: %s", tc.Name, r.String())
		result = newResult(tc)
		result.Status = models.StatusError
		result.Error = fmt.Sprintf("test execution error: %v", r.Value)
		resolved = true
	}
	if !resolved {
		return out
	}

	e.emit(TestEvent{Type: EventCompleted, RunID: runID, TestCase: &tc, Result: &result, Index: index, Total: total})
	out.result = result
	out.resolved = true
	return out
}

// runCase issues the request of a test case and classifies the outcome.
// It reports false when the run was cancelled while the request was in flight.
func (e *Engine) runCase(ctx context.Context, baseURL string, tc models.TestCase) (models.TestResult, bool) {
	result := newResult(tc)

	reqCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	// Build request
	req, err := e.builder.BuildRequest(reqCtx, baseURL, tc)
	if err != nil {
		result.Status = models.StatusError
		result.Error = err.Error()
		return result, true
	}
	result.RequestHeaders = flattenHeaders(req.Header)
	result.RequestBody = tc.Body

	// Execute request
	startTime := time.Now()
	resp, err := e.client.Do(req)
	if err != nil {
		result.ResponseTimeMs = msSince(startTime)
		if ctx.Err() != nil {
			return result, false
		}
		result.Status = models.StatusError
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			result.Error = "request timed out"
		} else {
			result.Error = fmt.Sprintf("request failed: %v", err)
		}
		return result, true
	}
	defer resp.Body.Close()

	// the request timeout also bounds reading the body
	data, err := io.ReadAll(resp.Body)
	result.ResponseTimeMs = msSince(startTime)
	if err != nil {
		if ctx.Err() != nil {
			return result, false
		}
		result.Status = models.StatusError
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			result.Error = "request timed out"
		} else {
			result.Error = fmt.Sprintf("failed to read response body: %v", err)
		}
		return result, true
	}

	result.StatusCode = resp.StatusCode
	result.ResponseHeaders = flattenHeaders(resp.Header)
	contentType := resp.Header.Get("Content-Type")
	if e.config.SaveBodies {
		result.ResponseBody = captureBody(data, contentType)
	}

	if resp.StatusCode == tc.ExpectedStatusCode {
		result.Status = models.StatusPassed
	} else {
		result.Status = models.StatusFailed
		result.ValidationErrors = append(result.ValidationErrors, models.ValidationError{
			Field:   "status_code",
			Message: fmt.Sprintf("expected %d, got %d", tc.ExpectedStatusCode, resp.StatusCode),
		}.String())
	}

	// Schema validation only reports, it never changes the status
	if e.config.ValidateSchemas && tc.ExpectedResponse != nil && resp.StatusCode == tc.ExpectedStatusCode {
		validationErrors := e.validator.ValidateBody(data, contentType, tc.ExpectedResponse)
		passed := len(validationErrors) == 0
		result.SchemaValidated = true
		result.SchemaValidationPassed = &passed
		for _, ve := range validationErrors {
			result.ValidationErrors = append(result.ValidationErrors, ve.String())
		}
	}

	return result, true
}

// record hands results and the summary to the recorder. Failures are logged, never returned.
func (e *Engine) record(ctx context.Context, log logger.ILogger, results []models.TestResult, summary *models.RunSummary) {
	ids := make([]string, 0, len(results))
	for _, r := range results {
		id := r.ID
		if e.recorder != nil {
			recorded, err := e.recorder.CreateResult(ctx, r)
			if err != nil {
				log.Warningf("failed to record result %s: %v", r.ID, err)
			} else if recorded != "" {
				id = recorded
			}
		}
		ids = append(ids, id)
	}
	summary.ResultIDs = ids

	if e.recorder == nil {
		return
	}
	if _, err := e.recorder.CompleteRun(ctx, summary.RunID, *summary); err != nil {
		log.Warningf("failed to complete run %s: %v", summary.RunID, err)
	}
}

func (e *Engine) emit(event TestEvent) {
	if e.onEvent != nil {
		e.onEvent(event)
	}
}

func (e *Engine) logger(ctx context.Context) logger.ILogger {
	if e.log != nil {
		return e.log
	}
	return logger.FromCtx(ctx)
}

func newResult(tc models.TestCase) models.TestResult {
	return models.TestResult{
		ID:                 newResultID(),
		TestID:             tc.Name,
		Endpoint:           tc.Endpoint,
		Method:             tc.Method,
		ExpectedStatusCode: tc.ExpectedStatusCode,
		RequestTimestamp:   time.Now().UTC(),
	}
}

func skippedResult(tc models.TestCase, reason string) models.TestResult {
	result := newResult(tc)
	result.Status = models.StatusSkipped
	if reason != "" {
		result.ValidationErrors = []string{models.ValidationError{Field: "filter", Message: reason}.String()}
	}
	return result
}

func newRunID(start time.Time) string {
	return fmt.Sprintf("run-%s-%s", start.Format("20060102-150405"), uuid.NewString()[:4])
}

func newResultID() string {
	return "res-" + uuid.NewString()[:8]
}

func msSince(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
