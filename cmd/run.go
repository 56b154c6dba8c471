/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/moamenhredeen/oascov/internal/filter"
	"github.com/moamenhredeen/oascov/internal/models"
	"github.com/moamenhredeen/oascov/internal/mq"
	"github.com/moamenhredeen/oascov/internal/output"
	"github.com/moamenhredeen/oascov/internal/store"
	"github.com/moamenhredeen/oascov/internal/tester"
	"github.com/spf13/cobra"
)

var (
	runTestsFile  string
	serverURL     string
	runFilter     string
	runTags       []string
	runWhere      string
	runLimit      int
	runOutputFile string
	runFormat     string
	runPostman    string
)

// errTestsFailed makes the process exit non-zero once every deferred cleanup has run
var errTestsFailed = errors.New("one or more tests failed")

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [openapi-spec]",
	Short: "Generate and execute test cases against a live server",
	Long: `Generate test cases from an OpenAPI document, or load previously exported
ones, and execute them concurrently against a live server.

Every test case yields exactly one result: PASSED, FAILED, ERROR or SKIPPED.
Test cases excluded by --filter, --tags, --where or --limit are reported as
SKIPPED. The command exits with status 1 when any test failed or errored.

Examples:
  # Run against the first server declared in the document
  oascov run api-spec.yaml

  # Run against a local server with at most 10 requests in flight
  oascov run api-spec.yaml --url http://localhost:8080 -c 10

  # Only negative tests of the pets endpoints
  oascov run api-spec.yaml --filter /pets --where "variant != 'happy_path'"

  # Execute exported test cases and save results as CSV
  oascov run --tests cases.json --url http://localhost:8080 --format csv --output results.csv`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTests,
}

func runTests(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && runTestsFile == "" {
		return errors.New("an OpenAPI document or --tests is required")
	}

	// Setup context with signal handling
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			fmt.Println("\n\nRun interrupted, reporting partial results...")
			cancel()
		case <-ctx.Done():
		}
	}()

	var set *models.EndpointSet
	if len(args) == 1 {
		var err error
		if set, err = loadSpec(ctx, args[0]); err != nil {
			return err
		}
	}

	cases, err := loadCases(set)
	if err != nil {
		return err
	}
	if len(cases) == 0 {
		fmt.Println("No test cases found")
		return nil
	}

	engineCfg := tester.Config{
		Headers:          cfg.Engine.Headers,
		AuthToken:        cfg.Auth.Token,
		Timeout:          cfg.Engine.Timeout,
		MaxConcurrency:   cfg.Engine.Concurrency,
		RateLimit:        cfg.Engine.RateLimit,
		DisableKeepAlive: cfg.Engine.DisableKeepAlive,
		SaveBodies:       cfg.Engine.SaveBodies,
		ValidateSchemas:  cfg.Engine.ValidateSchemas,
		SpecFile:         runTestsFile,
		PartialSummary:   true,
	}
	if set != nil {
		engineCfg.SpecFile = set.Source
		engineCfg.DeclaredEndpoints = set.Keys()
		engineCfg.Definitions = set.Definitions
	}

	selector, err := filter.New(filter.Criteria{Pattern: runFilter, Tags: runTags, Where: runWhere, Limit: runLimit})
	if err != nil {
		return err
	}
	if !selector.Empty() {
		if engineCfg.Skip, err = selector.SkipFunc(cases); err != nil {
			return err
		}
	}

	if cfg.Auth.ClientID != "" {
		token, err := tester.FetchToken(ctx, tester.ClientCredentials{
			ClientID:     cfg.Auth.ClientID,
			ClientSecret: cfg.Auth.ClientSecret,
			TokenURL:     cfg.Auth.TokenURL,
			Scopes:       cfg.Auth.Scopes,
		})
		if err != nil {
			return err
		}
		engineCfg.AuthToken = token
	}

	opts := []tester.EngineOption{tester.WithLogger(log)}

	recorder, closer, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer closer.Close()
	if recorder != nil {
		opts = append(opts, tester.WithRecorder(recorder))
	}

	// Exporting to stdout keeps the live output out of the exported document
	exportToStdout := runFormat != "" && runOutputFile == ""
	display := &runDisplay{silent: exportToStdout}
	handlers := []tester.OnTestEvent{display.handle}
	if cfg.Events.AMQPURL != "" {
		publisher, err := mq.NewPublisher(cfg.Events.AMQPURL, cfg.Events.Exchange)
		if err != nil {
			log.Warningf("run events disabled: %v", err)
		} else {
			defer publisher.Close()
			handlers = append(handlers, mq.EventHandler(publisher, log))
		}
	}
	opts = append(opts, tester.WithEventHandler(mq.Chain(handlers...)))

	baseURL := baseURLFor(serverURL, set)
	if !exportToStdout {
		displayConfiguration(baseURL, len(cases), engineCfg)
	}

	results, summary, runErr := tester.NewEngine(engineCfg, opts...).Execute(ctx, baseURL, cases)
	display.stop()
	if summary == nil {
		return runErr
	}

	if runFormat != "" || runOutputFile != "" {
		format := output.FormatJSON
		if runFormat != "" {
			if format, err = output.ParseFormat(runFormat); err != nil {
				return err
			}
		}
		if err := output.ExportResults(results, summary, format, runOutputFile); err != nil {
			return err
		}
		if runOutputFile != "" {
			fmt.Printf("\nResults exported to: %s\n", runOutputFile)
		}
	}

	if runPostman != "" {
		if set == nil {
			log.Warningf("--postman needs an OpenAPI document, skipping collection export")
		} else if err := output.ExportPostman(set, runPostman); err != nil {
			return err
		} else {
			fmt.Printf("Postman collection exported to: %s\n", runPostman)
		}
	}

	if !exportToStdout {
		displaySummary(*summary, results)
	}

	if runErr != nil {
		return runErr
	}
	if summary.HasFailures() {
		return errTestsFailed
	}
	return nil
}

// loadCases imports --tests or generates test cases from the document
func loadCases(set *models.EndpointSet) ([]models.TestCase, error) {
	if runTestsFile != "" {
		cases, err := output.ImportTestCases(runTestsFile)
		if err != nil {
			return nil, err
		}
		log.Infof("loaded %d test cases from %s", len(cases), runTestsFile)
		return cases, nil
	}
	cases, err := generateCases(set)
	if err != nil {
		return nil, err
	}
	log.Infof("generated %d test cases for %d endpoints", len(cases), len(set.Endpoints))
	return cases, nil
}

// runDisplay renders engine events. Handlers are called from several goroutines.
type runDisplay struct {
	mu      sync.Mutex
	spinner *spinner.Spinner
	done    int
	total   int
	silent  bool
}

func (d *runDisplay) handle(event tester.TestEvent) {
	if d.silent {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	switch event.Type {
	case tester.EventRunStarted:
		d.total = event.Total
		if isTTY {
			d.spinner = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
			d.spinner.Suffix = fmt.Sprintf(" [0/%d] Running...", d.total)
			d.spinner.Start()
		}

	case tester.EventStarting:
		tc := event.TestCase
		if d.spinner != nil {
			d.spinner.Suffix = fmt.Sprintf(" [%d/%d] %s %s", d.done, d.total, tc.Method, tc.Endpoint)
		} else if verbose {
			fmt.Printf("[%d/%d] %s %s - %s\n", event.Index+1, event.Total, tc.Method, tc.Endpoint, tc.Name)
		}

	case tester.EventCompleted:
		d.done++
		if d.spinner != nil {
			d.spinner.Stop()
		}
		printResult(fmt.Sprintf("[%d/%d]", d.done, d.total), *event.Result)
		if d.spinner != nil && d.done < d.total {
			d.spinner.Suffix = fmt.Sprintf(" [%d/%d] Running...", d.done, d.total)
			d.spinner.Start()
		}

	case tester.EventRunCompleted:
		if d.spinner != nil {
			d.spinner.Stop()
		}
	}
}

// stop halts the spinner of an interrupted run
func (d *runDisplay) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.spinner != nil {
		d.spinner.Stop()
	}
}

func statusLabel(status models.Status) string {
	switch status {
	case models.StatusPassed:
		return green("✓ PASS ")
	case models.StatusFailed:
		return red("✗ FAIL ")
	case models.StatusError:
		return red("✗ ERROR")
	default:
		return yellow("● SKIP ")
	}
}

func printResult(prefix string, r models.TestResult) {
	fmt.Printf("%s %s %s %s %s\n", prefix, statusLabel(r.Status), r.Method, r.Endpoint, r.TestID)

	if r.Status == models.StatusPassed && !verbose {
		return
	}
	if r.Status != models.StatusError && r.Status != models.StatusSkipped {
		fmt.Printf("    %s status: %d (expected %d) | %.2fms\n", cyan("→"), r.StatusCode, r.ExpectedStatusCode, r.ResponseTimeMs)
	}
	if r.Error != "" {
		fmt.Printf("    Error: %s\n", red(r.Error))
	}
	if len(r.ValidationErrors) > 0 {
		fmt.Printf("    Validation Errors:\n")
		for _, ve := range r.ValidationErrors {
			fmt.Printf("      - %s\n", ve)
		}
	}
}

func displayConfiguration(baseURL string, cases int, c tester.Config) {
	fmt.Printf("\n%s\n", white("=== Run Configuration ==="))
	fmt.Printf("Base URL:    %s\n", baseURL)
	fmt.Printf("Test Cases:  %d\n", cases)
	if c.MaxConcurrency > 0 {
		fmt.Printf("Concurrency: %d\n", c.MaxConcurrency)
	} else {
		fmt.Printf("Concurrency: unbounded\n")
	}
	if c.RateLimit > 0 {
		fmt.Printf("Rate Limit:  %.0f req/sec\n", c.RateLimit)
	}
	fmt.Printf("Timeout:     %v\n", c.Timeout)
	fmt.Printf("Keep-Alive:  %v\n", !c.DisableKeepAlive)
	fmt.Println()
}

func displaySummary(summary models.RunSummary, results []models.TestResult) {
	fmt.Println()
	title := "=== Test Results ==="
	if summary.Partial {
		title += yellow(" (partial)")
	}
	fmt.Printf("%s\n", white(title))
	fmt.Printf("Run ID:       %s\n", summary.RunID)
	fmt.Printf("Total Tests:  %d\n", summary.TotalTests)
	fmt.Printf("Passed:       %s\n", green(summary.PassedTests))
	if summary.FailedTests > 0 {
		fmt.Printf("Failed:       %s\n", red(summary.FailedTests))
	} else {
		fmt.Printf("Failed:       %d\n", summary.FailedTests)
	}
	if summary.ErrorTests > 0 {
		fmt.Printf("Errors:       %s\n", red(summary.ErrorTests))
	} else {
		fmt.Printf("Errors:       %d\n", summary.ErrorTests)
	}
	fmt.Printf("Skipped:      %d\n", summary.SkippedTests)
	fmt.Printf("Success Rate: %s\n", cyan(fmt.Sprintf("%.1f%%", summary.SuccessRate)))
	fmt.Printf("Coverage:     %d/%d endpoints (%s)\n", summary.CoveredEndpoints, summary.TotalEndpoints, cyan(fmt.Sprintf("%.1f%%", summary.CoveragePercentage)))
	fmt.Printf("Duration:     %.2fs\n", summary.DurationSeconds)
	fmt.Println()

	fmt.Printf("%s\n", white("Latency Overview:"))
	fmt.Printf("  Avg: %.2fms\n", summary.AverageResponseTimeMs)
	fmt.Printf("  P50: %.2fms\n", summary.P50ResponseTimeMs)
	fmt.Printf("  P90: %.2fms\n", summary.P90ResponseTimeMs)
	fmt.Printf("  P99: %.2fms\n", summary.P99ResponseTimeMs)

	if verbose && summary.SkippedTests > 0 {
		fmt.Println()
		fmt.Printf("%s\n", white("Skipped Tests:"))
		for _, r := range results {
			if r.Status == models.StatusSkipped {
				fmt.Printf("  %s %s %s: %s\n", r.Method, r.Endpoint, r.TestID, strings.Join(r.ValidationErrors, "; "))
			}
		}
	}
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runTestsFile, "tests", "", "Execute test cases exported by 'oascov generate'")
	runCmd.Flags().StringVar(&serverURL, "url", "", "Override server URL from OpenAPI spec")

	// Selection flags
	runCmd.Flags().StringVar(&runFilter, "filter", "", "Filter endpoints by path pattern or operation ID")
	runCmd.Flags().StringSliceVar(&runTags, "tags", []string{}, "Filter by tags (can be specified multiple times)")
	runCmd.Flags().StringVar(&runWhere, "where", "", "JMESPath expression selecting test cases")
	runCmd.Flags().IntVar(&runLimit, "limit", 0, "Maximum number of test cases to execute (0 = all)")

	// Engine flags
	runCmd.Flags().IntP("concurrency", "c", 0, "Maximum in-flight requests (0 = unbounded)")
	runCmd.Flags().DurationP("timeout", "t", 10*time.Second, "Per-request timeout")
	runCmd.Flags().Float64P("rate", "r", 0, "Max requests per second (0 = unlimited)")
	runCmd.Flags().Bool("no-keepalive", false, "Disable HTTP connection reuse")
	runCmd.Flags().Bool("save-bodies", false, "Capture response bodies in results")
	runCmd.Flags().StringToString("header", map[string]string{}, "Extra request header as key=value (repeatable)")
	runCmd.Flags().String("token", "", "Bearer token sent with every request")
	runCmd.Flags().Int64("seed", 0, "Random seed for reproducible generation (0 = time based)")

	// Persistence flags
	runCmd.Flags().String("store", "", "Persist results: sqlite3, mysql or http")
	runCmd.Flags().String("dsn", "", "Database DSN for the sqlite3 and mysql stores")

	// Output flags
	runCmd.Flags().StringVarP(&runOutputFile, "output", "o", "", "Write results to file")
	runCmd.Flags().StringVar(&runFormat, "format", "", "Results format: json, csv (default json with --output, stdout without)")
	runCmd.Flags().StringVar(&runPostman, "postman", "", "Also export a Postman collection to this file")
}
