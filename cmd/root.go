/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/GabrielNunesIT/go-libs/logger"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/moamenhredeen/oascov/internal/config"
	"github.com/moamenhredeen/oascov/internal/generator"
	"github.com/moamenhredeen/oascov/internal/models"
	"github.com/moamenhredeen/oascov/internal/parser"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	cfgFile string
	verbose bool
	quiet   bool

	// settings resolved from flags, environment and the config file
	cfg *config.Config
	log logger.ILogger

	isTTY = isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())

	// Color helpers
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	cyan   = color.New(color.FgCyan, color.Bold).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	white  = color.New(color.FgWhite, color.Bold).SprintFunc()
)

// flagKeys maps command flags to the config keys they override
var flagKeys = map[string]string{
	"timeout":         "engine.timeout",
	"concurrency":     "engine.concurrency",
	"rate":            "engine.rate_limit",
	"no-keepalive":    "engine.disable_keepalive",
	"save-bodies":     "engine.save_bodies",
	"header":          "engine.headers",
	"token":           "auth.token",
	"seed":            "generator.seed",
	"store":           "store.driver",
	"dsn":             "store.dsn",
	"skip-validation": "parser.skip_validation",
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "oascov",
	Short: "OpenAPI driven test generation and execution",
	Long: `oascov generates test cases from an OpenAPI document and runs them
against a live server, reporting pass/fail results and endpoint coverage.

Test cases are synthesized from the declared schemas: one happy path per
operation, plus negative cases for missing required parameters and invalid
request bodies.`,
	SilenceUsage:      true,
	PersistentPreRunE: initConfig,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: ./oascov.toml or $HOME/.config/oascov/oascov.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show detailed output and debug logs")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only log errors")
	rootCmd.PersistentFlags().Bool("skip-validation", false, "Skip OpenAPI document validation")
}

func initConfig(cmd *cobra.Command, args []string) error {
	log = logger.NewConsoleLogger(os.Stderr)
	switch {
	case verbose:
		log.SetLevel(logger.LevelDebug)
	case quiet:
		log.SetLevel(logger.LevelError)
	default:
		log.SetLevel(logger.LevelInfo)
	}
	logger.SetDefaultLogger(log)
	logger.SetCtxFallbackLogger(log)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(logger.NewContextWithLogger(ctx, log))

	v := config.New(cfgFile)
	if err := config.Read(v); err != nil {
		return err
	}
	var bindErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if key, ok := flagKeys[f.Name]; ok && bindErr == nil {
			bindErr = v.BindPFlag(key, f)
		}
	})
	if bindErr != nil {
		return fmt.Errorf("failed to bind flags: %w", bindErr)
	}
	if used := v.ConfigFileUsed(); used != "" {
		log.Debugf("using config file %s", used)
	}

	loaded, err := config.Load(v)
	if err != nil {
		return err
	}
	cfg = loaded
	return nil
}

// loadSpec parses an OpenAPI document from a path or URL
func loadSpec(ctx context.Context, source string) (*models.EndpointSet, error) {
	opts := []parser.Option{parser.WithLogger(log)}
	if cfg.Parser.SkipValidation {
		opts = append(opts, parser.WithoutValidation())
	}
	return parser.New(opts...).Load(ctx, source)
}

// generateCases synthesizes the test cases of a document
func generateCases(set *models.EndpointSet) ([]models.TestCase, error) {
	g := cfg.Generator
	return generator.GenerateSet(set,
		generator.WithSeed(g.Seed),
		generator.WithOptions(generator.Options{
			StringCap:           g.StringCap,
			ArrayCap:            g.ArrayCap,
			OptionalProbability: g.OptionalProbability,
			MaxDepth:            g.MaxDepth,
		}),
		generator.WithLogger(log),
	)
}

// baseURLFor picks the override, then the first declared server, then localhost
func baseURLFor(override string, set *models.EndpointSet) string {
	if override != "" {
		return override
	}
	if set != nil && len(set.Servers) > 0 && set.Servers[0] != "" {
		return set.Servers[0]
	}
	return "http://localhost"
}
