/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/moamenhredeen/oascov/internal/output"
	"github.com/spf13/cobra"
)

var generateOutput string

// generateCmd represents the generate command
var generateCmd = &cobra.Command{
	Use:   "generate [openapi-spec]",
	Short: "Generate test cases from an OpenAPI document",
	Long: `Generate test cases from an OpenAPI document and write them as JSON.

The document can be a file path or an http(s) URL. The exported test cases
can be reviewed, edited and executed later with 'oascov run --tests'.

Examples:
  # Print test cases to stdout
  oascov generate api-spec.yaml

  # Reproducible generation written to a file
  oascov generate api-spec.yaml --seed 42 -o cases.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		set, err := loadSpec(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		cases, err := generateCases(set)
		if err != nil {
			return err
		}

		if err := output.ExportTestCases(cases, generateOutput); err != nil {
			return err
		}
		if generateOutput != "" {
			fmt.Printf("Generated %d test cases for %d endpoints: %s\n", len(cases), len(set.Endpoints), generateOutput)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringVarP(&generateOutput, "output", "o", "", "Write test cases to file (default: stdout)")
	generateCmd.Flags().Int64("seed", 0, "Random seed for reproducible generation (0 = time based)")
}
