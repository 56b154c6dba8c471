/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/moamenhredeen/oascov/internal/output"
	"github.com/spf13/cobra"
)

var postmanOutput string

// postmanCmd represents the postman command
var postmanCmd = &cobra.Command{
	Use:   "postman [openapi-spec]",
	Short: "Export an OpenAPI document as a Postman collection",
	Long: `Export an OpenAPI document as a Postman v2.1 collection.

Requests are grouped in one folder per tag and use a {{baseUrl}} variable
initialised with the first server of the document.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		set, err := loadSpec(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		if err := output.ExportPostman(set, postmanOutput); err != nil {
			return err
		}
		if postmanOutput != "" {
			fmt.Printf("Exported Postman collection to %s\n", postmanOutput)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(postmanCmd)

	postmanCmd.Flags().StringVarP(&postmanOutput, "output", "o", "", "Write collection to file (default: stdout)")
}
