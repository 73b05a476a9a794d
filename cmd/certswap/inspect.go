package main

import (
	"fmt"

	"github.com/sensiblebit/certswap/internal"
	"github.com/spf13/cobra"
)

var inspectFormat string

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "List PKI objects in a file with their byte offsets",
	Long:  "Show every PEM certificate and private key found in a file, including the exact byte span of each armored block.",
	Example: `  certswap inspect bundle.pem
  certswap inspect app.conf --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().StringVar(&inspectFormat, "format", "text", "Output format: text or json")
	registerCompletion(inspectCmd, completionInput{
		flagName:     "format",
		completeFunc: fixedCompletion("text", "json"),
	})
}

func runInspect(cmd *cobra.Command, args []string) error {
	_, passwords, err := loadScanSetup()
	if err != nil {
		return err
	}

	results, err := internal.InspectFile(args[0], passwords)
	if err != nil {
		return err
	}

	output, err := internal.FormatInspectResults(results, inspectFormat)
	if err != nil {
		return err
	}
	fmt.Print(output)
	return nil
}
