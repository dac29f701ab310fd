package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/baseplate/querykit/internal/logger"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "querykit",
	Short: "Querykit - dynamic filtering, sorting and paging of entities",
	Long: `Querykit serves team-scoped entities over HTTP and lets clients filter,
sort and page them with loosely typed criteria.

This tool manages the credentials of the server and runs queries offline
against entities exported to a JSON file.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := "WARN"
		if verbose {
			level = "DEBUG"
		}
		logger.Init(logger.Config{Level: level, Format: "text"})
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
