package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Multi-tenant mediation gateway for LLM providers",
	Long: `The gateway mediates LLM API requests on behalf of tenants,
providing:
  - PII redaction before any prompt leaves the boundary
  - EU residency enforcement with deterministic provider fallback
  - Multi-provider routing (Anthropic, OpenAI-compatible, Gemini)
  - Atomic per-tenant credit accounting
  - Usage auditing with configurable retention`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "gateway.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
