package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/knackw/ai-orchestra-gateway-sub003/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Long: `Load the configuration file, apply defaults, and check it for
errors without starting the gateway.

Examples:
  # Validate the default config
  gateway validate

  # Validate a specific file
  gateway validate --config /etc/gateway/gateway.yaml`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	cat, err := cfg.BuildCatalog()
	if err != nil {
		return fmt.Errorf("catalog invalid: %w", err)
	}

	fmt.Println("✓ Configuration valid")
	fmt.Printf("  listen address: %s\n", cfg.Server.ListenAddr)
	fmt.Printf("  ledger backend: %s\n", cfg.Ledger.Backend)
	fmt.Printf("  models: %d across %d providers\n", cat.Len(), len(cat.Providers()))
	fmt.Printf("  tenants: %d\n", len(cfg.Tenants))
	return nil
}
