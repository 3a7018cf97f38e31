package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/knackw/ai-orchestra-gateway-sub003/pkg/audit"
	"github.com/knackw/ai-orchestra-gateway-sub003/pkg/catalog"
	"github.com/knackw/ai-orchestra-gateway-sub003/pkg/config"
	"github.com/knackw/ai-orchestra-gateway-sub003/pkg/gateway"
	"github.com/knackw/ai-orchestra-gateway-sub003/pkg/ledger"
	"github.com/knackw/ai-orchestra-gateway-sub003/pkg/providers"
	"github.com/knackw/ai-orchestra-gateway-sub003/pkg/redact"
	"github.com/knackw/ai-orchestra-gateway-sub003/pkg/registry"
	"github.com/knackw/ai-orchestra-gateway-sub003/pkg/selector"
	"github.com/knackw/ai-orchestra-gateway-sub003/pkg/server"
	"github.com/knackw/ai-orchestra-gateway-sub003/pkg/telemetry"
	"github.com/knackw/ai-orchestra-gateway-sub003/pkg/tenant"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
	watchConfig   bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the gateway server",
	Long: `Start the gateway server with the specified configuration.

Examples:
  # Start with default config
  gateway run

  # Start with custom config
  gateway run --config /etc/gateway/gateway.yaml

  # Override listen address
  gateway run --listen 0.0.0.0:8080

  # Validate config without starting the server
  gateway run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
	runCmd.Flags().BoolVar(&runFlags.watchConfig, "watch-config", false, "reload tenant policy on config changes")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddr = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}

	redactor := redact.NewEngine(redactConfig(cfg))

	var logRedactor *redact.Engine
	if cfg.Logging.RedactAttributes {
		logRedactor = redactor
	}
	logger := telemetry.NewLogger(os.Stdout, cfg.Logging.Format, cfg.Logging.Level, logRedactor)
	slog.SetDefault(logger)

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	fmt.Printf("gateway v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)

	cat, err := cfg.BuildCatalog()
	if err != nil {
		return fmt.Errorf("catalog invalid: %w", err)
	}
	sel := selector.New(cat, cfg.Catalog.FallbackChain)

	reg, err := buildRegistry(cat, cfg)
	if err != nil {
		return err
	}
	defer reg.Close()
	fmt.Printf("✓ Providers initialized (%d of %d)\n", len(reg.Names()), len(cat.Providers()))

	credits, err := buildLedger(cfg)
	if err != nil {
		return err
	}
	defer credits.Close()
	if err := seedCredits(credits, cfg.Tenants); err != nil {
		return err
	}
	fmt.Printf("✓ Credit ledger ready (%s)\n", cfg.Ledger.Backend)

	tenants, reloadTenants, closeTenants, err := buildTenantStore(cfg)
	if err != nil {
		return err
	}
	defer closeTenants()

	recorder, retention, err := buildAudit(cfg)
	if err != nil {
		return err
	}
	defer recorder.Close()
	if retention != nil {
		retention.Start()
		defer retention.Stop()
	}
	fmt.Println("✓ Audit recording started")

	promReg := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(promReg)

	gw, err := gateway.New(gateway.Options{
		Redactor: redactor,
		Catalog:  cat,
		Selector: sel,
		Registry: reg,
		Ledger:   credits,
		Tenants:  tenants,
		Recorder: recorder,
		Metrics:  metrics,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if runFlags.watchConfig {
		go func() {
			err := config.Watch(ctx, cfgFile, func(next *config.Config) {
				if err := reloadTenants(tenantPolicies(next.Tenants)); err != nil {
					slog.Error("tenant policy reload failed", "error", err)
				}
			})
			if err != nil && ctx.Err() == nil {
				slog.Error("config watcher stopped", "error", err)
			}
		}()
	}

	srv := server.NewServer(cfg.Server, gw, promReg)
	fmt.Printf("✓ Server listening on %s\n", cfg.Server.ListenAddr)
	if cfg.Server.MetricsAddr != "" {
		fmt.Printf("✓ Metrics endpoint: http://%s/metrics\n", cfg.Server.MetricsAddr)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	return srv.Start(ctx)
}

func redactConfig(cfg *config.Config) redact.Config {
	rc := redact.Config{FailMode: redact.FailMode(cfg.Redaction.FailMode)}
	for _, c := range cfg.Redaction.Categories {
		rc.Categories = append(rc.Categories, redact.Category(c))
	}
	return rc
}

// envCredentials resolves API keys from the environment, honoring a
// per-provider variable name from the configuration.
type envCredentials struct {
	overrides map[string]string
}

func (e envCredentials) APIKey(provider string) (string, error) {
	name := e.overrides[provider]
	if name == "" {
		name = strings.ToUpper(provider) + "_API_KEY"
	}
	v := os.Getenv(name)
	if v == "" {
		return "", fmt.Errorf("environment variable %s is not set", name)
	}
	return v, nil
}

func buildRegistry(cat *catalog.Catalog, cfg *config.Config) (*registry.Registry, error) {
	configs := make(map[string]providers.Config, len(cfg.Providers))
	overrides := make(map[string]string)
	for name, pc := range cfg.Providers {
		configs[name] = providers.Config{
			Name:         name,
			Type:         pc.Type,
			BaseURL:      pc.BaseURL,
			Timeout:      pc.Timeout,
			RetryBackoff: pc.RetryBackoff,
		}
		if pc.APIKeyEnv != "" {
			overrides[name] = pc.APIKeyEnv
		}
	}
	return registry.Build(cat, configs, envCredentials{overrides: overrides})
}

func buildLedger(cfg *config.Config) (ledger.Ledger, error) {
	switch cfg.Ledger.Backend {
	case "memory":
		return ledger.NewMemoryLedger(nil), nil
	case "sqlite":
		return ledger.NewSQLiteLedger(cfg.Ledger.Path)
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Ledger.RedisAddr,
			Password: cfg.Ledger.RedisPassword,
			DB:       cfg.Ledger.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Ledger.RedisAddr, err)
		}
		return ledger.NewRedisLedger(client, ""), nil
	default:
		return nil, fmt.Errorf("unsupported ledger backend: %s", cfg.Ledger.Backend)
	}
}

// seedCredits funds tenants that do not have an account yet, so a
// restart never double-grants the opening balance.
func seedCredits(credits ledger.Ledger, tenants []config.TenantConfig) error {
	ctx := context.Background()
	for _, t := range tenants {
		if t.InitialCredits <= 0 {
			continue
		}
		if _, err := credits.Balance(ctx, t.ID); err == nil {
			continue
		}
		if _, err := credits.Credit(ctx, t.ID, t.InitialCredits); err != nil {
			return fmt.Errorf("failed to fund tenant %s: %w", t.ID, err)
		}
	}
	return nil
}

// buildTenantStore serves policies from the ledger database when the
// sqlite backend is active, so policies and balances share one file.
// Other backends use the in-memory store fed from configuration.
func buildTenantStore(cfg *config.Config) (tenant.Store, func([]tenant.Policy) error, func(), error) {
	policies := tenantPolicies(cfg.Tenants)

	if cfg.Ledger.Backend == "sqlite" {
		store, err := tenant.NewSQLiteStore(cfg.Ledger.Path)
		if err != nil {
			return nil, nil, nil, err
		}
		ctx := context.Background()
		for _, p := range policies {
			if err := store.Put(ctx, p); err != nil {
				store.Close()
				return nil, nil, nil, err
			}
		}
		reload := func(next []tenant.Policy) error {
			return store.Replace(context.Background(), next)
		}
		cached := tenant.NewCachingStore(store, time.Minute)
		return cached, reload, func() { store.Close() }, nil
	}

	store := tenant.NewStaticStore(policies)
	reload := func(next []tenant.Policy) error {
		store.Replace(next)
		return nil
	}
	return store, reload, func() {}, nil
}

func tenantPolicies(tenants []config.TenantConfig) []tenant.Policy {
	policies := make([]tenant.Policy, len(tenants))
	for i, t := range tenants {
		policies[i] = tenant.Policy{
			TenantID:    t.ID,
			EUOnly:      t.EUOnly,
			DPAAccepted: t.DPAAccepted,
		}
	}
	return policies
}

func buildAudit(cfg *config.Config) (*audit.Recorder, *audit.RetentionScheduler, error) {
	if cfg.Audit.Path == "" {
		return audit.NewRecorder(audit.NewSlogSink(nil), cfg.Audit.QueueSize), nil, nil
	}

	sink, err := audit.NewSQLiteSink(cfg.Audit.Path)
	if err != nil {
		return nil, nil, err
	}
	scheduler, err := audit.NewRetentionScheduler(sink, cfg.Audit.PruneSchedule, cfg.Audit.Retention)
	if err != nil {
		sink.Close()
		return nil, nil, fmt.Errorf("invalid prune schedule %q: %w", cfg.Audit.PruneSchedule, err)
	}
	return audit.NewRecorder(sink, cfg.Audit.QueueSize), scheduler, nil
}
