// Package config loads and validates gateway configuration from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/knackw/ai-orchestra-gateway-sub003/pkg/catalog"
	"github.com/knackw/ai-orchestra-gateway-sub003/pkg/redact"
)

// Config is the root gateway configuration.
type Config struct {
	Server    ServerConfig              `yaml:"server"`
	Logging   LoggingConfig             `yaml:"logging"`
	Redaction RedactionConfig           `yaml:"redaction"`
	Providers map[string]ProviderConfig `yaml:"providers"`
	Catalog   CatalogConfig             `yaml:"catalog"`
	Ledger    LedgerConfig              `yaml:"ledger"`
	Tenants   []TenantConfig            `yaml:"tenants"`
	Audit     AuditConfig               `yaml:"audit"`
}

// ServerConfig controls the listeners.
type ServerConfig struct {
	// ListenAddr is the gateway API address.
	ListenAddr string `yaml:"listen_addr"`

	// MetricsAddr serves Prometheus metrics; empty disables it.
	MetricsAddr string `yaml:"metrics_addr"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	// Format is "json" or "text".
	Format string `yaml:"format"`

	// Level is debug, info, warn, or error.
	Level string `yaml:"level"`

	// RedactAttributes scrubs PII from logged string attributes.
	RedactAttributes bool `yaml:"redact_attributes"`
}

// RedactionConfig controls the PII engine.
type RedactionConfig struct {
	// FailMode is "open" or "closed".
	FailMode string `yaml:"fail_mode"`

	// Categories limits detection to a subset; empty enables all.
	Categories []string `yaml:"categories"`
}

// ProviderConfig is the connection configuration for one provider.
type ProviderConfig struct {
	// Type selects the wire protocol: anthropic, openai, gemini.
	Type string `yaml:"type"`

	// BaseURL overrides the provider's default endpoint.
	BaseURL string `yaml:"base_url"`

	// APIKeyEnv names the environment variable holding the
	// credential; empty falls back to <NAME>_API_KEY.
	APIKeyEnv string `yaml:"api_key_env"`

	// Timeout bounds one provider call.
	Timeout time.Duration `yaml:"timeout"`

	// RetryBackoff is the delay before the single transient retry.
	RetryBackoff time.Duration `yaml:"retry_backoff"`
}

// CatalogConfig controls the model catalog.
type CatalogConfig struct {
	// Models replaces the built-in catalog when non-empty.
	Models []catalog.ModelDescriptor `yaml:"models"`

	// FallbackChain overrides the EU fallback provider order.
	FallbackChain []string `yaml:"fallback_chain"`
}

// LedgerConfig selects the credit store backend.
type LedgerConfig struct {
	// Backend is memory, sqlite, or redis.
	Backend string `yaml:"backend"`

	// Path is the sqlite database file.
	Path string `yaml:"path"`

	// RedisAddr is the redis host:port.
	RedisAddr string `yaml:"redis_addr"`

	// RedisPassword authenticates against redis.
	RedisPassword string `yaml:"redis_password"`

	// RedisDB selects the redis database number.
	RedisDB int `yaml:"redis_db"`
}

// TenantConfig declares a tenant with its policy and opening balance.
type TenantConfig struct {
	ID             string  `yaml:"id"`
	EUOnly         bool    `yaml:"eu_only"`
	DPAAccepted    bool    `yaml:"dpa_accepted"`
	InitialCredits float64 `yaml:"initial_credits"`
}

// AuditConfig controls usage recording.
type AuditConfig struct {
	// Path is the audit sqlite database; empty logs records instead.
	Path string `yaml:"path"`

	// QueueSize bounds the async recorder queue.
	QueueSize int `yaml:"queue_size"`

	// Retention is how long records are kept.
	Retention time.Duration `yaml:"retention"`

	// PruneSchedule is a cron expression for retention runs.
	PruneSchedule string `yaml:"prune_schedule"`
}

// Load reads, defaults, and validates a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills unset fields with working values.
func (c *Config) ApplyDefaults() {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = ":8080"
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 30 * time.Second
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Redaction.FailMode == "" {
		c.Redaction.FailMode = string(redact.FailOpen)
	}
	if c.Ledger.Backend == "" {
		c.Ledger.Backend = "memory"
	}
	if c.Ledger.Backend == "sqlite" && c.Ledger.Path == "" {
		c.Ledger.Path = "ledger.db"
	}
	if c.Audit.QueueSize <= 0 {
		c.Audit.QueueSize = 1024
	}
	if c.Audit.Retention <= 0 {
		c.Audit.Retention = 90 * 24 * time.Hour
	}
	if c.Audit.PruneSchedule == "" {
		c.Audit.PruneSchedule = "0 3 * * *"
	}
	for name, p := range c.Providers {
		if p.Timeout <= 0 {
			p.Timeout = 60 * time.Second
		}
		if p.RetryBackoff <= 0 {
			p.RetryBackoff = 500 * time.Millisecond
		}
		c.Providers[name] = p
	}
}

// Validate rejects configurations the gateway cannot run with.
func (c *Config) Validate() error {
	switch c.Redaction.FailMode {
	case string(redact.FailOpen), string(redact.FailClosed):
	default:
		return fmt.Errorf("redaction.fail_mode must be %q or %q, got %q",
			redact.FailOpen, redact.FailClosed, c.Redaction.FailMode)
	}

	switch c.Ledger.Backend {
	case "memory":
	case "sqlite":
		if c.Ledger.Path == "" {
			return fmt.Errorf("ledger.path is required for the sqlite backend")
		}
	case "redis":
		if c.Ledger.RedisAddr == "" {
			return fmt.Errorf("ledger.redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("ledger.backend must be memory, sqlite, or redis, got %q", c.Ledger.Backend)
	}

	for name, p := range c.Providers {
		switch p.Type {
		case "anthropic", "openai", "gemini":
		default:
			return fmt.Errorf("provider %s: type must be anthropic, openai, or gemini, got %q", name, p.Type)
		}
	}

	seen := make(map[string]bool, len(c.Tenants))
	for _, t := range c.Tenants {
		if t.ID == "" {
			return fmt.Errorf("tenant with empty id")
		}
		if seen[t.ID] {
			return fmt.Errorf("duplicate tenant id %q", t.ID)
		}
		seen[t.ID] = true
		if t.InitialCredits < 0 {
			return fmt.Errorf("tenant %s: initial_credits must not be negative", t.ID)
		}
	}
	return nil
}

// BuildCatalog returns the configured catalog, or the built-in one
// when no models are declared.
func (c *Config) BuildCatalog() (*catalog.Catalog, error) {
	if len(c.Catalog.Models) == 0 {
		return catalog.Default(), nil
	}
	return catalog.New(c.Catalog.Models)
}
