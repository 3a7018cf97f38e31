package telemetry

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/knackw/ai-orchestra-gateway-sub003/pkg/redact"
)

func TestNewMetricsRegisters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RequestsTotal.WithLabelValues("chat", "success").Inc()
	m.UnbillableTotal.Inc()

	if got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("chat", "success")); got != 1 {
		t.Errorf("requests_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.UnbillableTotal); got != 1 {
		t.Errorf("unbillable_total = %v, want 1", got)
	}

	count, err := testutil.GatherAndCount(reg,
		"gateway_requests_total",
		"gateway_unbillable_calls_total",
	)
	if err != nil {
		t.Fatalf("GatherAndCount() error = %v", err)
	}
	if count != 2 {
		t.Errorf("gathered series = %d, want 2", count)
	}
}

func TestNewMetricsIsolatedRegistries(t *testing.T) {
	// Two registries must not collide on collector names.
	NewMetrics(prometheus.NewRegistry())
	NewMetrics(prometheus.NewRegistry())
}

func TestNewLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "json", "warn", nil)

	logger.Info("invisible")
	logger.Warn("visible")

	out := buf.String()
	if strings.Contains(out, "invisible") {
		t.Error("info line logged at warn level")
	}
	if !strings.Contains(out, "visible") {
		t.Error("warn line missing")
	}
}

func TestRedactingHandlerScrubsAttributes(t *testing.T) {
	engine := redact.NewEngine(redact.Config{})

	var buf bytes.Buffer
	logger := NewLogger(&buf, "json", "info", engine)

	logger.Info("request received", "prompt", "contact me at jane@example.com")

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	prompt, _ := line["prompt"].(string)
	if strings.Contains(prompt, "jane@example.com") {
		t.Errorf("raw email leaked into log: %q", prompt)
	}
	if !strings.Contains(prompt, "<EMAIL_REMOVED>") {
		t.Errorf("prompt = %q, want placeholder", prompt)
	}
}

func TestRedactingHandlerLeavesCleanValues(t *testing.T) {
	engine := redact.NewEngine(redact.Config{})

	var buf bytes.Buffer
	logger := NewLogger(&buf, "json", "info", engine)

	logger.Info("request received", "tenant_id", "acme", "count", 3)

	out := buf.String()
	if !strings.Contains(out, `"tenant_id":"acme"`) {
		t.Errorf("clean attribute altered: %s", out)
	}
}
