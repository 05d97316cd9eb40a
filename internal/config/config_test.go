package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eddiefleurent/scranton_spreads/internal/broker"
	"github.com/eddiefleurent/scranton_spreads/internal/reconcile"
	"github.com/eddiefleurent/scranton_spreads/internal/report"
)

func TestLoad_ExampleFile(t *testing.T) {
	t.Setenv("TRADIER_API_KEY", "test-key")
	t.Setenv("TRADIER_ACCOUNT_ID", "VA000000")
	t.Setenv("DASHBOARD_TOKEN", "secret")

	cfg, err := Load(filepath.Join("..", "..", "config.yaml.example"))
	require.NoError(t, err)

	assert.Equal(t, "test-key", cfg.Broker.APIKey)
	assert.Equal(t, "VA000000", cfg.Broker.AccountID)
	assert.Equal(t, "secret", cfg.Dashboard.AuthToken)
	assert.True(t, cfg.IsPaperTrading())
	assert.Equal(t, []string{"SPY", "QQQ", "IWM"}, cfg.Screener.Symbols)
	assert.Equal(t, []report.Format{report.FormatCSV, report.FormatJSON, report.FormatTable}, cfg.ReportFormats())
}

func TestLoad_InvalidPath(t *testing.T) {
	_, err := Load("nonexistent.yaml")
	assert.Error(t, err)
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("broker:\n  provider: mock\n"))
	require.NoError(t, err)

	assert.Equal(t, "paper", cfg.Environment.Mode)
	assert.Equal(t, "info", cfg.Environment.LogLevel)
	assert.Equal(t, "text", cfg.Environment.LogFormat)
	assert.Equal(t, reconcile.MatchExact, cfg.SignatureMatch())
	assert.Equal(t, "reports", cfg.Report.Dir)
	assert.Equal(t, "reports", cfg.Screener.OutputDir)
	assert.Equal(t, []report.Format{report.FormatCSV, report.FormatJSON}, cfg.ReportFormats())
	assert.Equal(t, ":8080", cfg.Dashboard.Addr)
	assert.Equal(t, 30*time.Second, cfg.CallTimeout())

	c := cfg.Screener.Criteria()
	assert.Equal(t, broker.OptionTypePut, c.OptionType)
	assert.Equal(t, 0.65, c.ProfitFloor)
	assert.Equal(t, []float64{2.5, 5, 10}, c.Widths)
}

func TestParse_UnknownFieldRejected(t *testing.T) {
	_, err := Parse([]byte("broker:\n  provider: mock\n  use_otoco: true\n"))
	assert.ErrorContains(t, err, "parsing config")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"bad mode", "environment:\n  mode: yolo\nbroker:\n  provider: mock\n", "environment.mode"},
		{"bad log level", "environment:\n  log_level: loud\nbroker:\n  provider: mock\n", "environment.log_level"},
		{"tradier needs key", "broker:\n  provider: tradier\n  account_id: x\n", "broker.api_key"},
		{"tradier needs account", "broker:\n  api_key: k\n", "broker.account_id"},
		{"unknown provider", "broker:\n  provider: ib\n", "broker.provider"},
		{"bad duration", "broker:\n  provider: mock\n  timeout: soon\n", "broker.timeout"},
		{"bad ratio", "broker:\n  provider: mock\n  circuit_breaker:\n    failure_ratio: 2\n", "failure_ratio"},
		{"bad match", "broker:\n  provider: mock\nreconcile:\n  signature_match: fuzzy\n", "reconcile.signature_match"},
		{"bad format", "broker:\n  provider: mock\nreport:\n  formats: [xml]\n", "report.formats"},
		{"bad profit bounds", "broker:\n  provider: mock\nscreener:\n  profit_floor: 0.9\n  profit_ceiling: 0.5\n", "screener"},
		{"bad expiration", "broker:\n  provider: mock\nscreener:\n  expiration: 06/21/2024\n", "screener.expiration"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestRetryAndBreakerSettings(t *testing.T) {
	cfg, err := Parse([]byte(`
broker:
  provider: mock
  retry:
    max_retries: 5
    initial_backoff: 250ms
  circuit_breaker:
    timeout: 5s
    failure_ratio: 0.5
`))
	require.NoError(t, err)

	r := cfg.RetryConfig()
	assert.Equal(t, 5, r.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, r.InitialBackoff)
	assert.Equal(t, 30*time.Second, r.MaxBackoff)

	s := cfg.CircuitBreakerSettings()
	assert.Equal(t, 5*time.Second, s.Timeout)
	assert.Equal(t, 0.5, s.FailureRatio)
	assert.Equal(t, broker.DefaultCircuitBreakerSettings.MaxRequests, s.MaxRequests)
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("SPREADS_TEST_TOKEN=from-file\n"), 0o600))
	t.Setenv("SPREADS_TEST_TOKEN", "")
	require.NoError(t, os.Unsetenv("SPREADS_TEST_TOKEN"))

	require.NoError(t, LoadEnv(filepath.Join(dir, "missing.env"), envFile))
	assert.Equal(t, "from-file", os.Getenv("SPREADS_TEST_TOKEN"))

	cfg, err := Parse([]byte("broker:\n  provider: mock\ndashboard:\n  auth_token: ${SPREADS_TEST_TOKEN}\n"))
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Dashboard.AuthToken)
}
