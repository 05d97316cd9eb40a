// Package config provides configuration management for the spread tools.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	yaml "gopkg.in/yaml.v3"

	"github.com/eddiefleurent/scranton_spreads/internal/broker"
	"github.com/eddiefleurent/scranton_spreads/internal/reconcile"
	"github.com/eddiefleurent/scranton_spreads/internal/report"
	"github.com/eddiefleurent/scranton_spreads/internal/retry"
	"github.com/eddiefleurent/scranton_spreads/internal/screener"
)

const (
	defaultReportDir     = "reports"
	defaultReportPrefix  = "reconcile"
	defaultDashboardAddr = ":8080"
	defaultCallTimeout   = 30 * time.Second
)

// Config represents the complete application configuration.
type Config struct {
	Environment EnvironmentConfig `yaml:"environment"`
	Broker      BrokerConfig      `yaml:"broker"`
	Source      SourceConfig      `yaml:"source"`
	Reconcile   ReconcileConfig   `yaml:"reconcile"`
	Report      ReportConfig      `yaml:"report"`
	Screener    ScreenerConfig    `yaml:"screener"`
	Dashboard   DashboardConfig   `yaml:"dashboard"`
}

// EnvironmentConfig defines the environment settings.
type EnvironmentConfig struct {
	Mode      string `yaml:"mode"`       // paper | live
	LogLevel  string `yaml:"log_level"`  // debug | info | warn | error
	LogFormat string `yaml:"log_format"` // text | json
}

// BrokerConfig defines broker API settings.
type BrokerConfig struct {
	Provider       string               `yaml:"provider"` // tradier | mock
	APIKey         string               `yaml:"api_key"`
	APIEndpoint    string               `yaml:"api_endpoint"`
	AccountID      string               `yaml:"account_id"`
	Timeout        string               `yaml:"timeout"`
	Retry          RetryConfig          `yaml:"retry"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// RetryConfig tunes the backoff applied to broker calls. Zero values fall
// back to the retry package defaults.
type RetryConfig struct {
	MaxRetries     int    `yaml:"max_retries"`
	InitialBackoff string `yaml:"initial_backoff"`
	MaxBackoff     string `yaml:"max_backoff"`
	Timeout        string `yaml:"timeout"`
}

// CircuitBreakerConfig overrides the broker circuit breaker defaults.
type CircuitBreakerConfig struct {
	MaxRequests  uint32  `yaml:"max_requests"`
	Interval     string  `yaml:"interval"`
	Timeout      string  `yaml:"timeout"`
	MinRequests  uint32  `yaml:"min_requests"`
	FailureRatio float64 `yaml:"failure_ratio"`
}

// SourceConfig names the order history file (.csv or .json).
type SourceConfig struct {
	Path string `yaml:"path"`
}

// ReconcileConfig selects how strike signatures are compared.
type ReconcileConfig struct {
	SignatureMatch string `yaml:"signature_match"` // exact | numeric
}

// ReportConfig controls where reports are written.
type ReportConfig struct {
	Dir     string   `yaml:"dir"`
	Prefix  string   `yaml:"prefix"`
	Formats []string `yaml:"formats"` // csv | json | txt
}

// ScreenerConfig defines the credit spread screen.
type ScreenerConfig struct {
	Symbols       []string  `yaml:"symbols"`
	OptionType    string    `yaml:"option_type"`
	ProfitFloor   float64   `yaml:"profit_floor"`
	ProfitCeiling float64   `yaml:"profit_ceiling"`
	Widths        []float64 `yaml:"widths"`
	Expiration    string    `yaml:"expiration"`
	MinDTE        int       `yaml:"min_dte"`
	Concurrency   int       `yaml:"concurrency"`
	OutputDir     string    `yaml:"output_dir"`
}

// DashboardConfig defines the report API listener.
type DashboardConfig struct {
	Addr      string `yaml:"addr"`
	AuthToken string `yaml:"auth_token"`
}

// LoadEnv loads .env style files into the process environment so config
// values like ${TRADIER_API_KEY} expand. Missing files are skipped and
// variables already set are kept.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}

// Load reads and parses the configuration file from the specified path.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- configPath is a user-provided config file path
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML config data after expanding environment variables.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var config Config
	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(&config); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &config, nil
}

// Validate checks that all configuration values are valid and consistent.
// Unset optional values are filled with defaults.
func (c *Config) Validate() error {
	c.normalize()

	if c.Environment.Mode != "paper" && c.Environment.Mode != "live" {
		return fmt.Errorf("environment.mode must be 'paper' or 'live'")
	}
	switch c.Environment.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("environment.log_level must be one of debug, info, warn, error")
	}
	if c.Environment.LogFormat != "text" && c.Environment.LogFormat != "json" {
		return fmt.Errorf("environment.log_format must be 'text' or 'json'")
	}

	switch c.Broker.Provider {
	case "mock":
	case "tradier":
		if c.Broker.APIKey == "" {
			return fmt.Errorf("broker.api_key is required")
		}
		if c.Broker.AccountID == "" {
			return fmt.Errorf("broker.account_id is required")
		}
	default:
		return fmt.Errorf("broker.provider must be 'tradier' or 'mock'")
	}
	for name, value := range map[string]string{
		"broker.timeout":                  c.Broker.Timeout,
		"broker.retry.initial_backoff":    c.Broker.Retry.InitialBackoff,
		"broker.retry.max_backoff":        c.Broker.Retry.MaxBackoff,
		"broker.retry.timeout":            c.Broker.Retry.Timeout,
		"broker.circuit_breaker.interval": c.Broker.CircuitBreaker.Interval,
		"broker.circuit_breaker.timeout":  c.Broker.CircuitBreaker.Timeout,
	} {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("%s invalid: %w", name, err)
		}
	}
	if c.Broker.Retry.MaxRetries < 0 {
		return fmt.Errorf("broker.retry.max_retries must be >= 0")
	}
	if r := c.Broker.CircuitBreaker.FailureRatio; r < 0 || r > 1 {
		return fmt.Errorf("broker.circuit_breaker.failure_ratio must be between 0 and 1")
	}

	if _, err := reconcile.ParseSignatureMatch(c.Reconcile.SignatureMatch); err != nil {
		return fmt.Errorf("reconcile.signature_match: %w", err)
	}

	for _, f := range c.Report.Formats {
		if _, err := report.ParseFormat(f); err != nil {
			return fmt.Errorf("report.formats: %w", err)
		}
	}

	if err := c.Screener.Criteria().Validate(); err != nil {
		return fmt.Errorf("screener: %w", err)
	}
	if c.Screener.Expiration != "" {
		if _, err := time.Parse("2006-01-02", c.Screener.Expiration); err != nil {
			return fmt.Errorf("screener.expiration must be YYYY-MM-DD: %w", err)
		}
	}
	if c.Screener.MinDTE < 0 {
		return fmt.Errorf("screener.min_dte must be >= 0")
	}

	return nil
}

// normalize sets default values for unset optional fields.
func (c *Config) normalize() {
	if c.Environment.Mode == "" {
		c.Environment.Mode = "paper"
	}
	if c.Environment.LogLevel == "" {
		c.Environment.LogLevel = "info"
	}
	if c.Environment.LogFormat == "" {
		c.Environment.LogFormat = "text"
	}
	if c.Broker.Provider == "" {
		c.Broker.Provider = "tradier"
	}
	if c.Reconcile.SignatureMatch == "" {
		c.Reconcile.SignatureMatch = string(reconcile.MatchExact)
	}
	if c.Report.Dir == "" {
		c.Report.Dir = defaultReportDir
	}
	if c.Report.Prefix == "" {
		c.Report.Prefix = defaultReportPrefix
	}
	if len(c.Report.Formats) == 0 {
		c.Report.Formats = []string{"csv", "json"}
	}
	if c.Screener.OptionType == "" {
		c.Screener.OptionType = string(screener.DefaultCriteria.OptionType)
	}
	if c.Screener.ProfitFloor == 0 && c.Screener.ProfitCeiling == 0 {
		c.Screener.ProfitFloor = screener.DefaultCriteria.ProfitFloor
		c.Screener.ProfitCeiling = screener.DefaultCriteria.ProfitCeiling
	}
	if len(c.Screener.Widths) == 0 {
		c.Screener.Widths = append([]float64(nil), screener.DefaultCriteria.Widths...)
	}
	if c.Screener.OutputDir == "" {
		c.Screener.OutputDir = c.Report.Dir
	}
	if c.Dashboard.Addr == "" {
		c.Dashboard.Addr = defaultDashboardAddr
	}
}

// IsPaperTrading returns true when the sandbox API should be used.
func (c *Config) IsPaperTrading() bool {
	return c.Environment.Mode == "paper"
}

// CallTimeout returns the per-request broker timeout.
func (c *Config) CallTimeout() time.Duration {
	return parseDurationOr(c.Broker.Timeout, defaultCallTimeout)
}

// RetryConfig converts the retry section, keeping package defaults for
// unset values.
func (c *Config) RetryConfig() retry.Config {
	cfg := retry.DefaultConfig
	if c.Broker.Retry.MaxRetries > 0 {
		cfg.MaxRetries = c.Broker.Retry.MaxRetries
	}
	cfg.InitialBackoff = parseDurationOr(c.Broker.Retry.InitialBackoff, cfg.InitialBackoff)
	cfg.MaxBackoff = parseDurationOr(c.Broker.Retry.MaxBackoff, cfg.MaxBackoff)
	cfg.Timeout = parseDurationOr(c.Broker.Retry.Timeout, cfg.Timeout)
	return cfg
}

// CircuitBreakerSettings converts the circuit breaker section.
func (c *Config) CircuitBreakerSettings() broker.CircuitBreakerSettings {
	s := broker.DefaultCircuitBreakerSettings
	cb := c.Broker.CircuitBreaker
	if cb.MaxRequests > 0 {
		s.MaxRequests = cb.MaxRequests
	}
	if cb.MinRequests > 0 {
		s.MinRequests = cb.MinRequests
	}
	if cb.FailureRatio > 0 {
		s.FailureRatio = cb.FailureRatio
	}
	s.Interval = parseDurationOr(cb.Interval, s.Interval)
	s.Timeout = parseDurationOr(cb.Timeout, s.Timeout)
	return s
}

// SignatureMatch returns the configured strike comparison.
func (c *Config) SignatureMatch() reconcile.SignatureMatch {
	m, err := reconcile.ParseSignatureMatch(c.Reconcile.SignatureMatch)
	if err != nil {
		return reconcile.MatchExact
	}
	return m
}

// ReportFormats returns the parsed report formats.
func (c *Config) ReportFormats() []report.Format {
	out := make([]report.Format, 0, len(c.Report.Formats))
	for _, f := range c.Report.Formats {
		if format, err := report.ParseFormat(f); err == nil {
			out = append(out, format)
		}
	}
	return out
}

// Criteria converts the screener section.
func (s ScreenerConfig) Criteria() screener.Criteria {
	return screener.Criteria{
		OptionType:    broker.OptionType(strings.ToLower(s.OptionType)),
		ProfitFloor:   s.ProfitFloor,
		ProfitCeiling: s.ProfitCeiling,
		Widths:        s.Widths,
	}
}

// Options converts the screener section's expiration and fan-out settings.
func (s ScreenerConfig) Options() screener.Options {
	return screener.Options{
		Expiration:  s.Expiration,
		MinDTE:      s.MinDTE,
		Concurrency: s.Concurrency,
	}
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
