// Package config collects process configuration once at startup.
//
// Values are layered defaults -> optional YAML file -> environment, and the
// resulting Config is treated as read-only after Load returns.
package config

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Metric sources.
const (
	MetricsSourceSystem = "system"
	MetricsSourceMock   = "mock"
)

// Config contains process configuration.
type Config struct {
	// BuildNumber is echoed into pages and /health.
	BuildNumber string `koanf:"build_number"`

	// APIUser and APIPass guard the authenticated endpoints.
	APIUser string `koanf:"api_user"`
	APIPass string `koanf:"api_pass"`

	Host string `koanf:"host"`
	Port int    `koanf:"port"`

	// Debug must stay off in production.
	Debug bool `koanf:"debug"`

	LogLevel string `koanf:"log_level"`
	LogFile  string `koanf:"log_file"`
	// LogMaxSizeMB is the rotation threshold for LogFile.
	LogMaxSizeMB int `koanf:"log_max_size_mb"`

	// MetricsSource selects the host sampler (system) or fixed values (mock).
	MetricsSource   string `koanf:"metrics_source"`
	MockCPUUsage    int    `koanf:"mock_cpu_usage"`
	MockMemoryUsage int    `koanf:"mock_memory_usage"`

	// CPUSampleInterval is passed to the CPU read; zero compares against the previous read.
	CPUSampleInterval time.Duration `koanf:"cpu_sample_interval"`

	// StreamInterval is the push period of /ws/metrics.
	StreamInterval time.Duration `koanf:"stream_interval"`

	PrometheusEnabled bool `koanf:"prometheus_enabled"`
}

// New returns a Config holding the defaults.
func New() *Config {
	return &Config{
		BuildNumber:       "Development",
		Host:              "0.0.0.0",
		Port:              5000,
		Debug:             false,
		LogLevel:          "info",
		LogMaxSizeMB:      10,
		MetricsSource:     MetricsSourceSystem,
		MockCPUUsage:      45,
		MockMemoryUsage:   62,
		CPUSampleInterval: 0,
		StreamInterval:    2 * time.Second,
		PrometheusEnabled: true,
	}
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// AuthConfigured reports whether both API secrets are set.
func (c *Config) AuthConfigured() bool {
	return c.APIUser != "" && c.APIPass != ""
}

// Validate checks the values Load cannot default away.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: port must be between 1 and 65535, got %d", ErrInvalidConfig, c.Port)
	}
	switch c.MetricsSource {
	case MetricsSourceSystem, MetricsSourceMock:
	default:
		return fmt.Errorf("%w: unknown metrics_source %q", ErrInvalidConfig, c.MetricsSource)
	}
	if c.LogMaxSizeMB < 1 {
		return fmt.Errorf("%w: log_max_size_mb must be at least 1, got %d", ErrInvalidConfig, c.LogMaxSizeMB)
	}
	if c.CPUSampleInterval < 0 {
		return fmt.Errorf("%w: cpu_sample_interval must not be negative", ErrInvalidConfig)
	}
	if c.StreamInterval <= 0 {
		return fmt.Errorf("%w: stream_interval must be positive", ErrInvalidConfig)
	}
	return nil
}
