// Package loader handles configuration file loading and validation.
//
// Configuration is YAML with environment-variable expansion, so secrets can
// stay out of the file:
//
//	auth:
//	  password: ${DEG_PASSWORD}
package loader

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/seqtools/degbrowser/config"
	"github.com/seqtools/degbrowser/internal/tunnel"
	"github.com/seqtools/degbrowser/internal/validation"
)

// Config is the daemon configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Results  ResultsConfig  `yaml:"results"`
	Auth     AuthConfig     `yaml:"auth"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Query    QueryConfig    `yaml:"query"`
	Tunnel   TunnelConfig   `yaml:"tunnel"`
	Export   ExportConfig   `yaml:"export"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// ResultsConfig configures dataset discovery.
type ResultsConfig struct {
	Dir          string `yaml:"dir"`
	MaxTableRows int    `yaml:"max_table_rows"`
	PageSize     int    `yaml:"page_size"`
}

// AuthConfig configures dashboard authentication.
type AuthConfig struct {
	// Enabled toggles basic auth for the dashboard and API.
	Enabled bool `yaml:"enabled"`

	// Username defaults to DEG_USERNAME, then "admin".
	Username string `yaml:"username"`

	// Password defaults to DEG_PASSWORD. When auth is enabled and no
	// password is configured anywhere, a random one is generated at
	// startup and logged.
	Password string `yaml:"password"`

	// SessionSecret signs session cookies. A random per-process secret is
	// used when unset, which invalidates sessions across restarts.
	SessionSecret string `yaml:"session_secret"`
}

// AnalysisConfig holds default significance thresholds.
type AnalysisConfig struct {
	FDR       float64 `yaml:"fdr"`
	LFC       float64 `yaml:"lfc"`
	TopLabels int     `yaml:"top_labels"`
}

// QueryConfig configures the DuckDB query service.
type QueryConfig struct {
	MemoryLimit string `yaml:"memory_limit"`
	TimeoutSec  int    `yaml:"timeout_sec"`
}

// Timeout returns the query timeout as a duration.
func (q QueryConfig) Timeout() time.Duration {
	if q.TimeoutSec <= 0 {
		return config.DefaultQueryTimeout
	}
	return time.Duration(q.TimeoutSec) * time.Second
}

// TunnelConfig selects the public tunnel client.
type TunnelConfig struct {
	// Provider is ngrok, localtunnel, cloudflare, or none.
	Provider string `yaml:"provider"`

	// Args are appended verbatim to the tunnel client's command line.
	Args []string `yaml:"args"`
}

// ExportConfig configures parquet snapshots.
type ExportConfig struct {
	Dir string `yaml:"dir"`
}

// LoggingConfig configures slog output.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// DefaultConfig returns a configuration with all documented defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: config.DefaultHost,
			Port: config.DefaultPort,
		},
		Results: ResultsConfig{
			Dir:          config.DefaultResultsDir,
			MaxTableRows: config.DefaultMaxTableRows,
			PageSize:     config.DefaultTablePageSize,
		},
		Auth: AuthConfig{
			Enabled: true,
		},
		Analysis: AnalysisConfig{
			FDR:       config.DefaultFDRThreshold,
			LFC:       config.DefaultLFCThreshold,
			TopLabels: config.DefaultTopLabels,
		},
		Query: QueryConfig{
			MemoryLimit: config.DefaultQueryMemoryLimit,
		},
		Tunnel: TunnelConfig{
			Provider: config.DefaultTunnelProvider,
		},
		Export: ExportConfig{
			Dir: config.DefaultExportDir,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file. Environment variables in the
// file are expanded before parsing. Values absent from the file keep their
// defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for out-of-range values.
func (c *Config) Validate() error {
	if err := validation.ValidatePort(c.Server.Port); err != nil {
		return err
	}
	if err := validation.ValidateFDR(c.Analysis.FDR); err != nil {
		return err
	}
	if err := validation.ValidateLFC(c.Analysis.LFC); err != nil {
		return err
	}
	if _, err := tunnel.ParseProvider(c.Tunnel.Provider); err != nil {
		return err
	}
	if c.Results.Dir == "" {
		return fmt.Errorf("results.dir must not be empty")
	}
	return nil
}
