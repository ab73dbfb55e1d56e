// =============================================================================
// ISA Atributo - Configuration
// =============================================================================
//
// This module handles loading the application configuration from a YAML
// file. Every key has a default, so the application runs without a file.
//
// CONFIGURATION FILE (config.yaml):
//   input_dir: ./input
//   output_dir: ./output
//   log_level: info
//   log_format: console
//   report_name_format: "ISA_Relatorio_Auditoria_{date}.xlsx"
//   max_concurrency: 4
//   write_summary_log: true
//   deduplicate: false
//   lookup:
//     base_url: https://api.meudanfe.com.br
//     api_key_env: MEU_DANFE_API_KEY
//     timeout: 30s
//   server:
//     addr: ":8080"
//     max_body_bytes: 10485760
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
type MainConfig struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// InputDir is scanned for .xml and .zip files when the audit command is
	// given no paths.
	// Default: "./input"
	InputDir string `yaml:"input_dir"`

	// OutputDir receives the spreadsheet report and the run logs.
	// Default: "./output"
	OutputDir string `yaml:"output_dir"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// LogFormat selects human-readable console output or JSON lines.
	// Valid values: "console", "json"
	// Default: "console"
	LogFormat string `yaml:"log_format"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// ReportNameFormat defines the report file name.
	// Placeholders: {uuid}, {timestamp}, {date}, {time}
	// Default: "ISA_Relatorio_Auditoria_{date}.xlsx"
	ReportNameFormat string `yaml:"report_name_format"`

	// WriteSummaryLog writes a processing summary (and an error log when
	// documents were rejected) next to the report.
	// Default: true
	WriteSummaryLog *bool `yaml:"write_summary_log"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// MaxConcurrency is the number of documents extracted in parallel.
	// Set to 1 for sequential processing.
	// Default: 4
	MaxConcurrency int `yaml:"max_concurrency"`

	// Deduplicate keeps only the first record per access key and document
	// number within a batch.
	// Default: false
	Deduplicate bool `yaml:"deduplicate"`

	// =========================================================================
	// COLLABORATORS
	// =========================================================================

	Lookup LookupConfig `yaml:"lookup"`
	Server ServerConfig `yaml:"server"`
}

// LookupConfig configures the remote CT-e lookup.
type LookupConfig struct {
	// BaseURL of the document API.
	// Default: "https://api.meudanfe.com.br"
	BaseURL string `yaml:"base_url"`

	// APIKeyEnv names the environment variable holding the API key. The key
	// itself never lives in the file.
	// Default: "MEU_DANFE_API_KEY"
	APIKeyEnv string `yaml:"api_key_env"`

	// Timeout for a single lookup request.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout"`
}

// APIKey reads the key from the configured environment variable.
func (c LookupConfig) APIKey() string {
	return strings.TrimSpace(os.Getenv(c.APIKeyEnv))
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	// Addr is the listen address.
	// Default: ":8080"
	Addr string `yaml:"addr"`

	// MaxBodyBytes caps uploaded documents.
	// Default: 10 MiB
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// Version is reported by /health. Set by the binary, not the file.
	Version string `yaml:"-"`
}

// SummaryLogEnabled reports whether run logs should be written.
func (c *MainConfig) SummaryLogEnabled() bool {
	return c.WriteSummaryLog == nil || *c.WriteSummaryLog
}

// =============================================================================
// LOADING
// =============================================================================

// Default returns a configuration with every default applied.
func Default() *MainConfig {
	config := &MainConfig{}
	applyMainConfigDefaults(config)
	return config
}

// LoadMainConfig loads the main configuration file.
//
// PARAMETERS:
//   - configPath: The path to the main configuration file.
//   - optional: When true, a missing file yields the defaults instead of an
//     error.
//
// RETURNS:
//   - A pointer to the MainConfig struct.
//   - An error if the file cannot be read, parsed or validated.
func LoadMainConfig(configPath string, optional bool) (*MainConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if optional && errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config MainConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyMainConfigDefaults(&config)

	if err := validateMainConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.InputDir == "" {
		config.InputDir = "./input"
	}
	if config.OutputDir == "" {
		config.OutputDir = "./output"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.LogFormat == "" {
		config.LogFormat = "console"
	}
	if config.ReportNameFormat == "" {
		config.ReportNameFormat = "ISA_Relatorio_Auditoria_{date}.xlsx"
	}
	if config.MaxConcurrency == 0 {
		config.MaxConcurrency = 4
	}
	if config.Lookup.BaseURL == "" {
		config.Lookup.BaseURL = "https://api.meudanfe.com.br"
	}
	if config.Lookup.APIKeyEnv == "" {
		config.Lookup.APIKeyEnv = "MEU_DANFE_API_KEY"
	}
	if config.Lookup.Timeout == 0 {
		config.Lookup.Timeout = 30 * time.Second
	}
	if config.Server.Addr == "" {
		config.Server.Addr = ":8080"
	}
	if config.Server.MaxBodyBytes == 0 {
		config.Server.MaxBodyBytes = 10 << 20
	}
}

// validateMainConfig validates the main configuration.
func validateMainConfig(config *MainConfig) error {
	switch strings.ToLower(config.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", config.LogLevel)
	}

	switch strings.ToLower(config.LogFormat) {
	case "console", "json":
	default:
		return fmt.Errorf("unknown log_format %q", config.LogFormat)
	}

	if config.MaxConcurrency < 1 {
		return fmt.Errorf("max_concurrency must be at least 1, got %d", config.MaxConcurrency)
	}
	if config.Lookup.Timeout < 0 {
		return fmt.Errorf("lookup.timeout must not be negative")
	}
	if config.Server.MaxBodyBytes < 0 {
		return fmt.Errorf("server.max_body_bytes must not be negative")
	}

	return nil
}
