// Package config loads the monitor's on-disk configuration: config.yml plus
// the accounts file it points at.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root of config.yml.
type Config struct {
	Database     DatabaseConfig `yaml:"database"`
	LogLevel     string         `yaml:"log_level"`
	AccountsFile string         `yaml:"accounts_file"`
	Explorer     ExplorerConfig `yaml:"explorer"`
	Metrics      MetricsConfig  `yaml:"metrics"`
	Collection   CollectionConfig `yaml:"collection"`
	Report       ReportConfig   `yaml:"report"`
}

// DatabaseConfig points at the Mongo-compatible document store.
type DatabaseConfig struct {
	URI  string `yaml:"uri"`
	Name string `yaml:"name"`
}

// ExplorerConfig carries the explorer API credential. The host is derived
// per-request from the account's network, not configured here.
type ExplorerConfig struct {
	APIKey string `yaml:"api_key"`
}

// MetricsConfig selects the address the Prometheus exporter listens on.
type MetricsConfig struct {
	Port string `yaml:"port"`
}

// CollectionConfig selects which fetchers are enabled.
type CollectionConfig struct {
	Modules []string `yaml:"modules"`
}

// ReportConfig lists the enabled report generators and the publisher they
// share.
type ReportConfig struct {
	Modules   []ReportModule  `yaml:"modules"`
	Publisher PublisherConfig `yaml:"publisher"`
}

// ReportModule is one `{type, config}` entry of report.modules. Config is
// decoded again per-type by the caller, since its shape depends on Type
// (report_range for transfers; occurrence for the bucketed kinds).
type ReportModule struct {
	Type   string    `yaml:"type"`
	Config yaml.Node `yaml:"config"`
}

// TransfersModuleConfig is ReportModule.Config decoded for type=transfers.
type TransfersModuleConfig struct {
	ReportRange uint64 `yaml:"report_range"`
}

// BucketedModuleConfig is ReportModule.Config decoded for
// type=rewards_slashes and type=nominations.
type BucketedModuleConfig struct {
	Occurrence string `yaml:"occurrence"`
}

// Decode unmarshals m.Config into out (a pointer to one of the
// *ModuleConfig structs above).
func (m ReportModule) Decode(out interface{}) error {
	if err := m.Config.Decode(out); err != nil {
		return fmt.Errorf("decoding config for report module %q: %w", m.Type, err)
	}
	return nil
}

// PublisherConfig is report.publisher: the single artifact sink every
// report module uploads through.
type PublisherConfig struct {
	Type   string `yaml:"type"`
	Config struct {
		BucketName    string `yaml:"bucket_name"`
		GCPSecretPath string `yaml:"gcp_secret_path"`
	} `yaml:"config"`
}

const configFilename = "config.yml"

// Load reads dir/config.yml, decodes it, and validates the fields the core
// needs before any task starts. A missing file, invalid YAML, or a
// structurally incomplete config is a configuration error.
func Load(dir string) (*Config, error) {
	fullPath := filepath.Join(dir, configFilename)
	raw, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", fullPath, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", fullPath, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", fullPath, err)
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URI == "" {
		return fmt.Errorf("database.uri is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database.name is required")
	}
	if c.AccountsFile == "" {
		return fmt.Errorf("accounts_file is required")
	}
	if len(c.Collection.Modules) == 0 {
		return fmt.Errorf("collection.modules must name at least one fetcher")
	}
	return nil
}

// AccountsPath resolves AccountsFile relative to dir, the directory that
// held config.yml, so the field may be given as a relative path.
func (c *Config) AccountsPath(dir string) string {
	if filepath.IsAbs(c.AccountsFile) {
		return c.AccountsFile
	}
	return filepath.Join(dir, c.AccountsFile)
}

// ParseOccurrence checks that a YAML occurrence string is daily, weekly or
// monthly and returns it unchanged; callers convert it to store.Occurrence
// for the bucketed report qualifiers.
func ParseOccurrence(s string) (string, error) {
	switch s {
	case "daily", "weekly", "monthly":
		return s, nil
	default:
		return "", fmt.Errorf("unrecognized occurrence %q (want daily, weekly or monthly)", s)
	}
}

// ParseReportRange turns a report_range seconds count into a Duration.
func ParseReportRange(seconds uint64) time.Duration {
	return time.Duration(seconds) * time.Second
}
