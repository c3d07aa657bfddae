// Package config loads phiguard's application settings. Values come from, in
// increasing precedence: built-in defaults, ~/.config/phiguard/config.yaml,
// PHIGUARD_* environment variables, and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pankaj-dahiya-devops/phiguard/internal/providers/aws/common"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "PHIGUARD"

// Config is the top-level application configuration.
// It must never be committed with real secrets; credentials come from the
// AWS SDK's own chain, not from this file.
type Config struct {
	// Profile is the named AWS profile. Empty means the SDK default chain.
	Profile string `mapstructure:"profile" json:"profile"`

	// Region is used when the profile has no region configured.
	Region string `mapstructure:"region" json:"region"`

	// RoleName is assumed in member accounts for multi-account runs.
	RoleName string `mapstructure:"role_name" json:"role_name"`

	// ResultsBucket receives archived scan results. Empty disables archiving.
	ResultsBucket string `mapstructure:"results_bucket" json:"results_bucket"`

	// AuditTable receives one item per remediation outcome. Empty disables
	// the audit log.
	AuditTable string `mapstructure:"audit_table" json:"audit_table"`

	// ScanConfig is the path of the remediation config file.
	ScanConfig string `mapstructure:"scan_config" json:"scan_config"`

	// LogLevel is a zerolog level name.
	LogLevel string `mapstructure:"log_level" json:"log_level"`

	// LogFormat is "console" for human-readable lines or "json" for one
	// object per line.
	LogFormat string `mapstructure:"log_format" json:"log_format"`
}

// JSONLogs reports whether logs are written as JSON.
func (c *Config) JSONLogs() bool {
	return strings.EqualFold(c.LogFormat, "json")
}

// defaults are registered for every key so that viper resolves environment
// variables for keys absent from the file.
var defaults = map[string]any{
	"profile":        "",
	"region":         "",
	"role_name":      common.DefaultRemediationRoleName,
	"results_bucket": "",
	"audit_table":    "",
	"scan_config":    "",
	"log_level":      "info",
	"log_format":     "console",
}

// Loader is the interface for reading Config.
type Loader interface {
	// Load reads, parses, and validates the configuration.
	Load() (*Config, error)

	// ConfigPath returns the absolute path to the configuration file.
	ConfigPath() string
}

// ViperLoader reads Config through a private viper instance.
type ViperLoader struct {
	v    *viper.Viper
	path string
}

// NewLoader returns a loader for the file at path. An empty path selects
// DefaultPath.
func NewLoader(path string) *ViperLoader {
	if path == "" {
		path = DefaultPath()
	}
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	return &ViperLoader{v: v, path: path}
}

// DefaultPath returns ~/.config/phiguard/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", "phiguard", "config.yaml")
	}
	return filepath.Join(home, ".config", "phiguard", "config.yaml")
}

// ConfigPath implements Loader.
func (l *ViperLoader) ConfigPath() string { return l.path }

// BindFlags makes the given flags override file and environment values.
// Flag names use dashes ("role-name"); keys use underscores.
func (l *ViperLoader) BindFlags(fs *pflag.FlagSet) error {
	var errs []error
	fs.VisitAll(func(f *pflag.Flag) {
		key := strings.ReplaceAll(f.Name, "-", "_")
		if _, known := defaults[key]; !known {
			return
		}
		if err := l.v.BindPFlag(key, f); err != nil {
			errs = append(errs, err)
		}
	})
	return errors.Join(errs...)
}

// Load implements Loader. A missing config file is not an error.
func (l *ViperLoader) Load() (*Config, error) {
	if err := l.v.ReadInConfig(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read %s: %w", l.path, err)
			}
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", l.path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var logLevels = map[string]struct{}{
	"trace": {}, "debug": {}, "info": {}, "warn": {}, "error": {}, "fatal": {}, "panic": {}, "disabled": {},
}

// Validate checks the settings that can be checked offline.
func (c *Config) Validate() error {
	var errs []error
	if _, ok := logLevels[strings.ToLower(c.LogLevel)]; !ok {
		errs = append(errs, fmt.Errorf("log_level: invalid value %q", c.LogLevel))
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log_format: invalid value %q, want console or json", c.LogFormat))
	}
	if strings.ContainsAny(c.RoleName, ":/ ") {
		errs = append(errs, fmt.Errorf("role_name: %q must be a role name, not an ARN or path", c.RoleName))
	}
	return errors.Join(errs...)
}
