// Package config provides Viper-based hierarchical configuration management:
// defaults, then an optional app.conf in the bank-config directory, then
// C2L_-prefixed environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gopkg.in/ini.v1"
)

// AppConfigFile is the optional application config inside the config directory.
const AppConfigFile = "app.conf"

// Config represents the complete application configuration.
type Config struct {
	App struct {
		// UserName is the account holder's display name, used by the
		// name-based cross-bank transfer gate.
		UserName  string `mapstructure:"user_name"`
		ConfigDir string `mapstructure:"config_dir"`
		// Strict aborts a batch on the first file error instead of
		// carrying per-file failures in the result.
		Strict bool `mapstructure:"strict"`
	} `mapstructure:"app"`

	Transfer struct {
		DateToleranceHours   int     `mapstructure:"date_tolerance_hours"`
		ConfidenceThreshold  float64 `mapstructure:"confidence_threshold"`
		PairCategory         string  `mapstructure:"pair_category"`
		LargeAmountThreshold float64 `mapstructure:"large_amount_threshold"`
	} `mapstructure:"transfer"`

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`

	CSV struct {
		Delimiter      string `mapstructure:"delimiter"`
		IncludeHeaders bool   `mapstructure:"include_headers"`
		QuoteAll       bool   `mapstructure:"quote_all"`
	} `mapstructure:"csv"`
}

// InitializeConfig builds the configuration for a given bank-config
// directory. The app.conf file is optional; defaults and environment
// variables always apply.
func InitializeConfig(configDir string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("C2L")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if configDir != "" {
		if err := overlayAppConf(v, filepath.Join(configDir, AppConfigFile)); err != nil {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if config.App.ConfigDir == "" {
		config.App.ConfigDir = configDir
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &config, nil
}

// overlayAppConf layers app.conf values over the defaults. A missing file is
// fine; a malformed one is not.
func overlayAppConf(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	f, err := ini.Load(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	for _, section := range f.Sections() {
		if section.Name() == ini.DefaultSection {
			continue
		}
		for _, key := range section.Keys() {
			v.Set(strings.ToLower(section.Name())+"."+strings.ToLower(key.Name()), key.String())
		}
	}
	return nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.user_name", "")
	v.SetDefault("app.config_dir", "")
	v.SetDefault("app.strict", false)

	v.SetDefault("transfer.date_tolerance_hours", 72)
	v.SetDefault("transfer.confidence_threshold", 0.7)
	v.SetDefault("transfer.pair_category", "Balance Correction")
	v.SetDefault("transfer.large_amount_threshold", 10000)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("csv.delimiter", ",")
	v.SetDefault("csv.include_headers", true)
	v.SetDefault("csv.quote_all", false)
}

// validateConfig checks configuration values for consistency.
func validateConfig(config *Config) error {
	if _, err := logrus.ParseLevel(config.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %s", config.Log.Level)
	}
	if config.Log.Format != "text" && config.Log.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be 'text' or 'json')", config.Log.Format)
	}
	if config.Transfer.ConfidenceThreshold <= 0 || config.Transfer.ConfidenceThreshold > 1 {
		return fmt.Errorf("transfer confidence threshold must be within (0, 1], got %v",
			config.Transfer.ConfidenceThreshold)
	}
	if config.Transfer.DateToleranceHours <= 0 {
		return fmt.Errorf("transfer date tolerance must be positive, got %d",
			config.Transfer.DateToleranceHours)
	}
	if config.Transfer.PairCategory == "" {
		return fmt.Errorf("transfer pair category must not be empty")
	}
	if len(config.CSV.Delimiter) != 1 {
		return fmt.Errorf("csv delimiter must be a single character, got %q", config.CSV.Delimiter)
	}
	return nil
}
