// Package config loads fncengine CLI settings from a config file, FNCENGINE_*
// environment variables and command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. FNCENGINE_LOG_LEVEL.
const EnvPrefix = "FNCENGINE"

// Config holds the dispatcher and CLI settings.
type Config struct {
	Verbose         bool     `mapstructure:"verbose"`          // Log each call before it runs
	ReferenceMarker string   `mapstructure:"reference_marker"` // Empty means textual matching
	RecoverPanics   bool     `mapstructure:"recover_panics"`
	EnvelopeOutputs bool     `mapstructure:"envelope_outputs"` // Store tool-call results under their id
	LogLevel        string   `mapstructure:"log_level"`        // "debug", "info", "warn", "error"
	LogFormat       string   `mapstructure:"log_format"`       // "console" or "json"
	Plugins         []string `mapstructure:"plugins"`          // Go plugins to register functions from
}

// Flags returns the flag set understood by Load. Flag names use dashes, config keys
// use underscores.
func Flags(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.StringP("config", "c", "", "Path to a config file (yaml, json or toml).")
	fs.BoolP("verbose", "v", false, "Log every function call before it runs.")
	fs.String("reference-marker", "", "Prefix that marks a parameter as a reference, e.g. '$'.")
	fs.Bool("recover-panics", true, "Convert panicking functions into errors.")
	fs.Bool("envelope-outputs", false, "Store tool-call results under their call id.")
	fs.String("log-level", "info", "Logging level: debug, info, warn or error.")
	fs.String("log-format", "console", "Log output format: console or json.")
	fs.StringSliceP("plugin", "p", nil, "Go plugin (.so) to register functions from; repeatable.")
	return fs
}

// Load builds a Config from defaults, the config file named by the "config" flag (if
// any), the environment and the already parsed flags. fs may be nil.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	v.SetDefault("verbose", false)
	v.SetDefault("reference_marker", "")
	v.SetDefault("recover_panics", true)
	v.SetDefault("envelope_outputs", false)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("plugins", []string{})

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		for key, flag := range map[string]string{
			"verbose":          "verbose",
			"reference_marker": "reference-marker",
			"recover_panics":   "recover-panics",
			"envelope_outputs": "envelope-outputs",
			"log_level":        "log-level",
			"log_format":       "log-format",
			"plugins":          "plugin",
		} {
			if f := fs.Lookup(flag); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", flag, err)
				}
			}
		}
		if path, err := fs.GetString("config"); err == nil && path != "" {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	var errs []error
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.LogFormat) {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("invalid log_format %q: must be 'console' or 'json'", c.LogFormat))
	}
	return errors.Join(errs...)
}

// Level returns the zerolog level named by LogLevel.
func (c *Config) Level() (zerolog.Level, error) {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return zerolog.DebugLevel, nil
	case "info", "":
		return zerolog.InfoLevel, nil
	case "warn":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	default:
		return zerolog.NoLevel, fmt.Errorf("invalid log_level %q: must be 'debug', 'info', 'warn' or 'error'", c.LogLevel)
	}
}
