// Package config holds the cardform CLI configuration. Values come from a
// YAML file, CARDFORM_* environment variables and flags, layered by viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "CARDFORM"

// Resolver kinds.
const (
	ResolverCatalog = "catalog"
	ResolverHTTP    = "http"
)

// Config is the root configuration.
type Config struct {
	Logger     LoggerConfig     `mapstructure:"logger" yaml:"logger"`
	Resolver   ResolverConfig   `mapstructure:"resolver" yaml:"resolver"`
	Classifier ClassifierConfig `mapstructure:"classifier" yaml:"classifier"`
	Form       FormConfig       `mapstructure:"form" yaml:"form"`
}

// LoggerConfig configures console and rotated file logging.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// ResolverConfig selects where card numbers are classified. The catalog
// resolver reads CatalogDir, or the embedded catalog when it is empty; the
// http resolver talks to BaseURL.
type ResolverConfig struct {
	Kind       string        `mapstructure:"kind" yaml:"kind"`
	CatalogDir string        `mapstructure:"catalog_dir" yaml:"catalog_dir"`
	BaseURL    string        `mapstructure:"base_url" yaml:"base_url"`
	Token      string        `mapstructure:"token" yaml:"token"`
	Timeout    time.Duration `mapstructure:"timeout" yaml:"timeout"`
	RateLimit  float64       `mapstructure:"rate_limit" yaml:"rate_limit"`
	Burst      int           `mapstructure:"burst" yaml:"burst"`
}

// ClassifierConfig tunes classification.
type ClassifierConfig struct {
	MinDigits int `mapstructure:"min_digits" yaml:"min_digits"`
}

// FormConfig holds per payment options.
type FormConfig struct {
	Recurring       bool   `mapstructure:"recurring" yaml:"recurring"`
	CardNumberField string `mapstructure:"card_number_field" yaml:"card_number_field"`
	MaxAttempts     int    `mapstructure:"max_attempts" yaml:"max_attempts"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "cardform")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 10)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 7)
	v.SetDefault("logger.compress", false)

	// -- Resolver --
	v.SetDefault("resolver.kind", ResolverCatalog)
	v.SetDefault("resolver.catalog_dir", "")
	v.SetDefault("resolver.base_url", "")
	v.SetDefault("resolver.timeout", "10s")
	v.SetDefault("resolver.rate_limit", 10.0)
	v.SetDefault("resolver.burst", 5)

	// -- Classifier --
	v.SetDefault("classifier.min_digits", 6)

	// -- Form --
	v.SetDefault("form.recurring", false)
	v.SetDefault("form.card_number_field", "cardNumber")
	v.SetDefault("form.max_attempts", 3)
}

// NewViper returns a viper instance with defaults and CARDFORM_* environment
// overrides wired.
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// NewDefaultConfig returns the configuration produced by the defaults alone.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	// defaults always decode
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// NewConfigFromViper decodes, expands and validates the configuration held
// by v.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Load reads the configuration file into a fresh viper instance and decodes
// it. See ReadInConfig for how path is resolved.
func Load(path string) (*Config, error) {
	v := NewViper()
	if err := ReadInConfig(v, path); err != nil {
		return nil, err
	}
	return NewConfigFromViper(v)
}

// ReadInConfig reads path into v. An empty path searches for cardform.yaml
// in the working directory and .cardform.yaml in the home directory; finding
// neither is not an error.
func ReadInConfig(v *viper.Viper, path string) error {
	if path != "" {
		expanded, err := homedir.Expand(path)
		if err != nil {
			return fmt.Errorf("expand config path: %w", err)
		}
		v.SetConfigFile(expanded)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", expanded, err)
		}
		return nil
	}

	v.SetConfigType("yaml")
	v.SetConfigName("cardform")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err == nil {
		return nil
	} else if !errors.As(err, new(viper.ConfigFileNotFoundError)) {
		return fmt.Errorf("read config: %w", err)
	}

	home, err := homedir.Dir()
	if err != nil {
		return nil
	}
	v.SetConfigName(".cardform")
	v.AddConfigPath(home)
	if err := v.ReadInConfig(); err != nil && !errors.As(err, new(viper.ConfigFileNotFoundError)) {
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func (c *Config) expandPaths() error {
	for _, p := range []*string{&c.Logger.LogFile, &c.Resolver.CatalogDir} {
		if *p == "" {
			continue
		}
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("expand path %q: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	var errs []error
	switch c.Resolver.Kind {
	case ResolverCatalog:
	case ResolverHTTP:
		if c.Resolver.BaseURL == "" {
			errs = append(errs, errors.New("resolver.base_url is required for the http resolver"))
		}
		if c.Resolver.Timeout <= 0 {
			errs = append(errs, errors.New("resolver.timeout must be positive"))
		}
	default:
		errs = append(errs, fmt.Errorf("resolver.kind %q is not one of %s, %s", c.Resolver.Kind, ResolverCatalog, ResolverHTTP))
	}
	if c.Classifier.MinDigits < 1 {
		errs = append(errs, errors.New("classifier.min_digits must be a positive integer"))
	}
	if c.Form.MaxAttempts < 1 {
		errs = append(errs, errors.New("form.max_attempts must be a positive integer"))
	}
	if strings.TrimSpace(c.Form.CardNumberField) == "" {
		errs = append(errs, errors.New("form.card_number_field is required"))
	}
	switch c.Logger.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("logger.format %q is not one of console, json", c.Logger.Format))
	}
	return errors.Join(errs...)
}
