// Package config loads the nn command line configuration from defaults,
// NN_ environment variables and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/viant/nearest/errs"
	"github.com/viant/nearest/vector"
)

// Backend names accepted by the backend key.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
)

// Config is the nn tool configuration.
type Config struct {
	Metric   string `mapstructure:"metric"`
	Index    string `mapstructure:"index"`
	Backend  string `mapstructure:"backend"`
	Name     string `mapstructure:"name"`
	K        int    `mapstructure:"k"`
	LogLevel string `mapstructure:"log_level"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("metric", vector.CosineName)
	v.SetDefault("index", "index.nn")
	v.SetDefault("backend", BackendFile)
	v.SetDefault("name", "default")
	v.SetDefault("k", 10)
	v.SetDefault("log_level", "info")
}

// SetupEnv binds NN_ prefixed environment variables.
func SetupEnv(v *viper.Viper) {
	v.SetEnvPrefix("NN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}

// SearchPaths are the directories searched for nn.yaml when no config file
// is named explicitly.
var SearchPaths = []string{".", "$HOME/.config/nn"}

// Read registers defaults and NN_ environment bindings on v, then reads path
// or, when path is empty, the first nn.yaml found in SearchPaths. A missing
// nn.yaml is fine; a missing explicit path is a configuration error.
func Read(v *viper.Viper, path string) error {
	SetDefaults(v)
	SetupEnv(v)
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return errs.Wrap(err, errs.CodeConfigInvalid, "config: reading "+path, errs.FieldPath(path))
		}
		return nil
	}
	v.SetConfigName("nn")
	for _, dir := range SearchPaths {
		v.AddConfigPath(dir)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return errs.Wrap(err, errs.CodeConfigInvalid, "config: reading nn.yaml")
		}
	}
	return nil
}

// FromViper decodes and validates the configuration held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errs.Wrap(err, errs.CodeConfigInvalid, "config: unmarshalling")
	}
	if problems := cfg.Validate(); len(problems) > 0 {
		return nil, errs.Wrap(errors.Join(problems...), errs.CodeConfigInvalid, "config: validating")
	}
	return &cfg, nil
}

// Validate checks every key and returns all problems found.
func (c *Config) Validate() []error {
	var problems []error

	if _, err := vector.ParseMetric(c.Metric); err != nil {
		problems = append(problems, err)
	}
	switch c.Backend {
	case BackendFile, BackendSQLite, BackendBadger:
	default:
		problems = append(problems, invalid("backend", c.Backend,
			fmt.Sprintf("must be one of [%s, %s, %s]", BackendFile, BackendSQLite, BackendBadger)))
	}
	if c.Index == "" {
		problems = append(problems, invalid("index", c.Index, "must not be empty"))
	}
	if c.Name == "" || strings.Contains(c.Name, "/") {
		problems = append(problems, invalid("name", c.Name, "must be non-empty and must not contain '/'"))
	}
	if c.K < 0 {
		problems = append(problems, invalid("k", c.K, "must not be negative"))
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		problems = append(problems, invalid("log_level", c.LogLevel, err.Error()))
	}

	return problems
}

// Level returns the parsed log level, info when unset.
func (c *Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

func invalid(key string, value any, reason string) error {
	return errs.New(errs.CodeConfigInvalid, fmt.Sprintf("config: %s %s, got %v", key, reason, value),
		errs.Field("key", key), errs.Field("value", value))
}
