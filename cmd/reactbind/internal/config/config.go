// Package config loads reactbind.yaml and environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/viper"
	"golang.org/x/mod/modfile"
	"golang.org/x/mod/module"
	"gopkg.in/yaml.v3"

	"github.com/go-drift/reactbind/cmd/reactbind/internal/tracing"
	"github.com/go-drift/reactbind/internal/log"
)

// FileName is the config file looked up in the project root.
const FileName = "reactbind.yaml"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "REACTBIND_"

// Config represents reactbind.yaml.
type Config struct {
	Debug   bool `mapstructure:"debug" yaml:"debug" env:"DEBUG"`
	Verbose bool `mapstructure:"verbose" yaml:"verbose" env:"VERBOSE"`

	// Scenarios lists glob patterns used when run or check get no files.
	Scenarios []string `mapstructure:"scenarios" yaml:"scenarios" env:"SCENARIOS"`

	Log     LogConfig      `mapstructure:"log" yaml:"log" envPrefix:"LOG_"`
	Watch   WatchConfig    `mapstructure:"watch" yaml:"watch" envPrefix:"WATCH_"`
	Tracing tracing.Config `mapstructure:"tracing" yaml:"tracing" envPrefix:"TRACING_"`
}

// LogConfig controls the debug log.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level" env:"LEVEL"`
	// File receives log output. Empty disables logging unless Debug is set,
	// in which case logs go to stderr.
	File string `mapstructure:"file" yaml:"file,omitempty" env:"FILE"`
}

// WatchConfig controls run --watch.
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce" env:"DEBOUNCE"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Scenarios: []string{"scenarios/*.yaml"},
		Log:       LogConfig{Level: "warn"},
		Watch:     WatchConfig{Debounce: 200 * time.Millisecond},
		Tracing:   tracing.DefaultConfig(),
	}
}

// Load resolves the configuration. An explicit path must exist; otherwise
// reactbind.yaml is looked up in dir and the enclosing Go module root, and
// a missing file leaves the defaults in place. Environment variables
// prefixed with REACTBIND_ override file values.
func Load(v *viper.Viper, path, dir string) (Config, error) {
	setDefaults(v, Defaults())

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(strings.TrimSuffix(FileName, filepath.Ext(FileName)))
		v.SetConfigType("yaml")
		v.AddConfigPath(dir)
		if root, err := FindProjectRoot(dir); err == nil && root != dir {
			v.AddConfigPath(root)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
		log.Debug(log.CatConfig, "no config file, using defaults", "dir", dir)
	} else {
		log.Debug(log.CatConfig, "config loaded", "file", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("debug", d.Debug)
	v.SetDefault("verbose", d.Verbose)
	v.SetDefault("scenarios", d.Scenarios)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("watch.debounce", d.Watch.Debounce)
	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.exporter", d.Tracing.Exporter)
	v.SetDefault("tracing.otlp_endpoint", d.Tracing.OTLPEndpoint)
	v.SetDefault("tracing.sample_rate", d.Tracing.SampleRate)
	v.SetDefault("tracing.service_name", d.Tracing.ServiceName)
}

// Validate checks field values.
func (c Config) Validate() error {
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative (got %s)", c.Watch.Debounce)
	}
	if err := c.Tracing.Validate(); err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	for _, pattern := range c.Scenarios {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return fmt.Errorf("scenarios: bad pattern %q: %w", pattern, err)
		}
	}
	return nil
}

// LogLevel returns the configured level, forced to debug when Debug is set.
func (c Config) LogLevel() log.Level {
	if c.Debug {
		return log.LevelDebug
	}
	level, _ := log.ParseLevel(c.Log.Level)
	return level
}

// WriteDefault writes the default configuration to path. It refuses to
// overwrite an existing file.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	data, err := yaml.Marshal(Defaults())
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Project describes the Go module reactbind runs in.
type Project struct {
	Root       string
	ModulePath string
	Name       string
}

// ResolveProject finds the module enclosing dir.
func ResolveProject(dir string) (*Project, error) {
	root, err := FindProjectRoot(dir)
	if err != nil {
		return nil, err
	}
	path, err := modulePath(root)
	if err != nil {
		return nil, err
	}
	return &Project{Root: root, ModulePath: path, Name: projectName(path, root)}, nil
}

// FindProjectRoot walks up from dir to find go.mod.
func FindProjectRoot(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not in a Go module (no go.mod found)")
		}
		dir = parent
	}
}

func modulePath(dir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, "go.mod"))
	if err != nil {
		return "", fmt.Errorf("failed to read go.mod: %w", err)
	}
	path := modfile.ModulePath(data)
	if path == "" {
		return "", fmt.Errorf("could not determine module path from go.mod")
	}
	return path, nil
}

// projectName is the last element of the module path without its major
// version suffix.
func projectName(modulePath, dir string) string {
	name := filepath.Base(dir)
	if prefix, _, ok := module.SplitPathVersion(modulePath); ok {
		if i := strings.LastIndex(prefix, "/"); i >= 0 {
			name = prefix[i+1:]
		} else if prefix != "" {
			name = prefix
		}
	}
	return name
}
