// Package config loads and validates the drawfsd daemon's configuration,
// layering environment variables over a YAML file over built-in defaults,
// in that order of decreasing precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/drawfs/drawfs/internal/bytesize"
)

// Config is the drawfsd daemon's static configuration.
//
// Configuration sources, in order of precedence:
//  1. Environment variables (DRAWFS_*)
//  2. Configuration file (YAML)
//  3. Default values
type Config struct {
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// SocketPath is the Unix domain socket the device facade listens on.
	SocketPath string `mapstructure:"socket_path" validate:"required" yaml:"socket_path"`

	// ShutdownTimeout bounds how long the daemon waits for open sessions to
	// drain during graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`

	// Displays enumerates the virtual displays sessions can open. At least
	// one display, with id 1, is required.
	Displays []DisplayConfig `mapstructure:"displays" validate:"required,min=1,dive" yaml:"displays"`

	// Session bounds the resources a single session may consume.
	Session SessionConfig `mapstructure:"session" yaml:"session"`

	// Metrics contains Prometheus metrics server configuration.
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// Admin contains the side-channel admin/introspection HTTP server
	// configuration (session listing, STATS by session id).
	Admin AdminConfig `mapstructure:"admin" yaml:"admin"`
}

// LoggingConfig controls log output behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"omitempty,oneof=DEBUG INFO WARN ERROR" yaml:"level"`
	Format string `mapstructure:"format" validate:"omitempty,oneof=text json" yaml:"format"`
	Output string `mapstructure:"output" yaml:"output"`
}

// DisplayConfig describes one virtual display exposed through DISPLAY_LIST.
type DisplayConfig struct {
	ID         uint32 `mapstructure:"id" validate:"required" yaml:"id"`
	Width      uint32 `mapstructure:"width" validate:"required" yaml:"width"`
	Height     uint32 `mapstructure:"height" validate:"required" yaml:"height"`
	RefreshMHz uint32 `mapstructure:"refresh_mhz" validate:"required" yaml:"refresh_mhz"`
}

// SessionConfig bounds a single session's resource consumption.
type SessionConfig struct {
	MaxSurfaces     int               `mapstructure:"max_surfaces" validate:"gt=0" yaml:"max_surfaces"`
	MaxSurfaceBytes bytesize.ByteSize `mapstructure:"max_surface_bytes" validate:"gt=0" yaml:"max_surface_bytes"`
	MaxOutqDepth    int               `mapstructure:"max_outq_depth" validate:"gt=0" yaml:"max_outq_depth"`
	MaxOutqBytes    bytesize.ByteSize `mapstructure:"max_outq_bytes" validate:"gt=0" yaml:"max_outq_bytes"`
	MaxInbufBytes   bytesize.ByteSize `mapstructure:"max_inbuf_bytes" validate:"gt=0" yaml:"max_inbuf_bytes"`
}

// MetricsConfig controls the Prometheus metrics HTTP endpoint.
type MetricsConfig struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled"`
	BindAddress string `mapstructure:"bind_address" yaml:"bind_address"`
}

// AdminConfig controls the side-channel admin/introspection HTTP endpoint.
type AdminConfig struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled"`
	BindAddress string `mapstructure:"bind_address" yaml:"bind_address"`
}

// Load loads configuration from file, environment, and defaults, then
// validates the result.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if found {
		if err := v.Unmarshal(cfg, viper.DecodeHook(byteSizeDecodeHook())); err != nil {
			return nil, fmt.Errorf("config: unmarshal: %w", err)
		}
	}
	applyEnvOverrides(v, cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	return cfg, nil
}

// Validate runs struct-tag validation over cfg.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return err
	}
	for _, d := range cfg.Displays {
		if d.ID == 1 {
			return nil
		}
	}
	return fmt.Errorf("config: displays must include id 1")
}

// SaveConfig writes cfg to path as YAML, creating parent directories as needed.
func SaveConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write file: %w", err)
	}
	return nil
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("DRAWFS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}
	v.AddConfigPath(defaultConfigDir())
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok || os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("config: read file: %w", err)
	}
	return true, nil
}

// applyEnvOverrides lets a handful of frequently-overridden settings come
// from the environment even when no config file is present, matching the
// precedence order documented on Config.
func applyEnvOverrides(v *viper.Viper, cfg *Config) {
	if v.IsSet("socket_path") {
		cfg.SocketPath = v.GetString("socket_path")
	}
	if v.IsSet("logging.level") {
		cfg.Logging.Level = v.GetString("logging.level")
	}
	if v.IsSet("logging.format") {
		cfg.Logging.Format = v.GetString("logging.format")
	}
	if v.IsSet("metrics.enabled") {
		cfg.Metrics.Enabled = v.GetBool("metrics.enabled")
	}
}

// GetDefaultConfigPath returns the path Load falls back to when no
// explicit config file path is given.
func GetDefaultConfigPath() string {
	return filepath.Join(defaultConfigDir(), "config.yaml")
}

// DefaultConfigExists reports whether a config file already exists at the
// default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

func defaultConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "drawfs")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "drawfs")
}

// byteSizeDecodeHook lets bytesize.ByteSize fields be written as human
// strings ("64Mi") in YAML/env while decoding cleanly through mapstructure.
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return bytesize.ParseByteSize(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}
