package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/jcdickinson/docnet/internal/render"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type ResolveConfig struct {
	// Workers caps resolver goroutines; 0 means GOMAXPROCS.
	Workers int `mapstructure:"workers"`
}

type RenderConfig struct {
	OutputField  render.OutputField `mapstructure:"output_field"`
	Format       string             `mapstructure:"format"`
	HeadingLevel int                `mapstructure:"heading_level"`
}

// Options converts the render settings for the renderer.
func (c RenderConfig) Options() render.Options {
	return render.Options{Field: c.OutputField, HeadingLevel: c.HeadingLevel}
}

// Ext is the page file extension for the configured format.
func (c RenderConfig) Ext() string {
	if c.Format == "html" {
		return "html"
	}
	return "md"
}

type IndexConfig struct {
	StoreUnresolved bool `mapstructure:"store_unresolved"`
}

type DaemonConfig struct {
	ExpirationSeconds int `mapstructure:"expiration_seconds"`
}

type Config struct {
	Resolve ResolveConfig `mapstructure:"resolve"`
	Render  RenderConfig  `mapstructure:"render"`
	Index   IndexConfig   `mapstructure:"index"`
	Daemon  DaemonConfig  `mapstructure:"daemon"`
}

// cacheBase returns the base cache directory for docnet.
// Checks XDG_CACHE_HOME, then ~/.cache, then /tmp/docnet as fallback.
func cacheBase() string {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, "docnet")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".cache", "docnet")
	}
	return filepath.Join(os.TempDir(), "docnet")
}

// DBPath returns the path to the DuckDB database file.
func DBPath() string {
	return filepath.Join(cacheBase(), "db.duckdb")
}

// CASDir returns the path to the content-addressable storage directory.
func CASDir() string {
	return filepath.Join(cacheBase(), "cas")
}

// ManifestDir returns the directory holding cached member manifests.
func ManifestDir() string {
	return filepath.Join(cacheBase(), "manifests")
}

// LogPath returns the path to the daemon's log file.
func LogPath() string {
	return filepath.Join(cacheBase(), "daemon.log")
}

// SocketPath returns the path to the daemon's unix socket.
func SocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "docnet", "daemon.sock")
	}
	return filepath.Join(fmt.Sprintf("/run/user/%d", os.Getuid()), "docnet", "daemon.sock")
}

func InitializeViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("toml")

	viper.AddConfigPath(".")
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		viper.AddConfigPath(filepath.Join(xdg, "docnet"))
	} else if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(filepath.Join(home, ".config", "docnet"))
	}

	viper.SetDefault("resolve.workers", 0)
	viper.SetDefault("render.output_field", render.Preformatted.String())
	viper.SetDefault("render.format", "markdown")
	viper.SetDefault("render.heading_level", 1)
	viper.SetDefault("index.store_unresolved", true)
	viper.SetDefault("daemon.expiration_seconds", 600)

	viper.SetEnvPrefix("DOCNET")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return nil
}

func stringToOutputFieldHookFunc() mapstructure.DecodeHookFunc {
	return func(f, t reflect.Type, data interface{}) (interface{}, error) {
		if t != reflect.TypeOf(render.OutputField(0)) || f.Kind() != reflect.String {
			return data, nil
		}
		return render.ParseOutputField(data.(string))
	}
}

func Load() (*Config, error) {
	if err := InitializeViper(); err != nil {
		return nil, err
	}

	var config Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       stringToOutputFieldHookFunc(),
		WeaklyTypedInput: true,
		Result:           &config,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(viper.AllSettings()); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) validate() error {
	if c.Resolve.Workers < 0 {
		return fmt.Errorf("resolve.workers must not be negative, got %d", c.Resolve.Workers)
	}
	switch c.Render.Format {
	case "markdown", "html":
	default:
		return fmt.Errorf("render.format must be markdown or html, got %q", c.Render.Format)
	}
	return nil
}
