package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/conduit-lang/docmeta/compiler"
	"github.com/conduit-lang/docmeta/internal/build"
	"github.com/conduit-lang/docmeta/internal/logging"
	"github.com/conduit-lang/docmeta/internal/store"
)

// FileName is the configuration file name without extension
const FileName = "docmeta"

// EnvPrefix prefixes environment overrides, e.g. DOCMETA_WORKERS
const EnvPrefix = "DOCMETA"

// Config represents the docmeta configuration
type Config struct {
	SourceDir   string       `mapstructure:"source_dir" yaml:"source_dir"`
	Include     []string     `mapstructure:"include" yaml:"include"`
	Exclude     []string     `mapstructure:"exclude" yaml:"exclude"`
	OutputDir   string       `mapstructure:"output_dir" yaml:"output_dir"`
	Workers     int          `mapstructure:"workers" yaml:"workers"`
	FrontMatter bool         `mapstructure:"front_matter" yaml:"front_matter"`
	GuidesRoot  string       `mapstructure:"guides_root" yaml:"guides_root"`
	Log         LogConfig    `mapstructure:"log" yaml:"log"`
	Store       StoreConfig  `mapstructure:"store" yaml:"store"`
	Redis       RedisConfig  `mapstructure:"redis" yaml:"redis"`
	Server      ServerConfig `mapstructure:"server" yaml:"server"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// StoreConfig represents SQL store configuration
type StoreConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver"`
	DSN    string `mapstructure:"dsn" yaml:"dsn"`
}

// RedisConfig represents Redis store configuration
type RedisConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Password string `mapstructure:"password" yaml:"password,omitempty"`
	DB       int    `mapstructure:"db" yaml:"db"`
	Prefix   string `mapstructure:"prefix" yaml:"prefix"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
}

// Default returns the configuration used when no file is present
func Default() *Config {
	return &Config{
		SourceDir:   "docs",
		Include:     []string{"**/*.md"},
		Exclude:     []string{"node_modules/**"},
		OutputDir:   "build/metadata",
		Workers:     runtime.NumCPU(),
		FrontMatter: true,
		GuidesRoot:  "guides",
		Log:         LogConfig{Level: "info", Format: logging.FormatDev},
		Redis:       RedisConfig{Prefix: store.DefaultRedisPrefix},
		Server:      ServerConfig{Host: "localhost", Port: 4600},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("source_dir", d.SourceDir)
	v.SetDefault("include", d.Include)
	v.SetDefault("exclude", d.Exclude)
	v.SetDefault("output_dir", d.OutputDir)
	v.SetDefault("workers", d.Workers)
	v.SetDefault("front_matter", d.FrontMatter)
	v.SetDefault("guides_root", d.GuidesRoot)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("store.driver", "")
	v.SetDefault("store.dsn", "")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", d.Redis.Prefix)
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
}

// Load loads docmeta.yml or docmeta.yaml from the current directory
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile loads the configuration from path, or searches the current
// directory when path is empty. A missing file yields the defaults.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate validates the configuration
func Validate(cfg *Config) error {
	if cfg.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got: %d", cfg.Workers)
	}
	if strings.TrimSpace(cfg.GuidesRoot) == "" {
		return fmt.Errorf("guides_root must not be empty")
	}
	if cfg.Store.Driver != "" {
		if _, err := store.DialectFor(cfg.Store.Driver); err != nil {
			return fmt.Errorf("store.driver: %w", err)
		}
		if cfg.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required when store.driver is set")
		}
	}
	if _, err := logging.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if cfg.Log.Format != logging.FormatDev && cfg.Log.Format != logging.FormatJSON {
		return fmt.Errorf("log.format must be %q or %q, got: %s", logging.FormatDev, logging.FormatJSON, cfg.Log.Format)
	}
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", cfg.Server.Port)
	}
	return nil
}

// BuildOptions converts the configuration for the builder
func (c *Config) BuildOptions() build.Options {
	opts := build.DefaultOptions()
	opts.SourceDir = c.SourceDir
	opts.Include = c.Include
	opts.Exclude = c.Exclude
	opts.Workers = c.Workers
	opts.Compiler = compiler.Options{FrontMatter: c.FrontMatter, GuidesRoot: c.GuidesRoot}
	return opts
}

// StoreConfig converts the configuration for store.Open
func (c *Config) StoreConfig() store.Config {
	return store.Config{
		Driver: c.Store.Driver,
		DSN:    c.Store.DSN,
		Redis: store.RedisConfig{
			Addr:     c.Redis.Addr,
			Password: c.Redis.Password,
			DB:       c.Redis.DB,
			Prefix:   c.Redis.Prefix,
		},
	}
}

// ServerAddress returns host:port
func (c *Config) ServerAddress() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// Write saves the configuration as YAML
func Write(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// Exists reports whether a docmeta.yml or docmeta.yaml is present in dir
func Exists(dir string) bool {
	for _, ext := range []string{".yml", ".yaml"} {
		if _, err := os.Stat(filepath.Join(dir, FileName+ext)); err == nil {
			return true
		}
	}
	return false
}

// GetProjectRoot walks up from the working directory to the first
// directory holding a docmeta configuration file
func GetProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not in a docmeta project (no %s.yml found)", FileName)
		}
		dir = parent
	}
}
