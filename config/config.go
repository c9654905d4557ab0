// Package config loads CLI configuration from an optional YAML file and
// PLUGINVERIFIER_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/git-pkgs/pluginverifier/classfile"
	"github.com/git-pkgs/pluginverifier/version"
)

// EnvPrefix prefixes every environment override, e.g. PLUGINVERIFIER_LOG_LEVEL.
const EnvPrefix = "PLUGINVERIFIER"

// Config holds all application configuration.
type Config struct {
	Log          LogConfig          `mapstructure:"log" yaml:"log"`
	ReadMode     string             `mapstructure:"read_mode" yaml:"read_mode"`
	Cache        CacheConfig        `mapstructure:"cache" yaml:"cache"`
	HTTP         HTTPConfig         `mapstructure:"http" yaml:"http"`
	Repositories []RepositoryConfig `mapstructure:"repositories" yaml:"repositories"`
	JDK          JDKConfig          `mapstructure:"jdk" yaml:"jdk"`
	IDE          IDEConfig          `mapstructure:"ide" yaml:"ide"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

type CacheConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

type HTTPConfig struct {
	Timeout    time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxRetries int           `mapstructure:"max_retries" yaml:"max_retries"`
	UserAgent  string        `mapstructure:"user_agent" yaml:"user_agent"`
	// RateLimit is requests per second; 0 disables limiting.
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit"`
}

// RepositoryConfig names a repository kind and its base URL. An empty URL
// selects the kind's default.
type RepositoryConfig struct {
	Kind string `mapstructure:"kind" yaml:"kind"`
	URL  string `mapstructure:"url" yaml:"url"`
}

type JDKConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

type IDEConfig struct {
	Path    string `mapstructure:"path" yaml:"path"`
	Version string `mapstructure:"version" yaml:"version"`
}

// DefaultCacheDir is the download cache under the user cache directory.
func DefaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "pluginverifier")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("read_mode", "signatures")
	v.SetDefault("cache.dir", DefaultCacheDir())
	v.SetDefault("http.timeout", 30*time.Second)
	v.SetDefault("http.max_retries", 5)
	v.SetDefault("http.user_agent", "pluginverifier/1.0")
	v.SetDefault("http.rate_limit", 0)
	v.SetDefault("repositories", []map[string]any{{"kind": "marketplace"}})
	v.SetDefault("jdk.path", os.Getenv("JAVA_HOME"))
	v.SetDefault("ide.path", "")
	v.SetDefault("ide.version", "")
}

// Load reads configuration from path, if not empty, and the environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the CLI cannot act on.
func (c *Config) Validate() error {
	var err error
	if _, e := classfile.ParseReadMode(c.ReadMode); e != nil {
		err = multierr.Append(err, e)
	}
	switch c.Log.Format {
	case "", "console", "json":
	default:
		err = multierr.Append(err, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	if c.IDE.Version != "" {
		if _, e := version.Parse(c.IDE.Version); e != nil {
			err = multierr.Append(err, fmt.Errorf("ide.version: %w", e))
		}
	}
	if c.HTTP.MaxRetries < 0 {
		err = multierr.Append(err, fmt.Errorf("http.max_retries %d is negative", c.HTTP.MaxRetries))
	}
	if c.HTTP.RateLimit < 0 {
		err = multierr.Append(err, fmt.Errorf("http.rate_limit %v is negative", c.HTTP.RateLimit))
	}
	for i, r := range c.Repositories {
		if r.Kind == "" {
			err = multierr.Append(err, fmt.Errorf("repositories[%d]: kind is required", i))
		}
	}
	return err
}

// Mode returns the parsed read mode.
func (c *Config) Mode() classfile.ReadMode {
	m, err := classfile.ParseReadMode(c.ReadMode)
	if err != nil {
		return classfile.Signatures
	}
	return m
}

// IDEVersion returns the configured host version override, or nil.
func (c *Config) IDEVersion() (version.Version, error) {
	if c.IDE.Version == "" {
		return nil, nil
	}
	v, err := version.Parse(c.IDE.Version)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// ErrNoJDK is returned when neither jdk.path nor JAVA_HOME is set.
var ErrNoJDK = errors.New("no JDK configured: set jdk.path or JAVA_HOME")

// JDKPath returns the configured JDK home.
func (c *Config) JDKPath() (string, error) {
	if c.JDK.Path == "" {
		return "", ErrNoJDK
	}
	return c.JDK.Path, nil
}

// Dump renders the effective configuration as YAML.
func (c *Config) Dump() ([]byte, error) {
	return yaml.Marshal(c)
}
