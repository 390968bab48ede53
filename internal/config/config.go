// Package config loads the gitignore-maintainer configuration file and the
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// RelativePaths are the locations of the configuration file below the XDG
// config directories, in search order
var RelativePaths = []string{
	"gitignore-maintainer/config.yaml",
	"gitignore-maintainer/config.yml",
	"gitignore-maintainer/config.toml",
}

// Providers
const (
	ProviderRepository = "repository"
	ProviderAPI        = "api"
)

// Cache backends
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Environment variables
const (
	EnvAuthorization = "GITHUB_AUTHORIZATION"
	EnvToken         = "GITHUB_TOKEN"
)

// DefaultCacheExpiration is the lifetime of a cached template listing in
// seconds
const DefaultCacheExpiration = 3600

// Config holds the settings of one run
type Config struct {
	Provider string      `yaml:"provider" toml:"provider"`
	Cache    CacheConfig `yaml:"cache" toml:"cache"`
	HTTP     HTTPConfig  `yaml:"http" toml:"http"`

	// Authorization is sent verbatim as the Authorization header until the
	// user signs in
	Authorization string `yaml:"-" toml:"-"`
	// Token is a personal access token used instead of prompting
	Token string `yaml:"-" toml:"-"`

	// Path of the loaded file, empty when running on defaults
	Path string `yaml:"-" toml:"-"`
}

// CacheConfig configures the template listing cache
type CacheConfig struct {
	Backend string `yaml:"backend" toml:"backend"`
	// Expiration in seconds, 0 disables caching
	Expiration int `yaml:"expiration" toml:"expiration"`
}

// HTTPConfig configures the connection to GitHub
type HTTPConfig struct {
	Proxy     string `yaml:"proxy" toml:"proxy"`
	UserAgent string `yaml:"userAgent" toml:"userAgent"`
	BaseURL   string `yaml:"baseURL" toml:"baseURL"`
	// Timeout in seconds, 0 keeps the client default
	Timeout int `yaml:"timeout" toml:"timeout"`
}

// Default returns the configuration used without a file
func Default() *Config {
	return &Config{
		Provider: ProviderRepository,
		Cache: CacheConfig{
			Backend:    BackendMemory,
			Expiration: DefaultCacheExpiration,
		},
	}
}

// Load reads the configuration at path, or searches the XDG config
// directories when path is empty. A missing file found by searching is not
// an error. Environment overrides are applied afterwards.
func Load(path string) (*Config, error) {
	if path == "" {
		path = search()
	}
	if path == "" {
		config := Default()
		config.applyEnv(os.Getenv)
		return config, config.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	parse := Parse
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		parse = ParseTOML
	}

	config, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	config.Path = path

	config.applyEnv(os.Getenv)
	return config, config.Validate()
}

func search() string {
	for _, rel := range RelativePaths {
		if found, err := xdg.SearchConfigFile(rel); err == nil {
			return found
		}
	}
	return ""
}

// Parse decodes YAML on top of the defaults
func Parse(data []byte) (*Config, error) {
	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, err
	}
	return config, nil
}

// ParseTOML decodes TOML on top of the defaults
func ParseTOML(data []byte) (*Config, error) {
	config := Default()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv(EnvAuthorization); v != "" {
		c.Authorization = v
	}
	if v := getenv(EnvToken); v != "" {
		c.Token = v
	}
}

// Validate checks the enumerations and ranges
func (c *Config) Validate() error {
	var errs []error

	switch c.Provider {
	case ProviderRepository, ProviderAPI:
	default:
		errs = append(errs, fmt.Errorf("unknown provider %q: expected %s or %s", c.Provider, ProviderRepository, ProviderAPI))
	}

	switch c.Cache.Backend {
	case BackendMemory, BackendSQLite:
	default:
		errs = append(errs, fmt.Errorf("unknown cache backend %q: expected %s or %s", c.Cache.Backend, BackendMemory, BackendSQLite))
	}

	if c.Cache.Expiration < 0 {
		errs = append(errs, fmt.Errorf("cache expiration must not be negative, got %d", c.Cache.Expiration))
	}
	if c.HTTP.Timeout < 0 {
		errs = append(errs, fmt.Errorf("http timeout must not be negative, got %d", c.HTTP.Timeout))
	}

	return errors.Join(errs...)
}

// CacheExpiration returns the listing lifetime
func (c *Config) CacheExpiration() time.Duration {
	return time.Duration(c.Cache.Expiration) * time.Second
}

// HTTPTimeout returns the request timeout, 0 for the client default
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTP.Timeout) * time.Second
}
