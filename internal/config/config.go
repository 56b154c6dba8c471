// Package config loads oascov settings from oascov.toml, OASCOV_* environment variables and flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the typed view of every setting
type Config struct {
	Engine    EngineConfig    `mapstructure:"engine"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Generator GeneratorConfig `mapstructure:"generator"`
	Store     StoreConfig     `mapstructure:"store"`
	Events    EventsConfig    `mapstructure:"events"`
	Parser    ParserConfig    `mapstructure:"parser"`
}

type EngineConfig struct {
	Timeout          time.Duration     `mapstructure:"timeout"`
	Concurrency      int               `mapstructure:"concurrency"`
	RateLimit        float64           `mapstructure:"rate_limit"`
	DisableKeepAlive bool              `mapstructure:"disable_keepalive"`
	SaveBodies       bool              `mapstructure:"save_bodies"`
	ValidateSchemas  bool              `mapstructure:"validate_schemas"`
	Headers          map[string]string `mapstructure:"headers"`
}

// AuthConfig holds a static bearer token or OAuth2 client-credentials settings
type AuthConfig struct {
	Token        string   `mapstructure:"token"`
	ClientID     string   `mapstructure:"client_id"`
	ClientSecret string   `mapstructure:"client_secret"`
	TokenURL     string   `mapstructure:"token_url"`
	Scopes       []string `mapstructure:"scopes"`
}

type GeneratorConfig struct {
	Seed                int64   `mapstructure:"seed"`
	StringCap           int     `mapstructure:"string_cap"`
	ArrayCap            int     `mapstructure:"array_cap"`
	OptionalProbability float64 `mapstructure:"optional_probability"`
	MaxDepth            int     `mapstructure:"max_depth"`
}

// StoreConfig selects the persistence backend. An empty driver disables persistence.
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
	URL    string `mapstructure:"url"`
}

type EventsConfig struct {
	AMQPURL  string `mapstructure:"amqp_url"`
	Exchange string `mapstructure:"exchange"`
}

type ParserConfig struct {
	SkipValidation bool `mapstructure:"skip_validation"`
}

// Store drivers
const (
	DriverSQLite = "sqlite3"
	DriverMySQL  = "mysql"
	DriverHTTP   = "http"
)

// SetDefaults registers the default of every setting
func SetDefaults(v *viper.Viper) {
	v.SetDefault("engine.timeout", 10*time.Second)
	v.SetDefault("engine.concurrency", 0)
	v.SetDefault("engine.rate_limit", 0.0)
	v.SetDefault("engine.disable_keepalive", false)
	v.SetDefault("engine.save_bodies", false)
	v.SetDefault("engine.validate_schemas", true)
	v.SetDefault("engine.headers", map[string]string{})

	v.SetDefault("auth.token", "")
	v.SetDefault("auth.client_id", "")
	v.SetDefault("auth.client_secret", "")
	v.SetDefault("auth.token_url", "")
	v.SetDefault("auth.scopes", []string{})

	v.SetDefault("generator.seed", 0)
	v.SetDefault("generator.string_cap", 10)
	v.SetDefault("generator.array_cap", 5)
	v.SetDefault("generator.optional_probability", 0.5)
	v.SetDefault("generator.max_depth", 32)

	v.SetDefault("store.driver", "")
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.url", "")

	v.SetDefault("events.amqp_url", "")
	v.SetDefault("events.exchange", "oascov.events")

	v.SetDefault("parser.skip_validation", false)
}

// New returns a viper instance with defaults, the OASCOV_ environment prefix and the config search path.
// An empty file searches for oascov.toml in . and $HOME/.config/oascov.
func New(file string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix("OASCOV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		return v
	}
	v.SetConfigName("oascov")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "oascov"))
	}
	return v
}

// Read loads the config file. A missing file is not an error unless it was named explicitly.
func Read(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// Load decodes the settings into a Config
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that cannot be used as given
func (c *Config) Validate() error {
	if c.Engine.Timeout <= 0 {
		return fmt.Errorf("engine.timeout must be positive, got %s", c.Engine.Timeout)
	}
	if c.Engine.Concurrency < 0 {
		return fmt.Errorf("engine.concurrency must not be negative, got %d", c.Engine.Concurrency)
	}
	if p := c.Generator.OptionalProbability; p < 0 || p > 1 {
		return fmt.Errorf("generator.optional_probability must be within [0, 1], got %g", p)
	}
	switch c.Store.Driver {
	case "", DriverSQLite, DriverMySQL:
	case DriverHTTP:
		if c.Store.URL == "" {
			return errors.New("store.url is required for the http driver")
		}
	default:
		return fmt.Errorf("unsupported store driver %q", c.Store.Driver)
	}
	if c.Auth.ClientID != "" && c.Auth.TokenURL == "" {
		return errors.New("auth.token_url is required with auth.client_id")
	}
	return nil
}
