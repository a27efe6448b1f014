package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/zettel/internal/apperr"
	"github.com/starford/zettel/internal/identity"
	"github.com/starford/zettel/internal/index"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
//
// WikiLocation and DateFormat accept the flat keys of the legacy TOML
// config file. When set they override Wiki.Path and select timestamp
// identities with the strftime DateFormat.
type Config struct {
	App      ApplicationConfig `yaml:"app" toml:"app"`
	Wiki     WikiConfig        `yaml:"wiki" toml:"wiki"`
	SQLite   SQLiteConfig      `yaml:"sqlite" toml:"sqlite"`
	Identity IdentityConfig    `yaml:"identity" toml:"identity"`
	Watch    WatchConfig       `yaml:"watch" toml:"watch"`
	Index    IndexConfig       `yaml:"index" toml:"index"`
	Auth     AuthConfig        `yaml:"auth" toml:"auth"`

	WikiLocation string `yaml:"-" toml:"wiki-location"`
	DateFormat   string `yaml:"-" toml:"zettel-dateformat"`
}

// Validate validates the configuration. Every failure wraps
// apperr.ErrConfiguration.
func (c *Config) Validate() error {
	if c.WikiLocation != "" {
		c.Wiki.Path = c.WikiLocation
	}
	if c.DateFormat != "" {
		c.Identity.Scheme = identity.SchemeTimestamp
		c.Identity.TimestampFormat = identity.LayoutFromStrftime(c.DateFormat)
	}

	for _, v := range []validation.Validatable{&c.App, &c.Wiki, &c.SQLite, &c.Identity, &c.Watch, &c.Index, &c.Auth} {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("%w: %w", apperr.ErrConfiguration, err)
		}
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level" toml:"log_level"`
	HTTP     HTTPConfig `yaml:"http" toml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port" toml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// WikiConfig holds the path to the markdown wiki directory.
type WikiConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// Validate validates the wiki configuration.
func (c *WikiConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SQLiteConfig holds SQLite database configuration.
// Timeout bounds one-shot commands; zero means no limit.
type SQLiteConfig struct {
	Path    string        `yaml:"path" toml:"path"`
	Timeout time.Duration `yaml:"timeout" toml:"timeout"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

// IdentityConfig selects how new notes are given identities.
type IdentityConfig struct {
	Scheme          string `yaml:"scheme" toml:"scheme"`
	TimestampFormat string `yaml:"timestamp_format" toml:"timestamp_format"`
}

// Validate validates the identity configuration.
func (c *IdentityConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Scheme, validation.In(identity.SchemeUUID, identity.SchemeTimestamp)),
		validation.Field(&c.TimestampFormat,
			validation.When(c.Scheme == identity.SchemeTimestamp, validation.Required)),
	)
}

// Generator builds the configured identity generator.
func (c *IdentityConfig) Generator() (identity.Generator, error) {
	return identity.FromScheme(c.Scheme, c.TimestampFormat)
}

// WatchConfig tunes the change watcher.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce" toml:"debounce"`
	CatchUp  bool          `yaml:"catch_up" toml:"catch_up"`
}

// Validate validates the watch configuration.
func (c *WatchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Debounce, validation.Min(time.Duration(0))),
	)
}

// Options converts the configuration into watcher options.
func (c *WatchConfig) Options() index.WatchOptions {
	return index.WatchOptions{Debounce: c.Debounce, CatchUp: c.CatchUp}
}

// IndexConfig tunes batch indexing. Workers <= 0 means one per CPU.
type IndexConfig struct {
	Workers int `yaml:"workers" toml:"workers"`
}

// Validate validates the index configuration.
func (c *IndexConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Workers, validation.Min(0)),
	)
}

// AuthConfig holds authentication configuration for the HTTP API.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local use.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode" toml:"mode"`
	Token string `yaml:"token" toml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Wiki: WikiConfig{
			Path: "./wiki",
		},
		SQLite: SQLiteConfig{
			Path: "./zettel.db",
		},
		Identity: IdentityConfig{
			Scheme:          identity.SchemeUUID,
			TimestampFormat: "20060102150405",
		},
		Watch: WatchConfig{
			Debounce: index.DefaultDebounce,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
