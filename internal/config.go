package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/halvard/ordna/internal/organizer"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Library  LibraryConfig     `yaml:"library"`
	SQLite   SQLiteConfig      `yaml:"sqlite"`
	Auth     AuthConfig        `yaml:"auth"`
	Watch    WatchConfig       `yaml:"watch"`
	Organize OrganizeConfig    `yaml:"organize"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Library.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Watch.Validate(); err != nil {
		return err
	}
	return c.Organize.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
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

// LibraryConfig holds the path to the organized library root directory.
type LibraryConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the library configuration.
func (c *LibraryConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local use.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
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

// WatchConfig tunes the watched-folder loops.
type WatchConfig struct {
	// PollSeconds is the backstop polling interval between detection
	// cycles; fsnotify events trigger cycles sooner.
	PollSeconds int `yaml:"poll_seconds"`
	// Workers bounds how many folders are processed concurrently.
	Workers int `yaml:"workers"`
}

// Validate validates the watch configuration.
func (c *WatchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.PollSeconds, validation.Min(1)),
		validation.Field(&c.Workers, validation.Min(1), validation.Max(64)),
	)
}

// PollInterval returns the poll interval as a duration.
func (c *WatchConfig) PollInterval() time.Duration {
	return time.Duration(c.PollSeconds) * time.Second
}

// OrganizeConfig tunes the executor.
type OrganizeConfig struct {
	// ConflictPolicy is the default destination collision policy when a
	// request does not specify one: rename, skip, or overwrite.
	ConflictPolicy string `yaml:"conflict_policy"`
	// MoveTimeoutSeconds bounds each physical move; zero disables it.
	MoveTimeoutSeconds int `yaml:"move_timeout_seconds"`
}

// Validate validates the organize configuration.
func (c *OrganizeConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.ConflictPolicy, validation.In(
			string(organizer.ConflictRename),
			string(organizer.ConflictSkip),
			string(organizer.ConflictOverwrite),
		)),
		validation.Field(&c.MoveTimeoutSeconds, validation.Min(0)),
	)
}

// MoveTimeout returns the move bound as a duration.
func (c *OrganizeConfig) MoveTimeout() time.Duration {
	return time.Duration(c.MoveTimeoutSeconds) * time.Second
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
		Library: LibraryConfig{
			Path: "./library",
		},
		SQLite: SQLiteConfig{
			Path: "./ordna.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Watch: WatchConfig{
			PollSeconds: 30,
			Workers:     4,
		},
		Organize: OrganizeConfig{
			ConflictPolicy: string(organizer.ConflictRename),
		},
	}
}
