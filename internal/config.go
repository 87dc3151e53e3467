package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/planner/internal/format"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Storage backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Storage StorageConfig     `yaml:"storage"`
	Planner PlannerConfig     `yaml:"planner"`
	Assets  AssetsConfig      `yaml:"assets"`
	Auth    AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	if err := c.Planner.Validate(); err != nil {
		return err
	}
	if err := c.Assets.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
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

// StorageConfig selects where plans and preferences are persisted.
//
// Path is a directory for the file backend and a database file for the
// sqlite backend; the memory backend ignores it.
type StorageConfig struct {
	Backend    string `yaml:"backend"`
	Path       string `yaml:"path"`
	QuotaBytes int64  `yaml:"quota_bytes"`
}

// Validate validates the storage configuration.
func (c *StorageConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Backend, validation.Required, validation.In(BackendFile, BackendSQLite, BackendMemory)),
		validation.Field(&c.Path, validation.When(c.Backend != BackendMemory, validation.Required)),
		validation.Field(&c.QuotaBytes, validation.Min(int64(0))),
	)
}

// PlannerConfig holds presentation settings.
type PlannerConfig struct {
	Locale      string `yaml:"locale"`
	RecentLimit int    `yaml:"recent_limit"`
}

// Validate validates the planner configuration.
func (c *PlannerConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.RecentLimit, validation.Min(0), validation.Max(50)),
	); err != nil {
		return err
	}
	_, err := format.ParseLocale(c.Locale)
	return err
}

// AssetsConfig controls the offline asset cache served to browsers.
type AssetsConfig struct {
	CacheVersion string `yaml:"cache_version"`
}

// Validate validates the assets configuration.
func (c *AssetsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.CacheVersion, validation.Required, validation.Length(1, 64)),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how the API is guarded:
//   - "disabled" (default): no token required, suitable for a local planner.
//   - "token": Bearer token required on /api; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
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
		Storage: StorageConfig{
			Backend:    BackendFile,
			Path:       "./data",
			QuotaBytes: 5 << 20,
		},
		Planner: PlannerConfig{
			Locale:      string(format.English),
			RecentLimit: 5,
		},
		Assets: AssetsConfig{
			CacheVersion: "planner-v1",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
