package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/papernotes/internal/apperr"
	"github.com/starford/papernotes/internal/archive"
	"github.com/starford/papernotes/internal/arxiv"
	"github.com/starford/papernotes/internal/source"
	"github.com/starford/papernotes/internal/tagging"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Source   SourceConfig      `yaml:"source"`
	Archive  ArchiveConfig     `yaml:"archive"`
	Metadata MetadataConfig    `yaml:"metadata"`
	Tagging  TaggingConfig     `yaml:"tagging"`
	SQLite   SQLiteConfig      `yaml:"sqlite"`
	Auth     AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration. The tagging credential is checked
// separately by ValidateTagging since only pass 2 needs it.
func (c *Config) Validate() error {
	for _, v := range []validation.Validatable{&c.App, &c.Source, &c.Archive, &c.Metadata, &c.Tagging, &c.SQLite, &c.Auth} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ValidateTagging reports a missing tagging credential as a fatal
// configuration error.
func (c *Config) ValidateTagging() error {
	if c.Tagging.APIKey == "" {
		return apperr.Configf("tagging.api_key", "credential is not set (OPENAI_API_KEY)")
	}
	return nil
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

// SourceConfig locates the reference table and its fingerprint.
type SourceConfig struct {
	Path            string `yaml:"path"`
	Column          string `yaml:"column"`
	FingerprintPath string `yaml:"fingerprint_path"`
}

// Validate validates the source configuration.
func (c *SourceConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.Column, validation.Required),
		validation.Field(&c.FingerprintPath, validation.Required),
	)
}

// ArchiveConfig locates the note archive.
type ArchiveConfig struct {
	Root     string `yaml:"root"`
	Year     string `yaml:"year"`
	MaxIdeas int    `yaml:"max_ideas"`
}

// Validate validates the archive configuration.
func (c *ArchiveConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Root, validation.Required),
		validation.Field(&c.Year, validation.Required, validation.Length(4, 4)),
		validation.Field(&c.MaxIdeas, validation.Min(0)),
	)
}

// MetadataConfig configures the bibliographic lookup.
type MetadataConfig struct {
	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Validate validates the metadata configuration.
func (c *MetadataConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Endpoint, validation.Required),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

// TaggingConfig configures the tag suggestion service.
type TaggingConfig struct {
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url"`
	Model       string        `yaml:"model"`
	Temperature float32       `yaml:"temperature"`
	MaxChars    int           `yaml:"max_chars"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Validate validates the tagging configuration.
func (c *TaggingConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Model, validation.Required),
		validation.Field(&c.Temperature, validation.Min(float32(0)), validation.Max(float32(2))),
		validation.Field(&c.MaxChars, validation.Min(1)),
	)
}

// Options converts the config into tagging client options.
func (c *TaggingConfig) Options() tagging.Options {
	return tagging.Options{
		APIKey:      c.APIKey,
		BaseURL:     c.BaseURL,
		Model:       c.Model,
		Temperature: c.Temperature,
		MaxChars:    c.MaxChars,
		Timeout:     c.Timeout,
	}
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

// AuthConfig holds authentication configuration for the HTTP API.
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
			HTTP:     HTTPConfig{Port: 8080},
		},
		Source: SourceConfig{
			Path:            "papers.csv",
			Column:          source.DefaultColumn,
			FingerprintPath: "papers.csv.sha256",
		},
		Archive: ArchiveConfig{
			Root: "papers",
			Year: archive.DefaultYear,
		},
		Metadata: MetadataConfig{
			Endpoint: arxiv.DefaultEndpoint,
			Timeout:  arxiv.DefaultTimeout,
		},
		Tagging: TaggingConfig{
			Model:       tagging.DefaultModel,
			Temperature: tagging.DefaultTemperature,
			MaxChars:    tagging.DefaultMaxChars,
			Timeout:     tagging.DefaultTimeout,
		},
		SQLite: SQLiteConfig{Path: "papernotes.db"},
		Auth:   AuthConfig{Mode: AuthModeDisabled},
	}
}
