package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"golang.org/x/text/language"

	"github.com/starford/now/internal/bookmark"
	"github.com/starford/now/internal/graph"
	"github.com/starford/now/internal/views"
)

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Vault  VaultConfig       `yaml:"vault"`
	SQLite SQLiteConfig      `yaml:"sqlite"`
	Graph  GraphConfig       `yaml:"graph"`
	Board  views.BoardConfig `yaml:"board"`
	Enrich EnrichConfig      `yaml:"enrich"`
	Events EventsConfig      `yaml:"events"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Vault.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Graph.Validate(); err != nil {
		return err
	}
	if err := validateBoard(&c.Board); err != nil {
		return err
	}
	if err := c.Enrich.Validate(); err != nil {
		return err
	}
	return c.Events.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	// LogFile, when set, receives a rotated copy of the log.
	LogFile string     `yaml:"log_file"`
	HTTP    HTTPConfig `yaml:"http"`
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

// VaultConfig holds the path to the Markdown vault directory.
type VaultConfig struct {
	Path string `yaml:"path"`
	// Watch enables picking up edits made outside the application.
	Watch bool `yaml:"watch"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
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

// GraphConfig controls how the graph is built and presented.
type GraphConfig struct {
	ContextEdges bool        `yaml:"context_edges"`
	DefaultGroup string      `yaml:"default_group"`
	Collation    string      `yaml:"collation"`
	Style        views.Style `yaml:"style"`
}

// Validate validates the graph configuration.
func (c *GraphConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.DefaultGroup, validation.Required),
		validation.Field(&c.Collation, validation.Required, validation.By(func(any) error {
			_, err := language.Parse(c.Collation)
			return err
		})),
		validation.Field(&c.Style, validation.By(func(any) error {
			return validateStyle(c.Style)
		})),
	)
}

// Options converts the configuration into graph builder options.
func (c *GraphConfig) Options() []graph.Option {
	opts := []graph.Option{graph.WithDefaultGroup(c.DefaultGroup)}
	if c.ContextEdges {
		opts = append(opts, graph.WithContextEdges())
	}
	return opts
}

// Language returns the collation language. Validate guarantees it parses.
func (c *GraphConfig) Language() language.Tag {
	tag, err := language.Parse(c.Collation)
	if err != nil {
		return language.Und
	}
	return tag
}

func validateStyle(s views.Style) error {
	for name, es := range map[string]views.EdgeStyle{"explicit": s.Explicit, "default": s.Default} {
		if err := validation.ValidateStruct(&es,
			validation.Field(&es.Color, validation.Required, validation.Match(hexColor)),
			validation.Field(&es.Width, validation.Required, validation.Min(0.1)),
		); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

func validateBoard(b *views.BoardConfig) error {
	if err := validation.ValidateStruct(b,
		validation.Field(&b.TaskType, validation.Required),
		validation.Field(&b.Columns, validation.Required),
	); err != nil {
		return fmt.Errorf("board: %w", err)
	}
	seen := map[string]struct{}{}
	for _, col := range b.Columns {
		if col.Status == "" {
			return errors.New("board: column status is required")
		}
		if _, dup := seen[col.Status]; dup {
			return fmt.Errorf("board: duplicate column status %q", col.Status)
		}
		seen[col.Status] = struct{}{}
	}
	return nil
}

// EnrichConfig controls bookmark enrichment.
type EnrichConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Timeout   time.Duration `yaml:"timeout"`
	MaxBytes  int64         `yaml:"max_bytes"`
	UserAgent string        `yaml:"user_agent"`
}

// Validate validates the enrichment configuration.
func (c *EnrichConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Timeout, validation.Required, validation.Min(100*time.Millisecond)),
		validation.Field(&c.MaxBytes, validation.Required, validation.Min(int64(1024))),
	)
}

// Enricher returns the configured enricher, or nil when disabled.
func (c *EnrichConfig) Enricher() bookmark.Enricher {
	if !c.Enabled {
		return nil
	}
	return bookmark.NewHTTPEnricher(bookmark.Options{
		Timeout:   c.Timeout,
		MaxBytes:  c.MaxBytes,
		UserAgent: c.UserAgent,
	})
}

// EventsConfig controls the SSE stream.
type EventsConfig struct {
	// RebuildThrottle is the minimum gap between index.rebuilt events.
	RebuildThrottle time.Duration `yaml:"rebuild_throttle"`
}

// Validate validates the events configuration.
func (c *EventsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.RebuildThrottle, validation.Min(time.Duration(0))),
	)
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
		Vault: VaultConfig{
			Path:  "./vault",
			Watch: true,
		},
		SQLite: SQLiteConfig{
			Path: "./now.db",
		},
		Graph: GraphConfig{
			DefaultGroup: graph.DefaultGroup,
			Collation:    "de",
			Style:        views.DefaultStyle(),
		},
		Board: views.DefaultBoard(),
		Enrich: EnrichConfig{
			Enabled:   true,
			Timeout:   5 * time.Second,
			MaxBytes:  1 << 20,
			UserAgent: "now-bookmarks/1.0",
		},
		Events: EventsConfig{
			RebuildThrottle: 2 * time.Second,
		},
	}
}
