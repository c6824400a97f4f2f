// Package config handles loading and saving cg configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config:  ~/.config/cg/config.yaml
//
// Environment variables override the file so credentials need not be stored
// on disk.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/casegraph/internal/datasource"
	"github.com/vanderheijden86/casegraph/pkg/layout"
	"github.com/vanderheijden86/casegraph/pkg/model"
	"github.com/vanderheijden86/casegraph/pkg/scene"
)

// Neo4jConfig holds bolt connection settings.
type Neo4jConfig struct {
	URI      string `yaml:"uri,omitempty"`
	User     string `yaml:"user,omitempty"`
	Password string `yaml:"password,omitempty"`
	Database string `yaml:"database,omitempty"`
}

// APIConfig holds dashboard REST API settings.
type APIConfig struct {
	URL     string        `yaml:"url,omitempty"` // e.g. http://localhost:8000/api/v1
	Token   string        `yaml:"token,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// SourceConfig selects the graph store.
type SourceConfig struct {
	Type     string      `yaml:"type"` // neo4j, http, sqlite, file
	Neo4j    Neo4jConfig `yaml:"neo4j,omitempty"`
	API      APIConfig   `yaml:"api,omitempty"`
	DataPath string      `yaml:"data_path,omitempty"` // case file for sqlite/file
}

// ViewConfig holds the initial view and query limits.
type ViewConfig struct {
	Project string  `yaml:"project,omitempty"` // "all" or a project id
	Limit   int     `yaml:"limit,omitempty"`   // relationships per fetch
	Depth   int     `yaml:"depth,omitempty"`   // search and label hops (1-5)
	Zoom    float64 `yaml:"zoom,omitempty"`
}

// LayoutConfig overrides layout simulation parameters.
type LayoutConfig struct {
	Width      float64 `yaml:"width,omitempty"`
	Height     float64 `yaml:"height,omitempty"`
	Iterations int     `yaml:"iterations,omitempty"`
}

// UIConfig holds terminal UI preferences.
type UIConfig struct {
	ShowDetails bool `yaml:"show_details,omitempty"` // open the detail pane on start
	Watch       bool `yaml:"watch,omitempty"`        // refresh when a case file changes
}

// MetricsConfig controls the prometheus endpoint.
type MetricsConfig struct {
	Addr string `yaml:"addr,omitempty"` // e.g. :9090; empty disables
}

// Config is the top-level configuration for cg.
type Config struct {
	Source  SourceConfig  `yaml:"source"`
	View    ViewConfig    `yaml:"view,omitempty"`
	Layout  LayoutConfig  `yaml:"layout,omitempty"`
	UI      UIConfig      `yaml:"ui,omitempty"`
	Metrics MetricsConfig `yaml:"metrics,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Source: SourceConfig{
			Type: string(datasource.SourceTypeNeo4j),
			Neo4j: Neo4jConfig{
				URI:      "bolt://localhost:7687",
				User:     "neo4j",
				Database: "neo4j",
			},
			API: APIConfig{Timeout: 30 * time.Second},
		},
		View: ViewConfig{
			Project: model.FilterAll,
			Limit:   datasource.DefaultLimit,
			Depth:   2,
			Zoom:    1,
		},
		Layout: LayoutConfig{
			Width:      layout.FallbackWidth,
			Height:     layout.FallbackHeight,
			Iterations: layout.DefaultIterations,
		},
		UI: UIConfig{Watch: true},
	}
}

// ConfigDir returns the XDG config directory for cg.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "cg")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "cg")
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the config file from the XDG config directory and applies
// environment overrides. Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	cfg := DefaultConfig()
	if path := ConfigPath(); path != "" {
		var err error
		if cfg, err = LoadFrom(path); err != nil {
			return cfg, err
		}
	}
	cfg.ApplyEnv(os.Getenv)
	return cfg, nil
}

// LoadFrom reads config from a specific path.
// Returns DefaultConfig if the file doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	cfg.Source.DataPath = expandHome(cfg.Source.DataPath)
	return cfg, nil
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path. The file may hold
// credentials, so it is only readable by the owner.
func SaveTo(cfg Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// ApplyEnv overrides settings from environment variables read with getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&c.Source.Type, "CG_SOURCE")
	set(&c.Source.Neo4j.URI, "NEO4J_URI")
	set(&c.Source.Neo4j.User, "NEO4J_USER")
	set(&c.Source.Neo4j.Password, "NEO4J_PASSWORD")
	set(&c.Source.Neo4j.Database, "NEO4J_DATABASE")
	set(&c.Source.API.URL, "CG_API_URL")
	set(&c.Source.API.Token, "CG_API_TOKEN")
	set(&c.Source.DataPath, "CG_DATA_PATH")
	c.Source.DataPath = expandHome(c.Source.DataPath)
}

// Validate reports the first setting that cannot work.
func (c Config) Validate() error {
	typ, err := datasource.ParseSourceType(c.Source.Type)
	if err != nil {
		return fmt.Errorf("source.type: %w", err)
	}
	switch typ {
	case datasource.SourceTypeNeo4j:
		if c.Source.Neo4j.URI == "" {
			return fmt.Errorf("source.neo4j.uri is required for the neo4j source")
		}
	case datasource.SourceTypeHTTP:
		if c.Source.API.URL == "" {
			return fmt.Errorf("source.api.url is required for the http source")
		}
	case datasource.SourceTypeSQLite, datasource.SourceTypeFile:
		if c.Source.DataPath == "" {
			return fmt.Errorf("source.data_path is required for the %s source", typ)
		}
	}
	if c.View.Limit < 0 {
		return fmt.Errorf("view.limit must not be negative, got %d", c.View.Limit)
	}
	if c.View.Depth != 0 && (c.View.Depth < datasource.MinDepth || c.View.Depth > datasource.MaxDepth) {
		return fmt.Errorf("view.depth must be between %d and %d, got %d", datasource.MinDepth, datasource.MaxDepth, c.View.Depth)
	}
	if c.View.Zoom != 0 && (c.View.Zoom < scene.MinZoom || c.View.Zoom > scene.MaxZoom) {
		return fmt.Errorf("view.zoom must be between %.1f and %.1f, got %v", scene.MinZoom, scene.MaxZoom, c.View.Zoom)
	}
	if c.Layout.Width < 0 || c.Layout.Height < 0 {
		return fmt.Errorf("layout size must not be negative")
	}
	if c.Layout.Iterations < 0 {
		return fmt.Errorf("layout.iterations must not be negative")
	}
	return nil
}

// DataSource converts the source settings into store options.
func (c Config) DataSource() datasource.Options {
	return datasource.Options{
		Type:     datasource.SourceType(strings.ToLower(strings.TrimSpace(c.Source.Type))),
		URI:      c.Source.Neo4j.URI,
		User:     c.Source.Neo4j.User,
		Password: c.Source.Neo4j.Password,
		Database: c.Source.Neo4j.Database,
		BaseURL:  c.Source.API.URL,
		Token:    c.Source.API.Token,
		Timeout:  c.Source.API.Timeout,
		Path:     c.Source.DataPath,
	}
}

// LayoutOptions returns the simulation options with configured overrides.
func (c Config) LayoutOptions() layout.Options {
	opts := layout.DefaultOptions()
	if c.Layout.Iterations > 0 {
		opts.Iterations = c.Layout.Iterations
	}
	return opts
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
