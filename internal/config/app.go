package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig indicates a config file that cannot be used
var ErrInvalidConfig = errors.New("invalid config")

// App holds service-level settings shared by the CLI and the HTTP server
type App struct {
	// ThemeDir is the directory holding <name>.json theme records
	ThemeDir string `yaml:"theme_dir"`

	// DefaultTheme is used when a request names no theme
	DefaultTheme string `yaml:"default_theme"`

	// ThemeCacheSize bounds the number of parsed themes kept in memory
	ThemeCacheSize int `yaml:"theme_cache_size"`

	// Listen is the HTTP listen address for serve
	Listen string `yaml:"listen"`

	// Highlight enables syntax highlighting of fenced code blocks
	Highlight bool `yaml:"highlight"`

	// HighlightStyle names the chroma style used when Highlight is set
	HighlightStyle string `yaml:"highlight_style"`

	// AllowRawHTML passes raw HTML in Markdown through to the output
	AllowRawHTML bool `yaml:"allow_raw_html"`

	Inline Config `yaml:"inline"`
}

// DefaultApp returns the settings used when no config file is given
func DefaultApp() App {
	return App{
		ThemeDir:       "theme",
		DefaultTheme:   "兰青",
		ThemeCacheSize: 64,
		Listen:         "localhost:8000",
		Highlight:      false,
		HighlightStyle: "onedark",
		AllowRawHTML:   true,
		Inline:         Default(),
	}
}

// LoadFile reads a YAML config file over the defaults
func LoadFile(path string) (App, error) {
	app := DefaultApp()

	data, err := os.ReadFile(path)
	if err != nil {
		return app, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &app); err != nil {
		return app, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}

	if err := app.Validate(); err != nil {
		return app, err
	}

	return app, nil
}

// Validate checks settings that would otherwise fail later at startup
func (a App) Validate() error {
	if a.ThemeDir == "" {
		return fmt.Errorf("%w: theme_dir must not be empty", ErrInvalidConfig)
	}
	if a.ThemeCacheSize <= 0 {
		return fmt.Errorf("%w: theme_cache_size must be positive, got %d", ErrInvalidConfig, a.ThemeCacheSize)
	}
	return nil
}
