// Package theme loads editor theme records and extracts their stylesheets
package theme

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

var (
	// ErrThemeNotFound indicates no record exists for the requested name
	ErrThemeNotFound = errors.New("theme not found")
	// ErrInvalidTheme indicates a record that is not a usable theme
	ErrInvalidTheme = errors.New("invalid theme")
)

const (
	ext = ".json"

	stylePath     = "data.style"
	customCSSPath = `data.styleModelList.#(id=="customStyle").styles.#(id=="customCss").value`
)

// Theme is a parsed theme record
type Theme struct {
	Name      string
	Style     string
	CustomCSS string
	// Raw is the record exactly as stored
	Raw []byte
}

// CSS returns the stylesheet applied to converted documents: the base
// style followed by the custom rules
func (t *Theme) CSS() string {
	if t.CustomCSS == "" {
		return t.Style
	}
	return t.Style + "\n" + t.CustomCSS
}

// Parse extracts a theme from a raw record
func Parse(name string, raw []byte) (*Theme, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("%w: %s: malformed JSON", ErrInvalidTheme, name)
	}

	style := gjson.GetBytes(raw, stylePath)
	if style.Exists() && style.Type != gjson.String {
		return nil, fmt.Errorf("%w: %s: data.style is not a string", ErrInvalidTheme, name)
	}

	return &Theme{
		Name:      name,
		Style:     style.String(),
		CustomCSS: gjson.GetBytes(raw, customCSSPath).String(),
		Raw:       raw,
	}, nil
}

// Store reads theme records named <name>.json from a file system and keeps
// recently used ones parsed in memory. It is safe for concurrent use
type Store struct {
	fsys        fs.FS
	defaultName string
	cache       *lru.Cache[string, *Theme]
	log         zerolog.Logger
}

// NewStore creates a Store over fsys. defaultName is preferred by Default
// when it exists; cacheSize bounds the parsed-theme cache
func NewStore(fsys fs.FS, defaultName string, cacheSize int, log zerolog.Logger) (*Store, error) {
	cache, err := lru.New[string, *Theme](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create theme cache: %w", err)
	}
	return &Store{
		fsys:        fsys,
		defaultName: defaultName,
		cache:       cache,
		log:         log,
	}, nil
}

// Names lists available themes in sorted order
func (s *Store) Names() ([]string, error) {
	entries, err := fs.ReadDir(s.fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to list themes: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ext {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ext))
	}
	sort.Strings(names)
	return names, nil
}

// Default returns the configured default theme if it exists, otherwise the
// first name in sorted order. It returns ErrThemeNotFound when there are no
// themes at all
func (s *Store) Default() (string, error) {
	names, err := s.Names()
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", fmt.Errorf("%w: no themes installed", ErrThemeNotFound)
	}
	for _, name := range names {
		if name == s.defaultName {
			return name, nil
		}
	}
	return names[0], nil
}

// Get returns the named theme
func (s *Store) Get(name string) (*Theme, error) {
	if t, ok := s.cache.Get(name); ok {
		return t, nil
	}

	if !validName(name) {
		return nil, fmt.Errorf("%w: %q", ErrThemeNotFound, name)
	}

	raw, err := fs.ReadFile(s.fsys, name+ext)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %q", ErrThemeNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read theme %q: %w", name, err)
	}

	t, err := Parse(name, raw)
	if err != nil {
		return nil, err
	}

	s.cache.Add(name, t)
	s.log.Debug().Str("theme", name).Int("style_bytes", len(t.Style)).Msg("theme loaded")
	return t, nil
}

// Resolve returns the named theme, or the default one when name is empty
func (s *Store) Resolve(name string) (*Theme, error) {
	if name == "" {
		def, err := s.Default()
		if err != nil {
			return nil, err
		}
		name = def
	}
	return s.Get(name)
}

// validName rejects names that would escape the theme directory
func validName(name string) bool {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return false
	}
	return fs.ValidPath(name + ext)
}
