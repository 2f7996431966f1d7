package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"mdinliner/internal/config"
	"mdinliner/internal/markdown"
	"mdinliner/internal/theme"
	"mdinliner/pkg/converter"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// globalOptions apply to every command
type globalOptions struct {
	Config       string `long:"config" short:"c" env:"MDINLINER_CONFIG" description:"Path to a YAML config file"`
	ThemeDir     string `long:"theme-dir" env:"MDINLINER_THEME_DIR" description:"Directory holding <name>.json theme records"`
	DefaultTheme string `long:"default-theme" env:"MDINLINER_DEFAULT_THEME" description:"Theme used when none is named"`
	Highlight    bool   `long:"highlight" env:"MDINLINER_HIGHLIGHT" description:"Syntax highlight fenced code blocks"`
	Verbose      bool   `long:"verbose" short:"v" description:"Debug logging"`
	Quiet        bool   `long:"quiet" short:"q" description:"Only log errors"`
}

type options struct {
	globalOptions

	Convert convertCmd `command:"convert" description:"Convert Markdown files to paste-ready HTML"`
	Themes  themesCmd  `command:"themes" description:"List installed themes"`
	Serve   serveCmd   `command:"serve" description:"Run the HTTP conversion service"`
	Fetch   fetchCmd   `command:"fetch" description:"Download themes from the editor's catalog"`
}

var opts options

func main() {
	// A missing .env is fine; real env vars still apply
	_ = godotenv.Load()

	parser := flags.NewParser(&opts, flags.HelpFlag|flags.PassDoubleDash)
	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			parser.WriteHelp(os.Stdout)
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup loads the effective settings and builds the logger
func setup() (config.App, zerolog.Logger, error) {
	log := newLogger(opts.Verbose, opts.Quiet)

	if opts.Quiet && opts.Verbose {
		return config.App{}, log, fmt.Errorf("cannot specify both --quiet and --verbose")
	}

	app := config.DefaultApp()
	if opts.Config != "" {
		loaded, err := config.LoadFile(opts.Config)
		if err != nil {
			return app, log, err
		}
		app = loaded
		log.Debug().Str("path", opts.Config).Msg("config loaded")
	}

	// Flags and env override the file
	if opts.ThemeDir != "" {
		app.ThemeDir = opts.ThemeDir
	}
	if opts.DefaultTheme != "" {
		app.DefaultTheme = opts.DefaultTheme
	}
	if opts.Highlight {
		app.Highlight = true
	}

	return app, log, app.Validate()
}

func newLogger(verbose, quiet bool) zerolog.Logger {
	level := zerolog.InfoLevel
	switch {
	case verbose:
		level = zerolog.DebugLevel
	case quiet:
		level = zerolog.ErrorLevel
	}

	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// newConverter wires the theme store and renderer behind a converter
func newConverter(app config.App, log zerolog.Logger) (*converter.Converter, *theme.Store, error) {
	store, err := theme.NewStore(os.DirFS(app.ThemeDir), app.DefaultTheme, app.ThemeCacheSize, log)
	if err != nil {
		return nil, nil, err
	}

	renderer := markdown.NewGoldmarkRenderer(markdown.Options{
		Highlight:      app.Highlight,
		HighlightStyle: app.HighlightStyle,
		AllowRawHTML:   app.AllowRawHTML,
	})

	return converter.New(renderer, store, app.Inline, log), store, nil
}
