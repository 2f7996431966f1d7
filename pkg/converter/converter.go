// Package converter runs the full Markdown to paste-ready HTML pipeline:
// render, pre-clean, structural transform and CSS inlining
package converter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mdinliner/internal/config"
	"mdinliner/internal/html"
	"mdinliner/internal/markdown"
	"mdinliner/internal/preclean"
	"mdinliner/internal/theme"
	"mdinliner/internal/transform"
	"mdinliner/pkg/inliner"

	"github.com/rs/zerolog"
)

// ErrConversionFailed wraps every failure that is not a theme lookup error
var ErrConversionFailed = errors.New("conversion failed")

// Themes resolves a theme by name; an empty name selects the default
type Themes interface {
	Resolve(name string) (*theme.Theme, error)
}

// Result is a converted document
type Result struct {
	HTML      string
	Theme     string
	Style     string
	CustomCSS string
	Stats     Stats
}

// Stats collects what each stage did
type Stats struct {
	Preclean  preclean.Report
	Transform transform.Report
	Inline    inliner.ProcessingStats
	Duration  time.Duration
}

// Converter is safe for concurrent use when its Themes implementation is
type Converter struct {
	renderer    markdown.Renderer
	themes      Themes
	htmlParser  html.Parser
	cleaner     *preclean.Cleaner
	transformer *transform.Transformer
	inliner     *inliner.Inliner
	log         zerolog.Logger
}

// New creates a Converter
func New(renderer markdown.Renderer, themes Themes, cfg config.Config, log zerolog.Logger) *Converter {
	return &Converter{
		renderer:    renderer,
		themes:      themes,
		htmlParser:  html.NewParser(),
		cleaner:     preclean.New(log),
		transformer: transform.New(log),
		inliner:     inliner.New(cfg, log),
		log:         log,
	}
}

// Convert renders src with the named theme. Theme lookup errors are
// returned unwrapped by ErrConversionFailed so callers can tell them apart
func (c *Converter) Convert(ctx context.Context, src, themeName string) (res *Result, err error) {
	start := time.Now()
	defer recoverInto(&res, &err)

	t, err := c.themes.Resolve(themeName)
	if err != nil {
		return nil, err
	}

	fragment, err := c.renderer.Render(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConversionFailed, err)
	}

	res, err = c.Process(ctx, fragment, t.CSS())
	if err != nil {
		return nil, err
	}

	res.Theme = t.Name
	res.Style = t.Style
	res.CustomCSS = t.CustomCSS
	res.Stats.Duration = time.Since(start)

	c.log.Debug().
		Str("theme", t.Name).
		Dur("duration", res.Stats.Duration).
		Int("bytes", len(res.HTML)).
		Msg("markdown converted")

	return res, nil
}

// Process runs the HTML stages over an already rendered fragment
func (c *Converter) Process(ctx context.Context, fragment, cssText string) (res *Result, err error) {
	defer recoverInto(&res, &err)

	doc, err := c.htmlParser.Parse(`<div id="` + transform.RootID + `">` + fragment + `</div>`)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConversionFailed, err)
	}

	var stats Stats

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConversionFailed, err)
	}
	doc, stats.Preclean = c.cleaner.Run(doc)

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConversionFailed, err)
	}
	doc, stats.Transform = c.transformer.Run(doc)

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConversionFailed, err)
	}
	inlined, err := c.inliner.Inline(doc, cssText)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConversionFailed, err)
	}
	stats.Inline = inlined.ProcessingStats

	out, err := inlined.Document.Fragment(transform.RootSelector)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConversionFailed, err)
	}

	return &Result{HTML: out, Stats: stats}, nil
}

// recoverInto turns a panic in any stage into ErrConversionFailed
func recoverInto(res **Result, err *error) {
	if r := recover(); r != nil {
		*res = nil
		*err = fmt.Errorf("%w: panic: %v", ErrConversionFailed, r)
	}
}
