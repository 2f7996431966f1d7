// Package markdown turns Markdown source into the HTML fragment the
// pipeline decorates
package markdown

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// ErrRender indicates Markdown conversion failed
var ErrRender = errors.New("markdown rendering failed")

// Renderer abstracts Markdown to HTML conversion
type Renderer interface {
	Render(ctx context.Context, src string) (string, error)
}

// Options tunes the goldmark renderer
type Options struct {
	// Highlight colors fenced code with inline chroma styles
	Highlight bool
	// HighlightStyle names the chroma style; empty means the chroma default
	HighlightStyle string
	// AllowRawHTML passes HTML embedded in the Markdown through
	AllowRawHTML bool
}

// GoldmarkRenderer renders Markdown with goldmark (pure Go)
type GoldmarkRenderer struct {
	md goldmark.Markdown
}

// NewGoldmarkRenderer creates a GoldmarkRenderer with tables, strikethrough,
// linkify and heading ids enabled
func NewGoldmarkRenderer(opts Options) *GoldmarkRenderer {
	extensions := []goldmark.Extender{
		extension.Table,
		extension.Strikethrough,
		extension.Linkify,
	}
	if opts.Highlight {
		extensions = append(extensions, highlighting.NewHighlighting(
			highlighting.WithStyle(opts.HighlightStyle),
			highlighting.WithFormatOptions(
				chromahtml.WithClasses(false), // Pasted markup cannot carry a stylesheet
			),
		))
	}

	rendererOpts := []renderer.Option{
		gmhtml.WithHardWraps(), // Newlines become <br>
	}
	if opts.AllowRawHTML {
		rendererOpts = append(rendererOpts, gmhtml.WithUnsafe())
	}

	md := goldmark.New(
		goldmark.WithExtensions(extensions...),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(), // TOC anchors
		),
		goldmark.WithRendererOptions(rendererOpts...),
	)

	return &GoldmarkRenderer{md: md}
}

// Render converts src to an HTML fragment. Goldmark does not take a
// context, so the conversion runs in a goroutine and the call returns
// early on cancellation
func (r *GoldmarkRenderer) Render(ctx context.Context, src string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	type result struct {
		html string
		err  error
	}

	done := make(chan result, 1)

	go func() {
		var buf bytes.Buffer
		if err := r.md.Convert([]byte(src), &buf); err != nil {
			done <- result{err: fmt.Errorf("%w: %v", ErrRender, err)}
			return
		}
		done <- result{html: buf.String()}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-done:
		return res.html, res.err
	}
}
