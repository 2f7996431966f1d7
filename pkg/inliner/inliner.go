// Package inliner resolves theme stylesheets against a decorated document
// and writes the winning declarations into each element's style attribute
package inliner

import (
	"fmt"
	"strings"
	"time"

	"mdinliner/internal/config"
	"mdinliner/internal/css"
	"mdinliner/internal/html"
	"mdinliner/internal/resolver"

	"github.com/rs/zerolog"
)

// affixSelector matches the heading decorations that must stay hidden
// whatever the theme says about them
const affixSelector = "span.prefix, span.suffix"

// Inliner is the CSS inlining engine for paste-ready HTML
type Inliner struct {
	config     config.Config
	parser     *css.Parser
	htmlParser html.Parser
	log        zerolog.Logger
}

// New creates a new CSS inliner with the given configuration
func New(cfg config.Config, log zerolog.Logger) *Inliner {
	return &Inliner{
		config:     cfg,
		parser:     css.NewParser(),
		htmlParser: html.NewParser(),
		log:        log,
	}
}

// NewWithDefaults creates a new CSS inliner with the editor's defaults and no logging
func NewWithDefaults() *Inliner {
	return New(config.Default(), zerolog.Nop())
}

// InlineResult contains the result of CSS inlining operation
type InlineResult struct {
	Document        html.Document   // Inlined copy of the input document
	InlinedStyles   int             // Number of declarations written inline
	ProcessingStats ProcessingStats // Performance and processing statistics
}

// ProcessingStats contains performance metrics from the inlining process
type ProcessingStats struct {
	CSSRulesParsed        int   // Total CSS rules parsed
	SelectorsSkipped      int   // Rules dropped for unsupported or pseudo-element selectors
	HTMLElementsProcessed int   // HTML elements that had styles applied
	SelectorsMatched      int   // Total selector matches found
	ProcessingTimeMs      int64 // Processing time in milliseconds
}

// Inline applies cssText to a copy of doc. The input document is not modified
// Empty CSS is valid and leaves only pre-existing inline styles in place
func (i *Inliner) Inline(doc html.Document, cssText string) (*InlineResult, error) {
	start := time.Now()
	out := doc.Clone()

	// Parse the CSS
	stylesheet, err := i.parser.Parse(cssText)
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSS: %w", err)
	}

	// Create style resolver
	styleResolver := resolver.New(stylesheet, i.config)

	// Process all elements in the document
	result, err := i.processDocument(out, styleResolver)
	if err != nil {
		return nil, fmt.Errorf("failed to process document: %w", err)
	}

	if err := i.finish(out); err != nil {
		return nil, err
	}

	result.Document = out
	result.ProcessingStats.CSSRulesParsed = len(stylesheet.Rules)
	result.ProcessingStats.SelectorsSkipped = stylesheet.Skipped
	result.ProcessingStats.ProcessingTimeMs = time.Since(start).Milliseconds()

	i.log.Debug().
		Int("rules", result.ProcessingStats.CSSRulesParsed).
		Int("skipped", result.ProcessingStats.SelectorsSkipped).
		Int("elements", result.ProcessingStats.HTMLElementsProcessed).
		Int("matches", result.ProcessingStats.SelectorsMatched).
		Msg("styles inlined")

	return result, nil
}

// InlineString is a convenience method that inlines cssText into an HTML
// fragment and returns the element matching rootSelector, or the body
// content when nothing matches
func (i *Inliner) InlineString(htmlContent, cssText, rootSelector string) (string, error) {
	doc, err := i.htmlParser.Parse(htmlContent)
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	result, err := i.Inline(doc, cssText)
	if err != nil {
		return "", err
	}
	return result.Document.Fragment(rootSelector)
}

// processDocument processes all elements in the document and applies inline styles
func (i *Inliner) processDocument(doc html.Document, styleResolver *resolver.Resolver) (*InlineResult, error) {
	result := &InlineResult{}

	// Get all elements in the document
	allElements, err := doc.QuerySelectorAll("*")
	if err != nil {
		return nil, fmt.Errorf("failed to query all elements: %w", err)
	}

	// Process each element
	for _, element := range allElements {
		i.processElement(element, styleResolver, result)
	}

	return result, nil
}

// processElement processes a single HTML element and applies computed styles
func (i *Inliner) processElement(element html.Node, styleResolver *resolver.Resolver, result *InlineResult) {
	// Skip certain elements that shouldn't have styles
	tagName := strings.ToLower(element.TagName())
	if shouldSkipElement(tagName) {
		return
	}

	computedStyles, matched := styleResolver.ResolveStyles(element)
	result.ProcessingStats.SelectorsMatched += matched

	if len(computedStyles) == 0 {
		if _, ok := element.Attr("style"); ok {
			// Everything was dropped; an empty attribute is noise
			element.RemoveAttribute("style")
		}
		return
	}

	element.SetInlineStyle(computedStyles)
	result.ProcessingStats.HTMLElementsProcessed++
	result.InlinedStyles += len(computedStyles)
}

// shouldSkipElement determines if an element should be skipped during processing
func shouldSkipElement(tagName string) bool {
	switch tagName {
	case "html", "head", "title", "meta", "link", "script", "style", "noscript", "base":
		return true
	}
	return false
}

// finish runs the clean-up passes that follow inlining
func (i *Inliner) finish(doc html.Document) error {
	if i.config.RemoveStyleTags {
		styleTags, err := doc.QuerySelectorAll("style")
		if err != nil {
			return fmt.Errorf("failed to get style tags: %w", err)
		}
		for _, styleTag := range styleTags {
			styleTag.Remove()
		}
	}

	if i.config.HideHeadingAffixes {
		affixes, err := doc.QuerySelectorAll(affixSelector)
		if err != nil {
			return fmt.Errorf("failed to get heading affixes: %w", err)
		}
		for _, affix := range affixes {
			affix.SetInlineStyle([]css.Declaration{{Property: "display", Value: "none"}})
		}
	}

	if i.config.StripClasses {
		classed, err := doc.QuerySelectorAll("[class]")
		if err != nil {
			return fmt.Errorf("failed to get classed elements: %w", err)
		}
		for _, element := range classed {
			element.RemoveAttribute("class")
		}
	}

	return nil
}

// InlineCSS is a convenience function that inlines CSS into an HTML fragment with default configuration
func InlineCSS(htmlContent, cssText string) (string, error) {
	return NewWithDefaults().InlineString(htmlContent, cssText, "")
}
