package resolver

import (
	"regexp"

	"mdinliner/internal/config"
	"mdinliner/internal/css"
	"mdinliner/internal/html"
)

var opaqueRGBA = regexp.MustCompile(`rgba\(\s*(\d+)\s*,\s*(\d+)\s*,\s*(\d+)\s*,\s*1(?:\.0+)?\s*\)`)

// Resolver handles CSS cascade resolution and computes final styles for HTML elements
type Resolver struct {
	stylesheet *css.Stylesheet
	config     config.Config
}

// New creates a new style resolver
func New(stylesheet *css.Stylesheet, cfg config.Config) *Resolver {
	return &Resolver{
		stylesheet: stylesheet,
		config:     cfg,
	}
}

// ResolveStyles computes the final styles for an HTML element following CSS cascade rules
// The element's own inline declarations always win over stylesheet rules
// It also returns the number of rules that matched
func (r *Resolver) ResolveStyles(node html.Node) ([]css.Declaration, int) {
	// Step 1: Find all CSS rules that match this element
	matchingRules := r.findMatchingRules(node)

	// Step 2: Get existing inline styles
	inlineStyles := node.GetInlineStyle()

	// Step 3: Apply CSS cascade to determine winning declarations
	finalStyles := r.applyCascade(matchingRules, inlineStyles)

	// Step 4: Drop and rewrite values for the paste target
	return r.filterStyles(finalStyles), len(matchingRules)
}

// findMatchingRules finds all CSS rules that match the given HTML element, in source order
func (r *Resolver) findMatchingRules(node html.Node) []*css.Rule {
	var matches []*css.Rule

	for i := range r.stylesheet.Rules {
		rule := &r.stylesheet.Rules[i]
		if node.Matches(rule.Sel) {
			matches = append(matches, rule)
		}
	}

	return matches
}

// cascadeEntry tracks the cascade information for a declaration
type cascadeEntry struct {
	specificity css.Specificity
	sourceOrder int
}

// applyCascade applies CSS cascade rules to determine which declarations win
// Stylesheet-derived properties come first in the order they were first
// set, followed by the element's inline declarations in authored order
func (r *Resolver) applyCascade(matches []*css.Rule, inlineStyles []css.Declaration) []css.Declaration {
	winningDeclarations := make(map[string]css.Declaration)
	winningSpecs := make(map[string]cascadeEntry)
	var order []string

	// Step 1: Process stylesheet rules
	for _, rule := range matches {
		for _, declaration := range rule.Declarations {
			spec := rule.Specificity
			spec.Important = declaration.Important
			entry := cascadeEntry{specificity: spec, sourceOrder: rule.SourceOrder}

			existing, seen := winningSpecs[declaration.Property]
			if !seen {
				order = append(order, declaration.Property)
			}
			if !seen || shouldReplace(entry, existing) {
				winningDeclarations[declaration.Property] = declaration
				winningSpecs[declaration.Property] = entry
			}
		}
	}

	// Step 2: Inline styles override whatever the stylesheet set
	inline := dedupeLastWins(inlineStyles)
	overridden := make(map[string]bool, len(inline))
	for _, declaration := range inline {
		overridden[declaration.Property] = true
	}

	result := make([]css.Declaration, 0, len(order)+len(inline))
	for _, property := range order {
		if !overridden[property] {
			result = append(result, winningDeclarations[property])
		}
	}
	return append(result, inline...)
}

// shouldReplace determines if a new declaration should replace the existing winning declaration
func shouldReplace(newEntry, existingEntry cascadeEntry) bool {
	// 1. !important, then specificity
	if cmp := newEntry.specificity.Compare(existingEntry.specificity); cmp != 0 {
		return cmp > 0
	}

	// 2. If specificity is equal, later source order wins
	return newEntry.sourceOrder >= existingEntry.sourceOrder
}

// dedupeLastWins keeps the last declaration of each property at the
// position of that last occurrence
func dedupeLastWins(decls []css.Declaration) []css.Declaration {
	seen := make(map[string]bool, len(decls))
	reversed := make([]css.Declaration, 0, len(decls))
	for i := len(decls) - 1; i >= 0; i-- {
		if seen[decls[i].Property] {
			continue
		}
		seen[decls[i].Property] = true
		reversed = append(reversed, decls[i])
	}

	out := make([]css.Declaration, len(reversed))
	for i, d := range reversed {
		out[len(reversed)-1-i] = d
	}
	return out
}

// filterStyles removes properties the paste target cannot use
func (r *Resolver) filterStyles(styles []css.Declaration) []css.Declaration {
	filtered := styles[:0]
	for _, declaration := range styles {
		if r.config.Drops(declaration.Property) {
			continue
		}
		if r.config.NormalizeColors {
			declaration.Value = opaqueRGBA.ReplaceAllString(declaration.Value, "rgb($1, $2, $3)")
		}
		filtered = append(filtered, declaration)
	}
	return filtered
}
