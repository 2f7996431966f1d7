package css

import (
	"regexp"
	"strings"

	"github.com/andybalholm/cascadia"
	cssast "github.com/aymerick/douceur/css"
	"github.com/aymerick/douceur/parser"
)

// Parser handles CSS parsing and selector compilation
type Parser struct {
	// Fallback parsing when douceur rejects the whole stylesheet
	ruleRegex      *regexp.Regexp
	commentRegex   *regexp.Regexp
	atRuleRegex    *regexp.Regexp
	importantRegex *regexp.Regexp
}

// NewParser creates a new CSS parser with compiled regexes
func NewParser() *Parser {
	return &Parser{
		// CSS rule parsing: selector { declarations }
		ruleRegex:      regexp.MustCompile(`([^{}]+)\{([^{}]*)\}`),
		commentRegex:   regexp.MustCompile(`/\*[^*]*\*+([^/*][^*]*\*+)*/`),
		atRuleRegex:    regexp.MustCompile(`@[a-zA-Z-]+[^{};]*(;|\{[^{}]*(\{[^{}]*\}[^{}]*)*\})`),
		importantRegex: regexp.MustCompile(`!\s*important\s*$`),
	}
}

// Parse parses CSS text into a Stylesheet
// Only qualified rules are kept; at-rules never apply to a single element
// unconditionally and are dropped. Selectors cascadia cannot compile and
// pseudo-element selectors are counted in Stylesheet.Skipped
func (p *Parser) Parse(cssText string) (*Stylesheet, error) {
	stylesheet := &Stylesheet{Rules: make([]Rule, 0)}

	sheet, err := parser.Parse(cssText)
	if err != nil {
		p.parseLoose(cssText, stylesheet)
		return stylesheet, nil
	}

	for _, rule := range sheet.Rules {
		if rule == nil || rule.Kind != cssast.QualifiedRule {
			continue
		}
		p.addRule(stylesheet, rule.Selectors, convertDeclarations(rule.Declarations))
	}

	return stylesheet, nil
}

// parseLoose recovers flat rules with a regex when the tokenizer gives up
func (p *Parser) parseLoose(cssText string, stylesheet *Stylesheet) {
	cssText = p.commentRegex.ReplaceAllString(cssText, "")
	cssText = p.atRuleRegex.ReplaceAllString(cssText, "")

	for _, match := range p.ruleRegex.FindAllStringSubmatch(cssText, -1) {
		selectors := strings.Split(match[1], ",")
		p.addRule(stylesheet, selectors, p.parseDeclarations(match[2]))
	}
}

func (p *Parser) addRule(stylesheet *Stylesheet, selectors []string, decls []Declaration) {
	if len(decls) == 0 {
		return
	}

	for _, raw := range selectors {
		selector := strings.Join(strings.Fields(raw), " ")
		if selector == "" {
			continue
		}

		sel, err := cascadia.Parse(selector)
		if err != nil || sel.PseudoElement() != "" {
			stylesheet.Skipped++
			continue
		}

		stylesheet.Rules = append(stylesheet.Rules, Rule{
			Selector:     selector,
			Sel:          sel,
			Specificity:  SpecificityFromSelector(sel),
			Declarations: cloneDeclarations(decls),
			SourceOrder:  len(stylesheet.Rules),
		})
	}
}

func convertDeclarations(list []*cssast.Declaration) []Declaration {
	out := make([]Declaration, 0, len(list))
	for _, decl := range list {
		if decl == nil {
			continue
		}
		property := NormalizePropertyName(decl.Property)
		value := strings.TrimSpace(decl.Value)
		if property == "" || value == "" {
			continue
		}
		out = append(out, Declaration{Property: property, Value: value, Important: decl.Important})
	}
	return out
}

func cloneDeclarations(src []Declaration) []Declaration {
	out := make([]Declaration, len(src))
	copy(out, src)
	return out
}

// ParseInlineStyle parses a style attribute into declarations, keeping
// their authored order. Malformed parts are dropped
func (p *Parser) ParseInlineStyle(styleAttr string) []Declaration {
	if strings.TrimSpace(styleAttr) == "" {
		return nil
	}

	// douceur only closes a declaration on ';' or '}'
	terminated := strings.TrimSpace(styleAttr)
	if !strings.HasSuffix(terminated, ";") {
		terminated += ";"
	}

	decls, err := parser.ParseDeclarations(terminated)
	if err != nil {
		return p.parseDeclarations(styleAttr)
	}
	return convertDeclarations(decls)
}

// parseDeclarations parses CSS declarations from a declaration block
func (p *Parser) parseDeclarations(declarationsText string) []Declaration {
	var declarations []Declaration

	for _, part := range p.smartSplit(declarationsText, ';') {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		colonIndex := p.findUnquotedChar(part, ':')
		if colonIndex == -1 {
			continue
		}

		property := NormalizePropertyName(part[:colonIndex])
		value := strings.TrimSpace(part[colonIndex+1:])
		if property == "" || value == "" {
			continue
		}

		important := p.importantRegex.MatchString(value)
		if important {
			value = strings.TrimSpace(p.importantRegex.ReplaceAllString(value, ""))
		}

		declarations = append(declarations, Declaration{
			Property:  property,
			Value:     value,
			Important: important,
		})
	}

	return declarations
}

// smartSplit splits a string by delimiter, respecting quoted strings and
// parentheses (data: URLs carry semicolons)
func (p *Parser) smartSplit(s string, delimiter rune) []string {
	var parts []string
	var current strings.Builder
	var inQuotes bool
	var quoteChar rune
	depth := 0

	for _, char := range s {
		switch {
		case !inQuotes && (char == '"' || char == '\''):
			inQuotes = true
			quoteChar = char
			current.WriteRune(char)
		case inQuotes && char == quoteChar:
			inQuotes = false
			current.WriteRune(char)
		case !inQuotes && char == '(':
			depth++
			current.WriteRune(char)
		case !inQuotes && char == ')' && depth > 0:
			depth--
			current.WriteRune(char)
		case !inQuotes && depth == 0 && char == delimiter:
			if current.Len() > 0 {
				parts = append(parts, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(char)
		}
	}

	if current.Len() > 0 {
		parts = append(parts, current.String())
	}

	return parts
}

// findUnquotedChar finds the first occurrence of char that's not in quotes
func (p *Parser) findUnquotedChar(s string, char rune) int {
	var inQuotes bool
	var quoteChar rune

	for i, c := range s {
		switch {
		case !inQuotes && (c == '"' || c == '\''):
			inQuotes = true
			quoteChar = c
		case inQuotes && c == quoteChar:
			inQuotes = false
		case !inQuotes && c == char:
			return i
		}
	}

	return -1
}

// NormalizePropertyName normalizes CSS property names
func NormalizePropertyName(property string) string {
	return strings.ToLower(strings.TrimSpace(property))
}
