// Package codetext rewrites the text of code blocks into markup that keeps
// its layout once pasted into an editor that collapses whitespace
//
// Text is scanned into a typed token stream: two-character backslash
// escapes (\n, \r, \t, \\) are data and pass through unchanged, real line
// breaks (LF or CRLF) become <br>, every space becomes &nbsp; and
// everything else is escaped as plain text
package codetext

import (
	"strings"

	"golang.org/x/net/html"
)

// Kind identifies a token class
type Kind int

const (
	// Text is plain character data
	Text Kind = iota
	// LiteralEscape is a backslash followed by n, r, t or a second backslash
	LiteralEscape
	// LineBreak is one LF or one CRLF pair
	LineBreak
	// SpaceRun is one or more consecutive U+0020 characters
	SpaceRun
)

func (k Kind) String() string {
	switch k {
	case LiteralEscape:
		return "literal-escape"
	case LineBreak:
		return "line-break"
	case SpaceRun:
		return "space-run"
	default:
		return "text"
	}
}

// Token is one lexical unit of code text. Value holds the source characters
type Token struct {
	Kind  Kind
	Value string
}

const (
	breakMarkup = "<br>"
	spaceMarkup = "&nbsp;"
)

var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// Tokenize scans s into tokens. Concatenating the Values yields s
func Tokenize(s string) []Token {
	var (
		tokens []Token
		start  int
		kind   = Text
	)

	flush := func(end int) {
		if end > start {
			tokens = append(tokens, Token{Kind: kind, Value: s[start:end]})
		}
		start = end
	}

	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == '\\' && i+1 < len(s) && isEscapeLetter(s[i+1]):
			flush(i)
			kind = LiteralEscape
			flush(i + 2)
			kind = Text
			i += 2
		case c == '\r' && i+1 < len(s) && s[i+1] == '\n':
			flush(i)
			kind = LineBreak
			flush(i + 2)
			kind = Text
			i += 2
		case c == '\n':
			flush(i)
			kind = LineBreak
			flush(i + 1)
			kind = Text
			i++
		case c == ' ':
			if kind != SpaceRun {
				flush(i)
				kind = SpaceRun
			}
			i++
		default:
			if kind != Text {
				flush(i)
				kind = Text
			}
			i++
		}
	}
	flush(len(s))

	return tokens
}

func isEscapeLetter(c byte) bool {
	return c == 'n' || c == 'r' || c == 't' || c == '\\'
}

// Markup renders tokens as HTML
func Markup(tokens []Token) string {
	var b strings.Builder
	for _, tok := range tokens {
		switch tok.Kind {
		case LiteralEscape:
			b.WriteString(tok.Value)
		case LineBreak:
			b.WriteString(breakMarkup)
		case SpaceRun:
			b.WriteString(strings.Repeat(spaceMarkup, len(tok.Value)))
		default:
			b.WriteString(textEscaper.Replace(tok.Value))
		}
	}
	return b.String()
}

// Escape is Markup(Tokenize(s))
func Escape(s string) string {
	return Markup(Tokenize(s))
}

// Rewrite replaces every text node below n with a raw node holding its
// escaped markup. Element descendants (highlighter spans) keep their tag
// and attributes; only their text is rewritten
func Rewrite(n *html.Node) {
	for child := n.FirstChild; child != nil; {
		next := child.NextSibling
		switch child.Type {
		case html.TextNode:
			if child.Data == "" {
				n.RemoveChild(child)
				break
			}
			n.InsertBefore(&html.Node{Type: html.RawNode, Data: Escape(child.Data)}, child)
			n.RemoveChild(child)
		case html.ElementNode:
			Rewrite(child)
		}
		child = next
	}
}
