package html

import (
	"mdinliner/internal/css"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// Node represents an HTML element in the DOM tree
// This interface can be implemented by any HTML parsing library
type Node interface {
	// Core node information
	TagName() string
	SetTagName(name string)
	ID() string
	HasClass(name string) bool
	AddClass(name string)
	Attr(name string) (string, bool)

	// Content access
	Text() string
	InnerHTML() string

	// Tree navigation
	Children() []Node
	Has(selector string) bool

	// Style manipulation
	GetInlineStyle() []css.Declaration
	SetInlineStyle(decls []css.Declaration)

	// Selector matching support
	Matches(sel cascadia.Sel) bool

	// Modification
	SetAttribute(name, value string)
	RemoveAttribute(name string)
	Remove()
	Empty()
	SetText(content string)
	AppendChild(child Node)
	PrependChild(child Node)

	// Raw exposes the underlying node for text-level rewriting
	Raw() *html.Node
}

// Document represents a complete HTML document owned by one pipeline stage
type Document interface {
	// Element selection
	QuerySelector(selector string) (Node, error)
	QuerySelectorAll(selector string) ([]Node, error)

	// Node creation
	CreateElement(tag string) Node

	// Clone returns a deep copy sharing no nodes with the receiver
	Clone() Document

	// Serialization
	Fragment(rootSelector string) (string, error)
}

// Parser handles parsing HTML documents
type Parser interface {
	Parse(html string) (Document, error)
}
