package html

import (
	"fmt"
	"regexp"
	"strings"

	"mdinliner/internal/css"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// styleParser is shared; css.Parser holds only compiled regexes
var styleParser = css.NewParser()

var selfClosingBreak = regexp.MustCompile(`<br\s*/>`)

// GoQueryDocument wraps goquery.Document to implement our Document interface
type GoQueryDocument struct {
	doc *goquery.Document
}

// GoQueryNode wraps goquery.Selection to implement our Node interface
// Export this type so it can be used in type assertions if needed
type GoQueryNode struct {
	selection *goquery.Selection
	doc       *GoQueryDocument
}

// GoQueryParser implements our Parser interface using goquery
type GoQueryParser struct{}

// NewParser creates a new GoQuery-based HTML parser
func NewParser() *GoQueryParser {
	return &GoQueryParser{}
}

// Parse parses HTML string into a Document. Fragments are placed in an
// implied html/head/body structure
func (p *GoQueryParser) Parse(htmlStr string) (Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	return &GoQueryDocument{doc: doc}, nil
}

// Document implementation

// QuerySelector returns the first element matching the selector
func (d *GoQueryDocument) QuerySelector(selector string) (Node, error) {
	selection := d.doc.Find(selector).First()
	if selection.Length() == 0 {
		return nil, fmt.Errorf("no element found for selector: %s", selector)
	}
	return &GoQueryNode{selection: selection, doc: d}, nil
}

// QuerySelectorAll returns all elements matching the selector
func (d *GoQueryDocument) QuerySelectorAll(selector string) ([]Node, error) {
	return d.wrap(d.doc.Find(selector)), nil
}

// CreateElement creates a detached element
func (d *GoQueryDocument) CreateElement(tag string) Node {
	node := &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	}
	return &GoQueryNode{selection: goquery.NewDocumentFromNode(node).Selection, doc: d}
}

// Clone returns a deep copy of the document
func (d *GoQueryDocument) Clone() Document {
	if len(d.doc.Nodes) == 0 {
		return &GoQueryDocument{doc: goquery.NewDocumentFromNode(&html.Node{Type: html.DocumentNode})}
	}
	return &GoQueryDocument{doc: goquery.NewDocumentFromNode(CloneNode(d.doc.Nodes[0]))}
}

// Fragment serializes the first element matching rootSelector, or the
// body's inner content when there is none. Void breaks are written as <br>
func (d *GoQueryDocument) Fragment(rootSelector string) (string, error) {
	var (
		out string
		err error
	)

	if root := d.doc.Find(rootSelector).First(); rootSelector != "" && root.Length() > 0 {
		out, err = goquery.OuterHtml(root)
	} else if body := d.doc.Find("body").First(); body.Length() > 0 {
		out, err = body.Html()
	} else {
		out, err = d.doc.Html()
	}
	if err != nil {
		return "", fmt.Errorf("failed to serialize HTML: %w", err)
	}

	return selfClosingBreak.ReplaceAllString(out, "<br>"), nil
}

func (d *GoQueryDocument) wrap(selection *goquery.Selection) []Node {
	nodes := make([]Node, selection.Length())
	selection.Each(func(i int, s *goquery.Selection) {
		nodes[i] = &GoQueryNode{selection: s, doc: d}
	})
	return nodes
}

// Node implementation

// TagName returns the element's tag name
func (n *GoQueryNode) TagName() string {
	if n.selection.Length() == 0 {
		return ""
	}
	return goquery.NodeName(n.selection)
}

// SetTagName retags the element in place, keeping attributes and children
func (n *GoQueryNode) SetTagName(name string) {
	if raw := n.Raw(); raw != nil {
		raw.Data = name
		raw.DataAtom = atom.Lookup([]byte(name))
	}
}

// ID returns the element's ID attribute
func (n *GoQueryNode) ID() string {
	id, _ := n.selection.Attr("id")
	return id
}

// HasClass reports whether the class token is present
func (n *GoQueryNode) HasClass(name string) bool {
	return n.selection.HasClass(name)
}

// AddClass adds a class token unless it is already present
func (n *GoQueryNode) AddClass(name string) {
	n.selection.AddClass(name)
}

// Attr returns an attribute value and whether it exists
func (n *GoQueryNode) Attr(name string) (string, bool) {
	return n.selection.Attr(name)
}

// Text returns the text content
func (n *GoQueryNode) Text() string {
	return n.selection.Text()
}

// InnerHTML returns the inner HTML content
func (n *GoQueryNode) InnerHTML() string {
	out, _ := n.selection.Html()
	return out
}

// Children returns all child elements
func (n *GoQueryNode) Children() []Node {
	return n.doc.wrap(n.selection.Children())
}

// Has reports whether any descendant matches the selector
func (n *GoQueryNode) Has(selector string) bool {
	return n.selection.Find(selector).Length() > 0
}

// GetInlineStyle parses and returns the inline style attribute
func (n *GoQueryNode) GetInlineStyle() []css.Declaration {
	styleAttr, exists := n.selection.Attr("style")
	if !exists {
		return nil
	}
	return styleParser.ParseInlineStyle(styleAttr)
}

// SetInlineStyle sets the complete inline style attribute
func (n *GoQueryNode) SetInlineStyle(decls []css.Declaration) {
	if len(decls) == 0 {
		n.selection.RemoveAttr("style")
		return
	}
	n.selection.SetAttr("style", css.FormatDeclarations(decls))
}

// Matches checks if the element matches a compiled CSS selector
func (n *GoQueryNode) Matches(sel cascadia.Sel) bool {
	raw := n.Raw()
	if raw == nil || sel == nil {
		return false
	}
	return sel.Match(raw)
}

// SetAttribute sets an attribute on the element
func (n *GoQueryNode) SetAttribute(name, value string) {
	n.selection.SetAttr(name, value)
}

// RemoveAttribute removes an attribute from the element
func (n *GoQueryNode) RemoveAttribute(name string) {
	n.selection.RemoveAttr(name)
}

// Remove detaches the element from its parent
func (n *GoQueryNode) Remove() {
	n.selection.Remove()
}

// Empty removes all children
func (n *GoQueryNode) Empty() {
	n.selection.Empty()
}

// SetText replaces all children with a single text node
func (n *GoQueryNode) SetText(content string) {
	n.selection.SetText(content)
}

// AppendChild moves child to the end of the element's children
func (n *GoQueryNode) AppendChild(child Node) {
	if raw := child.Raw(); raw != nil {
		n.selection.AppendNodes(raw)
	}
}

// PrependChild moves child to the front of the element's children
func (n *GoQueryNode) PrependChild(child Node) {
	if raw := child.Raw(); raw != nil {
		n.selection.PrependNodes(raw)
	}
}

// Raw exposes the underlying node
func (n *GoQueryNode) Raw() *html.Node {
	if n.selection.Length() == 0 {
		return nil
	}
	return n.selection.Get(0)
}

// Helper functions

// CloneNode deep-copies a node and its subtree. The copy has no parent
func CloneNode(n *html.Node) *html.Node {
	c := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
		Attr:      append([]html.Attribute(nil), n.Attr...),
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		c.AppendChild(CloneNode(child))
	}
	return c
}

// IsBlank reports whether s holds nothing but whitespace
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
