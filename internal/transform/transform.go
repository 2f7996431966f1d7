// Package transform reshapes a cleaned document into the decorated markup
// the target editor's themes are written against
package transform

import (
	"regexp"
	"strings"

	"mdinliner/internal/codetext"
	"mdinliner/internal/css"
	"mdinliner/internal/html"

	"github.com/rs/zerolog"
	xhtml "golang.org/x/net/html"
)

// Markers the target editor recognizes
const (
	RootID       = "nice"
	RootSelector = "#" + RootID
	RootTag      = "section"

	ToolAttr      = "data-tool"
	ToolSignature = "mdnice编辑器"
	WebsiteAttr   = "data-website"
	Website       = "https://www.mdnice.com"

	CodeBlockClass = "custom"
	HighlightClass = "hljs"
	ListWrapperTag = "section"
)

// Fixed presentational styles. Themes do not carry these; the editor adds
// them itself
const (
	AffixStyle  = "display: none;"
	PreStyle    = "border-radius: 5px; box-shadow: rgba(0, 0, 0, 0.55) 0px 2px 10px; text-align: left;"
	CodeStyle   = "overflow-x: auto; padding: 16px; color: #abb2bf; padding-top: 15px; background: #282c34; border-radius: 5px; display: -webkit-box; font-family: Consolas, Monaco, Menlo, monospace; font-size: 12px;"
	TopBarStyle = "display: block; background: url(https://files.mdnice.com/user/3441/876cad08-0422-409d-bb5a-08afec5da8ee.svg); height: 30px; width: 100%; background-size: 40px; background-repeat: no-repeat; background-color: #282c34; margin-bottom: -7px; border-radius: 5px; background-position: 10px 10px;"
)

const (
	headingSelector = "h1, h2, h3, h4, h5, h6"
	taggedSelector  = "p, ul, ol, blockquote, hr"
)

// corruptValue matches values like "12px ..." that broken exports leave in
// color and background declarations
var corruptValue = regexp.MustCompile(`^\d+px`)

// Report counts what a run decorated
type Report struct {
	HeadingsDecorated   int
	CodeBlocksDecorated int
	ListItemsWrapped    int
	WrappersPruned      int
}

// Transformer runs the structural transform stage
type Transformer struct {
	log zerolog.Logger
}

// New creates a Transformer
func New(log zerolog.Logger) *Transformer {
	return &Transformer{log: log}
}

// Run returns a decorated copy of doc. The input is not modified
func (t *Transformer) Run(doc html.Document) (html.Document, Report) {
	out := doc.Clone()
	var report Report

	relabelRoot(out)
	report.HeadingsDecorated = decorateHeadings(out)
	report.CodeBlocksDecorated = decorateCodeBlocks(out)
	report.ListItemsWrapped = wrapListItems(out)
	report.WrappersPruned = pruneEmptyWrappers(out)
	tagBlocks(out)
	normalizeListWhitespace(out)

	t.log.Debug().
		Int("headings", report.HeadingsDecorated).
		Int("code_blocks", report.CodeBlocksDecorated).
		Int("list_items", report.ListItemsWrapped).
		Int("pruned", report.WrappersPruned).
		Msg("structural transform applied")

	return out, report
}

func relabelRoot(doc html.Document) {
	root, err := doc.QuerySelector(RootSelector)
	if err != nil {
		return
	}
	if root.TagName() != RootTag {
		root.SetTagName(RootTag)
	}
	setIfAbsent(root, ToolAttr, ToolSignature)
	setIfAbsent(root, WebsiteAttr, Website)
}

func decorateHeadings(doc html.Document) int {
	headings, _ := doc.QuerySelectorAll(headingSelector)
	count := 0
	for _, heading := range headings {
		if heading.Has("span.content") {
			continue
		}

		text := strings.TrimSpace(heading.Text())
		heading.Empty()

		prefix := doc.CreateElement("span")
		prefix.AddClass("prefix")
		prefix.SetAttribute("style", AffixStyle)

		content := doc.CreateElement("span")
		content.AddClass("content")
		content.SetText(text)

		suffix := doc.CreateElement("span")
		suffix.AddClass("suffix")
		suffix.SetAttribute("style", AffixStyle)

		heading.AppendChild(prefix)
		heading.AppendChild(content)
		heading.AppendChild(suffix)
		setIfAbsent(heading, ToolAttr, ToolSignature)
		count++
	}
	return count
}

func decorateCodeBlocks(doc html.Document) int {
	pres, _ := doc.QuerySelectorAll("pre")
	count := 0
	for _, pre := range pres {
		if pre.HasClass(CodeBlockClass) {
			continue
		}
		DecorateCodeBlock(doc, pre)
		count++
	}
	return count
}

// DecorateCodeBlock applies the code block decoration to pre. It always
// inserts a new top bar, so calling it twice on one block yields two bars
func DecorateCodeBlock(doc html.Document, pre html.Node) {
	pre.AddClass(CodeBlockClass)
	pre.SetAttribute(ToolAttr, ToolSignature)
	existing, _ := pre.Attr("style")
	pre.SetAttribute("style", AppendStyle(existing, PreStyle))

	code := directChild(pre, "code")
	if code == nil {
		text := pre.Text()
		pre.Empty()
		code = doc.CreateElement("code")
		code.SetText(text)
		pre.AppendChild(code)
	}

	code.AddClass(HighlightClass)
	cleaned := css.FormatDeclarations(dropCorruptDeclarations(code.GetInlineStyle()))
	code.SetAttribute("style", AppendStyle(cleaned, CodeStyle))
	codetext.Rewrite(code.Raw())

	bar := doc.CreateElement("span")
	bar.SetAttribute("style", TopBarStyle)
	pre.PrependChild(bar)
}

func dropCorruptDeclarations(decls []css.Declaration) []css.Declaration {
	var kept []css.Declaration
	for _, d := range decls {
		if (d.Property == "color" || d.Property == "background") && corruptValue.MatchString(d.Value) {
			continue
		}
		kept = append(kept, d)
	}
	return kept
}

func wrapListItems(doc html.Document) int {
	items, _ := doc.QuerySelectorAll("li")
	count := 0
	for _, li := range items {
		if li.Has(ListWrapperTag) || !hasContent(li.Raw()) {
			continue
		}

		wrapper := doc.CreateElement(ListWrapperTag)
		raw, target := li.Raw(), wrapper.Raw()
		for child := raw.FirstChild; child != nil; {
			next := child.NextSibling
			raw.RemoveChild(child)
			target.AppendChild(child)
			child = next
		}
		li.AppendChild(wrapper)
		count++
	}
	return count
}

// pruneEmptyWrappers walks in reverse document order so a wrapper removed
// inside an item is seen before the item itself
func pruneEmptyWrappers(doc html.Document) int {
	candidates, _ := doc.QuerySelectorAll(ListWrapperTag + ", li")
	count := 0
	for i := len(candidates) - 1; i >= 0; i-- {
		node := candidates[i]
		if node.ID() == RootID {
			continue
		}
		if html.IsBlank(node.Text()) && len(node.Children()) == 0 {
			node.Remove()
			count++
		}
	}
	return count
}

func tagBlocks(doc html.Document) {
	blocks, _ := doc.QuerySelectorAll(taggedSelector)
	for _, block := range blocks {
		setIfAbsent(block, ToolAttr, ToolSignature)
	}
}

// normalizeListWhitespace drops whitespace text right after <ul>/<ol> and
// right after </li>; the editor turns it into empty bullets
func normalizeListWhitespace(doc html.Document) {
	lists, _ := doc.QuerySelectorAll("ul, ol")
	for _, list := range lists {
		raw := list.Raw()
		// removed items leave adjacent text nodes that are never merged
		for isBlankText(raw.FirstChild) {
			raw.RemoveChild(raw.FirstChild)
		}
		for child := raw.FirstChild; child != nil; child = child.NextSibling {
			if child.Type != xhtml.ElementNode || child.Data != "li" {
				continue
			}
			for isBlankText(child.NextSibling) {
				raw.RemoveChild(child.NextSibling)
			}
		}
	}
}

// AppendStyle concatenates two style attribute values
func AppendStyle(existing, extra string) string {
	existing = strings.TrimRight(strings.TrimSpace(existing), "; ")
	if existing == "" {
		return extra
	}
	return existing + "; " + extra
}

func setIfAbsent(node html.Node, name, value string) {
	if _, ok := node.Attr(name); !ok {
		node.SetAttribute(name, value)
	}
}

func directChild(parent html.Node, tag string) html.Node {
	for _, child := range parent.Children() {
		if child.TagName() == tag {
			return child
		}
	}
	return nil
}

func hasContent(n *xhtml.Node) bool {
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type != xhtml.TextNode || !html.IsBlank(child.Data) {
			return true
		}
	}
	return false
}

func isBlankText(n *xhtml.Node) bool {
	return n != nil && n.Type == xhtml.TextNode && html.IsBlank(n.Data)
}
