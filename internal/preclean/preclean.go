// Package preclean repairs structural defects the Markdown renderer can
// leave behind before the tree is decorated
package preclean

import (
	"strings"

	"mdinliner/internal/html"

	"github.com/rs/zerolog"
	xhtml "golang.org/x/net/html"
)

// blockTags may never follow the code child of a pre
var blockTags = map[string]bool{
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"ul": true, "ol": true, "table": true, "blockquote": true, "hr": true, "p": true,
}

// Report counts the repairs a run made
type Report struct {
	CodeBlocksRepaired int
	ListItemsRemoved   int
}

// Cleaner runs the pre-clean stage
type Cleaner struct {
	log zerolog.Logger
}

// New creates a Cleaner that logs repairs at debug level
func New(log zerolog.Logger) *Cleaner {
	return &Cleaner{log: log}
}

// Run returns a repaired copy of doc. The input is not modified
func (c *Cleaner) Run(doc html.Document) (html.Document, Report) {
	out := doc.Clone()
	var report Report

	pres, _ := out.QuerySelectorAll("pre")
	for _, pre := range pres {
		if repairCodeBlock(out, pre) {
			report.CodeBlocksRepaired++
		}
	}

	items, _ := out.QuerySelectorAll("li")
	for _, li := range items {
		if isDeadListItem(li) {
			li.Remove()
			report.ListItemsRemoved++
		}
	}

	if report != (Report{}) {
		c.log.Debug().
			Int("code_blocks_repaired", report.CodeBlocksRepaired).
			Int("list_items_removed", report.ListItemsRemoved).
			Msg("pre-clean repaired document")
	}

	return out, report
}

// repairCodeBlock reduces a pre that swallowed block elements to its first
// code child. It reports whether anything changed
func repairCodeBlock(doc html.Document, pre html.Node) bool {
	raw := pre.Raw()

	var code *xhtml.Node
	invalidAfterCode := false
	hasBlock := false
	for child := raw.FirstChild; child != nil; child = child.NextSibling {
		if child.Type != xhtml.ElementNode {
			continue
		}
		switch {
		case code == nil && child.Data == "code":
			code = child
		case blockTags[child.Data]:
			hasBlock = true
			if code != nil {
				invalidAfterCode = true
			}
		}
	}

	switch {
	case code != nil && invalidAfterCode:
		for child := raw.FirstChild; child != nil; {
			next := child.NextSibling
			if child != code {
				raw.RemoveChild(child)
			}
			child = next
		}
		return true
	case code == nil && hasBlock:
		text := pre.Text()
		pre.Empty()
		wrapper := doc.CreateElement("code")
		wrapper.SetText(text)
		pre.AppendChild(wrapper)
		return true
	}

	return false
}

func isDeadListItem(li html.Node) bool {
	return strings.TrimSpace(li.Text()) == "" && strings.TrimSpace(li.InnerHTML()) == ""
}
