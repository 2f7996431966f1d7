package transform

import (
	"testing"

	"mdinliner/internal/html"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, src string) html.Document {
	t.Helper()
	doc, err := html.NewParser().Parse(`<div id="nice">` + src + `</div>`)
	require.NoError(t, err)
	return doc
}

func run(t *testing.T, src string) (html.Document, Report) {
	t.Helper()
	return New(zerolog.Nop()).Run(parse(t, src))
}

func fragment(t *testing.T, doc html.Document) string {
	t.Helper()
	out, err := doc.Fragment(RootSelector)
	require.NoError(t, err)
	return out
}

func TestRelabelRoot(t *testing.T) {
	t.Parallel()

	out, _ := run(t, "")
	assert.Equal(t, `<section id="nice" data-tool="mdnice编辑器" data-website="https://www.mdnice.com"></section>`, fragment(t, out))
}

func TestDecorateHeadings(t *testing.T) {
	t.Parallel()

	out, report := run(t, `<h1 id="title">Title</h1><h3>Sub <em>part</em></h3>`)
	assert.Equal(t, 2, report.HeadingsDecorated)

	h1, err := out.QuerySelector("h1")
	require.NoError(t, err)
	assert.Equal(t,
		`<span class="prefix" style="display: none;"></span><span class="content">Title</span><span class="suffix" style="display: none;"></span>`,
		h1.InnerHTML())
	tool, _ := h1.Attr(ToolAttr)
	assert.Equal(t, ToolSignature, tool)

	content, err := out.QuerySelector("h3 span.content")
	require.NoError(t, err)
	assert.Equal(t, "Sub part", content.Text())
}

func TestDecorateCodeBlocks(t *testing.T) {
	t.Parallel()

	out, report := run(t, "<pre><code>  a\nb</code></pre>")
	assert.Equal(t, 1, report.CodeBlocksDecorated)

	pre, err := out.QuerySelector("pre")
	require.NoError(t, err)
	assert.True(t, pre.HasClass(CodeBlockClass))
	style, _ := pre.Attr("style")
	assert.Equal(t, PreStyle, style)

	children := pre.Children()
	require.Len(t, children, 2)
	assert.Equal(t, "span", children[0].TagName())
	barStyle, _ := children[0].Attr("style")
	assert.Equal(t, TopBarStyle, barStyle)

	code := children[1]
	assert.True(t, code.HasClass(HighlightClass))
	codeStyle, _ := code.Attr("style")
	assert.Equal(t, CodeStyle, codeStyle)
	assert.Equal(t, "&nbsp;&nbsp;a<br>b", code.InnerHTML())
}

func TestDecorateCodeBlockWithoutCode(t *testing.T) {
	t.Parallel()

	out, _ := run(t, "<pre>x y</pre>")

	code, err := out.QuerySelector("pre > code.hljs")
	require.NoError(t, err)
	assert.Equal(t, "x&nbsp;y", code.InnerHTML())
}

func TestDecorateCodeBlockDropsCorruptStyles(t *testing.T) {
	t.Parallel()

	out, _ := run(t, `<pre><code style="color: 12px red; font-size: 14px; background: 3px">x</code></pre>`)

	code, err := out.QuerySelector("code")
	require.NoError(t, err)
	style, _ := code.Attr("style")
	assert.Equal(t, "font-size: 14px; "+CodeStyle, style)
}

func TestDecorateCodeBlockTwiceAddsSecondBar(t *testing.T) {
	t.Parallel()

	doc := parse(t, "<pre><code>x</code></pre>")
	pre, err := doc.QuerySelector("pre")
	require.NoError(t, err)

	DecorateCodeBlock(doc, pre)
	DecorateCodeBlock(doc, pre)

	bars, err := doc.QuerySelectorAll("pre > span")
	require.NoError(t, err)
	assert.Len(t, bars, 2)
}

func TestWrapListItems(t *testing.T) {
	t.Parallel()

	out, report := run(t, "<ul>\n<li>a</li>\n<li><p>b</p></li>\n</ul>")
	assert.Equal(t, 2, report.ListItemsWrapped)

	ul, err := out.QuerySelector("ul")
	require.NoError(t, err)
	assert.Equal(t,
		`<li><section>a</section></li><li><section><p data-tool="mdnice编辑器">b</p></section></li>`,
		ul.InnerHTML())
}

func TestPruneEmptyWrappers(t *testing.T) {
	t.Parallel()

	out, report := run(t, `<ol><li>a</li><li><section> </section></li></ol>`)
	assert.Equal(t, 2, report.WrappersPruned)

	items, err := out.QuerySelectorAll("li")
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestNormalizeListWhitespace(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "single gaps",
			src:  "<ul>\n<li>a</li>\n<li>b</li>\n</ul>",
			want: "<li><section>a</section></li><li><section>b</section></li>",
		},
		{
			name: "gap left by pruned item",
			src:  "<ul>\n<li>a</li>\n<li> </li>\n<li>b</li>\n</ul>",
			want: "<li><section>a</section></li><li><section>b</section></li>",
		},
		{
			name: "pruned first item",
			src:  "<ol>\n<li></li>\n<li>b</li>\n</ol>",
			want: "<li><section>b</section></li>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _ := run(t, tt.src)
			list, err := out.QuerySelector("ul, ol")
			require.NoError(t, err)
			assert.Equal(t, tt.want, list.InnerHTML())
		})
	}
}

func TestRunIsIdempotent(t *testing.T) {
	t.Parallel()

	tr := New(zerolog.Nop())
	once, _ := tr.Run(parse(t, "<h2>Head</h2><ul>\n<li>one</li>\n<li>two</li>\n</ul><pre><code>x\n</code></pre><p>text</p>"))
	twice, report := tr.Run(once)

	assert.Equal(t, fragment(t, once), fragment(t, twice))
	assert.Equal(t, Report{}, report)

	contents, err := twice.QuerySelectorAll("span.content")
	require.NoError(t, err)
	assert.Len(t, contents, 1)
}

func TestRunDoesNotModifyInput(t *testing.T) {
	t.Parallel()

	doc := parse(t, "<h1>T</h1><ul><li>a</li></ul>")
	before := fragment(t, doc)

	New(zerolog.Nop()).Run(doc)

	assert.Equal(t, before, fragment(t, doc))
}

func TestAppendStyle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		existing, extra, want string
	}{
		{"", "a: b;", "a: b;"},
		{"x: y", "a: b;", "x: y; a: b;"},
		{"x: y; ", "a: b;", "x: y; a: b;"},
		{"  ", "a: b;", "a: b;"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, AppendStyle(tt.existing, tt.extra))
	}
}
