package converter

import (
	"context"
	"strings"
	"testing"
	"testing/fstest"

	"mdinliner/internal/config"
	"mdinliner/internal/html"
	"mdinliner/internal/markdown"
	"mdinliner/internal/theme"
	"mdinliner/internal/transform"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newConverter(t *testing.T, renderer markdown.Renderer, themes fstest.MapFS) *Converter {
	t.Helper()
	store, err := theme.NewStore(themes, "dark", 8, zerolog.Nop())
	require.NoError(t, err)
	if renderer == nil {
		renderer = markdown.NewGoldmarkRenderer(markdown.Options{AllowRawHTML: true})
	}
	return New(renderer, store, config.Default(), zerolog.Nop())
}

func themeFS(style string) fstest.MapFS {
	return fstest.MapFS{
		"dark.json": {Data: []byte(`{"data": {"style": "` + style + `"}}`)},
	}
}

func TestConvertEndToEnd(t *testing.T) {
	t.Parallel()

	conv := newConverter(t, nil, themeFS("pre { background: #000; }"))

	res, err := conv.Convert(context.Background(), "# Title\n\n- item1\n- \n- item3\n\n```\n  code\n```", "dark")
	require.NoError(t, err)
	assert.Equal(t, "dark", res.Theme)
	assert.Equal(t, "pre { background: #000; }", res.Style)

	doc, err := html.NewParser().Parse(res.HTML)
	require.NoError(t, err)

	root, err := doc.QuerySelector(transform.RootSelector)
	require.NoError(t, err)
	assert.Equal(t, "section", root.TagName())
	assert.True(t, strings.HasPrefix(res.HTML, `<section id="nice"`))

	content, err := doc.QuerySelector("h1 span.content")
	require.NoError(t, err)
	assert.Equal(t, "Title", content.Text())

	items, err := doc.QuerySelectorAll("li")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "item1", strings.TrimSpace(items[0].Text()))
	assert.Equal(t, "item3", strings.TrimSpace(items[1].Text()))

	pre, err := doc.QuerySelector("pre")
	require.NoError(t, err)
	style, _ := pre.Attr("style")
	assert.Contains(t, style, "background: #000")
	assert.Contains(t, style, "border-radius: 5px")
	assert.Contains(t, style, "text-align: left")

	assert.Contains(t, res.HTML, "&nbsp;&nbsp;code<br>")
	assert.NotContains(t, res.HTML, "<br/>")
	assert.Equal(t, 1, res.Stats.Preclean.ListItemsRemoved)
	assert.NotRegexp(t, `</li>\s+<li`, res.HTML)
}

func TestConvertLeavesNoWhitespaceBetweenItems(t *testing.T) {
	t.Parallel()

	conv := newConverter(t, nil, themeFS(""))

	tests := []struct {
		name string
		src  string
	}{
		{"removed middle item", "- a\n- \n- b"},
		{"nested lists", "1. a\n2. \n   - \n   - b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := conv.Convert(context.Background(), tt.src, "dark")
			require.NoError(t, err)
			assert.NotRegexp(t, `<(ul|ol)[^>]*>\s`, res.HTML)
			assert.NotRegexp(t, `</li>\s`, res.HTML)
		})
	}
}

func TestProcessDropsWhitespaceLeftByDeadItems(t *testing.T) {
	t.Parallel()

	conv := newConverter(t, nil, themeFS(""))

	res, err := conv.Process(context.Background(), "<ul>\n<li>a</li>\n<li> </li>\n<li>b</li>\n</ul>", "")
	require.NoError(t, err)
	assert.Contains(t, res.HTML, "<li><section>a</section></li><li><section>b</section></li></ul>")
}

func TestConvertAppliesCustomCSS(t *testing.T) {
	t.Parallel()

	conv := newConverter(t, nil, fstest.MapFS{
		"dark.json": {Data: []byte(`{"data": {
			"style": "#nice p { color: red; }",
			"styleModelList": [{"id": "customStyle", "styles": [{"id": "customCss", "value": "#nice p { color: blue; }"}]}]
		}}`)},
	})

	res, err := conv.Convert(context.Background(), "text", "")
	require.NoError(t, err)
	assert.Equal(t, "#nice p { color: blue; }", res.CustomCSS)
	assert.Contains(t, res.HTML, `style="color: blue;"`)
}

func TestConvertPreservesLiteralEscapes(t *testing.T) {
	t.Parallel()

	conv := newConverter(t, nil, themeFS(""))

	res, err := conv.Convert(context.Background(), "```\nprintf(\"a\\n\");\n```", "dark")
	require.NoError(t, err)
	assert.Contains(t, res.HTML, `printf("a\n");<br>`)
}

func TestConvertKeepsInlineStylesOverTheme(t *testing.T) {
	t.Parallel()

	conv := newConverter(t, nil, themeFS("#nice p { color: red; margin: 0; }"))

	res, err := conv.Convert(context.Background(), `<p style="color: green">x</p>`, "dark")
	require.NoError(t, err)
	assert.Contains(t, res.HTML, `style="margin: 0; color: green;"`)
}

func TestConvertThemeErrors(t *testing.T) {
	t.Parallel()

	conv := newConverter(t, nil, fstest.MapFS{
		"broken.json": {Data: []byte("{")},
	})

	_, err := conv.Convert(context.Background(), "x", "missing")
	assert.ErrorIs(t, err, theme.ErrThemeNotFound)
	assert.NotErrorIs(t, err, ErrConversionFailed)

	_, err = conv.Convert(context.Background(), "x", "broken")
	assert.ErrorIs(t, err, theme.ErrInvalidTheme)
}

func TestConvertCanceled(t *testing.T) {
	t.Parallel()

	conv := newConverter(t, nil, themeFS(""))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := conv.Convert(ctx, "x", "dark")
	assert.ErrorIs(t, err, ErrConversionFailed)
	assert.ErrorIs(t, err, context.Canceled)
}

type panickingRenderer struct{}

func (panickingRenderer) Render(context.Context, string) (string, error) {
	panic("boom")
}

func TestConvertRecoversPanics(t *testing.T) {
	t.Parallel()

	conv := newConverter(t, panickingRenderer{}, themeFS(""))

	res, err := conv.Convert(context.Background(), "x", "dark")
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrConversionFailed)
	assert.Contains(t, err.Error(), "boom")
}

func TestProcessIsStable(t *testing.T) {
	t.Parallel()

	conv := newConverter(t, nil, themeFS(""))
	fragment := "<h2>A</h2><ul>\n<li>x</li>\n</ul>"

	first, err := conv.Process(context.Background(), fragment, "h2 { color: red; }")
	require.NoError(t, err)
	second, err := conv.Process(context.Background(), fragment, "h2 { color: red; }")
	require.NoError(t, err)

	assert.Equal(t, first.HTML, second.HTML)
	assert.Equal(t, 1, strings.Count(first.HTML, `class="content"`))
}
