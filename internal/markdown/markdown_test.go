package markdown

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		opts     Options
		src      string
		contains []string
		excludes []string
	}{
		{
			name:     "heading ids",
			src:      "# Hello World",
			contains: []string{`<h1 id="hello-world">Hello World</h1>`},
		},
		{
			name:     "hard wraps",
			src:      "a\nb",
			contains: []string{"a<br>\nb"},
		},
		{
			name:     "tables",
			src:      "| a | b |\n|---|---|\n| 1 | 2 |",
			contains: []string{"<table>", "<th>a</th>", "<td>2</td>"},
		},
		{
			name:     "strikethrough and linkify",
			src:      "~~old~~ https://example.com",
			contains: []string{"<del>old</del>", `<a href="https://example.com">https://example.com</a>`},
		},
		{
			name:     "fenced code",
			src:      "```\n  x\n```",
			contains: []string{"<pre><code>  x\n</code></pre>"},
		},
		{
			name:     "raw html allowed",
			opts:     Options{AllowRawHTML: true},
			src:      `<span class="k">x</span>`,
			contains: []string{`<span class="k">x</span>`},
		},
		{
			name:     "raw html omitted",
			src:      `<span class="k">x</span>`,
			excludes: []string{`<span class="k">`},
		},
		{
			name:     "highlighting uses inline styles",
			opts:     Options{Highlight: true, HighlightStyle: "monokai"},
			src:      "```go\nfunc main() {}\n```",
			contains: []string{`style="`, "func"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			out, err := NewGoldmarkRenderer(tt.opts).Render(context.Background(), tt.src)
			require.NoError(t, err)
			for _, want := range tt.contains {
				assert.Contains(t, out, want)
			}
			for _, unwanted := range tt.excludes {
				assert.NotContains(t, out, unwanted)
			}
		})
	}
}

func TestRenderCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewGoldmarkRenderer(Options{}).Render(ctx, "# x")
	assert.ErrorIs(t, err, context.Canceled)
}
