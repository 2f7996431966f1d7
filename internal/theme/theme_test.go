package theme

import (
	"testing"
	"testing/fstest"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const record = `{
  "success": true,
  "data": {
    "style": "h1 { color: red; }",
    "styleModelList": [
      {"id": "other", "styles": [{"id": "customCss", "value": "p { color: gray; }"}]},
      {"id": "customStyle", "styles": [
        {"id": "font", "value": "ignored"},
        {"id": "customCss", "value": "p { color: blue; }"}
      ]}
    ]
  }
}`

func newStore(t *testing.T, fsys fstest.MapFS, def string) *Store {
	t.Helper()
	s, err := NewStore(fsys, def, 4, zerolog.Nop())
	require.NoError(t, err)
	return s
}

func TestParse(t *testing.T) {
	t.Parallel()

	th, err := Parse("blue", []byte(record))
	require.NoError(t, err)
	assert.Equal(t, "blue", th.Name)
	assert.Equal(t, "h1 { color: red; }", th.Style)
	assert.Equal(t, "p { color: blue; }", th.CustomCSS)
	assert.Equal(t, "h1 { color: red; }\np { color: blue; }", th.CSS())
}

func TestParseWithoutCustomCSS(t *testing.T) {
	t.Parallel()

	th, err := Parse("plain", []byte(`{"data": {"style": "p { margin: 0; }"}}`))
	require.NoError(t, err)
	assert.Empty(t, th.CustomCSS)
	assert.Equal(t, "p { margin: 0; }", th.CSS())
}

func TestParseInvalid(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{`{"data": `, `{"data": {"style": 42}}`} {
		_, err := Parse("bad", []byte(raw))
		assert.ErrorIs(t, err, ErrInvalidTheme)
	}
}

func TestNames(t *testing.T) {
	t.Parallel()

	s := newStore(t, fstest.MapFS{
		"b.json":     {Data: []byte(record)},
		"a.json":     {Data: []byte(record)},
		"notes.txt":  {Data: []byte("x")},
		"sub/c.json": {Data: []byte(record)},
	}, "")

	names, err := s.Names()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)
}

func TestDefault(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"b.json":  {Data: []byte(record)},
		"兰青.json": {Data: []byte(record)},
	}

	def, err := newStore(t, fsys, "兰青").Default()
	require.NoError(t, err)
	assert.Equal(t, "兰青", def)

	def, err = newStore(t, fsys, "missing").Default()
	require.NoError(t, err)
	assert.Equal(t, "b", def)

	_, err = newStore(t, fstest.MapFS{}, "兰青").Default()
	assert.ErrorIs(t, err, ErrThemeNotFound)
}

func TestGet(t *testing.T) {
	t.Parallel()

	s := newStore(t, fstest.MapFS{
		"good.json":   {Data: []byte(record)},
		"broken.json": {Data: []byte(`not json`)},
	}, "")

	th, err := s.Get("good")
	require.NoError(t, err)
	assert.Equal(t, "good", th.Name)

	again, err := s.Get("good")
	require.NoError(t, err)
	assert.Same(t, th, again)

	_, err = s.Get("missing")
	assert.ErrorIs(t, err, ErrThemeNotFound)

	_, err = s.Get("../good")
	assert.ErrorIs(t, err, ErrThemeNotFound)

	_, err = s.Get("broken")
	assert.ErrorIs(t, err, ErrInvalidTheme)
}

func TestResolve(t *testing.T) {
	t.Parallel()

	s := newStore(t, fstest.MapFS{
		"a.json": {Data: []byte(record)},
		"b.json": {Data: []byte(record)},
	}, "b")

	th, err := s.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, "b", th.Name)

	th, err = s.Resolve("a")
	require.NoError(t, err)
	assert.Equal(t, "a", th.Name)
}
