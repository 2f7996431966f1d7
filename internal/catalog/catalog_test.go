package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

const themeList = `{
  "success": true,
  "data": {
    "themeList": [
      {"themeId": 1, "name": "兰青", "writingOutId": "w1"},
      {"themeId": 2, "name": "a/b", "outId": "o2"},
      {"themeId": 3, "name": "gone", "outId": "o3"},
      {"themeId": 4, "name": "no out id"}
    ]
  }
}`

type fakeAPI struct {
	mu       sync.Mutex
	auth     []string
	payloads []styleRequest
}

func (f *fakeAPI) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /themes", func(w http.ResponseWriter, r *http.Request) {
		f.record(r.Header.Get("Authorization"), nil)
		assert.Equal(t, "100", r.URL.Query().Get("pageSize"))
		_, _ = io.WriteString(w, themeList)
	})
	mux.HandleFunc("PUT /articles/styles", func(w http.ResponseWriter, r *http.Request) {
		var req styleRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		f.record(r.Header.Get("Authorization"), &req)
		assert.Equal(t, "https://editor.mdnice.com", r.Header.Get("Origin"))

		if req.ThemeID == 3 {
			_, _ = io.WriteString(w, `{"success": false, "code": 404, "message": "文章不存在"}`)
			return
		}
		fmt.Fprintf(w, `{"success":true,"data":{"style":"p{color:red}","themeId":%d}}`, req.ThemeID)
	})
	return mux
}

func (f *fakeAPI) record(auth string, req *styleRequest) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.auth = append(f.auth, auth)
	if req != nil {
		f.payloads = append(f.payloads, *req)
	}
}

func TestSync(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	dir := filepath.Join(t.TempDir(), "theme")
	client := New(
		WithBaseURL(srv.URL),
		WithAuthorization("Bearer token"),
		WithDelay(0),
	)

	report, err := client.Sync(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, Report{Listed: 4, Saved: 2, Skipped: 2}, report)

	api.mu.Lock()
	payloads, auths := api.payloads, api.auth
	api.mu.Unlock()

	assert.Equal(t, []styleRequest{
		{OutID: "w1", ThemeID: 1},
		{OutID: "o2", ThemeID: 2},
		{OutID: "o3", ThemeID: 3},
	}, payloads)
	require.Len(t, auths, 4)
	for _, auth := range auths {
		assert.Equal(t, "Bearer token", auth)
	}

	saved, err := os.ReadFile(filepath.Join(dir, "兰青.json"))
	require.NoError(t, err)
	assert.Equal(t, "p{color:red}", gjson.GetBytes(saved, "data.style").String())

	_, err = os.Stat(filepath.Join(dir, "a_b.json"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "gone.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestListUnsuccessful(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"success": false, "message": "unauthorized"}`)
	}))
	defer srv.Close()

	_, err := New(WithBaseURL(srv.URL)).List(context.Background())
	assert.ErrorIs(t, err, ErrUnsuccessful)
}

func TestListHTTPError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New(WithBaseURL(srv.URL)).List(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestSanitizeFilename(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"兰青":          "兰青",
		`a\b/c:d*e?f`: "a_b_c_d_e_f",
		`"x"<y>|z`:    "_x__y__z",
		"  padded  ":  "padded",
		"   ":         "unnamed",
	}

	for in, want := range tests {
		assert.Equal(t, want, SanitizeFilename(in), in)
	}
}
