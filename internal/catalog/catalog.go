// Package catalog downloads theme records from the editor's public API
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

// AuthEnv names the environment variable holding the Authorization header value
const AuthEnv = "MDNICE_AUTH"

const (
	DefaultBaseURL = "https://api.mdnice.com"

	themesPath = "/themes?pageSize=100&currentPage=1"
	stylesPath = "/articles/styles"

	editorOrigin     = "https://editor.mdnice.com"
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/143.0.0.0 Safari/537.36"
	maxBodySize      = 10 * 1024 * 1024
)

// ErrUnsuccessful indicates the API answered with success set to false
var ErrUnsuccessful = errors.New("catalog request unsuccessful")

// Entry is one theme listed by the catalog
type Entry struct {
	ThemeID int64
	Name    string
	OutID   string
}

// Report summarizes a Sync run
type Report struct {
	Listed  int
	Saved   int
	Skipped int
	Failed  int
}

// Client talks to the theme catalog API
type Client struct {
	client  *http.Client
	baseURL string
	auth    string
	delay   time.Duration
	log     zerolog.Logger
}

// Option configures the Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.client = c
	}
}

// WithBaseURL points the client at another API host
func WithBaseURL(u string) Option {
	return func(cl *Client) {
		cl.baseURL = strings.TrimRight(u, "/")
	}
}

// WithAuthorization sets the Authorization header value
func WithAuthorization(auth string) Option {
	return func(cl *Client) {
		cl.auth = auth
	}
}

// WithDelay sets the pause between style requests
func WithDelay(d time.Duration) Option {
	return func(cl *Client) {
		cl.delay = d
	}
}

// WithLogger sets the logger
func WithLogger(log zerolog.Logger) Option {
	return func(cl *Client) {
		cl.log = log
	}
}

// New creates a Client. Authorization defaults to the AuthEnv variable
func New(opts ...Option) *Client {
	c := &Client{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL: DefaultBaseURL,
		auth:    os.Getenv(AuthEnv),
		delay:   200 * time.Millisecond,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// List returns the themes the catalog offers
func (c *Client) List(ctx context.Context) ([]Entry, error) {
	body, err := c.do(ctx, http.MethodGet, themesPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list themes: %w", err)
	}

	if !gjson.GetBytes(body, "success").Bool() {
		return nil, fmt.Errorf("%w: %s", ErrUnsuccessful, gjson.GetBytes(body, "message").String())
	}

	var entries []Entry
	gjson.GetBytes(body, "data.themeList").ForEach(func(_, item gjson.Result) bool {
		outID := item.Get("writingOutId").String()
		if outID == "" {
			outID = item.Get("outId").String()
		}
		entries = append(entries, Entry{
			ThemeID: item.Get("themeId").Int(),
			Name:    item.Get("name").String(),
			OutID:   outID,
		})
		return true
	})

	c.log.Info().Int("themes", len(entries)).Msg("theme list fetched")
	return entries, nil
}

type styleRequest struct {
	OutID   string `json:"outId"`
	ThemeID int64  `json:"themeId"`
}

// Style fetches the style record of one theme. A record the API reports as
// unsuccessful yields ErrUnsuccessful
func (c *Client) Style(ctx context.Context, e Entry) ([]byte, error) {
	payload, err := json.Marshal(styleRequest{OutID: e.OutID, ThemeID: e.ThemeID})
	if err != nil {
		return nil, fmt.Errorf("failed to encode style request: %w", err)
	}

	body, err := c.do(ctx, http.MethodPut, stylesPath, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch style of %q: %w", e.Name, err)
	}

	if !gjson.GetBytes(body, "success").Bool() {
		return nil, fmt.Errorf("%w: %s (code=%s, message=%s)", ErrUnsuccessful, e.Name,
			gjson.GetBytes(body, "code").String(), gjson.GetBytes(body, "message").String())
	}
	return body, nil
}

// Sync downloads every listed theme into dir as <name>.json. Unusable
// entries and unsuccessful records are skipped; a failing theme does not
// stop the run
func (c *Client) Sync(ctx context.Context, dir string) (Report, error) {
	var report Report

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return report, fmt.Errorf("failed to create theme dir: %w", err)
	}

	entries, err := c.List(ctx)
	if err != nil {
		return report, err
	}
	report.Listed = len(entries)

	for idx, e := range entries {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		if e.OutID == "" || e.ThemeID == 0 {
			c.log.Warn().Interface("entry", e).Msg("skipping invalid theme")
			report.Skipped++
			continue
		}
		if e.Name == "" {
			e.Name = fmt.Sprintf("theme_%d", e.ThemeID)
		}

		log := c.log.With().Str("theme", e.Name).Int64("id", e.ThemeID).Logger()
		log.Info().Msgf("(%d/%d) fetching theme", idx+1, len(entries))

		record, err := c.Style(ctx, e)
		switch {
		case errors.Is(err, ErrUnsuccessful):
			log.Warn().Err(err).Msg("theme record unavailable, skipping")
			report.Skipped++
			continue
		case err != nil:
			log.Error().Err(err).Msg("theme fetch failed")
			report.Failed++
			continue
		}

		target := filepath.Join(dir, SanitizeFilename(e.Name)+".json")
		pretty := gjson.GetBytes(record, "@pretty").Raw
		if err := os.WriteFile(target, []byte(pretty), 0o644); err != nil {
			log.Error().Err(err).Msg("failed to save theme")
			report.Failed++
			continue
		}
		log.Info().Str("path", target).Msg("theme saved")
		report.Saved++

		select {
		case <-ctx.Done():
			return report, ctx.Err()
		case <-time.After(c.delay):
		}
	}

	return report, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, path)
	}
	return data, nil
}

// setHeaders mirrors what the editor's own frontend sends
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Accept-Language", "zh-CN,zh;q=0.9,en-US;q=0.8,en;q=0.7")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("Content-Type", "application/json;charset=UTF-8")
	req.Header.Set("Origin", editorOrigin)
	req.Header.Set("Referer", editorOrigin+"/")
	req.Header.Set("User-Agent", defaultUserAgent)
	if c.auth != "" {
		req.Header.Set("Authorization", c.auth)
	}
}

// SanitizeFilename replaces characters that are unsafe in file names
func SanitizeFilename(name string) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`\/:*?"<>|`, r) {
			return '_'
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	if name == "" {
		return "unnamed"
	}
	return name
}
