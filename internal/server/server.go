// Package server exposes the converter and the theme store over HTTP
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"mdinliner/internal/theme"
	"mdinliner/pkg/converter"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const maxRequestBody = 5 << 20

// Converter turns Markdown into styled HTML
type Converter interface {
	Convert(ctx context.Context, src, themeName string) (*converter.Result, error)
}

// Themes lists and resolves installed themes
type Themes interface {
	Names() ([]string, error)
	Default() (string, error)
	Resolve(name string) (*theme.Theme, error)
}

// ConvertRequest is the body of POST /api/convert
type ConvertRequest struct {
	Markdown string `json:"markdown"`
	Theme    string `json:"theme,omitempty"`
}

// ConvertResponse is the body returned by POST /api/convert
type ConvertResponse struct {
	Success   bool   `json:"success"`
	HTML      string `json:"html"`
	Style     string `json:"style"`
	CustomCSS string `json:"customCss"`
	Theme     string `json:"theme"`
}

// ThemesResponse is the body returned by GET /api/themes
type ThemesResponse struct {
	Success      bool     `json:"success"`
	Themes       []string `json:"themes"`
	DefaultTheme string   `json:"defaultTheme"`
}

// ThemeResponse is the body returned by GET /api/theme
type ThemeResponse struct {
	Success bool            `json:"success"`
	Theme   string          `json:"theme"`
	Data    json.RawMessage `json:"data"`
}

// ErrorResponse is returned on any failure
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Server represents the HTTP server
type Server struct {
	converter  Converter
	themes     Themes
	metrics    *Metrics
	httpServer *http.Server
	log        zerolog.Logger
}

// New creates a new HTTP server listening on addr
func New(addr string, conv Converter, themes Themes, log zerolog.Logger) *Server {
	s := &Server{
		converter: conv,
		themes:    themes,
		metrics:   NewMetrics(),
		log:       log,
	}

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the routed handler with request logging and metrics
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("POST /api/convert", s.instrument("/api/convert", s.convertHandler))
	mux.Handle("GET /api/themes", s.instrument("/api/themes", s.themesHandler))
	mux.Handle("GET /api/theme", s.instrument("/api/theme", s.themeHandler))
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))
	return mux
}

// Start starts the HTTP server. It returns nil after Shutdown
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("HTTP server starting")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) convertHandler(w http.ResponseWriter, r *http.Request) {
	var req ConvertRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	start := time.Now()
	res, err := s.converter.Convert(r.Context(), req.Markdown, req.Theme)
	s.metrics.ConversionDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		status := statusFor(err)
		s.metrics.Conversions.WithLabelValues(outcomeFor(status)).Inc()
		s.log.Warn().Err(err).Str("theme", req.Theme).Msg("conversion failed")
		writeError(w, status, err.Error())
		return
	}
	s.metrics.Conversions.WithLabelValues("success").Inc()

	writeJSON(w, http.StatusOK, ConvertResponse{
		Success:   true,
		HTML:      res.HTML,
		Style:     res.Style,
		CustomCSS: res.CustomCSS,
		Theme:     res.Theme,
	})
}

func (s *Server) themesHandler(w http.ResponseWriter, r *http.Request) {
	names, err := s.themes.Names()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	def, err := s.themes.Default()
	if err != nil && !errors.Is(err, theme.ErrThemeNotFound) {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, ThemesResponse{Success: true, Themes: names, DefaultTheme: def})
}

func (s *Server) themeHandler(w http.ResponseWriter, r *http.Request) {
	t, err := s.themes.Resolve(r.URL.Query().Get("theme"))
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ThemeResponse{Success: true, Theme: t.Name, Data: json.RawMessage(t.Raw)})
}

// statusFor maps pipeline errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, theme.ErrThemeNotFound), errors.Is(err, theme.ErrInvalidTheme):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func outcomeFor(status int) string {
	if status == http.StatusNotFound {
		return "theme_error"
	}
	return "error"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Success: false, Error: msg})
}

// statusRecorder captures the response status for logging and metrics
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) instrument(endpoint string, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		h(rec, r)

		elapsed := time.Since(start)
		s.metrics.RequestCount.WithLabelValues(r.Method, endpoint, strconv.Itoa(rec.status)).Inc()
		s.metrics.RequestDuration.WithLabelValues(r.Method, endpoint).Observe(elapsed.Seconds())
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", elapsed).
			Msg("request")
	})
}
