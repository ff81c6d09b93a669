// Package http exposes the chat service over HTTP with server-sent events.
package http

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/aretw0/wayfarer/internal/logging"
	"github.com/aretw0/wayfarer/pkg/domain"
	"github.com/aretw0/wayfarer/pkg/events"
	"github.com/aretw0/wayfarer/pkg/runner"
)

//go:embed openapi.yaml
var rawSpec []byte

// Chat is the application surface served by the handler.
type Chat interface {
	Send(ctx context.Context, id, message string) (*runner.Reply, error)
	Stream(ctx context.Context, id string) (iter.Seq[events.Event], error)
	Detail(ctx context.Context, id string) (*runner.Detail, error)
	Delete(ctx context.Context, id string) bool
	List() []domain.SessionSummary
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// Problem is the error body.
type Problem struct {
	Detail string `json:"detail"`
}

type Server struct {
	chat    Chat
	logger  *slog.Logger
	origins []string
	appName string
	version string
	metrics http.Handler
	graph   func() string
}

type Option func(*Server)

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithCORSOrigins sets the allowed origins. "*" allows any.
func WithCORSOrigins(origins ...string) Option {
	return func(s *Server) {
		s.origins = origins
	}
}

// WithAppInfo sets what GET / reports.
func WithAppInfo(name, version string) Option {
	return func(s *Server) {
		s.appName = name
		s.version = version
	}
}

// WithMetrics mounts h at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithGraph serves the result of render at /api/graph.
func WithGraph(render func() string) Option {
	return func(s *Server) {
		s.graph = render
	}
}

// LoadSpec parses and validates the embedded OpenAPI document.
func LoadSpec(ctx context.Context) (*openapi3.T, error) {
	doc, err := openapi3.NewLoader().LoadFromData(rawSpec)
	if err != nil {
		return nil, fmt.Errorf("failed to load openapi spec: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("invalid openapi spec: %w", err)
	}
	return doc, nil
}

// NewHandler builds the router. It fails if the embedded API document is invalid.
func NewHandler(chat Chat, opts ...Option) (http.Handler, error) {
	s := &Server{
		chat:    chat,
		logger:  logging.NewNop(),
		appName: "Travel Guide API",
		version: "1.0.0",
	}
	for _, opt := range opts {
		opt(s)
	}

	spec, err := LoadSpec(context.Background())
	if err != nil {
		return nil, err
	}
	validate, err := requestValidator(spec, s.logger)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(s.cors)

	r.Get("/", s.root)
	r.Get("/health", s.health)
	r.Get("/openapi.yaml", s.openAPI)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(validate)
		r.Get("/graph", s.getGraph)
		r.Route("/chat", func(r chi.Router) {
			r.Post("/", s.send)
			r.Get("/", s.list)
			r.Get("/{sessionID}", s.detail)
			r.Delete("/{sessionID}", s.delete)
			r.Get("/{sessionID}/stream", s.stream)
		})
	})
	return r, nil
}

func (s *Server) root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"app":     s.appName,
		"version": s.version,
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) openAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(rawSpec)
}

func (s *Server) getGraph(w http.ResponseWriter, r *http.Request) {
	if s.graph == nil {
		writeProblem(w, http.StatusNotFound, "graph rendering is not enabled")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(s.graph()))
}

func (s *Server) send(w http.ResponseWriter, r *http.Request) {
	var body ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid request body")
		return
	}
	reply, err := s.chat.Send(r.Context(), body.SessionID, body.Message)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	sessions := s.chat.List()
	if sessions == nil {
		sessions = []domain.SessionSummary{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) detail(w http.ResponseWriter, r *http.Request) {
	d, err := s.chat.Detail(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) delete(w http.ResponseWriter, r *http.Request) {
	if !s.chat.Delete(r.Context(), chi.URLParam(r, "sessionID")) {
		s.fail(w, r, domain.ErrSessionNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// stream relays session events as SSE until a terminal event or disconnect.
func (s *Server) stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeProblem(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	id := chi.URLParam(r, "sessionID")
	seq, err := s.chat.Stream(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	logger := s.logger.With("session_id", id)
	logger.Debug("stream opened")
	sent := 0
	for ev := range seq {
		if err := WriteEvent(w, ev); err != nil {
			logger.Warn("stream write failed", "error", err)
			return
		}
		flusher.Flush()
		sent++
	}
	logger.Debug("stream closed", "events", sent)
}

// WriteEvent writes ev as one SSE frame.
func WriteEvent(w http.ResponseWriter, ev events.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, data)
	return err
}

// StatusCode maps service errors to HTTP statuses.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrSessionBusy):
		return http.StatusConflict
	case errors.Is(err, domain.ErrPoolSaturated), errors.Is(err, domain.ErrPoolClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrEmptyMessage),
		errors.Is(err, runner.ErrInputTooLarge),
		errors.Is(err, runner.ErrInvalidUTF8):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := StatusCode(err)
	if code >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
	}
	writeProblem(w, code, err.Error())
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && (slices.Contains(s.origins, "*") || slices.Contains(s.origins, origin)) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Add("Vary", "Origin")
		}
		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(started),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeProblem(w http.ResponseWriter, code int, detail string) {
	writeJSON(w, code, Problem{Detail: detail})
}
