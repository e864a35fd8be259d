// Package http exposes a Dispatcher as a JSON API.
//
// Operators submit commands with POST /commands, instrument handlers report
// asynchronous completions with POST /actions/{id}/completion and clients
// follow final responses as server-sent events on GET /events.
package http

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/gmp"
	"github.com/aretw0/gmp/pkg/config"
	"github.com/aretw0/gmp/pkg/domain"
	"github.com/aretw0/gmp/pkg/ports"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
)

//go:embed openapi.yaml
var rawSpec []byte

// Dispatcher is the part of gmp.Dispatcher served over HTTP.
type Dispatcher interface {
	SubmitWithTimeout(ctx context.Context, cmd domain.Command, listener domain.CompletionListener, timeout time.Duration) (*domain.Action, domain.HandlerResponse, error)
	SubmitAndWait(ctx context.Context, cmd domain.Command, timeout time.Duration) (domain.HandlerResponse, error)
	UpdateOcs(ctx context.Context, actionID int64, response domain.HandlerResponse) error
	Pending() []int64
	Handlers() ports.CommandHandlers
}

// Server holds the HTTP handlers.
type Server struct {
	Dispatcher Dispatcher
	Streams    *StreamManager

	metrics http.Handler
	logger  *slog.Logger

	specOnce   sync.Once
	apiVersion string
}

// Option configures the Server.
type Option func(*Server)

// WithStreams shares a StreamManager whose Hooks feed the Dispatcher.
func WithStreams(streams *StreamManager) Option {
	return func(s *Server) {
		s.Streams = streams
	}
}

// WithMetrics mounts h on GET /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithLogger sets the request logger (default: slog.Default()).
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewHandler creates a new HTTP handler for the dispatcher.
func NewHandler(d Dispatcher, opts ...Option) http.Handler {
	s := &Server{Dispatcher: d}
	for _, opt := range opts {
		opt(s)
	}
	if s.Streams == nil {
		s.Streams = NewStreamManager()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(rawSpec)
	})
	r.Post("/commands", s.SubmitCommand)
	r.Get("/actions", s.ListPending)
	r.Post("/actions/{id}/completion", s.CompleteAction)
	r.Get("/handlers", s.ListHandlers)
	r.Post("/handlers", s.RegisterHandler)
	r.Delete("/handlers/{path}", s.UnregisterHandler)
	r.Get("/events", s.SubscribeEvents)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}
	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// CommandResponse is the body returned by POST /commands.
type CommandResponse struct {
	ActionID int64               `json:"action_id,omitempty"`
	Response domain.ResponseKind `json:"response"`
	Message  string              `json:"message,omitempty"`
}

// SubmitCommand handles the POST /commands request.
func (s *Server) SubmitCommand(w http.ResponseWriter, r *http.Request) {
	raw := map[string]any{}
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("SubmitCommand: Invalid request body", "error", err)
		return
	}

	wait, _ := raw["wait"].(bool)
	var timeout time.Duration
	if v, ok := raw["timeout"].(string); ok {
		var err error
		if timeout, err = time.ParseDuration(v); err != nil {
			http.Error(w, fmt.Sprintf("Invalid timeout: %v", err), http.StatusBadRequest)
			return
		}
	}
	delete(raw, "wait")
	delete(raw, "timeout")

	cmd, err := config.DecodeCommand(raw)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		s.logger.Warn("SubmitCommand: Invalid command", "error", err)
		return
	}

	var resp CommandResponse
	if wait {
		final, err := s.Dispatcher.SubmitAndWait(r.Context(), cmd, timeout)
		if err != nil {
			s.fail(w, "SubmitCommand", err)
			return
		}
		resp = CommandResponse{Response: final.Kind, Message: final.Message}
	} else {
		action, first, err := s.Dispatcher.SubmitWithTimeout(r.Context(), cmd, nil, timeout)
		if err != nil {
			s.fail(w, "SubmitCommand", err)
			return
		}
		resp = CommandResponse{ActionID: action.ID(), Response: first.Kind, Message: first.Message}
	}
	writeJSON(w, s.logger, http.StatusOK, resp)
}

// ListPending handles the GET /actions request.
func (s *Server) ListPending(w http.ResponseWriter, r *http.Request) {
	pending := s.Dispatcher.Pending()
	if pending == nil {
		pending = []int64{}
	}
	writeJSON(w, s.logger, http.StatusOK, map[string][]int64{"pending": pending})
}

// CompleteAction handles the POST /actions/{id}/completion request.
func (s *Server) CompleteAction(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid action id", http.StatusBadRequest)
		return
	}

	var body struct {
		Response string `json:"response"`
		Message  string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("CompleteAction: Invalid request body", "error", err)
		return
	}
	kind, err := domain.ParseResponseKind(body.Response)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.Dispatcher.UpdateOcs(r.Context(), id, domain.NewResponse(kind, body.Message)); err != nil {
		s.fail(w, "CompleteAction", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListHandlers handles the GET /handlers request.
func (s *Server) ListHandlers(w http.ResponseWriter, r *http.Request) {
	paths, err := s.Dispatcher.Handlers().ApplyHandlers(r.Context())
	if err != nil {
		s.fail(w, "ListHandlers", err)
		return
	}
	names := make([]string, len(paths))
	for i, p := range paths {
		names[i] = p.String()
	}
	writeJSON(w, s.logger, http.StatusOK, map[string][]string{"handlers": names})
}

// RegisterHandler handles the POST /handlers request.
func (s *Server) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	registry, ok := s.registry(w)
	if !ok {
		return
	}
	var body struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	path, err := handlerPath(body.Path)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := registry.Register(r.Context(), path); err != nil {
		s.fail(w, "RegisterHandler", err)
		return
	}
	s.logger.Info("Handler registered", "path", path.String())
	w.WriteHeader(http.StatusNoContent)
}

// UnregisterHandler handles the DELETE /handlers/{path} request.
func (s *Server) UnregisterHandler(w http.ResponseWriter, r *http.Request) {
	registry, ok := s.registry(w)
	if !ok {
		return
	}
	text, err := url.PathUnescape(chi.URLParam(r, "path"))
	if err != nil {
		http.Error(w, "Invalid path", http.StatusBadRequest)
		return
	}
	path, err := handlerPath(text)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := registry.Unregister(r.Context(), path); err != nil {
		s.fail(w, "UnregisterHandler", err)
		return
	}
	s.logger.Info("Handler unregistered", "path", path.String())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) registry(w http.ResponseWriter) (ports.HandlerRegistry, bool) {
	registry, ok := s.Dispatcher.Handlers().(ports.HandlerRegistry)
	if !ok {
		http.Error(w, "Handler registry is read-only", http.StatusNotImplemented)
	}
	return registry, ok
}

func handlerPath(text string) (domain.ConfigPath, error) {
	path, err := domain.ParseConfigPath(text)
	if err != nil {
		return path, err
	}
	if path.IsEmpty() {
		return path, fmt.Errorf("%w: empty path", domain.ErrInvalidConfigPath)
	}
	return path, nil
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.logger, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.specOnce.Do(func() {
		s.apiVersion = "unknown"
		doc, err := openapi3.NewLoader().LoadFromData(rawSpec)
		if err != nil {
			s.logger.Error("Failed to load OpenAPI spec", "error", err)
			return
		}
		if doc.Info != nil {
			s.apiVersion = doc.Info.Version
		}
	})

	writeJSON(w, s.logger, http.StatusOK, map[string]string{
		"app":         "gmp-http",
		"version":     strings.TrimSpace(gmp.Version),
		"api_version": s.apiVersion,
	})
}

func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(op+" failed", "error", err)
	} else {
		s.logger.Debug(op+" rejected", "error", err)
	}
	http.Error(w, err.Error(), status)
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrActionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrTransport):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrInvalidConfigPath),
		errors.Is(err, domain.ErrUnknownResponse),
		errors.Is(err, domain.ErrUnknownActivity),
		errors.Is(err, domain.ErrUnknownSequenceCommand):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Response encode failed", "error", err)
	}
}
