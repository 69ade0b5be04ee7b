package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"

	"github.com/aretw0/tessera"
	"github.com/aretw0/tessera/internal/logging"
	"github.com/aretw0/tessera/internal/runtime"
	"github.com/aretw0/tessera/pkg/domain"
	"github.com/aretw0/tessera/pkg/ports"
	"github.com/aretw0/tessera/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Host serves the pages of server-side sessions. *session.Host implements it.
type Host interface {
	Navigate(ctx context.Context, sessionID string, change domain.Change) (session.Result, error)
	Inspect(sessionID string) (session.Result, error)
	Close(ctx context.Context, sessionID string) error
	Sessions() []string
}

// Server exposes a Host over HTTP.
type Server struct {
	Host     Host
	Manifest *domain.Manifest

	// Events streams page status per session; the topic is the session ID.
	Events ports.EventSubscriber
	// Watcher signals manifest changes on GET /events.
	Watcher ports.Watchable

	gatherer prometheus.Gatherer
	logger   *slog.Logger
}

// Option configures the handler.
type Option func(*Server)

// WithEvents enables GET /sessions/{id}/events.
func WithEvents(sub ports.EventSubscriber) Option {
	return func(s *Server) { s.Events = sub }
}

// WithWatcher enables GET /events.
func WithWatcher(w ports.Watchable) Option {
	return func(s *Server) { s.Watcher = w }
}

// WithMetrics serves the metrics of g on GET /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// NewHandler creates a new HTTP handler serving host.
func NewHandler(host Host, manifest *domain.Manifest, opts ...Option) http.Handler {
	server := &Server{
		Host:     host,
		Manifest: manifest,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(server)
	}

	r := chi.NewRouter()
	r.Get("/health", server.GetHealth)
	r.Get("/info", server.GetInfo)
	r.Get("/routes", server.GetRoutes)
	r.Get("/events", server.WatchManifest)
	r.Post("/navigate", server.Navigate)
	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", server.ListSessions)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", server.GetSession)
			r.Delete("/", server.CloseSession)
			r.Post("/navigate", server.Navigate)
			r.Get("/page", server.GetPage)
			r.Get("/events", server.SubscribeEvents)
		})
	})
	if server.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(server.gatherer, promhttp.HandlerOpts{}))
	}

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Custom-Header")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// NavigateRequest is the body of POST /navigate.
type NavigateRequest struct {
	Resource string         `json:"resource"`
	Event    string         `json:"event,omitempty"`
	Extra    map[string]any `json:"extra,omitempty"`
}

// PageResponse describes the page of a session.
type PageResponse struct {
	SessionID string                 `json:"session_id"`
	Managed   bool                   `json:"managed"`
	State     *domain.State          `json:"state,omitempty"`
	Slots     []domain.SlotSnapshot `json:"slots"`
	Status    domain.HostStatusEvent `json:"status"`
	Error     string                 `json:"error,omitempty"`
}

func pageOf(res session.Result) PageResponse {
	slots := res.Slots
	if slots == nil {
		slots = []domain.SlotSnapshot{}
	}
	return PageResponse{
		SessionID: res.SessionID,
		Managed:   res.Managed,
		State:     res.State,
		Slots:     slots,
		Status:    res.Status,
	}
}

// Navigate handles POST /navigate and POST /sessions/{id}/navigate.
// Lifecycle errors are reported in the body next to the resulting page; the
// status code is 422 for configuration errors and 200 otherwise.
func (s *Server) Navigate(w http.ResponseWriter, r *http.Request) {
	var body NavigateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("Navigate: Invalid request body", "err", err)
		return
	}
	resource, err := tessera.SanitizeResource(body.Resource)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	body.Resource = resource
	if body.Event == "" {
		body.Event = domain.EventNavigate
	}

	sessionID := chi.URLParam(r, "sessionID")
	res, err := s.Host.Navigate(r.Context(), sessionID, domain.Change{
		Resource: body.Resource,
		Event:    body.Event,
		Extra:    body.Extra,
	})

	resp := pageOf(res)
	code := http.StatusOK
	if err != nil {
		resp.Error = err.Error()
		if e, ok := domain.AsError(err); ok && !e.Recoverable {
			code = http.StatusUnprocessableEntity
		}
		if res.SessionID == "" {
			code = http.StatusInternalServerError
		}
		s.logger.Error("Navigate failed", "session_id", res.SessionID, "resource", body.Resource, "err", err)
	}
	writeJSON(w, code, resp, s.logger)
}

// ListSessions handles GET /sessions.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Host.Sessions(), s.logger)
}

// GetSession handles GET /sessions/{id}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	res, ok := s.inspect(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, pageOf(res), s.logger)
}

// GetPage handles GET /sessions/{id}/page and returns the composed markup.
func (s *Server) GetPage(w http.ResponseWriter, r *http.Request) {
	res, ok := s.inspect(w, r)
	if !ok {
		return
	}
	page, ok := res.Container.(interface{ Markup() string })
	if !ok {
		http.Error(w, "Page markup not available", http.StatusNotImplemented)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, page.Markup())
}

// CloseSession handles DELETE /sessions/{id}.
func (s *Server) CloseSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := s.Host.Close(r.Context(), sessionID); err != nil {
		http.Error(w, fmt.Sprintf("Close error: %v", err), http.StatusInternalServerError)
		s.logger.Error("Close failed", "session_id", sessionID, "err", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) inspect(w http.ResponseWriter, r *http.Request) (session.Result, bool) {
	res, err := s.Host.Inspect(chi.URLParam(r, "sessionID"))
	if errors.Is(err, session.ErrUnknownSession) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return res, false
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return res, false
	}
	return res, true
}

// RouteInfo describes a route of the manifest.
type RouteInfo struct {
	Name      string            `json:"name"`
	Paths     []string          `json:"paths,omitempty"`
	Placement map[string]string `json:"placement,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// GetRoutes handles GET /routes.
func (s *Server) GetRoutes(w http.ResponseWriter, r *http.Request) {
	reconciler := runtime.NewReconciler(s.Manifest, nil)
	routes := make([]RouteInfo, 0, len(s.Manifest.Routes))
	for _, route := range s.Manifest.Routes {
		info := RouteInfo{Name: route.Name, Paths: route.AllPaths()}
		placement, err := reconciler.Placement(route.Name)
		if err != nil {
			info.Error = err.Error()
		} else {
			info.Placement = placement
		}
		routes = append(routes, info)
	}
	sort.SliceStable(routes, func(i, j int) bool { return routes[i].Name < routes[j].Name })
	writeJSON(w, http.StatusOK, routes, s.logger)
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, s.logger)
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"app":     "tessera-http",
		"version": tessera.Version,
	}, s.logger)
}

// SubscribeEvents handles GET /sessions/{id}/events (SSE of page status).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	if s.Events == nil {
		http.Error(w, "Status events are not enabled", http.StatusNotImplemented)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	events, err := s.Events.Subscribe(r.Context(), sessionID)
	if err != nil {
		http.Error(w, fmt.Sprintf("Subscribe error: %v", err), http.StatusInternalServerError)
		return
	}
	s.logger.Info("SSE: Subscribing to session status", "session_id", sessionID)

	startStream(w, flusher)
	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE Client Disconnected", "session_id", sessionID)
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				s.logger.Warn("SSE: Failed to encode event", "err", err)
				continue
			}
			fmt.Fprintf(w, "event: status\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}

// WatchManifest handles GET /events (SSE of manifest changes).
func (s *Server) WatchManifest(w http.ResponseWriter, r *http.Request) {
	if s.Watcher == nil {
		http.Error(w, "Manifest watching is not enabled", http.StatusNotImplemented)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}
	events, err := s.Watcher.Watch(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("Watch error: %v", err), http.StatusInternalServerError)
		return
	}

	startStream(w, flusher)
	for {
		select {
		case <-r.Context().Done():
			return
		case id, ok := <-events:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: reload\ndata: %s\n\n", id)
			flusher.Flush()
		}
	}
}

func startStream(w http.ResponseWriter, flusher http.Flusher) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()
}

func writeJSON(w http.ResponseWriter, code int, v any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("response encode failed", "err", err)
	}
}
