package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/yndnr/sidermem-go/internal/telemetry/logger"
)

// Status reports live server figures. *engine.Engine implements it.
type Status interface {
	Keys() int
	Expires() int
	ExpiredKeys() uint64
	AOFWrittenBytes() uint64
	Clients() int
	Uptime() time.Duration
}

// Sweeper removes expired keys on demand. *memory.Store implements it.
type Sweeper interface {
	Sweep(ctx context.Context) int
}

// Config wires a Handler.
type Config struct {
	Status  Status
	Sweeper Sweeper
	// Ready reports whether the server accepts traffic. Nil means always.
	Ready   func() bool
	Version string
	Logger  logger.Logger
}

// Handler serves the admin endpoints.
type Handler struct {
	status  Status
	sweeper Sweeper
	ready   func() bool
	version string
	logger  logger.Logger
	mux     *http.ServeMux
}

// New creates a Handler.
func New(cfg Config) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	if cfg.Ready == nil {
		cfg.Ready = func() bool { return true }
	}
	h := &Handler{
		status:  cfg.Status,
		sweeper: cfg.Sweeper,
		ready:   cfg.Ready,
		version: cfg.Version,
		logger:  cfg.Logger,
		mux:     http.NewServeMux(),
	}

	h.registerRoutes()
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.mux.HandleFunc("GET /healthz", h.handleHealth)
	h.mux.HandleFunc("GET /readyz", h.handleReady)

	h.mux.HandleFunc("GET /admin/v1/status/summary", h.handleAdminStatus)
	h.mux.HandleFunc("POST /admin/v1/gc/trigger", h.handleGCTrigger)
}

// writeJSON writes a JSON response with standard envelope format.
func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	requestID := getRequestID(r, w)
	response := NewResponse(requestID, data)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// writeError writes an error response with standard envelope format.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	requestID := getRequestID(r, w)
	response := NewErrorResponse(requestID, code, message, nil)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", code)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(response)
}

// getRequestID prefers the id set by the RequestID middleware.
func getRequestID(r *http.Request, w http.ResponseWriter) string {
	if id := w.Header().Get("X-Request-ID"); id != "" {
		return id
	}
	return r.Header.Get("X-Request-ID")
}
