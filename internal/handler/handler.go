package handler

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/angeloszaimis/resilience/internal/circuitbreaker"
)

// AdminHandler exposes the breaker registry over HTTP: metrics snapshots for
// dashboards, a readiness endpoint, and the operator control surface
// (force-open, force-close, reset).
type AdminHandler struct {
	logger   *slog.Logger
	registry *circuitbreaker.Registry
}

func NewAdminHandler(logger *slog.Logger, registry *circuitbreaker.Registry) *AdminHandler {
	return &AdminHandler{
		logger:   logger,
		registry: registry,
	}
}

// Register adds all admin routes to the given mux.
func (h *AdminHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /breakers", h.listBreakers)
	mux.HandleFunc("GET /breakers/{name}", h.getBreaker)
	mux.HandleFunc("POST /breakers/reset", h.resetAll)
	mux.HandleFunc("POST /breakers/{name}/open", h.forceOpen)
	mux.HandleFunc("POST /breakers/{name}/close", h.forceClose)
	mux.HandleFunc("POST /breakers/{name}/reset", h.reset)
	mux.HandleFunc("GET /health", h.health)
}

func (h *AdminHandler) listBreakers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.registry.AllMetrics())
}

func (h *AdminHandler) getBreaker(w http.ResponseWriter, r *http.Request) {
	cb, exists := h.registry.Lookup(r.PathValue("name"))
	if !exists {
		http.Error(w, "unknown breaker", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, cb.Metrics())
}

func (h *AdminHandler) resetAll(w http.ResponseWriter, r *http.Request) {
	h.registry.ResetAll()

	h.logger.Info("All circuit breakers reset",
		slog.String("client", extractClientIP(r)))

	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) forceOpen(w http.ResponseWriter, r *http.Request) {
	h.override(w, r, "force open", (*circuitbreaker.CircuitBreaker).ForceOpen)
}

func (h *AdminHandler) forceClose(w http.ResponseWriter, r *http.Request) {
	h.override(w, r, "force close", (*circuitbreaker.CircuitBreaker).ForceClose)
}

func (h *AdminHandler) reset(w http.ResponseWriter, r *http.Request) {
	h.override(w, r, "reset", (*circuitbreaker.CircuitBreaker).Reset)
}

// override applies an operator intervention to a single named breaker.
func (h *AdminHandler) override(w http.ResponseWriter, r *http.Request, action string, apply func(*circuitbreaker.CircuitBreaker)) {
	name := r.PathValue("name")

	cb, exists := h.registry.Lookup(name)
	if !exists {
		http.Error(w, "unknown breaker", http.StatusNotFound)
		return
	}

	apply(cb)

	h.logger.Info("Operator intervention",
		slog.String("action", action),
		slog.String("breaker", name),
		slog.String("state", cb.State().String()),
		slog.String("client", extractClientIP(r)))

	writeJSON(w, http.StatusOK, cb.Metrics())
}

// health reports readiness: 503 while any circuit is open, with the list of
// open breakers so callers can see which dependency is down.
func (h *AdminHandler) health(w http.ResponseWriter, r *http.Request) {
	var open []string
	for name, cb := range h.registry.All() {
		if cb.State() == circuitbreaker.StateOpen {
			open = append(open, name)
		}
	}

	if len(open) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":        "degraded",
			"open_circuits": open,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func extractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}

	host, _, _ := net.SplitHostPort(r.RemoteAddr)
	return host
}
