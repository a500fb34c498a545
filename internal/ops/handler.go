package ops

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/angeloszaimis/resilience-gate/internal/circuitbreaker"
)

// Handler serves breaker status and admin operations over HTTP.
type Handler struct {
	logger   *slog.Logger
	registry *circuitbreaker.Registry
}

func NewHandler(logger *slog.Logger, registry *circuitbreaker.Registry) *Handler {
	return &Handler{
		logger:   logger,
		registry: registry,
	}
}

// Statuses returns every breaker's snapshot, keyed by service name.
func (h *Handler) Statuses(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.registry.Statuses())
}

// ServiceStatus returns the snapshot of the breaker named in the path.
func (h *Handler) ServiceStatus(w http.ResponseWriter, r *http.Request) {
	service := r.PathValue("service")

	cb, exists := h.registry.Get(service)
	if !exists {
		http.Error(w, "unknown service", http.StatusNotFound)
		return
	}

	h.writeJSON(w, cb.Status())
}

// ResetService forces the breaker named in the path back to CLOSED.
func (h *Handler) ResetService(w http.ResponseWriter, r *http.Request) {
	service := r.PathValue("service")

	cb, exists := h.registry.Get(service)
	if !exists {
		http.Error(w, "unknown service", http.StatusNotFound)
		return
	}

	cb.Reset()
	h.logger.Info("Circuit reset via admin endpoint",
		slog.String("service", service),
		slog.String("from", r.RemoteAddr))

	h.writeJSON(w, cb.Status())
}

func (h *Handler) writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
