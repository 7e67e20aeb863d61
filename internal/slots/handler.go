package slots

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	httpmiddleware "github.com/vetline/clinic-portal/internal/http/middleware"
	"github.com/vetline/clinic-portal/pkg/logging"
)

// Handler handles HTTP requests for the time-slot registry.
type Handler struct {
	registry *Registry
	logger   *logging.Logger
}

// NewHandler creates a new slots handler.
func NewHandler(registry *Registry, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{registry: registry, logger: logger}
}

// List handles GET /slots (staff).
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	all, err := h.registry.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list slots", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list slots")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"slots": all, "count": len(all)})
}

// ListEnabled handles GET /slots/enabled (public, consumed by the wizard).
func (h *Handler) ListEnabled(w http.ResponseWriter, r *http.Request) {
	enabled, err := h.registry.ListEnabled(r.Context())
	if err != nil {
		h.logger.Error("failed to list enabled slots", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list slots")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"slots": enabled, "count": len(enabled)})
}

type createSlotRequest struct {
	TimeOfDay string `json:"timeOfDay"`
}

// Create handles POST /slots (admin).
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSlotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "invalid request body")
		return
	}

	actor := httpmiddleware.ActorFromContext(r.Context())
	slot, err := h.registry.Create(r.Context(), req.TimeOfDay, actor)
	if err != nil {
		switch {
		case errors.Is(err, ErrDuplicateSlot):
			writeError(w, http.StatusConflict, "duplicate_slot", "time of day already registered")
		case errors.Is(err, ErrInvalidTimeOfDay):
			writeError(w, http.StatusBadRequest, "validation_error", "time of day must be HH:MM")
		default:
			h.logger.Error("failed to create slot", "error", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "failed to create slot")
		}
		return
	}

	h.logger.Info("slot created", "slot_id", slot.ID, "time_of_day", slot.TimeOfDay)
	writeJSON(w, http.StatusCreated, slot)
}

type toggleSlotRequest struct {
	Enabled *bool `json:"enabled"`
}

// SetEnabled handles PATCH /slots/{id} (admin).
func (h *Handler) SetEnabled(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req toggleSlotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Enabled == nil {
		writeError(w, http.StatusBadRequest, "validation_error", "enabled flag is required")
		return
	}

	actor := httpmiddleware.ActorFromContext(r.Context())
	if err := h.registry.SetEnabled(r.Context(), id, *req.Enabled, actor); err != nil {
		if errors.Is(err, ErrSlotNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "slot not found")
			return
		}
		h.logger.Error("failed to toggle slot", "error", err, "slot_id", id)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to update slot")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Remove handles DELETE /slots/{id} (admin).
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	actor := httpmiddleware.ActorFromContext(r.Context())
	if err := h.registry.Remove(r.Context(), id, actor); err != nil {
		switch {
		case errors.Is(err, ErrSlotNotFound):
			writeError(w, http.StatusNotFound, "not_found", "slot not found")
		case errors.Is(err, ErrSlotInUse):
			writeError(w, http.StatusConflict, "slot_in_use", "slot has upcoming appointments")
		default:
			h.logger.Error("failed to remove slot", "error", err, "slot_id", id)
			writeError(w, http.StatusInternalServerError, "internal_error", "failed to remove slot")
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]string{"error": msg, "code": code})
}
