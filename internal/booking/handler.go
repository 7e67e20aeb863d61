package booking

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vetline/clinic-portal/internal/appointments"
	"github.com/vetline/clinic-portal/internal/location"
	"github.com/vetline/clinic-portal/pkg/logging"
)

// Handler handles the wizard's HTTP surface.
type Handler struct {
	workflow *Workflow
	logger   *logging.Logger
}

// NewHandler creates a new booking handler.
func NewHandler(workflow *Workflow, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{workflow: workflow, logger: logger}
}

type startRequest struct {
	Path Path `json:"path"`
}

// Start handles POST /booking/sessions.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "invalid request body")
		return
	}
	requester := r.Header.Get("X-Account-ID")

	sess, err := h.workflow.Start(r.Context(), requester, req.Path)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnknownPath):
			writeError(w, http.StatusBadRequest, "validation_error", "path must be clinic or mobile")
		case errors.Is(err, ErrStepIncomplete):
			writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		default:
			h.logger.Error("failed to start booking session", "error", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "failed to start session")
		}
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

// Get handles GET /booking/sessions/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	sess, err := h.workflow.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeWorkflowError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// Advance handles POST /booking/sessions/{id}/advance.
func (h *Handler) Advance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var input StepInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "invalid request body")
		return
	}

	sess, err := h.workflow.Advance(r.Context(), id, input)
	if err != nil {
		h.writeWorkflowError(w, err, id)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// Back handles POST /booking/sessions/{id}/back.
func (h *Handler) Back(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, err := h.workflow.Back(r.Context(), id)
	if err != nil {
		h.writeWorkflowError(w, err, id)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// Submit handles POST /booking/sessions/{id}/submit.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, err := h.workflow.Submit(r.Context(), id)
	if err != nil {
		h.writeWorkflowError(w, err, id)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (h *Handler) writeWorkflowError(w http.ResponseWriter, err error, sessionID string) {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "not_found", "session not found or expired")
	case errors.Is(err, ErrInvalidStep):
		writeError(w, http.StatusConflict, "validation_error", "operation not allowed at current step")
	case errors.Is(err, ErrStepIncomplete):
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, appointments.ErrSlotTaken):
		writeError(w, http.StatusConflict, "slot_taken", "time slot no longer available, please pick another")
	case errors.Is(err, appointments.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, location.ErrLocationRequired),
		errors.Is(err, location.ErrInvalidCoordinates),
		errors.Is(err, location.ErrEmptyAddress):
		writeError(w, http.StatusBadRequest, "location_required", "exactly one well-formed location is required")
	default:
		h.logger.Error("booking workflow error", "error", err, "session_id", sessionID)
		writeError(w, http.StatusInternalServerError, "internal_error", "booking workflow failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]string{"error": msg, "code": code})
}
