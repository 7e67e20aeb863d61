package appointments

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	httpmiddleware "github.com/vetline/clinic-portal/internal/http/middleware"
	"github.com/vetline/clinic-portal/internal/lifecycle"
	"github.com/vetline/clinic-portal/pkg/logging"
)

// Handler handles HTTP requests for clinic appointments.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates a new appointments handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Create handles POST /appointments. The requester is taken from the
// X-Account-ID header set by the portal session layer, falling back to the
// body for trusted internal callers.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "invalid request body")
		return
	}
	if account := r.Header.Get("X-Account-ID"); account != "" {
		req.RequesterID = account
	}

	appt, err := h.service.Create(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, ErrSlotTaken):
			writeError(w, http.StatusConflict, "slot_taken", "time slot already booked for that date")
		case errors.Is(err, ErrSlotDisabled):
			writeError(w, http.StatusBadRequest, "validation_error", "time slot not offered for booking")
		case errors.Is(err, ErrValidation):
			writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		default:
			h.logger.Error("failed to create appointment", "error", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "failed to create appointment")
		}
		return
	}
	writeJSON(w, http.StatusCreated, appt)
}

type transitionRequest struct {
	Status string `json:"status"`
}

// Transition handles PUT /appointments/{id} (staff).
func (h *Handler) Transition(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Status == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "status is required")
		return
	}

	actor := httpmiddleware.ActorFromContext(r.Context())
	appt, err := h.service.Transition(r.Context(), id, req.Status, actor)
	if err != nil {
		switch {
		case errors.Is(err, ErrAppointmentNotFound):
			writeError(w, http.StatusNotFound, "not_found", "appointment not found")
		case errors.Is(err, lifecycle.ErrInvalidTransition):
			writeError(w, http.StatusConflict, "invalid_transition", "status change not permitted from current status")
		case errors.Is(err, lifecycle.ErrUnknownStatus):
			writeError(w, http.StatusBadRequest, "validation_error", "unknown status")
		default:
			h.logger.Error("failed to transition appointment", "error", err, "appointment_id", id)
			writeError(w, http.StatusInternalServerError, "internal_error", "failed to update appointment")
		}
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

// GetByID handles GET /appointments/{id} (staff).
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	appt, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "appointment not found")
			return
		}
		h.logger.Error("failed to fetch appointment", "error", err, "appointment_id", id)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to fetch appointment")
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

// List handles GET /appointments?scope=today|all&status=&page=&limit= (staff).
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{
		Scope:  q.Get("scope"),
		Status: lifecycle.Status(q.Get("status")),
	}
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))

	if filter.Status != "" {
		// Staff screens historically disagreed on capitalization.
		parsed, err := lifecycle.Clinic().Parse(string(filter.Status))
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_error", "unknown status filter")
			return
		}
		filter.Status = parsed
	}

	list, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list appointments", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list appointments")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": list, "count": len(list)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]string{"error": msg, "code": code})
}
