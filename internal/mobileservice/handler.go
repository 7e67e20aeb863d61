package mobileservice

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	httpmiddleware "github.com/vetline/clinic-portal/internal/http/middleware"
	"github.com/vetline/clinic-portal/internal/lifecycle"
	"github.com/vetline/clinic-portal/internal/location"
	"github.com/vetline/clinic-portal/pkg/logging"
)

// Handler handles HTTP requests for mobile service requests.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates a new mobile service handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Create handles POST /mobile-services.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if isLocationError(err) {
			writeError(w, http.StatusBadRequest, "location_required", "exactly one well-formed location is required")
			return
		}
		writeError(w, http.StatusBadRequest, "validation_error", "invalid request body")
		return
	}
	if account := r.Header.Get("X-Account-ID"); account != "" {
		req.RequesterID = account
	}

	request, err := h.service.Create(r.Context(), req)
	if err != nil {
		switch {
		case isLocationError(err):
			writeError(w, http.StatusBadRequest, "location_required", "exactly one well-formed location is required")
		case errors.Is(err, ErrValidation):
			writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		default:
			h.logger.Error("failed to create mobile service request", "error", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "failed to create request")
		}
		return
	}
	writeJSON(w, http.StatusCreated, request)
}

// Update handles PUT /mobile-services/{id} (staff).
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "invalid request body")
		return
	}

	actor := httpmiddleware.ActorFromContext(r.Context())
	request, err := h.service.Update(r.Context(), id, req, actor)
	if err != nil {
		switch {
		case errors.Is(err, ErrRequestNotFound):
			writeError(w, http.StatusNotFound, "not_found", "request not found")
		case errors.Is(err, ErrMissingSchedule):
			writeError(w, http.StatusUnprocessableEntity, "missing_schedule", "scheduled date and time are required first")
		case errors.Is(err, lifecycle.ErrInvalidTransition):
			writeError(w, http.StatusConflict, "invalid_transition", "status change not permitted from current status")
		case errors.Is(err, lifecycle.ErrUnknownStatus):
			writeError(w, http.StatusBadRequest, "validation_error", "unknown status")
		case errors.Is(err, ErrRequestClosed):
			writeError(w, http.StatusConflict, "invalid_transition", "request is closed")
		case errors.Is(err, ErrValidation):
			writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		default:
			h.logger.Error("failed to update mobile service request", "error", err, "request_id", id)
			writeError(w, http.StatusInternalServerError, "internal_error", "failed to update request")
		}
		return
	}
	writeJSON(w, http.StatusOK, request)
}

// GetByID handles GET /mobile-services/{id} (staff).
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	request, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrRequestNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "request not found")
			return
		}
		h.logger.Error("failed to fetch mobile service request", "error", err, "request_id", id)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to fetch request")
		return
	}
	writeJSON(w, http.StatusOK, request)
}

// List handles GET /mobile-services?status=&page=&limit= (staff).
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{}
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))

	if raw := q.Get("status"); raw != "" {
		parsed, err := lifecycle.Mobile().Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_error", "unknown status filter")
			return
		}
		filter.Status = parsed
	}

	list, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list mobile service requests", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list requests")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"requests": list, "count": len(list)})
}

func isLocationError(err error) bool {
	return errors.Is(err, location.ErrLocationRequired) ||
		errors.Is(err, location.ErrInvalidCoordinates) ||
		errors.Is(err, location.ErrEmptyAddress)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]string{"error": msg, "code": code})
}
