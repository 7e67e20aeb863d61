package availability

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vetline/clinic-portal/internal/appointments"
	"github.com/vetline/clinic-portal/pkg/logging"
)

// Handler serves the public availability check.
type Handler struct {
	checker *Checker
	logger  *logging.Logger
}

// NewHandler creates a new availability handler.
func NewHandler(checker *Checker, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{checker: checker, logger: logger}
}

// Check handles GET /availability?date=YYYY-MM-DD&slot={id}.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	slotID := r.URL.Query().Get("slot")
	if date == "" || slotID == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "date and slot are required")
		return
	}

	available, err := h.checker.IsAvailable(r.Context(), date, slotID)
	if err != nil {
		switch {
		case errors.Is(err, appointments.ErrValidation):
			writeError(w, http.StatusBadRequest, "validation_error", "date must be YYYY-MM-DD")
		case errors.Is(err, ErrUnknownSlot):
			writeError(w, http.StatusNotFound, "not_found", "time slot not found")
		default:
			h.logger.Error("availability check failed", "error", err, "date", date, "slot_id", slotID)
			writeError(w, http.StatusInternalServerError, "internal_error", "availability check failed")
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]bool{"available": available})
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg, "code": code})
}
