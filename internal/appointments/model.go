package appointments

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vetline/clinic-portal/internal/lifecycle"
)

var (
	// ErrSlotTaken is returned when another non-cancelled appointment already
	// holds the (date, time slot) pair. The caller lost a booking race and
	// should re-select.
	ErrSlotTaken = errors.New("appointments: slot already taken")

	// ErrAppointmentNotFound is returned when the appointment id is unknown.
	ErrAppointmentNotFound = errors.New("appointments: appointment not found")

	// ErrSlotDisabled is returned when booking a slot staff switched off.
	ErrSlotDisabled = errors.New("appointments: slot not offered for booking")

	// ErrValidation wraps malformed or missing request fields.
	ErrValidation = errors.New("appointments: validation failed")
)

// Appointment is a clinic visit. Created in status Scheduled, mutated only
// through lifecycle transitions, never physically deleted.
type Appointment struct {
	ID             string           `json:"id"`
	PetID          string           `json:"petId"`
	RequesterID    string           `json:"requesterId"`
	Date           string           `json:"date"` // "YYYY-MM-DD"
	TimeSlotID     string           `json:"timeSlotId"`
	TimeOfDay      string           `json:"timeOfDay"` // copied from the slot at booking time
	Reason         string           `json:"reason"`
	AdditionalNote string           `json:"additionalNote,omitempty"`
	Status         lifecycle.Status `json:"status"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
}

// Summary renders the one-line description used in notification emails.
func (a *Appointment) Summary() string {
	return fmt.Sprintf("Clinic appointment on %s at %s (%s)", a.Date, a.TimeOfDay, a.Reason)
}

// CreateRequest is the payload for booking a clinic appointment.
type CreateRequest struct {
	PetID          string `json:"petId"`
	RequesterID    string `json:"requesterId"`
	Date           string `json:"date"`
	TimeSlotID     string `json:"timeSlotId"`
	Reason         string `json:"reason"`
	AdditionalNote string `json:"additionalNote,omitempty"`
}

// Validate checks required fields and normalizes the date.
func (r *CreateRequest) Validate() error {
	if strings.TrimSpace(r.PetID) == "" {
		return fmt.Errorf("%w: petId is required", ErrValidation)
	}
	if strings.TrimSpace(r.RequesterID) == "" {
		return fmt.Errorf("%w: requester is required", ErrValidation)
	}
	if strings.TrimSpace(r.TimeSlotID) == "" {
		return fmt.Errorf("%w: timeSlotId is required", ErrValidation)
	}
	if strings.TrimSpace(r.Reason) == "" {
		return fmt.Errorf("%w: reason is required", ErrValidation)
	}
	date, err := NormalizeDate(r.Date)
	if err != nil {
		return err
	}
	r.Date = date
	return nil
}

// NormalizeDate validates a calendar date and returns its canonical form.
func NormalizeDate(raw string) (string, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("%w: date must be YYYY-MM-DD", ErrValidation)
	}
	return t.Format("2006-01-02"), nil
}

// ListFilter narrows appointment listings. Scope "today" resolves against
// the service clock; Status empty means all statuses.
type ListFilter struct {
	Scope  string
	Date   string
	Status lifecycle.Status
	Page   int
	Limit  int
}

func (f *ListFilter) normalize() {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	if f.Page <= 0 {
		f.Page = 1
	}
}

// Offset converts page/limit into a row offset.
func (f ListFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}
