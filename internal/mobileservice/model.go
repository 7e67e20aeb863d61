package mobileservice

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vetline/clinic-portal/internal/lifecycle"
	"github.com/vetline/clinic-portal/internal/location"
)

var (
	// ErrRequestNotFound is returned when the request id is unknown.
	ErrRequestNotFound = errors.New("mobileservice: request not found")

	// ErrMissingSchedule is returned when a transition into confirmed or
	// completed is attempted without a scheduled date and time on record.
	ErrMissingSchedule = errors.New("mobileservice: scheduled date and time required")

	// ErrRequestClosed is returned when editing notes or schedule on a
	// terminal request.
	ErrRequestClosed = errors.New("mobileservice: request is closed")

	// ErrValidation wraps malformed or missing request fields.
	ErrValidation = errors.New("mobileservice: validation failed")
)

// Request is a house-call service request. Distinct from a clinic
// appointment: it carries a resolved location instead of a time slot, and
// staff assign the schedule after triage.
type Request struct {
	ID            string            `json:"id"`
	PetID         string            `json:"petId"`
	RequesterID   string            `json:"requesterId"`
	ServiceID     string            `json:"serviceId"`
	Reason        string            `json:"reason,omitempty"`
	Location      location.Location `json:"location"`
	ScheduledDate string            `json:"scheduledDate,omitempty"` // "YYYY-MM-DD", empty until staff assign
	ScheduledTime string            `json:"scheduledTime,omitempty"` // "HH:MM", empty until staff assign
	SpecialNotes  string            `json:"specialNotes,omitempty"`
	Status        lifecycle.Status  `json:"status"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

// Scheduled reports whether staff have assigned both date and time.
func (r *Request) Scheduled() bool {
	return r.ScheduledDate != "" && r.ScheduledTime != ""
}

// Summary renders the one-line description used in notification emails.
func (r *Request) Summary() string {
	where := r.Location.Display()
	if r.Scheduled() {
		return fmt.Sprintf("Mobile service on %s at %s, %s", r.ScheduledDate, r.ScheduledTime, where)
	}
	return fmt.Sprintf("Mobile service at %s (awaiting schedule)", where)
}

// CreateRequest is the payload for submitting a house-call request. The
// location arrives as the tagged union produced by the booking form.
type CreateRequest struct {
	PetID       string            `json:"petId"`
	RequesterID string            `json:"requesterId"`
	ServiceID   string            `json:"serviceId"`
	Reason      string            `json:"reason,omitempty"`
	Location    location.Location `json:"location"`
}

// Validate checks required fields and the location union.
func (r *CreateRequest) Validate() error {
	if strings.TrimSpace(r.PetID) == "" {
		return fmt.Errorf("%w: petId is required", ErrValidation)
	}
	if strings.TrimSpace(r.RequesterID) == "" {
		return fmt.Errorf("%w: requester is required", ErrValidation)
	}
	if strings.TrimSpace(r.ServiceID) == "" {
		return fmt.Errorf("%w: serviceId is required", ErrValidation)
	}
	return r.Location.Validate()
}

// UpdateRequest is the staff-facing PUT payload. Every field is optional;
// pointers distinguish "leave alone" from "set".
type UpdateRequest struct {
	Status        *string `json:"status,omitempty"`
	ScheduledDate *string `json:"scheduledDate,omitempty"`
	ScheduledTime *string `json:"scheduledTime,omitempty"`
	SpecialNotes  *string `json:"specialNotes,omitempty"`
}

func parseDate(raw string) (string, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("%w: scheduledDate must be YYYY-MM-DD", ErrValidation)
	}
	return t.Format("2006-01-02"), nil
}

func parseTime(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{"15:04", "3:04"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("15:04"), nil
		}
	}
	return "", fmt.Errorf("%w: scheduledTime must be HH:MM", ErrValidation)
}

// ListFilter narrows request listings.
type ListFilter struct {
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
