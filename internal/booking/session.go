// Package booking drives the multi-step wizard a requester walks through:
// select pet and service, choose a schedule (clinic) or location (mobile),
// review, submit. Step state lives in a session store; nothing is persisted
// until submission.
package booking

import (
	"errors"
	"time"

	"github.com/vetline/clinic-portal/internal/location"
)

var (
	// ErrSessionNotFound is returned when the session id is unknown or expired.
	ErrSessionNotFound = errors.New("booking: session not found")

	// ErrStepIncomplete is returned when the current step's required fields
	// are missing or invalid.
	ErrStepIncomplete = errors.New("booking: current step is incomplete")

	// ErrInvalidStep is returned for operations not legal at the current step.
	ErrInvalidStep = errors.New("booking: operation not allowed at current step")

	// ErrUnknownPath is returned when the booking path is neither clinic nor mobile.
	ErrUnknownPath = errors.New("booking: unknown booking path")
)

// Path selects which kind of visit the wizard produces.
type Path string

const (
	PathClinic Path = "clinic"
	PathMobile Path = "mobile"
)

// Step is the wizard position. Strictly ordered; one active step at a time.
type Step string

const (
	StepSelectPetAndService      Step = "select_pet_and_service"
	StepSelectScheduleOrLocation Step = "select_schedule_or_location"
	StepReview                   Step = "review"
	StepSubmitted                Step = "submitted"
)

var stepOrder = []Step{StepSelectPetAndService, StepSelectScheduleOrLocation, StepReview}

// Session is the in-progress wizard state. Fields accumulate as steps
// complete and survive going back; closing the wizard just lets the TTL
// expire with no partial persistence.
type Session struct {
	ID          string `json:"id"`
	RequesterID string `json:"requesterId"`
	Path        Path   `json:"path"`
	Step        Step   `json:"step"`

	PetID          string `json:"petId,omitempty"`
	ServiceID      string `json:"serviceId,omitempty"`
	Reason         string `json:"reason,omitempty"`
	AdditionalNote string `json:"additionalNote,omitempty"`

	// Clinic path.
	Date       string `json:"date,omitempty"`
	TimeSlotID string `json:"timeSlotId,omitempty"`

	// Mobile path.
	Location *location.Location `json:"location,omitempty"`

	// Set on submission.
	ResultID string `json:"resultId,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (s *Session) stepIndex() int {
	for i, step := range stepOrder {
		if s.Step == step {
			return i
		}
	}
	return -1
}

// StepInput carries the fields a step submission may set. Pointers
// distinguish "leave alone" from "set", so going back and forward never
// silently resets earlier answers.
type StepInput struct {
	PetID          *string            `json:"petId,omitempty"`
	ServiceID      *string            `json:"serviceId,omitempty"`
	Reason         *string            `json:"reason,omitempty"`
	AdditionalNote *string            `json:"additionalNote,omitempty"`
	Date           *string            `json:"date,omitempty"`
	TimeSlotID     *string            `json:"timeSlotId,omitempty"`
	Location       *location.RawInput `json:"location,omitempty"`
}
