package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vetline/clinic-portal/internal/appointments"
	"github.com/vetline/clinic-portal/internal/availability"
	"github.com/vetline/clinic-portal/internal/location"
	"github.com/vetline/clinic-portal/internal/mobileservice"
	"github.com/vetline/clinic-portal/internal/pets"
	"github.com/vetline/clinic-portal/pkg/logging"
)

// Workflow orchestrates the wizard. Each advance validates only the fields
// the current step owns; submission re-checks slot availability because
// arbitrary time may pass while the requester reviews.
type Workflow struct {
	store        SessionStore
	pets         pets.Reader
	checker      *availability.Checker
	appointments *appointments.Service
	mobile       *mobileservice.Service
	logger       *logging.Logger
	tracer       trace.Tracer
	now          func() time.Time
}

// NewWorkflow constructs the booking workflow.
func NewWorkflow(
	store SessionStore,
	petReader pets.Reader,
	checker *availability.Checker,
	apptService *appointments.Service,
	mobileService *mobileservice.Service,
	logger *logging.Logger,
) *Workflow {
	if store == nil {
		panic("booking: session store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Workflow{
		store:        store,
		pets:         petReader,
		checker:      checker,
		appointments: apptService,
		mobile:       mobileService,
		logger:       logger.WithComponent("booking"),
		tracer:       otel.Tracer("clinic-portal/booking"),
		now:          time.Now,
	}
}

// Start opens a new wizard session on the given path.
func (w *Workflow) Start(ctx context.Context, requesterID string, path Path) (*Session, error) {
	if path != PathClinic && path != PathMobile {
		return nil, ErrUnknownPath
	}
	if requesterID == "" {
		return nil, fmt.Errorf("%w: requester is required", ErrStepIncomplete)
	}
	now := w.now().UTC()
	sess := &Session{
		ID:          uuid.NewString(),
		RequesterID: requesterID,
		Path:        path,
		Step:        StepSelectPetAndService,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := w.store.Save(ctx, sess); err != nil {
		return nil, err
	}
	w.logger.Info("booking session started", "session_id", sess.ID, "path", path)
	return sess, nil
}

// Get loads a session.
func (w *Workflow) Get(ctx context.Context, id string) (*Session, error) {
	return w.store.Get(ctx, id)
}

// Advance applies the step input and, when the current step's requirements
// are met, moves to the next one. Fields from other steps are preserved.
func (w *Workflow) Advance(ctx context.Context, id string, input StepInput) (*Session, error) {
	sess, err := w.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Step == StepSubmitted {
		return nil, ErrInvalidStep
	}
	if sess.Step == StepReview {
		// Review has no form fields; leaving it forward means submitting.
		return nil, ErrInvalidStep
	}

	w.apply(sess, input)

	switch sess.Step {
	case StepSelectPetAndService:
		if err := w.validatePetAndService(ctx, sess); err != nil {
			return nil, err
		}
	case StepSelectScheduleOrLocation:
		if err := w.validateScheduleOrLocation(ctx, sess, input); err != nil {
			return nil, err
		}
	}

	sess.Step = stepOrder[sess.stepIndex()+1]
	sess.UpdatedAt = w.now().UTC()
	if err := w.store.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Back moves one step backwards. All entered data is preserved.
func (w *Workflow) Back(ctx context.Context, id string) (*Session, error) {
	sess, err := w.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	idx := sess.stepIndex()
	if idx <= 0 {
		return nil, ErrInvalidStep
	}
	sess.Step = stepOrder[idx-1]
	sess.UpdatedAt = w.now().UTC()
	if err := w.store.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Submit persists the booking. Only legal at the review step. The clinic
// path re-checks availability immediately before the insert; the insert
// itself remains the authority and may still surface ErrSlotTaken.
func (w *Workflow) Submit(ctx context.Context, id string) (*Session, error) {
	ctx, span := w.tracer.Start(ctx, "booking.Submit")
	defer span.End()

	sess, err := w.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Step != StepReview {
		return nil, ErrInvalidStep
	}
	span.SetAttributes(
		attribute.String("session.id", sess.ID),
		attribute.String("session.path", string(sess.Path)),
	)

	switch sess.Path {
	case PathClinic:
		available, err := w.checker.IsAvailable(ctx, sess.Date, sess.TimeSlotID)
		if err != nil {
			return nil, err
		}
		if !available {
			return nil, appointments.ErrSlotTaken
		}
		appt, err := w.appointments.Create(ctx, appointments.CreateRequest{
			PetID:          sess.PetID,
			RequesterID:    sess.RequesterID,
			Date:           sess.Date,
			TimeSlotID:     sess.TimeSlotID,
			Reason:         sess.Reason,
			AdditionalNote: sess.AdditionalNote,
		})
		if err != nil {
			return nil, err
		}
		sess.ResultID = appt.ID
	case PathMobile:
		if sess.Location == nil {
			return nil, fmt.Errorf("%w: location missing", ErrStepIncomplete)
		}
		req, err := w.mobile.Create(ctx, mobileservice.CreateRequest{
			PetID:       sess.PetID,
			RequesterID: sess.RequesterID,
			ServiceID:   sess.ServiceID,
			Reason:      sess.Reason,
			Location:    *sess.Location,
		})
		if err != nil {
			return nil, err
		}
		sess.ResultID = req.ID
	default:
		return nil, ErrUnknownPath
	}

	sess.Step = StepSubmitted
	sess.UpdatedAt = w.now().UTC()
	if err := w.store.Save(ctx, sess); err != nil {
		w.logger.Error("failed to mark session submitted", "error", err, "session_id", sess.ID)
	}
	w.logger.Info("booking submitted", "session_id", sess.ID, "result_id", sess.ResultID, "path", sess.Path)
	return sess, nil
}

func (w *Workflow) apply(sess *Session, input StepInput) {
	if input.PetID != nil {
		sess.PetID = *input.PetID
	}
	if input.ServiceID != nil {
		sess.ServiceID = *input.ServiceID
	}
	if input.Reason != nil {
		sess.Reason = *input.Reason
	}
	if input.AdditionalNote != nil {
		sess.AdditionalNote = *input.AdditionalNote
	}
	if input.Date != nil {
		sess.Date = *input.Date
	}
	if input.TimeSlotID != nil {
		sess.TimeSlotID = *input.TimeSlotID
	}
}

func (w *Workflow) validatePetAndService(ctx context.Context, sess *Session) error {
	if sess.PetID == "" {
		return fmt.Errorf("%w: a pet must be chosen", ErrStepIncomplete)
	}
	if w.pets != nil {
		if _, err := pets.VerifyOwnership(ctx, w.pets, sess.PetID, sess.RequesterID); err != nil {
			if errors.Is(err, pets.ErrPetNotFound) || errors.Is(err, pets.ErrNotOwner) {
				return fmt.Errorf("%w: %v", ErrStepIncomplete, err)
			}
			return err
		}
	}
	switch sess.Path {
	case PathClinic:
		if sess.Reason == "" {
			return fmt.Errorf("%w: a visit reason must be chosen", ErrStepIncomplete)
		}
	case PathMobile:
		if sess.ServiceID == "" {
			return fmt.Errorf("%w: a service must be chosen", ErrStepIncomplete)
		}
	}
	return nil
}

func (w *Workflow) validateScheduleOrLocation(ctx context.Context, sess *Session, input StepInput) error {
	switch sess.Path {
	case PathClinic:
		if sess.Date == "" || sess.TimeSlotID == "" {
			return fmt.Errorf("%w: date and time slot must be chosen", ErrStepIncomplete)
		}
		if w.checker != nil {
			available, err := w.checker.IsAvailable(ctx, sess.Date, sess.TimeSlotID)
			if err != nil {
				if errors.Is(err, appointments.ErrValidation) || errors.Is(err, availability.ErrUnknownSlot) {
					return fmt.Errorf("%w: %v", ErrStepIncomplete, err)
				}
				return err
			}
			if !available {
				return appointments.ErrSlotTaken
			}
		}
	case PathMobile:
		if input.Location != nil {
			loc, err := location.Resolve(*input.Location)
			if err != nil {
				return err
			}
			sess.Location = &loc
		}
		if sess.Location == nil {
			return location.ErrLocationRequired
		}
	}
	return nil
}
