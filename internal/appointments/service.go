// Package appointments implements clinic visit booking and lifecycle
// management: one active appointment per (date, time slot), transitions
// validated against the clinic machine, every change audited and the
// requester notified.
package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vetline/clinic-portal/internal/accounts"
	"github.com/vetline/clinic-portal/internal/audit"
	"github.com/vetline/clinic-portal/internal/lifecycle"
	"github.com/vetline/clinic-portal/internal/notify"
	"github.com/vetline/clinic-portal/internal/observability/metrics"
	"github.com/vetline/clinic-portal/internal/slots"
	"github.com/vetline/clinic-portal/pkg/logging"
)

// SlotSource resolves a time slot at booking time. Implemented by the
// slot registry repository.
type SlotSource interface {
	GetByID(ctx context.Context, id string) (*slots.TimeSlot, error)
}

// Notifier receives status change intents. Implemented by notify.Service.
type Notifier interface {
	StatusChanged(ctx context.Context, intent notify.Intent) error
}

// Service coordinates booking, lifecycle transitions, auditing and
// notifications for clinic appointments.
type Service struct {
	repo     Repository
	slots    SlotSource
	accounts accounts.Reader
	notifier Notifier
	auditor  audit.Recorder
	metrics  *metrics.SchedulingMetrics
	logger   *logging.Logger
	machine  lifecycle.Machine
	tracer   trace.Tracer
	now      func() time.Time
}

// NewService constructs the appointment service. accounts and notifier may
// be nil; status changes are then not emailed.
func NewService(
	repo Repository,
	slotSource SlotSource,
	accountReader accounts.Reader,
	notifier Notifier,
	auditor audit.Recorder,
	m *metrics.SchedulingMetrics,
	logger *logging.Logger,
) *Service {
	if repo == nil {
		panic("appointments: repository required")
	}
	if slotSource == nil {
		panic("appointments: slot source required")
	}
	if auditor == nil {
		auditor = audit.NopRecorder{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		repo:     repo,
		slots:    slotSource,
		accounts: accountReader,
		notifier: notifier,
		auditor:  auditor,
		metrics:  m,
		logger:   logger.WithComponent("appointments"),
		machine:  lifecycle.Clinic(),
		tracer:   otel.Tracer("clinic-portal/appointments"),
		now:      time.Now,
	}
}

// Create books a clinic appointment. The slot must exist and be enabled;
// losing the (date, slot) race surfaces as ErrSlotTaken.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Appointment, error) {
	ctx, span := s.tracer.Start(ctx, "appointments.Create")
	defer span.End()

	if err := req.Validate(); err != nil {
		s.metrics.ObserveBooking("clinic", "validation_error")
		return nil, err
	}

	slot, err := s.slots.GetByID(ctx, req.TimeSlotID)
	if err != nil {
		if errors.Is(err, slots.ErrSlotNotFound) {
			s.metrics.ObserveBooking("clinic", "validation_error")
			return nil, fmt.Errorf("%w: unknown time slot", ErrValidation)
		}
		return nil, fmt.Errorf("appointments: slot lookup: %w", err)
	}
	if !slot.Enabled {
		s.metrics.ObserveBooking("clinic", "slot_disabled")
		return nil, ErrSlotDisabled
	}

	appt := &Appointment{
		PetID:          req.PetID,
		RequesterID:    req.RequesterID,
		Date:           req.Date,
		TimeSlotID:     slot.ID,
		TimeOfDay:      slot.TimeOfDay,
		Reason:         req.Reason,
		AdditionalNote: req.AdditionalNote,
		Status:         lifecycle.StatusScheduled,
	}
	if err := s.repo.Create(ctx, appt); err != nil {
		if errors.Is(err, ErrSlotTaken) {
			s.metrics.ObserveBooking("clinic", "slot_taken")
			s.logger.Info("booking lost slot race", "date", appt.Date, "time_slot_id", appt.TimeSlotID)
			return nil, ErrSlotTaken
		}
		return nil, err
	}
	span.SetAttributes(attribute.String("appointment.id", appt.ID))

	s.metrics.ObserveBooking("clinic", "created")
	s.logger.Info("appointment created",
		"appointment_id", appt.ID, "date", appt.Date, "time_of_day", appt.TimeOfDay)

	if err := s.auditor.Log(ctx, audit.Event{
		EventType: audit.EventAppointmentCreated,
		SubjectID: appt.ID,
		Actor:     appt.RequesterID,
		Details: audit.MarshalDetails(audit.Details{
			Date:     appt.Date,
			TimeSlot: appt.TimeOfDay,
			ToStatus: string(appt.Status),
		}),
	}); err != nil {
		s.logger.Error("audit write failed", "error", err, "appointment_id", appt.ID)
	}
	return appt, nil
}

// Transition moves an appointment to a new status. Illegal edges return
// lifecycle.ErrInvalidTransition; unknown spellings lifecycle.ErrUnknownStatus.
func (s *Service) Transition(ctx context.Context, id, rawStatus, actor string) (*Appointment, error) {
	ctx, span := s.tracer.Start(ctx, "appointments.Transition")
	defer span.End()

	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	target, err := s.machine.Parse(rawStatus)
	if err != nil {
		s.metrics.ObserveTransition(s.machine.Name(), "unknown_status")
		return nil, err
	}
	if _, err := s.machine.Transition(appt.Status, target); err != nil {
		s.metrics.ObserveTransition(s.machine.Name(), "invalid")
		return nil, err
	}

	from := appt.Status
	updated, err := s.repo.UpdateStatus(ctx, id, target)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("appointment.id", id),
		attribute.String("appointment.status", string(target)),
	)

	s.metrics.ObserveTransition(s.machine.Name(), "ok")
	s.logger.Info("appointment status changed",
		"appointment_id", id, "from", from, "to", target, "actor", actor)

	if err := s.auditor.Log(ctx, audit.Event{
		EventType: audit.EventAppointmentStatusChanged,
		SubjectID: id,
		Actor:     actor,
		Details: audit.MarshalDetails(audit.Details{
			FromStatus: string(from),
			ToStatus:   string(target),
		}),
	}); err != nil {
		s.logger.Error("audit write failed", "error", err, "appointment_id", id)
	}

	s.emitStatusChanged(ctx, updated)
	return updated, nil
}

// GetByID fetches one appointment.
func (s *Service) GetByID(ctx context.Context, id string) (*Appointment, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns appointments for staff views. Scope "today" resolves against
// the service clock.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Appointment, error) {
	if filter.Scope == "today" && filter.Date == "" {
		filter.Date = s.now().UTC().Format("2006-01-02")
	}
	return s.repo.List(ctx, filter)
}

// emitStatusChanged looks up the requester's contact and hands the intent to
// the notifier. Delivery problems are logged, never surfaced to the caller:
// the status change already happened.
func (s *Service) emitStatusChanged(ctx context.Context, appt *Appointment) {
	if s.notifier == nil || s.accounts == nil {
		return
	}
	acct, err := s.accounts.GetByID(ctx, appt.RequesterID)
	if err != nil {
		s.logger.Error("requester lookup failed", "error", err, "requester_id", appt.RequesterID)
		return
	}
	intent := notify.Intent{
		Contact:   acct.Email,
		Recipient: acct.Name,
		Summary:   appt.Summary(),
		NewStatus: string(appt.Status),
	}
	if err := s.notifier.StatusChanged(ctx, intent); err != nil {
		s.logger.Error("notification failed", "error", err, "appointment_id", appt.ID)
	}
}
