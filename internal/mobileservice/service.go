// Package mobileservice implements house-call requests: created with a
// resolved location, scheduled by staff, and moved through the mobile
// lifecycle (pending, confirmed, completed, cancelled).
package mobileservice

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vetline/clinic-portal/internal/accounts"
	"github.com/vetline/clinic-portal/internal/audit"
	"github.com/vetline/clinic-portal/internal/lifecycle"
	"github.com/vetline/clinic-portal/internal/notify"
	"github.com/vetline/clinic-portal/internal/observability/metrics"
	"github.com/vetline/clinic-portal/pkg/logging"
)

// Notifier receives status change intents. Implemented by notify.Service.
type Notifier interface {
	StatusChanged(ctx context.Context, intent notify.Intent) error
}

// Service coordinates creation, scheduling, transitions, auditing and
// notifications for mobile service requests.
type Service struct {
	repo     Repository
	accounts accounts.Reader
	notifier Notifier
	auditor  audit.Recorder
	metrics  *metrics.SchedulingMetrics
	logger   *logging.Logger
	machine  lifecycle.Machine
	tracer   trace.Tracer
	now      func() time.Time
}

// NewService constructs the mobile service. accounts and notifier may be
// nil; status changes are then not emailed.
func NewService(
	repo Repository,
	accountReader accounts.Reader,
	notifier Notifier,
	auditor audit.Recorder,
	m *metrics.SchedulingMetrics,
	logger *logging.Logger,
) *Service {
	if repo == nil {
		panic("mobileservice: repository required")
	}
	if auditor == nil {
		auditor = audit.NopRecorder{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		repo:     repo,
		accounts: accountReader,
		notifier: notifier,
		auditor:  auditor,
		metrics:  m,
		logger:   logger.WithComponent("mobileservice"),
		machine:  lifecycle.Mobile(),
		tracer:   otel.Tracer("clinic-portal/mobileservice"),
		now:      time.Now,
	}
}

// Create submits a new house-call request in status pending. The schedule
// stays empty until staff assign it.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Request, error) {
	ctx, span := s.tracer.Start(ctx, "mobileservice.Create")
	defer span.End()

	if err := req.Validate(); err != nil {
		s.metrics.ObserveBooking("mobile", "validation_error")
		return nil, err
	}

	request := &Request{
		PetID:       req.PetID,
		RequesterID: req.RequesterID,
		ServiceID:   req.ServiceID,
		Reason:      req.Reason,
		Location:    req.Location,
		Status:      lifecycle.MobilePending,
	}
	if err := s.repo.Create(ctx, request); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("request.id", request.ID))

	s.metrics.ObserveBooking("mobile", "created")
	s.logger.Info("mobile service requested",
		"request_id", request.ID, "location", request.Location.Display())

	if err := s.auditor.Log(ctx, audit.Event{
		EventType: audit.EventMobileServiceCreated,
		SubjectID: request.ID,
		Actor:     request.RequesterID,
		Details:   audit.MarshalDetails(audit.Details{ToStatus: string(request.Status)}),
	}); err != nil {
		s.logger.Error("audit write failed", "error", err, "request_id", request.ID)
	}
	return request, nil
}

// Update applies staff edits: schedule assignment, special notes, and an
// optional lifecycle transition, atomically. Confirming or completing an
// unscheduled request fails with ErrMissingSchedule and changes nothing.
func (s *Service) Update(ctx context.Context, id string, upd UpdateRequest, actor string) (*Request, error) {
	ctx, span := s.tracer.Start(ctx, "mobileservice.Update")
	defer span.End()

	request, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.machine.Terminal(request.Status) &&
		(upd.ScheduledDate != nil || upd.ScheduledTime != nil || upd.SpecialNotes != nil) {
		return nil, ErrRequestClosed
	}

	if upd.ScheduledDate != nil {
		date, err := parseDate(*upd.ScheduledDate)
		if err != nil {
			return nil, err
		}
		request.ScheduledDate = date
	}
	if upd.ScheduledTime != nil {
		tod, err := parseTime(*upd.ScheduledTime)
		if err != nil {
			return nil, err
		}
		request.ScheduledTime = tod
	}
	if upd.SpecialNotes != nil {
		request.SpecialNotes = *upd.SpecialNotes
	}

	var from lifecycle.Status
	transitioned := false
	if upd.Status != nil {
		target, err := s.machine.Parse(*upd.Status)
		if err != nil {
			s.metrics.ObserveTransition(s.machine.Name(), "unknown_status")
			return nil, err
		}
		if _, err := s.machine.Transition(request.Status, target); err != nil {
			s.metrics.ObserveTransition(s.machine.Name(), "invalid")
			return nil, err
		}
		if (target == lifecycle.MobileConfirmed || target == lifecycle.MobileCompleted) && !request.Scheduled() {
			s.metrics.ObserveTransition(s.machine.Name(), "missing_schedule")
			return nil, ErrMissingSchedule
		}
		from = request.Status
		request.Status = target
		transitioned = true
	}

	if err := s.repo.Update(ctx, request); err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("request.id", id),
		attribute.String("request.status", string(request.Status)),
	)

	if transitioned {
		s.metrics.ObserveTransition(s.machine.Name(), "ok")
		s.logger.Info("mobile service status changed",
			"request_id", id, "from", from, "to", request.Status, "actor", actor)

		if err := s.auditor.Log(ctx, audit.Event{
			EventType: audit.EventMobileServiceStatusChanged,
			SubjectID: id,
			Actor:     actor,
			Details: audit.MarshalDetails(audit.Details{
				FromStatus: string(from),
				ToStatus:   string(request.Status),
				Date:       request.ScheduledDate,
				TimeSlot:   request.ScheduledTime,
			}),
		}); err != nil {
			s.logger.Error("audit write failed", "error", err, "request_id", id)
		}
		s.emitStatusChanged(ctx, request)
	}
	return request, nil
}

// GetByID fetches one request.
func (s *Service) GetByID(ctx context.Context, id string) (*Request, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns requests for staff views.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Request, error) {
	return s.repo.List(ctx, filter)
}

func (s *Service) emitStatusChanged(ctx context.Context, request *Request) {
	if s.notifier == nil || s.accounts == nil {
		return
	}
	acct, err := s.accounts.GetByID(ctx, request.RequesterID)
	if err != nil {
		s.logger.Error("requester lookup failed", "error", err, "requester_id", request.RequesterID)
		return
	}
	intent := notify.Intent{
		Contact:   acct.Email,
		Recipient: acct.Name,
		Summary:   request.Summary(),
		NewStatus: string(request.Status),
	}
	if err := s.notifier.StatusChanged(ctx, intent); err != nil {
		s.logger.Error("notification failed", "error", err, "request_id", request.ID)
	}
}
