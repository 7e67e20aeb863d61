package slots

import (
	"context"
	"fmt"
	"time"

	"github.com/vetline/clinic-portal/internal/audit"
	"github.com/vetline/clinic-portal/pkg/logging"
)

// UpcomingChecker reports whether a slot is still referenced by a future
// non-cancelled appointment. Implemented by the appointments repository.
type UpcomingChecker interface {
	SlotHasUpcoming(ctx context.Context, slotID string, fromDate string) (bool, error)
}

// Registry applies the staff-facing policy on top of the repository:
// removal is blocked while upcoming appointments reference the slot,
// disabling is always allowed and leaves existing appointments intact.
type Registry struct {
	repo     Repository
	upcoming UpcomingChecker
	auditor  audit.Recorder
	logger   *logging.Logger
	now      func() time.Time
}

// NewRegistry constructs the registry service.
func NewRegistry(repo Repository, upcoming UpcomingChecker, auditor audit.Recorder, logger *logging.Logger) *Registry {
	if repo == nil {
		panic("slots: repository required")
	}
	if auditor == nil {
		auditor = audit.NopRecorder{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Registry{
		repo:     repo,
		upcoming: upcoming,
		auditor:  auditor,
		logger:   logger,
		now:      time.Now,
	}
}

// List returns all slots ordered by time of day.
func (g *Registry) List(ctx context.Context) ([]*TimeSlot, error) {
	return g.repo.List(ctx)
}

// ListEnabled returns only the slots offered to new bookings.
func (g *Registry) ListEnabled(ctx context.Context) ([]*TimeSlot, error) {
	return g.repo.ListEnabled(ctx)
}

// Create registers a new slot.
func (g *Registry) Create(ctx context.Context, timeOfDay, actor string) (*TimeSlot, error) {
	s, err := g.repo.Create(ctx, timeOfDay)
	if err != nil {
		return nil, err
	}
	g.logger.Info("time slot created", "slot_id", s.ID, "time_of_day", s.TimeOfDay)
	if err := g.auditor.Log(ctx, audit.Event{
		EventType: audit.EventSlotCreated,
		SubjectID: s.ID,
		Actor:     actor,
		Details:   audit.MarshalDetails(audit.Details{TimeSlot: s.TimeOfDay}),
	}); err != nil {
		g.logger.Error("audit write failed", "error", err, "slot_id", s.ID)
	}
	return s, nil
}

// SetEnabled toggles whether the slot is offered to new bookings.
// Appointments already holding the slot are unaffected.
func (g *Registry) SetEnabled(ctx context.Context, id string, enabled bool, actor string) error {
	if err := g.repo.SetEnabled(ctx, id, enabled); err != nil {
		return err
	}
	g.logger.Info("time slot toggled", "slot_id", id, "enabled", enabled)
	if err := g.auditor.Log(ctx, audit.Event{
		EventType: audit.EventSlotToggled,
		SubjectID: id,
		Actor:     actor,
		Details:   audit.MarshalDetails(audit.Details{Enabled: &enabled}),
	}); err != nil {
		g.logger.Error("audit write failed", "error", err, "slot_id", id)
	}
	return nil
}

// Remove deletes a slot. Blocked with ErrSlotInUse while any future
// non-cancelled appointment references it.
func (g *Registry) Remove(ctx context.Context, id, actor string) error {
	if _, err := g.repo.GetByID(ctx, id); err != nil {
		return err
	}
	if g.upcoming != nil {
		today := g.now().UTC().Format("2006-01-02")
		inUse, err := g.upcoming.SlotHasUpcoming(ctx, id, today)
		if err != nil {
			return fmt.Errorf("slots: upcoming check: %w", err)
		}
		if inUse {
			return ErrSlotInUse
		}
	}
	if err := g.repo.Remove(ctx, id); err != nil {
		return err
	}
	g.logger.Info("time slot removed", "slot_id", id)
	if err := g.auditor.Log(ctx, audit.Event{
		EventType: audit.EventSlotRemoved,
		SubjectID: id,
		Actor:     actor,
	}); err != nil {
		g.logger.Error("audit write failed", "error", err, "slot_id", id)
	}
	return nil
}
