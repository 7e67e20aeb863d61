package mobileservice

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/vetline/clinic-portal/internal/accounts"
	"github.com/vetline/clinic-portal/internal/lifecycle"
	"github.com/vetline/clinic-portal/internal/location"
	"github.com/vetline/clinic-portal/internal/notify"
	"github.com/vetline/clinic-portal/pkg/logging"
)

type captureNotifier struct {
	mu      sync.Mutex
	intents []notify.Intent
}

func (c *captureNotifier) StatusChanged(_ context.Context, intent notify.Intent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.intents = append(c.intents, intent)
	return nil
}

func newTestService(t *testing.T) (*Service, *captureNotifier) {
	t.Helper()
	acctReader := accounts.NewInMemoryReader()
	acctReader.Put(accounts.Account{ID: "acct-1", Name: "Jane", Email: "jane@example.com"})
	notifier := &captureNotifier{}
	svc := NewService(NewInMemoryRepository(), acctReader, notifier, nil, nil, logging.Default())
	return svc, notifier
}

func addressRequest() CreateRequest {
	loc, _ := location.FromAddress("221B Baker St")
	return CreateRequest{
		PetID:       "pet-1",
		RequesterID: "acct-1",
		ServiceID:   "svc-grooming",
		Reason:      "Nail trim at home",
		Location:    loc,
	}
}

func strptr(s string) *string { return &s }

func TestCreateStartsPending(t *testing.T) {
	svc, _ := newTestService(t)

	req, err := svc.Create(context.Background(), addressRequest())
	if err != nil {
		t.Fatal(err)
	}
	if req.Status != lifecycle.MobilePending {
		t.Errorf("new request should be pending, got %s", req.Status)
	}
	if req.Scheduled() {
		t.Error("schedule should be empty at creation")
	}
	if req.Location.Display() != "221B Baker St" {
		t.Errorf("address should display verbatim, got %q", req.Location.Display())
	}
}

func TestCreateRejectsMissingLocation(t *testing.T) {
	svc, _ := newTestService(t)
	req := addressRequest()
	req.Location = location.Location{}
	if _, err := svc.Create(context.Background(), req); !errors.Is(err, location.ErrLocationRequired) {
		t.Errorf("expected ErrLocationRequired, got %v", err)
	}
}

func TestConfirmRequiresSchedule(t *testing.T) {
	svc, _ := newTestService(t)
	req, err := svc.Create(context.Background(), addressRequest())
	if err != nil {
		t.Fatal(err)
	}

	_, err = svc.Update(context.Background(), req.ID, UpdateRequest{Status: strptr("confirmed")}, "role:admin")
	if !errors.Is(err, ErrMissingSchedule) {
		t.Fatalf("expected ErrMissingSchedule, got %v", err)
	}

	// Guard failure must leave status unchanged.
	got, err := svc.GetByID(context.Background(), req.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != lifecycle.MobilePending {
		t.Errorf("status should stay pending after guard failure, got %s", got.Status)
	}

	// Date alone is not enough.
	_, err = svc.Update(context.Background(), req.ID, UpdateRequest{
		ScheduledDate: strptr("2026-09-12"),
		Status:        strptr("confirmed"),
	}, "role:admin")
	if !errors.Is(err, ErrMissingSchedule) {
		t.Errorf("date without time should still fail, got %v", err)
	}
}

func TestScheduleAndConfirmInOneUpdate(t *testing.T) {
	svc, notifier := newTestService(t)
	req, err := svc.Create(context.Background(), addressRequest())
	if err != nil {
		t.Fatal(err)
	}

	updated, err := svc.Update(context.Background(), req.ID, UpdateRequest{
		ScheduledDate: strptr("2026-09-12"),
		ScheduledTime: strptr("14:00"),
		Status:        strptr("confirmed"),
	}, "role:admin")
	if err != nil {
		t.Fatal(err)
	}
	if updated.Status != lifecycle.MobileConfirmed {
		t.Errorf("expected confirmed, got %s", updated.Status)
	}
	if !updated.Scheduled() {
		t.Error("schedule should be recorded")
	}
	if len(notifier.intents) != 1 {
		t.Fatalf("confirmation should emit one intent, got %d", len(notifier.intents))
	}
	if notifier.intents[0].NewStatus != "confirmed" {
		t.Errorf("intent should carry the new status, got %q", notifier.intents[0].NewStatus)
	}
}

func TestHouseCallFullLifecycle(t *testing.T) {
	svc, notifier := newTestService(t)

	req, err := svc.Create(context.Background(), addressRequest())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Update(context.Background(), req.ID, UpdateRequest{
		ScheduledDate: strptr("2026-09-12"),
		ScheduledTime: strptr("14:00"),
		Status:        strptr("confirmed"),
	}, "role:admin"); err != nil {
		t.Fatal(err)
	}

	updated, err := svc.Update(context.Background(), req.ID, UpdateRequest{Status: strptr("completed")}, "role:admin")
	if err != nil {
		t.Fatal(err)
	}
	if updated.Status != lifecycle.MobileCompleted {
		t.Fatalf("expected completed, got %s", updated.Status)
	}

	// completed is terminal.
	if _, err := svc.Update(context.Background(), req.ID, UpdateRequest{Status: strptr("cancelled")}, "role:admin"); !errors.Is(err, lifecycle.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition after completion, got %v", err)
	}

	if len(notifier.intents) != 2 {
		t.Errorf("expected intents for confirm and complete, got %d", len(notifier.intents))
	}
}

func TestTerminalSelfTransitionRejected(t *testing.T) {
	svc, _ := newTestService(t)

	req, err := svc.Create(context.Background(), addressRequest())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Update(context.Background(), req.ID, UpdateRequest{Status: strptr("cancelled")}, "role:admin"); err != nil {
		t.Fatal(err)
	}

	// Repeating the cancellation is not a no-op; terminal states have no
	// outgoing edges, their own included.
	_, err = svc.Update(context.Background(), req.ID, UpdateRequest{Status: strptr("cancelled")}, "role:admin")
	if !errors.Is(err, lifecycle.ErrInvalidTransition) {
		t.Errorf("cancelled -> cancelled should be rejected, got %v", err)
	}

	got, err := svc.GetByID(context.Background(), req.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != lifecycle.MobileCancelled {
		t.Errorf("status should stay cancelled, got %s", got.Status)
	}
}

func TestCancelFromPendingNeedsNoSchedule(t *testing.T) {
	svc, _ := newTestService(t)
	req, err := svc.Create(context.Background(), addressRequest())
	if err != nil {
		t.Fatal(err)
	}

	updated, err := svc.Update(context.Background(), req.ID, UpdateRequest{Status: strptr("cancelled")}, "role:admin")
	if err != nil {
		t.Fatal(err)
	}
	if updated.Status != lifecycle.MobileCancelled {
		t.Errorf("expected cancelled, got %s", updated.Status)
	}
}

func TestNotesEditableUntilClosed(t *testing.T) {
	svc, _ := newTestService(t)
	req, err := svc.Create(context.Background(), addressRequest())
	if err != nil {
		t.Fatal(err)
	}

	updated, err := svc.Update(context.Background(), req.ID, UpdateRequest{SpecialNotes: strptr("Dog is anxious, ring ahead")}, "role:assistant_doctor")
	if err != nil {
		t.Fatal(err)
	}
	if updated.SpecialNotes != "Dog is anxious, ring ahead" {
		t.Errorf("notes should be stored, got %q", updated.SpecialNotes)
	}

	if _, err := svc.Update(context.Background(), req.ID, UpdateRequest{Status: strptr("cancelled")}, "role:admin"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Update(context.Background(), req.ID, UpdateRequest{SpecialNotes: strptr("late edit")}, "role:admin"); !errors.Is(err, ErrRequestClosed) {
		t.Errorf("notes on a closed request should be rejected, got %v", err)
	}
}

func TestUpdateParsesStatusCaseInsensitively(t *testing.T) {
	svc, _ := newTestService(t)
	req, err := svc.Create(context.Background(), addressRequest())
	if err != nil {
		t.Fatal(err)
	}

	updated, err := svc.Update(context.Background(), req.ID, UpdateRequest{
		ScheduledDate: strptr("2026-09-12"),
		ScheduledTime: strptr("14:00"),
		Status:        strptr("Confirmed"),
	}, "role:admin")
	if err != nil {
		t.Fatal(err)
	}
	if updated.Status != lifecycle.MobileConfirmed {
		t.Errorf("storage must be canonical lowercase, got %q", updated.Status)
	}
}

func TestUpdateValidatesScheduleFormat(t *testing.T) {
	svc, _ := newTestService(t)
	req, err := svc.Create(context.Background(), addressRequest())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Update(context.Background(), req.ID, UpdateRequest{ScheduledDate: strptr("12.09.2026")}, "role:admin"); !errors.Is(err, ErrValidation) {
		t.Errorf("bad date should fail validation, got %v", err)
	}
	if _, err := svc.Update(context.Background(), req.ID, UpdateRequest{ScheduledTime: strptr("2pm")}, "role:admin"); !errors.Is(err, ErrValidation) {
		t.Errorf("bad time should fail validation, got %v", err)
	}
}

func TestListStatusFilter(t *testing.T) {
	svc, _ := newTestService(t)

	first, err := svc.Create(context.Background(), addressRequest())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Create(context.Background(), addressRequest()); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Update(context.Background(), first.ID, UpdateRequest{Status: strptr("cancelled")}, "role:admin"); err != nil {
		t.Fatal(err)
	}

	pending, err := svc.List(context.Background(), ListFilter{Status: lifecycle.MobilePending})
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 {
		t.Errorf("expected one pending request, got %d", len(pending))
	}
}
