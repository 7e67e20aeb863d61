package availability

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vetline/clinic-portal/internal/appointments"
	"github.com/vetline/clinic-portal/internal/lifecycle"
	"github.com/vetline/clinic-portal/internal/slots"
	"github.com/vetline/clinic-portal/pkg/logging"
)

func setup(t *testing.T) (*Checker, *slots.InMemoryRepository, *appointments.InMemoryRepository, string) {
	t.Helper()
	slotRepo := slots.NewInMemoryRepository()
	slot, err := slotRepo.Create(context.Background(), "09:00")
	if err != nil {
		t.Fatal(err)
	}
	apptRepo := appointments.NewInMemoryRepository()
	return NewChecker(slotRepo, apptRepo, nil), slotRepo, apptRepo, slot.ID
}

func book(t *testing.T, repo *appointments.InMemoryRepository, date, slotID string, status lifecycle.Status) *appointments.Appointment {
	t.Helper()
	appt := &appointments.Appointment{
		PetID:       "pet-1",
		RequesterID: "acct-1",
		Date:        date,
		TimeSlotID:  slotID,
		TimeOfDay:   "09:00",
		Reason:      "Checkup",
		Status:      status,
	}
	if err := repo.Create(context.Background(), appt); err != nil {
		t.Fatal(err)
	}
	return appt
}

func TestFreeSlotIsAvailable(t *testing.T) {
	checker, _, _, slotID := setup(t)
	available, err := checker.IsAvailable(context.Background(), "2026-09-10", slotID)
	if err != nil {
		t.Fatal(err)
	}
	if !available {
		t.Error("unbooked enabled slot should be available")
	}
}

func TestBookedSlotIsUnavailable(t *testing.T) {
	checker, _, apptRepo, slotID := setup(t)
	book(t, apptRepo, "2026-09-10", slotID, lifecycle.StatusScheduled)

	available, err := checker.IsAvailable(context.Background(), "2026-09-10", slotID)
	if err != nil {
		t.Fatal(err)
	}
	if available {
		t.Error("booked slot should not be available")
	}

	// Same slot on another day stays open.
	available, err = checker.IsAvailable(context.Background(), "2026-09-11", slotID)
	if err != nil {
		t.Fatal(err)
	}
	if !available {
		t.Error("occupancy is per date, other days should stay available")
	}
}

func TestCancelledBookingFreesTheSlot(t *testing.T) {
	checker, _, apptRepo, slotID := setup(t)
	appt := book(t, apptRepo, "2026-09-10", slotID, lifecycle.StatusScheduled)
	if _, err := apptRepo.UpdateStatus(context.Background(), appt.ID, lifecycle.StatusCancelled); err != nil {
		t.Fatal(err)
	}

	available, err := checker.IsAvailable(context.Background(), "2026-09-10", slotID)
	if err != nil {
		t.Fatal(err)
	}
	if !available {
		t.Error("cancelled booking should free the slot")
	}
}

func TestDisabledSlotIsUnavailable(t *testing.T) {
	checker, slotRepo, _, slotID := setup(t)
	if err := slotRepo.SetEnabled(context.Background(), slotID, false); err != nil {
		t.Fatal(err)
	}

	available, err := checker.IsAvailable(context.Background(), "2026-09-10", slotID)
	if err != nil {
		t.Fatal(err)
	}
	if available {
		t.Error("disabled slot should never be offered")
	}
}

func TestUnknownSlot(t *testing.T) {
	checker, _, _, _ := setup(t)
	if _, err := checker.IsAvailable(context.Background(), "2026-09-10", "nope"); !errors.Is(err, ErrUnknownSlot) {
		t.Errorf("expected ErrUnknownSlot, got %v", err)
	}
}

func TestMalformedDate(t *testing.T) {
	checker, _, _, slotID := setup(t)
	if _, err := checker.IsAvailable(context.Background(), "10.09.2026", slotID); !errors.Is(err, appointments.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestHandlerCheck(t *testing.T) {
	checker, _, apptRepo, slotID := setup(t)
	h := NewHandler(checker, logging.Default())

	get := func(url string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.Check(rec, httptest.NewRequest(http.MethodGet, url, nil))
		return rec
	}

	rec := get("/availability?date=2026-09-10&slot=" + slotID)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var payload map[string]bool
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatal(err)
	}
	if !payload["available"] {
		t.Error("expected available=true")
	}

	book(t, apptRepo, "2026-09-10", slotID, lifecycle.StatusScheduled)
	rec = get("/availability?date=2026-09-10&slot=" + slotID)
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatal(err)
	}
	if payload["available"] {
		t.Error("expected available=false after booking")
	}

	if rec := get("/availability?date=2026-09-10"); rec.Code != http.StatusBadRequest {
		t.Errorf("missing slot param should 400, got %d", rec.Code)
	}
	if rec := get("/availability?date=2026-09-10&slot=nope"); rec.Code != http.StatusNotFound {
		t.Errorf("unknown slot should 404, got %d", rec.Code)
	}
}
