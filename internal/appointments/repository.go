package appointments

import (
	"context"

	"github.com/vetline/clinic-portal/internal/lifecycle"
)

// Repository provides persistence for clinic appointments. Create must
// enforce the one-booking-per-(date, slot) rule atomically and return
// ErrSlotTaken when the pair is already held by a non-cancelled appointment.
type Repository interface {
	Create(ctx context.Context, appt *Appointment) error
	GetByID(ctx context.Context, id string) (*Appointment, error)
	UpdateStatus(ctx context.Context, id string, status lifecycle.Status) (*Appointment, error)
	List(ctx context.Context, filter ListFilter) ([]*Appointment, error)
	CountActive(ctx context.Context, date, timeSlotID string) (int, error)
	SlotHasUpcoming(ctx context.Context, slotID string, fromDate string) (bool, error)
}
