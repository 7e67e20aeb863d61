package slots

import "context"

// Repository provides persistence for the time-slot registry.
type Repository interface {
	List(ctx context.Context) ([]*TimeSlot, error)
	ListEnabled(ctx context.Context) ([]*TimeSlot, error)
	GetByID(ctx context.Context, id string) (*TimeSlot, error)
	Create(ctx context.Context, timeOfDay string) (*TimeSlot, error)
	SetEnabled(ctx context.Context, id string, enabled bool) error
	Remove(ctx context.Context, id string) error
}
