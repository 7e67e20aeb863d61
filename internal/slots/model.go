package slots

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrDuplicateSlot is returned when the time-of-day is already registered.
	ErrDuplicateSlot = errors.New("slots: time of day already registered")

	// ErrSlotInUse is returned when removing a slot that a future
	// non-cancelled appointment still references.
	ErrSlotInUse = errors.New("slots: slot referenced by upcoming appointments")

	// ErrSlotNotFound is returned when the slot id is unknown.
	ErrSlotNotFound = errors.New("slots: slot not found")

	// ErrInvalidTimeOfDay is returned for unparseable time-of-day values.
	ErrInvalidTimeOfDay = errors.New("slots: time of day must be HH:MM")
)

// TimeSlot is an admissible clinic appointment time. Disabled slots are
// never offered to new bookings, but appointments already referencing them
// stay valid.
type TimeSlot struct {
	ID        string    `json:"id"`
	TimeOfDay string    `json:"timeOfDay"` // "HH:MM", 24-hour
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"createdAt"`
}

// NormalizeTimeOfDay canonicalizes user input ("9:00", " 09:00 ") to the
// zero-padded 24-hour form used for uniqueness and ordering.
func NormalizeTimeOfDay(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{"15:04", "3:04", "15.04"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute()), nil
		}
	}
	return "", ErrInvalidTimeOfDay
}
