// Package availability answers one question for the booking flows: can a
// (date, time slot) pair still be booked. A pair is available when the slot
// exists, is enabled, and no non-cancelled appointment holds it.
package availability

import (
	"context"
	"errors"
	"fmt"

	"github.com/vetline/clinic-portal/internal/appointments"
	"github.com/vetline/clinic-portal/internal/observability/metrics"
	"github.com/vetline/clinic-portal/internal/slots"
)

// ErrUnknownSlot is returned when the slot id is not registered.
var ErrUnknownSlot = errors.New("availability: unknown time slot")

// Occupancy reports how many active appointments hold a (date, slot) pair.
// Implemented by the appointments repository.
type Occupancy interface {
	CountActive(ctx context.Context, date, timeSlotID string) (int, error)
}

// SlotSource resolves slot ids. Implemented by the slot registry repository.
type SlotSource interface {
	GetByID(ctx context.Context, id string) (*slots.TimeSlot, error)
}

// Checker combines the slot registry and appointment occupancy.
type Checker struct {
	slots     SlotSource
	occupancy Occupancy
	metrics   *metrics.SchedulingMetrics
}

// NewChecker constructs an availability checker.
func NewChecker(slotSource SlotSource, occupancy Occupancy, m *metrics.SchedulingMetrics) *Checker {
	if slotSource == nil {
		panic("availability: slot source required")
	}
	if occupancy == nil {
		panic("availability: occupancy source required")
	}
	return &Checker{slots: slotSource, occupancy: occupancy, metrics: m}
}

// IsAvailable reports whether the (date, slot) pair can still be booked.
// The answer is advisory: the booking insert remains the authority, so a
// true here can still lose the race and surface ErrSlotTaken.
func (c *Checker) IsAvailable(ctx context.Context, date, slotID string) (bool, error) {
	normalized, err := appointments.NormalizeDate(date)
	if err != nil {
		return false, err
	}

	slot, err := c.slots.GetByID(ctx, slotID)
	if err != nil {
		if errors.Is(err, slots.ErrSlotNotFound) {
			return false, ErrUnknownSlot
		}
		return false, fmt.Errorf("availability: slot lookup: %w", err)
	}
	if !slot.Enabled {
		c.metrics.ObserveAvailabilityCheck(false)
		return false, nil
	}

	count, err := c.occupancy.CountActive(ctx, normalized, slotID)
	if err != nil {
		return false, fmt.Errorf("availability: occupancy check: %w", err)
	}
	available := count == 0
	c.metrics.ObserveAvailabilityCheck(available)
	return available, nil
}
