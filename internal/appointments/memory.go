package appointments

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vetline/clinic-portal/internal/lifecycle"
)

// InMemoryRepository keeps appointments in memory. Used by tests and local
// dev. The conflict check and the insert happen under one lock, mirroring
// the partial unique index the relational store relies on.
type InMemoryRepository struct {
	mu   sync.RWMutex
	byID map[string]*Appointment
}

// NewInMemoryRepository creates an empty in-memory store.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{byID: make(map[string]*Appointment)}
}

// Create stores a new appointment, rejecting (date, slot) conflicts.
func (r *InMemoryRepository) Create(ctx context.Context, appt *Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.byID {
		if existing.Date == appt.Date &&
			existing.TimeSlotID == appt.TimeSlotID &&
			existing.Status != lifecycle.StatusCancelled {
			return ErrSlotTaken
		}
	}

	if appt.ID == "" {
		appt.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	appt.CreatedAt = now
	appt.UpdatedAt = now
	cp := *appt
	r.byID[cp.ID] = &cp
	return nil
}

// GetByID returns an appointment or ErrAppointmentNotFound.
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byID[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

// UpdateStatus writes the new status and returns the updated appointment.
func (r *InMemoryRepository) UpdateStatus(ctx context.Context, id string, status lifecycle.Status) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	a.Status = status
	a.UpdatedAt = time.Now().UTC()
	cp := *a
	return &cp, nil
}

// List returns appointments matching the filter, newest date first then by
// time of day, paginated.
func (r *InMemoryRepository) List(ctx context.Context, filter ListFilter) ([]*Appointment, error) {
	filter.normalize()

	r.mu.RLock()
	var matched []*Appointment
	for _, a := range r.byID {
		if filter.Date != "" && a.Date != filter.Date {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		cp := *a
		matched = append(matched, &cp)
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Date != matched[j].Date {
			return matched[i].Date > matched[j].Date
		}
		return matched[i].TimeOfDay < matched[j].TimeOfDay
	})

	start := filter.Offset()
	if start >= len(matched) {
		return nil, nil
	}
	end := start + filter.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], nil
}

// CountActive counts non-cancelled appointments holding the (date, slot) pair.
func (r *InMemoryRepository) CountActive(ctx context.Context, date, timeSlotID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, a := range r.byID {
		if a.Date == date && a.TimeSlotID == timeSlotID && a.Status != lifecycle.StatusCancelled {
			count++
		}
	}
	return count, nil
}

// SlotHasUpcoming reports whether any non-cancelled appointment on or after
// fromDate references the slot.
func (r *InMemoryRepository) SlotHasUpcoming(ctx context.Context, slotID string, fromDate string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.byID {
		if a.TimeSlotID == slotID && a.Date >= fromDate && a.Status != lifecycle.StatusCancelled {
			return true, nil
		}
	}
	return false, nil
}
