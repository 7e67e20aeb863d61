package slots

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryRepository keeps slots in memory. Used by tests and local dev.
type InMemoryRepository struct {
	mu    sync.RWMutex
	byID  map[string]*TimeSlot
	byTOD map[string]string // timeOfDay -> id
}

// NewInMemoryRepository creates an empty in-memory registry.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		byID:  make(map[string]*TimeSlot),
		byTOD: make(map[string]string),
	}
}

// List returns all slots ordered by time of day ascending.
func (r *InMemoryRepository) List(ctx context.Context) ([]*TimeSlot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sorted(func(*TimeSlot) bool { return true }), nil
}

// ListEnabled returns enabled slots ordered by time of day ascending.
func (r *InMemoryRepository) ListEnabled(ctx context.Context) ([]*TimeSlot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sorted(func(s *TimeSlot) bool { return s.Enabled }), nil
}

// GetByID returns a slot or ErrSlotNotFound.
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*TimeSlot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byID[id]
	if !ok {
		return nil, ErrSlotNotFound
	}
	cp := *s
	return &cp, nil
}

// Create registers a new enabled slot, rejecting duplicates.
func (r *InMemoryRepository) Create(ctx context.Context, timeOfDay string) (*TimeSlot, error) {
	tod, err := NormalizeTimeOfDay(timeOfDay)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byTOD[tod]; exists {
		return nil, ErrDuplicateSlot
	}
	s := &TimeSlot{
		ID:        uuid.NewString(),
		TimeOfDay: tod,
		Enabled:   true,
		CreatedAt: time.Now().UTC(),
	}
	r.byID[s.ID] = s
	r.byTOD[tod] = s.ID
	cp := *s
	return &cp, nil
}

// SetEnabled toggles a slot.
func (r *InMemoryRepository) SetEnabled(ctx context.Context, id string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	if !ok {
		return ErrSlotNotFound
	}
	s.Enabled = enabled
	return nil
}

// Remove deletes a slot from the registry.
func (r *InMemoryRepository) Remove(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	if !ok {
		return ErrSlotNotFound
	}
	delete(r.byTOD, s.TimeOfDay)
	delete(r.byID, id)
	return nil
}

func (r *InMemoryRepository) sorted(keep func(*TimeSlot) bool) []*TimeSlot {
	out := make([]*TimeSlot, 0, len(r.byID))
	for _, s := range r.byID {
		if keep(s) {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TimeOfDay < out[j].TimeOfDay })
	return out
}
