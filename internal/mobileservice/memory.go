package mobileservice

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryRepository keeps requests in memory. Used by tests and local dev.
type InMemoryRepository struct {
	mu   sync.RWMutex
	byID map[string]*Request
}

// NewInMemoryRepository creates an empty in-memory store.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{byID: make(map[string]*Request)}
}

// Create stores a new request.
func (r *InMemoryRepository) Create(ctx context.Context, req *Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	req.CreatedAt = now
	req.UpdatedAt = now
	cp := *req
	r.byID[cp.ID] = &cp
	return nil
}

// GetByID returns a request or ErrRequestNotFound.
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Request, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	req, ok := r.byID[id]
	if !ok {
		return nil, ErrRequestNotFound
	}
	cp := *req
	return &cp, nil
}

// Update persists the full mutable state of a request.
func (r *InMemoryRepository) Update(ctx context.Context, req *Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[req.ID]; !ok {
		return ErrRequestNotFound
	}
	req.UpdatedAt = time.Now().UTC()
	cp := *req
	r.byID[cp.ID] = &cp
	return nil
}

// List returns requests matching the filter, newest first, paginated.
func (r *InMemoryRepository) List(ctx context.Context, filter ListFilter) ([]*Request, error) {
	filter.normalize()

	r.mu.RLock()
	var matched []*Request
	for _, req := range r.byID {
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}
		cp := *req
		matched = append(matched, &cp)
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
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
