// Package pets exposes the pet registry slice the booking wizard needs:
// validating that a requester owns the pet they are booking for.
package pets

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
)

var (
	// ErrPetNotFound is returned when the pet id is unknown.
	ErrPetNotFound = errors.New("pets: pet not found")

	// ErrNotOwner is returned when the pet belongs to a different account.
	ErrNotOwner = errors.New("pets: pet does not belong to requester")
)

// Pet is the booking-facing view of a pet.
type Pet struct {
	ID      string `json:"id"`
	OwnerID string `json:"ownerId"`
	Name    string `json:"name"`
	Species string `json:"species,omitempty"`
}

// Reader is what the booking workflow depends on.
type Reader interface {
	GetByID(ctx context.Context, id string) (*Pet, error)
}

// VerifyOwnership confirms the pet exists and belongs to the requester.
func VerifyOwnership(ctx context.Context, r Reader, petID, requesterID string) (*Pet, error) {
	pet, err := r.GetByID(ctx, petID)
	if err != nil {
		return nil, err
	}
	if pet.OwnerID != requesterID {
		return nil, ErrNotOwner
	}
	return pet, nil
}

// PostgresReader looks pets up in the relational database.
type PostgresReader struct {
	db interface {
		QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	}
}

// NewPostgresReader initializes a reader backed by pgx.
func NewPostgresReader(db interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}) *PostgresReader {
	if db == nil {
		panic("pets: pgx pool required")
	}
	return &PostgresReader{db: db}
}

// GetByID fetches one pet.
func (r *PostgresReader) GetByID(ctx context.Context, id string) (*Pet, error) {
	query := `SELECT id, owner_id, name, COALESCE(species, '') FROM pets WHERE id = $1`
	var p Pet
	if err := r.db.QueryRow(ctx, query, id).Scan(&p.ID, &p.OwnerID, &p.Name, &p.Species); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPetNotFound
		}
		return nil, fmt.Errorf("pets: select failed: %w", err)
	}
	return &p, nil
}

// InMemoryReader serves tests and local development.
type InMemoryReader struct {
	mu   sync.RWMutex
	pets map[string]Pet
}

// NewInMemoryReader creates an empty in-memory pet store.
func NewInMemoryReader() *InMemoryReader {
	return &InMemoryReader{pets: make(map[string]Pet)}
}

// Put stores or replaces a pet.
func (r *InMemoryReader) Put(p Pet) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pets[p.ID] = p
}

// GetByID fetches one pet.
func (r *InMemoryReader) GetByID(ctx context.Context, id string) (*Pet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.pets[id]
	if !ok {
		return nil, ErrPetNotFound
	}
	return &p, nil
}
