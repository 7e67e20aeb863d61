// Package accounts exposes the minimal account lookup the scheduling core
// needs: who requested a booking and where to reach them. Full account
// management lives elsewhere.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
)

// ErrAccountNotFound is returned when the account id is unknown.
var ErrAccountNotFound = errors.New("accounts: account not found")

// Account is the requester view consumed by the scheduling core.
type Account struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// Reader is what the scheduling services depend on.
type Reader interface {
	GetByID(ctx context.Context, id string) (*Account, error)
}

// PostgresReader looks accounts up in the relational database.
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
		panic("accounts: pgx pool required")
	}
	return &PostgresReader{db: db}
}

// GetByID fetches one account.
func (r *PostgresReader) GetByID(ctx context.Context, id string) (*Account, error) {
	query := `SELECT id, name, COALESCE(email, '') FROM accounts WHERE id = $1`
	var a Account
	if err := r.db.QueryRow(ctx, query, id).Scan(&a.ID, &a.Name, &a.Email); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("accounts: select failed: %w", err)
	}
	return &a, nil
}

// InMemoryReader serves tests and local development.
type InMemoryReader struct {
	mu       sync.RWMutex
	accounts map[string]Account
}

// NewInMemoryReader creates an empty in-memory account store.
func NewInMemoryReader() *InMemoryReader {
	return &InMemoryReader{accounts: make(map[string]Account)}
}

// Put stores or replaces an account.
func (r *InMemoryReader) Put(a Account) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[a.ID] = a
}

// GetByID fetches one account.
func (r *InMemoryReader) GetByID(ctx context.Context, id string) (*Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return &a, nil
}
