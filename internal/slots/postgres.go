package slots

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool the repository needs. Satisfied by
// pgxmock in tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores the slot registry in the relational database.
type PostgresRepository struct {
	db DB
}

// NewPostgresRepository initializes a repo backed by pgx.
func NewPostgresRepository(db DB) *PostgresRepository {
	if db == nil {
		panic("slots: pgx pool required")
	}
	return &PostgresRepository{db: db}
}

const slotColumns = "id, time_of_day, enabled, created_at"

// List returns every registered slot ordered by time of day.
func (r *PostgresRepository) List(ctx context.Context) ([]*TimeSlot, error) {
	query := fmt.Sprintf("SELECT %s FROM time_slots ORDER BY time_of_day", slotColumns)
	return r.queryMany(ctx, query)
}

// ListEnabled returns the slots currently offered to new bookings.
func (r *PostgresRepository) ListEnabled(ctx context.Context) ([]*TimeSlot, error) {
	query := fmt.Sprintf("SELECT %s FROM time_slots WHERE enabled ORDER BY time_of_day", slotColumns)
	return r.queryMany(ctx, query)
}

// GetByID fetches a single slot.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*TimeSlot, error) {
	query := fmt.Sprintf("SELECT %s FROM time_slots WHERE id = $1", slotColumns)
	var s TimeSlot
	err := r.db.QueryRow(ctx, query, id).Scan(&s.ID, &s.TimeOfDay, &s.Enabled, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, fmt.Errorf("slots: select failed: %w", err)
	}
	return &s, nil
}

// Create registers a new enabled slot. The unique index on time_of_day maps
// duplicates to ErrDuplicateSlot.
func (r *PostgresRepository) Create(ctx context.Context, timeOfDay string) (*TimeSlot, error) {
	tod, err := NormalizeTimeOfDay(timeOfDay)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	query := `
		INSERT INTO time_slots (id, time_of_day, enabled)
		VALUES ($1, $2, TRUE)
		RETURNING created_at
	`
	var s TimeSlot
	if err := r.db.QueryRow(ctx, query, id, tod).Scan(&s.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateSlot
		}
		return nil, fmt.Errorf("slots: insert failed: %w", err)
	}
	s.ID = id
	s.TimeOfDay = tod
	s.Enabled = true
	return &s, nil
}

// SetEnabled toggles whether the slot is offered to new bookings.
func (r *PostgresRepository) SetEnabled(ctx context.Context, id string, enabled bool) error {
	tag, err := r.db.Exec(ctx, "UPDATE time_slots SET enabled = $2 WHERE id = $1", id, enabled)
	if err != nil {
		return fmt.Errorf("slots: update failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSlotNotFound
	}
	return nil
}

// Remove deletes the slot row. Schemas that still carry a foreign key from
// appointments reject the delete for any referencing row; that surfaces as
// ErrSlotInUse rather than an internal error.
func (r *PostgresRepository) Remove(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM time_slots WHERE id = $1", id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrSlotInUse
		}
		return fmt.Errorf("slots: delete failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSlotNotFound
	}
	return nil
}

func (r *PostgresRepository) queryMany(ctx context.Context, query string) ([]*TimeSlot, error) {
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("slots: query failed: %w", err)
	}
	defer rows.Close()

	var out []*TimeSlot
	for rows.Next() {
		var s TimeSlot
		if err := rows.Scan(&s.ID, &s.TimeOfDay, &s.Enabled, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("slots: scan failed: %w", err)
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
