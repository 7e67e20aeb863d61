package appointments

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vetline/clinic-portal/internal/lifecycle"
)

// DB is the subset of pgxpool.Pool the repository needs. Satisfied by
// pgxmock in tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores appointments in the relational database. The
// one-booking-per-slot rule is enforced by a partial unique index on
// (date, time_slot_id) covering non-cancelled rows, so concurrent bookings
// race on the index rather than on application code.
type PostgresRepository struct {
	db DB
}

// NewPostgresRepository initializes a repo backed by pgx.
func NewPostgresRepository(db DB) *PostgresRepository {
	if db == nil {
		panic("appointments: pgx pool required")
	}
	return &PostgresRepository{db: db}
}

const apptColumns = "id, pet_id, requester_id, date, time_slot_id, time_of_day, reason, additional_note, status, created_at, updated_at"

// Create inserts a new appointment. A unique violation on the partial index
// maps to ErrSlotTaken.
func (r *PostgresRepository) Create(ctx context.Context, appt *Appointment) error {
	if appt.ID == "" {
		appt.ID = uuid.NewString()
	}
	query := `
		INSERT INTO appointments (id, pet_id, requester_id, date, time_slot_id, time_of_day, reason, additional_note, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		appt.ID, appt.PetID, appt.RequesterID, appt.Date, appt.TimeSlotID,
		appt.TimeOfDay, appt.Reason, appt.AdditionalNote, appt.Status,
	).Scan(&appt.CreatedAt, &appt.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSlotTaken
		}
		return fmt.Errorf("appointments: insert failed: %w", err)
	}
	return nil
}

// GetByID fetches a single appointment.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Appointment, error) {
	query := fmt.Sprintf("SELECT %s FROM appointments WHERE id = $1", apptColumns)
	a, err := r.scanOne(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("appointments: select failed: %w", err)
	}
	return a, nil
}

// UpdateStatus persists the new status and returns the updated row.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, status lifecycle.Status) (*Appointment, error) {
	query := fmt.Sprintf(`
		UPDATE appointments SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING %s
	`, apptColumns)
	a, err := r.scanOne(r.db.QueryRow(ctx, query, id, status))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("appointments: update failed: %w", err)
	}
	return a, nil
}

// List returns appointments matching the filter, newest date first.
func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) ([]*Appointment, error) {
	filter.normalize()

	query := fmt.Sprintf("SELECT %s FROM appointments WHERE 1=1", apptColumns)
	args := []any{}
	if filter.Date != "" {
		args = append(args, filter.Date)
		query += fmt.Sprintf(" AND date = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	args = append(args, filter.Limit, filter.Offset())
	query += fmt.Sprintf(" ORDER BY date DESC, time_of_day ASC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("appointments: query failed: %w", err)
	}
	defer rows.Close()

	var out []*Appointment
	for rows.Next() {
		a, err := r.scanOne(rows)
		if err != nil {
			return nil, fmt.Errorf("appointments: scan failed: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// CountActive counts non-cancelled appointments holding the (date, slot) pair.
func (r *PostgresRepository) CountActive(ctx context.Context, date, timeSlotID string) (int, error) {
	query := `
		SELECT COUNT(*) FROM appointments
		WHERE date = $1 AND time_slot_id = $2 AND status <> 'Cancelled'
	`
	var count int
	if err := r.db.QueryRow(ctx, query, date, timeSlotID).Scan(&count); err != nil {
		return 0, fmt.Errorf("appointments: count failed: %w", err)
	}
	return count, nil
}

// SlotHasUpcoming reports whether any non-cancelled appointment on or after
// fromDate references the slot.
func (r *PostgresRepository) SlotHasUpcoming(ctx context.Context, slotID string, fromDate string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE time_slot_id = $1 AND date >= $2 AND status <> 'Cancelled'
		)
	`
	var exists bool
	if err := r.db.QueryRow(ctx, query, slotID, fromDate).Scan(&exists); err != nil {
		return false, fmt.Errorf("appointments: upcoming check failed: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) scanOne(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(
		&a.ID, &a.PetID, &a.RequesterID, &a.Date, &a.TimeSlotID,
		&a.TimeOfDay, &a.Reason, &a.AdditionalNote, &a.Status,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
