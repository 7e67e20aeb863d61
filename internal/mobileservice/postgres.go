package mobileservice

import (
	"context"
	"encoding/json"
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

// PostgresRepository stores requests in the relational database. The
// location union is persisted as JSONB in its wire shape.
type PostgresRepository struct {
	db DB
}

// NewPostgresRepository initializes a repo backed by pgx.
func NewPostgresRepository(db DB) *PostgresRepository {
	if db == nil {
		panic("mobileservice: pgx pool required")
	}
	return &PostgresRepository{db: db}
}

const requestColumns = "id, pet_id, requester_id, service_id, reason, location, scheduled_date, scheduled_time, special_notes, status, created_at, updated_at"

// Create inserts a new request.
func (r *PostgresRepository) Create(ctx context.Context, req *Request) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	loc, err := json.Marshal(req.Location)
	if err != nil {
		return fmt.Errorf("mobileservice: encode location: %w", err)
	}
	query := `
		INSERT INTO mobile_service_requests (id, pet_id, requester_id, service_id, reason, location, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`
	err = r.db.QueryRow(ctx, query,
		req.ID, req.PetID, req.RequesterID, req.ServiceID, req.Reason, loc, req.Status,
	).Scan(&req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return fmt.Errorf("mobileservice: insert failed: %w", err)
	}
	return nil
}

// GetByID fetches a single request.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Request, error) {
	query := fmt.Sprintf("SELECT %s FROM mobile_service_requests WHERE id = $1", requestColumns)
	req, err := scanRequest(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("mobileservice: select failed: %w", err)
	}
	return req, nil
}

// Update persists schedule, notes and status in one statement.
func (r *PostgresRepository) Update(ctx context.Context, req *Request) error {
	query := `
		UPDATE mobile_service_requests
		SET scheduled_date = NULLIF($2, ''), scheduled_time = NULLIF($3, ''),
		    special_notes = $4, status = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.db.QueryRow(ctx, query,
		req.ID, req.ScheduledDate, req.ScheduledTime, req.SpecialNotes, req.Status,
	).Scan(&req.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrRequestNotFound
		}
		return fmt.Errorf("mobileservice: update failed: %w", err)
	}
	return nil
}

// List returns requests matching the filter, newest first.
func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) ([]*Request, error) {
	filter.normalize()

	query := fmt.Sprintf("SELECT %s FROM mobile_service_requests WHERE 1=1", requestColumns)
	args := []any{}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	args = append(args, filter.Limit, filter.Offset())
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("mobileservice: query failed: %w", err)
	}
	defer rows.Close()

	var out []*Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("mobileservice: scan failed: %w", err)
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

func scanRequest(row pgx.Row) (*Request, error) {
	var (
		req       Request
		loc       []byte
		schedDate *string
		schedTime *string
	)
	err := row.Scan(
		&req.ID, &req.PetID, &req.RequesterID, &req.ServiceID, &req.Reason,
		&loc, &schedDate, &schedTime, &req.SpecialNotes, &req.Status,
		&req.CreatedAt, &req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(loc, &req.Location); err != nil {
		return nil, fmt.Errorf("decode location: %w", err)
	}
	if schedDate != nil {
		req.ScheduledDate = *schedDate
	}
	if schedTime != nil {
		req.ScheduledTime = *schedTime
	}
	return &req, nil
}
