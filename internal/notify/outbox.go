package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vetline/clinic-portal/pkg/logging"
)

// DB is the subset of pgxpool.Pool the outbox needs. Satisfied by pgxmock
// in tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// OutboxEntry is a persisted notification intent awaiting delivery.
type OutboxEntry struct {
	ID        uuid.UUID
	Payload   json.RawMessage
	Attempts  int
	CreatedAt time.Time
}

// Outbox persists notification intents for reliable delivery.
type Outbox struct {
	db DB
}

// NewOutbox creates an outbox over the shared pgx pool.
func NewOutbox(db DB) *Outbox {
	if db == nil {
		panic("notify: pgx pool required")
	}
	return &Outbox{db: db}
}

// Enqueue persists an intent.
func (o *Outbox) Enqueue(ctx context.Context, intent Intent) (uuid.UUID, error) {
	data, err := json.Marshal(intent)
	if err != nil {
		return uuid.Nil, fmt.Errorf("notify: marshal intent: %w", err)
	}
	id := uuid.New()
	query := `
		INSERT INTO notification_outbox (id, payload)
		VALUES ($1, $2)
	`
	if _, err := o.db.Exec(ctx, query, id, data); err != nil {
		return uuid.Nil, fmt.Errorf("notify: insert outbox: %w", err)
	}
	return id, nil
}

// FetchPending returns undelivered intents, oldest first.
func (o *Outbox) FetchPending(ctx context.Context, limit int) ([]OutboxEntry, error) {
	query := `
		SELECT id, payload, attempts, created_at
		FROM notification_outbox
		WHERE delivered_at IS NULL
		ORDER BY created_at
		LIMIT $1
	`
	rows, err := o.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("notify: fetch pending: %w", err)
	}
	defer rows.Close()

	var entries []OutboxEntry
	for rows.Next() {
		var (
			entry   OutboxEntry
			payload []byte
		)
		if err := rows.Scan(&entry.ID, &payload, &entry.Attempts, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("notify: scan outbox: %w", err)
		}
		entry.Payload = append([]byte(nil), payload...)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// MarkDelivered stamps an entry as delivered.
func (o *Outbox) MarkDelivered(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE notification_outbox SET delivered_at = now() WHERE id = $1`
	if _, err := o.db.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("notify: mark delivered: %w", err)
	}
	return nil
}

// MarkFailed bumps the attempt counter so stuck intents are visible.
func (o *Outbox) MarkFailed(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE notification_outbox SET attempts = attempts + 1 WHERE id = $1`
	if _, err := o.db.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("notify: mark failed: %w", err)
	}
	return nil
}

// Dispatcher drains the outbox on an interval and delivers intents by email.
type Dispatcher struct {
	outbox   *Outbox
	email    EmailSender
	interval time.Duration
	batch    int
	logger   *logging.Logger
}

// NewDispatcher creates an outbox dispatcher.
func NewDispatcher(outbox *Outbox, email EmailSender, interval time.Duration, batch int, logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Default()
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	if batch <= 0 {
		batch = 25
	}
	return &Dispatcher{outbox: outbox, email: email, interval: interval, batch: batch, logger: logger}
}

// Run drains the outbox until the context is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := d.DrainOnce(ctx); err != nil {
				d.logger.Error("outbox drain failed", "error", err)
			}
		}
	}
}

// DrainOnce delivers one batch of pending intents.
func (d *Dispatcher) DrainOnce(ctx context.Context) error {
	entries, err := d.outbox.FetchPending(ctx, d.batch)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		var intent Intent
		if err := json.Unmarshal(entry.Payload, &intent); err != nil {
			d.logger.Error("outbox entry unreadable, marking delivered", "id", entry.ID, "error", err)
			_ = d.outbox.MarkDelivered(ctx, entry.ID)
			continue
		}
		if d.email == nil {
			d.logger.Info("no email sender configured, dropping intent", "id", entry.ID)
			_ = d.outbox.MarkDelivered(ctx, entry.ID)
			continue
		}
		if err := d.email.Send(ctx, BuildEmail(intent)); err != nil {
			d.logger.Error("intent delivery failed", "id", entry.ID, "error", err)
			_ = d.outbox.MarkFailed(ctx, entry.ID)
			continue
		}
		if err := d.outbox.MarkDelivered(ctx, entry.ID); err != nil {
			d.logger.Error("mark delivered failed", "id", entry.ID, "error", err)
		}
	}
	return nil
}
