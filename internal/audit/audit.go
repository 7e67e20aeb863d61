// Package audit keeps an append-only trail of scheduling activity so staff
// actions on appointments and slots can be reconstructed later.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of scheduling event.
type EventType string

const (
	// EventAppointmentCreated is logged when a booking submission persists an appointment.
	EventAppointmentCreated EventType = "scheduling.appointment_created"
	// EventAppointmentStatusChanged is logged on every clinic appointment transition.
	EventAppointmentStatusChanged EventType = "scheduling.appointment_status_changed"
	// EventMobileServiceCreated is logged when a house-call request is created.
	EventMobileServiceCreated EventType = "scheduling.mobile_service_created"
	// EventMobileServiceStatusChanged is logged on every mobile-service transition.
	EventMobileServiceStatusChanged EventType = "scheduling.mobile_service_status_changed"
	// EventSlotCreated is logged when staff register a new time slot.
	EventSlotCreated EventType = "scheduling.slot_created"
	// EventSlotToggled is logged when staff enable or disable a slot.
	EventSlotToggled EventType = "scheduling.slot_toggled"
	// EventSlotRemoved is logged when staff remove a slot from the registry.
	EventSlotRemoved EventType = "scheduling.slot_removed"
)

// Event represents an immutable audit record.
type Event struct {
	ID        string          `json:"id"`
	EventType EventType       `json:"event_type"`
	SubjectID string          `json:"subject_id"`
	Actor     string          `json:"actor,omitempty"`
	Details   json.RawMessage `json:"details,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Details carries event-specific fields.
type Details struct {
	FromStatus string `json:"from_status,omitempty"`
	ToStatus   string `json:"to_status,omitempty"`
	Date       string `json:"date,omitempty"`
	TimeSlot   string `json:"time_slot,omitempty"`
	Enabled    *bool  `json:"enabled,omitempty"`
}

// Recorder is what the scheduling services depend on. The zero-value
// NopRecorder satisfies it when no database is configured.
type Recorder interface {
	Log(ctx context.Context, event Event) error
}

// Service handles audit logging over database/sql.
type Service struct {
	db *sql.DB
}

// NewService creates a new audit service.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// Log records a scheduling audit event.
func (s *Service) Log(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO audit_events (id, event_type, subject_id, actor, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	details := event.Details
	if details == nil {
		details = json.RawMessage("{}")
	}
	if _, err := s.db.ExecContext(ctx, query,
		event.ID,
		string(event.EventType),
		event.SubjectID,
		event.Actor,
		[]byte(details),
		event.CreatedAt,
	); err != nil {
		return fmt.Errorf("audit: insert event: %w", err)
	}
	return nil
}

// ListBySubject returns the trail for one entity, newest first.
func (s *Service) ListBySubject(ctx context.Context, subjectID string, limit int) ([]Event, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := `
		SELECT id, event_type, subject_id, actor, details, created_at
		FROM audit_events
		WHERE subject_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, subjectID, limit)
	if err != nil {
		return nil, fmt.Errorf("audit: list events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			e       Event
			details []byte
		)
		if err := rows.Scan(&e.ID, &e.EventType, &e.SubjectID, &e.Actor, &details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("audit: scan event: %w", err)
		}
		e.Details = append(json.RawMessage(nil), details...)
		out = append(out, e)
	}
	return out, rows.Err()
}

// MarshalDetails encodes Details, swallowing the impossible error case.
func MarshalDetails(d Details) json.RawMessage {
	data, err := json.Marshal(d)
	if err != nil {
		return json.RawMessage("{}")
	}
	return data
}

// NopRecorder drops all events. Used when auditing is not configured.
type NopRecorder struct{}

// Log implements Recorder.
func (NopRecorder) Log(context.Context, Event) error { return nil }
