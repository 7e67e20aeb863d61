package audit

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceLog(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := NewService(db)

	tests := []struct {
		name  string
		event Event
	}{
		{
			name: "appointment status change",
			event: Event{
				EventType: EventAppointmentStatusChanged,
				SubjectID: "appt-123",
				Actor:     "assistant_doctor:jane",
				Details:   MarshalDetails(Details{FromStatus: "Scheduled", ToStatus: "Completed"}),
			},
		},
		{
			name: "slot removed",
			event: Event{
				EventType: EventSlotRemoved,
				SubjectID: "slot-9",
				Actor:     "admin:root",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock.ExpectExec("INSERT INTO audit_events").
				WillReturnResult(sqlmock.NewResult(1, 1))

			err := service.Log(context.Background(), tt.event)
			assert.NoError(t, err)
		})
	}

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestServiceLogFillsDefaults(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	service := NewService(db)

	mock.ExpectExec(`INSERT INTO audit_events`).
		WithArgs(sqlmock.AnyArg(), string(EventSlotCreated), "slot-1", "", []byte("{}"), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = service.Log(context.Background(), Event{
		EventType: EventSlotCreated,
		SubjectID: "slot-1",
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListBySubject(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := NewService(db)

	created := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "event_type", "subject_id", "actor", "details", "created_at"}).
		AddRow("evt-1", string(EventAppointmentCreated), "appt-1", "system", []byte(`{"date":"2025-03-01"}`), created)

	mock.ExpectQuery("SELECT id, event_type, subject_id").
		WillReturnRows(rows)

	events, err := service.ListBySubject(context.Background(), "appt-1", 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, EventAppointmentCreated, events[0].EventType)

	var details Details
	require.NoError(t, json.Unmarshal(events[0].Details, &details))
	assert.Equal(t, "2025-03-01", details.Date)
}

func TestNopRecorder(t *testing.T) {
	var r Recorder = NopRecorder{}
	assert.NoError(t, r.Log(context.Background(), Event{EventType: EventSlotToggled}))
}
