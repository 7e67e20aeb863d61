package mobileservice

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vetline/clinic-portal/internal/lifecycle"
	"github.com/vetline/clinic-portal/internal/location"
)

func TestPostgresCreate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresRepository(mock)

	now := time.Now().UTC()
	mock.ExpectQuery("INSERT INTO mobile_service_requests").
		WithArgs(pgxmock.AnyArg(), "pet-1", "acct-1", "svc-1", "Nail trim",
			pgxmock.AnyArg(), lifecycle.MobilePending).
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	loc, _ := location.FromAddress("221B Baker St")
	req := &Request{
		PetID:       "pet-1",
		RequesterID: "acct-1",
		ServiceID:   "svc-1",
		Reason:      "Nail trim",
		Location:    loc,
		Status:      lifecycle.MobilePending,
	}
	require.NoError(t, repo.Create(context.Background(), req))
	assert.NotEmpty(t, req.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetByIDDecodesLocation(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresRepository(mock)

	now := time.Now().UTC()
	date := "2026-09-12"
	tod := "14:00"
	rows := pgxmock.NewRows([]string{
		"id", "pet_id", "requester_id", "service_id", "reason", "location",
		"scheduled_date", "scheduled_time", "special_notes", "status",
		"created_at", "updated_at",
	}).AddRow("req-1", "pet-1", "acct-1", "svc-1", "Nail trim",
		[]byte(`{"kind":"coordinates","lat":51.5,"lng":-0.15}`),
		&date, &tod, "", lifecycle.MobileConfirmed, now, now)

	mock.ExpectQuery("SELECT .+ FROM mobile_service_requests WHERE id").
		WithArgs("req-1").
		WillReturnRows(rows)

	req, err := repo.GetByID(context.Background(), "req-1")
	require.NoError(t, err)
	assert.Equal(t, location.KindCoordinates, req.Location.Kind)
	assert.Equal(t, 51.5, req.Location.Lat)
	assert.True(t, req.Scheduled())
}

func TestPostgresGetByIDNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresRepository(mock)

	mock.ExpectQuery("SELECT .+ FROM mobile_service_requests WHERE id").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err = repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRequestNotFound)
}

func TestPostgresUpdate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresRepository(mock)

	now := time.Now().UTC()
	mock.ExpectQuery("UPDATE mobile_service_requests").
		WithArgs("req-1", "2026-09-12", "14:00", "ring ahead", lifecycle.MobileConfirmed).
		WillReturnRows(pgxmock.NewRows([]string{"updated_at"}).AddRow(now))

	req := &Request{
		ID:            "req-1",
		ScheduledDate: "2026-09-12",
		ScheduledTime: "14:00",
		SpecialNotes:  "ring ahead",
		Status:        lifecycle.MobileConfirmed,
	}
	require.NoError(t, repo.Update(context.Background(), req))
	require.NoError(t, mock.ExpectationsWereMet())
}
