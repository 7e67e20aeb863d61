package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vetline/clinic-portal/internal/accounts"
	"github.com/vetline/clinic-portal/internal/appointments"
	"github.com/vetline/clinic-portal/internal/availability"
	"github.com/vetline/clinic-portal/internal/booking"
	httpmiddleware "github.com/vetline/clinic-portal/internal/http/middleware"
	"github.com/vetline/clinic-portal/internal/mobileservice"
	"github.com/vetline/clinic-portal/internal/pets"
	"github.com/vetline/clinic-portal/internal/slots"
	"github.com/vetline/clinic-portal/pkg/logging"
)

const testSecret = "router-test-secret"

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	logger := logging.Default()

	slotRepo := slots.NewInMemoryRepository()
	if _, err := slotRepo.Create(context.Background(), "09:00"); err != nil {
		t.Fatal(err)
	}
	apptRepo := appointments.NewInMemoryRepository()
	acctReader := accounts.NewInMemoryReader()
	petReader := pets.NewInMemoryReader()

	registry := slots.NewRegistry(slotRepo, apptRepo, nil, logger)
	apptService := appointments.NewService(apptRepo, slotRepo, acctReader, nil, nil, nil, logger)
	mobileService := mobileservice.NewService(mobileservice.NewInMemoryRepository(), acctReader, nil, nil, nil, logger)
	checker := availability.NewChecker(slotRepo, apptRepo, nil)
	workflow := booking.NewWorkflow(booking.NewMemoryStore(), petReader, checker, apptService, mobileService, logger)

	return New(&Config{
		Logger:              logger,
		SlotsHandler:        slots.NewHandler(registry, logger),
		AvailabilityHandler: availability.NewHandler(checker, logger),
		AppointmentsHandler: appointments.NewHandler(apptService, logger),
		MobileHandler:       mobileservice.NewHandler(mobileService, logger),
		BookingHandler:      booking.NewHandler(workflow, logger),
		StaffJWTSecret:      testSecret,
	})
}

func staffToken(t *testing.T, role string) string {
	t.Helper()
	claims := httpmiddleware.StaffClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "staff-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatal(err)
	}
	return token
}

func TestPublicRoutesNeedNoAuth(t *testing.T) {
	srv := newTestServer(t)

	for _, url := range []string{"/health", "/slots/enabled"} {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", url, rec.Code)
		}
	}
}

func TestStaffRoutesRequireJWT(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/appointments", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/appointments", nil)
	req.Header.Set("Authorization", "Bearer "+staffToken(t, httpmiddleware.RolePharmacist))
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 with staff token, got %d", rec.Code)
	}
}

func TestSlotAdministrationIsAdminOnly(t *testing.T) {
	srv := newTestServer(t)

	body := `{"timeOfDay":"11:30"}`
	req := httptest.NewRequest(http.MethodPost, "/slots", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+staffToken(t, httpmiddleware.RoleAssistantDoctor))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("non-admin slot creation should 403, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/slots", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+staffToken(t, httpmiddleware.RoleAdmin))
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Errorf("admin slot creation should 201, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestBookingSessionRoutes(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/booking/sessions", strings.NewReader(`{"path":"clinic"}`))
	req.Header.Set("X-Account-ID", "acct-1")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
}
