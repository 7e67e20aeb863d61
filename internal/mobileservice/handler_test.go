package mobileservice

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/vetline/clinic-portal/pkg/logging"
)

func newTestRouter(t *testing.T) *chi.Mux {
	t.Helper()
	svc, _ := newTestService(t)
	h := NewHandler(svc, logging.Default())

	r := chi.NewRouter()
	r.Post("/mobile-services", h.Create)
	r.Get("/mobile-services", h.List)
	r.Get("/mobile-services/{id}", h.GetByID)
	r.Put("/mobile-services/{id}", h.Update)
	return r
}

func doJSON(t *testing.T, router http.Handler, method, url, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, url, strings.NewReader(body))
	req.Header.Set("X-Account-ID", "acct-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandlerHouseCallScenario(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/mobile-services",
		`{"petId":"pet-1","serviceId":"svc-1","location":{"kind":"address","text":"221B Baker St"}}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created Request
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatal(err)
	}
	if created.Status != "pending" {
		t.Errorf("expected pending, got %s", created.Status)
	}

	// Confirming without a schedule is a 422.
	rec = doJSON(t, router, http.MethodPut, "/mobile-services/"+created.ID, `{"status":"confirmed"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	var payload map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatal(err)
	}
	if payload["code"] != "missing_schedule" {
		t.Errorf("expected code missing_schedule, got %q", payload["code"])
	}

	rec = doJSON(t, router, http.MethodPut, "/mobile-services/"+created.ID,
		`{"scheduledDate":"2026-09-12","scheduledTime":"14:00","status":"confirmed"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodPut, "/mobile-services/"+created.ID, `{"status":"completed"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	// completed is terminal: cancelling now is a 409.
	rec = doJSON(t, router, http.MethodPut, "/mobile-services/"+created.ID, `{"status":"cancelled"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatal(err)
	}
	if payload["code"] != "invalid_transition" {
		t.Errorf("expected code invalid_transition, got %q", payload["code"])
	}
}

func TestHandlerRejectsMalformedLocation(t *testing.T) {
	router := newTestRouter(t)

	cases := []struct {
		name string
		body string
	}{
		{"missing location", `{"petId":"pet-1","serviceId":"svc-1"}`},
		{"unknown kind", `{"petId":"pet-1","serviceId":"svc-1","location":{"kind":"what3words","text":"x"}}`},
		{"coords out of range", `{"petId":"pet-1","serviceId":"svc-1","location":{"kind":"coordinates","lat":123.0,"lng":0}}`},
		{"address blank", `{"petId":"pet-1","serviceId":"svc-1","location":{"kind":"address","text":"  "}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, router, http.MethodPost, "/mobile-services", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			var payload map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
				t.Fatal(err)
			}
			if payload["code"] != "location_required" {
				t.Errorf("expected code location_required, got %q", payload["code"])
			}
		})
	}
}

func TestHandlerCoordinateLocationRoundTrip(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/mobile-services",
		`{"petId":"pet-1","serviceId":"svc-1","location":{"kind":"coordinates","lat":51.523788,"lng":-0.158611}}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created Request
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatal(err)
	}

	rec = doJSON(t, router, http.MethodGet, "/mobile-services/"+created.ID, "")
	var fetched Request
	if err := json.NewDecoder(rec.Body).Decode(&fetched); err != nil {
		t.Fatal(err)
	}
	if fetched.Location.Kind != "coordinates" || fetched.Location.Lat != 51.523788 {
		t.Errorf("location should round-trip losslessly, got %+v", fetched.Location)
	}
	if !strings.Contains(fetched.Location.Display(), "Pinned location") {
		t.Errorf("coordinates should render as a pinned label, got %q", fetched.Location.Display())
	}
}

func TestHandlerListFilterValidation(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/mobile-services?status=Scheduled", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("clinic vocabulary should be rejected on the mobile listing, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/mobile-services?status=PENDING", "")
	if rec.Code != http.StatusOK {
		t.Errorf("case-insensitive mobile status should parse, got %d", rec.Code)
	}
}
