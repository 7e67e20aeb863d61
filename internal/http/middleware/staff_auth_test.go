package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func signToken(t *testing.T, role, subject, secret string) string {
	t.Helper()
	claims := StaffClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatal(err)
	}
	return token
}

func protected(t *testing.T, allowedRoles ...string) (http.Handler, *string) {
	t.Helper()
	var actor string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor = ActorFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	return StaffJWT(testSecret, allowedRoles...)(handler), &actor
}

func TestStaffJWTAcceptsValidToken(t *testing.T) {
	handler, actor := protected(t, RoleAdmin)

	req := httptest.NewRequest(http.MethodGet, "/slots", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, RoleAdmin, "u-1", testSecret))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if *actor != "admin:u-1" {
		t.Errorf("expected actor admin:u-1, got %q", *actor)
	}
}

func TestStaffJWTRejectsMissingHeader(t *testing.T) {
	handler, _ := protected(t)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/slots", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestStaffJWTRejectsWrongSecret(t *testing.T) {
	handler, _ := protected(t)
	req := httptest.NewRequest(http.MethodGet, "/slots", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, RoleAdmin, "u-1", "other-secret"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestStaffJWTEnforcesRole(t *testing.T) {
	handler, _ := protected(t, RoleAdmin)
	req := httptest.NewRequest(http.MethodDelete, "/slots/x", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, RolePharmacist, "u-2", testSecret))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
}

func TestStaffJWTAnyRoleWhenUnrestricted(t *testing.T) {
	handler, actor := protected(t)
	req := httptest.NewRequest(http.MethodGet, "/appointments", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, RoleAssistantDoctor, "u-3", testSecret))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if *actor != "assistant_doctor:u-3" {
		t.Errorf("unexpected actor %q", *actor)
	}
}
