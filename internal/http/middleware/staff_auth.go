package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const staffClaimsKey contextKey = "staffClaims"

// Staff roles recognized by the portal.
const (
	RoleAdmin           = "admin"
	RoleAssistantDoctor = "assistant_doctor"
	RolePharmacist      = "pharmacist"
)

// StaffClaims is the JWT payload for staff users.
type StaffClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Actor renders the claims as an audit-trail actor string.
func (c StaffClaims) Actor() string {
	if c.Subject == "" {
		return c.Role
	}
	return c.Role + ":" + c.Subject
}

// StaffJWT enforces an HMAC-signed JWT carrying a role claim for staff
// endpoints. When allowedRoles is empty any authenticated staff role passes.
func StaffJWT(secret string, allowedRoles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				http.Error(w, "staff auth disabled", http.StatusUnauthorized)
				return
			}
			auth := r.Header.Get("Authorization")
			if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
				http.Error(w, "missing authorization header", http.StatusUnauthorized)
				return
			}
			tokenString := strings.TrimPrefix(auth, "Bearer ")
			claims := StaffClaims{}
			token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			if len(allowed) > 0 {
				if _, ok := allowed[claims.Role]; !ok {
					http.Error(w, "insufficient role", http.StatusForbidden)
					return
				}
			}
			ctx := context.WithValue(r.Context(), staffClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// StaffFromContext returns staff JWT claims if present.
func StaffFromContext(ctx context.Context) (StaffClaims, bool) {
	claims, ok := ctx.Value(staffClaimsKey).(StaffClaims)
	return claims, ok
}

// ActorFromContext returns the audit actor string, empty when anonymous.
func ActorFromContext(ctx context.Context) string {
	claims, ok := StaffFromContext(ctx)
	if !ok {
		return ""
	}
	return claims.Actor()
}
