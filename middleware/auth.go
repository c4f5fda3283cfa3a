package middleware

import (
	"context"
	"net/http"
	"slices"
	"strings"

	"github.com/amgst/vancegraphix.com.au-sub000/handlers/auth"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

type contextKey string

const ClaimsContextKey = contextKey("claims")

func AuthJWT(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, map[string]string{"error": "Authorization header is required"})
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, map[string]string{"error": "Authorization header format must be Bearer {token}"})
			return
		}

		claims, err := auth.ParseJWT(parts[1])
		if err != nil {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, map[string]string{"error": "Invalid token"})
			return
		}

		ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Claims returns the verified token claims stored by AuthJWT.
func Claims(ctx context.Context) (*auth.AppClaims, bool) {
	claims, ok := ctx.Value(ClaimsContextKey).(*auth.AppClaims)
	return claims, ok
}

// RequireAdmin lets through users whose login or email is in admins. An
// empty list admits nobody. It must run after AuthJWT.
func RequireAdmin(admins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := Claims(r.Context())
			if !ok {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, map[string]string{"error": "Authentication required"})
				return
			}
			if !slices.ContainsFunc(admins, func(a string) bool {
				return strings.EqualFold(a, claims.Login) || (claims.Email != "" && strings.EqualFold(a, claims.Email))
			}) {
				logrus.WithField("subject", claims.Subject).Warn("Rejected non-admin user")
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, map[string]string{"error": "Admin access required"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
