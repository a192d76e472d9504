package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/mcoot/kelimeoyunu/internal/api/apierr"
	"github.com/mcoot/kelimeoyunu/internal/model"
	"github.com/mcoot/kelimeoyunu/internal/services/auth"
)

const (
	// SessionCookie is the cookie checked when no Authorization header is sent
	SessionCookie = "session"

	// TokenQueryParam is the last-resort token location
	TokenQueryParam = "access_token"
)

type contextKey string

const (
	userIDContextKey contextKey = "user_id"
	claimsContextKey contextKey = "claims"
)

// ActivityTracker is told about every authenticated request
type ActivityTracker interface {
	Touch(userID model.UserID)
}

// Auth creates authentication middleware. tracker may be nil.
func Auth(validator auth.TokenValidator, tracker ActivityTracker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				apierr.WriteError(w, apierr.NewUnauthorizedError())
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				apierr.WriteError(w, err)
				return
			}

			if tracker != nil {
				tracker.Touch(claims.UserID)
			}

			next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
		})
	}
}

// OptionalAuth extracts the claims if present but doesn't require them
func OptionalAuth(validator auth.TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := extractToken(r); token != "" {
				if claims, err := validator.ValidateToken(token); err == nil {
					r = r.WithContext(withClaims(r.Context(), claims))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func withClaims(ctx context.Context, claims *auth.Claims) context.Context {
	ctx = context.WithValue(ctx, claimsContextKey, claims)
	return context.WithValue(ctx, userIDContextKey, claims.UserID)
}

// extractToken extracts the access token from the request
func extractToken(r *http.Request) string {
	// Check Authorization header first
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	// Fall back to cookie
	cookie, err := r.Cookie(SessionCookie)
	if err == nil {
		return cookie.Value
	}

	// EventSource and WebSocket clients cannot set headers
	return r.URL.Query().Get(TokenQueryParam)
}

// GetUserID returns the authenticated user id from the request context
func GetUserID(ctx context.Context) (model.UserID, bool) {
	id, ok := ctx.Value(userIDContextKey).(model.UserID)
	return id, ok
}

// GetClaims returns the token claims from the request context
func GetClaims(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsContextKey).(*auth.Claims)
	return claims
}

// MustGetUserID returns the authenticated user id or panics
func MustGetUserID(ctx context.Context) model.UserID {
	id, ok := GetUserID(ctx)
	if !ok {
		panic("no user in context - auth middleware not applied?")
	}
	return id
}
