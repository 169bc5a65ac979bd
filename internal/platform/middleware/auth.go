package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"fundledger/pkg/identity"
)

// TokenValidator validates a bearer token and returns the caller address
// it was issued to. The ledger never authenticates; it trusts the boundary.
type TokenValidator interface {
	ValidateToken(tokenString string) (identity.Address, error)
}

type contextKeyCaller struct{}

// GetCaller retrieves the authenticated caller address from the context.
func GetCaller(ctx context.Context) identity.Address {
	caller, ok := ctx.Value(contextKeyCaller{}).(identity.Address)
	if !ok {
		return identity.Zero
	}
	return caller
}

// WithCaller injects a caller address; exported for handler tests.
func WithCaller(ctx context.Context, caller identity.Address) context.Context {
	return context.WithValue(ctx, contextKeyCaller{}, caller)
}

// RequireAuth rejects requests without a valid bearer token and stores the
// caller address in the request context.
func RequireAuth(validator TokenValidator, log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const bearerPrefix = "Bearer "
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix)
			if !ok {
				log.Warn().
					Str("request_id", GetRequestID(r.Context())).
					Msg("unauthorized access - missing token")
				writeUnauthorized(w, "Missing or invalid Authorization header")
				return
			}

			caller, err := validator.ValidateToken(token)
			if err != nil {
				log.Warn().
					Err(err).
					Str("request_id", GetRequestID(r.Context())).
					Msg("unauthorized access - invalid token")
				writeUnauthorized(w, "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}
