package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/yogastudio/internal/auth"
	"github.com/yogastudio/internal/logger"
)

const bearerPrefix = "Bearer "

// TokenValidator is implemented by *auth.TokenCodec.
type TokenValidator interface {
	Validate(token string) bool
	ExtractSubject(token string) (string, error)
}

// PrincipalLoader is implemented by *auth.PrincipalStore.
type PrincipalLoader interface {
	LoadByUsername(ctx context.Context, username string) (*auth.Principal, error)
}

// Authenticate resolves the bearer token of each request into an
// auth.Principal stored in the request context. It never writes a response:
// a missing, invalid or unknown-subject token leaves the request
// unauthenticated and RequireAuth decides later.
func Authenticate(tokens TokenValidator, principals PrincipalLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, authenticate(r, tokens, principals))
		})
	}
}

func authenticate(r *http.Request, tokens TokenValidator, principals PrincipalLoader) (out *http.Request) {
	out = r
	defer func() {
		if rec := recover(); rec != nil {
			logger.Errorf("cannot set user authentication: panic: %v", rec)
			out = r
		}
	}()

	token := BearerToken(r)
	if token == "" {
		return r
	}
	if !tokens.Validate(token) {
		return r
	}
	subject, err := tokens.ExtractSubject(token)
	if err != nil {
		logger.Errorf("cannot set user authentication: %v", err)
		return r
	}
	principal, err := principals.LoadByUsername(r.Context(), subject)
	if err != nil {
		logger.Errorf("cannot set user authentication: %v", err)
		return r
	}
	return r.WithContext(auth.WithPrincipal(r.Context(), principal))
}

// BearerToken returns the token of an "Authorization: Bearer <token>" header, or "".
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(h[len(bearerPrefix):])
}
