package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/yogastudio/internal/auth"
	"github.com/yogastudio/internal/logger"
)

// DefaultUnauthorizedMessage is used when no specific reason is known.
const DefaultUnauthorizedMessage = "Full authentication is required to access this resource"

type unauthorizedBody struct {
	Status  int    `json:"status"`
	Error   string `json:"error"`
	Message string `json:"message"`
	Path    string `json:"path"`
}

// WriteUnauthorized writes the 401 body {status, error, message, path}.
func WriteUnauthorized(w http.ResponseWriter, r *http.Request, message string) {
	if message == "" {
		message = DefaultUnauthorizedMessage
	}
	logger.Infof("unauthorized error: %s path=%s", message, r.URL.Path)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	body := unauthorizedBody{
		Status:  http.StatusUnauthorized,
		Error:   "Unauthorized",
		Message: message,
		Path:    r.URL.Path,
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Errorf("unauthorized encode: %v", err)
	}
}

// RequireAuth rejects requests that Authenticate left without a principal.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.PrincipalFrom(r.Context()) == nil {
			WriteUnauthorized(w, r, "")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin lets through only principals with the admin flag.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := auth.PrincipalFrom(r.Context())
		if p == nil {
			WriteUnauthorized(w, r, "")
			return
		}
		if !p.Admin {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusForbidden)
			_ = json.NewEncoder(w).Encode(map[string]string{"message": "Access is denied"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
