package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/yogastudio/internal/middleware"
	"github.com/yogastudio/internal/service"
	"github.com/yogastudio/internal/ws"
)

// Deps groups what NewRouter needs.
type Deps struct {
	Tokens     middleware.TokenValidator
	Principals middleware.PrincipalLoader

	Auth          *service.AuthService
	Sessions      *service.SessionService
	Participation *service.ParticipationService
	Teachers      *service.TeacherService
	Users         *service.UserService
	Hub           *ws.Hub

	CORSAllowedOrigins string
	RateLimitPerIP     int
	RateLimitPerUser   int
	AccessLog          bool
}

func NewRouter(d Deps) http.Handler {
	authH := NewAuthHandler(d.Auth)
	sessionH := NewSessionHandler(d.Sessions, d.Participation)
	teacherH := NewTeacherHandler(d.Teachers)
	userH := NewUserHandler(d.Users)

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	if d.AccessLog {
		r.Use(chimw.Logger)
	}
	r.Use(middleware.RecoverJSON)
	// Compressing the upgrade response would hide http.Hijacker from the websocket upgrader.
	r.Use(func(next http.Handler) http.Handler {
		compressed := chimw.Compress(5)(next)
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if middleware.IsWebSocketUpgrade(req) {
				next.ServeHTTP(w, req)
				return
			}
			compressed.ServeHTTP(w, req)
		})
	})
	r.Use(middleware.RequestLog)
	r.Use(middleware.SecureHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   splitOrigins(d.CORSAllowedOrigins),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.Authenticate(d.Tokens, d.Principals))
	r.Use(middleware.RateLimit(d.RateLimitPerIP, d.RateLimitPerUser))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Post("/api/auth/login", authH.Login)
	r.Post("/api/auth/register", authH.Register)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Get("/api/session", sessionH.List)
		r.Get("/api/session/{id}", sessionH.Get)
		r.Post("/api/session/{id}/participate/{userId}", sessionH.Participate)
		r.Delete("/api/session/{id}/participate/{userId}", sessionH.NoLongerParticipate)
		r.Get("/api/teacher", teacherH.List)
		r.Get("/api/teacher/{id}", teacherH.Get)
		r.Get("/api/user/{id}", userH.Get)
		r.Delete("/api/user/{id}", userH.Delete)
		if d.Hub != nil {
			r.Get("/ws", NewWSHandler(d.Hub, d.CORSAllowedOrigins).ServeWS)
		}
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin)
		r.Post("/api/session", sessionH.Create)
		r.Put("/api/session/{id}", sessionH.Update)
		r.Delete("/api/session/{id}", sessionH.Delete)
	})

	return r
}

func splitOrigins(s string) []string {
	var out []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
