// Package httpserver exposes the site API over HTTP.
package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/and161185/maru-site/internal/metrics"
	"github.com/and161185/maru-site/internal/repository"
	"github.com/and161185/maru-site/internal/service"
)

// Deps are the collaborators of the HTTP API.
type Deps struct {
	Auth     service.AuthService
	Posts    service.PostService
	Uploads  service.UploadService
	Contacts service.ContactService
	Store    repository.Pinger
	Metrics  *metrics.Metrics
	Log      *zap.Logger

	// SecureCookies sets the Secure flag on the session cookie.
	SecureCookies  bool
	TokenTTL       time.Duration
	AdminDir       string
	MaxUploadBytes int64
	AllowedOrigins []string
	RequestTimeout time.Duration
	// TrustProxy lets X-Forwarded-For and X-Real-IP replace RemoteAddr.
	TrustProxy     bool
}

func corsHandler(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"http://localhost:*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}

// NewRouter builds the full route tree.
func NewRouter(d Deps) http.Handler {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.RequestTimeout <= 0 {
		d.RequestTimeout = 60 * time.Second
	}
	requireSession := RequireSession(d.Auth, d.SecureCookies, d.Log)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	if d.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(Logging(d.Log))
	r.Use(Recover(d.Log))
	r.Use(Metrics(d.Metrics))
	r.Use(corsHandler(d.AllowedOrigins))

	r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(d.RequestTimeout))
		r.Mount("/user", NewUserHandler(d.Auth, d.TokenTTL, d.SecureCookies, d.Log).Routes(requireSession))
		r.Mount("/post", NewPostHandler(d.Posts, d.Log).Routes(requireSession))
		r.Mount("/upload", NewUploadHandler(d.Uploads, d.MaxUploadBytes, d.Log).Routes(requireSession))
		r.Mount("/contact", NewContactHandler(d.Contacts, d.Log).Routes(requireSession))
		r.Get("/db-status", DBStatus(d.Store, d.Log))
	})
	r.Handle("/metrics", d.Metrics.Handler())

	if d.AdminDir != "" {
		admin := AdminGuard(d.Auth)(AdminFiles(d.AdminDir))
		r.Handle(adminPrefix, admin)
		r.Handle(adminPrefix+"/*", admin)
	}
	return r
}
