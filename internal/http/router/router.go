package router

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/soukly/platform/internal/health"
	"github.com/soukly/platform/internal/http/handler"
	"github.com/soukly/platform/internal/http/middleware"
	"github.com/soukly/platform/internal/http/response"
	"github.com/soukly/platform/internal/security"
)

type Dependencies struct {
	AuthHandler    *handler.AuthHandler
	UserHandler    *handler.UserHandler
	ProductHandler *handler.ProductHandler
	JWTManager     *security.JWTManager
	Logger         *slog.Logger

	CORSOrigins     []string
	APIRateLimiter  func(http.Handler) http.Handler
	AuthRateLimiter func(http.Handler) http.Handler
	Readiness       *health.ProbeRunner
	EnableOTelHTTP  bool
	OTelServiceName string
}

func New(dep Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(dep.Logger))
	r.Use(middleware.SecurityHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   dep.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.BodyLimit(1 << 20))
	if dep.APIRateLimiter != nil {
		r.Use(dep.APIRateLimiter)
	}

	authLimiter := dep.AuthRateLimiter
	if authLimiter == nil {
		authLimiter = func(next http.Handler) http.Handler { return next }
	}
	requireAuth := middleware.Auth(dep.JWTManager, dep.Logger)

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, http.StatusOK, map[string]string{"message": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		ready, results := dep.Readiness.Ready(r.Context())
		status := http.StatusOK
		if !ready {
			status = http.StatusServiceUnavailable
		}
		response.JSON(w, status, map[string]any{"ready": ready, "checks": results})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Use(authLimiter)
			r.Post("/register", dep.AuthHandler.Register)
			r.Post("/verify", dep.AuthHandler.Verify)
			r.Post("/login", dep.AuthHandler.Login)
			r.Post("/refresh", dep.AuthHandler.Refresh)
			r.Post("/logout", dep.AuthHandler.Logout)
		})

		r.With(requireAuth).Get("/users/me", dep.UserHandler.Me)

		r.Route("/products", func(r chi.Router) {
			r.Get("/", dep.ProductHandler.List)
			r.Get("/{id}", dep.ProductHandler.Get)
			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/", dep.ProductHandler.Create)
				r.Put("/{id}", dep.ProductHandler.Update)
				r.Delete("/{id}", dep.ProductHandler.Delete)
			})
		})
	})

	if dep.EnableOTelHTTP {
		return otelhttp.NewHandler(r, dep.OTelServiceName,
			otelhttp.WithSpanNameFormatter(func(_ string, req *http.Request) string {
				return req.Method + " " + req.URL.Path
			}))
	}
	return r
}

// NewServer applies the timeouts every listener in the project uses.
func NewServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
