// Package gateway is the public edge: it rate-limits by client IP, enforces
// the CORS allow-list and reverse-proxies API prefixes to the backing
// services. It holds no business logic and no session state.
package gateway

import (
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/soukly/platform/internal/apperr"
	"github.com/soukly/platform/internal/health"
	"github.com/soukly/platform/internal/http/middleware"
	"github.com/soukly/platform/internal/http/response"
	"github.com/soukly/platform/internal/observability"
)

type Route struct {
	// Prefix is matched against the request path; first match wins.
	Prefix  string
	Backend string
	Name    string
}

type Config struct {
	Routes      []Route
	CORSOrigins []string
	RateLimiter func(http.Handler) http.Handler
	Readiness   *health.ProbeRunner
	Logger      *slog.Logger
}

// New builds the gateway handler. Health endpoints are answered locally and
// sit in front of the rate limiter so orchestrator probes never burn caller
// quota.
func New(cfg Config) (http.Handler, error) {
	proxies := make([]proxyRoute, 0, len(cfg.Routes))
	for _, route := range cfg.Routes {
		target, err := url.Parse(route.Backend)
		if err != nil {
			return nil, err
		}
		proxies = append(proxies, proxyRoute{
			prefix: route.Prefix,
			name:   route.Name,
			proxy:  newBackendProxy(target, route.Name, cfg.Logger),
		})
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(cfg.Logger))
	r.Use(middleware.SecurityHeaders)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, http.StatusOK, map[string]string{"message": "gateway is healthy"})
	})
	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, http.StatusOK, map[string]string{"message": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		ready, results := cfg.Readiness.Ready(r.Context())
		status := http.StatusOK
		if !ready {
			status = http.StatusServiceUnavailable
		}
		response.JSON(w, status, map[string]any{"ready": ready, "checks": results})
	})

	r.Group(func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
		if cfg.RateLimiter != nil {
			r.Use(cfg.RateLimiter)
		}
		r.Handle("/*", dispatch(proxies, cfg.Logger))
	})

	return r, nil
}

type proxyRoute struct {
	prefix string
	name   string
	proxy  *httputil.ReverseProxy
}

func dispatch(routes []proxyRoute, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, route := range routes {
			if strings.HasPrefix(r.URL.Path, route.prefix) {
				route.proxy.ServeHTTP(w, r)
				return
			}
		}
		response.Error(r.Context(), w, logger,
			apperr.New(apperr.KindNotFound, "no route for this path"))
	})
}

func newBackendProxy(target *url.URL, name string, logger *slog.Logger) *httputil.ReverseProxy {
	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ModifyResponse = func(resp *http.Response) error {
		observability.RecordProxyRequest(resp.Request.Context(), name, resp.StatusCode)
		return nil
	}
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.ErrorContext(r.Context(), "backend unreachable",
			"backend", name, "error", err)
		observability.RecordProxyRequest(r.Context(), name, http.StatusBadGateway)
		response.JSON(w, http.StatusBadGateway, response.ErrorBody{
			Message: "upstream service unavailable",
		})
	}
	director := proxy.Director
	proxy.Director = func(req *http.Request) {
		director(req)
		req.Header.Set("X-Forwarded-Host", req.Host)
		req.Header.Set("X-Origin-IP", middleware.ClientIP(req))
	}
	return proxy
}

// NewServer mirrors the API server's timeout profile.
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
