package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/nikhilbhutani/docchat/internal/api/handlers"
	"github.com/nikhilbhutani/docchat/internal/api/middleware"
	"github.com/nikhilbhutani/docchat/internal/auth"
	"github.com/nikhilbhutani/docchat/internal/config"
)

const (
	serviceName = "docchat"
	Version     = "1.0.0"
)

type Router struct {
	mux     *chi.Mux
	cfg     *config.Config
	svc     *Services
	session *auth.SessionMiddleware
	limiter *middleware.RateLimiter
}

func NewRouter(cfg *config.Config, svc *Services) *Router {
	rt := &Router{
		mux:     chi.NewRouter(),
		cfg:     cfg,
		svc:     svc,
		session: auth.NewSessionMiddleware(cfg.Auth.SessionJWTSecret, cfg.Auth.SessionHeader),
	}
	if cfg.Server.RateLimitRPS > 0 {
		rt.limiter = middleware.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)
	}
	return rt
}

// RateLimiter is nil when rate limiting is disabled.
func (rt *Router) RateLimiter() *middleware.RateLimiter {
	return rt.limiter
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(rt.cfg.Server.AllowedOrigins, rt.cfg.Auth.SessionHeader))

	health := handlers.NewHealthHandler(rt.svc.DB, rt.svc.Redis, serviceName, Version)
	r.Get("/", health.Info)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	r.Group(func(r chi.Router) {
		if rt.limiter != nil {
			r.Use(rt.limiter.Limit)
		}
		r.Use(rt.session.Resolve)

		fileH := handlers.NewFileHandler(rt.svc.Documents, rt.cfg.Server.MaxUploadBytes)
		r.Post("/upload", fileH.Upload)
		r.Route("/files", func(r chi.Router) {
			r.Get("/", fileH.List)
			r.Delete("/", fileH.DeleteAll)
			r.Delete("/{filename}", fileH.Delete)
		})

		chatH := handlers.NewChatHandler(rt.svc.Engine)
		r.Post("/chat", chatH.Chat)

		convH := handlers.NewConversationHandler(rt.svc.Conversations)
		r.Get("/conversation", convH.Get)
		r.Delete("/conversation", convH.Delete)

		metricsH := handlers.NewMetricsHandler(rt.svc.Metrics)
		r.Get("/metrics", metricsH.Snapshot)
		r.Get("/metrics/history", metricsH.History)
	})

	return r
}
