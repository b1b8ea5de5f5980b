package server

import (
	"net/http"

	"github.com/deskboard/deskboard/internal/handler"
	"github.com/deskboard/deskboard/internal/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// Health checks (no auth)
	healthHandler := handler.NewHealthHandler(s.db)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	auth := middleware.NewAuth(s.cfg.JWTSecret)

	sessionHandler := handler.NewSessionHandler(s.sessions, s.registry, s.broadcaster, s.activity, s.notifications)
	presenceHandler := handler.NewPresenceHandler(s.registry)
	activityHandler := handler.NewActivityHandler(s.activity)
	notificationHandler := handler.NewNotificationHandler(s.notifications, s.broadcaster, s.activity)
	wsHandler := handler.NewWSHandler(s.hub, s.lifecycle)

	// WebSocket endpoint at root (no /api/v1 prefix for WS)
	r.Group(func(r chi.Router) {
		r.Use(auth.Handler)
		r.Get("/ws", wsHandler.Connect)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.Handler)
		r.Use(middleware.RateLimit(s.rateLimiter, "api", s.cfg.RateLimitPerSecond, s.cfg.RateLimitBurst))

		// Sessions
		r.Route("/sessions", func(r chi.Router) {
			// Session start gets its own, stricter bucket.
			r.With(middleware.RateLimit(s.rateLimiter, "session-start",
				s.cfg.SessionRatePerHour/3600, s.cfg.SessionRateBurst,
			)).Post("/start", sessionHandler.Start)

			r.Post("/logout", sessionHandler.Logout)
			r.Get("/active", sessionHandler.Active)
			r.Get("/", sessionHandler.List)
			r.Post("/{id}/end", sessionHandler.End)

			r.With(middleware.RequireAdmin).Post("/{id}/terminate", sessionHandler.Terminate)
		})

		// Presence snapshot
		r.Get("/presence", presenceHandler.Snapshot)

		// Activity log (admin)
		r.With(middleware.RequireAdmin).Get("/activity", activityHandler.List)

		// Notifications
		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", notificationHandler.List)
			r.Post("/mark-read/{id}", notificationHandler.MarkRead)
			r.With(middleware.RequireAdmin).Post("/send", notificationHandler.Send)
		})
	})

	return r
}
