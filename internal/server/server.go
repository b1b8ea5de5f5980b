package server

import (
	"context"
	"log/slog"
	"net"
	"net/http"

	"github.com/deskboard/deskboard/internal/audit"
	"github.com/deskboard/deskboard/internal/config"
	"github.com/deskboard/deskboard/internal/fanout"
	"github.com/deskboard/deskboard/internal/middleware"
	"github.com/deskboard/deskboard/internal/notification"
	"github.com/deskboard/deskboard/internal/presence"
	"github.com/deskboard/deskboard/internal/session"
	"github.com/deskboard/deskboard/internal/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Server wires the presence core, the session ledger, and the HTTP
// surface together.
type Server struct {
	cfg           *config.Config
	db            *pgxpool.Pool
	hub           *websocket.Hub
	registry      *presence.Registry
	broadcaster   *presence.Broadcaster
	lifecycle     *websocket.Lifecycle
	sessions      *session.Store
	notifications *notification.Store
	activity      *audit.Logger
	rateLimiter   *middleware.RateLimiter
	bridge        *fanout.Bridge
	server        *http.Server
	sweepCancel   context.CancelFunc
}

// New creates a Server. When cfg.NatsURL is set, broadcasts are mirrored
// across instances through the NATS bridge; otherwise the hub delivers
// in-process only.
func New(cfg *config.Config, pool *pgxpool.Pool) (*Server, error) {
	hub := websocket.NewHub()
	registry := presence.NewRegistry()

	var router presence.Router = hub
	var bridge *fanout.Bridge
	if cfg.NatsURL != "" {
		var err error
		bridge, err = fanout.Connect(cfg.NatsURL, hub)
		if err != nil {
			return nil, err
		}
		router = bridge
	}

	broadcaster := presence.NewBroadcaster(registry, router)
	sessions := session.NewStore(pool)
	lifecycle := websocket.NewLifecycle(registry, sessions, broadcaster, hub)
	activity := audit.New(pool, 256)
	notifications := notification.NewStore(pool)

	rlConfig := middleware.DefaultRateLimitConfig()
	rlConfig.RatePerSecond = cfg.RateLimitPerSecond
	rlConfig.Burst = cfg.RateLimitBurst
	rateLimiter := middleware.NewRateLimiter(rlConfig)

	s := &Server{
		cfg:           cfg,
		db:            pool,
		hub:           hub,
		registry:      registry,
		broadcaster:   broadcaster,
		lifecycle:     lifecycle,
		sessions:      sessions,
		notifications: notifications,
		activity:      activity,
		rateLimiter:   rateLimiter,
		bridge:        bridge,
	}

	s.server = &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: s.routes(),
	}

	if cfg.HeartbeatSweepInterval > 0 {
		sweepCtx, sweepCancel := context.WithCancel(context.Background())
		s.sweepCancel = sweepCancel
		go hub.RunSweeper(sweepCtx, cfg.HeartbeatSweepInterval, cfg.HeartbeatMaxAge)
		slog.Info("heartbeat sweeper enabled",
			"interval", cfg.HeartbeatSweepInterval,
			"max_age", cfg.HeartbeatMaxAge,
		)
	}

	return s, nil
}

// Broadcaster exposes the presence broadcaster so collaborating services
// in the same process can push domain events to connected clients.
func (s *Server) Broadcaster() *presence.Broadcaster {
	return s.broadcaster
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Serve starts the HTTP server on the given listener.
func (s *Server) Serve(l net.Listener) error {
	return s.server.Serve(l)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.sweepCancel != nil {
		s.sweepCancel()
	}
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
	// Drain HTTP first, then flush the activity log, then drop the
	// fan-out connection.
	err := s.server.Shutdown(ctx)
	if s.activity != nil {
		s.activity.Close()
	}
	if s.bridge != nil {
		s.bridge.Close()
	}
	return err
}
