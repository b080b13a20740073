// Package radio wires the engine, its sinks and the auth guard together
// into the HTTP surface described in SPEC_FULL.md §10: a public audio
// stream, health and metrics endpoints, and a small debug/control API for
// skip/previous/seek.
package radio

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/arung-agamani/denpa-radio/config"
	"github.com/arung-agamani/denpa-radio/internal/auth"
	"github.com/arung-agamani/denpa-radio/internal/broadcast"
	"github.com/arung-agamani/denpa-radio/internal/engine"
	"github.com/arung-agamani/denpa-radio/internal/eventbus"
	"github.com/arung-agamani/denpa-radio/internal/icecast"
)

// Server is the HTTP front of the station: it does not own playback, only
// the engine's public surface.
type Server struct {
	cfg         *config.Config
	engine      *engine.Engine
	broadcaster *broadcast.Broadcaster
	icecast     *icecast.Sink
	events      *eventbus.EventBus
	auth        *auth.Auth
	httpServer  *http.Server
}

// NewServer builds the gin router and wraps it in an http.Server. icecastSink
// may be nil when upstream relay is disabled.
func NewServer(cfg *config.Config, eng *engine.Engine, b *broadcast.Broadcaster, icecastSink *icecast.Sink, events *eventbus.EventBus, a *auth.Auth) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), SecurityHeadersMiddleware())

	s := &Server{
		cfg:         cfg,
		engine:      eng,
		broadcaster: b,
		icecast:     icecastSink,
		events:      events,
		auth:        a,
	}

	router.GET("/stream", s.streamHandler)
	router.GET("/ws", s.wsHandler)
	router.GET("/healthz", s.healthHandler)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	engineGroup := router.Group("/api/engine")
	engineGroup.GET("/status", s.statusHandler)

	protected := engineGroup.Group("")
	protected.Use(AuthRequired(a))
	protected.POST("/skip", s.skipHandler)
	protected.POST("/previous", s.previousHandler)
	protected.POST("/seek", s.seekHandler)

	router.POST("/api/auth/login", s.loginHandler)

	s.httpServer = &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0, // streaming responses never time out
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Run starts the HTTP server and blocks until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
