// Package server exposes the parameter surface and live telemetry over HTTP
// and a websocket, so a browser can act as the control panel.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/san-kum/springsim/internal/params"
	"github.com/san-kum/springsim/internal/sim"
	"golang.org/x/time/rate"
)

var startTime = time.Now()

// FrameSource publishes the latest driver frame.
type FrameSource interface {
	Latest() sim.Frame
}

// MetricSource reports named metric values.
type MetricSource interface {
	Values() map[string]float64
}

type Config struct {
	Addr         string
	TelemetryHz  float64
	WriteRate    float64
	WriteBurst   int
	AllowOrigins []string
}

func DefaultConfig() Config {
	return Config{
		Addr:        "127.0.0.1:8080",
		TelemetryHz: 20,
		WriteRate:   50,
		WriteBurst:  20,
	}
}

type Server struct {
	cfg     Config
	surface *params.Surface
	frames  FrameSource
	metrics MetricSource
	logger  *slog.Logger
	engine  *gin.Engine
	hub     *Hub
	writes  *rate.Limiter
}

func New(cfg Config, surface *params.Surface, frames FrameSource, metrics MetricSource, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.TelemetryHz <= 0 {
		cfg.TelemetryHz = DefaultConfig().TelemetryHz
	}
	if cfg.WriteRate <= 0 {
		cfg.WriteRate = DefaultConfig().WriteRate
	}
	if cfg.WriteBurst <= 0 {
		cfg.WriteBurst = DefaultConfig().WriteBurst
	}

	s := &Server{
		cfg:     cfg,
		surface: surface,
		frames:  frames,
		metrics: metrics,
		logger:  logger,
		writes:  rate.NewLimiter(rate.Limit(cfg.WriteRate), cfg.WriteBurst),
	}
	s.hub = newHub(s)
	s.engine = s.routes()
	return s
}

// Handler returns the router, useful for tests.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) Hub() *Hub { return s.hub }

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.accessLog())
	r.Use(s.corsMiddleware())

	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", s.health)
		v1.GET("/fields", s.listFields)
		v1.GET("/frame", s.latestFrame)
		v1.GET("/ws", s.hub.serveWS)

		p := v1.Group("/params")
		{
			p.GET("", s.getParams)
			p.PUT("", s.limitWrites(), s.putParams)
			p.PATCH("", s.limitWrites(), s.patchParams)
			p.PUT("/:field", s.limitWrites(), s.putField)
			p.POST("/reset", s.limitWrites(), s.reset)
			p.POST("/restart", s.limitWrites(), s.restart)
		}
	}
	return r
}

func (s *Server) corsMiddleware() gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Length", "Content-Type", "Accept"},
		MaxAge:       12 * time.Hour,
	}
	if len(s.cfg.AllowOrigins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = s.cfg.AllowOrigins
	}
	return cors.New(cfg)
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"took", time.Since(start),
		)
	}
}

func (s *Server) limitWrites() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.writes.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many parameter writes"})
			return
		}
		c.Next()
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go s.hub.run(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("control panel listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve %s: %w", s.cfg.Addr, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.hub.closeAll()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "springsim",
		"uptime":  time.Since(startTime).String(),
		"clients": s.hub.Len(),
	})
}
