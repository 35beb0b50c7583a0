// Package server exposes the match engine over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/internship-recommender/internal/cache"
	"github.com/spigell/internship-recommender/internal/logger"
	"github.com/spigell/internship-recommender/internal/reload"
)

const (
	DefaultAddr     = ":5000"
	DefaultCacheTTL = 10 * time.Minute

	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
	timestampLayout = "2006-01-02 15:04:05"
	shutdownTimeout = 10 * time.Second
)

type Config struct {
	Addr        string   `mapstructure:"addr"`
	CORSOrigins []string `mapstructure:"cors-origins"`
}

type Server struct {
	cfg      Config
	holder   *reload.Holder
	cache    cache.Cache
	cacheTTL time.Duration
	version  string
	logger   *zap.Logger
	now      func() time.Time
}

type Option func(*Server)

// WithCache stores stats and trending responses in c for ttl.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(s *Server) {
		if c != nil {
			s.cache = c
		}
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

func WithVersion(version string) Option {
	return func(s *Server) { s.version = version }
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func withClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

func New(cfg Config, holder *reload.Holder, opts ...Option) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}

	s := &Server{
		cfg:      cfg,
		holder:   holder,
		cache:    cache.Nop{},
		cacheTTL: DefaultCacheTTL,
		version:  "unknown",
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the router. gin mode is left to the caller.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.HandleMethodNotAllowed = true

	r.Use(gin.Recovery(), s.requestID(), s.accessLog(), cors.New(s.corsConfig()))

	r.GET("/", s.index)
	r.GET("/health", s.health)
	r.GET("/test", s.sample)
	r.POST("/recommend", s.legacyRecommend)

	api := r.Group("/api")
	api.GET("/recommendations", s.recommendationsUsage)
	api.POST("/recommendations", s.recommendations)
	api.GET("/internships", s.internships)
	api.GET("/internships/:id", s.internship)
	api.GET("/internships/:id/similar", s.similar)
	api.GET("/trending", s.trending)
	api.GET("/stats", s.stats)

	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{
			"ok":    false,
			"error": "Method Not Allowed",
			"hint":  "Check the HTTP method. Use GET for /health, /test and /api/* reads, POST for /recommend and /api/recommendations.",
		})
	})
	r.NoRoute(func(c *gin.Context) {
		s.fail(c, http.StatusNotFound, "Endpoint not found")
	})

	return r
}

func (s *Server) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", requestIDHeader},
		ExposeHeaders: []string{requestIDHeader},
		MaxAge:        12 * time.Hour,
	}

	origins := make([]string, 0, len(s.cfg.CORSOrigins))
	for _, o := range s.cfg.CORSOrigins {
		o = strings.TrimSpace(o)
		if o == "*" {
			origins = nil
			break
		}
		if o != "" {
			origins = append(origins, o)
		}
	}

	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}

func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := s.now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", s.now().Sub(start)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		s.requestLogger(c).Info("request handled", fields...)
	}
}

func (s *Server) requestLogger(c *gin.Context) *zap.Logger {
	version := ""
	if e, err := s.holder.Engine(); err == nil {
		version = e.Catalog().Version()
	}
	return logger.WithRequest(s.logger, c.GetString(requestIDKey), version)
}

func (s *Server) timestamp() string {
	return s.now().UTC().Format(timestampLayout)
}

func (s *Server) fail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{
		"success":   false,
		"error":     msg,
		"timestamp": s.timestamp(),
	})
}
