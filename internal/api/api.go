// Package api provides the HTTP REST API server.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/good-yellow-bee/jpapi/internal/api/health"
	"github.com/good-yellow-bee/jpapi/internal/api/middleware"
	"github.com/good-yellow-bee/jpapi/internal/catalog"
	"github.com/good-yellow-bee/jpapi/internal/query"
	"github.com/good-yellow-bee/jpapi/internal/storage"
)

// Config contains HTTP API server configuration.
type Config struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Query tunes filter generation for every endpoint.
	Query query.Options

	RateLimitPerMinute int
	RateLimitBurst     int

	Verbose bool
}

// SetDefaults applies default values for missing configuration.
func (c *Config) SetDefaults() {
	if c.Address == "" {
		c.Address = ":8080"
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 15 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 30 * time.Second
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 60 * time.Second
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 120
	}
}

// Server is the HTTP API server.
type Server struct {
	config        *Config
	catalog       *catalog.Catalog
	dataset       storage.Querier
	keys          storage.APIKeyRepository
	log           zerolog.Logger
	limiter       *middleware.RateLimiter
	server        *http.Server
	healthHandler *health.Handler
	now           func() time.Time
}

// New creates a new API server. The catalog must describe every entity the
// routes serve.
func New(cfg *Config, cat *catalog.Catalog, dataset storage.Querier, keys storage.APIKeyRepository, log zerolog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cat == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	if dataset == nil {
		return nil, fmt.Errorf("dataset is required")
	}
	if keys == nil {
		return nil, fmt.Errorf("api key repository is required")
	}
	if err := cat.Require(catalog.PeopleGroups, catalog.Countries, catalog.Languages, catalog.Resources); err != nil {
		return nil, err
	}

	cfg.SetDefaults()

	s := &Server{
		config:        cfg,
		catalog:       cat,
		dataset:       dataset,
		keys:          keys,
		log:           log,
		limiter:       middleware.NewRateLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst),
		healthHandler: health.NewHandler(),
		now:           time.Now,
	}

	s.server = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.setupRouter(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Run starts the HTTP server and blocks until context is canceled.
func (s *Server) Run(ctx context.Context) error {
	errChan := make(chan error, 1)

	go s.limiter.Run(ctx.Done())

	go func() {
		s.log.Info().Str("address", s.config.Address).Msg("HTTP API listening")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.log.Info().Msg("shutting down HTTP API server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}

// Address returns the configured listen address.
func (s *Server) Address() string {
	return s.config.Address
}

// RegisterHealthChecker adds a health checker to the server.
func (s *Server) RegisterHealthChecker(c health.Checker) {
	if s.healthHandler != nil {
		s.healthHandler.RegisterChecker(c)
	}
}
