package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/illarion/pbetool/internal/config"
	"github.com/rs/zerolog"
)

const (
	MaxBodySize     = 1 << 20
	writeTimeout    = 15 * time.Second
	requestTimeout  = 10 * time.Second // below writeTimeout so the 504 reaches the client
	shutdownTimeout = 10 * time.Second
)

// Server runs the HTTP encryption service
type Server struct {
	cfg     *config.Config
	log     zerolog.Logger
	metrics *Metrics
	http    *http.Server
}

func New(cfg *config.Config, log zerolog.Logger) *Server {
	s := &Server{cfg: cfg, log: log, metrics: NewMetrics()}
	s.http = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      s.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Router builds the chi router with all middleware and routes.
func (s *Server) Router() *chi.Mux {
	h := NewHandler(s.cfg.CryptoFormat(), s.cfg.Iterations, s.cfg.IterationLimit(), s.metrics, s.log)

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(RequestID)
	r.Use(Logger(s.log, s.metrics))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.RequestSize(MaxBodySize))

	r.Get("/health", h.Health)
	r.Get("/metrics", h.Metrics)

	r.Route("/api", func(r chi.Router) {
		r.Use(JSONOnly)
		r.Post("/encrypt", h.Encrypt)
		r.Post("/decrypt", h.Decrypt)
	})

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	defer s.metrics.Stop()

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().
			Str("addr", s.http.Addr).
			Str("format", s.cfg.CryptoFormat().String()).
			Int("iterations", s.cfg.Iterations).
			Int("max_iterations", s.cfg.IterationLimit()).
			Msg("server starting")
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	s.log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}
