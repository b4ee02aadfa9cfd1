// Package worker provides the HTTP worker service for recall.
package worker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/thebtf/recall/internal/capture"
	"github.com/thebtf/recall/internal/config"
	db "github.com/thebtf/recall/internal/db/gorm"
	"github.com/thebtf/recall/internal/worker/sse"
)

// Generator is the generation-client boundary. Nil means generation is
// disabled (no API key configured).
type Generator interface {
	Generate(ctx context.Context, contextBlock, question string) (string, error)
}

// Service wires the capture pipeline, stores, selector, and cluster engine
// behind an HTTP API.
type Service struct {
	version     string
	cfg         *config.Config
	store       *db.Store
	captures    *db.CaptureStore
	pipeline    *capture.Pipeline
	generator   Generator
	broadcaster *sse.Broadcaster
	router      *chi.Mux
	server      *http.Server
	startTime   time.Time
}

// NewService creates the worker service and registers its routes.
func NewService(version string, cfg *config.Config, store *db.Store, captures *db.CaptureStore, pipeline *capture.Pipeline, generator Generator, broadcaster *sse.Broadcaster) *Service {
	svc := &Service{
		version:     version,
		cfg:         cfg,
		store:       store,
		captures:    captures,
		pipeline:    pipeline,
		generator:   generator,
		broadcaster: broadcaster,
		router:      chi.NewRouter(),
		startTime:   time.Now(),
	}
	svc.setupRoutes()
	return svc
}

func (s *Service) setupRoutes() {
	s.router.Use(middleware.Recoverer)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Post("/session/start", s.handleSessionStart)
		r.Post("/session/stop", s.handleSessionStop)
		r.Post("/capture/frame", s.handleCaptureFrame)
		r.Post("/capture/text", s.handleCaptureText)

		r.Get("/records", s.handleListRecords)
		r.Delete("/records", s.handleClearRecords)

		r.Get("/context", s.handleContext)
		r.Post("/ask", s.handleAsk)

		r.Get("/clusters", s.handleClusters)
		r.Get("/nearest-pair", s.handleNearestPair)

		r.Get("/events", s.broadcaster.HandleSSE)
	})
}

// Serve runs the HTTP server until ctx is cancelled, then shuts down
// gracefully.
func (s *Service) Serve(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf("127.0.0.1:%d", s.cfg.WorkerPort),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.server.Addr).Msg("Worker service listening")
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
