// Package main provides the recall worker daemon entry point.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm/logger"

	"github.com/thebtf/recall/internal/capture"
	"github.com/thebtf/recall/internal/config"
	db "github.com/thebtf/recall/internal/db/gorm"
	"github.com/thebtf/recall/internal/embedding"
	"github.com/thebtf/recall/internal/generation"
	"github.com/thebtf/recall/internal/watcher"
	"github.com/thebtf/recall/internal/worker"
	"github.com/thebtf/recall/internal/worker/sse"
	"github.com/thebtf/recall/pkg/models"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	port := flag.Int("port", 0, "HTTP port (default: from settings)")
	dataDir := flag.String("data-dir", "", "Data directory (default: ~/.recall)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true})

	if *dataDir != "" {
		os.Setenv(config.DataDirEnv, *dataDir)
	}

	if err := config.EnsureAll(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure data directory")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load config, using defaults")
		cfg = config.Default()
	}
	if *port != 0 {
		cfg.WorkerPort = *port
	}

	dbPath := config.DBPath()
	store, err := db.NewStore(db.Config{
		Path:     dbPath,
		MaxConns: cfg.MaxConns,
		LogLevel: logger.Silent,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open capture database")
	}
	defer store.Close()

	captures := db.NewCaptureStore(store)

	embedder := embedding.NewOllamaProvider(cfg.OllamaURL, cfg.EmbeddingModel)

	var generator worker.Generator
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		generator = generation.NewClient(apiKey, cfg.GenerationBaseURL, cfg.GenerationModel)
	} else {
		log.Info().Msg("OPENAI_API_KEY not set, /api/ask disabled")
	}

	broadcaster := sse.NewBroadcaster()
	pipeline := capture.NewPipeline(cfg.MinChangeRatio, cfg.SignatureSize, embedder, captures, func(rec models.CaptureRecord) {
		broadcaster.Broadcast(sse.RecordStored(rec))
	})

	svc := worker.NewService(Version, cfg, store, captures, pipeline, generator, broadcaster)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Deleting the database out from under an open WAL connection corrupts
	// the log silently. Exit instead and let the supervisor restart us
	// against a fresh file.
	dbWatcher, err := watcher.New(dbPath, func() {
		log.Warn().Str("path", dbPath).Msg("Capture database deleted, shutting down for restart")
		time.Sleep(100 * time.Millisecond) // let logs flush
		stop()
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create database watcher")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return svc.Serve(gctx)
	})
	if dbWatcher != nil {
		g.Go(func() error {
			return dbWatcher.Run(gctx)
		})
	}

	log.Info().Str("version", Version).Int("port", cfg.WorkerPort).Msg("recalld started")

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("Worker daemon error")
	}
	log.Info().Msg("recalld stopped")
}
