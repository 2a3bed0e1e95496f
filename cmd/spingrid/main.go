package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spingrid/spingrid/internal/album"
	"github.com/spingrid/spingrid/internal/api"
	"github.com/spingrid/spingrid/internal/cache"
	"github.com/spingrid/spingrid/internal/config"
	"github.com/spingrid/spingrid/internal/coverart"
	"github.com/spingrid/spingrid/internal/curated"
	"github.com/spingrid/spingrid/internal/database"
	"github.com/spingrid/spingrid/internal/event"
	"github.com/spingrid/spingrid/internal/feed"
	"github.com/spingrid/spingrid/internal/logging"
	"github.com/spingrid/spingrid/internal/musicbrainz"
	"github.com/spingrid/spingrid/internal/ratelimit"
	"github.com/spingrid/spingrid/internal/reconcile"
	"github.com/spingrid/spingrid/internal/source"
	"github.com/spingrid/spingrid/internal/source/allmusic"
	"github.com/spingrid/spingrid/internal/source/aquarium"
	"github.com/spingrid/spingrid/internal/source/pitchfork"
	"github.com/spingrid/spingrid/internal/source/stereogum"
	"github.com/spingrid/spingrid/internal/sync"
	"github.com/spingrid/spingrid/internal/version"
)

// resolveCacheTTL bounds how long MusicBrainz lookups are memoized. Release
// metadata is effectively immutable once published, so a long TTL is safe.
const resolveCacheTTL = 24 * time.Hour

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	configPath := os.Getenv("SG_CONFIG_PATH")
	if configPath == "" {
		configPath = "/data/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Set up structured logging via the logging Manager
	logCfg := logging.Config{
		Level:          cfg.Logging.Level,
		Format:         cfg.Logging.Format,
		FilePath:       cfg.Logging.FilePath,
		FileMaxSizeMB:  cfg.Logging.FileMaxSizeMB,
		FileMaxFiles:   cfg.Logging.FileMaxFiles,
		FileMaxAgeDays: cfg.Logging.FileMaxAgeDays,
	}
	logManager, logger := logging.NewManager(logCfg)
	defer logManager.Close() //nolint:errcheck
	slog.SetDefault(logger)

	// Open database
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("closing database", "error", err)
		}
	}()

	// Run migrations
	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	logger.Info("database ready", slog.String("path", cfg.Database.Path))

	// Initialize event bus
	eventBus := event.NewBus(logger, 256)
	go eventBus.Start()
	defer eventBus.Stop()

	// Surface lifecycle events in the log
	for _, t := range []event.Type{
		event.SyncStarted, event.SyncCompleted, event.SyncFailed, event.CuratedReload,
	} {
		eventBus.Subscribe(t, func(e event.Event) {
			logger.Info("event", slog.String("type", string(e.Type)), slog.Any("data", e.Data))
		})
	}

	// Shared upstream infrastructure: one limiter map covers the scrape
	// sources and all enrichment APIs.
	rateLimiters := ratelimit.NewLimiterMap()

	// Register review sources
	registry := source.NewRegistry()
	registry.Register(pitchfork.New("Pitchfork Best New Albums", cfg.Scrape.PitchforkAlbumsURL, rateLimiters, logger))
	registry.Register(pitchfork.New("Pitchfork Best New Reissues", cfg.Scrape.PitchforkReissuesURL, rateLimiters, logger))
	registry.Register(allmusic.New(cfg.Scrape.AllMusicURL, rateLimiters, logger))
	registry.Register(stereogum.New(cfg.Scrape.StereogumURL, rateLimiters, logger))
	registry.Register(aquarium.New(cfg.Scrape.AquariumURL, rateLimiters, logger))
	harvester := source.NewHarvester(registry, logger, cfg.Scrape.SourceDelay())

	// Enrichment pipeline
	mbClient := musicbrainz.New(rateLimiters, cache.NewTTL(resolveCacheTTL), logger)
	coverService := coverart.New(rateLimiters, logger)
	engine := reconcile.NewEngine(harvester, mbClient, coverService, logger)

	// Persistence and orchestration
	albumService := album.NewService(db)
	syncService := sync.NewService(engine, albumService, mbClient, eventBus, logger)
	syncService.SetIncrementalLimit(cfg.Sync.IncrementalLimit)

	// Hand-curated supplementary list, hot-reloaded on file change
	curatedService := curated.NewService(cfg.Curated.Path, eventBus, logger)
	if err := curatedService.Load(); err != nil {
		logger.Warn("curated list unavailable", slog.String("path", cfg.Curated.Path), "error", err)
	}

	feedAssembler := feed.NewAssembler(albumService, curatedService, logger)

	logger.Info("starting spingrid",
		slog.String("version", version.Version),
		slog.String("commit", version.Commit),
	)

	// Set up HTTP router
	router := api.NewRouter(api.RouterDeps{
		Feed:          feedAssembler,
		Sync:          syncService,
		Albums:        albumService,
		Search:        mbClient,
		Covers:        coverService,
		Logger:        logger,
		BasePath:      cfg.Server.BasePath,
		FullSyncLimit: cfg.Sync.FullLimit,
	})

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go curatedService.Watch(ctx)

	// Periodic sync scheduler: incremental refreshes whenever the store
	// has gone stale. Manual and feed-triggered syncs share the same
	// single-flight guard, so overlap is harmless.
	if cfg.Sync.IntervalHours > 0 {
		go runSyncScheduler(ctx, syncService, time.Duration(cfg.Sync.IntervalHours)*time.Hour, logger)
	}

	// Create HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", slog.String("addr", addr), slog.String("base_path", cfg.Server.BasePath))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

func runSyncScheduler(ctx context.Context, syncService *sync.Service, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			needed, err := syncService.NeedsSync(ctx)
			if err != nil {
				logger.Error("sync-needed check failed", "error", err)
				continue
			}
			if !needed {
				continue
			}
			if _, err := syncService.Incremental(ctx); err != nil && !errors.Is(err, sync.ErrAlreadyRunning) {
				logger.Error("scheduled sync failed", "error", err)
			}
		}
	}
}
