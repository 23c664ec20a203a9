package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/docrag/internal/adapters/driven/embedding/ollama"
	"github.com/custodia-labs/docrag/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/docrag/internal/adapters/driven/memory"
	"github.com/custodia-labs/docrag/internal/adapters/driven/postgres"
	redisadapter "github.com/custodia-labs/docrag/internal/adapters/driven/redis"
	"github.com/custodia-labs/docrag/internal/adapters/driven/sqlite"
	"github.com/custodia-labs/docrag/internal/chunker"
	"github.com/custodia-labs/docrag/internal/config"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
	"github.com/custodia-labs/docrag/internal/core/ports/driving"
	"github.com/custodia-labs/docrag/internal/core/services"
	"github.com/custodia-labs/docrag/internal/sources/pdfdir"
)

// App holds the wired services behind the CLI commands.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	embedding   driven.EmbeddingService
	ingestor    *services.IngestOrchestrator
	search      driving.SearchService
	maintenance driving.MaintenanceService

	closers []func() error
}

// NewApp wires adapters and services from configuration.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := slog.Default()
	a := &App{cfg: cfg, logger: logger}

	embedding, err := buildEmbedding(cfg)
	if err != nil {
		return nil, err
	}
	a.embedding = embedding
	a.closers = append(a.closers, embedding.Close)

	if err := embedding.HealthCheck(ctx); err != nil {
		logger.Warn("embedding service health check failed, ingestion and search may not work",
			"provider", cfg.Embedding.Provider, "model", embedding.Model(), "error", err)
	}

	documentStore, chunkStore, err := a.buildStores(ctx, embedding.Dimensions())
	if err != nil {
		a.Close()
		return nil, err
	}

	var distLock driven.DistributedLock
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			a.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		distLock = redisadapter.NewLock(client)
		logger.Info("using redis distributed lock", "addr", cfg.Redis.Addr)
	}

	lock := services.NewIngestLock(distLock)
	a.ingestor = services.NewIngestOrchestrator(services.IngestOrchestratorConfig{
		DocumentStore: documentStore,
		ChunkStore:    chunkStore,
		Lock:          lock,
		Logger:        logger,
	})
	a.search = services.NewSearchService(chunkStore, embedding, logger)
	a.maintenance = services.NewMaintenanceService(documentStore, chunkStore, lock, logger)

	return a, nil
}

// NewSource creates a PDF directory source for ingestion commands.
func (a *App) NewSource(dir string) (*pdfdir.Source, error) {
	if dir == "" {
		dir = a.cfg.Ingest.Dir
	}
	if dir == "" {
		return nil, fmt.Errorf("no directory given and ingest.dir is not configured")
	}
	splitter := chunker.New(a.cfg.Ingest.MaxChunkSize)
	return pdfdir.New(dir, a.embedding, splitter, a.logger)
}

// Close releases all held resources in reverse acquisition order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
}

func buildEmbedding(cfg *config.Config) (driven.EmbeddingService, error) {
	switch cfg.Embedding.Provider {
	case "ollama":
		return ollama.NewEmbeddingService(ollama.Config{
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			Timeout:    cfg.Embedding.Timeout.Duration(),
			Dimensions: cfg.Embedding.Dimensions,
		}), nil
	case "openai":
		return openai.NewEmbeddingService(openai.Config{
			APIKey:     cfg.Embedding.APIKey,
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			Timeout:    cfg.Embedding.Timeout.Duration(),
			Dimensions: cfg.Embedding.Dimensions,
		})
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Embedding.Provider)
	}
}

func (a *App) buildStores(ctx context.Context, dimensions int) (driven.DocumentStore, driven.ChunkStore, error) {
	switch a.cfg.Store.Backend {
	case "memory":
		return memory.NewDocumentStore(), memory.NewChunkStore(dimensions), nil

	case "sqlite":
		store, err := sqlite.NewStore(a.cfg.Store.DataDir, dimensions)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		a.logger.Info("using sqlite store", "path", store.Path())
		return store.DocumentStore(), store.ChunkStore(), nil

	case "postgres":
		db, err := postgres.Connect(ctx, postgres.Config{
			URL:             a.cfg.Store.PostgresURL,
			Dimensions:      dimensions,
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		if err := db.InitSchema(ctx); err != nil {
			return nil, nil, fmt.Errorf("init schema: %w", err)
		}
		a.logger.Info("using postgres store", "dimensions", dimensions)
		return postgres.NewDocumentStore(db), postgres.NewChunkStore(db), nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", a.cfg.Store.Backend)
	}
}
