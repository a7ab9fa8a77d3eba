package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvector "github.com/pgvector/pgvector-go/pgx"

	"github.com/fanlore/fanlore/db"
	"github.com/fanlore/fanlore/internal/access"
	"github.com/fanlore/fanlore/internal/chunk"
	"github.com/fanlore/fanlore/internal/config"
	"github.com/fanlore/fanlore/internal/content"
	"github.com/fanlore/fanlore/internal/embed"
	"github.com/fanlore/fanlore/internal/ingest"
	"github.com/fanlore/fanlore/internal/rag"
	"github.com/fanlore/fanlore/internal/vectorstore"
)

// Setup creates and initializes the application.
// Returns an App with embedded cleanup — call Close() to release.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, retErr error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Logger: logger}

	// On error, clean up everything already initialized.
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	pool, err := provideDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Pool = pool

	g, err := provideGenkit(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	aiEmbedder := provideAIEmbedder(g, cfg)
	if aiEmbedder == nil {
		return nil, fmt.Errorf("embedder %q not found for provider %q", cfg.EmbedderModel, cfg.Provider)
	}
	embedder := embed.NewGenkitEmbedder(aiEmbedder, cfg.EmbedderModel)
	a.Embedder = embedder

	a.Contents = content.NewStore(pool)
	a.Vectors = vectorstore.New(vectorstore.NewPostgresQuerier(pool), logger)

	splitter, err := chunk.NewSplitter(cfg.ChunkWindow, cfg.ChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("creating splitter: %w", err)
	}

	orchestrator, err := ingest.New(ingest.Config{
		Splitter:   splitter,
		Embedder:   embedder,
		EmbedModel: cfg.EmbedderModel,
		Creators:   a.Contents,
		Writer:     a.Vectors,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating orchestrator: %w", err)
	}
	a.Orchestrator = orchestrator

	a.Retriever = rag.NewRetriever(embedder, a.Vectors, logger)

	generator, err := rag.NewGenkitGenerator(g, cfg.FullModelName())
	if err != nil {
		return nil, fmt.Errorf("creating generator: %w", err)
	}
	answerer, err := rag.NewAnswerer(a.Retriever, generator, cfg.RetrievalTopK, logger)
	if err != nil {
		return nil, fmt.Errorf("creating answerer: %w", err)
	}
	a.Answerer = answerer

	gate, err := access.NewGate(access.NewPostgresStore(pool), cfg.FreeQuestionLimit, logger)
	if err != nil {
		return nil, fmt.Errorf("creating access gate: %w", err)
	}
	a.Gate = gate

	return a, nil
}

// provideDBPool runs migrations and creates a PostgreSQL connection pool.
// Every connection registers pgvector types so embedding columns scan
// natively.
func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		if err := pgxvector.RegisterTypes(ctx, conn); err != nil {
			return fmt.Errorf("registering pgvector types: %w", err)
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}

// provideGenkit initializes Genkit with the configured AI provider plugin.
// Supports openai (default) and googleai providers.
func provideGenkit(ctx context.Context, cfg *config.Config) (*genkit.Genkit, error) {
	var g *genkit.Genkit

	switch cfg.Provider {
	case config.ProviderGoogleAI:
		g = genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with googleai provider")
		}
		slog.Info("initialized Genkit with googleai provider", "model", cfg.ModelName)

	default: // openai
		g = genkit.Init(ctx, genkit.WithPlugins(&openai.OpenAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with openai provider")
		}
		slog.Info("initialized Genkit with openai provider", "model", cfg.ModelName)
	}

	return g, nil
}

// provideAIEmbedder looks up the embedder registered by the provider plugin.
// OpenAI auto-registers embedders in Init(), keyed by model name; googleai
// exposes a lookup helper.
func provideAIEmbedder(g *genkit.Genkit, cfg *config.Config) ai.Embedder {
	switch cfg.Provider {
	case config.ProviderGoogleAI:
		return googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	default: // openai
		return genkit.LookupEmbedder(g, api.NewName("openai", cfg.EmbedderModel))
	}
}
