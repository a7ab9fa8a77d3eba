// Package app provides application initialization and dependency wiring.
//
// App is the container that owns every long-lived component: the database
// pool, the Genkit instance, the ingestion orchestrator, and the answer
// pipeline. Call Setup to build one and Close to release it.
package app

import (
	"log/slog"

	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fanlore/fanlore/internal/access"
	"github.com/fanlore/fanlore/internal/config"
	"github.com/fanlore/fanlore/internal/content"
	"github.com/fanlore/fanlore/internal/embed"
	"github.com/fanlore/fanlore/internal/ingest"
	"github.com/fanlore/fanlore/internal/rag"
	"github.com/fanlore/fanlore/internal/vectorstore"
)

// App is the core application container.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	Genkit   *genkit.Genkit
	Embedder *embed.GenkitEmbedder
	Pool     *pgxpool.Pool

	Contents     *content.Store
	Vectors      *vectorstore.Store
	Orchestrator *ingest.Orchestrator
	Retriever    *rag.Retriever
	Answerer     *rag.Answerer
	Gate         *access.Gate
}

// Close gracefully shuts down all resources.
func (a *App) Close() error {
	a.logger().Info("shutting down application")

	if a.Pool != nil {
		a.Pool.Close()
		a.logger().Info("database pool closed")
	}
	return nil
}

func (a *App) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.Default()
}
