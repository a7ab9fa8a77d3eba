package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fanlore/fanlore/internal/app"
	"github.com/fanlore/fanlore/internal/config"
	"github.com/fanlore/fanlore/internal/log"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <content-id>",
	Short: "Re-run ingestion for a stored piece of content",
	Long: `Re-runs the chunk-embed-write pipeline for content that already exists
in the database. Previously indexed chunks for the content are replaced,
so this is the recovery path for failed or partial ingestions.`,
	Args: cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return runIngest(args[0])
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(contentID string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := log.New(log.Config{})

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	sc, err := a.Contents.GetContent(ctx, contentID)
	if err != nil {
		return fmt.Errorf("loading content: %w", err)
	}

	result, err := a.Orchestrator.Ingest(ctx, sc)
	if err != nil {
		return fmt.Errorf("ingesting content %s: %w", contentID, err)
	}

	if result.Skipped {
		fmt.Printf("Content %s skipped: %s\n", contentID, result.SkipReason)
		return nil
	}
	fmt.Printf("Content %s: state=%s chunks=%d written=%d failed=%d replaced=%d\n",
		contentID, result.State, result.Chunks, result.Written, result.Failed, result.Replaced)
	return nil
}
