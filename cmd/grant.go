package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fanlore/fanlore/internal/access"
	"github.com/fanlore/fanlore/internal/app"
	"github.com/fanlore/fanlore/internal/config"
	"github.com/fanlore/fanlore/internal/log"
)

var (
	grantStatus  string
	grantExpires string
)

var grantCmd = &cobra.Command{
	Use:   "grant <fan-id> <creator-id>",
	Short: "Grant or update a fan's subscription to a creator",
	Long: `Upserts the fan's access record for a creator. Without --expires the
subscription never expires. Pass a non-active --status to revoke access,
for example after a refund.`,
	Args: cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		return runGrant(args[0], args[1])
	},
}

func init() {
	grantCmd.Flags().StringVar(&grantStatus, "status", access.StatusActive, "subscription status")
	grantCmd.Flags().StringVar(&grantExpires, "expires", "", "expiry in RFC 3339, empty means never")
	rootCmd.AddCommand(grantCmd)
}

// grantSubscription translates command arguments into the access record to
// upsert. An empty expires means the subscription never lapses.
func grantSubscription(fanID, creatorID, status, expires string) (access.Subscription, error) {
	sub := access.Subscription{FanID: fanID, CreatorID: creatorID, Status: status}
	if expires != "" {
		at, err := time.Parse(time.RFC3339, expires)
		if err != nil {
			return access.Subscription{}, fmt.Errorf("parsing --expires: %w", err)
		}
		sub.ExpiresAt = &at
	}
	return sub, nil
}

func runGrant(fanID, creatorID string) error {
	sub, err := grantSubscription(fanID, creatorID, grantStatus, grantExpires)
	if err != nil {
		return err
	}

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

	if err := access.NewPostgresStore(a.Pool).Grant(ctx, sub); err != nil {
		return fmt.Errorf("granting access for fan %s: %w", fanID, err)
	}

	if sub.ExpiresAt != nil {
		fmt.Printf("Fan %s -> creator %s: status=%s expires=%s\n",
			fanID, creatorID, sub.Status, sub.ExpiresAt.Format(time.RFC3339))
		return nil
	}
	fmt.Printf("Fan %s -> creator %s: status=%s expires=never\n", fanID, creatorID, sub.Status)
	return nil
}
