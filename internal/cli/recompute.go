package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/Ramsey-B/fern/config"
	"github.com/Ramsey-B/fern/pkg/matching"
	"github.com/spf13/cobra"
)

var recomputeCmd = &cobra.Command{
	Use:   "recompute-histories",
	Short: "Recompute the candidate history of every record",
	Long: `Recompute the candidate history of every record, including soft-deleted
ones, in RECOMPUTE_BATCH_SIZE pages. With Redis enabled only one run may be
active at a time across instances.`,
	RunE: func(cmd *cobra.Command, _ []string) (err error) {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logger, flush, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer flush()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg, logger, appOptions{
			migrate: cfg.DatabaseMigrateOnStartup,
			redis:   true,
			kafka:   true,
		})
		if err != nil {
			return err
		}
		defer func() {
			err = errors.Join(err, a.close(context.Background()))
		}()

		result, err := a.matcher.RecomputeAll(ctx)
		if errors.Is(err, matching.ErrRecomputeInProgress) {
			return fmt.Errorf("another instance is recomputing histories: %w", err)
		}
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "recomputed %d of %d candidate histories in %s\n",
			result.Updated, result.Processed, result.Duration.Round(time.Millisecond))
		return nil
	},
}
