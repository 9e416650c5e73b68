package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/b2bportal/backend/internal/application/reconciliation"
	"github.com/b2bportal/backend/internal/domain/integration"
	"github.com/b2bportal/backend/internal/infrastructure/cache"
	"github.com/b2bportal/backend/internal/infrastructure/persistence"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type statusOptions struct {
	limit  int
	follow bool
}

func newStatusCommand(g *globalOptions) *cobra.Command {
	opts := &statusOptions{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show recent sync runs and the latest progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, g, opts)
		},
	}
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 10, "number of runs to list")
	cmd.Flags().BoolVarP(&opts.follow, "follow", "f", false, "stream live progress until the current run finishes (requires Redis)")
	return cmd
}

func runStatus(cmd *cobra.Command, g *globalOptions, opts *statusOptions) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	a, err := newApp(g)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	db, err := a.openDatabase()
	if err != nil {
		return err
	}
	rdb, err := a.openRedis(ctx)
	if err != nil {
		return err
	}

	var publisher *cache.RedisProgressPublisher
	if rdb != nil {
		publisher = cache.NewRedisProgressPublisher(rdb, a.cfg.Redis, a.logger)
		last, err := publisher.LastProgress(ctx)
		switch {
		case err != nil:
			a.logger.Warn("Failed to read last progress", zap.Error(err))
		case last != nil:
			fmt.Fprintf(out, "Last progress at %s\n  %s\n\n", last.At.Format(time.RFC3339), formatProgress(*last))
		}
	}

	runs, err := persistence.NewGormSyncRunRepository(db.DB).FindRecent(ctx, opts.limit)
	if err != nil {
		return err
	}
	if err := printRuns(out, runs); err != nil {
		return err
	}

	if !opts.follow {
		return nil
	}
	if publisher == nil {
		return errors.New("--follow requires redis.enabled")
	}
	return followProgress(ctx, out, publisher)
}

// followProgress prints events until a terminal one arrives or ctx is cancelled
func followProgress(ctx context.Context, out io.Writer, publisher *cache.RedisProgressPublisher) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	errDone := errors.New("run finished")
	err := publisher.Subscribe(ctx, func(p reconciliation.Progress) {
		fmt.Fprintln(out, formatProgress(p))
		if p.Status != reconciliation.ProgressProcessing {
			cancel(errDone)
		}
	})
	if errors.Is(context.Cause(ctx), errDone) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func printRuns(w io.Writer, runs []integration.SyncRun) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No sync runs recorded")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tKIND\tSTATUS\tSTARTED\tDURATION\tERROR")
	for _, r := range runs {
		duration := "-"
		if r.FinishedAt != nil {
			duration = r.Duration().Round(time.Millisecond).String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Kind, r.Status, r.StartedAt.Local().Format(time.DateTime), duration, r.ErrorMessage)
	}
	return tw.Flush()
}
