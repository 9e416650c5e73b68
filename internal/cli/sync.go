package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/b2bportal/backend/internal/application/reconciliation"
	"github.com/b2bportal/backend/internal/domain/integration"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type syncOptions struct {
	jsonOutput bool
	quiet      bool
}

func newSyncCommand(g *globalOptions) *cobra.Command {
	opts := &syncOptions{}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run a reconciliation against the ERP",
	}
	cmd.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "print the run report as JSON")
	cmd.PersistentFlags().BoolVarP(&opts.quiet, "quiet", "q", false, "do not print progress lines")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "scoped",
			Short: "Synchronize products, then prices",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runSync(cmd, g, opts, integration.SyncKindScoped)
			},
		},
		&cobra.Command{
			Use:   "full",
			Short: "Synchronize products, prices, clients and sellers",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runSync(cmd, g, opts, integration.SyncKindFull)
			},
		},
	)
	return cmd
}

func runSync(cmd *cobra.Command, g *globalOptions, opts *syncOptions, kind integration.SyncKind) error {
	ctx := cmd.Context()

	a, err := newApp(g)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	if err := a.startTelemetry(ctx); err != nil {
		return err
	}
	db, err := a.openDatabase()
	if err != nil {
		return err
	}
	rdb, err := a.openRedis(ctx)
	if err != nil {
		return err
	}

	var display reconciliation.ProgressObserver = reconciliation.NopObserver{}
	if !opts.quiet && !opts.jsonOutput {
		display = progressPrinter(cmd.OutOrStdout())
	}
	engine, observer, err := a.buildEngine(db, rdb, display)
	if err != nil {
		return err
	}

	var report *reconciliation.RunReport
	if kind == integration.SyncKindFull {
		report, err = engine.RunFull(ctx)
	} else {
		report, err = engine.RunScoped(ctx)
	}
	observer.Close()

	if dropped := observer.Dropped(); dropped > 0 {
		a.logger.Debug("Progress events dropped", zap.Int64("count", dropped))
	}
	if report != nil {
		if printErr := printReport(cmd.OutOrStdout(), report, opts.jsonOutput); printErr != nil {
			a.logger.Warn("Failed to print run report", zap.Error(printErr))
		}
	}
	return err
}

// progressPrinter renders progress events as single lines
func progressPrinter(w io.Writer) reconciliation.ProgressObserver {
	return reconciliation.ProgressObserverFunc(func(_ context.Context, p reconciliation.Progress) {
		_, _ = fmt.Fprintln(w, formatProgress(p))
	})
}

func formatProgress(p reconciliation.Progress) string {
	percent := "    "
	if p.Percent != nil {
		percent = fmt.Sprintf("%3d%%", *p.Percent)
	}
	if p.Stage == "" {
		return fmt.Sprintf("[%s] %s", percent, p.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", percent, p.Stage, p.Message)
}

func printReport(w io.Writer, r *reconciliation.RunReport, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}

	if _, err := fmt.Fprintf(w, "Run %s (%s) %s in %s\n", r.RunID, r.Kind, r.Status, r.Elapsed().Round(time.Millisecond)); err != nil {
		return err
	}
	if r.FailedAt != "" {
		fmt.Fprintf(w, "  failed at: %s\n", r.FailedAt)
	}
	if s := r.Products; s != nil {
		fmt.Fprintf(w, "  products  fetched=%d skipped=%d upserted=%d deleted=%d chunks=%d\n",
			s.Fetched, s.Skipped, s.Upserted, s.Deleted, s.Chunks)
	}
	if s := r.Prices; s != nil {
		fmt.Fprintf(w, "  prices    fetched=%d skipped=%d unknown=%d updated=%d unchanged=%d snapshots=+%d/~%d\n",
			s.Fetched, s.Skipped, s.UnknownProducts, s.Updated, s.Unchanged, s.SnapshotsCreated, s.SnapshotsChanged)
	}
	if s := r.Clients; s != nil {
		fmt.Fprintf(w, "  clients   fetched=%d protected=%d created=%d updated=%d deleted=%d inherited_rules=%d\n",
			s.Fetched, s.Protected, s.Created, s.Updated, s.Deleted, s.RulesInherited)
	}
	if s := r.Sellers; s != nil {
		fmt.Fprintf(w, "  sellers   fetched=%d created=%d updated=%d deleted=%d\n",
			s.Fetched, s.Created, s.Updated, s.Deleted)
	}
	return nil
}
