package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/TFMV/reconcile/config"
	"github.com/TFMV/reconcile/internal/adapters"
	"github.com/TFMV/reconcile/internal/engine"
	"github.com/TFMV/reconcile/logger"
	"github.com/TFMV/reconcile/metrics"
	"github.com/TFMV/reconcile/pkg/core"
	"github.com/TFMV/reconcile/pkg/readers"
	"github.com/TFMV/reconcile/report"
	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// RunOptions represents the options for the run command.
type RunOptions struct {
	Workers     int
	SummaryPath string
	Quiet       bool
}

func newRunCommand(root *rootOptions) *cobra.Command {
	options := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Compare every configured table across every source pair",
		Long: `The run command reads the table list, the source pairs and the ignore list
from the input directory, compares each table for each pair, and writes one
report per pair that has findings. Configuration problems are written to the
<date>_Error report.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := *root.cfg
			if options.Workers > 0 {
				cfg.Workers = options.Workers
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sig)
			go func() {
				select {
				case <-sig:
					fmt.Fprintln(cmd.ErrOrStderr(), "\nCancelling run...")
					cancel()
				case <-ctx.Done():
				}
			}()

			return runReconcile(ctx, &cfg, options, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().IntVarP(&options.Workers, "workers", "w", 0, "Number of table pairs compared at once (overrides workers)")
	cmd.Flags().StringVar(&options.SummaryPath, "summary", "", "Where to write the JSON run summary (default: <output.dir>/summary.json for the file sink)")
	cmd.Flags().BoolVarP(&options.Quiet, "quiet", "q", false, "Disable the progress spinner")

	return cmd
}

func runReconcile(ctx context.Context, cfg *config.Config, options *RunOptions, out, errOut io.Writer) error {
	log := logger.GetLogger()

	in := config.LoadInputs(cfg.Input)
	for _, err := range in.Errors {
		log.Warn("configuration error", zap.Error(err))
	}

	provider, closeProvider, err := newProvider(cfg.Source, log)
	if err != nil {
		return err
	}
	defer closeProvider()

	sink, err := newSink(cfg.Output)
	if err != nil {
		return err
	}

	runner := engine.NewRunner(engine.NewReconciler(provider, in.Ignore, log), sink, cfg.Workers, log)

	total := len(in.Tables) * len(in.Pairs)
	if !options.Quiet && total > 0 {
		s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(errOut))
		s.Suffix = fmt.Sprintf(" Reconciling 0/%d table pairs", total)
		done := 0
		runner.OnTableDone = func(res engine.TableResult) {
			done++
			s.Lock()
			s.Suffix = fmt.Sprintf(" Reconciling %d/%d table pairs (%s %s)", done, total, res.Pair, res.Table)
			s.Unlock()
		}
		s.Start()
		defer s.Stop()
	}

	summary, runErr := runner.Run(ctx, engine.Plan{
		Tables:       in.Tables,
		Pairs:        in.Pairs,
		ConfigErrors: in.Errors,
	})

	summaryPath := options.SummaryPath
	if summaryPath == "" && cfg.Output.Sink == "file" {
		summaryPath = filepath.Join(cfg.Output.Dir, "summary.json")
	}
	if summaryPath != "" {
		store := &metrics.JSONMetricsStore{FilePath: summaryPath}
		if err := store.SaveWithContext(ctx, summary); err != nil {
			log.Warn("failed to save run summary", zap.String("path", summaryPath), zap.Error(err))
		}
	}

	printSummary(out, summary)
	return runErr
}

// newProvider builds the configured snapshot provider and its cleanup.
func newProvider(cfg config.SourceConfig, log *zap.Logger) (core.SnapshotProvider, func(), error) {
	switch cfg.Provider {
	case "adbc":
		return readers.NewADBCProvider(adapters.ADBCDialer(cfg.ADBCDriver, cfg.DSN), log), func() {}, nil
	case "sql":
		pool, err := adapters.NewSQLPool(cfg.Driver, cfg.DSN, log)
		if err != nil {
			return nil, nil, err
		}
		return readers.NewSQLProvider(pool, log), func() { _ = pool.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown provider %q", cfg.Provider)
}

// newSink builds the configured report sink.
func newSink(cfg config.OutputConfig) (core.ReportSink, error) {
	switch cfg.Sink {
	case "minio":
		return report.NewMinioSink(cfg.Minio)
	case "file":
		return report.NewFileSink(cfg.Dir), nil
	}
	return nil, fmt.Errorf("unknown sink %q", cfg.Sink)
}

func printSummary(w io.Writer, summary metrics.RunSummary) {
	totals := summary.Totals()
	fmt.Fprintf(w, "Run %s finished in %s\n", summary.RunID, summary.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "  Table pairs:   %d (%d clean, %d not compared, %d unreadable)\n",
		totals.Tables, totals.Clean, totals.NotCompared, totals.Unreadable)
	fmt.Fprintf(w, "  Missing rows:  %d only in A, %d only in B\n", totals.OnlyInA, totals.OnlyInB)
	fmt.Fprintf(w, "  Differences:   %d\n", totals.Differences)
	for _, e := range summary.Errors {
		fmt.Fprintf(w, "  Error: %s\n", e)
	}
	for _, r := range summary.Reports {
		fmt.Fprintf(w, "  Report: %s\n", r)
	}
}
