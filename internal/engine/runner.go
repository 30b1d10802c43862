package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/TFMV/reconcile/metrics"
	"github.com/TFMV/reconcile/pkg/core"
	"github.com/TFMV/reconcile/report"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrNoTables is reported when no table survives configuration loading.
	ErrNoTables = errors.New("no tables to compare")

	// ErrNoSources is reported when no source pair survives configuration loading.
	ErrNoSources = errors.New("no data sources to compare")
)

// Plan is the work of one run.
type Plan struct {
	Tables []core.Table
	Pairs  []core.SourcePair

	// ConfigErrors are reported in the error report but do not stop the run.
	ConfigErrors []error
}

// Runner reconciles every table of a plan across every source pair.
type Runner struct {
	reconciler *Reconciler
	sink       core.ReportSink
	workers    int
	logger     *zap.Logger

	// Now supplies the report date. Defaults to time.Now.
	Now func() time.Time

	// OnTableDone, when set, is called once per finished table pair. Calls
	// are serialized.
	OnTableDone func(TableResult)

	mu sync.Mutex
}

// NewRunner creates a Runner that runs at most workers table pairs at once.
func NewRunner(reconciler *Reconciler, sink core.ReportSink, workers int, logger *zap.Logger) *Runner {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		reconciler: reconciler,
		sink:       sink,
		workers:    workers,
		logger:     logger,
		Now:        time.Now,
	}
}

// Run executes the plan and writes one report per source pair with findings.
// The returned error is non-nil only when a report could not be written or
// the context was cancelled.
func (r *Runner) Run(ctx context.Context, plan Plan) (metrics.RunSummary, error) {
	start := r.Now()
	summary := metrics.RunSummary{RunID: uuid.NewString(), StartTime: start}
	header := report.Header{Date: start, RunID: summary.RunID}
	logger := r.logger.With(zap.String("run_id", summary.RunID))

	var topLevel []string
	for _, err := range plan.ConfigErrors {
		topLevel = append(topLevel, err.Error())
	}
	if len(plan.Tables) == 0 {
		topLevel = append(topLevel, ErrNoTables.Error())
	}
	if len(plan.Pairs) == 0 {
		topLevel = append(topLevel, ErrNoSources.Error())
	}
	summary.Errors = topLevel

	var writeErrs []error
	if len(topLevel) > 0 {
		name := report.ErrorName(start)
		if err := r.sink.Write(ctx, name, report.RenderErrors(header, topLevel)); err != nil {
			writeErrs = append(writeErrs, err)
		} else {
			summary.Reports = append(summary.Reports, name)
		}
	}

	if len(plan.Tables) == 0 || len(plan.Pairs) == 0 {
		logger.Warn("nothing to compare", zap.Strings("errors", topLevel))
		return r.finish(summary, writeErrs)
	}

	results := make([][]TableResult, len(plan.Pairs))
	for i := range results {
		results[i] = make([]TableResult, len(plan.Tables))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for p, pair := range plan.Pairs {
		for t, table := range plan.Tables {
			p, pair, t, table := p, pair, t, table
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				res := r.reconciler.CompareTable(gctx, pair, table)
				results[p][t] = res
				r.tableDone(res)
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return r.finish(summary, append(writeErrs, err))
	}

	for p, pair := range plan.Pairs {
		sections := make([]report.Section, 0, len(plan.Tables))
		for _, res := range results[p] {
			summary.Tables = append(summary.Tables, tableMetrics(res))
			sections = append(sections, report.Section{Table: res.Table, Entries: res.Entries})
		}

		h := header
		h.Pair = pair
		content := report.Render(h, sections)
		if content == "" {
			logger.Info("no findings", zap.String("pair", pair.String()))
			continue
		}
		name := report.Name(start, pair)
		if err := r.sink.Write(ctx, name, content); err != nil {
			logger.Error("failed to write report", zap.String("report", name), zap.Error(err))
			writeErrs = append(writeErrs, err)
			continue
		}
		summary.Reports = append(summary.Reports, name)
	}

	return r.finish(summary, writeErrs)
}

func (r *Runner) tableDone(res TableResult) {
	if r.OnTableDone == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.OnTableDone(res)
}

func (r *Runner) finish(summary metrics.RunSummary, errs []error) (metrics.RunSummary, error) {
	summary.EndTime = r.Now()
	summary.Duration = summary.EndTime.Sub(summary.StartTime)
	return summary, errors.Join(errs...)
}

func tableMetrics(res TableResult) metrics.TableMetrics {
	tm := metrics.TableMetrics{
		Pair:          res.Pair.String(),
		Table:         res.Table.String(),
		Outcome:       metrics.Compared,
		OnlyInA:       res.OnlyInA,
		OnlyInB:       res.OnlyInB,
		DifferingRows: res.DifferingRows,
		Differences:   res.Differences,
		Warnings:      len(res.Warnings),
		Errors:        len(res.Errors),
		Duration:      res.Duration,
	}
	for _, s := range res.Path {
		tm.States = append(tm.States, s.String())
	}
	for _, err := range res.FetchErrors {
		tm.FetchErrors = append(tm.FetchErrors, err.Error())
	}
	switch {
	case len(res.FetchErrors) == 2:
		tm.Outcome = metrics.Unreadable
	case res.Failed():
		tm.Outcome = metrics.NotCompared
	}
	return tm
}
