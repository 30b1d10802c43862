// Package engine sequences snapshot fetching, validation, comparison and
// rendering for table pairs.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/TFMV/reconcile/pkg/core"
	"github.com/TFMV/reconcile/pkg/diff"
	"github.com/TFMV/reconcile/pkg/remediation"
	"github.com/TFMV/reconcile/pkg/schema"
	"go.uber.org/zap"
)

// State is a step of the per-table state machine.
type State int

const (
	StateFetching State = iota
	StateValidating
	StateError
	StateComparing
	StateRendering
	StateDone
)

func (s State) String() string {
	switch s {
	case StateFetching:
		return "fetching"
	case StateValidating:
		return "validating"
	case StateError:
		return "error"
	case StateComparing:
		return "comparing"
	case StateRendering:
		return "rendering"
	case StateDone:
		return "done"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// TableResult is the outcome of reconciling one table across a source pair.
type TableResult struct {
	Table core.Table
	Pair  core.SourcePair

	// Path lists every state the table passed through, ending in StateDone.
	Path []State

	// Entries is the ordered report content for the table.
	Entries []core.RemediationEntry

	FetchErrors []error
	Errors      []core.Finding
	Warnings    []core.Finding

	OnlyInA       int
	OnlyInB       int
	DifferingRows int
	Differences   int
	Duration      time.Duration
}

// Failed reports whether the table stopped in the error state.
func (r TableResult) Failed() bool {
	for _, s := range r.Path {
		if s == StateError {
			return true
		}
	}
	return false
}

// Reconciler compares one table across two data sources.
type Reconciler struct {
	provider  core.SnapshotProvider
	ignore    core.IgnoreSet
	logger    *zap.Logger
	validator *schema.Validator
	differ    *diff.RowDiffer
}

// NewReconciler creates a Reconciler. The ignore set is shared read-only by
// every comparison made with this Reconciler.
func NewReconciler(provider core.SnapshotProvider, ignore core.IgnoreSet, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{
		provider:  provider,
		ignore:    ignore,
		logger:    logger,
		validator: schema.NewValidator(logger),
		differ:    diff.NewRowDiffer(logger),
	}
}

// tableRun carries the state of one table pair through the state machine.
type tableRun struct {
	result TableResult
	logger *zap.Logger
}

func (t *tableRun) enter(s State) {
	t.result.Path = append(t.result.Path, s)
	t.logger.Debug("state", zap.Stringer("state", s))
}

// CompareTable fetches the table from both sources and reconciles it.
func (r *Reconciler) CompareTable(ctx context.Context, pair core.SourcePair, table core.Table) TableResult {
	start := time.Now()
	run := &tableRun{
		result: TableResult{Table: table, Pair: pair},
		logger: r.logger.With(zap.String("table", table.String()), zap.String("pair", pair.String())),
	}
	run.enter(StateFetching)

	a, errA := r.provider.Fetch(ctx, pair.A, table)
	b, errB := r.provider.Fetch(ctx, pair.B, table)

	for _, err := range []error{errA, errB} {
		if err == nil {
			continue
		}
		run.logger.Warn("fetch failed", zap.Error(err))
		run.result.FetchErrors = append(run.result.FetchErrors, err)
		run.result.Entries = append(run.result.Entries, core.RemediationEntry{Text: "-- " + fetchMessage(err, table)})
	}

	switch {
	case errA != nil && errB != nil:
		run.enter(StateError)
		run.enter(StateDone)
		run.result.Duration = time.Since(start)
		return run.result
	case errA != nil:
		a = core.EmptySnapshot(b.Columns())
	case errB != nil:
		b = core.EmptySnapshot(a.Columns())
	}

	r.reconcile(run, a, b)
	run.result.Duration = time.Since(start)
	return run.result
}

// Compare reconciles two already-fetched snapshots of a table.
func (r *Reconciler) Compare(pair core.SourcePair, table core.Table, a, b *core.Snapshot) TableResult {
	start := time.Now()
	run := &tableRun{
		result: TableResult{Table: table, Pair: pair},
		logger: r.logger.With(zap.String("table", table.String()), zap.String("pair", pair.String())),
	}
	r.reconcile(run, a, b)
	run.result.Duration = time.Since(start)
	return run.result
}

func (r *Reconciler) reconcile(run *tableRun, a, b *core.Snapshot) {
	table, pair := run.result.Table, run.result.Pair
	run.enter(StateValidating)

	colsA := schema.ReduceColumns(a, r.ignore, true)
	colsB := schema.ReduceColumns(b, r.ignore, true)
	validation := r.validator.Validate(table, colsA, colsB, pair.A.Label, pair.B.Label)

	// Both sides are keyed on A's first column, wherever it sits in B.
	id, okA := a.IdentityColumn()
	_, okB := b.IdentityColumn()
	gen := remediation.NewGenerator(table,
		remediation.Side{Label: pair.A.Label, Columns: a.Columns(), IdentityColumn: id.Name},
		remediation.Side{Label: pair.B.Label, Columns: b.Columns(), IdentityColumn: id.Name},
	)

	var blocking []core.Finding
	switch {
	case !okA || !okB:
		blocking = append(blocking, core.Finding{
			Severity: core.SeverityError,
			Message:  fmt.Sprintf("%s - table has no columns (table not compared)", table),
		})
	default:
		if _, ok := b.Column(id.Name); !ok {
			blocking = append(blocking, missingIdentity(table, id.Name, pair.A.Label, pair.B.Label))
		}
	}

	trimmedA, trimmedB := schema.TrimToCommon(a, b)
	if len(blocking) == 0 {
		issues := diff.ValidateIdentities(trimmedA.Rows(), pair.A.Label)
		issues = append(issues, diff.ValidateIdentities(trimmedB.Rows(), pair.B.Label)...)
		blocking = gen.IdentityErrors(issues)
	}

	if len(blocking) > 0 {
		run.enter(StateError)
		run.logger.Info("table not compared", zap.Int("errors", len(blocking)))
		run.result.Errors = blocking
		run.result.Entries = append(run.result.Entries, remediation.FindingEntries(blocking)...)
		run.enter(StateDone)
		return
	}

	run.enter(StateComparing)
	common := make(map[string]bool)
	for _, name := range schema.CommonColumns(colsA, colsB) {
		common[name] = true
	}
	var compare []core.Column
	for _, c := range trimmedA.Columns() {
		if common[c.Name] {
			compare = append(compare, c)
		}
	}
	compared := r.differ.Diff(trimmedA, trimmedB, compare)

	run.enter(StateRendering)
	entries := gen.Generate(remediation.Input{
		Warnings:    validation.Warnings,
		OnlyInA:     compared.Match.OnlyInA,
		OnlyInB:     compared.Match.OnlyInB,
		Differences: compared.Differences,
	})
	run.result.Entries = append(run.result.Entries, entries...)

	differing := make(map[int64]struct{})
	for _, d := range compared.Differences {
		differing[d.Identity] = struct{}{}
	}
	run.result.Warnings = validation.Warnings
	run.result.OnlyInA = len(compared.Match.OnlyInA)
	run.result.OnlyInB = len(compared.Match.OnlyInB)
	run.result.Differences = len(compared.Differences)
	run.result.DifferingRows = len(differing)
	run.enter(StateDone)

	run.logger.Info("table compared",
		zap.Int("only_in_a", run.result.OnlyInA),
		zap.Int("only_in_b", run.result.OnlyInB),
		zap.Int("differing_rows", run.result.DifferingRows),
		zap.Int("warnings", len(run.result.Warnings)))
}

func missingIdentity(table core.Table, column, in, notIn string) core.Finding {
	return core.Finding{
		Severity: core.SeverityError,
		Message: fmt.Sprintf("%s - identity column %s in %s is not in %s (table not compared)",
			table, column, in, notIn),
	}
}

func fetchMessage(err error, table core.Table) string {
	msg := fmt.Sprintf("%s - %v", table, err)
	var fe *core.FetchError
	if errors.As(err, &fe) {
		msg = fe.Error()
	}
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(msg)
}
