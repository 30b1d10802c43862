// Package diff provides identity validation, row matching and field-level
// comparison of two table snapshots.
package diff

import (
	"sort"

	"github.com/TFMV/reconcile/pkg/core"
	"go.uber.org/zap"
)

// index maps a parsed identity to its row.
type index map[int64]core.Row

// buildIndex indexes rows by identity. Rows whose identity does not parse are
// skipped; callers validate identities before matching.
func buildIndex(rows []core.Row) index {
	idx := make(index, len(rows))
	for _, row := range rows {
		if id, ok := ParseIdentity(row.Identity()); ok {
			idx[id] = row
		}
	}
	return idx
}

// Match partitions the rows of A and B by identity value. OnlyInA and OnlyInB
// are sorted by identity; CommonIDs is ascending.
func Match(a, b []core.Row) core.MatchResult {
	idxA := buildIndex(a)
	idxB := buildIndex(b)

	var result core.MatchResult
	for id, row := range idxA {
		if _, ok := idxB[id]; ok {
			result.CommonIDs = append(result.CommonIDs, id)
		} else {
			result.OnlyInA = append(result.OnlyInA, row)
		}
	}
	for id, row := range idxB {
		if _, ok := idxA[id]; !ok {
			result.OnlyInB = append(result.OnlyInB, row)
		}
	}

	sort.Slice(result.CommonIDs, func(i, j int) bool { return result.CommonIDs[i] < result.CommonIDs[j] })
	sortByIdentity(result.OnlyInA)
	sortByIdentity(result.OnlyInB)
	return result
}

func sortByIdentity(rows []core.Row) {
	sort.Slice(rows, func(i, j int) bool {
		a, _ := ParseIdentity(rows[i].Identity())
		b, _ := ParseIdentity(rows[j].Identity())
		return a < b
	})
}

// CompareRows returns one FieldDifference per column whose values differ under
// core.Equal. Columns missing from either row are skipped.
func CompareRows(id int64, a, b core.Row, columns []core.Column) []core.FieldDifference {
	var diffs []core.FieldDifference
	for _, col := range columns {
		va, okA := a.Get(col.Name)
		vb, okB := b.Get(col.Name)
		if !okA || !okB {
			continue
		}
		if !core.Equal(va, vb) {
			diffs = append(diffs, core.FieldDifference{
				Identity: id,
				Column:   col,
				ValueA:   va,
				ValueB:   vb,
			})
		}
	}
	return diffs
}

// Result is the outcome of comparing two identity-valid snapshots.
type Result struct {
	Match       core.MatchResult
	Differences []core.FieldDifference
}

// RowDiffer compares the rows of two snapshots of the same table.
type RowDiffer struct {
	logger *zap.Logger
}

// NewRowDiffer creates a new RowDiffer.
func NewRowDiffer(logger *zap.Logger) *RowDiffer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RowDiffer{logger: logger}
}

// Diff matches rows by identity and compares every matched pair over the
// given columns. The identity column itself is never reported as differing.
func (d *RowDiffer) Diff(a, b *core.Snapshot, columns []core.Column) Result {
	rowsA, rowsB := a.Rows(), b.Rows()
	match := Match(rowsA, rowsB)

	idxA := buildIndex(rowsA)
	idxB := buildIndex(rowsB)

	compare := columns
	if id, ok := a.IdentityColumn(); ok {
		compare = make([]core.Column, 0, len(columns))
		for _, c := range columns {
			if c.Name != id.Name {
				compare = append(compare, c)
			}
		}
	}

	var diffs []core.FieldDifference
	for _, id := range match.CommonIDs {
		diffs = append(diffs, CompareRows(id, idxA[id], idxB[id], compare)...)
	}

	d.logger.Debug("rows compared",
		zap.Int("only_in_a", len(match.OnlyInA)),
		zap.Int("only_in_b", len(match.OnlyInB)),
		zap.Int("common", len(match.CommonIDs)),
		zap.Int("differences", len(diffs)))

	return Result{Match: match, Differences: diffs}
}
