// Package schema provides column-set reduction and structural validation of table snapshots.
package schema

import (
	"github.com/TFMV/reconcile/pkg/core"
)

// ValidationResult represents the result of comparing two column sets.
type ValidationResult struct {
	// Warnings contains the non-blocking findings in report order.
	Warnings []core.Finding

	// MissingInB lists columns present in A but not in B.
	MissingInB []string

	// MissingInA lists columns present in B but not in A.
	MissingInA []string

	// TypeMismatches lists shared columns whose declared data types differ.
	TypeMismatches []string
}

// Clean reports whether the two column sets matched with no findings.
func (r ValidationResult) Clean() bool {
	return len(r.Warnings) == 0
}

// ReduceColumns returns the snapshot's columns in ordinal order. When
// excludeIgnored is set, columns named in the ignore set are dropped.
func ReduceColumns(s *core.Snapshot, ignore core.IgnoreSet, excludeIgnored bool) []core.Column {
	cols := s.Columns()
	if !excludeIgnored || ignore.Len() == 0 {
		return cols
	}

	out := cols[:0]
	for _, c := range cols {
		if !ignore.Contains(c.Name) {
			out = append(out, c)
		}
	}
	return out
}

// CommonColumns returns the names present in both column sets, in a's order.
func CommonColumns(a, b []core.Column) []string {
	inB := make(map[string]struct{}, len(b))
	for _, c := range b {
		inB[c.Name] = struct{}{}
	}

	var out []string
	for _, c := range a {
		if _, ok := inB[c.Name]; ok {
			out = append(out, c.Name)
		}
	}
	return out
}

// TrimToCommon removes the columns absent from the other snapshot from both
// snapshots. Both results carry the shared columns in a's order, so the
// first column of each is the same.
func TrimToCommon(a, b *core.Snapshot) (*core.Snapshot, *core.Snapshot) {
	common := CommonColumns(a.Columns(), b.Columns())
	return a.Select(common), b.Select(common)
}
