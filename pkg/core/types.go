// Package core provides the core types and interfaces for the reconcile table comparison tool.
package core

import (
	"context"
	"fmt"
	"strings"
)

// Column describes one column of a snapshot.
type Column struct {
	// Name is compared case-sensitively across snapshots.
	Name string

	// Ordinal is the zero-based position of the column in its snapshot.
	Ordinal int

	// DataType is the provider-reported type tag (e.g. "int", "nvarchar").
	DataType string
}

// Row is an ordered sequence of values, one per column of its owning snapshot.
type Row struct {
	Values []Value
	index  map[string]int
}

// Get returns the value stored under the named column and whether the column exists.
func (r Row) Get(name string) (Value, bool) {
	i, ok := r.index[name]
	if !ok || i >= len(r.Values) {
		return Null(), false
	}
	return r.Values[i], true
}

// Identity returns the raw value of the identity column (ordinal 0).
func (r Row) Identity() Value {
	if len(r.Values) == 0 {
		return Null()
	}
	return r.Values[0]
}

// Snapshot is the materialized content of one table from one data source.
// It is immutable after construction.
type Snapshot struct {
	columns []Column
	rows    []Row
	index   map[string]int
}

// NewSnapshot builds a snapshot from column definitions and raw row values.
// Ordinals are reassigned from column position. Rows must have exactly one
// value per column.
func NewSnapshot(columns []Column, rows [][]Value) (*Snapshot, error) {
	cols := make([]Column, len(columns))
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, dup := index[c.Name]; dup {
			return nil, fmt.Errorf("duplicate column name %q", c.Name)
		}
		c.Ordinal = i
		cols[i] = c
		index[c.Name] = i
	}

	s := &Snapshot{columns: cols, index: index, rows: make([]Row, 0, len(rows))}
	for n, values := range rows {
		if len(values) != len(cols) {
			return nil, fmt.Errorf("row %d has %d values, expected %d", n, len(values), len(cols))
		}
		v := make([]Value, len(values))
		copy(v, values)
		s.rows = append(s.rows, Row{Values: v, index: index})
	}
	return s, nil
}

// EmptySnapshot returns a snapshot with the given columns and no rows.
func EmptySnapshot(columns []Column) *Snapshot {
	s, _ := NewSnapshot(columns, nil)
	return s
}

// Columns returns a copy of the snapshot's columns in ordinal order.
func (s *Snapshot) Columns() []Column {
	out := make([]Column, len(s.columns))
	copy(out, s.columns)
	return out
}

// Rows returns the snapshot's rows in source order.
func (s *Snapshot) Rows() []Row {
	out := make([]Row, len(s.rows))
	copy(out, s.rows)
	return out
}

// Column looks up a column by name.
func (s *Snapshot) Column(name string) (Column, bool) {
	i, ok := s.index[name]
	if !ok {
		return Column{}, false
	}
	return s.columns[i], true
}

// IdentityColumn returns the column at ordinal 0.
func (s *Snapshot) IdentityColumn() (Column, bool) {
	if len(s.columns) == 0 {
		return Column{}, false
	}
	return s.columns[0], true
}

// Project returns a new snapshot restricted to the named columns, kept in
// this snapshot's ordinal order. Unknown names are ignored.
func (s *Snapshot) Project(keep []string) *Snapshot {
	wanted := make(map[string]bool, len(keep))
	for _, name := range keep {
		wanted[name] = true
	}

	var cols []Column
	var positions []int
	for i, c := range s.columns {
		if wanted[c.Name] {
			cols = append(cols, c)
			positions = append(positions, i)
		}
	}

	rows := make([][]Value, len(s.rows))
	for r, row := range s.rows {
		values := make([]Value, len(positions))
		for j, p := range positions {
			values[j] = row.Values[p]
		}
		rows[r] = values
	}

	out, _ := NewSnapshot(cols, rows)
	return out
}

// Select returns a new snapshot restricted to the named columns, in the
// order given. Unknown names are ignored.
func (s *Snapshot) Select(names []string) *Snapshot {
	var cols []Column
	var positions []int
	for _, name := range names {
		if i, ok := s.index[name]; ok {
			cols = append(cols, s.columns[i])
			positions = append(positions, i)
		}
	}

	rows := make([][]Value, len(s.rows))
	for r, row := range s.rows {
		values := make([]Value, len(positions))
		for j, p := range positions {
			values[j] = row.Values[p]
		}
		rows[r] = values
	}

	out, _ := NewSnapshot(cols, rows)
	return out
}

// IgnoreSet is the set of column names excluded from value comparison.
// It is built once per run and never mutated afterwards.
type IgnoreSet struct {
	names map[string]struct{}
}

// NewIgnoreSet builds an IgnoreSet from column names.
func NewIgnoreSet(names ...string) IgnoreSet {
	m := make(map[string]struct{}, len(names))
	for _, n := range names {
		m[n] = struct{}{}
	}
	return IgnoreSet{names: m}
}

// Contains reports whether the column name is ignored.
func (s IgnoreSet) Contains(name string) bool {
	_, ok := s.names[name]
	return ok
}

// Len returns the number of ignored column names.
func (s IgnoreSet) Len() int {
	return len(s.names)
}

// Severity classifies a validation finding.
type Severity int

const (
	// SeverityWarning is reported but comparison proceeds.
	SeverityWarning Severity = iota

	// SeverityError blocks further comparison of the table.
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// Finding is a validation result with a human-readable message.
// Identity-level findings also carry pre-rendered SQL text.
type Finding struct {
	Severity Severity
	Message  string
	Text     string
}

// MatchResult partitions two row sets by identity.
type MatchResult struct {
	OnlyInA   []Row
	OnlyInB   []Row
	CommonIDs []int64
}

// FieldDifference records one differing column for a matched identity.
type FieldDifference struct {
	Identity int64
	Column   Column
	ValueA   Value
	ValueB   Value
}

// RemediationEntry is the atomic output unit of a report.
// Entries without an identity (Keyed == false) sort ahead of keyed ones.
type RemediationEntry struct {
	Identity int64
	Keyed    bool
	Text     string
}

// Table identifies a schema-qualified table.
type Table struct {
	Schema string
	Name   string
}

// String returns schema.name without quoting.
func (t Table) String() string {
	return t.Schema + "." + t.Name
}

// DataSource is one side of a comparison.
type DataSource struct {
	Label    string
	Server   string
	Database string
}

// SourcePair is the pair of data sources a run reconciles.
type SourcePair struct {
	A DataSource
	B DataSource
}

// String returns "A_B" using the friendly labels.
func (p SourcePair) String() string {
	return p.A.Label + "_" + p.B.Label
}

// FetchError is returned by a SnapshotProvider when a table cannot be materialized.
type FetchError struct {
	Source string
	Table  Table
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s - could not read from %s: %v", e.Table, e.Source, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// SnapshotProvider materializes a table from a data source.
type SnapshotProvider interface {
	// Fetch returns the snapshot or a *FetchError.
	Fetch(ctx context.Context, source DataSource, table Table) (*Snapshot, error)
}

// ReportSink persists a rendered report under a destination name.
type ReportSink interface {
	Write(ctx context.Context, name string, report string) error
}

// JoinNames joins column names with ", ".
func JoinNames(cols []Column) string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return strings.Join(names, ", ")
}
