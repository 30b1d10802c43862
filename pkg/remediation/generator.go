// Package remediation renders reconciliation findings into advisory SQL scripts.
//
// Nothing produced here is executed or validated. Identifiers are interpolated
// as plain text and every mutating statement is wrapped in a comment block so
// that a report has to be reviewed and edited before any part of it can run.
package remediation

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/TFMV/reconcile/pkg/core"
	"github.com/TFMV/reconcile/pkg/diff"
)

// Side describes one source of a table pair.
type Side struct {
	// Label is the friendly source name used in annotations.
	Label string

	// Columns is the full column list, before ignore-list reduction or trimming.
	Columns []core.Column

	// IdentityColumn is the name of the column at ordinal 0.
	IdentityColumn string
}

// Input holds the findings of one comparison.
type Input struct {
	Warnings    []core.Finding
	OnlyInA     []core.Row
	OnlyInB     []core.Row
	Differences []core.FieldDifference
}

// Generator renders findings for one table pair.
type Generator struct {
	table core.Table
	a, b  Side
}

// NewGenerator creates a generator for a table compared across sides a and b.
func NewGenerator(table core.Table, a, b Side) *Generator {
	return &Generator{table: table, a: a, b: b}
}

// Generate renders all findings. Warning entries come first, followed by the
// remaining entries ordered by identity.
func (g *Generator) Generate(in Input) []core.RemediationEntry {
	var entries []core.RemediationEntry

	for _, w := range in.Warnings {
		entries = append(entries, core.RemediationEntry{
			Text: fmt.Sprintf("SELECT * FROM %s -- %s", g.table, w.Message),
		})
	}

	for _, row := range in.OnlyInA {
		entries = append(entries, g.missingRow(row, g.a, g.b)...)
	}
	for _, row := range in.OnlyInB {
		entries = append(entries, g.missingRow(row, g.b, g.a)...)
	}
	for _, d := range in.Differences {
		entries = append(entries, g.fieldDifference(d)...)
	}

	return Order(entries)
}

// IdentityErrors renders blocking identity issues as error findings.
func (g *Generator) IdentityErrors(issues []diff.IdentityIssue) []core.Finding {
	findings := make([]core.Finding, 0, len(issues))
	for _, issue := range issues {
		idCol := g.a.IdentityColumn
		if issue.Source == g.b.Label {
			idCol = g.b.IdentityColumn
		}

		var f core.Finding
		f.Severity = core.SeverityError
		switch issue.Kind {
		case diff.IssueNotInt:
			f.Message = fmt.Sprintf("%s - ID is not an int in %s (table not compared)", g.table, issue.Source)
			f.Text = fmt.Sprintf("SELECT * FROM %s WHERE %s = %s -- %s",
				g.table, idCol, Literal(issue.Raw), f.Message)
		case diff.IssueDuplicate:
			f.Message = fmt.Sprintf("%s - Duplicate ID %d in %s, %d rows (table not compared)",
				g.table, issue.Identity, issue.Source, issue.Count)
			f.Text = fmt.Sprintf("SELECT * FROM %s WHERE %s = %d -- %s",
				g.table, idCol, issue.Identity, f.Message)
		}
		findings = append(findings, f)
	}
	return findings
}

// missingRow renders a row present in from but not in to: a locating SELECT,
// a commented INSERT into to, and a commented DELETE from from.
func (g *Generator) missingRow(row core.Row, from, to Side) []core.RemediationEntry {
	id, _ := diff.ParseIdentity(row.Identity())

	sel := fmt.Sprintf("SELECT * FROM %s WHERE %s = %d -- %s - ID %d is in %s but not in %s",
		g.table, from.IdentityColumn, id, g.table, id, from.Label, to.Label)

	names := make([]string, len(to.Columns))
	values := make([]string, len(to.Columns))
	for i, col := range to.Columns {
		names[i] = col.Name
		v, _ := row.Get(col.Name)
		values[i] = Literal(v)
	}

	var ins strings.Builder
	fmt.Fprintf(&ins, "/* Insert into %s:\n", to.Label)
	fmt.Fprintf(&ins, "SET IDENTITY_INSERT %s ON;\n", g.table)
	fmt.Fprintf(&ins, "INSERT INTO %s (%s) VALUES (%s);\n",
		g.table, strings.Join(names, ", "), guard(strings.Join(values, ", ")))
	fmt.Fprintf(&ins, "SET IDENTITY_INSERT %s OFF;\n", g.table)
	ins.WriteString("*/")

	del := fmt.Sprintf("/* Delete from %s:\nDELETE FROM %s WHERE %s = %d;\n*/",
		from.Label, g.table, from.IdentityColumn, id)

	return []core.RemediationEntry{
		{Identity: id, Keyed: true, Text: sel},
		{Identity: id, Keyed: true, Text: ins.String()},
		{Identity: id, Keyed: true, Text: del},
	}
}

// fieldDifference renders a locating SELECT for both sources, the difference
// itself, and one commented UPDATE per direction.
func (g *Generator) fieldDifference(d core.FieldDifference) []core.RemediationEntry {
	key := func(text string) core.RemediationEntry {
		return core.RemediationEntry{Identity: d.Identity, Keyed: true, Text: text}
	}

	var entries []core.RemediationEntry

	selA := fmt.Sprintf("SELECT * FROM %s WHERE %s = %d", g.table, g.a.IdentityColumn, d.Identity)
	selB := fmt.Sprintf("SELECT * FROM %s WHERE %s = %d", g.table, g.b.IdentityColumn, d.Identity)
	if selA == selB {
		entries = append(entries, key(fmt.Sprintf("%s -- %s, %s", selA, g.a.Label, g.b.Label)))
	} else {
		entries = append(entries,
			key(fmt.Sprintf("%s -- %s", selA, g.a.Label)),
			key(fmt.Sprintf("%s -- %s", selB, g.b.Label)))
	}

	entries = append(entries, key(fmt.Sprintf("-- %s - Column %s for ID %d is different: %s in %s vs %s in %s",
		g.table, d.Column.Name, d.Identity,
		oneLine(Literal(d.ValueA)), g.a.Label, oneLine(Literal(d.ValueB)), g.b.Label)))

	entries = append(entries,
		key(fmt.Sprintf("/* Update %s to match %s:\nUPDATE %s SET %s = %s WHERE %s = %d;\n*/",
			g.a.Label, g.b.Label, g.table, d.Column.Name, guard(Literal(d.ValueB)), g.a.IdentityColumn, d.Identity)),
		key(fmt.Sprintf("/* Update %s to match %s:\nUPDATE %s SET %s = %s WHERE %s = %d;\n*/",
			g.b.Label, g.a.Label, g.table, d.Column.Name, guard(Literal(d.ValueA)), g.b.IdentityColumn, d.Identity)),
	)

	return entries
}

// oneLine keeps a value on the line of its "--" comment.
func oneLine(s string) string {
	return strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(s)
}

// Order sorts entries with unkeyed entries first, in their original order,
// then keyed entries by ascending identity. Entries of the same identity keep
// their relative order. Exact repeats are dropped.
func Order(entries []core.RemediationEntry) []core.RemediationEntry {
	sorted := make([]core.RemediationEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Keyed != b.Keyed {
			return !a.Keyed
		}
		return a.Keyed && a.Identity < b.Identity
	})

	seen := make(map[string]struct{}, len(sorted))
	out := sorted[:0]
	for _, e := range sorted {
		k := strconv.FormatBool(e.Keyed) + "|" + strconv.FormatInt(e.Identity, 10) + "|" + e.Text
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, e)
	}
	return out
}

// FindingEntries converts findings into unkeyed entries, preferring rendered
// SQL text over the plain message.
func FindingEntries(findings []core.Finding) []core.RemediationEntry {
	out := make([]core.RemediationEntry, 0, len(findings))
	for _, f := range findings {
		text := f.Text
		if text == "" {
			text = "-- " + f.Message
		}
		out = append(out, core.RemediationEntry{Text: text})
	}
	return out
}
