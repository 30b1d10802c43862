// Package report assembles reconciliation reports and persists them to a sink.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/TFMV/reconcile/pkg/core"
)

// DateFormat is the date prefix of every report name.
const DateFormat = "2006-01-02"

// Extension is appended to report names by the sinks.
const Extension = ".sql"

// -----------------------------
// Report Content
// -----------------------------

// Section is the rendered content of one table.
type Section struct {
	Table   core.Table
	Entries []core.RemediationEntry
}

// Header describes the run a report belongs to.
type Header struct {
	Pair  core.SourcePair
	Date  time.Time
	RunID string
}

// Name returns the destination name for a source pair report.
func Name(date time.Time, pair core.SourcePair) string {
	return date.Format(DateFormat) + "_" + pair.A.Label + "_" + pair.B.Label
}

// ErrorName returns the destination name for top-level errors.
func ErrorName(date time.Time) string {
	return date.Format(DateFormat) + "_Error"
}

// Render assembles the sections of a source pair into one report. Sections
// without entries are skipped; an empty string means nothing to report.
func Render(h Header, sections []Section) string {
	var body strings.Builder
	for _, s := range sections {
		if len(s.Entries) == 0 {
			continue
		}
		fmt.Fprintf(&body, "\n-- ===== %s =====\n", s.Table)
		for _, e := range s.Entries {
			body.WriteString(e.Text)
			body.WriteString("\n")
		}
	}
	if body.Len() == 0 {
		return ""
	}

	var out strings.Builder
	fmt.Fprintf(&out, "-- Reconciliation of %s and %s\n", describe(h.Pair.A), describe(h.Pair.B))
	fmt.Fprintf(&out, "-- Generated %s", h.Date.Format(DateFormat))
	if h.RunID != "" {
		fmt.Fprintf(&out, " (run %s)", h.RunID)
	}
	out.WriteString("\n-- Statements are advisory; review before running anything.\n")
	out.WriteString(body.String())
	return out.String()
}

// RenderErrors formats top-level errors, one comment line each.
func RenderErrors(h Header, messages []string) string {
	var out strings.Builder
	fmt.Fprintf(&out, "-- Generated %s", h.Date.Format(DateFormat))
	if h.RunID != "" {
		fmt.Fprintf(&out, " (run %s)", h.RunID)
	}
	out.WriteString("\n")
	for _, m := range messages {
		out.WriteString("-- ")
		out.WriteString(strings.ReplaceAll(m, "\n", " "))
		out.WriteString("\n")
	}
	return out.String()
}

func describe(ds core.DataSource) string {
	if ds.Server == "" && ds.Database == "" {
		return ds.Label
	}
	return fmt.Sprintf("%s (%s/%s)", ds.Label, ds.Server, ds.Database)
}
