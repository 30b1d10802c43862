package diff

import (
	"sort"
	"strconv"
	"strings"

	"github.com/TFMV/reconcile/pkg/core"
)

// IssueKind classifies an identity column problem.
type IssueKind int

const (
	// IssueNotInt marks a row whose identity value does not parse as an integer.
	IssueNotInt IssueKind = iota

	// IssueDuplicate marks an identity value shared by more than one row.
	IssueDuplicate
)

// IdentityIssue is a blocking identity problem found in one source.
type IdentityIssue struct {
	Kind   IssueKind
	Source string

	// Raw is the unparsed identity value for IssueNotInt.
	Raw core.Value

	// Identity and Count describe an IssueDuplicate group.
	Identity int64
	Count    int
}

// ParseIdentity converts a raw identity value to an integer. Integers are
// accepted as-is and strings when they hold a base-10 integer.
func ParseIdentity(v core.Value) (int64, bool) {
	switch v.Kind() {
	case core.KindInt:
		return v.AsInt()
	case core.KindString, core.KindDecimal:
		s, _ := v.AsString()
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// ValidateIdentities checks one source's rows for non-integer and duplicate
// identity values. Non-integer issues come first in row order, followed by
// duplicate groups in ascending identity order.
func ValidateIdentities(rows []core.Row, source string) []IdentityIssue {
	var issues []IdentityIssue
	counts := make(map[int64]int, len(rows))

	for _, row := range rows {
		raw := row.Identity()
		id, ok := ParseIdentity(raw)
		if !ok {
			issues = append(issues, IdentityIssue{Kind: IssueNotInt, Source: source, Raw: raw})
			continue
		}
		counts[id]++
	}

	var dups []int64
	for id, n := range counts {
		if n > 1 {
			dups = append(dups, id)
		}
	}
	sort.Slice(dups, func(i, j int) bool { return dups[i] < dups[j] })

	for _, id := range dups {
		issues = append(issues, IdentityIssue{
			Kind:     IssueDuplicate,
			Source:   source,
			Identity: id,
			Count:    counts[id],
		})
	}

	return issues
}
