package schema

import (
	"fmt"
	"strings"

	"github.com/TFMV/reconcile/pkg/core"
	"go.uber.org/zap"
)

// Validator compares the column sets of two snapshots of the same table.
// Only name presence and data type equality are checked; ordinal differences
// between same-named columns are ignored.
type Validator struct {
	logger *zap.Logger
}

// NewValidator creates a new Validator.
func NewValidator(logger *zap.Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{logger: logger}
}

// Validate compares two ignore-reduced column sets. Every finding is a warning.
func (v *Validator) Validate(table core.Table, a, b []core.Column, labelA, labelB string) ValidationResult {
	var result ValidationResult

	byNameA := make(map[string]core.Column, len(a))
	for _, c := range a {
		byNameA[c.Name] = c
	}
	byNameB := make(map[string]core.Column, len(b))
	for _, c := range b {
		byNameB[c.Name] = c
	}

	for _, c := range a {
		if _, ok := byNameB[c.Name]; !ok {
			result.MissingInB = append(result.MissingInB, c.Name)
			result.Warnings = append(result.Warnings, warning(
				"%s - %s column in %s but not in %s!", table, c.Name, labelA, labelB))
		}
	}

	for _, c := range b {
		if _, ok := byNameA[c.Name]; !ok {
			result.MissingInA = append(result.MissingInA, c.Name)
			result.Warnings = append(result.Warnings, warning(
				"%s - %s column in %s but not in %s!", table, c.Name, labelB, labelA))
		}
	}

	for _, c := range a {
		other, ok := byNameB[c.Name]
		if ok && !strings.EqualFold(c.DataType, other.DataType) {
			result.TypeMismatches = append(result.TypeMismatches, c.Name)
		}
	}

	if n := len(result.TypeMismatches); n > 0 {
		names := strings.Join(result.TypeMismatches, ", ")
		if n == 1 {
			result.Warnings = append(result.Warnings, warning(
				"%s - Column %s has a different data type in %s and %s!", table, names, labelA, labelB))
		} else {
			result.Warnings = append(result.Warnings, warning(
				"%s - Columns %s have different data types in %s and %s!", table, names, labelA, labelB))
		}
	}

	if !result.Clean() {
		v.logger.Debug("schema differences found",
			zap.String("table", table.String()),
			zap.Strings("missing_in_a", result.MissingInA),
			zap.Strings("missing_in_b", result.MissingInB),
			zap.Strings("type_mismatches", result.TypeMismatches))
	}

	return result
}

func warning(format string, a ...any) core.Finding {
	return core.Finding{Severity: core.SeverityWarning, Message: fmt.Sprintf(format, a...)}
}
