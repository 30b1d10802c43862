package schema

import (
	"testing"

	"github.com/TFMV/reconcile/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var users = core.Table{Schema: "dbo", Name: "Users"}

func cols(defs ...string) []core.Column {
	out := make([]core.Column, 0, len(defs)/2)
	for i := 0; i+1 < len(defs); i += 2 {
		out = append(out, core.Column{Name: defs[i], Ordinal: i / 2, DataType: defs[i+1]})
	}
	return out
}

func TestReduceColumns(t *testing.T) {
	snap := core.EmptySnapshot(cols("Id", "int", "Name", "nvarchar", "DateModified", "datetime"))
	ignore := core.NewIgnoreSet("DateModified")

	reduced := ReduceColumns(snap, ignore, true)
	require.Len(t, reduced, 2)
	assert.Equal(t, "Id", reduced[0].Name)
	assert.Equal(t, "Name", reduced[1].Name)

	full := ReduceColumns(snap, ignore, false)
	assert.Len(t, full, 3)

	// snapshot columns are not modified by reduction
	assert.Len(t, snap.Columns(), 3)
}

func TestValidateIdenticalColumns(t *testing.T) {
	v := NewValidator(nil)
	a := cols("Id", "int", "Name", "nvarchar")

	result := v.Validate(users, a, a, "Staging", "Prod")
	assert.True(t, result.Clean())
	assert.Empty(t, result.Warnings)
}

func TestValidateMissingColumn(t *testing.T) {
	v := NewValidator(nil)
	a := cols("Id", "int", "Name", "nvarchar")
	b := cols("Id", "int", "Name", "nvarchar", "Notes", "nvarchar")

	result := v.Validate(users, a, b, "Staging", "Prod")
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, core.SeverityWarning, result.Warnings[0].Severity)
	assert.Equal(t, "dbo.Users - Notes column in Prod but not in Staging!", result.Warnings[0].Message)
	assert.Equal(t, []string{"Notes"}, result.MissingInA)
	assert.Empty(t, result.MissingInB)
}

func TestValidateBothDirections(t *testing.T) {
	v := NewValidator(nil)
	a := cols("Id", "int", "Legacy", "bit")
	b := cols("Id", "int", "Notes", "nvarchar")

	result := v.Validate(users, a, b, "A", "B")
	require.Len(t, result.Warnings, 2)
	assert.Contains(t, result.Warnings[0].Message, "Legacy column in A but not in B")
	assert.Contains(t, result.Warnings[1].Message, "Notes column in B but not in A")
}

func TestValidateTypeMismatchWording(t *testing.T) {
	v := NewValidator(nil)

	single := v.Validate(users,
		cols("Id", "int", "Age", "int"),
		cols("Id", "int", "Age", "bigint"), "A", "B")
	require.Len(t, single.Warnings, 1)
	assert.Equal(t, "dbo.Users - Column Age has a different data type in A and B!", single.Warnings[0].Message)

	plural := v.Validate(users,
		cols("Id", "int", "Age", "int", "Name", "nvarchar"),
		cols("Id", "int", "Age", "bigint", "Name", "varchar"), "A", "B")
	require.Len(t, plural.Warnings, 1)
	assert.Equal(t, "dbo.Users - Columns Age, Name have different data types in A and B!", plural.Warnings[0].Message)
	assert.Equal(t, []string{"Age", "Name"}, plural.TypeMismatches)
}

func TestValidateIgnoresOrdinals(t *testing.T) {
	v := NewValidator(nil)
	a := cols("Id", "int", "Name", "nvarchar", "Age", "int")
	b := cols("Id", "int", "Age", "int", "Name", "nvarchar")

	assert.True(t, v.Validate(users, a, b, "A", "B").Clean())
}

func TestTrimToCommon(t *testing.T) {
	a, err := core.NewSnapshot(cols("Id", "int", "Name", "nvarchar"), [][]core.Value{
		{core.Int(1), core.String("x")},
	})
	require.NoError(t, err)
	b, err := core.NewSnapshot(cols("Id", "int", "Notes", "nvarchar", "Name", "nvarchar"), [][]core.Value{
		{core.Int(1), core.String("n"), core.String("x")},
	})
	require.NoError(t, err)

	ta, tb := TrimToCommon(a, b)
	assert.Equal(t, "Id, Name", core.JoinNames(ta.Columns()))
	assert.Equal(t, "Id, Name", core.JoinNames(tb.Columns()))

	v, ok := tb.Rows()[0].Get("Name")
	require.True(t, ok)
	assert.Equal(t, "x", v.String())
}

func TestTrimToCommonFollowsFirstSnapshotOrder(t *testing.T) {
	a, err := core.NewSnapshot(cols("Id", "int", "Name", "nvarchar"), [][]core.Value{
		{core.Int(1), core.String("x")},
	})
	require.NoError(t, err)
	b, err := core.NewSnapshot(cols("Name", "nvarchar", "Extra", "int", "Id", "int"), [][]core.Value{
		{core.String("x"), core.Int(9), core.Int(1)},
	})
	require.NoError(t, err)

	ta, tb := TrimToCommon(a, b)
	assert.Equal(t, "Id, Name", core.JoinNames(ta.Columns()))
	assert.Equal(t, "Id, Name", core.JoinNames(tb.Columns()))

	id, ok := tb.IdentityColumn()
	require.True(t, ok)
	assert.Equal(t, "Id", id.Name)
	n, ok := tb.Rows()[0].Identity().AsInt()
	require.True(t, ok)
	assert.Equal(t, int64(1), n)
}
