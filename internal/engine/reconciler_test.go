package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/TFMV/reconcile/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	users   = core.Table{Schema: "dbo", Name: "Users"}
	staging = core.DataSource{Label: "Staging", Server: "db1", Database: "app"}
	prod    = core.DataSource{Label: "Prod", Server: "db2", Database: "app"}
	pair    = core.SourcePair{A: staging, B: prod}

	idName = []core.Column{{Name: "Id", DataType: "int"}, {Name: "Name", DataType: "nvarchar"}}
)

// fakeProvider serves snapshots keyed by "<label>/<schema.table>".
type fakeProvider struct {
	mu        sync.Mutex
	snapshots map[string]*core.Snapshot
	errs      map[string]error
	calls     []string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{snapshots: map[string]*core.Snapshot{}, errs: map[string]error{}}
}

func key(ds core.DataSource, t core.Table) string { return ds.Label + "/" + t.String() }

func (f *fakeProvider) add(ds core.DataSource, t core.Table, s *core.Snapshot) { f.snapshots[key(ds, t)] = s }

func (f *fakeProvider) fail(ds core.DataSource, t core.Table, err error) { f.errs[key(ds, t)] = err }

func (f *fakeProvider) Fetch(_ context.Context, ds core.DataSource, t core.Table) (*core.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := key(ds, t)
	f.calls = append(f.calls, k)
	if err, ok := f.errs[k]; ok {
		return nil, &core.FetchError{Source: ds.Label, Table: t, Err: err}
	}
	if s, ok := f.snapshots[k]; ok {
		return s, nil
	}
	return nil, &core.FetchError{Source: ds.Label, Table: t, Err: fmt.Errorf("invalid object name '%s'", t)}
}

func snap(t *testing.T, cols []core.Column, rows ...[]core.Value) *core.Snapshot {
	t.Helper()
	s, err := core.NewSnapshot(cols, rows)
	require.NoError(t, err)
	return s
}

func row(vals ...core.Value) []core.Value { return vals }

func texts(entries []core.RemediationEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Text
	}
	return out
}

func TestCompareConcreteScenario(t *testing.T) {
	a := snap(t, idName,
		row(core.Int(1), core.String("x")),
		row(core.Int(2), core.String("y")))
	b := snap(t, idName,
		row(core.Int(1), core.String("x")),
		row(core.Int(2), core.String("z")),
		row(core.Int(3), core.String("w")))

	res := NewReconciler(nil, core.NewIgnoreSet(), nil).Compare(pair, users, a, b)

	assert.Equal(t, []State{StateValidating, StateComparing, StateRendering, StateDone}, res.Path)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, 0, res.OnlyInA)
	assert.Equal(t, 1, res.OnlyInB)
	assert.Equal(t, 1, res.Differences)
	assert.Equal(t, 1, res.DifferingRows)

	assert.Equal(t, []string{
		"SELECT * FROM dbo.Users WHERE Id = 2 -- Staging, Prod",
		"-- dbo.Users - Column Name for ID 2 is different: 'y' in Staging vs 'z' in Prod",
		"/* Update Staging to match Prod:\nUPDATE dbo.Users SET Name = 'z' WHERE Id = 2;\n*/",
		"/* Update Prod to match Staging:\nUPDATE dbo.Users SET Name = 'y' WHERE Id = 2;\n*/",
		"SELECT * FROM dbo.Users WHERE Id = 3 -- dbo.Users - ID 3 is in Prod but not in Staging",
		"/* Insert into Staging:\nSET IDENTITY_INSERT dbo.Users ON;\nINSERT INTO dbo.Users (Id, Name) VALUES (3, 'w');\nSET IDENTITY_INSERT dbo.Users OFF;\n*/",
		"/* Delete from Prod:\nDELETE FROM dbo.Users WHERE Id = 3;\n*/",
	}, texts(res.Entries))
}

func TestCompareIdenticalSnapshots(t *testing.T) {
	a := snap(t, idName,
		row(core.Int(1), core.String("x")),
		row(core.Int(2), core.Null()))

	res := NewReconciler(nil, core.NewIgnoreSet(), nil).Compare(pair, users, a, a)

	assert.Empty(t, res.Entries)
	assert.Empty(t, res.Warnings)
	assert.False(t, res.Failed())
}

func TestCompareMissingColumn(t *testing.T) {
	colsB := append(append([]core.Column{}, idName...), core.Column{Name: "Notes", DataType: "nvarchar"})
	a := snap(t, idName, row(core.Int(1), core.String("x")))
	b := snap(t, colsB, row(core.Int(1), core.String("x"), core.String("only here")))

	res := NewReconciler(nil, core.NewIgnoreSet(), nil).Compare(pair, users, a, b)

	require.Len(t, res.Warnings, 1)
	assert.Equal(t, "dbo.Users - Notes column in Prod but not in Staging!", res.Warnings[0].Message)
	assert.Equal(t, 0, res.Differences)
	assert.Equal(t, []string{
		"SELECT * FROM dbo.Users -- dbo.Users - Notes column in Prod but not in Staging!",
	}, texts(res.Entries))
}

func TestCompareIgnoredColumn(t *testing.T) {
	cols := []core.Column{idName[0], idName[1], {Name: "ModifiedAt", DataType: "datetime"}}
	a := snap(t, cols, row(core.Int(1), core.String("x"), core.String("2024-01-01")))
	b := snap(t, cols, row(core.Int(1), core.String("x"), core.String("2025-01-01")))

	res := NewReconciler(nil, core.NewIgnoreSet("ModifiedAt"), nil).Compare(pair, users, a, b)

	assert.Equal(t, 0, res.Differences)
	assert.Empty(t, res.Entries)
}

func TestCompareByteArrays(t *testing.T) {
	cols := []core.Column{idName[0], {Name: "Hash", DataType: "varbinary"}}
	a := snap(t, cols, row(core.Int(1), core.Bytes([]byte{1, 2, 3})))
	b := snap(t, cols, row(core.Int(1), core.Bytes([]byte{1, 2, 3})))

	res := NewReconciler(nil, core.NewIgnoreSet(), nil).Compare(pair, users, a, b)
	assert.Equal(t, 0, res.Differences)
}

func TestCompareShortCircuitsOnIdentityError(t *testing.T) {
	cols := []core.Column{{Name: "Id", DataType: "varchar"}, idName[1]}
	colsB := append(append([]core.Column{}, cols...), core.Column{Name: "Notes", DataType: "nvarchar"})
	a := snap(t, cols,
		row(core.String("abc"), core.String("x")),
		row(core.String("2"), core.String("y")))
	b := snap(t, colsB,
		row(core.String("2"), core.String("z"), core.Null()),
		row(core.String("3"), core.String("w"), core.Null()))

	res := NewReconciler(nil, core.NewIgnoreSet(), nil).Compare(pair, users, a, b)

	assert.Equal(t, []State{StateValidating, StateError, StateDone}, res.Path)
	assert.True(t, res.Failed())
	require.Len(t, res.Errors, 1)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, []string{
		"SELECT * FROM dbo.Users WHERE Id = 'abc' -- dbo.Users - ID is not an int in Staging (table not compared)",
	}, texts(res.Entries))
}

func TestCompareDuplicateIdentity(t *testing.T) {
	a := snap(t, idName,
		row(core.Int(7), core.String("x")),
		row(core.Int(7), core.String("y")))
	b := snap(t, idName, row(core.Int(7), core.String("x")))

	res := NewReconciler(nil, core.NewIgnoreSet(), nil).Compare(pair, users, a, b)

	require.Len(t, res.Errors, 1)
	assert.Equal(t, "SELECT * FROM dbo.Users WHERE Id = 7 -- dbo.Users - Duplicate ID 7 in Staging, 2 rows (table not compared)",
		res.Entries[0].Text)
}

func TestCompareMissingIdentityColumn(t *testing.T) {
	a := snap(t, idName, row(core.Int(1), core.String("x")))
	b := snap(t, []core.Column{{Name: "Name", DataType: "nvarchar"}}, row(core.String("x")))

	res := NewReconciler(nil, core.NewIgnoreSet(), nil).Compare(pair, users, a, b)

	assert.True(t, res.Failed())
	require.NotEmpty(t, res.Errors)
	assert.Contains(t, res.Errors[0].Message, "identity column Id in Staging is not in Prod")
}

func TestCompareTableOneSideFails(t *testing.T) {
	p := newFakeProvider()
	p.fail(staging, users, errors.New("login failed"))
	p.add(prod, users, snap(t, idName,
		row(core.Int(1), core.String("x")),
		row(core.Int(2), core.String("y"))))

	res := NewReconciler(p, core.NewIgnoreSet(), nil).CompareTable(context.Background(), pair, users)

	assert.Equal(t, []State{StateFetching, StateValidating, StateComparing, StateRendering, StateDone}, res.Path)
	require.Len(t, res.FetchErrors, 1)
	assert.Equal(t, 2, res.OnlyInB)
	assert.Equal(t, "-- dbo.Users - could not read from Staging: login failed", res.Entries[0].Text)

	inserts := 0
	for _, e := range res.Entries {
		if strings.HasPrefix(e.Text, "/* Insert into Staging:") {
			inserts++
		}
	}
	assert.Equal(t, 2, inserts)
}

func TestCompareTableBothFail(t *testing.T) {
	p := newFakeProvider()
	p.fail(staging, users, errors.New("timeout\nafter 30s"))
	p.fail(prod, users, errors.New("permission denied"))

	res := NewReconciler(p, core.NewIgnoreSet(), nil).CompareTable(context.Background(), pair, users)

	assert.Equal(t, []State{StateFetching, StateError, StateDone}, res.Path)
	assert.Equal(t, []string{
		"-- dbo.Users - could not read from Staging: timeout after 30s",
		"-- dbo.Users - could not read from Prod: permission denied",
	}, texts(res.Entries))
	assert.Equal(t, []string{"Staging/dbo.Users", "Prod/dbo.Users"}, p.calls)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "comparing", StateComparing.String())
	assert.Equal(t, "state(42)", State(42).String())
}

func TestCompareIdentityAtDifferentOrdinal(t *testing.T) {
	a := snap(t, idName,
		row(core.Int(1), core.String("x")),
		row(core.Int(2), core.String("y")))
	b := snap(t, []core.Column{{Name: "Name", DataType: "nvarchar"}, {Name: "Id", DataType: "int"}},
		row(core.String("x"), core.Int(1)),
		row(core.String("z"), core.Int(2)),
		row(core.String("w"), core.Int(3)))

	res := NewReconciler(nil, core.NewIgnoreSet(), nil).Compare(pair, users, a, b)

	require.False(t, res.Failed(), "errors: %v", res.Errors)
	assert.Empty(t, res.Errors)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, 0, res.OnlyInA)
	assert.Equal(t, 1, res.OnlyInB)
	assert.Equal(t, 1, res.Differences)

	out := texts(res.Entries)
	assert.Contains(t, out, "SELECT * FROM dbo.Users WHERE Id = 2 -- Staging, Prod")
	assert.Contains(t, out, "-- dbo.Users - Column Name for ID 2 is different: 'y' in Staging vs 'z' in Prod")
	assert.Contains(t, out, "/* Update Prod to match Staging:\nUPDATE dbo.Users SET Name = 'y' WHERE Id = 2;\n*/")
	assert.Contains(t, out, "SELECT * FROM dbo.Users WHERE Id = 3 -- dbo.Users - ID 3 is in Prod but not in Staging")
	for _, e := range out {
		assert.NotContains(t, e, "WHERE Name =")
	}
}
