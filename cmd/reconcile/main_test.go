package main

import (
	"bytes"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/TFMV/reconcile/logger"
	"github.com/TFMV/reconcile/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeCommand(args ...string) (string, error) {
	rootCmd := newRootCommand()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestCLI_Help(t *testing.T) {
	output, err := executeCommand("--help")
	require.NoError(t, err)
	assert.Contains(t, output, "Usage:")
	assert.Contains(t, output, "run")
	assert.Contains(t, output, "serve")
}

func TestCLI_Version(t *testing.T) {
	output, err := executeCommand("version")
	require.NoError(t, err)
	assert.Contains(t, output, "reconcile")
}

// workspace lays out two sqlite databases and the input files for a run.
func workspace(t *testing.T, notesInProd bool) (dir, configPath string) {
	t.Helper()
	dir = t.TempDir()
	logger.ResetLogger()
	t.Cleanup(logger.ResetLogger)

	exec := func(db string, stmts ...string) {
		conn, err := sql.Open("sqlite", filepath.Join(dir, db+".db"))
		require.NoError(t, err)
		defer conn.Close()
		for _, s := range stmts {
			_, err := conn.Exec(s)
			require.NoError(t, err, s)
		}
	}
	exec("staging",
		`CREATE TABLE users (id INTEGER, name TEXT)`,
		`INSERT INTO users VALUES (1, 'x'), (2, 'y')`)
	prodTable := `CREATE TABLE users (id INTEGER, name TEXT)`
	prodRows := `INSERT INTO users VALUES (1, 'x'), (2, 'z'), (3, 'w')`
	if notesInProd {
		prodTable = `CREATE TABLE users (id INTEGER, name TEXT, notes TEXT)`
		prodRows = `INSERT INTO users VALUES (1, 'x', 'n'), (2, 'z', NULL), (3, 'w', NULL)`
	}
	exec("prod", prodTable, prodRows)

	write := func(name, content string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
		return p
	}
	write("Tables.txt", "-- schema,table\nmain,users\nmain,missing\n")
	write("DataSources.txt", "Staging,local,staging,Prod,local,prod\n")
	configPath = write("reconcile.yaml", fmt.Sprintf(`
input:
  dir: %[1]s
output:
  dir: %[1]s/results
source:
  provider: sql
  driver: sqlite
  dsn: %[1]s/{database}.db
workers: 2
log:
  file: %[1]s/reconcile.log
`, dir))
	return dir, configPath
}

func TestCLI_Run(t *testing.T) {
	dir, configPath := workspace(t, false)

	output, err := executeCommand("run", "-c", configPath, "-q")
	require.NoError(t, err)
	assert.Contains(t, output, "Differences:   1")

	name := time.Now().Format("2006-01-02") + "_Staging_Prod.sql"
	data, err := os.ReadFile(filepath.Join(dir, "results", name))
	require.NoError(t, err)
	content := string(data)

	assert.Contains(t, content, "-- main.users - Column name for ID 2 is different: 'y' in Staging vs 'z' in Prod")
	assert.Contains(t, content, "INSERT INTO main.users (id, name) VALUES (3, 'w');")
	assert.Contains(t, content, "-- main.missing - could not read from Staging")
	assert.Less(t, strings.Index(content, "ID 2"), strings.Index(content, "ID 3"))

	summary, err := metrics.Load(filepath.Join(dir, "results", "summary.json"))
	require.NoError(t, err)
	require.Len(t, summary.Tables, 2)
	assert.Equal(t, metrics.Unreadable, summary.Tables[1].Outcome)
}

func TestCLI_RunWithoutInputs(t *testing.T) {
	dir, configPath := workspace(t, false)
	require.NoError(t, os.Remove(filepath.Join(dir, "Tables.txt")))

	output, err := executeCommand("run", "-c", configPath, "-q")
	require.NoError(t, err)
	assert.Contains(t, output, "no tables to compare")

	name := time.Now().Format("2006-01-02") + "_Error.sql"
	data, err := os.ReadFile(filepath.Join(dir, "results", name))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Tables.txt - cannot open")
}

func TestCLI_Schema(t *testing.T) {
	_, configPath := workspace(t, true)

	output, err := executeCommand("schema", "-c", configPath)
	require.Error(t, err)
	assert.Contains(t, output, "main.users - notes column in Prod but not in Staging!")
}

func TestCLI_BadConfig(t *testing.T) {
	_, err := executeCommand("run", "-c", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
