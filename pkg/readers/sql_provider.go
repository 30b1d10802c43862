// Package readers materializes table snapshots from live data sources.
package readers

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/TFMV/reconcile/pkg/core"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DBSource hands out a connection pool for a data source.
type DBSource interface {
	DB(ctx context.Context, source core.DataSource) (*sql.DB, error)
}

// DBSourceFunc adapts a function to DBSource.
type DBSourceFunc func(ctx context.Context, source core.DataSource) (*sql.DB, error)

func (f DBSourceFunc) DB(ctx context.Context, source core.DataSource) (*sql.DB, error) {
	return f(ctx, source)
}

// SQLProvider fetches whole tables through database/sql.
type SQLProvider struct {
	dbs    DBSource
	logger *zap.Logger
}

// NewSQLProvider creates a SQLProvider over the given pools.
func NewSQLProvider(dbs DBSource, logger *zap.Logger) *SQLProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLProvider{dbs: dbs, logger: logger}
}

// SelectAll is the query used to materialize a table.
func SelectAll(table core.Table) string {
	return fmt.Sprintf("SELECT * FROM %s", table)
}

// Fetch reads every row of the table. Failures are returned as *core.FetchError.
func (p *SQLProvider) Fetch(ctx context.Context, source core.DataSource, table core.Table) (*core.Snapshot, error) {
	fail := func(err error) (*core.Snapshot, error) {
		return nil, &core.FetchError{Source: source.Label, Table: table, Err: err}
	}

	start := time.Now()
	db, err := p.dbs.DB(ctx, source)
	if err != nil {
		return fail(err)
	}

	rows, err := db.QueryContext(ctx, SelectAll(table))
	if err != nil {
		return fail(err)
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return fail(fmt.Errorf("failed to get column types: %w", err))
	}
	columns := make([]core.Column, len(types))
	for i, ct := range types {
		columns[i] = core.Column{Name: ct.Name(), Ordinal: i, DataType: strings.ToLower(ct.DatabaseTypeName())}
	}

	raw := make([]any, len(types))
	scan := make([]any, len(types))
	for i := range raw {
		scan[i] = &raw[i]
	}

	var values [][]core.Value
	for rows.Next() {
		if err := rows.Scan(scan...); err != nil {
			return fail(fmt.Errorf("failed to scan row: %w", err))
		}
		row := make([]core.Value, len(types))
		for i, v := range raw {
			row[i] = sqlValue(v, columns[i].DataType)
		}
		values = append(values, row)
	}
	if err := rows.Err(); err != nil {
		return fail(fmt.Errorf("error iterating rows: %w", err))
	}

	snap, err := core.NewSnapshot(columns, values)
	if err != nil {
		return fail(err)
	}
	p.logger.Debug("snapshot fetched",
		zap.String("source", source.Label),
		zap.String("table", table.String()),
		zap.Int("rows", len(values)),
		zap.Duration("elapsed", time.Since(start)))
	return snap, nil
}

// sqlValue converts a scanned driver value. The lower-cased database type
// name separates decimal text and binary data from plain strings.
func sqlValue(v any, dbType string) core.Value {
	switch x := v.(type) {
	case nil:
		return core.Null()
	case int64:
		return core.Int(x)
	case int32:
		return core.Int(int64(x))
	case int:
		return core.Int(int64(x))
	case uint64:
		if x > 1<<63-1 {
			return core.Decimal(fmt.Sprint(x))
		}
		return core.Int(int64(x))
	case float64:
		if isDecimalType(dbType) {
			return core.Decimal(fmt.Sprint(x))
		}
		return core.Float(x)
	case float32:
		return core.Float(float64(x))
	case bool:
		return core.Bool(x)
	case time.Time:
		return core.Time(x)
	case string:
		if isDecimalType(dbType) {
			return core.Decimal(x)
		}
		return core.String(x)
	case []byte:
		switch {
		case dbType == "uniqueidentifier" && len(x) == 16:
			return core.String(mssqlUUID(x))
		case isDecimalType(dbType):
			return core.Decimal(string(x))
		case isBinaryType(dbType):
			return core.Bytes(x)
		}
		return core.String(string(x))
	}
	return core.String(fmt.Sprint(v))
}

func isDecimalType(t string) bool {
	switch t {
	case "decimal", "numeric", "money", "smallmoney", "number":
		return true
	}
	return false
}

func isBinaryType(t string) bool {
	switch t {
	case "binary", "varbinary", "image", "bytea", "blob", "tinyblob", "mediumblob", "longblob",
		"rowversion", "geometry", "geography":
		return true
	}
	return false
}

// mssqlUUID renders a SQL Server uniqueidentifier, whose first three groups
// are stored little-endian.
func mssqlUUID(b []byte) string {
	var u uuid.UUID
	copy(u[:], b)
	u[0], u[1], u[2], u[3] = u[3], u[2], u[1], u[0]
	u[4], u[5] = u[5], u[4]
	u[6], u[7] = u[7], u[6]
	return strings.ToUpper(u.String())
}
