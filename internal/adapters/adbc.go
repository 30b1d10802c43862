package adapters

import (
	"context"
	"fmt"
	"sync"

	"github.com/TFMV/reconcile/pkg/core"
	"github.com/TFMV/reconcile/pkg/readers"
	"github.com/apache/arrow-adbc/go/adbc"
	"github.com/apache/arrow-adbc/go/adbc/drivermgr"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// ADBCConnection is an open ADBC database and connection pair.
type ADBCConnection struct {
	Conn adbc.Connection
	db   adbc.Database
}

// NewADBCConnection loads the driver shared library and opens a connection.
func NewADBCConnection(ctx context.Context, driverPath string, options map[string]string) (*ADBCConnection, error) {
	opts := make(map[string]string, len(options)+1)
	for k, v := range options {
		opts[k] = v
	}
	opts["driver"] = driverPath

	drv := drivermgr.Driver{}
	db, err := drv.NewDatabase(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create ADBC database: %w", err)
	}

	conn, err := db.Open(ctx)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open ADBC connection: %w", err)
	}

	return &ADBCConnection{Conn: conn, db: db}, nil
}

// QueryArrow executes query and returns its result stream. The statement
// stays open until the returned reader is released.
func (c *ADBCConnection) QueryArrow(ctx context.Context, query string) (array.RecordReader, error) {
	stmt, err := c.Conn.NewStatement()
	if err != nil {
		return nil, fmt.Errorf("failed to create statement: %w", err)
	}

	if err := stmt.SetSqlQuery(query); err != nil {
		_ = stmt.Close()
		return nil, fmt.Errorf("failed to set query: %w", err)
	}
	rdr, _, err := stmt.ExecuteQuery(ctx)
	if err != nil {
		_ = stmt.Close()
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	return &statementReader{RecordReader: rdr, stmt: stmt}, nil
}

// statementReader closes its statement once the stream has been released.
type statementReader struct {
	array.RecordReader
	stmt adbc.Statement
	once sync.Once
}

func (r *statementReader) Release() {
	r.RecordReader.Release()
	r.once.Do(func() { _ = r.stmt.Close() })
}

// Close releases the connection and the database.
func (c *ADBCConnection) Close() error {
	errConn := c.Conn.Close()
	var errDB error
	if c.db != nil {
		errDB = c.db.Close()
	}
	if errConn != nil {
		return errConn
	}
	return errDB
}

// ADBCDialer returns a dialer that connects to each data source with the
// driver at driverPath, passing the expanded DSN template as the URI.
func ADBCDialer(driverPath, dsnTemplate string) readers.Dialer {
	return func(ctx context.Context, source core.DataSource) (readers.ArrowQuerier, error) {
		conn, err := NewADBCConnection(ctx, driverPath, map[string]string{
			adbc.OptionKeyURI: ExpandDSN(dsnTemplate, source),
		})
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
}
