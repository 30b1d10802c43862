package readers

import (
	"context"
	"fmt"
	"time"

	"github.com/TFMV/reconcile/pkg/core"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"go.uber.org/zap"
)

// ArrowQuerier runs a query and streams the result as Arrow records.
type ArrowQuerier interface {
	QueryArrow(ctx context.Context, query string) (array.RecordReader, error)
	Close() error
}

// Dialer opens an ArrowQuerier for a data source.
type Dialer func(ctx context.Context, source core.DataSource) (ArrowQuerier, error)

// ADBCProvider fetches whole tables as Arrow record batches.
type ADBCProvider struct {
	dial   Dialer
	logger *zap.Logger
}

// NewADBCProvider creates an ADBCProvider. Every fetch opens and closes its
// own connection.
func NewADBCProvider(dial Dialer, logger *zap.Logger) *ADBCProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ADBCProvider{dial: dial, logger: logger}
}

// Fetch reads every row of the table. Failures are returned as *core.FetchError.
func (p *ADBCProvider) Fetch(ctx context.Context, source core.DataSource, table core.Table) (*core.Snapshot, error) {
	fail := func(err error) (*core.Snapshot, error) {
		return nil, &core.FetchError{Source: source.Label, Table: table, Err: err}
	}

	start := time.Now()
	conn, err := p.dial(ctx, source)
	if err != nil {
		return fail(err)
	}
	defer conn.Close()

	rdr, err := conn.QueryArrow(ctx, SelectAll(table))
	if err != nil {
		return fail(err)
	}
	defer rdr.Release()

	var records []arrow.Record
	defer func() {
		for _, rec := range records {
			rec.Release()
		}
	}()
	for rdr.Next() {
		rec := rdr.Record()
		rec.Retain()
		records = append(records, rec)
	}
	if err := rdr.Err(); err != nil {
		return fail(fmt.Errorf("error reading records: %w", err))
	}

	snap, err := SnapshotFromRecords(rdr.Schema(), records...)
	if err != nil {
		return fail(err)
	}
	p.logger.Debug("snapshot fetched",
		zap.String("source", source.Label),
		zap.String("table", table.String()),
		zap.Int("rows", len(snap.Rows())),
		zap.Int("batches", len(records)),
		zap.Duration("elapsed", time.Since(start)))
	return snap, nil
}
