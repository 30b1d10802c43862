package adapters

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/TFMV/reconcile/pkg/core"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/microsoft/go-mssqldb"
	_ "modernc.org/sqlite"
)

// drivers maps configured driver names to registered database/sql drivers.
var drivers = map[string]string{
	"sqlserver": "sqlserver",
	"mssql":     "sqlserver",
	"postgres":  "postgres",
	"mysql":     "mysql",
	"sqlite":    "sqlite",
}

// DriverName resolves a configured driver name.
func DriverName(name string) (string, error) {
	d, ok := drivers[strings.ToLower(name)]
	if !ok {
		return "", fmt.Errorf("unsupported driver %q", name)
	}
	return d, nil
}

// ExpandDSN fills {server}, {database} and {label} in a DSN template.
func ExpandDSN(template string, source core.DataSource) string {
	return strings.NewReplacer(
		"{server}", source.Server,
		"{database}", source.Database,
		"{label}", source.Label,
	).Replace(template)
}

// SQLPool opens one *sql.DB per distinct DSN and reuses it for the run. A DSN
// that fails to connect is not retried until the pool is closed.
type SQLPool struct {
	driver      string
	template    string
	pingTimeout time.Duration
	logger      *zap.Logger

	group singleflight.Group

	mu   sync.Mutex
	dbs  map[string]*sql.DB
	errs map[string]error
}

// NewSQLPool creates a pool for the configured driver and DSN template.
func NewSQLPool(driver, dsnTemplate string, logger *zap.Logger) (*SQLPool, error) {
	name, err := DriverName(driver)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLPool{
		driver:      name,
		template:    dsnTemplate,
		pingTimeout: 15 * time.Second,
		logger:      logger,
		dbs:         make(map[string]*sql.DB),
		errs:        make(map[string]error),
	}, nil
}

// DB returns the pool for source, opening and pinging it on first use.
// Concurrent first calls for the same DSN share one connection attempt.
func (p *SQLPool) DB(ctx context.Context, source core.DataSource) (*sql.DB, error) {
	dsn := ExpandDSN(p.template, source)
	if db, err := p.cached(dsn); db != nil || err != nil {
		return db, err
	}

	v, err, _ := p.group.Do(dsn, func() (any, error) {
		if db, err := p.cached(dsn); db != nil || err != nil {
			return db, err
		}
		db, err := p.open(ctx, dsn, source)

		p.mu.Lock()
		defer p.mu.Unlock()
		if err != nil {
			p.errs[dsn] = err
			return nil, err
		}
		p.dbs[dsn] = db
		return db, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*sql.DB), nil
}

// cached returns the open pool or the recorded failure for dsn, or neither
// when dsn has not been tried.
func (p *SQLPool) cached(dsn string) (*sql.DB, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if db, ok := p.dbs[dsn]; ok {
		return db, nil
	}
	return nil, p.errs[dsn]
}

func (p *SQLPool) open(ctx context.Context, dsn string, source core.DataSource) (*sql.DB, error) {
	db, err := sql.Open(p.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", p.driver, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, p.pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to %s/%s: %w", source.Server, source.Database, err)
	}

	p.logger.Info("connected", zap.String("source", source.Label), zap.String("driver", p.driver))
	return db, nil
}

// Close closes every opened pool.
func (p *SQLPool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var first error
	for dsn, db := range p.dbs {
		if err := db.Close(); err != nil && first == nil {
			first = err
		}
		delete(p.dbs, dsn)
	}
	clear(p.errs)
	return first
}
