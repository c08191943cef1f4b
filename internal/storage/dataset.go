package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	// Production dataset driver.
	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/singleflight"

	"github.com/good-yellow-bee/jpapi/internal/metrics"
	"github.com/good-yellow-bee/jpapi/internal/models"
	"github.com/good-yellow-bee/jpapi/internal/query"
)

// DatasetConfig configures the read-only dataset connection.
type DatasetConfig struct {
	Driver          string        `yaml:"driver"` // mysql or sqlite
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	QueryTimeout    time.Duration `yaml:"query_timeout"`
}

// Dataset executes generated descriptors against the dataset database.
// Identical statements in flight at the same time share one round trip.
type Dataset struct {
	db      *sqlx.DB
	backend string
	timeout time.Duration
	group   singleflight.Group
}

var _ Querier = (*Dataset)(nil)

// OpenDataset connects to the dataset described by cfg.
func OpenDataset(ctx context.Context, cfg DatasetConfig) (*Dataset, error) {
	switch cfg.Driver {
	case "mysql", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported dataset driver %q", cfg.Driver)
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("dataset dsn is required")
	}

	db, err := sqlx.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}

	if cfg.Driver == "sqlite" {
		db.SetMaxOpenConns(1)
	} else if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, &unreachableError{err: err}
	}

	ds := NewDataset(db, cfg.Driver)
	ds.timeout = cfg.QueryTimeout
	return ds, nil
}

// unreachableError is a failed ping, as opposed to a bad configuration.
type unreachableError struct {
	err error
}

func (e *unreachableError) Error() string { return "ping dataset: " + e.err.Error() }
func (e *unreachableError) Unwrap() error { return e.err }

func isRetryable(err error) bool {
	var ue *unreachableError
	return errors.As(err, &ue)
}

// NewDataset wraps an open connection. backend labels metrics.
func NewDataset(db *sqlx.DB, backend string) *Dataset {
	return &Dataset{db: db, backend: backend}
}

// DB returns the underlying connection.
func (d *Dataset) DB() *sqlx.DB {
	return d.db
}

// Ping checks the dataset connection.
func (d *Dataset) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Close closes the dataset connection.
func (d *Dataset) Close() error {
	return d.db.Close()
}

// Query runs the descriptor and returns its rows in select order.
// The returned records may be shared with concurrent callers and must not be modified.
func (d *Dataset) Query(ctx context.Context, desc query.Descriptor) ([]models.Record, error) {
	v, err, shared := d.group.Do(desc.Key(), func() (any, error) {
		// Shared callers must not be failed by the first caller going away.
		qctx := context.WithoutCancel(ctx)
		if d.timeout > 0 {
			var cancel context.CancelFunc
			qctx, cancel = context.WithTimeout(qctx, d.timeout)
			defer cancel()
		}
		return d.query(qctx, desc)
	})
	if shared {
		metrics.StorageCoalescedTotal.WithLabelValues(d.backend).Inc()
	}
	if err != nil {
		return nil, err
	}
	return v.([]models.Record), nil
}

func (d *Dataset) query(ctx context.Context, desc query.Descriptor) ([]models.Record, error) {
	start := time.Now()
	defer func() {
		metrics.StorageQueryDuration.WithLabelValues("query", d.backend).Observe(time.Since(start).Seconds())
	}()

	statement, args, err := sqlx.Named(desc.Statement, desc.Params)
	if err != nil {
		metrics.StorageErrors.WithLabelValues("bind", d.backend).Inc()
		return nil, fmt.Errorf("bind named parameters: %w", err)
	}
	statement = d.db.Rebind(statement)

	rows, err := d.db.QueryxContext(ctx, statement, args...)
	if err != nil {
		metrics.StorageErrors.WithLabelValues("query", d.backend).Inc()
		return nil, fmt.Errorf("query dataset: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	records := make([]models.Record, 0)
	for rows.Next() {
		values, err := rows.SliceScan()
		if err != nil {
			metrics.StorageErrors.WithLabelValues("scan", d.backend).Inc()
			return nil, fmt.Errorf("scan row: %w", err)
		}
		records = append(records, models.NewRecord(columns, values))
	}
	if err := rows.Err(); err != nil {
		metrics.StorageErrors.WithLabelValues("query", d.backend).Inc()
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	metrics.StorageRowsReturned.WithLabelValues(d.backend).Observe(float64(len(records)))
	return records, nil
}
