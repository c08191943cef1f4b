package health

import (
	"context"
	"database/sql"
	"errors"
)

// Pinger is satisfied by storage.Dataset.
type Pinger interface {
	Ping(ctx context.Context) error
}

// DatasetChecker reports whether the people group database answers.
type DatasetChecker struct {
	pinger Pinger
	driver string
}

// NewDatasetChecker checks p, reporting driver (mysql or sqlite) as the backend.
func NewDatasetChecker(p Pinger, driver string) *DatasetChecker {
	return &DatasetChecker{pinger: p, driver: driver}
}

func (c *DatasetChecker) Name() string    { return "dataset" }
func (c *DatasetChecker) Backend() string { return c.driver }

func (c *DatasetChecker) Check(ctx context.Context) error {
	if c.pinger == nil {
		return errors.New("dataset not configured")
	}
	return c.pinger.Ping(ctx)
}

// KeyStoreChecker reports whether the API key store can be read. Without it
// every /v1 request fails authentication.
type KeyStoreChecker struct {
	db *sql.DB
}

func NewKeyStoreChecker(db *sql.DB) *KeyStoreChecker {
	return &KeyStoreChecker{db: db}
}

func (c *KeyStoreChecker) Name() string    { return "api_keys" }
func (c *KeyStoreChecker) Backend() string { return "sqlite" }

func (c *KeyStoreChecker) Check(ctx context.Context) error {
	if c.db == nil {
		return errors.New("key store not open")
	}
	var n int
	return c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM md_api_keys").Scan(&n)
}
