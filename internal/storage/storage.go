// Package storage provides the API key store and the read-only dataset client.
package storage

import (
	"context"
	"errors"

	"github.com/good-yellow-bee/jpapi/internal/models"
	"github.com/good-yellow-bee/jpapi/internal/query"
)

// ErrNotFound is returned when a key does not exist.
var ErrNotFound = errors.New("not found")

// Storage is the main interface for key store operations.
type Storage interface {
	// Open initializes the database connection.
	Open() error
	// Close closes the database connection.
	Close() error
	// Migrate runs database migrations.
	Migrate() error

	APIKeys() APIKeyRepository
}

// APIKeyRepository defines operations for API key management.
type APIKeyRepository interface {
	Create(ctx context.Context, key *models.APIKey) error
	GetByID(ctx context.Context, id string) (*models.APIKey, error)
	GetByKeyHash(ctx context.Context, keyHash string) (*models.APIKey, error)
	List(ctx context.Context) ([]*models.APIKey, error)
	SetStatus(ctx context.Context, id string, status models.APIKeyStatus) error
	TouchLastUsed(ctx context.Context, id string) error
}

// Querier runs generated descriptors against the dataset.
type Querier interface {
	Query(ctx context.Context, d query.Descriptor) ([]models.Record, error)
}
