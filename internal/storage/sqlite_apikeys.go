package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/good-yellow-bee/jpapi/internal/models"
)

// sqliteAPIKeyRepo implements APIKeyRepository using SQLite.
type sqliteAPIKeyRepo struct {
	db *sql.DB
}

const apiKeyColumns = `id, name, email, usage, key_hash, status, created_at, updated_at, last_used_at`

// Create inserts a new API key.
func (r *sqliteAPIKeyRepo) Create(ctx context.Context, key *models.APIKey) error {
	if key.ID == "" {
		key.ID = uuid.New().String()
	}
	if key.Status == "" {
		key.Status = models.APIKeyPending
	}

	query := `
		INSERT INTO md_api_keys (id, name, email, usage, key_hash, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		key.ID,
		key.Name,
		key.Email,
		key.Usage,
		key.KeyHash,
		string(key.Status),
		key.CreatedAt,
		key.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert api key: %w", err)
	}

	return nil
}

// GetByID retrieves an API key by its id.
func (r *sqliteAPIKeyRepo) GetByID(ctx context.Context, id string) (*models.APIKey, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+apiKeyColumns+` FROM md_api_keys WHERE id = ?`, id)
	return scanAPIKey(row)
}

// GetByKeyHash retrieves an API key by the hash of its plaintext key.
func (r *sqliteAPIKeyRepo) GetByKeyHash(ctx context.Context, keyHash string) (*models.APIKey, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+apiKeyColumns+` FROM md_api_keys WHERE key_hash = ?`, keyHash)
	return scanAPIKey(row)
}

// List returns all API keys, newest first.
func (r *sqliteAPIKeyRepo) List(ctx context.Context) ([]*models.APIKey, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+apiKeyColumns+` FROM md_api_keys ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		key, err := scanAPIKey(rows)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// SetStatus changes the lifecycle state of a key.
func (r *sqliteAPIKeyRepo) SetStatus(ctx context.Context, id string, status models.APIKeyStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE md_api_keys SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("update api key status: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("api key %s: %w", id, ErrNotFound)
	}
	return nil
}

// TouchLastUsed records that the key was just used.
func (r *sqliteAPIKeyRepo) TouchLastUsed(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE md_api_keys SET last_used_at = ? WHERE id = ?`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("touch api key: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAPIKey(row rowScanner) (*models.APIKey, error) {
	var key models.APIKey
	var usage sql.NullString
	var status string
	var lastUsed sql.NullTime

	err := row.Scan(
		&key.ID,
		&key.Name,
		&key.Email,
		&usage,
		&key.KeyHash,
		&status,
		&key.CreatedAt,
		&key.UpdatedAt,
		&lastUsed,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan api key: %w", err)
	}

	key.Usage = usage.String
	key.Status = models.APIKeyStatus(status)
	if lastUsed.Valid {
		key.LastUsedAt = &lastUsed.Time
	}
	return &key, nil
}
