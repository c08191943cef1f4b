package models

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"
)

// APIKeyStatus is the lifecycle state of an API key.
type APIKeyStatus string

const (
	APIKeyPending   APIKeyStatus = "pending"
	APIKeyActive    APIKeyStatus = "active"
	APIKeySuspended APIKeyStatus = "suspended"
)

// ParseAPIKeyStatus converts a string to an APIKeyStatus.
func ParseAPIKeyStatus(s string) (APIKeyStatus, error) {
	switch APIKeyStatus(s) {
	case APIKeyPending, APIKeyActive, APIKeySuspended:
		return APIKeyStatus(s), nil
	}
	return "", fmt.Errorf("invalid api key status %q", s)
}

// APIKey identifies a consumer of the API.
type APIKey struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Email      string       `json:"email"`
	Usage      string       `json:"usage"`
	KeyHash    string       `json:"-"` // SHA-256 hash of the actual key
	Status     APIKeyStatus `json:"status"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
	LastUsedAt *time.Time   `json:"last_used_at,omitempty"`
}

// NewAPIKey creates a pending APIKey with a generated key.
// Returns the key model and the plaintext key to hand to the consumer.
func NewAPIKey(name, email, usage string) (*APIKey, string, error) {
	keyBytes := make([]byte, 16)
	if _, err := rand.Read(keyBytes); err != nil {
		return nil, "", err
	}

	// Hex survives request parameter sanitizing unchanged.
	plainKey := hex.EncodeToString(keyBytes)

	now := time.Now()
	return &APIKey{
		Name:      name,
		Email:     email,
		Usage:     usage,
		KeyHash:   HashAPIKey(plainKey),
		Status:    APIKeyPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, plainKey, nil
}

// HashAPIKey creates a SHA-256 hash of a plaintext key for lookup.
func HashAPIKey(plainKey string) string {
	hash := sha256.Sum256([]byte(plainKey))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}

// IsActive returns true if the key may be used.
func (k *APIKey) IsActive() bool {
	return k.Status == APIKeyActive
}
