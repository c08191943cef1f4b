package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/good-yellow-bee/jpapi/internal/models"
)

// mockAPIKeyRepository is an in-memory APIKeyRepository.
type mockAPIKeyRepository struct {
	keys     map[string]*models.APIKey // by hash
	getError error
	touched  []string
}

func newMockRepo() *mockAPIKeyRepository {
	return &mockAPIKeyRepository{keys: make(map[string]*models.APIKey)}
}

func (m *mockAPIKeyRepository) add(t *testing.T, status models.APIKeyStatus) string {
	t.Helper()
	key, plain, err := models.NewAPIKey("test", "test@example.org", "")
	if err != nil {
		t.Fatal(err)
	}
	key.ID = string(status) + "-id"
	key.Status = status
	m.keys[key.KeyHash] = key
	return plain
}

func (m *mockAPIKeyRepository) Create(ctx context.Context, key *models.APIKey) error {
	m.keys[key.KeyHash] = key
	return nil
}

func (m *mockAPIKeyRepository) GetByID(ctx context.Context, id string) (*models.APIKey, error) {
	for _, k := range m.keys {
		if k.ID == id {
			return k, nil
		}
	}
	return nil, nil
}

func (m *mockAPIKeyRepository) GetByKeyHash(ctx context.Context, keyHash string) (*models.APIKey, error) {
	if m.getError != nil {
		return nil, m.getError
	}
	return m.keys[keyHash], nil
}

func (m *mockAPIKeyRepository) List(ctx context.Context) ([]*models.APIKey, error) {
	var out []*models.APIKey
	for _, k := range m.keys {
		out = append(out, k)
	}
	return out, nil
}

func (m *mockAPIKeyRepository) SetStatus(ctx context.Context, id string, status models.APIKeyStatus) error {
	return nil
}

func (m *mockAPIKeyRepository) TouchLastUsed(ctx context.Context, id string) error {
	m.touched = append(m.touched, id)
	return nil
}

func TestAPIKeyAuth(t *testing.T) {
	repo := newMockRepo()
	active := repo.add(t, models.APIKeyActive)
	pending := repo.add(t, models.APIKeyPending)
	suspended := repo.add(t, models.APIKeySuspended)

	tests := []struct {
		name       string
		url        string
		wantStatus int
		wantBody   string
	}{
		{"active key", "/v1/countries.json?api_key=" + active, http.StatusOK, "ok"},
		{"missing key", "/v1/countries.json", http.StatusUnauthorized, "missing your API key"},
		{"blank key", "/v1/countries.json?api_key=", http.StatusUnauthorized, "missing your API key"},
		{"unknown key", "/v1/countries.json?api_key=deadbeef", http.StatusUnauthorized, "invalid"},
		{"pending key", "/v1/countries.json?api_key=" + pending, http.StatusUnauthorized, "not been activated"},
		{"suspended key", "/v1/countries.xml?api_key=" + suspended, http.StatusUnauthorized, "<code>UNAUTHORIZED</code>"},
		{"key with markup", "/v1/countries.json?api_key=%3Cb%3E" + active + "%3C/b%3E", http.StatusOK, "ok"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got *models.APIKey
			handler := APIKeyAuth(repo)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = GetAPIKey(r.Context())
				w.Write([]byte("ok"))
			}))

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest("GET", tt.url, nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body = %q, want to contain %q", rec.Body.String(), tt.wantBody)
			}
			if tt.wantStatus == http.StatusOK && (got == nil || got.ID != "active-id") {
				t.Errorf("context key = %+v", got)
			}
		})
	}
}

func TestAPIKeyAuth_TouchesLastUsed(t *testing.T) {
	repo := newMockRepo()
	plain := repo.add(t, models.APIKeyActive)
	handler := APIKeyAuth(repo)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/v1/languages.json?api_key="+plain, nil))
	if len(repo.touched) != 1 {
		t.Fatalf("touched %d times, want 1", len(repo.touched))
	}

	now := time.Now()
	repo.keys[models.HashAPIKey(plain)].LastUsedAt = &now
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/v1/languages.json?api_key="+plain, nil))
	if len(repo.touched) != 1 {
		t.Errorf("recently used key touched again")
	}
}

func TestAPIKeyAuth_StorageError(t *testing.T) {
	repo := newMockRepo()
	repo.getError = errors.New("database is locked")
	handler := APIKeyAuth(repo)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/v1/countries.json?api_key=abc", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestContextHelpers_Empty(t *testing.T) {
	if GetAPIKey(context.Background()) != nil {
		t.Error("expected nil key on empty context")
	}
}
