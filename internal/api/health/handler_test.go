package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/good-yellow-bee/jpapi/internal/storage"
)

type fakePinger struct{ err error }

func (p fakePinger) Ping(ctx context.Context) error { return p.err }

func openKeyStore(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	store := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "keys.db"))
	if err := store.Open(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.Migrate(); err != nil {
		t.Fatal(err)
	}
	return store
}

func ready(t *testing.T, h *Handler) (int, Report) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.Ready(rec, httptest.NewRequest("GET", "/health/ready", nil))
	var report Report
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatal(err)
	}
	return rec.Code, report
}

func TestReady(t *testing.T) {
	store := openKeyStore(t)

	tests := []struct {
		name       string
		pinger     Pinger
		wantStatus int
		want       map[string]Dependency
	}{
		{
			name:       "all up",
			pinger:     fakePinger{},
			wantStatus: http.StatusOK,
			want: map[string]Dependency{
				"dataset":  {Status: StatusUp, Backend: "mysql"},
				"api_keys": {Status: StatusUp, Backend: "sqlite"},
			},
		},
		{
			name:       "dataset unreachable",
			pinger:     fakePinger{err: errors.New("connection refused")},
			wantStatus: http.StatusServiceUnavailable,
			want: map[string]Dependency{
				"dataset":  {Status: StatusDown, Backend: "mysql", Error: "connection refused"},
				"api_keys": {Status: StatusUp, Backend: "sqlite"},
			},
		},
		{
			name:       "dataset not configured",
			wantStatus: http.StatusServiceUnavailable,
			want: map[string]Dependency{
				"dataset":  {Status: StatusDown, Backend: "mysql", Error: "dataset not configured"},
				"api_keys": {Status: StatusUp, Backend: "sqlite"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler()
			h.RegisterChecker(NewDatasetChecker(tt.pinger, "mysql"))
			h.RegisterChecker(NewKeyStoreChecker(store.DB()))

			code, report := ready(t, h)
			if code != tt.wantStatus {
				t.Errorf("status = %d, want %d", code, tt.wantStatus)
			}
			if diff := cmp.Diff(tt.want, report.Dependencies, cmpopts.IgnoreFields(Dependency{}, "LatencyMS")); diff != "" {
				t.Errorf("dependencies mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReady_KeyStoreClosed(t *testing.T) {
	store := openKeyStore(t)
	db := store.DB()
	store.Close()

	h := NewHandler()
	h.RegisterChecker(NewKeyStoreChecker(db))

	code, report := ready(t, h)
	if code != http.StatusServiceUnavailable || report.Status != "not_ready" {
		t.Errorf("got %d %q, want 503 not_ready", code, report.Status)
	}
	if report.Dependencies["api_keys"].Error == "" {
		t.Error("expected key store error")
	}
}

func TestKeyStoreChecker_NilDB(t *testing.T) {
	if err := NewKeyStoreChecker(nil).Check(context.Background()); err == nil {
		t.Error("expected error for nil database")
	}
}

func TestLiveAndHealth(t *testing.T) {
	h := NewHandler()
	for path, handler := range map[string]http.HandlerFunc{"/health/live": h.Live, "/health": h.Health} {
		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest("GET", path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d", path, rec.Code)
		}
		var report Report
		if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
			t.Fatal(err)
		}
		if report.Version == "" || report.Dependencies != nil {
			t.Errorf("%s report = %+v", path, report)
		}
	}
}
