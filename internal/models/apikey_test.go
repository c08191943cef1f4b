package models

import (
	"regexp"
	"testing"
)

func TestNewAPIKey(t *testing.T) {
	key, plain, err := NewAPIKey("Jane", "jane@example.org", "mobile app")
	if err != nil {
		t.Fatalf("NewAPIKey() error = %v", err)
	}

	if !regexp.MustCompile(`^[0-9a-f]{32}$`).MatchString(plain) {
		t.Errorf("plain key %q should be 32 hex characters", plain)
	}
	if key.KeyHash != HashAPIKey(plain) {
		t.Error("stored hash does not match plain key")
	}
	if key.KeyHash == plain {
		t.Error("plain key must not be stored")
	}
	if key.Status != APIKeyPending || key.IsActive() {
		t.Errorf("new key status = %s, want pending", key.Status)
	}

	_, other, _ := NewAPIKey("Jane", "jane@example.org", "mobile app")
	if other == plain {
		t.Error("generated keys should differ")
	}
}

func TestParseAPIKeyStatus(t *testing.T) {
	for _, s := range []string{"pending", "active", "suspended"} {
		if _, err := ParseAPIKeyStatus(s); err != nil {
			t.Errorf("ParseAPIKeyStatus(%q) error = %v", s, err)
		}
	}
	if _, err := ParseAPIKeyStatus("deleted"); err == nil {
		t.Error("expected error for unknown status")
	}
}

func TestNewRecord(t *testing.T) {
	r := NewRecord([]string{"ROG3", "Population", "JF"}, []any{[]byte("US"), int64(330000000), nil})

	if v, ok := r.Get("ROG3"); !ok || v != "US" {
		t.Errorf("ROG3 = %v, %v", v, ok)
	}
	if v, _ := r.Get("Population"); v != int64(330000000) {
		t.Errorf("Population = %v", v)
	}
	if v, ok := r.Get("JF"); !ok || v != nil {
		t.Errorf("JF = %v, %v", v, ok)
	}
	if _, ok := r.Get("Missing"); ok {
		t.Error("unexpected column")
	}
	if r[0].Name != "ROG3" || r[2].Name != "JF" {
		t.Error("column order not preserved")
	}
}
