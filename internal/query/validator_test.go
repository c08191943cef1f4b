package query

import (
	"errors"
	"testing"
)

func TestRequireKeysPresent(t *testing.T) {
	tests := []struct {
		name    string
		params  map[string]string
		keys    []string
		wantErr bool
	}{
		{"all present", map[string]string{"name": "John", "address": "122 East West"}, []string{"name", "address"}, false},
		{"missing key", map[string]string{"name": "John"}, []string{"name", "address"}, true},
		{"blank value", map[string]string{"name": "John", "address": "  "}, []string{"name", "address"}, true},
		{"empty value", map[string]string{"name": "", "address": "x"}, []string{"name"}, true},
		{"no keys", map[string]string{}, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := RequireKeysPresent(NewParams(tt.params), tt.keys...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("RequireKeysPresent() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrMissingRequiredParameter) {
				t.Errorf("error = %v, want kind %v", err, KindMissingRequiredParameter)
			}
		})
	}
}

func TestExactLength(t *testing.T) {
	if err := ExactLength("I Love Ice Cream!", 17); err != nil {
		t.Errorf("ExactLength() unexpected error: %v", err)
	}
	err := ExactLength("I Love Ice Cream!", 5)
	if !errors.Is(err, ErrInvalidFilterValue) {
		t.Errorf("ExactLength() error = %v, want invalid filter value", err)
	}
}

func TestAllPartsExactLength(t *testing.T) {
	if err := AllPartsExactLength("Freee|Treee|Keyee", 5); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := AllPartsExactLength("Freee|Treee|Key", 5); !errors.Is(err, ErrInvalidFilterValue) {
		t.Errorf("error = %v, want invalid filter value", err)
	}
	if err := AllPartsExactLength("af", 3); err == nil {
		t.Error("expected error for a 2 character continent")
	}
}

func TestAllPartsInAllowedSet(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		allowed  []string
		foldCase bool
		wantErr  bool
	}{
		{"all accepted", "2.3|34.4", []string{"2.3", "34.4"}, false, false},
		{"none accepted", "2.3|34.4", []string{"1.1", "5.4"}, false, true},
		{"one rejected", "afr|zzz", []string{"afr", "asi"}, false, true},
		{"case sensitive", "AFR", []string{"afr"}, false, true},
		{"case folded", "AFR|Asi", []string{"afr", "asi"}, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := AllPartsInAllowedSet(tt.value, tt.allowed, tt.foldCase)
			if (err != nil) != tt.wantErr {
				t.Errorf("AllPartsInAllowedSet() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestIntegerInRange(t *testing.T) {
	tests := []struct {
		value    string
		min, max int
		excluded []int
		wantErr  bool
	}{
		{"1", 1, 12, nil, false},
		{"12", 1, 12, nil, false},
		{"0", 1, 12, nil, true},
		{"13", 1, 12, nil, true},
		{"abc", 1, 12, nil, true},
		{"", 1, 12, nil, true},
		{"3", 1, 9, []int{3}, true},
		{"4", 1, 9, []int{3}, false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			err := IntegerInRange(tt.value, tt.min, tt.max, tt.excluded...)
			if (err != nil) != tt.wantErr {
				t.Errorf("IntegerInRange(%q) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidFilterValue) {
				t.Errorf("error kind = %v, want invalid filter value", err)
			}
		})
	}
}
