package query

import "testing"

func TestIntValue(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"abc", 0},
		{"5", 5},
		{"5abc", 5},
		{"12.7", 12},
		{"-5", -5},
		{"+7", 7},
		{"-", 0},
		{"99999999999999999999", 0},
	}
	for _, tt := range tests {
		if got := IntValue(tt.in); got != tt.want {
			t.Errorf("IntValue(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
