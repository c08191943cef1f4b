package cmd

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/good-yellow-bee/jpapi/internal/catalog"
	"github.com/good-yellow-bee/jpapi/internal/query"
)

func TestPrintStatement(t *testing.T) {
	cat, err := catalog.Default()
	if err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	err = printStatement(&out, cat, "countries", "", []string{"ids=us|ca", "limit=5"}, query.Options{}, "table")
	if err != nil {
		t.Fatalf("printStatement: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if !strings.Contains(lines[0], "WHERE ROG3 IN (:rog3_0, :rog3_1)") {
		t.Errorf("statement = %q", lines[0])
	}
	want := []string{"  :limit = 5", "  :rog3_0 = us", "  :rog3_1 = ca", "  :starting = 0"}
	if got := lines[1:]; strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("params =\n%s\nwant\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
}

func TestPrintStatement_LookupJSON(t *testing.T) {
	cat, err := catalog.Default()
	if err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	err = printStatement(&out, cat, "resources", "by_language_id", []string{"id=AAR"}, query.Options{}, "json")
	if err != nil {
		t.Fatalf("printStatement: %v", err)
	}

	var got struct {
		Statement string         `json:"statement"`
		Params    map[string]any `json:"params"`
	}
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(got.Statement, "ORDER BY DisplaySeq ASC") || got.Params["id"] != "aar" {
		t.Errorf("got %+v", got)
	}
}

func TestPrintStatement_Errors(t *testing.T) {
	cat, err := catalog.Default()
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		entity string
		lookup string
		pairs  []string
	}{
		{"unknown entity", "missions", "", nil},
		{"malformed pair", "countries", "", []string{"ids"}},
		{"invalid filter", "countries", "", []string{"ids=usa"}},
		{"missing lookup key", "countries", "by_id", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := printStatement(&bytes.Buffer{}, cat, tt.entity, tt.lookup, tt.pairs, query.Options{}, "table")
			if err == nil {
				t.Error("expected error")
			}
		})
	}
}
