package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/good-yellow-bee/jpapi/internal/query"
)

func mustDefault(t *testing.T) *Catalog {
	t.Helper()
	c, err := Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}
	return c
}

func TestDefault_DefinesAllEntities(t *testing.T) {
	c := mustDefault(t)
	want := []string{Countries, Languages, PeopleGroups, Resources}
	if diff := cmp.Diff(want, c.Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}
	if err := c.Require(want...); err != nil {
		t.Error(err)
	}
	if err := c.Require("missions"); err == nil {
		t.Error("expected error for undefined entity")
	}
}

func TestDefault_XMLTags(t *testing.T) {
	c := mustDefault(t)
	tests := map[string][2]string{
		PeopleGroups: {"people_groups", "people_group"},
		Countries:    {"countries", "country"},
		Languages:    {"languages", "language"},
		Resources:    {"resources", "resource"},
	}
	for name, tags := range tests {
		e := c.MustGet(name)
		if e.ParentTag != tags[0] || e.ChildTag != tags[1] {
			t.Errorf("%s tags = %s/%s, want %s/%s", name, e.ParentTag, e.ChildTag, tags[0], tags[1])
		}
	}
}

func generate(t *testing.T, entity string, params map[string]string) (query.Descriptor, error) {
	t.Helper()
	e := mustDefault(t).MustGet(entity)
	return query.NewGenerator(e, query.NewParams(params), query.Options{}).FindAllWithFilters()
}

func TestCountries_Filters(t *testing.T) {
	d, err := generate(t, Countries, map[string]string{"population": "10000-20000"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(d.Statement, " WHERE Population BETWEEN :min_pop AND :max_pop ORDER BY Ctry ASC LIMIT :starting, :limit") {
		t.Errorf("Statement = %q", d.Statement)
	}
	if d.Params["min_pop"] != float64(10000) || d.Params["max_pop"] != float64(20000) {
		t.Errorf("Params = %v", d.Params)
	}

	d, err = generate(t, Countries, map[string]string{"population": "600"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(d.Statement, "WHERE Population = :total_pop") || d.Params["total_pop"] != float64(600) {
		t.Errorf("exact population: %q %v", d.Statement, d.Params)
	}

	d, err = generate(t, Countries, map[string]string{"pc_other_religion": "1-5", "pc_other_christian": "2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(d.Statement, "PercentOtherSmall BETWEEN :min_pc_other_religion AND :max_pc_other_religion AND PercentOther = :total_pc_other_christian") {
		t.Errorf("Statement = %q", d.Statement)
	}
}

func TestCountries_Window1040BindsFlag(t *testing.T) {
	d, err := generate(t, Countries, map[string]string{"window1040": "N"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(d.Statement, "WHERE `10_40Window` = :window_10_40 ORDER BY") {
		t.Errorf("Statement = %q", d.Statement)
	}
	if strings.Contains(d.Statement, "IS NULL") {
		t.Errorf("countries flag must not use the null form: %q", d.Statement)
	}
	if d.Params["window_10_40"] != "N" {
		t.Errorf("Params = %v", d.Params)
	}
}

func TestCountries_Continents(t *testing.T) {
	tests := []struct {
		value   string
		wantErr bool
	}{
		{"afr", false},
		{"AFR|Eur", false},
		{"afr|zzz", true},
		{"af", true},
		{"afri", true},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			d, err := generate(t, Countries, map[string]string{"continents": tt.value})
			if tt.wantErr {
				if !errors.Is(err, query.ErrInvalidFilterValue) {
					t.Fatalf("error = %v, want invalid filter value", err)
				}
				if d.Statement != "" {
					t.Errorf("descriptor returned on failure: %q", d.Statement)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.Contains(d.Statement, "ROG2 IN (:rog2_0") {
				t.Errorf("Statement = %q", d.Statement)
			}
		})
	}
}

func TestLanguages_Filters(t *testing.T) {
	d, err := generate(t, Languages, map[string]string{"ids": "bzw|bjf"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(d.Statement, "WHERE ROL3 IN (:rol3_0, :rol3_1) ORDER BY Language ASC") {
		t.Errorf("Statement = %q", d.Statement)
	}
	want := map[string]any{"rol3_0": "bzw", "rol3_1": "bjf", "starting": 0, "limit": 100}
	if diff := cmp.Diff(want, d.Params); diff != "" {
		t.Errorf("Params mismatch (-want +got):\n%s", diff)
	}

	if _, err := generate(t, Languages, map[string]string{"ids": "bzwp"}); !errors.Is(err, query.ErrInvalidFilterValue) {
		t.Errorf("ids=bzwp error = %v, want invalid filter value", err)
	}

	d, err = generate(t, Languages, map[string]string{
		"has_new_testament":              "y",
		"has_four_laws":                  "N",
		"needs_translation_questionable": "Y",
		"world_speakers":                 "100-5000",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantWhere := "WHERE `4Laws` = :has_four_laws AND NTYear IS NOT NULL AND " +
		"TranslationNeedQuestionable = :questionable_need AND WorldSpeakers BETWEEN :min_world_speak AND :max_world_speak"
	if !strings.Contains(d.Statement, wantWhere) {
		t.Errorf("Statement = %q\nwant to contain %q", d.Statement, wantWhere)
	}
	if d.Params["has_four_laws"] != "N" || d.Params["questionable_need"] != "Y" {
		t.Errorf("Params = %v", d.Params)
	}

	if _, err := generate(t, Languages, map[string]string{"jpscale": "1.1|4.0"}); !errors.Is(err, query.ErrInvalidFilterValue) {
		t.Errorf("jpscale error = %v, want invalid filter value", err)
	}
}

func TestPeopleGroups_Filters(t *testing.T) {
	d, err := generate(t, PeopleGroups, map[string]string{
		"window1040":        "N",
		"countries":         "US|CA",
		"pc_adherent":       "10-20",
		"primary_religions": "1|2|4",
		"limit":             "10",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantWhere := "WHERE `10_40Window` IS NULL AND ROG3 IN (:rog3_0, :rog3_1) AND " +
		"PercentAdherents BETWEEN :min_pc_adherents AND :max_pc_adherents AND RLG3 IN (:rlg3_0, :rlg3_1, :rlg3_2) " +
		"ORDER BY PeopleID1 ASC LIMIT :starting, :limit"
	if !strings.Contains(d.Statement, wantWhere) {
		t.Errorf("Statement = %q\nwant to contain %q", d.Statement, wantWhere)
	}
	if !strings.Contains(d.Statement, "`10_40Window` AS Window10_40 FROM jppeoples") {
		t.Errorf("alias missing from select: %q", d.Statement)
	}
	if d.Params["limit"] != 10 || d.Params["starting"] != 0 {
		t.Errorf("pagination params = %v", d.Params)
	}

	for _, bad := range []map[string]string{
		{"primary_religions": "3"},
		{"regions": "0"},
		{"languages": "en"},
		{"window1040": "maybe"},
	} {
		if _, err := generate(t, PeopleGroups, bad); !errors.Is(err, query.ErrInvalidFilterValue) {
			t.Errorf("%v: error = %v, want invalid filter value", bad, err)
		}
	}
}

func TestPeopleGroups_Lookups(t *testing.T) {
	e := mustDefault(t).MustGet(PeopleGroups)

	d, err := query.NewGenerator(e, query.NewParams(map[string]string{"id": "100", "country": "us"}), query.Options{}).
		FindByIDAndSecondaryKey("country")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasSuffix(d.Statement, "FROM jppeoples WHERE PeopleID3 = :id AND ROG3 = :country LIMIT 1") {
		t.Errorf("Statement = %q", d.Statement)
	}
	if diff := cmp.Diff(map[string]any{"id": 100, "country": "US"}, d.Params); diff != "" {
		t.Errorf("Params mismatch (-want +got):\n%s", diff)
	}

	_, err = query.NewGenerator(e, query.NewParams(map[string]string{"id": "100"}), query.Options{}).
		FindByIDAndSecondaryKey("country")
	if !errors.Is(err, query.ErrMissingRequiredParameter) {
		t.Errorf("missing country error = %v", err)
	}
}

func TestResources_ByLanguageID(t *testing.T) {
	e := mustDefault(t).MustGet(Resources)
	d, err := query.NewGenerator(e, query.NewParams(map[string]string{"id": "BZW"}), query.Options{}).Lookup("by_language_id")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "SELECT ROL3, Category, WebText, URL FROM jpresources WHERE ROL3 = :id ORDER BY DisplaySeq ASC"
	if d.Statement != want {
		t.Errorf("Statement = %q, want %q", d.Statement, want)
	}
	if d.Params["id"] != "bzw" {
		t.Errorf("id = %v, want bzw", d.Params["id"])
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "entities.yaml")
	content := `entities:
  - name: countries
    table: jpcountries
    columns: [ROG3, Ctry]
    default_order: Ctry ASC
    filters:
      - {key: ids, grammar: in, column: ROG3, length: 2}
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if diff := cmp.Diff([]string{Countries}, c.Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"empty": `entities: []`,
		"unknown column": `entities:
  - name: countries
    table: jpcountries
    columns: [ROG3]
    filters:
      - {key: ids, grammar: in, column: Password}
`,
		"duplicate entity": `entities:
  - {name: countries, table: jpcountries, columns: [ROG3]}
  - {name: countries, table: jpcountries, columns: [ROG3]}
`,
		"unknown field": `entities:
  - {name: countries, table: jpcountries, columns: [ROG3], colour: red}
`,
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadFromReader(strings.NewReader(content)); err == nil {
				t.Error("expected error")
			}
		})
	}
}
