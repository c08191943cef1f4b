// Package query turns sanitized request parameters into parameterized SQL
// for the dataset entities.
package query

import (
	"fmt"
	"strings"
)

// Grammar is the syntax a filter value is written in.
type Grammar string

const (
	// GrammarIn is a pipe-delimited list matched with IN.
	GrammarIn Grammar = "in"
	// GrammarRange is a single number or a dash-delimited min-max pair.
	GrammarRange Grammar = "range"
	// GrammarFlag is a Y/N value compared against a flag column.
	GrammarFlag Grammar = "flag"
	// GrammarPresence is a Y/N value testing whether a column is set.
	GrammarPresence Grammar = "presence"
)

// IntRange restricts every list element to an integer interval.
type IntRange struct {
	Min     int   `yaml:"min"`
	Max     int   `yaml:"max"`
	Exclude []int `yaml:"exclude"`
}

// FilterSpec binds a request key to a grammar, a column and validation rules.
type FilterSpec struct {
	Key     string  `yaml:"key"`
	Grammar Grammar `yaml:"grammar"`
	Column  string  `yaml:"column"`
	// Suffix names the bound parameters of range and flag filters.
	Suffix string `yaml:"suffix"`

	// Validation rules, applied before the clause is built.
	Length   int       `yaml:"length"`    // exact length of every list element
	Allowed  []string  `yaml:"allowed"`   // accepted list elements
	FoldCase bool      `yaml:"fold_case"` // compare Allowed case-insensitively
	Integer  *IntRange `yaml:"integer"`   // integer bounds of every list element

	// NullMeansFalse makes a flag filter express N as "column IS NULL".
	NullMeansFalse bool `yaml:"null_means_false"`
}

// Case is a normalization applied to a lookup value.
type Case string

const (
	CaseNone  Case = ""
	CaseUpper Case = "upper"
	CaseLower Case = "lower"
)

// LookupKey is one required parameter of a lookup.
type LookupKey struct {
	Param   string    `yaml:"param"`
	Column  string    `yaml:"column"`
	Int     bool      `yaml:"int"`
	Case    Case      `yaml:"case"`
	Integer *IntRange `yaml:"integer"`
}

// Lookup is a fixed-shape query addressed by name, such as find-by-id.
type Lookup struct {
	Name  string      `yaml:"name"`
	Keys  []LookupKey `yaml:"keys"`
	Order string      `yaml:"order"` // empty means no ORDER BY
	Limit int         `yaml:"limit"` // 0 means unlimited
}

// Alias selects Column under a public name.
type Alias struct {
	Column string `yaml:"column"`
	As     string `yaml:"as"`
}

// Entity describes one queryable relation. Entities are read-only once loaded.
type Entity struct {
	Name         string       `yaml:"name"`
	Table        string       `yaml:"table"`
	ParentTag    string       `yaml:"parent_tag"`
	ChildTag     string       `yaml:"child_tag"`
	Columns      []string     `yaml:"columns"`
	Aliases      []Alias      `yaml:"aliases"`
	Derived      []string     `yaml:"derived"`
	DefaultOrder string       `yaml:"default_order"`
	Filters      []FilterSpec `yaml:"filters"`
	Lookups      []Lookup     `yaml:"lookups"`
}

// Lookup names used by the generator's convenience operations.
const (
	LookupByID = "by_id"
)

// SelectColumns returns the select list: allow-listed columns then aliases.
func (e *Entity) SelectColumns() []string {
	cols := make([]string, 0, len(e.Columns)+len(e.Aliases))
	cols = append(cols, e.Columns...)
	for _, a := range e.Aliases {
		cols = append(cols, a.Column+" AS "+a.As)
	}
	return cols
}

// Filter returns the filter spec registered for key.
func (e *Entity) Filter(key string) (FilterSpec, bool) {
	for _, f := range e.Filters {
		if f.Key == key {
			return f, true
		}
	}
	return FilterSpec{}, false
}

// FindLookup returns the lookup with the given name.
func (e *Entity) FindLookup(name string) (Lookup, bool) {
	for _, l := range e.Lookups {
		if l.Name == name {
			return l, true
		}
	}
	return Lookup{}, false
}

// HasColumn reports whether column may be referenced by filters and lookups.
func (e *Entity) HasColumn(column string) bool {
	for _, c := range e.Columns {
		if c == column {
			return true
		}
	}
	for _, a := range e.Aliases {
		if a.Column == column {
			return true
		}
	}
	for _, d := range e.Derived {
		if d == column {
			return true
		}
	}
	return false
}

// Validate checks the metadata invariants.
func (e *Entity) Validate() error {
	if e.Name == "" {
		return fmt.Errorf("entity name is required")
	}
	if e.Table == "" {
		return fmt.Errorf("entity %s: table is required", e.Name)
	}
	if len(e.Columns) == 0 && len(e.Aliases) == 0 {
		return fmt.Errorf("entity %s: at least one column is required", e.Name)
	}
	for _, c := range e.Columns {
		if !isIdentifier(c) {
			return fmt.Errorf("entity %s: invalid column %q", e.Name, c)
		}
	}
	for _, a := range e.Aliases {
		if !isIdentifier(a.Column) || !isIdentifier(a.As) {
			return fmt.Errorf("entity %s: invalid alias %q AS %q", e.Name, a.Column, a.As)
		}
	}

	seen := make(map[string]bool, len(e.Filters))
	for _, f := range e.Filters {
		if f.Key == "" {
			return fmt.Errorf("entity %s: filter key is required", e.Name)
		}
		if seen[f.Key] {
			return fmt.Errorf("entity %s: duplicate filter %q", e.Name, f.Key)
		}
		seen[f.Key] = true
		if !e.HasColumn(f.Column) {
			return fmt.Errorf("entity %s: filter %q references unknown column %q", e.Name, f.Key, f.Column)
		}
		switch f.Grammar {
		case GrammarIn, GrammarPresence:
		case GrammarRange, GrammarFlag:
			if !isParamName(f.Suffix) {
				return fmt.Errorf("entity %s: filter %q needs a parameter suffix", e.Name, f.Key)
			}
		default:
			return fmt.Errorf("entity %s: filter %q has unknown grammar %q", e.Name, f.Key, f.Grammar)
		}
		if f.Integer != nil && f.Integer.Min > f.Integer.Max {
			return fmt.Errorf("entity %s: filter %q has an empty integer range", e.Name, f.Key)
		}
	}

	for _, l := range e.Lookups {
		if l.Name == "" || len(l.Keys) == 0 {
			return fmt.Errorf("entity %s: lookups need a name and at least one key", e.Name)
		}
		for _, k := range l.Keys {
			if !isParamName(k.Param) {
				return fmt.Errorf("entity %s: lookup %s has invalid param %q", e.Name, l.Name, k.Param)
			}
			if !e.HasColumn(k.Column) {
				return fmt.Errorf("entity %s: lookup %s references unknown column %q", e.Name, l.Name, k.Column)
			}
		}
	}
	return nil
}

// isIdentifier accepts plain or backtick-quoted SQL identifiers.
func isIdentifier(s string) bool {
	if strings.HasPrefix(s, "`") && strings.HasSuffix(s, "`") && len(s) > 2 {
		s = s[1 : len(s)-1]
	}
	return isParamName(s)
}

func isParamName(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') &&
			(r < '0' || r > '9') && r != '_' {
			return false
		}
	}
	return true
}
