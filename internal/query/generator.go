package query

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// Generator builds descriptors for one entity from one request's parameters.
// It holds no mutable state, so every operation starts from scratch and
// repeated calls return identical descriptors.
type Generator struct {
	entity *Entity
	params Params
	opts   Options
}

// NewGenerator creates a generator for a single request.
func NewGenerator(entity *Entity, params Params, opts Options) *Generator {
	return &Generator{entity: entity, params: params, opts: opts}
}

// Entity returns the metadata the generator was built with.
func (g *Generator) Entity() *Entity {
	return g.entity
}

// FindAllWithFilters applies every recognized filter in entity order, then the
// default order and the LIMIT window. Unrecognized keys are ignored.
func (g *Generator) FindAllWithFilters() (Descriptor, error) {
	sel := g.selectBuilder()
	bound := make(map[string]any)

	for _, f := range g.entity.Filters {
		value, ok := g.params.Get(f.Key)
		if !ok {
			continue
		}
		if err := validateFilter(f, value); err != nil {
			return Descriptor{}, withKey(err, f.Key)
		}
		clause, err := buildFilterClause(f, value, g.opts.StrictNumbers)
		if err != nil {
			return Descriptor{}, withKey(err, f.Key)
		}
		if err := bind(bound, clause.Params); err != nil {
			return Descriptor{}, err
		}
		sel = sel.Where(clause.SQL)
	}

	if g.entity.DefaultOrder != "" {
		sel = sel.OrderBy(g.entity.DefaultOrder)
	}

	page := Paginate(g.params, g.opts)
	sel = sel.Suffix("LIMIT :starting, :limit")
	if err := bind(bound, map[string]any{"starting": page.Offset, "limit": page.Limit}); err != nil {
		return Descriptor{}, err
	}

	return g.finish(sel, bound)
}

// FindByID runs the entity's by_id lookup.
func (g *Generator) FindByID() (Descriptor, error) {
	return g.Lookup(LookupByID)
}

// FindByIDAndSecondaryKey runs the by_id_and_<secondary> lookup, for example
// a people group by id and country.
func (g *Generator) FindByIDAndSecondaryKey(secondary string) (Descriptor, error) {
	return g.Lookup(LookupByID + "_and_" + secondary)
}

// Lookup builds the named fixed-shape query. Every key is required.
func (g *Generator) Lookup(name string) (Descriptor, error) {
	lookup, ok := g.entity.FindLookup(name)
	if !ok {
		return Descriptor{}, fmt.Errorf("entity %s has no lookup %q", g.entity.Name, name)
	}

	required := make([]string, len(lookup.Keys))
	for i, k := range lookup.Keys {
		required[i] = k.Param
	}
	if err := RequireKeysPresent(g.params, required...); err != nil {
		return Descriptor{}, err
	}

	sel := g.selectBuilder()
	bound := make(map[string]any, len(lookup.Keys))
	for _, k := range lookup.Keys {
		value, err := lookupValue(k, g.params.Value(k.Param))
		if err != nil {
			return Descriptor{}, withKey(err, k.Param)
		}
		if err := bind(bound, map[string]any{k.Param: value}); err != nil {
			return Descriptor{}, err
		}
		sel = sel.Where(fmt.Sprintf("%s = :%s", k.Column, k.Param))
	}

	if lookup.Order != "" {
		sel = sel.OrderBy(lookup.Order)
	}
	if lookup.Limit > 0 {
		sel = sel.Suffix(fmt.Sprintf("LIMIT %d", lookup.Limit))
	}

	return g.finish(sel, bound)
}

func (g *Generator) selectBuilder() sq.SelectBuilder {
	return sq.Select(g.entity.SelectColumns()...).From(g.entity.Table)
}

func (g *Generator) finish(sel sq.SelectBuilder, bound map[string]any) (Descriptor, error) {
	statement, _, err := sel.ToSql()
	if err != nil {
		return Descriptor{}, fmt.Errorf("build %s statement: %w", g.entity.Name, err)
	}
	return Descriptor{Statement: statement, Params: bound}, nil
}

// validateFilter applies the configured rules to a raw value before any
// clause is built.
func validateFilter(f FilterSpec, value string) error {
	switch f.Grammar {
	case GrammarFlag, GrammarPresence:
		return ExactLength(value, 1)
	case GrammarIn:
		if f.Length > 0 {
			if err := AllPartsExactLength(value, f.Length); err != nil {
				return err
			}
		}
		if len(f.Allowed) > 0 {
			if err := AllPartsInAllowedSet(value, f.Allowed, f.FoldCase); err != nil {
				return err
			}
		}
		if f.Integer != nil {
			for _, part := range splitPipe(value) {
				if err := IntegerInRange(part, f.Integer.Min, f.Integer.Max, f.Integer.Exclude...); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func buildFilterClause(f FilterSpec, value string, strict bool) (Clause, error) {
	switch f.Grammar {
	case GrammarIn:
		return BuildInClause(value, f.Column), nil
	case GrammarRange:
		return BuildRangeClause(value, f.Column, f.Suffix, strict)
	case GrammarFlag:
		return BuildBooleanClause(value, f.Column, f.Suffix, f.NullMeansFalse)
	case GrammarPresence:
		return BuildPresenceClause(value, f.Column)
	default:
		return Clause{}, fmt.Errorf("unknown grammar %q", f.Grammar)
	}
}

func lookupValue(k LookupKey, raw string) (any, error) {
	if k.Int {
		n := leadingInt(raw)
		if k.Integer != nil && (n < k.Integer.Min || n > k.Integer.Max) {
			return nil, invalidf("%q is out of range %d-%d", raw, k.Integer.Min, k.Integer.Max)
		}
		return n, nil
	}
	switch k.Case {
	case CaseUpper:
		return strings.ToUpper(raw), nil
	case CaseLower:
		return strings.ToLower(raw), nil
	}
	return raw, nil
}

// bind copies params into bound, refusing to rebind a name.
func bind(bound, params map[string]any) error {
	for name, v := range params {
		if _, exists := bound[name]; exists {
			return fmt.Errorf("parameter %q bound twice", name)
		}
		bound[name] = v
	}
	return nil
}
