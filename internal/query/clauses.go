package query

import (
	"fmt"
	"strings"
)

// Clause is one condition fragment and the parameters it binds.
type Clause struct {
	SQL    string
	Params map[string]any
}

// BuildInClause turns a pipe-delimited value into "column IN (...)" with one
// uniquely named parameter per element, bound in input order.
func BuildInClause(pipeValue, column string) Clause {
	prefix := paramPrefix(column)
	parts := splitPipe(pipeValue)
	placeholders := make([]string, len(parts))
	params := make(map[string]any, len(parts))
	for i, part := range parts {
		name := fmt.Sprintf("%s_%d", prefix, i)
		placeholders[i] = ":" + name
		params[name] = part
	}
	return Clause{
		SQL:    fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ", ")),
		Params: params,
	}
}

// BuildRangeClause turns "n" into an equality and "min-max" into a BETWEEN.
func BuildRangeClause(dashValue, column, suffix string, strict bool) (Clause, error) {
	parts := strings.Split(dashValue, "-")
	switch len(parts) {
	case 1:
		total, err := parseRangeNumber(parts[0], strict)
		if err != nil {
			return Clause{}, err
		}
		name := "total_" + suffix
		return Clause{
			SQL:    fmt.Sprintf("%s = :%s", column, name),
			Params: map[string]any{name: total},
		}, nil
	case 2:
		min, err := parseRangeNumber(parts[0], strict)
		if err != nil {
			return Clause{}, err
		}
		max, err := parseRangeNumber(parts[1], strict)
		if err != nil {
			return Clause{}, err
		}
		if min >= max {
			return Clause{}, &Error{Kind: KindInvertedRange, Message: ErrInvertedRange.Message}
		}
		minName, maxName := "min_"+suffix, "max_"+suffix
		return Clause{
			SQL:    fmt.Sprintf("%s BETWEEN :%s AND :%s", column, minName, maxName),
			Params: map[string]any{minName: min, maxName: max},
		}, nil
	default:
		return Clause{}, &Error{Kind: KindAmbiguousRangeSyntax, Message: ErrAmbiguousRangeSyntax.Message}
	}
}

// BuildBooleanClause compares column against a Y/N flag. When nullMeansFalse
// is set, N is expressed as "column IS NULL" with nothing bound.
func BuildBooleanClause(flagValue, column, suffix string, nullMeansFalse bool) (Clause, error) {
	switch strings.ToUpper(flagValue) {
	case "Y":
		return Clause{
			SQL:    fmt.Sprintf("%s = :%s", column, suffix),
			Params: map[string]any{suffix: "Y"},
		}, nil
	case "N":
		if nullMeansFalse {
			return Clause{SQL: column + " IS NULL"}, nil
		}
		return Clause{
			SQL:    fmt.Sprintf("%s = :%s", column, suffix),
			Params: map[string]any{suffix: "N"},
		}, nil
	default:
		return Clause{}, invalidf("%q is not a valid flag, use Y or N", flagValue)
	}
}

// BuildPresenceClause tests whether column holds a value (Y) or not (N).
func BuildPresenceClause(flagValue, column string) (Clause, error) {
	switch strings.ToUpper(flagValue) {
	case "Y":
		return Clause{SQL: column + " IS NOT NULL"}, nil
	case "N":
		return Clause{SQL: column + " IS NULL"}, nil
	default:
		return Clause{}, invalidf("%q is not a valid flag, use Y or N", flagValue)
	}
}

// paramPrefix lowercases a column name and drops spaces and identifier quotes
// so it can be used in a placeholder name.
func paramPrefix(column string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '`', '"':
			return -1
		}
		return r
	}, strings.ToLower(column))
}
