package query

import (
	"math"
	"strconv"
	"strings"
)

// parseInt accepts only an optional sign followed by decimal digits.
func parseInt(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// leadingInt returns the integer formed by the leading digits of s, or 0.
func leadingInt(s string) int {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}

// IntValue reads an optionally signed leading integer, so "5abc" is 5, "-5"
// is -5 and anything without leading digits is 0.
func IntValue(s string) int {
	if strings.HasPrefix(s, "-") {
		return -leadingInt(s[1:])
	}
	return leadingInt(strings.TrimPrefix(s, "+"))
}

// numericPrefix returns the longest prefix of s shaped like digits[.digits].
func numericPrefix(s string) string {
	end, dot := 0, false
	for end < len(s) {
		c := s[end]
		if c >= '0' && c <= '9' {
			end++
			continue
		}
		if c == '.' && !dot {
			dot = true
			end++
			continue
		}
		break
	}
	return s[:end]
}

// parseRangeNumber converts one range segment. Lenient mode mirrors the legacy
// behavior: the leading number is used and anything unparsable becomes 0.
func parseRangeNumber(s string, strict bool) (float64, error) {
	if strict {
		// Only plain decimals: ParseFloat alone would also take NaN, Inf and exponents.
		if s == "" || numericPrefix(s) != s {
			return 0, invalidf("%q is not a number", s)
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsInf(f, 0) {
			return 0, invalidf("%q is not a number", s)
		}
		return f, nil
	}
	prefix := numericPrefix(s)
	f, err := strconv.ParseFloat(prefix, 64)
	if err != nil {
		return 0, nil
	}
	return f, nil
}
