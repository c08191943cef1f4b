package query

import (
	"strings"
	"unicode/utf8"
)

// RequireKeysPresent fails when any key is missing or blank.
func RequireKeysPresent(p Params, keys ...string) error {
	for _, key := range keys {
		v, ok := p.Get(key)
		if !ok || strings.TrimSpace(v) == "" {
			return &Error{
				Kind:    KindMissingRequiredParameter,
				Key:     key,
				Message: "missing the required parameter " + key,
			}
		}
	}
	return nil
}

// ExactLength fails unless value is exactly n characters long.
func ExactLength(value string, n int) error {
	if utf8.RuneCountInString(value) != n {
		return invalidf("one of your parameters is not the correct length, expected %d characters", n)
	}
	return nil
}

// AllPartsExactLength applies ExactLength to every pipe-delimited part.
func AllPartsExactLength(pipeValue string, n int) error {
	for _, part := range splitPipe(pipeValue) {
		if err := ExactLength(part, n); err != nil {
			return err
		}
	}
	return nil
}

// AllPartsInAllowedSet fails if any pipe-delimited part is not in allowed.
// With foldCase the comparison ignores case.
func AllPartsInAllowedSet(pipeValue string, allowed []string, foldCase bool) error {
	for _, part := range splitPipe(pipeValue) {
		if !containsValue(allowed, part, foldCase) {
			return invalidf("%q is not an accepted value", part)
		}
	}
	return nil
}

// IntegerInRange fails unless value parses to an integer within [min, max]
// that is not one of excluded.
func IntegerInRange(value string, min, max int, excluded ...int) error {
	n, ok := parseInt(value)
	if !ok || n < min || n > max {
		return invalidf("%q is out of range %d-%d", value, min, max)
	}
	for _, ex := range excluded {
		if n == ex {
			return invalidf("%q is not allowed", value)
		}
	}
	return nil
}

func containsValue(allowed []string, v string, foldCase bool) bool {
	for _, a := range allowed {
		if a == v || (foldCase && strings.EqualFold(a, v)) {
			return true
		}
	}
	return false
}
