package query

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
)

var (
	tagPattern        = regexp.MustCompile(`(?s)<!--.*?-->|<[^>]*>?`)
	disallowedPattern = regexp.MustCompile(`[^A-Za-z0-9.|\-]`)
)

// Params is the immutable, sanitized parameter map of one request.
type Params struct {
	values map[string]string
}

// NewParams copies m into a Params without sanitizing it.
func NewParams(m map[string]string) Params {
	values := make(map[string]string, len(m))
	for k, v := range m {
		values[k] = v
	}
	return Params{values: values}
}

// Sanitize builds Params from raw query values. Markup tags are stripped and
// every character outside [A-Za-z0-9.|-] is removed from each value. Only the
// first value of a repeated key is kept.
func Sanitize(raw url.Values) Params {
	values := make(map[string]string, len(raw))
	for k, vs := range raw {
		v := ""
		if len(vs) > 0 {
			v = vs[0]
		}
		values[k] = SanitizeValue(v)
	}
	return Params{values: values}
}

// SanitizeValue applies the value cleaning rules used by Sanitize.
func SanitizeValue(v string) string {
	v = tagPattern.ReplaceAllString(v, "")
	return disallowedPattern.ReplaceAllString(v, "")
}

// Exists reports whether key was supplied, even with an empty value.
func (p Params) Exists(key string) bool {
	_, ok := p.values[key]
	return ok
}

// Get returns the value for key and whether it was supplied.
func (p Params) Get(key string) (string, bool) {
	v, ok := p.values[key]
	return v, ok
}

// Value returns the value for key or "" when absent.
func (p Params) Value(key string) string {
	return p.values[key]
}

// With returns a copy of p with key set to value.
func (p Params) With(key, value string) Params {
	values := make(map[string]string, len(p.values)+1)
	for k, v := range p.values {
		values[k] = v
	}
	values[key] = value
	return Params{values: values}
}

// Keys returns the supplied keys in sorted order.
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p.values))
	for k := range p.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of supplied keys.
func (p Params) Len() int {
	return len(p.values)
}

func splitPipe(v string) []string {
	return strings.Split(v, "|")
}
