package query

import (
	"fmt"
	"sort"
	"strings"
)

// Descriptor is a complete parameterized statement. Statement uses :name
// placeholders; every value lives in Params.
type Descriptor struct {
	Statement string
	Params    map[string]any
}

// Key returns a stable identity for the descriptor, usable for caching and
// request coalescing.
func (d Descriptor) Key() string {
	names := make([]string, 0, len(d.Params))
	for name := range d.Params {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(d.Statement)
	for _, name := range names {
		fmt.Fprintf(&b, "\x00%s=%T:%v", name, d.Params[name], d.Params[name])
	}
	return b.String()
}
