package query

import "math"

// DefaultLimit is the page size used when the request does not supply one.
const DefaultLimit = 100

// Options tune generator behavior that is a deployment decision.
type Options struct {
	// DefaultLimit overrides DefaultLimit when positive.
	DefaultLimit int
	// LegacyPageOffset computes the offset as page*limit-1, as the first
	// API release did, instead of (page-1)*limit.
	LegacyPageOffset bool
	// StrictNumbers rejects non-numeric range segments instead of reading them as 0.
	StrictNumbers bool
}

// Page is the LIMIT window of a list query.
type Page struct {
	Offset int
	Limit  int
}

// Paginate reads the limit and page parameters. Values that are not positive
// integers fall back to the defaults without an error.
func Paginate(p Params, opts Options) Page {
	limit := opts.DefaultLimit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if v, ok := p.Get("limit"); ok {
		if n := leadingInt(v); n > 0 {
			limit = n
		}
	}

	offset := 0
	if v, ok := p.Get("page"); ok {
		if n := leadingInt(v); n > 0 {
			if opts.LegacyPageOffset {
				offset = pageOffset(n, limit) - 1
			} else {
				offset = pageOffset(n-1, limit)
			}
		}
	}
	return Page{Offset: offset, Limit: limit}
}

// pageOffset returns pages*limit, saturating at math.MaxInt so a page past
// the end of the data yields an empty window rather than a negative offset.
func pageOffset(pages, limit int) int {
	if pages > 0 && pages > math.MaxInt/limit {
		return math.MaxInt
	}
	return pages * limit
}
