package query

import "fmt"

// Kind classifies a query construction failure.
type Kind int

const (
	// KindMissingRequiredParameter means a mandatory key for a lookup is absent.
	KindMissingRequiredParameter Kind = iota + 1
	// KindInvalidFilterValue means a present value failed shape validation.
	KindInvalidFilterValue
	// KindAmbiguousRangeSyntax means a range value has more than two dash-delimited parts.
	KindAmbiguousRangeSyntax
	// KindInvertedRange means a range minimum is not below its maximum.
	KindInvertedRange
)

func (k Kind) String() string {
	switch k {
	case KindMissingRequiredParameter:
		return "missing_required_parameter"
	case KindInvalidFilterValue:
		return "invalid_filter_value"
	case KindAmbiguousRangeSyntax:
		return "ambiguous_range_syntax"
	case KindInvertedRange:
		return "inverted_range"
	default:
		return "unknown"
	}
}

// Error is returned by every validator, clause builder and generator operation.
type Error struct {
	Kind    Kind
	Key     string // filter key being processed, empty when not known
	Message string
}

func (e *Error) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s: %s", e.Key, e.Message)
	}
	return e.Message
}

// Is reports kind equality. Range syntax failures are also invalid filter values.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind == e.Kind {
		return true
	}
	if t.Kind == KindInvalidFilterValue {
		return e.Kind == KindAmbiguousRangeSyntax || e.Kind == KindInvertedRange
	}
	return false
}

// Sentinels for errors.Is.
var (
	ErrMissingRequiredParameter = &Error{Kind: KindMissingRequiredParameter, Message: "missing required parameter"}
	ErrInvalidFilterValue       = &Error{Kind: KindInvalidFilterValue, Message: "invalid filter value"}
	ErrAmbiguousRangeSyntax     = &Error{Kind: KindAmbiguousRangeSyntax, Message: "a dashed parameter has too many values"}
	ErrInvertedRange            = &Error{Kind: KindInvertedRange, Message: "a dashed parameter has a minimum greater than its maximum"}
)

func invalidf(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidFilterValue, Message: fmt.Sprintf(format, args...)}
}

// withKey returns err annotated with the filter key when it is a *Error without one.
func withKey(err error, key string) error {
	if qe, ok := err.(*Error); ok && qe.Key == "" {
		cp := *qe
		cp.Key = key
		return &cp
	}
	return err
}
