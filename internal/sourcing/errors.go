package sourcing

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by stores when a record does not exist.
var ErrNotFound = errors.New("not found")

// Kind labels an error for transport-level classification.
type Kind string

// Error kinds surfaced to callers.
const (
	KindNone       Kind = ""
	KindValidation Kind = "validation"
	KindFetch      Kind = "fetch"
	KindParse      Kind = "parse"
	KindNotFound   Kind = "not_found"
	KindInternal   Kind = "internal"
)

// FetchError reports a network failure, timeout, or non-2xx response.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s failed", e.URL)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError reports that no title could be located by any extraction rule.
type ParseError struct {
	URL     string
	Profile string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: no title found (profile %s)", e.URL, e.Profile)
}

// ValidationError reports malformed caller input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Invalid builds a ValidationError.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// ErrorKind classifies err into one of the surfaced kinds.
func ErrorKind(err error) Kind {
	if err == nil {
		return KindNone
	}
	var (
		validation *ValidationError
		fetch      *FetchError
		parse      *ParseError
	)
	switch {
	case errors.As(err, &validation):
		return KindValidation
	case errors.As(err, &fetch):
		return KindFetch
	case errors.As(err, &parse):
		return KindParse
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	default:
		return KindInternal
	}
}
