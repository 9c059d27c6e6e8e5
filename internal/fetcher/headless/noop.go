package headless

import (
	"context"
	"errors"

	"github.com/kkotium-dot/kkotium-garden-sub001/internal/sourcing"
)

// ErrDisabled is returned when headless rendering is not configured.
var ErrDisabled = errors.New("headless fetcher not configured")

// Noop stands in for the headless fetcher when rendering is disabled.
type Noop struct{}

// NewNoop creates a new Noop fetcher.
func NewNoop() *Noop {
	return &Noop{}
}

// Fetch always fails with ErrDisabled.
func (Noop) Fetch(_ context.Context, request sourcing.FetchRequest) (sourcing.FetchResponse, error) {
	return sourcing.FetchResponse{}, &sourcing.FetchError{URL: request.URL, Err: ErrDisabled}
}
