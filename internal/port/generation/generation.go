// Package generation defines the port for the external text generation
// service. The core treats generation as an opaque call returning text
// plus unit counts; transport and vendor details live in adapters.
package generation

import (
	"context"
	"errors"

	"github.com/Strob0t/MissionForge/internal/domain/role"
	"github.com/Strob0t/MissionForge/internal/domain/tier"
)

// ErrTimeout indicates the generation call exceeded its deadline.
// Transient: callers retry with backoff.
var ErrTimeout = errors.New("generation timeout")

// ErrRateLimited indicates the provider rejected the call for rate limits.
// Transient: callers retry with backoff.
var ErrRateLimited = errors.New("generation rate limited")

// Request describes one generation call.
type Request struct {
	Role          role.Role
	Rate          tier.Rate
	SystemContext string
	UserContext   string
}

// Result is the structured output of one generation call.
type Result struct {
	Text     string
	UnitsIn  int64
	UnitsOut int64
}

// Generator is the port for the external generation service.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Result, error)
}

// IsTransient reports whether err is retryable per the error taxonomy.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrRateLimited)
}
