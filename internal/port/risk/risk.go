// Package risk defines the read-only port into historical analytics used
// to enrich planning context.
package risk

import "context"

// Lookup returns identifiers with elevated historical failure rates for a
// project. Failures degrade gracefully: callers treat an error as an
// empty list.
type Lookup interface {
	RiskyItems(ctx context.Context, project string) ([]string, error)
}

// Empty is a Lookup that always returns no items, wired when no analytics
// store is configured.
type Empty struct{}

// RiskyItems implements Lookup.
func (Empty) RiskyItems(context.Context, string) ([]string, error) { return nil, nil }
