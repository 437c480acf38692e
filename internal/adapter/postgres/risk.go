package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RiskLookup implements risk.Lookup using PostgreSQL. Items flagged risky
// for a project come from the risky_items table, which operators populate
// from past mission analytics.
type RiskLookup struct {
	pool *pgxpool.Pool
}

// NewRiskLookup creates a RiskLookup backed by the given connection pool.
func NewRiskLookup(pool *pgxpool.Pool) *RiskLookup {
	return &RiskLookup{pool: pool}
}

// RiskyItems returns the item identifiers flagged for the project, most
// recently flagged first.
func (r *RiskLookup) RiskyItems(ctx context.Context, project string) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT item FROM risky_items WHERE project = $1 ORDER BY flagged_at DESC`,
		project)
	if err != nil {
		return nil, fmt.Errorf("list risky items for %s: %w", project, err)
	}
	defer rows.Close()

	var items []string
	for rows.Next() {
		var item string
		if err := rows.Scan(&item); err != nil {
			return nil, fmt.Errorf("scan risky item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
