package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Strob0t/MissionForge/internal/domain/mission"
)

// Sink implements missionlog.Sink using PostgreSQL. One row per terminal
// mission; round records are stored as JSONB for ad-hoc analytics.
type Sink struct {
	pool *pgxpool.Pool
}

// NewSink creates a Sink backed by the given connection pool.
func NewSink(pool *pgxpool.Pool) *Sink {
	return &Sink{pool: pool}
}

// RecordMission inserts the summary. Re-recording the same mission is an
// upsert so a replayed job never aborts on a duplicate key.
func (s *Sink) RecordMission(ctx context.Context, summary mission.Summary) error {
	roundsJSON, err := json.Marshal(summary.Rounds)
	if err != nil {
		return fmt.Errorf("marshal rounds: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO mission_summaries
		   (mission_id, task, project, mode, status, reason, round_count,
		    total_cost_usd, total_units_in, total_units_out, call_count,
		    rounds, started_at, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 ON CONFLICT (mission_id) DO UPDATE SET
		   status = EXCLUDED.status,
		   reason = EXCLUDED.reason,
		   round_count = EXCLUDED.round_count,
		   total_cost_usd = EXCLUDED.total_cost_usd,
		   total_units_in = EXCLUDED.total_units_in,
		   total_units_out = EXCLUDED.total_units_out,
		   call_count = EXCLUDED.call_count,
		   rounds = EXCLUDED.rounds,
		   finished_at = EXCLUDED.finished_at`,
		summary.MissionID, summary.Task, summary.Project, string(summary.Mode),
		string(summary.Status), summary.Reason, summary.RoundCount,
		summary.Budget.TotalCostUSD, summary.Budget.TotalUnitsIn,
		summary.Budget.TotalUnitsOut, summary.Budget.CallCount,
		roundsJSON, summary.StartedAt, summary.FinishedAt)
	if err != nil {
		return fmt.Errorf("record mission %s: %w", summary.MissionID, err)
	}
	return nil
}
