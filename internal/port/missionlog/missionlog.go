// Package missionlog defines the fire-and-forget port into the analytics
// sink that records terminal mission summaries.
package missionlog

import (
	"context"

	"github.com/Strob0t/MissionForge/internal/domain/mission"
)

// Sink records mission summaries. Failures are logged by callers but never
// abort a mission.
type Sink interface {
	RecordMission(ctx context.Context, summary mission.Summary) error
}

// Nop is a Sink that discards summaries, wired when no analytics store is
// configured.
type Nop struct{}

// RecordMission implements Sink.
func (Nop) RecordMission(context.Context, mission.Summary) error { return nil }
