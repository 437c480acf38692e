// Package quality defines the port for the external quality/safety checker.
package quality

import (
	"context"

	"github.com/Strob0t/MissionForge/internal/domain/review"
)

// ArtifactSet is the material of one round handed to the checker.
type ArtifactSet struct {
	MissionID   string
	Round       int
	PlanText    string
	ImplSummary string
}

// Checker evaluates a round's artifacts. A fail verdict is authoritative
// for the round's reviewer decision.
type Checker interface {
	Check(ctx context.Context, artifacts ArtifactSet) (*review.CheckResult, error)
}
