// Package mission defines the Mission domain entity: one end-to-end task
// execution driven round by round through the planner/implementer hierarchy.
package mission

import (
	"time"

	"github.com/Strob0t/MissionForge/internal/domain/budget"
	"github.com/Strob0t/MissionForge/internal/domain/review"
	"github.com/Strob0t/MissionForge/internal/domain/role"
	"github.com/Strob0t/MissionForge/internal/domain/subtask"
	"github.com/Strob0t/MissionForge/internal/domain/tier"
)

// Mode selects whether the phase-splitter role participates in each round.
type Mode string

const (
	ModeTwoPhase   Mode = "two_phase"
	ModeThreePhase Mode = "three_phase"
)

// Valid returns true if the mode is a known value.
func (m Mode) Valid() bool {
	return m == ModeTwoPhase || m == ModeThreePhase
}

// Status represents the state-machine state of a mission.
type Status string

const (
	StatusPlanning     Status = "planning"
	StatusPhasing      Status = "phasing"
	StatusImplementing Status = "implementing"
	StatusReviewing    Status = "reviewing"
	StatusApproved     Status = "approved"
	StatusMaxRounds    Status = "max_rounds"
	StatusFailed       Status = "failed"
	StatusAborted      Status = "aborted"
	StatusCancelled    Status = "cancelled"
)

// IsTerminal returns true if the mission has finished.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusApproved, StatusMaxRounds, StatusFailed, StatusAborted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reason strings. These are the only failure descriptions shown
// to callers; raw internal errors stay in the logs.
const (
	ReasonApproved     = "approved"
	ReasonMaxRounds    = "max_rounds"
	ReasonCostExceeded = "cost_exceeded"
	ReasonAmbiguous    = "ambiguous requirements"
	ReasonQualityFail  = "quality check failed"
	ReasonCancelled    = "cancelled"
)

// Mission tracks one task execution. It is mutated only by the engine
// goroutine driving it and becomes immutable once Status is terminal.
type Mission struct {
	ID           string         `json:"id"`
	Task         string         `json:"task"`
	Project      string         `json:"project,omitempty"`
	Mode         Mode           `json:"mode"`
	RoundLimit   int            `json:"round_limit"`
	CurrentRound int            `json:"current_round"`
	Status       Status         `json:"status"`
	Reason       string         `json:"reason,omitempty"`
	Rounds       []RoundRecord  `json:"rounds"`
	Ledger       *budget.Ledger `json:"-"`
	StartedAt    time.Time      `json:"started_at"`
	FinishedAt   *time.Time     `json:"finished_at,omitempty"`
}

// RoundRecord is the append-only log entry for one completed (or aborted)
// round. Records are never mutated after append.
type RoundRecord struct {
	Index           int                       `json:"index"`
	PlanText        string                    `json:"plan_text,omitempty"`
	PhaseText       string                    `json:"phase_text,omitempty"`
	ImplSummary     string                    `json:"impl_summary,omitempty"`
	SubtaskResults  map[string]subtask.Result `json:"subtask_results,omitempty"`
	QualityVerdict  review.Verdict            `json:"quality_verdict,omitempty"`
	QualityFindings []string                  `json:"quality_findings,omitempty"`
	Review          review.Outcome            `json:"review"`
	TiersUsed       map[role.Role]tier.Tier   `json:"tiers_used,omitempty"`
	CostDeltaUSD    float64                   `json:"cost_delta_usd"`
}

// Summary is the serializable view of a mission, persisted with its job
// and forwarded to the analytics sink on termination.
type Summary struct {
	MissionID  string         `json:"mission_id"`
	Task       string         `json:"task"`
	Project    string         `json:"project,omitempty"`
	Mode       Mode           `json:"mode"`
	Status     Status         `json:"status"`
	Reason     string         `json:"reason,omitempty"`
	RoundCount int            `json:"round_count"`
	Rounds     []RoundRecord  `json:"rounds,omitempty"`
	Budget     budget.Summary `json:"budget"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
}

// Summary snapshots the mission for persistence.
func (m *Mission) Summary() Summary {
	s := Summary{
		MissionID:  m.ID,
		Task:       m.Task,
		Project:    m.Project,
		Mode:       m.Mode,
		Status:     m.Status,
		Reason:     m.Reason,
		RoundCount: len(m.Rounds),
		Rounds:     m.Rounds,
		StartedAt:  m.StartedAt,
		FinishedAt: m.FinishedAt,
	}
	if m.Ledger != nil {
		s.Budget = m.Ledger.Summary()
	}
	return s
}
