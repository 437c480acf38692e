package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	mfotel "github.com/Strob0t/MissionForge/internal/adapter/otel"
	"github.com/Strob0t/MissionForge/internal/config"
	"github.com/Strob0t/MissionForge/internal/domain/budget"
	"github.com/Strob0t/MissionForge/internal/domain/mission"
	"github.com/Strob0t/MissionForge/internal/domain/review"
	"github.com/Strob0t/MissionForge/internal/domain/role"
	"github.com/Strob0t/MissionForge/internal/domain/tier"
	"github.com/Strob0t/MissionForge/internal/port/generation"
	"github.com/Strob0t/MissionForge/internal/port/quality"
	"github.com/Strob0t/MissionForge/internal/port/risk"
	"github.com/Strob0t/MissionForge/internal/resilience"
)

// ErrBudgetExceeded is returned inside the engine when a ledger record
// pushes the mission over its hard cap. Never retried.
var ErrBudgetExceeded = errors.New("budget hard cap exceeded")

// CancelToken is the cooperative cancellation flag for one job. The engine
// checks it at round boundaries only, so cancellation latency is bounded
// by one round's generation-call duration.
type CancelToken struct {
	cancelled atomic.Bool
}

// Cancel sets the flag. Safe to call from any goroutine, idempotent.
func (t *CancelToken) Cancel() { t.cancelled.Store(true) }

// Cancelled reports whether Cancel has been called.
func (t *CancelToken) Cancelled() bool { return t.cancelled.Load() }

// LogFunc receives one human-readable line for the job's append-only log.
type LogFunc func(line string)

// MissionEngine drives one mission through planning, optional phasing,
// implementation, and review rounds until a terminal state. Engines are
// stateless between runs; every Run gets its own Mission and Ledger.
type MissionEngine struct {
	generator generation.Generator
	checker   quality.Checker
	risks     risk.Lookup
	executor  *Executor
	sideOps   SideOpsFactory
	card      tier.RateCard
	genCfg    config.Generation
}

// NewMissionEngine creates an engine with all collaborators.
func NewMissionEngine(
	generator generation.Generator,
	checker quality.Checker,
	risks risk.Lookup,
	executor *Executor,
	sideOps SideOpsFactory,
	card tier.RateCard,
	genCfg config.Generation,
) *MissionEngine {
	return &MissionEngine{
		generator: generator,
		checker:   checker,
		risks:     risks,
		executor:  executor,
		sideOps:   sideOps,
		card:      card,
		genCfg:    genCfg,
	}
}

// Run executes the mission to a terminal state. It never returns an error:
// every failure mode maps to a terminal status with a taxonomy reason.
// The returned Mission is immutable once Run returns.
func (e *MissionEngine) Run(ctx context.Context, spec mission.Spec, cancel *CancelToken, logf LogFunc) *mission.Mission {
	if logf == nil {
		logf = func(string) {}
	}

	m := &mission.Mission{
		ID:         uuid.NewString(),
		Task:       spec.Task,
		Project:    spec.Project,
		Mode:       spec.Mode,
		RoundLimit: spec.RoundLimit,
		Status:     mission.StatusPlanning,
		Ledger:     budget.NewLedger(e.card, spec.HardCapUSD, spec.WarningUSD),
		StartedAt:  time.Now(),
	}
	if m.Mode == "" {
		m.Mode = mission.ModeTwoPhase
	}

	logf(fmt.Sprintf("mission %s started: mode=%s round_limit=%d hard_cap=$%.2f",
		m.ID, m.Mode, m.RoundLimit, spec.HardCapUSD))

	riskItems := e.lookupRisks(ctx, spec.Project, logf)

	var tracker mission.RationaleTracker
	var lastFeedback string

	for round := 1; round <= m.RoundLimit; round++ {
		if cancel != nil && cancel.Cancelled() {
			e.finish(m, mission.StatusCancelled, mission.ReasonCancelled, logf)
			return m
		}
		if ctx.Err() != nil {
			e.finish(m, mission.StatusCancelled, mission.ReasonCancelled, logf)
			return m
		}

		m.CurrentRound = round
		rec := mission.RoundRecord{
			Index:     round,
			TiersUsed: make(map[role.Role]tier.Tier),
		}
		costBefore := m.Ledger.Total()

		roundCtx, roundSpan := mfotel.StartRoundSpan(ctx, m.ID, round)
		outcome := e.runRound(roundCtx, m, spec, &rec, round, riskItems, lastFeedback, logf)
		rec.CostDeltaUSD = m.Ledger.Total() - costBefore
		roundSpan.SetAttributes(attribute.Float64("round.cost_usd", rec.CostDeltaUSD))
		roundSpan.End()
		m.Rounds = append(m.Rounds, rec)

		if m.Ledger.ExceedsWarning() && !m.Ledger.ExceedsHardCap() {
			logf(fmt.Sprintf("round %d: budget warning threshold passed, total $%.4f", round, m.Ledger.Total()))
		}

		switch {
		case errors.Is(outcome, ErrBudgetExceeded):
			e.finish(m, mission.StatusAborted, mission.ReasonCostExceeded, logf)
			return m
		case outcome != nil:
			// Per-call failure after retries and fallback: retry-eligible
			// round failure, not a crash.
			logf(fmt.Sprintf("round %d failed: %v", round, outcome))
			lastFeedback = rec.Review.Rationale
			continue
		}

		switch rec.Review.Decision {
		case review.DecisionApprove:
			e.finish(m, mission.StatusApproved, mission.ReasonApproved, logf)
			return m
		case review.DecisionFail:
			e.finish(m, mission.StatusFailed, rec.Review.Rationale, logf)
			return m
		case review.DecisionRetry:
			if tracker.Record(rec.Review.Rationale) {
				logf(fmt.Sprintf("round %d: reviewer rationale identical to previous round, escalating", round))
				e.finish(m, mission.StatusAborted, mission.ReasonAmbiguous, logf)
				return m
			}
			lastFeedback = rec.Review.Rationale
		}
	}

	e.finish(m, mission.StatusMaxRounds, mission.ReasonMaxRounds, logf)
	return m
}

// runRound performs one plan -> (phase) -> implement -> review cycle,
// filling rec as it goes. It returns ErrBudgetExceeded on a hard-cap
// violation and other errors for retry-eligible call failures; rec.Review
// always carries a decision when the error is nil.
func (e *MissionEngine) runRound(
	ctx context.Context,
	m *mission.Mission,
	spec mission.Spec,
	rec *mission.RoundRecord,
	round int,
	riskItems []string,
	lastFeedback string,
	logf LogFunc,
) error {
	m.Status = mission.StatusPlanning
	planPrompt := planningPrompt(spec.Task, riskItems, lastFeedback)
	planRes, err := e.callRole(ctx, m, spec, role.RolePlanner, round, rec, planPrompt)
	if err != nil {
		rec.Review = review.Outcome{Decision: review.DecisionRetry, Rationale: "planner call failed"}
		return err
	}
	rec.PlanText = planRes.Text
	logf(fmt.Sprintf("round %d: plan produced (%d units out)", round, planRes.UnitsOut))

	if m.Mode == mission.ModeThreePhase {
		m.Status = mission.StatusPhasing
		phaseRes, err := e.callRole(ctx, m, spec, role.RolePhaser, round, rec,
			"Split the following plan into independent phases:\n\n"+rec.PlanText)
		if err != nil {
			rec.Review = review.Outcome{Decision: review.DecisionRetry, Rationale: "phase split failed"}
			return err
		}
		rec.PhaseText = phaseRes.Text
		logf(fmt.Sprintf("round %d: phases assigned", round))
	}

	m.Status = mission.StatusImplementing
	implPrompt := "Implement the following plan:\n\n" + rec.PlanText
	if rec.PhaseText != "" {
		implPrompt += "\n\nPhases:\n" + rec.PhaseText
	}
	implRes, err := e.callRole(ctx, m, spec, role.RoleImplementer, round, rec, implPrompt)
	if err != nil {
		rec.Review = review.Outcome{Decision: review.DecisionRetry, Rationale: "implementer call failed"}
		return err
	}
	rec.ImplSummary = implRes.Text

	if e.sideOps != nil && e.executor != nil {
		specs := e.sideOps(m.ID, round)
		if len(specs) > 0 {
			opsCtx, opsSpan := mfotel.StartSideOpsSpan(ctx, m.ID, round)
			results, execErr := e.executor.Run(opsCtx, specs, false)
			opsSpan.End()
			if execErr != nil {
				// Structural error in the built-in graph: log, never crash the round.
				slog.Error("side operations rejected", "mission_id", m.ID, "round", round, "error", execErr)
			} else {
				rec.SubtaskResults = results
				logf(fmt.Sprintf("round %d: %d side operations finished", round, len(results)))
			}
		}
	}

	m.Status = mission.StatusReviewing
	verdict := e.checkQuality(ctx, m, rec, round, logf)
	rec.QualityVerdict = verdict.Verdict
	rec.QualityFindings = verdict.Findings

	if verdict.Verdict == review.VerdictFail && !spec.LenientQuality {
		// A quality fail is authoritative: the reviewer never overrides it.
		rec.Review = review.Outcome{
			Decision:  review.DecisionRetry,
			Rationale: mission.ReasonQualityFail + ": " + strings.Join(verdict.Findings, "; "),
		}
		logf(fmt.Sprintf("round %d: quality check failed, forcing retry", round))
		return nil
	}

	reviewPrompt := reviewerPrompt(spec.Task, rec.PlanText, rec.ImplSummary, verdict)
	revRes, err := e.callRole(ctx, m, spec, role.RoleReviewer, round, rec, reviewPrompt)
	if err != nil {
		rec.Review = review.Outcome{Decision: review.DecisionRetry, Rationale: "reviewer call failed"}
		return err
	}
	rec.Review = parseReviewOutcome(revRes.Text)
	logf(fmt.Sprintf("round %d: reviewer decision=%s", round, rec.Review.Decision))
	return nil
}

// callRole routes the tier (override map first, then the policy table),
// invokes the generator with retry and one economy fallback, and accounts
// the call against the ledger. A hard-cap violation after recording
// returns ErrBudgetExceeded: the round never completes over cap.
func (e *MissionEngine) callRole(
	ctx context.Context,
	m *mission.Mission,
	spec mission.Spec,
	r role.Role,
	round int,
	rec *mission.RoundRecord,
	userContext string,
) (*generation.Result, error) {
	t, overridden := spec.TierOverrides[r]
	if !overridden {
		t = tier.Decide(r, round, spec.Complexity, spec.Important)
	}

	res, err := e.generateWithRetry(ctx, r, t, userContext)
	if err != nil && generation.IsTransient(err) && t != tier.TierEconomy {
		slog.Warn("generation degraded to economy tier",
			"mission_id", m.ID, "role", r, "tier", t, "error", err)
		t = tier.TierEconomy
		res, err = e.generateWithRetry(ctx, r, t, userContext)
	}
	if err != nil {
		return nil, fmt.Errorf("generate %s: %w", r, err)
	}

	rec.TiersUsed[r] = t
	cost := m.Ledger.Record(r, t, res.UnitsIn, res.UnitsOut)
	slog.Debug("generation call recorded",
		"mission_id", m.ID, "role", r, "tier", t, "cost_usd", cost)

	if m.Ledger.ExceedsHardCap() {
		return nil, ErrBudgetExceeded
	}
	return res, nil
}

func (e *MissionEngine) generateWithRetry(ctx context.Context, r role.Role, t tier.Tier, userContext string) (*generation.Result, error) {
	req := generation.Request{
		Role:          r,
		Rate:          e.card[t],
		SystemContext: systemContext(r),
		UserContext:   userContext,
	}

	var res *generation.Result
	err := resilience.RetryTransient(ctx, e.genCfg.MaxAttempts, e.genCfg.Backoff, generation.IsTransient,
		func(ctx context.Context) error {
			var callErr error
			res, callErr = e.generator.Generate(ctx, req)
			return callErr
		})
	return res, err
}

// checkQuality runs the external checker. Checker unavailability degrades
// to a warn verdict so an analytics outage cannot fail missions.
func (e *MissionEngine) checkQuality(ctx context.Context, m *mission.Mission, rec *mission.RoundRecord, round int, logf LogFunc) review.CheckResult {
	if e.checker == nil {
		return review.CheckResult{Verdict: review.VerdictPass}
	}
	res, err := e.checker.Check(ctx, quality.ArtifactSet{
		MissionID:   m.ID,
		Round:       round,
		PlanText:    rec.PlanText,
		ImplSummary: rec.ImplSummary,
	})
	if err != nil {
		slog.Warn("quality checker unavailable", "mission_id", m.ID, "round", round, "error", err)
		logf(fmt.Sprintf("round %d: quality checker unavailable, degrading to warn", round))
		return review.CheckResult{Verdict: review.VerdictWarn, Findings: []string{"quality checker unavailable"}}
	}
	return *res
}

func (e *MissionEngine) lookupRisks(ctx context.Context, project string, logf LogFunc) []string {
	if e.risks == nil || project == "" {
		return nil
	}
	items, err := e.risks.RiskyItems(ctx, project)
	if err != nil {
		slog.Warn("risk lookup failed, continuing without", "project", project, "error", err)
		return nil
	}
	if len(items) > 0 {
		logf(fmt.Sprintf("planning context: %d historically risky items", len(items)))
	}
	return items
}

func (e *MissionEngine) finish(m *mission.Mission, status mission.Status, reason string, logf LogFunc) {
	m.Status = status
	m.Reason = reason
	now := time.Now()
	m.FinishedAt = &now
	logf(fmt.Sprintf("mission %s finished: status=%s reason=%q total_cost=$%.4f rounds=%d",
		m.ID, status, reason, m.Ledger.Total(), len(m.Rounds)))
}

func systemContext(r role.Role) string {
	switch r {
	case role.RolePlanner:
		return "You are the mission planner. Produce a concrete, reviewable plan for the task."
	case role.RolePhaser:
		return "You are the phase splitter. Divide the plan into independently executable phases."
	case role.RoleImplementer:
		return "You are the implementer. Carry out the plan and summarize the resulting changes."
	case role.RoleReviewer:
		return "You are the reviewer. Answer with approve, retry, or fail on the first line, then your rationale."
	default:
		return ""
	}
}

func planningPrompt(task string, riskItems []string, lastFeedback string) string {
	var b strings.Builder
	b.WriteString("Task:\n")
	b.WriteString(task)
	if len(riskItems) > 0 {
		b.WriteString("\n\nHistorically risky areas, plan extra validation for these:\n")
		for _, it := range riskItems {
			b.WriteString("- " + it + "\n")
		}
	}
	if lastFeedback != "" {
		b.WriteString("\n\nReviewer feedback from the previous round:\n")
		b.WriteString(lastFeedback)
	}
	return b.String()
}

func reviewerPrompt(task, plan, implSummary string, check review.CheckResult) string {
	var b strings.Builder
	b.WriteString("Task:\n" + task + "\n\nPlan:\n" + plan + "\n\nImplementation summary:\n" + implSummary)
	b.WriteString("\n\nQuality check verdict: " + string(check.Verdict))
	for _, f := range check.Findings {
		b.WriteString("\n- " + f)
	}
	return b.String()
}

// parseReviewOutcome interprets the reviewer's text: the first word of the
// first line is the decision, the rest is the rationale. Anything
// unrecognized is a retry so a rambling reviewer can never approve by
// accident.
func parseReviewOutcome(text string) review.Outcome {
	trimmed := strings.TrimSpace(text)
	first := trimmed
	rest := ""
	if i := strings.IndexAny(trimmed, "\n:."); i >= 0 {
		first = trimmed[:i]
		rest = strings.TrimSpace(trimmed[i+1:])
	}
	if j := strings.IndexByte(first, ' '); j >= 0 {
		rest = strings.TrimSpace(first[j+1:] + "\n" + rest)
		first = first[:j]
	}

	rationale := rest
	if rationale == "" {
		rationale = trimmed
	}

	switch strings.ToLower(strings.TrimSpace(first)) {
	case "approve", "approved":
		return review.Outcome{Decision: review.DecisionApprove, Rationale: rationale}
	case "fail", "failed", "reject", "rejected":
		return review.Outcome{Decision: review.DecisionFail, Rationale: rationale}
	case "retry":
		return review.Outcome{Decision: review.DecisionRetry, Rationale: rationale}
	default:
		return review.Outcome{Decision: review.DecisionRetry, Rationale: trimmed}
	}
}
