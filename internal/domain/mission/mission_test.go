package mission

import (
	"testing"
	"time"

	"github.com/Strob0t/MissionForge/internal/domain/budget"
	"github.com/Strob0t/MissionForge/internal/domain/role"
	"github.com/Strob0t/MissionForge/internal/domain/tier"
)

func TestStatusIsTerminal(t *testing.T) {
	terminal := []Status{StatusApproved, StatusMaxRounds, StatusFailed, StatusAborted, StatusCancelled}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	active := []Status{StatusPlanning, StatusPhasing, StatusImplementing, StatusReviewing}
	for _, s := range active {
		if s.IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestModeValid(t *testing.T) {
	if !ModeTwoPhase.Valid() || !ModeThreePhase.Valid() {
		t.Error("known modes must be valid")
	}
	if Mode("four_phase").Valid() {
		t.Error("unknown mode accepted")
	}
}

func TestSummarySnapshotsLedger(t *testing.T) {
	card := tier.DefaultRateCard()
	m := &Mission{
		ID:        "m1",
		Task:      "do the thing",
		Mode:      ModeTwoPhase,
		Status:    StatusApproved,
		Ledger:    budget.NewLedger(card, 2, 1),
		StartedAt: time.Now(),
	}
	m.Ledger.Record(role.RolePlanner, tier.TierStandard, 1000, 500)
	m.Rounds = append(m.Rounds, RoundRecord{Index: 1})

	s := m.Summary()
	if s.MissionID != "m1" || s.RoundCount != 1 {
		t.Errorf("summary = %+v", s)
	}
	if s.Budget.CallCount != 1 || s.Budget.TotalCostUSD <= 0 {
		t.Errorf("budget not snapshotted: %+v", s.Budget)
	}
}

func TestSummaryNilLedger(t *testing.T) {
	m := &Mission{ID: "m2", Status: StatusFailed}
	s := m.Summary()
	if s.Budget.CallCount != 0 {
		t.Errorf("expected zero budget, got %+v", s.Budget)
	}
}

func TestRationaleTrackerDetectsRepeat(t *testing.T) {
	var tr RationaleTracker

	if tr.Record("tests missing for edge case") {
		t.Fatal("first rationale can never be a repeat")
	}
	if tr.Record("style nit in handler") {
		t.Fatal("different rationale flagged as repeat")
	}
	if !tr.Record("style nit in handler") {
		t.Fatal("identical consecutive rationale not flagged")
	}
}

func TestRationaleTrackerNonConsecutive(t *testing.T) {
	var tr RationaleTracker

	tr.Record("a")
	tr.Record("b")
	if tr.Record("a") {
		t.Error("non-consecutive repeat must not trigger")
	}
}

func TestRationaleTrackerReset(t *testing.T) {
	var tr RationaleTracker

	tr.Record("same")
	tr.Reset()
	if tr.Record("same") {
		t.Error("reset must clear the previous rationale")
	}
}

func TestRationaleTrackerEmptyStrings(t *testing.T) {
	var tr RationaleTracker

	if tr.Record("") {
		t.Fatal("first empty rationale can never be a repeat")
	}
	if !tr.Record("") {
		t.Error("two consecutive empty rationales should be flagged")
	}
}
