package budget

import (
	"math"
	"testing"

	"github.com/Strob0t/MissionForge/internal/domain/role"
	"github.com/Strob0t/MissionForge/internal/domain/tier"
)

// flatCard prices every tier at $0.10 per 1K units in and out, making the
// arithmetic in tests obvious.
func flatCard() tier.RateCard {
	rate := tier.Rate{Model: "test", InPer1K: 0.1, OutPer1K: 0.1}
	return tier.RateCard{
		tier.TierEconomy:  rate,
		tier.TierStandard: rate,
		tier.TierPremium:  rate,
	}
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestLedgerAccumulates(t *testing.T) {
	l := NewLedger(flatCard(), 0, 0)

	cost := l.Record(role.RolePlanner, tier.TierStandard, 1000, 1000)
	if !approx(cost, 0.2) {
		t.Fatalf("cost = %f, want 0.2", cost)
	}
	l.Record(role.RoleReviewer, tier.TierEconomy, 500, 500)

	if !approx(l.Total(), 0.3) {
		t.Errorf("total = %f, want 0.3", l.Total())
	}
	s := l.Summary()
	if s.CallCount != 2 || s.TotalUnitsIn != 1500 || s.TotalUnitsOut != 1500 {
		t.Errorf("summary = %+v", s)
	}
}

func TestLedgerHardCapAfterEachRecord(t *testing.T) {
	// $0.40 then $0.70 against a $1.00 cap: the first record stays under,
	// the second pushes past and must be detected immediately.
	l := NewLedger(flatCard(), 1.0, 0)

	l.Record(role.RolePlanner, tier.TierStandard, 2000, 2000) // $0.40
	if l.ExceedsHardCap() {
		t.Fatal("cap exceeded at $0.40 of $1.00")
	}
	if !approx(l.Remaining(), 0.6) {
		t.Errorf("remaining = %f, want 0.6", l.Remaining())
	}

	l.Record(role.RoleImplementer, tier.TierStandard, 3500, 3500) // $0.70
	if !l.ExceedsHardCap() {
		t.Fatal("cap not detected at $1.10 of $1.00")
	}
	if l.Remaining() >= 0 {
		t.Errorf("remaining = %f, want negative", l.Remaining())
	}
}

func TestLedgerCapAtExactlyHardCap(t *testing.T) {
	// The cap is exclusive: a total equal to the cap is still within budget.
	l := NewLedger(flatCard(), 0.2, 0)
	l.Record(role.RolePlanner, tier.TierStandard, 1000, 1000) // exactly $0.20
	if l.ExceedsHardCap() {
		t.Error("total == cap should not exceed")
	}
}

func TestLedgerNoCapConfigured(t *testing.T) {
	l := NewLedger(flatCard(), 0, 0)
	l.Record(role.RolePlanner, tier.TierPremium, 1_000_000, 1_000_000)
	if l.ExceedsHardCap() {
		t.Error("zero cap must disable the hard cap")
	}
	if l.Remaining() != 0 {
		t.Errorf("remaining = %f, want 0 with no cap", l.Remaining())
	}
}

func TestLedgerWarningThreshold(t *testing.T) {
	l := NewLedger(flatCard(), 1.0, 0.3)
	l.Record(role.RolePlanner, tier.TierStandard, 1000, 1000) // $0.20
	if l.ExceedsWarning() {
		t.Error("warning at $0.20 of $0.30")
	}
	l.Record(role.RolePlanner, tier.TierStandard, 1000, 1000) // $0.40 total
	if !l.ExceedsWarning() {
		t.Error("no warning at $0.40 of $0.30")
	}
	if l.ExceedsHardCap() {
		t.Error("warning must not imply hard cap")
	}
}

func TestLedgerSummaryIsACopy(t *testing.T) {
	l := NewLedger(flatCard(), 0, 0)
	l.Record(role.RolePlanner, tier.TierStandard, 100, 100)

	s := l.Summary()
	s.Calls[0].CostUSD = 999

	if approx(l.Summary().Calls[0].CostUSD, 999) {
		t.Error("mutating a summary leaked into the ledger")
	}
}
