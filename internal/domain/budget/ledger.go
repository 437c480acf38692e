// Package budget provides the per-mission cost ledger.
package budget

import (
	"time"

	"github.com/Strob0t/MissionForge/internal/domain/role"
	"github.com/Strob0t/MissionForge/internal/domain/tier"
)

// CallRecord is one generation call accounted against a mission's budget.
type CallRecord struct {
	Role     role.Role `json:"role"`
	Tier     tier.Tier `json:"tier"`
	UnitsIn  int64     `json:"units_in"`
	UnitsOut int64     `json:"units_out"`
	CostUSD  float64   `json:"cost_usd"`
	At       time.Time `json:"at"`
}

// Summary is the serializable view of a ledger.
type Summary struct {
	TotalCostUSD  float64      `json:"total_cost_usd"`
	TotalUnitsIn  int64        `json:"total_units_in"`
	TotalUnitsOut int64        `json:"total_units_out"`
	CallCount     int          `json:"call_count"`
	HardCapUSD    float64      `json:"hard_cap_usd"`
	WarningUSD    float64      `json:"warning_usd"`
	Calls         []CallRecord `json:"calls,omitempty"`
}

// Ledger accumulates generation-call costs for exactly one mission.
// It is owned by the single goroutine driving that mission and carries
// no internal locking: missions never share a ledger.
type Ledger struct {
	card    tier.RateCard
	calls   []CallRecord
	total   float64
	in      int64
	out     int64
	hardCap float64
	warning float64
	now     func() time.Time // for testing
}

// NewLedger creates a ledger with the given thresholds. A hardCap of zero
// disables the cap; likewise for warning.
func NewLedger(card tier.RateCard, hardCapUSD, warningUSD float64) *Ledger {
	return &Ledger{
		card:    card,
		hardCap: hardCapUSD,
		warning: warningUSD,
		now:     time.Now,
	}
}

// Record accounts one call and returns its cost. The running total is the
// monotonic sum of all recorded costs.
func (l *Ledger) Record(r role.Role, t tier.Tier, unitsIn, unitsOut int64) float64 {
	cost := l.card[t].Cost(unitsIn, unitsOut)
	l.calls = append(l.calls, CallRecord{
		Role:     r,
		Tier:     t,
		UnitsIn:  unitsIn,
		UnitsOut: unitsOut,
		CostUSD:  cost,
		At:       l.now(),
	})
	l.total += cost
	l.in += unitsIn
	l.out += unitsOut
	return cost
}

// Total returns the accumulated USD cost.
func (l *Ledger) Total() float64 { return l.total }

// Remaining returns the USD amount left under the hard cap. Negative once
// the cap is exceeded, zero when no cap is configured.
func (l *Ledger) Remaining() float64 {
	if l.hardCap <= 0 {
		return 0
	}
	return l.hardCap - l.total
}

// ExceedsHardCap reports whether the running total has passed the hard cap.
func (l *Ledger) ExceedsHardCap() bool {
	return l.hardCap > 0 && l.total > l.hardCap
}

// ExceedsWarning reports whether the running total has passed the warning
// threshold.
func (l *Ledger) ExceedsWarning() bool {
	return l.warning > 0 && l.total > l.warning
}

// Summary returns a copy of the ledger state for persistence and display.
func (l *Ledger) Summary() Summary {
	calls := make([]CallRecord, len(l.calls))
	copy(calls, l.calls)
	return Summary{
		TotalCostUSD:  l.total,
		TotalUnitsIn:  l.in,
		TotalUnitsOut: l.out,
		CallCount:     len(l.calls),
		HardCapUSD:    l.hardCap,
		WarningUSD:    l.warning,
		Calls:         calls,
	}
}
