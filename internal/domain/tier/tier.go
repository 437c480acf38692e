// Package tier defines execution tiers and the deterministic routing policy
// that selects a tier for each generation call.
package tier

import "github.com/Strob0t/MissionForge/internal/domain/role"

// Tier is a cost/quality level for a single generation call.
type Tier string

const (
	TierEconomy  Tier = "economy"
	TierStandard Tier = "standard"
	TierPremium  Tier = "premium"
)

// Valid returns true if the tier is a known value.
func (t Tier) Valid() bool {
	switch t {
	case TierEconomy, TierStandard, TierPremium:
		return true
	default:
		return false
	}
}

// rank orders tiers by cost. Higher rank means more expensive.
func (t Tier) rank() int {
	switch t {
	case TierStandard:
		return 1
	case TierPremium:
		return 2
	default:
		return 0
	}
}

// Complexity classifies how hard the task of a round is expected to be.
type Complexity string

const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

// baseTiers is the per-role routing table. Roles whose output is short
// (reviewing, phase splitting) default to the economy tier.
var baseTiers = map[role.Role]Tier{
	role.RolePlanner:     TierStandard,
	role.RolePhaser:      TierEconomy,
	role.RoleImplementer: TierStandard,
	role.RoleReviewer:    TierEconomy,
}

// Decide returns the tier for a generation call. It is a pure function:
// identical inputs always yield the same tier.
//
// The premium tier is permitted only when complexity is high and the round
// index is 2 or 3, or when the call is flagged important. Round 1 never
// uses premium regardless of flags, bounding worst-case spend on the
// first, least-informed attempt.
func Decide(r role.Role, round int, c Complexity, important bool) Tier {
	base, ok := baseTiers[r]
	if !ok {
		base = TierStandard
	}

	if round <= 1 {
		return base
	}

	if important || (c == ComplexityHigh && (round == 2 || round == 3)) {
		return TierPremium
	}

	if c == ComplexityHigh && base.rank() < TierStandard.rank() {
		return TierStandard
	}

	return base
}

// Decision pairs a routed tier with its rate card entry.
type Decision struct {
	Tier Tier `json:"tier"`
	Rate Rate `json:"rate"`
}

// DecideWithRate routes a call and resolves the rate card entry for the
// resulting tier.
func DecideWithRate(card RateCard, r role.Role, round int, c Complexity, important bool) Decision {
	t := Decide(r, round, c, important)
	return Decision{Tier: t, Rate: card[t]}
}
