package tier

import "github.com/Strob0t/MissionForge/internal/domain/role"

// Rate maps a tier to a concrete model and its USD price per 1K units.
type Rate struct {
	Model    string  `json:"model"`
	InPer1K  float64 `json:"in_per_1k"`
	OutPer1K float64 `json:"out_per_1k"`
}

// Cost returns the USD cost of a call with the given unit counts.
func (r Rate) Cost(unitsIn, unitsOut int64) float64 {
	return float64(unitsIn)/1000*r.InPer1K + float64(unitsOut)/1000*r.OutPer1K
}

// RateCard maps each tier to its rate.
type RateCard map[Tier]Rate

// DefaultRateCard returns the built-in rate card. Deployments override it
// via configuration.
func DefaultRateCard() RateCard {
	return RateCard{
		TierEconomy:  {Model: "openai/gpt-4o-mini", InPer1K: 0.00015, OutPer1K: 0.0006},
		TierStandard: {Model: "openai/gpt-4o", InPer1K: 0.0025, OutPer1K: 0.01},
		TierPremium:  {Model: "anthropic/claude-sonnet-4", InPer1K: 0.003, OutPer1K: 0.015},
	}
}

// roundRoles lists the roles that issue a generation call in one round,
// per mission mode. Three-phase missions add the phase splitter.
func roundRoles(threePhase bool) []role.Role {
	if threePhase {
		return []role.Role{role.RolePlanner, role.RolePhaser, role.RoleImplementer, role.RoleReviewer}
	}
	return []role.Role{role.RolePlanner, role.RoleImplementer, role.RoleReviewer}
}

// EstimateRound returns the projected USD cost of one round, assuming the
// given average unit counts per call. Because Decide is pure, estimates
// computed before a run match the tiers routed during the run.
func EstimateRound(card RateCard, round int, c Complexity, important, threePhase bool, avgIn, avgOut int64) float64 {
	var total float64
	for _, r := range roundRoles(threePhase) {
		d := DecideWithRate(card, r, round, c, important)
		total += d.Rate.Cost(avgIn, avgOut)
	}
	return total
}
