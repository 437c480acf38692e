package mission

import (
	"fmt"

	"github.com/Strob0t/MissionForge/internal/domain"
	"github.com/Strob0t/MissionForge/internal/domain/role"
	"github.com/Strob0t/MissionForge/internal/domain/tier"
)

// MaxRoundLimit bounds how many review rounds a single mission may request.
const MaxRoundLimit = 10

// Spec is the caller-supplied description of a mission. It is validated
// synchronously at submission and stored unchanged with the job so reruns
// can replay it.
type Spec struct {
	Task           string                  `json:"task"`
	Project        string                  `json:"project,omitempty"`
	Mode           Mode                    `json:"mode,omitempty"`
	RoundLimit     int                     `json:"round_limit,omitempty"`
	HardCapUSD     float64                 `json:"hard_cap_usd,omitempty"`
	WarningUSD     float64                 `json:"warning_usd,omitempty"`
	Complexity     tier.Complexity         `json:"complexity,omitempty"`
	Important      bool                    `json:"important,omitempty"`
	TierOverrides  map[role.Role]tier.Tier `json:"tier_overrides,omitempty"`
	LenientQuality bool                    `json:"lenient_quality,omitempty"`
}

// Validate rejects malformed specs before any work starts.
func (s *Spec) Validate() error {
	if s.Task == "" {
		return fmt.Errorf("task is required: %w", domain.ErrValidation)
	}
	if s.Mode != "" && !s.Mode.Valid() {
		return fmt.Errorf("invalid mode %q: %w", s.Mode, domain.ErrValidation)
	}
	if s.RoundLimit < 0 || s.RoundLimit > MaxRoundLimit {
		return fmt.Errorf("round_limit must be between 0 and %d: %w", MaxRoundLimit, domain.ErrValidation)
	}
	if s.HardCapUSD < 0 || s.WarningUSD < 0 {
		return fmt.Errorf("cost thresholds must be non-negative: %w", domain.ErrValidation)
	}
	if s.HardCapUSD > 0 && s.WarningUSD > s.HardCapUSD {
		return fmt.Errorf("warning threshold exceeds hard cap: %w", domain.ErrValidation)
	}
	switch s.Complexity {
	case "", tier.ComplexityLow, tier.ComplexityMedium, tier.ComplexityHigh:
	default:
		return fmt.Errorf("invalid complexity %q: %w", s.Complexity, domain.ErrValidation)
	}
	for r, t := range s.TierOverrides {
		if !r.Valid() {
			return fmt.Errorf("invalid override role %q: %w", r, domain.ErrValidation)
		}
		if !t.Valid() {
			return fmt.Errorf("invalid override tier %q: %w", t, domain.ErrValidation)
		}
	}
	return nil
}
