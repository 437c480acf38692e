package mission

import (
	"errors"
	"testing"

	"github.com/Strob0t/MissionForge/internal/domain"
	"github.com/Strob0t/MissionForge/internal/domain/role"
	"github.com/Strob0t/MissionForge/internal/domain/tier"
)

func TestSpecValidateAccepts(t *testing.T) {
	specs := []Spec{
		{Task: "build it"},
		{Task: "build it", Mode: ModeThreePhase, RoundLimit: 5, HardCapUSD: 2, WarningUSD: 1},
		{Task: "build it", Complexity: tier.ComplexityHigh},
		{Task: "build it", TierOverrides: map[role.Role]tier.Tier{role.RoleReviewer: tier.TierPremium}},
	}
	for i, s := range specs {
		if err := s.Validate(); err != nil {
			t.Errorf("spec %d rejected: %v", i, err)
		}
	}
}

func TestSpecValidateRejects(t *testing.T) {
	cases := []struct {
		name string
		spec Spec
	}{
		{"empty task", Spec{}},
		{"bad mode", Spec{Task: "x", Mode: "four_phase"}},
		{"negative rounds", Spec{Task: "x", RoundLimit: -1}},
		{"rounds over limit", Spec{Task: "x", RoundLimit: MaxRoundLimit + 1}},
		{"negative cap", Spec{Task: "x", HardCapUSD: -1}},
		{"warning above cap", Spec{Task: "x", HardCapUSD: 1, WarningUSD: 2}},
		{"bad complexity", Spec{Task: "x", Complexity: "extreme"}},
		{"bad override role", Spec{Task: "x", TierOverrides: map[role.Role]tier.Tier{"janitor": tier.TierEconomy}}},
		{"bad override tier", Spec{Task: "x", TierOverrides: map[role.Role]tier.Tier{role.RolePlanner: "platinum"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.spec.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, domain.ErrValidation) {
				t.Errorf("error %v does not wrap ErrValidation", err)
			}
		})
	}
}
