package ohko

import (
	"github.com/retroenv/retropatch/internal/instruction"
	"github.com/retroenv/retropatch/internal/patcher"
	"github.com/retroenv/retropatch/internal/pattern"
)

// Names of the patches, usable as keys for policy overrides.
const (
	MaxLivesChanged = "max_lives_changed"
	LivesChanged    = "lives_changed"
)

var (
	playerStatsLives = instruction.Field{FieldType: "PlayerStat", Type: "PlayerStats", Name: "lives"}
	persistentLives  = instruction.Field{FieldType: "int32", Type: "PersistentPlayerData", Name: "lives"}
	getValueInt      = instruction.MethodRef{Type: "PlayerStat", Name: "GetValueInt", ReturnType: "int32", HasThis: true}
)

// Specs returns the HUD patches in the order they have to be applied. The
// policy of a patch is taken from the overrides if present.
func Specs(overrides map[string]patcher.Policy) []patcher.Spec {
	// the displayed number of lives is replaced by a single life
	oneLife := patcher.Replace{Discard: 1, Push: []int32{1}}

	specs := []patcher.Spec{
		{
			Name:   MaxLivesChanged,
			Method: "UI_PlayerLives::MaxLivesChanged",
			Pattern: pattern.Pattern{
				pattern.Ldfld(playerStatsLives),
				pattern.Callvirt(getValueInt),
			},
			Move:      patcher.MoveAfter,
			Condition: Condition,
			Plan:      oneLife,
		},
		{
			Name:   LivesChanged,
			Method: "UI_PlayerLives::LivesChanged",
			Pattern: pattern.Pattern{
				pattern.Ldfld(persistentLives),
			},
			Move:      patcher.MoveAfter,
			Condition: Condition,
			Plan:      oneLife,
		},
	}

	for i, spec := range specs {
		if policy, ok := overrides[spec.Name]; ok {
			specs[i].Policy = policy
		}
	}
	return specs
}

// SpecsFor returns the patches that target the given method.
func SpecsFor(methodName string, overrides map[string]patcher.Policy) []patcher.Spec {
	var result []patcher.Spec
	for _, spec := range Specs(overrides) {
		if spec.Method == methodName {
			result = append(result, spec)
		}
	}
	return result
}
