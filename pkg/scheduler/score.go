package scheduler

import (
	"math"

	"github.com/arnavshah/care-scheduler-api/pkg/models"
)

// Scoring weights. Remaining hours dominate so load spreads toward under-utilized staff;
// the bonuses only separate candidates with similar capacity.
const (
	PreferredShiftBonus = 1.0
	SkillBonusPerSkill  = 0.1
	MaxSkillBonus       = 2.0
)

// Score computes the desirability of giving a shift to a staff member with hoursLeft capacity
func Score(staff *models.Staff, shift *models.Shift, hoursLeft float64) float64 {
	preferred := 0.0
	if staff.PreferredShift != "" && staff.PreferredShift == shift.Type {
		preferred = PreferredShiftBonus
	}
	skills := math.Min(MaxSkillBonus, SkillBonusPerSkill*float64(len(staff.Skills)))
	return hoursLeft + preferred + skills
}
