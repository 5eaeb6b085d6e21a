package scheduler

import (
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/arnavshah/care-scheduler-api/pkg/models"
)

// Planner fills shift slots greedily with the best scoring eligible staff
type Planner struct {
	// Now stamps mutations. Defaults to time.Now.
	Now func() time.Time

	// EnforceWeeklyCap rejects candidates whose hours would pass max_hours_per_week.
	// Off by default: remaining capacity only lowers the score.
	EnforceWeeklyCap bool

	Logger *zap.Logger
}

// Plan is the outcome of one pass
type Plan struct {
	Mutations     []models.ShiftMutation  `json:"mutations"`
	Conflicts     []models.ConflictReason `json:"conflicts,omitempty"`
	StaffHours    map[string]float64      `json:"staff_hours"`
	FairnessScore float64                 `json:"fairness_score"`
}

// NewPlanner creates a planner with default settings
func NewPlanner() *Planner {
	return &Planner{Now: time.Now, Logger: zap.NewNop()}
}

// PlanAssignments runs one pass over shifts and active staff, seeding commitments from the
// shifts themselves, and returns the shifts whose assignment changed.
func PlanAssignments(shifts []models.Shift, staff []models.Staff) []models.ShiftMutation {
	return NewPlanner().Plan(shifts, staff, nil).Mutations
}

// GroupByRole returns active staff with a valid role keyed by that role, in input order.
// A staff id listed more than once is kept at its first occurrence.
func GroupByRole(staff []models.Staff) map[models.Role][]*models.Staff {
	return groupByRole(staff, zap.NewNop())
}

func groupByRole(staff []models.Staff, logger *zap.Logger) map[models.Role][]*models.Staff {
	byRole := make(map[models.Role][]*models.Staff)
	seen := make(map[string]bool, len(staff))
	for i := range staff {
		s := &staff[i]
		if !s.IsActive || !s.Role.IsValid() {
			continue
		}
		if seen[s.ID] {
			logger.Debug("skipping duplicate staff id", zap.String("staff_id", s.ID))
			continue
		}
		seen[s.ID] = true
		byRole[s.Role] = append(byRole[s.Role], s)
	}
	return byRole
}

type candidate struct {
	staff *models.Staff
	score float64
}

// rejections counts why candidates of a role were turned away from a shift
type rejections struct {
	unavailable int
	overlapping int
	atCap       int
}

// Plan runs the greedy fill. commitments are assigned shifts outside the planned set (other
// days of the week, shifts already in progress) that still count toward hours and overlaps.
// Inputs are not modified.
func (p *Planner) Plan(shifts []models.Shift, staff []models.Staff, commitments []models.Shift) *Plan {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	tracker := NewTracker()
	tracker.Seed(shifts)
	tracker.Seed(commitments)

	byRole := groupByRole(staff, logger)
	plan := &Plan{Mutations: []models.ShiftMutation{}}

	for i := range shifts {
		sh := &shifts[i]
		if !p.plannable(sh, logger) {
			continue
		}
		if len(sh.AssignedStaffIDs) >= sh.RequiredCount {
			continue
		}

		assigned := append([]string{}, sh.AssignedStaffIDs...)
		already := make(map[string]bool, len(assigned))
		for _, id := range assigned {
			already[id] = true
		}

		duration := DurationHours(sh.StartTime, sh.EndTime)
		var rej rejections
		var scored []candidate
		for _, s := range byRole[sh.RequiredRole] {
			if already[s.ID] {
				continue
			}
			if !IsAvailable(s, sh) {
				rej.unavailable++
				continue
			}
			if tracker.HasOverlap(s.ID, sh) {
				rej.overlapping++
				continue
			}
			if p.EnforceWeeklyCap && tracker.Hours(s.ID)+duration > float64(s.MaxHoursPerWeek) {
				rej.atCap++
				continue
			}
			scored = append(scored, candidate{
				staff: s,
				score: Score(s, sh, tracker.HoursLeft(s.ID, s.MaxHoursPerWeek)),
			})
		}

		// Highest score first; staff id keeps equal scores reproducible
		sort.Slice(scored, func(a, b int) bool {
			if scored[a].score != scored[b].score {
				return scored[a].score > scored[b].score
			}
			return scored[a].staff.ID < scored[b].staff.ID
		})

		for _, c := range scored {
			if len(assigned) >= sh.RequiredCount {
				break
			}
			assigned = append(assigned, c.staff.ID)
			already[c.staff.ID] = true
			tracker.Book(c.staff.ID, sh)
		}

		if len(assigned) != len(sh.AssignedStaffIDs) {
			plan.Mutations = append(plan.Mutations, models.ShiftMutation{
				ShiftID:          sh.ID,
				AssignedStaffIDs: assigned,
				Status:           models.ShiftPublished,
				UpdatedAt:        now().UTC(),
			})
		}

		if missing := sh.RequiredCount - len(assigned); missing > 0 {
			plan.Conflicts = append(plan.Conflicts, models.ConflictReason{
				ShiftID: sh.ID,
				Role:    sh.RequiredRole,
				Needed:  missing,
				Reasons: rej.reasons(sh.RequiredRole, len(byRole[sh.RequiredRole])),
			})
		}
	}

	plan.StaffHours = make(map[string]float64)
	for _, members := range byRole {
		for _, s := range members {
			plan.StaffHours[s.ID] = tracker.Hours(s.ID)
		}
	}
	plan.FairnessScore = CalculateFairnessScore(plan.StaffHours)

	logger.Debug("planned assignments",
		zap.Int("shifts", len(shifts)),
		zap.Int("staff", len(staff)),
		zap.Int("mutations", len(plan.Mutations)),
		zap.Int("unfilled", len(plan.Conflicts)),
	)
	return plan
}

// plannable reports whether a shift is in a state and shape the planner can fill
func (p *Planner) plannable(sh *models.Shift, logger *zap.Logger) bool {
	if !sh.Status.Schedulable() {
		return false
	}
	if !sh.RequiredRole.IsValid() {
		logger.Debug("skipping shift with unknown role", zap.String("shift_id", sh.ID), zap.String("role", string(sh.RequiredRole)))
		return false
	}
	if _, ok := shiftWindow(sh); !ok {
		logger.Debug("skipping shift with malformed date or times", zap.String("shift_id", sh.ID))
		return false
	}
	return true
}

func (r rejections) reasons(role models.Role, poolSize int) []string {
	if poolSize == 0 {
		return []string{fmt.Sprintf("no active staff with role %s", role)}
	}
	var reasons []string
	if r.unavailable > 0 {
		reasons = append(reasons, fmt.Sprintf("%d staff were unavailable for the shift window", r.unavailable))
	}
	if r.overlapping > 0 {
		reasons = append(reasons, fmt.Sprintf("%d staff had overlapping shifts", r.overlapping))
	}
	if r.atCap > 0 {
		reasons = append(reasons, fmt.Sprintf("%d staff were at max weekly hours", r.atCap))
	}
	if len(reasons) == 0 {
		reasons = append(reasons, "all eligible staff were assigned")
	}
	return reasons
}

// CalculateFairnessScore returns a percentage (0-100) representing how evenly
// hours are distributed. 100% is perfectly fair (Standard Deviation = 0).
func CalculateFairnessScore(hours map[string]float64) float64 {
	if len(hours) == 0 {
		return 100.0
	}

	var sum float64
	for _, h := range hours {
		sum += h
	}

	if sum == 0 {
		return 100.0 // Everyone having 0 hours is perfectly fair
	}

	mean := sum / float64(len(hours))

	var varianceSum float64
	for _, h := range hours {
		diff := h - mean
		varianceSum += diff * diff
	}
	stdDev := math.Sqrt(varianceSum / float64(len(hours)))

	// 100% means SD is 0. 0% means SD is >= mean.
	score := (1.0 - (stdDev / mean)) * 100.0
	if score < 0 {
		return 0.0
	}
	return score
}
