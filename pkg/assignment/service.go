package assignment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/arnavshah/care-scheduler-api/pkg/models"
	"github.com/arnavshah/care-scheduler-api/pkg/scheduler"
)

// ErrInvalidDate is returned when the requested date is not YYYY-MM-DD
var ErrInvalidDate = errors.New("date must be YYYY-MM-DD")

// Store defines the database operations needed for an auto-assign pass
type Store interface {
	ListSchedulableShifts(ctx context.Context, date string) ([]models.Shift, error)
	ListCommitments(ctx context.Context, from, to string) ([]models.Shift, error)
	ListActiveStaff(ctx context.Context) ([]models.Staff, error)
	ApplyShiftMutations(ctx context.Context, mutations []models.ShiftMutation) ([]string, error)
	GetShifts(ctx context.Context, ids []string) ([]models.Shift, error)
}

// Request selects the shifts to plan. An empty Date plans every schedulable shift.
type Request struct {
	Date string `json:"date" binding:"omitempty,datetime=2006-01-02"`
}

// Result contains the outcome of a pass
type Result struct {
	Updated       int                     `json:"updated"`
	Shifts        []models.Shift          `json:"shifts"`
	Unfilled      []models.ConflictReason `json:"unfilled,omitempty"`
	FairnessScore float64                 `json:"fairness_score"`
	StaffCount    int                     `json:"-"`
}

// Service loads a snapshot, runs the planner and persists its mutations
type Service struct {
	store   Store
	planner *scheduler.Planner
	logger  *zap.Logger
}

// NewService creates an assignment service. A nil planner uses the defaults.
func NewService(store Store, planner *scheduler.Planner, logger *zap.Logger) *Service {
	if planner == nil {
		planner = scheduler.NewPlanner()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if planner.Logger == nil {
		planner.Logger = logger
	}
	return &Service{store: store, planner: planner, logger: logger}
}

// Preview runs the planner on the current snapshot without writing anything
func (s *Service) Preview(ctx context.Context, req Request) (*scheduler.Plan, error) {
	plan, _, err := s.plan(ctx, req)
	return plan, err
}

// AutoAssign fills open slots in the selected shifts and returns the shifts it changed
func (s *Service) AutoAssign(ctx context.Context, req Request) (*Result, error) {
	plan, staffCount, err := s.plan(ctx, req)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Shifts:        []models.Shift{},
		Unfilled:      plan.Conflicts,
		FairnessScore: plan.FairnessScore,
		StaffCount:    staffCount,
	}
	if len(plan.Mutations) == 0 {
		s.logger.Info("auto-assign found nothing to change",
			zap.String("date", req.Date),
			zap.Int("unfilled", len(plan.Conflicts)))
		return result, nil
	}

	ids, err := s.store.ApplyShiftMutations(ctx, plan.Mutations)
	if err != nil {
		return nil, fmt.Errorf("failed to save assignments: %w", err)
	}
	if len(ids) < len(plan.Mutations) {
		s.logger.Warn("some shifts changed state during the pass and were skipped",
			zap.Int("planned", len(plan.Mutations)),
			zap.Int("written", len(ids)))
	}

	shifts, err := s.store.GetShifts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to reload assigned shifts: %w", err)
	}
	result.Updated = len(ids)
	result.Shifts = shifts

	s.logger.Info("auto-assign complete",
		zap.String("date", req.Date),
		zap.Int("updated", result.Updated),
		zap.Int("unfilled", len(result.Unfilled)),
		zap.Float64("fairness_score", result.FairnessScore))
	return result, nil
}

func (s *Service) plan(ctx context.Context, req Request) (*scheduler.Plan, int, error) {
	from, to, err := WeekRange(req.Date)
	if err != nil {
		return nil, 0, err
	}

	shifts, err := s.store.ListSchedulableShifts(ctx, req.Date)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load shifts: %w", err)
	}
	staff, err := s.store.ListActiveStaff(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load staff: %w", err)
	}

	// Without a date only the shifts being planned count toward hours
	var commitments []models.Shift
	if req.Date != "" {
		commitments, err = s.store.ListCommitments(ctx, from, to)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to load commitments: %w", err)
		}
	}

	s.logger.Debug("planning auto-assign pass",
		zap.String("date", req.Date),
		zap.Int("shifts", len(shifts)),
		zap.Int("staff", len(staff)),
		zap.Int("commitments", len(commitments)))

	return s.planner.Plan(shifts, staff, commitments), len(staff), nil
}

// WeekRange returns the Monday and Sunday of the ISO week containing date.
// An empty date gives an open range.
func WeekRange(date string) (string, string, error) {
	if date == "" {
		return "", "", nil
	}
	d, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}

	offset := (int(d.Weekday()) + 6) % 7
	monday := d.AddDate(0, 0, -offset)
	sunday := monday.AddDate(0, 0, 6)
	return monday.Format(models.DateLayout), sunday.Format(models.DateLayout), nil
}
