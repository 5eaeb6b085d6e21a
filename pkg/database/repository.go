package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arnavshah/care-scheduler-api/pkg/models"
)

// Repository stores residents, staff, shifts, care tasks and the admin tables in one gorm database
type Repository struct {
	db *gorm.DB
}

// NewRepository wraps an open database
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// DB exposes the underlying handle
func (r *Repository) DB() *gorm.DB {
	return r.db
}

// Ping checks the database connection and returns the tables it holds
func (r *Repository) Ping(ctx context.Context) ([]string, error) {
	sqlDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, err
	}
	return r.db.WithContext(ctx).Migrator().GetTables()
}

func newID() string {
	return uuid.NewString()
}

// CreateResident inserts a resident and assigns its id
func (r *Repository) CreateResident(ctx context.Context, resident *models.Resident) error {
	resident.ID = newID()
	if err := r.db.WithContext(ctx).Create(resident).Error; err != nil {
		return fmt.Errorf("failed to create resident: %w", err)
	}
	return nil
}

// ListResidents returns all residents in insertion order
func (r *Repository) ListResidents(ctx context.Context) ([]models.Resident, error) {
	var residents []models.Resident
	if err := r.db.WithContext(ctx).Order("created_at, id").Find(&residents).Error; err != nil {
		return nil, fmt.Errorf("failed to list residents: %w", err)
	}
	return residents, nil
}

// CreateStaff inserts a staff member and assigns its id
func (r *Repository) CreateStaff(ctx context.Context, staff *models.Staff) error {
	staff.ID = newID()
	if err := r.db.WithContext(ctx).Create(staff).Error; err != nil {
		return fmt.Errorf("failed to create staff: %w", err)
	}
	return nil
}

// ListStaff returns all staff in insertion order
func (r *Repository) ListStaff(ctx context.Context) ([]models.Staff, error) {
	var staff []models.Staff
	if err := r.db.WithContext(ctx).Order("created_at, id").Find(&staff).Error; err != nil {
		return nil, fmt.Errorf("failed to list staff: %w", err)
	}
	return staff, nil
}

// ListActiveStaff returns the staff who participate in scheduling
func (r *Repository) ListActiveStaff(ctx context.Context) ([]models.Staff, error) {
	var staff []models.Staff
	if err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("created_at, id").Find(&staff).Error; err != nil {
		return nil, fmt.Errorf("failed to list active staff: %w", err)
	}
	return staff, nil
}

// CreateShift inserts a shift and assigns its id
func (r *Repository) CreateShift(ctx context.Context, shift *models.Shift) error {
	shift.ID = newID()
	if shift.AssignedStaffIDs == nil {
		shift.AssignedStaffIDs = []string{}
	}
	if err := r.db.WithContext(ctx).Create(shift).Error; err != nil {
		return fmt.Errorf("failed to create shift: %w", err)
	}
	return nil
}

// ListShifts returns shifts matching the filter in insertion order
func (r *Repository) ListShifts(ctx context.Context, filter models.ShiftFilter) ([]models.Shift, error) {
	q := r.db.WithContext(ctx)
	if filter.Date != "" {
		q = q.Where("date = ?", filter.Date)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", string(filter.Status))
	}

	var shifts []models.Shift
	if err := q.Order("created_at, id").Find(&shifts).Error; err != nil {
		return nil, fmt.Errorf("failed to list shifts: %w", err)
	}
	return shifts, nil
}

// ListSchedulableShifts returns planned and published shifts, limited to one date when date is set
func (r *Repository) ListSchedulableShifts(ctx context.Context, date string) ([]models.Shift, error) {
	q := r.db.WithContext(ctx).Where("status IN ?", statusStrings(models.SchedulableStatuses))
	if date != "" {
		q = q.Where("date = ?", date)
	}

	var shifts []models.Shift
	if err := q.Order("created_at, id").Find(&shifts).Error; err != nil {
		return nil, fmt.Errorf("failed to list schedulable shifts: %w", err)
	}
	return shifts, nil
}

// ListCommitments returns non-cancelled shifts that already have staff, between from and to
// inclusive. Empty bounds are open.
func (r *Repository) ListCommitments(ctx context.Context, from, to string) ([]models.Shift, error) {
	q := r.db.WithContext(ctx).Where("status <> ?", string(models.ShiftCancelled))
	if from != "" {
		q = q.Where("date >= ?", from)
	}
	if to != "" {
		q = q.Where("date <= ?", to)
	}

	var shifts []models.Shift
	if err := q.Order("created_at, id").Find(&shifts).Error; err != nil {
		return nil, fmt.Errorf("failed to list commitments: %w", err)
	}

	// assigned ids live in a JSON column, so emptiness is checked here
	committed := shifts[:0]
	for _, sh := range shifts {
		if len(sh.AssignedStaffIDs) > 0 {
			committed = append(committed, sh)
		}
	}
	return committed, nil
}

// GetShifts returns the shifts with the given ids, in the order of ids. Missing ids are skipped.
func (r *Repository) GetShifts(ctx context.Context, ids []string) ([]models.Shift, error) {
	if len(ids) == 0 {
		return []models.Shift{}, nil
	}

	var found []models.Shift
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&found).Error; err != nil {
		return nil, fmt.Errorf("failed to get shifts: %w", err)
	}

	byID := make(map[string]models.Shift, len(found))
	for _, sh := range found {
		byID[sh.ID] = sh
	}
	shifts := make([]models.Shift, 0, len(ids))
	for _, id := range ids {
		if sh, ok := byID[id]; ok {
			shifts = append(shifts, sh)
		}
	}
	return shifts, nil
}

// ApplyShiftMutations writes a planning pass in one transaction and returns the ids of the
// shifts actually updated. A shift that left the planned/published states since it was read
// is not touched.
func (r *Repository) ApplyShiftMutations(ctx context.Context, mutations []models.ShiftMutation) ([]string, error) {
	updated := make([]string, 0, len(mutations))

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range mutations {
			res := tx.Model(&models.Shift{}).
				Where("id = ? AND status IN ?", m.ShiftID, statusStrings(models.SchedulableStatuses)).
				Select("assigned_staff_ids", "status", "updated_at").
				UpdateColumns(&models.Shift{
					AssignedStaffIDs: m.AssignedStaffIDs,
					Status:           m.Status,
					UpdatedAt:        m.UpdatedAt,
				})
			if res.Error != nil {
				return fmt.Errorf("failed to update shift %s: %w", m.ShiftID, res.Error)
			}
			if res.RowsAffected > 0 {
				updated = append(updated, m.ShiftID)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// CreateTask inserts a care task and assigns its id
func (r *Repository) CreateTask(ctx context.Context, task *models.CareTask) error {
	task.ID = newID()
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// ListTasks returns care tasks matching the filter
func (r *Repository) ListTasks(ctx context.Context, filter models.TaskFilter) ([]models.CareTask, error) {
	q := r.db.WithContext(ctx)
	if filter.ResidentID != "" {
		q = q.Where("resident_id = ?", filter.ResidentID)
	}
	if filter.StaffID != "" {
		q = q.Where("assigned_to_staff_id = ?", filter.StaffID)
	}

	var tasks []models.CareTask
	if err := q.Order("created_at, id").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// UpdateTaskStatus sets a task's status and returns the updated task
func (r *Repository) UpdateTaskStatus(ctx context.Context, id string, status models.TaskStatus) (*models.CareTask, error) {
	db := r.db.WithContext(ctx)

	res := db.Model(&models.CareTask{}).Where("id = ?", id).
		UpdateColumns(map[string]interface{}{"status": string(status), "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}

	var task models.CareTask
	if err := db.Where("id = ?", id).First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read task: %w", err)
	}
	return &task, nil
}

func statusStrings(statuses []models.ShiftStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
