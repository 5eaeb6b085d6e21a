package models

import (
	"encoding/json"
	"time"
)

// Role is a staff qualification that a shift can require
type Role string

const (
	RoleRN           Role = "rn"
	RoleLPN          Role = "lpn"
	RoleCNA          Role = "cna"
	RoleCaregiver    Role = "caregiver"
	RoleMedTech      Role = "med_tech"
	RoleHousekeeping Role = "housekeeping"
)

// IsValid reports whether r is one of the known roles
func (r Role) IsValid() bool {
	switch r {
	case RoleRN, RoleLPN, RoleCNA, RoleCaregiver, RoleMedTech, RoleHousekeeping:
		return true
	}
	return false
}

// ShiftType is the part of the day a shift covers
type ShiftType string

const (
	ShiftDay     ShiftType = "day"
	ShiftEvening ShiftType = "evening"
	ShiftNight   ShiftType = "night"
)

// IsValid reports whether t is one of the known shift types
func (t ShiftType) IsValid() bool {
	return t == ShiftDay || t == ShiftEvening || t == ShiftNight
}

// ShiftStatus is the lifecycle state of a shift
type ShiftStatus string

const (
	ShiftPlanned    ShiftStatus = "planned"
	ShiftPublished  ShiftStatus = "published"
	ShiftInProgress ShiftStatus = "in_progress"
	ShiftCompleted  ShiftStatus = "completed"
	ShiftCancelled  ShiftStatus = "cancelled"
)

// Schedulable reports whether the auto-assigner may still add staff to a shift in this state
func (s ShiftStatus) Schedulable() bool {
	return s == ShiftPlanned || s == ShiftPublished
}

// SchedulableStatuses lists the states the auto-assigner plans over
var SchedulableStatuses = []ShiftStatus{ShiftPlanned, ShiftPublished}

// DateLayout is the calendar date format used for shift dates
const DateLayout = "2006-01-02"

// Availability is one recurring weekly window during which a staff member can work
type Availability struct {
	Day   string `json:"day" binding:"required,oneof=mon tue wed thu fri sat sun"`
	Start string `json:"start" binding:"required,clock"`
	End   string `json:"end" binding:"required,clock"`
}

// Staff represents a care worker who can be assigned to shifts
type Staff struct {
	ID              string         `gorm:"primaryKey;size:36" json:"id"`
	FirstName       string         `gorm:"not null" json:"first_name" binding:"required"`
	LastName        string         `gorm:"not null" json:"last_name" binding:"required"`
	Email           string         `gorm:"not null" json:"email" binding:"required,email"`
	Phone           string         `json:"phone,omitempty"`
	Role            Role           `gorm:"index;not null" json:"role" binding:"required,oneof=rn lpn cna caregiver med_tech housekeeping"`
	Skills          []string       `gorm:"serializer:json" json:"skills"`
	MaxHoursPerWeek int            `gorm:"not null" json:"max_hours_per_week" binding:"min=1,max=80"`
	PreferredShift  ShiftType      `json:"preferred_shift,omitempty" binding:"omitempty,oneof=day evening night"`
	Availability    []Availability `gorm:"serializer:json" json:"availability" binding:"dive"`
	IsActive        bool           `gorm:"index" json:"is_active"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// NewStaff returns a Staff carrying the defaults applied to fields a caller leaves out
func NewStaff() Staff {
	return Staff{
		Skills:          []string{},
		MaxHoursPerWeek: 40,
		Availability:    []Availability{},
		IsActive:        true,
	}
}

// UnmarshalJSON applies the NewStaff defaults before decoding
func (s *Staff) UnmarshalJSON(data []byte) error {
	type plain Staff
	p := plain(NewStaff())
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*s = Staff(p)
	return nil
}

// Shift represents a block of coverage needing staff of one role
type Shift struct {
	ID               string      `gorm:"primaryKey;size:36" json:"id"`
	Facility         string      `gorm:"not null" json:"facility"`
	Date             string      `gorm:"index;size:10;not null" json:"date" binding:"required,datetime=2006-01-02"`
	Type             ShiftType   `gorm:"not null" json:"type" binding:"required,oneof=day evening night"`
	StartTime        string      `gorm:"size:5;not null" json:"start_time" binding:"required,clock"`
	EndTime          string      `gorm:"size:5;not null" json:"end_time" binding:"required,clock"`
	RequiredRole     Role        `gorm:"not null" json:"required_role" binding:"required,oneof=rn lpn cna caregiver med_tech housekeeping"`
	RequiredCount    int         `gorm:"not null" json:"required_count" binding:"min=1,max=20"`
	AssignedStaffIDs []string    `gorm:"serializer:json" json:"assigned_staff_ids" binding:"unique"`
	Status           ShiftStatus `gorm:"index;not null" json:"status" binding:"oneof=planned published in_progress completed cancelled"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// NewShift returns a Shift carrying the defaults applied to fields a caller leaves out
func NewShift() Shift {
	return Shift{
		Facility:         "Main",
		RequiredCount:    1,
		AssignedStaffIDs: []string{},
		Status:           ShiftPlanned,
	}
}

// UnmarshalJSON applies the NewShift defaults before decoding
func (s *Shift) UnmarshalJSON(data []byte) error {
	type plain Shift
	p := plain(NewShift())
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*s = Shift(p)
	return nil
}

// ShiftMutation is the change the auto-assigner wants persisted for one shift
type ShiftMutation struct {
	ShiftID          string      `json:"shift_id"`
	AssignedStaffIDs []string    `json:"assigned_staff_ids"`
	Status           ShiftStatus `json:"status"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// ConflictReason explains why a shift was left short of staff
type ConflictReason struct {
	ShiftID string   `json:"shift_id"`
	Role    Role     `json:"role"`
	Needed  int      `json:"needed"`
	Reasons []string `json:"reasons"`
}

// Snapshot is a self-contained scheduling input, as read by the offline planner
type Snapshot struct {
	Shifts []Shift `json:"shifts" binding:"dive"`
	Staff  []Staff `json:"staff" binding:"dive"`
}
