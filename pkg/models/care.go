package models

import (
	"encoding/json"
	"time"
)

// ResidentContact is a family member or other contact for a resident
type ResidentContact struct {
	Name         string `json:"name" binding:"required"`
	Relationship string `json:"relationship" binding:"required"`
	Phone        string `json:"phone,omitempty"`
	Email        string `json:"email,omitempty" binding:"omitempty,email"`
}

// Resident represents a person living in the facility
type Resident struct {
	ID         string            `gorm:"primaryKey;size:36" json:"id"`
	FirstName  string            `gorm:"not null" json:"first_name" binding:"required"`
	LastName   string            `gorm:"not null" json:"last_name" binding:"required"`
	DOB        string            `gorm:"size:10" json:"dob" binding:"required,datetime=2006-01-02"`
	Room       string            `json:"room,omitempty"`
	CareLevel  string            `json:"care_level" binding:"oneof=independent assisted memory_care skilled_nursing"`
	Conditions []string          `gorm:"serializer:json" json:"conditions"`
	Allergies  []string          `gorm:"serializer:json" json:"allergies"`
	Physician  string            `json:"physician,omitempty"`
	Contacts   []ResidentContact `gorm:"serializer:json" json:"contacts" binding:"dive"`
	Notes      string            `json:"notes,omitempty"`
	IsActive   bool              `json:"is_active"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// UnmarshalJSON applies resident defaults before decoding
func (r *Resident) UnmarshalJSON(data []byte) error {
	type plain Resident
	p := plain{
		CareLevel:  "assisted",
		Conditions: []string{},
		Allergies:  []string{},
		Contacts:   []ResidentContact{},
		IsActive:   true,
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = Resident(p)
	return nil
}

// TaskStatus is the progress state of a care task
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskMissed     TaskStatus = "missed"
	TaskCancelled  TaskStatus = "cancelled"
)

// CareTask is a unit of care work for a resident, optionally owned by a staff member
type CareTask struct {
	ID                string            `gorm:"primaryKey;size:36" json:"id"`
	ResidentID        string            `gorm:"index;not null" json:"resident_id" binding:"required"`
	Title             string            `gorm:"not null" json:"title" binding:"required"`
	Description       string            `json:"description,omitempty"`
	Category          string            `json:"category" binding:"oneof=medication hygiene mobility nutrition vitals checkin other"`
	Priority          string            `json:"priority" binding:"oneof=low medium high urgent"`
	DueAt             *time.Time        `json:"due_at,omitempty"`
	Frequency         string            `json:"frequency" binding:"oneof=once hourly daily weekly"`
	AssignedToStaffID string            `gorm:"index" json:"assigned_to_staff_id,omitempty"`
	Status            TaskStatus        `gorm:"index" json:"status" binding:"oneof=pending in_progress completed missed cancelled"`
	Metadata          map[string]string `gorm:"serializer:json" json:"metadata"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// UnmarshalJSON applies task defaults before decoding
func (t *CareTask) UnmarshalJSON(data []byte) error {
	type plain CareTask
	p := plain{
		Category:  "other",
		Priority:  "medium",
		Frequency: "once",
		Status:    TaskPending,
		Metadata:  map[string]string{},
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*t = CareTask(p)
	return nil
}

// TaskFilter narrows a task listing; empty fields match everything
type TaskFilter struct {
	ResidentID string
	StaffID    string
}

// ShiftFilter narrows a shift listing; empty fields match everything
type ShiftFilter struct {
	Date   string
	Status ShiftStatus
}
