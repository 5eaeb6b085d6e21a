package scheduler

import "github.com/arnavshah/care-scheduler-api/pkg/models"

// Tracker records per-staff committed hours and booked windows for one planning pass
type Tracker struct {
	hours  map[string]float64
	booked map[string][]window
	seeded map[string]bool
}

// NewTracker creates an empty tracker
func NewTracker() *Tracker {
	return &Tracker{
		hours:  make(map[string]float64),
		booked: make(map[string][]window),
		seeded: make(map[string]bool),
	}
}

// Seed records the existing assignments of every shift. A shift id is seeded at most once,
// so the same shift may appear both in the planned set and in the commitments.
func (t *Tracker) Seed(shifts []models.Shift) {
	for i := range shifts {
		sh := &shifts[i]
		if len(sh.AssignedStaffIDs) == 0 {
			continue
		}
		if sh.ID != "" {
			if t.seeded[sh.ID] {
				continue
			}
			t.seeded[sh.ID] = true
		}
		for _, staffID := range sh.AssignedStaffIDs {
			t.Book(staffID, sh)
		}
	}
}

// Book credits a staff member with a shift's hours and reserves its window
func (t *Tracker) Book(staffID string, shift *models.Shift) {
	t.hours[staffID] += DurationHours(shift.StartTime, shift.EndTime)
	if w, ok := shiftWindow(shift); ok {
		t.booked[staffID] = append(t.booked[staffID], w)
	}
}

// HasOverlap checks if a staff member already has a booking on the shift's date that intersects it
func (t *Tracker) HasOverlap(staffID string, shift *models.Shift) bool {
	sw, ok := shiftWindow(shift)
	if !ok {
		return false
	}
	for _, w := range t.booked[staffID] {
		if w.date == sw.date && Overlaps(w.start, w.end, sw.start, sw.end) {
			return true
		}
	}
	return false
}

// Hours returns the hours committed so far for a staff member
func (t *Tracker) Hours(staffID string) float64 {
	return t.hours[staffID]
}

// HoursLeft returns the remaining weekly capacity, never negative
func (t *Tracker) HoursLeft(staffID string, maxHours int) float64 {
	left := float64(maxHours) - t.hours[staffID]
	if left < 0 {
		return 0
	}
	return left
}
