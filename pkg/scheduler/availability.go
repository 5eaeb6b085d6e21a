package scheduler

import "github.com/arnavshah/care-scheduler-api/pkg/models"

// PreferenceAllows reports whether a staff member's shift preference admits the shift type.
// No preference admits every type.
func PreferenceAllows(staff *models.Staff, shift *models.Shift) bool {
	return staff.PreferredShift == "" || staff.PreferredShift == shift.Type
}

// IsAvailable checks if a staff member may work a shift: the preference must admit the
// shift type and one availability window on the shift's weekday must contain the shift.
func IsAvailable(staff *models.Staff, shift *models.Shift) bool {
	if !PreferenceAllows(staff, shift) {
		return false
	}
	return coversShift(staff.Availability, shift)
}

// coversShift looks for a window on the shift's weekday fully containing the shift times
func coversShift(availability []models.Availability, shift *models.Shift) bool {
	sw, ok := shiftWindow(shift)
	if !ok {
		return false
	}
	day, _ := weekday(shift.Date)

	for _, a := range availability {
		if a.Day != day {
			continue
		}
		start, err := ParseClock(a.Start)
		if err != nil {
			continue
		}
		end, err := ParseClock(a.End)
		if err != nil {
			continue
		}
		if start <= sw.start && end >= sw.end {
			return true
		}
	}
	return false
}
