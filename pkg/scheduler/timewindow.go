package scheduler

import (
	"fmt"
	"time"

	"github.com/arnavshah/care-scheduler-api/pkg/models"
)

// DefaultShiftHours is credited for a shift whose times cannot be parsed
const DefaultShiftHours = 8.0

const minutesPerDay = 24 * 60

// Clock is a wall-clock time of day in minutes after midnight
type Clock int

// ParseClock parses a zero-padded 24-hour HH:MM string
func ParseClock(s string) (Clock, error) {
	if !models.ValidClock(s) {
		return 0, fmt.Errorf("invalid clock %q, expected HH:MM", s)
	}
	h := int(s[0]-'0')*10 + int(s[1]-'0')
	m := int(s[3]-'0')*10 + int(s[4]-'0')
	return Clock(h*60 + m), nil
}

// String formats c as HH:MM
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// span returns the half-open minute range of a window, running past midnight when end is not after start
func span(start, end Clock) (Clock, Clock) {
	if end <= start {
		end += minutesPerDay
	}
	return start, end
}

// Overlaps checks if two time windows on the same date intersect. Touching boundaries do not overlap.
// Unlike a plain comparison of clock times, a window whose end is not after its start is treated
// as running past midnight, so 22:00-06:00 overlaps 20:00-23:00.
func Overlaps(start1, end1, start2, end2 Clock) bool {
	s1, e1 := span(start1, end1)
	s2, e2 := span(start2, end2)
	return !(e1 <= s2 || e2 <= s1)
}

// DurationHours calculates the length of a shift in hours.
// A shift ending at or before its start crosses midnight.
func DurationHours(start, end string) float64 {
	st, err := ParseClock(start)
	if err != nil {
		return DefaultShiftHours
	}
	en, err := ParseClock(end)
	if err != nil {
		return DefaultShiftHours
	}
	diff := float64(en-st) / 60
	if diff <= 0 {
		diff += 24
	}
	return diff
}

// window is a booked or requested time range on a calendar date
type window struct {
	date  string
	start Clock
	end   Clock
}

// shiftWindow parses the date and times of a shift
func shiftWindow(shift *models.Shift) (window, bool) {
	if _, err := time.Parse(models.DateLayout, shift.Date); err != nil {
		return window{}, false
	}
	st, err := ParseClock(shift.StartTime)
	if err != nil {
		return window{}, false
	}
	en, err := ParseClock(shift.EndTime)
	if err != nil {
		return window{}, false
	}
	return window{date: shift.Date, start: st, end: en}, true
}

// weekday returns the lowercase three letter day abbreviation for a YYYY-MM-DD date
func weekday(date string) (string, bool) {
	d, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return "", false
	}
	return dayKeys[d.Weekday()], true
}

var dayKeys = [...]string{
	time.Sunday:    "sun",
	time.Monday:    "mon",
	time.Tuesday:   "tue",
	time.Wednesday: "wed",
	time.Thursday:  "thu",
	time.Friday:    "fri",
	time.Saturday:  "sat",
}
