package timetable

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseClock parses a "HH:MM" board time
func ParseClock(s string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid clock time %q", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return hour, minute, nil
}

// AnchorClock places a dateless "HH:MM" on the calendar date of anchor in loc.
// A result earlier than anchor is rolled forward one day.
func AnchorClock(clock string, anchor time.Time, loc *time.Location) (time.Time, error) {
	hour, minute, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	if loc == nil {
		loc = time.UTC
	}

	local := anchor.In(loc)
	t := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	if t.Before(local) {
		t = t.AddDate(0, 0, 1)
	}
	return t, nil
}

// EffectiveClock picks the estimated time when it is a clock value, else the scheduled one.
// Boards report estimates as "On time", "Delayed", "Cancelled" or "HH:MM".
func EffectiveClock(scheduled, estimated string) string {
	if _, _, err := ParseClock(estimated); err == nil {
		return estimated
	}
	return scheduled
}
