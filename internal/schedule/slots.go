package schedule

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

const minutesPerDay = 24 * 60

// ParseClock converts an "HH:MM" label to minutes since midnight.
func ParseClock(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("time %q out of range", s)
	}
	return hour*60 + minute, nil
}

// FormatClock renders minutes since midnight as zero-padded "HH:MM".
func FormatClock(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// GenerateSlots produces the ordered slot labels between startHour and
// closeHour. The close hour only contributes its ":00" slot: the clinic is
// closed at and after the close time except the exact top of the last hour.
// Malformed ranges yield an empty sequence.
func GenerateSlots(startHour, closeHour, intervalMinutes int) []string {
	if intervalMinutes <= 0 || startHour < 0 || closeHour > 23 || closeHour < startHour {
		return nil
	}

	var slots []string
	for hour := startHour; hour <= closeHour; hour++ {
		for minute := 0; minute < 60; minute += intervalMinutes {
			if hour == closeHour && minute > 0 {
				break
			}
			slots = append(slots, FormatClock(hour*60+minute))
		}
	}
	return slots
}

// overlaps reports whether two half-open windows of durationMinutes starting
// at a and b intersect.
func overlaps(a, b, durationMinutes int) bool {
	return a < b+durationMinutes && b < a+durationMinutes
}

// ConflictSlots expands a booked time into the slot labels it makes
// unavailable: every grid-aligned start whose occupied window would intersect
// the booked appointment's, plus the booked time itself. With an hour
// duration and half-hour grid a booking at "10:00" blocks
// {"09:30", "10:00", "10:30"}. Unparseable input yields nil.
func ConflictSlots(booked string, durationMinutes, intervalMinutes int) []string {
	b, err := ParseClock(booked)
	if err != nil || durationMinutes <= 0 || intervalMinutes <= 0 {
		return nil
	}

	var mins []int
	start := (b - durationMinutes) / intervalMinutes * intervalMinutes
	for c := start; c < b+durationMinutes; c += intervalMinutes {
		if c < 0 || c >= minutesPerDay {
			continue
		}
		if overlaps(b, c, durationMinutes) {
			mins = append(mins, c)
		}
	}
	if b%intervalMinutes != 0 {
		mins = append(mins, b)
		sort.Ints(mins)
	}

	slots := make([]string, 0, len(mins))
	for _, m := range mins {
		slots = append(slots, FormatClock(m))
	}
	return slots
}

// HasConflict reports whether the proposed time's occupied window intersects
// any of the booked times. Booked entries that fail to parse are skipped.
func HasConflict(proposed string, bookedTimes []string, durationMinutes int) bool {
	p, err := ParseClock(proposed)
	if err != nil {
		return false
	}
	for _, bt := range bookedTimes {
		b, err := ParseClock(bt)
		if err != nil {
			continue
		}
		if overlaps(p, b, durationMinutes) {
			return true
		}
	}
	return false
}

// FilterConflicts removes every candidate slot whose occupied window would
// intersect an existing booking, preserving order.
func FilterConflicts(slots []string, bookedTimes []string, durationMinutes int) []string {
	available := make([]string, 0, len(slots))
	for _, slot := range slots {
		if !HasConflict(slot, bookedTimes, durationMinutes) {
			available = append(available, slot)
		}
	}
	return available
}
