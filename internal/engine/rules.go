// Package engine implements the timetabling core: time-slot generation,
// domain rules, the constraint checker, and the simulated-annealing solver.
package engine

import (
	"fmt"
	"strconv"
	"strings"
)

// breakMinutes is the fixed pause inserted between consecutive slots.
const breakMinutes = 10

// prayerWindow is a fixed daily blackout interval, half-open [Start, End).
type prayerWindow struct {
	Name  string
	Start int
	End   int
}

// The three daily prayer windows, applicable every day including Saturday.
var prayerWindows = []prayerWindow{
	{Name: "Dzuhur", Start: 11*60 + 40, End: 12*60 + 30},
	{Name: "Ashar", Start: 15 * 60, End: 15*60 + 30},
	{Name: "Maghrib", Start: 18 * 60, End: 18*60 + 30},
}

// TimeToMinutes converts a "HH:MM" clock value to minutes since midnight.
// Input is assumed well-formed; malformed values map to 0.
func TimeToMinutes(clock string) int {
	h, m, ok := splitClock(clock)
	if !ok {
		return 0
	}
	return h*60 + m
}

// MinutesToTime converts minutes since midnight back to "HH:MM". It is the
// exact inverse of TimeToMinutes for valid input.
func MinutesToTime(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// ParseClock validates a "HH:MM" value at the configuration boundary.
func ParseClock(clock string) (int, error) {
	h, m, ok := splitClock(clock)
	if !ok || h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid clock value %q, expected HH:MM", clock)
	}
	return h*60 + m, nil
}

func splitClock(clock string) (int, int, bool) {
	parts := strings.SplitN(clock, ":", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, false
	}
	return h, m, true
}

// BaseDuration returns the nominal class duration in minutes for the given
// credit-unit (SKS) count: sks*50 teaching minutes plus a 10-minute pause
// between consecutive units.
func BaseDuration(sks int) int {
	if sks <= 0 {
		return 0
	}
	return sks*50 + (sks-1)*10
}

// PrayerOverlap sums the durations of every prayer window intersecting the
// class's nominal interval [start, start+BaseDuration). The day parameter is
// kept for call-site symmetry with AdjustedEnd; the windows apply every day.
func PrayerOverlap(startTime string, sks int, day string) int {
	_ = day
	start := TimeToMinutes(startTime)
	end := start + BaseDuration(sks)
	total := 0
	for _, w := range prayerWindows {
		if start < w.End && end > w.Start {
			total += w.End - w.Start
		}
	}
	return total
}

// AdjustedEnd returns the effective end time of a class: the nominal end
// shifted later by the total overlapping prayer duration. This is the
// authoritative "occupies the room until" value for all overlap tests.
func AdjustedEnd(startTime string, sks int, day string) string {
	return MinutesToTime(AdjustedEndMinutes(startTime, sks, day))
}

// AdjustedEndMinutes is AdjustedEnd in minutes since midnight.
func AdjustedEndMinutes(startTime string, sks int, day string) int {
	return TimeToMinutes(startTime) + BaseDuration(sks) + PrayerOverlap(startTime, sks, day)
}

// IsValidFridayStart reports whether a class may start at the given time on a
// Friday. Starts during hours 11, 12, and 13 are blocked.
func IsValidFridayStart(startTime string) bool {
	hour := TimeToMinutes(startTime) / 60
	return hour != 11 && hour != 12 && hour != 13
}

// StartsDuringPrayer reports whether the start instant falls inside any
// prayer window, using half-open [start, end) semantics.
func StartsDuringPrayer(startTime string) bool {
	start := TimeToMinutes(startTime)
	for _, w := range prayerWindows {
		if start >= w.Start && start < w.End {
			return true
		}
	}
	return false
}
