package models

import (
	"strings"
	"time"

	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
)

// Shift labels used by class requirements and generated entries.
const (
	ShiftMorning = "morning"
	ShiftEvening = "evening"
)

// Violation severities.
const (
	SeverityHard = "hard"
	SeveritySoft = "soft"
)

// Preferred time-of-day bands a lecturer can declare.
const (
	PreferredMorning = "morning"
	PreferredMidday  = "midday"
	PreferredEvening = "evening"
	PreferredNight   = "night"
)

// Room is immutable reference data describing a teaching room.
type Room struct {
	Code     string `json:"code" db:"code"`
	Name     string `json:"name" db:"name"`
	Type     string `json:"type" db:"type"`
	Capacity int    `json:"capacity" db:"capacity"`
}

// IsLab reports whether the room type tag marks a laboratory.
func (r Room) IsLab() bool {
	return strings.Contains(strings.ToLower(r.Type), "lab")
}

// Lecturer is immutable reference data describing teaching staff and their
// scheduling preferences.
type Lecturer struct {
	Code          string `json:"code" db:"code"`
	Name          string `json:"name" db:"name"`
	Program       string `json:"program" db:"program"`
	PreferredTime string `json:"preferredTime,omitempty" db:"preferred_time"`
	ResearchDay   string `json:"researchDay,omitempty" db:"research_day"`
	MinTransitGap int    `json:"minTransitGap,omitempty" db:"min_transit_gap"`
	MaxDailySKS   int    `json:"maxDailySks,omitempty" db:"max_daily_sks"`
	PreferredRoom string `json:"preferredRoom,omitempty" db:"preferred_room"`
}

// ClassRequirement describes one course section that must be placed.
type ClassRequirement struct {
	CourseCode     string   `json:"courseCode"`
	CourseName     string   `json:"courseName"`
	Program        string   `json:"program"`
	SKS            int      `json:"sks"`
	Participants   int      `json:"participants"`
	LecturerCodes  []string `json:"lecturers"`
	NeedsLab       bool     `json:"needsLab"`
	Shift          string   `json:"shift"`
	CandidateRooms []string `json:"candidateRooms,omitempty"`
}

// TimeSlot is one candidate placement window. End is the nominal end time
// before any prayer-time adjustment; Period is unique within a (day, shift)
// sequence.
type TimeSlot struct {
	Day    string `json:"day"`
	Start  string `json:"start"`
	End    string `json:"end"`
	Period int    `json:"period"`
}

// ScheduleEntry is one placed occurrence of a class requirement. The
// effective end time is always derived by re-running the prayer adjustment
// against (Slot.Start, SKS, Slot.Day); PrayerMinutes records the extension.
type ScheduleEntry struct {
	CourseCode    string   `json:"courseCode"`
	CourseName    string   `json:"courseName"`
	Program       string   `json:"program"`
	Lecturers     []string `json:"lecturers"`
	RoomCode      string   `json:"room"`
	Slot          TimeSlot `json:"slot"`
	SKS           int      `json:"sks"`
	NeedsLab      bool     `json:"needsLab"`
	Participants  int      `json:"participants"`
	Shift         string   `json:"shift"`
	PrayerMinutes int      `json:"prayerMinutes"`
}

// ConstraintViolation records one broken rule for a specific entry.
type ConstraintViolation struct {
	CourseCode string         `json:"courseCode"`
	CourseName string         `json:"courseName"`
	Constraint string         `json:"constraint"`
	Reason     string         `json:"reason"`
	Severity   string         `json:"severity"`
	Detail     map[string]any `json:"detail,omitempty"`
}

// ViolationReport partitions violations by severity with a per-constraint
// tally.
type ViolationReport struct {
	Hard        []ConstraintViolation `json:"hard"`
	Soft        []ConstraintViolation `json:"soft"`
	CountByType map[string]int        `json:"countByType"`
}

// Solution is the solver's output: the placed entries in evaluation order,
// the final fitness, and a report rebuilt from the best schedule.
type Solution struct {
	Entries []ScheduleEntry  `json:"entries"`
	Fitness float64          `json:"fitness"`
	Report  *ViolationReport `json:"report,omitempty"`
}

// Saved timetable lifecycle states.
const (
	TimetableStatusDraft     = "DRAFT"
	TimetableStatusPublished = "PUBLISHED"
)

// SavedTimetable is the persisted header row for a stored solution.
type SavedTimetable struct {
	ID        string         `db:"id" json:"id"`
	Name      string         `db:"name" json:"name"`
	Status    string         `db:"status" json:"status"`
	Fitness   float64        `db:"fitness" json:"fitness"`
	Meta      types.JSONText `db:"meta" json:"meta,omitempty"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

// SavedTimetableEntry is one persisted schedule row.
type SavedTimetableEntry struct {
	ID            string         `db:"id" json:"id"`
	TimetableID   string         `db:"timetable_id" json:"timetable_id"`
	CourseCode    string         `db:"course_code" json:"course_code"`
	CourseName    string         `db:"course_name" json:"course_name"`
	Program       string         `db:"program" json:"program"`
	Lecturers     pq.StringArray `db:"lecturers" json:"lecturers"`
	RoomCode      string         `db:"room_code" json:"room_code"`
	Day           string         `db:"day" json:"day"`
	StartTime     string         `db:"start_time" json:"start_time"`
	EndTime       string         `db:"end_time" json:"end_time"`
	SKS           int            `db:"sks" json:"sks"`
	Shift         string         `db:"shift" json:"shift"`
	PrayerMinutes int            `db:"prayer_minutes" json:"prayer_minutes"`
}
