package engine

import (
	"fmt"
	"strings"

	"github.com/adenafil/campus-timetable-api/internal/models"
)

// Constraint identifiers used in violation records.
const (
	HCLecturerConflict = "HC1: Lecturer Conflict"
	HCRoomConflict     = "HC2: Room Conflict"
	HCRoomCapacity     = "HC3: Room Capacity"
	HCProgramConflict  = "HC4: Program Conflict"
	HCResearchDay      = "HC5: Research Day"
	HCDailyLoad        = "HC6: Max Daily Load"
	HCShiftWindow      = "HC7: Shift Consistency"
	HCSaturdayAccess   = "HC8: Saturday Restriction"
	HCFridayStart      = "HC9: Friday Start"
	HCPrayerStart      = "HC10: Prayer Time Start"

	SCPrayerOverlap = "SC1: Prayer Overlap"
)

// saturdayProgram is the only program allowed to occupy Saturday slots.
const saturdayProgram = "magister manajemen"

// IsSaturdayProgram reports whether the program may be scheduled on Saturday.
func IsSaturdayProgram(program string) bool {
	return strings.Contains(strings.ToLower(program), saturdayProgram)
}

// Weights tunes the fitness contribution of each constraint family.
type Weights struct {
	Hard          float64
	PreferredTime float64
	PreferredRoom float64
	Transit       float64
	Compactness   float64
	Prayer        float64
	Evening       float64
	Lab           float64
}

// DefaultWeights returns the standard constraint weighting.
func DefaultWeights() Weights {
	return Weights{
		Hard:          100,
		PreferredTime: 2,
		PreferredRoom: 1,
		Transit:       3,
		Compactness:   2,
		Prayer:        2,
		Evening:       1,
		Lab:           4,
	}
}

// Checker evaluates hard and soft constraints over a partial schedule. It
// holds indexed room and lecturer lookups plus a violation log that is reset
// at the start of every fitness evaluation.
type Checker struct {
	rooms      map[string]models.Room
	lecturers  map[string]models.Lecturer
	violations []models.ConstraintViolation
}

// NewChecker indexes the reference data for O(1) lookups.
func NewChecker(rooms []models.Room, lecturers []models.Lecturer) *Checker {
	c := &Checker{
		rooms:     make(map[string]models.Room, len(rooms)),
		lecturers: make(map[string]models.Lecturer, len(lecturers)),
	}
	for _, room := range rooms {
		c.rooms[room.Code] = room
	}
	for _, lecturer := range lecturers {
		c.lecturers[lecturer.Code] = lecturer
	}
	return c
}

// Reset clears the violation log.
func (c *Checker) Reset() {
	c.violations = c.violations[:0]
}

// Violations returns the log accumulated since the last reset.
func (c *Checker) Violations() []models.ConstraintViolation {
	return c.violations
}

func (c *Checker) record(entry models.ScheduleEntry, constraint, reason, severity string, detail map[string]any) {
	c.violations = append(c.violations, models.ConstraintViolation{
		CourseCode: entry.CourseCode,
		CourseName: entry.CourseName,
		Constraint: constraint,
		Reason:     reason,
		Severity:   severity,
		Detail:     detail,
	})
}

// entriesOverlap reports whether two entries occupy intersecting intervals on
// the same day, using prayer-adjusted end times. It is symmetric.
func entriesOverlap(a, b models.ScheduleEntry) bool {
	if a.Slot.Day != b.Slot.Day {
		return false
	}
	aStart := TimeToMinutes(a.Slot.Start)
	aEnd := AdjustedEndMinutes(a.Slot.Start, a.SKS, a.Slot.Day)
	bStart := TimeToMinutes(b.Slot.Start)
	bEnd := AdjustedEndMinutes(b.Slot.Start, b.SKS, b.Slot.Day)
	return aStart < bEnd && bStart < aEnd
}

func sharedLecturer(a, b models.ScheduleEntry) (string, bool) {
	for _, code := range a.Lecturers {
		if containsLecturer(b, code) {
			return code, true
		}
	}
	return "", false
}

func containsLecturer(entry models.ScheduleEntry, code string) bool {
	for _, c := range entry.Lecturers {
		if c == code {
			return true
		}
	}
	return false
}

// --- Hard constraints ---

// CheckNoLecturerConflict fails when the entry shares a lecturer and an
// overlapping interval with any earlier entry.
func (c *Checker) CheckNoLecturerConflict(entry models.ScheduleEntry, prior []models.ScheduleEntry) bool {
	for _, other := range prior {
		code, shared := sharedLecturer(entry, other)
		if shared && entriesOverlap(entry, other) {
			c.record(entry, HCLecturerConflict,
				fmt.Sprintf("lecturer %s is double-booked on %s with %s", code, entry.Slot.Day, other.CourseCode),
				models.SeverityHard,
				map[string]any{"lecturer": code, "conflictsWith": other.CourseCode})
			return false
		}
	}
	return true
}

// CheckNoRoomConflict fails when the entry's room hosts an overlapping
// earlier entry.
func (c *Checker) CheckNoRoomConflict(entry models.ScheduleEntry, prior []models.ScheduleEntry) bool {
	for _, other := range prior {
		if entry.RoomCode == other.RoomCode && entriesOverlap(entry, other) {
			c.record(entry, HCRoomConflict,
				fmt.Sprintf("room %s is double-booked on %s with %s", entry.RoomCode, entry.Slot.Day, other.CourseCode),
				models.SeverityHard,
				map[string]any{"room": entry.RoomCode, "conflictsWith": other.CourseCode})
			return false
		}
	}
	return true
}

// CheckRoomCapacity fails for an unknown room or a capacity shortfall.
func (c *Checker) CheckRoomCapacity(entry models.ScheduleEntry) bool {
	room, ok := c.rooms[entry.RoomCode]
	if !ok {
		c.record(entry, HCRoomCapacity,
			fmt.Sprintf("room %s is not in the room catalog", entry.RoomCode),
			models.SeverityHard,
			map[string]any{"room": entry.RoomCode})
		return false
	}
	if room.Capacity < entry.Participants {
		c.record(entry, HCRoomCapacity,
			fmt.Sprintf("room %s seats %d but %d participants enrolled", room.Code, room.Capacity, entry.Participants),
			models.SeverityHard,
			map[string]any{"room": room.Code, "capacity": room.Capacity, "participants": entry.Participants})
		return false
	}
	return true
}

// CheckNoProgramConflict fails when students of one program would sit two
// overlapping classes.
func (c *Checker) CheckNoProgramConflict(entry models.ScheduleEntry, prior []models.ScheduleEntry) bool {
	for _, other := range prior {
		if strings.EqualFold(entry.Program, other.Program) && entriesOverlap(entry, other) {
			c.record(entry, HCProgramConflict,
				fmt.Sprintf("program %s has overlapping classes %s and %s on %s", entry.Program, entry.CourseCode, other.CourseCode, entry.Slot.Day),
				models.SeverityHard,
				map[string]any{"program": entry.Program, "conflictsWith": other.CourseCode})
			return false
		}
	}
	return true
}

// CheckResearchDay fails when any assigned lecturer has declared the entry's
// day as their research day.
func (c *Checker) CheckResearchDay(entry models.ScheduleEntry) bool {
	for _, code := range entry.Lecturers {
		lecturer, ok := c.lecturers[code]
		if !ok || lecturer.ResearchDay == "" {
			continue
		}
		if strings.EqualFold(lecturer.ResearchDay, entry.Slot.Day) {
			c.record(entry, HCResearchDay,
				fmt.Sprintf("lecturer %s holds %s as research day", code, lecturer.ResearchDay),
				models.SeverityHard,
				map[string]any{"lecturer": code, "day": lecturer.ResearchDay})
			return false
		}
	}
	return true
}

// CheckDailyLoad fails when an assigned lecturer's credit units for the day,
// counting earlier entries plus this one, exceed their configured maximum.
func (c *Checker) CheckDailyLoad(entry models.ScheduleEntry, prior []models.ScheduleEntry) bool {
	for _, code := range entry.Lecturers {
		lecturer, ok := c.lecturers[code]
		if !ok || lecturer.MaxDailySKS <= 0 {
			continue
		}
		load := entry.SKS
		for _, other := range prior {
			if other.Slot.Day != entry.Slot.Day {
				continue
			}
			for _, otherCode := range other.Lecturers {
				if otherCode == code {
					load += other.SKS
					break
				}
			}
		}
		if load > lecturer.MaxDailySKS {
			c.record(entry, HCDailyLoad,
				fmt.Sprintf("lecturer %s reaches %d SKS on %s, max is %d", code, load, entry.Slot.Day, lecturer.MaxDailySKS),
				models.SeverityHard,
				map[string]any{"lecturer": code, "load": load, "max": lecturer.MaxDailySKS})
			return false
		}
	}
	return true
}

// CheckShiftWindow fails when an entry starts outside its shift's window:
// evening entries must start at hour 15 or later, morning entries before 18.
func (c *Checker) CheckShiftWindow(entry models.ScheduleEntry) bool {
	hour := TimeToMinutes(entry.Slot.Start) / 60
	if entry.Shift == models.ShiftEvening && hour < 15 {
		c.record(entry, HCShiftWindow,
			fmt.Sprintf("evening class starts at %s, before 15:00", entry.Slot.Start),
			models.SeverityHard, nil)
		return false
	}
	if entry.Shift != models.ShiftEvening && hour >= 18 {
		c.record(entry, HCShiftWindow,
			fmt.Sprintf("morning class starts at %s, at or after 18:00", entry.Slot.Start),
			models.SeverityHard, nil)
		return false
	}
	return true
}

// CheckSaturdayAccess fails when a non-privileged program occupies a
// Saturday slot. Detection only, placement is not blocked here.
func (c *Checker) CheckSaturdayAccess(entry models.ScheduleEntry) bool {
	if !strings.EqualFold(entry.Slot.Day, "Saturday") || IsSaturdayProgram(entry.Program) {
		return true
	}
	c.record(entry, HCSaturdayAccess,
		fmt.Sprintf("program %s may not be scheduled on Saturday", entry.Program),
		models.SeverityHard,
		map[string]any{"program": entry.Program})
	return false
}

// CheckFridayStart fails for Friday starts during hours 11-13.
func (c *Checker) CheckFridayStart(entry models.ScheduleEntry) bool {
	if !strings.EqualFold(entry.Slot.Day, "Friday") || IsValidFridayStart(entry.Slot.Start) {
		return true
	}
	c.record(entry, HCFridayStart,
		fmt.Sprintf("class starts at %s on Friday, inside the restricted window", entry.Slot.Start),
		models.SeverityHard, nil)
	return false
}

// CheckPrayerStart fails when the entry starts inside a prayer window.
func (c *Checker) CheckPrayerStart(entry models.ScheduleEntry) bool {
	if !StartsDuringPrayer(entry.Slot.Start) {
		return true
	}
	c.record(entry, HCPrayerStart,
		fmt.Sprintf("class starts at %s during prayer time", entry.Slot.Start),
		models.SeverityHard, nil)
	return false
}

// --- Soft constraints, each scored in [0,1] ---

func preferredBand(hour int) string {
	switch {
	case hour >= 7 && hour < 12:
		return models.PreferredMorning
	case hour >= 12 && hour < 15:
		return models.PreferredMidday
	case hour >= 15 && hour < 18:
		return models.PreferredEvening
	case hour >= 18:
		return models.PreferredNight
	default:
		return ""
	}
}

// ScorePreferredTime averages, over lecturers that state a preference,
// whether the start hour falls in their preferred band.
func (c *Checker) ScorePreferredTime(entry models.ScheduleEntry) float64 {
	band := preferredBand(TimeToMinutes(entry.Slot.Start) / 60)
	total, counted := 0.0, 0
	for _, code := range entry.Lecturers {
		lecturer, ok := c.lecturers[code]
		if !ok || lecturer.PreferredTime == "" {
			continue
		}
		counted++
		if strings.EqualFold(lecturer.PreferredTime, band) {
			total++
		}
	}
	if counted == 0 {
		return 1.0
	}
	return total / float64(counted)
}

// ScorePreferredRoom averages, over lecturers that state a preference,
// whether the assigned room matches it.
func (c *Checker) ScorePreferredRoom(entry models.ScheduleEntry) float64 {
	total, counted := 0.0, 0
	for _, code := range entry.Lecturers {
		lecturer, ok := c.lecturers[code]
		if !ok || lecturer.PreferredRoom == "" {
			continue
		}
		counted++
		if lecturer.PreferredRoom == entry.RoomCode {
			total++
		}
	}
	if counted == 0 {
		return 1.0
	}
	return total / float64(counted)
}

// ScoreTransitGap penalises commutes shorter than a lecturer's declared
// minimum gap, taking the worst shortfall across all earlier same-day
// classes of that lecturer.
func (c *Checker) ScoreTransitGap(entry models.ScheduleEntry, prior []models.ScheduleEntry) float64 {
	score := 1.0
	start := TimeToMinutes(entry.Slot.Start)
	for _, code := range entry.Lecturers {
		lecturer, ok := c.lecturers[code]
		if !ok || lecturer.MinTransitGap <= 0 {
			continue
		}
		for _, other := range prior {
			if other.Slot.Day != entry.Slot.Day {
				continue
			}
			if !containsLecturer(other, code) {
				continue
			}
			gap := start - AdjustedEndMinutes(other.Slot.Start, other.SKS, other.Slot.Day)
			if gap >= lecturer.MinTransitGap {
				continue
			}
			candidate := 0.0
			if gap > 0 {
				candidate = float64(gap) / float64(lecturer.MinTransitGap)
			}
			if candidate < score {
				score = candidate
			}
		}
	}
	return score
}

// ScoreCompactness rewards tight same-day schedules: gaps up to an hour are
// fine, then the score decays linearly until a four-hour gap scores zero.
func (c *Checker) ScoreCompactness(entry models.ScheduleEntry, prior []models.ScheduleEntry) float64 {
	start := TimeToMinutes(entry.Slot.Start)
	end := AdjustedEndMinutes(entry.Slot.Start, entry.SKS, entry.Slot.Day)

	minGap := -1
	for _, other := range prior {
		if other.Slot.Day != entry.Slot.Day {
			continue
		}
		otherStart := TimeToMinutes(other.Slot.Start)
		otherEnd := AdjustedEndMinutes(other.Slot.Start, other.SKS, other.Slot.Day)

		gap := 0
		switch {
		case otherEnd <= start:
			gap = start - otherEnd
		case end <= otherStart:
			gap = otherStart - end
		}
		if minGap < 0 || gap < minGap {
			minGap = gap
		}
	}
	if minGap < 0 {
		return 1.0
	}
	switch {
	case minGap <= 60:
		return 1.0
	case minGap >= 240:
		return 0.0
	default:
		return 1.0 - float64(minGap-60)/180.0
	}
}

// ScorePrayerOverlap penalises classes absorbing prayer minutes and records
// a soft violation for each affected entry.
func (c *Checker) ScorePrayerOverlap(entry models.ScheduleEntry) float64 {
	overlap := PrayerOverlap(entry.Slot.Start, entry.SKS, entry.Slot.Day)
	if overlap == 0 {
		return 1.0
	}
	c.record(entry, SCPrayerOverlap,
		fmt.Sprintf("class absorbs %d prayer minutes", overlap),
		models.SeveritySoft,
		map[string]any{"minutes": overlap})
	score := 1.0 - float64(overlap)/100.0
	if score < 0.5 {
		score = 0.5
	}
	return score
}

// ScoreEveningAnchor rewards evening classes that start at the 18:00 anchor.
func (c *Checker) ScoreEveningAnchor(entry models.ScheduleEntry) float64 {
	if entry.Shift != models.ShiftEvening {
		return 1.0
	}
	hour := TimeToMinutes(entry.Slot.Start) / 60
	switch {
	case hour == 18:
		return 1.0
	case hour >= 15 && hour <= 17:
		return 0.7
	default:
		return 0.5
	}
}

// ScoreLabAffinity scores lab placement: full marks when no lab is needed or
// a lab is assigned, half marks for a non-lab fallback, zero for an unknown
// room.
func (c *Checker) ScoreLabAffinity(entry models.ScheduleEntry) float64 {
	if !entry.NeedsLab {
		return 1.0
	}
	room, ok := c.rooms[entry.RoomCode]
	if !ok {
		return 0.0
	}
	if room.IsLab() {
		return 1.0
	}
	return 0.5
}

// Evaluate computes the weighted violation score of a full schedule. Each
// entry is checked only against the entries before it, so a pairwise
// conflict is attributed to the later entry. The violation log is reset
// before scoring begins.
func (c *Checker) Evaluate(schedule []models.ScheduleEntry, w Weights) float64 {
	c.Reset()

	total := 0.0
	for i := range schedule {
		entry := schedule[i]
		prior := schedule[:i]

		hardFails := 0
		if !c.CheckNoLecturerConflict(entry, prior) {
			hardFails++
		}
		if !c.CheckNoRoomConflict(entry, prior) {
			hardFails++
		}
		if !c.CheckRoomCapacity(entry) {
			hardFails++
		}
		if !c.CheckNoProgramConflict(entry, prior) {
			hardFails++
		}
		if !c.CheckResearchDay(entry) {
			hardFails++
		}
		if !c.CheckDailyLoad(entry, prior) {
			hardFails++
		}
		if !c.CheckShiftWindow(entry) {
			hardFails++
		}
		if !c.CheckSaturdayAccess(entry) {
			hardFails++
		}
		if !c.CheckFridayStart(entry) {
			hardFails++
		}
		if !c.CheckPrayerStart(entry) {
			hardFails++
		}
		total += float64(hardFails) * w.Hard

		total += (1 - c.ScorePreferredTime(entry)) * w.PreferredTime
		total += (1 - c.ScorePreferredRoom(entry)) * w.PreferredRoom
		total += (1 - c.ScoreTransitGap(entry, prior)) * w.Transit
		total += (1 - c.ScoreCompactness(entry, prior)) * w.Compactness
		total += (1 - c.ScorePrayerOverlap(entry)) * w.Prayer
		total += (1 - c.ScoreEveningAnchor(entry)) * w.Evening
		total += (1 - c.ScoreLabAffinity(entry)) * w.Lab
	}
	return total
}

// Report partitions the current violation log by severity with a
// per-constraint tally.
func (c *Checker) Report() *models.ViolationReport {
	report := &models.ViolationReport{
		Hard:        []models.ConstraintViolation{},
		Soft:        []models.ConstraintViolation{},
		CountByType: make(map[string]int),
	}
	for _, v := range c.violations {
		report.CountByType[v.Constraint]++
		if v.Severity == models.SeverityHard {
			report.Hard = append(report.Hard, v)
		} else {
			report.Soft = append(report.Soft, v)
		}
	}
	return report
}
