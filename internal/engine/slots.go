package engine

import (
	"github.com/adenafil/campus-timetable-api/internal/models"
)

// Built-in shift defaults.
const (
	defaultMorningStart = "07:30"
	defaultMorningEnd   = "17:00"
	defaultEveningStart = "15:30"
	defaultEveningEnd   = "21:00"
	defaultSlotDuration = 50

	// eveningEligibleHour is the earliest start hour an evening class may use,
	// including late morning-shift slots it can fall back into.
	eveningEligibleHour = 15
)

// DefaultDays returns the built-in teaching days, Monday through Saturday.
func DefaultDays() []string {
	return []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}
}

// ShiftWindow is a fully resolved slot-generation window for one shift.
type ShiftWindow struct {
	StartTime    string
	EndTime      string
	SlotDuration int
}

// ShiftOverride layers a partial window over the built-in defaults. Zero
// values inherit.
type ShiftOverride struct {
	StartTime    string `json:"startTime,omitempty"`
	EndTime      string `json:"endTime,omitempty"`
	SlotDuration int    `json:"slotDuration,omitempty"`
}

// CustomSlots replaces generation entirely for both shifts.
type CustomSlots struct {
	Pagi  []models.TimeSlot `json:"pagi"`
	Malam []models.TimeSlot `json:"malam"`
}

// SlotConfig selects how the slot catalog is produced. CustomTimeSlots takes
// strict priority over the merge-mode overrides; a nil config yields the
// built-in defaults.
type SlotConfig struct {
	Pagi            *ShiftOverride `json:"pagi,omitempty"`
	Malam           *ShiftOverride `json:"malam,omitempty"`
	Days            []string       `json:"days,omitempty"`
	CustomTimeSlots *CustomSlots   `json:"customTimeSlots,omitempty"`
}

// Catalog is the generated search space: the ordered morning and evening
// slot sequences.
type Catalog struct {
	Morning []models.TimeSlot
	Evening []models.TimeSlot
}

// BuildCatalog produces the slot catalog for the given configuration. It
// rejects malformed clock values before any search begins.
func BuildCatalog(cfg *SlotConfig) (Catalog, error) {
	if cfg != nil && cfg.CustomTimeSlots != nil {
		return Catalog{
			Morning: append([]models.TimeSlot(nil), cfg.CustomTimeSlots.Pagi...),
			Evening: append([]models.TimeSlot(nil), cfg.CustomTimeSlots.Malam...),
		}, nil
	}

	morning := ShiftWindow{StartTime: defaultMorningStart, EndTime: defaultMorningEnd, SlotDuration: defaultSlotDuration}
	evening := ShiftWindow{StartTime: defaultEveningStart, EndTime: defaultEveningEnd, SlotDuration: defaultSlotDuration}
	days := DefaultDays()

	if cfg != nil {
		if err := applyOverride(&morning, cfg.Pagi); err != nil {
			return Catalog{}, err
		}
		if err := applyOverride(&evening, cfg.Malam); err != nil {
			return Catalog{}, err
		}
		if len(cfg.Days) > 0 {
			days = append([]string(nil), cfg.Days...)
		}
	}

	return Catalog{
		Morning: generateSlots(morning, days),
		Evening: generateSlots(evening, days),
	}, nil
}

func applyOverride(window *ShiftWindow, override *ShiftOverride) error {
	if override == nil {
		return nil
	}
	if override.StartTime != "" {
		if _, err := ParseClock(override.StartTime); err != nil {
			return err
		}
		window.StartTime = override.StartTime
	}
	if override.EndTime != "" {
		if _, err := ParseClock(override.EndTime); err != nil {
			return err
		}
		window.EndTime = override.EndTime
	}
	if override.SlotDuration > 0 {
		window.SlotDuration = override.SlotDuration
	}
	return nil
}

// generateSlots emits consecutive slots of the window's duration separated by
// the fixed break, restarting the period counter for each day, and stops for
// a day once the next slot would run past the window end.
func generateSlots(window ShiftWindow, days []string) []models.TimeSlot {
	start := TimeToMinutes(window.StartTime)
	end := TimeToMinutes(window.EndTime)

	var slots []models.TimeSlot
	for _, day := range days {
		period := 1
		for t := start; t+window.SlotDuration <= end; t += window.SlotDuration + breakMinutes {
			slots = append(slots, models.TimeSlot{
				Day:    day,
				Start:  MinutesToTime(t),
				End:    MinutesToTime(t + window.SlotDuration),
				Period: period,
			})
			period++
		}
	}
	return slots
}

// ForShift returns the candidate slots for one shift. Evening classes may
// also use late morning slots, so their candidate set is every slot starting
// at hour 15 or later.
func (c Catalog) ForShift(shift string) []models.TimeSlot {
	if shift == models.ShiftEvening {
		return c.EveningEligible()
	}
	return c.Morning
}

// EveningEligible returns all morning and evening slots whose start hour is
// at or past the evening threshold.
func (c Catalog) EveningEligible() []models.TimeSlot {
	var eligible []models.TimeSlot
	for _, slot := range c.Morning {
		if TimeToMinutes(slot.Start)/60 >= eveningEligibleHour {
			eligible = append(eligible, slot)
		}
	}
	for _, slot := range c.Evening {
		if TimeToMinutes(slot.Start)/60 >= eveningEligibleHour {
			eligible = append(eligible, slot)
		}
	}
	return eligible
}
