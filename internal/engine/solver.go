package engine

import (
	"context"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/adenafil/campus-timetable-api/internal/models"
)

// nanFitness replaces a degenerate NaN fitness so the search never ranks a
// broken schedule above a valid one.
const nanFitness = 999999

// Config tunes the annealing schedule. Zero fields fall back to defaults.
type Config struct {
	InitialTemperature float64
	MinTemperature     float64
	CoolingRate        float64
	MaxIterations      int
	ReheatAfter        int
	ReheatFactor       float64
	// MaxReheats bounds the reheating mechanism. Zero falls back to the
	// default; a negative value disables reheating entirely.
	MaxReheats int
	Chains     int
	Seed               int64
	Weights            Weights
}

// DefaultConfig returns the standard annealing tuning.
func DefaultConfig() Config {
	return Config{
		InitialTemperature: 1000,
		MinTemperature:     0.01,
		CoolingRate:        0.995,
		MaxIterations:      20000,
		ReheatAfter:        800,
		ReheatFactor:       15,
		MaxReheats:         3,
		Chains:             1,
		Weights:            DefaultWeights(),
	}
}

func (cfg Config) withDefaults() Config {
	def := DefaultConfig()
	if cfg.InitialTemperature <= 0 {
		cfg.InitialTemperature = def.InitialTemperature
	}
	if cfg.MinTemperature <= 0 {
		cfg.MinTemperature = def.MinTemperature
	}
	if cfg.CoolingRate <= 0 || cfg.CoolingRate >= 1 {
		cfg.CoolingRate = def.CoolingRate
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = def.MaxIterations
	}
	if cfg.ReheatAfter <= 0 {
		cfg.ReheatAfter = def.ReheatAfter
	}
	if cfg.ReheatFactor <= 1 {
		cfg.ReheatFactor = def.ReheatFactor
	}
	if cfg.MaxReheats == 0 {
		cfg.MaxReheats = def.MaxReheats
	}
	if cfg.Chains <= 0 {
		cfg.Chains = def.Chains
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	if cfg.Weights == (Weights{}) {
		cfg.Weights = def.Weights
	}
	return cfg
}

// Stats summarises one solver run.
type Stats struct {
	Iterations int           `json:"iterations"`
	Reheats    int           `json:"reheats"`
	Chains     int           `json:"chains"`
	Dropped    int           `json:"droppedClasses"`
	Duration   time.Duration `json:"-"`
}

// Solver searches slot/room assignments for a fixed set of class
// requirements using simulated annealing with reheating. Each chain owns an
// independent schedule, checker, and random stream.
type Solver struct {
	rooms       []models.Room
	lecturers   []models.Lecturer
	classes     []models.ClassRequirement
	catalog     Catalog
	roomIndex   map[string]models.Room
	classByCode map[string]models.ClassRequirement
	cfg         Config
	logger      *zap.Logger
}

// NewSolver builds a solver over the given reference data and slot catalog.
func NewSolver(rooms []models.Room, lecturers []models.Lecturer, classes []models.ClassRequirement, catalog Catalog, cfg Config, logger *zap.Logger) *Solver {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Solver{
		rooms:       rooms,
		lecturers:   lecturers,
		classes:     classes,
		catalog:     catalog,
		roomIndex:   make(map[string]models.Room, len(rooms)),
		classByCode: make(map[string]models.ClassRequirement, len(classes)),
		cfg:         cfg.withDefaults(),
		logger:      logger,
	}
	for _, room := range rooms {
		s.roomIndex[room.Code] = room
	}
	for _, class := range classes {
		s.classByCode[class.CourseCode] = class
	}
	return s
}

// Solve runs the configured number of annealing chains and returns the best
// schedule found, re-scored once to attach a fresh violation report.
func (s *Solver) Solve(ctx context.Context) (*models.Solution, Stats) {
	started := time.Now()
	cfg := s.cfg

	type chainResult struct {
		schedule   []models.ScheduleEntry
		fitness    float64
		iterations int
		reheats    int
		dropped    int
	}

	results := make([]chainResult, cfg.Chains)
	var wg sync.WaitGroup
	for i := 0; i < cfg.Chains; i++ {
		wg.Add(1)
		go func(chain int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(cfg.Seed + int64(chain)))
			checker := NewChecker(s.rooms, s.lecturers)
			r := &results[chain]
			r.schedule, r.fitness, r.iterations, r.reheats, r.dropped = s.runChain(ctx, rng, checker)
			s.logger.Debug("annealing chain finished",
				zap.Int("chain", chain),
				zap.Float64("fitness", r.fitness),
				zap.Int("iterations", r.iterations),
				zap.Int("reheats", r.reheats))
		}(i)
	}
	wg.Wait()

	best := results[0]
	for _, r := range results[1:] {
		if r.fitness < best.fitness {
			best = r
		}
	}

	checker := NewChecker(s.rooms, s.lecturers)
	fitness := s.fitness(checker, best.schedule)
	solution := &models.Solution{
		Entries: best.schedule,
		Fitness: fitness,
		Report:  checker.Report(),
	}
	stats := Stats{
		Iterations: best.iterations,
		Reheats:    best.reheats,
		Chains:     cfg.Chains,
		Dropped:    best.dropped,
		Duration:   time.Since(started),
	}
	return solution, stats
}

func (s *Solver) runChain(ctx context.Context, rng *rand.Rand, checker *Checker) ([]models.ScheduleEntry, float64, int, int, int) {
	cfg := s.cfg
	current, dropped := s.initialSchedule(rng)
	currentFitness := s.fitness(checker, current)

	best := cloneSchedule(current)
	bestFitness := currentFitness

	temp := cfg.InitialTemperature
	sinceImprovement := 0
	reheats := 0
	iter := 0

	for ; iter < cfg.MaxIterations && temp > cfg.MinTemperature && len(current) > 0; iter++ {
		if iter%1024 == 0 && ctx.Err() != nil {
			break
		}

		candidate := s.neighbor(rng, current)
		candidateFitness := s.fitness(checker, candidate)

		if candidateFitness < currentFitness ||
			rng.Float64() < math.Exp((currentFitness-candidateFitness)/temp) {
			current = candidate
			currentFitness = candidateFitness
		}

		if currentFitness < bestFitness {
			best = cloneSchedule(current)
			bestFitness = currentFitness
			sinceImprovement = 0
		} else {
			sinceImprovement++
		}

		if sinceImprovement >= cfg.ReheatAfter && reheats < cfg.MaxReheats {
			temp *= cfg.ReheatFactor
			reheats++
			sinceImprovement = 0
		}

		temp *= cfg.CoolingRate
	}

	return best, bestFitness, iter, reheats, dropped
}

// initialSchedule places each schedulable class in a uniformly random
// eligible room and slot. Classes with no eligible room or slot are dropped,
// not errored.
func (s *Solver) initialSchedule(rng *rand.Rand) ([]models.ScheduleEntry, int) {
	var schedule []models.ScheduleEntry
	dropped := 0
	for _, class := range s.classes {
		if len(class.LecturerCodes) == 0 {
			dropped++
			continue
		}
		rooms := s.eligibleRooms(class)
		slots := s.eligibleSlots(class)
		if len(rooms) == 0 || len(slots) == 0 {
			dropped++
			s.logger.Debug("class dropped from schedule",
				zap.String("course", class.CourseCode),
				zap.Int("eligibleRooms", len(rooms)),
				zap.Int("eligibleSlots", len(slots)))
			continue
		}
		room := rooms[rng.Intn(len(rooms))]
		slot := slots[rng.Intn(len(slots))]
		schedule = append(schedule, s.placeEntry(class, room, slot))
	}
	return schedule, dropped
}

func (s *Solver) placeEntry(class models.ClassRequirement, room models.Room, slot models.TimeSlot) models.ScheduleEntry {
	return models.ScheduleEntry{
		CourseCode:    class.CourseCode,
		CourseName:    class.CourseName,
		Program:       class.Program,
		Lecturers:     class.LecturerCodes,
		RoomCode:      room.Code,
		Slot:          slot,
		SKS:           class.SKS,
		NeedsLab:      class.NeedsLab,
		Participants:  class.Participants,
		Shift:         class.Shift,
		PrayerMinutes: PrayerOverlap(slot.Start, class.SKS, slot.Day),
	}
}

// neighbor copies the schedule and reassigns one random entry's slot or room
// under the same eligibility filters used at construction.
func (s *Solver) neighbor(rng *rand.Rand, schedule []models.ScheduleEntry) []models.ScheduleEntry {
	candidate := cloneSchedule(schedule)
	idx := rng.Intn(len(candidate))
	entry := candidate[idx]

	class, ok := s.classByCode[entry.CourseCode]
	if !ok {
		return candidate
	}

	if rng.Float64() < 0.5 {
		if slots := s.eligibleSlots(class); len(slots) > 0 {
			entry.Slot = slots[rng.Intn(len(slots))]
		}
	} else {
		if rooms := s.eligibleRooms(class); len(rooms) > 0 {
			entry.RoomCode = rooms[rng.Intn(len(rooms))].Code
		}
	}

	entry.PrayerMinutes = PrayerOverlap(entry.Slot.Start, entry.SKS, entry.Slot.Day)
	candidate[idx] = entry
	return candidate
}

func (s *Solver) fitness(checker *Checker, schedule []models.ScheduleEntry) float64 {
	f := checker.Evaluate(schedule, s.cfg.Weights)
	if math.IsNaN(f) {
		return nanFitness
	}
	return f
}

// eligibleRooms filters rooms for a class: an explicit candidate list wins,
// lab classes prefer lab rooms with a non-lab fallback, and capacity always
// applies.
func (s *Solver) eligibleRooms(class models.ClassRequirement) []models.Room {
	if len(class.CandidateRooms) > 0 {
		var out []models.Room
		for _, code := range class.CandidateRooms {
			if room, ok := s.roomIndex[code]; ok && room.Capacity >= class.Participants {
				out = append(out, room)
			}
		}
		return out
	}

	if class.NeedsLab {
		var labs, fallback []models.Room
		for _, room := range s.rooms {
			if room.Capacity < class.Participants {
				continue
			}
			if room.IsLab() {
				labs = append(labs, room)
			} else {
				fallback = append(fallback, room)
			}
		}
		if len(labs) > 0 {
			return labs
		}
		return fallback
	}

	var out []models.Room
	for _, room := range s.rooms {
		if room.Capacity >= class.Participants {
			out = append(out, room)
		}
	}
	return out
}

// eligibleSlots filters the shift's slot set by Saturday access, Friday
// start rules, and prayer-time starts.
func (s *Solver) eligibleSlots(class models.ClassRequirement) []models.TimeSlot {
	var out []models.TimeSlot
	for _, slot := range s.catalog.ForShift(class.Shift) {
		if strings.EqualFold(slot.Day, "Saturday") && !IsSaturdayProgram(class.Program) {
			continue
		}
		if strings.EqualFold(slot.Day, "Friday") && !IsValidFridayStart(slot.Start) {
			continue
		}
		if StartsDuringPrayer(slot.Start) {
			continue
		}
		out = append(out, slot)
	}
	return out
}

func cloneSchedule(schedule []models.ScheduleEntry) []models.ScheduleEntry {
	return append([]models.ScheduleEntry(nil), schedule...)
}
