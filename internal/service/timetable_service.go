package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/adenafil/campus-timetable-api/internal/dto"
	"github.com/adenafil/campus-timetable-api/internal/engine"
	"github.com/adenafil/campus-timetable-api/internal/models"
	appErrors "github.com/adenafil/campus-timetable-api/pkg/errors"
)

type timetableRepository interface {
	CreateWithTx(ctx context.Context, tx *sqlx.Tx, tt *models.SavedTimetable) error
	BulkCreateEntriesWithTx(ctx context.Context, tx *sqlx.Tx, entries []models.SavedTimetableEntry) error
	List(ctx context.Context, status string) ([]models.SavedTimetable, error)
	FindByID(ctx context.Context, id string) (*models.SavedTimetable, error)
	ListEntries(ctx context.Context, timetableID string) ([]models.SavedTimetableEntry, error)
	UpdateStatus(ctx context.Context, id, status string) error
	Delete(ctx context.Context, id string) error
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// TimetableService orchestrates timetable generation, retrieval, and
// persistence of accepted results.
type TimetableService struct {
	timetables timetableRepository
	tx         txProvider
	cache      *CacheService
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	store      *resultStore
	solverCfg  engine.Config
}

// TimetableServiceConfig governs service behaviour.
type TimetableServiceConfig struct {
	ResultTTL time.Duration
	Solver    engine.Config
}

// NewTimetableService wires timetable dependencies.
func NewTimetableService(
	timetables timetableRepository,
	tx txProvider,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg TimetableServiceConfig,
) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = time.Hour
	}
	return &TimetableService{
		timetables: timetables,
		tx:         tx,
		cache:      cache,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
		store:      newResultStore(cfg.ResultTTL),
		solverCfg:  cfg.Solver,
	}
}

// Generate runs the annealing solver over the submitted dataset and keeps
// the result retrievable until it is saved or expires.
func (s *TimetableService) Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable generation payload")
	}

	catalog, err := engine.BuildCatalog(req.TimeSlots)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid time slot configuration")
	}

	rooms := mapRooms(req.Rooms)
	lecturers := mapLecturers(req.Lecturers)
	classes := mapClasses(req.Classes)

	cfg := applyTuning(s.solverCfg, req.Solver)
	solver := engine.NewSolver(rooms, lecturers, classes, catalog, cfg, s.logger)

	solution, stats := solver.Solve(ctx)

	if s.metrics != nil {
		hard := 0
		if solution.Report != nil {
			hard = len(solution.Report.Hard)
		}
		s.metrics.ObserveSolverRun(stats.Duration, solution.Fitness, stats.Iterations, hard)
	}

	name := req.Name
	if name == "" {
		name = fmt.Sprintf("timetable-%s", time.Now().UTC().Format("20060102-150405"))
	}

	result := timetableResult{
		TimetableID: uuid.NewString(),
		Name:        name,
		Solution:    solution,
		Stats:       stats,
		RequestedAt: time.Now().UTC(),
	}
	s.store.Save(result)

	s.logger.Info("timetable generated",
		zap.String("timetable_id", result.TimetableID),
		zap.Float64("fitness", solution.Fitness),
		zap.Int("entries", len(solution.Entries)),
		zap.Int("dropped", stats.Dropped),
		zap.Int("iterations", stats.Iterations),
		zap.Duration("duration", stats.Duration),
	)

	return result.toResponse(), nil
}

// Get returns a generated timetable by id, falling back to the shared cache
// and then the database for saved results.
func (s *TimetableService) Get(ctx context.Context, id string) (*dto.GenerateTimetableResponse, error) {
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "timetable id is required")
	}

	if result, ok := s.store.Get(id); ok {
		return result.toResponse(), nil
	}

	cacheKey := timetableCacheKey(id)
	if s.cache.Enabled() {
		var cached dto.GenerateTimetableResponse
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	resp, err := s.loadSaved(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache.Enabled() {
		_ = s.cache.Set(ctx, cacheKey, resp, 0)
	}
	return resp, nil
}

// Save persists a generated timetable, optionally publishing it in the same
// transaction.
func (s *TimetableService) Save(ctx context.Context, req dto.SaveTimetableRequest) (string, error) {
	if err := s.validator.Struct(req); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid save timetable payload")
	}
	result, ok := s.store.Get(req.TimetableID)
	if !ok {
		return "", appErrors.Clone(appErrors.ErrNotFound, "generated timetable not found or expired")
	}
	if s.timetables == nil || s.tx == nil {
		return "", appErrors.Clone(appErrors.ErrPreconditionFailed, "timetable persistence is not enabled")
	}

	defer s.observeDBQuery("timetable_save", time.Now())

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	metaPayload := map[string]any{
		"fitness":   result.Solution.Fitness,
		"stats":     result.statsDTO(),
		"generated": result.RequestedAt,
		"algorithm": "simulated_annealing_v1",
	}
	if result.Solution.Report != nil {
		metaPayload["violations"] = result.Solution.Report.CountByType
	}
	metaBytes, marshalErr := json.Marshal(metaPayload)
	if marshalErr != nil {
		err = appErrors.Wrap(marshalErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode timetable metadata")
		return "", err
	}

	status := models.TimetableStatusDraft
	if req.Publish {
		status = models.TimetableStatusPublished
	}

	record := &models.SavedTimetable{
		ID:      result.TimetableID,
		Name:    result.Name,
		Status:  status,
		Fitness: result.Solution.Fitness,
		Meta:    types.JSONText(metaBytes),
	}

	if err = s.timetables.CreateWithTx(ctx, tx, record); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create timetable")
		return "", err
	}

	rows := make([]models.SavedTimetableEntry, 0, len(result.Solution.Entries))
	for _, entry := range result.Solution.Entries {
		rows = append(rows, models.SavedTimetableEntry{
			TimetableID:   record.ID,
			CourseCode:    entry.CourseCode,
			CourseName:    entry.CourseName,
			Program:       entry.Program,
			Lecturers:     entry.Lecturers,
			RoomCode:      entry.RoomCode,
			Day:           entry.Slot.Day,
			StartTime:     entry.Slot.Start,
			EndTime:       engine.AdjustedEnd(entry.Slot.Start, entry.SKS, entry.Slot.Day),
			SKS:           entry.SKS,
			Shift:         entry.Shift,
			PrayerMinutes: entry.PrayerMinutes,
		})
	}

	if err = s.timetables.BulkCreateEntriesWithTx(ctx, tx, rows); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist timetable entries")
		return "", err
	}

	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit timetable transaction")
		return "", err
	}

	if s.cache.Enabled() {
		_ = s.cache.Invalidate(ctx, "timetable:*")
	}

	s.logger.Info("timetable saved",
		zap.String("timetable_id", record.ID),
		zap.String("status", record.Status),
		zap.Int("entries", len(rows)),
	)
	return record.ID, nil
}

// List returns saved timetable headers.
func (s *TimetableService) List(ctx context.Context, query dto.TimetableQuery) ([]models.SavedTimetable, error) {
	if s.timetables == nil {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "timetable persistence is not enabled")
	}
	if query.Status != "" && query.Status != models.TimetableStatusDraft && query.Status != models.TimetableStatusPublished {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be DRAFT or PUBLISHED")
	}
	start := time.Now()
	list, err := s.timetables.List(ctx, query.Status)
	s.observeDBQuery("timetable_list", start)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timetables")
	}
	return list, nil
}

// Publish transitions a saved timetable to the published state.
func (s *TimetableService) Publish(ctx context.Context, id string) error {
	if s.timetables == nil {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "timetable persistence is not enabled")
	}
	record, err := s.timetables.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	if record.Status == models.TimetableStatusPublished {
		return appErrors.Clone(appErrors.ErrConflict, "timetable is already published")
	}
	start := time.Now()
	err = s.timetables.UpdateStatus(ctx, id, models.TimetableStatusPublished)
	s.observeDBQuery("timetable_publish", start)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to publish timetable")
	}
	if s.cache.Enabled() {
		_ = s.cache.Invalidate(ctx, "timetable:*")
	}
	return nil
}

// Delete removes a generated or saved timetable.
func (s *TimetableService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return appErrors.Clone(appErrors.ErrValidation, "timetable id is required")
	}

	if _, ok := s.store.Get(id); ok {
		s.store.Delete(id)
	}

	if s.timetables == nil {
		return nil
	}
	record, err := s.timetables.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	if record.Status != models.TimetableStatusDraft {
		return appErrors.Clone(appErrors.ErrConflict, "only draft timetables can be deleted")
	}
	start := time.Now()
	err = s.timetables.Delete(ctx, id)
	s.observeDBQuery("timetable_delete", start)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete timetable")
	}
	if s.cache.Enabled() {
		_ = s.cache.Invalidate(ctx, "timetable:*")
	}
	return nil
}

func (s *TimetableService) loadSaved(ctx context.Context, id string) (*dto.GenerateTimetableResponse, error) {
	if s.timetables == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "generated timetable not found or expired")
	}
	start := time.Now()
	record, err := s.timetables.FindByID(ctx, id)
	if err != nil {
		s.observeDBQuery("timetable_load", start)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	rows, err := s.timetables.ListEntries(ctx, id)
	s.observeDBQuery("timetable_load", start)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable entries")
	}

	entries := make([]models.ScheduleEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, models.ScheduleEntry{
			CourseCode: row.CourseCode,
			CourseName: row.CourseName,
			Program:    row.Program,
			Lecturers:  row.Lecturers,
			RoomCode:   row.RoomCode,
			Slot: models.TimeSlot{
				Day:   row.Day,
				Start: row.StartTime,
				End:   row.EndTime,
			},
			SKS:           row.SKS,
			Shift:         row.Shift,
			PrayerMinutes: row.PrayerMinutes,
		})
	}

	return &dto.GenerateTimetableResponse{
		TimetableID: record.ID,
		Name:        record.Name,
		Fitness:     record.Fitness,
		Entries:     entries,
	}, nil
}

func (s *TimetableService) observeDBQuery(label string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveDBQuery(label, time.Since(start))
	}
}

func timetableCacheKey(id string) string {
	return "timetable:" + id
}

func mapRooms(inputs []dto.RoomInput) []models.Room {
	rooms := make([]models.Room, 0, len(inputs))
	for _, in := range inputs {
		rooms = append(rooms, models.Room{
			Code:     in.Code,
			Name:     in.Name,
			Type:     in.Type,
			Capacity: in.Capacity,
		})
	}
	return rooms
}

func mapLecturers(inputs []dto.LecturerInput) []models.Lecturer {
	lecturers := make([]models.Lecturer, 0, len(inputs))
	for _, in := range inputs {
		lecturers = append(lecturers, models.Lecturer{
			Code:          in.Code,
			Name:          in.Name,
			Program:       in.Program,
			PreferredTime: in.PreferredTime,
			ResearchDay:   in.ResearchDay,
			MinTransitGap: in.MinTransitGap,
			MaxDailySKS:   in.MaxDailySKS,
			PreferredRoom: in.PreferredRoom,
		})
	}
	return lecturers
}

func mapClasses(inputs []dto.ClassInput) []models.ClassRequirement {
	classes := make([]models.ClassRequirement, 0, len(inputs))
	for _, in := range inputs {
		shift := in.Shift
		if shift == "" {
			shift = models.ShiftMorning
		}
		classes = append(classes, models.ClassRequirement{
			CourseCode:     in.CourseCode,
			CourseName:     in.CourseName,
			Program:        in.Program,
			SKS:            in.SKS,
			Participants:   in.Participants,
			LecturerCodes:  in.Lecturers,
			NeedsLab:       in.NeedsLab,
			Shift:          shift,
			CandidateRooms: in.CandidateRooms,
		})
	}
	return classes
}

func applyTuning(base engine.Config, tuning *dto.SolverTuning) engine.Config {
	if tuning == nil {
		return base
	}
	if tuning.InitialTemperature != nil {
		base.InitialTemperature = *tuning.InitialTemperature
	}
	if tuning.MinTemperature != nil {
		base.MinTemperature = *tuning.MinTemperature
	}
	if tuning.CoolingRate != nil {
		base.CoolingRate = *tuning.CoolingRate
	}
	if tuning.MaxIterations != nil {
		base.MaxIterations = *tuning.MaxIterations
	}
	if tuning.ReheatAfter != nil {
		base.ReheatAfter = *tuning.ReheatAfter
	}
	if tuning.ReheatFactor != nil {
		base.ReheatFactor = *tuning.ReheatFactor
	}
	if tuning.MaxReheats != nil {
		// Zero means "default" inside the engine, so an explicit 0 from the
		// client maps to the disabled representation.
		base.MaxReheats = *tuning.MaxReheats
		if *tuning.MaxReheats == 0 {
			base.MaxReheats = -1
		}
	}
	if tuning.Chains != nil {
		base.Chains = *tuning.Chains
	}
	if tuning.Seed != nil {
		base.Seed = *tuning.Seed
	}
	if tuning.Weights != nil {
		w := base.Weights
		if w == (engine.Weights{}) {
			w = engine.DefaultWeights()
		}
		if tuning.Weights.Hard != nil {
			w.Hard = *tuning.Weights.Hard
		}
		if tuning.Weights.PreferredTime != nil {
			w.PreferredTime = *tuning.Weights.PreferredTime
		}
		if tuning.Weights.PreferredRoom != nil {
			w.PreferredRoom = *tuning.Weights.PreferredRoom
		}
		if tuning.Weights.Transit != nil {
			w.Transit = *tuning.Weights.Transit
		}
		if tuning.Weights.Compactness != nil {
			w.Compactness = *tuning.Weights.Compactness
		}
		if tuning.Weights.Prayer != nil {
			w.Prayer = *tuning.Weights.Prayer
		}
		if tuning.Weights.Evening != nil {
			w.Evening = *tuning.Weights.Evening
		}
		if tuning.Weights.Lab != nil {
			w.Lab = *tuning.Weights.Lab
		}
		base.Weights = w
	}
	return base
}

// --- Result cache ---

type timetableResult struct {
	TimetableID string
	Name        string
	Solution    *models.Solution
	Stats       engine.Stats
	RequestedAt time.Time
}

func (r timetableResult) statsDTO() dto.SolverStats {
	return dto.SolverStats{
		Iterations:     r.Stats.Iterations,
		Reheats:        r.Stats.Reheats,
		Chains:         r.Stats.Chains,
		DroppedClasses: r.Stats.Dropped,
		DurationMs:     r.Stats.Duration.Milliseconds(),
	}
}

func (r timetableResult) toResponse() *dto.GenerateTimetableResponse {
	return &dto.GenerateTimetableResponse{
		TimetableID: r.TimetableID,
		Name:        r.Name,
		Fitness:     r.Solution.Fitness,
		Entries:     r.Solution.Entries,
		Report:      r.Solution.Report,
		Stats:       r.statsDTO(),
	}
}

type resultStore struct {
	ttl   time.Duration
	mu    sync.RWMutex
	items map[string]timetableResult
}

func newResultStore(ttl time.Duration) *resultStore {
	return &resultStore{
		ttl:   ttl,
		items: make(map[string]timetableResult),
	}
}

func (s *resultStore) Save(result timetableResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[result.TimetableID] = result
}

func (s *resultStore) Get(id string) (timetableResult, bool) {
	s.mu.RLock()
	result, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return timetableResult{}, false
	}
	if time.Since(result.RequestedAt) > s.ttl {
		s.Delete(id)
		return timetableResult{}, false
	}
	return result, true
}

func (s *resultStore) Delete(id string) {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
}
