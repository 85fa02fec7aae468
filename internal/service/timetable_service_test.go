package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/adenafil/campus-timetable-api/internal/dto"
	"github.com/adenafil/campus-timetable-api/internal/engine"
	"github.com/adenafil/campus-timetable-api/internal/models"
	appErrors "github.com/adenafil/campus-timetable-api/pkg/errors"
)

func TestTimetableServiceGenerateAndGet(t *testing.T) {
	svc := newTimetableServiceFixture(t, timetableFixtureConfig{})

	resp, err := svc.Generate(context.Background(), generateFixtureRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, resp.TimetableID)
	assert.Len(t, resp.Entries, 2)
	require.NotNil(t, resp.Report)
	assert.Empty(t, resp.Report.Hard)
	assert.Greater(t, resp.Stats.Iterations, 0)

	got, err := svc.Get(context.Background(), resp.TimetableID)
	require.NoError(t, err)
	assert.Equal(t, resp.TimetableID, got.TimetableID)
	assert.Equal(t, resp.Fitness, got.Fitness)
}

func TestTimetableServiceGenerateValidation(t *testing.T) {
	svc := newTimetableServiceFixture(t, timetableFixtureConfig{})

	req := generateFixtureRequest()
	req.Rooms = nil
	_, err := svc.Generate(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceGenerateRejectsMalformedSlots(t *testing.T) {
	svc := newTimetableServiceFixture(t, timetableFixtureConfig{})

	req := generateFixtureRequest()
	req.TimeSlots = &engine.SlotConfig{Pagi: &engine.ShiftOverride{StartTime: "7h30"}}
	_, err := svc.Generate(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceGetUnknown(t *testing.T) {
	svc := newTimetableServiceFixture(t, timetableFixtureConfig{})

	_, err := svc.Get(context.Background(), "missing-id")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceSaveDraft(t *testing.T) {
	tx, mock := newTimetableTxMock(t)
	repo := &timetableRepoStub{}
	svc := newTimetableServiceFixture(t, timetableFixtureConfig{repo: repo, tx: tx})

	resp, err := svc.Generate(context.Background(), generateFixtureRequest())
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectCommit()

	id, err := svc.Save(context.Background(), dto.SaveTimetableRequest{TimetableID: resp.TimetableID})
	require.NoError(t, err)
	assert.Equal(t, resp.TimetableID, id)
	require.Len(t, repo.headers, 1)
	assert.Equal(t, models.TimetableStatusDraft, repo.headers[0].Status)
	assert.Len(t, repo.entries[id], 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableServiceSavePublish(t *testing.T) {
	tx, mock := newTimetableTxMock(t)
	repo := &timetableRepoStub{}
	svc := newTimetableServiceFixture(t, timetableFixtureConfig{repo: repo, tx: tx})

	resp, err := svc.Generate(context.Background(), generateFixtureRequest())
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectCommit()

	_, err = svc.Save(context.Background(), dto.SaveTimetableRequest{TimetableID: resp.TimetableID, Publish: true})
	require.NoError(t, err)
	require.Len(t, repo.headers, 1)
	assert.Equal(t, models.TimetableStatusPublished, repo.headers[0].Status)
}

func TestTimetableServiceSaveExpired(t *testing.T) {
	tx, _ := newTimetableTxMock(t)
	svc := newTimetableServiceFixture(t, timetableFixtureConfig{repo: &timetableRepoStub{}, tx: tx})

	_, err := svc.Save(context.Background(), dto.SaveTimetableRequest{TimetableID: "gone"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceSaveWithoutPersistence(t *testing.T) {
	svc := newTimetableServiceFixture(t, timetableFixtureConfig{})

	resp, err := svc.Generate(context.Background(), generateFixtureRequest())
	require.NoError(t, err)

	_, err = svc.Save(context.Background(), dto.SaveTimetableRequest{TimetableID: resp.TimetableID})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceListValidatesStatus(t *testing.T) {
	svc := newTimetableServiceFixture(t, timetableFixtureConfig{repo: &timetableRepoStub{}})

	_, err := svc.List(context.Background(), dto.TimetableQuery{Status: "ARCHIVED"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceRecordsDBQueryTiming(t *testing.T) {
	metrics := NewMetricsService()
	repo := &timetableRepoStub{headers: []models.SavedTimetable{{ID: "tt-1", Status: models.TimetableStatusDraft}}}
	svc := NewTimetableService(repo, nil, nil, metrics, validator.New(), zap.NewNop(), TimetableServiceConfig{
		ResultTTL: time.Hour,
		Solver:    engine.DefaultConfig(),
	})

	_, err := svc.List(context.Background(), dto.TimetableQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, testutil.CollectAndCount(metrics.dbQueryDuration, "db_query_duration_seconds"))

	require.NoError(t, svc.Publish(context.Background(), "tt-1"))
	assert.Equal(t, 2, testutil.CollectAndCount(metrics.dbQueryDuration, "db_query_duration_seconds"))
}

func TestTimetableServiceDeleteInMemory(t *testing.T) {
	svc := newTimetableServiceFixture(t, timetableFixtureConfig{})

	resp, err := svc.Generate(context.Background(), generateFixtureRequest())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), resp.TimetableID))

	_, err = svc.Get(context.Background(), resp.TimetableID)
	require.Error(t, err)
}

func TestTimetableServiceTuningOverrides(t *testing.T) {
	base := engine.DefaultConfig()
	iterations := 500
	seed := int64(7)
	hard := 250.0

	cfg := applyTuning(base, &dto.SolverTuning{
		MaxIterations: &iterations,
		Seed:          &seed,
		Weights:       &dto.WeightTuning{Hard: &hard},
	})

	assert.Equal(t, 500, cfg.MaxIterations)
	assert.Equal(t, int64(7), cfg.Seed)
	assert.Equal(t, 250.0, cfg.Weights.Hard)
	assert.Equal(t, base.Weights.Transit, cfg.Weights.Transit)
	assert.Equal(t, base.CoolingRate, cfg.CoolingRate)
}

func TestTimetableServiceTuningDisablesReheats(t *testing.T) {
	base := engine.DefaultConfig()
	zero := 0
	two := 2

	// An explicit 0 opts out of reheating; the engine treats 0 as "use the
	// default", so it maps to the negative disabled form.
	cfg := applyTuning(base, &dto.SolverTuning{MaxReheats: &zero})
	assert.Equal(t, -1, cfg.MaxReheats)

	cfg = applyTuning(base, &dto.SolverTuning{MaxReheats: &two})
	assert.Equal(t, 2, cfg.MaxReheats)

	cfg = applyTuning(base, &dto.SolverTuning{})
	assert.Equal(t, base.MaxReheats, cfg.MaxReheats)
}

// --- Fixtures ---

type timetableFixtureConfig struct {
	repo timetableRepository
	tx   txProvider
}

func newTimetableServiceFixture(t *testing.T, cfg timetableFixtureConfig) *TimetableService {
	t.Helper()
	solver := engine.DefaultConfig()
	solver.Seed = 42
	solver.MaxIterations = 400
	return NewTimetableService(cfg.repo, cfg.tx, nil, nil, validator.New(), zap.NewNop(), TimetableServiceConfig{
		ResultTTL: time.Hour,
		Solver:    solver,
	})
}

func generateFixtureRequest() dto.GenerateTimetableRequest {
	return dto.GenerateTimetableRequest{
		Name: "Odd Semester",
		Rooms: []dto.RoomInput{
			{Code: "R101", Name: "Room 101", Type: "Kelas", Capacity: 40},
			{Code: "R102", Name: "Room 102", Type: "Kelas", Capacity: 40},
		},
		Lecturers: []dto.LecturerInput{
			{Code: "L1", Name: "Dosen Satu", Program: "informatika"},
			{Code: "L2", Name: "Dosen Dua", Program: "informatika"},
		},
		Classes: []dto.ClassInput{
			{CourseCode: "IF101", CourseName: "Algorithms", Program: "informatika", SKS: 2, Participants: 30, Lecturers: []string{"L1"}},
			{CourseCode: "IF102", CourseName: "Databases", Program: "sistem informasi", SKS: 2, Participants: 30, Lecturers: []string{"L2"}},
		},
	}
}

type timetableRepoStub struct {
	headers []models.SavedTimetable
	entries map[string][]models.SavedTimetableEntry
}

func (s *timetableRepoStub) CreateWithTx(ctx context.Context, tx *sqlx.Tx, tt *models.SavedTimetable) error {
	tt.CreatedAt = time.Now().UTC()
	tt.UpdatedAt = tt.CreatedAt
	s.headers = append(s.headers, *tt)
	return nil
}

func (s *timetableRepoStub) BulkCreateEntriesWithTx(ctx context.Context, tx *sqlx.Tx, entries []models.SavedTimetableEntry) error {
	if s.entries == nil {
		s.entries = make(map[string][]models.SavedTimetableEntry)
	}
	for _, entry := range entries {
		s.entries[entry.TimetableID] = append(s.entries[entry.TimetableID], entry)
	}
	return nil
}

func (s *timetableRepoStub) List(ctx context.Context, status string) ([]models.SavedTimetable, error) {
	if status == "" {
		return s.headers, nil
	}
	var out []models.SavedTimetable
	for _, header := range s.headers {
		if header.Status == status {
			out = append(out, header)
		}
	}
	return out, nil
}

func (s *timetableRepoStub) FindByID(ctx context.Context, id string) (*models.SavedTimetable, error) {
	for _, header := range s.headers {
		if header.ID == id {
			return &header, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *timetableRepoStub) ListEntries(ctx context.Context, timetableID string) ([]models.SavedTimetableEntry, error) {
	return s.entries[timetableID], nil
}

func (s *timetableRepoStub) UpdateStatus(ctx context.Context, id, status string) error {
	for idx := range s.headers {
		if s.headers[idx].ID == id {
			s.headers[idx].Status = status
			return nil
		}
	}
	return sql.ErrNoRows
}

func (s *timetableRepoStub) Delete(ctx context.Context, id string) error {
	for idx, header := range s.headers {
		if header.ID == id {
			s.headers = append(s.headers[:idx], s.headers[idx+1:]...)
			delete(s.entries, id)
			return nil
		}
	}
	return sql.ErrNoRows
}

type timetableTxMock struct {
	db *sqlx.DB
}

func newTimetableTxMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return &timetableTxMock{db: sqlxdb}, mock
}

func (t *timetableTxMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}
