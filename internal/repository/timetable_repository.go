package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/adenafil/campus-timetable-api/internal/models"
)

// TimetableRepository provides persistence for saved timetables.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository creates a new timetable repository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

// List returns saved timetable headers with optional status filtering.
func (r *TimetableRepository) List(ctx context.Context, status string) ([]models.SavedTimetable, error) {
	base := "SELECT id, name, status, fitness, meta, created_at, updated_at FROM timetables"
	var conditions []string
	var args []interface{}

	if status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, status)
	}

	if len(conditions) > 0 {
		base += " WHERE " + strings.Join(conditions, " AND ")
	}
	base += " ORDER BY created_at DESC"

	var timetables []models.SavedTimetable
	if err := r.db.SelectContext(ctx, &timetables, base, args...); err != nil {
		return nil, fmt.Errorf("list timetables: %w", err)
	}
	return timetables, nil
}

// FindByID loads a saved timetable header by id.
func (r *TimetableRepository) FindByID(ctx context.Context, id string) (*models.SavedTimetable, error) {
	const query = `SELECT id, name, status, fitness, meta, created_at, updated_at FROM timetables WHERE id = $1`
	var tt models.SavedTimetable
	if err := r.db.GetContext(ctx, &tt, query, id); err != nil {
		return nil, err
	}
	return &tt, nil
}

// ListEntries returns the schedule rows for a saved timetable ordered by
// day and start time.
func (r *TimetableRepository) ListEntries(ctx context.Context, timetableID string) ([]models.SavedTimetableEntry, error) {
	const query = `SELECT id, timetable_id, course_code, course_name, program, lecturers, room_code, day, start_time, end_time, sks, shift, prayer_minutes FROM timetable_entries WHERE timetable_id = $1 ORDER BY day ASC, start_time ASC`
	var entries []models.SavedTimetableEntry
	if err := r.db.SelectContext(ctx, &entries, query, timetableID); err != nil {
		return nil, fmt.Errorf("list timetable entries: %w", err)
	}
	return entries, nil
}

// Create stores a new timetable header.
func (r *TimetableRepository) Create(ctx context.Context, tt *models.SavedTimetable) error {
	return r.createTimetable(ctx, r.db, tt)
}

// CreateWithTx stores a timetable header using an existing transaction.
func (r *TimetableRepository) CreateWithTx(ctx context.Context, tx *sqlx.Tx, tt *models.SavedTimetable) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	return r.createTimetable(ctx, tx, tt)
}

func (r *TimetableRepository) createTimetable(ctx context.Context, exec sqlx.ExtContext, tt *models.SavedTimetable) error {
	if tt.ID == "" {
		tt.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if tt.CreatedAt.IsZero() {
		tt.CreatedAt = now
	}
	tt.UpdatedAt = now

	const query = `INSERT INTO timetables (id, name, status, fitness, meta, created_at, updated_at) VALUES (:id, :name, :status, :fitness, :meta, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, tt); err != nil {
		return fmt.Errorf("create timetable: %w", err)
	}
	return nil
}

// BulkCreateEntries inserts schedule rows within a transaction.
func (r *TimetableRepository) BulkCreateEntries(ctx context.Context, entries []models.SavedTimetableEntry) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bulk create entries: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = r.bulkInsertEntries(ctx, tx, entries); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit bulk create entries: %w", err)
	}
	return nil
}

// BulkCreateEntriesWithTx inserts schedule rows using an existing transaction.
func (r *TimetableRepository) BulkCreateEntriesWithTx(ctx context.Context, tx *sqlx.Tx, entries []models.SavedTimetableEntry) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	return r.bulkInsertEntries(ctx, tx, entries)
}

func (r *TimetableRepository) bulkInsertEntries(ctx context.Context, exec sqlx.ExtContext, entries []models.SavedTimetableEntry) error {
	for i := range entries {
		payload := entries[i]
		if payload.ID == "" {
			payload.ID = uuid.NewString()
		}

		if _, err := sqlx.NamedExecContext(ctx, exec, `INSERT INTO timetable_entries (id, timetable_id, course_code, course_name, program, lecturers, room_code, day, start_time, end_time, sks, shift, prayer_minutes) VALUES (:id, :timetable_id, :course_code, :course_name, :program, :lecturers, :room_code, :day, :start_time, :end_time, :sks, :shift, :prayer_minutes)`, &payload); err != nil {
			return fmt.Errorf("bulk insert timetable entry: %w", err)
		}
		entries[i] = payload
	}
	return nil
}

// UpdateStatus transitions a saved timetable between lifecycle states.
func (r *TimetableRepository) UpdateStatus(ctx context.Context, id, status string) error {
	const query = `UPDATE timetables SET status = $1, updated_at = $2 WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, status, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("update timetable status: %w", err)
	}
	return nil
}

// Delete removes a saved timetable and its entries.
func (r *TimetableRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete timetable: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM timetable_entries WHERE timetable_id = $1`, id); err != nil {
		return fmt.Errorf("delete timetable entries: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM timetables WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete timetable: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete timetable: %w", err)
	}
	return nil
}
