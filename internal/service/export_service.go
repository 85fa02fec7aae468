package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/adenafil/campus-timetable-api/internal/dto"
	"github.com/adenafil/campus-timetable-api/internal/engine"
	"github.com/adenafil/campus-timetable-api/internal/models"
	appErrors "github.com/adenafil/campus-timetable-api/pkg/errors"
	"github.com/adenafil/campus-timetable-api/pkg/export"
)

type timetableFetcher interface {
	Get(ctx context.Context, id string) (*dto.GenerateTimetableResponse, error)
}

var exportHeaders = []string{"Day", "Start", "End", "Course Code", "Course Name", "Program", "Lecturers", "Room", "SKS", "Shift"}

var dayOrder = map[string]int{
	"Monday":    1,
	"Tuesday":   2,
	"Wednesday": 3,
	"Thursday":  4,
	"Friday":    5,
	"Saturday":  6,
	"Sunday":    7,
}

// ExportService renders generated timetables as CSV or PDF documents.
type ExportService struct {
	timetables timetableFetcher
	csv        *export.CSVExporter
	pdf        *export.PDFExporter
	logger     *zap.Logger
}

// NewExportService wires export dependencies.
func NewExportService(timetables timetableFetcher, csv *export.CSVExporter, pdf *export.PDFExporter, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{timetables: timetables, csv: csv, pdf: pdf, logger: logger}
}

// ExportCSV renders the timetable as a flat CSV table.
func (s *ExportService) ExportCSV(ctx context.Context, id string) (string, []byte, error) {
	resp, err := s.timetables.Get(ctx, id)
	if err != nil {
		return "", nil, err
	}

	entries := sortedEntries(resp.Entries)
	rows := make([]map[string]string, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, entryRow(entry))
	}

	data, err := s.csv.Render(export.Dataset{Headers: exportHeaders, Rows: rows})
	if err != nil {
		return "", nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv export")
	}
	return fmt.Sprintf("%s.csv", exportBaseName(resp.Name)), data, nil
}

// ExportPDF renders the timetable as a PDF with one table per day.
func (s *ExportService) ExportPDF(ctx context.Context, id string) (string, []byte, error) {
	resp, err := s.timetables.Get(ctx, id)
	if err != nil {
		return "", nil, err
	}

	entries := sortedEntries(resp.Entries)
	var sections []export.Section
	for _, entry := range entries {
		if len(sections) == 0 || sections[len(sections)-1].Title != entry.Slot.Day {
			sections = append(sections, export.Section{Title: entry.Slot.Day})
		}
		last := &sections[len(sections)-1]
		last.Rows = append(last.Rows, entryRow(entry))
	}

	headers := exportHeaders[1:] // day is the section title
	data, err := s.pdf.Render(headers, sections, resp.Name)
	if err != nil {
		return "", nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf export")
	}
	return fmt.Sprintf("%s.pdf", exportBaseName(resp.Name)), data, nil
}

func sortedEntries(entries []models.ScheduleEntry) []models.ScheduleEntry {
	sorted := make([]models.ScheduleEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		if dayOrder[sorted[i].Slot.Day] != dayOrder[sorted[j].Slot.Day] {
			return dayOrder[sorted[i].Slot.Day] < dayOrder[sorted[j].Slot.Day]
		}
		return engine.TimeToMinutes(sorted[i].Slot.Start) < engine.TimeToMinutes(sorted[j].Slot.Start)
	})
	return sorted
}

func entryRow(entry models.ScheduleEntry) map[string]string {
	return map[string]string{
		"Day":         entry.Slot.Day,
		"Start":       entry.Slot.Start,
		"End":         engine.AdjustedEnd(entry.Slot.Start, entry.SKS, entry.Slot.Day),
		"Course Code": entry.CourseCode,
		"Course Name": entry.CourseName,
		"Program":     entry.Program,
		"Lecturers":   strings.Join(entry.Lecturers, ", "),
		"Room":        entry.RoomCode,
		"SKS":         strconv.Itoa(entry.SKS),
		"Shift":       entry.Shift,
	}
}

func exportBaseName(name string) string {
	base := strings.TrimSpace(strings.ToLower(name))
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_':
			return r
		case r == ' ':
			return '-'
		default:
			return -1
		}
	}, base)
	if base == "" {
		base = "timetable"
	}
	return base
}
