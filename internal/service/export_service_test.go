package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adenafil/campus-timetable-api/internal/dto"
	"github.com/adenafil/campus-timetable-api/internal/models"
	appErrors "github.com/adenafil/campus-timetable-api/pkg/errors"
	"github.com/adenafil/campus-timetable-api/pkg/export"
)

type fetcherStub struct {
	resp *dto.GenerateTimetableResponse
	err  error
}

func (f fetcherStub) Get(ctx context.Context, id string) (*dto.GenerateTimetableResponse, error) {
	return f.resp, f.err
}

func exportFixtureResponse() *dto.GenerateTimetableResponse {
	return &dto.GenerateTimetableResponse{
		TimetableID: "tt-1",
		Name:        "Odd Semester 2026",
		Fitness:     4,
		Entries: []models.ScheduleEntry{
			{
				CourseCode: "IF102",
				CourseName: "Databases",
				Program:    "sistem informasi",
				Lecturers:  []string{"L2"},
				RoomCode:   "R102",
				Slot:       models.TimeSlot{Day: "Tuesday", Start: "07:00", End: "07:50", Period: 1},
				SKS:        2,
				Shift:      "morning",
			},
			{
				CourseCode: "IF101",
				CourseName: "Algorithms",
				Program:    "informatika",
				Lecturers:  []string{"L1", "L3"},
				RoomCode:   "R101",
				Slot:       models.TimeSlot{Day: "Monday", Start: "08:40", End: "09:30", Period: 3},
				SKS:        2,
				Shift:      "morning",
			},
			{
				CourseCode: "IF103",
				CourseName: "Networks",
				Program:    "informatika",
				Lecturers:  []string{"L1"},
				RoomCode:   "R101",
				Slot:       models.TimeSlot{Day: "Monday", Start: "07:00", End: "07:50", Period: 1},
				SKS:        2,
				Shift:      "morning",
			},
		},
	}
}

func TestExportServiceCSV(t *testing.T) {
	svc := NewExportService(fetcherStub{resp: exportFixtureResponse()}, export.NewCSVExporter(), export.NewPDFExporter(), nil)

	name, data, err := svc.ExportCSV(context.Background(), "tt-1")
	require.NoError(t, err)
	assert.Equal(t, "odd-semester-2026.csv", name)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Day,Start,End,Course Code,Course Name,Program,Lecturers,Room,SKS,Shift", strings.TrimSpace(lines[0]))
	// Monday rows first, ordered by start time, Tuesday last.
	assert.Contains(t, lines[1], "Monday,07:00")
	assert.Contains(t, lines[1], "IF103")
	assert.Contains(t, lines[2], "Monday,08:40")
	assert.Contains(t, lines[2], "\"L1, L3\"")
	assert.Contains(t, lines[3], "Tuesday,07:00")
}

func TestExportServicePDF(t *testing.T) {
	svc := NewExportService(fetcherStub{resp: exportFixtureResponse()}, export.NewCSVExporter(), export.NewPDFExporter(), nil)

	name, data, err := svc.ExportPDF(context.Background(), "tt-1")
	require.NoError(t, err)
	assert.Equal(t, "odd-semester-2026.pdf", name)
	require.NotEmpty(t, data)
	assert.True(t, strings.HasPrefix(string(data), "%PDF"))
}

func TestExportServicePropagatesFetchError(t *testing.T) {
	svc := NewExportService(fetcherStub{err: appErrors.Clone(appErrors.ErrNotFound, "generated timetable not found or expired")}, export.NewCSVExporter(), export.NewPDFExporter(), nil)

	_, _, err := svc.ExportCSV(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestExportBaseNameSlug(t *testing.T) {
	assert.Equal(t, "odd-semester-2026", exportBaseName("Odd Semester 2026"))
	assert.Equal(t, "timetable", exportBaseName("   ***   "))
	assert.Equal(t, "jadwal_genap", exportBaseName("Jadwal_Genap!"))
}
