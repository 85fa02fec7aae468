package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/adenafil/campus-timetable-api/internal/dto"
	"github.com/adenafil/campus-timetable-api/internal/models"
	appErrors "github.com/adenafil/campus-timetable-api/pkg/errors"
)

type timetableGeneratorMock struct {
	captured  dto.GenerateTimetableRequest
	saved     dto.SaveTimetableRequest
	deletedID string
	getErr    error
}

func (m *timetableGeneratorMock) Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error) {
	m.captured = req
	return &dto.GenerateTimetableResponse{TimetableID: "tt-1", Name: req.Name}, nil
}

func (m *timetableGeneratorMock) Get(ctx context.Context, id string) (*dto.GenerateTimetableResponse, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return &dto.GenerateTimetableResponse{TimetableID: id}, nil
}

func (m *timetableGeneratorMock) Save(ctx context.Context, req dto.SaveTimetableRequest) (string, error) {
	m.saved = req
	return req.TimetableID, nil
}

func (m *timetableGeneratorMock) List(ctx context.Context, query dto.TimetableQuery) ([]models.SavedTimetable, error) {
	return []models.SavedTimetable{{ID: "tt-1", Status: models.TimetableStatusDraft}}, nil
}

func (m *timetableGeneratorMock) Publish(ctx context.Context, id string) error {
	return nil
}

func (m *timetableGeneratorMock) Delete(ctx context.Context, id string) error {
	m.deletedID = id
	return nil
}

type timetableExporterMock struct{}

func (timetableExporterMock) ExportCSV(ctx context.Context, id string) (string, []byte, error) {
	return "fixture.csv", []byte("Day,Start\n"), nil
}

func (timetableExporterMock) ExportPDF(ctx context.Context, id string) (string, []byte, error) {
	return "fixture.pdf", []byte("%PDF-1.4"), nil
}

func validGeneratePayload() []byte {
	payload := dto.GenerateTimetableRequest{
		Name:      "Odd Semester",
		Rooms:     []dto.RoomInput{{Code: "R101", Capacity: 40}},
		Lecturers: []dto.LecturerInput{{Code: "L1"}},
		Classes: []dto.ClassInput{
			{CourseCode: "IF101", Program: "informatika", SKS: 2, Participants: 30, Lecturers: []string{"L1"}},
		},
	}
	data, _ := json.Marshal(payload)
	return data
}

func TestTimetableGenerateSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &timetableGeneratorMock{}
	handler := &TimetableHandler{service: mockSvc, exporter: timetableExporterMock{}}

	req, _ := http.NewRequest(http.MethodPost, "/timetables/generate", bytes.NewReader(validGeneratePayload()))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	handler.Generate(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "Odd Semester", mockSvc.captured.Name)
	require.Len(t, mockSvc.captured.Classes, 1)
}

func TestTimetableGenerateMalformedBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &TimetableHandler{service: &timetableGeneratorMock{}}

	req, _ := http.NewRequest(http.MethodPost, "/timetables/generate", bytes.NewReader([]byte(`{"rooms":`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	handler.Generate(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTimetableGenerateTooManyClasses(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &TimetableHandler{service: &timetableGeneratorMock{}}

	payload := dto.GenerateTimetableRequest{
		Rooms:     []dto.RoomInput{{Code: "R101", Capacity: 40}},
		Lecturers: []dto.LecturerInput{{Code: "L1"}},
	}
	for i := 0; i <= maxClasses; i++ {
		payload.Classes = append(payload.Classes, dto.ClassInput{CourseCode: "IF101", Program: "informatika", SKS: 2, Participants: 30})
	}
	data, _ := json.Marshal(payload)

	req, _ := http.NewRequest(http.MethodPost, "/timetables/generate", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	handler.Generate(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTimetableSaveCreated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &timetableGeneratorMock{}
	handler := &TimetableHandler{service: mockSvc}

	body := []byte(`{"timetableId":"tt-1","publish":true}`)
	req, _ := http.NewRequest(http.MethodPost, "/timetables/save", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	handler.Save(c)

	require.Equal(t, http.StatusCreated, w.Code)
	require.True(t, mockSvc.saved.Publish)
	require.Contains(t, w.Body.String(), "tt-1")
}

func TestTimetableGetNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &timetableGeneratorMock{getErr: appErrors.Clone(appErrors.ErrNotFound, "generated timetable not found or expired")}
	handler := &TimetableHandler{service: mockSvc}

	router := gin.New()
	router.GET("/timetables/:id", handler.Get)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/timetables/missing", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
	require.Contains(t, w.Body.String(), "NOT_FOUND")
}

func TestTimetableExportFormats(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &TimetableHandler{service: &timetableGeneratorMock{}, exporter: timetableExporterMock{}}

	router := gin.New()
	router.GET("/timetables/:id/export", handler.Export)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/timetables/tt-1/export", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	require.Contains(t, w.Header().Get("Content-Disposition"), "fixture.csv")

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/timetables/tt-1/export?format=pdf", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "application/pdf", w.Header().Get("Content-Type"))

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/timetables/tt-1/export?format=xlsx", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTimetableDelete(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &timetableGeneratorMock{}
	handler := &TimetableHandler{service: mockSvc}

	router := gin.New()
	router.DELETE("/timetables/:id", handler.Delete)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodDelete, "/timetables/tt-1", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, "tt-1", mockSvc.deletedID)
}
