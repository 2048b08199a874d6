package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tahsinku/tahsinku-api/internal/dto"
	"github.com/tahsinku/tahsinku-api/internal/middleware"
	"github.com/tahsinku/tahsinku-api/internal/service"
	"github.com/tahsinku/tahsinku-api/pkg/ratelimit"
	"github.com/tahsinku/tahsinku-api/pkg/response"
)

type exportRepoStub struct {
	participants []dto.ParticipantExportRow
	instructors  []dto.InstructorExportRow
	attendance   []dto.AttendanceExportRow
	payments     []dto.PaymentExportRow
	err          error
}

func (s *exportRepoStub) Participants(ctx context.Context) ([]dto.ParticipantExportRow, error) {
	return s.participants, s.err
}

func (s *exportRepoStub) Instructors(ctx context.Context) ([]dto.InstructorExportRow, error) {
	return s.instructors, s.err
}

func (s *exportRepoStub) Attendance(ctx context.Context) ([]dto.AttendanceExportRow, error) {
	return s.attendance, s.err
}

func (s *exportRepoStub) Payments(ctx context.Context) ([]dto.PaymentExportRow, error) {
	return s.payments, s.err
}

type sheetWriterStub struct {
	err error
}

func (s *sheetWriterStub) Replace(ctx context.Context, tab string, headers []string, rows [][]interface{}) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	return len(rows), nil
}

func newExportRouter(h *ExportHandler, mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	group := r.Group("/api/export", mw...)
	group.POST("/:domain", h.Run)
	group.GET("/:domain/download", h.Recap)
	return r
}

func TestExportHandlerSuccessShape(t *testing.T) {
	repo := &exportRepoStub{participants: []dto.ParticipantExportRow{
		{ID: "p-1", Name: "Aisyah"},
		{ID: "p-2", Name: "Budi"},
	}}
	svc := service.NewExportService(repo, &sheetWriterStub{}, nil, nil, "sheet-1", false)
	router := newExportRouter(NewExportHandler(svc))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/export/participants", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Berhasil export 2 peserta ke Google Sheets", body["message"])
	assert.Equal(t, float64(2), body["rowCount"])
	assert.Equal(t, "https://docs.google.com/spreadsheets/d/sheet-1/edit", body["spreadsheetUrl"])
}

func TestExportHandlerUnconfigured(t *testing.T) {
	svc := service.NewExportService(&exportRepoStub{}, nil, nil, nil, "", false)
	router := newExportRouter(NewExportHandler(svc))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/export/participants", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "spreadsheet export is not configured", body["error"])
}

func TestExportHandlerUnknownDomain(t *testing.T) {
	svc := service.NewExportService(&exportRepoStub{}, &sheetWriterStub{}, nil, nil, "sheet-1", false)
	router := newExportRouter(NewExportHandler(svc))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/export/grades", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "unknown export domain", body["error"])
}

func TestExportHandlerRateLimited(t *testing.T) {
	svc := service.NewExportService(&exportRepoStub{}, &sheetWriterStub{}, nil, nil, "sheet-1", false)
	limiter := ratelimit.New(nil)
	router := newExportRouter(NewExportHandler(svc), middleware.RateLimit(limiter, 2, time.Minute))

	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		last = httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/export/participants", nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.9")
		req.Header.Set("User-Agent", "dashboard")
		router.ServeHTTP(last, req)
	}

	require.Equal(t, http.StatusTooManyRequests, last.Code)
	assert.NotEmpty(t, last.Header().Get("Retry-After"))

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(last.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "RATE_LIMITED", envelope.Error.Code)
}

func TestExportHandlerRateLimitScopedPerDomain(t *testing.T) {
	svc := service.NewExportService(&exportRepoStub{}, &sheetWriterStub{}, nil, nil, "sheet-1", false)
	limiter := ratelimit.New(nil)
	router := newExportRouter(NewExportHandler(svc), middleware.RateLimit(limiter, 2, time.Minute))

	post := func(domain string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/export/"+domain, nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.9")
		req.Header.Set("User-Agent", "dashboard")
		router.ServeHTTP(w, req)
		return w
	}

	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusOK, post("participants").Code)
	}
	require.Equal(t, http.StatusTooManyRequests, post("participants").Code)

	// Each domain carries its own budget. A throttled participants
	// export leaves payments untouched.
	assert.Equal(t, http.StatusOK, post("payments").Code)
}

func TestExportHandlerDistinctClientsNotThrottled(t *testing.T) {
	svc := service.NewExportService(&exportRepoStub{}, &sheetWriterStub{}, nil, nil, "sheet-1", false)
	limiter := ratelimit.New(nil)
	router := newExportRouter(NewExportHandler(svc), middleware.RateLimit(limiter, 1, time.Minute))

	first := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/export/payments", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	router.ServeHTTP(first, req)
	require.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/export/payments", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.10")
	router.ServeHTTP(second, req)
	require.Equal(t, http.StatusOK, second.Code)
}

func TestExportHandlerRecapCSV(t *testing.T) {
	repo := &exportRepoStub{instructors: []dto.InstructorExportRow{
		{ID: "t-1", Name: "Ust. Hasan", Status: "active"},
	}}
	svc := service.NewExportService(repo, nil, nil, nil, "", false)
	router := newExportRouter(NewExportHandler(svc))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/export/instructors/download?format=csv", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, w.Body.String(), "Ust. Hasan")
}

func TestExportHandlerRecapBadFormat(t *testing.T) {
	svc := service.NewExportService(&exportRepoStub{}, nil, nil, nil, "", false)
	router := newExportRouter(NewExportHandler(svc))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/export/instructors/download?format=xlsx", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}
