package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tahsinku/tahsinku-api/internal/models"
	"github.com/tahsinku/tahsinku-api/internal/service"
)

type enrollmentRepoStub struct {
	detail  *models.EnrollmentDetail
	synced  int
	updated *models.Enrollment
}

func (s *enrollmentRepoStub) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	if s.detail == nil {
		return nil, 0, nil
	}
	return []models.EnrollmentDetail{*s.detail}, 1, nil
}

func (s *enrollmentRepoStub) FindByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	copy := *s.detail
	return &copy, nil
}

func (s *enrollmentRepoStub) Create(ctx context.Context, enrollment *models.Enrollment) error {
	enrollment.ID = "enr-new"
	return nil
}

func (s *enrollmentRepoStub) UpdateCycle(ctx context.Context, enrollment *models.Enrollment) error {
	s.updated = enrollment
	s.detail.Enrollment = *enrollment
	return nil
}

func (s *enrollmentRepoStub) SyncOverdue(ctx context.Context, today time.Time) (int, error) {
	return s.synced, nil
}

func (s *enrollmentRepoStub) Delete(ctx context.Context, id string) error {
	return nil
}

type classLookupStub struct{}

func (s *classLookupStub) FindByID(ctx context.Context, id string) (*models.ClassDetail, error) {
	return &models.ClassDetail{Class: models.Class{ID: id, TeacherID: "teach-1", Type: models.ClassTypePrivate, Capacity: 1}}, nil
}

type exportTriggerStub struct{}

func (s *exportTriggerStub) TriggerAsync(domain, trigger string) {}

func newEnrollmentFixture(due time.Time) (*enrollmentRepoStub, *EnrollmentHandler) {
	repo := &enrollmentRepoStub{detail: &models.EnrollmentDetail{
		Enrollment: models.Enrollment{
			ID:      "enr-1",
			DueDate: &due,
			Status:  models.EnrollmentStatusPending,
		},
	}}
	svc := service.NewEnrollmentService(repo, &classLookupStub{}, &exportTriggerStub{}, nil, nil)
	return repo, NewEnrollmentHandler(svc)
}

func adminRequest(method, target string, body *bytes.Buffer) *http.Request {
	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, body)
		req.Header.Set("Content-Type", "application/json")
	}
	ctx := service.WithAdmin(req.Context(), &models.Admin{ID: "admin-1", Email: "admin@tahsinku.id"})
	return req.WithContext(ctx)
}

func TestEnrollmentHandlerMarkPaid(t *testing.T) {
	gin.SetMode(gin.TestMode)
	due := time.Date(2025, 10, 26, 0, 0, 0, 0, time.UTC)
	repo, handler := newEnrollmentFixture(due)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = adminRequest(http.MethodPost, "/enrollments/enr-1/pay", nil)
	c.Params = gin.Params{{Key: "id", Value: "enr-1"}}

	handler.MarkPaid(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, repo.updated)
	assert.Equal(t, models.EnrollmentStatusPaid, repo.updated.Status)
	assert.Equal(t, due.AddDate(0, 0, 28), *repo.updated.DueDate)
}

func TestEnrollmentHandlerMarkPaidWithoutAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	_, handler := newEnrollmentFixture(time.Now())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/enrollments/enr-1/pay", nil)
	c.Params = gin.Params{{Key: "id", Value: "enr-1"}}

	handler.MarkPaid(c)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestEnrollmentHandlerSetCycleStart(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo, handler := newEnrollmentFixture(time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC))

	payload := bytes.NewBufferString(`{"start_date":"2025-10-26"}`)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = adminRequest(http.MethodPut, "/enrollments/enr-1/cycle-start", payload)
	c.Params = gin.Params{{Key: "id", Value: "enr-1"}}

	handler.SetCycleStart(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, repo.updated)
	assert.Equal(t, time.Date(2025, 11, 23, 0, 0, 0, 0, time.UTC), *repo.updated.DueDate)
}

func TestEnrollmentHandlerSetCycleStartMissingBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	_, handler := newEnrollmentFixture(time.Now())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = adminRequest(http.MethodPut, "/enrollments/enr-1/cycle-start", bytes.NewBufferString(`{}`))
	c.Params = gin.Params{{Key: "id", Value: "enr-1"}}

	handler.SetCycleStart(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEnrollmentHandlerSyncOverdue(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo, handler := newEnrollmentFixture(time.Now())
	repo.synced = 3

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = adminRequest(http.MethodPost, "/enrollments/sync-overdue", nil)

	handler.SyncOverdue(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data map[string]int `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, 3, envelope.Data["updated"])
}
