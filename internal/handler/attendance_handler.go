package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tahsinku/tahsinku-api/internal/middleware"
	"github.com/tahsinku/tahsinku-api/internal/models"
	"github.com/tahsinku/tahsinku-api/internal/service"
	appErrors "github.com/tahsinku/tahsinku-api/pkg/errors"
	"github.com/tahsinku/tahsinku-api/pkg/response"
)

// AttendanceHandler exposes attendance endpoints.
type AttendanceHandler struct {
	attendance *service.AttendanceService
}

// NewAttendanceHandler constructs AttendanceHandler.
func NewAttendanceHandler(attendance *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance}
}

// Record godoc
// @Summary Record a batch of attendance entries
// @Description Upserts each entry on the (participant, class, date) key. A mid-batch failure aborts the remaining entries; applied entries stay committed.
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.RecordAttendanceRequest true "Attendance batch"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /attendance [post]
func (h *AttendanceHandler) Record(c *gin.Context) {
	admin, ok := c.Get(middleware.ContextAdminKey)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	currentAdmin := admin.(*models.Admin)

	var req service.RecordAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid attendance payload"))
		return
	}

	result, err := h.attendance.Record(c.Request.Context(), currentAdmin.ID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// List godoc
// @Summary List attendance entries
// @Tags Attendance
// @Produce json
// @Param classId query string false "Filter by class"
// @Param participantId query string false "Filter by participant"
// @Param teacherId query string false "Filter by teacher"
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /attendance [get]
func (h *AttendanceHandler) List(c *gin.Context) {
	var filter models.AttendanceFilter
	filter.ClassID = c.Query("classId")
	filter.ParticipantID = c.Query("participantId")
	filter.TeacherID = c.Query("teacherId")
	if raw := c.Query("from"); raw != "" {
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			filter.DateFrom = &t
		}
	}
	if raw := c.Query("to"); raw != "" {
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			filter.DateTo = &t
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	entries, pagination, err := h.attendance.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, pagination)
}
