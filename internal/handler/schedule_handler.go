package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tahsinku/tahsinku-api/internal/service"
	"github.com/tahsinku/tahsinku-api/pkg/response"
)

// ScheduleHandler exposes the grouped schedule board.
type ScheduleHandler struct {
	schedules *service.ScheduleService
}

// NewScheduleHandler constructs ScheduleHandler.
func NewScheduleHandler(schedules *service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{schedules: schedules}
}

// List godoc
// @Summary List class schedules grouped by teacher
// @Tags Schedules
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /schedules [get]
func (h *ScheduleHandler) List(c *gin.Context) {
	schedules, fromCache, err := h.schedules.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedules, nil, map[string]interface{}{"fromCache": fromCache})
}
