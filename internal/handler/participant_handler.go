package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tahsinku/tahsinku-api/internal/models"
	"github.com/tahsinku/tahsinku-api/internal/service"
	appErrors "github.com/tahsinku/tahsinku-api/pkg/errors"
	"github.com/tahsinku/tahsinku-api/pkg/response"
)

// ParticipantHandler exposes participant endpoints.
type ParticipantHandler struct {
	participants *service.ParticipantService
}

// NewParticipantHandler constructs ParticipantHandler.
func NewParticipantHandler(participants *service.ParticipantService) *ParticipantHandler {
	return &ParticipantHandler{participants: participants}
}

// List godoc
// @Summary List participants
// @Tags Participants
// @Produce json
// @Param search query string false "Search by name, address, whatsapp or job"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /participants [get]
func (h *ParticipantHandler) List(c *gin.Context) {
	var filter models.ParticipantFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	participants, pagination, err := h.participants.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, participants, pagination)
}

// Get godoc
// @Summary Get participant detail
// @Tags Participants
// @Produce json
// @Param id path string true "Participant ID"
// @Success 200 {object} response.Envelope
// @Router /participants/{id} [get]
func (h *ParticipantHandler) Get(c *gin.Context) {
	participant, err := h.participants.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, participant, nil)
}

// Create godoc
// @Summary Create participant
// @Tags Participants
// @Accept json
// @Produce json
// @Param payload body service.CreateParticipantRequest true "Participant payload"
// @Success 201 {object} response.Envelope
// @Router /participants [post]
func (h *ParticipantHandler) Create(c *gin.Context) {
	var req service.CreateParticipantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	participant, err := h.participants.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, participant)
}

// Update godoc
// @Summary Update participant
// @Tags Participants
// @Accept json
// @Produce json
// @Param id path string true "Participant ID"
// @Param payload body service.UpdateParticipantRequest true "Participant payload"
// @Success 200 {object} response.Envelope
// @Router /participants/{id} [put]
func (h *ParticipantHandler) Update(c *gin.Context) {
	var req service.UpdateParticipantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	participant, err := h.participants.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, participant, nil)
}

// Delete godoc
// @Summary Delete participant
// @Tags Participants
// @Produce json
// @Param id path string true "Participant ID"
// @Success 204
// @Router /participants/{id} [delete]
func (h *ParticipantHandler) Delete(c *gin.Context) {
	if err := h.participants.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
