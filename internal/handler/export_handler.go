package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tahsinku/tahsinku-api/internal/service"
	appErrors "github.com/tahsinku/tahsinku-api/pkg/errors"
	"github.com/tahsinku/tahsinku-api/pkg/response"
)

// exportMessages renders the success message per domain, in the wording
// the dashboard shows operators.
var exportMessages = map[string]string{
	service.ExportDomainParticipants: "Berhasil export %d peserta ke Google Sheets",
	service.ExportDomainInstructors:  "Berhasil export %d pengajar ke Google Sheets",
	service.ExportDomainAttendance:   "Berhasil export %d data absensi ke Google Sheets",
	service.ExportDomainPayments:     "Berhasil export %d data pembayaran ke Google Sheets",
}

// ExportHandler exposes spreadsheet export and recap download endpoints.
type ExportHandler struct {
	exports *service.ExportService
}

// NewExportHandler constructs ExportHandler.
func NewExportHandler(exports *service.ExportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// Run godoc
// @Summary Export one domain to its spreadsheet tab
// @Description Replaces the full tab contents with a fresh projection of the domain.
// @Tags Export
// @Produce json
// @Param domain path string true "Export domain" Enums(participants, instructors, attendance, payments)
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Failure 500 {object} map[string]interface{}
// @Router /export/{domain} [post]
func (h *ExportHandler) Run(c *gin.Context) {
	domain := c.Param("domain")
	result, err := h.exports.Run(c.Request.Context(), domain)
	if err != nil {
		appErr := appErrors.FromError(err)
		c.JSON(appErr.Status, gin.H{"error": appErr.Message})
		return
	}

	format, ok := exportMessages[domain]
	if !ok {
		format = "Berhasil export %d baris ke Google Sheets"
	}
	payload := gin.H{
		"success":  true,
		"message":  fmt.Sprintf(format, result.RowCount),
		"rowCount": result.RowCount,
	}
	if result.SpreadsheetURL != "" {
		payload["spreadsheetUrl"] = result.SpreadsheetURL
	}
	c.JSON(http.StatusOK, payload)
}

// Recap godoc
// @Summary Download a domain recap
// @Description Renders the domain projection as a CSV or PDF file.
// @Tags Export
// @Produce octet-stream
// @Param domain path string true "Export domain" Enums(participants, instructors, attendance, payments)
// @Param format query string false "File format" Enums(csv, pdf) default(csv)
// @Success 200 {file} byte
// @Failure 400 {object} response.Envelope
// @Router /export/{domain}/download [get]
func (h *ExportHandler) Recap(c *gin.Context) {
	domain := c.Param("domain")
	format := c.DefaultQuery("format", "csv")

	body, contentType, err := h.exports.Recap(c.Request.Context(), domain, format)
	if err != nil {
		response.Error(c, err)
		return
	}

	filename := fmt.Sprintf("%s-%s.%s", domain, time.Now().Format("2006-01-02"), format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, body)
}
