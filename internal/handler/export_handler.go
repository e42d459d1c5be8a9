package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tvet-reg-api/internal/models"
	"github.com/noah-isme/tvet-reg-api/internal/service"
	"github.com/noah-isme/tvet-reg-api/pkg/response"
)

type exportCounter interface {
	RecordExport(dataset, format string)
}

type exportRenderer interface {
	ExportApplications(ctx context.Context, filter models.ApplicationFilter, format service.ExportFormat) (*service.ExportResult, error)
	ExportStudents(ctx context.Context, filter models.StudentFilter, format service.ExportFormat) (*service.ExportResult, error)
}

// ExportHandler exposes CSV and PDF downloads of applications and students.
type ExportHandler struct {
	exports exportRenderer
	metrics exportCounter
}

func NewExportHandler(exports exportRenderer, metrics exportCounter) *ExportHandler {
	return &ExportHandler{exports: exports, metrics: metrics}
}

// Applications godoc
// @Summary Export course applications as CSV or PDF
// @Tags exports
// @Security BearerAuth
// @Produce text/csv
// @Param format query string false "csv (default) or pdf"
// @Param status query string false "Filter by status"
// @Param course_id query string false "Filter by course"
// @Param search query string false "Substring filter"
// @Success 200
// @Router /exports/applications [get]
func (h *ExportHandler) Applications(c *gin.Context) {
	format, err := service.ParseExportFormat(c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	filter := models.ApplicationFilter{
		Status:   models.ApplicationStatus(c.Query("status")),
		CourseID: c.Query("course_id"),
		Search:   c.Query("search"),
	}
	result, err := h.exports.ExportApplications(c.Request.Context(), filter, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.RecordExport("applications", string(format))
	}
	serveExport(c, result)
}

// Students godoc
// @Summary Export students as CSV or PDF
// @Tags exports
// @Security BearerAuth
// @Produce text/csv
// @Param format query string false "csv (default) or pdf"
// @Param status query string false "Filter by status"
// @Param course_id query string false "Filter by assigned course"
// @Param search query string false "Substring filter"
// @Success 200
// @Router /exports/students [get]
func (h *ExportHandler) Students(c *gin.Context) {
	format, err := service.ParseExportFormat(c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	filter := models.StudentFilter{
		Status:   models.StudentStatus(c.Query("status")),
		CourseID: c.Query("course_id"),
		Search:   c.Query("search"),
	}
	result, err := h.exports.ExportStudents(c.Request.Context(), filter, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.RecordExport("students", string(format))
	}
	serveExport(c, result)
}

func serveExport(c *gin.Context, result *service.ExportResult) {
	c.Header("Content-Disposition", `attachment; filename="`+result.Filename+`"`)
	c.Data(200, result.ContentType, result.Content)
}
