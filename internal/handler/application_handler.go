package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tvet-reg-api/internal/middleware"
	"github.com/noah-isme/tvet-reg-api/internal/models"
	"github.com/noah-isme/tvet-reg-api/internal/service"
	appErrors "github.com/noah-isme/tvet-reg-api/pkg/errors"
	"github.com/noah-isme/tvet-reg-api/pkg/response"
)

type decisionCounter interface {
	RecordDecision(decision string)
}

type applicationManager interface {
	List(ctx context.Context, filter models.ApplicationFilter) ([]models.ApplicationDetail, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.ApplicationDetail, error)
	Create(ctx context.Context, req service.CreateApplicationRequest, actor *models.JWTClaims) (*models.CourseApplication, error)
	Review(ctx context.Context, id string, req service.ReviewApplicationRequest, reviewer *models.JWTClaims) (*models.CourseApplication, error)
}

// ApplicationHandler exposes the course-application workflow endpoints.
type ApplicationHandler struct {
	applications applicationManager
	metrics      decisionCounter
}

func NewApplicationHandler(applications applicationManager, metrics decisionCounter) *ApplicationHandler {
	return &ApplicationHandler{applications: applications, metrics: metrics}
}

// List godoc
// @Summary List course applications
// @Tags applications
// @Security BearerAuth
// @Produce json
// @Param status query string false "Filter by status (PENDING, APPROVED, REJECTED)"
// @Param course_id query string false "Filter by course"
// @Param search query string false "Substring match on student name, email, ULI or course name"
// @Param page query int false "Page number"
// @Success 200 {object} response.Envelope{data=[]models.ApplicationDetail}
// @Router /applications [get]
func (h *ApplicationHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	filter := models.ApplicationFilter{
		Status:   models.ApplicationStatus(c.Query("status")),
		CourseID: c.Query("course_id"),
		Search:   c.Query("search"),
		Page:     page,
	}
	applications, pagination, err := h.applications.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, applications, pagination)
}

// Get godoc
// @Summary Fetch one application with joined student, course and adviser fields
// @Tags applications
// @Security BearerAuth
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} response.Envelope{data=models.ApplicationDetail}
// @Failure 404 {object} response.Envelope
// @Router /applications/{id} [get]
func (h *ApplicationHandler) Get(c *gin.Context) {
	detail, err := h.applications.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Create godoc
// @Summary Submit a new course application
// @Tags applications
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body service.CreateApplicationRequest true "Application"
// @Success 201 {object} response.Envelope{data=models.CourseApplication}
// @Failure 400 {object} response.Envelope
// @Router /applications [post]
func (h *ApplicationHandler) Create(c *gin.Context) {
	var req service.CreateApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}
	app, err := h.applications.Create(c.Request.Context(), req, middleware.ClaimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, app)
}

// Review godoc
// @Summary Approve or reject a pending application
// @Description Approval copies the decided course assignment onto the student
// @Description record in the same transaction. A non-pending application
// @Description returns 409 ALREADY_PROCESSED.
// @Tags applications
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param payload body service.ReviewApplicationRequest true "Decision"
// @Success 200 {object} response.Envelope{data=models.CourseApplication}
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /applications/{id}/review [post]
func (h *ApplicationHandler) Review(c *gin.Context) {
	var req service.ReviewApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}
	decided, err := h.applications.Review(c.Request.Context(), c.Param("id"), req, middleware.ClaimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.metrics != nil {
		if decided.Status == models.ApplicationStatusApproved {
			h.metrics.RecordDecision("approved")
		} else {
			h.metrics.RecordDecision("rejected")
		}
	}
	response.JSON(c, http.StatusOK, decided, nil)
}
