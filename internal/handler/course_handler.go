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

type courseManager interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Course, error)
	Create(ctx context.Context, req service.CourseRequest, actor *models.JWTClaims) (*models.Course, error)
	Update(ctx context.Context, id string, req service.CourseRequest, actor *models.JWTClaims) (*models.Course, error)
	Deactivate(ctx context.Context, id string, actor *models.JWTClaims) error
}

// CourseHandler exposes course CRUD endpoints.
type CourseHandler struct {
	courses courseManager
}

func NewCourseHandler(courses courseManager) *CourseHandler {
	return &CourseHandler{courses: courses}
}

// List godoc
// @Summary List courses
// @Tags courses
// @Security BearerAuth
// @Produce json
// @Param search query string false "Substring match on code or name"
// @Param active query bool false "Filter by active flag"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope{data=[]models.Course}
// @Router /courses [get]
func (h *CourseHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	filter := models.CourseFilter{
		Search:   c.Query("search"),
		Active:   parseBoolQuery(c, "active"),
		Page:     page,
		PageSize: pageSize,
	}
	courses, pagination, err := h.courses.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, pagination)
}

// Get godoc
// @Summary Fetch one course
// @Tags courses
// @Security BearerAuth
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope{data=models.Course}
// @Failure 404 {object} response.Envelope
// @Router /courses/{id} [get]
func (h *CourseHandler) Get(c *gin.Context) {
	course, err := h.courses.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// Create godoc
// @Summary Register a new course
// @Tags courses
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body service.CourseRequest true "Course"
// @Success 201 {object} response.Envelope{data=models.Course}
// @Failure 409 {object} response.Envelope
// @Router /courses [post]
func (h *CourseHandler) Create(c *gin.Context) {
	var req service.CourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}
	course, err := h.courses.Create(c.Request.Context(), req, middleware.ClaimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}

// Update godoc
// @Summary Update a course
// @Tags courses
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body service.CourseRequest true "Course"
// @Success 200 {object} response.Envelope{data=models.Course}
// @Failure 404 {object} response.Envelope
// @Router /courses/{id} [put]
func (h *CourseHandler) Update(c *gin.Context) {
	var req service.CourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}
	course, err := h.courses.Update(c.Request.Context(), c.Param("id"), req, middleware.ClaimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// Deactivate godoc
// @Summary Soft-delete a course
// @Tags courses
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /courses/{id} [delete]
func (h *CourseHandler) Deactivate(c *gin.Context) {
	if err := h.courses.Deactivate(c.Request.Context(), c.Param("id"), middleware.ClaimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
