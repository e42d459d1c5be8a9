package handler

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tvet-reg-api/internal/middleware"
	"github.com/noah-isme/tvet-reg-api/internal/models"
	"github.com/noah-isme/tvet-reg-api/internal/service"
	appErrors "github.com/noah-isme/tvet-reg-api/pkg/errors"
	"github.com/noah-isme/tvet-reg-api/pkg/response"
)

type studentManager interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.StudentDetail, error)
	Create(ctx context.Context, req service.CreateStudentRequest, actor *models.JWTClaims) (*models.Student, error)
	Update(ctx context.Context, id string, req service.UpdateStudentRequest, actor *models.JWTClaims) (*models.StudentDetail, error)
	Deactivate(ctx context.Context, id string, actor *models.JWTClaims) error
	UploadPhoto(ctx context.Context, id string, header *multipart.FileHeader, actor *models.JWTClaims) (string, error)
	PhotoDownloadURL(ctx context.Context, id string) (string, time.Time, error)
	OpenPhotoByToken(token string) (io.ReadCloser, string, error)
}

// StudentHandler exposes student CRUD and photo endpoints.
type StudentHandler struct {
	students studentManager
}

func NewStudentHandler(students studentManager) *StudentHandler {
	return &StudentHandler{students: students}
}

// List godoc
// @Summary List students
// @Tags students
// @Security BearerAuth
// @Produce json
// @Param status query string false "Filter by status"
// @Param course_id query string false "Filter by assigned course"
// @Param active query bool false "Filter by active flag"
// @Param search query string false "Substring match on name, email or ULI"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param sort_by query string false "Sort column (last_name, uli, created_at)"
// @Param sort_order query string false "asc or desc"
// @Success 200 {object} response.Envelope{data=[]models.StudentDetail}
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	filter := models.StudentFilter{
		Search:    c.Query("search"),
		Status:    models.StudentStatus(c.Query("status")),
		CourseID:  c.Query("course_id"),
		Active:    parseBoolQuery(c, "active"),
		Page:      page,
		PageSize:  pageSize,
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
	students, pagination, err := h.students.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, pagination)
}

// Get godoc
// @Summary Fetch one student with resolved course and adviser names
// @Tags students
// @Security BearerAuth
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope{data=models.StudentDetail}
// @Failure 404 {object} response.Envelope
// @Router /students/{id} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	detail, err := h.students.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Create godoc
// @Summary Register a new student
// @Tags students
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body service.CreateStudentRequest true "Student"
// @Success 201 {object} response.Envelope{data=models.Student}
// @Failure 409 {object} response.Envelope
// @Router /students [post]
func (h *StudentHandler) Create(c *gin.Context) {
	var req service.CreateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}
	student, err := h.students.Create(c.Request.Context(), req, middleware.ClaimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// Update godoc
// @Summary Update a student's identity fields
// @Tags students
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.UpdateStudentRequest true "Student"
// @Success 200 {object} response.Envelope{data=models.StudentDetail}
// @Failure 404 {object} response.Envelope
// @Router /students/{id} [put]
func (h *StudentHandler) Update(c *gin.Context) {
	var req service.UpdateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}
	detail, err := h.students.Update(c.Request.Context(), c.Param("id"), req, middleware.ClaimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Deactivate godoc
// @Summary Soft-delete a student
// @Tags students
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /students/{id} [delete]
func (h *StudentHandler) Deactivate(c *gin.Context) {
	if err := h.students.Deactivate(c.Request.Context(), c.Param("id"), middleware.ClaimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// UploadPhoto godoc
// @Summary Upload a student profile photo
// @Tags students
// @Security BearerAuth
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Student ID"
// @Param photo formData file true "JPEG or PNG image"
// @Success 200 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Failure 415 {object} response.Envelope
// @Router /students/{id}/photo [post]
func (h *StudentHandler) UploadPhoto(c *gin.Context) {
	header, err := c.FormFile("photo")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "photo file is required"))
		return
	}
	path, err := h.students.UploadPhoto(c.Request.Context(), c.Param("id"), header, middleware.ClaimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"photo_path": path}, nil)
}

// PhotoURL godoc
// @Summary Issue a signed, expiring download link for the student photo
// @Tags students
// @Security BearerAuth
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/photo-url [get]
func (h *StudentHandler) PhotoURL(c *gin.Context) {
	token, expiresAt, err := h.students.PhotoDownloadURL(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{
		"url":        "/files/" + token,
		"expires_at": expiresAt,
	}, nil)
}

// DownloadPhoto godoc
// @Summary Download a photo via signed token
// @Tags students
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200
// @Failure 401 {object} response.Envelope
// @Router /files/{token} [get]
func (h *StudentHandler) DownloadPhoto(c *gin.Context) {
	file, name, err := h.students.OpenPhotoByToken(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	c.Header("Content-Disposition", `inline; filename="`+name+`"`)
	c.Header("Cache-Control", "private, max-age=60")
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, file); err != nil {
		_ = c.Error(err)
	}
}

func parseBoolQuery(c *gin.Context, key string) *bool {
	raw, ok := c.GetQuery(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &value
}
