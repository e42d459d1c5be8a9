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

type adviserManager interface {
	List(ctx context.Context, filter models.AdviserFilter) ([]models.Adviser, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Adviser, error)
	Create(ctx context.Context, req service.AdviserRequest, actor *models.JWTClaims) (*models.Adviser, error)
	Update(ctx context.Context, id string, req service.AdviserRequest, actor *models.JWTClaims) (*models.Adviser, error)
	Deactivate(ctx context.Context, id string, actor *models.JWTClaims) error
}

// AdviserHandler exposes adviser CRUD endpoints.
type AdviserHandler struct {
	advisers adviserManager
}

func NewAdviserHandler(advisers adviserManager) *AdviserHandler {
	return &AdviserHandler{advisers: advisers}
}

// List godoc
// @Summary List advisers
// @Tags advisers
// @Security BearerAuth
// @Produce json
// @Param search query string false "Substring match on name or email"
// @Param active query bool false "Filter by active flag"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope{data=[]models.Adviser}
// @Router /advisers [get]
func (h *AdviserHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	filter := models.AdviserFilter{
		Search:   c.Query("search"),
		Active:   parseBoolQuery(c, "active"),
		Page:     page,
		PageSize: pageSize,
	}
	advisers, pagination, err := h.advisers.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, advisers, pagination)
}

// Get godoc
// @Summary Fetch one adviser
// @Tags advisers
// @Security BearerAuth
// @Produce json
// @Param id path string true "Adviser ID"
// @Success 200 {object} response.Envelope{data=models.Adviser}
// @Failure 404 {object} response.Envelope
// @Router /advisers/{id} [get]
func (h *AdviserHandler) Get(c *gin.Context) {
	adviser, err := h.advisers.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, adviser, nil)
}

// Create godoc
// @Summary Register a new adviser
// @Tags advisers
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body service.AdviserRequest true "Adviser"
// @Success 201 {object} response.Envelope{data=models.Adviser}
// @Failure 409 {object} response.Envelope
// @Router /advisers [post]
func (h *AdviserHandler) Create(c *gin.Context) {
	var req service.AdviserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}
	adviser, err := h.advisers.Create(c.Request.Context(), req, middleware.ClaimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, adviser)
}

// Update godoc
// @Summary Update an adviser
// @Tags advisers
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Adviser ID"
// @Param payload body service.AdviserRequest true "Adviser"
// @Success 200 {object} response.Envelope{data=models.Adviser}
// @Failure 404 {object} response.Envelope
// @Router /advisers/{id} [put]
func (h *AdviserHandler) Update(c *gin.Context) {
	var req service.AdviserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}
	adviser, err := h.advisers.Update(c.Request.Context(), c.Param("id"), req, middleware.ClaimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, adviser, nil)
}

// Deactivate godoc
// @Summary Soft-delete an adviser
// @Tags advisers
// @Security BearerAuth
// @Param id path string true "Adviser ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /advisers/{id} [delete]
func (h *AdviserHandler) Deactivate(c *gin.Context) {
	if err := h.advisers.Deactivate(c.Request.Context(), c.Param("id"), middleware.ClaimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
