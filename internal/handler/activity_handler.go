package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tvet-reg-api/internal/models"
	"github.com/noah-isme/tvet-reg-api/pkg/response"
)

type activityLister interface {
	List(ctx context.Context, filter models.ActivityFilter) ([]models.ActivityLog, *models.Pagination, error)
}

// ActivityHandler exposes the audit log listing.
type ActivityHandler struct {
	activity activityLister
}

func NewActivityHandler(activity activityLister) *ActivityHandler {
	return &ActivityHandler{activity: activity}
}

// List godoc
// @Summary List audit entries, newest first
// @Tags activity
// @Security BearerAuth
// @Produce json
// @Param action query string false "Filter by action"
// @Param entity_type query string false "Filter by entity type"
// @Param actor_id query string false "Filter by actor"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope{data=[]models.ActivityLog}
// @Router /activity [get]
func (h *ActivityHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "50"))
	filter := models.ActivityFilter{
		Action:     c.Query("action"),
		EntityType: c.Query("entity_type"),
		ActorID:    c.Query("actor_id"),
		Page:       page,
		PageSize:   pageSize,
	}
	entries, pagination, err := h.activity.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, pagination)
}
