package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tvet-reg-api/internal/middleware"
	"github.com/noah-isme/tvet-reg-api/internal/models"
	"github.com/noah-isme/tvet-reg-api/internal/service"
	appErrors "github.com/noah-isme/tvet-reg-api/pkg/errors"
	"github.com/noah-isme/tvet-reg-api/pkg/response"
)

type applicationServiceMock struct {
	listResp     []models.ApplicationDetail
	listErr      error
	getResp      *models.ApplicationDetail
	getErr       error
	createResp   *models.CourseApplication
	createErr    error
	reviewResp   *models.CourseApplication
	reviewErr    error
	lastFilter   models.ApplicationFilter
	lastReviewID string
	lastReview   service.ReviewApplicationRequest
	reviewCalled bool
}

func (m *applicationServiceMock) List(ctx context.Context, filter models.ApplicationFilter) ([]models.ApplicationDetail, *models.Pagination, error) {
	m.lastFilter = filter
	if m.listErr != nil {
		return nil, nil, m.listErr
	}
	return m.listResp, &models.Pagination{Page: 1, PageSize: 10, TotalCount: len(m.listResp)}, nil
}

func (m *applicationServiceMock) Get(ctx context.Context, id string) (*models.ApplicationDetail, error) {
	return m.getResp, m.getErr
}

func (m *applicationServiceMock) Create(ctx context.Context, req service.CreateApplicationRequest, actor *models.JWTClaims) (*models.CourseApplication, error) {
	return m.createResp, m.createErr
}

func (m *applicationServiceMock) Review(ctx context.Context, id string, req service.ReviewApplicationRequest, reviewer *models.JWTClaims) (*models.CourseApplication, error) {
	m.reviewCalled = true
	m.lastReviewID = id
	m.lastReview = req
	return m.reviewResp, m.reviewErr
}

type metricsMock struct {
	decisions []string
}

func (m *metricsMock) RecordDecision(decision string) {
	m.decisions = append(m.decisions, decision)
}

func adminContext(w *httptest.ResponseRecorder) (*gin.Context, *gin.Engine) {
	c, r := gin.CreateTestContext(w)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})
	return c, r
}

func TestApplicationHandlerListForwardsFilters(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &applicationServiceMock{
		listResp: []models.ApplicationDetail{{StudentULI: "ULI-0001"}},
	}
	h := NewApplicationHandler(mockSvc, nil)

	w := httptest.NewRecorder()
	c, _ := adminContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/applications?status=PENDING&search=juan&page=3", nil)
	c.Request = req

	h.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.ApplicationStatusPending, mockSvc.lastFilter.Status)
	assert.Equal(t, "juan", mockSvc.lastFilter.Search)
	assert.Equal(t, 3, mockSvc.lastFilter.Page)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Pagination)
	assert.Equal(t, 1, envelope.Pagination.TotalCount)
}

func TestApplicationHandlerReviewApprove(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &applicationServiceMock{
		reviewResp: &models.CourseApplication{ID: "app-1", Status: models.ApplicationStatusApproved},
	}
	metrics := &metricsMock{}
	h := NewApplicationHandler(mockSvc, metrics)

	w := httptest.NewRecorder()
	c, _ := adminContext(w)
	body := `{"decision":"approve","adviser_id":"adviser-1","training_start":"2026-09-01","training_end":"2026-12-15"}`
	req, _ := http.NewRequest(http.MethodPost, "/applications/app-1/review", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "app-1"}}

	h.Review(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mockSvc.reviewCalled)
	assert.Equal(t, "app-1", mockSvc.lastReviewID)
	assert.Equal(t, "approve", mockSvc.lastReview.Decision)
	assert.Equal(t, []string{"approved"}, metrics.decisions)
}

func TestApplicationHandlerReviewConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &applicationServiceMock{reviewErr: appErrors.ErrAlreadyProcessed}
	h := NewApplicationHandler(mockSvc, &metricsMock{})

	w := httptest.NewRecorder()
	c, _ := adminContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/applications/app-1/review", bytes.NewBufferString(`{"decision":"reject","notes":"late"}`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "app-1"}}

	h.Review(c)
	require.Equal(t, http.StatusConflict, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "ALREADY_PROCESSED", envelope.Error.Code)
}

func TestApplicationHandlerReviewInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &applicationServiceMock{}
	h := NewApplicationHandler(mockSvc, &metricsMock{})

	w := httptest.NewRecorder()
	c, _ := adminContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/applications/app-1/review", bytes.NewBufferString(`{"decision":`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "app-1"}}

	h.Review(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, mockSvc.reviewCalled)
}

func TestApplicationHandlerGetNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &applicationServiceMock{getErr: appErrors.ErrNotFound}
	h := NewApplicationHandler(mockSvc, nil)

	w := httptest.NewRecorder()
	c, _ := adminContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/applications/missing", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	h.Get(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}
