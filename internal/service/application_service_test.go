package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tvet-reg-api/internal/models"
	"github.com/noah-isme/tvet-reg-api/internal/repository"
	appErrors "github.com/noah-isme/tvet-reg-api/pkg/errors"
)

type applicationStoreStub struct {
	applications map[string]*models.ApplicationDetail
	decideParams *repository.ReviewParams
	decideErr    error
}

func newApplicationStoreStub() *applicationStoreStub {
	return &applicationStoreStub{applications: make(map[string]*models.ApplicationDetail)}
}

func (s *applicationStoreStub) Create(ctx context.Context, app *models.CourseApplication) error {
	if app.ID == "" {
		app.ID = "app-generated"
	}
	s.applications[app.ID] = &models.ApplicationDetail{CourseApplication: *app}
	return nil
}

func (s *applicationStoreStub) GetByID(ctx context.Context, id string) (*models.ApplicationDetail, error) {
	if detail, ok := s.applications[id]; ok {
		copy := *detail
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *applicationStoreStub) List(ctx context.Context, filter models.ApplicationFilter) ([]models.ApplicationDetail, int, error) {
	result := make([]models.ApplicationDetail, 0, len(s.applications))
	for _, detail := range s.applications {
		result = append(result, *detail)
	}
	return result, len(result), nil
}

func (s *applicationStoreStub) Decide(ctx context.Context, params repository.ReviewParams) (*models.CourseApplication, error) {
	s.decideParams = &params
	if s.decideErr != nil {
		return nil, s.decideErr
	}
	detail, ok := s.applications[params.ApplicationID]
	if !ok || detail.Status != models.ApplicationStatusPending {
		return nil, sql.ErrNoRows
	}
	decided := detail.CourseApplication
	if params.Approve {
		decided.Status = models.ApplicationStatusApproved
		decided.AdviserID = params.AdviserID
		decided.TrainingStart = params.TrainingStart
		decided.TrainingEnd = params.TrainingEnd
		if params.NCLevel != nil {
			decided.NCLevel = params.NCLevel
		}
	} else {
		decided.Status = models.ApplicationStatusRejected
	}
	decided.Notes = params.Notes
	decided.ReviewedBy = &params.ReviewedBy
	reviewedAt := params.ReviewedAt
	decided.ReviewedAt = &reviewedAt
	detail.CourseApplication = decided
	return &decided, nil
}

type activityStub struct {
	logs []*models.ActivityLog
	err  error
}

func (a *activityStub) Record(ctx context.Context, log *models.ActivityLog) error {
	a.logs = append(a.logs, log)
	return a.err
}

func reviewer() *models.JWTClaims {
	return &models.JWTClaims{UserID: "reviewer-1", Role: models.RoleAdmin, Email: "admin@example.com"}
}

func pendingApplication(id string) *models.ApplicationDetail {
	return &models.ApplicationDetail{
		CourseApplication: models.CourseApplication{
			ID:        id,
			StudentID: "student-1",
			CourseID:  "course-1",
			Status:    models.ApplicationStatusPending,
			AppliedAt: time.Now().Add(-time.Hour),
		},
		StudentFirstName: "Juan",
		StudentLastName:  "Dela Cruz",
		StudentULI:       "ULI-0001",
		CourseName:       "Welding",
		CourseNCLevel:    "NC II",
	}
}

func TestApplicationServiceReviewApprove(t *testing.T) {
	store := newApplicationStoreStub()
	store.applications["app-1"] = pendingApplication("app-1")
	activity := &activityStub{}
	svc := NewApplicationService(store, activity, nil, nil, 10)

	decided, err := svc.Review(context.Background(), "app-1", ReviewApplicationRequest{
		Decision:      "approve",
		AdviserID:     "adviser-1",
		NCLevel:       "NC II",
		TrainingStart: "2026-09-01",
		TrainingEnd:   "2026-12-15",
	}, reviewer())
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusApproved, decided.Status)

	require.NotNil(t, store.decideParams)
	assert.True(t, store.decideParams.Approve)
	assert.Equal(t, "reviewer-1", store.decideParams.ReviewedBy)
	require.NotNil(t, store.decideParams.TrainingStart)
	assert.Equal(t, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), *store.decideParams.TrainingStart)

	require.Len(t, activity.logs, 1)
	assert.Equal(t, models.ActivityActionApplicationApprove, activity.logs[0].Action)
}

func TestApplicationServiceReviewRejectRequiresNotes(t *testing.T) {
	store := newApplicationStoreStub()
	store.applications["app-1"] = pendingApplication("app-1")
	svc := NewApplicationService(store, &activityStub{}, nil, nil, 10)

	_, err := svc.Review(context.Background(), "app-1", ReviewApplicationRequest{Decision: "reject"}, reviewer())
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Nil(t, store.decideParams)
}

func TestApplicationServiceReviewReject(t *testing.T) {
	store := newApplicationStoreStub()
	store.applications["app-1"] = pendingApplication("app-1")
	activity := &activityStub{}
	svc := NewApplicationService(store, activity, nil, nil, 10)

	decided, err := svc.Review(context.Background(), "app-1", ReviewApplicationRequest{
		Decision: "reject",
		Notes:    "incomplete requirements",
	}, reviewer())
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusRejected, decided.Status)
	require.NotNil(t, store.decideParams)
	assert.False(t, store.decideParams.Approve)
	require.Len(t, activity.logs, 1)
	assert.Equal(t, models.ActivityActionApplicationReject, activity.logs[0].Action)
}

func TestApplicationServiceReviewAlreadyProcessed(t *testing.T) {
	store := newApplicationStoreStub()
	processed := pendingApplication("app-1")
	processed.Status = models.ApplicationStatusApproved
	store.applications["app-1"] = processed
	svc := NewApplicationService(store, &activityStub{}, nil, nil, 10)

	_, err := svc.Review(context.Background(), "app-1", ReviewApplicationRequest{
		Decision: "reject",
		Notes:    "late",
	}, reviewer())
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrAlreadyProcessed.Code, appErr.Code)
	assert.Equal(t, 409, appErr.Status)
}

func TestApplicationServiceReviewRaceLoserGetsConflict(t *testing.T) {
	store := newApplicationStoreStub()
	store.applications["app-1"] = pendingApplication("app-1")
	store.decideErr = sql.ErrNoRows
	svc := NewApplicationService(store, &activityStub{}, nil, nil, 10)

	_, err := svc.Review(context.Background(), "app-1", ReviewApplicationRequest{
		Decision: "approve",
	}, reviewer())
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrAlreadyProcessed.Code, appErr.Code)
}

func TestApplicationServiceReviewNotFound(t *testing.T) {
	svc := NewApplicationService(newApplicationStoreStub(), &activityStub{}, nil, nil, 10)

	_, err := svc.Review(context.Background(), "missing", ReviewApplicationRequest{
		Decision: "approve",
	}, reviewer())
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestApplicationServiceReviewRejectsBadDates(t *testing.T) {
	store := newApplicationStoreStub()
	store.applications["app-1"] = pendingApplication("app-1")
	svc := NewApplicationService(store, &activityStub{}, nil, nil, 10)

	cases := []ReviewApplicationRequest{
		{Decision: "approve", TrainingStart: "09/01/2026"},
		{Decision: "approve", TrainingEnd: "not-a-date"},
		{Decision: "approve", TrainingStart: "2026-12-15", TrainingEnd: "2026-09-01"},
	}
	for _, req := range cases {
		_, err := svc.Review(context.Background(), "app-1", req, reviewer())
		require.Error(t, err)
		appErr := appErrors.FromError(err)
		assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	}
	// validation failures must never reach the repository
	assert.Nil(t, store.decideParams)
}

func TestApplicationServiceReviewSurvivesActivityFailure(t *testing.T) {
	store := newApplicationStoreStub()
	store.applications["app-1"] = pendingApplication("app-1")
	activity := &activityStub{err: errors.New("audit table unavailable")}
	svc := NewApplicationService(store, activity, nil, nil, 10)

	decided, err := svc.Review(context.Background(), "app-1", ReviewApplicationRequest{
		Decision: "reject",
		Notes:    "withdrawn",
	}, reviewer())
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusRejected, decided.Status)
}

func TestApplicationServiceCreate(t *testing.T) {
	store := newApplicationStoreStub()
	activity := &activityStub{}
	svc := NewApplicationService(store, activity, nil, nil, 10)

	app, err := svc.Create(context.Background(), CreateApplicationRequest{
		StudentID: "student-1",
		CourseID:  "course-1",
		NCLevel:   "NC II",
	}, reviewer())
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusPending, app.Status)
	require.NotNil(t, app.NCLevel)
	assert.Equal(t, "NC II", *app.NCLevel)
	require.Len(t, activity.logs, 1)
	assert.Equal(t, models.ActivityActionApplicationCreate, activity.logs[0].Action)
}

func TestApplicationServiceCreateValidation(t *testing.T) {
	svc := NewApplicationService(newApplicationStoreStub(), &activityStub{}, nil, nil, 10)

	_, err := svc.Create(context.Background(), CreateApplicationRequest{StudentID: "student-1"}, reviewer())
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestApplicationServiceListUsesFixedPageSize(t *testing.T) {
	store := newApplicationStoreStub()
	store.applications["app-1"] = pendingApplication("app-1")
	svc := NewApplicationService(store, &activityStub{}, nil, nil, 10)

	_, pagination, err := svc.List(context.Background(), models.ApplicationFilter{Page: 2, PageSize: 99})
	require.NoError(t, err)
	assert.Equal(t, 10, pagination.PageSize)
	assert.Equal(t, 2, pagination.Page)
}
