package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tvet-reg-api/internal/models"
	"github.com/noah-isme/tvet-reg-api/internal/repository"
	appErrors "github.com/noah-isme/tvet-reg-api/pkg/errors"
)

const trainingDateLayout = "2006-01-02"

type applicationStore interface {
	Create(ctx context.Context, app *models.CourseApplication) error
	GetByID(ctx context.Context, id string) (*models.ApplicationDetail, error)
	List(ctx context.Context, filter models.ApplicationFilter) ([]models.ApplicationDetail, int, error)
	Decide(ctx context.Context, params repository.ReviewParams) (*models.CourseApplication, error)
}

type activityRecorder interface {
	Record(ctx context.Context, log *models.ActivityLog) error
}

// CreateApplicationRequest holds the intake payload for a new application.
type CreateApplicationRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	CourseID  string `json:"course_id" validate:"required"`
	NCLevel   string `json:"nc_level"`
	Notes     string `json:"notes"`
}

// ReviewApplicationRequest holds a reviewer decision. Training dates arrive
// as YYYY-MM-DD strings and are validated before any write.
type ReviewApplicationRequest struct {
	Decision      string `json:"decision" validate:"required,oneof=approve reject"`
	AdviserID     string `json:"adviser_id"`
	NCLevel       string `json:"nc_level"`
	TrainingStart string `json:"training_start"`
	TrainingEnd   string `json:"training_end"`
	Notes         string `json:"notes"`
}

// ApplicationService orchestrates the course-application workflow.
type ApplicationService struct {
	repo      applicationStore
	activity  activityRecorder
	validator *validator.Validate
	logger    *zap.Logger
	pageSize  int
}

// NewApplicationService constructs the application service. pageSize fixes
// the listing page size; values below one fall back to the default of 10.
func NewApplicationService(repo applicationStore, activity activityRecorder, validate *validator.Validate, logger *zap.Logger, pageSize int) *ApplicationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if pageSize < 1 {
		pageSize = 10
	}
	return &ApplicationService{repo: repo, activity: activity, validator: validate, logger: logger, pageSize: pageSize}
}

// List returns applications and pagination metadata for the filter.
func (s *ApplicationService) List(ctx context.Context, filter models.ApplicationFilter) ([]models.ApplicationDetail, *models.Pagination, error) {
	filter.PageSize = s.pageSize
	if filter.Page < 1 {
		filter.Page = 1
	}
	applications, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list applications")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: s.pageSize, TotalCount: total}
	return applications, pagination, nil
}

// Get returns a single application detail.
func (s *ApplicationService) Get(ctx context.Context, id string) (*models.ApplicationDetail, error) {
	detail, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application")
	}
	return detail, nil
}

// Create registers a new pending application.
func (s *ApplicationService) Create(ctx context.Context, req CreateApplicationRequest, actor *models.JWTClaims) (*models.CourseApplication, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid application payload")
	}
	app := &models.CourseApplication{
		StudentID: req.StudentID,
		CourseID:  req.CourseID,
		NCLevel:   optionalString(req.NCLevel),
		Notes:     optionalString(req.Notes),
		Status:    models.ApplicationStatusPending,
	}
	if err := s.repo.Create(ctx, app); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create application")
	}
	s.recordActivity(ctx, actor, models.ActivityActionApplicationCreate, app.ID,
		fmt.Sprintf("application submitted for student %s to course %s", app.StudentID, app.CourseID))
	return app, nil
}

// Review applies an approve or reject decision to a pending application.
// Approve copies the decided assignment onto the student inside the same
// transaction; reject touches the application row only. Both decisions
// require the application to still be pending; a concurrent loser receives
// ALREADY_PROCESSED rather than a silent double-write.
func (s *ApplicationService) Review(ctx context.Context, id string, req ReviewApplicationRequest, reviewer *models.JWTClaims) (*models.CourseApplication, error) {
	if reviewer == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}

	approve := req.Decision == "approve"
	if !approve && strings.TrimSpace(req.Notes) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "notes are required when rejecting")
	}

	var trainingStart, trainingEnd *time.Time
	if approve {
		var err error
		if trainingStart, err = parseTrainingDate(req.TrainingStart); err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "training_start must be YYYY-MM-DD")
		}
		if trainingEnd, err = parseTrainingDate(req.TrainingEnd); err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "training_end must be YYYY-MM-DD")
		}
		if trainingStart != nil && trainingEnd != nil && trainingEnd.Before(*trainingStart) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "training_end must not be before training_start")
		}
	}

	detail, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application")
	}
	if detail.Status != models.ApplicationStatusPending {
		return nil, appErrors.ErrAlreadyProcessed
	}

	params := repository.ReviewParams{
		ApplicationID: id,
		Approve:       approve,
		NCLevel:       optionalString(req.NCLevel),
		AdviserID:     optionalString(req.AdviserID),
		TrainingStart: trainingStart,
		TrainingEnd:   trainingEnd,
		Notes:         optionalString(req.Notes),
		ReviewedBy:    reviewer.UserID,
		ReviewedAt:    time.Now().UTC(),
	}
	decided, err := s.repo.Decide(ctx, params)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Lost the race: another reviewer committed first.
			return nil, appErrors.ErrAlreadyProcessed
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply review decision")
	}

	action := models.ActivityActionApplicationReject
	if approve {
		action = models.ActivityActionApplicationApprove
	}
	s.recordActivity(ctx, reviewer, action, decided.ID,
		fmt.Sprintf("application for %s %s (%s) marked %s", detail.StudentFirstName, detail.StudentLastName, detail.StudentULI, decided.Status))

	return decided, nil
}

// recordActivity writes the audit entry best-effort; failures are logged and
// never abort the calling operation.
func (s *ApplicationService) recordActivity(ctx context.Context, actor *models.JWTClaims, action, entityID, description string) {
	if s.activity == nil {
		return
	}
	log := &models.ActivityLog{
		ActorType:   "ADMIN",
		Action:      action,
		Description: description,
		EntityType:  "course_application",
		EntityID:    &entityID,
	}
	if actor != nil {
		actorID := actor.UserID
		log.ActorID = &actorID
	}
	if err := s.activity.Record(ctx, log); err != nil {
		s.logger.Warn("failed to record activity", zap.String("action", action), zap.Error(err))
	}
}

func parseTrainingDate(raw string) (*time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, nil
	}
	t, err := time.Parse(trainingDateLayout, trimmed)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func optionalString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
