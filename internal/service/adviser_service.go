package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tvet-reg-api/internal/models"
	appErrors "github.com/noah-isme/tvet-reg-api/pkg/errors"
)

type adviserStore interface {
	List(ctx context.Context, filter models.AdviserFilter) ([]models.Adviser, int, error)
	FindByID(ctx context.Context, id string) (*models.Adviser, error)
	ExistsByEmail(ctx context.Context, email string, excludeID string) (bool, error)
	Create(ctx context.Context, adviser *models.Adviser) error
	Update(ctx context.Context, adviser *models.Adviser) error
	Deactivate(ctx context.Context, id string) error
}

// AdviserRequest holds the payload for creating or updating an adviser.
type AdviserRequest struct {
	FullName       string `json:"full_name" validate:"required"`
	Email          string `json:"email" validate:"required,email"`
	Phone          string `json:"phone"`
	Specialization string `json:"specialization"`
	Active         *bool  `json:"active"`
}

// AdviserService manages adviser reference records.
type AdviserService struct {
	repo      adviserStore
	activity  activityRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

func NewAdviserService(repo adviserStore, activity activityRecorder, validate *validator.Validate, logger *zap.Logger) *AdviserService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdviserService{repo: repo, activity: activity, validator: validate, logger: logger}
}

// List returns advisers and pagination metadata for the filter.
func (s *AdviserService) List(ctx context.Context, filter models.AdviserFilter) ([]models.Adviser, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	advisers, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list advisers")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return advisers, pagination, nil
}

// Get returns a single adviser by ID.
func (s *AdviserService) Get(ctx context.Context, id string) (*models.Adviser, error) {
	adviser, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "adviser not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load adviser")
	}
	return adviser, nil
}

// Create registers a new adviser.
func (s *AdviserService) Create(ctx context.Context, req AdviserRequest, actor *models.JWTClaims) (*models.Adviser, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid adviser payload")
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	exists, err := s.repo.ExistsByEmail(ctx, email, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check adviser email")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "an adviser with this email already exists")
	}
	adviser := &models.Adviser{
		FullName:       strings.TrimSpace(req.FullName),
		Email:          email,
		Phone:          strings.TrimSpace(req.Phone),
		Specialization: strings.TrimSpace(req.Specialization),
		Active:         true,
	}
	if err := s.repo.Create(ctx, adviser); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create adviser")
	}
	s.recordActivity(ctx, actor, models.ActivityActionAdviserCreate, adviser.ID,
		fmt.Sprintf("adviser %s registered", adviser.FullName))
	return adviser, nil
}

// Update modifies an existing adviser.
func (s *AdviserService) Update(ctx context.Context, id string, req AdviserRequest, actor *models.JWTClaims) (*models.Adviser, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid adviser payload")
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email != current.Email {
		exists, err := s.repo.ExistsByEmail(ctx, email, id)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check adviser email")
		}
		if exists {
			return nil, appErrors.Clone(appErrors.ErrConflict, "an adviser with this email already exists")
		}
	}
	current.FullName = strings.TrimSpace(req.FullName)
	current.Email = email
	current.Phone = strings.TrimSpace(req.Phone)
	current.Specialization = strings.TrimSpace(req.Specialization)
	if req.Active != nil {
		current.Active = *req.Active
	}
	if err := s.repo.Update(ctx, current); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update adviser")
	}
	s.recordActivity(ctx, actor, models.ActivityActionAdviserUpdate, id,
		fmt.Sprintf("adviser %s updated", current.FullName))
	return current, nil
}

// Deactivate soft-deletes an adviser.
func (s *AdviserService) Deactivate(ctx context.Context, id string, actor *models.JWTClaims) error {
	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate adviser")
	}
	s.recordActivity(ctx, actor, models.ActivityActionAdviserDeactivate, id,
		fmt.Sprintf("adviser %s deactivated", current.FullName))
	return nil
}

func (s *AdviserService) recordActivity(ctx context.Context, actor *models.JWTClaims, action, entityID, description string) {
	if s.activity == nil {
		return
	}
	log := &models.ActivityLog{
		ActorType:   "ADMIN",
		Action:      action,
		Description: description,
		EntityType:  "adviser",
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
