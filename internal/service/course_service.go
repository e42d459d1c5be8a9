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

const courseCachePrefix = "courses:list"

type courseStore interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	ExistsByCode(ctx context.Context, code string, excludeID string) (bool, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	Deactivate(ctx context.Context, id string) error
}

// CourseRequest holds the payload for creating or updating a course.
type CourseRequest struct {
	Code          string `json:"code" validate:"required"`
	Name          string `json:"name" validate:"required"`
	NCLevel       string `json:"nc_level" validate:"required"`
	Description   string `json:"description"`
	DurationHours int    `json:"duration_hours" validate:"gte=0"`
	Active        *bool  `json:"active"`
}

type courseListPage struct {
	Courses []models.Course `json:"courses"`
	Total   int             `json:"total"`
}

// CourseService manages offered courses. Listings are cached; any mutation
// invalidates the whole listing keyspace.
type CourseService struct {
	repo      courseStore
	cache     *CacheService
	activity  activityRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

func NewCourseService(repo courseStore, cache *CacheService, activity activityRecorder, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, cache: cache, activity: activity, validator: validate, logger: logger}
}

// List returns courses and pagination metadata, serving from cache when possible.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}

	key := courseListKey(filter)
	if s.cache != nil && s.cache.Enabled() {
		var cached courseListPage
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: cached.Total}
			return cached.Courses, pagination, nil
		}
	}

	courses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	if s.cache != nil {
		s.cache.Set(ctx, key, courseListPage{Courses: courses, Total: total})
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return courses, pagination, nil
}

// Get returns a single course by ID.
func (s *CourseService) Get(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

// Create registers a new course.
func (s *CourseService) Create(ctx context.Context, req CourseRequest, actor *models.JWTClaims) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	exists, err := s.repo.ExistsByCode(ctx, code, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a course with this code already exists")
	}
	course := &models.Course{
		Code:          code,
		Name:          strings.TrimSpace(req.Name),
		NCLevel:       strings.TrimSpace(req.NCLevel),
		Description:   strings.TrimSpace(req.Description),
		DurationHours: req.DurationHours,
		Active:        true,
	}
	if err := s.repo.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	s.invalidateListings(ctx)
	s.recordActivity(ctx, actor, models.ActivityActionCourseCreate, course.ID,
		fmt.Sprintf("course %s (%s) created", course.Name, course.Code))
	return course, nil
}

// Update modifies an existing course.
func (s *CourseService) Update(ctx context.Context, id string, req CourseRequest, actor *models.JWTClaims) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if code != current.Code {
		exists, err := s.repo.ExistsByCode(ctx, code, id)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course code")
		}
		if exists {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a course with this code already exists")
		}
	}
	current.Code = code
	current.Name = strings.TrimSpace(req.Name)
	current.NCLevel = strings.TrimSpace(req.NCLevel)
	current.Description = strings.TrimSpace(req.Description)
	current.DurationHours = req.DurationHours
	if req.Active != nil {
		current.Active = *req.Active
	}
	if err := s.repo.Update(ctx, current); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}
	s.invalidateListings(ctx)
	s.recordActivity(ctx, actor, models.ActivityActionCourseUpdate, id,
		fmt.Sprintf("course %s updated", current.Code))
	return current, nil
}

// Deactivate soft-deletes a course.
func (s *CourseService) Deactivate(ctx context.Context, id string, actor *models.JWTClaims) error {
	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate course")
	}
	s.invalidateListings(ctx)
	s.recordActivity(ctx, actor, models.ActivityActionCourseDeactivate, id,
		fmt.Sprintf("course %s deactivated", current.Code))
	return nil
}

func (s *CourseService) invalidateListings(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, courseCachePrefix+":*")
	}
}

func courseListKey(filter models.CourseFilter) string {
	active := "any"
	if filter.Active != nil {
		active = fmt.Sprintf("%t", *filter.Active)
	}
	return fmt.Sprintf("%s:%s:%s:%d:%d", courseCachePrefix, strings.ToLower(filter.Search), active, filter.Page, filter.PageSize)
}

func (s *CourseService) recordActivity(ctx context.Context, actor *models.JWTClaims, action, entityID, description string) {
	if s.activity == nil {
		return
	}
	log := &models.ActivityLog{
		ActorType:   "ADMIN",
		Action:      action,
		Description: description,
		EntityType:  "course",
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
