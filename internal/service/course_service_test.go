package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tvet-reg-api/internal/models"
	appErrors "github.com/noah-isme/tvet-reg-api/pkg/errors"
)

type courseStoreStub struct {
	courses   map[string]*models.Course
	listCalls int
}

func newCourseStoreStub() *courseStoreStub {
	return &courseStoreStub{courses: make(map[string]*models.Course)}
}

func (s *courseStoreStub) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	s.listCalls++
	result := make([]models.Course, 0, len(s.courses))
	for _, course := range s.courses {
		result = append(result, *course)
	}
	return result, len(result), nil
}

func (s *courseStoreStub) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if course, ok := s.courses[id]; ok {
		copy := *course
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *courseStoreStub) ExistsByCode(ctx context.Context, code string, excludeID string) (bool, error) {
	for id, course := range s.courses {
		if course.Code == code && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (s *courseStoreStub) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = "course-generated"
	}
	s.courses[course.ID] = course
	return nil
}

func (s *courseStoreStub) Update(ctx context.Context, course *models.Course) error {
	s.courses[course.ID] = course
	return nil
}

func (s *courseStoreStub) Deactivate(ctx context.Context, id string) error {
	if course, ok := s.courses[id]; ok {
		course.Active = false
	}
	return nil
}

// cacheStoreStub is an in-memory stand-in for the redis-backed repository.
type cacheStoreStub struct {
	entries    map[string][]byte
	getFn      func(key string, dest interface{}) error
	deleted    []string
	setCalls   int
	lastSetKey string
}

func newCacheStoreStub() *cacheStoreStub {
	return &cacheStoreStub{entries: make(map[string][]byte)}
}

func (c *cacheStoreStub) Get(ctx context.Context, key string, dest interface{}) error {
	if c.getFn != nil {
		return c.getFn(key, dest)
	}
	return appErrors.ErrCacheMiss
}

func (c *cacheStoreStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.setCalls++
	c.lastSetKey = key
	return nil
}

func (c *cacheStoreStub) DeleteByPattern(ctx context.Context, pattern string) error {
	c.deleted = append(c.deleted, pattern)
	return nil
}

func TestCourseServiceListPopulatesCacheOnMiss(t *testing.T) {
	store := newCourseStoreStub()
	store.courses["course-1"] = &models.Course{ID: "course-1", Code: "SMAW", Name: "Welding", NCLevel: "NC II", Active: true}
	cacheStub := newCacheStoreStub()
	cache := NewCacheService(cacheStub, true, time.Minute, nil)
	svc := NewCourseService(store, cache, &activityStub{}, nil, nil)

	courses, pagination, err := svc.List(context.Background(), models.CourseFilter{Page: 1, PageSize: 20})
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, 1, pagination.TotalCount)
	assert.Equal(t, 1, store.listCalls)
	assert.Equal(t, 1, cacheStub.setCalls)
	assert.Contains(t, cacheStub.lastSetKey, "courses:list")
}

func TestCourseServiceListServesFromCache(t *testing.T) {
	store := newCourseStoreStub()
	cacheStub := newCacheStoreStub()
	cacheStub.getFn = func(key string, dest interface{}) error {
		page, ok := dest.(*courseListPage)
		require.True(t, ok)
		page.Courses = []models.Course{{ID: "course-1", Code: "SMAW", Name: "Welding"}}
		page.Total = 1
		return nil
	}
	cache := NewCacheService(cacheStub, true, time.Minute, nil)
	svc := NewCourseService(store, cache, &activityStub{}, nil, nil)

	courses, pagination, err := svc.List(context.Background(), models.CourseFilter{Page: 1, PageSize: 20})
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, 1, pagination.TotalCount)
	// the repository must not be hit on a cache hit
	assert.Equal(t, 0, store.listCalls)
}

func TestCourseServiceMutationsInvalidateCache(t *testing.T) {
	store := newCourseStoreStub()
	cacheStub := newCacheStoreStub()
	cache := NewCacheService(cacheStub, true, time.Minute, nil)
	svc := NewCourseService(store, cache, &activityStub{}, nil, nil)

	course, err := svc.Create(context.Background(), CourseRequest{
		Code:    "smaw",
		Name:    "Shielded Metal Arc Welding",
		NCLevel: "NC II",
	}, reviewer())
	require.NoError(t, err)
	assert.Equal(t, "SMAW", course.Code)
	require.NotEmpty(t, cacheStub.deleted)
	assert.Equal(t, "courses:list:*", cacheStub.deleted[0])

	require.NoError(t, svc.Deactivate(context.Background(), course.ID, reviewer()))
	assert.Len(t, cacheStub.deleted, 2)
}

func TestCourseServiceCreateDuplicateCode(t *testing.T) {
	store := newCourseStoreStub()
	store.courses["course-1"] = &models.Course{ID: "course-1", Code: "SMAW"}
	svc := NewCourseService(store, nil, &activityStub{}, nil, nil)

	_, err := svc.Create(context.Background(), CourseRequest{Code: "SMAW", Name: "Welding", NCLevel: "NC II"}, reviewer())
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestCourseServiceGetNotFound(t *testing.T) {
	svc := NewCourseService(newCourseStoreStub(), nil, &activityStub{}, nil, nil)

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
