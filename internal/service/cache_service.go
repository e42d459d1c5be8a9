package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

var errCacheDisabled = errors.New("cache disabled")

type cacheStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CacheService wraps the cache repository with a global enable switch so the
// API keeps working when redis is absent.
type CacheService struct {
	repo    cacheStore
	enabled bool
	ttl     time.Duration
	logger  *zap.Logger
}

func NewCacheService(repo cacheStore, enabled bool, ttl time.Duration, logger *zap.Logger) *CacheService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CacheService{repo: repo, enabled: enabled && repo != nil, ttl: ttl, logger: logger}
}

// Enabled reports whether caching is active.
func (s *CacheService) Enabled() bool {
	return s.enabled
}

// Get loads a cached value into dest. Returns an error on miss or decode failure.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) error {
	if !s.enabled {
		return errCacheDisabled
	}
	return s.repo.Get(ctx, key, dest)
}

// Set stores a value with the configured TTL; failures are logged only.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}) {
	if !s.enabled {
		return
	}
	if err := s.repo.Set(ctx, key, value, s.ttl); err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate removes all keys matching the pattern.
func (s *CacheService) Invalidate(ctx context.Context, pattern string) {
	if !s.enabled {
		return
	}
	if err := s.repo.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("cache invalidation failed", zap.String("pattern", pattern), zap.Error(err))
	}
}
