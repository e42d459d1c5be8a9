package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/tvet-reg-api/internal/models"
	appErrors "github.com/noah-isme/tvet-reg-api/pkg/errors"
)

type activityStore interface {
	Create(ctx context.Context, log *models.ActivityLog) error
	List(ctx context.Context, filter models.ActivityFilter) ([]models.ActivityLog, int, error)
}

// ActivityService persists audit records for mutating operations. Record
// returns the write error so callers decide whether to surface or ignore it;
// every current caller logs and continues.
type ActivityService struct {
	repo   activityStore
	logger *zap.Logger
}

func NewActivityService(repo activityStore, logger *zap.Logger) *ActivityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityService{repo: repo, logger: logger}
}

// Record writes an audit entry, filling client info from the request context
// when the caller did not set it.
func (s *ActivityService) Record(ctx context.Context, log *models.ActivityLog) error {
	if log.ActorType == "" {
		log.ActorType = "ADMIN"
	}
	if meta, ok := models.RequestMetaFromContext(ctx); ok {
		if log.IPAddress == "" {
			log.IPAddress = meta.IP
		}
		if log.UserAgent == "" {
			log.UserAgent = meta.UserAgent
		}
	}
	if err := s.repo.Create(ctx, log); err != nil {
		s.logger.Warn("activity write failed",
			zap.String("action", log.Action),
			zap.String("entity_type", log.EntityType),
			zap.Error(err))
		return err
	}
	return nil
}

// List returns audit entries matching the filter, newest first.
func (s *ActivityService) List(ctx context.Context, filter models.ActivityFilter) ([]models.ActivityLog, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 50
	}
	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list activity")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return entries, pagination, nil
}
