package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tvet-reg-api/internal/models"
)

// ActivityRepository persists the activity audit trail.
type ActivityRepository struct {
	db *sqlx.DB
}

// NewActivityRepository constructs an ActivityRepository.
func NewActivityRepository(db *sqlx.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Create stores an activity log entry.
func (r *ActivityRepository) Create(ctx context.Context, log *models.ActivityLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO activity_logs (id, actor_type, actor_id, action, description, entity_type, entity_id, ip_address, user_agent, created_at)
        VALUES (:id, :actor_type, :actor_id, :action, :description, :entity_type, :entity_id, :ip_address, :user_agent, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("create activity log: %w", err)
	}
	return nil
}

// List returns activity logs matching the filter, latest first.
func (r *ActivityRepository) List(ctx context.Context, filter models.ActivityFilter) ([]models.ActivityLog, int, error) {
	conditions := []string{"1=1"}
	var args []interface{}

	if filter.Action != "" {
		args = append(args, filter.Action)
		conditions = append(conditions, fmt.Sprintf("action = $%d", len(args)))
	}
	if filter.EntityType != "" {
		args = append(args, filter.EntityType)
		conditions = append(conditions, fmt.Sprintf("entity_type = $%d", len(args)))
	}
	if filter.ActorID != "" {
		args = append(args, filter.ActorID)
		conditions = append(conditions, fmt.Sprintf("actor_id = $%d", len(args)))
	}

	clause := strings.Join(conditions, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT id, actor_type, actor_id, action, description, entity_type, entity_id, ip_address, user_agent, created_at
        FROM activity_logs WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`, clause, size, offset)

	var logs []models.ActivityLog
	if err := r.db.SelectContext(ctx, &logs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list activity logs: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(id) FROM activity_logs WHERE %s", clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count activity logs: %w", err)
	}
	return logs, total, nil
}
