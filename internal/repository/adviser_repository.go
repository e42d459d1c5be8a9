package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tvet-reg-api/internal/models"
)

// AdviserRepository manages persistence for advisers.
type AdviserRepository struct {
	db *sqlx.DB
}

// NewAdviserRepository constructs an AdviserRepository.
func NewAdviserRepository(db *sqlx.DB) *AdviserRepository {
	return &AdviserRepository{db: db}
}

// List returns advisers matching the filter plus the total count.
func (r *AdviserRepository) List(ctx context.Context, filter models.AdviserFilter) ([]models.Adviser, int, error) {
	conditions := []string{"1=1"}
	var args []interface{}

	if filter.Active != nil {
		args = append(args, *filter.Active)
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		idx := len(args)
		conditions = append(conditions, fmt.Sprintf("(LOWER(full_name) LIKE $%d OR LOWER(specialization) LIKE $%d)", idx, idx))
	}

	clause := strings.Join(conditions, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT id, full_name, email, phone, specialization, active, created_at, updated_at
        FROM advisers WHERE %s ORDER BY full_name ASC LIMIT %d OFFSET %d`, clause, size, offset)

	var advisers []models.Adviser
	if err := r.db.SelectContext(ctx, &advisers, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list advisers: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(id) FROM advisers WHERE %s", clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count advisers: %w", err)
	}
	return advisers, total, nil
}

// FindByID fetches an adviser by ID.
func (r *AdviserRepository) FindByID(ctx context.Context, id string) (*models.Adviser, error) {
	const query = `SELECT id, full_name, email, phone, specialization, active, created_at, updated_at
        FROM advisers WHERE id = $1`
	var adviser models.Adviser
	if err := r.db.GetContext(ctx, &adviser, query, id); err != nil {
		return nil, err
	}
	return &adviser, nil
}

// ExistsByEmail checks adviser email uniqueness optionally excluding an ID.
func (r *AdviserRepository) ExistsByEmail(ctx context.Context, email string, excludeID string) (bool, error) {
	query := "SELECT 1 FROM advisers WHERE LOWER(email) = LOWER($1)"
	args := []interface{}{email}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check adviser email: %w", err)
	}
	return true, nil
}

// Create inserts a new adviser.
func (r *AdviserRepository) Create(ctx context.Context, adviser *models.Adviser) error {
	if adviser.ID == "" {
		adviser.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if adviser.CreatedAt.IsZero() {
		adviser.CreatedAt = now
	}
	adviser.UpdatedAt = now
	const query = `INSERT INTO advisers (id, full_name, email, phone, specialization, active, created_at, updated_at)
        VALUES (:id, :full_name, :email, :phone, :specialization, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, adviser); err != nil {
		return fmt.Errorf("create adviser: %w", err)
	}
	return nil
}

// Update modifies an existing adviser.
func (r *AdviserRepository) Update(ctx context.Context, adviser *models.Adviser) error {
	adviser.UpdatedAt = time.Now().UTC()
	const query = `UPDATE advisers SET full_name = :full_name, email = :email, phone = :phone,
        specialization = :specialization, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, adviser); err != nil {
		return fmt.Errorf("update adviser: %w", err)
	}
	return nil
}

// Deactivate marks an adviser inactive; historical applications keep the
// adviser id and keep resolving the name by join.
func (r *AdviserRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE advisers SET active = false, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate adviser: %w", err)
	}
	return nil
}
