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

const applicationDetailColumns = `ca.id, ca.student_id, ca.course_id, ca.nc_level, ca.adviser_id,
       ca.training_start, ca.training_end, ca.status, ca.notes, ca.applied_at, ca.reviewed_by, ca.reviewed_at,
       s.first_name AS student_first_name, s.last_name AS student_last_name, s.uli AS student_uli, s.email AS student_email,
       c.name AS course_name, c.nc_level AS course_nc_level, a.full_name AS adviser_name`

const applicationDetailJoins = `FROM course_applications ca
JOIN students s ON s.id = ca.student_id
JOIN courses c ON c.id = ca.course_id
LEFT JOIN advisers a ON a.id = ca.adviser_id`

// ApplicationRepository persists course applications and executes the
// guarded review transition.
type ApplicationRepository struct {
	db *sqlx.DB
}

// NewApplicationRepository constructs the repository.
func NewApplicationRepository(db *sqlx.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

// Create inserts a new pending application row.
func (r *ApplicationRepository) Create(ctx context.Context, app *models.CourseApplication) error {
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	if app.Status == "" {
		app.Status = models.ApplicationStatusPending
	}
	if app.AppliedAt.IsZero() {
		app.AppliedAt = time.Now().UTC()
	}
	const query = `INSERT INTO course_applications
	(id, student_id, course_id, nc_level, adviser_id, training_start, training_end, status, notes, applied_at, reviewed_by, reviewed_at)
	VALUES (:id, :student_id, :course_id, :nc_level, :adviser_id, :training_start, :training_end, :status, :notes, :applied_at, :reviewed_by, :reviewed_at)`
	if _, err := r.db.NamedExecContext(ctx, query, app); err != nil {
		return fmt.Errorf("create application: %w", err)
	}
	return nil
}

// GetByID fetches an application with joined display fields.
func (r *ApplicationRepository) GetByID(ctx context.Context, id string) (*models.ApplicationDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE ca.id = $1", applicationDetailColumns, applicationDetailJoins)
	var detail models.ApplicationDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// List returns applications matching the filter, latest first, plus the total count.
func (r *ApplicationRepository) List(ctx context.Context, filter models.ApplicationFilter) ([]models.ApplicationDetail, int, error) {
	conditions := []string{"1=1"}
	var args []interface{}

	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("ca.status = $%d", len(args)))
	}
	if filter.CourseID != "" {
		args = append(args, filter.CourseID)
		conditions = append(conditions, fmt.Sprintf("ca.course_id = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		idx := len(args)
		conditions = append(conditions, fmt.Sprintf(
			"(LOWER(s.first_name) LIKE $%d OR LOWER(s.last_name) LIKE $%d OR LOWER(s.email) LIKE $%d OR LOWER(s.uli) LIKE $%d OR LOWER(c.name) LIKE $%d)",
			idx, idx, idx, idx, idx))
	}

	base := fmt.Sprintf("%s WHERE %s", applicationDetailJoins, strings.Join(conditions, " AND "))

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 10
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY ca.applied_at DESC LIMIT %d OFFSET %d",
		applicationDetailColumns, base, size, offset)

	var applications []models.ApplicationDetail
	if err := r.db.SelectContext(ctx, &applications, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list applications: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(ca.id) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count applications: %w", err)
	}
	return applications, total, nil
}

// ReviewParams groups the values applied by a review transition.
type ReviewParams struct {
	ApplicationID string
	Approve       bool
	NCLevel       *string
	AdviserID     *string
	TrainingStart *time.Time
	TrainingEnd   *time.Time
	Notes         *string
	ReviewedBy    string
	ReviewedAt    time.Time
}

// Decide executes the guarded PENDING -> APPROVED/REJECTED transition in a
// single transaction. The application row is locked with the status predicate
// so concurrent reviews cannot both commit; the loser observes sql.ErrNoRows.
// Approval copies the decided course assignment onto the student row; a
// rejection leaves the student untouched. Any failure rolls back both writes.
func (r *ApplicationRepository) Decide(ctx context.Context, params ReviewParams) (app *models.CourseApplication, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin review transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var current models.CourseApplication
	const lockQuery = `SELECT id, student_id, course_id, nc_level, adviser_id, training_start, training_end,
       status, notes, applied_at, reviewed_by, reviewed_at
	FROM course_applications WHERE id = $1 AND status = $2 FOR UPDATE`
	if err = tx.GetContext(ctx, &current, lockQuery, params.ApplicationID, models.ApplicationStatusPending); err != nil {
		return nil, err
	}

	decided := current
	decided.Notes = params.Notes
	decided.ReviewedBy = &params.ReviewedBy
	reviewedAt := params.ReviewedAt
	decided.ReviewedAt = &reviewedAt

	if !params.Approve {
		decided.Status = models.ApplicationStatusRejected
		const rejectQuery = `UPDATE course_applications SET status = $1, notes = $2, reviewed_by = $3, reviewed_at = $4 WHERE id = $5`
		if _, err = tx.ExecContext(ctx, rejectQuery,
			decided.Status, decided.Notes, params.ReviewedBy, reviewedAt, current.ID); err != nil {
			return nil, fmt.Errorf("reject application: %w", err)
		}
		if err = tx.Commit(); err != nil {
			return nil, fmt.Errorf("commit rejection: %w", err)
		}
		return &decided, nil
	}

	if params.AdviserID != nil {
		var exists int
		const adviserQuery = `SELECT 1 FROM advisers WHERE id = $1 AND active LIMIT 1`
		if err = tx.GetContext(ctx, &exists, adviserQuery, *params.AdviserID); err != nil {
			if err == sql.ErrNoRows {
				err = fmt.Errorf("adviser %s not found or inactive", *params.AdviserID)
			}
			return nil, err
		}
	}

	decided.Status = models.ApplicationStatusApproved
	decided.AdviserID = params.AdviserID
	decided.TrainingStart = params.TrainingStart
	decided.TrainingEnd = params.TrainingEnd
	if params.NCLevel != nil {
		decided.NCLevel = params.NCLevel
	}

	const approveQuery = `UPDATE course_applications SET status = $1, nc_level = $2, adviser_id = $3,
       training_start = $4, training_end = $5, notes = $6, reviewed_by = $7, reviewed_at = $8 WHERE id = $9`
	if _, err = tx.ExecContext(ctx, approveQuery,
		decided.Status, decided.NCLevel, decided.AdviserID, decided.TrainingStart, decided.TrainingEnd,
		decided.Notes, params.ReviewedBy, reviewedAt, current.ID); err != nil {
		return nil, fmt.Errorf("approve application: %w", err)
	}

	// The student row receives the exact values written to the application.
	const studentQuery = `UPDATE students SET status = $1, course_id = $2, nc_level = $3, adviser_id = $4,
       training_start = $5, training_end = $6, approved_by = $7, approved_at = $8, updated_at = $9 WHERE id = $10`
	var result sql.Result
	if result, err = tx.ExecContext(ctx, studentQuery,
		models.StudentStatusApproved, decided.CourseID, decided.NCLevel, decided.AdviserID,
		decided.TrainingStart, decided.TrainingEnd, params.ReviewedBy, reviewedAt, reviewedAt, current.StudentID); err != nil {
		return nil, fmt.Errorf("apply approval to student: %w", err)
	}
	var rows int64
	if rows, err = result.RowsAffected(); err != nil {
		return nil, fmt.Errorf("check student update rows: %w", err)
	}
	if rows == 0 {
		err = fmt.Errorf("student %s missing for application %s", current.StudentID, current.ID)
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit approval: %w", err)
	}
	return &decided, nil
}
