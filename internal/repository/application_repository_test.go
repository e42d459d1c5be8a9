package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tvet-reg-api/internal/models"
)

func newApplicationMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var lockColumns = []string{
	"id", "student_id", "course_id", "nc_level", "adviser_id", "training_start", "training_end",
	"status", "notes", "applied_at", "reviewed_by", "reviewed_at",
}

func pendingRow(appliedAt time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(lockColumns).
		AddRow("app-1", "student-1", "course-1", nil, nil, nil, nil,
			"PENDING", nil, appliedAt, nil, nil)
}

func TestApplicationRepositoryDecideApprove(t *testing.T) {
	db, mock, cleanup := newApplicationMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	appliedAt := time.Now().Add(-time.Hour)
	reviewedAt := time.Now().UTC()
	adviserID := "adviser-1"
	ncLevel := "NC II"
	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 12, 15, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs("app-1", models.ApplicationStatusPending).
		WillReturnRows(pendingRow(appliedAt))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM advisers WHERE id = $1 AND active LIMIT 1")).
		WithArgs(adviserID).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectExec("UPDATE course_applications SET status").
		WithArgs(models.ApplicationStatusApproved, ncLevel, adviserID, start, end, nil, "reviewer-1", reviewedAt, "app-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE students SET status").
		WithArgs(models.StudentStatusApproved, "course-1", ncLevel, adviserID, start, end, "reviewer-1", reviewedAt, reviewedAt, "student-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	decided, err := repo.Decide(context.Background(), ReviewParams{
		ApplicationID: "app-1",
		Approve:       true,
		NCLevel:       &ncLevel,
		AdviserID:     &adviserID,
		TrainingStart: &start,
		TrainingEnd:   &end,
		ReviewedBy:    "reviewer-1",
		ReviewedAt:    reviewedAt,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusApproved, decided.Status)
	assert.Equal(t, &adviserID, decided.AdviserID)
	assert.Equal(t, &ncLevel, decided.NCLevel)
	require.NotNil(t, decided.ReviewedAt)
	assert.Equal(t, reviewedAt, *decided.ReviewedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryDecideRejectTouchesApplicationOnly(t *testing.T) {
	db, mock, cleanup := newApplicationMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	reviewedAt := time.Now().UTC()
	notes := "incomplete requirements"

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs("app-1", models.ApplicationStatusPending).
		WillReturnRows(pendingRow(time.Now().Add(-time.Hour)))
	mock.ExpectExec("UPDATE course_applications SET status").
		WithArgs(models.ApplicationStatusRejected, notes, "reviewer-1", reviewedAt, "app-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	decided, err := repo.Decide(context.Background(), ReviewParams{
		ApplicationID: "app-1",
		Approve:       false,
		Notes:         &notes,
		ReviewedBy:    "reviewer-1",
		ReviewedAt:    reviewedAt,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusRejected, decided.Status)
	// no students UPDATE was expected, so any write to it would fail the mock
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryDecideAlreadyProcessed(t *testing.T) {
	db, mock, cleanup := newApplicationMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs("app-1", models.ApplicationStatusPending).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.Decide(context.Background(), ReviewParams{
		ApplicationID: "app-1",
		Approve:       true,
		ReviewedBy:    "reviewer-1",
		ReviewedAt:    time.Now().UTC(),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryDecideRollsBackWhenStudentMissing(t *testing.T) {
	db, mock, cleanup := newApplicationMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	reviewedAt := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs("app-1", models.ApplicationStatusPending).
		WillReturnRows(pendingRow(time.Now().Add(-time.Hour)))
	mock.ExpectExec("UPDATE course_applications SET status").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE students SET status").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := repo.Decide(context.Background(), ReviewParams{
		ApplicationID: "app-1",
		Approve:       true,
		ReviewedBy:    "reviewer-1",
		ReviewedAt:    reviewedAt,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "student-1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryList(t *testing.T) {
	db, mock, cleanup := newApplicationMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	now := time.Now()
	columns := append(append([]string{}, lockColumns...),
		"student_first_name", "student_last_name", "student_uli", "student_email",
		"course_name", "course_nc_level", "adviser_name")
	rows := sqlmock.NewRows(columns).
		AddRow("app-1", "student-1", "course-1", nil, nil, nil, nil,
			"PENDING", nil, now, nil, nil,
			"Juan", "Dela Cruz", "ULI-0001", "juan@example.com",
			"Welding", "NC II", nil)

	mock.ExpectQuery("SELECT ca.id, ca.student_id").
		WithArgs(models.ApplicationStatusPending, "%juan%").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(ca.id)")).
		WithArgs(models.ApplicationStatusPending, "%juan%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	applications, total, err := repo.List(context.Background(), models.ApplicationFilter{
		Status:   models.ApplicationStatusPending,
		Search:   "Juan",
		Page:     1,
		PageSize: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, applications, 1)
	assert.Equal(t, "ULI-0001", applications[0].StudentULI)
	assert.Equal(t, "Welding", applications[0].CourseName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryListTailAndOverflowPages(t *testing.T) {
	db, mock, cleanup := newApplicationMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	now := time.Now()
	columns := append(append([]string{}, lockColumns...),
		"student_first_name", "student_last_name", "student_uli", "student_email",
		"course_name", "course_nc_level", "adviser_name")

	// 21 rows at page size 10: page 3 holds the single remainder row.
	tail := sqlmock.NewRows(columns).
		AddRow("app-21", "student-21", "course-1", nil, nil, nil, nil,
			"PENDING", nil, now, nil, nil,
			"Maria", "Santos", "ULI-0021", "maria@example.com",
			"Welding", "NC II", nil)
	mock.ExpectQuery(regexp.QuoteMeta("LIMIT 10 OFFSET 20")).
		WillReturnRows(tail)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(ca.id)")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(21))

	applications, total, err := repo.List(context.Background(), models.ApplicationFilter{
		Page:     3,
		PageSize: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, 21, total)
	require.Len(t, applications, 1)
	assert.Equal(t, "ULI-0021", applications[0].StudentULI)

	// One page past the tail is empty but still reports the full count.
	mock.ExpectQuery(regexp.QuoteMeta("LIMIT 10 OFFSET 30")).
		WillReturnRows(sqlmock.NewRows(columns))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(ca.id)")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(21))

	applications, total, err = repo.List(context.Background(), models.ApplicationFilter{
		Page:     4,
		PageSize: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, 21, total)
	assert.Empty(t, applications)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryGetByIDNotFound(t *testing.T) {
	db, mock, cleanup := newApplicationMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	mock.ExpectQuery("SELECT ca.id, ca.student_id").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}
