package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tvet-reg-api/internal/models"
)

func newStudentMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var studentColumns = []string{
	"id", "uli", "first_name", "last_name", "email", "phone", "address", "photo_path",
	"status", "course_id", "nc_level", "adviser_id", "training_start", "training_end",
	"approved_by", "approved_at", "active", "created_at", "updated_at",
	"course_name", "adviser_name",
}

func TestStudentRepositoryListWithSearch(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(studentColumns).
		AddRow("student-1", "ULI-0001", "Juan", "Dela Cruz", "juan@example.com", "", "", nil,
			"PENDING", nil, nil, nil, nil, nil, nil, nil, true, now, now, nil, nil)

	mock.ExpectQuery("SELECT s.id, s.uli").
		WithArgs("%juan%").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(s.id)")).
		WithArgs("%juan%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	students, total, err := repo.List(context.Background(), models.StudentFilter{Search: "Juan", Page: 1, PageSize: 20})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, students, 1)
	assert.Equal(t, "ULI-0001", students[0].ULI)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryExistsByULI(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery("SELECT 1 FROM students WHERE uli").
		WithArgs("ULI-0001").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.ExistsByULI(context.Background(), "ULI-0001", "")
	require.NoError(t, err)
	assert.True(t, exists)

	mock.ExpectQuery("SELECT 1 FROM students WHERE uli").
		WithArgs("ULI-0002", "student-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	exists, err = repo.ExistsByULI(context.Background(), "ULI-0002", "student-1")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreateDefaults(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec("INSERT INTO students").
		WillReturnResult(sqlmock.NewResult(1, 1))

	student := &models.Student{
		ULI:       "ULI-0003",
		FirstName: "Maria",
		LastName:  "Santos",
		Email:     "maria@example.com",
		Active:    true,
	}
	err := repo.Create(context.Background(), student)
	require.NoError(t, err)
	assert.NotEmpty(t, student.ID)
	assert.Equal(t, models.StudentStatusPending, student.Status)
	assert.False(t, student.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryDeactivate(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec("UPDATE students SET active = false").
		WithArgs("student-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Deactivate(context.Background(), "student-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
