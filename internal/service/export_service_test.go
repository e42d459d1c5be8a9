package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tvet-reg-api/internal/models"
	appErrors "github.com/noah-isme/tvet-reg-api/pkg/errors"
)

func TestExportServiceApplicationsCSV(t *testing.T) {
	store := newApplicationStoreStub()
	detail := pendingApplication("app-1")
	detail.StudentEmail = "juan@example.com"
	store.applications["app-1"] = detail
	svc := NewExportService(store, newStudentStoreStub(), nil)

	result, err := svc.ExportApplications(context.Background(), models.ApplicationFilter{}, ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", result.ContentType)
	assert.True(t, strings.HasSuffix(result.Filename, ".csv"))

	content := string(result.Content)
	assert.Contains(t, content, "ULI,Student,Email,Course")
	assert.Contains(t, content, "ULI-0001")
	assert.Contains(t, content, "Juan Dela Cruz")
	assert.Contains(t, content, "Welding")
}

func TestExportServiceStudentsPDF(t *testing.T) {
	students := newStudentStoreStub()
	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	courseName := "Welding"
	students.students["student-1"] = &models.StudentDetail{
		Student: models.Student{
			ID:            "student-1",
			ULI:           "ULI-0001",
			FirstName:     "Juan",
			LastName:      "Dela Cruz",
			Email:         "juan@example.com",
			Status:        models.StudentStatusApproved,
			TrainingStart: &start,
		},
		CourseName: &courseName,
	}
	svc := NewExportService(newApplicationStoreStub(), students, nil)

	result, err := svc.ExportStudents(context.Background(), models.StudentFilter{}, ExportFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.True(t, strings.HasSuffix(result.Filename, ".pdf"))
	assert.True(t, bytes.HasPrefix(result.Content, []byte("%PDF")))
}

type pagedApplicationStub struct {
	applicationStoreStub
	details       []models.ApplicationDetail
	requestedSize []int
}

func (s *pagedApplicationStub) List(ctx context.Context, filter models.ApplicationFilter) ([]models.ApplicationDetail, int, error) {
	s.requestedSize = append(s.requestedSize, filter.PageSize)
	start := (filter.Page - 1) * filter.PageSize
	if start >= len(s.details) {
		return nil, len(s.details), nil
	}
	end := start + filter.PageSize
	if end > len(s.details) {
		end = len(s.details)
	}
	return s.details[start:end], len(s.details), nil
}

func TestExportServiceApplicationsWalksAllPages(t *testing.T) {
	store := &pagedApplicationStub{}
	for i := 0; i < 250; i++ {
		detail := pendingApplication(fmt.Sprintf("app-%d", i))
		detail.StudentULI = fmt.Sprintf("ULI-%04d", i)
		store.details = append(store.details, *detail)
	}
	svc := NewExportService(store, newStudentStoreStub(), nil)

	result, err := svc.ExportApplications(context.Background(), models.ApplicationFilter{}, ExportFormatCSV)
	require.NoError(t, err)

	// Batches stay within the repository list cap and cover every row.
	require.Equal(t, []int{100, 100, 100}, store.requestedSize)
	lines := strings.Split(strings.TrimRight(string(result.Content), "\n"), "\n")
	assert.Len(t, lines, 251)
	assert.Contains(t, string(result.Content), "ULI-0249")
}

func TestExportServiceUnsupportedFormat(t *testing.T) {
	svc := NewExportService(newApplicationStoreStub(), newStudentStoreStub(), nil)

	_, err := svc.ExportApplications(context.Background(), models.ApplicationFilter{}, ExportFormat("xlsx"))
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestParseExportFormat(t *testing.T) {
	format, err := ParseExportFormat("")
	require.NoError(t, err)
	assert.Equal(t, ExportFormatCSV, format)

	format, err = ParseExportFormat("PDF")
	require.NoError(t, err)
	assert.Equal(t, ExportFormatPDF, format)

	_, err = ParseExportFormat("xlsx")
	require.Error(t, err)
}
