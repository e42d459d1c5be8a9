package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/tvet-reg-api/internal/models"
	appErrors "github.com/noah-isme/tvet-reg-api/pkg/errors"
	"github.com/noah-isme/tvet-reg-api/pkg/export"
)

// exportPageSize matches the repository list cap so every batch request is
// honored as-is.
const exportPageSize = 100

// ExportFormat selects the rendered output type.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportResult carries the rendered bytes plus response metadata.
type ExportResult struct {
	Content     []byte
	ContentType string
	Filename    string
}

// ExportService renders application and student listings as CSV or PDF.
type ExportService struct {
	applications applicationStore
	students     studentStore
	csv          *export.CSVExporter
	pdf          *export.PDFExporter
	logger       *zap.Logger
}

func NewExportService(applications applicationStore, students studentStore, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		applications: applications,
		students:     students,
		csv:          export.NewCSVExporter(),
		pdf:          export.NewPDFExporter(),
		logger:       logger,
	}
}

// ExportApplications renders applications matching the filter. Pagination is
// walked internally so the export covers the full result set.
func (s *ExportService) ExportApplications(ctx context.Context, filter models.ApplicationFilter, format ExportFormat) (*ExportResult, error) {
	filter.Page = 1
	filter.PageSize = exportPageSize

	headers := []string{"ULI", "Student", "Email", "Course", "NC Level", "Adviser", "Status", "Applied At", "Reviewed At"}
	var rows []map[string]string
	for {
		batch, total, err := s.applications.List(ctx, filter)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to collect applications")
		}
		for _, app := range batch {
			rows = append(rows, map[string]string{
				"ULI":         app.StudentULI,
				"Student":     fmt.Sprintf("%s %s", app.StudentFirstName, app.StudentLastName),
				"Email":       app.StudentEmail,
				"Course":      app.CourseName,
				"NC Level":    derefOr(app.NCLevel, app.CourseNCLevel),
				"Adviser":     derefOr(app.AdviserName, ""),
				"Status":      string(app.Status),
				"Applied At":  app.AppliedAt.Format("2006-01-02 15:04"),
				"Reviewed At": formatTimePtr(app.ReviewedAt),
			})
		}
		if len(rows) >= total || len(batch) == 0 {
			break
		}
		filter.Page++
	}

	return s.render(export.Dataset{Headers: headers, Rows: rows}, format, "course-applications", "Course Applications")
}

// ExportStudents renders students matching the filter.
func (s *ExportService) ExportStudents(ctx context.Context, filter models.StudentFilter, format ExportFormat) (*ExportResult, error) {
	filter.Page = 1
	filter.PageSize = exportPageSize

	headers := []string{"ULI", "Name", "Email", "Phone", "Status", "Course", "NC Level", "Adviser", "Training Start", "Training End"}
	var rows []map[string]string
	for {
		batch, total, err := s.students.List(ctx, filter)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to collect students")
		}
		for _, student := range batch {
			rows = append(rows, map[string]string{
				"ULI":            student.ULI,
				"Name":           fmt.Sprintf("%s %s", student.FirstName, student.LastName),
				"Email":          student.Email,
				"Phone":          student.Phone,
				"Status":         string(student.Status),
				"Course":         derefOr(student.CourseName, ""),
				"NC Level":       derefOr(student.NCLevel, ""),
				"Adviser":        derefOr(student.AdviserName, ""),
				"Training Start": formatDatePtr(student.TrainingStart),
				"Training End":   formatDatePtr(student.TrainingEnd),
			})
		}
		if len(rows) >= total || len(batch) == 0 {
			break
		}
		filter.Page++
	}

	return s.render(export.Dataset{Headers: headers, Rows: rows}, format, "students", "Registered Students")
}

func (s *ExportService) render(data export.Dataset, format ExportFormat, slug, title string) (*ExportResult, error) {
	stamp := time.Now().UTC().Format("20060102-150405")
	switch format {
	case ExportFormatCSV:
		content, err := s.csv.Render(data)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportResult{
			Content:     content,
			ContentType: "text/csv",
			Filename:    fmt.Sprintf("%s-%s.csv", slug, stamp),
		}, nil
	case ExportFormatPDF:
		content, err := s.pdf.Render(data, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportResult{
			Content:     content,
			ContentType: "application/pdf",
			Filename:    fmt.Sprintf("%s-%s.pdf", slug, stamp),
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}

// ParseExportFormat normalises a format query parameter.
func ParseExportFormat(raw string) (ExportFormat, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "csv":
		return ExportFormatCSV, nil
	case "pdf":
		return ExportFormatPDF, nil
	default:
		return "", appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}

func derefOr(value *string, fallback string) string {
	if value != nil && *value != "" {
		return *value
	}
	return fallback
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02 15:04")
}

func formatDatePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
