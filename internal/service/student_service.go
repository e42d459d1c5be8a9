package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/tvet-reg-api/internal/models"
	appErrors "github.com/noah-isme/tvet-reg-api/pkg/errors"
	"github.com/noah-isme/tvet-reg-api/pkg/storage"
)

type studentStore interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
	ExistsByULI(ctx context.Context, uli string, excludeID string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	SetPhotoPath(ctx context.Context, id, path string) error
	Deactivate(ctx context.Context, id string) error
}

// CreateStudentRequest holds the payload for registering a new student.
type CreateStudentRequest struct {
	ULI       string `json:"uli" validate:"required"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
}

// UpdateStudentRequest holds the editable identity fields of a student.
type UpdateStudentRequest struct {
	ULI       string `json:"uli" validate:"required"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	Active    *bool  `json:"active"`
}

// StudentService manages student records and profile photos.
type StudentService struct {
	repo      studentStore
	storage   *storage.LocalStorage
	signer    *storage.SignedURLSigner
	activity  activityRecorder
	validator *validator.Validate
	logger    *zap.Logger

	maxPhotoBytes int64
	allowedMIMEs  map[string]string
}

// NewStudentService constructs the student service. allowedMIMEs maps MIME
// types to file extensions used when storing uploads.
func NewStudentService(repo studentStore, store *storage.LocalStorage, signer *storage.SignedURLSigner, activity activityRecorder, validate *validator.Validate, logger *zap.Logger, maxPhotoBytes int64, allowedMIMEs []string) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxPhotoBytes <= 0 {
		maxPhotoBytes = 5 << 20
	}
	mimes := make(map[string]string)
	for _, m := range allowedMIMEs {
		switch strings.TrimSpace(strings.ToLower(m)) {
		case "image/jpeg":
			mimes["image/jpeg"] = ".jpg"
		case "image/png":
			mimes["image/png"] = ".png"
		case "image/webp":
			mimes["image/webp"] = ".webp"
		}
	}
	if len(mimes) == 0 {
		mimes["image/jpeg"] = ".jpg"
		mimes["image/png"] = ".png"
	}
	return &StudentService{
		repo:          repo,
		storage:       store,
		signer:        signer,
		activity:      activity,
		validator:     validate,
		logger:        logger,
		maxPhotoBytes: maxPhotoBytes,
		allowedMIMEs:  mimes,
	}
}

// List returns students and pagination metadata for the filter.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return students, pagination, nil
}

// Get returns a student detail by ID.
func (s *StudentService) Get(ctx context.Context, id string) (*models.StudentDetail, error) {
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return detail, nil
}

// Create registers a new student. The ULI must be unique.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest, actor *models.JWTClaims) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	uli := strings.ToUpper(strings.TrimSpace(req.ULI))
	exists, err := s.repo.ExistsByULI(ctx, uli, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check ULI")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a student with this ULI already exists")
	}
	student := &models.Student{
		ULI:       uli,
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:     strings.TrimSpace(req.Phone),
		Address:   strings.TrimSpace(req.Address),
		Status:    models.StudentStatusPending,
		Active:    true,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	s.recordActivity(ctx, actor, models.ActivityActionStudentCreate, student.ID,
		fmt.Sprintf("student %s %s (%s) registered", student.FirstName, student.LastName, student.ULI))
	return student, nil
}

// Update modifies a student's identity fields.
func (s *StudentService) Update(ctx context.Context, id string, req UpdateStudentRequest, actor *models.JWTClaims) (*models.StudentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	uli := strings.ToUpper(strings.TrimSpace(req.ULI))
	if uli != current.ULI {
		exists, err := s.repo.ExistsByULI(ctx, uli, id)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check ULI")
		}
		if exists {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a student with this ULI already exists")
		}
	}
	updated := current.Student
	updated.ULI = uli
	updated.FirstName = strings.TrimSpace(req.FirstName)
	updated.LastName = strings.TrimSpace(req.LastName)
	updated.Email = strings.ToLower(strings.TrimSpace(req.Email))
	updated.Phone = strings.TrimSpace(req.Phone)
	updated.Address = strings.TrimSpace(req.Address)
	if req.Active != nil {
		updated.Active = *req.Active
	}
	if err := s.repo.Update(ctx, &updated); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	s.recordActivity(ctx, actor, models.ActivityActionStudentUpdate, id,
		fmt.Sprintf("student %s %s (%s) updated", updated.FirstName, updated.LastName, updated.ULI))
	return s.Get(ctx, id)
}

// Deactivate soft-deletes a student record.
func (s *StudentService) Deactivate(ctx context.Context, id string, actor *models.JWTClaims) error {
	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate student")
	}
	s.recordActivity(ctx, actor, models.ActivityActionStudentDeactivate, id,
		fmt.Sprintf("student %s deactivated", current.ULI))
	return nil
}

// UploadPhoto stores a profile photo for the student and records its path.
func (s *StudentService) UploadPhoto(ctx context.Context, id string, header *multipart.FileHeader, actor *models.JWTClaims) (string, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if header.Size > s.maxPhotoBytes {
		return "", appErrors.ErrFileTooLarge
	}
	contentType := strings.ToLower(strings.TrimSpace(header.Header.Get("Content-Type")))
	ext, ok := s.allowedMIMEs[contentType]
	if !ok {
		return "", appErrors.ErrUnsupportedMedia
	}

	file, err := header.Open()
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload")
	}
	defer file.Close() //nolint:errcheck

	relPath := filepath.Join("students", id, fmt.Sprintf("photo-%s%s", uuid.NewString(), ext))
	if _, err := s.storage.SaveStream(relPath, io.LimitReader(file, s.maxPhotoBytes)); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store photo")
	}
	if err := s.repo.SetPhotoPath(ctx, id, relPath); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record photo path")
	}
	if current.PhotoPath != nil && *current.PhotoPath != relPath {
		if err := s.storage.Delete(*current.PhotoPath); err != nil {
			s.logger.Warn("failed to remove previous photo", zap.String("path", *current.PhotoPath), zap.Error(err))
		}
	}
	s.recordActivity(ctx, actor, models.ActivityActionStudentPhotoUpload, id,
		fmt.Sprintf("photo uploaded for student %s", current.ULI))
	return relPath, nil
}

// PhotoDownloadURL issues a signed token for downloading the student's photo.
func (s *StudentService) PhotoDownloadURL(ctx context.Context, id string) (string, time.Time, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return "", time.Time{}, err
	}
	if current.PhotoPath == nil || *current.PhotoPath == "" {
		return "", time.Time{}, appErrors.Clone(appErrors.ErrNotFound, "student has no photo")
	}
	token, expiresAt, err := s.signer.Generate(id, *current.PhotoPath)
	if err != nil {
		return "", time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download")
	}
	return token, expiresAt, nil
}

// OpenPhotoByToken validates a signed token and opens the referenced photo.
func (s *StudentService) OpenPhotoByToken(token string) (io.ReadCloser, string, error) {
	ownerID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download token")
	}
	if !strings.HasPrefix(relPath, filepath.Join("students", ownerID)+"/") {
		return nil, "", appErrors.Clone(appErrors.ErrUnauthorized, "token does not match file owner")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "photo not found")
	}
	return file, filepath.Base(relPath), nil
}

func (s *StudentService) recordActivity(ctx context.Context, actor *models.JWTClaims, action, entityID, description string) {
	if s.activity == nil {
		return
	}
	log := &models.ActivityLog{
		ActorType:   "ADMIN",
		Action:      action,
		Description: description,
		EntityType:  "student",
		EntityID:    &entityID,
	}
	if actor != nil {
		actorID := actor.UserID
		log.ActorID = &actorID
	}
	if err := s.activity.Record(ctx, log); err != nil {
		s.logger.Warn("failed to record activity", zap.String("action", action), zap.Error(err))
	}
}
