package service

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tvet-reg-api/internal/models"
	appErrors "github.com/noah-isme/tvet-reg-api/pkg/errors"
	"github.com/noah-isme/tvet-reg-api/pkg/storage"
)

type studentStoreStub struct {
	students   map[string]*models.StudentDetail
	photoPaths map[string]string
}

func newStudentStoreStub() *studentStoreStub {
	return &studentStoreStub{
		students:   make(map[string]*models.StudentDetail),
		photoPaths: make(map[string]string),
	}
}

func (s *studentStoreStub) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	result := make([]models.StudentDetail, 0, len(s.students))
	for _, student := range s.students {
		result = append(result, *student)
	}
	return result, len(result), nil
}

func (s *studentStoreStub) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	if student, ok := s.students[id]; ok {
		copy := *student
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *studentStoreStub) ExistsByULI(ctx context.Context, uli string, excludeID string) (bool, error) {
	for id, student := range s.students {
		if student.ULI == uli && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (s *studentStoreStub) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = "student-generated"
	}
	if student.Status == "" {
		student.Status = models.StudentStatusPending
	}
	s.students[student.ID] = &models.StudentDetail{Student: *student}
	return nil
}

func (s *studentStoreStub) Update(ctx context.Context, student *models.Student) error {
	if existing, ok := s.students[student.ID]; ok {
		existing.Student = *student
	}
	return nil
}

func (s *studentStoreStub) SetPhotoPath(ctx context.Context, id, path string) error {
	s.photoPaths[id] = path
	if student, ok := s.students[id]; ok {
		student.PhotoPath = &path
	}
	return nil
}

func (s *studentStoreStub) Deactivate(ctx context.Context, id string) error {
	if student, ok := s.students[id]; ok {
		student.Active = false
	}
	return nil
}

func newStudentServiceForTest(t *testing.T, store *studentStoreStub) *StudentService {
	t.Helper()
	local, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Minute)
	return NewStudentService(store, local, signer, &activityStub{}, nil, nil, 1<<20, []string{"image/jpeg", "image/png"})
}

func multipartPhoto(t *testing.T, filename, contentType string, data []byte) *multipart.FileHeader {
	t.Helper()
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="photo"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	reader := multipart.NewReader(buf, writer.Boundary())
	form, err := reader.ReadForm(32 << 20)
	require.NoError(t, err)
	files := form.File["photo"]
	require.Len(t, files, 1)
	return files[0]
}

func TestStudentServiceCreateRejectsDuplicateULI(t *testing.T) {
	store := newStudentStoreStub()
	store.students["student-1"] = &models.StudentDetail{Student: models.Student{ID: "student-1", ULI: "ULI-0001"}}
	svc := newStudentServiceForTest(t, store)

	_, err := svc.Create(context.Background(), CreateStudentRequest{
		ULI:       "uli-0001",
		FirstName: "Juan",
		LastName:  "Dela Cruz",
		Email:     "juan@example.com",
	}, reviewer())
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestStudentServiceCreateNormalises(t *testing.T) {
	store := newStudentStoreStub()
	svc := newStudentServiceForTest(t, store)

	student, err := svc.Create(context.Background(), CreateStudentRequest{
		ULI:       " uli-0002 ",
		FirstName: "Maria",
		LastName:  "Santos",
		Email:     "Maria@Example.com",
	}, reviewer())
	require.NoError(t, err)
	assert.Equal(t, "ULI-0002", student.ULI)
	assert.Equal(t, "maria@example.com", student.Email)
	assert.Equal(t, models.StudentStatusPending, student.Status)
	assert.True(t, student.Active)
}

func TestStudentServiceUploadPhotoAndSignedDownload(t *testing.T) {
	store := newStudentStoreStub()
	store.students["student-1"] = &models.StudentDetail{Student: models.Student{ID: "student-1", ULI: "ULI-0001"}}
	svc := newStudentServiceForTest(t, store)

	payload := []byte("fake-jpeg-bytes")
	header := multipartPhoto(t, "photo.jpg", "image/jpeg", payload)

	path, err := svc.UploadPhoto(context.Background(), "student-1", header, reviewer())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(path, "students/student-1/"))
	assert.Equal(t, path, store.photoPaths["student-1"])

	token, expiresAt, err := svc.PhotoDownloadURL(context.Background(), "student-1")
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	file, name, err := svc.OpenPhotoByToken(token)
	require.NoError(t, err)
	defer file.Close() //nolint:errcheck
	assert.True(t, strings.HasSuffix(name, ".jpg"))
	content, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Equal(t, payload, content)
}

func TestStudentServiceUploadPhotoRejectsUnsupportedType(t *testing.T) {
	store := newStudentStoreStub()
	store.students["student-1"] = &models.StudentDetail{Student: models.Student{ID: "student-1"}}
	svc := newStudentServiceForTest(t, store)

	header := multipartPhoto(t, "malware.exe", "application/octet-stream", []byte("nope"))
	_, err := svc.UploadPhoto(context.Background(), "student-1", header, reviewer())
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrUnsupportedMedia.Code, appErr.Code)
}

func TestStudentServicePhotoURLWithoutPhoto(t *testing.T) {
	store := newStudentStoreStub()
	store.students["student-1"] = &models.StudentDetail{Student: models.Student{ID: "student-1"}}
	svc := newStudentServiceForTest(t, store)

	_, _, err := svc.PhotoDownloadURL(context.Background(), "student-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestStudentServiceOpenPhotoRejectsForgedToken(t *testing.T) {
	svc := newStudentServiceForTest(t, newStudentStoreStub())

	_, _, err := svc.OpenPhotoByToken("owner.12345.cGF0aA.deadbeef")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}

func TestStudentServiceOpenPhotoRejectsSiblingDirectory(t *testing.T) {
	svc := newStudentServiceForTest(t, newStudentStoreStub())

	// "students/student-10" shares a string prefix with owner "student-1" but
	// belongs to a different student.
	token, _, err := svc.signer.Generate("student-1", "students/student-10/photo.jpg")
	require.NoError(t, err)

	_, _, err = svc.OpenPhotoByToken(token)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}
