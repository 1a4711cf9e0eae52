package content

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ta3leemy/backend/internal/middleware"
	"github.com/ta3leemy/backend/internal/models"
)

type fakeCatalog struct {
	programs     map[uuid.UUID]*models.Program
	lectures     map[uuid.UUID]*models.Lecture
	materialSets int
}

func (f *fakeCatalog) CreateProgram(ctx context.Context, p *models.Program) (*models.Program, error) {
	return p, nil
}

func (f *fakeCatalog) GetProgram(ctx context.Context, id uuid.UUID) (*models.Program, error) {
	return f.programs[id], nil
}

func (f *fakeCatalog) ListProgramsByTeacher(ctx context.Context, teacherID uuid.UUID) ([]models.Program, error) {
	return nil, nil
}

func (f *fakeCatalog) UpdateProgram(ctx context.Context, teacherID uuid.UUID, p *models.Program) error {
	return nil
}

func (f *fakeCatalog) CreateUnit(ctx context.Context, u *models.Unit) (*models.Unit, error) {
	return u, nil
}

func (f *fakeCatalog) ListUnits(ctx context.Context, programID uuid.UUID) ([]models.Unit, error) {
	return nil, nil
}

func (f *fakeCatalog) CreateLecture(ctx context.Context, l *models.Lecture) (*models.Lecture, error) {
	return l, nil
}

func (f *fakeCatalog) GetLecture(ctx context.Context, id uuid.UUID) (*models.Lecture, error) {
	return f.lectures[id], nil
}

func (f *fakeCatalog) ListLectures(ctx context.Context, unitID uuid.UUID) ([]models.Lecture, error) {
	return nil, nil
}

func (f *fakeCatalog) SetLectureMaterial(ctx context.Context, lectureID uuid.UUID, key string) error {
	f.materialSets++
	return nil
}

type fakeEntitlements struct{}

func (fakeEntitlements) Get(ctx context.Context, studentID, programID uuid.UUID) (*models.Enrollment, error) {
	return nil, nil
}

func postUploadURL(t *testing.T, h *Handler, teacherID uuid.UUID, req UploadURLRequest) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserID, teacherID)
		c.Set(middleware.ContextUserRole, "teacher")
	})
	r.POST("/lectures/material-upload-url", h.MaterialUploadURL)

	raw, err := json.Marshal(req)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	httpReq := httptest.NewRequest(http.MethodPost, "/lectures/material-upload-url", bytes.NewReader(raw))
	httpReq.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, httpReq)
	return w
}

func TestMaterialUploadURLRejectsForeignLecture(t *testing.T) {
	owner := uuid.New()
	intruder := uuid.New()
	program := &models.Program{ID: uuid.New(), TeacherID: owner}
	lecture := &models.Lecture{ID: uuid.New(), ProgramID: program.ID}
	repo := &fakeCatalog{
		programs: map[uuid.UUID]*models.Program{program.ID: program},
		lectures: map[uuid.UUID]*models.Lecture{lecture.ID: lecture},
	}
	h := NewHandler(repo, fakeEntitlements{}, nil, zap.NewNop())

	w := postUploadURL(t, h, intruder, UploadURLRequest{LectureID: lecture.ID, Filename: "notes.pdf"})

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Zero(t, repo.materialSets, "material key must not be overwritten")
}

func TestMaterialUploadURLUnknownLecture(t *testing.T) {
	repo := &fakeCatalog{lectures: map[uuid.UUID]*models.Lecture{}}
	h := NewHandler(repo, fakeEntitlements{}, nil, zap.NewNop())

	w := postUploadURL(t, h, uuid.New(), UploadURLRequest{LectureID: uuid.New(), Filename: "notes.pdf"})

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Zero(t, repo.materialSets)
}

func TestMaterialUploadURLWithoutStorage(t *testing.T) {
	owner := uuid.New()
	program := &models.Program{ID: uuid.New(), TeacherID: owner}
	lecture := &models.Lecture{ID: uuid.New(), ProgramID: program.ID}
	repo := &fakeCatalog{
		programs: map[uuid.UUID]*models.Program{program.ID: program},
		lectures: map[uuid.UUID]*models.Lecture{lecture.ID: lecture},
	}
	h := NewHandler(repo, fakeEntitlements{}, nil, zap.NewNop())

	w := postUploadURL(t, h, owner, UploadURLRequest{LectureID: lecture.ID, Filename: "notes.pdf"})

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Zero(t, repo.materialSets)
}

func TestMaterialDownloadURLWithoutStorage(t *testing.T) {
	lecture := &models.Lecture{ID: uuid.New(), ProgramID: uuid.New(), MaterialKey: "materials/x/notes.pdf"}
	repo := &fakeCatalog{lectures: map[uuid.UUID]*models.Lecture{lecture.ID: lecture}}
	h := NewHandler(repo, fakeEntitlements{}, nil, zap.NewNop())

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserID, uuid.New())
		c.Set(middleware.ContextUserRole, "teacher")
	})
	r.GET("/lectures/:lectureId/material", h.MaterialDownloadURL)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/lectures/"+lecture.ID.String()+"/material", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
