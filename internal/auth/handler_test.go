package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ta3leemy/backend/internal/models"
)

type fakeUserStore struct {
	byEmail   map[string]*models.User
	lookupErr error
	created   []*models.User
}

func (f *fakeUserStore) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return nil, pgx.ErrNoRows
}

func (f *fakeUserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	if u, ok := f.byEmail[email]; ok {
		return u, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUserStore) Create(ctx context.Context, email, passwordHash, fullName string, role models.Role, profile *CreateUserParams) (*models.User, error) {
	u := &models.User{ID: uuid.New(), Email: email, Password: passwordHash, FullName: fullName, Role: role}
	f.created = append(f.created, u)
	return u, nil
}

func (f *fakeUserStore) CreateTeacherProfile(ctx context.Context, userID uuid.UUID, platformName, slug string) error {
	return nil
}

type fakeRoster struct{}

func (fakeRoster) Count(ctx context.Context, teacherID uuid.UUID) (int, error) { return 0, nil }

func (fakeRoster) Link(ctx context.Context, teacherID, studentID uuid.UUID) error { return nil }

type fakeCapacity struct{}

func (fakeCapacity) CheckStudentCapacity(ctx context.Context, teacherID uuid.UUID, current int) error {
	return nil
}

func postRegister(t *testing.T, h *Handler, body RegisterRequest) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/auth/register", h.Register)

	raw, err := json.Marshal(body)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func newRegisterHandler(store *fakeUserStore) *Handler {
	return NewHandler(store, fakeRoster{}, fakeCapacity{}, NewJWTService("test-secret", 1), zap.NewNop())
}

func TestRegisterCreatesStudent(t *testing.T) {
	store := &fakeUserStore{}
	h := newRegisterHandler(store)

	w := postRegister(t, h, RegisterRequest{
		Email: "new@example.com", Password: "secret1", FullName: "New Student",
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, store.created, 1)
	assert.Equal(t, models.RoleStudent, store.created[0].Role)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	store := &fakeUserStore{byEmail: map[string]*models.User{
		"taken@example.com": {ID: uuid.New(), Email: "taken@example.com"},
	}}
	h := newRegisterHandler(store)

	w := postRegister(t, h, RegisterRequest{
		Email: "taken@example.com", Password: "secret1", FullName: "Someone",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, store.created)
}

func TestRegisterLookupFailureDoesNotInsert(t *testing.T) {
	store := &fakeUserStore{lookupErr: errors.New("connection refused")}
	h := newRegisterHandler(store)

	w := postRegister(t, h, RegisterRequest{
		Email: "new@example.com", Password: "secret1", FullName: "Someone",
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Empty(t, store.created, "a transient lookup failure must not reach the insert")
}

func TestRegisterRejectsStaffSelfRegistration(t *testing.T) {
	store := &fakeUserStore{}
	h := newRegisterHandler(store)

	w := postRegister(t, h, RegisterRequest{
		Email: "staff@example.com", Password: "secret1", FullName: "Someone", Role: "staff",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, store.created)
}
