package staff

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

	"github.com/ta3leemy/backend/internal/auth"
	"github.com/ta3leemy/backend/internal/middleware"
	"github.com/ta3leemy/backend/internal/models"
	"github.com/ta3leemy/backend/internal/plans"
)

type fakeStaffStore struct {
	count   int
	created []*models.StaffMember
}

func (f *fakeStaffStore) Count(ctx context.Context, ownerID uuid.UUID) (int, error) {
	return f.count, nil
}

func (f *fakeStaffStore) Create(ctx context.Context, m *models.StaffMember) (*models.StaffMember, error) {
	m.ID = uuid.New()
	m.Status = "active"
	f.created = append(f.created, m)
	return m, nil
}

func (f *fakeStaffStore) List(ctx context.Context, ownerID uuid.UUID) ([]models.StaffMember, error) {
	return nil, nil
}

func (f *fakeStaffStore) UpdatePermissions(ctx context.Context, ownerID, staffID uuid.UUID, perms models.StaffPermissions) error {
	return nil
}

func (f *fakeStaffStore) SetStatus(ctx context.Context, ownerID, staffID uuid.UUID, status string) error {
	return nil
}

type fakeAccounts struct {
	lookupErr error
	existing  *models.User
	created   []*models.User
}

func (f *fakeAccounts) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if f.existing != nil {
		return f.existing, nil
	}
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeAccounts) Create(ctx context.Context, email, passwordHash, fullName string, role models.Role, profile *auth.CreateUserParams) (*models.User, error) {
	u := &models.User{ID: uuid.New(), Email: email, FullName: fullName, Role: role}
	f.created = append(f.created, u)
	return u, nil
}

type fakeStaffCapacity struct {
	err error
}

func (f *fakeStaffCapacity) CheckStaffCapacity(ctx context.Context, teacherID uuid.UUID, current int) error {
	return f.err
}

func inviteRequest(t *testing.T, h *Handler, ownerID uuid.UUID, body any) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserID, ownerID)
		c.Set(middleware.ContextUserRole, "teacher")
	})
	r.POST("/staff", h.Invite)

	raw, err := json.Marshal(body)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/staff", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestInviteProvisionsStaffAccount(t *testing.T) {
	ownerID := uuid.New()
	store := &fakeStaffStore{}
	accounts := &fakeAccounts{}
	h := NewHandler(store, accounts, &fakeStaffCapacity{}, zap.NewNop())

	w := inviteRequest(t, h, ownerID, InviteRequest{
		Email:       "assistant@example.com",
		Password:    "secret1",
		FullName:    "Assistant",
		Permissions: models.StaffPermissions{ManageCodes: true},
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, accounts.created, 1)
	assert.Equal(t, models.RoleStaff, accounts.created[0].Role)
	require.Len(t, store.created, 1)
	assert.Equal(t, ownerID, store.created[0].OwnerID)
	assert.Equal(t, accounts.created[0].ID, store.created[0].UserID)
	assert.True(t, store.created[0].Permissions.ManageCodes)
}

func TestInviteRejectsDuplicateEmail(t *testing.T) {
	accounts := &fakeAccounts{existing: &models.User{ID: uuid.New(), Email: "taken@example.com"}}
	store := &fakeStaffStore{}
	h := NewHandler(store, accounts, &fakeStaffCapacity{}, zap.NewNop())

	w := inviteRequest(t, h, uuid.New(), InviteRequest{
		Email: "taken@example.com", Password: "secret1", FullName: "Assistant",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, accounts.created)
	assert.Empty(t, store.created)
}

func TestInviteLookupFailureIsNotDuplicate(t *testing.T) {
	accounts := &fakeAccounts{lookupErr: errors.New("connection refused")}
	store := &fakeStaffStore{}
	h := NewHandler(store, accounts, &fakeStaffCapacity{}, zap.NewNop())

	w := inviteRequest(t, h, uuid.New(), InviteRequest{
		Email: "new@example.com", Password: "secret1", FullName: "Assistant",
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Empty(t, accounts.created)
	assert.Empty(t, store.created)
}

func TestInviteBlockedBySeatCeiling(t *testing.T) {
	accounts := &fakeAccounts{}
	store := &fakeStaffStore{count: 1}
	h := NewHandler(store, accounts, &fakeStaffCapacity{err: plans.ErrLimitExceeded}, zap.NewNop())

	w := inviteRequest(t, h, uuid.New(), InviteRequest{
		Email: "new@example.com", Password: "secret1", FullName: "Assistant",
	})

	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Empty(t, accounts.created)
	assert.Empty(t, store.created)
}
