package staff

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/ta3leemy/backend/internal/middleware"
	"github.com/ta3leemy/backend/internal/models"
)

type fakeLookup struct {
	member *models.StaffMember
	err    error
}

func (f *fakeLookup) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.StaffMember, error) {
	return f.member, f.err
}

func resolverRouter(t *testing.T, lookup ownerLookup, userID uuid.UUID, role string, extra ...gin.HandlerFunc) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserID, userID)
		c.Set(middleware.ContextUserRole, role)
	})
	r.Use(ActAsOwner(lookup, zap.NewNop()))
	handlers := append(extra, func(c *gin.Context) {
		owner, _ := middleware.OwnerID(c)
		c.JSON(http.StatusOK, gin.H{"owner": owner.String()})
	})
	r.GET("/owner", handlers...)
	return r
}

func get(r *gin.Engine) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/owner", nil))
	return w
}

func TestActAsOwnerResolvesEmployingTeacher(t *testing.T) {
	ownerID := uuid.New()
	staffUser := uuid.New()
	lookup := &fakeLookup{member: &models.StaffMember{
		OwnerID: ownerID,
		UserID:  staffUser,
		Status:  "active",
	}}

	w := get(resolverRouter(t, lookup, staffUser, "staff"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), ownerID.String())
}

func TestActAsOwnerRejectsDisabledStaff(t *testing.T) {
	lookup := &fakeLookup{member: &models.StaffMember{
		OwnerID: uuid.New(),
		Status:  "disabled",
	}}
	w := get(resolverRouter(t, lookup, uuid.New(), "staff"))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestActAsOwnerRejectsOrphanedStaffToken(t *testing.T) {
	w := get(resolverRouter(t, &fakeLookup{}, uuid.New(), "staff"))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestActAsOwnerLookupFailure(t *testing.T) {
	lookup := &fakeLookup{err: errors.New("connection refused")}
	w := get(resolverRouter(t, lookup, uuid.New(), "staff"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestActAsOwnerTeacherFallsBackToOwnID(t *testing.T) {
	teacherID := uuid.New()
	// Lookup must not even be consulted for a teacher token.
	lookup := &fakeLookup{err: errors.New("should not be called")}
	w := get(resolverRouter(t, lookup, teacherID, "teacher"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), teacherID.String())
}

func TestRequirePermission(t *testing.T) {
	ownerID := uuid.New()
	member := &models.StaffMember{
		OwnerID:     ownerID,
		Status:      "active",
		Permissions: models.StaffPermissions{ManageCodes: true},
	}

	t.Run("granted flag passes", func(t *testing.T) {
		r := resolverRouter(t, &fakeLookup{member: member}, uuid.New(), "staff", RequirePermission("manage_codes"))
		assert.Equal(t, http.StatusOK, get(r).Code)
	})

	t.Run("missing flag is forbidden", func(t *testing.T) {
		r := resolverRouter(t, &fakeLookup{member: member}, uuid.New(), "staff", RequirePermission("manage_content"))
		assert.Equal(t, http.StatusForbidden, get(r).Code)
	})

	t.Run("teacher bypasses flags", func(t *testing.T) {
		r := resolverRouter(t, &fakeLookup{}, uuid.New(), "teacher", RequirePermission("manage_content"))
		assert.Equal(t, http.StatusOK, get(r).Code)
	})
}
