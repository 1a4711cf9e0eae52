package staff

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ta3leemy/backend/internal/middleware"
	"github.com/ta3leemy/backend/internal/models"
	"github.com/ta3leemy/backend/pkg/response"
)

const contextPermissions = "staff_permissions"

type ownerLookup interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.StaffMember, error)
}

// ActAsOwner resolves staff tokens to the teacher they work for. For a staff
// request it loads the membership row, rejects disabled or orphaned accounts,
// and stores the employing teacher's ID so handlers scope their queries to
// the owner's platform. Non-staff requests pass through untouched.
func ActAsOwner(repo ownerLookup, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if middleware.UserRole(c) != string(models.RoleStaff) {
			c.Next()
			return
		}
		userID, ok := middleware.UserID(c)
		if !ok {
			response.Unauthorized(c, "missing user context")
			c.Abort()
			return
		}
		m, err := repo.GetByUserID(c.Request.Context(), userID)
		if err != nil {
			logger.Error("failed to resolve staff membership", zap.Error(err))
			response.Internal(c, "failed to resolve staff access")
			c.Abort()
			return
		}
		if m == nil || m.Status != "active" {
			response.Forbidden(c, "staff access revoked")
			c.Abort()
			return
		}
		c.Set(middleware.ContextOwnerID, m.OwnerID)
		c.Set(contextPermissions, m.Permissions)
		c.Next()
	}
}

// RequirePermission gates a route on one staff permission flag. Teachers and
// admins pass through; staff need the flag granted by their teacher. Must run
// after ActAsOwner.
func RequirePermission(perm string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if middleware.UserRole(c) != string(models.RoleStaff) {
			c.Next()
			return
		}
		v, _ := c.Get(contextPermissions)
		perms, ok := v.(models.StaffPermissions)
		if !ok || !perms.Allows(perm) {
			response.Forbidden(c, "insufficient permissions")
			c.Abort()
			return
		}
		c.Next()
	}
}
