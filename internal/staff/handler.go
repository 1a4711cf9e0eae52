package staff

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/ta3leemy/backend/internal/auth"
	"github.com/ta3leemy/backend/internal/middleware"
	"github.com/ta3leemy/backend/internal/models"
	"github.com/ta3leemy/backend/internal/plans"
	"github.com/ta3leemy/backend/pkg/response"
	"github.com/ta3leemy/backend/pkg/utils"
)

type staffStore interface {
	Count(ctx context.Context, ownerID uuid.UUID) (int, error)
	Create(ctx context.Context, m *models.StaffMember) (*models.StaffMember, error)
	List(ctx context.Context, ownerID uuid.UUID) ([]models.StaffMember, error)
	UpdatePermissions(ctx context.Context, ownerID, staffID uuid.UUID, perms models.StaffPermissions) error
	SetStatus(ctx context.Context, ownerID, staffID uuid.UUID, status string) error
}

type accountStore interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, email, passwordHash, fullName string, role models.Role, profile *auth.CreateUserParams) (*models.User, error)
}

type capacityChecker interface {
	CheckStaffCapacity(ctx context.Context, teacherID uuid.UUID, current int) error
}

// Handler exposes staff management for teachers. Inviting a staff member
// provisions a sign-in account; staff cannot self-register.
type Handler struct {
	repo    staffStore
	users   accountStore
	planSvc capacityChecker
	logger  *zap.Logger
}

func NewHandler(repo staffStore, users accountStore, planSvc capacityChecker, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, users: users, planSvc: planSvc, logger: logger}
}

// InviteRequest adds a staff member under the signed-in teacher.
type InviteRequest struct {
	Email       string                  `json:"email" binding:"required,email"`
	Password    string                  `json:"password" binding:"required,min=6"`
	FullName    string                  `json:"full_name" binding:"required"`
	Permissions models.StaffPermissions `json:"permissions"`
}

// Invite handles POST /staff. It creates the staff user account and its
// membership row in one go. Active staff count toward the plan's staff
// seat ceiling, checked before anything is created.
func (h *Handler) Invite(c *gin.Context) {
	ownerID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}
	var req InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	if _, err := h.users.GetByEmail(ctx, req.Email); err == nil {
		response.BadRequest(c, "email already registered")
		return
	} else if !errors.Is(err, pgx.ErrNoRows) {
		h.logger.Error("failed to check staff email", zap.Error(err))
		response.Internal(c, "failed to invite staff")
		return
	}

	current, err := h.repo.Count(ctx, ownerID)
	if err != nil {
		h.logger.Error("failed to count staff", zap.Error(err))
		response.Internal(c, "failed to invite staff")
		return
	}
	if err := h.planSvc.CheckStaffCapacity(ctx, ownerID, current); err != nil {
		if errors.Is(err, plans.ErrLimitExceeded) {
			response.PaymentRequired(c, "staff limit reached for current plan")
			return
		}
		h.logger.Error("failed to check plan limits", zap.Error(err))
		response.Internal(c, "failed to invite staff")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		response.Internal(c, "failed to invite staff")
		return
	}
	user, err := h.users.Create(ctx, req.Email, hash, req.FullName, models.RoleStaff, nil)
	if err != nil {
		h.logger.Error("failed to create staff account", zap.Error(err))
		response.Internal(c, "failed to invite staff")
		return
	}

	m, err := h.repo.Create(ctx, &models.StaffMember{
		OwnerID:     ownerID,
		UserID:      user.ID,
		Email:       req.Email,
		FullName:    req.FullName,
		Permissions: req.Permissions,
	})
	if err != nil {
		h.logger.Error("failed to create staff member", zap.Error(err))
		response.Internal(c, "failed to invite staff")
		return
	}
	response.Created(c, gin.H{"staff": m})
}

// List handles GET /staff.
func (h *Handler) List(c *gin.Context) {
	ownerID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}
	list, err := h.repo.List(c.Request.Context(), ownerID)
	if err != nil {
		h.logger.Error("failed to list staff", zap.Error(err))
		response.Internal(c, "failed to list staff")
		return
	}
	response.OK(c, gin.H{"staff": list, "count": len(list)})
}

// PermissionsRequest replaces a staff member's permissions.
type PermissionsRequest struct {
	Permissions models.StaffPermissions `json:"permissions" binding:"required"`
}

// UpdatePermissions handles PUT /staff/:staffId/permissions.
func (h *Handler) UpdatePermissions(c *gin.Context) {
	ownerID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}
	staffID, err := uuid.Parse(c.Param("staffId"))
	if err != nil {
		response.BadRequest(c, "invalid staff id")
		return
	}
	var req PermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.repo.UpdatePermissions(c.Request.Context(), ownerID, staffID, req.Permissions); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "staff member not found")
			return
		}
		h.logger.Error("failed to update staff permissions", zap.Error(err))
		response.Internal(c, "failed to update permissions")
		return
	}
	response.OK(c, gin.H{"updated": true})
}

// StatusRequest activates or disables a staff member.
type StatusRequest struct {
	Status string `json:"status" binding:"required,oneof=active disabled"`
}

// SetStatus handles PUT /staff/:staffId/status.
func (h *Handler) SetStatus(c *gin.Context) {
	ownerID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}
	staffID, err := uuid.Parse(c.Param("staffId"))
	if err != nil {
		response.BadRequest(c, "invalid staff id")
		return
	}
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.repo.SetStatus(c.Request.Context(), ownerID, staffID, req.Status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "staff member not found")
			return
		}
		h.logger.Error("failed to update staff status", zap.Error(err))
		response.Internal(c, "failed to update status")
		return
	}
	response.OK(c, gin.H{"updated": true})
}
