package teachers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/ta3leemy/backend/internal/middleware"
	"github.com/ta3leemy/backend/pkg/response"
)

// Handler exposes teacher profile endpoints.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, logger: logger}
}

// Me handles GET /teachers/me.
func (h *Handler) Me(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}
	p, err := h.repo.Get(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("failed to load teacher profile", zap.Error(err))
		response.Internal(c, "failed to load profile")
		return
	}
	if p == nil {
		response.NotFound(c, "teacher profile not found")
		return
	}
	response.OK(c, gin.H{"profile": p})
}

// BySlug handles GET /platforms/:slug, the public platform lookup students
// use to land on a teacher's storefront. Revenue is not exposed here.
func (h *Handler) BySlug(c *gin.Context) {
	p, err := h.repo.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.logger.Error("failed to resolve platform slug", zap.Error(err))
		response.Internal(c, "failed to load platform")
		return
	}
	if p == nil {
		response.NotFound(c, "platform not found")
		return
	}
	response.OK(c, gin.H{
		"teacher_id":    p.UserID,
		"platform_name": p.PlatformName,
		"slug":          p.Slug,
		"logo_url":      p.LogoURL,
	})
}

// UpdateRequest changes profile display fields.
type UpdateRequest struct {
	PlatformName string `json:"platform_name" binding:"required"`
	LogoURL      string `json:"logo_url"`
}

// Update handles PUT /teachers/me.
func (h *Handler) Update(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.repo.Update(c.Request.Context(), userID, req.PlatformName, req.LogoURL); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "teacher profile not found")
			return
		}
		h.logger.Error("failed to update teacher profile", zap.Error(err))
		response.Internal(c, "failed to update profile")
		return
	}
	response.OK(c, gin.H{"updated": true})
}

// SetPlanRequest is the admin plan assignment payload.
type SetPlanRequest struct {
	Plan                string `json:"plan" binding:"required,oneof=basic pro elite"`
	MaxStudentsOverride int    `json:"max_students_override" binding:"min=0"`
}

// SetPlan handles PUT /admin/teachers/:teacherId/plan.
func (h *Handler) SetPlan(c *gin.Context) {
	teacherID, err := uuid.Parse(c.Param("teacherId"))
	if err != nil {
		response.BadRequest(c, "invalid teacher id")
		return
	}
	var req SetPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.repo.SetPlan(c.Request.Context(), teacherID, req.Plan, req.MaxStudentsOverride); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "teacher profile not found")
			return
		}
		h.logger.Error("failed to set teacher plan", zap.Error(err))
		response.Internal(c, "failed to set plan")
		return
	}
	response.OK(c, gin.H{"updated": true})
}
