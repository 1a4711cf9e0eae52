package plans

import (
	"github.com/gin-gonic/gin"

	"github.com/ta3leemy/backend/internal/models"
	"github.com/ta3leemy/backend/pkg/response"
)

// Handler handles plan/pricing HTTP endpoints (admin only except listing).
type Handler struct {
	repo *Repository
}

// NewHandler creates a plans handler.
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// List handles GET /plans.
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to load plans")
		return
	}
	response.OK(c, list)
}

// UpsertRequest is the body for PUT /admin/plans/:key.
type UpsertRequest struct {
	MaxStudents  int     `json:"max_students" binding:"min=0"`
	MaxStaff     int     `json:"max_staff" binding:"min=0"`
	MonthlyPrice float64 `json:"monthly_price" binding:"min=0"`
}

// Upsert handles PUT /admin/plans/:key.
func (h *Handler) Upsert(c *gin.Context) {
	key := c.Param("key")
	if key == "" {
		response.BadRequest(c, "plan key required")
		return
	}
	var req UpsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	pl := &models.PlanLimits{
		PlanKey:      key,
		MaxStudents:  req.MaxStudents,
		MaxStaff:     req.MaxStaff,
		MonthlyPrice: req.MonthlyPrice,
	}
	if err := h.repo.Upsert(c.Request.Context(), pl); err != nil {
		response.Internal(c, "failed to save plan")
		return
	}
	response.OK(c, pl)
}
