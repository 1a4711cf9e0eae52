package codes

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ta3leemy/backend/internal/middleware"
	"github.com/ta3leemy/backend/pkg/response"
)

// MaxBatchSize caps one issuing request.
const MaxBatchSize = 500

// Handler exposes code issuing and listing endpoints.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, logger: logger}
}

// CreateRequest mints one or more codes. TargetID nil means a generic code
// redeemable against any target whose price matches exactly.
type CreateRequest struct {
	Price    float64    `json:"price" binding:"min=0"`
	TargetID *uuid.UUID `json:"target_id"`
	Count    int        `json:"count"`
}

// Create handles POST /codes.
func (h *Handler) Create(c *gin.Context) {
	teacherID, ok := middleware.OwnerID(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if req.Count <= 0 {
		req.Count = 1
	}
	if req.Count > MaxBatchSize {
		response.BadRequest(c, "count exceeds batch limit")
		return
	}

	list, err := h.repo.CreateBatch(c.Request.Context(), teacherID, req.Price, req.TargetID, req.Count)
	if err != nil {
		h.logger.Error("failed to create access codes",
			zap.String("teacher_id", teacherID.String()),
			zap.Int("requested", req.Count),
			zap.Int("created", len(list)),
			zap.Error(err))
		response.Internal(c, "failed to create access codes")
		return
	}
	response.Created(c, gin.H{"codes": list, "count": len(list)})
}

// List handles GET /codes?status=available|used.
func (h *Handler) List(c *gin.Context) {
	teacherID, ok := middleware.OwnerID(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}
	status := c.Query("status")
	if status != "" && status != "available" && status != "used" {
		response.BadRequest(c, "invalid status filter")
		return
	}

	list, err := h.repo.ListByTeacher(c.Request.Context(), teacherID, status)
	if err != nil {
		h.logger.Error("failed to list access codes", zap.Error(err))
		response.Internal(c, "failed to list access codes")
		return
	}
	response.OK(c, gin.H{"codes": list, "count": len(list)})
}

// Summary handles GET /codes/summary.
func (h *Handler) Summary(c *gin.Context) {
	teacherID, ok := middleware.OwnerID(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}
	sold, revenue, err := h.repo.Summary(c.Request.Context(), teacherID)
	if err != nil {
		h.logger.Error("failed to load code summary", zap.Error(err))
		response.Internal(c, "failed to load code summary")
		return
	}
	response.OK(c, gin.H{"sold": sold, "revenue": revenue})
}
