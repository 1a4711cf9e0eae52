package redemption

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ta3leemy/backend/internal/middleware"
	"github.com/ta3leemy/backend/internal/plans"
	"github.com/ta3leemy/backend/pkg/response"
)

// Handler exposes the redemption endpoint.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// RedeemRequest spends a code on a program, unit or lecture.
type RedeemRequest struct {
	Code       string    `json:"code" binding:"required"`
	TargetKind string    `json:"target_kind" binding:"required,oneof=program unit lecture"`
	TargetID   uuid.UUID `json:"target_id" binding:"required"`
}

// Redeem handles POST /codes/redeem.
func (h *Handler) Redeem(c *gin.Context) {
	studentID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	var req RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.svc.Redeem(c.Request.Context(), studentID, req.Code, req.TargetKind, req.TargetID)
	if err != nil {
		switch {
		case errors.Is(err, ErrCodeNotFound), errors.Is(err, ErrTargetNotFound):
			response.NotFound(c, err.Error())
		case errors.Is(err, ErrWrongTarget), errors.Is(err, ErrValueTooHigh), errors.Is(err, ErrValueTooLow):
			response.BadRequest(c, err.Error())
		case errors.Is(err, ErrAlreadyRedeemed):
			response.Conflict(c, err.Error())
		case errors.Is(err, plans.ErrLimitExceeded):
			response.PaymentRequired(c, "student limit reached for this teacher's plan")
		case errors.Is(err, ErrPartialApply):
			// Code is spent; tell the client access is on its way.
			response.OK(c, gin.H{"redeemed": true, "pending": true})
		default:
			h.logger.Error("redemption failed", zap.Error(err))
			response.Internal(c, "failed to redeem code")
		}
		return
	}

	response.OK(c, gin.H{"redeemed": true, "pending": false, "enrollment": result.Enrollment})
}
