package enrollments

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ta3leemy/backend/internal/middleware"
	"github.com/ta3leemy/backend/internal/models"
	"github.com/ta3leemy/backend/internal/plans"
	"github.com/ta3leemy/backend/internal/students"
	"github.com/ta3leemy/backend/pkg/response"
)

// Handler exposes enrollment reads and manual grants.
type Handler struct {
	repo        *Repository
	studentRepo *students.Repository
	planSvc     *plans.Service
	logger      *zap.Logger
}

func NewHandler(repo *Repository, studentRepo *students.Repository, planSvc *plans.Service, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, studentRepo: studentRepo, planSvc: planSvc, logger: logger}
}

// ListMine handles GET /enrollments for the signed-in student.
func (h *Handler) ListMine(c *gin.Context) {
	studentID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}
	list, err := h.repo.ListByStudent(c.Request.Context(), studentID)
	if err != nil {
		h.logger.Error("failed to list enrollments", zap.Error(err))
		response.Internal(c, "failed to list enrollments")
		return
	}
	response.OK(c, gin.H{"enrollments": list, "count": len(list)})
}

// GetProgram handles GET /enrollments/:programId: the student's access
// inside one program. Absence of a row is not an error; it means locked.
func (h *Handler) GetProgram(c *gin.Context) {
	studentID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}
	programID, err := uuid.Parse(c.Param("programId"))
	if err != nil {
		response.BadRequest(c, "invalid program id")
		return
	}
	e, err := h.repo.Get(c.Request.Context(), studentID, programID)
	if err != nil {
		h.logger.Error("failed to load enrollment", zap.Error(err))
		response.Internal(c, "failed to load enrollment")
		return
	}
	if e == nil {
		response.OK(c, gin.H{"enrolled": false, "access_type": nil})
		return
	}
	response.OK(c, gin.H{"enrolled": true, "enrollment": e})
}

// CheckAccess handles GET /enrollments/:programId/access?content_id=&unit_id=.
// Both query params are optional; an omitted id simply cannot match.
func (h *Handler) CheckAccess(c *gin.Context) {
	studentID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}
	programID, err := uuid.Parse(c.Param("programId"))
	if err != nil {
		response.BadRequest(c, "invalid program id")
		return
	}
	contentID := parseOptionalID(c.Query("content_id"))
	unitID := parseOptionalID(c.Query("unit_id"))

	e, err := h.repo.Get(c.Request.Context(), studentID, programID)
	if err != nil {
		h.logger.Error("failed to load enrollment", zap.Error(err))
		response.Internal(c, "failed to load enrollment")
		return
	}
	response.OK(c, gin.H{"unlocked": e.IsUnlocked(contentID, unitID)})
}

func parseOptionalID(raw string) uuid.UUID {
	if raw == "" {
		return uuid.Nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil
	}
	return id
}

// GrantRequest is a manual grant by a teacher or staff member.
type GrantRequest struct {
	StudentID uuid.UUID  `json:"student_id" binding:"required"`
	ProgramID uuid.UUID  `json:"program_id" binding:"required"`
	Access    string     `json:"access" binding:"required,oneof=full unit lecture"`
	TargetID  *uuid.UUID `json:"target_id"`
}

// Grant handles POST /enrollments/grant. A grant to a student who has no
// prior relationship with the teacher counts toward the plan's student
// limit, same as a code redemption would.
func (h *Handler) Grant(c *gin.Context) {
	actorID, ok := middleware.OwnerID(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	var req GrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if req.Access != models.AccessFull && req.TargetID == nil {
		response.BadRequest(c, "target_id is required for unit and lecture grants")
		return
	}

	ctx := c.Request.Context()
	linked, err := h.studentRepo.Exists(ctx, actorID, req.StudentID)
	if err != nil {
		h.logger.Error("failed to check teacher-student link", zap.Error(err))
		response.Internal(c, "failed to grant access")
		return
	}
	if !linked {
		current, err := h.studentRepo.Count(ctx, actorID)
		if err != nil {
			h.logger.Error("failed to count students", zap.Error(err))
			response.Internal(c, "failed to grant access")
			return
		}
		if err := h.planSvc.CheckStudentCapacity(ctx, actorID, current); err != nil {
			if errors.Is(err, plans.ErrLimitExceeded) {
				response.PaymentRequired(c, "student limit reached for current plan")
				return
			}
			h.logger.Error("failed to check plan limits", zap.Error(err))
			response.Internal(c, "failed to grant access")
			return
		}
	}

	var e *models.Enrollment
	switch req.Access {
	case models.AccessFull:
		e, err = h.repo.GrantFull(ctx, req.StudentID, req.ProgramID, &actorID)
	case "unit":
		e, err = h.repo.GrantUnit(ctx, req.StudentID, req.ProgramID, *req.TargetID, &actorID)
	case "lecture":
		e, err = h.repo.GrantLecture(ctx, req.StudentID, req.ProgramID, *req.TargetID, &actorID)
	}
	if err != nil {
		h.logger.Error("manual grant failed", zap.Error(err))
		response.Internal(c, "failed to grant access")
		return
	}

	if err := h.studentRepo.Link(ctx, actorID, req.StudentID); err != nil {
		h.logger.Warn("failed to link student to teacher", zap.Error(err))
	}
	ev := &models.EnrollmentEvent{
		StudentID: req.StudentID,
		ProgramID: req.ProgramID,
		TeacherID: &actorID,
		Source:    models.GrantSourceManual,
	}
	if err := h.repo.AppendEvent(ctx, ev); err != nil {
		h.logger.Warn("failed to append enrollment event", zap.Error(err))
	}

	response.OK(c, gin.H{"enrollment": e})
}

// HistoryByStudent handles GET /enrollments/:programId/history?student_id=
// for teachers reviewing a student's grant trail.
func (h *Handler) HistoryByStudent(c *gin.Context) {
	programID, err := uuid.Parse(c.Param("programId"))
	if err != nil {
		response.BadRequest(c, "invalid program id")
		return
	}
	studentID, err := uuid.Parse(c.Query("student_id"))
	if err != nil {
		response.BadRequest(c, "invalid student id")
		return
	}
	list, err := h.repo.History(c.Request.Context(), studentID, programID)
	if err != nil {
		h.logger.Error("failed to load enrollment history", zap.Error(err))
		response.Internal(c, "failed to load enrollment history")
		return
	}
	response.OK(c, gin.H{"events": list, "count": len(list)})
}
