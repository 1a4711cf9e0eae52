package auth

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/ta3leemy/backend/internal/models"
	"github.com/ta3leemy/backend/internal/plans"
	"github.com/ta3leemy/backend/pkg/response"
	"github.com/ta3leemy/backend/pkg/utils"
)

type userStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, email, passwordHash, fullName string, role models.Role, profile *CreateUserParams) (*models.User, error)
	CreateTeacherProfile(ctx context.Context, userID uuid.UUID, platformName, slug string) error
}

type roster interface {
	Count(ctx context.Context, teacherID uuid.UUID) (int, error)
	Link(ctx context.Context, teacherID, studentID uuid.UUID) error
}

type capacityChecker interface {
	CheckStudentCapacity(ctx context.Context, teacherID uuid.UUID, current int) error
}

// RegisterRequest is the body for POST /auth/register.
type RegisterRequest struct {
	Email        string `json:"email" binding:"required,email"`
	Password     string `json:"password" binding:"required,min=6"`
	FullName     string `json:"full_name" binding:"required"`
	Role         string `json:"role"` // optional, defaults to student
	Phone        string `json:"phone"`
	AcademicYear string `json:"academic_year"`
	DeviceID     string `json:"device_id"`
	// TeacherID enrolls the new student under a teacher's platform; subject
	// to the teacher's student ceiling.
	TeacherID *uuid.UUID `json:"teacher_id"`
	// Teacher registration only.
	PlatformName string `json:"platform_name"`
	PlatformSlug string `json:"platform_slug"`
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse is the auth response with JWT.
type TokenResponse struct {
	Token string            `json:"token"`
	User  models.UserPublic `json:"user"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	repo        userStore
	studentRepo roster
	planSvc     capacityChecker
	jwt         *JWTService
	logger      *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(repo userStore, studentRepo roster, planSvc capacityChecker, jwt *JWTService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, studentRepo: studentRepo, planSvc: planSvc, jwt: jwt, logger: logger}
}

// Register handles POST /auth/register.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	role := models.RoleStudent
	switch req.Role {
	case "", "student":
	case "teacher":
		role = models.RoleTeacher
		if req.PlatformName == "" {
			response.BadRequest(c, "platform_name required for teacher registration")
			return
		}
	default:
		// Admin and staff accounts are provisioned, not self-registered.
		response.BadRequest(c, "invalid role")
		return
	}

	if _, err := h.repo.GetByEmail(c.Request.Context(), req.Email); err == nil {
		response.BadRequest(c, "email already registered")
		return
	} else if !errors.Is(err, pgx.ErrNoRows) {
		// A transient lookup failure must not fall through to the insert.
		h.logger.Error("email lookup failed", zap.Error(err), zap.String("email", req.Email))
		response.Internal(c, "failed to check email")
		return
	}

	// Signing up under a teacher counts as a new relationship: enforce the
	// teacher's student ceiling before creating anything.
	if role == models.RoleStudent && req.TeacherID != nil {
		count, err := h.studentRepo.Count(c.Request.Context(), *req.TeacherID)
		if err != nil {
			response.Internal(c, "failed to check teacher capacity")
			return
		}
		if err := h.planSvc.CheckStudentCapacity(c.Request.Context(), *req.TeacherID, count); err != nil {
			if errors.Is(err, plans.ErrLimitExceeded) {
				response.PaymentRequired(c, "teacher has reached the maximum number of students")
				return
			}
			response.Internal(c, "failed to check teacher capacity")
			return
		}
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		response.Internal(c, "failed to hash password")
		return
	}

	profile := &CreateUserParams{
		Phone:        req.Phone,
		AcademicYear: req.AcademicYear,
		DeviceID:     req.DeviceID,
	}
	user, err := h.repo.Create(c.Request.Context(), req.Email, hash, req.FullName, role, profile)
	if err != nil {
		h.logger.Error("create user failed", zap.Error(err), zap.String("email", req.Email))
		response.Internal(c, "failed to create user")
		return
	}

	if role == models.RoleTeacher {
		if err := h.repo.CreateTeacherProfile(c.Request.Context(), user.ID, req.PlatformName, req.PlatformSlug); err != nil {
			h.logger.Error("create teacher profile failed", zap.Error(err), zap.String("user_id", user.ID.String()))
			response.Internal(c, "failed to create teacher profile")
			return
		}
	}

	if role == models.RoleStudent && req.TeacherID != nil {
		if err := h.studentRepo.Link(c.Request.Context(), *req.TeacherID, user.ID); err != nil {
			// Account exists either way; the relationship can be re-created
			// on first redemption.
			h.logger.Error("link student to teacher failed", zap.Error(err),
				zap.String("teacher_id", req.TeacherID.String()), zap.String("student_id", user.ID.String()))
		}
	}

	token, err := h.jwt.Generate(user.ID, user.Email, string(user.Role))
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}

	response.Created(c, TokenResponse{Token: token, User: user.ToPublic()})
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	user, err := h.repo.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		response.Unauthorized(c, "invalid email or password")
		return
	}
	if !utils.CheckPassword(req.Password, user.Password) {
		response.Unauthorized(c, "invalid email or password")
		return
	}
	if user.IsBanned {
		response.Forbidden(c, "account is banned")
		return
	}

	token, err := h.jwt.Generate(user.ID, user.Email, string(user.Role))
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}

	response.OK(c, TokenResponse{Token: token, User: user.ToPublic()})
}

// Me handles GET /auth/me.
func (h *Handler) Me(c *gin.Context) {
	idVal, ok := c.Get("user_id")
	if !ok {
		response.Unauthorized(c, "missing user context")
		return
	}
	id, _ := idVal.(uuid.UUID)
	user, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "user not found")
		return
	}
	response.OK(c, user.ToPublic())
}
