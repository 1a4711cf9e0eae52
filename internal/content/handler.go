package content

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/ta3leemy/backend/internal/middleware"
	"github.com/ta3leemy/backend/internal/models"
	"github.com/ta3leemy/backend/pkg/response"
	"github.com/ta3leemy/backend/pkg/storage"
)

type catalog interface {
	CreateProgram(ctx context.Context, p *models.Program) (*models.Program, error)
	GetProgram(ctx context.Context, id uuid.UUID) (*models.Program, error)
	ListProgramsByTeacher(ctx context.Context, teacherID uuid.UUID) ([]models.Program, error)
	UpdateProgram(ctx context.Context, teacherID uuid.UUID, p *models.Program) error
	CreateUnit(ctx context.Context, u *models.Unit) (*models.Unit, error)
	ListUnits(ctx context.Context, programID uuid.UUID) ([]models.Unit, error)
	CreateLecture(ctx context.Context, l *models.Lecture) (*models.Lecture, error)
	GetLecture(ctx context.Context, id uuid.UUID) (*models.Lecture, error)
	ListLectures(ctx context.Context, unitID uuid.UUID) ([]models.Lecture, error)
	SetLectureMaterial(ctx context.Context, lectureID uuid.UUID, key string) error
}

type entitlements interface {
	Get(ctx context.Context, studentID, programID uuid.UUID) (*models.Enrollment, error)
}

// Handler exposes the content catalog and material delivery endpoints.
// s3 is nil on deployments without object storage; the material endpoints
// answer 503 there instead of touching it.
type Handler struct {
	repo       catalog
	enrollRepo entitlements
	s3         *storage.S3
	logger     *zap.Logger
}

func NewHandler(repo catalog, enrollRepo entitlements, s3 *storage.S3, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, enrollRepo: enrollRepo, s3: s3, logger: logger}
}

// ProgramRequest creates or updates a program.
type ProgramRequest struct {
	Title       string  `json:"title" binding:"required"`
	Description string  `json:"description"`
	Price       float64 `json:"price" binding:"min=0"`
	CoverURL    string  `json:"cover_url"`
}

// CreateProgram handles POST /programs.
func (h *Handler) CreateProgram(c *gin.Context) {
	teacherID, ok := middleware.OwnerID(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}
	var req ProgramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	p, err := h.repo.CreateProgram(c.Request.Context(), &models.Program{
		TeacherID:   teacherID,
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		CoverURL:    req.CoverURL,
	})
	if err != nil {
		h.logger.Error("failed to create program", zap.Error(err))
		response.Internal(c, "failed to create program")
		return
	}
	response.Created(c, gin.H{"program": p})
}

// ListPrograms handles GET /programs for the signed-in teacher.
func (h *Handler) ListPrograms(c *gin.Context) {
	teacherID, ok := middleware.OwnerID(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}
	list, err := h.repo.ListProgramsByTeacher(c.Request.Context(), teacherID)
	if err != nil {
		h.logger.Error("failed to list programs", zap.Error(err))
		response.Internal(c, "failed to list programs")
		return
	}
	response.OK(c, gin.H{"programs": list, "count": len(list)})
}

// UpdateProgram handles PUT /programs/:programId.
func (h *Handler) UpdateProgram(c *gin.Context) {
	teacherID, ok := middleware.OwnerID(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}
	programID, err := uuid.Parse(c.Param("programId"))
	if err != nil {
		response.BadRequest(c, "invalid program id")
		return
	}
	var req ProgramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	err = h.repo.UpdateProgram(c.Request.Context(), teacherID, &models.Program{
		ID:          programID,
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		CoverURL:    req.CoverURL,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "program not found")
			return
		}
		h.logger.Error("failed to update program", zap.Error(err))
		response.Internal(c, "failed to update program")
		return
	}
	response.OK(c, gin.H{"updated": true})
}

// UnitRequest creates a unit inside a program.
type UnitRequest struct {
	ProgramID uuid.UUID `json:"program_id" binding:"required"`
	Title     string    `json:"title" binding:"required"`
	Price     float64   `json:"price" binding:"min=0"`
	Position  int       `json:"position"`
}

// CreateUnit handles POST /units.
func (h *Handler) CreateUnit(c *gin.Context) {
	teacherID, ok := middleware.OwnerID(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}
	var req UnitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if ok, err := h.ownsProgram(c, teacherID, req.ProgramID); !ok {
		if err != nil {
			return // response already written
		}
		response.Forbidden(c, "program belongs to another teacher")
		return
	}
	u, err := h.repo.CreateUnit(c.Request.Context(), &models.Unit{
		ProgramID: req.ProgramID,
		Title:     req.Title,
		Price:     req.Price,
		Position:  req.Position,
	})
	if err != nil {
		h.logger.Error("failed to create unit", zap.Error(err))
		response.Internal(c, "failed to create unit")
		return
	}
	response.Created(c, gin.H{"unit": u})
}

// ListUnits handles GET /programs/:programId/units.
func (h *Handler) ListUnits(c *gin.Context) {
	programID, err := uuid.Parse(c.Param("programId"))
	if err != nil {
		response.BadRequest(c, "invalid program id")
		return
	}
	list, err := h.repo.ListUnits(c.Request.Context(), programID)
	if err != nil {
		h.logger.Error("failed to list units", zap.Error(err))
		response.Internal(c, "failed to list units")
		return
	}
	response.OK(c, gin.H{"units": list, "count": len(list)})
}

// LectureRequest creates a lecture, exam or document.
type LectureRequest struct {
	ProgramID      uuid.UUID  `json:"program_id" binding:"required"`
	UnitID         uuid.UUID  `json:"unit_id" binding:"required"`
	Title          string     `json:"title" binding:"required"`
	Kind           string     `json:"kind" binding:"required,oneof=lecture exam document"`
	Price          float64    `json:"price" binding:"min=0"`
	PrerequisiteID *uuid.UUID `json:"prerequisite_id"`
	HasVideo       bool       `json:"has_video"`
	IsLive         bool       `json:"is_live"`
	VideoURL       string     `json:"video_url"`
	Position       int        `json:"position"`
}

// CreateLecture handles POST /lectures.
func (h *Handler) CreateLecture(c *gin.Context) {
	teacherID, ok := middleware.OwnerID(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}
	var req LectureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if ok, err := h.ownsProgram(c, teacherID, req.ProgramID); !ok {
		if err != nil {
			return
		}
		response.Forbidden(c, "program belongs to another teacher")
		return
	}
	l, err := h.repo.CreateLecture(c.Request.Context(), &models.Lecture{
		ProgramID:      req.ProgramID,
		UnitID:         req.UnitID,
		Title:          req.Title,
		Kind:           req.Kind,
		Price:          req.Price,
		PrerequisiteID: req.PrerequisiteID,
		HasVideo:       req.HasVideo,
		IsLive:         req.IsLive,
		VideoURL:       req.VideoURL,
		Position:       req.Position,
	})
	if err != nil {
		h.logger.Error("failed to create lecture", zap.Error(err))
		response.Internal(c, "failed to create lecture")
		return
	}
	response.Created(c, gin.H{"lecture": l})
}

// ListLectures handles GET /units/:unitId/lectures. Locked items are listed
// with their metadata but without the playback URL; the catalog itself is
// never hidden, only the content behind it.
func (h *Handler) ListLectures(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}
	unitID, err := uuid.Parse(c.Param("unitId"))
	if err != nil {
		response.BadRequest(c, "invalid unit id")
		return
	}
	list, err := h.repo.ListLectures(c.Request.Context(), unitID)
	if err != nil {
		h.logger.Error("failed to list lectures", zap.Error(err))
		response.Internal(c, "failed to list lectures")
		return
	}
	if len(list) > 0 && middleware.UserRole(c) == string(models.RoleStudent) {
		e, err := h.enrollRepo.Get(c.Request.Context(), userID, list[0].ProgramID)
		if err != nil {
			h.logger.Error("failed to load enrollment", zap.Error(err))
			response.Internal(c, "failed to list lectures")
			return
		}
		for i := range list {
			if !e.IsUnlocked(list[i].ID, list[i].UnitID) {
				list[i].VideoURL = ""
				list[i].MaterialKey = ""
			}
		}
	}
	response.OK(c, gin.H{"lectures": list, "count": len(list)})
}

// UploadURLRequest asks for a pre-signed PUT URL for a lecture material.
type UploadURLRequest struct {
	LectureID   uuid.UUID `json:"lecture_id" binding:"required"`
	Filename    string    `json:"filename" binding:"required"`
	ContentType string    `json:"content_type"`
}

// MaterialUploadURL handles POST /lectures/material-upload-url. The client
// uploads directly to S3 with the returned URL; the object key is recorded
// on the lecture immediately. Only the teacher owning the lecture's program
// may attach material to it.
func (h *Handler) MaterialUploadURL(c *gin.Context) {
	teacherID, ok := middleware.OwnerID(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}
	var req UploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if !storage.ValidateMaterialFileType(req.ContentType, req.Filename) {
		response.BadRequest(c, "unsupported file type")
		return
	}

	l, err := h.repo.GetLecture(c.Request.Context(), req.LectureID)
	if err != nil {
		h.logger.Error("failed to load lecture", zap.Error(err))
		response.Internal(c, "failed to generate upload url")
		return
	}
	if l == nil {
		response.NotFound(c, "lecture not found")
		return
	}
	if ok, err := h.ownsProgram(c, teacherID, l.ProgramID); !ok {
		if err != nil {
			return
		}
		response.Forbidden(c, "lecture belongs to another teacher")
		return
	}
	if h.s3 == nil {
		response.ServiceUnavailable(c, "file storage is not configured")
		return
	}

	key := storage.MaterialKey(req.LectureID.String(), req.Filename)
	contentType := req.ContentType
	if contentType == "" {
		contentType = storage.ContentTypeForFilename(req.Filename)
	}
	url, err := h.s3.GeneratePresignedUploadURL(c.Request.Context(), key, contentType, h.s3.PresignExpire())
	if err != nil {
		h.logger.Error("failed to presign upload", zap.Error(err))
		response.Internal(c, "failed to generate upload url")
		return
	}
	if err := h.repo.SetLectureMaterial(c.Request.Context(), req.LectureID, key); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "lecture not found")
			return
		}
		h.logger.Error("failed to record material key", zap.Error(err))
		response.Internal(c, "failed to generate upload url")
		return
	}
	response.OK(c, gin.H{"upload_url": url, "key": key})
}

// MaterialDownloadURL handles GET /lectures/:lectureId/material. The student
// must hold an entitlement covering the lecture.
func (h *Handler) MaterialDownloadURL(c *gin.Context) {
	studentID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}
	lectureID, err := uuid.Parse(c.Param("lectureId"))
	if err != nil {
		response.BadRequest(c, "invalid lecture id")
		return
	}
	l, err := h.repo.GetLecture(c.Request.Context(), lectureID)
	if err != nil {
		h.logger.Error("failed to load lecture", zap.Error(err))
		response.Internal(c, "failed to load material")
		return
	}
	if l == nil || l.MaterialKey == "" {
		response.NotFound(c, "material not found")
		return
	}

	if middleware.UserRole(c) == string(models.RoleStudent) {
		e, err := h.enrollRepo.Get(c.Request.Context(), studentID, l.ProgramID)
		if err != nil {
			h.logger.Error("failed to load enrollment", zap.Error(err))
			response.Internal(c, "failed to load material")
			return
		}
		if !e.IsUnlocked(l.ID, l.UnitID) {
			response.Forbidden(c, "content is locked")
			return
		}
	}

	if h.s3 == nil {
		response.ServiceUnavailable(c, "file storage is not configured")
		return
	}
	url, err := h.s3.GeneratePresignedDownloadURL(c.Request.Context(), l.MaterialKey, h.s3.PresignExpire())
	if err != nil {
		h.logger.Error("failed to presign download", zap.Error(err))
		response.Internal(c, "failed to load material")
		return
	}
	response.OK(c, gin.H{"download_url": url})
}

// UploadCover handles POST /programs/:programId/cover, a multipart image
// pushed through the API into the public covers folder.
func (h *Handler) UploadCover(c *gin.Context) {
	teacherID, ok := middleware.OwnerID(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}
	programID, err := uuid.Parse(c.Param("programId"))
	if err != nil {
		response.BadRequest(c, "invalid program id")
		return
	}
	p, err := h.repo.GetProgram(c.Request.Context(), programID)
	if err != nil {
		h.logger.Error("failed to load program", zap.Error(err))
		response.Internal(c, "failed to upload cover")
		return
	}
	if p == nil {
		response.NotFound(c, "program not found")
		return
	}
	if p.TeacherID != teacherID {
		response.Forbidden(c, "program belongs to another teacher")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file is required")
		return
	}
	if fileHeader.Size > storage.MaxMaterialFileSize {
		response.BadRequest(c, "file too large")
		return
	}
	contentType := fileHeader.Header.Get("Content-Type")
	if !storage.ValidateMaterialFileType(contentType, fileHeader.Filename) {
		response.BadRequest(c, "unsupported file type")
		return
	}

	if h.s3 == nil {
		response.ServiceUnavailable(c, "file storage is not configured")
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		response.BadRequest(c, "failed to read file")
		return
	}
	defer f.Close()

	key := storage.CoverKey(programID.String(), fileHeader.Filename)
	url, err := h.s3.Upload(c.Request.Context(), key, contentType, f, fileHeader.Size)
	if err != nil {
		h.logger.Error("failed to upload cover", zap.Error(err))
		response.Internal(c, "failed to upload cover")
		return
	}

	p.CoverURL = url
	if err := h.repo.UpdateProgram(c.Request.Context(), teacherID, p); err != nil {
		h.logger.Error("failed to record cover url", zap.Error(err))
		response.Internal(c, "failed to upload cover")
		return
	}
	response.OK(c, gin.H{"cover_url": url})
}

// ownsProgram verifies program ownership, writing the error response itself
// on lookup failure. Returns (false, err) when a response was written.
func (h *Handler) ownsProgram(c *gin.Context, teacherID, programID uuid.UUID) (bool, error) {
	p, err := h.repo.GetProgram(c.Request.Context(), programID)
	if err != nil {
		h.logger.Error("failed to load program", zap.Error(err))
		response.Internal(c, "failed to load program")
		return false, err
	}
	if p == nil {
		response.NotFound(c, "program not found")
		return false, errors.New("program not found")
	}
	return p.TeacherID == teacherID, nil
}
