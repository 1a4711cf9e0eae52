package students

import (
	"github.com/gin-gonic/gin"

	"github.com/ta3leemy/backend/internal/middleware"
	"github.com/ta3leemy/backend/pkg/response"
)

// Handler handles teacher-facing student endpoints.
type Handler struct {
	repo *Repository
}

// NewHandler creates a students handler.
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// ListMine handles GET /teachers/me/students.
func (h *Handler) ListMine(c *gin.Context) {
	teacherID, ok := middleware.OwnerID(c)
	if !ok {
		response.Unauthorized(c, "missing user context")
		return
	}
	list, err := h.repo.ListByTeacher(c.Request.Context(), teacherID)
	if err != nil {
		response.Internal(c, "failed to load students")
		return
	}
	response.OK(c, gin.H{"students": list, "count": len(list)})
}

// Search handles GET /teachers/me/students/search?q=term. Minimum 3 chars,
// matching the student picker on the manual access page.
func (h *Handler) Search(c *gin.Context) {
	term := c.Query("q")
	if len(term) < 3 {
		response.BadRequest(c, "search term must be at least 3 characters")
		return
	}
	list, err := h.repo.Search(c.Request.Context(), term, 20)
	if err != nil {
		response.Internal(c, "search failed")
		return
	}
	response.OK(c, list)
}
