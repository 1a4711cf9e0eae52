package reports

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ta3leemy/backend/internal/middleware"
	"github.com/ta3leemy/backend/pkg/response"
)

// Handler serves aggregate reporting queries straight off the pool; the
// numbers are read-only rollups with no domain logic worth a repository.
type Handler struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewHandler(pool *pgxpool.Pool, logger *zap.Logger) *Handler {
	return &Handler{pool: pool, logger: logger}
}

// TeacherOverview handles GET /reports/overview for the signed-in teacher:
// student count, code inventory, sold codes and gross revenue.
func (h *Handler) TeacherOverview(c *gin.Context) {
	teacherID, ok := middleware.OwnerID(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	const q = `SELECT
		(SELECT COUNT(*) FROM teacher_students WHERE teacher_id = $1),
		(SELECT COUNT(*) FROM access_codes WHERE teacher_id = $1 AND status = 'available'),
		(SELECT COUNT(*) FROM access_codes WHERE teacher_id = $1 AND status = 'used'),
		(SELECT COALESCE(total_revenue, 0) FROM teacher_profiles WHERE user_id = $1),
		(SELECT COUNT(*) FROM programs WHERE teacher_id = $1)`

	var students, available, sold, programs int
	var revenue float64
	err := h.pool.QueryRow(c.Request.Context(), q, teacherID).Scan(&students, &available, &sold, &revenue, &programs)
	if err != nil {
		h.logger.Error("failed to load teacher overview", zap.Error(err))
		response.Internal(c, "failed to load overview")
		return
	}
	response.OK(c, gin.H{
		"students":        students,
		"codes_available": available,
		"codes_sold":      sold,
		"total_revenue":   revenue,
		"programs":        programs,
	})
}

// RevenueByProgram handles GET /reports/revenue: per-program redemption
// revenue for the signed-in teacher, derived from the enrollment event log.
func (h *Handler) RevenueByProgram(c *gin.Context) {
	teacherID, ok := middleware.OwnerID(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	const q = `SELECT p.id, p.title, COUNT(ev.id), COALESCE(SUM(ev.price), 0)
		FROM programs p
		LEFT JOIN enrollment_events ev ON ev.program_id = p.id AND ev.source = 'code'
		WHERE p.teacher_id = $1
		GROUP BY p.id, p.title
		ORDER BY SUM(ev.price) DESC NULLS LAST`

	rows, err := h.pool.Query(c.Request.Context(), q, teacherID)
	if err != nil {
		h.logger.Error("failed to load revenue report", zap.Error(err))
		response.Internal(c, "failed to load revenue report")
		return
	}
	defer rows.Close()

	type programRevenue struct {
		ProgramID   string  `json:"program_id"`
		Title       string  `json:"title"`
		Redemptions int     `json:"redemptions"`
		Revenue     float64 `json:"revenue"`
	}
	var list []programRevenue
	for rows.Next() {
		var pr programRevenue
		if err := rows.Scan(&pr.ProgramID, &pr.Title, &pr.Redemptions, &pr.Revenue); err != nil {
			h.logger.Error("failed to scan revenue row", zap.Error(err))
			response.Internal(c, "failed to load revenue report")
			return
		}
		list = append(list, pr)
	}
	if err := rows.Err(); err != nil {
		h.logger.Error("failed to read revenue rows", zap.Error(err))
		response.Internal(c, "failed to load revenue report")
		return
	}
	response.OK(c, gin.H{"programs": list})
}

// AdminOverview handles GET /admin/reports/overview: platform-wide counts.
func (h *Handler) AdminOverview(c *gin.Context) {
	const q = `SELECT
		(SELECT COUNT(*) FROM users WHERE role = 'teacher'),
		(SELECT COUNT(*) FROM users WHERE role = 'student'),
		(SELECT COUNT(*) FROM access_codes WHERE status = 'used'),
		(SELECT COALESCE(SUM(total_revenue), 0) FROM teacher_profiles),
		(SELECT COUNT(*) FROM enrollments)`

	var teachers, students, sold, enrollments int
	var revenue float64
	err := h.pool.QueryRow(c.Request.Context(), q).Scan(&teachers, &students, &sold, &revenue, &enrollments)
	if err != nil {
		h.logger.Error("failed to load admin overview", zap.Error(err))
		response.Internal(c, "failed to load overview")
		return
	}
	response.OK(c, gin.H{
		"teachers":      teachers,
		"students":      students,
		"codes_sold":    sold,
		"gross_revenue": revenue,
		"enrollments":   enrollments,
	})
}
