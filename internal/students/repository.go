package students

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ta3leemy/backend/internal/models"
)

// Repository handles teacher-student relationships and student lookup.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a students repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Relationship links a student to a teacher's platform. Created once, on the
// first enrollment under that teacher.
type Relationship struct {
	TeacherID uuid.UUID `json:"teacher_id"`
	StudentID uuid.UUID `json:"student_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Exists reports whether the student already belongs to the teacher.
func (r *Repository) Exists(ctx context.Context, teacherID, studentID uuid.UUID) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM teacher_students WHERE teacher_id = $1 AND student_id = $2)`
	var exists bool
	err := r.pool.QueryRow(ctx, q, teacherID, studentID).Scan(&exists)
	return exists, err
}

// Count returns the number of students enrolled under a teacher. Feeds the
// plan-limit gate.
func (r *Repository) Count(ctx context.Context, teacherID uuid.UUID) (int, error) {
	const q = `SELECT COUNT(*) FROM teacher_students WHERE teacher_id = $1`
	var n int
	err := r.pool.QueryRow(ctx, q, teacherID).Scan(&n)
	return n, err
}

// Link creates the teacher-student relationship if it does not exist yet.
func (r *Repository) Link(ctx context.Context, teacherID, studentID uuid.UUID) error {
	const q = `INSERT INTO teacher_students (teacher_id, student_id)
		VALUES ($1, $2)
		ON CONFLICT (teacher_id, student_id) DO NOTHING`
	_, err := r.pool.Exec(ctx, q, teacherID, studentID)
	return err
}

// ListByTeacher returns the students enrolled under a teacher.
func (r *Repository) ListByTeacher(ctx context.Context, teacherID uuid.UUID) ([]models.UserPublic, error) {
	const q = `SELECT u.id, u.email, u.full_name, u.role, COALESCE(u.phone,''), COALESCE(u.academic_year,''), u.created_at
		FROM teacher_students ts
		INNER JOIN users u ON u.id = ts.student_id
		WHERE ts.teacher_id = $1
		ORDER BY ts.created_at DESC`
	rows, err := r.pool.Query(ctx, q, teacherID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.UserPublic
	for rows.Next() {
		var u models.UserPublic
		if err := rows.Scan(&u.ID, &u.Email, &u.FullName, &u.Role, &u.Phone, &u.AcademicYear, &u.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, u)
	}
	return list, rows.Err()
}

// Search finds students by name, email or phone prefix (case-insensitive).
// Backs the manual-grant student picker.
func (r *Repository) Search(ctx context.Context, term string, limit int) ([]models.UserPublic, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	const q = `SELECT id, email, full_name, role, COALESCE(phone,''), COALESCE(academic_year,''), created_at
		FROM users
		WHERE role = 'student'
		AND (full_name ILIKE $1 || '%' OR email ILIKE $1 || '%' OR phone LIKE $1 || '%')
		ORDER BY full_name
		LIMIT $2`
	rows, err := r.pool.Query(ctx, q, term, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.UserPublic
	for rows.Next() {
		var u models.UserPublic
		if err := rows.Scan(&u.ID, &u.Email, &u.FullName, &u.Role, &u.Phone, &u.AcademicYear, &u.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, u)
	}
	return list, rows.Err()
}
