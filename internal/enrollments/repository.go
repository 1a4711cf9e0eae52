package enrollments

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ta3leemy/backend/internal/models"
)

// Repository handles enrollment persistence. All grant methods are
// idempotent upserts: replaying the same grant leaves the row unchanged, and
// partial grants never downgrade a full enrollment.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const enrollmentColumns = `id, student_id, program_id, access_type, unlocked_units, unlocked_lectures, granted_by, created_at, updated_at`

func scanEnrollment(row pgx.Row) (*models.Enrollment, error) {
	var e models.Enrollment
	err := row.Scan(&e.ID, &e.StudentID, &e.ProgramID, &e.AccessType, &e.UnlockedUnits, &e.UnlockedLectures, &e.GrantedBy, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Get returns the student's enrollment in a program, or nil when none exists.
func (r *Repository) Get(ctx context.Context, studentID, programID uuid.UUID) (*models.Enrollment, error) {
	const q = `SELECT ` + enrollmentColumns + ` FROM enrollments
		WHERE student_id = $1 AND program_id = $2`
	e, err := scanEnrollment(r.pool.QueryRow(ctx, q, studentID, programID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return e, nil
}

// ListByStudent returns all of a student's enrollments.
func (r *Repository) ListByStudent(ctx context.Context, studentID uuid.UUID) ([]models.Enrollment, error) {
	const q = `SELECT ` + enrollmentColumns + ` FROM enrollments
		WHERE student_id = $1 ORDER BY updated_at DESC`
	rows, err := r.pool.Query(ctx, q, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Enrollment
	for rows.Next() {
		var e models.Enrollment
		if err := rows.Scan(&e.ID, &e.StudentID, &e.ProgramID, &e.AccessType, &e.UnlockedUnits, &e.UnlockedLectures, &e.GrantedBy, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

// GrantFull upgrades the student to full program access. Allow-lists are
// cleared: full access makes them meaningless.
func (r *Repository) GrantFull(ctx context.Context, studentID, programID uuid.UUID, grantedBy *uuid.UUID) (*models.Enrollment, error) {
	const q = `INSERT INTO enrollments (id, student_id, program_id, access_type, unlocked_units, unlocked_lectures, granted_by)
		VALUES (gen_random_uuid(), $1, $2, 'full', '{}', '{}', $3)
		ON CONFLICT (student_id, program_id) DO UPDATE SET
			access_type = 'full',
			unlocked_units = '{}',
			unlocked_lectures = '{}',
			updated_at = NOW()
		RETURNING ` + enrollmentColumns
	e, err := scanEnrollment(r.pool.QueryRow(ctx, q, studentID, programID, grantedBy))
	if err != nil {
		return nil, fmt.Errorf("grant full access: %w", err)
	}
	return e, nil
}

// GrantUnit appends a unit to the student's allow-list. A no-op when the
// student already holds full access or the unit is already unlocked.
func (r *Repository) GrantUnit(ctx context.Context, studentID, programID, unitID uuid.UUID, grantedBy *uuid.UUID) (*models.Enrollment, error) {
	const q = `INSERT INTO enrollments (id, student_id, program_id, access_type, unlocked_units, unlocked_lectures, granted_by)
		VALUES (gen_random_uuid(), $1, $2, 'partial', ARRAY[$3]::uuid[], '{}', $4)
		ON CONFLICT (student_id, program_id) DO UPDATE SET
			unlocked_units = CASE
				WHEN enrollments.access_type = 'full' THEN enrollments.unlocked_units
				WHEN $3 = ANY(enrollments.unlocked_units) THEN enrollments.unlocked_units
				ELSE array_append(enrollments.unlocked_units, $3)
			END,
			updated_at = NOW()
		RETURNING ` + enrollmentColumns
	e, err := scanEnrollment(r.pool.QueryRow(ctx, q, studentID, programID, unitID, grantedBy))
	if err != nil {
		return nil, fmt.Errorf("grant unit access: %w", err)
	}
	return e, nil
}

// GrantLecture appends a single lecture to the student's allow-list, with
// the same full-access and duplicate guards as GrantUnit.
func (r *Repository) GrantLecture(ctx context.Context, studentID, programID, lectureID uuid.UUID, grantedBy *uuid.UUID) (*models.Enrollment, error) {
	const q = `INSERT INTO enrollments (id, student_id, program_id, access_type, unlocked_units, unlocked_lectures, granted_by)
		VALUES (gen_random_uuid(), $1, $2, 'partial', '{}', ARRAY[$3]::uuid[], $4)
		ON CONFLICT (student_id, program_id) DO UPDATE SET
			unlocked_lectures = CASE
				WHEN enrollments.access_type = 'full' THEN enrollments.unlocked_lectures
				WHEN $3 = ANY(enrollments.unlocked_lectures) THEN enrollments.unlocked_lectures
				ELSE array_append(enrollments.unlocked_lectures, $3)
			END,
			updated_at = NOW()
		RETURNING ` + enrollmentColumns
	e, err := scanEnrollment(r.pool.QueryRow(ctx, q, studentID, programID, lectureID, grantedBy))
	if err != nil {
		return nil, fmt.Errorf("grant lecture access: %w", err)
	}
	return e, nil
}

// AppendEvent records one line of the enrollment audit trail.
func (r *Repository) AppendEvent(ctx context.Context, ev *models.EnrollmentEvent) error {
	const q = `INSERT INTO enrollment_events (id, student_id, program_id, teacher_id, source, code_used, price)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6)`
	_, err := r.pool.Exec(ctx, q,
		ev.StudentID, ev.ProgramID, ev.TeacherID, ev.Source, ev.CodeUsed, ev.Price)
	if err != nil {
		return fmt.Errorf("append enrollment event: %w", err)
	}
	return nil
}

// History returns a student's enrollment events in a program, newest first.
func (r *Repository) History(ctx context.Context, studentID, programID uuid.UUID) ([]models.EnrollmentEvent, error) {
	const q = `SELECT id, student_id, program_id, teacher_id, source, code_used, price, created_at
		FROM enrollment_events
		WHERE student_id = $1 AND program_id = $2
		ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, studentID, programID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.EnrollmentEvent
	for rows.Next() {
		var ev models.EnrollmentEvent
		if err := rows.Scan(&ev.ID, &ev.StudentID, &ev.ProgramID, &ev.TeacherID, &ev.Source, &ev.CodeUsed, &ev.Price, &ev.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, ev)
	}
	return list, rows.Err()
}
