package content

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ta3leemy/backend/internal/models"
	"github.com/ta3leemy/backend/internal/redemption"
)

// Repository handles the content catalog: programs, units and lectures.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const programColumns = `id, teacher_id, title, description, price, cover_url, created_at, updated_at`

// CreateProgram inserts a new program owned by teacherID.
func (r *Repository) CreateProgram(ctx context.Context, p *models.Program) (*models.Program, error) {
	const q = `INSERT INTO programs (id, teacher_id, title, description, price, cover_url)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5)
		RETURNING ` + programColumns
	row := r.pool.QueryRow(ctx, q, p.TeacherID, p.Title, p.Description, p.Price, p.CoverURL)
	var out models.Program
	if err := row.Scan(&out.ID, &out.TeacherID, &out.Title, &out.Description, &out.Price, &out.CoverURL, &out.CreatedAt, &out.UpdatedAt); err != nil {
		return nil, fmt.Errorf("insert program: %w", err)
	}
	return &out, nil
}

// GetProgram returns a program by id, or nil when absent.
func (r *Repository) GetProgram(ctx context.Context, id uuid.UUID) (*models.Program, error) {
	const q = `SELECT ` + programColumns + ` FROM programs WHERE id = $1`
	var p models.Program
	err := r.pool.QueryRow(ctx, q, id).Scan(&p.ID, &p.TeacherID, &p.Title, &p.Description, &p.Price, &p.CoverURL, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// ListProgramsByTeacher returns a teacher's programs, newest first.
func (r *Repository) ListProgramsByTeacher(ctx context.Context, teacherID uuid.UUID) ([]models.Program, error) {
	const q = `SELECT ` + programColumns + ` FROM programs WHERE teacher_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, teacherID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Program
	for rows.Next() {
		var p models.Program
		if err := rows.Scan(&p.ID, &p.TeacherID, &p.Title, &p.Description, &p.Price, &p.CoverURL, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// UpdateProgram updates title/description/price/cover of an owned program.
func (r *Repository) UpdateProgram(ctx context.Context, teacherID uuid.UUID, p *models.Program) error {
	const q = `UPDATE programs SET title = $3, description = $4, price = $5, cover_url = $6, updated_at = NOW()
		WHERE id = $1 AND teacher_id = $2`
	tag, err := r.pool.Exec(ctx, q, p.ID, teacherID, p.Title, p.Description, p.Price, p.CoverURL)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// CreateUnit inserts a unit into a program.
func (r *Repository) CreateUnit(ctx context.Context, u *models.Unit) (*models.Unit, error) {
	const q = `INSERT INTO units (id, program_id, title, price, position)
		VALUES (gen_random_uuid(), $1, $2, $3, $4)
		RETURNING id, program_id, title, price, position, created_at`
	row := r.pool.QueryRow(ctx, q, u.ProgramID, u.Title, u.Price, u.Position)
	var out models.Unit
	if err := row.Scan(&out.ID, &out.ProgramID, &out.Title, &out.Price, &out.Position, &out.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert unit: %w", err)
	}
	return &out, nil
}

// ListUnits returns a program's units in display order.
func (r *Repository) ListUnits(ctx context.Context, programID uuid.UUID) ([]models.Unit, error) {
	const q = `SELECT id, program_id, title, price, position, created_at
		FROM units WHERE program_id = $1 ORDER BY position, created_at`
	rows, err := r.pool.Query(ctx, q, programID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Unit
	for rows.Next() {
		var u models.Unit
		if err := rows.Scan(&u.ID, &u.ProgramID, &u.Title, &u.Price, &u.Position, &u.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, u)
	}
	return list, rows.Err()
}

const lectureColumns = `id, program_id, unit_id, title, kind, price, prerequisite_id, has_video, is_live, video_url, material_key, position, created_at, updated_at`

func scanLecture(row pgx.Row) (*models.Lecture, error) {
	var l models.Lecture
	err := row.Scan(&l.ID, &l.ProgramID, &l.UnitID, &l.Title, &l.Kind, &l.Price, &l.PrerequisiteID,
		&l.HasVideo, &l.IsLive, &l.VideoURL, &l.MaterialKey, &l.Position, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// CreateLecture inserts a lecture/exam/document into a unit.
func (r *Repository) CreateLecture(ctx context.Context, l *models.Lecture) (*models.Lecture, error) {
	const q = `INSERT INTO lectures (id, program_id, unit_id, title, kind, price, prerequisite_id, has_video, is_live, video_url, material_key, position)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + lectureColumns
	out, err := scanLecture(r.pool.QueryRow(ctx, q,
		l.ProgramID, l.UnitID, l.Title, l.Kind, l.Price, l.PrerequisiteID,
		l.HasVideo, l.IsLive, l.VideoURL, l.MaterialKey, l.Position))
	if err != nil {
		return nil, fmt.Errorf("insert lecture: %w", err)
	}
	return out, nil
}

// GetLecture returns a lecture by id, or nil when absent.
func (r *Repository) GetLecture(ctx context.Context, id uuid.UUID) (*models.Lecture, error) {
	const q = `SELECT ` + lectureColumns + ` FROM lectures WHERE id = $1`
	l, err := scanLecture(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return l, nil
}

// ListLectures returns a unit's lectures in display order.
func (r *Repository) ListLectures(ctx context.Context, unitID uuid.UUID) ([]models.Lecture, error) {
	const q = `SELECT ` + lectureColumns + ` FROM lectures WHERE unit_id = $1 ORDER BY position, created_at`
	rows, err := r.pool.Query(ctx, q, unitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Lecture
	for rows.Next() {
		var l models.Lecture
		if err := rows.Scan(&l.ID, &l.ProgramID, &l.UnitID, &l.Title, &l.Kind, &l.Price, &l.PrerequisiteID,
			&l.HasVideo, &l.IsLive, &l.VideoURL, &l.MaterialKey, &l.Position, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, l)
	}
	return list, rows.Err()
}

// SetLectureMaterial stores the uploaded document's object key.
func (r *Repository) SetLectureMaterial(ctx context.Context, lectureID uuid.UUID, key string) error {
	const q = `UPDATE lectures SET material_key = $2, updated_at = NOW() WHERE id = $1`
	tag, err := r.pool.Exec(ctx, q, lectureID, key)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ResolveTarget maps a (kind, id) pair to its program and price so a code
// can be validated against it.
func (r *Repository) ResolveTarget(ctx context.Context, kind string, id uuid.UUID) (*redemption.Target, error) {
	var programID uuid.UUID
	var price float64
	var q string
	switch kind {
	case redemption.TargetProgram:
		q = `SELECT id, price FROM programs WHERE id = $1`
	case redemption.TargetUnit:
		q = `SELECT program_id, price FROM units WHERE id = $1`
	case redemption.TargetLecture:
		q = `SELECT program_id, price FROM lectures WHERE id = $1`
	default:
		return nil, redemption.ErrTargetNotFound
	}
	if err := r.pool.QueryRow(ctx, q, id).Scan(&programID, &price); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, redemption.ErrTargetNotFound
		}
		return nil, err
	}
	return &redemption.Target{Kind: kind, ID: id, ProgramID: programID, Price: price}, nil
}
