package staff

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ta3leemy/backend/internal/models"
)

const staffColumns = `id, owner_id, user_id, email, full_name, status, permissions, created_at`

// Repository handles staff membership persistence. Permissions are stored
// as jsonb and scanned through pgx's native json support.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanStaff(row pgx.Row) (*models.StaffMember, error) {
	var m models.StaffMember
	err := row.Scan(&m.ID, &m.OwnerID, &m.UserID, &m.Email, &m.FullName, &m.Status, &m.Permissions, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Count returns the number of active staff members under a teacher.
func (r *Repository) Count(ctx context.Context, ownerID uuid.UUID) (int, error) {
	const q = `SELECT COUNT(*) FROM staff_members WHERE owner_id = $1 AND status = 'active'`
	var n int
	err := r.pool.QueryRow(ctx, q, ownerID).Scan(&n)
	return n, err
}

// Create adds a staff member under a teacher.
func (r *Repository) Create(ctx context.Context, m *models.StaffMember) (*models.StaffMember, error) {
	const q = `INSERT INTO staff_members (id, owner_id, user_id, email, full_name, status, permissions)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, 'active', $5)
		RETURNING ` + staffColumns
	out, err := scanStaff(r.pool.QueryRow(ctx, q, m.OwnerID, m.UserID, m.Email, m.FullName, m.Permissions))
	if err != nil {
		return nil, fmt.Errorf("insert staff member: %w", err)
	}
	return out, nil
}

// GetByUserID returns the staff membership behind a staff user account, or
// nil when the account has none.
func (r *Repository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.StaffMember, error) {
	const q = `SELECT ` + staffColumns + ` FROM staff_members WHERE user_id = $1`
	m, err := scanStaff(r.pool.QueryRow(ctx, q, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return m, err
}

// List returns all staff under a teacher.
func (r *Repository) List(ctx context.Context, ownerID uuid.UUID) ([]models.StaffMember, error) {
	const q = `SELECT ` + staffColumns + ` FROM staff_members WHERE owner_id = $1 ORDER BY created_at`
	rows, err := r.pool.Query(ctx, q, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.StaffMember
	for rows.Next() {
		var m models.StaffMember
		if err := rows.Scan(&m.ID, &m.OwnerID, &m.UserID, &m.Email, &m.FullName, &m.Status, &m.Permissions, &m.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// UpdatePermissions replaces a staff member's permission set.
func (r *Repository) UpdatePermissions(ctx context.Context, ownerID, staffID uuid.UUID, perms models.StaffPermissions) error {
	const q = `UPDATE staff_members SET permissions = $3 WHERE id = $2 AND owner_id = $1`
	tag, err := r.pool.Exec(ctx, q, ownerID, staffID, perms)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// SetStatus activates or disables a staff member. A disabled member frees a
// seat under the plan's staff ceiling and loses access on the next request.
func (r *Repository) SetStatus(ctx context.Context, ownerID, staffID uuid.UUID, status string) error {
	const q = `UPDATE staff_members SET status = $3 WHERE id = $2 AND owner_id = $1`
	tag, err := r.pool.Exec(ctx, q, ownerID, staffID, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
