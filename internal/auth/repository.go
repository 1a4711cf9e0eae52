package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ta3leemy/backend/internal/models"
)

// Repository handles user persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an auth repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id, email, password_hash, full_name, role,
	COALESCE(phone,''), COALESCE(academic_year,''), COALESCE(device_id,''), is_banned,
	created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.FullName, &u.Role,
		&u.Phone, &u.AcademicYear, &u.DeviceID, &u.IsBanned, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByID returns a user by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// GetByEmail returns a user by email.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

// CreateUserParams holds optional profile fields for registration.
type CreateUserParams struct {
	Phone        string
	AcademicYear string
	DeviceID     string
}

// Create inserts a new user.
func (r *Repository) Create(ctx context.Context, email, passwordHash, fullName string, role models.Role, profile *CreateUserParams) (*models.User, error) {
	const q = `INSERT INTO users (email, password_hash, full_name, role, phone, academic_year, device_id)
		VALUES ($1, $2, $3, $4, NULLIF($5,''), NULLIF($6,''), NULLIF($7,''))
		RETURNING ` + userColumns
	phone, year, device := "", "", ""
	if profile != nil {
		phone, year, device = profile.Phone, profile.AcademicYear, profile.DeviceID
	}
	return scanUser(r.pool.QueryRow(ctx, q, email, passwordHash, fullName, string(role), phone, year, device))
}

// CreateTeacherProfile inserts the mini-platform profile row for a teacher.
func (r *Repository) CreateTeacherProfile(ctx context.Context, userID uuid.UUID, platformName, slug string) error {
	const q = `INSERT INTO teacher_profiles (user_id, platform_name, slug, subscription_plan)
		VALUES ($1, $2, $3, 'basic')
		ON CONFLICT (user_id) DO NOTHING`
	_, err := r.pool.Exec(ctx, q, userID, platformName, slug)
	return err
}

// SetBanned flips the banned flag on a user (admin moderation).
func (r *Repository) SetBanned(ctx context.Context, id uuid.UUID, banned bool) error {
	const q = `UPDATE users SET is_banned = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id, banned)
	return err
}
