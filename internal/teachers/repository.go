package teachers

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ta3leemy/backend/internal/models"
)

// Repository handles teacher profile persistence.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const profileColumns = `user_id, platform_name, slug, logo_url, subscription_plan, max_students_override, total_revenue, created_at, updated_at`

func scanProfile(row pgx.Row) (*models.TeacherProfile, error) {
	var p models.TeacherProfile
	err := row.Scan(&p.UserID, &p.PlatformName, &p.Slug, &p.LogoURL, &p.SubscriptionPlan,
		&p.MaxStudentsOverride, &p.TotalRevenue, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Get returns a teacher's profile, or nil when absent.
func (r *Repository) Get(ctx context.Context, userID uuid.UUID) (*models.TeacherProfile, error) {
	const q = `SELECT ` + profileColumns + ` FROM teacher_profiles WHERE user_id = $1`
	p, err := scanProfile(r.pool.QueryRow(ctx, q, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

// GetBySlug resolves a public platform slug to its profile, or nil.
func (r *Repository) GetBySlug(ctx context.Context, slug string) (*models.TeacherProfile, error) {
	const q = `SELECT ` + profileColumns + ` FROM teacher_profiles WHERE slug = $1`
	p, err := scanProfile(r.pool.QueryRow(ctx, q, slug))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

// Update changes the display fields of a profile.
func (r *Repository) Update(ctx context.Context, userID uuid.UUID, platformName, logoURL string) error {
	const q = `UPDATE teacher_profiles SET platform_name = $2, logo_url = $3, updated_at = NOW()
		WHERE user_id = $1`
	tag, err := r.pool.Exec(ctx, q, userID, platformName, logoURL)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// SetPlan moves a teacher to another subscription plan. Admin only.
func (r *Repository) SetPlan(ctx context.Context, userID uuid.UUID, plan string, maxStudentsOverride int) error {
	const q = `UPDATE teacher_profiles SET subscription_plan = $2, max_students_override = $3, updated_at = NOW()
		WHERE user_id = $1`
	tag, err := r.pool.Exec(ctx, q, userID, plan, maxStudentsOverride)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
