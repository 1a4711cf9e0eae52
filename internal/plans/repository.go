package plans

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ta3leemy/backend/internal/models"
)

// Repository reads and writes the shared plan/pricing table plus the
// per-teacher plan fields it resolves against.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a plans repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get returns the limits row for a plan key, or nil when the key is unknown.
func (r *Repository) Get(ctx context.Context, planKey string) (*models.PlanLimits, error) {
	const q = `SELECT plan_key, max_students, max_staff, monthly_price, updated_at FROM plan_limits WHERE plan_key = $1`
	var pl models.PlanLimits
	err := r.pool.QueryRow(ctx, q, planKey).Scan(&pl.PlanKey, &pl.MaxStudents, &pl.MaxStaff, &pl.MonthlyPrice, &pl.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &pl, nil
}

// List returns all plan rows ordered by monthly price.
func (r *Repository) List(ctx context.Context) ([]models.PlanLimits, error) {
	rows, err := r.pool.Query(ctx, `SELECT plan_key, max_students, max_staff, monthly_price, updated_at FROM plan_limits ORDER BY monthly_price`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.PlanLimits
	for rows.Next() {
		var pl models.PlanLimits
		if err := rows.Scan(&pl.PlanKey, &pl.MaxStudents, &pl.MaxStaff, &pl.MonthlyPrice, &pl.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, pl)
	}
	return list, rows.Err()
}

// Upsert writes a plan row (admin pricing management).
func (r *Repository) Upsert(ctx context.Context, pl *models.PlanLimits) error {
	const q = `INSERT INTO plan_limits (plan_key, max_students, max_staff, monthly_price)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (plan_key) DO UPDATE SET
			max_students = EXCLUDED.max_students,
			max_staff = EXCLUDED.max_staff,
			monthly_price = EXCLUDED.monthly_price,
			updated_at = NOW()
		RETURNING updated_at`
	return r.pool.QueryRow(ctx, q, pl.PlanKey, pl.MaxStudents, pl.MaxStaff, pl.MonthlyPrice).Scan(&pl.UpdatedAt)
}

// TeacherPlan returns the teacher's plan key and per-teacher student override
// (0 = no override).
func (r *Repository) TeacherPlan(ctx context.Context, teacherID uuid.UUID) (planKey string, override int, err error) {
	const q = `SELECT COALESCE(subscription_plan, 'basic'), COALESCE(max_students_override, 0)
		FROM teacher_profiles WHERE user_id = $1`
	err = r.pool.QueryRow(ctx, q, teacherID).Scan(&planKey, &override)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.PlanBasic, 0, nil
		}
		return "", 0, err
	}
	return planKey, override, nil
}
