package codes

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ta3leemy/backend/internal/models"
	"github.com/ta3leemy/backend/pkg/utils"
)

// ErrNotAvailable is returned by Consume when the code row is no longer in
// the available state (another redemption won the race, or the code never
// existed).
var ErrNotAvailable = errors.New("access code not available")

// createAttempts bounds regenerate-and-retry on code string collisions.
const createAttempts = 5

// Repository handles access code persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a codes repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const codeColumns = `id, code, status, price, target_id, teacher_id, used_by, used_at, created_at`

func scanCode(row pgx.Row) (*models.AccessCode, error) {
	var c models.AccessCode
	err := row.Scan(&c.ID, &c.Code, &c.Status, &c.Price, &c.TargetID, &c.TeacherID, &c.UsedBy, &c.UsedAt, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Create mints one access code for a teacher, generating the code string and
// retrying on the (rare) unique-constraint collision.
func (r *Repository) Create(ctx context.Context, teacherID uuid.UUID, price float64, targetID *uuid.UUID) (*models.AccessCode, error) {
	const q = `INSERT INTO access_codes (id, code, status, price, target_id, teacher_id)
		VALUES (gen_random_uuid(), $1, 'available', $2, $3, $4)
		RETURNING ` + codeColumns

	for attempt := 0; attempt < createAttempts; attempt++ {
		codeStr, err := utils.GenerateAccessCode()
		if err != nil {
			return nil, fmt.Errorf("generate code: %w", err)
		}
		code, err := scanCode(r.pool.QueryRow(ctx, q, codeStr, price, targetID, teacherID))
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
				continue
			}
			return nil, fmt.Errorf("insert code: %w", err)
		}
		return code, nil
	}
	return nil, fmt.Errorf("insert code: exhausted %d attempts", createAttempts)
}

// CreateBatch mints count codes with identical price/target.
func (r *Repository) CreateBatch(ctx context.Context, teacherID uuid.UUID, price float64, targetID *uuid.UUID, count int) ([]models.AccessCode, error) {
	list := make([]models.AccessCode, 0, count)
	for i := 0; i < count; i++ {
		code, err := r.Create(ctx, teacherID, price, targetID)
		if err != nil {
			return list, err
		}
		list = append(list, *code)
	}
	return list, nil
}

// FindAvailable returns the available code with the given string, or nil.
// Lookup is case-sensitive exact match.
func (r *Repository) FindAvailable(ctx context.Context, codeStr string) (*models.AccessCode, error) {
	const q = `SELECT ` + codeColumns + ` FROM access_codes WHERE code = $1 AND status = 'available'`
	code, err := scanCode(r.pool.QueryRow(ctx, q, codeStr))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return code, nil
}

// Consume atomically transitions a code from available to used, stamping
// used_by/used_at, and credits the owning teacher's lifetime revenue in the
// same transaction. The conditional UPDATE re-checks status so that of two
// concurrent redemptions exactly one succeeds; the loser gets
// ErrNotAvailable. This transaction is the durability boundary of a
// redemption; enrollment grants happen after it and never roll it back.
func (r *Repository) Consume(ctx context.Context, codeID, studentID uuid.UUID) (*models.AccessCode, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	const consumeQ = `UPDATE access_codes
		SET status = 'used', used_by = $2, used_at = NOW()
		WHERE id = $1 AND status = 'available'
		RETURNING ` + codeColumns
	code, err := scanCode(tx.QueryRow(ctx, consumeQ, codeID, studentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotAvailable
		}
		return nil, fmt.Errorf("consume code: %w", err)
	}

	if code.Price > 0 {
		const revenueQ = `UPDATE teacher_profiles
			SET total_revenue = total_revenue + $2, updated_at = NOW()
			WHERE user_id = $1`
		if _, err := tx.Exec(ctx, revenueQ, code.TeacherID, code.Price); err != nil {
			return nil, fmt.Errorf("credit teacher revenue: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return code, nil
}

// ListByTeacher returns a teacher's codes, optionally filtered by status.
func (r *Repository) ListByTeacher(ctx context.Context, teacherID uuid.UUID, status string) ([]models.AccessCode, error) {
	q := `SELECT ` + codeColumns + ` FROM access_codes WHERE teacher_id = $1`
	args := []any{teacherID}
	if status != "" {
		q += ` AND status = $2`
		args = append(args, status)
	}
	q += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.AccessCode
	for rows.Next() {
		var c models.AccessCode
		if err := rows.Scan(&c.ID, &c.Code, &c.Status, &c.Price, &c.TargetID, &c.TeacherID, &c.UsedBy, &c.UsedAt, &c.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

// Summary returns sold-code count and gross revenue for a teacher.
func (r *Repository) Summary(ctx context.Context, teacherID uuid.UUID) (sold int, revenue float64, err error) {
	const q = `SELECT COUNT(*), COALESCE(SUM(price), 0)
		FROM access_codes WHERE teacher_id = $1 AND status = 'used'`
	err = r.pool.QueryRow(ctx, q, teacherID).Scan(&sold, &revenue)
	return sold, revenue, err
}
