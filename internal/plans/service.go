package plans

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ta3leemy/backend/internal/models"
)

// Fallback ceilings applied when neither a teacher override nor a plan row
// exists. These mirror the basic tier.
const (
	DefaultMaxStudents = 100
	DefaultMaxStaff    = 1
)

const (
	planCachePrefix = "config:plan:"
	planCacheTTL    = 5 * time.Minute
)

// ErrLimitExceeded is returned when a plan ceiling blocks creating a new
// student or staff relationship.
var ErrLimitExceeded = errors.New("plan limit exceeded")

// Service resolves plan ceilings for a teacher and enforces them. The count
// check is advisory: two concurrent signups may both pass and overshoot the
// ceiling by one, which is accepted.
type Service struct {
	repo   *Repository
	cache  *redis.Client
	logger *zap.Logger
}

// NewService creates a plan limit service. cache may be nil (no caching).
func NewService(repo *Repository, cache *redis.Client, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, cache: cache, logger: logger}
}

// ResolveMaxStudents picks the effective student ceiling: teacher override,
// else the plan row, else the hardcoded default. 0 means unlimited.
func ResolveMaxStudents(override int, limits *models.PlanLimits) int {
	if override > 0 {
		return override
	}
	if limits != nil {
		return limits.MaxStudents
	}
	return DefaultMaxStudents
}

// ResolveMaxStaff picks the effective staff ceiling from the plan row, else
// the hardcoded default. 0 means unlimited.
func ResolveMaxStaff(limits *models.PlanLimits) int {
	if limits != nil {
		return limits.MaxStaff
	}
	return DefaultMaxStaff
}

// MaxStudents returns the effective student ceiling for a teacher.
func (s *Service) MaxStudents(ctx context.Context, teacherID uuid.UUID) (int, error) {
	planKey, override, err := s.repo.TeacherPlan(ctx, teacherID)
	if err != nil {
		return 0, err
	}
	limits, err := s.planLimits(ctx, planKey)
	if err != nil {
		return 0, err
	}
	return ResolveMaxStudents(override, limits), nil
}

// MaxStaff returns the effective staff ceiling for a teacher.
func (s *Service) MaxStaff(ctx context.Context, teacherID uuid.UUID) (int, error) {
	planKey, _, err := s.repo.TeacherPlan(ctx, teacherID)
	if err != nil {
		return 0, err
	}
	limits, err := s.planLimits(ctx, planKey)
	if err != nil {
		return 0, err
	}
	return ResolveMaxStaff(limits), nil
}

// CheckStudentCapacity returns ErrLimitExceeded when currentCount has reached
// the teacher's student ceiling. Call before creating a NEW student
// relationship only; existing students keep receiving grants at the cap.
func (s *Service) CheckStudentCapacity(ctx context.Context, teacherID uuid.UUID, currentCount int) error {
	max, err := s.MaxStudents(ctx, teacherID)
	if err != nil {
		return err
	}
	if max > 0 && currentCount >= max {
		return ErrLimitExceeded
	}
	return nil
}

// CheckStaffCapacity returns ErrLimitExceeded when currentCount has reached
// the teacher's staff ceiling.
func (s *Service) CheckStaffCapacity(ctx context.Context, teacherID uuid.UUID, currentCount int) error {
	max, err := s.MaxStaff(ctx, teacherID)
	if err != nil {
		return err
	}
	if max > 0 && currentCount >= max {
		return ErrLimitExceeded
	}
	return nil
}

// planLimits reads a plan row through the redis cache. Cache failures fall
// back to the database; the gate must not break when redis is down.
func (s *Service) planLimits(ctx context.Context, planKey string) (*models.PlanLimits, error) {
	key := planCachePrefix + planKey
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, key).Result(); err == nil {
			var pl models.PlanLimits
			if err := json.Unmarshal([]byte(raw), &pl); err == nil {
				return &pl, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn("plan cache read failed", zap.Error(err), zap.String("plan_key", planKey))
		}
	}

	limits, err := s.repo.Get(ctx, planKey)
	if err != nil {
		return nil, err
	}
	if limits != nil && s.cache != nil {
		if raw, err := json.Marshal(limits); err == nil {
			if err := s.cache.Set(ctx, key, raw, planCacheTTL).Err(); err != nil {
				s.logger.Warn("plan cache write failed", zap.Error(err), zap.String("plan_key", planKey))
			}
		}
	}
	return limits, nil
}
