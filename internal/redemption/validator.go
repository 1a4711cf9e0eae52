package redemption

import (
	"github.com/google/uuid"

	"github.com/ta3leemy/backend/internal/models"
)

// ValidateForTarget decides whether a code may be spent on a target. It is
// a pure check with no side effects; the database-level consume still
// re-verifies availability afterwards.
//
// A targeted code (TargetID set) must name exactly the requested target and
// its price is irrelevant. A generic code must match the target's price to
// the cent in both directions: a code worth more than the item would waste
// the student's money, a code worth less would undersell the teacher.
func ValidateForTarget(code *models.AccessCode, targetID uuid.UUID, targetPrice float64) error {
	if code == nil || !code.Available() {
		return ErrCodeNotFound
	}
	if code.TargetID != nil {
		if *code.TargetID != targetID {
			return ErrWrongTarget
		}
		return nil
	}
	if code.Price > targetPrice {
		return ErrValueTooHigh
	}
	if code.Price < targetPrice {
		return ErrValueTooLow
	}
	return nil
}
