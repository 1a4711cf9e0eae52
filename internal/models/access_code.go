package models

import (
	"time"

	"github.com/google/uuid"
)

// Access code lifecycle. A code transitions from available to used exactly
// once and is never deleted; used codes stay behind as the sales ledger.
const (
	CodeStatusAvailable = "available"
	CodeStatusUsed      = "used"
)

// AccessCode is a single-use redemption token sold offline by a teacher.
// Price is the face value: for generic codes it must match the target's
// price exactly, and it is the amount credited to the teacher on redemption.
// TargetID, when set, pins the code to one specific unit or lecture.
type AccessCode struct {
	ID        uuid.UUID  `json:"id"`
	Code      string     `json:"code"`
	Status    string     `json:"status"`
	Price     float64    `json:"price"`
	TargetID  *uuid.UUID `json:"target_id,omitempty"`
	TeacherID uuid.UUID  `json:"teacher_id"`
	UsedBy    *uuid.UUID `json:"used_by,omitempty"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Available reports whether the code can still be redeemed.
func (c *AccessCode) Available() bool {
	return c.Status == CodeStatusAvailable
}
