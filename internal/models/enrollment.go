package models

import (
	"time"

	"github.com/google/uuid"
)

// Enrollment access types.
const (
	AccessFull    = "full"
	AccessPartial = "partial"
)

// Enrollment records what a student has unlocked inside a training program.
// There is at most one row per (student, program) pair. Full access makes the
// allow-lists irrelevant; partial access unlocks exactly the listed units and
// lectures. Grants only ever add entries, there is no revocation path.
type Enrollment struct {
	ID               uuid.UUID   `json:"id"`
	StudentID        uuid.UUID   `json:"student_id"`
	ProgramID        uuid.UUID   `json:"program_id"`
	AccessType       string      `json:"access_type"`
	UnlockedUnits    []uuid.UUID `json:"unlocked_units"`
	UnlockedLectures []uuid.UUID `json:"unlocked_lectures"`
	GrantedBy        *uuid.UUID  `json:"granted_by,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// IsUnlocked reports whether the student may view a content item. contentID
// is the lecture/exam/document id, unitID the unit it belongs to; either may
// be uuid.Nil when not applicable. A nil Enrollment unlocks nothing.
func (e *Enrollment) IsUnlocked(contentID, unitID uuid.UUID) bool {
	if e == nil {
		return false
	}
	if e.AccessType == AccessFull {
		return true
	}
	if unitID != uuid.Nil {
		for _, id := range e.UnlockedUnits {
			if id == unitID {
				return true
			}
		}
	}
	if contentID != uuid.Nil {
		for _, id := range e.UnlockedLectures {
			if id == contentID {
				return true
			}
		}
	}
	return false
}

// Grant sources recorded in the enrollment history.
const (
	GrantSourceCode   = "code"
	GrantSourceManual = "manual"
	GrantSourceRetry  = "retry"
)

// EnrollmentEvent is a best-effort audit record appended after every grant.
type EnrollmentEvent struct {
	ID        uuid.UUID  `json:"id"`
	StudentID uuid.UUID  `json:"student_id"`
	ProgramID uuid.UUID  `json:"program_id"`
	TeacherID *uuid.UUID `json:"teacher_id,omitempty"`
	Source    string     `json:"source"`
	CodeUsed  string     `json:"code_used,omitempty"`
	Price     float64    `json:"price"`
	CreatedAt time.Time  `json:"created_at"`
}
