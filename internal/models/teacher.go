package models

import (
	"time"

	"github.com/google/uuid"
)

// TeacherProfile is the mini-platform profile attached to a teacher user.
// TotalRevenue is a lifetime counter incremented atomically when one of the
// teacher's access codes is redeemed.
type TeacherProfile struct {
	UserID           uuid.UUID `json:"user_id"`
	PlatformName     string    `json:"platform_name"`
	Slug             string    `json:"slug"`
	LogoURL          string    `json:"logo_url,omitempty"`
	SubscriptionPlan string    `json:"subscription_plan"`
	// MaxStudentsOverride, when > 0, takes precedence over the plan ceiling.
	MaxStudentsOverride int       `json:"max_students_override,omitempty"`
	TotalRevenue        float64   `json:"total_revenue"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// StaffMember is a staff account invited by a teacher, carrying granular
// permission flags over the teacher's platform.
type StaffMember struct {
	ID          uuid.UUID        `json:"id"`
	OwnerID     uuid.UUID        `json:"owner_id"`
	UserID      uuid.UUID        `json:"user_id"`
	Email       string           `json:"email"`
	FullName    string           `json:"full_name"`
	Status      string           `json:"status"` // active | disabled
	Permissions StaffPermissions `json:"permissions"`
	CreatedAt   time.Time        `json:"created_at"`
}

// StaffPermissions are per-feature grants for a staff member.
type StaffPermissions struct {
	ManageStudents bool `json:"manage_students"`
	ManageContent  bool `json:"manage_content"`
	ManageCodes    bool `json:"manage_codes"`
	GradeExams     bool `json:"grade_exams"`
	ViewAnalytics  bool `json:"view_analytics"`
}

// Allows reports whether the named permission is granted. Names match the
// JSON field names.
func (p StaffPermissions) Allows(perm string) bool {
	switch perm {
	case "manage_students":
		return p.ManageStudents
	case "manage_content":
		return p.ManageContent
	case "manage_codes":
		return p.ManageCodes
	case "grade_exams":
		return p.GradeExams
	case "view_analytics":
		return p.ViewAnalytics
	}
	return false
}
