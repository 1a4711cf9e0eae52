package models

import "time"

// Known plan keys. Keys are data, not an enum: admins may add tiers to the
// plan_limits table without a deploy.
const (
	PlanBasic = "basic"
	PlanPro   = "pro"
	PlanElite = "elite"
)

// PlanLimits is one row of the shared pricing/limits table. A ceiling of 0
// means unlimited.
type PlanLimits struct {
	PlanKey      string    `json:"plan_key"`
	MaxStudents  int       `json:"max_students"`
	MaxStaff     int       `json:"max_staff"`
	MonthlyPrice float64   `json:"monthly_price"`
	UpdatedAt    time.Time `json:"updated_at"`
}
