package models

import (
	"time"

	"github.com/google/uuid"
)

// Lecture kinds.
const (
	ContentKindLecture  = "lecture"
	ContentKindExam     = "exam"
	ContentKindDocument = "document"
)

// Program is a teacher's training program, the top of the content tree and
// the unit of enrollment.
type Program struct {
	ID          uuid.UUID `json:"id"`
	TeacherID   uuid.UUID `json:"teacher_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Price       float64   `json:"price"`
	CoverURL    string    `json:"cover_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Unit is a purchasable course inside a program.
type Unit struct {
	ID        uuid.UUID `json:"id"`
	ProgramID uuid.UUID `json:"program_id"`
	Title     string    `json:"title"`
	Price     float64   `json:"price"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
}

// Lecture is a single content item: a video lecture, an exam or a document.
// Price > 0 means the item can be bought on its own with a generic code.
// PrerequisiteID points at a lecture that should be completed first.
type Lecture struct {
	ID             uuid.UUID  `json:"id"`
	ProgramID      uuid.UUID  `json:"program_id"`
	UnitID         uuid.UUID  `json:"unit_id"`
	Title          string     `json:"title"`
	Kind           string     `json:"kind"`
	Price          float64    `json:"price"`
	PrerequisiteID *uuid.UUID `json:"prerequisite_id,omitempty"`
	HasVideo       bool       `json:"has_video"`
	IsLive         bool       `json:"is_live"`
	VideoURL       string     `json:"video_url,omitempty"`
	MaterialKey    string     `json:"material_key,omitempty"` // S3 object key for documents
	Position       int        `json:"position"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
