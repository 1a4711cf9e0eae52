package redemption

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ta3leemy/backend/internal/codes"
	"github.com/ta3leemy/backend/internal/models"
	"github.com/ta3leemy/backend/pkg/queue"
)

// Target kinds a code can be redeemed against.
const (
	TargetProgram = "program"
	TargetUnit    = "unit"
	TargetLecture = "lecture"
)

// Target is a resolved redemption target: the program it lives in and the
// price the code must cover.
type Target struct {
	Kind      string
	ID        uuid.UUID
	ProgramID uuid.UUID
	Price     float64
}

// Catalog resolves a target id to its program and price. Returns
// ErrTargetNotFound when the id does not exist for the given kind.
type Catalog interface {
	ResolveTarget(ctx context.Context, kind string, id uuid.UUID) (*Target, error)
}

type codeStore interface {
	FindAvailable(ctx context.Context, code string) (*models.AccessCode, error)
	Consume(ctx context.Context, codeID, studentID uuid.UUID) (*models.AccessCode, error)
}

type grantStore interface {
	GrantFull(ctx context.Context, studentID, programID uuid.UUID, grantedBy *uuid.UUID) (*models.Enrollment, error)
	GrantUnit(ctx context.Context, studentID, programID, unitID uuid.UUID, grantedBy *uuid.UUID) (*models.Enrollment, error)
	GrantLecture(ctx context.Context, studentID, programID, lectureID uuid.UUID, grantedBy *uuid.UUID) (*models.Enrollment, error)
	AppendEvent(ctx context.Context, ev *models.EnrollmentEvent) error
}

type relationshipStore interface {
	Exists(ctx context.Context, teacherID, studentID uuid.UUID) (bool, error)
	Count(ctx context.Context, teacherID uuid.UUID) (int, error)
	Link(ctx context.Context, teacherID, studentID uuid.UUID) error
}

type capacityChecker interface {
	CheckStudentCapacity(ctx context.Context, teacherID uuid.UUID, current int) error
}

type enqueuer interface {
	EnqueueEnrollmentSync(ctx context.Context, payload queue.EnrollmentSyncPayload) error
}

// Service orchestrates a redemption: validate, gate on the teacher's plan,
// consume the code, then apply the grant. Consumption is the point of no
// return; everything after it is applied best-effort and replayed by the
// worker when it fails.
type Service struct {
	codes    codeStore
	grants   grantStore
	links    relationshipStore
	capacity capacityChecker
	catalog  Catalog
	queue    enqueuer
	logger   *zap.Logger
}

func NewService(codes codeStore, grants grantStore, links relationshipStore, capacity capacityChecker, catalog Catalog, q enqueuer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{codes: codes, grants: grants, links: links, capacity: capacity, catalog: catalog, queue: q, logger: logger}
}

// Result is what a successful (or partially successful) redemption returns.
type Result struct {
	Code       *models.AccessCode `json:"code"`
	Enrollment *models.Enrollment `json:"enrollment,omitempty"`
	Pending    bool               `json:"pending"`
}

// Redeem spends codeStr on the target for studentID.
//
// Errors before Consume leave the code untouched and are safe to retry.
// After Consume the code is spent for good: a failed grant returns
// ErrPartialApply with the replay job already enqueued.
func (s *Service) Redeem(ctx context.Context, studentID uuid.UUID, codeStr, targetKind string, targetID uuid.UUID) (*Result, error) {
	target, err := s.catalog.ResolveTarget(ctx, targetKind, targetID)
	if err != nil {
		return nil, err
	}

	code, err := s.codes.FindAvailable(ctx, codeStr)
	if err != nil {
		return nil, fmt.Errorf("look up code: %w", err)
	}
	if err := ValidateForTarget(code, targetID, target.Price); err != nil {
		return nil, err
	}

	linked, err := s.links.Exists(ctx, code.TeacherID, studentID)
	if err != nil {
		return nil, fmt.Errorf("check teacher link: %w", err)
	}
	if !linked {
		current, err := s.links.Count(ctx, code.TeacherID)
		if err != nil {
			return nil, fmt.Errorf("count students: %w", err)
		}
		if err := s.capacity.CheckStudentCapacity(ctx, code.TeacherID, current); err != nil {
			return nil, err
		}
	}

	consumed, err := s.codes.Consume(ctx, code.ID, studentID)
	if err != nil {
		if errors.Is(err, codes.ErrNotAvailable) {
			return nil, ErrAlreadyRedeemed
		}
		return nil, fmt.Errorf("consume code: %w", err)
	}

	enrollment, grantErr := s.applyGrant(ctx, studentID, target, consumed)
	if grantErr != nil {
		s.logger.Error("grant failed after code consumption, queueing replay",
			zap.String("code", consumed.Code),
			zap.String("student_id", studentID.String()),
			zap.Error(grantErr))
		payload := queue.EnrollmentSyncPayload{
			StudentID: studentID,
			ProgramID: target.ProgramID,
			TeacherID: &consumed.TeacherID,
			Kind:      grantKindFor(target.Kind),
			TargetID:  targetID,
			CodeUsed:  consumed.Code,
			Price:     consumed.Price,
		}
		if qErr := s.queue.EnqueueEnrollmentSync(ctx, payload); qErr != nil {
			s.logger.Error("failed to enqueue enrollment replay", zap.Error(qErr))
		}
		return &Result{Code: consumed, Pending: true}, ErrPartialApply
	}

	if err := s.links.Link(ctx, consumed.TeacherID, studentID); err != nil {
		s.logger.Warn("failed to link student to teacher", zap.Error(err))
	}
	ev := &models.EnrollmentEvent{
		StudentID: studentID,
		ProgramID: target.ProgramID,
		TeacherID: &consumed.TeacherID,
		Source:    models.GrantSourceCode,
		CodeUsed:  consumed.Code,
		Price:     consumed.Price,
	}
	if err := s.grants.AppendEvent(ctx, ev); err != nil {
		s.logger.Warn("failed to append enrollment event", zap.Error(err))
	}

	return &Result{Code: consumed, Enrollment: enrollment}, nil
}

func (s *Service) applyGrant(ctx context.Context, studentID uuid.UUID, target *Target, code *models.AccessCode) (*models.Enrollment, error) {
	grantedBy := &code.TeacherID
	switch target.Kind {
	case TargetProgram:
		return s.grants.GrantFull(ctx, studentID, target.ProgramID, grantedBy)
	case TargetUnit:
		return s.grants.GrantUnit(ctx, studentID, target.ProgramID, target.ID, grantedBy)
	case TargetLecture:
		return s.grants.GrantLecture(ctx, studentID, target.ProgramID, target.ID, grantedBy)
	}
	return nil, fmt.Errorf("unknown target kind %q", target.Kind)
}

func grantKindFor(targetKind string) queue.GrantKind {
	switch targetKind {
	case TargetUnit:
		return queue.GrantUnit
	case TargetLecture:
		return queue.GrantLecture
	default:
		return queue.GrantFull
	}
}
