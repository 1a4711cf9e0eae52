package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ta3leemy/backend/internal/models"
	"github.com/ta3leemy/backend/pkg/queue"
)

type jobQueue interface {
	Dequeue(ctx context.Context) (*queue.Job, string, error)
	Retry(ctx context.Context, job *queue.Job) error
}

type grantStore interface {
	GrantFull(ctx context.Context, studentID, programID uuid.UUID, grantedBy *uuid.UUID) (*models.Enrollment, error)
	GrantUnit(ctx context.Context, studentID, programID, unitID uuid.UUID, grantedBy *uuid.UUID) (*models.Enrollment, error)
	GrantLecture(ctx context.Context, studentID, programID, lectureID uuid.UUID, grantedBy *uuid.UUID) (*models.Enrollment, error)
	AppendEvent(ctx context.Context, ev *models.EnrollmentEvent) error
}

type rosterStore interface {
	Link(ctx context.Context, teacherID, studentID uuid.UUID) error
}

// Processor replays enrollment grants whose first write failed after the
// access code was already consumed. Grants are idempotent upserts, so a job
// that half-succeeded last time is safe to run again in full.
type Processor struct {
	queue       jobQueue
	enrollRepo  grantStore
	studentRepo rosterStore
	logger      *zap.Logger
	backoff     time.Duration
}

func NewProcessor(q jobQueue, enrollRepo grantStore, studentRepo rosterStore, logger *zap.Logger) *Processor {
	return &Processor{
		queue:       q,
		enrollRepo:  enrollRepo,
		studentRepo: studentRepo,
		logger:      logger,
		backoff:     queue.RetryBackoff,
	}
}

// Run consumes jobs until ctx is cancelled. After a failed job or a dequeue
// error it waits out the retry backoff, so a database or Redis outage does
// not burn through all attempts while the dependency is still down.
func (p *Processor) Run(ctx context.Context) error {
	p.logger.Info("enrollment worker started")
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("enrollment worker stopping")
			return ctx.Err()
		default:
		}

		job, _, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.logger.Error("dequeue failed", zap.Error(err))
			p.wait(ctx)
			continue
		}
		if job == nil {
			continue
		}

		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed",
				zap.String("job_id", job.ID),
				zap.Int("attempt", job.Attempt),
				zap.Error(err))
			if err := p.queue.Retry(ctx, job); err != nil {
				p.logger.Error("retry scheduling failed", zap.String("job_id", job.ID), zap.Error(err))
			}
			p.wait(ctx)
		}
	}
}

func (p *Processor) wait(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Process applies one job.
func (p *Processor) Process(ctx context.Context, job *queue.Job) error {
	switch job.Type {
	case queue.JobTypeEnrollmentSync:
		var payload queue.EnrollmentSyncPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
		return p.applyGrant(ctx, payload)
	default:
		p.logger.Warn("unknown job type dropped", zap.String("type", string(job.Type)))
		return nil
	}
}

func (p *Processor) applyGrant(ctx context.Context, payload queue.EnrollmentSyncPayload) error {
	var err error
	switch payload.Kind {
	case queue.GrantUnit:
		_, err = p.enrollRepo.GrantUnit(ctx, payload.StudentID, payload.ProgramID, payload.TargetID, payload.TeacherID)
	case queue.GrantLecture:
		_, err = p.enrollRepo.GrantLecture(ctx, payload.StudentID, payload.ProgramID, payload.TargetID, payload.TeacherID)
	default:
		_, err = p.enrollRepo.GrantFull(ctx, payload.StudentID, payload.ProgramID, payload.TeacherID)
	}
	if err != nil {
		return fmt.Errorf("replay grant: %w", err)
	}

	if payload.TeacherID != nil {
		if err := p.studentRepo.Link(ctx, *payload.TeacherID, payload.StudentID); err != nil {
			p.logger.Warn("failed to link student to teacher", zap.Error(err))
		}
	}
	ev := &models.EnrollmentEvent{
		StudentID: payload.StudentID,
		ProgramID: payload.ProgramID,
		TeacherID: payload.TeacherID,
		Source:    models.GrantSourceRetry,
		CodeUsed:  payload.CodeUsed,
		Price:     payload.Price,
	}
	if err := p.enrollRepo.AppendEvent(ctx, ev); err != nil {
		p.logger.Warn("failed to append enrollment event", zap.Error(err))
	}

	p.logger.Info("enrollment grant replayed",
		zap.String("student_id", payload.StudentID.String()),
		zap.String("program_id", payload.ProgramID.String()),
		zap.String("kind", string(payload.Kind)))
	return nil
}
