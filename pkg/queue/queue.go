package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// QueueEnrollments is the Redis list key for enrollment reconciliation jobs.
	QueueEnrollments = "worker:enrollments"
	// QueueDLQ is the dead-letter queue for failed jobs after retries.
	QueueDLQ = "worker:dlq"
	// MaxRetries is the number of times to retry a job before moving to DLQ.
	MaxRetries = 5
	// RetryBackoff is the delay between retries.
	RetryBackoff = 10 * time.Second
)

// JobType identifies the job kind.
type JobType string

const (
	// JobTypeEnrollmentSync re-applies an enrollment grant whose write failed
	// after a code was already consumed. A consumed code must never be left
	// without a retrievable grant, so these jobs retry until the DLQ.
	JobTypeEnrollmentSync JobType = "enrollment_sync"
)

// GrantKind selects what an enrollment sync job unlocks.
type GrantKind string

const (
	GrantFull    GrantKind = "full"
	GrantUnit    GrantKind = "unit"
	GrantLecture GrantKind = "lecture"
)

// EnrollmentSyncPayload is the payload for enrollment reconciliation jobs.
// It carries everything needed to replay the grant and its audit record.
type EnrollmentSyncPayload struct {
	StudentID uuid.UUID  `json:"student_id"`
	ProgramID uuid.UUID  `json:"program_id"`
	TeacherID *uuid.UUID `json:"teacher_id,omitempty"`
	Kind      GrantKind  `json:"kind"`
	TargetID  uuid.UUID  `json:"target_id,omitempty"` // unit or lecture id for partial grants
	CodeUsed  string     `json:"code_used,omitempty"`
	Price     float64    `json:"price"`
}

// Job is a generic job envelope.
type Job struct {
	ID        string          `json:"id"`
	Type      JobType         `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempt   int             `json:"attempt"`
	CreatedAt time.Time       `json:"created_at"`
}

// Queue enqueues and dequeues jobs via Redis.
type Queue struct {
	client *redis.Client
	logger *zap.Logger
}

// NewQueue creates a new Redis-backed job queue.
func NewQueue(client *redis.Client, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{client: client, logger: logger}
}

// EnqueueEnrollmentSync enqueues an enrollment reconciliation job.
func (q *Queue) EnqueueEnrollmentSync(ctx context.Context, payload EnrollmentSyncPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	job := Job{
		ID:        uuid.New().String(),
		Type:      JobTypeEnrollmentSync,
		Payload:   body,
		Attempt:   0,
		CreatedAt: time.Now(),
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.RPush(ctx, QueueEnrollments, raw).Err(); err != nil {
		return fmt.Errorf("rpush: %w", err)
	}
	q.logger.Debug("enqueued enrollment sync job",
		zap.String("job_id", job.ID),
		zap.String("student_id", payload.StudentID.String()),
		zap.String("program_id", payload.ProgramID.String()))
	return nil
}

// Dequeue blocks until a job is available or ctx is done. Returns job and key (queue name).
func (q *Queue) Dequeue(ctx context.Context) (*Job, string, error) {
	result, err := q.client.BLPop(ctx, 0, QueueEnrollments).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, "", nil
		}
		return nil, "", err
	}
	if len(result) < 2 {
		return nil, "", nil
	}
	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		q.logger.Warn("invalid job payload", zap.String("raw", result[1]), zap.Error(err))
		return nil, "", nil
	}
	return &job, result[0], nil
}

// Retry re-enqueues a job with incremented attempt. If attempt >= MaxRetries, pushes to DLQ instead.
func (q *Queue) Retry(ctx context.Context, job *Job) error {
	job.Attempt++
	raw, err := json.Marshal(job)
	if err != nil {
		return err
	}
	if job.Attempt >= MaxRetries {
		if err := q.client.RPush(ctx, QueueDLQ, raw).Err(); err != nil {
			q.logger.Error("dlq push failed", zap.Error(err), zap.String("job_id", job.ID))
			return err
		}
		q.logger.Warn("job moved to DLQ", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
		return nil
	}
	if err := q.client.RPush(ctx, QueueEnrollments, raw).Err(); err != nil {
		return err
	}
	q.logger.Info("job retried", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
	return nil
}
