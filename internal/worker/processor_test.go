package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ta3leemy/backend/internal/models"
	"github.com/ta3leemy/backend/pkg/queue"
)

type fakeJobQueue struct {
	mu         sync.Mutex
	jobs       []*queue.Job
	dequeueErr error
	dequeues   int
	retried    []*queue.Job
}

func (f *fakeJobQueue) Dequeue(ctx context.Context) (*queue.Job, string, error) {
	f.mu.Lock()
	f.dequeues++
	if f.dequeueErr != nil {
		f.mu.Unlock()
		return nil, "", f.dequeueErr
	}
	if len(f.jobs) > 0 {
		job := f.jobs[0]
		f.jobs = f.jobs[1:]
		f.mu.Unlock()
		return job, queue.QueueEnrollments, nil
	}
	f.mu.Unlock()
	<-ctx.Done()
	return nil, "", ctx.Err()
}

func (f *fakeJobQueue) Retry(ctx context.Context, job *queue.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retried = append(f.retried, job)
	return nil
}

func (f *fakeJobQueue) dequeueCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dequeues
}

type fakeGrants struct {
	full   int
	events []*models.EnrollmentEvent
}

func (f *fakeGrants) GrantFull(ctx context.Context, studentID, programID uuid.UUID, grantedBy *uuid.UUID) (*models.Enrollment, error) {
	f.full++
	return &models.Enrollment{StudentID: studentID, ProgramID: programID}, nil
}

func (f *fakeGrants) GrantUnit(ctx context.Context, studentID, programID, unitID uuid.UUID, grantedBy *uuid.UUID) (*models.Enrollment, error) {
	return nil, nil
}

func (f *fakeGrants) GrantLecture(ctx context.Context, studentID, programID, lectureID uuid.UUID, grantedBy *uuid.UUID) (*models.Enrollment, error) {
	return nil, nil
}

func (f *fakeGrants) AppendEvent(ctx context.Context, ev *models.EnrollmentEvent) error {
	f.events = append(f.events, ev)
	return nil
}

type fakeRoster struct {
	links int
}

func (f *fakeRoster) Link(ctx context.Context, teacherID, studentID uuid.UUID) error {
	f.links++
	return nil
}

func newTestProcessor(q jobQueue, backoff time.Duration) *Processor {
	return &Processor{
		queue:       q,
		enrollRepo:  &fakeGrants{},
		studentRepo: &fakeRoster{},
		logger:      zap.NewNop(),
		backoff:     backoff,
	}
}

func TestRunBacksOffOnDequeueErrors(t *testing.T) {
	q := &fakeJobQueue{dequeueErr: errors.New("connection refused")}
	p := newTestProcessor(q, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err := p.Run(ctx)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	// Without the backoff a dead Redis makes this loop spin thousands of
	// times in 100ms.
	assert.LessOrEqual(t, q.dequeueCount(), 8)
}

func TestRunRetriesFailedJobWithBackoff(t *testing.T) {
	job := &queue.Job{
		ID:      uuid.New().String(),
		Type:    queue.JobTypeEnrollmentSync,
		Payload: json.RawMessage(`{not json`),
	}
	q := &fakeJobQueue{jobs: []*queue.Job{job}}
	p := newTestProcessor(q, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()
	start := time.Now()
	_ = p.Run(ctx)

	require.Len(t, q.retried, 1)
	assert.Equal(t, job.ID, q.retried[0].ID)
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}

func TestRunReplaysGrantAndRecordsRetrySource(t *testing.T) {
	teacherID := uuid.New()
	payload := queue.EnrollmentSyncPayload{
		StudentID: uuid.New(),
		ProgramID: uuid.New(),
		TeacherID: &teacherID,
		Kind:      queue.GrantFull,
		CodeUsed:  "ABCDEFGHJK",
		Price:     150,
	}
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	job := &queue.Job{ID: uuid.New().String(), Type: queue.JobTypeEnrollmentSync, Payload: raw}

	q := &fakeJobQueue{jobs: []*queue.Job{job}}
	grants := &fakeGrants{}
	roster := &fakeRoster{}
	p := &Processor{queue: q, enrollRepo: grants, studentRepo: roster, logger: zap.NewNop(), backoff: time.Millisecond}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_ = p.Run(ctx)

	assert.Equal(t, 1, grants.full)
	assert.Equal(t, 1, roster.links)
	assert.Empty(t, q.retried)
	require.Len(t, grants.events, 1)
	assert.Equal(t, models.GrantSourceRetry, grants.events[0].Source)
	assert.Equal(t, payload.CodeUsed, grants.events[0].CodeUsed)
}
