package redemption

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ta3leemy/backend/internal/codes"
	"github.com/ta3leemy/backend/internal/models"
	"github.com/ta3leemy/backend/internal/plans"
	"github.com/ta3leemy/backend/pkg/queue"
)

type fakeCodeStore struct {
	mu    sync.Mutex
	codes map[uuid.UUID]*models.AccessCode
}

func newFakeCodeStore(list ...*models.AccessCode) *fakeCodeStore {
	s := &fakeCodeStore{codes: make(map[uuid.UUID]*models.AccessCode)}
	for _, c := range list {
		s.codes[c.ID] = c
	}
	return s
}

func (s *fakeCodeStore) FindAvailable(_ context.Context, code string) (*models.AccessCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.codes {
		if c.Code == code && c.Status == models.CodeStatusAvailable {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *fakeCodeStore) Consume(_ context.Context, codeID, studentID uuid.UUID) (*models.AccessCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.codes[codeID]
	if !ok || c.Status != models.CodeStatusAvailable {
		return nil, codes.ErrNotAvailable
	}
	c.Status = models.CodeStatusUsed
	c.UsedBy = &studentID
	cp := *c
	return &cp, nil
}

type fakeGrantStore struct {
	mu       sync.Mutex
	failNext bool
	grants   []string
	events   []models.EnrollmentEvent
}

func (s *fakeGrantStore) grant(kind string) (*models.Enrollment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext {
		return nil, errors.New("storage unavailable")
	}
	s.grants = append(s.grants, kind)
	return &models.Enrollment{AccessType: models.AccessFull}, nil
}

func (s *fakeGrantStore) GrantFull(_ context.Context, _, _ uuid.UUID, _ *uuid.UUID) (*models.Enrollment, error) {
	return s.grant("full")
}

func (s *fakeGrantStore) GrantUnit(_ context.Context, _, _, _ uuid.UUID, _ *uuid.UUID) (*models.Enrollment, error) {
	return s.grant("unit")
}

func (s *fakeGrantStore) GrantLecture(_ context.Context, _, _, _ uuid.UUID, _ *uuid.UUID) (*models.Enrollment, error) {
	return s.grant("lecture")
}

func (s *fakeGrantStore) AppendEvent(_ context.Context, ev *models.EnrollmentEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, *ev)
	return nil
}

type fakeLinks struct {
	mu     sync.Mutex
	linked map[uuid.UUID]map[uuid.UUID]bool
	counts map[uuid.UUID]int
}

func newFakeLinks() *fakeLinks {
	return &fakeLinks{linked: make(map[uuid.UUID]map[uuid.UUID]bool), counts: make(map[uuid.UUID]int)}
}

func (f *fakeLinks) Exists(_ context.Context, teacherID, studentID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.linked[teacherID][studentID], nil
}

func (f *fakeLinks) Count(_ context.Context, teacherID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[teacherID], nil
}

func (f *fakeLinks) Link(_ context.Context, teacherID, studentID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.linked[teacherID] == nil {
		f.linked[teacherID] = make(map[uuid.UUID]bool)
	}
	if !f.linked[teacherID][studentID] {
		f.linked[teacherID][studentID] = true
		f.counts[teacherID]++
	}
	return nil
}

type fakeCapacity struct {
	max int
}

func (f *fakeCapacity) CheckStudentCapacity(_ context.Context, _ uuid.UUID, current int) error {
	if f.max > 0 && current >= f.max {
		return plans.ErrLimitExceeded
	}
	return nil
}

type fakeCatalog struct {
	targets map[uuid.UUID]*Target
}

func (f *fakeCatalog) ResolveTarget(_ context.Context, kind string, id uuid.UUID) (*Target, error) {
	t, ok := f.targets[id]
	if !ok || t.Kind != kind {
		return nil, ErrTargetNotFound
	}
	return t, nil
}

type fakeQueue struct {
	mu   sync.Mutex
	jobs []queue.EnrollmentSyncPayload
}

func (f *fakeQueue) EnqueueEnrollmentSync(_ context.Context, p queue.EnrollmentSyncPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, p)
	return nil
}

type fixture struct {
	svc     *Service
	codes   *fakeCodeStore
	grants  *fakeGrantStore
	links   *fakeLinks
	queue   *fakeQueue
	teacher uuid.UUID
	program uuid.UUID
}

func newFixture(t *testing.T, maxStudents int, list ...*models.AccessCode) *fixture {
	t.Helper()
	f := &fixture{
		codes:   newFakeCodeStore(list...),
		grants:  &fakeGrantStore{},
		links:   newFakeLinks(),
		queue:   &fakeQueue{},
		teacher: uuid.New(),
		program: uuid.New(),
	}
	catalog := &fakeCatalog{targets: map[uuid.UUID]*Target{
		f.program: {Kind: TargetProgram, ID: f.program, ProgramID: f.program, Price: 100},
	}}
	f.svc = NewService(f.codes, f.grants, f.links, &fakeCapacity{max: maxStudents}, catalog, f.queue, zap.NewNop())
	return f
}

func programCode(teacherID uuid.UUID, price float64) *models.AccessCode {
	return &models.AccessCode{
		ID:        uuid.New(),
		Code:      "CODE" + uuid.New().String()[:6],
		Status:    models.CodeStatusAvailable,
		Price:     price,
		TeacherID: teacherID,
	}
}

func TestRedeemSuccess(t *testing.T) {
	teacher := uuid.New()
	code := programCode(teacher, 100)
	f := newFixture(t, 0, code)
	code.TeacherID = teacher

	student := uuid.New()
	res, err := f.svc.Redeem(context.Background(), student, code.Code, TargetProgram, f.program)
	require.NoError(t, err)
	assert.False(t, res.Pending)
	assert.NotNil(t, res.Enrollment)
	assert.Equal(t, []string{"full"}, f.grants.grants)

	// Student is linked and the audit event written.
	linked, _ := f.links.Exists(context.Background(), teacher, student)
	assert.True(t, linked)
	require.Len(t, f.grants.events, 1)
	assert.Equal(t, models.GrantSourceCode, f.grants.events[0].Source)
	assert.Equal(t, code.Code, f.grants.events[0].CodeUsed)
}

func TestRedeemUnknownCode(t *testing.T) {
	f := newFixture(t, 0)
	_, err := f.svc.Redeem(context.Background(), uuid.New(), "NOSUCHCODE", TargetProgram, f.program)
	assert.ErrorIs(t, err, ErrCodeNotFound)
}

func TestRedeemUnknownTarget(t *testing.T) {
	f := newFixture(t, 0)
	_, err := f.svc.Redeem(context.Background(), uuid.New(), "ANY", TargetProgram, uuid.New())
	assert.ErrorIs(t, err, ErrTargetNotFound)
}

func TestRedeemPlanLimitBlocksNewStudent(t *testing.T) {
	teacher := uuid.New()
	code := programCode(teacher, 100)
	f := newFixture(t, 2, code)

	ctx := context.Background()
	// Teacher already at the ceiling with two other students.
	require.NoError(t, f.links.Link(ctx, teacher, uuid.New()))
	require.NoError(t, f.links.Link(ctx, teacher, uuid.New()))

	_, err := f.svc.Redeem(ctx, uuid.New(), code.Code, TargetProgram, f.program)
	assert.ErrorIs(t, err, plans.ErrLimitExceeded)

	// The code survives a blocked redemption.
	remaining, _ := f.codes.FindAvailable(ctx, code.Code)
	assert.NotNil(t, remaining)
}

func TestRedeemExistingStudentBypassesLimit(t *testing.T) {
	teacher := uuid.New()
	code := programCode(teacher, 100)
	f := newFixture(t, 2, code)

	ctx := context.Background()
	student := uuid.New()
	require.NoError(t, f.links.Link(ctx, teacher, student))
	require.NoError(t, f.links.Link(ctx, teacher, uuid.New()))

	// At the ceiling, but the redeeming student is already on the roster.
	_, err := f.svc.Redeem(ctx, student, code.Code, TargetProgram, f.program)
	assert.NoError(t, err)
}

func TestRedeemConcurrentExactlyOneWinner(t *testing.T) {
	teacher := uuid.New()
	code := programCode(teacher, 100)
	f := newFixture(t, 0, code)

	const attempts = 16
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Redeem(context.Background(), uuid.New(), code.Code, TargetProgram, f.program)
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.True(t, errors.Is(err, ErrAlreadyRedeemed) || errors.Is(err, ErrCodeNotFound),
				"unexpected loser error: %v", err)
		}
	}
	assert.Equal(t, 1, winners)
	assert.Len(t, f.grants.grants, 1)
}

func TestRedeemPartialApplyQueuesReplay(t *testing.T) {
	teacher := uuid.New()
	code := programCode(teacher, 100)
	f := newFixture(t, 0, code)
	f.grants.failNext = true

	student := uuid.New()
	res, err := f.svc.Redeem(context.Background(), student, code.Code, TargetProgram, f.program)
	assert.ErrorIs(t, err, ErrPartialApply)
	require.NotNil(t, res)
	assert.True(t, res.Pending)

	// The code is spent and the replay job carries everything needed.
	gone, _ := f.codes.FindAvailable(context.Background(), code.Code)
	assert.Nil(t, gone)
	require.Len(t, f.queue.jobs, 1)
	job := f.queue.jobs[0]
	assert.Equal(t, student, job.StudentID)
	assert.Equal(t, f.program, job.ProgramID)
	assert.Equal(t, queue.GrantFull, job.Kind)
	assert.Equal(t, code.Code, job.CodeUsed)
}
