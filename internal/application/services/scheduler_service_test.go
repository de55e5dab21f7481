package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/devstudio/backoffice/internal/infrastructure/persistence"
	"github.com/devstudio/backoffice/pkg/calendar"
)

type MockJobLocker struct {
	mock.Mock
}

func (m *MockJobLocker) EnsureJob(ctx context.Context, job string) error {
	return m.Called(ctx, job).Error(0)
}

func (m *MockJobLocker) AcquireExecutionLock(ctx context.Context, job string, staleAfter time.Duration) (bool, error) {
	args := m.Called(ctx, job, staleAfter)
	return args.Bool(0), args.Error(1)
}

func (m *MockJobLocker) ReleaseExecutionLock(ctx context.Context, job string, runErr error) error {
	return m.Called(ctx, job, runErr).Error(0)
}

func (m *MockJobLocker) ListJobs(ctx context.Context) ([]persistence.JobLock, error) {
	args := m.Called(ctx)
	return args.Get(0).([]persistence.JobLock), args.Error(1)
}

func newTestScheduler(locks JobLocker, now time.Time) *SchedulerService {
	return NewSchedulerService(locks, businessDay{
		cal: calendar.New(),
		loc: time.UTC,
		now: func() time.Time { return now },
	})
}

func TestRunJob_Success(t *testing.T) {
	locks := &MockJobLocker{}
	locks.On("AcquireExecutionLock", mock.Anything, "nightly", lockStaleAfterJob).Return(true, nil)
	locks.On("ReleaseExecutionLock", mock.Anything, "nightly", nil).Return(nil)

	s := newTestScheduler(locks, testNow)
	runs := 0
	require.NoError(t, s.Register(Job{Name: "nightly", BusinessDaysOnly: true, Run: func(ctx context.Context) error {
		runs++
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		return nil
	}}))

	ran, err := s.RunJob(context.Background(), "nightly")
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, 1, runs)
	locks.AssertExpectations(t)
}

func TestRunJob_SkipsNonBusinessDays(t *testing.T) {
	locks := &MockJobLocker{}
	saturday := time.Date(2026, time.October, 17, 7, 0, 0, 0, time.UTC)
	s := newTestScheduler(locks, saturday)
	require.NoError(t, s.Register(Job{Name: "nightly", BusinessDaysOnly: true, Run: func(context.Context) error {
		t.Fatal("must not run on a Saturday")
		return nil
	}}))

	ran, err := s.RunJob(context.Background(), "nightly")
	require.NoError(t, err)
	assert.False(t, ran)
	locks.AssertNotCalled(t, "AcquireExecutionLock", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunJob_LockHeldElsewhere(t *testing.T) {
	locks := &MockJobLocker{}
	locks.On("AcquireExecutionLock", mock.Anything, "cleanup", lockStaleAfterJob).Return(false, nil)

	s := newTestScheduler(locks, testNow)
	require.NoError(t, s.Register(Job{Name: "cleanup", Run: func(context.Context) error {
		t.Fatal("must not run without the lock")
		return nil
	}}))

	ran, err := s.RunJob(context.Background(), "cleanup")
	require.NoError(t, err)
	assert.False(t, ran)
}

func TestRunJob_ErrorAndPanicReleaseLock(t *testing.T) {
	locks := &MockJobLocker{}
	locks.On("AcquireExecutionLock", mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
	locks.On("ReleaseExecutionLock", mock.Anything, "failing", mock.MatchedBy(func(err error) bool {
		return err != nil && err.Error() == "boom"
	})).Return(nil).Once()
	locks.On("ReleaseExecutionLock", mock.Anything, "panicking", mock.MatchedBy(func(err error) bool {
		return err != nil
	})).Return(nil).Once()

	s := newTestScheduler(locks, testNow)
	require.NoError(t, s.Register(Job{Name: "failing", Run: func(context.Context) error { return fmt.Errorf("boom") }}))
	require.NoError(t, s.Register(Job{Name: "panicking", Run: func(context.Context) error { panic("nil map") }}))

	ran, err := s.RunJob(context.Background(), "failing")
	assert.True(t, ran)
	assert.EqualError(t, err, "boom")

	assert.NotPanics(t, func() {
		ran, err = s.RunJob(context.Background(), "panicking")
	})
	assert.True(t, ran)
	assert.EqualError(t, err, "panic: nil map")
	locks.AssertExpectations(t)
}

func TestRunJob_Unknown(t *testing.T) {
	s := newTestScheduler(&MockJobLocker{}, testNow)
	_, err := s.RunJob(context.Background(), "nope")
	assert.Error(t, err)
}

func TestRegister_InvalidSpec(t *testing.T) {
	s := newTestScheduler(&MockJobLocker{}, testNow)
	err := s.Register(Job{Name: "bad", Spec: "every tuesday", Run: func(context.Context) error { return nil }})
	assert.Error(t, err)
}

func TestRegisterDefaults(t *testing.T) {
	s := newTestScheduler(&MockJobLocker{}, testNow)
	require.NoError(t, s.RegisterDefaults("0 7 * * *", nil, nil, nil, nil))
	assert.Equal(t, []string{JobDeliverDue, JobExpireBudgets, JobOutboxCleanup, JobTaskReminders}, s.JobNames())
}

func TestScheduler_StartStop(t *testing.T) {
	locks := &MockJobLocker{}
	locks.On("EnsureJob", mock.Anything, "nightly").Return(nil).Once()

	s := newTestScheduler(locks, testNow)
	require.NoError(t, s.Register(Job{Name: "nightly", Run: func(context.Context) error { return nil }}))
	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Start(context.Background()), "starting twice is a no-op")
	s.Stop()
	s.Stop()
	locks.AssertExpectations(t)
}

func TestExpireBudgetsJob(t *testing.T) {
	f := newWorkflowFixture(t, 50)
	b := f.sentBudget(t)

	locks := &MockJobLocker{}
	locks.On("AcquireExecutionLock", mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
	locks.On("ReleaseExecutionLock", mock.Anything, mock.Anything, nil).Return(nil)

	later := f.cal.AddBusinessDays(b.ValidUntil, 1).Add(7 * time.Hour)
	s := newTestScheduler(locks, later)
	require.NoError(t, s.RegisterDefaults("0 7 * * *", f.budgetSvc, f.projectSvc, nil, nil))

	ran, err := s.RunJob(context.Background(), JobExpireBudgets)
	require.NoError(t, err)
	assert.True(t, ran)
	stored, _ := f.budgets.Get(context.Background(), b.ID)
	assert.Equal(t, "expired", string(stored.Status))
}
