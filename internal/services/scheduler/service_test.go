package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goatkit/issueflow/internal/service"
)

type stubSweeper struct {
	mu     sync.Mutex
	calls  int
	result service.SweepResult
	ctxErr error
}

func (s *stubSweeper) Sweep(ctx context.Context) service.SweepResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.ctxErr = ctx.Err()
	return s.result
}

func newTestService(t *testing.T, sweeper LicenseSweeper, opts ...Option) *Service {
	t.Helper()
	cronEngine := cron.New(cron.WithLocation(time.UTC))
	t.Cleanup(func() { cronEngine.Stop() })
	return NewService(sweeper, append([]Option{WithCron(cronEngine)}, opts...)...)
}

func TestHandleLicenseSweepRunsSweeper(t *testing.T) {
	sweeper := &stubSweeper{result: service.SweepResult{Licenses: 3, Departments: 2, Notified: 2}}
	svc := newTestService(t, sweeper)

	require.NoError(t, svc.RunNow(context.Background(), LicenseSweepSlug))
	assert.Equal(t, 1, sweeper.calls)
	assert.NoError(t, sweeper.ctxErr)

	_, ok := svc.LastRun(LicenseSweepSlug)
	assert.True(t, ok)
}

func TestHandleLicenseSweepReportsLoadFailure(t *testing.T) {
	sweeper := &stubSweeper{result: service.SweepResult{Failed: 1}}
	svc := newTestService(t, sweeper)

	err := svc.RunNow(context.Background(), LicenseSweepSlug)
	assert.Error(t, err)
}

func TestHandleLicenseSweepDeliveryFailuresAreNotJobFailures(t *testing.T) {
	sweeper := &stubSweeper{result: service.SweepResult{Licenses: 2, Departments: 2, Notified: 1, Failed: 1}}
	svc := newTestService(t, sweeper)

	assert.NoError(t, svc.RunNow(context.Background(), LicenseSweepSlug))
}

func TestHandleLicenseSweepWithoutSweeper(t *testing.T) {
	svc := newTestService(t, nil)
	assert.NoError(t, svc.RunNow(context.Background(), LicenseSweepSlug))
}

func TestRunNowUnknownJob(t *testing.T) {
	svc := newTestService(t, &stubSweeper{})
	err := svc.RunNow(context.Background(), "nope")
	assert.True(t, errors.Is(err, ErrUnknownJob))
}

func TestRunRecoversPanics(t *testing.T) {
	svc := newTestService(t, nil, WithJobs([]*Job{{Slug: "boom", Handler: "boom", Schedule: "@daily"}}))
	svc.RegisterHandler("boom", func(context.Context, *Job) error { panic("bad job") })

	err := svc.RunNow(context.Background(), "boom")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad job")
}

func TestRunAppliesTimeout(t *testing.T) {
	svc := newTestService(t, nil, WithJobs([]*Job{{Slug: "slow", Handler: "slow", Schedule: "@daily", TimeoutSeconds: 1}}))
	var deadline time.Time
	svc.RegisterHandler("slow", func(ctx context.Context, _ *Job) error {
		deadline, _ = ctx.Deadline()
		return nil
	})

	require.NoError(t, svc.RunNow(context.Background(), "slow"))
	assert.False(t, deadline.IsZero())
}

func TestStartRejectsInvalidSchedules(t *testing.T) {
	svc := newTestService(t, &stubSweeper{}, WithJobs([]*Job{{Slug: "bad", Handler: HandlerLicenseSweep, Schedule: "every day"}}))
	err := svc.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid schedule")
}

func TestStartRejectsUnknownHandler(t *testing.T) {
	svc := newTestService(t, &stubSweeper{}, WithJobs([]*Job{{Slug: "x", Handler: "missing", Schedule: "@daily"}}))
	assert.Error(t, svc.Start(context.Background()))
}

func TestStartSchedulesDefaultJobs(t *testing.T) {
	cronEngine := cron.New(cron.WithLocation(time.UTC))
	svc := NewService(&stubSweeper{}, WithCron(cronEngine))

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, svc.Start(ctx))
	assert.Error(t, svc.Start(ctx), "second start must fail")

	entries := cronEngine.Entries()
	require.Len(t, entries, 1)
	next := entries[0].Schedule.Next(time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), next)

	cancel()
	select {
	case <-svc.Stop().Done():
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}
