package rescreen_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coopaml/internal/rescreen"
	"coopaml/internal/rescreen/lock"
	screeningservice "coopaml/internal/screening/service"
	id "coopaml/pkg/domain"
	dErrors "coopaml/pkg/domain-errors"
)

// blockingOrchestrator counts runs and can hold them open until released.
type blockingOrchestrator struct {
	runs    atomic.Int32
	started chan struct{}
	release chan struct{}
}

func (o *blockingOrchestrator) Rescreen(ctx context.Context, _ id.CooperativeID, _ id.ListType) (*screeningservice.RescreenResult, error) {
	o.runs.Add(1)
	if o.started != nil {
		o.started <- struct{}{}
	}
	if o.release != nil {
		<-o.release
	}
	return &screeningservice.RescreenResult{Screened: 3}, nil
}

func newScheduler(orch rescreen.Orchestrator) *rescreen.Scheduler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return rescreen.NewScheduler(orch, lock.NewMemory(), logger)
}

func TestRunDelegatesToOrchestrator(t *testing.T) {
	orch := &blockingOrchestrator{}
	sched := newScheduler(orch)

	result, err := sched.Run(context.Background(), id.CooperativeID(uuid.New()), id.ListTypeUN)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Screened)
	assert.Equal(t, int32(1), orch.runs.Load())
}

func TestConcurrentRunsCoalesce(t *testing.T) {
	orch := &blockingOrchestrator{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	sched := newScheduler(orch)
	coopID := id.CooperativeID(uuid.New())

	var wg sync.WaitGroup
	results := make([]*screeningservice.RescreenResult, 2)
	errs := make([]error, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], errs[0] = sched.Run(context.Background(), coopID, id.ListTypeUN)
	}()
	<-orch.started

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[1], errs[1] = sched.Run(context.Background(), coopID, id.ListTypeUN)
	}()

	// Let the second caller reach the singleflight group before releasing.
	time.Sleep(50 * time.Millisecond)
	close(orch.release)
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, int32(1), orch.runs.Load(), "both callers share one batch")
	assert.Equal(t, results[0], results[1])
}

func TestDifferentListsRunIndependently(t *testing.T) {
	orch := &blockingOrchestrator{}
	sched := newScheduler(orch)
	coopID := id.CooperativeID(uuid.New())

	_, err := sched.Run(context.Background(), coopID, id.ListTypeUN)
	require.NoError(t, err)
	_, err = sched.Run(context.Background(), coopID, id.ListTypeHomeMinistry)
	require.NoError(t, err)
	assert.Equal(t, int32(2), orch.runs.Load())
}

func TestHeldLockRejectsRun(t *testing.T) {
	locker := lock.NewMemory()
	coopID := id.CooperativeID(uuid.New())

	// Simulate another process holding the run-lock.
	held, err := locker.Acquire(context.Background(), "coopaml:rescreen:"+coopID.String()+":UN", time.Minute)
	require.NoError(t, err)
	require.True(t, held)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sched := rescreen.NewScheduler(&blockingOrchestrator{}, locker, logger)

	_, err = sched.Run(context.Background(), coopID, id.ListTypeUN)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestLockReleasedAfterRun(t *testing.T) {
	orch := &blockingOrchestrator{}
	sched := newScheduler(orch)
	coopID := id.CooperativeID(uuid.New())

	_, err := sched.Run(context.Background(), coopID, id.ListTypeUN)
	require.NoError(t, err)
	_, err = sched.Run(context.Background(), coopID, id.ListTypeUN)
	require.NoError(t, err)
	assert.Equal(t, int32(2), orch.runs.Load())
}

func TestTriggerReportsRunError(t *testing.T) {
	locker := lock.NewMemory()
	coopID := id.CooperativeID(uuid.New())
	_, err := locker.Acquire(context.Background(), "coopaml:rescreen:"+coopID.String()+":UN", time.Minute)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sched := rescreen.NewScheduler(&blockingOrchestrator{}, locker, logger)

	err = sched.Trigger(context.Background(), coopID, id.ListTypeUN)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}
