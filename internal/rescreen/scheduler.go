// Package rescreen serializes tenant-wide rescreens. A watchlist import (or a
// manual trigger) may start at most one batch per (cooperative, list) at a
// time: concurrent in-process callers coalesce onto one run via singleflight,
// and a run-lock keeps other processes out. There is no retry machinery; a
// failed batch is re-triggered by re-running the import.
package rescreen

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"coopaml/internal/rescreen/lock"
	screeningservice "coopaml/internal/screening/service"
	id "coopaml/pkg/domain"
	dErrors "coopaml/pkg/domain-errors"
)

// Orchestrator is the batch entry point of the screening service.
type Orchestrator interface {
	Rescreen(ctx context.Context, coopID id.CooperativeID, listType id.ListType) (*screeningservice.RescreenResult, error)
}

// DefaultLockTTL bounds how long a crashed run can block the next one.
const DefaultLockTTL = 10 * time.Minute

// Scheduler runs batch rescreens one at a time per (cooperative, list).
type Scheduler struct {
	orchestrator Orchestrator
	locker       lock.Locker
	lockTTL      time.Duration
	group        singleflight.Group
	logger       *slog.Logger
}

func NewScheduler(orchestrator Orchestrator, locker lock.Locker, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		orchestrator: orchestrator,
		locker:       locker,
		lockTTL:      DefaultLockTTL,
		logger:       logger,
	}
}

func runKey(coopID id.CooperativeID, listType id.ListType) string {
	return "coopaml:rescreen:" + coopID.String() + ":" + string(listType)
}

// Run executes the batch rescreen for (coopID, listType). Concurrent calls
// for the same key share a single run and its result. When another process
// holds the run-lock, Run fails with a conflict error instead of queueing.
func (s *Scheduler) Run(ctx context.Context, coopID id.CooperativeID, listType id.ListType) (*screeningservice.RescreenResult, error) {
	key := runKey(coopID, listType)
	v, err, shared := s.group.Do(key, func() (any, error) {
		acquired, err := s.locker.Acquire(ctx, key, s.lockTTL)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "rescreen lock unavailable")
		}
		if !acquired {
			return nil, dErrors.New(dErrors.CodeConflict, "a rescreen for this list is already running")
		}
		defer func() {
			if err := s.locker.Release(context.WithoutCancel(ctx), key); err != nil {
				s.logger.WarnContext(ctx, "failed to release rescreen lock", "key", key, "error", err)
			}
		}()

		return s.orchestrator.Rescreen(ctx, coopID, listType)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.logger.InfoContext(ctx, "rescreen request coalesced onto running batch",
			"cooperative_id", coopID,
			"list_type", listType,
		)
	}
	return v.(*screeningservice.RescreenResult), nil
}

// Trigger runs the rescreen and reports only success or failure. The sanction
// import calls this after every effective watchlist update.
func (s *Scheduler) Trigger(ctx context.Context, coopID id.CooperativeID, listType id.ListType) error {
	result, err := s.Run(ctx, coopID, listType)
	if err != nil {
		return err
	}
	if len(result.Failures) > 0 {
		s.logger.WarnContext(ctx, "rescreen completed with member failures",
			"cooperative_id", coopID,
			"list_type", listType,
			"failures", len(result.Failures),
		)
	}
	return nil
}
