package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// StaleMessage is recorded on tasks the janitor gives up on.
const StaleMessage = "작업이 제한 시간 내에 완료되지 않았습니다."

// Janitor periodically maintains a Store: it fails tasks stuck in pending or
// processing for longer than staleAfter, typically left behind by a restart,
// and runs Sweep on stores that implement Sweeper.
type Janitor struct {
	store      Store
	staleAfter time.Duration
	cron       *cron.Cron
	logger     *zap.Logger
	now        func() time.Time
}

// NewJanitor schedules maintenance with a cron spec such as "@every 10m".
func NewJanitor(store Store, schedule string, staleAfter time.Duration, logger *zap.Logger) (*Janitor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	j := &Janitor{
		store:      store,
		staleAfter: staleAfter,
		cron:       cron.New(),
		logger:     logger,
		now:        time.Now,
	}
	if _, err := j.cron.AddFunc(schedule, func() {
		if err := j.RunOnce(context.Background()); err != nil {
			j.logger.Warn("task store maintenance failed", zap.Error(err))
		}
	}); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return j, nil
}

// Start runs the schedule in the background.
func (j *Janitor) Start() {
	j.cron.Start()
}

// Stop halts the schedule and waits for a running job until ctx is done.
func (j *Janitor) Stop(ctx context.Context) error {
	done := j.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce performs one maintenance pass.
func (j *Janitor) RunOnce(ctx context.Context) error {
	failed, err := j.failStale(ctx)
	if err != nil {
		return err
	}
	if failed > 0 {
		j.logger.Info("stale tasks marked failed", zap.Int("tasks", failed))
	}
	if s, ok := j.store.(Sweeper); ok {
		if err := s.Sweep(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (j *Janitor) failStale(ctx context.Context) (int, error) {
	if j.staleAfter <= 0 {
		return 0, nil
	}
	ts, err := j.store.ListTasks(ctx)
	if err != nil {
		return 0, err
	}
	cutoff := j.now().Add(-j.staleAfter)
	n := 0
	for _, t := range ts {
		if t.Status.Terminal() || !t.UpdatedAt.Before(cutoff) {
			continue
		}
		t.Status = StatusFailed
		t.ErrorMessage = StaleMessage
		t.UpdatedAt = j.now()
		if err := j.store.SaveTask(ctx, t); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
