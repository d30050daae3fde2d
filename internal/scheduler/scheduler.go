package scheduler

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/BruksfildServices01/table-reservations/internal/logging"
)

// Job runs Task every Interval while holding the leader lock, so only one
// replica sweeps at a time.
type Job struct {
	Name     string
	Interval time.Duration
	Task     func(ctx context.Context) error

	Locker  Locker
	LockTTL time.Duration
	Logger  logrus.FieldLogger
}

func (j *Job) Run(ctx context.Context) error {
	t := time.NewTicker(j.Interval)
	defer t.Stop()

	// kick immediately
	j.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			j.tick(ctx)
		}
	}
}

func (j *Job) tick(ctx context.Context) {
	ttl := j.LockTTL
	if ttl <= 0 {
		ttl = j.Interval
	}

	lease, ok, err := j.Locker.TryLock(ctx, "tablebook:sweep:"+j.Name, ttl)
	if err != nil {
		logging.LogError(j.Logger, "scheduler", j.Name, "obtain leader lock", nil, err)
		return
	}
	if !ok {
		j.Logger.WithField("job", j.Name).Debug("another instance holds the lock, skipping")
		return
	}
	defer lease.Release()

	taskCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		j.keepAlive(taskCtx, cancel, lease, ttl)
	}()

	if err := j.Task(taskCtx); err != nil {
		logging.LogError(j.Logger, "scheduler", j.Name, "run sweep", nil, err)
	}

	cancel()
	<-stopped
}

// keepAlive refreshes the lease at half its ttl while the task runs. A lost
// lease cancels the task so two instances never sweep at once.
func (j *Job) keepAlive(ctx context.Context, cancel context.CancelFunc, lease Lease, ttl time.Duration) {
	every := ttl / 2
	if every <= 0 {
		every = ttl
	}
	t := time.NewTicker(every)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := lease.Refresh(ctx, ttl); err != nil {
				if ctx.Err() != nil {
					return
				}
				logging.LogError(j.Logger, "scheduler", j.Name, "refresh leader lock", nil, err)
				cancel()
				return
			}
		}
	}
}
