// Package scheduler drives the periodic jobs of the simulation: the
// director planning tick, DM replies, likes, and integration polling.
// Each job runs its cycles to completion one at a time; different jobs
// run concurrently.
package scheduler

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/adrianhensler/botterverse/pkg/logging"
)

type job struct {
	name     string
	interval time.Duration
	run      func(ctx context.Context)
}

type Scheduler struct {
	logger logging.Logger
	jobs   []job
}

func New(logger logging.Logger) *Scheduler {
	return &Scheduler{logger: logger}
}

// Add registers a periodic job. Must be called before Run.
func (s *Scheduler) Add(name string, interval time.Duration, run func(ctx context.Context)) {
	s.jobs = append(s.jobs, job{name: name, interval: interval, run: run})
}

// Run blocks until the context is cancelled. A panicking job cycle is
// logged and the job keeps its schedule.
func (s *Scheduler) Run(ctx context.Context) error {
	group, ctx := errgroup.WithContext(ctx)
	for _, j := range s.jobs {
		j := j
		group.Go(func() error {
			ticker := time.NewTicker(j.interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					s.runCycle(ctx, j)
				}
			}
		})
	}
	return group.Wait()
}

func (s *Scheduler) runCycle(ctx context.Context, j job) {
	defer func() {
		if recovered := recover(); recovered != nil && s.logger != nil {
			s.logger.WithFields(logging.Fields{
				"job":   j.name,
				"panic": recovered,
			}).Error("Scheduler job panicked")
		}
	}()
	j.run(ctx)
}
