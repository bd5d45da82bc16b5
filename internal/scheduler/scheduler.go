// Package scheduler wraps IndexBuilder runs in cron jobs, one per
// descriptor that configures a reindex_cron. It wraps
// github.com/go-co-op/gocron/v2: a named job per registered task, with
// its own job table, keyed by descriptor, used to reject duplicate
// registrations.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-co-op/gocron/v2"

	"github.com/kluzzebass/logspan/internal/indexbuild"
	"github.com/kluzzebass/logspan/internal/logging"
	"github.com/kluzzebass/logspan/internal/model"
)

// Scheduler runs IndexBuilder.Build on a cron schedule per descriptor.
type Scheduler struct {
	mu        sync.Mutex
	scheduler gocron.Scheduler
	jobs      map[string]gocron.Job
	build     *indexbuild.Builder
	logger    *slog.Logger
}

// New creates a Scheduler. A nil logger discards all output.
func New(logger *slog.Logger) (*Scheduler, error) {
	logger = logging.Default(logger).With("component", "scheduler")
	gs, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create cron scheduler: %w", err)
	}
	return &Scheduler{
		scheduler: gs,
		jobs:      make(map[string]gocron.Job),
		build:     indexbuild.New(logger),
		logger:    logger,
	}, nil
}

// AddDescriptor registers desc's reindex_cron as a job, if set. A run
// already in flight for this descriptor skips its next tick rather than
// overlapping, since IndexBuilder is not designed for concurrent
// invocations against the same IndexStore instance beyond its own worker
// pool.
func (s *Scheduler) AddDescriptor(desc *model.Descriptor, opts indexbuild.Options) error {
	if desc.ReindexCron == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	name := desc.Key()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("reindex job already scheduled for %s", name)
	}

	j, err := s.scheduler.NewJob(
		gocron.CronJob(desc.ReindexCron, false),
		gocron.NewTask(func() {
			if err := s.build.Build(context.Background(), desc, nil, opts); err != nil {
				s.logger.Warn("scheduled reindex failed", "descriptor", name, "error", err)
			}
		}),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("create reindex job for %s: %w", name, err)
	}

	s.jobs[name] = j
	s.logger.Info("reindex job scheduled", "descriptor", name, "cron", desc.ReindexCron)
	return nil
}

// Start begins executing all registered jobs.
func (s *Scheduler) Start() {
	s.scheduler.Start()
	s.logger.Info("scheduler started", "jobs", len(s.jobs))
}

// Stop shuts down the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() error {
	return s.scheduler.Shutdown()
}
