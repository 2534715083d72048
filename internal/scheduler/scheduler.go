// Package scheduler runs periodic maintenance jobs.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ahrie-ai/backend/internal/logger"
	"github.com/ahrie-ai/backend/internal/metrics"
)

// Job names.
const (
	JobPurgeTranslations = "purge_translation_cache"
	JobCloseIdle         = "close_idle_conversations"
)

// JobFunc is one run of a job.
type JobFunc func(ctx context.Context) error

// Scheduler wraps a cron runner with logging and metrics.
type Scheduler struct {
	cron    *cron.Cron
	metrics *metrics.Metrics
	timeout time.Duration

	mu   sync.Mutex
	jobs map[string]JobFunc
}

// New creates a scheduler. Each run is bounded by timeout.
func New(m *metrics.Metrics, timeout time.Duration) *Scheduler {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cronLogger{logger.L()}),
			cron.WithChain(cron.SkipIfStillRunning(cronLogger{logger.L()})),
		),
		metrics: m,
		timeout: timeout,
		jobs:    make(map[string]JobFunc),
	}
}

// Add schedules fn under name with a cron schedule such as "@every 1h".
func (s *Scheduler) Add(name, schedule string, fn JobFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.jobs[name]; dup {
		return fmt.Errorf("job %q already registered", name)
	}
	if _, err := s.cron.AddFunc(schedule, func() { _ = s.Run(context.Background(), name) }); err != nil {
		return fmt.Errorf("schedule %q: %w", name, err)
	}
	s.jobs[name] = fn
	return nil
}

// Run executes a registered job immediately.
func (s *Scheduler) Run(ctx context.Context, name string) error {
	s.mu.Lock()
	fn, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown job %q", name)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	log := logger.FromContext(ctx).With("job", name)

	start := time.Now()
	if err := fn(ctx); err != nil {
		log.Error("scheduled job failed", "error", err, "duration", time.Since(start))
		s.metrics.ObserveJob(name, "error")
		return err
	}
	log.Info("scheduled job finished", "duration", time.Since(start))
	s.metrics.ObserveJob(name, "success")
	return nil
}

// Start runs the cron loop in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops scheduling and waits for running jobs, up to ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct{ l *slog.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error("cron: "+msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
