// Package cron runs the bot's periodic background jobs. Jobs live in
// process memory only; there is no persisted schedule.
package cron

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	rcron "github.com/robfig/cron/v3"
)

// Job is a named periodic task.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context)
	// Immediate also runs the job once at Start, before the first tick.
	Immediate bool
}

type Service struct {
	mu      sync.Mutex
	jobs    []Job
	cron    *rcron.Cron
	cancel  context.CancelFunc
	started bool
	log     *slog.Logger
}

func NewService(log *slog.Logger) *Service {
	return &Service{log: log}
}

// Add registers a job. Must be called before Start.
func (s *Service) Add(job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("cron service already started")
	}
	if job.Interval <= 0 {
		return fmt.Errorf("job %s: interval must be positive", job.Name)
	}
	s.jobs = append(s.jobs, job)
	return nil
}

// Start schedules every registered job and runs immediate ones once.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("cron service already started")
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.cron = rcron.New()

	for _, job := range s.jobs {
		job := job
		spec := fmt.Sprintf("@every %s", job.Interval)
		if _, err := s.cron.AddFunc(spec, func() {
			s.execute(runCtx, job)
		}); err != nil {
			cancel()
			return fmt.Errorf("register job %s (%s): %w", job.Name, spec, err)
		}
	}

	s.cron.Start()
	s.started = true
	s.log.Info("background jobs started", "count", len(s.jobs))

	for _, job := range s.jobs {
		if job.Immediate {
			go s.execute(runCtx, job)
		}
	}
	return nil
}

func (s *Service) execute(ctx context.Context, job Job) {
	if ctx.Err() != nil {
		return
	}
	s.log.Debug("executing job", "job", job.Name)
	job.Run(ctx)
}

func (s *Service) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	c := s.cron
	s.cancel = nil
	s.started = false
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if c != nil {
		stopCtx := c.Stop()
		select {
		case <-stopCtx.Done():
		case <-time.After(5 * time.Second):
			s.log.Warn("stop timeout waiting for running jobs")
		}
	}
	s.log.Info("background jobs stopped")
}

// JobNames lists registered jobs, in registration order.
func (s *Service) JobNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, len(s.jobs))
	for i, j := range s.jobs {
		names[i] = j.Name
	}
	return names
}
