// Package scheduler runs castarr's recurring maintenance jobs on cron
// schedules: playback-record flushing and pruning, guide refresh, stale
// session sweeping and cache cleanup.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is a named unit of recurring work.
type Job struct {
	// Name identifies the job in logs.
	Name string

	// Spec is a standard 5-field cron expression.
	Spec string

	// Run performs the work. The context is cancelled on scheduler stop.
	Run func(ctx context.Context) error
}

// Scheduler wraps a cron runner with logging, panic recovery and
// context-aware shutdown.
type Scheduler struct {
	mu     sync.Mutex
	cron   *cron.Cron
	parser cron.Parser
	logger *slog.Logger

	jobs   []Job
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a scheduler.
func New(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:   cron.New(),
		parser: cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
		logger: logger,
	}
}

// Register adds a job. Must be called before Start.
func (s *Scheduler) Register(job Job) error {
	if job.Name == "" {
		return fmt.Errorf("job name is required")
	}
	if job.Run == nil {
		return fmt.Errorf("job %s: run function is required", job.Name)
	}
	if _, err := s.parser.Parse(job.Spec); err != nil {
		return fmt.Errorf("job %s: invalid cron expression %q: %w", job.Name, job.Spec, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx != nil {
		return fmt.Errorf("scheduler already started")
	}

	if _, err := s.cron.AddFunc(job.Spec, func() {
		s.runJob(job)
	}); err != nil {
		return fmt.Errorf("registering job %s: %w", job.Name, err)
	}
	s.jobs = append(s.jobs, job)
	return nil
}

// Jobs returns the names of the registered jobs.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, len(s.jobs))
	for i, job := range s.jobs {
		names[i] = job.Name
	}
	return names
}

// Start begins running registered jobs.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx != nil {
		return fmt.Errorf("scheduler already started")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.cron.Start()

	s.logger.Info("scheduler started", slog.Int("jobs", len(s.jobs)))
	return nil
}

// Stop cancels running jobs and waits for them to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.wg.Wait()

	s.mu.Lock()
	s.ctx = nil
	s.cancel = nil
	s.mu.Unlock()

	s.logger.Info("scheduler stopped")
}

// RunNow executes a registered job immediately, outside its schedule.
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	var found *Job
	for i := range s.jobs {
		if s.jobs[i].Name == name {
			found = &s.jobs[i]
			break
		}
	}
	s.mu.Unlock()

	if found == nil {
		return fmt.Errorf("unknown job %q", name)
	}
	s.runJob(*found)
	return nil
}

func (s *Scheduler) runJob(job Job) {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	s.wg.Add(1)
	defer s.wg.Done()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("job panicked",
				slog.String("job", job.Name),
				slog.Any("panic", r))
		}
	}()

	start := time.Now()
	if err := job.Run(ctx); err != nil {
		s.logger.Error("job failed",
			slog.String("job", job.Name),
			slog.Duration("took", time.Since(start)),
			slog.Any("error", err))
		return
	}
	s.logger.Debug("job completed",
		slog.String("job", job.Name),
		slog.Duration("took", time.Since(start)))
}
