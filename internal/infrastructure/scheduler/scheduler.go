package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// JobStatus represents the outcome of a job's latest run
type JobStatus string

const (
	JobStatusPending JobStatus = "PENDING"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusFailed  JobStatus = "FAILED"
)

// JobFunc is the work a job performs on each tick
type JobFunc func(ctx context.Context) error

// Job is a named unit of work run every Interval
type Job struct {
	Name     string
	Interval time.Duration
	// Timeout bounds a single run; zero uses the scheduler default
	Timeout time.Duration
	// RunOnStart runs the job once immediately instead of waiting one interval
	RunOnStart bool
	Run        JobFunc
}

// JobState is a snapshot of a job's run history
type JobState struct {
	Name        string
	Status      JobStatus
	Runs        int
	Failures    int
	LastError   string
	LastStarted time.Time
	LastEnded   time.Time
}

// SchedulerConfig holds scheduler configuration
type SchedulerConfig struct {
	Enabled    bool
	JobTimeout time.Duration
}

// DefaultSchedulerConfig returns default scheduler configuration
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled:    true,
		JobTimeout: 5 * time.Minute,
	}
}

type registeredJob struct {
	job     Job
	trigger chan struct{}

	mu    sync.Mutex
	state JobState
}

// Scheduler runs registered jobs on their intervals until stopped.
// A job never overlaps with itself.
type Scheduler struct {
	config SchedulerConfig
	logger *zap.Logger

	mu        sync.Mutex
	jobs      []*registeredJob
	byName    map[string]*registeredJob
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	isRunning bool
}

// NewScheduler creates a new scheduler instance
func NewScheduler(config SchedulerConfig, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = DefaultSchedulerConfig().JobTimeout
	}
	return &Scheduler{
		config: config,
		logger: logger,
		byName: make(map[string]*registeredJob),
	}
}

// Register adds a job. Jobs must be registered before Start.
func (s *Scheduler) Register(job Job) error {
	if job.Name == "" || job.Run == nil || job.Interval <= 0 {
		return fmt.Errorf("%w: job needs a name, a func and a positive interval", ErrInvalidConfig)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return ErrSchedulerRunning
	}
	if _, exists := s.byName[job.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, job.Name)
	}
	if job.Timeout <= 0 {
		job.Timeout = s.config.JobTimeout
	}

	rj := &registeredJob{
		job:     job,
		trigger: make(chan struct{}, 1),
		state:   JobState{Name: job.Name, Status: JobStatusPending},
	}
	s.jobs = append(s.jobs, rj)
	s.byName[job.Name] = rj
	return nil
}

// Start launches one loop per registered job
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	if !s.config.Enabled {
		s.mu.Unlock()
		s.logger.Info("Scheduler is disabled")
		return nil
	}
	s.isRunning = true
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	jobs := append([]*registeredJob(nil), s.jobs...)
	s.mu.Unlock()

	for _, rj := range jobs {
		s.wg.Add(1)
		go s.loop(ctx, rj)
	}

	s.logger.Info("Scheduler started", zap.Int("jobs", len(jobs)))
	return nil
}

// Stop cancels running jobs and waits for their loops to exit
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out")
		return ctx.Err()
	}
}

// TriggerNow asks a job to run as soon as it is idle.
// Triggers arriving while a run is already queued collapse into one.
func (s *Scheduler) TriggerNow(name string) error {
	s.mu.Lock()
	running := s.isRunning
	rj, ok := s.byName[name]
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	if !running {
		return ErrSchedulerNotRunning
	}

	select {
	case rj.trigger <- struct{}{}:
	default:
	}
	return nil
}

// State returns the run history of a job
func (s *Scheduler) State(name string) (JobState, bool) {
	s.mu.Lock()
	rj, ok := s.byName[name]
	s.mu.Unlock()
	if !ok {
		return JobState{}, false
	}

	rj.mu.Lock()
	defer rj.mu.Unlock()
	return rj.state, true
}

// IsRunning returns whether the scheduler is running
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

func (s *Scheduler) loop(ctx context.Context, rj *registeredJob) {
	defer s.wg.Done()

	if rj.job.RunOnStart {
		s.execute(ctx, rj)
	}

	ticker := time.NewTicker(rj.job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("Job loop stopping", zap.String("job", rj.job.Name))
			return
		case <-ticker.C:
			s.execute(ctx, rj)
		case <-rj.trigger:
			s.execute(ctx, rj)
		}
	}
}

func (s *Scheduler) execute(ctx context.Context, rj *registeredJob) {
	if ctx.Err() != nil {
		return
	}

	started := time.Now()
	rj.mu.Lock()
	rj.state.Status = JobStatusRunning
	rj.state.LastStarted = started
	rj.mu.Unlock()

	jobCtx, cancel := context.WithTimeout(ctx, rj.job.Timeout)
	err := s.safeRun(jobCtx, rj.job)
	cancel()
	duration := time.Since(started)

	rj.mu.Lock()
	rj.state.Runs++
	rj.state.LastEnded = time.Now()
	if err != nil {
		rj.state.Status = JobStatusFailed
		rj.state.Failures++
		rj.state.LastError = err.Error()
	} else {
		rj.state.Status = JobStatusSuccess
		rj.state.LastError = ""
	}
	rj.mu.Unlock()

	if err != nil {
		s.logger.Error("Scheduled job failed",
			zap.String("job", rj.job.Name),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return
	}
	s.logger.Debug("Scheduled job completed",
		zap.String("job", rj.job.Name),
		zap.Duration("duration", duration),
	)
}

// safeRun converts a panicking job into an error so its loop survives
func (s *Scheduler) safeRun(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", job.Name, r)
		}
	}()
	return job.Run(ctx)
}
