// Package scheduler runs the periodic jobs of issueflow on a cron engine.
// Today that is the daily license expiry sweep.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/goatkit/issueflow/internal/service"
)

// LicenseSweeper sends the license expiry reminders.
type LicenseSweeper interface {
	Sweep(ctx context.Context) service.SweepResult
}

// Job is one scheduled unit of work.
type Job struct {
	Name           string
	Slug           string
	Handler        string
	Schedule       string
	TimeoutSeconds int
	Config         map[string]any
}

// HandlerFunc executes a job.
type HandlerFunc func(ctx context.Context, job *Job) error

// ErrUnknownJob is returned by RunNow for a slug that is not registered.
var ErrUnknownJob = errors.New("unknown job")

// Service owns the cron engine and the job handlers.
type Service struct {
	sweeper  LicenseSweeper
	cron     *cron.Cron
	parser   cron.Parser
	logger   zerolog.Logger
	location *time.Location
	now      func() time.Time
	metrics  *schedulerMetrics

	mu       sync.Mutex
	jobs     []*Job
	handlers map[string]HandlerFunc
	lastRun  map[string]time.Time
	started  bool
}

// NewService builds a scheduler. Jobs default to DefaultJobs.
func NewService(sweeper LicenseSweeper, opts ...Option) *Service {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.Jobs == nil {
		o.Jobs = DefaultJobs()
	}
	logger := o.Logger.With().Str("component", "scheduler").Logger()
	if o.Cron == nil {
		cl := cronLogger{log: logger}
		o.Cron = cron.New(
			cron.WithLocation(o.Location),
			cron.WithParser(o.Parser),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		)
	}

	s := &Service{
		sweeper:  sweeper,
		cron:     o.Cron,
		parser:   o.Parser,
		logger:   logger,
		location: o.Location,
		now:      o.Now,
		metrics:  globalSchedulerMetrics(),
		jobs:     o.Jobs,
		handlers: make(map[string]HandlerFunc),
		lastRun:  make(map[string]time.Time),
	}
	s.registerBuiltinHandlers()
	return s
}

// RegisterHandler binds a handler name used by Job.Handler.
func (s *Service) RegisterHandler(name string, fn HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[name] = fn
}

// Start schedules every job and starts the engine. The engine stops when
// ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New("scheduler already started")
	}
	for _, job := range s.jobs {
		if job == nil {
			continue
		}
		if _, ok := s.handlers[job.Handler]; !ok {
			s.mu.Unlock()
			return fmt.Errorf("job %s: no handler %q", job.Slug, job.Handler)
		}
		schedule, err := s.parser.Parse(job.Schedule)
		if err != nil {
			s.mu.Unlock()
			return fmt.Errorf("job %s: invalid schedule %q: %w", job.Slug, job.Schedule, err)
		}
		job := job
		s.cron.Schedule(schedule, cron.FuncJob(func() {
			_ = s.run(context.Background(), job)
		}))
		s.logger.Info().Str("job", job.Slug).Str("schedule", job.Schedule).
			Time("next", schedule.Next(s.now().In(s.location))).Msg("job scheduled")
	}
	s.started = true
	s.mu.Unlock()

	s.cron.Start()
	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// Stop halts the engine and returns a context that is done once running
// jobs have finished.
func (s *Service) Stop() context.Context {
	return s.cron.Stop()
}

// RunNow executes the job with the given slug immediately.
func (s *Service) RunNow(ctx context.Context, slug string) error {
	s.mu.Lock()
	var job *Job
	for _, j := range s.jobs {
		if j != nil && j.Slug == slug {
			job = j
			break
		}
	}
	s.mu.Unlock()
	if job == nil {
		return fmt.Errorf("%w: %s", ErrUnknownJob, slug)
	}
	return s.run(ctx, job)
}

// LastRun reports when the job last finished.
func (s *Service) LastRun(slug string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.lastRun[slug]
	return t, ok
}

func (s *Service) run(ctx context.Context, job *Job) (err error) {
	s.mu.Lock()
	handler := s.handlers[job.Handler]
	s.mu.Unlock()
	if handler == nil {
		return fmt.Errorf("job %s: no handler %q", job.Slug, job.Handler)
	}

	if job.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(job.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	done := s.metrics.recordRun(job.Slug)
	start := s.now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", job.Slug, r)
		}
		done(err)
		s.mu.Lock()
		s.lastRun[job.Slug] = s.now()
		s.mu.Unlock()

		event := s.logger.Info()
		if err != nil {
			event = s.logger.Error().Err(err)
		}
		event.Str("job", job.Slug).Dur("took", s.now().Sub(start)).Msg("job finished")
	}()

	return handler(ctx, job)
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
