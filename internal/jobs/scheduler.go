// Package jobs runs the storefront's periodic maintenance on a cron
// schedule.
package jobs

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	command "github.com/goliatone/go-command"
	goerrors "github.com/goliatone/go-errors"
	"github.com/robfig/cron/v3"

	"github.com/goliatone/go-storefront/internal/logging"
	"github.com/goliatone/go-storefront/pkg/interfaces"
)

const (
	JobSitemapRefresh = "sitemap.refresh"
	JobCatalogPurge   = "catalog.purge"

	DefaultSitemapSpec      = "@every 15m"
	DefaultCatalogPurgeSpec = "@every 1h"
)

// ErrUnknownJob is returned by RunNow for a name that was never registered.
var ErrUnknownJob = goerrors.New("unknown job", goerrors.CategoryNotFound).WithTextCode("UNKNOWN_JOB")

// Handler is a go-command cron handler with a stable job name. Run is what
// the scheduler invokes so that cancellation reaches the job.
type Handler interface {
	command.CronCommand
	JobName() string
	Run(ctx context.Context) error
}

// CronRegistrar is the go-command cron registration contract.
type CronRegistrar func(command.HandlerConfig, any) error

type job struct {
	name string
	spec string
	run  func(ctx context.Context) error
}

// Scheduler runs registered jobs on their cron specs. Job failures are
// logged and recorded, never propagated. A stopped scheduler can be
// started again.
type Scheduler struct {
	cron     *cron.Cron
	logger   interfaces.Logger
	recorder RunRecorder
	now      func() time.Time

	mu      sync.Mutex
	jobs    map[string]job
	started bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Option customises a Scheduler.
type Option func(*Scheduler)

// WithRecorder stores every run in recorder.
func WithRecorder(recorder RunRecorder) Option {
	return func(s *Scheduler) {
		if recorder != nil {
			s.recorder = recorder
		}
	}
}

// WithClock overrides the clock used for run records.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// NewScheduler builds an idle scheduler.
func NewScheduler(logger interfaces.Logger, opts ...Option) *Scheduler {
	if logger == nil {
		logger = logging.NoOp()
	}
	s := &Scheduler{
		logger:   logger,
		recorder: NewInMemoryRunRecorder(0),
		now:      time.Now,
		jobs:     make(map[string]job),
	}
	for _, opt := range opts {
		opt(s)
	}
	adapter := cronLogger{logger: logger}
	s.cron = cron.New(
		cron.WithLogger(adapter),
		cron.WithChain(cron.Recover(adapter), cron.SkipIfStillRunning(adapter)),
	)
	return s
}

// Register schedules handler on the expression from its cron options.
func (s *Scheduler) Register(handler Handler) error {
	if handler == nil {
		return invalidJob("job handler is required")
	}
	return s.Registrar()(handler.CronOptions(), handler)
}

// Registrar returns a CronRegistrar that schedules Handler values on this
// scheduler. Names must be unique and expressions must parse.
func (s *Scheduler) Registrar() CronRegistrar {
	return func(cfg command.HandlerConfig, target any) error {
		handler, ok := target.(Handler)
		if !ok || handler == nil {
			return invalidJob("cron target must be a named job handler")
		}
		return s.add(job{name: strings.TrimSpace(handler.JobName()), spec: cfg.Expression, run: handler.Run})
	}
}

// RegisterHandlers passes every handler and its cron options to registrar.
func RegisterHandlers(registrar CronRegistrar, handlers ...Handler) error {
	if registrar == nil {
		return nil
	}
	var errs error
	for _, handler := range handlers {
		if handler == nil {
			continue
		}
		if err := registrar(handler.CronOptions(), handler); err != nil {
			errs = errors.Join(errs, err)
		}
	}
	return errs
}

func (s *Scheduler) add(j job) error {
	if j.name == "" || j.run == nil {
		return invalidJob("job name and run func are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[j.name]; exists {
		return goerrors.New("job already registered", goerrors.CategoryConflict).
			WithTextCode("DUPLICATE_JOB").
			WithMetadata(map[string]any{"job": j.name})
	}
	if _, err := s.cron.AddFunc(j.spec, func() { s.execute(s.runContext(), j, false) }); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid cron spec").
			WithTextCode("INVALID_JOB").
			WithMetadata(map[string]any{"job": j.name, "spec": j.spec})
	}
	s.jobs[j.name] = j
	return nil
}

func invalidJob(message string) error {
	return goerrors.New(message, goerrors.CategoryBadInput).WithTextCode("INVALID_JOB")
}

// runContext is cancelled by Stop.
func (s *Scheduler) runContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx == nil {
		return context.Background()
	}
	return s.ctx
}

// Jobs lists the registered job names.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Start begins the cron loop. Calling it twice is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.cron.Start()
	s.logger.Info("jobs.scheduler.started", "jobs", len(s.jobs))
}

// Stop halts the cron loop and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	started := s.started
	s.started = false
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if !started {
		return nil
	}
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("jobs.scheduler.stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunNow executes the named job synchronously and returns its error.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	j, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return ErrUnknownJob
	}
	return s.execute(ctx, j, true)
}

func (s *Scheduler) execute(ctx context.Context, j job, manual bool) error {
	started := s.now()
	err := j.run(ctx)
	run := RunRecord{
		Job:       j.name,
		StartedAt: started,
		Duration:  s.now().Sub(started),
		Manual:    manual,
	}
	logger := s.logger.WithContext(ctx)
	if err != nil {
		run.Err = err.Error()
		logger.Error("jobs.run.failed", "job", j.name, "error", err)
	} else {
		logger.Debug("jobs.run.completed", "job", j.name, "duration", run.Duration)
	}
	if recErr := s.recorder.Record(ctx, run); recErr != nil {
		logger.Warn("jobs.run.record_failed", "job", j.name, "error", recErr)
	}
	return err
}

// cronLogger forwards cron's own logging.
type cronLogger struct {
	logger interfaces.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("jobs.cron."+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("jobs.cron."+msg, append(keysAndValues, "error", err)...)
}
