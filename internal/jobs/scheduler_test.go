package jobs_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	command "github.com/goliatone/go-command"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/goliatone/go-storefront/internal/jobs"
	"github.com/goliatone/go-storefront/pkg/testsupport"
)

type refresher struct {
	calls int
	err   error
}

func (r *refresher) Refresh(context.Context) error {
	r.calls++
	return r.err
}

type purger struct{ calls int }

func (p *purger) Purge() { p.calls++ }

// funcJob is a minimal named cron handler.
type funcJob struct {
	name string
	spec string
	run  func(ctx context.Context) error
}

func (j funcJob) JobName() string               { return j.name }
func (j funcJob) Run(ctx context.Context) error { return j.run(ctx) }
func (j funcJob) CronOptions() command.HandlerConfig {
	return command.HandlerConfig{Expression: j.spec}
}
func (j funcJob) CronHandler() func() error {
	return func() error { return j.run(context.Background()) }
}

func noop(context.Context) error { return nil }

func TestSchedulerStartStopDoesNotLeak(t *testing.T) {
	defer goleak.VerifyNone(t)

	scheduler := jobs.NewScheduler(nil)
	if err := scheduler.Register(jobs.NewSitemapRefreshHandler(&refresher{}, nil)); err != nil {
		t.Fatalf("register: %v", err)
	}
	scheduler.Start()
	scheduler.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := scheduler.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := scheduler.Stop(ctx); err != nil {
		t.Fatalf("second stop: %v", err)
	}
}

func TestRegisterValidatesJobs(t *testing.T) {
	scheduler := jobs.NewScheduler(nil)
	defer scheduler.Stop(context.Background())

	if err := scheduler.Register(funcJob{name: "broken", spec: "not a spec", run: noop}); err == nil {
		t.Fatal("expected invalid spec error")
	}
	if err := scheduler.Register(funcJob{spec: "@every 1m", run: noop}); err == nil {
		t.Fatal("expected missing name error")
	}
	if err := scheduler.Register(jobs.NewCatalogPurgeHandler(&purger{}, nil)); err != nil {
		t.Fatalf("register purge: %v", err)
	}
	if err := scheduler.Register(jobs.NewCatalogPurgeHandler(&purger{}, nil, jobs.WithCronExpression("@every 5m"))); err == nil {
		t.Fatal("expected duplicate job error")
	}
	if err := scheduler.Registrar()(command.HandlerConfig{Expression: "@daily"}, func() error { return nil }); err == nil {
		t.Fatal("expected anonymous cron func to be rejected")
	}
	if diff := cmp.Diff([]string{jobs.JobCatalogPurge}, scheduler.Jobs()); diff != "" {
		t.Fatalf("unexpected jobs (-want +got):\n%s", diff)
	}
}

func TestHandlersCarryCronOptions(t *testing.T) {
	sitemap := jobs.NewSitemapRefreshHandler(&refresher{}, nil)
	if got := sitemap.CronOptions().Expression; got != jobs.DefaultSitemapSpec {
		t.Fatalf("expected default sitemap expression, got %q", got)
	}
	purge := jobs.NewCatalogPurgeHandler(&purger{}, nil, jobs.WithCronExpression("  "))
	if got := purge.CronOptions().Expression; got != jobs.DefaultCatalogPurgeSpec {
		t.Fatalf("blank override should keep the default, got %q", got)
	}
	purge = jobs.NewCatalogPurgeHandler(&purger{}, nil, jobs.WithCronExpression("@every 10m"))
	if got := purge.CronOptions().Expression; got != "@every 10m" {
		t.Fatalf("expected override, got %q", got)
	}

	type registration struct {
		config  command.HandlerConfig
		handler any
	}
	var registered []registration
	registrar := func(cfg command.HandlerConfig, handler any) error {
		registered = append(registered, registration{config: cfg, handler: handler})
		return nil
	}
	if err := jobs.RegisterHandlers(registrar, sitemap, purge); err != nil {
		t.Fatalf("RegisterHandlers: %v", err)
	}
	if len(registered) != 2 {
		t.Fatalf("expected two registrations, got %d", len(registered))
	}
	if registered[1].config.Expression != "@every 10m" || registered[1].handler != any(purge) {
		t.Fatalf("unexpected purge registration %+v", registered[1])
	}
	if err := jobs.RegisterHandlers(nil, sitemap); err != nil {
		t.Fatalf("nil registrar should be a no-op, got %v", err)
	}
}

func TestCronHandlerExecutesCommand(t *testing.T) {
	catalog := &purger{}
	handler := jobs.NewCatalogPurgeHandler(catalog, nil)
	if err := handler.CronHandler()(); err != nil {
		t.Fatalf("cron handler: %v", err)
	}
	if err := handler.Execute(context.Background(), jobs.PurgeCatalogCommand{}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if catalog.calls != 2 {
		t.Fatalf("expected two purges, got %d", catalog.calls)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := handler.Run(ctx); err == nil {
		t.Fatal("expected cancelled context error")
	}
	if catalog.calls != 2 {
		t.Fatalf("cancelled run must not purge, got %d calls", catalog.calls)
	}
}

func TestRunNowRecordsAndLogsFailures(t *testing.T) {
	logger := &testsupport.RecordingLogger{}
	recorder := jobs.NewInMemoryRunRecorder(10)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	scheduler := jobs.NewScheduler(logger, jobs.WithRecorder(recorder), jobs.WithClock(func() time.Time { return now }))
	defer scheduler.Stop(context.Background())

	sitemap := &refresher{err: errors.New("cms down")}
	catalog := &purger{}
	if err := jobs.RegisterHandlers(scheduler.Registrar(),
		jobs.NewSitemapRefreshHandler(sitemap, nil),
		jobs.NewCatalogPurgeHandler(catalog, nil),
	); err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := scheduler.RunNow(context.Background(), jobs.JobSitemapRefresh); err == nil {
		t.Fatal("expected refresh error")
	}
	if err := scheduler.RunNow(context.Background(), jobs.JobCatalogPurge); err != nil {
		t.Fatalf("purge: %v", err)
	}
	if err := scheduler.RunNow(context.Background(), "missing"); !errors.Is(err, jobs.ErrUnknownJob) {
		t.Fatalf("expected unknown job, got %v", err)
	}
	if sitemap.calls != 1 || catalog.calls != 1 {
		t.Fatalf("unexpected calls: sitemap %d catalog %d", sitemap.calls, catalog.calls)
	}

	runs := recorder.Runs()
	if len(runs) != 2 {
		t.Fatalf("expected two runs, got %+v", runs)
	}
	if runs[0].Job != jobs.JobSitemapRefresh || !runs[0].Manual || !strings.Contains(runs[0].Err, "cms down") {
		t.Fatalf("unexpected sitemap run %+v", runs[0])
	}
	want := jobs.RunRecord{Job: jobs.JobCatalogPurge, StartedAt: now, Manual: true}
	if diff := cmp.Diff(want, runs[1]); diff != "" {
		t.Fatalf("unexpected purge run (-want +got):\n%s", diff)
	}
	if logger.Count("error") != 1 {
		t.Fatalf("expected one error log, got %+v", logger.Entries())
	}
}

func TestRunRecorderKeepsLatest(t *testing.T) {
	recorder := jobs.NewInMemoryRunRecorder(2)
	for _, name := range []string{"a", "b", "c"} {
		_ = recorder.Record(context.Background(), jobs.RunRecord{Job: name})
	}
	runs := recorder.Runs()
	if len(runs) != 2 || runs[0].Job != "b" || runs[1].Job != "c" {
		t.Fatalf("unexpected runs %+v", runs)
	}
}

func tickJob(name string, seen chan<- error) funcJob {
	return funcJob{name: name, spec: "@every 1s", run: func(ctx context.Context) error {
		select {
		case seen <- ctx.Err():
		default:
		}
		return nil
	}}
}

func TestScheduledJobRuns(t *testing.T) {
	scheduler := jobs.NewScheduler(nil)
	seen := make(chan error, 1)
	if err := scheduler.Register(tickJob("tick", seen)); err != nil {
		t.Fatalf("register: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop(context.Background())

	select {
	case err := <-seen:
		if err != nil {
			t.Fatalf("job ran with a done context: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("scheduled job did not run")
	}
}

func TestSchedulerRestartsWithLiveContext(t *testing.T) {
	scheduler := jobs.NewScheduler(nil)
	seen := make(chan error, 1)
	if err := scheduler.Register(tickJob("tick", seen)); err != nil {
		t.Fatalf("register: %v", err)
	}

	scheduler.Start()
	if err := scheduler.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	// drain a tick that raced the stop
	select {
	case <-seen:
	default:
	}

	scheduler.Start()
	defer scheduler.Stop(context.Background())
	select {
	case err := <-seen:
		if err != nil {
			t.Fatalf("restarted job ran with a cancelled context: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("restarted job did not run")
	}
}
