// Package scheduler fires the pipeline on a cron schedule and guards every
// run, scheduled or manual, so that only one executes at a time.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

// ErrAlreadyRunning is returned by manual triggers while a run is in progress.
var ErrAlreadyRunning = errors.New("scheduler: a run is already in progress")

// Job is one pipeline run.
type Job func(ctx context.Context) error

// Status is a point-in-time view of the scheduler.
type Status struct {
	Running      bool       `json:"running"`
	Busy         bool       `json:"busy"`
	Schedule     string     `json:"schedule"`
	Timezone     string     `json:"timezone"`
	RunsPerDay   int        `json:"runsPerDay"`
	NextFireTime *time.Time `json:"nextFireTime,omitempty"`
	LastRun      *time.Time `json:"lastRun,omitempty"`
	LastSkipped  *time.Time `json:"lastSkipped,omitempty"`
}

// Scheduler owns the cron instance and the single-flight guard.
type Scheduler struct {
	job    Job
	guard  *semaphore.Weighted
	logger zerolog.Logger
	now    func() time.Time

	// runs is the context scheduled and manual runs derive from; Stop cancels it.
	runs   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu          sync.Mutex
	cron        *cron.Cron
	spec        string
	loc         *time.Location
	schedule    cron.Schedule
	busy        bool
	lastRun     time.Time
	lastSkipped time.Time
}

// New creates a stopped scheduler. spec and timezone are the defaults for
// Start and what Status reports before the first Start.
func New(job Job, spec, timezone string, logger zerolog.Logger) (*Scheduler, error) {
	sched, loc, err := parse(spec, timezone)
	if err != nil {
		return nil, err
	}
	runs, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		job:      job,
		guard:    semaphore.NewWeighted(1),
		logger:   logger,
		now:      time.Now,
		runs:     runs,
		cancel:   cancel,
		spec:     spec,
		loc:      loc,
		schedule: sched,
	}, nil
}

func parse(spec, timezone string) (cron.Schedule, *time.Location, error) {
	if timezone == "" {
		timezone = "UTC"
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, nil, fmt.Errorf("scheduler: timezone %q: %w", timezone, err)
	}
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, nil, fmt.Errorf("scheduler: cron spec %q: %w", spec, err)
	}
	return sched, loc, nil
}

// Start registers the recurring fire. Empty arguments keep the current
// schedule. Calling Start while started is a no-op that returns false.
func (s *Scheduler) Start(spec, timezone string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return false, nil
	}
	if spec == "" {
		spec = s.spec
	}
	if timezone == "" {
		timezone = s.loc.String()
	}
	sched, loc, err := parse(spec, timezone)
	if err != nil {
		return false, err
	}

	c := cron.New(cron.WithLocation(loc))
	c.Schedule(sched, cron.FuncJob(s.fire))
	c.Start()

	s.cron, s.spec, s.loc, s.schedule = c, spec, loc, sched
	s.logger.Info().Str("schedule", spec).Str("timezone", loc.String()).Time("next_run", sched.Next(s.now().In(loc))).Msg("scheduler started")
	return true, nil
}

// Status reports the schedule. NextFireTime is computed from now, so it is
// known before the first fire.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{
		Running:    s.cron != nil,
		Busy:       s.busy,
		Schedule:   s.spec,
		Timezone:   s.loc.String(),
		RunsPerDay: runsPerDay(s.schedule, s.now().In(s.loc)),
	}
	next := s.schedule.Next(s.now().In(s.loc))
	st.NextFireTime = &next
	if !s.lastRun.IsZero() {
		t := s.lastRun
		st.LastRun = &t
	}
	if !s.lastSkipped.IsZero() {
		t := s.lastSkipped
		st.LastSkipped = &t
	}
	return st
}

// runsPerDay counts fires in the 24 hours after from.
func runsPerDay(sched cron.Schedule, from time.Time) int {
	end := from.Add(24 * time.Hour)
	n := 0
	for t := sched.Next(from); !t.After(end) && n < 24*60; t = sched.Next(t) {
		n++
	}
	return n
}

// Trigger runs the configured job now, or returns ErrAlreadyRunning.
func (s *Scheduler) Trigger(ctx context.Context) error {
	return s.Do(ctx, s.job)
}

// Do runs fn under the single-flight guard shared with scheduled fires.
func (s *Scheduler) Do(ctx context.Context, fn Job) error {
	if !s.guard.TryAcquire(1) {
		return ErrAlreadyRunning
	}
	s.wg.Add(1)
	defer s.wg.Done()
	defer s.release()
	s.markBusy()
	return fn(ctx)
}

// fire is the cron callback. A fire while busy is skipped, never queued.
func (s *Scheduler) fire() {
	if !s.guard.TryAcquire(1) {
		s.mu.Lock()
		s.lastSkipped = s.now()
		s.mu.Unlock()
		s.logger.Warn().Msg("scheduled run skipped: previous run still in progress")
		return
	}
	s.wg.Add(1)
	defer s.wg.Done()
	defer s.release()
	s.markBusy()

	s.logger.Info().Msg("scheduled run starting")
	if err := s.job(s.runs); err != nil {
		s.logger.Error().Err(err).Msg("scheduled run failed")
		return
	}
	s.logger.Info().Msg("scheduled run finished")
}

func (s *Scheduler) markBusy() {
	s.mu.Lock()
	s.busy = true
	s.lastRun = s.now()
	s.mu.Unlock()
}

func (s *Scheduler) release() {
	s.mu.Lock()
	s.busy = false
	s.mu.Unlock()
	s.guard.Release(1)
}

// Stop halts future fires and waits for an in-flight run until ctx expires,
// then cancels scheduled runs.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c != nil {
		c.Stop()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.cancel()
		return fmt.Errorf("scheduler: stop: %w", ctx.Err())
	}
}
