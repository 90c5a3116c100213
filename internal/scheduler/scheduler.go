// Package scheduler re-invokes audits on cron schedules inside the daemon.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrStopped is returned by RunNow once Stop has been called.
var ErrStopped = errors.New("scheduler stopped")

// Job is one named audit invocation.
type Job struct {
	Name     string
	Schedule string
	Run      func(ctx context.Context) error
}

// EntryStatus describes a scheduled job.
type EntryStatus struct {
	Name     string    `json:"name"`
	Schedule string    `json:"schedule"`
	Next     time.Time `json:"next"`
	Prev     time.Time `json:"prev,omitzero"`
	Running  bool      `json:"running"`
}

type entry struct {
	id       cron.EntryID
	schedule string
	job      cron.Job
	running  bool
}

// Scheduler runs jobs on their schedules. A job whose previous run has not
// finished is skipped rather than queued, so runs of one audit never overlap.
type Scheduler struct {
	cron    *cron.Cron
	logger  *slog.Logger
	chain   cron.Chain
	mu      sync.Mutex
	entries map[string]*entry // job name → cron entry
	ctx     context.Context
	stopped bool
	// manual tracks RunNow invocations, which cron's own job tracking misses.
	manual sync.WaitGroup
}

// New creates a scheduler. Jobs receive ctx, so cancelling it interrupts
// in-flight runs.
func New(ctx context.Context, logger *slog.Logger) *Scheduler {
	cl := cronLogger{logger: logger}
	return &Scheduler{
		cron:    cron.New(cron.WithLogger(cl)),
		logger:  logger,
		chain:   cron.NewChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		entries: make(map[string]*entry),
		ctx:     ctx,
	}
}

// Add registers a job. Names must be unique.
func (s *Scheduler) Add(j Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.entries[j.Name]; dup {
		return fmt.Errorf("job %q already scheduled", j.Name)
	}
	e := &entry{schedule: j.Schedule}
	e.job = s.chain.Then(cron.FuncJob(func() { s.invoke(j, e) }))

	id, err := s.cron.AddJob(j.Schedule, e.job)
	if err != nil {
		return fmt.Errorf("schedule %q for %s: %w", j.Schedule, j.Name, err)
	}
	e.id = id
	s.entries[j.Name] = e
	s.logger.Info("scheduled audit", "audit", j.Name, "schedule", j.Schedule)
	return nil
}

func (s *Scheduler) invoke(j Job, e *entry) {
	s.setRunning(e, true)
	defer s.setRunning(e, false)

	started := time.Now()
	if err := j.Run(s.ctx); err != nil {
		s.logger.Warn("scheduled audit failed", "audit", j.Name, "error", err)
		return
	}
	s.logger.Info("scheduled audit finished", "audit", j.Name, "duration", time.Since(started))
}

func (s *Scheduler) setRunning(e *entry, running bool) {
	s.mu.Lock()
	e.running = running
	s.mu.Unlock()
}

// RunNow invokes the named job synchronously. It is skipped, like a cron
// trigger, when the job is already running.
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return ErrStopped
	}
	e, ok := s.entries[name]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("no job named %q", name)
	}
	s.manual.Add(1)
	s.mu.Unlock()

	defer s.manual.Done()
	e.job.Run()
	return nil
}

// Start begins firing schedules.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.entries))
}

// Stop stops firing schedules, refuses further RunNow calls and waits for
// running jobs to return, including those started by RunNow.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	<-s.cron.Stop().Done()
	s.manual.Wait()
	s.logger.Info("scheduler stopped")
}

// Status lists the scheduled jobs sorted by name.
func (s *Scheduler) Status() []EntryStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]EntryStatus, 0, len(s.entries))
	for name, e := range s.entries {
		ce := s.cron.Entry(e.id)
		out = append(out, EntryStatus{
			Name:     name,
			Schedule: e.schedule,
			Next:     ce.Next,
			Prev:     ce.Prev,
			Running:  e.running,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
