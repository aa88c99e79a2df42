// Package scheduler runs registered jobs on cron schedules.
package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/daybook/internal/interfaces"
)

// jobEntry represents a registered job with metadata
type jobEntry struct {
	name      string
	schedule  string
	handler   func()
	cronID    cron.EntryID
	lastRun   *time.Time
	isRunning bool
}

// Service implements interfaces.SchedulerService on robfig/cron. A job
// already running is skipped when its schedule fires again; fire-and-forget
// handlers should return quickly and do their work elsewhere.
type Service struct {
	cron    *cron.Cron
	logger  arbor.ILogger
	mu      sync.Mutex
	jobs    map[string]*jobEntry
	running bool
}

// Compile-time assertion
var _ interfaces.SchedulerService = (*Service)(nil)

// NewService creates a scheduler whose cron expressions are evaluated in
// loc. Schedule times are wall-clock times in the canonical timezone, never
// the platform zone; a nil loc falls back to UTC.
func NewService(logger arbor.ILogger, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		cron:   cron.New(cron.WithLocation(loc)),
		logger: logger,
		jobs:   make(map[string]*jobEntry),
	}
}

// RegisterJob adds a named job on a cron schedule. Must be called before
// Start; duplicate names are rejected.
func (s *Service) RegisterJob(name, schedule string, handler func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s already registered", name)
	}

	entry := &jobEntry{
		name:     name,
		schedule: schedule,
		handler:  handler,
	}

	cronID, err := s.cron.AddFunc(schedule, func() { s.executeJob(entry) })
	if err != nil {
		return fmt.Errorf("invalid schedule %q for job %s: %w", schedule, name, err)
	}
	entry.cronID = cronID
	s.jobs[name] = entry

	s.logger.Info().
		Str("job", name).
		Str("schedule", schedule).
		Msg("Job registered")

	return nil
}

// executeJob runs one job with overlap protection and panic recovery.
func (s *Service) executeJob(entry *jobEntry) {
	s.mu.Lock()
	if entry.isRunning {
		s.mu.Unlock()
		s.logger.Warn().Str("job", entry.name).Msg("Job still running, skipping this fire")
		return
	}
	entry.isRunning = true
	now := time.Now().UTC()
	entry.lastRun = &now
	s.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Str("job", entry.name).
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("Job panicked")
		}
		s.mu.Lock()
		entry.isRunning = false
		s.mu.Unlock()
	}()

	s.logger.Debug().Str("job", entry.name).Msg("Job firing")
	entry.handler()
}

// TriggerJob runs a registered job immediately, outside its schedule.
func (s *Service) TriggerJob(name string) error {
	s.mu.Lock()
	entry, exists := s.jobs[name]
	s.mu.Unlock()

	if !exists {
		return fmt.Errorf("job %s not registered", name)
	}

	go s.executeJob(entry)
	return nil
}

// Start begins the cron loop.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	s.cron.Start()
	s.running = true
	s.logger.Info().Int("jobs", len(s.jobs)).Msg("Scheduler started")
	return nil
}

// Stop halts the cron loop and waits for in-flight job functions to return.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info().Msg("Scheduler stopped")
}
