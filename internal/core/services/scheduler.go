package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/topicseek/internal/core/domain"
	"github.com/custodia-labs/topicseek/internal/core/ports/driving"
	"github.com/custodia-labs/topicseek/internal/logger"
)

// Ensure Scheduler implements the interface.
var _ driving.Scheduler = (*Scheduler)(nil)

// maxCheckInterval caps how long the loop sleeps between due-task checks.
const maxCheckInterval = time.Minute

// Scheduler runs periodic incremental rebuilds of every enabled tenant store.
type Scheduler struct {
	builder  driving.IndexBuilder
	interval time.Duration
	now      func() time.Time

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
	tasks   map[string]*domain.ScheduledTask
	busy    map[string]bool
	history []domain.TaskResult
}

// NewScheduler creates a scheduler that rebuilds every interval.
func NewScheduler(builder driving.IndexBuilder, interval time.Duration) *Scheduler {
	return &Scheduler{
		builder:  builder,
		interval: interval,
		now:      time.Now,
		tasks:    make(map[string]*domain.ScheduledTask),
		busy:     make(map[string]bool),
	}
}

// Start begins the scheduler loop. This method blocks until Stop is
// called or ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.interval <= 0 {
		return fmt.Errorf("%w: rebuild interval must be positive", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil // Already running
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	if _, ok := s.tasks[domain.TaskIDIncrementalBuild]; !ok {
		s.tasks[domain.TaskIDIncrementalBuild] = &domain.ScheduledTask{
			ID:       domain.TaskIDIncrementalBuild,
			Name:     "Incremental Build",
			Interval: s.interval,
			NextRun:  s.now().Add(s.interval),
		}
	}
	s.mu.Unlock()

	logger.Info("Scheduler started: incremental build every %s", s.interval)
	return s.run(ctx, stopCh)
}

// Stop gracefully shuts down the scheduler and waits for a running task.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// Tasks returns a snapshot of the scheduled tasks.
func (s *Scheduler) Tasks() []domain.ScheduledTask {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks := make([]domain.ScheduledTask, 0, len(s.tasks))
	for _, t := range s.tasks {
		tasks = append(tasks, *t)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return tasks
}

// History returns the results of completed task runs, oldest first.
func (s *Scheduler) History() []domain.TaskResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.TaskResult(nil), s.history...)
}

// run is the main scheduler loop.
func (s *Scheduler) run(ctx context.Context, stopCh <-chan struct{}) error {
	ticker := time.NewTicker(min(s.interval, maxCheckInterval))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			return ctx.Err()
		case <-stopCh:
			return nil
		case <-ticker.C:
			s.checkAndRunDueTasks(ctx)
		}
	}
}

// checkAndRunDueTasks starts every due task that is not already running.
func (s *Scheduler) checkAndRunDueTasks(ctx context.Context) {
	now := s.now()

	s.mu.Lock()
	var due []string
	for id, task := range s.tasks {
		if task.Due(now) && !s.busy[id] {
			s.busy[id] = true
			due = append(due, id)
		}
	}
	s.mu.Unlock()

	for _, id := range due {
		s.runTask(ctx, id)
	}
}

// runTask executes a single task in the background.
func (s *Scheduler) runTask(ctx context.Context, taskID string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		result := domain.TaskResult{
			TaskID:    taskID,
			StartedAt: s.now(),
		}

		var err error
		switch taskID {
		case domain.TaskIDIncrementalBuild:
			result.ItemsProcessed, err = s.runIncrementalBuild(ctx)
		default:
			err = fmt.Errorf("unknown task %s", taskID)
		}
		result.EndedAt = s.now()

		s.mu.Lock()
		defer s.mu.Unlock()
		s.busy[taskID] = false

		task := s.tasks[taskID]
		task.LastRun = result.StartedAt
		task.NextRun = result.EndedAt.Add(task.Interval)
		if err != nil {
			result.Error = err.Error()
			task.LastError = err.Error()
			logger.Warn("Scheduled task %s failed: %v", taskID, err)
		} else {
			result.Success = true
			task.LastError = ""
			task.LastSuccess = result.EndedAt
		}
		s.history = append(s.history, result)
	}()
}

// runIncrementalBuild builds every enabled tenant store and returns the
// number of newly indexed units.
func (s *Scheduler) runIncrementalBuild(ctx context.Context) (int, error) {
	report := s.builder.BuildAll(ctx, domain.BuildModeIncremental)

	indexed := 0
	for _, r := range report.Reports {
		indexed += r.IndexedUnits
	}
	if report.Total > 0 && report.Succeeded < report.Total {
		return indexed, fmt.Errorf("%d/%d tenant builds failed", report.Total-report.Succeeded, report.Total)
	}
	return indexed, nil
}
