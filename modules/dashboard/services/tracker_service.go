package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/syurii10/cloud-optimization-project/modules/dashboard/domain/testrun"
	"github.com/syurii10/cloud-optimization-project/pkg/composables"
	"github.com/syurii10/cloud-optimization-project/pkg/eventbus"
)

type TrackerOption func(*TrackerService)

// WithClock replaces time.Now for start stamps and elapsed time.
func WithClock(now func() time.Time) TrackerOption {
	return func(s *TrackerService) {
		if now != nil {
			s.now = now
		}
	}
}

// TrackerService owns the single run slot. At most one orchestrator run is
// active at a time; the last run is kept after it stops until the next
// accepted start replaces it.
type TrackerService struct {
	configs          testrun.ConfigStore
	launcher         testrun.Launcher
	publisher        eventbus.EventBus
	logger           *logrus.Entry
	defaultInstances []string
	now              func() time.Time

	mu      sync.Mutex
	current *testrun.Run
}

func NewTrackerService(
	configs testrun.ConfigStore,
	launcher testrun.Launcher,
	publisher eventbus.EventBus,
	logger *logrus.Entry,
	defaultInstances []string,
	opts ...TrackerOption,
) *TrackerService {
	s := &TrackerService{
		configs:          configs,
		launcher:         launcher,
		publisher:        publisher,
		logger:           logger,
		defaultInstances: append([]string(nil), defaultInstances...),
		now:              time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// StartRun persists cfg and launches the orchestrator without waiting for
// it. The returned run is a copy.
func (s *TrackerService) StartRun(ctx context.Context, cfg testrun.Config) (testrun.Run, error) {
	logger := composables.UseLogger(ctx)

	s.mu.Lock()
	if s.current != nil && s.current.Running {
		s.mu.Unlock()
		return testrun.Run{}, testrun.ErrAlreadyRunning
	}

	cfg.ApplyDefaults(s.defaultInstances)
	if err := cfg.Validate(); err != nil {
		s.mu.Unlock()
		return testrun.Run{}, err
	}
	cfg.CreatedAt = s.now().UTC()

	if err := s.configs.Save(cfg); err != nil {
		s.mu.Unlock()
		return testrun.Run{}, fmt.Errorf("%w: %w", testrun.ErrLaunchFailed, err)
	}
	proc, err := s.launcher.Start()
	if err != nil {
		s.mu.Unlock()
		return testrun.Run{}, fmt.Errorf("%w: %w", testrun.ErrLaunchFailed, err)
	}

	run := testrun.Run{
		ID:        uuid.NewString(),
		PID:       proc.PID(),
		StartTime: s.now(),
		Running:   true,
		Config:    cfg.Clone(),
	}
	s.current = &run
	started := run.Clone()
	s.mu.Unlock()

	logger.WithFields(logrus.Fields{
		"test-id":   started.ID,
		"pid":       started.PID,
		"instances": started.Config.Instances,
		"mode":      started.Config.Mode,
	}).Info("test run started")

	s.publisher.Publish(&testrun.StartedEvent{Run: started.Clone()})
	go s.await(started.Clone(), proc)
	return started, nil
}

func (s *TrackerService) await(run testrun.Run, proc testrun.Process) {
	exitCode, err := proc.Wait()
	finishedAt := s.now()

	s.mu.Lock()
	if s.current != nil && s.current.ID == run.ID {
		s.current.Running = false
	}
	s.mu.Unlock()

	run.Running = false
	entry := s.logger.WithFields(logrus.Fields{
		"test-id":   run.ID,
		"pid":       run.PID,
		"exit-code": exitCode,
	})
	if err != nil {
		entry.WithError(err).Error("test run ended abnormally")
	} else {
		entry.Info("test run finished")
	}

	s.publisher.Publish(&testrun.FinishedEvent{
		Run:      run,
		ExitCode: exitCode,
		Err:      err,
		Duration: finishedAt.Sub(run.StartTime),
	})
}

// GetStatus never blocks on the orchestrator.
func (s *TrackerService) GetStatus() testrun.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return testrun.NoRunStatus()
	}
	return testrun.NewStatus(*s.current, s.now())
}
