package services_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/syurii10/cloud-optimization-project/modules/dashboard/domain/testrun"
	"github.com/syurii10/cloud-optimization-project/modules/dashboard/services"
	"github.com/syurii10/cloud-optimization-project/pkg/eventbus"
)

type fakeProcess struct {
	pid  int
	exit chan int
	err  error
}

func (p *fakeProcess) PID() int { return p.pid }

func (p *fakeProcess) Wait() (int, error) {
	return <-p.exit, p.err
}

type fakeLauncher struct {
	mu        sync.Mutex
	processes []*fakeProcess
	startErr  error
	nextPID   int
}

func (l *fakeLauncher) Start() (testrun.Process, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.startErr != nil {
		return nil, l.startErr
	}
	l.nextPID++
	p := &fakeProcess{pid: 1000 + l.nextPID, exit: make(chan int, 1)}
	l.processes = append(l.processes, p)
	return p, nil
}

func (l *fakeLauncher) started() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.processes)
}

func (l *fakeLauncher) last() *fakeProcess {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.processes[len(l.processes)-1]
}

type fakeConfigStore struct {
	mu      sync.Mutex
	saved   []testrun.Config
	saveErr error
}

func (s *fakeConfigStore) Save(cfg testrun.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append(s.saved, cfg.Clone())
	return nil
}

func (s *fakeConfigStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saved)
}

type trackerFixture struct {
	tracker   *services.TrackerService
	launcher  *fakeLauncher
	configs   *fakeConfigStore
	publisher eventbus.EventBus
	finished  chan *testrun.FinishedEvent
	clock     *atomic.Int64
}

func newTrackerFixture(t *testing.T) *trackerFixture {
	t.Helper()
	logger, _ := test.NewNullLogger()
	publisher := eventbus.NewEventPublisher(logger)
	finished := make(chan *testrun.FinishedEvent, 8)
	publisher.Subscribe(func(e *testrun.FinishedEvent) { finished <- e })

	clock := &atomic.Int64{}
	clock.Store(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC).UnixNano())

	f := &trackerFixture{
		launcher:  &fakeLauncher{},
		configs:   &fakeConfigStore{},
		publisher: publisher,
		finished:  finished,
		clock:     clock,
	}
	f.tracker = services.NewTrackerService(
		f.configs,
		f.launcher,
		publisher,
		logrus.NewEntry(logger),
		[]string{"t3.micro", "t3.small", "t3.medium"},
		services.WithClock(func() time.Time { return time.Unix(0, clock.Load()).UTC() }),
	)
	return f
}

func (f *trackerFixture) advance(d time.Duration) {
	f.clock.Add(int64(d))
}

func (f *trackerFixture) finish(t *testing.T, code int) *testrun.FinishedEvent {
	t.Helper()
	f.launcher.last().exit <- code
	select {
	case e := <-f.finished:
		return e
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for run to finish")
		return nil
	}
}

func TestTracker_NoRun(t *testing.T) {
	f := newTrackerFixture(t)
	assert.Equal(t, testrun.NoRunStatus(), f.tracker.GetStatus())
}

func TestTracker_StartAppliesDefaultsAndSavesConfig(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newTrackerFixture(t)

	run, err := f.tracker.StartRun(context.Background(), testrun.Config{})
	require.NoError(t, err)

	assert.NotEmpty(t, run.ID)
	assert.Equal(t, 1001, run.PID)
	assert.True(t, run.Running)
	assert.Equal(t, []string{"t3.micro", "t3.small", "t3.medium"}, run.Config.Instances)
	assert.Equal(t, []int{500, 2000, 5000}, run.Config.RPSLevels)
	assert.Equal(t, 60, run.Config.Duration)
	assert.Equal(t, testrun.ModeSequential, run.Config.Mode)
	assert.Equal(t, time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC), run.Config.CreatedAt)

	require.Equal(t, 1, f.configs.count())
	assert.Equal(t, run.Config, f.configs.saved[0])

	f.finish(t, 0)
}

func TestTracker_RejectsWhileRunning(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newTrackerFixture(t)

	_, err := f.tracker.StartRun(context.Background(), testrun.Config{})
	require.NoError(t, err)

	_, err = f.tracker.StartRun(context.Background(), testrun.Config{Duration: 10})
	require.ErrorIs(t, err, testrun.ErrAlreadyRunning)
	assert.Equal(t, "Test already running", err.Error())
	assert.Equal(t, 1, f.launcher.started())
	assert.Equal(t, 1, f.configs.count())

	f.finish(t, 0)
}

func TestTracker_StatusLifecycle(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newTrackerFixture(t)

	run, err := f.tracker.StartRun(context.Background(), testrun.Config{Instances: []string{"t3.micro"}})
	require.NoError(t, err)

	f.advance(90*time.Second + 700*time.Millisecond)
	status := f.tracker.GetStatus()
	assert.True(t, status.Running)
	require.NotNil(t, status.Elapsed)
	assert.Equal(t, int64(90), *status.Elapsed)
	assert.Equal(t, run.StartTime, *status.StartTime)
	assert.Equal(t, []string{"t3.micro"}, status.Config.Instances)

	event := f.finish(t, 7)
	assert.Equal(t, 7, event.ExitCode)
	assert.False(t, event.Run.Running)
	assert.Equal(t, run.ID, event.Run.ID)

	status = f.tracker.GetStatus()
	assert.False(t, status.Running)
	assert.Equal(t, run.ID, status.TestID)
	assert.Empty(t, status.Message)
}

func TestTracker_RestartAfterFinish(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newTrackerFixture(t)

	first, err := f.tracker.StartRun(context.Background(), testrun.Config{})
	require.NoError(t, err)
	f.finish(t, 1)

	second, err := f.tracker.StartRun(context.Background(), testrun.Config{Mode: testrun.ModeParallel})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	status := f.tracker.GetStatus()
	assert.True(t, status.Running)
	assert.Equal(t, second.ID, status.TestID)
	assert.Equal(t, testrun.ModeParallel, status.Config.Mode)

	f.finish(t, 0)
}

func TestTracker_ConcurrentStartsAcceptExactlyOne(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newTrackerFixture(t)

	const callers = 16
	var (
		wg       sync.WaitGroup
		accepted atomic.Int32
		rejected atomic.Int32
	)
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.tracker.StartRun(context.Background(), testrun.Config{})
			switch {
			case err == nil:
				accepted.Add(1)
			case errors.Is(err, testrun.ErrAlreadyRunning):
				rejected.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), accepted.Load())
	assert.Equal(t, int32(callers-1), rejected.Load())
	assert.Equal(t, 1, f.launcher.started())

	f.finish(t, 0)
}

func TestTracker_InvalidConfig(t *testing.T) {
	f := newTrackerFixture(t)

	_, err := f.tracker.StartRun(context.Background(), testrun.Config{Instances: []string{}})
	require.ErrorIs(t, err, testrun.ErrInvalidConfig)
	assert.Equal(t, 0, f.launcher.started())
	assert.Equal(t, testrun.NoRunStatus(), f.tracker.GetStatus())
}

func TestTracker_LaunchFailureLeavesSlotUnchanged(t *testing.T) {
	f := newTrackerFixture(t)
	f.launcher.startErr = errors.New("exec: python3: not found")

	_, err := f.tracker.StartRun(context.Background(), testrun.Config{})
	require.ErrorIs(t, err, testrun.ErrLaunchFailed)
	assert.Contains(t, err.Error(), "python3")
	assert.Equal(t, testrun.NoRunStatus(), f.tracker.GetStatus())

	f.launcher.startErr = nil
	_, err = f.tracker.StartRun(context.Background(), testrun.Config{})
	require.NoError(t, err)
	f.finish(t, 0)
}

func TestTracker_ConfigSaveFailure(t *testing.T) {
	f := newTrackerFixture(t)
	f.configs.saveErr = errors.New("read-only file system")

	_, err := f.tracker.StartRun(context.Background(), testrun.Config{})
	require.ErrorIs(t, err, testrun.ErrLaunchFailed)
	assert.Equal(t, 0, f.launcher.started())
	assert.Equal(t, testrun.NoRunStatus(), f.tracker.GetStatus())
}

func TestTracker_WaitErrorStillStopsRun(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newTrackerFixture(t)

	_, err := f.tracker.StartRun(context.Background(), testrun.Config{})
	require.NoError(t, err)
	f.launcher.last().err = errors.New("wait: no child processes")

	event := f.finish(t, -1)
	require.Error(t, event.Err)
	assert.False(t, f.tracker.GetStatus().Running)
}

func TestTracker_StartedEventPrecedesFinished(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newTrackerFixture(t)

	var (
		mu    sync.Mutex
		order []string
	)
	f.publisher.Subscribe(func(*testrun.StartedEvent) {
		mu.Lock()
		order = append(order, "started")
		mu.Unlock()
	})
	f.publisher.Subscribe(func(*testrun.FinishedEvent) {
		mu.Lock()
		order = append(order, "finished")
		mu.Unlock()
	})

	_, err := f.tracker.StartRun(context.Background(), testrun.Config{})
	require.NoError(t, err)
	f.finish(t, 0)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 2
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"started", "finished"}, order)
}
