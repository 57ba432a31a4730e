package orchestrator

import (
	"bufio"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/syurii10/cloud-optimization-project/modules/dashboard/domain/testrun"
)

const (
	LogPrefix     = "[orchestrator]"
	maxLineLength = 1024 * 1024

	DefaultDrainTimeout = 2 * time.Second
)

// ExecLauncher starts the orchestrator as a child process and forwards its
// output to the service log one line at a time.
type ExecLauncher struct {
	name         string
	args         []string
	dir          string
	logger       *logrus.Entry
	drainTimeout time.Duration
}

type LauncherOption func(*ExecLauncher)

// WithDrainTimeout bounds how long Wait keeps collecting output after the
// orchestrator has exited. Descendants that inherited its stdout or stderr
// can hold the streams open well past that point.
func WithDrainTimeout(d time.Duration) LauncherOption {
	return func(l *ExecLauncher) {
		l.drainTimeout = d
	}
}

// NewExecLauncher splits command on whitespace; the first field is the
// executable. dir becomes the child's working directory.
func NewExecLauncher(command, dir string, logger *logrus.Entry, opts ...LauncherOption) (*ExecLauncher, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, errors.New("orchestrator command is empty")
	}
	l := &ExecLauncher{
		name:         fields[0],
		args:         fields[1:],
		dir:          dir,
		logger:       logger,
		drainTimeout: DefaultDrainTimeout,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

func (l *ExecLauncher) Start() (testrun.Process, error) {
	cmd := exec.Command(l.name, l.args...)
	cmd.Dir = l.dir

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrap(err, "failed to attach stdout")
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, errors.Wrap(err, "failed to attach stderr")
	}
	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "failed to start %s", l.name)
	}

	p := &execProcess{cmd: cmd, logger: l.logger, drainTimeout: l.drainTimeout}
	p.streams.Add(2)
	go p.forward(stdout, l.logger.WithField("stream", "stdout"), logrus.InfoLevel)
	go p.forward(stderr, l.logger.WithField("stream", "stderr"), logrus.WarnLevel)
	return p, nil
}

type execProcess struct {
	cmd          *exec.Cmd
	logger       *logrus.Entry
	drainTimeout time.Duration
	streams      sync.WaitGroup
}

func (p *execProcess) PID() int {
	return p.cmd.Process.Pid
}

// Wait returns as soon as the orchestrator itself exits. Output still
// buffered in the pipes is forwarded for up to the drain timeout; streams
// held open by its descendants keep being logged in the background.
func (p *execProcess) Wait() (int, error) {
	state, err := p.cmd.Process.Wait()
	if err != nil {
		return -1, errors.Wrap(err, "failed to wait for orchestrator")
	}

	drained := make(chan struct{})
	go func() {
		p.streams.Wait()
		close(drained)
	}()
	timer := time.NewTimer(p.drainTimeout)
	defer timer.Stop()
	select {
	case <-drained:
	case <-timer.C:
		p.logger.WithField("pid", state.Pid()).Warn(LogPrefix + " output still open after exit")
	}
	return state.ExitCode(), nil
}

func (p *execProcess) forward(r io.ReadCloser, logger *logrus.Entry, level logrus.Level) {
	defer p.streams.Done()
	defer func() { _ = r.Close() }()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)
	for scanner.Scan() {
		logger.Log(level, LogPrefix+" "+scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		logger.WithError(err).Warn(LogPrefix + " output stream closed")
		// Keep the pipe drained so the child never blocks on a full buffer.
		_, _ = io.Copy(io.Discard, r)
	}
}
