package testrun

import "time"

// Process is a launched orchestrator. Wait blocks until it exits and
// returns its exit code; err is set only when waiting itself failed.
type Process interface {
	PID() int
	Wait() (exitCode int, err error)
}

type Launcher interface {
	Start() (Process, error)
}

// ConfigStore persists the configuration where the orchestrator expects it.
type ConfigStore interface {
	Save(cfg Config) error
}

type StartedEvent struct {
	Run Run
}

type FinishedEvent struct {
	Run      Run
	ExitCode int
	Err      error
	Duration time.Duration
}
