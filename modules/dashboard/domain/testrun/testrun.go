package testrun

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/syurii10/cloud-optimization-project/pkg/constants"
	"github.com/syurii10/cloud-optimization-project/pkg/serrors"
)

type Mode string

const (
	ModeSequential Mode = "sequential"
	ModeParallel   Mode = "parallel"
)

// Defaults used by the orchestrator when a start request omits a field.
var (
	DefaultRPSLevels = []int{500, 2000, 5000}
)

const (
	DefaultDuration = 60
	DefaultMode     = ModeSequential
)

var (
	ErrAlreadyRunning = serrors.NewError("TEST_ALREADY_RUNNING", "Test already running")
	ErrInvalidConfig  = serrors.NewError("TEST_INVALID_CONFIG", "invalid test configuration")
	ErrLaunchFailed   = serrors.NewError("TEST_LAUNCH_FAILED", "failed to start test")
)

// Config is what the orchestrator reads from the config file before it
// starts provisioning.
type Config struct {
	Instances []string  `json:"instances" validate:"required,min=1,dive,required"`
	RPSLevels []int     `json:"rpsLevels" validate:"required,min=1,dive,gt=0"`
	Duration  int       `json:"duration" validate:"gt=0"`
	Mode      Mode      `json:"mode" validate:"oneof=sequential parallel"`
	CreatedAt time.Time `json:"createdAt"`
}

// ApplyDefaults fills unset fields. defaultInstances is normally the
// configured label set.
func (c *Config) ApplyDefaults(defaultInstances []string) {
	if c.Instances == nil {
		c.Instances = slices.Clone(defaultInstances)
	}
	if c.RPSLevels == nil {
		c.RPSLevels = slices.Clone(DefaultRPSLevels)
	}
	if c.Duration == 0 {
		c.Duration = DefaultDuration
	}
	if c.Mode == "" {
		c.Mode = DefaultMode
	}
	for i, instance := range c.Instances {
		c.Instances[i] = strings.TrimSpace(instance)
	}
}

func (c *Config) Validate() error {
	err := constants.Validate.Struct(c)
	if err == nil {
		return nil
	}
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return serrors.Wrap(ErrInvalidConfig, "%v", err)
	}
	msgs := make([]string, 0, len(validationErrs))
	for _, fe := range validationErrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return serrors.Wrap(ErrInvalidConfig, "%s", strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Namespace()
	if idx := strings.IndexByte(field, '.'); idx >= 0 {
		field = field[idx+1:]
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must contain at least %s item(s)", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

func (c Config) Clone() Config {
	c.Instances = slices.Clone(c.Instances)
	c.RPSLevels = slices.Clone(c.RPSLevels)
	return c
}

// Run is the record of the most recently launched orchestrator process.
type Run struct {
	ID        string
	PID       int
	StartTime time.Time
	Running   bool
	Config    Config
}

func (r Run) Clone() Run {
	r.Config = r.Config.Clone()
	return r
}

// Status is the wire shape of GET /api/test-status.
type Status struct {
	Running   bool       `json:"running"`
	Message   string     `json:"message,omitempty"`
	TestID    string     `json:"testId,omitempty"`
	StartTime *time.Time `json:"startTime,omitempty"`
	Elapsed   *int64     `json:"elapsed,omitempty"`
	Config    *Config    `json:"config,omitempty"`
}

const NoRunMessage = "No test has been started"

func NoRunStatus() Status {
	return Status{Running: false, Message: NoRunMessage}
}

// NewStatus reports run as seen at now. Elapsed is truncated to whole seconds.
func NewStatus(run Run, now time.Time) Status {
	elapsed := int64(now.Sub(run.StartTime) / time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	start := run.StartTime
	cfg := run.Config.Clone()
	return Status{
		Running:   run.Running,
		TestID:    run.ID,
		StartTime: &start,
		Elapsed:   &elapsed,
		Config:    &cfg,
	}
}
