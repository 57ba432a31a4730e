package testrun_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syurii10/cloud-optimization-project/modules/dashboard/domain/testrun"
)

func TestConfig_ApplyDefaults(t *testing.T) {
	var cfg testrun.Config
	cfg.ApplyDefaults([]string{"t3.micro", "t3.small"})

	assert.Equal(t, []string{"t3.micro", "t3.small"}, cfg.Instances)
	assert.Equal(t, []int{500, 2000, 5000}, cfg.RPSLevels)
	assert.Equal(t, 60, cfg.Duration)
	assert.Equal(t, testrun.ModeSequential, cfg.Mode)
	require.NoError(t, cfg.Validate())
}

func TestConfig_ApplyDefaultsKeepsProvidedValues(t *testing.T) {
	cfg := testrun.Config{
		Instances: []string{" t3.micro "},
		RPSLevels: []int{10, 50},
		Duration:  30,
		Mode:      testrun.ModeParallel,
	}
	cfg.ApplyDefaults([]string{"t3.small"})

	assert.Equal(t, []string{"t3.micro"}, cfg.Instances)
	assert.Equal(t, []int{10, 50}, cfg.RPSLevels)
	assert.Equal(t, 30, cfg.Duration)
	assert.Equal(t, testrun.ModeParallel, cfg.Mode)
}

func TestConfig_ApplyDefaultsDoesNotAliasDefaults(t *testing.T) {
	defaults := []string{"t3.micro"}
	var cfg testrun.Config
	cfg.ApplyDefaults(defaults)
	cfg.Instances[0] = "changed"
	cfg.RPSLevels[0] = 1

	assert.Equal(t, "t3.micro", defaults[0])
	assert.Equal(t, 500, testrun.DefaultRPSLevels[0])
}

func TestConfig_Validate(t *testing.T) {
	valid := func() testrun.Config {
		return testrun.Config{
			Instances: []string{"t3.micro"},
			RPSLevels: []int{10, 50},
			Duration:  60,
			Mode:      testrun.ModeSequential,
		}
	}

	cases := map[string]struct {
		mutate  func(c *testrun.Config)
		message string
	}{
		"empty instances": {
			mutate:  func(c *testrun.Config) { c.Instances = []string{} },
			message: "Instances must contain at least 1 item(s)",
		},
		"blank instance": {
			mutate:  func(c *testrun.Config) { c.Instances = []string{""} },
			message: "Instances[0] is required",
		},
		"zero rps": {
			mutate:  func(c *testrun.Config) { c.RPSLevels = []int{10, 0} },
			message: "RPSLevels[1] must be greater than 0",
		},
		"negative duration": {
			mutate:  func(c *testrun.Config) { c.Duration = -5 },
			message: "Duration must be greater than 0",
		},
		"unknown mode": {
			mutate:  func(c *testrun.Config) { c.Mode = "random" },
			message: "Mode must be one of [sequential parallel]",
		},
	}

	require.NoError(t, func() error { c := valid(); return c.Validate() }())

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, testrun.ErrInvalidConfig)
			assert.Contains(t, err.Error(), tc.message)
		})
	}
}

func TestConfig_JSONFieldNames(t *testing.T) {
	cfg := testrun.Config{
		Instances: []string{"t3.micro"},
		RPSLevels: []int{10},
		Duration:  60,
		Mode:      testrun.ModeSequential,
		CreatedAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	data, err := json.Marshal(cfg)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"instances": ["t3.micro"],
		"rpsLevels": [10],
		"duration": 60,
		"mode": "sequential",
		"createdAt": "2025-01-02T03:04:05Z"
	}`, string(data))
}

func TestNoRunStatus(t *testing.T) {
	data, err := json.Marshal(testrun.NoRunStatus())
	require.NoError(t, err)
	assert.JSONEq(t, `{"running": false, "message": "No test has been started"}`, string(data))
}

func TestNewStatus_TruncatesElapsed(t *testing.T) {
	start := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	run := testrun.Run{
		ID:        "run-1",
		PID:       42,
		StartTime: start,
		Running:   true,
		Config:    testrun.Config{Instances: []string{"t3.micro"}},
	}

	status := testrun.NewStatus(run, start.Add(2999*time.Millisecond))

	assert.True(t, status.Running)
	require.NotNil(t, status.Elapsed)
	assert.Equal(t, int64(2), *status.Elapsed)
	assert.Equal(t, start, *status.StartTime)
	assert.Equal(t, "run-1", status.TestID)
	assert.Empty(t, status.Message)

	status.Config.Instances[0] = "mutated"
	assert.Equal(t, "t3.micro", run.Config.Instances[0])
}

func TestNewStatus_ZeroElapsedIsSerialized(t *testing.T) {
	start := time.Now()
	data, err := json.Marshal(testrun.NewStatus(testrun.Run{StartTime: start}, start))
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, float64(0), body["elapsed"])
	assert.Equal(t, false, body["running"])
}
