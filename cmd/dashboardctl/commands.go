package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

func newStatusCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the state of the most recent test run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return newAPIClient(opts.Addr).call(cmd.Context(), cmd.OutOrStdout(), http.MethodGet, "/api/test-status", nil)
		},
	}
}

func newDataCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "data",
		Short: "Print the aggregated results snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return newAPIClient(opts.Addr).call(cmd.Context(), cmd.OutOrStdout(), http.MethodGet, "/api/data", nil)
		},
	}
}

type startOptions struct {
	Instances []string
	RPSLevels []int
	Duration  int
	Mode      string
}

func newStartCmd(opts *globalOptions) *cobra.Command {
	var start startOptions

	cmd := &cobra.Command{
		Use:   "start [--instances a,b] [--rps 500,2000] [--duration 60] [--mode sequential|parallel]",
		Short: "Launch a test run; omitted flags use the server defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			payload := map[string]any{}
			flags := cmd.Flags()
			if flags.Changed("instances") {
				payload["instances"] = start.Instances
			}
			if flags.Changed("rps") {
				payload["rpsLevels"] = start.RPSLevels
			}
			if flags.Changed("duration") {
				payload["duration"] = start.Duration
			}
			if flags.Changed("mode") {
				payload["mode"] = start.Mode
			}
			return newAPIClient(opts.Addr).call(cmd.Context(), cmd.OutOrStdout(), http.MethodPost, "/api/start-test", payload)
		},
	}

	cmd.Flags().StringSliceVar(&start.Instances, "instances", nil, "instance types to test")
	cmd.Flags().IntSliceVar(&start.RPSLevels, "rps", nil, "requests-per-second levels")
	cmd.Flags().IntVar(&start.Duration, "duration", 0, "seconds per load level")
	cmd.Flags().StringVar(&start.Mode, "mode", "", "sequential or parallel")
	return cmd
}

var reportPaths = map[string]string{
	"results":     "/api/results",
	"sensitivity": "/api/sensitivity",
	"methods":     "/api/methods",
	"monte-carlo": "/api/monte-carlo",
	"cost":        "/api/cost",
	"status":      "/api/status",
	"health":      "/api/health",
}

func newReportCmd(opts *globalOptions) *cobra.Command {
	valid := make([]string, 0, len(reportPaths))
	for name := range reportPaths {
		valid = append(valid, name)
	}
	return &cobra.Command{
		Use:       "report <results|sensitivity|methods|monte-carlo|cost|status|health>",
		Short:     "Print one of the analysis reports",
		Args:      cobra.ExactArgs(1),
		ValidArgs: valid,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, ok := reportPaths[args[0]]
			if !ok {
				return fmt.Errorf("unknown report %q", args[0])
			}
			return newAPIClient(opts.Addr).call(cmd.Context(), cmd.OutOrStdout(), http.MethodGet, path, nil)
		},
	}
}
