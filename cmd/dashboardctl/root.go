package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

type globalOptions struct {
	Addr string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	cmd := &cobra.Command{
		Use:           "dashboardctl",
		Short:         "Command line client for the cloud optimization dashboard",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.Addr, "addr", "http://localhost:8080", "dashboard server base URL")

	cmd.AddCommand(newStatusCmd(opts))
	cmd.AddCommand(newDataCmd(opts))
	cmd.AddCommand(newStartCmd(opts))
	cmd.AddCommand(newReportCmd(opts))
	cmd.AddCommand(newBenchCmd(opts))
	return cmd
}

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}
