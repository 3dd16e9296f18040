package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// exitCodeError завершает процесс с заданным кодом без вывода usage
type exitCodeError struct {
	code int
}

func (e exitCodeError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "sremon",
		Short: "Host health monitoring with incident analysis",
		Long: `sremon collects disk, memory, CPU, network, process and latency
health, classifies each domain as OK/WARN/CRIT, analyzes the cycle into
issues and recommendations and delivers notifications.

Configuration is read from the environment and an optional .env file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newServeCommand())
	root.AddCommand(newCheckCommand())
	root.AddCommand(newProbeCommand())

	return root
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		var exitErr exitCodeError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
