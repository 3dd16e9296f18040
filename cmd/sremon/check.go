package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dreschagin/sre-monitor/internal/application/dto"
	"github.com/dreschagin/sre-monitor/internal/domain/valueobject"
	"github.com/dreschagin/sre-monitor/pkg/config"
	"github.com/dreschagin/sre-monitor/pkg/logger"
)

func newCheckCommand() *cobra.Command {
	var noNotify bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run one monitoring cycle and print the result as JSON",
		Long: `Runs a single collection, analysis and notification cycle and writes
the workflow result to stdout. Logs go to stderr.

Exit codes: 0 OK, 1 WARN (or error), 2 CRIT.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if noNotify {
				cfg.Monitor.EnableNotifications = false
			}

			log := logger.NewWithWriter(cfg.LogLevel, cmd.ErrOrStderr())

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			p, err := buildPipeline(ctx, cfg, log, pipelineOptions{})
			if err != nil {
				return err
			}
			defer p.Close(context.Background())

			result, err := p.runCycle.Execute(ctx)
			if err != nil {
				return err
			}

			if err := writeResult(cmd.OutOrStdout(), result); err != nil {
				return err
			}

			if code := exitCodeFor(result); code != 0 {
				return exitCodeError{code: code}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&noNotify, "no-notify", false, "skip notification delivery")

	return cmd
}

func writeResult(w io.Writer, result *dto.WorkflowResultDTO) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// exitCodeFor: CRIT -> 2, WARN -> 1, иначе 0.
// Решает статус анализа: деградированный анализ поверх OK снимка дает WARN.
func exitCodeFor(result *dto.WorkflowResultDTO) int {
	if result == nil || result.Report == nil {
		return 1
	}

	raw := result.Report.OverallStatus
	if result.Report.Analysis != nil {
		raw = result.Report.Analysis.OverallStatus
	}

	status, err := valueobject.ParseStatus(raw)
	if err != nil {
		return 1
	}

	switch status {
	case valueobject.StatusCrit:
		return 2
	case valueobject.StatusWarn:
		return 1
	default:
		return 0
	}
}
