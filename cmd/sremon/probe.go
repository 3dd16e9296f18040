package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/dreschagin/sre-monitor/internal/application/dto"
	"github.com/dreschagin/sre-monitor/internal/application/port"
	"github.com/dreschagin/sre-monitor/internal/domain/service"
	"github.com/dreschagin/sre-monitor/internal/infrastructure/collector"
)

func newProbeCommand() *cobra.Command {
	probe := &cobra.Command{
		Use:   "probe",
		Short: "Run a single domain probe",
	}

	probe.AddCommand(newProbeLatencyCommand())

	return probe
}

func newProbeLatencyCommand() *cobra.Command {
	var (
		targetURL string
		attempts  int
		timeout   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "latency",
		Short: "Measure HTTP HEAD latency against a URL",
		RunE: func(cmd *cobra.Command, _ []string) error {
			probeConfig := port.LatencyProbeConfig{
				URL:      targetURL,
				Attempts: attempts,
				Timeout:  timeout,
			}
			if err := probeConfig.Validate(); err != nil {
				return err
			}

			prober := collector.NewHTTPLatencyProber(&http.Client{})
			sample, err := prober.Probe(cmd.Context(), probeConfig)
			if err != nil {
				return fmt.Errorf("latency probe failed: %w", err)
			}

			classifier := service.NewClassifier(service.DefaultThresholds(), service.NewSampleAggregator(), service.NewMetricValidator())
			report := classifier.ClassifyLatency(sample, time.Now().UTC())

			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(dto.FromReport(report))
		},
	}

	cmd.Flags().StringVar(&targetURL, "url", "https://httpbin.org/delay/1", "target URL")
	cmd.Flags().IntVar(&attempts, "attempts", 5, "number of sequential requests (1-20)")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "per-request timeout (100ms-60s)")

	return cmd
}
