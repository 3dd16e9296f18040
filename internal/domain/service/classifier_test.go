package service

import (
	"strings"
	"testing"
	"time"

	"github.com/dreschagin/sre-monitor/internal/domain/valueobject"
)

func newTestClassifier() *Classifier {
	return NewClassifier(DefaultThresholds(), NewSampleAggregator(), NewMetricValidator())
}

func TestClassifyInclusiveBoundaries(t *testing.T) {
	c := newTestClassifier()
	now := time.Now()

	tests := []struct {
		name   string
		report func(v float64) valueobject.Status
		warn   float64
		crit   float64
	}{
		{
			name: "memory",
			report: func(v float64) valueobject.Status {
				return c.ClassifyMemory(valueobject.MemoryReading{TotalBytes: 10000, UsedBytes: uint64(v * 100)}, now).Status()
			},
			warn: 85, crit: 95,
		},
		{
			name: "cpu",
			report: func(v float64) valueobject.Status {
				return c.ClassifyCPU(valueobject.CPUReading{UsagePercent: v}, now).Status()
			},
			warn: 80, crit: 95,
		},
		{
			name: "processes",
			report: func(v float64) valueobject.Status {
				return c.ClassifyProcesses(valueobject.ProcessReading{Total: int(v)}, now).Status()
			},
			warn: 200, crit: 500,
		},
		{
			name: "network",
			report: func(v float64) valueobject.Status {
				return c.ClassifyNetwork(valueobject.NetworkReading{RxErrors: uint64(v) / 2, TxErrors: uint64(v) - uint64(v)/2}, now).Status()
			},
			warn: 10, crit: 100,
		},
		{
			name: "disk",
			report: func(v float64) valueobject.Status {
				return c.ClassifyDisk(valueobject.DiskReading{Mounts: []valueobject.MountUsage{{Mountpoint: "/", UsedPercent: v}}}, now).Status()
			},
			warn: 80, crit: 90,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.report(tt.warn - 1); got != valueobject.StatusOK {
				t.Errorf("below warn: expected OK, got %s", got)
			}
			if got := tt.report(tt.warn); got != valueobject.StatusWarn {
				t.Errorf("at warn: expected WARN, got %s", got)
			}
			if got := tt.report(tt.crit - 1); got != valueobject.StatusWarn {
				t.Errorf("below crit: expected WARN, got %s", got)
			}
			if got := tt.report(tt.crit); got != valueobject.StatusCrit {
				t.Errorf("at crit: expected CRIT, got %s", got)
			}
		})
	}
}

func TestClassifyDiskUsesWorstMount(t *testing.T) {
	c := newTestClassifier()
	reading := valueobject.DiskReading{Mounts: []valueobject.MountUsage{
		{Mountpoint: "/", UsedPercent: 40, TotalBytes: 100, UsedBytes: 40, FreeBytes: 60},
		{Mountpoint: "/data", UsedPercent: 95, TotalBytes: 100, UsedBytes: 95, FreeBytes: 5},
		{Mountpoint: "/var", UsedPercent: 82, TotalBytes: 100, UsedBytes: 82, FreeBytes: 18},
	}}

	report := c.ClassifyDisk(reading, time.Now())
	if report.Status() != valueobject.StatusCrit {
		t.Fatalf("expected CRIT, got %s", report.Status())
	}
	if report.Value().Raw() != 95 {
		t.Fatalf("expected highest usage 95, got %v", report.Value().Raw())
	}

	recs := report.Recommendations()
	if len(recs) != 2 {
		t.Fatalf("expected 2 recommendations, got %v", recs)
	}
	if recs[0] != "Critical disk usage on: /data" {
		t.Fatalf("unexpected recommendation: %s", recs[0])
	}
	if recs[1] != "Some mounts are approaching critical usage" {
		t.Fatalf("unexpected recommendation: %s", recs[1])
	}

	mounts, ok := report.Details()["mounts"].([]MountStatus)
	if !ok || len(mounts) != 3 {
		t.Fatalf("expected 3 mount statuses, got %#v", report.Details()["mounts"])
	}
	if mounts[2].Status != valueobject.StatusWarn {
		t.Fatalf("expected /var WARN, got %s", mounts[2].Status)
	}
}

func TestClassifyDiskLowTotalSpace(t *testing.T) {
	c := newTestClassifier()
	reading := valueobject.DiskReading{Mounts: []valueobject.MountUsage{
		{Mountpoint: "/", UsedPercent: 50, TotalBytes: 1000, UsedBytes: 500, FreeBytes: 50},
	}}

	recs := c.ClassifyDisk(reading, time.Now()).Recommendations()
	if len(recs) != 1 || recs[0] != "Total available space is less than 10% of total capacity" {
		t.Fatalf("unexpected recommendations: %v", recs)
	}
}

func TestClassifyDiskWithoutMountsIsUnknown(t *testing.T) {
	report := newTestClassifier().ClassifyDisk(valueobject.DiskReading{}, time.Now())
	if !report.IsUnknown() {
		t.Fatalf("expected UNKNOWN, got %s", report.Status())
	}
}

func TestClassifyCPURejectsUnreasonableValue(t *testing.T) {
	report := newTestClassifier().ClassifyCPU(valueobject.CPUReading{UsagePercent: 180}, time.Now())
	if !report.IsUnknown() {
		t.Fatalf("expected UNKNOWN for 180%% cpu, got %s", report.Status())
	}
	if report.Reason() == "" {
		t.Fatalf("expected reason for unknown report")
	}
}

func TestClassifyLatencyCompoundRule(t *testing.T) {
	c := newTestClassifier()

	tests := []struct {
		name    string
		samples []float64
		want    valueobject.Status
	}{
		{name: "fast", samples: []float64{100, 120, 110, 130, 90}, want: valueobject.StatusOK},
		{name: "avg warn", samples: []float64{1200, 1200, 1200, 1200, 1200}, want: valueobject.StatusWarn},
		// avg 1200, p95 = sorted[floor(0.95*4)] = sorted[3] = 1300
		{name: "avg 1200 p95 below crit", samples: []float64{1000, 1100, 1200, 1300, 1400}, want: valueobject.StatusWarn},
		// p95 = sorted[floor(0.95*19)] = sorted[18] = 6000, avg well below 1000
		{name: "tail warns", samples: append(repeat(100, 18), 6000, 6000), want: valueobject.StatusWarn},
		{name: "avg crit", samples: []float64{5000, 5000, 5000}, want: valueobject.StatusCrit},
		{name: "tail crit", samples: append(repeat(100, 18), 10000, 10000), want: valueobject.StatusCrit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sample := valueobject.LatencySample{
				Attempts:     len(tt.samples),
				TimeoutMs:    10000,
				Samples:      tt.samples,
				SuccessCount: len(tt.samples),
			}
			if got := c.ClassifyLatency(sample, time.Now()).Status(); got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestClassifyLatencyAllAttemptsFailed(t *testing.T) {
	c := newTestClassifier()
	sample := valueobject.LatencySample{
		URL:       "http://unreachable.invalid",
		Attempts:  5,
		TimeoutMs: 10000,
		Samples:   repeat(10000, 5),
		Errors: []string{
			"Attempt 1: dial tcp: no such host",
			"Attempt 2: dial tcp: no such host",
			"Attempt 3: dial tcp: no such host",
			"Attempt 4: dial tcp: no such host",
			"Attempt 5: dial tcp: no such host",
		},
	}

	report := c.ClassifyLatency(sample, time.Now())
	if report.Status() != valueobject.StatusCrit {
		t.Fatalf("expected CRIT, got %s", report.Status())
	}
	if report.Value().Raw() != 10000 {
		t.Fatalf("expected avg 10000, got %v", report.Value().Raw())
	}

	details := report.Details()
	if details["success_rate"] != 0.0 {
		t.Fatalf("expected success rate 0, got %v", details["success_rate"])
	}

	recs := strings.Join(report.Recommendations(), "\n")
	for _, want := range []string{
		"Latency is critically high - immediate investigation required",
		"Success rate is 0.0% - check network connectivity",
		"Multiple errors occurred: 5 out of 5 attempts",
	} {
		if !strings.Contains(recs, want) {
			t.Fatalf("missing recommendation %q in %q", want, recs)
		}
	}
	if len(report.RawSample()) != 5 {
		t.Fatalf("expected raw sample of 5, got %d", len(report.RawSample()))
	}
}

func TestClassifyLatencyEmptyIsUnknown(t *testing.T) {
	report := newTestClassifier().ClassifyLatency(valueobject.LatencySample{}, time.Now())
	if !report.IsUnknown() {
		t.Fatalf("expected UNKNOWN, got %s", report.Status())
	}
}

func TestClassifyNetworkConnectionEscalation(t *testing.T) {
	thresholds := DefaultThresholds()
	reading := valueobject.NetworkReading{Connections: valueobject.ConnectionStats{Total: 12000}}

	disabled := NewClassifier(thresholds, NewSampleAggregator(), NewMetricValidator())
	if got := disabled.ClassifyNetwork(reading, time.Now()).Status(); got != valueobject.StatusOK {
		t.Fatalf("expected OK with escalation disabled, got %s", got)
	}

	thresholds.ConnectionWarn = 10000
	enabled := NewClassifier(thresholds, NewSampleAggregator(), NewMetricValidator())
	report := enabled.ClassifyNetwork(reading, time.Now())
	if report.Status() != valueobject.StatusWarn {
		t.Fatalf("expected WARN with escalation enabled, got %s", report.Status())
	}
	if recs := report.Recommendations(); len(recs) != 1 || recs[0] != "High number of network connections" {
		t.Fatalf("unexpected recommendations: %v", recs)
	}
}

func TestClassifyProcessesTopLists(t *testing.T) {
	processes := make([]valueobject.ProcessInfo, 0, 15)
	for i := 0; i < 15; i++ {
		processes = append(processes, valueobject.ProcessInfo{
			PID:           int32(i + 1),
			Name:          "worker",
			CPUPercent:    float64(i * 5),
			MemoryPercent: float64(i),
		})
	}

	report := newTestClassifier().ClassifyProcesses(valueobject.ProcessReading{Total: 15, Processes: processes}, time.Now())
	details := report.Details()

	topCPU := details["top_by_cpu"].([]ProcessSummary)
	if len(topCPU) != 10 || topCPU[0].PID != 15 {
		t.Fatalf("unexpected top by cpu: %+v", topCPU)
	}

	critical := details["critical"].([]ProcessSummary)
	// cpu > 50: pids 12..15 (55,60,65,70)
	if len(critical) != 4 {
		t.Fatalf("expected 4 critical processes, got %d", len(critical))
	}
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
