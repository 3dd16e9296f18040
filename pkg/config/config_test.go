package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("MONITOR_TARGET_URL", "")
	t.Setenv("THRESHOLDS_FILE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Monitor.TargetURL != defaultTargetURL {
		t.Errorf("TargetURL = %q, want %q", cfg.Monitor.TargetURL, defaultTargetURL)
	}
	if cfg.Monitor.ProbeAttempts != 5 {
		t.Errorf("ProbeAttempts = %d, want 5", cfg.Monitor.ProbeAttempts)
	}
	if cfg.Monitor.ProbeTimeout != 10*time.Second {
		t.Errorf("ProbeTimeout = %s, want 10s", cfg.Monitor.ProbeTimeout)
	}
	if cfg.Monitor.CheckInterval != 300*time.Second {
		t.Errorf("CheckInterval = %s, want 5m", cfg.Monitor.CheckInterval)
	}
	if cfg.Thresholds.Disk.Warn != 80 || cfg.Thresholds.Disk.Crit != 90 {
		t.Errorf("disk thresholds = %+v, want 80/90", cfg.Thresholds.Disk)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("MONITOR_PROBE_ATTEMPTS", "3")
	t.Setenv("MONITOR_PROBE_TIMEOUT", "2s")
	t.Setenv("THRESHOLD_CPU_WARN", "70")
	t.Setenv("NETWORK_CONNECTION_WARN", "10000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Monitor.ProbeAttempts != 3 {
		t.Errorf("ProbeAttempts = %d, want 3", cfg.Monitor.ProbeAttempts)
	}
	if cfg.Monitor.ProbeTimeout != 2*time.Second {
		t.Errorf("ProbeTimeout = %s, want 2s", cfg.Monitor.ProbeTimeout)
	}
	if cfg.Thresholds.CPU.Warn != 70 {
		t.Errorf("CPU warn = %v, want 70", cfg.Thresholds.CPU.Warn)
	}
	if cfg.Thresholds.ConnectionWarn != 10000 {
		t.Errorf("ConnectionWarn = %d, want 10000", cfg.Thresholds.ConnectionWarn)
	}
}

func TestLoad_RejectsOutOfRange(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		want  string
	}{
		{"zero attempts", "MONITOR_PROBE_ATTEMPTS", "0", "MONITOR_PROBE_ATTEMPTS"},
		{"too many attempts", "MONITOR_PROBE_ATTEMPTS", "21", "MONITOR_PROBE_ATTEMPTS"},
		{"tiny timeout", "MONITOR_PROBE_TIMEOUT", "50ms", "MONITOR_PROBE_TIMEOUT"},
		{"bad url", "MONITOR_TARGET_URL", "ftp://example.com", "MONITOR_TARGET_URL"},
		{"interval below bound", "MONITOR_CHECK_INTERVAL", "10", "MONITOR_CHECK_INTERVAL"},
		{"warn above crit", "THRESHOLD_DISK_WARN", "95", "disk threshold"},
		{"not a number", "THRESHOLD_MEMORY_CRIT", "high", "THRESHOLD_MEMORY_CRIT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			if err == nil {
				t.Fatalf("expected error for %s=%s", tt.key, tt.value)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestThresholdsConfig_LoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thresholds.yaml")
	content := "disk:\n  warn: 70\n  crit: 85\nlatency_p95:\n  warn: 2000\n  crit: 4000\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	th := DefaultThresholds()
	if err := th.LoadFile(path); err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if th.Disk != (ThresholdPair{Warn: 70, Crit: 85}) {
		t.Errorf("disk = %+v", th.Disk)
	}
	if th.LatencyP95 != (ThresholdPair{Warn: 2000, Crit: 4000}) {
		t.Errorf("latency_p95 = %+v", th.LatencyP95)
	}
	// не указанные в файле поля остаются по умолчанию
	if th.Memory != (ThresholdPair{Warn: 85, Crit: 95}) {
		t.Errorf("memory = %+v, want defaults", th.Memory)
	}
}

func TestThresholdsConfig_LoadFileMissing(t *testing.T) {
	th := DefaultThresholds()
	if err := th.LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestParseDuration(t *testing.T) {
	got, err := parseDuration("300")
	if err != nil || got != 300*time.Second {
		t.Errorf("parseDuration(300) = %s, %v", got, err)
	}

	got, err = parseDuration("1m30s")
	if err != nil || got != 90*time.Second {
		t.Errorf("parseDuration(1m30s) = %s, %v", got, err)
	}
}

func TestSplitCSV(t *testing.T) {
	got := splitCSV(" a, ,b ,")
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("splitCSV = %v", got)
	}
}
