package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-wha/internal/bridges/mwha"
	"github.com/nerrad567/gray-logic-wha/internal/infrastructure/config"
)

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	originalEnv := os.Getenv("GRAYWHA_CONFIG")
	defer os.Setenv("GRAYWHA_CONFIG", originalEnv)

	os.Setenv("GRAYWHA_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_ValidationFailure verifies run fails when the config file
// parses but does not validate.
func TestRun_ValidationFailure(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")

	// Both transports configured: mutually exclusive.
	configContent := `
logging:
  level: info
  format: text
  output: stdout

mqtt:
  broker: "tcp://127.0.0.1:1883"
  client_id: "graywha-test"
  topic_base: "test/mwha/"

serial:
  device: "/dev/ttyUSB0"

tcp:
  address: "127.0.0.1:4999"

amp:
  zones:
    "11": "Kitchen"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	originalEnv := os.Getenv("GRAYWHA_CONFIG")
	defer os.Setenv("GRAYWHA_CONFIG", originalEnv)
	os.Setenv("GRAYWHA_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail when both transports are configured")
	}
}

// TestRun_BadZoneKey verifies run fails before touching the network
// when a zone key is not a valid zone id.
func TestRun_BadZoneKey(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")

	configContent := `
logging:
  level: info
  format: text
  output: stdout

mqtt:
  broker: "tcp://127.0.0.1:19999"
  client_id: "graywha-test"
  topic_base: "test/mwha/"

serial:
  device: "/dev/nonexistent-graywha"

amp:
  zones:
    "99": "Ghost Zone"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	originalEnv := os.Getenv("GRAYWHA_CONFIG")
	defer os.Setenv("GRAYWHA_CONFIG", originalEnv)
	os.Setenv("GRAYWHA_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail with an out-of-range zone key")
	}
	if !strings.Contains(err.Error(), `"99"`) {
		t.Errorf("error should name the offending key, got: %v", err)
	}
}

// TestRun_UnreachableBroker verifies startup fails cleanly when neither
// the broker nor the serial device exists.
func TestRun_UnreachableBroker(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")

	configContent := `
logging:
  level: info
  format: text
  output: stdout

mqtt:
  broker: "tcp://127.0.0.1:19999"
  client_id: "graywha-test-unreachable"
  topic_base: "test/mwha/"

serial:
  device: "/dev/nonexistent-graywha"
  baud: auto
  adjust_baud: off
  read_timeout: 1s

amp:
  poll_interval: 100ms
  zones:
    "11": "Kitchen"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	originalEnv := os.Getenv("GRAYWHA_CONFIG")
	defer os.Setenv("GRAYWHA_CONFIG", originalEnv)
	os.Setenv("GRAYWHA_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail with no broker and no serial device")
	}
	t.Logf("run() returned error (expected): %v", err)
}

// TestGetConfigPath_Default verifies default config path.
func TestGetConfigPath_Default(t *testing.T) {
	originalEnv := os.Getenv("GRAYWHA_CONFIG")
	defer os.Setenv("GRAYWHA_CONFIG", originalEnv)

	os.Unsetenv("GRAYWHA_CONFIG")

	path := getConfigPath()
	if path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
}

// TestGetConfigPath_EnvOverride verifies environment variable override.
func TestGetConfigPath_EnvOverride(t *testing.T) {
	originalEnv := os.Getenv("GRAYWHA_CONFIG")
	defer os.Setenv("GRAYWHA_CONFIG", originalEnv)

	expected := "/custom/path/config.yaml"
	os.Setenv("GRAYWHA_CONFIG", expected)

	path := getConfigPath()
	if path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
}

// TestParseZones verifies config zone keys convert to domain ids.
func TestParseZones(t *testing.T) {
	entries := map[string]config.ZoneEntry{
		"00": {Name: "Whole House"},
		"10": {Name: "Main Floor"},
		"11": {Name: "Kitchen"},
		"36": {Name: "Workshop"},
	}

	zones, err := parseZones(entries)
	if err != nil {
		t.Fatalf("parseZones() error = %v", err)
	}

	if len(zones) != 4 {
		t.Fatalf("parseZones() returned %d zones, want 4", len(zones))
	}
	if got := zones[mwha.System].Name; got != "Whole House" {
		t.Errorf("system zone name = %q, want %q", got, "Whole House")
	}
	if got := zones[mwha.ZoneID{Amp: 1}].Name; got != "Main Floor" {
		t.Errorf("amp 1 name = %q, want %q", got, "Main Floor")
	}
	if got := zones[mwha.ZoneID{Amp: 3, Zone: 6}].Name; got != "Workshop" {
		t.Errorf("zone 36 name = %q, want %q", got, "Workshop")
	}
}

// TestParseZones_InvalidKey verifies a bad key is reported with context.
func TestParseZones_InvalidKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
	}{
		{name: "out of range amp", key: "99"},
		{name: "out of range zone", key: "17"},
		{name: "not decimal", key: "kitchen"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseZones(map[string]config.ZoneEntry{
				tt.key: {Name: "Bad"},
			})
			if err == nil {
				t.Fatalf("parseZones() should reject key %q", tt.key)
			}
			if !strings.Contains(err.Error(), tt.key) {
				t.Errorf("error should name key %q, got: %v", tt.key, err)
			}
		})
	}
}

// TestParseSources verifies config source keys convert to domain ids.
func TestParseSources(t *testing.T) {
	entries := map[string]config.SourceEntry{
		"01": {Name: "Streamer", Enabled: true},
		"02": {Name: "Turntable", Enabled: false},
	}

	sources, err := parseSources(entries)
	if err != nil {
		t.Fatalf("parseSources() error = %v", err)
	}

	if len(sources) != 2 {
		t.Fatalf("parseSources() returned %d sources, want 2", len(sources))
	}

	one, _ := mwha.NewSourceID(1)
	if got := sources[one]; got.Name != "Streamer" || !got.Enabled {
		t.Errorf("source 01 = %+v, want enabled Streamer", got)
	}
	two, _ := mwha.NewSourceID(2)
	if got := sources[two]; got.Name != "Turntable" || got.Enabled {
		t.Errorf("source 02 = %+v, want disabled Turntable", got)
	}
}

// TestParseSources_InvalidKey verifies a bad source key is rejected.
func TestParseSources_InvalidKey(t *testing.T) {
	_, err := parseSources(map[string]config.SourceEntry{
		"07": {Name: "Bad", Enabled: true},
	})
	if err == nil {
		t.Fatal("parseSources() should reject source 07")
	}
	if !strings.Contains(err.Error(), `"07"`) {
		t.Errorf("error should name the offending key, got: %v", err)
	}
}

// TestDescribeBaud verifies the log-friendly baud rendering.
func TestDescribeBaud(t *testing.T) {
	if got := describeBaud(config.BaudSetting{Auto: true}); got != "auto" {
		t.Errorf("describeBaud(auto) = %q, want %q", got, "auto")
	}
	if got := describeBaud(config.BaudSetting{Rate: 19200}); got != "19200" {
		t.Errorf("describeBaud(19200) = %q, want %q", got, "19200")
	}
}

// TestDescribeAdjust verifies the log-friendly adjust rendering.
func TestDescribeAdjust(t *testing.T) {
	if got := describeAdjust(config.AdjustSetting{Off: true}); got != "off" {
		t.Errorf("describeAdjust(off) = %q, want %q", got, "off")
	}
	if got := describeAdjust(config.AdjustSetting{Max: true}); got != "max" {
		t.Errorf("describeAdjust(max) = %q, want %q", got, "max")
	}
	if got := describeAdjust(config.AdjustSetting{Rate: 115200}); got != "115200" {
		t.Errorf("describeAdjust(115200) = %q, want %q", got, "115200")
	}
}
