package cliconfig

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestApplyFileConfig(t *testing.T) {
	trueVal := true
	qos := 1
	three := 3
	zero := 0

	tests := []struct {
		name       string
		fileConfig FileConfig
		changed    map[string]bool
		initial    Config
		expected   Config
		wantErr    bool
	}{
		{
			name: "applies all valid config values",
			fileConfig: FileConfig{
				CaptureDir:         "/var/spool/tpms",
				Capacity:           8,
				MaxRetransmissions: &three,
				Interval:           "45s",
				SerialPort:         "/dev/ttyUSB0",
				MQTTQoS:            &qos,
				SpoolMaxBytes:      1 << 20,
				Variants:           []string{"classic"},
				Once:               &trueVal,
			},
			changed: map[string]bool{},
			initial: Config{},
			expected: Config{
				CaptureDir:         "/var/spool/tpms",
				Capacity:           8,
				MaxRetransmissions: 3,
				Interval:           45 * time.Second,
				SerialPort:         "/dev/ttyUSB0",
				MQTTQoS:            1,
				SpoolMaxBytes:      1 << 20,
				Variants:           []string{"classic"},
				Once:               true,
			},
		},
		{
			name:       "zero retransmissions is applied",
			fileConfig: FileConfig{MaxRetransmissions: &zero},
			changed:    map[string]bool{},
			initial:    Config{MaxRetransmissions: 5},
			expected:   Config{MaxRetransmissions: 0},
		},
		{
			name: "respects changed flags",
			fileConfig: FileConfig{
				CaptureDir: "/config/spool",
				SerialPort: "/dev/ttyS1",
			},
			changed: map[string]bool{"capture-dir": true},
			initial: Config{
				CaptureDir: "/flag/spool",
			},
			expected: Config{
				CaptureDir: "/flag/spool",
				SerialPort: "/dev/ttyS1",
			},
		},
		{
			name: "zero values leave defaults",
			fileConfig: FileConfig{},
			changed:    map[string]bool{},
			initial:    DefaultConfig(),
			expected:   DefaultConfig(),
		},
		{
			name: "returns error for invalid duration",
			fileConfig: FileConfig{
				TickInterval: "soon",
			},
			changed: map[string]bool{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.initial
			err := ApplyFileConfig(&cfg, tt.fileConfig, tt.changed)

			if (err != nil) != tt.wantErr {
				t.Fatalf("ApplyFileConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(cfg, tt.expected) {
				t.Errorf("ApplyFileConfig() = %+v, want %+v", cfg, tt.expected)
			}
		})
	}
}

func TestLoadFileConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := strings.Join([]string{
		`capture_dir = "/var/spool/tpms"`,
		`queue_capacity = 12`,
		`max_retransmissions = 0`,
		`retransmit_interval = "30s"`,
		`mqtt_broker = "tcp://localhost:1883"`,
		`mqtt_qos = 0`,
		`variants = ["classic", "manchester"]`,
		`once = true`,
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	fc, err := LoadFileConfig(path)
	if err != nil {
		t.Fatalf("LoadFileConfig() error = %v", err)
	}

	if fc.CaptureDir != "/var/spool/tpms" || fc.Capacity != 12 || fc.Interval != "30s" {
		t.Errorf("fc = %+v", fc)
	}
	if fc.MaxRetransmissions == nil || *fc.MaxRetransmissions != 0 {
		t.Errorf("MaxRetransmissions = %v, want explicit 0", fc.MaxRetransmissions)
	}
	if fc.MQTTQoS == nil || *fc.MQTTQoS != 0 {
		t.Errorf("MQTTQoS = %v, want explicit 0", fc.MQTTQoS)
	}
	if !reflect.DeepEqual(fc.Variants, []string{"classic", "manchester"}) {
		t.Errorf("Variants = %v", fc.Variants)
	}
	if fc.Once == nil || !*fc.Once {
		t.Errorf("Once = %v, want true", fc.Once)
	}
}

func TestLoadFileConfig_Errors(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadFileConfig(filepath.Join(dir, "missing.toml")); err == nil {
		t.Error("LoadFileConfig() on missing file = nil error")
	}

	bad := filepath.Join(dir, "bad.toml")
	if err := os.WriteFile(bad, []byte("queue_capacity = [\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFileConfig(bad); err == nil {
		t.Error("LoadFileConfig() on malformed TOML = nil error")
	}
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "present")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatal(err)
	}

	if !FileExists(path) {
		t.Error("FileExists(present) = false")
	}
	if FileExists(filepath.Join(dir, "absent")) {
		t.Error("FileExists(absent) = true")
	}
}

func TestDefaultConfigPath(t *testing.T) {
	t.Setenv("HOME", "/home/relay")

	if got := DefaultConfigPath(); got != filepath.Join("/home/relay", ".tpmsrelay", "config.toml") {
		t.Errorf("DefaultConfigPath() = %s", got)
	}
}
