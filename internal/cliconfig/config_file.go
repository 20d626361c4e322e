package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	CaptureDir         string   `toml:"capture_dir"`
	HandoffSize        int      `toml:"handoff_size"`
	Capacity           int      `toml:"queue_capacity"`
	MaxRetransmissions *int     `toml:"max_retransmissions"`
	Interval           string   `toml:"retransmit_interval"`
	TickInterval       string   `toml:"tick_interval"`
	SerialPort         string   `toml:"serial_port"`
	BaudRate           int      `toml:"baud_rate"`
	MQTTBroker         string   `toml:"mqtt_broker"`
	MQTTTopic          string   `toml:"mqtt_topic"`
	MQTTUsername       string   `toml:"mqtt_username"`
	MQTTPassword       string   `toml:"mqtt_password"`
	MQTTQoS            *int     `toml:"mqtt_qos"`
	InstanceID         string   `toml:"instance_id"`
	StatusAddr         string   `toml:"status_addr"`
	SpoolMaxBytes      int64    `toml:"spool_max_bytes"`
	SpoolCleanupTick   string   `toml:"spool_cleanup_interval"`
	Variants           []string `toml:"variants"`
	LogLevel           string   `toml:"log_level"`
	Once               *bool    `toml:"once"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns ~/.tpmsrelay/config.toml, or "" when the home
// directory is unknown.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".tpmsrelay", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("capture-dir", fc.CaptureDir, &cfg.CaptureDir)
	s.setString("serial-port", fc.SerialPort, &cfg.SerialPort)
	s.setString("mqtt-broker", fc.MQTTBroker, &cfg.MQTTBroker)
	s.setString("mqtt-topic", fc.MQTTTopic, &cfg.MQTTTopic)
	s.setString("mqtt-username", fc.MQTTUsername, &cfg.MQTTUsername)
	s.setString("mqtt-password", fc.MQTTPassword, &cfg.MQTTPassword)
	s.setString("instance-id", fc.InstanceID, &cfg.InstanceID)
	s.setString("status-addr", fc.StatusAddr, &cfg.StatusAddr)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setStrings("variants", fc.Variants, &cfg.Variants)

	if err := s.setDuration("interval", fc.Interval, &cfg.Interval); err != nil {
		return err
	}
	if err := s.setDuration("tick", fc.TickInterval, &cfg.TickInterval); err != nil {
		return err
	}
	if err := s.setDuration("spool-cleanup-interval", fc.SpoolCleanupTick, &cfg.SpoolCleanupTick); err != nil {
		return err
	}

	s.setInt("handoff-size", fc.HandoffSize, &cfg.HandoffSize)
	s.setInt("capacity", fc.Capacity, &cfg.Capacity)
	s.setIntPtr("max-retransmissions", fc.MaxRetransmissions, &cfg.MaxRetransmissions)
	s.setInt("baud", fc.BaudRate, &cfg.BaudRate)
	s.setIntPtr("mqtt-qos", fc.MQTTQoS, &cfg.MQTTQoS)
	s.setInt64("spool-max-bytes", fc.SpoolMaxBytes, &cfg.SpoolMaxBytes)

	s.setBool("once", fc.Once, &cfg.Once)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
