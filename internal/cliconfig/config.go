package cliconfig

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bft-labs/tpmsrelay/internal/domain"
	"github.com/bft-labs/tpmsrelay/pkg/log"
)

// Config holds CLI configuration for tpmsrelay.
type Config struct {
	CaptureDir  string
	HandoffSize int

	Capacity           int
	MaxRetransmissions int
	Interval           time.Duration
	TickInterval       time.Duration

	SerialPort string
	BaudRate   int

	MQTTBroker   string
	MQTTTopic    string
	MQTTUsername string
	MQTTPassword string
	MQTTQoS      int
	InstanceID   string

	StatusAddr string

	// SpoolMaxBytes enables spool cleanup when positive.
	SpoolMaxBytes    int64
	SpoolCleanupTick time.Duration

	Variants []string
	LogLevel string
	Once     bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		HandoffSize:        64,
		Capacity:           12,
		MaxRetransmissions: 5,
		Interval:           30 * time.Second,
		TickInterval:       time.Second,
		BaudRate:           115200,
		MQTTTopic:          "tpmsrelay",
		SpoolCleanupTick:   time.Hour,
		Variants:           []string{"classic", "extended", "manchester"},
		LogLevel:           "info",
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.CaptureDir == "" {
		return fmt.Errorf("capture-dir is required")
	}
	if c.Capacity <= 0 {
		return fmt.Errorf("queue capacity must be positive")
	}
	if c.MaxRetransmissions < 0 {
		return fmt.Errorf("max retransmissions must not be negative")
	}
	if c.Interval <= 0 {
		return fmt.Errorf("retransmit interval must be positive")
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick interval must be positive")
	}
	if c.SerialPort != "" && c.BaudRate <= 0 {
		return fmt.Errorf("baud rate must be positive")
	}
	if c.MQTTQoS < 0 || c.MQTTQoS > 2 {
		return fmt.Errorf("mqtt qos must be 0, 1 or 2")
	}
	if _, err := c.EnabledVariants(); err != nil {
		return err
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// EnabledVariants parses Variants. An empty list enables every variant.
func (c *Config) EnabledVariants() ([]domain.Variant, error) {
	out := make([]domain.Variant, 0, len(c.Variants))
	for _, name := range c.Variants {
		v, err := domain.ParseVariant(strings.TrimSpace(strings.ToLower(name)))
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setStrings sets a list if not empty and flag not changed.
func (s *configSetter) setStrings(flag string, value []string, dst *[]string) {
	if len(value) == 0 || s.changed[flag] {
		return
	}
	*dst = append([]string(nil), value...)
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setIntPtr sets an int from a pointer, so that zero can be configured.
func (s *configSetter) setIntPtr(flag string, value *int, dst *int) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

func (s *configSetter) setInt64(flag string, value int64, dst *int64) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a positive int from an environment value.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setNonNegativeIntFromString is setIntFromString for settings where zero
// is meaningful. Negative values are ignored.
func (s *configSetter) setNonNegativeIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i < 0 {
		return nil
	}
	*dst = i
	return nil
}

func (s *configSetter) setInt64FromString(flag, value string, dst *int64) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString accepts "true" and "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}

// setStringsFromString splits a comma-separated environment value.
func (s *configSetter) setStringsFromString(flag, value string, dst *[]string) {
	if value == "" || s.changed[flag] {
		return
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	s.setStrings(flag, out, dst)
}
