package cliconfig

import "os"

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "TPMSRELAY_"

// ApplyEnvConfig applies configuration from environment variables
// (TPMSRELAY_*). Explicitly set flags win.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)
	env := func(name string) string { return os.Getenv(EnvPrefix + name) }

	s.setString("capture-dir", env("CAPTURE_DIR"), &cfg.CaptureDir)
	s.setString("serial-port", env("SERIAL_PORT"), &cfg.SerialPort)
	s.setString("mqtt-broker", env("MQTT_BROKER"), &cfg.MQTTBroker)
	s.setString("mqtt-topic", env("MQTT_TOPIC"), &cfg.MQTTTopic)
	s.setString("mqtt-username", env("MQTT_USERNAME"), &cfg.MQTTUsername)
	s.setString("mqtt-password", env("MQTT_PASSWORD"), &cfg.MQTTPassword)
	s.setString("instance-id", env("INSTANCE_ID"), &cfg.InstanceID)
	s.setString("status-addr", env("STATUS_ADDR"), &cfg.StatusAddr)
	s.setString("log-level", env("LOG_LEVEL"), &cfg.LogLevel)
	s.setStringsFromString("variants", env("VARIANTS"), &cfg.Variants)

	if err := s.setDuration("interval", env("RETRANSMIT_INTERVAL"), &cfg.Interval); err != nil {
		return err
	}
	if err := s.setDuration("tick", env("TICK_INTERVAL"), &cfg.TickInterval); err != nil {
		return err
	}
	if err := s.setDuration("spool-cleanup-interval", env("SPOOL_CLEANUP_INTERVAL"), &cfg.SpoolCleanupTick); err != nil {
		return err
	}

	if err := s.setIntFromString("handoff-size", env("HANDOFF_SIZE"), &cfg.HandoffSize); err != nil {
		return err
	}
	if err := s.setIntFromString("capacity", env("QUEUE_CAPACITY"), &cfg.Capacity); err != nil {
		return err
	}
	if err := s.setNonNegativeIntFromString("max-retransmissions", env("MAX_RETRANSMISSIONS"), &cfg.MaxRetransmissions); err != nil {
		return err
	}
	if err := s.setIntFromString("baud", env("BAUD_RATE"), &cfg.BaudRate); err != nil {
		return err
	}
	if err := s.setNonNegativeIntFromString("mqtt-qos", env("MQTT_QOS"), &cfg.MQTTQoS); err != nil {
		return err
	}
	if err := s.setInt64FromString("spool-max-bytes", env("SPOOL_MAX_BYTES"), &cfg.SpoolMaxBytes); err != nil {
		return err
	}

	s.setBoolFromString("once", env("ONCE"), &cfg.Once)

	return nil
}
