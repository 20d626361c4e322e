// Package log provides the structured logging abstraction used across
// tpmsrelay.
//
// Core packages log through the [Logger] interface so that they can run
// under zerolog in the daemon and silently in tests:
//
//	logger := log.NewZerologAdapter()
//	logger.Info("reading decoded", log.Hex32("sensor_id", id), log.Int("pressure_raw", p))
//
//	quiet := log.NewNoopLogger()
//
// [Hex] and [Hex32] render raw frame bytes and sensor IDs the way they are
// printed on the wire and in telemetry, so that log lines can be grepped
// for the same identifiers.
package log
