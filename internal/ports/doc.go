// Package ports defines the interfaces that connect the scheduling loop in
// internal/app to infrastructure adapters.
//
// # Port Interfaces
//
//   - [CaptureSource]: delivers demodulated bit frames
//   - [Sender]: transmits 15-byte wire frames
//   - [TelemetrySink]: receives decoded readings and per-transmission lines
//   - [Metrics]: counts decode outcomes and queue activity
//   - [Logger]: structured logging abstraction
//
// The application layer depends only on these interfaces. Adapters in
// internal/adapters implement them with fsnotify, serial ports, MQTT and
// Prometheus.
package ports
