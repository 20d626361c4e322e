// Package domain contains the core entities and value objects of the relay.
//
// This package is the innermost layer. It has no dependencies on radio
// hardware, serial ports, brokers or logging and contains only the data the
// decoders produce and the retransmission queue owns.
//
// # Entities
//
//   - [Reading]: one decoded tire-pressure sensor broadcast, tagged by [Variant]
//   - [Entry]: a queued reading with its retransmission schedule
//   - [WireFrame]: the fixed 15-byte outbound frame built from an Entry
//
// # Design Principles
//
// Domain values are:
//   - Plain structs copied by value
//   - Free of infrastructure dependencies
//   - Testable without mocks or external systems
package domain
