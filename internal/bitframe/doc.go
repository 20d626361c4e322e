// Package bitframe holds captured OOK bursts as bit sequences and the
// bit-level primitives the protocol decoders are built from.
//
// A [Frame] is immutable once constructed: every operation that reshapes
// bits (extraction, inversion, Manchester recovery) returns new storage.
//
// # Primitives
//
//   - [Frame.Extract]: copy N bits from any bit offset into a left-justified byte buffer
//   - [CRC8], [Checksum], [XorFold]: integrity values over byte buffers
//   - [Frame.FindPattern]: locate a 16-bit marker at any bit alignment
//   - [Frame.ManchesterDecode]: recover data bits from symbol pairs, rejecting illegal pairs
//   - [ParseRow]: read the "{bits}hex" row notation used by capture files
package bitframe
