// Package decoder recognises tire-pressure sensor broadcasts in captured
// bit frames.
//
// Three decoders cover the supported physical-layer encodings:
//
//   - [Classic]: fixed 68-bit frame, sync nibble, CRC-8 over seven payload bytes
//   - [Extended]: manufacturer marker at any bit alignment, additive checksum
//   - [Manchester]: fixed preamble followed by Manchester symbols, no checksum
//
// Each decoder is all-or-nothing: it returns a complete [domain.Reading] or a
// [*Failure] naming why the frame was rejected. The [Dispatcher] tries the
// decoders in a fixed priority order and reports the first match.
package decoder
