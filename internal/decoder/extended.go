package decoder

import (
	"github.com/bft-labs/tpmsrelay/internal/bitframe"
	"github.com/bft-labs/tpmsrelay/internal/domain"
)

// Extended frame layout, starting at the manufacturer marker:
//
//	MM MM FF FF II II II PP TT CC
//
// M is the 0x4c90 manufacturer marker (also the top of the 32-bit flags
// field), I a 24-bit ID, P pressure in 25 mbar steps, T temperature in
// degrees Fahrenheit, C the sum of the first nine bytes modulo 256.
const (
	ExtendedMinBitLength = 80
	ExtendedMarkerHigh   = 0x4c
	ExtendedMarkerLow    = 0x90

	// ExtendedSearchBits bounds the marker search to the capture buffer
	// size the sensor family is received into.
	ExtendedSearchBits = 255 * 8
)

// Extended decodes the manufacturer-marked checksum variant.
type Extended struct{}

// Variant implements Decoder.
func (Extended) Variant() domain.Variant { return domain.VariantExtended }

// Decode implements Decoder.
func (Extended) Decode(f *bitframe.Frame) (domain.Reading, error) {
	const v = domain.VariantExtended
	if f.Len() < ExtendedMinBitLength {
		return domain.Reading{}, fail(v, KindAbortLength, "got %d bits, want at least %d", f.Len(), ExtendedMinBitLength)
	}

	offset := f.FindPattern(ExtendedMarkerHigh, ExtendedMarkerLow, ExtendedSearchBits)
	if offset < 0 {
		return domain.Reading{}, fail(v, KindFailSanity, "no manufacturer marker")
	}
	if f.Len()-offset < ExtendedMinBitLength {
		return domain.Reading{}, fail(v, KindAbortLength, "%d bits after marker at %d", f.Len()-offset, offset)
	}

	b, err := f.Extract(offset, ExtendedMinBitLength)
	if err != nil {
		return domain.Reading{}, fail(v, KindAbortLength, "%v", err)
	}

	if extendedEmpty(b) {
		return domain.Reading{}, fail(v, KindFailSanity, "payload all 0x00")
	}

	if sum := bitframe.Checksum(b[:9]); sum != b[9] {
		return domain.Reading{}, fail(v, KindFailMIC, "checksum %02x != %02x", sum, b[9])
	}

	return domain.Reading{
		Variant:        v,
		SensorID:       uint32(b[4])<<16 | uint32(b[5])<<8 | uint32(b[6]),
		Flags:          uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]),
		PressureRaw:    b[7],
		TemperatureRaw: b[8],
		HasTemperature: true,
		Integrity:      domain.IntegrityChecksum,
		MIC:            b[9],
	}, nil
}

// extendedEmpty reports a frame with nothing but noise in the low flag
// byte and the low ID byte. Bytes 0 and 1 are the marker and never zero.
func extendedEmpty(b []byte) bool {
	return b[2] == 0 && b[4] == 0 && b[5] == 0 && b[7] == 0 && b[8] == 0
}
