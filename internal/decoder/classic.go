package decoder

import (
	"github.com/bft-labs/tpmsrelay/internal/bitframe"
	"github.com/bft-labs/tpmsrelay/internal/domain"
)

// Classic frame layout: 1 sync nibble and 8 bytes.
//
//	S PF FI II II II PP TT CC
//
// P is a constant preamble nibble, F flags, I a 28-bit ID, P pressure in
// 25 mbar steps, T temperature offset by 50 C, C a CRC-8 over the seven
// bytes that follow the sync nibble.
const (
	ClassicBitLength = 68
	classicSyncBits  = 4
	classicCRCPoly   = 0x07
	classicCRCInit   = 0xf0
)

// Classic decodes the original 68-bit sensor frame.
type Classic struct{}

// Variant implements Decoder.
func (Classic) Variant() domain.Variant { return domain.VariantClassic }

// Decode implements Decoder.
func (Classic) Decode(f *bitframe.Frame) (domain.Reading, error) {
	const v = domain.VariantClassic
	if f.Len() != ClassicBitLength {
		return domain.Reading{}, fail(v, KindAbortLength, "got %d bits, want %d", f.Len(), ClassicBitLength)
	}

	b, err := f.Extract(classicSyncBits, ClassicBitLength-classicSyncBits)
	if err != nil {
		return domain.Reading{}, fail(v, KindAbortLength, "%v", err)
	}

	if isZero(b[:7]) {
		return domain.Reading{}, fail(v, KindFailSanity, "payload all 0x00")
	}

	if crc := bitframe.CRC8(b[:7], classicCRCPoly, classicCRCInit); crc != b[7] {
		return domain.Reading{}, fail(v, KindFailMIC, "crc %02x != %02x", crc, b[7])
	}

	return domain.Reading{
		Variant:        v,
		SensorID:       uint32(b[1]&0x0f)<<24 | uint32(b[2])<<16 | uint32(b[3])<<8 | uint32(b[4]),
		Flags:          uint32(b[0]&0x0f)<<4 | uint32(b[1]>>4),
		PressureRaw:    b[5],
		TemperatureRaw: b[6],
		HasTemperature: true,
		Integrity:      domain.IntegrityCRC,
		MIC:            b[7],
	}, nil
}

func isZero(b []byte) bool {
	for _, x := range b {
		if x != 0 {
			return false
		}
	}
	return true
}
