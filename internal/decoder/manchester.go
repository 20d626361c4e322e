package decoder

import (
	"errors"

	"github.com/bft-labs/tpmsrelay/internal/bitframe"
	"github.com/bft-labs/tpmsrelay/internal/domain"
)

// Manchester frame layout: a 36-bit preamble 0xF5555555E followed by 37
// Manchester-encoded data bits, 10 on air for 1 and 01 for 0:
//
//	FFFIIIII IIIIIIII IIIIIIII IIIPPPPP PPPCC
//
// F flags, I a 24-bit ID, P pressure in 0.2 PSI steps, C a 2-bit check of
// unknown construction. There is no temperature and no checksum; illegal
// Manchester pairs are the integrity signal.
const (
	manchesterPreambleBits = 36
	manchesterFlagBits     = 3
	manchesterIDBits       = 24
	manchesterPressureBits = 10
	manchesterDataBits     = manchesterFlagBits + manchesterIDBits + manchesterPressureBits

	// ManchesterBitLength is the exact on-air length of a frame.
	ManchesterBitLength = manchesterPreambleBits + 2*manchesterDataBits

	// ManchesterSlackBits is the number of trailing bits tolerated after
	// the frame before it is rejected as the wrong length.
	ManchesterSlackBits = 7
)

var manchesterPreamble = [5]byte{0xf5, 0x55, 0x55, 0x55, 0xe0}

// Manchester decodes the preamble-synchronised Manchester variant.
type Manchester struct{}

// Variant implements Decoder.
func (Manchester) Variant() domain.Variant { return domain.VariantManchester }

// Decode implements Decoder.
func (Manchester) Decode(f *bitframe.Frame) (domain.Reading, error) {
	const v = domain.VariantManchester
	if f.Len() < ManchesterBitLength || f.Len() > ManchesterBitLength+ManchesterSlackBits {
		return domain.Reading{}, fail(v, KindAbortLength, "got %d bits, want %d", f.Len(), ManchesterBitLength)
	}

	pre, err := f.Extract(0, manchesterPreambleBits)
	if err != nil {
		return domain.Reading{}, fail(v, KindAbortLength, "%v", err)
	}
	if [5]byte{pre[0], pre[1], pre[2], pre[3], pre[4]} != manchesterPreamble {
		return domain.Reading{}, fail(v, KindFailSanity, "preamble %x", pre)
	}

	decoded, err := f.ManchesterDecode(manchesterPreambleBits, manchesterDataBits)
	if err != nil {
		if errors.Is(err, bitframe.ErrManchester) {
			return domain.Reading{}, fail(v, KindFailMIC, "%v", err)
		}
		return domain.Reading{}, fail(v, KindAbortLength, "%v", err)
	}
	if decoded.Len() != manchesterDataBits {
		return domain.Reading{}, fail(v, KindAbortLength, "decoded %d bits, want %d", decoded.Len(), manchesterDataBits)
	}

	b := decoded.Invert().Bytes()

	flags := b[0] >> 5
	id := uint32(b[0]&0x1f)<<19 | uint32(b[1])<<11 | uint32(b[2])<<3 | uint32(b[3]>>5)
	pressure := (b[3]&0x1f)<<3 | b[4]>>5
	check := (b[4] & 0x18) >> 3

	if flags == 0 && id == 0 && pressure == 0 {
		return domain.Reading{}, fail(v, KindFailSanity, "payload all 0x00")
	}

	return domain.Reading{
		Variant:     v,
		SensorID:    id,
		Flags:       uint32(flags),
		PressureRaw: pressure,
		Integrity:   domain.IntegrityNone,
		MIC:         check,
		Parity:      manchesterParity(b),
	}, nil
}

// manchesterParity folds the flag, ID and pressure bits down to two bits.
// The transmitted check field has not been matched against it, so the
// value is reported but never used to reject a frame.
func manchesterParity(b []byte) byte {
	p := bitframe.XorFold(b[:4]) ^ (b[4] & 0xe0)
	p = (p >> 4) ^ (p & 0x0f)
	return (p >> 2) ^ (p & 0x03)
}
