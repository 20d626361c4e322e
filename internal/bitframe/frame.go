package bitframe

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfRange is returned when a request reaches past the captured bits.
	ErrOutOfRange = errors.New("bitframe: bit range exceeds frame length")

	// ErrManchester is returned when a symbol pair is not a legal transition.
	ErrManchester = errors.New("bitframe: invalid manchester symbol pair")
)

// Frame is an ordered sequence of bits with a known length.
// Bits are stored MSB first; bits past the length in the final byte are zero.
type Frame struct {
	data []byte
	n    int
}

// New copies bitLen bits from data into a new frame.
func New(data []byte, bitLen int) (*Frame, error) {
	if bitLen < 0 || bitLen > len(data)*8 {
		return nil, fmt.Errorf("%w: %d bits requested from %d bytes", ErrOutOfRange, bitLen, len(data))
	}
	f := &Frame{data: make([]byte, (bitLen+7)/8), n: bitLen}
	copy(f.data, data)
	f.clearTail()
	return f, nil
}

// MustNew is like New but panics on error. Intended for fixed test vectors.
func MustNew(data []byte, bitLen int) *Frame {
	f, err := New(data, bitLen)
	if err != nil {
		panic(err)
	}
	return f
}

// Len returns the number of bits in the frame.
func (f *Frame) Len() int {
	if f == nil {
		return 0
	}
	return f.n
}

// Bit returns bit i as 0 or 1. It panics when i is out of range.
func (f *Frame) Bit(i int) byte {
	if i < 0 || i >= f.n {
		panic(fmt.Sprintf("bitframe: bit %d out of range [0,%d)", i, f.n))
	}
	return (f.data[i>>3] >> (7 - uint(i&7))) & 1
}

// Bytes returns a copy of the frame storage, zero padded to whole bytes.
func (f *Frame) Bytes() []byte {
	out := make([]byte, len(f.data))
	copy(out, f.data)
	return out
}

// Extract copies count bits starting at offset into a byte-aligned buffer,
// left-justified, with the final partial byte zero padded.
func (f *Frame) Extract(offset, count int) ([]byte, error) {
	if offset < 0 || count < 0 || offset+count > f.Len() {
		return nil, fmt.Errorf("%w: offset %d count %d length %d", ErrOutOfRange, offset, count, f.Len())
	}
	out := make([]byte, (count+7)/8)
	shift := uint(offset & 7)
	src := f.data[offset>>3:]
	for i := range out {
		b := src[i] << shift
		if shift != 0 && i+1 < len(src) {
			b |= src[i+1] >> (8 - shift)
		}
		out[i] = b
	}
	if rem := count & 7; rem != 0 {
		out[len(out)-1] &= 0xff << uint(8-rem)
	}
	return out, nil
}

// Invert returns a new frame with every bit flipped.
func (f *Frame) Invert() *Frame {
	inv := &Frame{data: make([]byte, len(f.data)), n: f.n}
	for i, b := range f.data {
		inv.data[i] = ^b
	}
	inv.clearTail()
	return inv
}

// String renders the frame in row notation, e.g. "{68}7f6703a38b2004949".
func (f *Frame) String() string {
	digits := (f.n + 3) / 4
	hex := fmt.Sprintf("%x", f.data)
	if len(hex) > digits {
		hex = hex[:digits]
	}
	return fmt.Sprintf("{%d}%s", f.n, hex)
}

func (f *Frame) clearTail() {
	if rem := f.n & 7; rem != 0 {
		f.data[len(f.data)-1] &= 0xff << uint(8-rem)
	}
}

// builder appends bits MSB first.
type builder struct {
	data []byte
	n    int
}

func (b *builder) add(bit byte) {
	if b.n&7 == 0 {
		b.data = append(b.data, 0)
	}
	if bit != 0 {
		b.data[b.n>>3] |= 0x80 >> uint(b.n&7)
	}
	b.n++
}

func (b *builder) frame() *Frame {
	if b.data == nil {
		b.data = []byte{}
	}
	return &Frame{data: b.data, n: b.n}
}
