package bitframe

import (
	"bytes"
	"errors"
	"testing"
)

func TestFrame_ManchesterDecode(t *testing.T) {
	// 4 bits of preamble then pairs 01 10 01 01 -> 1 0 1 1
	f := MustNew([]byte{0xf6, 0x50}, 12)

	got, err := f.ManchesterDecode(4, 0)
	if err != nil {
		t.Fatalf("ManchesterDecode() error = %v", err)
	}
	if got.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", got.Len())
	}
	if b := got.Bytes(); !bytes.Equal(b, []byte{0xb0}) {
		t.Errorf("Bytes() = %x, want b0", b)
	}
}

func TestFrame_ManchesterDecode_MaxBits(t *testing.T) {
	// pairs 01 10 then 11, which is only reached without a limit
	f := MustNew([]byte{0x6c}, 6)

	got, err := f.ManchesterDecode(0, 2)
	if err != nil {
		t.Fatalf("ManchesterDecode() error = %v", err)
	}
	if got.Len() != 2 || got.Bit(0) != 1 || got.Bit(1) != 0 {
		t.Errorf("decoded %s, want {2}8", got)
	}

	if _, err := f.ManchesterDecode(0, 0); !errors.Is(err, ErrManchester) {
		t.Errorf("ManchesterDecode() error = %v, want ErrManchester", err)
	}
}

func TestFrame_ManchesterDecode_InvalidPair(t *testing.T) {
	// 01 followed by 00, then 01 followed by 11
	for _, b := range []byte{0x40, 0x70} {
		f := MustNew([]byte{b}, 4)
		if _, err := f.ManchesterDecode(0, 0); !errors.Is(err, ErrManchester) {
			t.Errorf("frame %s: error = %v, want ErrManchester", f, err)
		}
	}
}

func TestFrame_ManchesterDecode_StartOutOfRange(t *testing.T) {
	f := MustNew([]byte{0x55}, 8)
	if _, err := f.ManchesterDecode(9, 0); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("error = %v, want ErrOutOfRange", err)
	}
}
