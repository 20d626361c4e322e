package decoder

import (
	"errors"
	"testing"

	"github.com/bft-labs/tpmsrelay/internal/bitframe"
	"github.com/bft-labs/tpmsrelay/internal/domain"
)

const (
	classicRow    = "{68}7f6703a38b20049490"
	manchesterRow = "{110}f5555555e559695a95595a99a658"
)

func mustRow(t *testing.T, row string) *bitframe.Frame {
	t.Helper()
	f, err := bitframe.ParseRow(row)
	if err != nil {
		t.Fatalf("ParseRow(%q) error = %v", row, err)
	}
	return f
}

func flip(f *bitframe.Frame, bit int) *bitframe.Frame {
	b := f.Bytes()
	b[bit/8] ^= 0x80 >> uint(bit%8)
	return bitframe.MustNew(b, f.Len())
}

func wantKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	var failure *Failure
	if !errors.As(err, &failure) {
		t.Fatalf("error = %v, want *Failure", err)
	}
	if failure.Kind != kind {
		t.Errorf("Kind = %v, want %v (%v)", failure.Kind, kind, failure)
	}
}

func TestClassic_Decode(t *testing.T) {
	r, err := Classic{}.Decode(mustRow(t, classicRow))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if r.Variant != domain.VariantClassic {
		t.Errorf("Variant = %v, want classic", r.Variant)
	}
	if r.Flags != 0x67 {
		t.Errorf("Flags = %#x, want 0x67", r.Flags)
	}
	if r.SensorID != 0x003a38b2 {
		t.Errorf("SensorID = %#x, want 0x3a38b2", r.SensorID)
	}
	if r.PressureRaw != 0 || r.PressureKPa() != 0 {
		t.Errorf("pressure = %d (%v kPa), want 0", r.PressureRaw, r.PressureKPa())
	}
	if r.TemperatureRaw != 0x49 {
		t.Errorf("TemperatureRaw = %#x, want 0x49", r.TemperatureRaw)
	}
	if v, unit, ok := r.Temperature(); !ok || v != 23 || unit != "C" {
		t.Errorf("Temperature() = %v %s %v, want 23 C true", v, unit, ok)
	}
	if r.Integrity != domain.IntegrityCRC || r.MIC != 0x49 {
		t.Errorf("integrity = %v/%#x, want CRC/0x49", r.Integrity, r.MIC)
	}
}

func TestClassic_Length(t *testing.T) {
	tests := []int{0, 67, 69, 136}

	for _, n := range tests {
		f := bitframe.MustNew(make([]byte, (n+7)/8), n)
		_, err := Classic{}.Decode(f)
		wantKind(t, err, KindAbortLength)
	}
}

func TestClassic_SingleBitFlips(t *testing.T) {
	f := mustRow(t, classicRow)

	// Every bit of the seven CRC-covered bytes.
	for bit := classicSyncBits; bit < classicSyncBits+56; bit++ {
		_, err := Classic{}.Decode(flip(f, bit))
		if err == nil {
			t.Fatalf("flip of bit %d decoded", bit)
		}
		wantKind(t, err, KindFailMIC)
	}
}

func TestClassic_ZeroPayload(t *testing.T) {
	f := bitframe.MustNew(make([]byte, 9), ClassicBitLength)

	_, err := Classic{}.Decode(f)
	wantKind(t, err, KindFailSanity)
}

func TestExtended_Decode(t *testing.T) {
	tests := []struct {
		name   string
		row    string
		offset int
	}{
		{"aligned", "{96}4c9012340abcde5c486a0000", 0},
		{"offset 5", "{96}02648091a055e6f2e2435000", 5},
		{"offset 13", "{96}0002648091a055e6f2e24350", 13},
		{"exact length", "{80}4c9012340abcde5c486a", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Extended{}.Decode(mustRow(t, tt.row))
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if r.Flags != 0x4c901234 {
				t.Errorf("Flags = %#x, want 0x4c901234", r.Flags)
			}
			if r.SensorID != 0x0abcde {
				t.Errorf("SensorID = %#x, want 0x0abcde", r.SensorID)
			}
			if r.PressureRaw != 0x5c {
				t.Errorf("PressureRaw = %#x, want 0x5c", r.PressureRaw)
			}
			if r.TemperatureRaw != 0x48 {
				t.Errorf("TemperatureRaw = %#x, want 0x48", r.TemperatureRaw)
			}
			if v, unit, _ := r.Temperature(); v != 72 || unit != "F" {
				t.Errorf("Temperature() = %v %s, want 72 F", v, unit)
			}
			if r.Integrity != domain.IntegrityChecksum || r.MIC != 0x6a {
				t.Errorf("integrity = %v/%#x, want CHECKSUM/0x6a", r.Integrity, r.MIC)
			}
		})
	}
}

func TestExtended_Failures(t *testing.T) {
	tests := []struct {
		name string
		row  string
		want Kind
	}{
		{"too short", "{79}4c9012340abcde5c486a", KindAbortLength},
		{"no marker", "{96}4d9012340abcde5c486a0000", KindFailSanity},
		{"marker too late", "{88}00004c9012340abcde5c486a", KindAbortLength},
		{"zero payload", "{80}4c900000000000000000", KindFailSanity},
		{"only flag and id low bytes", "{80}4c9000010000050000e2", KindFailSanity},
		{"bad checksum", "{80}4c9012340abcde5c486b", KindFailMIC},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Extended{}.Decode(mustRow(t, tt.row))
			wantKind(t, err, tt.want)
		})
	}
}

func TestManchester_Decode(t *testing.T) {
	for _, n := range []int{ManchesterBitLength, ManchesterBitLength + ManchesterSlackBits} {
		f := mustRow(t, manchesterRow)
		f = bitframe.MustNew(append(f.Bytes(), 0), n)

		r, err := Manchester{}.Decode(f)
		if err != nil {
			t.Fatalf("Decode(%d bits) error = %v", n, err)
		}
		if r.Flags != 0 {
			t.Errorf("Flags = %d, want 0", r.Flags)
		}
		if r.SensorID != 0x4c7047 {
			t.Errorf("SensorID = %#x, want 0x4c7047", r.SensorID)
		}
		if r.PressureRaw != 90 {
			t.Errorf("PressureRaw = %d, want 90", r.PressureRaw)
		}
		if psi := r.PressurePSI(); psi < 17.99 || psi > 18.01 {
			t.Errorf("PressurePSI() = %v, want 18", psi)
		}
		if _, _, ok := r.Temperature(); ok {
			t.Error("Temperature() ok = true, want false")
		}
		if r.MIC != 1 || r.Parity != 3 {
			t.Errorf("check/parity = %d/%d, want 1/3", r.MIC, r.Parity)
		}
	}
}

func TestManchester_Failures(t *testing.T) {
	tests := []struct {
		name string
		row  string
		want Kind
	}{
		{"short", "{109}f5555555e559695a95595a99a658", KindAbortLength},
		{"too long", "{118}f5555555e559695a95595a99a65800", KindAbortLength},
		{"bad preamble", "{110}f5555554e559695a95595a99a658", KindFailSanity},
		{"bad pair", "{110}f5555555ed59695a95595a99a658", KindFailMIC},
		{"zero payload", "{110}f5555555e5555555555555555554", KindFailSanity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Manchester{}.Decode(mustRow(t, tt.row))
			wantKind(t, err, tt.want)
		})
	}
}
