package domain

import "fmt"

// Variant identifies the physical-layer encoding a reading was decoded from.
type Variant int

const (
	VariantUnknown Variant = iota
	VariantClassic
	VariantExtended
	VariantManchester
)

// String returns the short configuration name of the variant.
func (v Variant) String() string {
	switch v {
	case VariantClassic:
		return "classic"
	case VariantExtended:
		return "extended"
	case VariantManchester:
		return "manchester"
	default:
		return "unknown"
	}
}

// Model returns the sensor model name reported for the variant.
func (v Variant) Model() string {
	switch v {
	case VariantClassic:
		return "Schrader"
	case VariantExtended:
		return "Schrader-EG53MA4"
	case VariantManchester:
		return "Schrader-SMD3MA4"
	default:
		return "unknown"
	}
}

// ParseVariant maps a configuration name back to a Variant.
func ParseVariant(name string) (Variant, error) {
	for _, v := range []Variant{VariantClassic, VariantExtended, VariantManchester} {
		if v.String() == name {
			return v, nil
		}
	}
	return VariantUnknown, fmt.Errorf("unknown variant %q", name)
}

// Integrity names the check that validated a reading.
type Integrity int

const (
	IntegrityNone Integrity = iota
	IntegrityCRC
	IntegrityChecksum
)

func (i Integrity) String() string {
	switch i {
	case IntegrityCRC:
		return "CRC"
	case IntegrityChecksum:
		return "CHECKSUM"
	default:
		return "NONE"
	}
}

const (
	// PressureStepMbar is the classic and extended pressure resolution.
	PressureStepMbar = 25

	// PressureStepPSI is the manchester variant pressure resolution.
	PressureStepPSI = 0.2

	// TemperatureOffsetC is subtracted from the classic raw temperature.
	TemperatureOffsetC = 50

	kPaPerPSI = 6.894757
)

// Reading is one decoded sensor broadcast. Which fields carry meaning
// depends on Variant; HasTemperature is false for the manchester variant.
type Reading struct {
	Variant        Variant
	SensorID       uint32
	Flags          uint32
	PressureRaw    uint8
	TemperatureRaw uint8
	HasTemperature bool
	Integrity      Integrity

	// MIC is the integrity value as received: the CRC byte, the checksum
	// byte, or the 2-bit check field of the manchester variant.
	MIC byte

	// Parity is the locally computed manchester parity. Diagnostic only.
	Parity byte
}

// PressureKPa converts the raw pressure to kilopascal.
func (r Reading) PressureKPa() float64 {
	if r.Variant == VariantManchester {
		return r.PressurePSI() * kPaPerPSI
	}
	return float64(r.PressureRaw) * PressureStepMbar / 10
}

// PressurePSI converts the raw pressure to pounds per square inch.
func (r Reading) PressurePSI() float64 {
	if r.Variant == VariantManchester {
		return float64(r.PressureRaw) * PressureStepPSI
	}
	return r.PressureKPa() / kPaPerPSI
}

// Temperature returns the physical temperature and its unit ("C" or "F").
// ok is false when the variant carries no temperature.
func (r Reading) Temperature() (value float64, unit string, ok bool) {
	if !r.HasTemperature {
		return 0, "", false
	}
	switch r.Variant {
	case VariantClassic:
		return float64(int(r.TemperatureRaw) - TemperatureOffsetC), "C", true
	case VariantExtended:
		return float64(r.TemperatureRaw), "F", true
	}
	return 0, "", false
}

// IDString formats the sensor ID the way the sensor family prints it.
func (r Reading) IDString() string {
	if r.Variant == VariantClassic {
		return fmt.Sprintf("%07X", r.SensorID)
	}
	return fmt.Sprintf("%06X", r.SensorID)
}
