package decoder

import (
	"errors"

	"github.com/bft-labs/tpmsrelay/internal/bitframe"
	"github.com/bft-labs/tpmsrelay/internal/domain"
)

// Decoder turns a captured frame into a reading or a *Failure.
type Decoder interface {
	Variant() domain.Variant
	Decode(f *bitframe.Frame) (domain.Reading, error)
}

// Priority is the fixed order in which variants are tried.
var Priority = []domain.Variant{
	domain.VariantClassic,
	domain.VariantExtended,
	domain.VariantManchester,
}

// ForVariant returns the decoder for v, or nil for an unknown variant.
func ForVariant(v domain.Variant) Decoder {
	switch v {
	case domain.VariantClassic:
		return Classic{}
	case domain.VariantExtended:
		return Extended{}
	case domain.VariantManchester:
		return Manchester{}
	default:
		return nil
	}
}

// Outcome is the result of dispatching one frame. Failures holds one entry
// per decoder that rejected the frame before a match, or all of them when
// nothing matched.
type Outcome struct {
	Reading  domain.Reading
	Matched  bool
	Failures []*Failure
}

// Dispatcher tries its decoders in priority order.
type Dispatcher struct {
	decoders []Decoder
}

// NewDispatcher builds a dispatcher for the enabled variants. The priority
// order is always Priority, regardless of the order of enabled. With no
// variants given, all are enabled.
func NewDispatcher(enabled ...domain.Variant) *Dispatcher {
	want := make(map[domain.Variant]bool, len(enabled))
	for _, v := range enabled {
		want[v] = true
	}
	d := &Dispatcher{}
	for _, v := range Priority {
		if len(enabled) == 0 || want[v] {
			d.decoders = append(d.decoders, ForVariant(v))
		}
	}
	return d
}

// Variants returns the enabled variants in priority order.
func (d *Dispatcher) Variants() []domain.Variant {
	out := make([]domain.Variant, len(d.decoders))
	for i, dec := range d.decoders {
		out[i] = dec.Variant()
	}
	return out
}

// Dispatch returns the first successful decode. An unmatched frame is an
// expected outcome, not an error.
func (d *Dispatcher) Dispatch(f *bitframe.Frame) Outcome {
	var out Outcome
	for _, dec := range d.decoders {
		r, err := dec.Decode(f)
		if err == nil {
			out.Reading = r
			out.Matched = true
			return out
		}
		var failure *Failure
		if !errors.As(err, &failure) {
			failure = &Failure{Variant: dec.Variant(), Kind: KindFailSanity, Detail: err.Error()}
		}
		out.Failures = append(out.Failures, failure)
	}
	return out
}
