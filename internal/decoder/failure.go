package decoder

import (
	"fmt"

	"github.com/bft-labs/tpmsrelay/internal/domain"
)

// Kind classifies a decode failure.
type Kind int

const (
	// KindAbortLength means the frame is too short or of unexpected length.
	KindAbortLength Kind = iota + 1

	// KindFailSanity means the frame is structurally present but a required
	// marker is absent or the payload is all zero.
	KindFailSanity

	// KindFailMIC means the integrity check did not match.
	KindFailMIC
)

func (k Kind) String() string {
	switch k {
	case KindAbortLength:
		return "ABORT_LENGTH"
	case KindFailSanity:
		return "FAIL_SANITY"
	case KindFailMIC:
		return "FAIL_MIC"
	default:
		return "UNKNOWN"
	}
}

// Failure is returned by a decoder that rejected a frame.
type Failure struct {
	Variant domain.Variant
	Kind    Kind
	Detail  string
}

func (f *Failure) Error() string {
	if f.Detail == "" {
		return fmt.Sprintf("%s: %s", f.Variant, f.Kind)
	}
	return fmt.Sprintf("%s: %s: %s", f.Variant, f.Kind, f.Detail)
}

func fail(v domain.Variant, k Kind, format string, args ...interface{}) *Failure {
	return &Failure{Variant: v, Kind: k, Detail: fmt.Sprintf(format, args...)}
}
