package bitframe

import "fmt"

// ManchesterDecode consumes symbol pairs starting at bit offset start and
// emits the second symbol of each pair, so 01 decodes to 1 and 10 decodes
// to 0. Decoding stops after maxBits output bits (0 means until the frame
// ends); a trailing odd symbol is ignored. A pair of equal symbols is not a
// legal transition and aborts with ErrManchester.
//
// Protocols transmitted with the opposite convention should call Invert on
// the result.
func (f *Frame) ManchesterDecode(start, maxBits int) (*Frame, error) {
	if start < 0 || start > f.Len() {
		return nil, fmt.Errorf("%w: manchester start %d length %d", ErrOutOfRange, start, f.Len())
	}
	end := f.n
	if maxBits > 0 && start+2*maxBits < end {
		end = start + 2*maxBits
	}

	var out builder
	for pos := start; pos+1 < end; pos += 2 {
		first, second := f.Bit(pos), f.Bit(pos+1)
		if first == second {
			return nil, fmt.Errorf("%w at bit %d", ErrManchester, pos)
		}
		out.add(second)
	}
	return out.frame(), nil
}
