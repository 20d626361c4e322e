package bitframe

// FindPattern scans for the 16-bit marker hi:lo starting at any bit
// alignment. Candidate start offsets are limited to the first windowBits
// positions and to markers that lie entirely inside the frame. It returns
// the lowest matching offset, or -1 when the marker is absent.
func (f *Frame) FindPattern(hi, lo byte, windowBits int) int {
	if f.Len() < 16 || windowBits <= 0 {
		return -1
	}
	marker := uint16(hi)<<8 | uint16(lo)

	var window uint16
	for i := 0; i < 15; i++ {
		window = window<<1 | uint16(f.Bit(i))
	}
	for start := 0; start+16 <= f.n && start < windowBits; start++ {
		window = window<<1 | uint16(f.Bit(start+15))
		if window == marker {
			return start
		}
	}
	return -1
}
