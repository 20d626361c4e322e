package bitframe

// CRC8 computes a bitwise MSB-first CRC-8 over data with the given
// polynomial and initial remainder. No final XOR is applied.
func CRC8(data []byte, poly, init byte) byte {
	rem := init
	for _, b := range data {
		rem ^= b
		for i := 0; i < 8; i++ {
			if rem&0x80 != 0 {
				rem = rem<<1 ^ poly
			} else {
				rem <<= 1
			}
		}
	}
	return rem
}

// Checksum returns the sum of data modulo 256.
func Checksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return sum
}

// XorFold returns the XOR of all bytes in data.
func XorFold(data []byte) byte {
	var x byte
	for _, b := range data {
		x ^= b
	}
	return x
}
