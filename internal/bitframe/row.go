package bitframe

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// ParseRow parses a capture row in the "{bits}hex" notation, e.g.
// "{68}7f6703a38b2004949". Without a "{bits}" prefix the bit length is
// four times the number of hex digits.
func ParseRow(row string) (*Frame, error) {
	row = strings.TrimSpace(row)
	bitLen := -1
	if strings.HasPrefix(row, "{") {
		end := strings.IndexByte(row, '}')
		if end < 0 {
			return nil, fmt.Errorf("parse row %q: unterminated bit count", row)
		}
		n, err := strconv.Atoi(row[1:end])
		if err != nil {
			return nil, fmt.Errorf("parse row %q: bit count: %w", row, err)
		}
		bitLen = n
		row = row[end+1:]
	}
	row = strings.TrimPrefix(strings.TrimPrefix(row, "0x"), "0X")
	if bitLen < 0 {
		bitLen = len(row) * 4
	}
	if len(row)%2 == 1 {
		row += "0"
	}
	data, err := hex.DecodeString(row)
	if err != nil {
		return nil, fmt.Errorf("parse row: %w", err)
	}
	return New(data, bitLen)
}
