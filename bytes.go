package lake

import (
	"strconv"
	"strings"
)

// Bytes is a byte count which prints in a human-readable form such as 1.2G
// or 4M.
type Bytes uint64

var byteUnits = []struct {
	size   Bytes
	suffix string
}{
	{1 << 40, "T"},
	{1 << 30, "G"},
	{1 << 20, "M"},
	{1 << 10, "K"},
	{1, "B"},
}

// String picks the largest unit in which b is at least 1 and prints b in it
// with at most one decimal place.
func (b Bytes) String() string {
	if b == 0 {
		return "0"
	}
	for _, u := range byteUnits {
		if b < u.size {
			continue
		}
		s := strconv.FormatFloat(float64(b)/float64(u.size), 'f', 1, 64)
		return strings.TrimSuffix(s, ".0") + u.suffix
	}
	return "0"
}
