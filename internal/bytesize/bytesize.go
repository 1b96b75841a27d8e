// Package bytesize parses and formats human-readable byte sizes such as
// "1GB" or "500MB". Units are binary: 1 KB is 1024 bytes.
package bytesize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/docker/go-units"
)

// DefaultBytes is returned when a size string can't be parsed at all.
const DefaultBytes int64 = units.GiB

var sizePattern = regexp.MustCompile(`(?i)^\s*([0-9]+(?:\.[0-9]+)?)\s*(B|KB|MB|GB|TB)\s*$`)

var unitMultiplier = map[string]int64{
	"B":  1,
	"KB": units.KiB,
	"MB": units.MiB,
	"GB": units.GiB,
	"TB": units.TiB,
}

// Parse converts a human-readable size like "1.5GB" into bytes.
//
// If the string doesn't match the "<digits>(.<digits>)? <unit>" grammar,
// Parse tries to interpret it as plain decimal digits; if that also
// fails, it falls back to DefaultBytes (1 GiB).
func Parse(s string) int64 {
	if m := sizePattern.FindStringSubmatch(s); m != nil {
		value, err := strconv.ParseFloat(m[1], 64)
		if err == nil {
			mult := unitMultiplier[strings.ToUpper(m[2])]
			return int64(value * float64(mult))
		}
	}

	if n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
		return n
	}

	return DefaultBytes
}

// Format renders a byte count as a human-readable string, picking the
// largest unit at which the value is >= 1 and printing two decimals.
// Below 1 KB it prints the integer byte count instead.
func Format(n int64) string {
	if n < units.KiB {
		return fmt.Sprintf("%dB", n)
	}

	switch {
	case n >= unitMultiplier["TB"]:
		return fmt.Sprintf("%.2fTB", float64(n)/float64(unitMultiplier["TB"]))
	case n >= unitMultiplier["GB"]:
		return fmt.Sprintf("%.2fGB", float64(n)/float64(unitMultiplier["GB"]))
	case n >= unitMultiplier["MB"]:
		return fmt.Sprintf("%.2fMB", float64(n)/float64(unitMultiplier["MB"]))
	default:
		return fmt.Sprintf("%.2fKB", float64(n)/float64(unitMultiplier["KB"]))
	}
}
