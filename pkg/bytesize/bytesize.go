// Package bytesize provides human-readable byte size parsing and formatting
// for configuration values such as icon cache limits and stderr ring capacity.
// Units use the binary (1024) base: "5MB" is 5*1024*1024 bytes.
package bytesize

import (
	"fmt"
	"strconv"
	"strings"
)

// Size represents a byte count.
type Size int64

// Binary-base size constants.
const (
	B  Size = 1
	KB Size = 1024
	MB Size = 1024 * KB
	GB Size = 1024 * MB
	TB Size = 1024 * GB
	PB Size = 1024 * TB
)

var units = map[string]Size{
	"":    B,
	"b":   B,
	"k":   KB,
	"kb":  KB,
	"kib": KB,
	"m":   MB,
	"mb":  MB,
	"mib": MB,
	"g":   GB,
	"gb":  GB,
	"gib": GB,
	"t":   TB,
	"tb":  TB,
	"tib": TB,
	"p":   PB,
	"pb":  PB,
	"pib": PB,
}

// Parse parses a human-readable size string. Values may be fractional and
// carry an optional unit: "1024", "500KB", "1.5 GB". No unit means bytes.
func Parse(s string) (Size, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0, fmt.Errorf("bytesize: empty string")
	}

	// Split numeric prefix from unit suffix.
	split := len(trimmed)
	for i, r := range trimmed {
		if (r < '0' || r > '9') && r != '.' {
			split = i
			break
		}
	}
	valueStr := trimmed[:split]
	unitStr := strings.ToLower(strings.TrimSpace(trimmed[split:]))

	if valueStr == "" {
		return 0, fmt.Errorf("bytesize: invalid format %q", s)
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("bytesize: invalid number %q: %w", valueStr, err)
	}
	mult, ok := units[unitStr]
	if !ok {
		return 0, fmt.Errorf("bytesize: unknown unit %q", unitStr)
	}
	return Size(value * float64(mult)), nil
}

// MustParse is like Parse but panics on error. Use for constants.
func MustParse(s string) Size {
	size, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return size
}

// Format renders a size using the largest unit with a value >= 1,
// trimming trailing zeros: 1536 bytes becomes "1.5KB".
func Format(s Size) string {
	if s == 0 {
		return "0B"
	}
	negative := s < 0
	if negative {
		s = -s
	}

	var out string
	switch {
	case s >= PB:
		out = trim(float64(s)/float64(PB)) + "PB"
	case s >= TB:
		out = trim(float64(s)/float64(TB)) + "TB"
	case s >= GB:
		out = trim(float64(s)/float64(GB)) + "GB"
	case s >= MB:
		out = trim(float64(s)/float64(MB)) + "MB"
	case s >= KB:
		out = trim(float64(s)/float64(KB)) + "KB"
	default:
		out = fmt.Sprintf("%dB", s)
	}
	if negative {
		return "-" + out
	}
	return out
}

func trim(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	out := strconv.FormatFloat(v, 'f', 2, 64)
	out = strings.TrimRight(out, "0")
	return strings.TrimRight(out, ".")
}

// Bytes returns the size in bytes.
func (s Size) Bytes() int64 { return int64(s) }

// String implements fmt.Stringer.
func (s Size) String() string { return Format(s) }

// MarshalText implements encoding.TextMarshaler.
func (s Size) MarshalText() ([]byte, error) {
	return []byte(Format(s)), nil
}

// UnmarshalText implements encoding.TextUnmarshaler, letting config decode
// "64MB" style values directly into Size fields.
func (s *Size) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
