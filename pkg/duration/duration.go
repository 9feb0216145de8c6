// Package duration provides human-readable duration parsing for broadcast
// schedules. It extends Go's standard time.ParseDuration with day, week, and
// year units, which show up in channel configuration ("7d" filler cooldown,
// "365d" permanent-offline substitution).
//
// Supported units (case-insensitive):
//   - ns, us/µs, ms, s, m, h: as in time.ParseDuration
//   - d: days (24 hours)
//   - w: weeks (7 days)
//   - y: years (365 days)
//
// Whitespace between components is permitted: "1w 2d 12h" equals "1w2d12h".
package duration

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Extended units beyond time.ParseDuration.
const (
	Day  = 24 * time.Hour
	Week = 7 * Day
	Year = 365 * Day
)

var unitScale = map[string]time.Duration{
	"ns": time.Nanosecond,
	"us": time.Microsecond,
	"µs": time.Microsecond,
	"ms": time.Millisecond,
	"s":  time.Second,
	"m":  time.Minute,
	"h":  time.Hour,
	"d":  Day,
	"w":  Week,
	"y":  Year,
}

// Parse parses a human-readable duration string.
//
// The string is a signed sequence of value/unit pairs, where values may be
// fractional: "1.5h", "90m", "7d", "1w2d", "-30s". A bare "0" is accepted.
func Parse(s string) (time.Duration, error) {
	orig := s
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("duration: empty string")
	}

	negative := false
	switch s[0] {
	case '-':
		negative = true
		s = s[1:]
	case '+':
		s = s[1:]
	}
	if s == "0" {
		return 0, nil
	}

	var total time.Duration
	i := 0
	for i < len(s) {
		for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
			i++
		}
		if i >= len(s) {
			break
		}

		// Value: digits with optional fraction.
		start := i
		for i < len(s) && (isDigit(s[i]) || s[i] == '.') {
			i++
		}
		if i == start {
			return 0, fmt.Errorf("duration: invalid syntax %q", orig)
		}
		value, err := strconv.ParseFloat(s[start:i], 64)
		if err != nil {
			return 0, fmt.Errorf("duration: invalid number in %q: %w", orig, err)
		}

		for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
			i++
		}

		// Unit: letter run (µ is multi-byte, advance by rune).
		ustart := i
		for i < len(s) {
			r, size := utf8.DecodeRuneInString(s[i:])
			if !isUnitRune(r) {
				break
			}
			i += size
		}
		unit := strings.ToLower(s[ustart:i])
		if unit == "" {
			return 0, fmt.Errorf("duration: missing unit in %q", orig)
		}
		scale, ok := unitScale[unit]
		if !ok {
			return 0, fmt.Errorf("duration: unknown unit %q in %q", unit, orig)
		}
		total += time.Duration(value * float64(scale))
	}

	if negative {
		total = -total
	}
	return total, nil
}

// MustParse is like Parse but panics on error. Use for constants.
func MustParse(s string) time.Duration {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Format renders a duration using the largest fitting units,
// omitting zero components: 26h becomes "1d2h", 90s becomes "1m30s".
func Format(d time.Duration) string {
	if d == 0 {
		return "0s"
	}
	negative := d < 0
	if negative {
		d = -d
	}

	var b strings.Builder
	emit := func(n time.Duration, unit string) {
		if n > 0 {
			fmt.Fprintf(&b, "%d%s", n, unit)
		}
	}

	emit(d/Year, "y")
	d %= Year
	emit(d/Week, "w")
	d %= Week
	emit(d/Day, "d")
	d %= Day
	emit(d/time.Hour, "h")
	d %= time.Hour
	emit(d/time.Minute, "m")
	d %= time.Minute
	emit(d/time.Second, "s")
	d %= time.Second
	emit(d/time.Millisecond, "ms")
	d %= time.Millisecond
	emit(d/time.Microsecond, "µs")
	d %= time.Microsecond
	emit(d, "ns")

	if b.Len() == 0 {
		return "0s"
	}
	if negative {
		return "-" + b.String()
	}
	return b.String()
}

// FromMillis converts a millisecond count to a time.Duration.
// Lineups, programs, and playback records all carry durations in ms.
func FromMillis(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// Millis returns d as whole milliseconds.
func Millis(d time.Duration) int64 {
	return int64(d / time.Millisecond)
}

// Value is a time.Duration that round-trips through text configuration
// using the extended syntax above. It satisfies encoding.TextUnmarshaler
// so viper and JSON decode "7d" style values directly.
type Value time.Duration

// Duration returns the underlying time.Duration.
func (v Value) Duration() time.Duration { return time.Duration(v) }

// String implements fmt.Stringer.
func (v Value) String() string { return Format(time.Duration(v)) }

// MarshalText implements encoding.TextMarshaler.
func (v Value) MarshalText() ([]byte, error) {
	return []byte(Format(time.Duration(v))), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Value) UnmarshalText(text []byte) error {
	d, err := Parse(string(text))
	if err != nil {
		return err
	}
	*v = Value(d)
	return nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isUnitRune(r rune) bool {
	return unicode.IsLetter(r) || r == 'µ'
}
