package conf

import (
	"log/slog"
	"math"
	"strconv"
	"strings"
)

// =========================
// Logging
// =========================

var logger = slog.Default()

// SetLogger replaces the logger used for scan warnings. A nil logger is
// ignored.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

// =========================
// Time Periods
// =========================

const (
	oneMinute = 60
	oneHour   = 60 * oneMinute
	oneDay    = 24 * oneHour
	oneWeek   = 7 * oneDay
	oneMonth  = 30 * oneDay
	oneYear   = 365 * oneDay
)

// ParseTimePeriod scans s for repeated <decimal><suffix> runs and sums
// their seconds-equivalent. Suffixes: s, m, h, d, w, M (30 days), y (365
// days). Unknown suffixes are logged and skipped. If no run contributes,
// defaultValue is returned, so a caller cannot distinguish an explicit zero
// from unparsed input.
func ParseTimePeriod(s string, defaultValue uint) uint {
	var total uint

	for s != "" {
		i := 0
		for i < len(s) && isSpace(s[i]) {
			i++
		}
		j := i
		for j < len(s) && s[j] >= '0' && s[j] <= '9' {
			j++
		}
		if j == i || j >= len(s) {
			break
		}
		period64, err := strconv.ParseUint(s[i:j], 10, 32)
		if err != nil {
			break
		}
		period := uint(period64)
		multiplier := s[j]

		switch multiplier {
		case 's':
			total += period
		case 'm':
			total += period * oneMinute
		case 'h':
			total += period * oneHour
		case 'd':
			total += period * oneDay
		case 'w':
			total += period * oneWeek
		case 'M':
			total += period * oneMonth
		case 'y':
			total += period * oneYear
		default:
			logger.Warn("ignoring unknown multiplier", "multiplier", string(multiplier))
		}

		// The scan resumes after the first occurrence of the multiplier
		// character in the remaining input, not after the matched field.
		s = s[strings.IndexByte(s, multiplier)+1:]
	}

	if total == 0 {
		return defaultValue
	}

	return total
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}

	return false
}

// =========================
// Integers and Booleans
// =========================

// ParseInt64 parses s with base auto-detection (0x, 0o, 0b, leading-zero
// octal). Empty input, trailing garbage, or overflow yields defaultValue.
func ParseInt64(s string, defaultValue int64) int64 {
	v, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		return defaultValue
	}

	return v
}

// ParseInt is ParseInt64 narrowed to the 32-bit range; values that do not
// fit exactly yield defaultValue rather than truncating.
func ParseInt(s string, defaultValue int) int {
	v := ParseInt64(s, int64(defaultValue))
	if v < math.MinInt32 || v > math.MaxInt32 {
		return defaultValue
	}

	return int(v)
}

// ParseBool accepts the exact tokens true/on/yes and false/off/no; anything
// else falls through to ParseInt reinterpreted as zero/nonzero, so "2" is
// true and unparseable input yields defaultValue.
func ParseBool(s string, defaultValue bool) bool {
	switch s {
	case "true", "on", "yes":
		return true
	case "false", "off", "no":
		return false
	}

	defaultInt := 0
	if defaultValue {
		defaultInt = 1
	}

	return ParseInt(s, defaultInt) != 0
}
