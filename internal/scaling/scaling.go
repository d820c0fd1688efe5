package scaling

import (
	"fmt"
	"strconv"
)

// Percent bounds of the masquerade side.
const (
	MinPercent = 0
	MaxPercent = 100
)

// ValueFormat selects how a scaled base value is rendered for an action field.
type ValueFormat string

// Supported value formats.
const (
	FormatDecimal     ValueFormat = "decimal"
	FormatHexadecimal ValueFormat = "hexadecimal"
	FormatOctal       ValueFormat = "octal"
)

// Valid reports whether f is a known format.
func (f ValueFormat) Valid() bool {
	switch f {
	case FormatDecimal, FormatHexadecimal, FormatOctal:
		return true
	}
	return false
}

// BaseToMasq maps input from the base range [low, high] onto 0-100.
//
// Input outside [low, high] is clamped first and clamped is reported as
// true so the caller can warn. With reverse set the result is 100 minus the
// forward value. The result is always within [0, 100].
//
// low < high is a precondition. When it does not hold the result is 0.
func BaseToMasq(input, low, high int, reverse bool) (scaled int, clamped bool) {
	if high <= low {
		return MinPercent, false
	}

	input, clamped = clamp(input, low, high)
	scaled = floorDiv((input-low)*MaxPercent, high-low)
	if reverse {
		scaled = reversePercent(scaled)
	}

	scaled, _ = clamp(scaled, MinPercent, MaxPercent)
	return scaled, clamped
}

// MasqToBase maps a 0-100 level onto the base range [low, high] and renders
// it per format.
//
// A level outside 0-100 is clamped. An unknown format returns
// ErrUnknownValueFormat and an empty string; nothing should be sent to the
// base device in that case.
func MasqToBase(input, low, high int, reverse bool, format ValueFormat) (string, error) {
	input, _ = clamp(input, MinPercent, MaxPercent)

	scaled := floorDiv(input*(high-low), MaxPercent) + low
	if reverse {
		scaled = reverseBase(scaled, low, high)
	}

	return Render(scaled, format)
}

// Render formats v as text in the given format.
//
// Hexadecimal output is lowercase and zero-padded to two digits. Octal
// output uses the 0o prefix.
func Render(v int, format ValueFormat) (string, error) {
	switch format {
	case FormatDecimal:
		return strconv.Itoa(v), nil
	case FormatHexadecimal:
		return fmt.Sprintf("%02x", v), nil
	case FormatOctal:
		return fmt.Sprintf("%O", v), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownValueFormat, format)
	}
}

// Tolerance returns the largest difference a BaseToMasq/MasqToBase round
// trip can introduce for the range [low, high].
func Tolerance(low, high int) int {
	span := high - low
	if span <= MaxPercent {
		return 1
	}
	return (span + MaxPercent - 1) / MaxPercent
}

// reversePercent mirrors a 0-100 level.
func reversePercent(v int) int {
	return MaxPercent - v
}

// reverseBase mirrors v within [low, high].
func reverseBase(v, low, high int) int {
	return high - (v - low)
}

// clamp limits v to [low, high] and reports whether it had to.
func clamp(v, low, high int) (int, bool) {
	switch {
	case v < low:
		return low, true
	case v > high:
		return high, true
	default:
		return v, false
	}
}

// floorDiv divides rounding towards negative infinity.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
