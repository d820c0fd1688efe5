package scaling

import "errors"

var (
	// ErrUnknownValueFormat is returned when a value format is not recognised.
	// No rendered value accompanies this error.
	ErrUnknownValueFormat = errors.New("scaling: unknown value format")

	// ErrOutOfRange reports that an input was clamped into its expected range.
	// The scaled value is still usable; callers log it as a warning.
	ErrOutOfRange = errors.New("scaling: input out of range")
)
