package bridge

import "errors"

// Domain errors for the bridge package.
var (
	// ErrInvalidTopic is returned when a topic does not carry a parsable ID.
	ErrInvalidTopic = errors.New("bridge: invalid topic")

	// ErrInvalidPayload is returned when a message payload cannot be decoded.
	ErrInvalidPayload = errors.New("bridge: invalid payload")

	// ErrIDMismatch is returned when a payload ID disagrees with its topic.
	ErrIDMismatch = errors.New("bridge: payload id does not match topic")
)
