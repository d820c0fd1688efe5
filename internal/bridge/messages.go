package bridge

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nerrad567/masquerade-core/internal/masquerade"
)

// DeviceRemovedMessage is the payload of masquerade/host/device/removed.
type DeviceRemovedMessage struct {
	ID masquerade.DeviceID `json:"id"`
}

// ActionMessage is the payload of masquerade/host/action/{id}.
type ActionMessage struct {
	Action masquerade.ActionKind `json:"action"`
	Value  *int                  `json:"value,omitempty"`
}

// ComponentStatusMessage is the payload of masquerade/host/component/{id}/status.
type ComponentStatusMessage struct {
	Enabled bool `json:"enabled"`
}

// StateMessage is published on masquerade/device/{id}/state.
type StateMessage struct {
	DeviceID      masquerade.DeviceID `json:"device_id"`
	Key           string              `json:"key"`
	Value         any                 `json:"value"`
	DisplayText   string              `json:"display_text,omitempty"`
	DecimalPlaces *int                `json:"decimal_places,omitempty"`
	Timestamp     time.Time           `json:"timestamp"`
}

// EnabledMessage is published on masquerade/device/{id}/enabled.
type EnabledMessage struct {
	DeviceID  masquerade.DeviceID `json:"device_id"`
	Enabled   bool                `json:"enabled"`
	Timestamp time.Time           `json:"timestamp"`
}

// BaseActionMessage is published on masquerade/component/{componentID}/action.
type BaseActionMessage struct {
	ID           string              `json:"id"`
	DeviceID     masquerade.DeviceID `json:"device_id"`
	ActionID     string              `json:"action_id"`
	BaseDeviceID masquerade.DeviceID `json:"base_device_id"`
	Fields       map[string]string   `json:"fields"`
	Timestamp    time.Time           `json:"timestamp"`
}

// BrightnessMessage is published on masquerade/base/{id}/brightness.
type BrightnessMessage struct {
	BaseDeviceID masquerade.DeviceID `json:"base_device_id"`
	DeviceID     masquerade.DeviceID `json:"device_id,omitempty"`
	Value        int                 `json:"value"`
	Timestamp    time.Time           `json:"timestamp"`
}

// topicID extracts the numeric ID at position idx of a slash separated topic.
func topicID(topic string, idx int) (masquerade.DeviceID, error) {
	parts := strings.Split(topic, "/")
	if idx >= len(parts) {
		return 0, fmt.Errorf("%w: %s", ErrInvalidTopic, topic)
	}
	id, err := strconv.ParseInt(parts[idx], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s", ErrInvalidTopic, topic)
	}
	return masquerade.DeviceID(id), nil
}

// topicSegment returns the segment at position idx of a topic.
func topicSegment(topic string, idx int) (string, error) {
	parts := strings.Split(topic, "/")
	if idx >= len(parts) || parts[idx] == "" {
		return "", fmt.Errorf("%w: %s", ErrInvalidTopic, topic)
	}
	return parts[idx], nil
}
