package masquerade

import "context"

// Host is the outbound side of the engine: everything that reaches the
// outside world goes through it.
type Host interface {
	// WriteState sets a state on a masquerade device.
	WriteState(ctx context.Context, w StateWrite) error

	// SetEnabled enables or disables a masquerade device in the host.
	SetEnabled(ctx context.Context, id DeviceID, enabled bool) error

	// DispatchBaseAction runs a component action against a base device.
	DispatchBaseAction(ctx context.Context, a BaseAction) error

	// SetBaseBrightness sets the brightness of a dimmable base device.
	SetBaseBrightness(ctx context.Context, baseID DeviceID, value int) error

	// ComponentEnabled reports whether the component owning a base device is enabled.
	ComponentEnabled(componentID string) bool
}

// StateWrite is a single state update on a masquerade device.
type StateWrite struct {
	DeviceID    DeviceID `json:"device_id"`
	Key         string   `json:"key"`
	Value       any      `json:"value"`
	DisplayText string   `json:"display_text,omitempty"`

	// DecimalPlaces is nil when the host should use its default formatting.
	DecimalPlaces *int `json:"decimal_places,omitempty"`
}

// BaseAction is a component action issued on behalf of a masquerade device.
type BaseAction struct {
	ID           string            `json:"id"`
	DeviceID     DeviceID          `json:"device_id"`
	ComponentID  string            `json:"component_id"`
	ActionID     string            `json:"action_id"`
	BaseDeviceID DeviceID          `json:"base_device_id"`
	Fields       map[string]string `json:"fields"`
}

// Logger defines the logging interface used by this package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
