package masquerade

import (
	"context"
	"errors"
	"sync"

	"github.com/nerrad567/masquerade-core/internal/scaling"
)

var errHostDown = errors.New("host unavailable")

// mockHost records every outbound call.
type mockHost struct {
	mu                 sync.Mutex
	writes             []StateWrite
	enabled            map[DeviceID]bool
	actions            []BaseAction
	brightness         map[DeviceID][]int
	disabledComponents map[string]bool
	failWrites         bool
	failActions        bool
}

func newMockHost() *mockHost {
	return &mockHost{
		enabled:            make(map[DeviceID]bool),
		brightness:         make(map[DeviceID][]int),
		disabledComponents: make(map[string]bool),
	}
}

func (m *mockHost) WriteState(_ context.Context, w StateWrite) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrites {
		return errHostDown
	}
	m.writes = append(m.writes, w)
	return nil
}

func (m *mockHost) SetEnabled(_ context.Context, id DeviceID, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled[id] = enabled
	return nil
}

func (m *mockHost) DispatchBaseAction(_ context.Context, a BaseAction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failActions {
		return errHostDown
	}
	m.actions = append(m.actions, a)
	return nil
}

func (m *mockHost) SetBaseBrightness(_ context.Context, baseID DeviceID, value int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failActions {
		return errHostDown
	}
	m.brightness[baseID] = append(m.brightness[baseID], value)
	return nil
}

func (m *mockHost) ComponentEnabled(componentID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.disabledComponents[componentID]
}

func (m *mockHost) getWrites() []StateWrite {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]StateWrite, len(m.writes))
	copy(out, m.writes)
	return out
}

func (m *mockHost) getActions() []BaseAction {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]BaseAction, len(m.actions))
	copy(out, m.actions)
	return out
}

// Test fixtures.

func sensorDevice(id, base DeviceID, state, match string, reverse bool) Device {
	return Device{
		ID:            id,
		Name:          "sensor",
		Kind:          KindSensor,
		BaseDeviceID:  base,
		WatchedState:  state,
		Enabled:       true,
		ConfigVersion: CurrentConfigVersion,
		Sensor:        &SensorConfig{MatchString: match, Reverse: reverse},
	}
}

func valueSensorDevice(id, base DeviceID, state string, subtype SensorSubtype) Device {
	return Device{
		ID:            id,
		Name:          "value sensor",
		Kind:          KindValueSensor,
		BaseDeviceID:  base,
		WatchedState:  state,
		Enabled:       true,
		ConfigVersion: CurrentConfigVersion,
		ValueSensor:   &ValueSensorConfig{Subtype: subtype},
	}
}

func dimmerDevice(id, base DeviceID) Device {
	return Device{
		ID:            id,
		Name:          "dimmer",
		Kind:          KindDimmer,
		BaseDeviceID:  base,
		WatchedState:  "level",
		Enabled:       true,
		ConfigVersion: CurrentConfigVersion,
		Dimmer: &DimmerConfig{
			StateLow:    0,
			StateHigh:   255,
			ActionLow:   0,
			ActionHigh:  200,
			Format:      scaling.FormatDecimal,
			ComponentID: "com.example.zwave",
			ActionID:    "setLevel",
			ActionField: "level",
			OnValue:     "on",
			OffValue:    "off",
		},
	}
}

func speedDevice(id, base DeviceID, factor int) Device {
	return Device{
		ID:            id,
		Name:          "fan",
		Kind:          KindSpeedControl,
		BaseDeviceID:  base,
		Enabled:       true,
		ConfigVersion: CurrentConfigVersion,
		SpeedControl:  &SpeedControlConfig{ScaleFactor: factor},
	}
}

func snapshot(id DeviceID, states map[string]any) Snapshot {
	return Snapshot{ID: id, Name: "base", States: states, Enabled: true}
}

func ptr(n int) *int { return &n }
