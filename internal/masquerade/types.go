package masquerade

import "github.com/nerrad567/masquerade-core/internal/scaling"

// DeviceID identifies a device in the host. Masquerade and base devices share
// the same ID space.
type DeviceID int64

// Kind is the behaviour of a masquerade device.
type Kind string

// Kind constants.
const (
	KindSensor       Kind = "sensor"
	KindValueSensor  Kind = "value_sensor"
	KindDimmer       Kind = "dimmer"
	KindSpeedControl Kind = "speed_control"
)

// AllKinds returns every supported kind.
func AllKinds() []Kind {
	return []Kind{KindSensor, KindValueSensor, KindDimmer, KindSpeedControl}
}

// Valid reports whether k is a supported kind.
func (k Kind) Valid() bool {
	switch k {
	case KindSensor, KindValueSensor, KindDimmer, KindSpeedControl:
		return true
	}
	return false
}

// SensorSubtype controls how a value sensor reading is displayed.
type SensorSubtype string

// SensorSubtype constants.
const (
	SubtypeGeneric      SensorSubtype = "generic"
	SubtypeTemperatureF SensorSubtype = "temperature_f"
	SubtypeTemperatureC SensorSubtype = "temperature_c"
	SubtypeHumidity     SensorSubtype = "humidity"
	SubtypeAmbient      SensorSubtype = "ambient"
)

// Valid reports whether s is a supported subtype.
func (s SensorSubtype) Valid() bool {
	switch s {
	case SubtypeGeneric, SubtypeTemperatureF, SubtypeTemperatureC, SubtypeHumidity, SubtypeAmbient:
		return true
	}
	return false
}

// State keys written on masquerade devices and read from base devices.
const (
	StateOnOff       = "onOffState"
	StateSensorValue = "sensorValue"
	StateBrightness  = "brightnessLevel"
	StateSpeed       = "speedLevel"
)

// Device is a configured masquerade device.
//
// Exactly one of the kind-specific configs is expected to be set, matching Kind.
type Device struct {
	ID            DeviceID `json:"id"`
	Name          string   `json:"name"`
	Kind          Kind     `json:"kind"`
	BaseDeviceID  DeviceID `json:"base_device_id"`
	WatchedState  string   `json:"watched_state,omitempty"`
	Enabled       bool     `json:"enabled"`
	ConfigVersion int      `json:"config_version"`

	Sensor       *SensorConfig       `json:"sensor,omitempty"`
	ValueSensor  *ValueSensorConfig  `json:"value_sensor,omitempty"`
	Dimmer       *DimmerConfig       `json:"dimmer,omitempty"`
	SpeedControl *SpeedControlConfig `json:"speed_control,omitempty"`
}

// SensorConfig configures a boolean sensor.
type SensorConfig struct {
	MatchString string `json:"match_string"`
	Reverse     bool   `json:"reverse"`
}

// ValueSensorConfig configures a numeric sensor.
type ValueSensorConfig struct {
	Subtype SensorSubtype `json:"subtype"`
}

// DimmerConfig configures a dimmer backed by an arbitrary numeric base state
// and a base action that accepts a field value.
type DimmerConfig struct {
	StateLow     int  `json:"state_low"`
	StateHigh    int  `json:"state_high"`
	StateReverse bool `json:"state_reverse"`

	ActionLow     int                 `json:"action_low"`
	ActionHigh    int                 `json:"action_high"`
	ActionReverse bool                `json:"action_reverse"`
	Format        scaling.ValueFormat `json:"format"`

	ComponentID string `json:"component_id"`
	ActionID    string `json:"action_id"`
	ActionField string `json:"action_field"`
	OnValue     string `json:"on_value"`
	OffValue    string `json:"off_value"`
}

// SpeedControlConfig configures a speed control backed by a dimmable base device.
type SpeedControlConfig struct {
	ScaleFactor int `json:"scale_factor"`
}

// DeepCopy returns an independent copy of the device.
func (d *Device) DeepCopy() *Device {
	if d == nil {
		return nil
	}

	cpy := *d
	if d.Sensor != nil {
		s := *d.Sensor
		cpy.Sensor = &s
	}
	if d.ValueSensor != nil {
		v := *d.ValueSensor
		cpy.ValueSensor = &v
	}
	if d.Dimmer != nil {
		dm := *d.Dimmer
		cpy.Dimmer = &dm
	}
	if d.SpeedControl != nil {
		sc := *d.SpeedControl
		cpy.SpeedControl = &sc
	}
	return &cpy
}

// Snapshot is a read-only view of a base device at one point in time.
type Snapshot struct {
	ID      DeviceID       `json:"id"`
	Name    string         `json:"name"`
	States  map[string]any `json:"states"`
	Enabled bool           `json:"enabled"`
}

// State returns the named state value.
func (s Snapshot) State(name string) (any, bool) {
	v, ok := s.States[name]
	return v, ok
}

// Clone returns a snapshot with its own state map. Values are shared, which
// is safe for the scalar values hosts report.
func (s Snapshot) Clone() Snapshot {
	cpy := s
	if s.States != nil {
		cpy.States = make(map[string]any, len(s.States))
		for k, v := range s.States {
			cpy.States[k] = v
		}
	}
	return cpy
}
