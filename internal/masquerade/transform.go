package masquerade

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/nerrad567/masquerade-core/internal/scaling"
)

// Engine applies per-kind transforms from a base snapshot onto a masquerade
// device. It holds no device state of its own.
type Engine struct {
	host   Host
	logger Logger
}

// NewEngine creates a transform engine writing through host.
func NewEngine(host Host) *Engine {
	return &Engine{host: host, logger: noopLogger{}}
}

// SetLogger sets the logger for the engine.
func (e *Engine) SetLogger(logger Logger) {
	e.logger = logger
}

// Apply runs the transform for dev given the previous and current base
// snapshots. A nil old snapshot means first attach: the transform runs
// regardless of change. Apply reports whether a state was written.
func (e *Engine) Apply(ctx context.Context, dev Device, old *Snapshot, cur Snapshot) (bool, error) {
	switch dev.Kind {
	case KindSensor:
		return e.applySensor(ctx, dev, old, cur)
	case KindValueSensor:
		return e.applyValueSensor(ctx, dev, old, cur)
	case KindDimmer:
		return e.applyDimmer(ctx, dev, old, cur)
	case KindSpeedControl:
		return e.applySpeedControl(ctx, dev, old, cur)
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownKind, dev.Kind)
	}
}

func (e *Engine) applySensor(ctx context.Context, dev Device, old *Snapshot, cur Snapshot) (bool, error) {
	if dev.Sensor == nil {
		return false, fmt.Errorf("%w: sensor config missing", ErrInvalidDevice)
	}
	v, changed, err := watchedChange(old, cur, dev.WatchedState)
	if err != nil || !changed {
		return false, err
	}

	match := stringOf(v) == dev.Sensor.MatchString
	if dev.Sensor.Reverse {
		match = !match
	}

	e.logger.Debug("sensor updated",
		"device_id", dev.ID,
		"state", dev.WatchedState,
		"value", v,
		"on", match,
	)
	return true, e.write(ctx, StateWrite{DeviceID: dev.ID, Key: StateOnOff, Value: match})
}

func (e *Engine) applyValueSensor(ctx context.Context, dev Device, old *Snapshot, cur Snapshot) (bool, error) {
	if dev.ValueSensor == nil {
		return false, fmt.Errorf("%w: value sensor config missing", ErrInvalidDevice)
	}
	v, changed, err := watchedChange(old, cur, dev.WatchedState)
	if err != nil || !changed {
		return false, err
	}

	value, err := parseFloat(v)
	if err != nil {
		return false, fmt.Errorf("device %d state %q: %w", dev.ID, dev.WatchedState, err)
	}

	text, decimals, err := sensorDisplay(dev.ValueSensor.Subtype, value)
	if err != nil {
		e.logger.Warn("value sensor has unknown subtype, using default formatting",
			"device_id", dev.ID,
			"subtype", dev.ValueSensor.Subtype,
		)
	}

	return true, e.write(ctx, StateWrite{
		DeviceID:      dev.ID,
		Key:           StateSensorValue,
		Value:         value,
		DisplayText:   text,
		DecimalPlaces: decimals,
	})
}

func (e *Engine) applyDimmer(ctx context.Context, dev Device, old *Snapshot, cur Snapshot) (bool, error) {
	cfg := dev.Dimmer
	if cfg == nil {
		return false, fmt.Errorf("%w: dimmer config missing", ErrInvalidDevice)
	}
	v, changed, err := watchedChange(old, cur, dev.WatchedState)
	if err != nil || !changed {
		return false, err
	}

	input, err := parseInt(v)
	if err != nil {
		return false, fmt.Errorf("device %d state %q: %w", dev.ID, dev.WatchedState, err)
	}

	level, clamped := scaling.BaseToMasq(input, cfg.StateLow, cfg.StateHigh, cfg.StateReverse)
	if clamped {
		e.logger.Warn("dimmer input clamped to state range",
			"device_id", dev.ID,
			"input", input,
			"low", cfg.StateLow,
			"high", cfg.StateHigh,
			"error", scaling.ErrOutOfRange,
		)
	}

	e.logger.Debug("dimmer updated", "device_id", dev.ID, "input", input, "brightness", level)
	return true, e.write(ctx, StateWrite{DeviceID: dev.ID, Key: StateBrightness, Value: level})
}

// applySpeedControl always watches the base brightness and writes it as the
// speed level without scaling. The action path multiplies by ScaleFactor.
func (e *Engine) applySpeedControl(ctx context.Context, dev Device, old *Snapshot, cur Snapshot) (bool, error) {
	v, changed, err := watchedChange(old, cur, StateBrightness)
	if err != nil || !changed {
		return false, err
	}

	level, err := parseInt(v)
	if err != nil {
		return false, fmt.Errorf("device %d state %q: %w", dev.ID, StateBrightness, err)
	}

	e.logger.Debug("speed control updated", "device_id", dev.ID, "speed", level)
	return true, e.write(ctx, StateWrite{DeviceID: dev.ID, Key: StateSpeed, Value: level})
}

func (e *Engine) write(ctx context.Context, w StateWrite) error {
	if err := e.host.WriteState(ctx, w); err != nil {
		return fmt.Errorf("writing %s on device %d: %w", w.Key, w.DeviceID, err)
	}
	return nil
}

// watchedChange returns the current value of name and whether it differs from
// the old snapshot. With no old snapshot every present value counts as changed.
func watchedChange(old *Snapshot, cur Snapshot, name string) (any, bool, error) {
	v, ok := cur.States[name]
	if !ok {
		return nil, false, fmt.Errorf("%w: %q on base device %d", ErrStateMissing, name, cur.ID)
	}
	if old == nil {
		return v, true, nil
	}
	prev, had := old.States[name]
	if had && reflect.DeepEqual(prev, v) {
		return v, false, nil
	}
	return v, true, nil
}

// sensorDisplay renders a value sensor reading. decimals is nil for the
// host's default formatting. An unknown subtype still yields a usable text.
func sensorDisplay(subtype SensorSubtype, value float64) (string, *int, error) {
	switch subtype {
	case SubtypeGeneric, "":
		return strconv.FormatFloat(value, 'f', -1, 64), nil, nil
	case SubtypeTemperatureF:
		return fmt.Sprintf("%.1f °F", value), intPtr(1), nil
	case SubtypeTemperatureC:
		return fmt.Sprintf("%.1f °C", value), intPtr(1), nil
	case SubtypeHumidity, SubtypeAmbient:
		return fmt.Sprintf("%.0f%%", value), intPtr(0), nil
	default:
		return strconv.FormatFloat(value, 'f', -1, 64), nil,
			fmt.Errorf("%w: %q", ErrUnknownSensorSubtype, subtype)
	}
}

// stringOf renders a state value the way it is compared against a sensor's
// match string. Values render as they appear in the host's JSON: booleans as
// true/false, whole numbers without a fraction.
func stringOf(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case json.Number:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

func parseFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrValueParse, x)
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrValueParse, x)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%w: unsupported type %T", ErrValueParse, v)
	}
}

// parseInt reads an integer state. Floating point values are truncated.
func parseInt(v any) (int, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case int64:
		return int(x), nil
	case int32:
		return int(x), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrValueParse, x)
		}
		return n, nil
	}

	f, err := parseFloat(v)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %v", ErrValueParse, f)
	}
	return int(math.Trunc(f)), nil
}

func intPtr(n int) *int { return &n }
