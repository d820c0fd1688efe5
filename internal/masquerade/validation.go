package masquerade

import (
	"fmt"
	"strings"

	"github.com/nerrad567/masquerade-core/internal/scaling"
)

// CurrentConfigVersion is the device configuration version this build writes.
// Devices reported with an older version are upgraded on attach.
const CurrentConfigVersion = 2

const maxNameLength = 100

// ValidateDevice checks that dev carries the configuration its kind needs.
// Range inversions, an unknown value format and a non-positive scale factor
// are not errors; see RangeWarnings.
func ValidateDevice(dev *Device) error {
	if dev == nil {
		return ErrInvalidDevice
	}
	if dev.ID == 0 {
		return fmt.Errorf("%w: id is required", ErrInvalidDevice)
	}
	if dev.BaseDeviceID == 0 {
		return fmt.Errorf("%w: base device id is required", ErrInvalidDevice)
	}
	if len(dev.Name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidDevice, maxNameLength)
	}

	switch dev.Kind {
	case KindSensor:
		if dev.Sensor == nil {
			return fmt.Errorf("%w: sensor config is required", ErrInvalidDevice)
		}
		if strings.TrimSpace(dev.WatchedState) == "" {
			return fmt.Errorf("%w: watched state is required", ErrInvalidDevice)
		}
	case KindValueSensor:
		if dev.ValueSensor == nil {
			return fmt.Errorf("%w: value sensor config is required", ErrInvalidDevice)
		}
		if strings.TrimSpace(dev.WatchedState) == "" {
			return fmt.Errorf("%w: watched state is required", ErrInvalidDevice)
		}
	case KindDimmer:
		if dev.Dimmer == nil {
			return fmt.Errorf("%w: dimmer config is required", ErrInvalidDevice)
		}
		if strings.TrimSpace(dev.WatchedState) == "" {
			return fmt.Errorf("%w: watched state is required", ErrInvalidDevice)
		}
	case KindSpeedControl:
		if dev.SpeedControl == nil {
			return fmt.Errorf("%w: speed control config is required", ErrInvalidDevice)
		}
	default:
		return fmt.Errorf("%w: %w: %q", ErrInvalidDevice, ErrUnknownKind, dev.Kind)
	}
	return nil
}

// RangeWarnings describes configuration that is accepted but produces
// degenerate results, such as an inverted dimmer range. A dimmer with an
// unknown value format still mirrors state and switches on and off; only
// SetBrightness fails.
func RangeWarnings(dev *Device) []string {
	if dev == nil {
		return nil
	}

	var warnings []string
	if d := dev.Dimmer; d != nil {
		if d.StateLow >= d.StateHigh {
			warnings = append(warnings, fmt.Sprintf("state range %d..%d is empty or inverted",
				d.StateLow, d.StateHigh))
		}
		if d.ActionLow >= d.ActionHigh {
			warnings = append(warnings, fmt.Sprintf("action range %d..%d is empty or inverted",
				d.ActionLow, d.ActionHigh))
		}
		if !d.Format.Valid() {
			warnings = append(warnings, fmt.Sprintf("value format %q is unknown, set_brightness will fail",
				d.Format))
		}
	}
	if sc := dev.SpeedControl; sc != nil && sc.ScaleFactor <= 0 {
		warnings = append(warnings, fmt.Sprintf("scale factor %d is not positive, set_speed sends no usable brightness",
			sc.ScaleFactor))
	}
	return warnings
}

// UpgradeConfig brings a device reported with an older configuration version
// up to CurrentConfigVersion, filling defaults for fields that did not exist.
// It reports whether anything changed.
func UpgradeConfig(dev *Device) bool {
	if dev == nil || dev.ConfigVersion >= CurrentConfigVersion {
		return false
	}

	switch dev.Kind {
	case KindValueSensor:
		if dev.ValueSensor == nil {
			dev.ValueSensor = &ValueSensorConfig{}
		}
		if dev.ValueSensor.Subtype == "" {
			dev.ValueSensor.Subtype = SubtypeGeneric
		}
	case KindDimmer:
		if dev.Dimmer != nil && dev.Dimmer.Format == "" {
			dev.Dimmer.Format = scaling.FormatDecimal
		}
	case KindSpeedControl:
		if dev.SpeedControl == nil {
			dev.SpeedControl = &SpeedControlConfig{}
		}
		if dev.SpeedControl.ScaleFactor == 0 {
			dev.SpeedControl.ScaleFactor = 1
		}
	}

	dev.ConfigVersion = CurrentConfigVersion
	return true
}
