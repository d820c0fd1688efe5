package masquerade

import "errors"

// Domain errors for the masquerade package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, masquerade.ErrNotFound) {
//	    // handle not found case
//	}
var (
	// ErrDuplicateID is returned when adding a device whose ID is already registered.
	ErrDuplicateID = errors.New("masquerade: duplicate device id")

	// ErrNotFound is returned when a device ID is not registered.
	ErrNotFound = errors.New("masquerade: device not found")

	// ErrInvalidDevice is returned when device configuration fails validation.
	ErrInvalidDevice = errors.New("masquerade: invalid device")

	// ErrUnknownKind is returned for a device kind the engine does not handle.
	ErrUnknownKind = errors.New("masquerade: unknown device kind")

	// ErrUnknownSensorSubtype is reported when a value sensor subtype is not recognised.
	ErrUnknownSensorSubtype = errors.New("masquerade: unknown sensor subtype")

	// ErrValueParse is returned when a watched base state cannot be read as a number.
	ErrValueParse = errors.New("masquerade: value parse failed")

	// ErrStateMissing is returned when the watched state is absent from the base snapshot.
	ErrStateMissing = errors.New("masquerade: watched state missing")

	// ErrBaseComponentDisabled is returned when the component owning the base device is disabled.
	ErrBaseComponentDisabled = errors.New("masquerade: base component disabled")

	// ErrUnsupportedAction is returned for actions the device kind does not support.
	ErrUnsupportedAction = errors.New("masquerade: unsupported action")

	// ErrInvalidAction is returned when an action request is malformed.
	ErrInvalidAction = errors.New("masquerade: invalid action")

	// ErrDeviceDisabled is returned when an action targets a disabled device.
	ErrDeviceDisabled = errors.New("masquerade: device disabled")
)
