package masquerade

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/nerrad567/masquerade-core/internal/scaling"
)

// ActionKind is an action requested on a masquerade device.
type ActionKind string

// ActionKind constants.
const (
	ActionTurnOn        ActionKind = "turn_on"
	ActionTurnOff       ActionKind = "turn_off"
	ActionSetBrightness ActionKind = "set_brightness"
	ActionSetSpeed      ActionKind = "set_speed"
)

// ActionRequest asks a masquerade device to act. Value is required for
// brightness and speed actions.
type ActionRequest struct {
	DeviceID DeviceID   `json:"device_id"`
	Kind     ActionKind `json:"kind"`
	Value    *int       `json:"value,omitempty"`
}

// Actions turns masquerade actions into base device commands.
type Actions struct {
	registry *Registry
	host     Host
	logger   Logger
	newID    func() string
}

// NewActions creates an action dispatcher over registry and host.
func NewActions(registry *Registry, host Host) *Actions {
	return &Actions{
		registry: registry,
		host:     host,
		logger:   noopLogger{},
		newID:    uuid.NewString,
	}
}

// SetLogger sets the logger for the action dispatcher.
func (a *Actions) SetLogger(logger Logger) {
	a.logger = logger
}

// Request performs req. Nothing is sent to the host when an error is returned
// before dispatch.
func (a *Actions) Request(ctx context.Context, req ActionRequest) error {
	// Registry returns a copy, so no lock is held across host calls.
	dev, err := a.registry.Get(req.DeviceID)
	if err != nil {
		return err
	}
	if !dev.Enabled {
		return fmt.Errorf("%w: %d", ErrDeviceDisabled, dev.ID)
	}

	switch req.Kind {
	case ActionTurnOn, ActionTurnOff, ActionSetBrightness:
		if dev.Kind != KindDimmer || dev.Dimmer == nil {
			return a.unsupported(dev, req)
		}
		return a.dimmerAction(ctx, dev, req)
	case ActionSetSpeed:
		if dev.Kind != KindSpeedControl || dev.SpeedControl == nil {
			return a.unsupported(dev, req)
		}
		return a.speedAction(ctx, dev, req)
	default:
		return a.unsupported(dev, req)
	}
}

func (a *Actions) dimmerAction(ctx context.Context, dev *Device, req ActionRequest) error {
	cfg := dev.Dimmer

	var value string
	switch req.Kind {
	case ActionTurnOn:
		value = cfg.OnValue
	case ActionTurnOff:
		value = cfg.OffValue
	case ActionSetBrightness:
		if req.Value == nil {
			return fmt.Errorf("%w: %s requires a value", ErrInvalidAction, req.Kind)
		}
		v, err := scaling.MasqToBase(*req.Value, cfg.ActionLow, cfg.ActionHigh, cfg.ActionReverse, cfg.Format)
		if err != nil {
			a.logger.Error("brightness conversion failed", "device_id", dev.ID, "format", cfg.Format, "error", err)
			return fmt.Errorf("device %d: %w", dev.ID, err)
		}
		value = v
	}

	if !a.host.ComponentEnabled(cfg.ComponentID) {
		a.logger.Warn("base component disabled, action not sent",
			"device_id", dev.ID,
			"component_id", cfg.ComponentID,
			"action", req.Kind,
		)
		return fmt.Errorf("%w: %s", ErrBaseComponentDisabled, cfg.ComponentID)
	}

	action := BaseAction{
		ID:           a.newID(),
		DeviceID:     dev.ID,
		ComponentID:  cfg.ComponentID,
		ActionID:     cfg.ActionID,
		BaseDeviceID: dev.BaseDeviceID,
		Fields:       map[string]string{cfg.ActionField: value},
	}
	if err := a.host.DispatchBaseAction(ctx, action); err != nil {
		return fmt.Errorf("dispatching %s for device %d: %w", req.Kind, dev.ID, err)
	}

	a.logger.Info("base action dispatched",
		"action_id", action.ID,
		"device_id", dev.ID,
		"base_device_id", dev.BaseDeviceID,
		"action", req.Kind,
		"value", value,
	)
	return nil
}

func (a *Actions) speedAction(ctx context.Context, dev *Device, req ActionRequest) error {
	if req.Value == nil {
		return fmt.Errorf("%w: %s requires a value", ErrInvalidAction, req.Kind)
	}
	if *req.Value < scaling.MinPercent || *req.Value > scaling.MaxPercent {
		return fmt.Errorf("%w: speed %d outside %d..%d", ErrInvalidAction, *req.Value, scaling.MinPercent, scaling.MaxPercent)
	}

	brightness := *req.Value * dev.SpeedControl.ScaleFactor
	if err := a.host.SetBaseBrightness(ctx, dev.BaseDeviceID, brightness); err != nil {
		return fmt.Errorf("setting brightness for device %d: %w", dev.ID, err)
	}

	a.logger.Info("base brightness set",
		"device_id", dev.ID,
		"base_device_id", dev.BaseDeviceID,
		"speed", *req.Value,
		"brightness", brightness,
	)
	return nil
}

func (a *Actions) unsupported(dev *Device, req ActionRequest) error {
	a.logger.Warn("unsupported action", "device_id", dev.ID, "kind", dev.Kind, "action", req.Kind)
	return fmt.Errorf("%w: %s on %s device", ErrUnsupportedAction, req.Kind, dev.Kind)
}
