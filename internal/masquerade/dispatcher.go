package masquerade

import (
	"context"
	"errors"
)

// Dispatcher routes host notifications about base devices to the masquerade
// devices that watch them.
type Dispatcher struct {
	registry *Registry
	engine   *Engine
	host     Host
	logger   Logger
}

// Result counts what happened to each device visited by an update.
type Result struct {
	Matched   int `json:"matched"`
	Applied   int `json:"applied"`
	Unchanged int `json:"unchanged"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// NewDispatcher creates a dispatcher over registry, applying transforms with
// engine and reporting enable changes to host.
func NewDispatcher(registry *Registry, engine *Engine, host Host) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		engine:   engine,
		host:     host,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the dispatcher.
func (d *Dispatcher) SetLogger(logger Logger) {
	d.logger = logger
}

// Attach registers dev and, when the current base snapshot is known, runs
// the first-attach transform. Older configuration versions are upgraded first.
// A failing initial transform is logged; the device stays registered.
func (d *Dispatcher) Attach(ctx context.Context, dev Device, current *Snapshot) error {
	if UpgradeConfig(&dev) {
		d.logger.Info("masquerade device config upgraded",
			"device_id", dev.ID,
			"name", dev.Name,
			"config_version", dev.ConfigVersion,
		)
	}
	if err := ValidateDevice(&dev); err != nil {
		return err
	}
	for _, w := range RangeWarnings(&dev) {
		d.logger.Warn("masquerade device range misconfigured", "device_id", dev.ID, "name", dev.Name, "detail", w)
	}

	if err := d.registry.Add(dev); err != nil {
		return err
	}
	d.logger.Info("masquerade device attached",
		"device_id", dev.ID,
		"name", dev.Name,
		"kind", dev.Kind,
		"base_device_id", dev.BaseDeviceID,
		"devices", d.registry.Count(),
	)

	if current == nil || current.ID != dev.BaseDeviceID || !dev.Enabled {
		return nil
	}
	if _, err := d.engine.Apply(ctx, dev, nil, *current); err != nil {
		d.logger.Warn("initial transform failed", "device_id", dev.ID, "error", err)
	}
	return nil
}

// Detach unregisters the device with the given ID.
func (d *Dispatcher) Detach(_ context.Context, id DeviceID) error {
	if err := d.registry.Remove(id); err != nil {
		return err
	}
	d.logger.Info("masquerade device detached", "device_id", id, "devices", d.registry.Count())
	return nil
}

// OnBaseDeviceDeleted disables every masquerade device that references the
// deleted base device. No transform runs.
func (d *Dispatcher) OnBaseDeviceDeleted(ctx context.Context, deleted Snapshot) []Device {
	disabled := d.registry.DisableByBase(deleted.ID)
	for _, dev := range disabled {
		d.logger.Info("base device deleted, disabling masquerade device",
			"base_device_id", deleted.ID,
			"base_device", deleted.Name,
			"device_id", dev.ID,
			"device", dev.Name,
		)
		if err := d.host.SetEnabled(ctx, dev.ID, false); err != nil {
			d.logger.Error("failed to disable masquerade device in host", "device_id", dev.ID, "error", err)
		}
	}
	return disabled
}

// OnBaseDeviceUpdated applies the change from old to cur to every enabled
// device watching cur. A nil old means the base device is seen for the first
// time. One device failing does not stop the others.
func (d *Dispatcher) OnBaseDeviceUpdated(ctx context.Context, old *Snapshot, cur Snapshot) Result {
	var res Result
	for _, dev := range d.registry.FindByBaseDevice(cur.ID) {
		res.Matched++
		if !dev.Enabled {
			res.Skipped++
			continue
		}

		applied, err := d.engine.Apply(ctx, dev, old, cur)
		switch {
		case err == nil && applied:
			res.Applied++
		case err == nil:
			res.Unchanged++
		case errors.Is(err, ErrValueParse), errors.Is(err, ErrStateMissing):
			res.Skipped++
			d.logger.Warn("masquerade device skipped", "device_id", dev.ID, "base_device_id", cur.ID, "error", err)
		default:
			res.Failed++
			d.logger.Error("masquerade transform failed", "device_id", dev.ID, "base_device_id", cur.ID, "error", err)
		}
	}

	if res.Matched > 0 {
		d.logger.Debug("base device update dispatched",
			"base_device_id", cur.ID,
			"matched", res.Matched,
			"applied", res.Applied,
		)
	}
	return res
}
