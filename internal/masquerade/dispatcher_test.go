package masquerade

import (
	"context"
	"errors"
	"testing"

	"github.com/nerrad567/masquerade-core/internal/scaling"
)

func newTestDispatcher(host *mockHost) (*Dispatcher, *Registry) {
	reg := NewRegistry()
	return NewDispatcher(reg, NewEngine(host), host), reg
}

func TestDispatcher_AttachRunsInitialTransform(t *testing.T) {
	host := newMockHost()
	d, reg := newTestDispatcher(host)
	ctx := context.Background()

	base := snapshot(1, map[string]any{"level": 255})
	if err := d.Attach(ctx, dimmerDevice(10, 1), &base); err != nil {
		t.Fatalf("Attach() error = %v", err)
	}
	if reg.Count() != 1 {
		t.Errorf("Count() = %d, want 1", reg.Count())
	}

	writes := host.getWrites()
	if len(writes) != 1 || writes[0].Value != 100 {
		t.Errorf("writes = %+v, want one brightness write of 100", writes)
	}

	// No snapshot known yet: registered without a write.
	if err := d.Attach(ctx, dimmerDevice(11, 2), nil); err != nil {
		t.Fatalf("Attach() error = %v", err)
	}
	if len(host.getWrites()) != 1 {
		t.Errorf("attach without snapshot produced a write")
	}
}

func TestDispatcher_AttachErrors(t *testing.T) {
	host := newMockHost()
	d, _ := newTestDispatcher(host)
	ctx := context.Background()

	if err := d.Attach(ctx, sensorDevice(10, 1, "s", "x", false), nil); err != nil {
		t.Fatalf("Attach() error = %v", err)
	}
	if err := d.Attach(ctx, sensorDevice(10, 1, "s", "x", false), nil); !errors.Is(err, ErrDuplicateID) {
		t.Errorf("duplicate Attach() error = %v, want ErrDuplicateID", err)
	}

	bad := Device{ID: 11, BaseDeviceID: 1, Kind: KindDimmer, WatchedState: "level", Enabled: true, ConfigVersion: CurrentConfigVersion}
	if err := d.Attach(ctx, bad, nil); !errors.Is(err, ErrInvalidDevice) {
		t.Errorf("Attach() without dimmer config error = %v, want ErrInvalidDevice", err)
	}
}

func TestDispatcher_AttachUpgradesConfig(t *testing.T) {
	host := newMockHost()
	d, reg := newTestDispatcher(host)

	dev := speedDevice(10, 1, 0)
	dev.ConfigVersion = 1
	if err := d.Attach(context.Background(), dev, nil); err != nil {
		t.Fatalf("Attach() error = %v", err)
	}

	got, _ := reg.Get(10)
	if got.ConfigVersion != CurrentConfigVersion || got.SpeedControl.ScaleFactor != 1 {
		t.Errorf("upgraded device = %+v / %+v", got, got.SpeedControl)
	}
}

func TestDispatcher_OnBaseDeviceUpdated(t *testing.T) {
	host := newMockHost()
	d, reg := newTestDispatcher(host)
	ctx := context.Background()

	_ = reg.Add(sensorDevice(10, 1, "door", "open", false))
	_ = reg.Add(dimmerDevice(11, 1))
	_ = reg.Add(valueSensorDevice(12, 1, "temp", SubtypeGeneric))
	_ = reg.Add(sensorDevice(13, 2, "door", "open", false))

	old := snapshot(1, map[string]any{"door": "closed", "level": 0, "temp": "bad"})
	cur := snapshot(1, map[string]any{"door": "open", "level": 0, "temp": "worse"})

	res := d.OnBaseDeviceUpdated(ctx, &old, cur)
	// Dimmer level is unchanged and the value sensor cannot parse its reading.
	want := Result{Matched: 3, Applied: 1, Unchanged: 1, Skipped: 1}
	if res != want {
		t.Errorf("Result = %+v, want %+v", res, want)
	}

	writes := host.getWrites()
	if len(writes) != 1 || writes[0].DeviceID != 10 || writes[0].Value != true {
		t.Errorf("writes = %+v, want only device 10 on", writes)
	}
}

func TestDispatcher_OnBaseDeviceUpdatedSkipsDisabled(t *testing.T) {
	host := newMockHost()
	d, reg := newTestDispatcher(host)

	_ = reg.Add(sensorDevice(10, 1, "door", "open", false))
	_ = reg.SetEnabled(10, false)

	res := d.OnBaseDeviceUpdated(context.Background(), nil, snapshot(1, map[string]any{"door": "open"}))
	if res.Skipped != 1 || len(host.getWrites()) != 0 {
		t.Errorf("disabled device was transformed: %+v", res)
	}
}

func TestDispatcher_OnBaseDeviceUpdatedIsolatesFailures(t *testing.T) {
	host := newMockHost()
	d, reg := newTestDispatcher(host)

	_ = reg.Add(Device{ID: 10, BaseDeviceID: 1, Kind: Kind("bogus"), Enabled: true})
	_ = reg.Add(sensorDevice(11, 1, "door", "open", false))

	res := d.OnBaseDeviceUpdated(context.Background(), nil, snapshot(1, map[string]any{"door": "open"}))
	if res.Failed != 1 || res.Applied != 1 {
		t.Errorf("Result = %+v, want one failed and one applied", res)
	}
}

func TestDispatcher_OnBaseDeviceUpdatedNoWatchers(t *testing.T) {
	host := newMockHost()
	d, reg := newTestDispatcher(host)
	_ = reg.Add(sensorDevice(10, 1, "door", "open", false))

	res := d.OnBaseDeviceUpdated(context.Background(), nil, snapshot(7, map[string]any{"door": "open"}))
	if res.Matched != 0 || len(host.getWrites()) != 0 {
		t.Errorf("update of unwatched base device produced work: %+v", res)
	}
}

func TestDispatcher_OnBaseDeviceDeleted(t *testing.T) {
	host := newMockHost()
	d, reg := newTestDispatcher(host)

	_ = reg.Add(sensorDevice(10, 1, "door", "open", false))
	_ = reg.Add(dimmerDevice(11, 1))
	_ = reg.Add(sensorDevice(12, 2, "door", "open", false))

	disabled := d.OnBaseDeviceDeleted(context.Background(), Snapshot{ID: 1, Name: "hall switch"})
	if len(disabled) != 2 {
		t.Fatalf("disabled %d devices, want 2", len(disabled))
	}

	for _, id := range []DeviceID{10, 11} {
		if enabled, ok := host.enabled[id]; !ok || enabled {
			t.Errorf("host not told to disable device %d", id)
		}
		dev, _ := reg.Get(id)
		if dev.Enabled {
			t.Errorf("device %d still enabled in registry", id)
		}
	}
	if _, ok := host.enabled[12]; ok {
		t.Errorf("device 12 on another base was touched")
	}
	if dev, _ := reg.Get(12); !dev.Enabled {
		t.Errorf("device 12 disabled")
	}
	if len(host.getWrites()) != 0 {
		t.Errorf("base deletion ran a transform")
	}
}

func TestDispatcher_Detach(t *testing.T) {
	d, reg := newTestDispatcher(newMockHost())
	ctx := context.Background()

	_ = reg.Add(dimmerDevice(10, 1))
	if err := d.Detach(ctx, 10); err != nil {
		t.Fatalf("Detach() error = %v", err)
	}
	if err := d.Detach(ctx, 10); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Detach() error = %v, want ErrNotFound", err)
	}
}

func TestValidateDevice(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Device)
		wantErr error
	}{
		{"valid", func(*Device) {}, nil},
		{"missing id", func(d *Device) { d.ID = 0 }, ErrInvalidDevice},
		{"missing base", func(d *Device) { d.BaseDeviceID = 0 }, ErrInvalidDevice},
		{"missing watched state", func(d *Device) { d.WatchedState = " " }, ErrInvalidDevice},
		{"missing config", func(d *Device) { d.Dimmer = nil }, ErrInvalidDevice},
		{"unknown format accepted", func(d *Device) { d.Dimmer.Format = "binary" }, nil},
		{"unknown kind", func(d *Device) { d.Kind = "fan" }, ErrUnknownKind},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dev := dimmerDevice(10, 1)
			tc.mutate(&dev)
			err := ValidateDevice(&dev)
			if tc.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateDevice() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("ValidateDevice() error = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestRangeWarnings(t *testing.T) {
	tests := []struct {
		name string
		dev  func() Device
		want int
	}{
		{"valid dimmer", func() Device { return dimmerDevice(10, 1) }, 0},
		{"inverted ranges", func() Device {
			dev := dimmerDevice(10, 1)
			dev.Dimmer.StateLow, dev.Dimmer.StateHigh = 100, 100
			dev.Dimmer.ActionLow, dev.Dimmer.ActionHigh = 10, 0
			return dev
		}, 2},
		{"unknown format", func() Device {
			dev := dimmerDevice(10, 1)
			dev.Dimmer.Format = "binary"
			return dev
		}, 1},
		{"valid speed control", func() Device { return speedDevice(10, 1, 2) }, 0},
		{"zero scale factor", func() Device { return speedDevice(10, 1, 0) }, 1},
		{"negative scale factor", func() Device { return speedDevice(10, 1, -3) }, 1},
		{"sensor", func() Device { return sensorDevice(10, 1, "s", "x", false) }, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dev := tc.dev()
			if w := RangeWarnings(&dev); len(w) != tc.want {
				t.Errorf("RangeWarnings() = %v, want %d warnings", w, tc.want)
			}
		})
	}
}

// A dimmer with an unknown value format is registered and mirrors state;
// only brightness actions fail.
func TestDispatcher_UnknownFormatDimmer(t *testing.T) {
	host := newMockHost()
	d, reg := newTestDispatcher(host)
	a := NewActions(reg, host)
	ctx := context.Background()

	dev := dimmerDevice(10, 1)
	dev.Dimmer.Format = "binary"
	base := snapshot(1, map[string]any{"level": 255})
	if err := d.Attach(ctx, dev, &base); err != nil {
		t.Fatalf("Attach() error = %v", err)
	}

	next := snapshot(1, map[string]any{"level": 128})
	if res := d.OnBaseDeviceUpdated(ctx, &base, next); res.Applied != 1 {
		t.Errorf("Result = %+v, want one applied", res)
	}
	writes := host.getWrites()
	if len(writes) != 2 || writes[0].Value != 100 || writes[1].Value != 50 {
		t.Fatalf("writes = %+v, want brightness 100 then 50", writes)
	}

	if err := a.Request(ctx, ActionRequest{DeviceID: 10, Kind: ActionTurnOn}); err != nil {
		t.Fatalf("TurnOn error = %v", err)
	}
	err := a.Request(ctx, ActionRequest{DeviceID: 10, Kind: ActionSetBrightness, Value: ptr(40)})
	if !errors.Is(err, scaling.ErrUnknownValueFormat) {
		t.Errorf("SetBrightness error = %v, want ErrUnknownValueFormat", err)
	}

	actions := host.getActions()
	if len(actions) != 1 || actions[0].Fields["level"] != "on" {
		t.Errorf("actions = %+v, want only the turn on", actions)
	}
}

func TestUpgradeConfig(t *testing.T) {
	dim := dimmerDevice(10, 1)
	dim.ConfigVersion = 0
	dim.Dimmer.Format = ""
	if !UpgradeConfig(&dim) || dim.Dimmer.Format != scaling.FormatDecimal {
		t.Errorf("dimmer upgrade: format = %q", dim.Dimmer.Format)
	}

	vs := Device{ID: 11, BaseDeviceID: 1, Kind: KindValueSensor, ConfigVersion: 1}
	if !UpgradeConfig(&vs) || vs.ValueSensor == nil || vs.ValueSensor.Subtype != SubtypeGeneric {
		t.Errorf("value sensor upgrade: %+v", vs.ValueSensor)
	}

	current := speedDevice(12, 1, 0)
	if UpgradeConfig(&current) {
		t.Errorf("current version device was upgraded")
	}
}
