package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/masquerade-core/internal/history"
	"github.com/nerrad567/masquerade-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/masquerade-core/internal/masquerade"
)

// Event types broadcast to WebSocket clients.
const (
	EventStateWritten     = "masquerade.state_written"
	EventEnabledChanged   = "masquerade.enabled_changed"
	EventActionDispatched = "masquerade.action_dispatched"
	EventBrightnessSet    = "masquerade.brightness_set"
)

// Publisher sends MQTT messages.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Recorder is satisfied by *history.Journal.
type Recorder interface {
	Record(e history.Entry) error
}

// Metrics is satisfied by *influxdb.Client.
type Metrics interface {
	WriteStateMetric(deviceID int64, kind, key string, value float64)
	WriteActionMetric(deviceID, baseDeviceID int64, action string, value *float64)
}

// Broadcaster is satisfied by *api.Hub.
type Broadcaster interface {
	Broadcast(channel string, payload any)
}

// HostOptions configures a Host. Only Publisher is required.
type HostOptions struct {
	Publisher Publisher
	QoS       byte

	// Registry resolves device kinds for metric tags.
	Registry *masquerade.Registry

	Recorder    Recorder
	Metrics     Metrics
	Broadcaster Broadcaster
	Logger      Logger
}

// Host implements masquerade.Host over MQTT.
type Host struct {
	pub      Publisher
	qos      byte
	registry *masquerade.Registry
	recorder Recorder
	metrics  Metrics
	logger   Logger

	broadcasterMu sync.RWMutex
	broadcaster   Broadcaster

	// components holds the last reported enabled flag per component.
	components   map[string]bool
	componentsMu sync.RWMutex

	now func() time.Time
}

var _ masquerade.Host = (*Host)(nil)

// NewHost creates a Host publishing through opts.Publisher.
func NewHost(opts HostOptions) (*Host, error) {
	if opts.Publisher == nil {
		return nil, fmt.Errorf("MQTT publisher is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Host{
		pub:         opts.Publisher,
		qos:         opts.QoS,
		registry:    opts.Registry,
		recorder:    opts.Recorder,
		metrics:     opts.Metrics,
		broadcaster: opts.Broadcaster,
		logger:      logger,
		components:  make(map[string]bool),
		now:         time.Now,
	}, nil
}

// SetBroadcaster sets the WebSocket fan-out. The API hub is created after
// the host, so it is attached late.
func (h *Host) SetBroadcaster(b Broadcaster) {
	h.broadcasterMu.Lock()
	h.broadcaster = b
	h.broadcasterMu.Unlock()
}

// WriteState publishes a retained state write for a masquerade device.
func (h *Host) WriteState(_ context.Context, w masquerade.StateWrite) error {
	msg := StateMessage{
		DeviceID:      w.DeviceID,
		Key:           w.Key,
		Value:         w.Value,
		DisplayText:   w.DisplayText,
		DecimalPlaces: w.DecimalPlaces,
		Timestamp:     h.now().UTC(),
	}
	if err := h.publish(mqtt.Topics{}.DeviceState(int64(w.DeviceID)), msg, true); err != nil {
		return err
	}

	h.record(history.Entry{
		DeviceID:    int64(w.DeviceID),
		Event:       history.EventStateWritten,
		Key:         w.Key,
		Value:       w.Value,
		DisplayText: w.DisplayText,
		RecordedAt:  msg.Timestamp,
	})
	if v, ok := numeric(w.Value); ok && h.metrics != nil {
		h.metrics.WriteStateMetric(int64(w.DeviceID), h.kindOf(w.DeviceID), w.Key, v)
	}
	h.broadcast(EventStateWritten, msg)
	return nil
}

// SetEnabled publishes the retained enabled flag of a masquerade device.
func (h *Host) SetEnabled(_ context.Context, id masquerade.DeviceID, enabled bool) error {
	msg := EnabledMessage{DeviceID: id, Enabled: enabled, Timestamp: h.now().UTC()}
	if err := h.publish(mqtt.Topics{}.DeviceEnabled(int64(id)), msg, true); err != nil {
		return err
	}

	h.record(history.Entry{
		DeviceID:   int64(id),
		Event:      history.EventEnabledChanged,
		Value:      enabled,
		RecordedAt: msg.Timestamp,
	})
	h.broadcast(EventEnabledChanged, msg)
	return nil
}

// DispatchBaseAction publishes a component action for the base device.
func (h *Host) DispatchBaseAction(_ context.Context, a masquerade.BaseAction) error {
	msg := BaseActionMessage{
		ID:           a.ID,
		DeviceID:     a.DeviceID,
		ActionID:     a.ActionID,
		BaseDeviceID: a.BaseDeviceID,
		Fields:       a.Fields,
		Timestamp:    h.now().UTC(),
	}
	if err := h.publish(mqtt.Topics{}.ComponentAction(a.ComponentID), msg, false); err != nil {
		return err
	}

	h.record(history.Entry{
		DeviceID:      int64(a.DeviceID),
		Event:         history.EventActionDispatched,
		Key:           a.ActionID,
		Value:         a.Fields,
		CorrelationID: a.ID,
		RecordedAt:    msg.Timestamp,
	})
	if h.metrics != nil {
		h.metrics.WriteActionMetric(int64(a.DeviceID), int64(a.BaseDeviceID), a.ActionID, nil)
	}
	h.broadcast(EventActionDispatched, msg)
	return nil
}

// SetBaseBrightness publishes a brightness command for a base device. The
// requesting masquerade device, if known, is taken from ctx.
func (h *Host) SetBaseBrightness(ctx context.Context, baseID masquerade.DeviceID, value int) error {
	deviceID, _ := DeviceFromContext(ctx)
	msg := BrightnessMessage{
		BaseDeviceID: baseID,
		DeviceID:     deviceID,
		Value:        value,
		Timestamp:    h.now().UTC(),
	}
	if err := h.publish(mqtt.Topics{}.BaseBrightness(int64(baseID)), msg, false); err != nil {
		return err
	}

	if deviceID != 0 {
		h.record(history.Entry{
			DeviceID:   int64(deviceID),
			Event:      history.EventBrightnessSet,
			Key:        masquerade.StateBrightness,
			Value:      value,
			RecordedAt: msg.Timestamp,
		})
		if h.metrics != nil {
			v := float64(value)
			h.metrics.WriteActionMetric(int64(deviceID), int64(baseID), string(masquerade.ActionSetSpeed), &v)
		}
	}
	h.broadcast(EventBrightnessSet, msg)
	return nil
}

// ComponentEnabled reports the last status published for componentID.
// Components that never reported are treated as enabled.
func (h *Host) ComponentEnabled(componentID string) bool {
	h.componentsMu.RLock()
	defer h.componentsMu.RUnlock()
	enabled, ok := h.components[componentID]
	return !ok || enabled
}

// SetComponentEnabled stores the enabled flag reported for componentID.
func (h *Host) SetComponentEnabled(componentID string, enabled bool) {
	h.componentsMu.Lock()
	h.components[componentID] = enabled
	h.componentsMu.Unlock()
}

func (h *Host) publish(topic string, msg any, retained bool) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", topic, err)
	}
	if err := h.pub.Publish(topic, payload, h.qos, retained); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

func (h *Host) record(e history.Entry) {
	if h.recorder == nil {
		return
	}
	if err := h.recorder.Record(e); err != nil {
		h.logger.Warn("history record dropped",
			"device_id", e.DeviceID,
			"event", e.Event,
			"error", err)
	}
}

func (h *Host) broadcast(event string, payload any) {
	h.broadcasterMu.RLock()
	b := h.broadcaster
	h.broadcasterMu.RUnlock()
	if b != nil {
		b.Broadcast(event, payload)
	}
}

func (h *Host) kindOf(id masquerade.DeviceID) string {
	if h.registry == nil {
		return ""
	}
	dev, err := h.registry.Get(id)
	if err != nil {
		return ""
	}
	return string(dev.Kind)
}

// numeric converts state values to a float for metrics. Booleans map to 0/1.
func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

type deviceKey struct{}

// WithDevice tags ctx with the masquerade device a base command is sent for.
func WithDevice(ctx context.Context, id masquerade.DeviceID) context.Context {
	return context.WithValue(ctx, deviceKey{}, id)
}

// DeviceFromContext returns the device set by WithDevice.
func DeviceFromContext(ctx context.Context) (masquerade.DeviceID, bool) {
	id, ok := ctx.Value(deviceKey{}).(masquerade.DeviceID)
	return id, ok
}
