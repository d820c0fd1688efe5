package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/masquerade-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/masquerade-core/internal/masquerade"
)

// Topic segment positions under masquerade/host/....
const (
	baseIDSegment      = 3 // masquerade/host/base/{id}/state
	actionIDSegment    = 3 // masquerade/host/action/{id}
	componentIDSegment = 3 // masquerade/host/component/{id}/status

	// handlerTimeout bounds the host calls made for one inbound message.
	handlerTimeout = 10 * time.Second
)

// MQTTClient is the part of *mqtt.Client the bridge uses.
type MQTTClient interface {
	Publisher
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
	SubscriptionCount() int
	IsConnected() bool
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

// Options holds everything needed to create a Bridge.
type Options struct {
	MQTTClient MQTTClient
	QoS        byte

	Registry   *masquerade.Registry
	Dispatcher *masquerade.Dispatcher
	Actions    *masquerade.Actions
	Host       *Host

	Logger Logger
}

// Bridge routes host notifications into the masquerade engine.
//
// All methods are safe for concurrent use.
type Bridge struct {
	mqtt       MQTTClient
	qos        byte
	registry   *masquerade.Registry
	dispatcher *masquerade.Dispatcher
	actions    *masquerade.Actions
	host       *Host
	logger     Logger

	// topics are the filters subscribed by Start.
	topics []string
	subMu  sync.Mutex

	// snapshots caches the latest snapshot of every base device.
	snapshots map[masquerade.DeviceID]masquerade.Snapshot
	snapMu    sync.RWMutex

	// ctx is cancelled on Stop so in-flight host calls are abandoned.
	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once

	received struct {
		messages atomic.Int64
		rejected atomic.Int64
	}
}

// NewBridge creates a bridge. Call Start to subscribe.
func NewBridge(opts Options) (*Bridge, error) {
	if opts.MQTTClient == nil {
		return nil, fmt.Errorf("MQTT client is required")
	}
	if opts.Registry == nil || opts.Dispatcher == nil || opts.Actions == nil {
		return nil, fmt.Errorf("registry, dispatcher and actions are required")
	}
	if opts.Host == nil {
		return nil, fmt.Errorf("host is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Bridge{
		mqtt:       opts.MQTTClient,
		qos:        opts.QoS,
		registry:   opts.Registry,
		dispatcher: opts.Dispatcher,
		actions:    opts.Actions,
		host:       opts.Host,
		logger:     logger,
		snapshots:  make(map[masquerade.DeviceID]masquerade.Snapshot),
		ctx:        ctx,
		cancel:     cancel,
	}, nil
}

// Start subscribes to every inbound host topic.
//
// Component status is subscribed first so retained statuses are known
// before the first action arrives.
func (b *Bridge) Start(_ context.Context) error {
	topics := mqtt.Topics{}
	subs := []struct {
		topic   string
		handler mqtt.MessageHandler
	}{
		{topics.AllHostComponentStatus(), b.handleComponentStatus},
		{topics.HostDeviceAdded(), b.handleDeviceAdded},
		{topics.HostDeviceRemoved(), b.handleDeviceRemoved},
		{topics.AllHostBaseStates(), b.handleBaseState},
		{topics.AllHostBaseDeleted(), b.handleBaseDeleted},
		{topics.AllHostActions(), b.handleAction},
	}

	b.subMu.Lock()
	defer b.subMu.Unlock()
	for _, s := range subs {
		if err := b.mqtt.Subscribe(s.topic, b.qos, s.handler); err != nil {
			return fmt.Errorf("subscribe to %s: %w", s.topic, err)
		}
		b.topics = append(b.topics, s.topic)
		b.logger.Debug("subscribed", "topic", s.topic)
	}

	b.logger.Info("bridge started", "subscriptions", len(subs))
	return nil
}

// Stop unsubscribes from the host topics and abandons in-flight host calls.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		b.cancel()

		b.subMu.Lock()
		topics := b.topics
		b.topics = nil
		b.subMu.Unlock()

		if b.mqtt.IsConnected() {
			for _, topic := range topics {
				if err := b.mqtt.Unsubscribe(topic); err != nil {
					b.logger.Warn("unsubscribe failed", "topic", topic, "error", err)
				}
			}
		}
		b.logger.Info("bridge stopped")
	})
}

// RequestAction performs an action on a masquerade device. It is the entry
// point for actions arriving over MQTT and the REST API.
func (b *Bridge) RequestAction(ctx context.Context, req masquerade.ActionRequest) error {
	if err := b.actions.Request(WithDevice(ctx, req.DeviceID), req); err != nil {
		return err
	}
	b.logger.Info("action performed",
		"device_id", req.DeviceID,
		"action", req.Kind)
	return nil
}

// Snapshot returns the cached snapshot of a base device.
func (b *Bridge) Snapshot(baseID masquerade.DeviceID) (masquerade.Snapshot, bool) {
	b.snapMu.RLock()
	defer b.snapMu.RUnlock()
	snap, ok := b.snapshots[baseID]
	if !ok {
		return masquerade.Snapshot{}, false
	}
	return snap.Clone(), true
}

// Stats holds message counters for the health endpoint.
type Stats struct {
	Connected     bool  `json:"connected"`
	Subscriptions int   `json:"subscriptions"`
	BaseSnapshots int   `json:"base_snapshots"`
	Messages      int64 `json:"messages"`
	Rejected      int64 `json:"rejected"`
}

// GetStats returns current counters.
func (b *Bridge) GetStats() Stats {
	b.snapMu.RLock()
	snapshots := len(b.snapshots)
	b.snapMu.RUnlock()

	return Stats{
		Connected:     b.mqtt.IsConnected(),
		Subscriptions: b.mqtt.SubscriptionCount(),
		BaseSnapshots: snapshots,
		Messages:      b.received.messages.Load(),
		Rejected:      b.received.rejected.Load(),
	}
}

func (b *Bridge) handlerContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(b.ctx, handlerTimeout)
}

// reject counts and returns a malformed message error.
func (b *Bridge) reject(err error) error {
	b.received.rejected.Add(1)
	return err
}

func (b *Bridge) handleDeviceAdded(_ string, payload []byte) error {
	b.received.messages.Add(1)

	var dev masquerade.Device
	if err := json.Unmarshal(payload, &dev); err != nil {
		return b.reject(fmt.Errorf("%w: device added: %w", ErrInvalidPayload, err))
	}

	var current *masquerade.Snapshot
	if snap, ok := b.Snapshot(dev.BaseDeviceID); ok {
		current = &snap
	}

	ctx, cancel := b.handlerContext()
	defer cancel()

	if err := b.dispatcher.Attach(ctx, dev, current); err != nil {
		// Re-announcing a known device replaces it.
		if !errors.Is(err, masquerade.ErrDuplicateID) {
			return fmt.Errorf("attach device %d: %w", dev.ID, err)
		}
		if err := b.dispatcher.Detach(ctx, dev.ID); err != nil {
			return fmt.Errorf("replace device %d: %w", dev.ID, err)
		}
		if err := b.dispatcher.Attach(ctx, dev, current); err != nil {
			return fmt.Errorf("replace device %d: %w", dev.ID, err)
		}
		b.logger.Info("masquerade device replaced", "device_id", dev.ID)
	}
	return nil
}

func (b *Bridge) handleDeviceRemoved(_ string, payload []byte) error {
	b.received.messages.Add(1)

	var msg DeviceRemovedMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return b.reject(fmt.Errorf("%w: device removed: %w", ErrInvalidPayload, err))
	}

	ctx, cancel := b.handlerContext()
	defer cancel()

	if err := b.dispatcher.Detach(ctx, msg.ID); err != nil {
		return fmt.Errorf("detach device %d: %w", msg.ID, err)
	}
	return nil
}

func (b *Bridge) handleBaseState(topic string, payload []byte) error {
	b.received.messages.Add(1)

	baseID, err := topicID(topic, baseIDSegment)
	if err != nil {
		return b.reject(err)
	}

	var cur masquerade.Snapshot
	if err := json.Unmarshal(payload, &cur); err != nil {
		return b.reject(fmt.Errorf("%w: base %d state: %w", ErrInvalidPayload, baseID, err))
	}
	switch {
	case cur.ID == 0:
		cur.ID = baseID
	case cur.ID != baseID:
		return b.reject(fmt.Errorf("%w: topic %d, payload %d", ErrIDMismatch, baseID, cur.ID))
	}
	if cur.States == nil {
		cur.States = map[string]any{}
	}

	// Swap under one lock so concurrent updates each see the true predecessor.
	b.snapMu.Lock()
	var old *masquerade.Snapshot
	if prev, ok := b.snapshots[baseID]; ok {
		old = &prev
	}
	b.snapshots[baseID] = cur.Clone()
	b.snapMu.Unlock()

	ctx, cancel := b.handlerContext()
	defer cancel()

	res := b.dispatcher.OnBaseDeviceUpdated(ctx, old, cur)
	if res.Matched > 0 {
		b.logger.Debug("base device update dispatched",
			"base_device_id", baseID,
			"matched", res.Matched,
			"applied", res.Applied,
			"unchanged", res.Unchanged,
			"skipped", res.Skipped,
			"failed", res.Failed)
	}
	return nil
}

func (b *Bridge) handleBaseDeleted(topic string, _ []byte) error {
	b.received.messages.Add(1)

	baseID, err := topicID(topic, baseIDSegment)
	if err != nil {
		return b.reject(err)
	}

	b.snapMu.Lock()
	deleted, ok := b.snapshots[baseID]
	delete(b.snapshots, baseID)
	b.snapMu.Unlock()
	if !ok {
		deleted = masquerade.Snapshot{ID: baseID}
	}

	ctx, cancel := b.handlerContext()
	defer cancel()

	disabled := b.dispatcher.OnBaseDeviceDeleted(ctx, deleted)
	b.logger.Info("base device deleted",
		"base_device_id", baseID,
		"disabled", len(disabled))
	return nil
}

func (b *Bridge) handleAction(topic string, payload []byte) error {
	b.received.messages.Add(1)

	deviceID, err := topicID(topic, actionIDSegment)
	if err != nil {
		return b.reject(err)
	}

	var msg ActionMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return b.reject(fmt.Errorf("%w: action for %d: %w", ErrInvalidPayload, deviceID, err))
	}

	ctx, cancel := b.handlerContext()
	defer cancel()

	req := masquerade.ActionRequest{DeviceID: deviceID, Kind: msg.Action, Value: msg.Value}
	if err := b.RequestAction(ctx, req); err != nil {
		return fmt.Errorf("action %s on %d: %w", msg.Action, deviceID, err)
	}
	return nil
}

func (b *Bridge) handleComponentStatus(topic string, payload []byte) error {
	b.received.messages.Add(1)

	componentID, err := topicSegment(topic, componentIDSegment)
	if err != nil {
		return b.reject(err)
	}

	var msg ComponentStatusMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return b.reject(fmt.Errorf("%w: component %s status: %w", ErrInvalidPayload, componentID, err))
	}

	b.host.SetComponentEnabled(componentID, msg.Enabled)
	b.logger.Info("component status", "component_id", componentID, "enabled", msg.Enabled)
	return nil
}
