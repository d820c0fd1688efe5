package bridge

import (
	"strings"
	"sync"

	"github.com/nerrad567/masquerade-core/internal/history"
	"github.com/nerrad567/masquerade-core/internal/infrastructure/mqtt"
)

// MockMQTTClient implements MQTTClient for testing.
type MockMQTTClient struct {
	mu        sync.Mutex
	published []mockPublish
	handlers  map[string]mqtt.MessageHandler
	connected bool
	failPub   error
}

type mockPublish struct {
	Topic    string
	Payload  []byte
	QoS      byte
	Retained bool
}

func NewMockMQTTClient() *MockMQTTClient {
	return &MockMQTTClient{
		connected: true,
		handlers:  make(map[string]mqtt.MessageHandler),
	}
}

func (m *MockMQTTClient) Publish(topic string, payload []byte, qos byte, retained bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPub != nil {
		return m.failPub
	}
	m.published = append(m.published, mockPublish{Topic: topic, Payload: payload, QoS: qos, Retained: retained})
	return nil
}

func (m *MockMQTTClient) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[topic] = handler
	return nil
}

func (m *MockMQTTClient) Unsubscribe(topic string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.handlers, topic)
	return nil
}

func (m *MockMQTTClient) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *MockMQTTClient) GetPublished() []mockPublish {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mockPublish(nil), m.published...)
}

// PublishedOn returns messages published on topic.
func (m *MockMQTTClient) PublishedOn(topic string) []mockPublish {
	var out []mockPublish
	for _, p := range m.GetPublished() {
		if p.Topic == topic {
			out = append(out, p)
		}
	}
	return out
}

func (m *MockMQTTClient) SubscriptionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.handlers)
}

// SimulateMessage delivers payload to the handler whose filter matches topic.
// It returns the handler error, or nil when nothing matched.
func (m *MockMQTTClient) SimulateMessage(topic string, payload []byte) error {
	m.mu.Lock()
	var handler mqtt.MessageHandler
	for filter, h := range m.handlers {
		if topicMatches(filter, topic) {
			handler = h
			break
		}
	}
	m.mu.Unlock()
	if handler == nil {
		return nil
	}
	return handler(topic, payload)
}

// topicMatches implements MQTT + and # matching.
func topicMatches(filter, topic string) bool {
	fp := strings.Split(filter, "/")
	tp := strings.Split(topic, "/")
	for i, f := range fp {
		if f == "#" {
			return true
		}
		if i >= len(tp) {
			return false
		}
		if f != "+" && f != tp[i] {
			return false
		}
	}
	return len(fp) == len(tp)
}

type mockRecorder struct {
	mu      sync.Mutex
	entries []history.Entry
	err     error
}

func (r *mockRecorder) Record(e history.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.entries = append(r.entries, e)
	return nil
}

func (r *mockRecorder) byEvent(event string) []history.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []history.Entry
	for _, e := range r.entries {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

type stateMetric struct {
	deviceID int64
	kind     string
	key      string
	value    float64
}

type actionMetric struct {
	deviceID int64
	baseID   int64
	action   string
	value    *float64
}

type mockMetrics struct {
	mu      sync.Mutex
	states  []stateMetric
	actions []actionMetric
}

func (m *mockMetrics) WriteStateMetric(deviceID int64, kind, key string, value float64) {
	m.mu.Lock()
	m.states = append(m.states, stateMetric{deviceID, kind, key, value})
	m.mu.Unlock()
}

func (m *mockMetrics) WriteActionMetric(deviceID, baseDeviceID int64, action string, value *float64) {
	m.mu.Lock()
	m.actions = append(m.actions, actionMetric{deviceID, baseDeviceID, action, value})
	m.mu.Unlock()
}

type mockBroadcaster struct {
	mu     sync.Mutex
	events []string
}

func (b *mockBroadcaster) Broadcast(channel string, _ any) {
	b.mu.Lock()
	b.events = append(b.events, channel)
	b.mu.Unlock()
}

func (b *mockBroadcaster) count(channel string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, e := range b.events {
		if e == channel {
			n++
		}
	}
	return n
}
