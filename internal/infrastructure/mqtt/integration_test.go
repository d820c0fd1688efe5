//go:build integration

package mqtt

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

// These tests need a broker at 127.0.0.1:1883:
//
//	go test -tags=integration -count=1 ./internal/infrastructure/mqtt/...

func connectTest(t *testing.T, clientID string) *Client {
	t.Helper()
	cfg := testConfig()
	cfg.Broker.ClientID = clientID

	client, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestIntegration_Connect(t *testing.T) {
	client := connectTest(t, "masquerade-int-connect")

	if !client.IsConnected() {
		t.Error("IsConnected() = false, want true")
	}
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := client.HealthCheck(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck(cancelled) error = %v, want context.Canceled", err)
	}
}

func TestIntegration_ConnectRefused(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.Port = 19998

	_, err := Connect(cfg)
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestIntegration_CloseDisconnects(t *testing.T) {
	client := connectTest(t, "masquerade-int-close")

	if err := client.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}
	if err := client.PublishString("masquerade/int/closed", "x", 1, false); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Publish() after Close error = %v, want ErrNotConnected", err)
	}
}

func TestIntegration_SubscriptionTracking(t *testing.T) {
	client := connectTest(t, "masquerade-int-sub-track")
	noop := func(string, []byte) error { return nil }

	topics := []string{
		Topics{}.AllHostBaseStates(),
		Topics{}.AllHostActions(),
		Topics{}.HostDeviceAdded(),
	}
	for _, topic := range topics {
		if err := client.Subscribe(topic, 1, noop); err != nil {
			t.Fatalf("Subscribe(%s) error = %v", topic, err)
		}
	}

	if got := client.SubscriptionCount(); got != len(topics) {
		t.Errorf("SubscriptionCount() = %d, want %d", got, len(topics))
	}

	if err := client.Unsubscribe(topics[0]); err != nil {
		t.Fatalf("Unsubscribe() error = %v", err)
	}
	if got := client.SubscriptionCount(); got != len(topics)-1 {
		t.Errorf("SubscriptionCount() after Unsubscribe() = %d, want %d", got, len(topics)-1)
	}
}

func TestIntegration_WildcardRoundtrip(t *testing.T) {
	client := connectTest(t, "masquerade-int-roundtrip")
	received := make(chan string, 2)

	err := client.Subscribe(Topics{}.AllHostBaseStates(), 1, func(topic string, _ []byte) error {
		received <- topic
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	want := Topics{}.HostBaseState(7)
	if err := client.Publish(want, []byte(`{"id":7}`), 1, false); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case got := <-received:
		if got != want {
			t.Errorf("received topic = %q, want %q", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Error("timeout waiting for message")
	}
}

func TestIntegration_HandlerErrorLogged(t *testing.T) {
	client := connectTest(t, "masquerade-int-handler-err")
	logger := &mockLogger{}
	client.SetLogger(logger)

	var calls atomic.Int32
	topic := "masquerade/int/handler-error"
	err := client.Subscribe(topic, 1, func(string, []byte) error {
		calls.Add(1)
		return errors.New("handler error")
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	if err := client.PublishString(topic, "x", 1, false); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if calls.Load() == 0 {
		t.Fatal("handler was not called")
	}
}

func TestIntegration_OnConnectCallback(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.ClientID = "masquerade-int-callback"

	client, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	var called atomic.Bool
	client.SetOnConnect(func() { called.Store(true) })
	client.handleConnect()

	if !called.Load() {
		t.Error("OnConnect callback not invoked")
	}
}
