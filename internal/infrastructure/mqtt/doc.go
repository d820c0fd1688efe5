// Package mqtt connects the masquerade service to its MQTT broker.
//
// The host publishes device configuration, base device snapshots and action
// requests under masquerade/host/...; the service answers with state writes,
// enable flags and base commands under masquerade/.... Topics builds every
// topic name so publishers and subscribers agree.
//
// The client wraps paho.mqtt.golang with auto-reconnect, subscription
// restore on reconnect, a retained online/offline status with Last Will,
// and panic recovery around message handlers.
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllHostBaseStates(), 1,
//	    func(topic string, payload []byte) error {
//	        return handleSnapshot(topic, payload)
//	    })
package mqtt
