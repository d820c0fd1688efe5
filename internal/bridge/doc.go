// Package bridge connects the masquerade engine to the host over MQTT.
//
// Inbound, it subscribes to the masquerade/host/... topics and turns each
// message into a registry or dispatcher call: device added/removed, base
// device snapshot, base device deleted, action request and component
// status. It keeps the latest snapshot of every base device so that each
// update can be compared with the previous one, and so a newly added
// masquerade device can be initialised from its base device at once.
//
// Outbound, Host implements masquerade.Host by publishing state writes,
// enable flags, base actions and brightness commands, and fans each
// successful write out to the history journal, InfluxDB and the WebSocket
// hub when those are configured.
package bridge
