package mqtt

import "fmt"

// Topic roots. Everything the host publishes to the service lives under
// TopicPrefixHost; everything the service publishes lives directly under
// TopicPrefix.
const (
	TopicPrefix       = "masquerade"
	TopicPrefixHost   = "masquerade/host"
	TopicPrefixSystem = "masquerade/system"
)

// Topics builds the masquerade MQTT topics.
//
//	topics := mqtt.Topics{}
//	topics.DeviceState(42) // "masquerade/device/42/state"
type Topics struct{}

// Inbound, host to service.

// HostDeviceAdded carries a full masquerade device configuration.
func (Topics) HostDeviceAdded() string {
	return TopicPrefixHost + "/device/added"
}

// HostDeviceRemoved carries the ID of a removed masquerade device.
func (Topics) HostDeviceRemoved() string {
	return TopicPrefixHost + "/device/removed"
}

// HostBaseState carries the current snapshot of a base device.
func (Topics) HostBaseState(baseID int64) string {
	return fmt.Sprintf("%s/base/%d/state", TopicPrefixHost, baseID)
}

// HostBaseDeleted announces that a base device was deleted.
func (Topics) HostBaseDeleted(baseID int64) string {
	return fmt.Sprintf("%s/base/%d/deleted", TopicPrefixHost, baseID)
}

// HostAction carries an action requested on a masquerade device.
func (Topics) HostAction(deviceID int64) string {
	return fmt.Sprintf("%s/action/%d", TopicPrefixHost, deviceID)
}

// HostComponentStatus carries the retained enabled flag of a host component.
func (Topics) HostComponentStatus(componentID string) string {
	return fmt.Sprintf("%s/component/%s/status", TopicPrefixHost, componentID)
}

// AllHostBaseStates matches HostBaseState for every base device.
func (Topics) AllHostBaseStates() string {
	return TopicPrefixHost + "/base/+/state"
}

// AllHostBaseDeleted matches HostBaseDeleted for every base device.
func (Topics) AllHostBaseDeleted() string {
	return TopicPrefixHost + "/base/+/deleted"
}

// AllHostActions matches HostAction for every masquerade device.
func (Topics) AllHostActions() string {
	return TopicPrefixHost + "/action/+"
}

// AllHostComponentStatus matches HostComponentStatus for every component.
func (Topics) AllHostComponentStatus() string {
	return TopicPrefixHost + "/component/+/status"
}

// Outbound, service to host.

// DeviceState carries a state write on a masquerade device.
func (Topics) DeviceState(deviceID int64) string {
	return fmt.Sprintf("%s/device/%d/state", TopicPrefix, deviceID)
}

// DeviceEnabled carries the enabled flag of a masquerade device.
func (Topics) DeviceEnabled(deviceID int64) string {
	return fmt.Sprintf("%s/device/%d/enabled", TopicPrefix, deviceID)
}

// ComponentAction carries a base action for the component that owns the base device.
func (Topics) ComponentAction(componentID string) string {
	return fmt.Sprintf("%s/component/%s/action", TopicPrefix, componentID)
}

// BaseBrightness carries a brightness command for a dimmable base device.
func (Topics) BaseBrightness(baseID int64) string {
	return fmt.Sprintf("%s/base/%d/brightness", TopicPrefix, baseID)
}

// SystemStatus carries the retained online/offline status of the service.
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}
