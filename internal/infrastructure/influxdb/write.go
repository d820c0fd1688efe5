package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementState  = "masquerade_state"
	MeasurementAction = "masquerade_action"
)

// WriteStateMetric records a numeric state written on a masquerade device.
func (c *Client) WriteStateMetric(deviceID int64, kind, key string, value float64) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(NewStatePoint(deviceID, kind, key, value, time.Now()))
}

// WriteActionMetric records a command sent to a base device on behalf of a
// masquerade device. value is the numeric level when the command carries one.
func (c *Client) WriteActionMetric(deviceID, baseDeviceID int64, action string, value *float64) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(NewActionPoint(deviceID, baseDeviceID, action, value, time.Now()))
}

// NewStatePoint builds the point written by WriteStateMetric.
func NewStatePoint(deviceID int64, kind, key string, value float64, ts time.Time) *write.Point {
	return write.NewPoint(
		MeasurementState,
		map[string]string{
			"device_id": strconv.FormatInt(deviceID, 10),
			"kind":      kind,
			"key":       key,
		},
		map[string]interface{}{
			"value": value,
		},
		ts,
	)
}

// NewActionPoint builds the point written by WriteActionMetric.
func NewActionPoint(deviceID, baseDeviceID int64, action string, value *float64, ts time.Time) *write.Point {
	fields := map[string]interface{}{
		"count": int64(1),
	}
	if value != nil {
		fields["value"] = *value
	}

	return write.NewPoint(
		MeasurementAction,
		map[string]string{
			"device_id":      strconv.FormatInt(deviceID, 10),
			"base_device_id": strconv.FormatInt(baseDeviceID, 10),
			"action":         action,
		},
		fields,
		ts,
	)
}
