// Package masquerade mirrors the state of base devices onto masquerade
// devices and translates masquerade actions back into base device commands.
//
// The package is built from four pieces:
//
//   - Registry holds the configured masquerade devices, indexed by ID and by
//     the base device they watch.
//   - Engine applies the per-kind transform for a single device when its
//     base device changes.
//   - Dispatcher fans base device notifications out to the affected devices.
//   - Actions turns masquerade actions (on, off, brightness, speed) into
//     base device commands through the Host.
//
// All side effects go through the Host interface, which the service wires to
// the MQTT bridge. Nothing in this package performs I/O directly.
package masquerade
