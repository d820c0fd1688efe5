// Package api implements the HTTP REST API and WebSocket server for the
// masquerade service.
//
// It provides:
//   - Read access to the masquerade registry, per-device history and stats
//   - Action requests on masquerade devices (same path as MQTT actions)
//   - Health and runtime metrics endpoints
//   - A WebSocket hub streaming state writes and dispatched actions
//   - Middleware for request IDs, logging, panic recovery, CORS and body limits
//
// Device configuration is owned by the host and arrives over MQTT, so the
// API does not create or edit masquerade devices.
package api
