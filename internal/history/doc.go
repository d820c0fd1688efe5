// Package history journals what the masquerade engine did: state writes,
// dispatched base actions and enable changes.
//
// Entries are written to the masquerade_history SQLite table. Journal
// queues entries on a buffered channel and persists them from a background
// goroutine so the MQTT handlers never wait on disk. Entries older than the
// configured retention are pruned periodically.
package history
