// Package logging provides structured logging for the masquerade service.
//
// It wraps log/slog with JSON or text output, level filtering and default
// service/version attributes on every record. The level comes from the
// logging.level configuration key and can be overridden with
// MASQUERADE_LOG_LEVEL.
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Info("masquerade device attached", "device_id", 42)
//
// *Logger satisfies the narrow Logger interfaces declared by the domain
// packages, so it can be passed to their SetLogger methods directly.
package logging
