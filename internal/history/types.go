package history

import (
	"context"
	"time"
)

// Event values.
const (
	EventStateWritten     = "state_written"
	EventActionDispatched = "action_dispatched"
	EventBrightnessSet    = "brightness_set"
	EventEnabledChanged   = "enabled_changed"
)

// Entry is one journal row.
type Entry struct {
	ID            int64     `json:"id"`
	DeviceID      int64     `json:"device_id"`
	Event         string    `json:"event"`
	Key           string    `json:"key,omitempty"`
	Value         any       `json:"value"`
	DisplayText   string    `json:"display_text,omitempty"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	RecordedAt    time.Time `json:"recorded_at"`
}

// Repository stores and retrieves journal entries.
type Repository interface {
	Record(ctx context.Context, e Entry) error
	List(ctx context.Context, deviceID int64, limit int) ([]Entry, error)
	Prune(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Logger defines the logging interface used by this package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
