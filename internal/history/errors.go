package history

import "errors"

var (
	// ErrInvalidEntry is returned when an entry lacks a device ID or event.
	ErrInvalidEntry = errors.New("history: invalid entry")

	// ErrQueueFull is returned when the journal queue cannot accept more entries.
	ErrQueueFull = errors.New("history: queue full")

	// ErrJournalClosed is returned when recording into a stopped journal.
	ErrJournalClosed = errors.New("history: journal closed")
)
