package history

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type mockRepository struct {
	mu      sync.Mutex
	entries []Entry
	pruned  int
	block   chan struct{}
}

func (m *mockRepository) Record(_ context.Context, e Entry) error {
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *mockRepository) List(_ context.Context, deviceID int64, _ int) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Entry
	for _, e := range m.entries {
		if e.DeviceID == deviceID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockRepository) Prune(_ context.Context, _ time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruned++
	return 0, nil
}

func (m *mockRepository) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func TestJournal_RecordFlushesOnStop(t *testing.T) {
	repo := &mockRepository{}
	j := NewJournal(repo, JournalOptions{QueueSize: 10})
	j.Start(context.Background())

	for i := 0; i < 5; i++ {
		if err := j.Record(Entry{DeviceID: 10, Event: EventStateWritten, Value: i}); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}
	j.Stop()

	if repo.count() != 5 {
		t.Errorf("repository has %d entries, want 5", repo.count())
	}

	got, _ := j.List(context.Background(), 10, 0)
	if len(got) != 5 || got[0].RecordedAt.IsZero() {
		t.Errorf("List() = %+v", got)
	}

	if err := j.Record(Entry{DeviceID: 10, Event: EventStateWritten}); !errors.Is(err, ErrJournalClosed) {
		t.Errorf("Record() after Stop error = %v, want ErrJournalClosed", err)
	}
	j.Stop()
}

func TestJournal_QueueFull(t *testing.T) {
	repo := &mockRepository{block: make(chan struct{})}
	j := NewJournal(repo, JournalOptions{QueueSize: 1})
	j.Start(context.Background())

	var full int
	for i := 0; i < 5; i++ {
		if err := j.Record(Entry{DeviceID: 10, Event: EventStateWritten}); errors.Is(err, ErrQueueFull) {
			full++
		}
	}
	// The writer holds at most one entry and the queue one more.
	if full < 3 {
		t.Errorf("%d records rejected, want at least 3", full)
	}
	if j.Dropped() != int64(full) {
		t.Errorf("Dropped() = %d, want %d", j.Dropped(), full)
	}

	close(repo.block)
	j.Stop()
}

func TestJournal_RecordInvalid(t *testing.T) {
	j := NewJournal(&mockRepository{}, JournalOptions{})
	if err := j.Record(Entry{}); !errors.Is(err, ErrInvalidEntry) {
		t.Errorf("Record() error = %v, want ErrInvalidEntry", err)
	}
}

func TestJournal_PrunesOnStart(t *testing.T) {
	repo := &mockRepository{}
	j := NewJournal(repo, JournalOptions{Retention: time.Hour, PruneInterval: time.Hour})
	j.Start(context.Background())
	j.Stop()

	repo.mu.Lock()
	defer repo.mu.Unlock()
	if repo.pruned != 1 {
		t.Errorf("pruned %d times, want 1", repo.pruned)
	}
}
