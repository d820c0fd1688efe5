package history

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultQueueSize     = 256
	defaultPruneInterval = time.Hour
	writeTimeout         = 5 * time.Second
)

// JournalOptions configures a Journal.
type JournalOptions struct {
	// QueueSize bounds the number of entries waiting to be written.
	QueueSize int

	// Retention is how long entries are kept. Zero disables pruning.
	Retention time.Duration

	// PruneInterval is how often expired entries are removed.
	PruneInterval time.Duration

	Logger Logger
}

// Journal records entries asynchronously. Record never blocks; when the
// queue is full the entry is dropped and counted.
type Journal struct {
	repo          Repository
	queue         chan Entry
	retention     time.Duration
	pruneInterval time.Duration
	logger        Logger

	mu      sync.RWMutex
	closed  bool
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	dropped atomic.Int64
}

// NewJournal creates a journal writing to repo. Call Start before Record.
func NewJournal(repo Repository, opts JournalOptions) *Journal {
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.PruneInterval <= 0 {
		opts.PruneInterval = defaultPruneInterval
	}
	if opts.Logger == nil {
		opts.Logger = noopLogger{}
	}

	return &Journal{
		repo:          repo,
		queue:         make(chan Entry, opts.QueueSize),
		retention:     opts.Retention,
		pruneInterval: opts.PruneInterval,
		logger:        opts.Logger,
	}
}

// Start launches the writer and, when retention is set, the pruner.
func (j *Journal) Start(ctx context.Context) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.started || j.closed {
		return
	}
	j.started = true

	ctx, j.cancel = context.WithCancel(ctx)

	j.wg.Add(1)
	go j.writeLoop()

	if j.retention > 0 {
		j.wg.Add(1)
		go j.pruneLoop(ctx)
	}
}

// Record queues e for writing. RecordedAt defaults to now.
func (j *Journal) Record(e Entry) error {
	if e.DeviceID == 0 || e.Event == "" {
		return ErrInvalidEntry
	}
	if e.RecordedAt.IsZero() {
		e.RecordedAt = time.Now()
	}

	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return ErrJournalClosed
	}

	select {
	case j.queue <- e:
		return nil
	default:
		j.dropped.Add(1)
		return ErrQueueFull
	}
}

// List returns the newest entries for a device from the repository.
// Entries still queued are not included.
func (j *Journal) List(ctx context.Context, deviceID int64, limit int) ([]Entry, error) {
	return j.repo.List(ctx, deviceID, limit)
}

// Dropped returns the number of entries discarded because the queue was full.
func (j *Journal) Dropped() int64 {
	return j.dropped.Load()
}

// Stop flushes queued entries and stops the background goroutines.
func (j *Journal) Stop() {
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return
	}
	j.closed = true
	close(j.queue)
	if j.cancel != nil {
		j.cancel()
	}
	started := j.started
	j.mu.Unlock()

	if started {
		j.wg.Wait()
	}
}

func (j *Journal) writeLoop() {
	defer j.wg.Done()

	for e := range j.queue {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		if err := j.repo.Record(ctx, e); err != nil {
			j.logger.Error("failed to write history entry",
				"device_id", e.DeviceID,
				"event", e.Event,
				"error", err,
			)
		}
		cancel()
	}
}

func (j *Journal) pruneLoop(ctx context.Context) {
	defer j.wg.Done()

	j.prune(ctx)

	ticker := time.NewTicker(j.pruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.prune(ctx)
		}
	}
}

func (j *Journal) prune(ctx context.Context) {
	n, err := j.repo.Prune(ctx, j.retention)
	if err != nil {
		if ctx.Err() == nil {
			j.logger.Warn("history prune failed", "error", err)
		}
		return
	}
	if n > 0 {
		j.logger.Info("history pruned", "deleted", n, "retention", j.retention.String())
	}
}
