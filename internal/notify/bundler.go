package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/paul/notecache/internal/metrics"
	"github.com/paul/notecache/internal/model"
	"github.com/paul/notecache/pkg/config"
	"github.com/paul/notecache/pkg/ratelimit"
)

const (
	flowAdded   = "added"
	flowRemoved = "removed"
)

// Bundler coalesces note changes and publishes them as batches, at most
// once per interval. Consumers that fall behind lose the oldest batches.
type Bundler struct {
	limiter *ratelimit.Limiter
	metrics *metrics.Metrics
	logger  *slog.Logger

	mu             sync.Mutex
	pendingAdded   noteSet
	pendingRemoved noteSet

	added   chan []*model.Note
	removed chan []*model.Note
	kick    chan struct{}

	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// New creates a bundler. Start must be called before batches are published.
func New(cfg config.BundlerConfig, m *metrics.Metrics, logger *slog.Logger) *Bundler {
	buffer := cfg.Buffer
	if buffer <= 0 {
		buffer = 100
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Millisecond
	}
	if m == nil {
		m = metrics.New(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Bundler{
		limiter: ratelimit.NewWithInterval(1, interval),
		metrics: m,
		logger:  logger,
		added:   make(chan []*model.Note, buffer),
		removed: make(chan []*model.Note, buffer),
		kick:    make(chan struct{}, 1),
		cancel:  func() {},
	}
}

// noteSet keeps notes in arrival order, once per key
type noteSet struct {
	notes []*model.Note
	keys  map[string]struct{}
}

func (s *noteSet) add(n *model.Note) {
	if s.keys == nil {
		s.keys = make(map[string]struct{})
	}
	if _, ok := s.keys[n.Key()]; ok {
		return
	}
	s.keys[n.Key()] = struct{}{}
	s.notes = append(s.notes, n)
}

func (s *noteSet) take() []*model.Note {
	notes := s.notes
	s.notes, s.keys = nil, nil
	return notes
}

// Added delivers batches of notes that entered the graph
func (b *Bundler) Added() <-chan []*model.Note { return b.added }

// Removed delivers batches of notes that left the graph
func (b *Bundler) Removed() <-chan []*model.Note { return b.removed }

// NoteAdded queues a note for the next added batch
func (b *Bundler) NoteAdded(n *model.Note) {
	b.mu.Lock()
	b.pendingAdded.add(n)
	b.mu.Unlock()
	b.signal()
}

// NoteRemoved queues a note for the next removed batch
func (b *Bundler) NoteRemoved(n *model.Note) {
	b.mu.Lock()
	b.pendingRemoved.add(n)
	b.mu.Unlock()
	b.signal()
}

func (b *Bundler) signal() {
	select {
	case b.kick <- struct{}{}:
	default:
	}
}

// Start runs the publishing loop until Close is called
func (b *Bundler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.run(ctx)
	}()
}

func (b *Bundler) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-b.kick:
		}
		if err := b.limiter.Wait(ctx); err != nil {
			return
		}
		b.Flush()
	}
}

// Flush publishes whatever is pending right away
func (b *Bundler) Flush() {
	b.mu.Lock()
	added, removed := b.pendingAdded.take(), b.pendingRemoved.take()
	b.mu.Unlock()

	if len(added) > 0 {
		b.publish(b.added, added, flowAdded)
	}
	if len(removed) > 0 {
		b.publish(b.removed, removed, flowRemoved)
	}
}

// publish never blocks: a full buffer loses its oldest batch
func (b *Bundler) publish(ch chan []*model.Note, batch []*model.Note, flow string) {
	for {
		select {
		case ch <- batch:
			return
		default:
		}
		select {
		case <-ch:
			b.metrics.BundlerDropped.WithLabelValues(flow).Inc()
			b.logger.Debug("dropped oldest notification batch", "flow", flow)
		default:
		}
	}
}

// Close stops the publishing loop. Pending changes are discarded.
func (b *Bundler) Close() {
	b.once.Do(func() {
		b.cancel()
		b.wg.Wait()
	})
}
