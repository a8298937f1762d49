package antispam

import (
	"log/slog"

	"github.com/juju/ratelimit"
	"github.com/minio/sha256-simd"
	"github.com/paul/notecache/internal/store/memory"
	"github.com/paul/notecache/pkg/event"
	"github.com/puzpuzpuz/xsync/v3"
)

// Options configures a Filter
type Options struct {
	// MinContentLength is the shortest content checked for duplicates
	MinContentLength int
	// RecentWindow is how many content hashes are remembered
	RecentWindow int
	// AuthorRate and AuthorBurst bound the events accepted per author
	AuthorRate  float64
	AuthorBurst int64
	// Hidden returns the users whose events are always refused
	Hidden func() []string
	Logger *slog.Logger
}

type sighting struct {
	id     string
	author string
}

// Filter flags authors that repeat content or flood the cache
type Filter struct {
	opts    Options
	recent  *memory.Bounded[[32]byte, sighting]
	buckets *memory.Bounded[string, *ratelimit.Bucket]
	flagged *xsync.MapOf[string, int]
	logger  *slog.Logger
}

// New creates a filter with the given options
func New(opts Options) *Filter {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Filter{
		opts:    opts,
		recent:  memory.NewBounded[[32]byte, sighting](opts.RecentWindow, nil),
		buckets: memory.NewBounded[string, *ratelimit.Bucket](opts.RecentWindow, nil),
		flagged: xsync.NewMapOf[string, int](),
		logger:  logger,
	}
}

// IsSpam reports whether evt must be refused. Seeing a duplicate flags its
// author, so all later events of that author are refused too.
func (f *Filter) IsSpam(evt *event.Event, relay string) bool {
	if f.isHidden(evt.PubKey) {
		return true
	}
	if f.IsFlagged(evt.PubKey) {
		return true
	}

	if f.opts.MinContentLength > 0 && len(evt.Content) >= f.opts.MinContentLength {
		hash := sha256.Sum256([]byte(evt.Content))
		first := f.recent.GetOrCreate(hash, func() sighting {
			return sighting{id: evt.ID, author: evt.PubKey}
		})
		f.trim(f.recent.Size(), f.recent.Evict)

		if first.id != evt.ID {
			f.Flag(evt.PubKey)
			f.logger.Info("duplicate content flagged as spam",
				"pubkey", evt.PubKey,
				"event_id", evt.ID,
				"first_id", first.id,
				"relay", relay,
			)
			return true
		}
	}

	if f.opts.AuthorRate > 0 && f.opts.AuthorBurst > 0 {
		bucket := f.buckets.GetOrCreate(evt.PubKey, func() *ratelimit.Bucket {
			return ratelimit.NewBucketWithRate(f.opts.AuthorRate, f.opts.AuthorBurst)
		})
		f.trim(f.buckets.Size(), f.buckets.Evict)

		if bucket.TakeAvailable(1) == 0 {
			f.logger.Debug("author over rate", "pubkey", evt.PubKey, "relay", relay)
			return true
		}
	}
	return false
}

// trim evicts once a store reaches twice its window so that eviction cost
// is spread over many inserts.
func (f *Filter) trim(size int, evict func() int) {
	if f.opts.RecentWindow > 0 && size >= 2*f.opts.RecentWindow {
		evict()
	}
}

func (f *Filter) isHidden(pubkey string) bool {
	if f.opts.Hidden == nil {
		return false
	}
	for _, hidden := range f.opts.Hidden() {
		if hidden == pubkey {
			return true
		}
	}
	return false
}

// Flag marks an author as spammer
func (f *Filter) Flag(pubkey string) {
	f.flagged.Compute(pubkey, func(count int, _ bool) (int, bool) {
		return count + 1, false
	})
}

func (f *Filter) IsFlagged(pubkey string) bool {
	_, ok := f.flagged.Load(pubkey)
	return ok
}

// Flagged lists the authors flagged so far
func (f *Filter) Flagged() []string {
	var out []string
	f.flagged.Range(func(pubkey string, _ int) bool {
		out = append(out, pubkey)
		return true
	})
	return out
}
