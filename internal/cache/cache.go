package cache

import (
	"errors"
	"log/slog"

	"github.com/nbd-wtf/go-nostr"
	"github.com/paul/notecache/internal/antispam"
	"github.com/paul/notecache/internal/deletion"
	"github.com/paul/notecache/internal/hints"
	"github.com/paul/notecache/internal/logging"
	"github.com/paul/notecache/internal/metrics"
	"github.com/paul/notecache/internal/model"
	"github.com/paul/notecache/internal/notify"
	"github.com/paul/notecache/internal/store/memory"
	"github.com/paul/notecache/internal/workers"
	"github.com/paul/notecache/pkg/config"
	"github.com/paul/notecache/pkg/event"
	"github.com/paul/notecache/pkg/nips/nip28"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/puzpuzpuz/xsync/v3"
)

// ErrInvalidKey is returned by lookups given a malformed id, pubkey or address
var ErrInvalidKey = errors.New("invalid key")

// Verifier checks the id and signature of untrusted events
type Verifier interface {
	Verify(evt *event.Event) error
}

// Outbox sends events back to a relay that served a stale or deleted version
type Outbox interface {
	Send(relay string, evt *event.Event)
}

// Policy tells the cache which users are hidden and which are logged in
type Policy interface {
	HiddenUsers() []string
	LoggedIn() []string
}

// Unwrapper decrypts one layer of a seal or gift wrap
type Unwrapper interface {
	Unwrap(wrap *event.Event) (*event.Event, error)
}

type signatureVerifier struct{}

func (signatureVerifier) Verify(evt *event.Event) error {
	return evt.CheckSignature()
}

type discardOutbox struct{}

func (discardOutbox) Send(string, *event.Event) {}

// StaticPolicy is a Policy over fixed lists
type StaticPolicy struct {
	Hidden   []string
	Accounts []string
}

func (p StaticPolicy) HiddenUsers() []string { return p.Hidden }
func (p StaticPolicy) LoggedIn() []string    { return p.Accounts }

// Options configures a Cache. Every field is optional.
type Options struct {
	Config     *config.Config
	Logger     *slog.Logger
	Registerer prometheus.Registerer
	Verifier   Verifier
	Outbox     Outbox
	Policy     Policy
	Unwrapper  Unwrapper
}

// Cache is the in-memory event graph of a client. It is safe for concurrent
// use by any number of relay connections.
type Cache struct {
	cfg       *config.Config
	logger    *slog.Logger
	prunerLog *slog.Logger
	metrics   *metrics.Metrics

	verifier  Verifier
	outbox    Outbox
	policy    Policy
	unwrapper Unwrapper

	users          *memory.Bounded[string, *model.User]
	notes          *memory.Bounded[string, *model.Note]
	addressables   *memory.Bounded[string, *model.Note]
	publicChats    *memory.Map[string, *model.PublicChat]
	ephemeralChats *memory.Map[nip28.RoomID, *model.EphemeralChat]
	liveActivities *memory.Map[string, *model.LiveActivity]
	chatrooms      *memory.Map[string, *model.ChatroomList]

	deletions *deletion.Index
	versions  *deletion.Versions
	hints     *hints.Indexer
	antispam  *antispam.Filter
	bundler   *notify.Bundler
	pool      *workers.Pool

	handlers  map[int]handler
	awaiting  *xsync.MapOf[string, *awaitingPayment]
	observers *xsync.MapOf[observerKey, *Latest]
}

// New creates a cache and starts its notification bundler. Close releases
// its background goroutines.
func New(opts Options) *Cache {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Cache{
		cfg:       cfg,
		logger:    logging.WithComponent(logger, "cache"),
		prunerLog: logging.WithComponent(logger, "pruner"),
		metrics:   metrics.New(opts.Registerer),
		verifier:  opts.Verifier,
		outbox:    opts.Outbox,
		policy:    opts.Policy,
		unwrapper: opts.Unwrapper,

		users:          memory.NewBounded[string, *model.User](cfg.Cache.MaxUsers, (*model.User).IsPinned),
		notes:          memory.NewBounded[string, *model.Note](cfg.Cache.MaxNotes, (*model.Note).IsPinned),
		addressables:   memory.NewBounded[string, *model.Note](cfg.Cache.MaxAddressables, (*model.Note).IsPinned),
		publicChats:    memory.NewMap[string, *model.PublicChat](),
		ephemeralChats: memory.NewMap[nip28.RoomID, *model.EphemeralChat](),
		liveActivities: memory.NewMap[string, *model.LiveActivity](),
		chatrooms:      memory.NewMap[string, *model.ChatroomList](),

		deletions: deletion.NewIndex(),
		versions:  deletion.NewVersions(),
		hints:     hints.NewIndexer(),
		pool:      workers.New(cfg.Workers.Size),

		awaiting:  xsync.NewMapOf[string, *awaitingPayment](),
		observers: xsync.NewMapOf[observerKey, *Latest](),
	}
	if c.verifier == nil {
		c.verifier = signatureVerifier{}
	}
	if c.outbox == nil {
		c.outbox = discardOutbox{}
	}
	if c.policy == nil {
		c.policy = StaticPolicy{}
	}
	if cfg.AntiSpam.Enabled {
		c.antispam = antispam.New(antispam.Options{
			MinContentLength: cfg.AntiSpam.MinContentLength,
			RecentWindow:     cfg.AntiSpam.RecentWindow,
			AuthorRate:       cfg.AntiSpam.AuthorRate,
			AuthorBurst:      cfg.AntiSpam.AuthorBurst,
			Hidden:           func() []string { return c.policy.HiddenUsers() },
			Logger:           logging.WithComponent(logger, "antispam"),
		})
	}
	c.notes.OnEvict(func(_ string, n *model.Note) {
		if evt := n.Event(); evt != nil {
			if u, ok := c.users.Get(evt.PubKey); ok {
				u.Unref()
			}
		}
	})
	c.bundler = notify.New(cfg.Bundler, c.metrics, logging.WithComponent(logger, "bundler"))
	c.handlers = c.buildHandlers()

	c.bundler.Start()
	return c
}

// Close stops the bundler and waits for pending background work
func (c *Cache) Close() {
	c.bundler.Close()
	c.pool.Close()
}

// Live exposes the batched added and removed note flows
func (c *Cache) Live() *notify.Bundler {
	return c.bundler
}

// Hints exposes the relay hint index
func (c *Cache) Hints() *hints.Indexer {
	return c.hints
}

// Metrics exposes the collectors of this instance
func (c *Cache) Metrics() *metrics.Metrics {
	return c.metrics
}

// AntiSpam returns the spam filter, nil when disabled
func (c *Cache) AntiSpam() *antispam.Filter {
	return c.antispam
}

func validID(key string) bool {
	return nostr.IsValid32ByteHex(key)
}

func (c *Cache) getOrCreateUser(pubkey string) *model.User {
	return c.users.GetOrCreate(pubkey, func() *model.User { return model.NewUser(pubkey) })
}

func (c *Cache) getOrCreateNote(id string) *model.Note {
	return c.notes.GetOrCreate(id, func() *model.Note { return model.NewNote(id) })
}

func (c *Cache) getOrCreateAddressable(addr event.Address) *model.Note {
	return c.addressables.GetOrCreate(addr.String(), func() *model.Note { return model.NewAddressableNote(addr) })
}

// lookupNote resolves a note key, which is either an id or an address
func (c *Cache) lookupNote(key string) (*model.Note, bool) {
	if event.IsAddressKey(key) {
		return c.addressables.Get(key)
	}
	return c.notes.Get(key)
}

// getOrCreateByKey resolves a note key, creating a stub when absent
func (c *Cache) getOrCreateByKey(key string) (*model.Note, bool) {
	if event.IsAddressKey(key) {
		addr, err := event.ParseAddress(key)
		if err != nil {
			return nil, false
		}
		return c.getOrCreateAddressable(addr), true
	}
	if !validID(key) {
		return nil, false
	}
	return c.getOrCreateNote(key), true
}

func (c *Cache) isObserved(key string) bool {
	n, ok := c.lookupNote(key)
	return ok && n.IsObserved()
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
