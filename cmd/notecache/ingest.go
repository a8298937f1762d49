package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/paul/notecache/internal/cache"
	"github.com/paul/notecache/pkg/event"
	"github.com/paul/notecache/pkg/protocol"
	"github.com/urfave/cli/v2"
)

const batchSize = 256

var ingest = &cli.Command{
	Name:      "ingest",
	Usage:     "reads JSON events or relay EVENT messages, one per line, and prints the cache statistics",
	ArgsUsage: "[file...]",
	Description: `reads from stdin when no file is given. example usage:
		nak req -k 1 -l 500 wss://relay.example | notecache ingest --relay wss://relay.example
		notecache ingest --prune --search "gophers -rust" dump.jsonl`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "relay",
			Usage: "relay the events are attributed to",
		},
		&cli.BoolFlag{
			Name:  "trusted",
			Usage: "treat events as created by a local account and skip signature checks",
		},
		&cli.StringFlag{
			Name:  "outbox",
			Usage: "file receiving the EVENT messages the cache pushes back to stale relays",
		},
		&cli.BoolFlag{
			Name:  "prune",
			Usage: "run every pruning sweep after ingesting",
		},
		&cli.StringSliceFlag{
			Name:  "account",
			Usage: "pubkey of a logged-in account, protected from pruning",
		},
		&cli.StringSliceFlag{
			Name:  "hide",
			Usage: "pubkey of a hidden user",
		},
		&cli.StringFlag{
			Name:  "search",
			Usage: "print the cached events matching a NIP-50 query instead of statistics",
		},
		&cli.IntFlag{
			Name:  "limit",
			Usage: "maximum number of search results",
			Value: 50,
		},
	},
	Action: func(c *cli.Context) error {
		cfg, logger, err := setup(c)
		if err != nil {
			return err
		}

		var outbox cache.Outbox
		if path := c.String("outbox"); path != "" {
			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("failed to create outbox: %w", err)
			}
			defer f.Close()
			outbox = &fileOutbox{w: f, logger: logger}
		}

		nc := cache.New(cache.Options{
			Config: cfg,
			Logger: logger,
			Outbox: outbox,
			Policy: cache.StaticPolicy{
				Hidden:   c.StringSlice("hide"),
				Accounts: c.StringSlice("account"),
			},
		})
		defer nc.Close()

		in := &ingester{
			cache:   nc,
			logger:  logger,
			relay:   c.String("relay"),
			trusted: c.Bool("trusted"),
		}

		if c.Args().Len() == 0 {
			err = in.read(c.Context, os.Stdin, "stdin")
		} else {
			for _, path := range c.Args().Slice() {
				if err = in.readFile(c.Context, path); err != nil {
					break
				}
			}
		}
		if err != nil {
			return err
		}

		logger.Info("ingest finished",
			"lines", in.lines,
			"accepted", in.accepted,
			"malformed", in.malformed,
		)

		if c.Bool("prune") {
			removed := nc.Prune(time.Now())
			logger.Info("pruned cache", "removed", removed)
		}

		enc := json.NewEncoder(os.Stdout)
		if query := c.String("search"); query != "" {
			for _, evt := range nc.Search(query, c.Int("limit")) {
				if err := enc.Encode(evt); err != nil {
					return err
				}
			}
			return nil
		}
		enc.SetIndent("", "  ")
		return enc.Encode(nc.Stats())
	},
}

type ingester struct {
	cache   *cache.Cache
	logger  *slog.Logger
	relay   string
	trusted bool

	lines     int
	accepted  int
	malformed int
}

func (in *ingester) readFile(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return in.read(ctx, f, path)
}

func (in *ingester) read(ctx context.Context, r io.Reader, source string) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	batch := make([]cache.Incoming, 0, batchSize)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		in.lines++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		evt, err := parseLine(line)
		if errors.Is(err, errSkip) {
			continue
		}
		if err != nil {
			in.malformed++
			in.logger.Debug("skipping malformed line", "source", source, "line", in.lines, "error", err)
			continue
		}

		if in.trusted {
			if in.cache.ConsumeOwn(evt) {
				in.accepted++
			}
			continue
		}
		batch = append(batch, cache.Incoming{Event: evt, Relay: in.relay})
		if len(batch) == batchSize {
			in.flush(ctx, batch)
			batch = batch[:0]
		}
	}
	in.flush(ctx, batch)

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read %s: %w", source, err)
	}
	return nil
}

func (in *ingester) flush(ctx context.Context, batch []cache.Incoming) {
	if len(batch) == 0 {
		return
	}
	for _, ok := range in.cache.ConsumeBatch(ctx, batch) {
		if ok {
			in.accepted++
		}
	}
}

var errSkip = errors.New("not an event")

// parseLine accepts a bare event or a relay message. Relay messages other
// than EVENT are skipped.
func parseLine(line []byte) (*event.Event, error) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 || line[0] != '[' {
		return event.Parse(line)
	}
	msg, err := protocol.Parse(line)
	if err != nil {
		return nil, err
	}
	if msg.Type != protocol.MessageTypeEvent {
		return nil, errSkip
	}
	return msg.Event, nil
}

// fileOutbox writes pushed events as "<relay>\t<EVENT message>" lines
type fileOutbox struct {
	mu     sync.Mutex
	w      io.Writer
	logger *slog.Logger
}

func (o *fileOutbox) Send(relay string, evt *event.Event) {
	data, err := protocol.EventMessage(evt)
	if err != nil {
		o.logger.Warn("failed to encode pushed event", "event_id", evt.ID, "error", err)
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if _, err := fmt.Fprintf(o.w, "%s\t%s\n", relay, data); err != nil {
		o.logger.Warn("failed to write outbox", "relay", relay, "error", err)
	}
}
