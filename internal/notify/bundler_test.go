package notify

import (
	"testing"
	"time"

	"github.com/paul/notecache/internal/logging"
	"github.com/paul/notecache/internal/metrics"
	"github.com/paul/notecache/internal/model"
	"github.com/paul/notecache/internal/testutil"
	"github.com/paul/notecache/pkg/config"
	"github.com/paul/notecache/pkg/event"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newBundler(interval time.Duration, buffer int) (*Bundler, *metrics.Metrics) {
	m := metrics.New(nil)
	return New(config.BundlerConfig{Interval: interval, Buffer: buffer}, m, logging.Discard()), m
}

func receive(t *testing.T, ch <-chan []*model.Note) []*model.Note {
	t.Helper()
	select {
	case batch := <-ch:
		return batch
	case <-time.After(2 * time.Second):
		require.FailNow(t, "no batch published")
		return nil
	}
}

func TestBundler_CoalescesChanges(t *testing.T) {
	b, _ := newBundler(50*time.Millisecond, 10)
	defer b.Close()

	first := model.NewNote(testutil.RandomID())
	second := model.NewNote(testutil.RandomID())

	// the first batch goes out right away and holds the first note only
	b.Start()
	b.NoteAdded(first)
	assert.Equal(t, []*model.Note{first}, receive(t, b.Added()))

	b.NoteAdded(second)
	b.NoteAdded(first)
	b.NoteAdded(second)
	b.NoteRemoved(second)
	b.NoteRemoved(second)

	assert.Equal(t, []*model.Note{second, first}, receive(t, b.Added()), "one entry per note")
	assert.Equal(t, []*model.Note{second}, receive(t, b.Removed()))
}

func TestBundler_DeduplicatesByKey(t *testing.T) {
	b, _ := newBundler(time.Hour, 10)
	defer b.Close()

	addr := event.Address{Kind: 30023, PubKey: testutil.RandomID(), DTag: "x"}
	n := model.NewAddressableNote(addr)
	b.NoteAdded(n)
	b.NoteAdded(n)
	b.Flush()

	batch := receive(t, b.Added())
	require.Len(t, batch, 1)
	assert.Equal(t, addr.String(), batch[0].Key())

	// a new tick starts from an empty set
	b.NoteAdded(n)
	b.Flush()
	assert.Len(t, receive(t, b.Added()), 1)
}

func TestBundler_FlushWithoutLoop(t *testing.T) {
	b, _ := newBundler(time.Hour, 10)
	defer b.Close()

	n := model.NewNote(testutil.RandomID())
	b.NoteRemoved(n)
	b.Flush()

	assert.Equal(t, []*model.Note{n}, receive(t, b.Removed()))
	assert.Empty(t, b.Added())
}

func TestBundler_DropsOldest(t *testing.T) {
	b, m := newBundler(time.Hour, 2)
	defer b.Close()

	notes := make([]*model.Note, 3)
	for i := range notes {
		notes[i] = model.NewNote(testutil.RandomID())
		b.NoteAdded(notes[i])
		b.Flush()
	}

	assert.Equal(t, []*model.Note{notes[1]}, receive(t, b.Added()))
	assert.Equal(t, []*model.Note{notes[2]}, receive(t, b.Added()))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.BundlerDropped.WithLabelValues(flowAdded)))
}

func TestBundler_CloseIsIdempotent(t *testing.T) {
	b, _ := newBundler(time.Millisecond, 1)
	b.Start()
	b.Close()
	b.Close()

	// queuing after close must not block or panic
	b.NoteAdded(model.NewNote(testutil.RandomID()))
}
