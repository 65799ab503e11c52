package history

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu     sync.Mutex
	saved  []Movement
	fail   bool
	gate   chan struct{} // when set, SaveMovement blocks until the gate closes
	notify chan struct{}
}

func (f *fakeStore) SaveMovement(_ context.Context, m Movement) error {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("store down")
	}
	f.saved = append(f.saved, m)
	if f.notify != nil {
		select {
		case f.notify <- struct{}{}:
		default:
		}
	}
	return nil
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saved)
}

func TestWriterDrainsQueue(t *testing.T) {
	store := &fakeStore{notify: make(chan struct{}, 16)}
	w := NewWriter(store, zerolog.Nop(), WriterConfig{QueueSize: 16, Workers: 2})
	defer w.Shutdown()

	for i := 0; i < 5; i++ {
		w.Record(Movement{UserID: int64(i), RoomID: "42", Lat: 1, Lng: 2, TS: int64(i)})
	}

	deadline := time.After(2 * time.Second)
	for store.count() < 5 {
		select {
		case <-store.notify:
		case <-deadline:
			t.Fatalf("only %d of 5 movements written", store.count())
		}
	}

	enqueued, dropped, written, errs := w.Stats()
	assert.Equal(t, uint64(5), enqueued)
	assert.Equal(t, uint64(0), dropped)
	assert.Equal(t, uint64(5), written)
	assert.Equal(t, uint64(0), errs)
}

func TestWriterDropsOnFullQueue(t *testing.T) {
	gate := make(chan struct{})
	store := &fakeStore{gate: gate}
	w := NewWriter(store, zerolog.Nop(), WriterConfig{QueueSize: 2, Workers: 1})
	defer w.Shutdown()
	defer close(gate)

	// The single worker is blocked on the gate; the queue holds 2, everything
	// past worker+queue capacity must be dropped, never block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 50; i++ {
			w.Record(Movement{UserID: int64(i), RoomID: "42"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Record blocked on a full queue")
	}

	enqueued, dropped, _, _ := w.Stats()
	assert.Equal(t, uint64(50), enqueued+dropped)
	assert.GreaterOrEqual(t, dropped, uint64(47))
}

func TestWriterSwallowsStoreErrors(t *testing.T) {
	store := &fakeStore{fail: true}
	w := NewWriter(store, zerolog.Nop(), WriterConfig{QueueSize: 8, Workers: 1})
	defer w.Shutdown()

	w.Record(Movement{UserID: 1, RoomID: "42"})

	require.Eventually(t, func() bool {
		_, _, _, errs := w.Stats()
		return errs == 1
	}, 2*time.Second, 10*time.Millisecond)

	_, _, written, _ := w.Stats()
	assert.Equal(t, uint64(0), written)
}
