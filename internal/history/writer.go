package history

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"trackroom/internal/metrics"
)

// Writer drains a bounded queue of movements into a Store. The queue drops
// on overflow and store errors are logged, never surfaced: movement history
// is at-most-once by contract and must never block the broadcast path.
type Writer struct {
	store  Store
	logger zerolog.Logger

	queue   chan Movement
	workers int
	stopCh  chan struct{}

	enqueued atomic.Uint64
	dropped  atomic.Uint64
	written  atomic.Uint64
	errors   atomic.Uint64
}

type WriterConfig struct {
	QueueSize int
	Workers   int
}

func NewWriter(store Store, logger zerolog.Logger, cfg WriterConfig) *Writer {
	w := &Writer{
		store:   store,
		logger:  logger,
		queue:   make(chan Movement, cfg.QueueSize),
		workers: cfg.Workers,
		stopCh:  make(chan struct{}),
	}

	for i := 0; i < w.workers; i++ {
		go w.workerLoop(i)
	}

	return w
}

// Record implements Recorder. Never blocks.
func (w *Writer) Record(m Movement) {
	select {
	case w.queue <- m:
		w.enqueued.Add(1)
		metrics.MovementsEnqueued.Inc()
	default:
		w.dropped.Add(1)
		metrics.MovementsDropped.Inc()
	}
}

func (w *Writer) workerLoop(workerID int) {
	for {
		select {
		case m := <-w.queue:
			if err := w.store.SaveMovement(context.Background(), m); err != nil {
				w.errors.Add(1)
				metrics.MovementErrors.Inc()
				w.logger.Warn().
					Err(err).
					Int("worker", workerID).
					Str("room", m.RoomID).
					Msg("movement save failed")
				time.Sleep(20 * time.Millisecond)
				continue
			}
			w.written.Add(1)
			metrics.MovementsWritten.Inc()

		case <-w.stopCh:
			return
		}
	}
}

func (w *Writer) Shutdown() {
	close(w.stopCh)
}

func (w *Writer) Stats() (enqueued, dropped, written, errors uint64) {
	return w.enqueued.Load(), w.dropped.Load(), w.written.Load(), w.errors.Load()
}
