package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"quizfunnel/api/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"
)

var ErrMirrorClosed = errors.New("event mirror is closed")

var (
	mirrorFlushed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "funnel_mirror_events_flushed_total",
		Help: "Events sent to the analytics warehouse",
	})
	mirrorDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "funnel_mirror_events_dropped_total",
		Help: "Events dropped because the mirror buffer was full or the flush failed",
	})
)

type EventSink interface {
	MirrorEvents(ctx context.Context, events []models.FunnelEvent) error
}

// BufferedMirror queues events and writes them to the sink in batches, either
// when batchSize events are pending or every interval. Requests never wait on
// the warehouse; a full queue drops events.
type BufferedMirror struct {
	sink      EventSink
	queue     chan models.FunnelEvent
	batchSize int
	interval  time.Duration

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func NewBufferedMirror(sink EventSink, batchSize int, interval time.Duration) *BufferedMirror {
	if batchSize <= 0 {
		batchSize = 500
	}
	if interval <= 0 {
		interval = 2 * time.Second
	}
	b := &BufferedMirror{
		sink:      sink,
		queue:     make(chan models.FunnelEvent, batchSize*4),
		batchSize: batchSize,
		interval:  interval,
		done:      make(chan struct{}),
	}
	go b.run()
	return b
}

func (b *BufferedMirror) MirrorEvents(ctx context.Context, events []models.FunnelEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrMirrorClosed
	}
	for _, e := range events {
		select {
		case b.queue <- e:
		default:
			mirrorDropped.Inc()
		}
	}
	return nil
}

func (b *BufferedMirror) run() {
	defer close(b.done)
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	buf := make([]models.FunnelEvent, 0, b.batchSize)
	for {
		select {
		case e, ok := <-b.queue:
			if !ok {
				b.flush(buf)
				return
			}
			buf = append(buf, e)
			if len(buf) >= b.batchSize {
				b.flush(buf)
				buf = buf[:0]
			}
		case <-ticker.C:
			if len(buf) > 0 {
				b.flush(buf)
				buf = buf[:0]
			}
		}
	}
}

func (b *BufferedMirror) flush(events []models.FunnelEvent) {
	if len(events) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	batch := append([]models.FunnelEvent(nil), events...)
	if err := b.sink.MirrorEvents(ctx, batch); err != nil {
		mirrorDropped.Add(float64(len(batch)))
		log.WithError(err).WithField("events", len(batch)).Error("Failed to flush events to analytics warehouse")
		return
	}
	mirrorFlushed.Add(float64(len(batch)))
}

// Close stops accepting events and flushes what is queued.
func (b *BufferedMirror) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		<-b.done
		return
	}
	b.closed = true
	close(b.queue)
	b.mu.Unlock()
	<-b.done
}
