package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"quizfunnel/api/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sinkRecorder struct {
	mu      sync.Mutex
	batches [][]models.FunnelEvent
}

func (s *sinkRecorder) MirrorEvents(ctx context.Context, events []models.FunnelEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, events)
	return nil
}

func (s *sinkRecorder) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.batches {
		n += len(b)
	}
	return n
}

func events(n int) []models.FunnelEvent {
	out := make([]models.FunnelEvent, n)
	for i := range out {
		out[i] = models.FunnelEvent{EventID: fmt.Sprintf("ev-%d", i), EventType: models.EventVisit}
	}
	return out
}

func TestBufferedMirrorFlushesFullBatches(t *testing.T) {
	sink := &sinkRecorder{}
	m := NewBufferedMirror(sink, 3, time.Hour)

	require.NoError(t, m.MirrorEvents(context.Background(), events(3)))

	assert.Eventually(t, func() bool { return sink.total() == 3 }, time.Second, 10*time.Millisecond)
	m.Close()
}

func TestBufferedMirrorFlushesOnInterval(t *testing.T) {
	sink := &sinkRecorder{}
	m := NewBufferedMirror(sink, 100, 20*time.Millisecond)
	defer m.Close()

	require.NoError(t, m.MirrorEvents(context.Background(), events(2)))

	assert.Eventually(t, func() bool { return sink.total() == 2 }, time.Second, 10*time.Millisecond)
}

func TestBufferedMirrorCloseFlushesPending(t *testing.T) {
	sink := &sinkRecorder{}
	m := NewBufferedMirror(sink, 100, time.Hour)

	require.NoError(t, m.MirrorEvents(context.Background(), events(5)))
	m.Close()

	assert.Equal(t, 5, sink.total())
	assert.ErrorIs(t, m.MirrorEvents(context.Background(), events(1)), ErrMirrorClosed)
	m.Close()
}
