package relay

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSink struct {
	mu      *sync.Mutex
	written *[][]byte
}

func (s fakeSink) WriteBatch(ctx context.Context, batch []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := append([]byte(nil), batch...)
	*s.written = append(*s.written, cp)
	return nil
}

func (s fakeSink) Close() error { return nil }

func TestHubFlushOnFullAndDrain(t *testing.T) {
	prefix := BuildPrefix("volkszaehler", map[string]string{"uuid": "a"}, "value")
	line := len(AppendLine(nil, prefix, 1.0, 1))

	hub, err := NewHub(HubConfig{
		BufferSize:   line * 2,
		Hwm:          line * 2,
		MaxBufferAge: time.Hour,
		MaxRetries:   0,
	})
	require.NoError(t, err)

	var mu sync.Mutex
	var written [][]byte
	factory := func(ctx context.Context) (BatchSink, error) {
		return fakeSink{mu: &mu, written: &written}, nil
	}

	readerCtx, cancelReaders := context.WithCancel(context.Background())
	writerCtx, cancelWriters := context.WithCancel(context.Background())

	samples := make(chan Sample)
	hub.StartReader(readerCtx, prefix, samples)
	hub.StartWriters(writerCtx, 1, factory)

	samples <- Sample{T: 1, V: 1.0}
	samples <- Sample{T: 2, V: 2.0}
	close(samples)

	hub.Stop(cancelReaders, cancelWriters, time.Second)

	mu.Lock()
	defer mu.Unlock()
	assert.NotEmpty(t, written, "expected at least one flushed batch to reach the sink")
}

func TestHubMaxBufferAgeTriggersFlush(t *testing.T) {
	prefix := BuildPrefix("m", nil, "value")

	hub, err := NewHub(HubConfig{
		BufferSize:   10_000,
		MaxBufferAge: 10 * time.Millisecond,
	})
	require.NoError(t, err)

	readerCtx, cancelReaders := context.WithCancel(context.Background())
	samples := make(chan Sample)
	hub.StartReader(readerCtx, prefix, samples)

	samples <- Sample{T: 0, V: 1}
	samples <- Sample{T: 100, V: 2} // age gap exceeds MaxBufferAge
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, 1, hub.QueueDepth())

	close(samples)
	cancelReaders()
}
