// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package relay

import (
	"context"
	"sync"
	"time"
)

// BatchSink is the writer-side connection used by a Hub's writer tasks.
// Each writer task opens a fresh BatchSink per attempt (no connection
// pooling) and closes it whether the write succeeded or failed.
type BatchSink interface {
	WriteBatch(ctx context.Context, batch []byte) error
	Close() error
}

// SinkFactory opens a fresh BatchSink.
type SinkFactory func(ctx context.Context) (BatchSink, error)

// HubConfig configures a Hub.
type HubConfig struct {
	BufferSize   int
	Hwm          int // 0 -> default 90% of BufferSize
	MaxBufferAge time.Duration
	MaxRetries   int // -1 = infinite
	Logger       Logger
}

// Hub fans in samples from N reader streams into one shared Buffer, which
// is flushed into an unbounded queue of immutable byte batches consumed by
// M writer tasks. See package doc and SPEC_FULL.md §4.5 for the full
// protocol this implements.
//
// The shared Buffer and t_buffer are protected by mu: this is the
// parallel-thread-model substitute for the single-threaded cooperative
// scheduling the original design relied on for lock-free buffer safety.
type Hub struct {
	cfg   HubConfig
	log   Logger
	mu    sync.Mutex
	buf   *Buffer
	tHas  bool
	tBuf  int64
	queue *unboundedQueue

	readerWg sync.WaitGroup
	writerWg sync.WaitGroup
}

// NewHub constructs a Hub. Returns an error if cfg.Hwm > cfg.BufferSize.
func NewHub(cfg HubConfig) (*Hub, error) {
	if cfg.Logger == nil {
		cfg.Logger = DefaultLogger
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultBufferCapacity
	}
	if cfg.MaxBufferAge <= 0 {
		cfg.MaxBufferAge = 5 * time.Second
	}
	buf, err := NewBuffer(cfg.BufferSize, cfg.Hwm)
	if err != nil {
		return nil, err
	}
	return &Hub{
		cfg:   cfg,
		log:   cfg.Logger,
		buf:   buf,
		queue: newUnboundedQueue(),
	}, nil
}

// flush copies the buffer into an immutable batch and enqueues it. Must be
// called with mu held. No-op if the buffer is empty.
func (h *Hub) flush() {
	batch := h.buf.Flush()
	h.tHas = false
	if batch != nil {
		h.queue.Push(batch)
	}
}

// StartReader launches one reader task that consumes samples from in,
// serializing each as prefix + "value timestamp\n" into the shared
// buffer. The task flushes once and returns when ctx is done or in is
// closed.
func (h *Hub) StartReader(ctx context.Context, prefix []byte, in <-chan Sample) {
	h.readerWg.Add(1)
	go func() {
		defer h.readerWg.Done()
		h.readerLoop(ctx, prefix, in)
	}()
}

func (h *Hub) readerLoop(ctx context.Context, prefix []byte, in <-chan Sample) {
	line := make([]byte, 0, MaxLineLength(prefix))
	for {
		select {
		case s, ok := <-in:
			if !ok {
				h.mu.Lock()
				h.flush()
				h.mu.Unlock()
				return
			}
			h.appendSample(prefix, line[:0], s)
		case <-ctx.Done():
			h.mu.Lock()
			h.flush()
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) appendSample(prefix, scratch []byte, s Sample) {
	line := AppendLine(scratch, prefix, s.V, s.T)

	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.tHas {
		h.tBuf = s.T
		h.tHas = true
	}

	if err := h.buf.Write(line); err != nil {
		h.log.Errorf("relay: dropping sample, buffer overflow despite hwm (len=%d cap=%d): %v", h.buf.Len(), h.buf.Cap(), err)
		return
	}

	if h.buf.IsFull() {
		h.flush()
	} else if h.tHas && time.Duration(s.T-h.tBuf)*time.Millisecond > h.cfg.MaxBufferAge {
		h.flush()
	}
}

// StartWriters launches n writer tasks, each pulling batches from the
// shared queue and writing them via a freshly opened BatchSink per
// attempt. Writer tasks keep draining the queue after ctx is cancelled
// until it is empty and no batch is in hand.
func (h *Hub) StartWriters(ctx context.Context, n int, factory SinkFactory) {
	for i := 0; i < n; i++ {
		h.writerWg.Add(1)
		go func() {
			defer h.writerWg.Done()
			h.writerLoop(ctx, factory)
		}()
	}
}

func (h *Hub) writerLoop(ctx context.Context, factory SinkFactory) {
	for {
		batch, ok := h.queue.Pop(ctx)
		if !ok {
			batch, ok = h.queue.TryPop()
			if !ok {
				return
			}
		}
		h.writeWithRetry(ctx, factory, batch)
	}
}

func (h *Hub) writeWithRetry(ctx context.Context, factory SinkFactory, batch []byte) {
	retries := 0
	for {
		if err := h.attemptWrite(ctx, factory, batch); err == nil {
			return
		} else {
			h.log.Warnf("relay: writer attempt failed (retry %d): %v", retries, err)
		}

		if h.cfg.MaxRetries >= 0 && retries >= h.cfg.MaxRetries {
			h.log.Errorf("relay: discarding batch of %d bytes after %d retries", len(batch), retries)
			return
		}
		retries++
		time.Sleep(2 * time.Second)
	}
}

func (h *Hub) attemptWrite(ctx context.Context, factory SinkFactory, batch []byte) error {
	sink, err := factory(ctx)
	if err != nil {
		return err
	}
	defer sink.Close()
	return sink.WriteBatch(ctx, batch)
}

// Stop cancels reader and writer tasks via the provided cancel functions
// and awaits their completion, splitting timeout 20%/80% between readers
// and writers. StopSplit takes an explicit (readerTimeout, writerTimeout)
// pair instead.
func (h *Hub) Stop(cancelReaders, cancelWriters context.CancelFunc, timeout time.Duration) {
	readerTimeout := timeout * 20 / 100
	writerTimeout := timeout - readerTimeout

	cancelReaders()
	if !waitTimeout(&h.readerWg, readerTimeout) {
		h.log.Warnf("relay: reader shutdown exceeded %s, proceeding to writer shutdown", readerTimeout)
	}

	cancelWriters()
	if !waitTimeout(&h.writerWg, writerTimeout) {
		h.log.Warnf("relay: writer shutdown exceeded %s, some batches may not have drained", writerTimeout)
	}
}

// StopSplit is Stop with an explicit (readerTimeout, writerTimeout) pair
// instead of a 20/80 split of one timeout.
func (h *Hub) StopSplit(cancelReaders, cancelWriters context.CancelFunc, readerTimeout, writerTimeout time.Duration) {
	cancelReaders()
	if !waitTimeout(&h.readerWg, readerTimeout) {
		h.log.Warnf("relay: reader shutdown exceeded %s, proceeding to writer shutdown", readerTimeout)
	}

	cancelWriters()
	if !waitTimeout(&h.writerWg, writerTimeout) {
		h.log.Warnf("relay: writer shutdown exceeded %s, some batches may not have drained", writerTimeout)
	}
}

// QueueDepth reports the number of un-written batches, useful for tests
// and metrics.
func (h *Hub) QueueDepth() int {
	return h.queue.Len()
}

func waitTimeout(wg *sync.WaitGroup, timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
