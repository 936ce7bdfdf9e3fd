// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package relay

import "sync"

// DefaultBufferCapacity matches the sink buffer default of the bulk-copy
// and hub configuration (1,000,000 bytes).
const DefaultBufferCapacity = 1_000_000

// bufferBytesPool supplies backing arrays to NewBuffer and takes them back
// through Buffer.release. Flush and Clear keep reusing a buffer's own
// backing array and do not touch the pool.
var bufferBytesPool = sync.Pool{
	New: func() any {
		return make([]byte, 0, DefaultBufferCapacity)
	},
}

// Buffer is a fixed-capacity byte buffer with a high-water mark. Writes are
// all-or-nothing: if the concatenation of all arguments to Write would not
// fit in the remaining capacity, the buffer is left unchanged and
// ErrOverflow is returned. Buffer is not safe for concurrent use; callers
// in a multi-threaded scheduling model must serialize access with a lock
// (the hub does this; see hub.go).
type Buffer struct {
	data     []byte
	capacity int
	hwm      int
}

// NewBuffer creates a Buffer with the given capacity. If hwm is <= 0, it
// defaults to floor(0.9*capacity). Returns ErrHwmTooLarge if hwm > capacity.
func NewBuffer(capacity int, hwm int) (*Buffer, error) {
	if hwm <= 0 {
		hwm = (capacity * 9) / 10
	}
	if hwm > capacity {
		return nil, ErrHwmTooLarge
	}
	data := bufferBytesPool.Get().([]byte)
	if cap(data) < capacity {
		data = make([]byte, 0, capacity)
	}
	return &Buffer{
		data:     data[:0],
		capacity: capacity,
		hwm:      hwm,
	}, nil
}

// Write appends the concatenation of chunks to the buffer. If the total
// length would exceed capacity, the buffer is left unchanged and
// ErrOverflow is returned.
func (b *Buffer) Write(chunks ...[]byte) error {
	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	if len(b.data)+total > b.capacity {
		return ErrOverflow
	}
	for _, c := range chunks {
		b.data = append(b.data, c...)
	}
	return nil
}

// WriteString is a convenience wrapper around Write for string chunks.
func (b *Buffer) WriteString(chunks ...string) error {
	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	if len(b.data)+total > b.capacity {
		return ErrOverflow
	}
	for _, c := range chunks {
		b.data = append(b.data, c...)
	}
	return nil
}

// IsFull reports whether the buffer has reached its high-water mark.
func (b *Buffer) IsFull() bool {
	return len(b.data) >= b.hwm
}

// Len returns the current length of the buffer contents.
func (b *Buffer) Len() int {
	return len(b.data)
}

// Cap returns the buffer's fixed capacity.
func (b *Buffer) Cap() int {
	return b.capacity
}

// Data returns a live view of the current buffer contents. Callers must
// not retain it across a Clear or Flush; use Flush to obtain an
// independent, immutable copy.
func (b *Buffer) Data() []byte {
	return b.data
}

// Clear empties the buffer without releasing its backing array.
func (b *Buffer) Clear() {
	b.data = b.data[:0]
}

// Flush copies the current contents into a freshly allocated, immutable
// byte slice and clears the buffer. It is the only safe way to hand buffer
// contents to a goroutine that outlives the next Write/Clear.
func (b *Buffer) Flush() []byte {
	if len(b.data) == 0 {
		return nil
	}
	batch := make([]byte, len(b.data))
	copy(batch, b.data)
	b.Clear()
	return batch
}

// release returns the buffer's backing array to the pool. Only call this
// once the buffer itself is being discarded.
func (b *Buffer) release() {
	bufferBytesPool.Put(b.data[:0])
}
