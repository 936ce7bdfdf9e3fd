// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package driver defines the explicit capability contract sources and
// sinks implement: a Reader vends channel discovery and chunked sample
// iteration, a Writer buffers and flushes sample chunks. The registered
// drivers (influxsink, sqlsource, csvsource, csvsink) vend one or the other
// view of themselves; a driver is never both. natssource and modbusdriver
// are live-mode sources that implement neither interface.
package driver

import (
	"context"

	"github.com/volkszaehler/vzrelay/internal/relay"
)

// ChannelDescriptor describes one source channel. Core fields are typed;
// anything else the driver surfaces lives in Attrs, keyed by attribute
// name (e.g. "class"), so include/exclude matching can read both.
type ChannelDescriptor struct {
	ID         string
	UUID       string
	Title      string
	Type       string
	Unit       string
	Resolution float64
	Attrs      map[string]string
}

// Attr resolves a named attribute, checking the core fields first and
// falling back to the overlay map.
func (c ChannelDescriptor) Attr(name string) (string, bool) {
	switch name {
	case "id":
		return c.ID, c.ID != ""
	case "uuid":
		return c.UUID, c.UUID != ""
	case "title", "name":
		return c.Title, c.Title != ""
	case "type":
		return c.Type, c.Type != ""
	}
	v, ok := c.Attrs[name]
	return v, ok
}

// Name is the channel's display name used for include matching: its title
// if present, else its id.
func (c ChannelDescriptor) Name() string {
	if c.Title != "" {
		return c.Title
	}
	return c.ID
}

// Reader is the source-side view of a driver: discover channels, then
// stream chunks of samples from one, oldest first.
type Reader interface {
	// GetChannels lists every channel the source exposes.
	GetChannels(ctx context.Context) ([]ChannelDescriptor, error)

	// IterChunks streams non-empty chunks of samples for channel, from
	// begin (inclusive, epoch ms, 0 = unbounded) to end (exclusive, 0 =
	// unbounded), at most chunkSize samples per chunk, until exhausted.
	// Implementations must use keyset pagination on timestamp rather
	// than OFFSET — see sqlsource for the reference implementation.
	IterChunks(ctx context.Context, channel ChannelDescriptor, begin, end int64, chunkSize int) (ChunkIterator, error)

	// Close releases the underlying connection.
	Close() error
}

// ChunkIterator is a single-pass, non-restartable sequence of sample
// chunks.
type ChunkIterator interface {
	// Next returns the next non-empty chunk, or ok=false when exhausted.
	Next(ctx context.Context) (chunk []relay.Sample, ok bool, err error)
}

// Writer is the sink-side view of a driver: buffer sample chunks, flush
// when full or on Close.
type Writer interface {
	// WriteChunk buffers samples, flushing to the underlying transport
	// when the internal buffer fills.
	WriteChunk(ctx context.Context, samples []relay.Sample) error

	// Close flushes any residual buffered data and releases the
	// connection.
	Close() error
}

// SourceFactory opens a Reader from a driver-specific raw config.
type SourceFactory func(ctx context.Context, rawConfig map[string]any) (Reader, error)

// SinkFactory opens a Writer from a driver-specific raw config.
type SinkFactory func(ctx context.Context, rawConfig map[string]any) (Writer, error)
