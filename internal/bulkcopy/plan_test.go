// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package bulkcopy

import (
	"context"
	"testing"

	"github.com/volkszaehler/vzrelay/internal/config"
	"github.com/volkszaehler/vzrelay/internal/driver"
	"github.com/volkszaehler/vzrelay/internal/relay"

	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	channels []driver.ChannelDescriptor
	chunks   map[string][][]relay.Sample
}

func (f *fakeReader) GetChannels(ctx context.Context) ([]driver.ChannelDescriptor, error) {
	return f.channels, nil
}

func (f *fakeReader) IterChunks(ctx context.Context, ch driver.ChannelDescriptor, begin, end int64, chunkSize int) (driver.ChunkIterator, error) {
	return &fakeChunkIterator{chunks: f.chunks[ch.ID]}, nil
}

func (f *fakeReader) Close() error { return nil }

type fakeChunkIterator struct {
	chunks [][]relay.Sample
	pos    int
}

func (it *fakeChunkIterator) Next(ctx context.Context) ([]relay.Sample, bool, error) {
	if it.pos >= len(it.chunks) {
		return nil, false, nil
	}
	c := it.chunks[it.pos]
	it.pos++
	return c, true, nil
}

type fakeWriter struct {
	written []relay.Sample
	closed  bool
}

func (w *fakeWriter) WriteChunk(ctx context.Context, samples []relay.Sample) error {
	w.written = append(w.written, samples...)
	return nil
}

func (w *fakeWriter) Close() error { w.closed = true; return nil }

func TestPlanExcludeWinsOverInclude(t *testing.T) {
	reader := &fakeReader{channels: []driver.ChannelDescriptor{
		{ID: "1", Title: "Main Meter", Type: "electric meter"},
		{ID: "2", Title: "Debug Sensor", Type: "debug"},
	}}
	cfg := &config.Config{
		Defaults: config.Defaults{Measurement: "volkszaehler"},
		Include:  []config.IncludeRule{{Channel: "*"}},
		Exclude:  config.Exclude{Types: []string{"debug*"}},
	}

	plans, err := Plan(context.Background(), reader, cfg)
	require.NoError(t, err)
	require.Len(t, plans, 1)
	require.Equal(t, "Main Meter", plans[0].Channel.Title)
}

func TestCopyChannelAppliesLinearTransformAndCompressor(t *testing.T) {
	ch := driver.ChannelDescriptor{ID: "1", Title: "Main Meter", Type: "electric meter", Unit: "kWh"}
	reader := &fakeReader{
		channels: []driver.ChannelDescriptor{ch},
		chunks: map[string][][]relay.Sample{
			"1": {
				{{T: 1, V: 1}, {T: 2, V: 1}, {T: 3, V: 1}},
				{{T: 5, V: 1}, {T: 6, V: 1}},
			},
		},
	}

	w := &fakeWriter{}
	p := PlannedCopy{
		Channel: ch,
		Options: config.Defaults{
			Measurement: "volkszaehler",
			FieldName:   "value",
			MaxGap:      config.Int64(4),
			CopyTags:    []string{"uuid", "unit"},
			Transform:   &config.Transform{Type: "linear", Scale: 2, Offset: 1},
		},
	}

	err := CopyChannel(context.Background(), reader, func(ctx context.Context) (driver.Writer, error) {
		return w, nil
	}, p)
	require.NoError(t, err)
	require.True(t, w.closed)

	// linear: v' = 2*1+1 = 3 for every sample, so the compressor collapses
	// the whole constant run with max_gap=4 into [(1,3),(5,3),(6,3)].
	require.Equal(t, []relay.Sample{{T: 1, V: 3}, {T: 5, V: 3}, {T: 6, V: 3}}, w.written)
}

func TestCopyChannelMissingUnitFailsLoudly(t *testing.T) {
	ch := driver.ChannelDescriptor{ID: "1", Title: "Mystery", Type: "unknown-type"}
	reader := &fakeReader{
		channels: []driver.ChannelDescriptor{ch},
		chunks:   map[string][][]relay.Sample{"1": {{{T: 1, V: 1}}}},
	}
	p := PlannedCopy{Channel: ch, Options: config.Defaults{CopyTags: []string{"unit"}}}

	err := CopyChannel(context.Background(), reader, func(ctx context.Context) (driver.Writer, error) {
		return &fakeWriter{}, nil
	}, p)
	require.Error(t, err)
}
