// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package bulkcopy

import (
	"context"
	"fmt"

	"github.com/volkszaehler/vzrelay/internal/config"
	"github.com/volkszaehler/vzrelay/internal/driver"
	"github.com/volkszaehler/vzrelay/internal/relay"
)

// ChunkTransform maps one chunk of samples to another, in place or into a
// freshly allocated slice. Transforms compose by wrapping a
// driver.ChunkIterator; see newTransformIterator.
type ChunkTransform func(chunk []relay.Sample) []relay.Sample

// newTransform builds the configured value transform, grounded on
// vzclient's power.py/time_derivative.py derived-channel helpers (see
// SPEC_FULL.md §C) in addition to spec.md's `linear`/`auto-resolution`.
func newTransform(t *config.Transform, channel driver.ChannelDescriptor) (ChunkTransform, error) {
	if t == nil {
		return nil, nil
	}
	switch t.Type {
	case "linear":
		scale, offset := t.Scale, t.Offset
		return func(chunk []relay.Sample) []relay.Sample {
			out := make([]relay.Sample, len(chunk))
			for i, s := range chunk {
				out[i] = relay.Sample{T: s.T, V: scale*s.V + offset}
			}
			return out
		}, nil

	case "auto-resolution":
		scale := 1.0
		if channel.Resolution != 0 && channel.Resolution != 1 {
			scale = 1 / channel.Resolution
		}
		if scale == 1 {
			return nil, nil
		}
		return func(chunk []relay.Sample) []relay.Sample {
			out := make([]relay.Sample, len(chunk))
			for i, s := range chunk {
				out[i] = relay.Sample{T: s.T, V: s.V * scale}
			}
			return out
		}, nil

	case "derivative":
		return newDerivativeTransform(), nil

	default:
		return nil, fmt.Errorf("bulkcopy: unknown transform type %q", t.Type)
	}
}

// newDerivativeTransform returns a stateful chunk transform computing the
// discrete dy/dt (per second) between consecutive samples across chunk
// boundaries, grounded on vzclient/time_derivative.py. The first sample of
// the whole stream is dropped since it has no predecessor.
func newDerivativeTransform() ChunkTransform {
	var have bool
	var prevT int64
	var prevV float64

	return func(chunk []relay.Sample) []relay.Sample {
		out := make([]relay.Sample, 0, len(chunk))
		for _, s := range chunk {
			if have {
				dtSeconds := float64(s.T-prevT) / 1000.0
				if dtSeconds > 0 {
					out = append(out, relay.Sample{T: s.T, V: (s.V - prevV) / dtSeconds})
				}
			}
			prevT, prevV, have = s.T, s.V, true
		}
		return out
	}
}

// transformIterator wraps a driver.ChunkIterator with a ChunkTransform and
// an optional Compressor, composing the BulkCopy pipeline stages
// described in spec.md §4.6: transform first, compressor second.
type transformIterator struct {
	inner      driver.ChunkIterator
	transform  ChunkTransform
	compressor *relay.Compressor
	scratch    []relay.Point
}

func newTransformIterator(inner driver.ChunkIterator, transform ChunkTransform, maxGap int64) driver.ChunkIterator {
	if transform == nil && maxGap <= 0 {
		return inner
	}
	it := &transformIterator{inner: inner, transform: transform}
	if maxGap > 0 {
		it.compressor = relay.NewCompressor(maxGap)
	}
	return it
}

// Next pulls one raw chunk from the underlying iterator, applies the
// value transform, then feeds the result through the compressor (when
// configured) before returning. The compressor's finalize step only fires
// once the underlying iterator is exhausted, so a transition split across
// the very last two chunks is still closed out correctly.
func (it *transformIterator) Next(ctx context.Context) ([]relay.Sample, bool, error) {
	for {
		chunk, ok, err := it.inner.Next(ctx)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			if it.compressor != nil {
				it.scratch = it.compressor.Finalize(it.scratch[:0])
				if len(it.scratch) > 0 {
					out := pointsToSamples(it.scratch)
					it.compressor = nil // finalize only once
					return out, true, nil
				}
			}
			return nil, false, nil
		}

		if it.transform != nil {
			chunk = it.transform(chunk)
		}
		if len(chunk) == 0 {
			continue
		}
		if it.compressor == nil {
			return chunk, true, nil
		}

		it.scratch = it.scratch[:0]
		for _, s := range chunk {
			it.scratch = it.compressor.Push(s.T, s.V, it.scratch)
		}
		if len(it.scratch) == 0 {
			continue
		}
		return pointsToSamples(it.scratch), true, nil
	}
}

func pointsToSamples(pts []relay.Point) []relay.Sample {
	out := make([]relay.Sample, len(pts))
	for i, p := range pts {
		out[i] = relay.Sample{T: p.X, V: p.Y}
	}
	return out
}
