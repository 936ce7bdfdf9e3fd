// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package relay

// Point is an (x, y) pair fed through the Compressor. x is a timestamp or
// any other strictly monotonic coordinate.
type Point struct {
	X int64
	Y float64
}

// Compressor eliminates constant runs from a stream of points, preserving
// every value transition. When MaxGap is set (> 0), it also inserts anchor
// points so that no two emitted points spanning equal y are farther apart
// than MaxGap in x. Duplicate x values (relative to the last accepted
// sample) are silently dropped.
//
// A zero Compressor is ready to use.
type Compressor struct {
	MaxGap int64

	started bool
	x0, xn  int64
	y0, yn  float64
}

// NewCompressor returns a Compressor with the given max gap. maxGap <= 0
// disables gap-bounded anchoring.
func NewCompressor(maxGap int64) *Compressor {
	return &Compressor{MaxGap: maxGap}
}

// Push feeds one sample through the compressor, appending any points it
// emits to out and returning the (possibly grown) slice.
func (c *Compressor) Push(x int64, y float64, out []Point) []Point {
	if !c.started {
		c.started = true
		c.x0, c.y0 = x, y
		c.xn, c.yn = x, y
		return out
	}

	if x == c.xn {
		return out
	}

	if y == c.yn {
		if c.MaxGap > 0 && x-c.x0 > c.MaxGap {
			out = append(out, Point{c.x0, c.y0})
			c.x0, c.y0 = c.xn, c.yn
		}
		c.xn = x
		return out
	}

	out = append(out, Point{c.x0, c.y0})
	if c.xn != c.x0 {
		out = append(out, Point{c.xn, c.yn})
	}
	c.x0, c.y0 = x, y
	c.xn, c.yn = x, y
	return out
}

// Finalize emits the trailing anchor(s) at end of stream. Safe to call on
// a Compressor that never received any sample (emits nothing).
func (c *Compressor) Finalize(out []Point) []Point {
	if !c.started {
		return out
	}
	out = append(out, Point{c.x0, c.y0})
	if c.xn != c.x0 {
		out = append(out, Point{c.xn, c.yn})
	}
	return out
}

// Reset restores the Compressor to its initial, un-started state so it can
// be reused for a new stream.
func (c *Compressor) Reset() {
	c.started = false
	c.x0, c.y0, c.xn, c.yn = 0, 0, 0, 0
}

// Compress runs an entire slice of points through a fresh Compressor and
// returns the compressed output, including the finalize step. The bulk-copy
// transform pipeline does not use it: it keeps one Compressor across chunks
// and calls Push and Finalize directly.
func Compress(points []Point, maxGap int64) []Point {
	c := NewCompressor(maxGap)
	out := make([]Point, 0, len(points))
	for _, p := range points {
		out = c.Push(p.X, p.Y, out)
	}
	return c.Finalize(out)
}
