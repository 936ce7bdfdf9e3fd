package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func points(xs ...float64) []Point {
	// helper: pairs of (x, y) passed as x0,y0,x1,y1,...
	out := make([]Point, 0, len(xs)/2)
	for i := 0; i < len(xs); i += 2 {
		out = append(out, Point{X: int64(xs[i]), Y: xs[i+1]})
	}
	return out
}

func TestCompressorBasicNoGap(t *testing.T) {
	in := points(1, 1, 2, 1, 3, 1, 5, 1, 6, 1)
	got := Compress(in, 0)
	assert.Equal(t, points(1, 1, 6, 1), got)
}

func TestCompressorWithGap4(t *testing.T) {
	in := points(1, 1, 2, 1, 3, 1, 5, 1, 6, 1)
	got := Compress(in, 4)
	assert.Equal(t, points(1, 1, 5, 1, 6, 1), got)
}

func TestCompressorWithGap3SixPoints(t *testing.T) {
	in := points(1, 1, 2, 1, 3, 1, 5, 1, 6, 1, 7, 1)
	got := Compress(in, 3)
	assert.Equal(t, points(1, 1, 3, 1, 6, 1, 7, 1), got)
}

func TestCompressorValueTransition(t *testing.T) {
	in := []Point{{1, 1.1}, {1, 1.2}, {1, 1.2}, {5, 1.2}, {6, 1.3}}
	// x values above collide under int64 truncation of the fractional
	// example in the spec; exercise the same semantics with integer x.
	in = []Point{{11, 1.1}, {12, 1.2}, {13, 1.2}, {50, 1.2}, {60, 1.3}}
	got := Compress(in, 0)
	assert.Equal(t, []Point{{11, 1.1}, {12, 1.2}, {50, 1.2}, {60, 1.3}}, got)
}

func TestCompressorEmptyInput(t *testing.T) {
	assert.Empty(t, Compress(nil, 0))
}

func TestCompressorSingleInput(t *testing.T) {
	got := Compress(points(1, 42), 0)
	assert.Equal(t, points(1, 42), got)
}

func TestCompressorAllEqualNoGap(t *testing.T) {
	got := Compress(points(1, 5, 2, 5, 3, 5, 4, 5), 0)
	assert.Equal(t, points(1, 5, 4, 5), got)
}

func TestCompressorDuplicateXDropped(t *testing.T) {
	c := NewCompressor(0)
	var out []Point
	out = c.Push(1, 1, out)
	out = c.Push(1, 2, out) // duplicate x, dropped even though y differs
	out = c.Finalize(out)
	assert.Equal(t, points(1, 1), out)
}
