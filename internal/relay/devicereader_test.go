package relay

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDeviceReaderInterpolation grounds scenario 6: interval 500ms,
// interpolate on, underlying primitive produces (device_time, i) for
// i=0..N. Device time is used directly so the test is deterministic and
// does not depend on wall-clock scheduling.
func TestDeviceReaderInterpolation(t *testing.T) {
	const interval = int64(500)
	i := 0
	sample := func(ctx context.Context) (*int64, float64, error) {
		ts := int64(i) * interval // device clock tracks the grid exactly
		v := float64(i)
		i++
		tsCopy := ts
		return &tsCopy, v, nil
	}

	r := NewDeviceReader(DeviceReaderConfig{
		Sample:             sample,
		UseDeviceTime:      true,
		Interpolate:        true,
		SamplingIntervalMs: interval,
		AllowedErrors:      -1,
		Name:               "test",
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := r.Run(ctx)

	var got []Sample
	for s := range out {
		got = append(got, s)
		if len(got) == 5 {
			r.Stop()
		}
	}

	require.NotEmpty(t, got)
	var prev int64
	for idx, s := range got {
		assert.Zero(t, s.T%interval, "emitted timestamp must be a multiple of the interval")
		if idx > 0 {
			assert.Equal(t, interval, s.T-prev)
		}
		prev = s.T
	}
}

func TestDeviceReaderErrorBudget(t *testing.T) {
	sample := func(ctx context.Context) (*int64, float64, error) {
		return nil, 0, assert.AnError
	}

	r := NewDeviceReader(DeviceReaderConfig{
		Sample:             sample,
		SamplingIntervalMs: 1,
		AllowedErrors:      2,
		Name:               "failing",
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	out := r.Run(ctx)
	for range out {
		t.Fatal("no samples expected")
	}

	require.ErrorIs(t, r.Err(), ErrErrorBudgetExhausted)
}
