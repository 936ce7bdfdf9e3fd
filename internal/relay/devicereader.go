// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package relay

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// execWindowSize is the rolling window of inter-sample execution durations
// used to bias the next sleep.
const execWindowSize = 10

// SamplingFunc is a single measurement attempt. It returns a device-supplied
// timestamp (nil if the caller should stamp it) and a value, or an error if
// the attempt failed. ts, when non-nil, is epoch milliseconds.
type SamplingFunc func(ctx context.Context) (ts *int64, v float64, err error)

// DeviceReaderConfig configures a DeviceReader.
type DeviceReaderConfig struct {
	// Sample is called once per scheduling tick to obtain a new reading.
	Sample SamplingFunc

	// UseDeviceTime, when true and Sample returns a non-nil timestamp,
	// stamps samples with that device time instead of local wall-clock
	// time.
	UseDeviceTime bool

	// Interpolate enables grid-time linear interpolation between the two
	// most recent samples. When false, raw samples are emitted as-is.
	Interpolate bool

	// SamplingIntervalMs is the nominal period between samples/grid
	// points, in milliseconds.
	SamplingIntervalMs int64

	// AllowedErrors bounds the total number of sampling failures before
	// the sequence ends with ErrErrorBudgetExhausted; successful samples
	// do not restore the budget. Negative means unbounded.
	AllowedErrors int

	// Name is a display name used in log messages.
	Name string

	// Logger is used for warnings (clamped sleeps, extrapolation). Falls
	// back to DefaultLogger when nil.
	Logger Logger
}

// DeviceReader turns a SamplingFunc into a scheduled, optionally
// interpolated sequence of Samples delivered on a channel. It is a
// single-pass, non-restartable sequence: call Run once.
type DeviceReader struct {
	cfg DeviceReaderConfig

	have01     bool
	t0, t1     int64
	v0, v1     float64
	execWin    [execWindowSize]float64
	execN      int
	execSum    float64
	lastSleepS float64
	stopped    atomic.Bool
	lastErr    error
	mu         sync.Mutex
}

// NewDeviceReader constructs a DeviceReader from cfg. cfg.Sample must be
// non-nil.
func NewDeviceReader(cfg DeviceReaderConfig) *DeviceReader {
	if cfg.Logger == nil {
		cfg.Logger = DefaultLogger
	}
	if cfg.SamplingIntervalMs <= 0 {
		cfg.SamplingIntervalMs = 1000
	}
	return &DeviceReader{cfg: cfg}
}

// Stop requests the reader loop exit at the next scheduling boundary.
// Idempotent, safe to call from any goroutine.
func (r *DeviceReader) Stop() {
	r.stopped.Store(true)
}

// Err returns the error that ended the sequence, if any (nil on a clean
// Stop-triggered exit).
func (r *DeviceReader) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}

// Run starts the prime and steady sampling phases and delivers Samples on
// the returned channel. The channel is closed when the reader is stopped,
// the context is cancelled, or the error budget is exhausted; check Err()
// afterwards to distinguish the latter.
func (r *DeviceReader) Run(ctx context.Context) <-chan Sample {
	out := make(chan Sample)
	go r.loop(ctx, out)
	return out
}

func (r *DeviceReader) loop(ctx context.Context, out chan<- Sample) {
	defer close(out)

	remaining := r.cfg.AllowedErrors

	// Prime phase: sample until first success.
	for {
		if r.stopped.Load() || ctx.Err() != nil {
			return
		}
		ts, v, err := r.cfg.Sample(ctx)
		if err != nil {
			if !r.chargeError(&remaining, err) {
				return
			}
			if !sleepCtx(ctx, time.Duration(r.cfg.SamplingIntervalMs)*time.Millisecond) {
				return
			}
			continue
		}
		t := r.stampTime(ts)
		r.t0, r.v0 = t, v
		r.t1, r.v1 = t, v
		r.have01 = true
		if !r.cfg.Interpolate {
			select {
			case out <- Sample{T: t, V: v}:
			case <-ctx.Done():
				return
			}
		}
		break
	}

	// Steady phase.
	for {
		if r.stopped.Load() || ctx.Err() != nil {
			return
		}

		ts, v, err := r.cfg.Sample(ctx)
		if err != nil {
			if !r.chargeError(&remaining, err) {
				return
			}
			continue
		}

		t := r.stampTime(ts)
		execS := float64(t-r.t1)/1000.0 - r.lastSleepS
		r.t0, r.v0 = r.t1, r.v1
		r.t1, r.v1 = t, v
		r.recordExec(execS)

		var sleep time.Duration
		if r.cfg.Interpolate {
			interval := r.cfg.SamplingIntervalMs
			i := r.t1 / interval
			tStar := i * interval
			var w float64
			if r.t1 != r.t0 {
				w = float64(tStar-r.t0) / float64(r.t1-r.t0)
			}
			if tStar < r.t0 || tStar > r.t1 {
				r.cfg.Logger.Warnf("%s: extrapolating grid time %d outside [%d,%d]", r.cfg.Name, tStar, r.t0, r.t1)
			}
			vStar := (1-w)*r.v0 + w*r.v1

			select {
			case out <- Sample{T: tStar, V: vStar}:
			case <-ctx.Done():
				return
			}

			mean := r.meanExec()
			nextTarget := tStar + interval
			biasMs := int64(mean * 1000 * 0.05)
			sleep = time.Duration(nextTarget-t) * time.Millisecond
			sleep += time.Duration(biasMs) * time.Millisecond
			sleep -= time.Duration(mean * float64(time.Second))
		} else {
			select {
			case out <- Sample{T: t, V: v}:
			case <-ctx.Done():
				return
			}
			mean := r.meanExec()
			sleep = time.Duration(r.cfg.SamplingIntervalMs)*time.Millisecond - time.Duration(mean*float64(time.Second))
		}

		if sleep < 0 {
			r.cfg.Logger.Warnf("%s: clamped negative sleep %s to 0", r.cfg.Name, sleep)
			sleep = 0
		}
		r.lastSleepS = sleep.Seconds()
		if !sleepCtx(ctx, sleep) {
			return
		}
	}
}

// chargeError decrements the remaining error budget and records the last
// error. Returns false when the loop must terminate.
func (r *DeviceReader) chargeError(remaining *int, err error) bool {
	if *remaining < 0 {
		return true
	}
	*remaining--
	if *remaining <= 0 {
		r.mu.Lock()
		r.lastErr = fmt.Errorf("%w: %v", ErrErrorBudgetExhausted, err)
		r.mu.Unlock()
		return false
	}
	return true
}

func (r *DeviceReader) stampTime(ts *int64) int64 {
	if r.cfg.UseDeviceTime && ts != nil {
		return *ts
	}
	return Now()
}

func (r *DeviceReader) recordExec(execS float64) {
	idx := r.execN % execWindowSize
	if r.execN >= execWindowSize {
		r.execSum -= r.execWin[idx]
	}
	r.execWin[idx] = execS
	r.execSum += execS
	r.execN++
}

func (r *DeviceReader) meanExec() float64 {
	if r.execN == 0 {
		return 0
	}
	n := r.execN
	if n > execWindowSize {
		n = execWindowSize
	}
	return r.execSum / float64(n)
}

// sleepCtx sleeps for d or returns false early if ctx is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
