// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package relay implements the live ingestion pipeline: a fixed-capacity
// Buffer, the constant-run Compressor, DeviceReader sampling, the
// line-protocol prefix encoder, the fan-in RelayHub, and the signal-driven
// Service that ties their lifetimes together.
package relay

import "time"

// Sample is a single (timestamp, value) measurement. Timestamps are
// milliseconds since the Unix epoch (UTC) and must be monotonic
// non-decreasing within one reader stream; ordering across streams is not
// guaranteed.
type Sample struct {
	T int64
	V float64
}

// Now returns the current time as a millisecond epoch timestamp, the same
// unit used throughout this package.
func Now() int64 {
	return Timestamp(time.Now())
}

// Timestamp converts a wall-clock time to a millisecond epoch timestamp.
func Timestamp(t time.Time) int64 {
	return t.UnixMilli()
}

// Time converts a millisecond epoch timestamp back to a wall-clock time.
func Time(ts int64) time.Time {
	return time.UnixMilli(ts)
}
