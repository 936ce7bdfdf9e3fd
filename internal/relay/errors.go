// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package relay

import "errors"

var (
	// ErrOverflow is returned by Buffer.Write when the write would exceed
	// capacity. The buffer is left unchanged.
	ErrOverflow = errors.New("relay: buffer overflow")

	// ErrHwmTooLarge is returned by NewBuffer when hwm > capacity.
	ErrHwmTooLarge = errors.New("relay: hwm exceeds capacity")

	// ErrStopped names a stopped reader. DeviceReader does not return it:
	// after a Stop-triggered exit its Err() is nil.
	ErrStopped = errors.New("relay: reader stopped")

	// ErrErrorBudgetExhausted is surfaced once a DeviceReader's
	// allowed_errors budget reaches zero.
	ErrErrorBudgetExhausted = errors.New("relay: sampling error budget exhausted")
)
