// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package relay

import cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"

// Logger is the minimal logging surface components in this package need.
// Components accept one at construction time (DeviceReader, Hub); when
// none is given they fall back to cclogAdapter, which forwards to the
// package-level cclog functions the rest of the tree uses.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

type cclogAdapter struct{}

func (cclogAdapter) Debugf(format string, args ...any) { cclog.Debugf(format, args...) }
func (cclogAdapter) Infof(format string, args ...any)  { cclog.Infof(format, args...) }
func (cclogAdapter) Warnf(format string, args ...any)  { cclog.Warnf(format, args...) }
func (cclogAdapter) Errorf(format string, args ...any) { cclog.Errorf(format, args...) }

// DefaultLogger is the cclog-backed Logger used when a component is
// constructed without one.
var DefaultLogger Logger = cclogAdapter{}
