// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package driver

import (
	"fmt"
	"sync"
)

var (
	mu      sync.RWMutex
	sources = map[string]SourceFactory{}
	sinks   = map[string]SinkFactory{}
)

// RegisterSource makes a source driver available under name (as used in
// config's `source.driver` / `destination.driver` key). Intended to be
// called from each driver package's init().
func RegisterSource(name string, f SourceFactory) {
	mu.Lock()
	defer mu.Unlock()
	sources[name] = f
}

// RegisterSink makes a sink driver available under name.
func RegisterSink(name string, f SinkFactory) {
	mu.Lock()
	defer mu.Unlock()
	sinks[name] = f
}

// LookupSource resolves a registered source factory by driver name.
func LookupSource(name string) (SourceFactory, error) {
	mu.RLock()
	defer mu.RUnlock()
	f, ok := sources[name]
	if !ok {
		return nil, fmt.Errorf("driver: unknown source driver %q", name)
	}
	return f, nil
}

// LookupSink resolves a registered sink factory by driver name.
func LookupSink(name string) (SinkFactory, error) {
	mu.RLock()
	defer mu.RUnlock()
	f, ok := sinks[name]
	if !ok {
		return nil, fmt.Errorf("driver: unknown sink driver %q", name)
	}
	return f, nil
}
