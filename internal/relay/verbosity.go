// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package relay

import "strconv"

// Verbosity is a repeatable flag.Value counting how many times -v was
// given: 0=warning, 1=info, 2=debug, >=3=debug plus runtime debug info
// (gops), per spec.md §6's CLI contract.
type Verbosity int

func (v *Verbosity) String() string {
	return strconv.Itoa(int(*v))
}

// Set is called once per occurrence of -v; as a bool-style flag it
// receives "true" (or the text after -v=), which is ignored.
func (v *Verbosity) Set(string) error {
	*v++
	return nil
}

// IsBoolFlag marks this as a flag.Value that doesn't consume the next
// argument, the same trick the standard library's own BoolVar uses, so
// `-v -v -v` repeats rather than erroring on a missing value.
func (v *Verbosity) IsBoolFlag() bool { return true }

// LogLevel maps the -v count to the cclog level name.
func (v Verbosity) LogLevel() string {
	switch {
	case v <= 0:
		return "warn"
	case v == 1:
		return "info"
	default:
		return "debug"
	}
}

// RuntimeDebug reports whether -vvv (or more) was given, enabling
// process-introspection tooling (gops) in addition to debug logging.
func (v Verbosity) RuntimeDebug() bool {
	return v >= 3
}
