// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package bulkcopy

import (
	"regexp"
	"strings"
	"sync"
)

var (
	globCacheMu sync.Mutex
	globCache   = map[string]*regexp.Regexp{}
)

// compileGlob translates a wildcard glob ('*' -> '.*', '?' -> '.') into an
// anchored regular expression and caches the result; include/exclude
// matching runs this against every channel on every bulk-copy plan, so the
// same pattern is compiled once.
func compileGlob(pattern string) *regexp.Regexp {
	globCacheMu.Lock()
	defer globCacheMu.Unlock()
	if re, ok := globCache[pattern]; ok {
		return re
	}

	var b strings.Builder
	b.WriteString("^")
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")

	re := regexp.MustCompile(b.String())
	globCache[pattern] = re
	return re
}

// globMatch reports whether s matches the wildcard glob pattern.
func globMatch(pattern, s string) bool {
	return compileGlob(pattern).MatchString(s)
}
