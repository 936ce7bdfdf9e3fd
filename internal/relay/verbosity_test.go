// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package relay

import (
	"flag"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVerbosityLevels(t *testing.T) {
	var v Verbosity
	require.Equal(t, "warn", v.LogLevel())
	require.False(t, v.RuntimeDebug())

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.Var(&v, "v", "")
	require.NoError(t, fs.Parse([]string{"-v", "-v", "-v"}))

	require.Equal(t, "debug", v.LogLevel())
	require.True(t, v.RuntimeDebug())
}
