// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package csvsink

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/volkszaehler/vzrelay/internal/relay"

	"github.com/stretchr/testify/require"
)

func TestWriteChunkAppendsRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")

	w, err := Open(Config{Path: path})
	require.NoError(t, err)

	require.NoError(t, w.WriteChunk(context.Background(), []relay.Sample{{T: 1, V: 1.5}, {T: 2, V: 2.5}}))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "1,1.5\n2,2.5\n", string(data))
}
