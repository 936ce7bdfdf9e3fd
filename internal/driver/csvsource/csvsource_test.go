// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package csvsource

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/volkszaehler/vzrelay/internal/driver"

	"github.com/stretchr/testify/require"
)

func TestGetChannelsAndIterChunks(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.csv"), []byte("1000,1.5\n2000,2.5\n3000,3.5\n"), 0o644))

	src, err := Open(Config{Dir: dir})
	require.NoError(t, err)

	channels, err := src.GetChannels(context.Background())
	require.NoError(t, err)
	require.Len(t, channels, 1)
	require.Equal(t, "main", channels[0].ID)

	it, err := src.IterChunks(context.Background(), channels[0], 0, 0, 2)
	require.NoError(t, err)

	chunk, ok, err := it.Next(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, chunk, 2)

	chunk, ok, err = it.Next(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, chunk, 1)

	_, ok, err = it.Next(context.Background())
	require.NoError(t, err)
	require.False(t, ok)
}

func TestIterChunksRespectsBounds(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.csv"), []byte("1000,1\n2000,2\n3000,3\n"), 0o644))

	src, err := Open(Config{Dir: dir})
	require.NoError(t, err)

	it, err := src.IterChunks(context.Background(), driver.ChannelDescriptor{ID: "main"}, 1500, 3000, 64)
	require.NoError(t, err)

	chunk, ok, err := it.Next(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, chunk, 1)
	require.Equal(t, int64(2000), chunk[0].T)

	_, ok, err = it.Next(context.Background())
	require.NoError(t, err)
	require.False(t, ok)
}
