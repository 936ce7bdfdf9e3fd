// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sqlsource

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"

	"github.com/klauspost/compress/gzip"

	"github.com/volkszaehler/vzrelay/internal/driver"

	"github.com/stretchr/testify/require"
)

func TestDumpCheckpointWritesGzippedCSV(t *testing.T) {
	s := openTestDB(t)
	defer s.Close()

	_, err := s.db.Exec(`INSERT INTO entities (id, uuid, class, type) VALUES ('1', 'u1', 'channel', 'power')`)
	require.NoError(t, err)
	_, err = s.db.Exec(`INSERT INTO data (channel_id, timestamp, value) VALUES ('1', 1000, 1.5), ('1', 2000, 2.5)`)
	require.NoError(t, err)

	var buf bytes.Buffer
	err = s.DumpCheckpoint(context.Background(), &buf, driver.ChannelDescriptor{ID: "1"}, 0, 0, 512)
	require.NoError(t, err)

	gz, err := gzip.NewReader(&buf)
	require.NoError(t, err)
	defer gz.Close()

	rows, err := csv.NewReader(gz).ReadAll()
	require.NoError(t, err)
	require.Equal(t, [][]string{{"1000", "1.5"}, {"2000", "2.5"}}, rows)
}
