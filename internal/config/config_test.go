// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestDefaultsMergeLayering grounds scenario 7 (spec.md §8): an explicit
// zero in the user layer must override a non-zero default, not be treated
// as absent.
func TestDefaultsMergeLayering(t *testing.T) {
	defaults := Defaults{
		MaxGap:  Int64(3),
		AddTags: map[string]string{"key1": "1", "key2": "2", "key3": "val3"},
	}
	user := Defaults{
		MaxGap:  Int64(0),
		AddTags: map[string]string{"key1": "2"},
	}

	merged := defaults.merge(user)

	require.Equal(t, int64(0), merged.GetMaxGap())
	require.Equal(t, map[string]string{"key1": "2", "key2": "2", "key3": "val3"}, merged.AddTags)
}

func TestLoadYAMLIncludeAndExclude(t *testing.T) {
	doc := []byte(`
defaults:
  measurement: volkszaehler
  field_name: value
  chunk_size: 8192
include:
  - "Main *"
  - channel: "Boiler"
    max_gap: 60000
exclude:
  types:
    - "debug*"
source:
  driver: sql
  dsn: ":memory:"
destination:
  driver: influxdb
  host: http://localhost:8086
  bucket: metering
`)
	cfg, err := Load(doc)
	require.NoError(t, err)

	require.Equal(t, "volkszaehler", cfg.Defaults.Measurement)
	require.Equal(t, 8192, cfg.Defaults.GetChunkSize())
	require.Len(t, cfg.Include, 2)
	require.Equal(t, "Main *", cfg.Include[0].Channel)
	require.Equal(t, "Boiler", cfg.Include[1].Channel)
	require.Equal(t, int64(60000), cfg.Include[1].Defaults.GetMaxGap())
	require.Equal(t, []string{"debug*"}, cfg.Exclude.Types)
	require.Equal(t, "sql", cfg.Source.Driver)
	require.Equal(t, "influxdb", cfg.Destination.Driver)

	resolved := cfg.ResolveInclude(cfg.Include[1])
	require.Equal(t, int64(60000), resolved.GetMaxGap())
	require.Equal(t, "volkszaehler", resolved.Measurement)
}

func TestLoadRejectsMissingDriver(t *testing.T) {
	doc := []byte(`
source:
  dsn: ":memory:"
`)
	_, err := Load(doc)
	require.Error(t, err)
}
