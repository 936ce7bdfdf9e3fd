// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package csvsource is a reference source driver for ad-hoc metering
// exports: one file per channel, two columns (epoch-millisecond
// timestamp, value), read chunk-wise. There's no keyset-pagination
// concern here — a file is read forward once — but chunking and the
// begin/end bound semantics match the keyset-paginated drivers so the
// transform/compressor pipeline sees the same chunk shape regardless of
// source.
package csvsource

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/volkszaehler/vzrelay/internal/driver"
	"github.com/volkszaehler/vzrelay/internal/relay"
)

func init() {
	driver.RegisterSource("csv", func(ctx context.Context, rawConfig map[string]any) (driver.Reader, error) {
		cfg, err := configFromMap(rawConfig)
		if err != nil {
			return nil, err
		}
		return Open(cfg)
	})
}

// Config points at a directory of per-channel CSV files named
// "<channel-id>.csv".
type Config struct {
	Dir string
}

func configFromMap(m map[string]any) (Config, error) {
	dir, _ := m["dir"].(string)
	if dir == "" {
		return Config{}, fmt.Errorf("csvsource: dir is required")
	}
	return Config{Dir: dir}, nil
}

// Source is a driver.Reader over a directory of per-channel CSV files.
type Source struct {
	dir string
}

// Open validates that dir exists and is a directory.
func Open(cfg Config) (*Source, error) {
	info, err := os.Stat(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("csvsource: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("csvsource: %s is not a directory", cfg.Dir)
	}
	return &Source{dir: cfg.Dir}, nil
}

// GetChannels lists every "*.csv" file in the directory as one channel,
// id and title both set to the file's base name without extension.
func (s *Source) GetChannels(ctx context.Context) ([]driver.ChannelDescriptor, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("csvsource: read dir failed: %w", err)
	}
	var channels []driver.ChannelDescriptor
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".csv") {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ".csv")
		channels = append(channels, driver.ChannelDescriptor{ID: id, Title: id, Type: "counter"})
	}
	return channels, nil
}

// IterChunks reads channel.ID+".csv" and yields it in chunkSize batches,
// filtering by [begin, end) and stopping at EOF.
func (s *Source) IterChunks(ctx context.Context, channel driver.ChannelDescriptor, begin, end int64, chunkSize int) (driver.ChunkIterator, error) {
	if chunkSize <= 0 {
		chunkSize = 8192
	}
	f, err := os.Open(filepath.Join(s.dir, channel.ID+".csv"))
	if err != nil {
		return nil, fmt.Errorf("csvsource: open failed: %w", err)
	}
	return &chunkIterator{
		f: f, r: csv.NewReader(f),
		begin: begin, end: end, chunkSize: chunkSize,
	}, nil
}

// Close is a no-op: each channel's reader closes its own file handle.
func (s *Source) Close() error { return nil }

type chunkIterator struct {
	f         *os.File
	r         *csv.Reader
	begin, end int64
	chunkSize int
	done      bool
}

func (it *chunkIterator) Next(ctx context.Context) ([]relay.Sample, bool, error) {
	if it.done {
		return nil, false, nil
	}

	var chunk []relay.Sample
	for len(chunk) < it.chunkSize {
		record, err := it.r.Read()
		if err == io.EOF {
			it.done = true
			break
		}
		if err != nil {
			it.done = true
			return nil, false, fmt.Errorf("csvsource: read failed: %w", err)
		}
		if len(record) < 2 {
			continue
		}
		t, err := strconv.ParseInt(strings.TrimSpace(record[0]), 10, 64)
		if err != nil {
			continue
		}
		if it.begin > 0 && t < it.begin {
			continue
		}
		if it.end > 0 && t >= it.end {
			it.done = true
			break
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
		if err != nil {
			continue
		}
		chunk = append(chunk, relay.Sample{T: t, V: v})
	}

	if it.done {
		it.f.Close()
	}
	if len(chunk) == 0 {
		return nil, false, nil
	}
	return chunk, true, nil
}
