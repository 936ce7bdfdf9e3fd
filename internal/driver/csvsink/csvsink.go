// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package csvsink is a reference sink driver for ad-hoc metering exports:
// one append-only CSV file per destination, two columns (epoch-millisecond
// timestamp, value). Like csvsource, it's plain stdlib format work with no
// ecosystem library to wire in (see DESIGN.md).
package csvsink

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/volkszaehler/vzrelay/internal/driver"
	"github.com/volkszaehler/vzrelay/internal/relay"
)

func init() {
	driver.RegisterSink("csv", func(ctx context.Context, rawConfig map[string]any) (driver.Writer, error) {
		cfg, err := configFromMap(rawConfig)
		if err != nil {
			return nil, err
		}
		return Open(cfg)
	})
}

// Config names the destination file.
type Config struct {
	Path string
}

func configFromMap(m map[string]any) (Config, error) {
	path, _ := m["path"].(string)
	if path == "" {
		return Config{}, fmt.Errorf("csvsink: path is required")
	}
	return Config{Path: path}, nil
}

// Writer appends (timestamp, value) rows to a CSV file, flushing after
// every WriteChunk call; there's no internal buffering to amortize since
// the underlying csv.Writer already batches its own small write calls.
type Writer struct {
	f *os.File
	w *csv.Writer
}

// Open creates/appends to cfg.Path.
func Open(cfg Config) (*Writer, error) {
	f, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("csvsink: open failed: %w", err)
	}
	return &Writer{f: f, w: csv.NewWriter(f)}, nil
}

// SetTags is a no-op for csvsink: the CSV format carries no tags, just
// rows for one channel's file. Present so bulkcopy's uniform tagger
// check doesn't special-case this driver.
func (w *Writer) SetTags(measurement string, tags map[string]string, fieldName string) {}

// WriteChunk appends one row per sample and flushes.
func (w *Writer) WriteChunk(ctx context.Context, samples []relay.Sample) error {
	for _, s := range samples {
		record := []string{strconv.FormatInt(s.T, 10), strconv.FormatFloat(s.V, 'g', -1, 64)}
		if err := w.w.Write(record); err != nil {
			return fmt.Errorf("csvsink: write failed: %w", err)
		}
	}
	w.w.Flush()
	return w.w.Error()
}

// Close flushes and closes the underlying file.
func (w *Writer) Close() error {
	w.w.Flush()
	if err := w.w.Error(); err != nil {
		w.f.Close()
		return err
	}
	return w.f.Close()
}
