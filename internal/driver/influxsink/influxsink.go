// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package influxsink is the reference time-series sink driver: it frames
// samples as line-protocol records behind a precomputed per-stream prefix
// and flushes them to an InfluxDB v2 bucket, either chunk-wise (BulkCopy)
// or as raw pre-built batches (RelayHub writer tasks).
package influxsink

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/volkszaehler/vzrelay/internal/driver"
	"github.com/volkszaehler/vzrelay/internal/relay"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2Api "github.com/influxdata/influxdb-client-go/v2/api"
)

func init() {
	driver.RegisterSink("influxdb", func(ctx context.Context, rawConfig map[string]any) (driver.Writer, error) {
		cfg, err := configFromMap(rawConfig)
		if err != nil {
			return nil, err
		}
		return NewWriter(cfg)
	})
}

// Config is the driver-specific destination config, as laid out under the
// `destination:` section of the YAML config.
type Config struct {
	URL         string
	Token       string
	Org         string
	Bucket      string
	SkipTLS     bool
	Measurement string
	FieldName   string
	BufferSize  int
}

func configFromMap(m map[string]any) (Config, error) {
	get := func(k string) string {
		if v, ok := m[k]; ok {
			s, _ := v.(string)
			return s
		}
		return ""
	}
	cfg := Config{
		URL:         get("host"),
		Token:       get("secret"),
		Org:         get("org"),
		Bucket:      get("bucket"),
		Measurement: get("measurement"),
		FieldName:   get("field_name"),
	}
	if cfg.URL == "" || cfg.Bucket == "" {
		return cfg, fmt.Errorf("influxsink: host and bucket are required")
	}
	if cfg.Measurement == "" {
		cfg.Measurement = "volkszaehler"
	}
	if cfg.FieldName == "" {
		cfg.FieldName = "value"
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = relay.DefaultBufferCapacity
	}
	return cfg, nil
}

// Writer buffers line-protocol-framed samples for one channel and flushes
// them to InfluxDB when full or on Close, per SPEC_FULL's sink-framing
// rules (prefix precomputed once, appended per sample, hwm-triggered
// flush).
type Writer struct {
	client    influxdb2.Client
	writeAPI  influxdb2Api.WriteAPIBlocking
	buf       *relay.Buffer
	prefix    []byte
	hasPrefix bool
}

// NewWriter opens an InfluxDB client and returns a driver.Writer for bulk
// copy. The line-protocol prefix (tags/field name) is set once per
// channel via SetTags before the first WriteChunk call.
func NewWriter(cfg Config) (*Writer, error) {
	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token,
		influxdb2.DefaultOptions().SetTLSConfig(&tls.Config{InsecureSkipVerify: cfg.SkipTLS})) //nolint:gosec // operator-controlled self-signed dev endpoints
	writeAPI := client.WriteAPIBlocking(cfg.Org, cfg.Bucket)

	buf, err := relay.NewBuffer(cfg.BufferSize, 0)
	if err != nil {
		client.Close()
		return nil, err
	}

	w := &Writer{client: client, writeAPI: writeAPI, buf: buf}
	w.SetTags(cfg.Measurement, nil, cfg.FieldName)
	return w, nil
}

// SetTags (re)computes the per-channel line-protocol prefix. Call before
// the first WriteChunk for a given channel; BulkCopy calls this once per
// copy task.
func (w *Writer) SetTags(measurement string, tags map[string]string, fieldName string) {
	w.prefix = relay.BuildPrefix(measurement, tags, fieldName)
	w.hasPrefix = true
}

// WriteChunk appends each sample to the internal buffer, flushing to
// InfluxDB whenever the buffer's hwm is reached.
func (w *Writer) WriteChunk(ctx context.Context, samples []relay.Sample) error {
	if !w.hasPrefix {
		return fmt.Errorf("influxsink: SetTags was never called")
	}
	for _, s := range samples {
		line := relay.AppendLine(nil, w.prefix, s.V, s.T)
		if err := w.buf.Write(line); err != nil {
			if err := w.flush(ctx); err != nil {
				return err
			}
			if err := w.buf.Write(line); err != nil {
				return fmt.Errorf("influxsink: single line exceeds buffer capacity: %w", err)
			}
		}
		if w.buf.IsFull() {
			if err := w.flush(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *Writer) flush(ctx context.Context) error {
	batch := w.buf.Flush()
	if batch == nil {
		return nil
	}
	return w.writeAPI.WriteRecord(ctx, string(batch))
}

// Close flushes residual buffered data and closes the client connection.
func (w *Writer) Close() error {
	err := w.flush(context.Background())
	w.client.Close()
	return err
}

// batchSink implements relay.BatchSink for the RelayHub's raw
// pre-built-batch write path with its own client, independent of Writer:
// each attempt opens a fresh client, POSTs the already-framed batch, and
// closes.
type batchSink struct {
	client   influxdb2.Client
	writeAPI influxdb2Api.WriteAPIBlocking
}

// NewSinkFactory returns a relay.SinkFactory that opens a fresh InfluxDB
// connection per write attempt, matching the hub's "no connection
// pooling" writer contract.
func NewSinkFactory(cfg Config) relay.SinkFactory {
	return func(ctx context.Context) (relay.BatchSink, error) {
		client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token,
			influxdb2.DefaultOptions().SetTLSConfig(&tls.Config{InsecureSkipVerify: cfg.SkipTLS})) //nolint:gosec
		return &batchSink{client: client, writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket)}, nil
	}
}

func (s *batchSink) WriteBatch(ctx context.Context, batch []byte) error {
	return s.writeAPI.WriteRecord(ctx, string(batch))
}

func (s *batchSink) Close() error {
	s.client.Close()
	return nil
}
