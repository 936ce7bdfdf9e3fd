// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command vzrelay runs the live ingestion pipeline: it samples or
// subscribes to a configured source, fans every stream through a
// RelayHub, and writes batches to the configured sink. See spec.md §6
// for the CLI contract this implements.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/volkszaehler/vzrelay/internal/config"
	"github.com/volkszaehler/vzrelay/internal/driver/influxsink"
	"github.com/volkszaehler/vzrelay/internal/driver/modbusdriver"
	"github.com/volkszaehler/vzrelay/internal/driver/natssource"
	"github.com/volkszaehler/vzrelay/internal/relay"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"
	"github.com/google/gops/agent"
)

func main() {
	os.Exit(run())
}

func run() int {
	var verbosity relay.Verbosity
	var logFile string
	flag.Var(&verbosity, "v", "increase log verbosity (repeatable)")
	flag.StringVar(&logFile, "l", "", "write logs to `path` instead of stdout")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: vzrelay [-v...] [-l path] <config.yaml>")
		return 2
	}

	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "vzrelay: cannot open log file: %v\n", err)
			return 2
		}
		defer f.Close()
		// cclog writes to stdout when told to; redirect the process's
		// stdout to the configured file rather than guess at a
		// logger-specific output setter.
		os.Stdout = f
	}
	cclog.Init(verbosity.LogLevel(), true)

	if verbosity.RuntimeDebug() {
		if err := agent.Listen(agent.Options{}); err != nil {
			cclog.Warnf("vzrelay: gops/agent.Listen failed: %v", err)
		}
	}

	data, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		cclog.Errorf("vzrelay: cannot read config: %v", err)
		return 2
	}
	cfg, err := config.Load(data)
	if err != nil {
		cclog.Errorf("vzrelay: config error: %v", err)
		return 2
	}
	if cfg.Source == nil || cfg.Destination == nil {
		cclog.Errorf("vzrelay: config must set both source and destination")
		return 2
	}

	if err := serve(cfg); err != nil {
		cclog.Errorf("vzrelay: %v", err)
		return 1
	}
	return 0
}

// serve builds the hub, starts reader and writer tasks per the
// configured source/destination drivers, and blocks until an interrupt
// or terminate signal triggers an orderly shutdown.
func serve(cfg *config.Config) error {
	hub, err := relay.NewHub(relay.HubConfig{
		BufferSize:   cfg.Defaults.GetBufferSize(),
		MaxBufferAge: 5 * time.Second,
		MaxRetries:   -1,
	})
	if err != nil {
		return fmt.Errorf("hub construction failed: %w", err)
	}

	sinkFactory, err := buildSinkFactory(cfg)
	if err != nil {
		return err
	}

	readerCtx, cancelReaders := context.WithCancel(context.Background())
	writerCtx, cancelWriters := context.WithCancel(context.Background())

	svc, stopCtx := relay.NewService(context.Background(), false, func(sig os.Signal) {
		cclog.Infof("vzrelay: received %s, shutting down", sig)
	})
	defer svc.Close()

	if err := startSources(readerCtx, cfg, hub); err != nil {
		cancelReaders()
		cancelWriters()
		return err
	}

	hub.StartWriters(writerCtx, 1, sinkFactory)

	<-stopCtx.Done()
	hub.Stop(cancelReaders, cancelWriters, 300*time.Second)
	return nil
}

// buildSinkFactory resolves the destination driver into a
// relay.SinkFactory for the hub's writer tasks. Only "influxdb" is wired
// here; other registered driver.Writer-based sinks serve the bulk-copy
// chunked path instead, since they don't expose a raw-batch POST.
func buildSinkFactory(cfg *config.Config) (relay.SinkFactory, error) {
	switch cfg.Destination.Driver {
	case "influxdb":
		sinkCfg, err := influxConfigFromRaw(cfg.Destination.Raw, cfg.Defaults)
		if err != nil {
			return nil, err
		}
		return influxsink.NewSinkFactory(sinkCfg), nil
	default:
		return nil, fmt.Errorf("vzrelay: destination driver %q has no live-mode sink factory", cfg.Destination.Driver)
	}
}

func influxConfigFromRaw(m map[string]any, d config.Defaults) (influxsink.Config, error) {
	str := func(k string) string {
		v, _ := m[k].(string)
		return v
	}
	cfg := influxsink.Config{
		URL:         str("host"),
		Token:       str("secret"),
		Org:         str("org"),
		Bucket:      str("bucket"),
		Measurement: d.Measurement,
		FieldName:   d.FieldName,
		BufferSize:  d.GetBufferSize(),
	}
	if cfg.URL == "" || cfg.Bucket == "" {
		return cfg, fmt.Errorf("vzrelay: destination.host and destination.bucket are required")
	}
	if cfg.Measurement == "" {
		cfg.Measurement = "volkszaehler"
	}
	if cfg.FieldName == "" {
		cfg.FieldName = "value"
	}
	return cfg, nil
}

// startSources wires the configured source driver's live samples into
// the hub, one StartReader call per physical stream.
func startSources(ctx context.Context, cfg *config.Config, hub *relay.Hub) error {
	switch cfg.Source.Driver {
	case "nats":
		return startNatsSource(ctx, cfg, hub)
	case "modbus":
		return startModbusSource(ctx, cfg, hub)
	default:
		return fmt.Errorf("vzrelay: source driver %q has no live-mode reader", cfg.Source.Driver)
	}
}

func startNatsSource(ctx context.Context, cfg *config.Config, hub *relay.Hub) error {
	str := func(k string) string {
		v, _ := cfg.Source.Raw[k].(string)
		return v
	}
	ncfg := natssource.Config{
		Address:  str("address"),
		Username: str("username"),
		Password: str("password"),
		Subject:  str("subject"),
		Queue:    str("queue"),
	}
	src, err := natssource.Connect(ncfg, relay.DefaultLogger)
	if err != nil {
		return err
	}
	samples, err := src.Subscribe(ctx, ncfg)
	if err != nil {
		return err
	}

	measurement := cfg.Defaults.Measurement
	if measurement == "" {
		measurement = "volkszaehler"
	}
	fieldName := cfg.Defaults.FieldName
	if fieldName == "" {
		fieldName = "value"
	}
	prefix := relay.BuildPrefix(measurement, cfg.Defaults.AddTags, fieldName)
	hub.StartReader(ctx, prefix, samples)

	go func() {
		<-ctx.Done()
		src.Close()
	}()
	return nil
}

// modbusChannel is one entry of source.channels in the YAML config for
// the modbus live source.
type modbusChannel struct {
	Name     string
	UUID     string
	Register uint16
}

func startModbusSource(ctx context.Context, cfg *config.Config, hub *relay.Hub) error {
	addr, _ := cfg.Source.Raw["address"].(string)
	if addr == "" {
		return fmt.Errorf("vzrelay: source.address is required for the modbus driver")
	}

	raw, _ := cfg.Source.Raw["channels"].([]any)
	if len(raw) == 0 {
		return fmt.Errorf("vzrelay: source.channels must list at least one register to poll")
	}

	measurement := cfg.Defaults.Measurement
	if measurement == "" {
		measurement = "volkszaehler"
	}
	fieldName := cfg.Defaults.FieldName
	if fieldName == "" {
		fieldName = "value"
	}

	for _, entry := range raw {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		ch := modbusChannel{}
		ch.Name, _ = m["name"].(string)
		ch.UUID, _ = m["uuid"].(string)
		if reg, ok := m["register"].(int); ok {
			ch.Register = uint16(reg)
		}

		dev, err := modbusdriver.Dial(modbusdriver.Config{Address: addr})
		if err != nil {
			return err
		}

		reader := relay.NewDeviceReader(relay.DeviceReaderConfig{
			Sample:             dev.Sample(ch.Register),
			SamplingIntervalMs: 1000,
			Interpolate:        false,
			AllowedErrors:      -1,
			Name:               ch.Name,
		})

		tags := map[string]string{"uuid": ch.UUID}
		for k, v := range cfg.Defaults.AddTags {
			tags[k] = v
		}
		prefix := relay.BuildPrefix(measurement, tags, fieldName)
		hub.StartReader(ctx, prefix, reader.Run(ctx))

		go func(dev *modbusdriver.Device) {
			<-ctx.Done()
			dev.Close()
		}(dev)
	}
	return nil
}
