// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command vzrelay-bulkcopy bulk-copies a relational time-series archive
// into the same target store the live relay writes to. It is the Go
// analogue of the original vzclient's bin/db_copy.py entrypoint (see
// SPEC_FULL.md §C). A single run plans and executes every matched channel
// once; `-every` turns it into a periodic job via gocron, for archives
// that accumulate new rows and need a repeated catch-up copy.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/volkszaehler/vzrelay/internal/bulkcopy"
	"github.com/volkszaehler/vzrelay/internal/config"
	"github.com/volkszaehler/vzrelay/internal/driver"
	"github.com/volkszaehler/vzrelay/internal/relay"

	_ "github.com/volkszaehler/vzrelay/internal/driver/csvsink"
	_ "github.com/volkszaehler/vzrelay/internal/driver/csvsource"
	_ "github.com/volkszaehler/vzrelay/internal/driver/influxsink"
	_ "github.com/volkszaehler/vzrelay/internal/driver/sqlsource"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"
	"github.com/go-co-op/gocron/v2"
	"github.com/google/gops/agent"
)

func main() {
	os.Exit(run())
}

func run() int {
	var verbosity relay.Verbosity
	var logFile string
	var every time.Duration
	flag.Var(&verbosity, "v", "increase log verbosity (repeatable)")
	flag.StringVar(&logFile, "l", "", "write logs to `path` instead of stdout")
	flag.DurationVar(&every, "every", 0, "re-run the copy on this interval instead of once (e.g. 1h)")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: vzrelay-bulkcopy [-v...] [-l path] [-every duration] <config.yaml>")
		return 2
	}

	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "vzrelay-bulkcopy: cannot open log file: %v\n", err)
			return 2
		}
		defer f.Close()
		os.Stdout = f
	}
	cclog.Init(verbosity.LogLevel(), true)

	if verbosity.RuntimeDebug() {
		if err := agent.Listen(agent.Options{}); err != nil {
			cclog.Warnf("vzrelay-bulkcopy: gops/agent.Listen failed: %v", err)
		}
	}

	data, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		cclog.Errorf("vzrelay-bulkcopy: cannot read config: %v", err)
		return 2
	}
	cfg, err := config.Load(data)
	if err != nil {
		cclog.Errorf("vzrelay-bulkcopy: config error: %v", err)
		return 2
	}
	if cfg.Source == nil || cfg.Destination == nil {
		cclog.Errorf("vzrelay-bulkcopy: config must set both source and destination")
		return 2
	}

	if every > 0 {
		return runPeriodic(cfg, every)
	}
	if err := runOnce(context.Background(), cfg); err != nil {
		cclog.Errorf("vzrelay-bulkcopy: %v", err)
		return 1
	}
	return 0
}

func runOnce(ctx context.Context, cfg *config.Config) error {
	sourceFactory, err := driver.LookupSource(cfg.Source.Driver)
	if err != nil {
		return err
	}
	src, err := sourceFactory(ctx, cfg.Source.Raw)
	if err != nil {
		return fmt.Errorf("vzrelay-bulkcopy: source open failed: %w", err)
	}
	defer src.Close()

	sinkFactory, err := driver.LookupSink(cfg.Destination.Driver)
	if err != nil {
		return err
	}

	plans, err := bulkcopy.Plan(ctx, src, cfg)
	if err != nil {
		return err
	}
	cclog.Infof("vzrelay-bulkcopy: %d channel(s) matched for copy", len(plans))

	return bulkcopy.Run(ctx, src, func(ctx context.Context) (driver.Writer, error) {
		return sinkFactory(ctx, cfg.Destination.Raw)
	}, plans)
}

// runPeriodic schedules runOnce on a fixed interval using gocron,
// following the teacher's internal/taskmanager periodic-worker shape
// (one scheduler, one job, graceful shutdown on signal).
func runPeriodic(cfg *config.Config, every time.Duration) int {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		cclog.Errorf("vzrelay-bulkcopy: scheduler init failed: %v", err)
		return 1
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(every),
		gocron.NewTask(func() {
			if err := runOnce(context.Background(), cfg); err != nil {
				cclog.Errorf("vzrelay-bulkcopy: periodic run failed: %v", err)
			}
		}),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		cclog.Errorf("vzrelay-bulkcopy: job registration failed: %v", err)
		return 1
	}

	scheduler.Start()

	svc, stopCtx := relay.NewService(context.Background(), false, func(sig os.Signal) {
		cclog.Infof("vzrelay-bulkcopy: received %s, stopping scheduler", sig)
	})
	<-stopCtx.Done()
	svc.Close()

	if err := scheduler.Shutdown(); err != nil {
		cclog.Warnf("vzrelay-bulkcopy: scheduler shutdown: %v", err)
	}
	return 0
}
