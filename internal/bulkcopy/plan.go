// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package bulkcopy implements the offline bulk-copy engine: it plans
// which channels to copy by running include/exclude glob rules against a
// source's channel list, then runs one copy task per matched channel
// through the transform/compressor pipeline into the destination driver.
package bulkcopy

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/volkszaehler/vzrelay/internal/config"
	"github.com/volkszaehler/vzrelay/internal/driver"
	"github.com/volkszaehler/vzrelay/internal/units"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"
)

// PlannedCopy is one channel selected for copying, with its fully
// resolved (defaults + include overrides) options.
type PlannedCopy struct {
	Channel driver.ChannelDescriptor
	Options config.Defaults
}

// Plan calls src.GetChannels and applies exclude-then-include matching
// per spec.md §4.6: excludes win over includes; the first matching
// include rule (by channel name) selects a channel's resolved options.
func Plan(ctx context.Context, src driver.Reader, cfg *config.Config) ([]PlannedCopy, error) {
	channels, err := src.GetChannels(ctx)
	if err != nil {
		return nil, fmt.Errorf("bulkcopy: GetChannels failed: %w", err)
	}

	excludes := cfg.Exclude.AsMap()

	var planned []PlannedCopy
	for _, ch := range channels {
		if isExcluded(ch, excludes) {
			continue
		}
		rule, ok := firstMatchingInclude(cfg.Include, ch.Name())
		if !ok {
			continue
		}
		planned = append(planned, PlannedCopy{
			Channel: ch,
			Options: cfg.ResolveInclude(rule),
		})
	}
	return planned, nil
}

func isExcluded(ch driver.ChannelDescriptor, excludes map[string][]string) bool {
	for attr, patterns := range excludes {
		v, ok := ch.Attr(attr)
		if !ok {
			continue
		}
		for _, p := range patterns {
			if globMatch(p, v) {
				return true
			}
		}
	}
	return false
}

func firstMatchingInclude(rules []config.IncludeRule, name string) (config.IncludeRule, bool) {
	for _, r := range rules {
		if globMatch(r.Channel, name) {
			return r, true
		}
	}
	return config.IncludeRule{}, false
}

// Run executes every planned copy task concurrently and returns once all
// complete. Per spec.md §4.6, a single channel's failure is logged and
// does not stop its siblings; once every task has finished, all channel
// errors (if any) are returned joined with errors.Join.
func Run(ctx context.Context, src driver.Reader, dst func(ctx context.Context) (driver.Writer, error), plans []PlannedCopy) error {
	var wg sync.WaitGroup
	errs := make([]error, len(plans))

	for i, p := range plans {
		wg.Add(1)
		go func(i int, p PlannedCopy) {
			defer wg.Done()
			if err := CopyChannel(ctx, src, dst, p); err != nil {
				cclog.Errorf("bulkcopy: channel %s failed: %v", p.Channel.Name(), err)
				errs[i] = err
			}
		}(i, p)
	}
	wg.Wait()

	return errors.Join(errs...)
}

// CopyChannel streams one channel through the configured transform and
// compressor stages into dst.
func CopyChannel(ctx context.Context, src driver.Reader, dst func(ctx context.Context) (driver.Writer, error), p PlannedCopy) error {
	begin, err := p.Options.BeginTime()
	if err != nil {
		return err
	}
	end, err := p.Options.EndTime()
	if err != nil {
		return err
	}

	chunkSize := p.Options.GetChunkSize()
	if chunkSize <= 0 {
		chunkSize = 8192
	}

	raw, err := src.IterChunks(ctx, p.Channel, epochMs(begin), epochMs(end), chunkSize)
	if err != nil {
		return fmt.Errorf("bulkcopy: IterChunks failed for %s: %w", p.Channel.Name(), err)
	}

	transform, err := newTransform(p.Options.Transform, p.Channel)
	if err != nil {
		return err
	}
	it := newTransformIterator(raw, transform, p.Options.GetMaxGap())

	w, err := dst(ctx)
	if err != nil {
		return fmt.Errorf("bulkcopy: destination open failed for %s: %w", p.Channel.Name(), err)
	}
	defer w.Close()

	tags, err := resolveTags(p.Channel, p.Options)
	if err != nil {
		return err
	}
	if tagger, ok := w.(interface {
		SetTags(measurement string, tags map[string]string, fieldName string)
	}); ok {
		measurement := p.Options.Measurement
		if measurement == "" {
			measurement = "volkszaehler"
		}
		fieldName := p.Options.FieldName
		if fieldName == "" {
			fieldName = "value"
		}
		tagger.SetTags(measurement, tags, fieldName)
	}

	for {
		chunk, ok, err := it.Next(ctx)
		if err != nil {
			return fmt.Errorf("bulkcopy: chunk read failed for %s: %w", p.Channel.Name(), err)
		}
		if !ok {
			return nil
		}
		if len(chunk) == 0 {
			continue
		}
		if err := w.WriteChunk(ctx, chunk); err != nil {
			return fmt.Errorf("bulkcopy: write failed for %s: %w", p.Channel.Name(), err)
		}
	}
}

func epochMs(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

// resolveTags builds the sink tag set from copy_tags/add_tags per
// spec.md §4.6: unit resolves from the channel else the type-to-unit
// default table, failing loudly when neither is available; uuid falls
// back to "<none>"; title/name resolves to the channel's display name.
func resolveTags(ch driver.ChannelDescriptor, opts config.Defaults) (map[string]string, error) {
	tags := make(map[string]string, len(opts.CopyTags)+len(opts.AddTags))
	for _, attr := range opts.CopyTags {
		switch attr {
		case "unit":
			u := ch.Unit
			if u == "" {
				u = units.ForType(ch.Type)
			}
			if u == "" {
				return nil, fmt.Errorf("bulkcopy: channel %s has no unit and type %q has no default", ch.Name(), ch.Type)
			}
			tags["unit"] = u
		case "uuid":
			if ch.UUID != "" {
				tags["uuid"] = ch.UUID
			} else {
				tags["uuid"] = "<none>"
			}
		case "title", "name":
			tags[attr] = ch.Name()
		default:
			if v, ok := ch.Attr(attr); ok {
				tags[attr] = v
			}
		}
	}
	for k, v := range opts.AddTags {
		tags[k] = v
	}
	return tags, nil
}
