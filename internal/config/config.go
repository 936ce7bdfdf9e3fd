// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config loads and validates the YAML configuration that drives
// both the live relay and the bulk-copy tool: `defaults`, `include`,
// `exclude`, and the tool-specific `source`/`destination`/`logs` sections.
// Decoding goes through a JSON bridge so the same jsonschema document the
// teacher uses for its JSON configs can validate this YAML one.
package config

import (
	"encoding/json"
	"fmt"
	"time"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"
	"gopkg.in/yaml.v3"
)

// TimeLayout is the wall-clock format accepted for `begin`/`end` bounds:
// "YYYY-MM-DD HH:MM:SS".
const TimeLayout = "2006-01-02 15:04:05"

// Transform describes a per-channel value transform applied before the
// optional compressor stage.
type Transform struct {
	Type   string  `json:"type" yaml:"type"`
	Scale  float64 `json:"scale" yaml:"scale"`
	Offset float64 `json:"offset" yaml:"offset"`
}

// Defaults holds the `defaults:` section, overlaid per-include by any
// include-specific overrides.
//
// MaxGap, ChunkSize, and BufferSize are pointers so merge can tell "not set
// in this layer" (nil) apart from "explicitly set to zero" (non-nil, *v ==
// 0) — scenario 7 in spec.md §8 requires the latter to override a
// non-zero default.
type Defaults struct {
	Begin       string            `json:"begin" yaml:"begin"`
	End         string            `json:"end" yaml:"end"`
	MaxGap      *int64            `json:"max_gap" yaml:"max_gap"`
	Measurement string            `json:"measurement" yaml:"measurement"`
	FieldName   string            `json:"field_name" yaml:"field_name"`
	CopyTags    []string          `json:"copy_tags" yaml:"copy_tags"`
	AddTags     map[string]string `json:"add_tags" yaml:"add_tags"`
	ChunkSize   *int              `json:"chunk_size" yaml:"chunk_size"`
	Transform   *Transform        `json:"transform" yaml:"transform"`
	BufferSize  *int              `json:"buffer_size" yaml:"buffer_size"`
}

// Int64 and Int build the pointers Defaults' nilable fields need, the same
// convenience shape SDKs like aws-sdk-go use for optional scalars.
func Int64(v int64) *int64 { return &v }
func Int(v int) *int       { return &v }

// GetMaxGap returns the configured max_gap, or 0 when unset.
func (d Defaults) GetMaxGap() int64 {
	if d.MaxGap == nil {
		return 0
	}
	return *d.MaxGap
}

// GetChunkSize returns the configured chunk_size, or 0 when unset.
func (d Defaults) GetChunkSize() int {
	if d.ChunkSize == nil {
		return 0
	}
	return *d.ChunkSize
}

// GetBufferSize returns the configured buffer_size, or 0 when unset.
func (d Defaults) GetBufferSize() int {
	if d.BufferSize == nil {
		return 0
	}
	return *d.BufferSize
}

// BeginTime parses Begin per TimeLayout. Zero value means unbounded.
func (d Defaults) BeginTime() (time.Time, error) { return parseBound(d.Begin) }

// EndTime parses End per TimeLayout. Zero value means unbounded.
func (d Defaults) EndTime() (time.Time, error) { return parseBound(d.End) }

func parseBound(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("config: invalid time bound %q: %w", s, err)
	}
	return t, nil
}

// merge overlays the fields set in o (non-empty strings, non-nil pointers
// and slices, including pointers to zero) onto a copy of d and returns it.
// Scalars: o wins when set. Maps: merged key-wise, o wins on conflict.
func (d Defaults) merge(o Defaults) Defaults {
	r := d
	if o.Begin != "" {
		r.Begin = o.Begin
	}
	if o.End != "" {
		r.End = o.End
	}
	if o.MaxGap != nil {
		r.MaxGap = o.MaxGap
	}
	if o.Measurement != "" {
		r.Measurement = o.Measurement
	}
	if o.FieldName != "" {
		r.FieldName = o.FieldName
	}
	if o.CopyTags != nil {
		r.CopyTags = o.CopyTags
	}
	if o.AddTags != nil {
		merged := make(map[string]string, len(r.AddTags)+len(o.AddTags))
		for k, v := range r.AddTags {
			merged[k] = v
		}
		for k, v := range o.AddTags {
			merged[k] = v
		}
		r.AddTags = merged
	}
	if o.ChunkSize != nil {
		r.ChunkSize = o.ChunkSize
	}
	if o.Transform != nil {
		r.Transform = o.Transform
	}
	if o.BufferSize != nil {
		r.BufferSize = o.BufferSize
	}
	return r
}

// IncludeRule is one `include:` list item: a bare glob string, or a
// mapping of `channel:` glob plus per-channel Defaults overrides.
type IncludeRule struct {
	Channel  string `json:"channel" yaml:"channel"`
	Defaults `yaml:",inline"`
}

// UnmarshalYAML accepts either a bare scalar string (the glob) or a
// mapping with `channel` plus overrides, matching spec.md §6's
// "glob string or mapping" include item shape.
func (r *IncludeRule) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		return value.Decode(&r.Channel)
	}
	type plain IncludeRule
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	*r = IncludeRule(p)
	return nil
}

// Exclude is the `exclude:` mapping: attribute name -> glob patterns.
type Exclude struct {
	Titles  []string `json:"titles" yaml:"titles"`
	Types   []string `json:"types" yaml:"types"`
	Classes []string `json:"classes" yaml:"classes"`
	IDs     []string `json:"ids" yaml:"ids"`
}

// AsMap returns the exclude rules keyed by the ChannelDescriptor.Attr name
// they test against.
func (e Exclude) AsMap() map[string][]string {
	m := map[string][]string{}
	if len(e.Titles) > 0 {
		m["title"] = e.Titles
	}
	if len(e.Types) > 0 {
		m["type"] = e.Types
	}
	if len(e.Classes) > 0 {
		m["class"] = e.Classes
	}
	if len(e.IDs) > 0 {
		m["id"] = e.IDs
	}
	return m
}

// DriverConfig is a generic `source:`/`destination:` sub-config: a
// `driver` discriminator plus a free-form bag of driver-specific keys.
type DriverConfig struct {
	Driver string
	Raw    map[string]any
}

func (d *DriverConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw map[string]any
	if err := value.Decode(&raw); err != nil {
		return err
	}
	d.Raw = raw
	if v, ok := raw["driver"]; ok {
		d.Driver, _ = v.(string)
	}
	if d.Driver == "" {
		return fmt.Errorf("config: driver sub-config missing required 'driver' key")
	}
	return nil
}

// Logs configures the CLI's log output, mirroring the `-l`/`-v` flags so
// the same settings can live in the config file.
type Logs struct {
	File     string `json:"file" yaml:"file"`
	Loglevel string `json:"loglevel" yaml:"loglevel"`
}

// Config is the fully decoded, layered configuration document.
type Config struct {
	Defaults    Defaults
	Include     []IncludeRule
	Exclude     Exclude
	Source      *DriverConfig
	Destination *DriverConfig
	Logs        Logs
}

type rawDocument struct {
	Defaults    Defaults      `yaml:"defaults"`
	Include     []IncludeRule `yaml:"include"`
	Exclude     Exclude       `yaml:"exclude"`
	Source      *DriverConfig `yaml:"source"`
	Destination *DriverConfig `yaml:"destination"`
	Logs        Logs          `yaml:"logs"`
}

var knownTopLevelSections = map[string]bool{
	"defaults": true, "include": true, "exclude": true,
	"source": true, "destination": true, "logs": true,
}

// Load validates and decodes the YAML config document in data. Unknown
// top-level sections produce a warning, not a failure; a missing or
// malformed `source`/`destination` driver discriminator is fatal.
func Load(data []byte) (*Config, error) {
	var generic map[string]any
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("config: parse failed: %w", err)
	}
	for k := range generic {
		if !knownTopLevelSections[k] {
			cclog.Warnf("config: unknown top-level section %q ignored", k)
		}
	}

	instance, err := yaml.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("config: re-marshal failed: %w", err)
	}
	jsonInstance, err := yamlToJSON(instance)
	if err != nil {
		return nil, fmt.Errorf("config: json bridge failed: %w", err)
	}
	if err := Validate(jsonInstance); err != nil {
		return nil, err
	}

	var raw rawDocument
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("config: decode failed: %w", err)
	}

	return &Config{
		Defaults:    raw.Defaults,
		Include:     raw.Include,
		Exclude:     raw.Exclude,
		Source:      raw.Source,
		Destination: raw.Destination,
		Logs:        raw.Logs,
	}, nil
}

// yamlToJSON bridges a YAML document to JSON by decoding into
// map[string]any (yaml.v3 already produces JSON-compatible scalar types)
// and re-encoding, the same "decode then validate" two-step the teacher's
// internal/config/validate.go performs directly on JSON.
func yamlToJSON(y []byte) (json.RawMessage, error) {
	var v any
	if err := yaml.Unmarshal(y, &v); err != nil {
		return nil, err
	}
	v = normalizeForJSON(v)
	return json.Marshal(v)
}

// normalizeForJSON recursively walks maps and slices, converting any
// map[any]any (which yaml.v3 produces for mappings with non-string keys)
// into a map[string]any keyed by fmt.Sprint of each key, so the result can
// be passed to json.Marshal. yaml.v3 decodes string-keyed mappings into
// map[string]interface{}, but nested values reached through `any` still
// need walking to catch the other kind.
func normalizeForJSON(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalizeForJSON(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalizeForJSON(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalizeForJSON(val)
		}
		return out
	default:
		return v
	}
}

// ResolveInclude overlays rule's overrides onto the document's defaults for
// one matched include rule.
func (c *Config) ResolveInclude(rule IncludeRule) Defaults {
	return c.Defaults.merge(rule.Defaults)
}
