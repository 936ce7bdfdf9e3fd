// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package units implements the metering unit system: SI prefixes combined
// with measures (energy, power, current, voltage, temperature, volume)
// plus parsing and conversion between them. Celsius and Fahrenheit are
// special-cased since their conversion is affine, not a pure scale
// factor.
package units

import (
	"fmt"
	"regexp"
)

// Prefix is an SI scale factor.
type Prefix float64

const (
	InvalidPrefix Prefix = 0
	Base          Prefix = 1
	Kilo          Prefix = 1e3
	Mega          Prefix = 1e6
	Milli         Prefix = 1e-3
)

type prefixData struct {
	Long, Short, Regex string
}

var prefixTable = map[Prefix]prefixData{
	Base:  {"", "", "^$"},
	Kilo:  {"Kilo", "k", "^[kK]$"},
	Mega:  {"Mega", "M", "^[M]$"},
	Milli: {"Milli", "m", "^[m]$"},
}

func (p Prefix) String() string {
	if d, ok := prefixTable[p]; ok {
		return d.Long
	}
	return "Invalid"
}

func (p Prefix) Short() string {
	if d, ok := prefixTable[p]; ok {
		return d.Short
	}
	return "inval"
}

// NewPrefix parses an SI prefix string ("k", "M", "m" or "").
func NewPrefix(s string) Prefix {
	for p, d := range prefixTable {
		if regexp.MustCompile(d.Regex).MatchString(s) {
			return p
		}
	}
	return InvalidPrefix
}

// Measure is a physical quantity kind.
type Measure int

const (
	InvalidMeasure Measure = iota
	Energy                 // Wh
	Power                  // W
	Current                // A
	Voltage                // V
	TemperatureC           // degC
	TemperatureF           // degF
	Volume                 // m3
	Percentage             // %
	Count                  // unitless counter
)

type measureData struct {
	Long, Short, Regex string
}

var measureTable = map[Measure]measureData{
	Energy:       {"Watthour", "Wh", "^([wW][hH])"},
	Power:        {"Watt", "W", "^([wW])$"},
	Current:      {"Ampere", "A", "^([aA])"},
	Voltage:      {"Volt", "V", "^([vV])"},
	TemperatureC: {"DegreeC", "°C", "^(deg[Cc]|°[cC])"},
	TemperatureF: {"DegreeF", "°F", "^(deg[fF]|°[fF])"},
	Volume:       {"CubicMeter", "m3", "^(m3|m³)"},
	Percentage:   {"Percent", "%", "^(%|[pP]ercent)"},
	Count:        {"Count", "count", "^([cC]ount)"},
}

func (m Measure) String() string {
	if d, ok := measureTable[m]; ok {
		return d.Long
	}
	return "Invalid"
}

func (m Measure) Short() string {
	if d, ok := measureTable[m]; ok {
		return d.Short
	}
	return "inval"
}

// NewMeasure parses a measure out of a unit string tail (the part after
// the SI prefix has been split off).
func NewMeasure(s string) Measure {
	for m, d := range measureTable {
		if regexp.MustCompile(d.Regex).MatchString(s) {
			return m
		}
	}
	return InvalidMeasure
}

var prefixSplitRegex = regexp.MustCompile(`^([kKmM]?)(.*)`)

// Unit is a prefix+measure pair, e.g. "kWh" or "degC".
type Unit struct {
	Prefix  Prefix
	Measure Measure
}

// Valid reports whether both the prefix and measure parsed.
func (u Unit) Valid() bool {
	return u.Prefix != InvalidPrefix && u.Measure != InvalidMeasure
}

func (u Unit) String() string {
	return u.Prefix.String() + u.Measure.String()
}

// Short is the conventional abbreviation, e.g. "kWh".
func (u Unit) Short() string {
	return u.Prefix.Short() + u.Measure.Short()
}

// Parse splits a unit string like "kWh" into its SI prefix and measure.
// Degree units (degC, °F, ...) have no prefix and parse whole.
func Parse(s string) Unit {
	if m := NewMeasure(s); m == TemperatureC || m == TemperatureF || m == Percentage || m == Count {
		return Unit{Prefix: Base, Measure: m}
	}
	sub := prefixSplitRegex.FindStringSubmatch(s)
	if sub == nil {
		return Unit{}
	}
	p := NewPrefix(sub[1])
	if p == InvalidPrefix && sub[1] == "" {
		p = Base
	}
	return Unit{Prefix: p, Measure: NewMeasure(sub[2])}
}

// Convert rescales v from unit `from` to unit `to`. Celsius/Fahrenheit
// conversion is affine and handled specially; every other pair must share
// the same Measure and differ only by SI prefix.
func Convert(v float64, from, to string) (float64, error) {
	uf, ut := Parse(from), Parse(to)
	if !uf.Valid() || !ut.Valid() {
		return 0, fmt.Errorf("units: invalid unit %q or %q", from, to)
	}

	switch {
	case uf.Measure == TemperatureC && ut.Measure == TemperatureF:
		return v*9/5 + 32, nil
	case uf.Measure == TemperatureF && ut.Measure == TemperatureC:
		return (v - 32) * 5 / 9, nil
	case uf.Measure != ut.Measure:
		return 0, fmt.Errorf("units: cannot convert %s to %s: different measures", from, to)
	default:
		factor := float64(uf.Prefix) / float64(ut.Prefix)
		return v * factor, nil
	}
}

// DefaultUnit is the type-to-unit default table: the unit a channel's
// values are assumed to be in when its declared type names one of these
// well-known metering quantities and no explicit unit overrides it.
var DefaultUnit = map[string]string{
	"power":          "W",
	"energy":         "kWh",
	"electric meter": "kWh",
	"current":        "A",
	"voltage":        "V",
	"temperature":    "°C",
	"volume":         "m3",
	"percentage":     "%",
	"counter":        "count",
}

// ForType resolves the default unit string for a channel type, or "" if
// the type has no well-known default.
func ForType(channelType string) string {
	return DefaultUnit[channelType]
}
