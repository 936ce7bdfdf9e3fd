// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package modbusdriver is a DeviceReader sampling primitive over Modbus
// TCP: it reads a fixed holding-register range once per call and decodes
// it as a big-endian IEEE-754 float32, the common metering-device
// encoding for a single scalar register pair. It has no GetChannels /
// IterChunks of its own — it's a live source, wired directly into a
// relay.DeviceReaderConfig.Sample, not a driver.Reader.
package modbusdriver

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/grid-x/modbus"
)

// Config describes one Modbus TCP holding-register read.
type Config struct {
	Address  string // host:port
	SlaveID  byte
	Register uint16
	Timeout  time.Duration
}

// Device owns one Modbus TCP connection and exposes a sampling primitive
// compatible with relay.SamplingFunc.
type Device struct {
	handler *modbus.TCPClientHandler
	client  modbus.Client
}

// Dial opens a Modbus TCP connection per cfg.
func Dial(cfg Config) (*Device, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	handler := modbus.NewTCPClientHandler(cfg.Address)
	handler.SlaveID = cfg.SlaveID
	handler.Timeout = cfg.Timeout
	if err := handler.Connect(); err != nil {
		return nil, fmt.Errorf("modbusdriver: connect to %s failed: %w", cfg.Address, err)
	}
	return &Device{handler: handler, client: modbus.NewClient(handler)}, nil
}

// Sample reads the configured holding-register pair and decodes it as a
// big-endian float32. It returns ts=nil: Modbus devices here carry no
// device-side clock, so the DeviceReader always stamps with local time.
func (d *Device) Sample(register uint16) func(ctx context.Context) (*int64, float64, error) {
	return func(ctx context.Context) (*int64, float64, error) {
		raw, err := d.client.ReadHoldingRegisters(register, 2)
		if err != nil {
			return nil, 0, fmt.Errorf("modbusdriver: read register %d failed: %w", register, err)
		}
		if len(raw) < 4 {
			return nil, 0, fmt.Errorf("modbusdriver: short read for register %d: %d bytes", register, len(raw))
		}
		bits := binary.BigEndian.Uint32(raw)
		return nil, float64(math.Float32frombits(bits)), nil
	}
}

// Close releases the underlying TCP connection.
func (d *Device) Close() error {
	return d.handler.Close()
}
