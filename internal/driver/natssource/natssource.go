// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package natssource is the reference push-ingestion source: it
// subscribes to a NATS subject carrying line-protocol-framed samples and
// decodes each message into a relay.Sample stream a Hub reader task can
// consume directly, as an alternative to DeviceReader's poll model.
package natssource

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/volkszaehler/vzrelay/internal/relay"

	influx "github.com/influxdata/line-protocol/v2/lineprotocol"
	"github.com/nats-io/nats.go"
)

// Config describes how to reach the NATS server and which subject to
// subscribe to.
type Config struct {
	Address       string
	Username      string
	Password      string
	CredsFilePath string
	Subject       string
	Queue         string // optional queue-group name for load balancing
	FieldName     string // which decoded field carries the sample value; "" = first field seen
}

// Source holds one NATS connection feeding one or more subscriptions.
type Source struct {
	log  relay.Logger
	conn *nats.Conn

	mu   sync.Mutex
	subs []*nats.Subscription
}

// Connect opens a NATS connection per cfg. Reconnection, error and
// disconnect events are logged through log.
func Connect(cfg Config, log relay.Logger) (*Source, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("natssource: address is required")
	}
	if log == nil {
		log = relay.DefaultLogger
	}

	var opts []nats.Option
	if cfg.Username != "" && cfg.Password != "" {
		opts = append(opts, nats.UserInfo(cfg.Username, cfg.Password))
	}
	if cfg.CredsFilePath != "" {
		opts = append(opts, nats.UserCredentials(cfg.CredsFilePath))
	}
	opts = append(opts,
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warnf("natssource: disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Infof("natssource: reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			log.Errorf("natssource: %v", err)
		}),
	)

	nc, err := nats.Connect(cfg.Address, opts...)
	if err != nil {
		return nil, fmt.Errorf("natssource: connect failed: %w", err)
	}
	log.Infof("natssource: connected to %s", cfg.Address)

	return &Source{log: log, conn: nc}, nil
}

// Subscribe decodes every line-protocol message received on cfg.Subject
// into relay.Samples and delivers them on the returned channel, which is
// closed when ctx is done. If cfg.Queue is set, the subscription joins
// that queue group so only one subscriber in the group gets each message.
func (s *Source) Subscribe(ctx context.Context, cfg Config) (<-chan relay.Sample, error) {
	out := make(chan relay.Sample, 256)

	handler := func(msg *nats.Msg) {
		s.decode(ctx, out, msg.Data, cfg.FieldName)
	}

	var sub *nats.Subscription
	var err error
	if cfg.Queue != "" {
		sub, err = s.conn.QueueSubscribe(cfg.Subject, cfg.Queue, handler)
	} else {
		sub, err = s.conn.Subscribe(cfg.Subject, handler)
	}
	if err != nil {
		close(out)
		return nil, fmt.Errorf("natssource: subscribe to %q failed: %w", cfg.Subject, err)
	}

	s.mu.Lock()
	s.subs = append(s.subs, sub)
	s.mu.Unlock()
	s.log.Infof("natssource: subscribed to %q", cfg.Subject)

	go func() {
		<-ctx.Done()
		_ = sub.Unsubscribe()
		close(out)
	}()

	return out, nil
}

func (s *Source) decode(ctx context.Context, out chan<- relay.Sample, data []byte, fieldName string) {
	dec := influx.NewDecoder(bytes.NewReader(data))
	for dec.Next() {
		if _, err := dec.Measurement(); err != nil {
			s.log.Warnf("natssource: malformed measurement: %v", err)
			return
		}
		for {
			key, _, err := dec.NextTag()
			if err != nil || key == nil {
				break
			}
		}

		var value float64
		var got bool
		for {
			key, fv, err := dec.NextField()
			if err != nil {
				s.log.Warnf("natssource: malformed field: %v", err)
				return
			}
			if key == nil {
				break
			}
			if got {
				continue
			}
			if fieldName != "" && string(key) != fieldName {
				continue
			}
			if fv.Kind() != influx.Float {
				continue
			}
			value = fv.FloatV()
			got = true
		}

		t, err := dec.Time(influx.Nanosecond, time.Time{})
		if err != nil {
			s.log.Warnf("natssource: malformed timestamp: %v", err)
			return
		}
		if !got {
			continue
		}

		sample := relay.Sample{T: relay.Timestamp(t), V: value}
		select {
		case out <- sample:
		case <-ctx.Done():
			return
		}
	}
}

// Close unsubscribes every subscription and closes the underlying
// connection.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	s.conn.Close()
	return nil
}
