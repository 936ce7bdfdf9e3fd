// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package relay

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// Service bridges OS termination signals to a cancellation callback. On
// construction it installs handlers for the given signals (interrupt and
// terminate by default); on Close it restores whatever signal.Notify state
// existed before (by stopping its own notification channel, which hands
// the signals back to Go's default disposition or any outer
// signal.Notify still registered).
//
// The callback may be run synchronously (blocking the signal-delivery
// goroutine) or asynchronously; in the async case Close waits for any
// in-flight callback invocation to finish before returning.
type Service struct {
	sigs   chan os.Signal
	done   chan struct{}
	cancel context.CancelFunc

	pending sync.WaitGroup
}

// NewService installs signal handlers and returns a Service plus a
// context that is cancelled on receipt of any of sigs (interrupt and
// terminate if none given). callback, if non-nil, is invoked once, for the
// first signal received; later signals are not handled. async controls
// whether it runs on its own goroutine.
func NewService(parent context.Context, async bool, callback func(os.Signal), sigs ...os.Signal) (*Service, context.Context) {
	if len(sigs) == 0 {
		sigs = []os.Signal{os.Interrupt, syscall.SIGTERM}
	}

	ctx, cancel := context.WithCancel(parent)
	s := &Service{
		sigs:   make(chan os.Signal, 1),
		done:   make(chan struct{}),
		cancel: cancel,
	}
	signal.Notify(s.sigs, sigs...)

	go func() {
		select {
		case sig := <-s.sigs:
			s.cancel()
			if callback != nil {
				if async {
					s.pending.Add(1)
					go func() {
						defer s.pending.Done()
						callback(sig)
					}()
				} else {
					callback(sig)
				}
			}
		case <-s.done:
		}
	}()

	return s, ctx
}

// Close restores the previous signal disposition (stops this Service's
// own notification registration) and, if an async callback is in flight,
// awaits it.
func (s *Service) Close() {
	close(s.done)
	signal.Stop(s.sigs)
	s.pending.Wait()
}
