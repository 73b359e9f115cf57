// Copyright 2024 healer project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package sampler

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	. "github.com/killvxk/healer/pkg/slog2"
)

// Shutdown is the fan-out signal spec §5 describes as a broadcast
// channel: every worker and the sampler select on the same context's
// Done channel, which Go's context already delivers to
// an arbitrary number of receivers without the explicit subscribe/
// unsubscribe bookkeeping a channel-of-channels would need.
type Shutdown struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// NewShutdown returns a Shutdown derived from parent, ready to be handed
// to every worker and the sampler.
func NewShutdown(parent context.Context) *Shutdown {
	ctx, cancel := context.WithCancel(parent)
	return &Shutdown{ctx: ctx, cancel: cancel}
}

// Context is the value every subscriber selects on.
func (s *Shutdown) Context() context.Context {
	return s.ctx
}

// Trigger fires the broadcast once; subsequent calls are no-ops.
func (s *Shutdown) Trigger() {
	s.cancel()
}

// ListenSignals triggers shutdown on SIGINT/SIGTERM, logging which
// signal fired it. Call once from cmd/healer-fuzz/main.go.
func (s *Shutdown) ListenSignals() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-ch:
			Logf(0, "received %v, shutting down", sig)
			s.Trigger()
		case <-s.ctx.Done():
		}
		signal.Stop(ch)
	}()
}
