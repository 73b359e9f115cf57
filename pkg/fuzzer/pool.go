// Copyright 2024 healer project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package fuzzer

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// VMBinding pairs one worker's VM and Executor; a Pool holds exactly one
// per configured vm_num entry (spec §5: "a fixed pool of N worker
// tasks, one per configured VM").
type VMBinding struct {
	VM       VM
	Executor Executor
}

// Pool runs one Worker per VMBinding under a shared errgroup, and
// exposes the N+1 startup barrier (spec §5) as a channel the sampler
// and signal listener can wait on before they start their own loops.
type Pool struct {
	workers []*Worker
	barrier sync.WaitGroup
	ready   chan struct{}
}

// NewPool builds a worker for every binding, sharing the rest of base
// (schema, rtables, stores, generator config) across all of them. base.VM
// and base.Executor are ignored; each binding supplies its own.
func NewPool(base WorkerConfig, bindings []VMBinding) *Pool {
	p := &Pool{
		workers: make([]*Worker, len(bindings)),
		ready:   make(chan struct{}),
	}
	p.barrier.Add(len(bindings))
	for i, b := range bindings {
		cfg := base
		cfg.VM = b.VM
		cfg.Executor = b.Executor
		p.workers[i] = NewWorker(i, cfg)
	}
	return p
}

// Ready closes once every worker has completed its VM boot step
// (successfully or not) — the N+1 barrier's worker side. A caller
// driving the sampler and signal listener should not start ticking
// until Ready is closed, so the first stats snapshot reflects a fully
// booted fleet.
func (p *Pool) Ready() <-chan struct{} {
	return p.ready
}

// Run starts every worker under ctx and blocks until all have returned,
// which happens when ctx is canceled or any one worker returns a fatal
// error — errgroup's WithContext cancels the shared context for the
// rest of the group the moment one Go func returns non-nil, exactly the
// "abort the whole fleet on a single fatal error" semantics spec §5
// wants from the startup barrier's failure path.
func (p *Pool) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, w := range p.workers {
		w := w
		g.Go(func() error {
			return w.run(gctx, &p.barrier)
		})
	}
	go func() {
		p.barrier.Wait()
		close(p.ready)
	}()
	return g.Wait()
}
