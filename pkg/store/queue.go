// Copyright 2024 healer project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package store

import (
	"context"

	"github.com/killvxk/healer/pkg/prog"
)

// Queue is the spec §4.6 "multi-producer/multi-consumer FIFO, bounded or
// unbounded, of seed programs loaded at startup". ChanQueue below is the
// default local implementation; pkg/cloudsink provides a Pub/Sub-backed
// alternative for multi-host fuzzing farms (spec §5 domain stack #12),
// both satisfying this same interface so pkg/fuzzer never knows which
// one it is talking to.
type Queue interface {
	// Push enqueues a program. Never blocks on an unbounded queue.
	Push(p *prog.Prog)
	// Pop dequeues a program if one is available, without blocking.
	Pop() (*prog.Prog, bool)
	// Len reports the approximate number of queued programs.
	Len() int
	// Close releases any resources (e.g. a Pub/Sub subscription).
	Close() error
}

// ChanQueue is an unbounded MPMC queue: a background pump goroutine keeps
// the backlog in a growable slice and feeds it into a buffered channel,
// so Push never blocks the caller. It is the default Queue when no distributed backend is
// configured.
type ChanQueue struct {
	in     chan *prog.Prog
	out    chan *prog.Prog
	done   chan struct{}
	length chan int
}

func NewChanQueue(seed []*prog.Prog) *ChanQueue {
	q := &ChanQueue{
		in:   make(chan *prog.Prog),
		out:  make(chan *prog.Prog, 64),
		done: make(chan struct{}),
	}
	go q.pump(seed)
	return q
}

// pump buffers an unbounded internal backlog in a plain slice so Push
// never blocks even when no consumer is currently calling Pop.
func (q *ChanQueue) pump(seed []*prog.Prog) {
	backlog := append([]*prog.Prog(nil), seed...)
	for {
		if len(backlog) == 0 {
			select {
			case p := <-q.in:
				backlog = append(backlog, p)
			case <-q.done:
				close(q.out)
				return
			}
			continue
		}
		select {
		case p := <-q.in:
			backlog = append(backlog, p)
		case q.out <- backlog[0]:
			backlog = backlog[1:]
		case <-q.done:
			close(q.out)
			return
		}
	}
}

func (q *ChanQueue) Push(p *prog.Prog) {
	select {
	case q.in <- p:
	case <-q.done:
	}
}

func (q *ChanQueue) Pop() (*prog.Prog, bool) {
	select {
	case p, ok := <-q.out:
		return p, ok
	default:
		return nil, false
	}
}

// PopWait blocks until a program is available, the queue is closed, or
// ctx is done. It is not part of the Queue interface; the fuzz worker
// uses the non-blocking Pop and generates a program when it gets none.
func (q *ChanQueue) PopWait(ctx context.Context) (*prog.Prog, bool) {
	select {
	case p, ok := <-q.out:
		return p, ok
	case <-ctx.Done():
		return nil, false
	}
}

func (q *ChanQueue) Len() int {
	// Approximate: the pump goroutine owns the authoritative backlog.
	// Exposed for the sampler, which only needs an order-of-magnitude
	// reading, not an exact count.
	return len(q.out)
}

func (q *ChanQueue) Close() error {
	close(q.done)
	return nil
}
