// Copyright 2024 healer project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package fuzzer implements the per-VM worker fuzz loop and its
// orchestration (spec §4.5, §5): a fixed pool of workers, each bound to
// one VM, that source a program, execute it, classify the result and
// file it into the shared stores.
package fuzzer

import (
	"context"

	"github.com/killvxk/healer/pkg/prog"
	"github.com/killvxk/healer/pkg/report"
)

// OutcomeKind discriminates Executor.Execute's three possible results
// (spec §4.5 step 2).
type OutcomeKind int

const (
	OutcomeOk OutcomeKind = iota
	OutcomeFailed
	OutcomeCrashed
)

// Outcome is the tagged union an Executor returns. Only the fields for
// Kind are meaningful.
type Outcome struct {
	Kind OutcomeKind

	// OutcomeOk
	Blocks   [][]uint32 // per-call blocks
	Branches [][]uint32 // per-call branches

	// OutcomeFailed
	Reason string

	// OutcomeCrashed
	Crash      report.CrashDetails
	Reproduces bool
}

// Executor is the external collaborator (spec §6) that actually submits
// a Prog to the in-guest agent and reports what happened. The guest/VM
// driver and in-guest executor that implement this are explicitly out of
// this core's scope (spec §1).
type Executor interface {
	Execute(ctx context.Context, p *prog.Prog) (Outcome, error)
}

// VM is the per-worker guest the Executor talks to. Boot is the step
// every worker runs before the N+1 startup barrier (spec §5).
type VM interface {
	Boot(ctx context.Context) error
	Close() error
}
