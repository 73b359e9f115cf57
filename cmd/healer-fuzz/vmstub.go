// Copyright 2024 healer project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"

	"github.com/killvxk/healer/pkg/fuzzer"
	"github.com/killvxk/healer/pkg/prog"
)

// noopVM and noopExecutor stand in for the real VM driver and in-guest
// executor, which decode and run a Prog inside a booted kernel and are
// out of this repo's scope (spec §1, §6). They let this binary link and
// exercise the full worker/pool/sampler wiring end to end; a deployment
// swaps in its own fuzzer.VM/fuzzer.Executor before going near real
// hardware.
type noopVM struct{}

func (noopVM) Boot(ctx context.Context) error { return nil }
func (noopVM) Close() error                   { return nil }

type noopExecutor struct{}

func (noopExecutor) Execute(ctx context.Context, p *prog.Prog) (fuzzer.Outcome, error) {
	return fuzzer.Outcome{}, fmt.Errorf("healer-fuzz: no executor configured for this VM")
}
