// Copyright 2024 healer project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package fuzzer

import (
	"context"
	"fmt"
	"sync"

	. "github.com/killvxk/healer/pkg/slog2"

	"github.com/killvxk/healer/pkg/prog"
	"github.com/killvxk/healer/pkg/rtable"
	"github.com/killvxk/healer/pkg/schema"
	"github.com/killvxk/healer/pkg/store"
)

// WorkerConfig bundles everything one worker shares with its siblings
// (spec §4.5: "schema, precomputed relation tables, the shared corpus,
// the shared coverage state, the shared candidates queue, the shared
// case record") plus the VM/Executor pair that is this worker's alone.
type WorkerConfig struct {
	Schema   *schema.Schema
	RTables  map[schema.GroupId]*rtable.RTable
	Corpus   *store.Corpus
	Coverage *store.Coverage
	Queue    store.Queue
	Cases    *store.CaseRecord

	Gen  prog.GenConfig
	Rand prog.Rand

	VM       VM
	Executor Executor

	// PersistEvery is how many executed iterations elapse between the
	// worker's own periodic CaseRecord.Persist() calls (spec §4.5 step
	// 4, "persist periodically"). Zero disables periodic persistence;
	// the final on-shutdown persist still happens.
	PersistEvery int
}

// Worker runs the five-step loop of spec §4.5 against one VM: source a
// program, execute it, classify and update the shared stores, persist
// periodically, check for shutdown.
type Worker struct {
	id  int
	cfg WorkerConfig
}

func NewWorker(id int, cfg WorkerConfig) *Worker {
	return &Worker{id: id, cfg: cfg}
}

// run boots the worker's VM, signals barrier regardless of the boot
// outcome so the pool's N+1 startup barrier (spec §5) cannot deadlock on
// one bad VM, waits until every worker has signalled it, then runs the
// fuzz loop until ctx is done. A failed case persist ends the loop with
// an error.
func (w *Worker) run(ctx context.Context, barrier *sync.WaitGroup) error {
	bootErr := w.cfg.VM.Boot(ctx)
	barrier.Done()
	if bootErr != nil {
		return fmt.Errorf("fuzzer: worker %d: boot vm: %w", w.id, bootErr)
	}
	defer w.cfg.VM.Close()
	barrier.Wait()

	Logf(1, "worker %d: booted, entering fuzz loop", w.id)

	iter := 0
	for {
		select {
		case <-ctx.Done():
			return w.shutdown()
		default:
		}

		p, err := w.source()
		if err != nil {
			return fmt.Errorf("fuzzer: worker %d: source program: %w", w.id, err)
		}

		outcome, err := w.cfg.Executor.Execute(ctx, p)
		if err != nil {
			if ctx.Err() != nil {
				return w.shutdown()
			}
			Logf(0, "worker %d: execute: %v", w.id, err)
			continue
		}

		if err := w.classify(p, outcome); err != nil {
			return fmt.Errorf("fuzzer: worker %d: classify: %w", w.id, err)
		}

		iter++
		if w.cfg.PersistEvery > 0 && iter%w.cfg.PersistEvery == 0 {
			if err := w.cfg.Cases.Persist(); err != nil {
				return fmt.Errorf("fuzzer: worker %d: periodic persist: %w", w.id, err)
			}
		}
	}
}

func (w *Worker) shutdown() error {
	Logf(1, "worker %d: shutting down", w.id)
	return w.cfg.Cases.Persist()
}

// source implements spec §4.5 step 1: take a candidate off the shared
// queue if one is waiting, otherwise generate a fresh one.
func (w *Worker) source() (*prog.Prog, error) {
	if p, ok := w.cfg.Queue.Pop(); ok {
		return p, nil
	}
	return prog.Generate(w.cfg.Schema, w.cfg.RTables, w.cfg.Gen, w.cfg.Rand)
}

// classify implements spec §4.5 step 3: on new coverage, merge it into
// the shared set and add the program to the corpus; file the case
// record regardless of outcome kind.
func (w *Worker) classify(p *prog.Prog, o Outcome) error {
	switch o.Kind {
	case OutcomeOk:
		branches := flattenU32(o.Branches)
		blocks := flattenU32(o.Blocks)
		newBranches, newBlocks := w.cfg.Coverage.Diff(branches, blocks)
		if len(newBranches) > 0 || len(newBlocks) > 0 {
			w.cfg.Coverage.Merge(newBranches, newBlocks)
			if _, err := w.cfg.Corpus.Insert(p); err != nil {
				return fmt.Errorf("insert corpus: %w", err)
			}
		}
		w.cfg.Cases.InsertExecuted(p, countsOf(o.Blocks), countsOf(o.Branches), len(newBranches), len(newBlocks))
	case OutcomeFailed:
		w.cfg.Cases.InsertFailed(p, o.Reason)
	case OutcomeCrashed:
		if err := w.cfg.Cases.InsertCrashed(p, o.Crash, o.Reproduces); err != nil {
			return fmt.Errorf("insert crashed case: %w", err)
		}
	default:
		return fmt.Errorf("unknown outcome kind %d", o.Kind)
	}
	return nil
}

// flattenU32 concatenates a per-call coverage report into one slice for
// Coverage.Diff/Merge, which only care about the set of values, not
// which call produced them.
func flattenU32(perCall [][]uint32) []uint32 {
	var out []uint32
	for _, c := range perCall {
		out = append(out, c...)
	}
	return out
}

// countsOf reports how many entries each call contributed, for the case
// record's per-call block_num/branch_num fields (spec §4.6).
func countsOf(perCall [][]uint32) []int {
	out := make([]int, len(perCall))
	for i, c := range perCall {
		out[i] = len(c)
	}
	return out
}
