// Copyright 2024 healer project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package fuzzer

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/killvxk/healer/pkg/prog"
	"github.com/killvxk/healer/pkg/report"
	"github.com/killvxk/healer/pkg/rtable"
	"github.com/killvxk/healer/pkg/schema"
	"github.com/killvxk/healer/pkg/store"
	"github.com/stretchr/testify/require"
)

func oneFnSchema() *schema.Schema {
	return &schema.Schema{
		Types: []schema.TypeInfo{{Kind: schema.KindNum, NumKind: schema.U32, NumLimit: schema.NumLimit{Kind: schema.LimitAny}}},
		Groups: map[schema.GroupId]*schema.GroupInfo{
			0: {ID: 0, Name: "g", Fns: []*schema.FnInfo{{ID: 0, Group: 0, Name: "f"}}},
		},
	}
}

func testGenConfig() prog.GenConfig {
	return prog.GenConfig{Planner: rtable.PlannerConfig{ProgMaxLen: 4, ProgMinLen: 1}}
}

// fakeVM always boots successfully and counts Close calls.
type fakeVM struct {
	mu     sync.Mutex
	closed bool
}

func (v *fakeVM) Boot(ctx context.Context) error { return nil }
func (v *fakeVM) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
	return nil
}

// scriptedExecutor replays a fixed sequence of outcomes, then signals
// done via a context-independent channel so a test can stop the worker
// deterministically instead of racing a timer.
type scriptedExecutor struct {
	mu       sync.Mutex
	outcomes []Outcome
	i        int
	done     chan struct{}
}

func (e *scriptedExecutor) Execute(ctx context.Context, p *prog.Prog) (Outcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.i >= len(e.outcomes) {
		select {
		case <-e.done:
		default:
			close(e.done)
		}
		return Outcome{Kind: OutcomeOk}, nil
	}
	o := e.outcomes[e.i]
	e.i++
	return o, nil
}

func baseConfig() WorkerConfig {
	return WorkerConfig{
		Schema:   oneFnSchema(),
		RTables:  map[schema.GroupId]*rtable.RTable{0: rtable.New(1)},
		Corpus:   store.NewCorpus(),
		Coverage: store.NewCoverage(),
		Queue:    store.NewChanQueue(nil),
		Cases:    store.NewCaseRecord(oneFnSchema(), nil, "."),
		Gen:      testGenConfig(),
		Rand:     rand.New(rand.NewSource(1)),
	}
}

func TestWorker_ClassifyNewCoverageGrowsCorpus(t *testing.T) {
	cfg := baseConfig()
	exec := &scriptedExecutor{
		outcomes: []Outcome{{Kind: OutcomeOk, Branches: [][]uint32{{1, 2}}, Blocks: [][]uint32{{9}}}},
		done:     make(chan struct{}),
	}
	cfg.VM = &fakeVM{}
	cfg.Executor = exec
	w := NewWorker(0, cfg)

	p := &prog.Prog{Group: 0, Calls: []prog.Call{{Fn: 0}}}
	require.NoError(t, w.classify(p, exec.outcomes[0]))

	require.Equal(t, 1, cfg.Corpus.Len())
	branches, blocks := cfg.Coverage.Lens()
	require.Equal(t, 2, branches)
	require.Equal(t, 1, blocks)
	executed, _, _ := cfg.Cases.Totals()
	require.Equal(t, uint64(1), executed)
}

func TestWorker_ClassifyFailedAndCrashedDoNotTouchCorpus(t *testing.T) {
	cfg := baseConfig()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "crashes"), 0o755))
	cfg.Cases = store.NewCaseRecord(oneFnSchema(), nil, dir)
	p := &prog.Prog{Group: 0, Calls: []prog.Call{{Fn: 0}}}

	w := NewWorker(0, cfg)
	require.NoError(t, w.classify(p, Outcome{Kind: OutcomeFailed, Reason: "timeout"}))
	require.NoError(t, w.classify(p, Outcome{Kind: OutcomeCrashed, Crash: report.CrashDetails{Description: "oops"}}))

	require.Equal(t, 0, cfg.Corpus.Len())
	_, failed, crashed := cfg.Cases.Totals()
	require.Equal(t, uint64(1), failed)
	require.Equal(t, uint64(1), crashed)
}

func TestWorker_SourcePrefersQueueOverGeneration(t *testing.T) {
	cfg := baseConfig()
	seeded := &prog.Prog{Group: 0, Calls: []prog.Call{{Fn: 0}, {Fn: 0}, {Fn: 0}}}
	q := cfg.Queue.(*store.ChanQueue)
	q.Push(seeded)
	// Give the pump goroutine a moment to move the seed into the
	// consumer-facing channel before Pop is attempted non-blocking.
	time.Sleep(10 * time.Millisecond)

	cfg.VM = &fakeVM{}
	cfg.Executor = &scriptedExecutor{done: make(chan struct{})}
	w := NewWorker(0, cfg)

	p, err := w.source()
	require.NoError(t, err)
	require.Equal(t, 3, len(p.Calls))
}

func TestPool_RunRespectsContextCancellation(t *testing.T) {
	base := baseConfig()
	base.Cases = store.NewCaseRecord(oneFnSchema(), nil, t.TempDir())
	bindings := []VMBinding{
		{VM: &fakeVM{}, Executor: &scriptedExecutor{done: make(chan struct{})}},
		{VM: &fakeVM{}, Executor: &scriptedExecutor{done: make(chan struct{})}},
	}
	pool := NewPool(base, bindings)

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- pool.Run(ctx) }()

	select {
	case <-pool.Ready():
	case <-time.After(time.Second):
		t.Fatal("pool never became ready")
	}

	cancel()
	select {
	case err := <-runErr:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("pool did not exit after cancellation")
	}
}
