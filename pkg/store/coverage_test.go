// Copyright 2024 healer project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package store

import (
	"sync"
	"testing"

	"github.com/killvxk/healer/pkg/prog"
	"github.com/stretchr/testify/require"
)

// S6 — Corpus monotone: two concurrent workers each report a new branch;
// after both return, the global set contains both and the corpus holds
// both programs.
func TestCorpusAndCoverage_ConcurrentMonotone(t *testing.T) {
	cov := NewCoverage()
	corpus := NewCorpus()

	p1 := &prog.Prog{Group: 0, Calls: []prog.Call{{Fn: 0}}}
	p2 := &prog.Prog{Group: 0, Calls: []prog.Call{{Fn: 1}}}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		newB, _ := cov.Diff([]uint32{100}, nil)
		if len(newB) > 0 {
			cov.Merge(newB, nil)
			_, _ = corpus.Insert(p1)
		}
	}()
	go func() {
		defer wg.Done()
		newB, _ := cov.Diff([]uint32{200}, nil)
		if len(newB) > 0 {
			cov.Merge(newB, nil)
			_, _ = corpus.Insert(p2)
		}
	}()
	wg.Wait()

	branches, _ := cov.Snapshot()
	require.ElementsMatch(t, []uint32{100, 200}, branches)
	require.Equal(t, 2, corpus.Len())
}

func TestCoverage_NoRemoval(t *testing.T) {
	cov := NewCoverage()
	cov.Merge([]uint32{1, 2, 3}, []uint32{9})
	newB, _ := cov.Diff([]uint32{2, 4}, nil)
	require.Equal(t, []uint32{4}, newB)
	b, blk := cov.Lens()
	require.Equal(t, 3, b)
	require.Equal(t, 1, blk)
}

func TestHashProg_DeterministicAndDistinct(t *testing.T) {
	p1 := &prog.Prog{Group: 0, Calls: []prog.Call{{Fn: 0}}}
	p2 := &prog.Prog{Group: 0, Calls: []prog.Call{{Fn: 1}}}
	h1a, err := HashProg(p1)
	require.NoError(t, err)
	h1b, err := HashProg(p1)
	require.NoError(t, err)
	h2, err := HashProg(p2)
	require.NoError(t, err)
	require.Equal(t, h1a, h1b)
	require.NotEqual(t, h1a, h2)
}
