// Copyright 2024 healer project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package sampler

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/killvxk/healer/pkg/prog"
	"github.com/killvxk/healer/pkg/schema"
	"github.com/killvxk/healer/pkg/store"
	"github.com/stretchr/testify/require"
)

func TestSampler_TickWritesSnapshotAndFinalTickOnShutdown(t *testing.T) {
	dir := t.TempDir()
	sc := &schema.Schema{Groups: map[schema.GroupId]*schema.GroupInfo{0: {ID: 0, Name: "g"}}}
	corpus := store.NewCorpus()
	p := &prog.Prog{Group: 0, Calls: []prog.Call{{Fn: 0}}}
	_, err := corpus.Insert(p)
	require.NoError(t, err)

	cov := store.NewCoverage()
	cov.Merge([]uint32{1, 2}, []uint32{3})

	s := &Sampler{
		Corpus:   corpus,
		Coverage: cov,
		Cases:    store.NewCaseRecord(sc, nil, dir),
		Queue:    store.NewChanQueue(nil),
		WorkDir:  dir,
		Interval: 20 * time.Millisecond,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.NoError(t, s.Run(ctx))

	data, err := os.ReadFile(filepath.Join(dir, "reports", "stats.json"))
	require.NoError(t, err)
	var snap Snapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	require.Equal(t, 1, snap.CorpusSize)
	require.Equal(t, 2, snap.Branches)
	require.Equal(t, 1, snap.Blocks)

	latest := s.Latest()
	require.Equal(t, snap.CorpusSize, latest.CorpusSize)
}

func TestShutdown_TriggerClosesContextForAllSubscribers(t *testing.T) {
	sd := NewShutdown(context.Background())
	done1 := sd.Context().Done()
	done2 := sd.Context().Done()

	sd.Trigger()

	select {
	case <-done1:
	case <-time.After(time.Second):
		t.Fatal("subscriber 1 never observed shutdown")
	}
	select {
	case <-done2:
	case <-time.After(time.Second):
		t.Fatal("subscriber 2 never observed shutdown")
	}
}
