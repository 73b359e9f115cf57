// Copyright 2024 healer project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package sampler implements the periodic stats snapshot and the
// broadcast shutdown signal of spec §4.7: every tick, read the shared
// stores, write a JSON snapshot under work_dir/reports, and update the
// Prometheus gauges the status server exposes alongside it.
package sampler

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	. "github.com/killvxk/healer/pkg/slog2"

	"github.com/killvxk/healer/pkg/store"
	"github.com/prometheus/client_golang/prometheus"
)

// Snapshot is the JSON shape written to work_dir/reports on every tick
// (spec §4.7).
type Snapshot struct {
	Time          time.Time `json:"time"`
	CorpusSize    int       `json:"corpus_size"`
	Branches      int       `json:"branches"`
	Blocks        int       `json:"blocks"`
	ExecutedTotal uint64    `json:"executed_total"`
	FailedTotal   uint64    `json:"failed_total"`
	CrashedTotal  uint64    `json:"crashed_total"`
	QueueLen      int       `json:"queue_len"`
}

var (
	gaugeCorpus   = prometheus.NewGauge(prometheus.GaugeOpts{Name: "healer_corpus_size", Help: "Number of programs in the shared corpus."})
	gaugeBranches = prometheus.NewGauge(prometheus.GaugeOpts{Name: "healer_branches", Help: "Number of distinct branches covered so far."})
	gaugeBlocks   = prometheus.NewGauge(prometheus.GaugeOpts{Name: "healer_blocks", Help: "Number of distinct blocks covered so far."})
	gaugeExecuted = prometheus.NewGauge(prometheus.GaugeOpts{Name: "healer_executed_total", Help: "Total executed cases across all workers."})
	gaugeFailed   = prometheus.NewGauge(prometheus.GaugeOpts{Name: "healer_failed_total", Help: "Total failed cases across all workers."})
	gaugeCrashed  = prometheus.NewGauge(prometheus.GaugeOpts{Name: "healer_crashed_total", Help: "Total crashed cases across all workers."})
)

// Register adds the sampler's gauges to reg. Called once from
// cmd/healer-fuzz/main.go before the first tick.
func Register(reg *prometheus.Registry) error {
	for _, c := range []prometheus.Collector{gaugeCorpus, gaugeBranches, gaugeBlocks, gaugeExecuted, gaugeFailed, gaugeCrashed} {
		if err := reg.Register(c); err != nil {
			return fmt.Errorf("sampler: register gauge: %w", err)
		}
	}
	return nil
}

// Sampler owns the ticker loop. latest holds the most recent snapshot
// for the status server to serve without re-reading the stores.
type Sampler struct {
	Corpus   *store.Corpus
	Coverage *store.Coverage
	Cases    *store.CaseRecord
	Queue    store.Queue
	WorkDir  string
	Interval time.Duration

	latest atomic.Value // Snapshot
}

// Latest returns the most recently computed snapshot, or the zero value
// before the first tick.
func (s *Sampler) Latest() Snapshot {
	if v := s.latest.Load(); v != nil {
		return v.(Snapshot)
	}
	return Snapshot{}
}

// Run ticks every Interval (default 15s, spec §4.7) until ctx is done,
// at which point it takes one final snapshot so the last-written report
// reflects the state at shutdown rather than one tick behind it.
func (s *Sampler) Run(ctx context.Context) error {
	interval := s.Interval
	if interval <= 0 {
		interval = 15 * time.Second
	}
	if err := os.MkdirAll(filepath.Join(s.WorkDir, "reports"), 0o755); err != nil {
		return fmt.Errorf("sampler: create reports dir: %w", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := s.tick(); err != nil {
				Logf(0, "sampler: tick: %v", err)
			}
		case <-ctx.Done():
			if err := s.tick(); err != nil {
				Logf(0, "sampler: final tick: %v", err)
			}
			return nil
		}
	}
}

func (s *Sampler) tick() error {
	branches, blocks := s.Coverage.Lens()
	executed, failed, crashed := s.Cases.Totals()
	snap := Snapshot{
		Time:          time.Now(),
		CorpusSize:    s.Corpus.Len(),
		Branches:      branches,
		Blocks:        blocks,
		ExecutedTotal: executed,
		FailedTotal:   failed,
		CrashedTotal:  crashed,
	}
	if s.Queue != nil {
		snap.QueueLen = s.Queue.Len()
	}
	s.latest.Store(snap)

	gaugeCorpus.Set(float64(snap.CorpusSize))
	gaugeBranches.Set(float64(snap.Branches))
	gaugeBlocks.Set(float64(snap.Blocks))
	gaugeExecuted.Set(float64(snap.ExecutedTotal))
	gaugeFailed.Set(float64(snap.FailedTotal))
	gaugeCrashed.Set(float64(snap.CrashedTotal))

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	path := filepath.Join(s.WorkDir, "reports", "stats.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot to %s: %w", path, err)
	}
	return nil
}
