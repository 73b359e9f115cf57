// Copyright 2024 healer project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// healer-fuzz is the coordinator binary: it loads a schema and manager
// config, runs static analysis to build relation tables, wires up the
// shared stores, and starts one worker per VM alongside the sampler and
// status server until told to stop.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"time"

	. "github.com/killvxk/healer/pkg/slog2"

	"github.com/killvxk/healer/pkg/cloudsink"
	"github.com/killvxk/healer/pkg/config"
	"github.com/killvxk/healer/pkg/fuzzer"
	"github.com/killvxk/healer/pkg/prog"
	"github.com/killvxk/healer/pkg/rtable"
	"github.com/killvxk/healer/pkg/sampler"
	"github.com/killvxk/healer/pkg/schema"
	"github.com/killvxk/healer/pkg/store"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/killvxk/healer/internal/httpstatus"
)

// genConfigFrom maps the manager config's flat length-bound fields onto
// the value builder's Config and the sequence planner's PlannerConfig
// (spec §4.4's single `config` parameter split across the two packages
// that actually consult it).
func genConfigFrom(cfg *config.Config) prog.GenConfig {
	return prog.GenConfig{
		Config: prog.Config{
			StrMinLen:    cfg.StrMinLen,
			StrMaxLen:    cfg.StrMaxLen,
			PathMaxDepth: cfg.PathMaxDepth,
		},
		Planner: rtable.PlannerConfig{
			ProgMaxLen: cfg.ProgMaxLen,
			ProgMinLen: cfg.ProgMinLen,
		},
	}
}

var (
	flagConfig  = flag.String("config", "", "path to the manager YAML config")
	flagSchema  = flag.String("schema", "", "path to the decoded schema file")
	flagVerbose = flag.Int("v", 0, "log verbosity")
	flagHTTP    = flag.String("http", "", "status server address, e.g. :8080 (empty disables it)")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: healer-fuzz -config=manager.yaml -schema=schema.json\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	SetVerbosity(*flagVerbose)

	if *flagConfig == "" || *flagSchema == "" {
		flag.Usage()
		os.Exit(1)
	}

	ctx := context.Background()
	if err := run(ctx); err != nil {
		Fatalf("healer-fuzz: %v", err)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(ctx, *flagConfig)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	workDir := config.WorkDir()
	for _, sub := range []string{"crashes", "reports"} {
		if err := os.MkdirAll(workDir+"/"+sub, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", sub, err)
		}
	}

	loader := schema.JSONLoader{}
	sc, err := loader.Load(*flagSchema)
	if err != nil {
		return fmt.Errorf("load schema: %w", err)
	}

	rtables, err := rtable.StubAnalyzer{}.Analyze(sc)
	if err != nil {
		return fmt.Errorf("analyze schema: %w", err)
	}

	corpus := store.NewCorpus()
	coverage := store.NewCoverage()
	cases := store.NewCaseRecord(sc, nil, workDir)

	var queue store.Queue
	if cfg.Cloud != nil && cfg.Cloud.PubsubTopic != "" {
		pq, err := cloudsink.NewPubSubQueue(ctx, cfg.Cloud.PubsubProject, cfg.Cloud.PubsubTopic, cfg.Cloud.PubsubTopic+"-sub")
		if err != nil {
			return fmt.Errorf("open pubsub queue: %w", err)
		}
		queue = pq
	} else {
		queue = store.NewChanQueue(nil)
	}
	defer queue.Close()

	if cfg.Cloud != nil && cfg.Cloud.LogID != "" {
		client, logger, err := DialCloudLogging(ctx, cfg.Cloud.PubsubProject, cfg.Cloud.LogID)
		if err != nil {
			return fmt.Errorf("dial cloud logging: %w", err)
		}
		defer client.Close()
		EnableCloudLogging(logger)
	}

	if cfg.Cloud != nil && cfg.Cloud.ProfilerService != "" {
		if err := cloudsink.StartProfiler(cfg.Cloud.ProfilerService, "v1"); err != nil {
			Logf(0, "profiler disabled: %v", err)
		}
	}

	sd := sampler.NewShutdown(ctx)
	sd.ListenSignals()

	vmNum := cfg.VMNum
	if vmNum <= 0 {
		vmNum = 1
	}
	bindings := make([]fuzzer.VMBinding, vmNum)
	for i := range bindings {
		bindings[i] = fuzzer.VMBinding{VM: noopVM{}, Executor: noopExecutor{}}
	}

	base := fuzzer.WorkerConfig{
		Schema:       sc,
		RTables:      rtables,
		Corpus:       corpus,
		Coverage:     coverage,
		Queue:        queue,
		Cases:        cases,
		Gen:          genConfigFrom(cfg),
		Rand:         rand.New(rand.NewSource(time.Now().UnixNano())),
		PersistEvery: 256,
	}
	pool := fuzzer.NewPool(base, bindings)

	smpl := &sampler.Sampler{
		Corpus:   corpus,
		Coverage: coverage,
		Cases:    cases,
		Queue:    queue,
		WorkDir:  workDir,
	}
	reg := prometheus.NewRegistry()
	if err := sampler.Register(reg); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	if *flagHTTP != "" {
		go func() {
			handler := httpstatus.New(smpl, reg, os.Stderr)
			if err := http.ListenAndServe(*flagHTTP, handler); err != nil {
				Logf(0, "status server stopped: %v", err)
			}
		}()
	}

	go func() {
		<-pool.Ready()
		Logf(0, "all %d workers booted", vmNum)
	}()

	errc := make(chan error, 1)
	go func() { errc <- pool.Run(sd.Context()) }()
	go func() { _ = smpl.Run(sd.Context()) }()

	return <-errc
}
