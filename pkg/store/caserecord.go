// Copyright 2024 healer project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/killvxk/healer/pkg/csource"
	"github.com/killvxk/healer/pkg/prog"
	"github.com/killvxk/healer/pkg/report"
	"github.com/killvxk/healer/pkg/schema"
	"golang.org/x/sys/unix"
)

const (
	executedCapacity = 65536
	failedCapacity   = 65536
	crashedCapacity  = 1024
)

// CaseMeta is the common header of every case kind (spec §4.6 /
// original_source report.rs's TestCase).
type CaseMeta struct {
	ID       uint64    `json:"id"`
	Title    string    `json:"title"`
	TestTime time.Time `json:"test_time"`
}

type ExecutedCase struct {
	Meta      CaseMeta `json:"meta"`
	Rendered  string   `json:"p"`
	BlockNum  []int    `json:"block_num"`
	BranchNum []int    `json:"branch_num"`
	NewBranch int      `json:"new_branch"`
	NewBlock  int      `json:"new_block"`
}

type FailedCase struct {
	Meta     CaseMeta `json:"meta"`
	Rendered string   `json:"p"`
	Reason   string   `json:"reason"`
}

type CrashedCase struct {
	Meta       CaseMeta             `json:"meta"`
	Rendered   string               `json:"p"`
	Reproduces bool                 `json:"repro"`
	Crash      report.CrashDetails  `json:"crash"`
}

// CaseRecord is the spec §4.6 bounded in-memory log of executed, failed
// and crashed cases, with a sequential, strictly increasing id assigned
// on insertion and periodic/on-shutdown persistence under work_dir.
type CaseRecord struct {
	executed *ring[ExecutedCase]
	failed   *ring[FailedCase]
	crashed  *ring[CrashedCase]

	executedTotal uint64
	failedTotal   uint64
	crashedTotal  uint64
	nextID        uint64

	schema     *schema.Schema
	translator csource.Translator
	workDir    string
}

func NewCaseRecord(sc *schema.Schema, translator csource.Translator, workDir string) *CaseRecord {
	if translator == nil {
		translator = csource.FnNameStub{}
	}
	return &CaseRecord{
		executed:   newRing[ExecutedCase](executedCapacity),
		failed:     newRing[FailedCase](failedCapacity),
		crashed:    newRing[CrashedCase](crashedCapacity),
		schema:     sc,
		translator: translator,
		workDir:    workDir,
	}
}

func (c *CaseRecord) nextIDVal() uint64 {
	return atomic.AddUint64(&c.nextID, 1) - 1
}

// titleOf implements spec §4.6's "{group_name}__{last_call_rendering}".
func (c *CaseRecord) titleOf(p *prog.Prog) (string, string) {
	rendered, err := c.translator.Render(p, c.schema)
	if err != nil {
		rendered = ""
	}
	groupName := fmt.Sprintf("group%d", p.Group)
	if g, ok := c.schema.Groups[p.Group]; ok {
		groupName = g.Name
	}
	last := csource.LastStatement(rendered)
	if last == "" {
		last = fmt.Sprintf("call%d", len(p.Calls))
	}
	return fmt.Sprintf("%s__%s", groupName, last), rendered
}

func (c *CaseRecord) InsertExecuted(p *prog.Prog, blockNum, branchNum []int, newBranch, newBlock int) {
	title, rendered := c.titleOf(p)
	c.executed.push(ExecutedCase{
		Meta:      CaseMeta{ID: c.nextIDVal(), Title: title, TestTime: time.Now()},
		Rendered:  rendered,
		BlockNum:  blockNum,
		BranchNum: branchNum,
		NewBranch: newBranch,
		NewBlock:  newBlock,
	})
	atomic.AddUint64(&c.executedTotal, 1)
}

func (c *CaseRecord) InsertFailed(p *prog.Prog, reason string) {
	title, rendered := c.titleOf(p)
	c.failed.push(FailedCase{
		Meta:     CaseMeta{ID: c.nextIDVal(), Title: title, TestTime: time.Now()},
		Rendered: rendered,
		Reason:   reason,
	})
	atomic.AddUint64(&c.failedTotal, 1)
}

// InsertCrashed records a crash case and persists it immediately to
// crashes/ (spec §4.5 step 3: "record a crashed case and persist it
// immediately to the crash directory").
func (c *CaseRecord) InsertCrashed(p *prog.Prog, crash report.CrashDetails, reproduces bool) error {
	title, rendered := c.titleOf(p)
	crash = report.Demangled(crash)
	cc := CrashedCase{
		Meta:       CaseMeta{ID: c.nextIDVal(), Title: title, TestTime: time.Now()},
		Rendered:   rendered,
		Reproduces: reproduces,
		Crash:      crash,
	}
	c.crashed.push(cc)
	atomic.AddUint64(&c.crashedTotal, 1)
	return c.persistCrash(cc)
}

// Totals reports the monotonically increasing per-bucket counters, not
// the (bounded) number currently retained in the ring buffers.
func (c *CaseRecord) Totals() (executed, failed, crashed uint64) {
	return atomic.LoadUint64(&c.executedTotal), atomic.LoadUint64(&c.failedTotal), atomic.LoadUint64(&c.crashedTotal)
}

func (c *CaseRecord) Retained() (executed, failed, crashed int) {
	return c.executed.len(), c.failed.len(), c.crashed.len()
}

// Persist flushes the current normal/failed windows to
// normal_case.json/failed_case.json (overwritten, not appended, per spec
// §6), taking an advisory flock on work_dir so two processes sharing it
// do not interleave writes (spec §5 domain stack #2).
func (c *CaseRecord) Persist() error {
	unlock, err := flockWorkDir(c.workDir)
	if err != nil {
		return err
	}
	defer unlock()

	if err := c.persistJSON("normal_case.json", c.executed.snapshot()); err != nil {
		return fmt.Errorf("store: persist executed cases: %w", err)
	}
	if err := c.persistJSON("failed_case.json", c.failed.snapshot()); err != nil {
		return fmt.Errorf("store: persist failed cases: %w", err)
	}
	return nil
}

func (c *CaseRecord) persistJSON(name string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.workDir, name), data, 0o644)
}

// persistedCrash is CrashedCase's on-disk shape: the console log, usually
// the bulk of a crash case's size, is xz-compressed separately rather
// than embedded verbatim in the pretty-printed JSON (spec §5 domain
// stack #8).
type persistedCrash struct {
	Meta       CaseMeta            `json:"meta"`
	Rendered   string              `json:"p"`
	Reproduces bool                `json:"repro"`
	Crash      report.CrashDetails `json:"crash"`
	ConsoleXZ  []byte              `json:"console_xz,omitempty"`
}

func (c *CaseRecord) persistCrash(cc CrashedCase) error {
	pc := persistedCrash{Meta: cc.Meta, Rendered: cc.Rendered, Reproduces: cc.Reproduces, Crash: cc.Crash}
	if pc.Crash.Console != "" {
		compressed, err := report.CompressConsole(pc.Crash.Console)
		if err != nil {
			return fmt.Errorf("store: compress console: %w", err)
		}
		pc.ConsoleXZ = compressed
		pc.Crash.Console = ""
	}

	data, err := json.MarshalIndent(pc, "", "  ")
	if err != nil {
		return fmt.Errorf("store: marshal crash case: %w", err)
	}
	path := filepath.Join(c.workDir, "crashes", sanitizeFileName(cc.Meta.Title))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("store: persist crash case to %s: %w", path, err)
	}
	return nil
}

// sanitizeFileName strips path separators from a case title so it is
// safe to use as a single crashes/ file name.
func sanitizeFileName(title string) string {
	out := make([]rune, 0, len(title))
	for _, r := range title {
		if r == '/' || r == '\\' || r == 0 {
			out = append(out, '_')
			continue
		}
		out = append(out, r)
	}
	return string(out)
}

// flockWorkDir takes an advisory exclusive lock on work_dir itself,
// returning an unlock func. Best-effort: if the platform/filesystem does
// not support flock, the returned unlock is a no-op rather than a fatal
// error, since this lock is a convenience against interleaved writers,
// not a correctness requirement within a single process.
func flockWorkDir(workDir string) (func(), error) {
	f, err := os.Open(workDir)
	if err != nil {
		return func() {}, fmt.Errorf("store: open work dir %s: %w", workDir, err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		f.Close()
		return func() {}, nil
	}
	return func() {
		unix.Flock(int(f.Fd()), unix.LOCK_UN)
		f.Close()
	}, nil
}
