// Copyright 2024 healer project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package rtable holds the relation table produced by static analysis of
// the schema (spec §3, "Relation table (RTable)") and the sequence
// planner that consumes it (spec §4.3).
package rtable

import (
	"fmt"
	"math/rand"

	"github.com/killvxk/healer/pkg/schema"
)

// Relation is one (i, j) cell of an RTable: does function j produce a
// resource that function i consumes?
type Relation int

const (
	None Relation = iota
	Some
	Unknown
)

// RTable is the square matrix over one group's functions.
type RTable struct {
	N    int
	Rows [][]Relation
}

// New allocates an n x n table with every cell set to None.
func New(n int) *RTable {
	rows := make([][]Relation, n)
	for i := range rows {
		rows[i] = make([]Relation, n)
	}
	return &RTable{N: n, Rows: rows}
}

func (t *RTable) At(i, j int) Relation {
	return t.Rows[i][j]
}

func (t *RTable) Set(i, j int, r Relation) {
	t.Rows[i][j] = r
}

// Analyzer builds the per-group relation tables from a loaded schema. The
// real static analyzer (dataflow analysis over the schema, see spec §6) is
// out of this core's scope; StubAnalyzer below gives tests and the
// generator something concrete to run against by deriving Some/Unknown
// purely from resource-type overlap between function signatures, which is
// the same directional in/out scan the teacher's
// Target.AnalyzeStaticInfluence performs (see target.go's
// calcTypeUsage/AnalyzeStaticInfluence).
type Analyzer interface {
	Analyze(s *schema.Schema) (map[schema.GroupId]*RTable, error)
}

// StubAnalyzer computes Some whenever fn i has a parameter of resource
// type R and fn j produces R via its return value or an Out/InOut
// parameter, mirroring the teacher's AnalyzeStaticInfluence. It never
// emits Unknown since it has full signature information; a real
// dataflow-based analyzer is expected to report Unknown where it cannot
// prove or disprove a producer/consumer relationship.
type StubAnalyzer struct{}

func (StubAnalyzer) Analyze(s *schema.Schema) (map[schema.GroupId]*RTable, error) {
	out := make(map[schema.GroupId]*RTable, len(s.Groups))
	for gid, g := range s.Groups {
		n := len(g.Fns)
		t := New(n)
		produces := make([]map[schema.TypeId]bool, n)
		consumes := make([]map[schema.TypeId]bool, n)
		for idx, fn := range g.Fns {
			produces[idx] = map[schema.TypeId]bool{}
			consumes[idx] = map[schema.TypeId]bool{}
			if fn.HasRet && s.IsRes(fn.Ret) {
				produces[idx][fn.Ret] = true
			}
			for _, p := range fn.Params {
				rtid, consumed := resourceOf(s, p.Type, false)
				if consumed {
					consumes[idx][rtid] = true
				}
				if rtid2, produced := resourceOf(s, p.Type, true); produced {
					produces[idx][rtid2] = true
				}
			}
		}
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				if i == j {
					continue
				}
				for rtid := range consumes[i] {
					if produces[j][rtid] {
						t.Set(i, j, Some)
						break
					}
				}
			}
		}
		out[gid] = t
	}
	if len(out) != len(s.Groups) {
		return nil, fmt.Errorf("rtable: analyzed %d groups, schema has %d", len(out), len(s.Groups))
	}
	return out, nil
}

// resourceOf reports whether tid is, or is an Out/InOut pointer to, a
// resource type, following Alias chains as schema.IsRes does. wantOut
// selects whether we are looking for a producing occurrence (an Out/InOut
// pointer to a resource) or a consuming one (an In pointer to a resource,
// or a bare resource parameter).
func resourceOf(s *schema.Schema, tid schema.TypeId, wantOut bool) (schema.TypeId, bool) {
	t := s.Type(tid)
	if t.Kind == schema.KindPtr {
		isOut := t.PtrDir == schema.DirOut || t.PtrDir == schema.DirInOut
		if isOut != wantOut {
			return 0, false
		}
		inner, _ := s.ResolveAlias(t.PtrInner)
		if s.IsRes(inner) {
			return inner, true
		}
		return 0, false
	}
	if wantOut {
		return 0, false
	}
	resolved, _ := s.ResolveAlias(tid)
	if s.IsRes(resolved) {
		return resolved, true
	}
	return 0, false
}

// rng is the minimal surface the planner needs; satisfied by *rand.Rand.
// Exists so tests can inject a seeded, deterministic generator per spec §5
// ("Randomness ... tests may inject a seeded PRNG").
type rng interface {
	Intn(n int) int
	Float64() float64
}

var _ rng = (*rand.Rand)(nil)
