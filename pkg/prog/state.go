// Copyright 2024 healer project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package prog

import "github.com/killvxk/healer/pkg/schema"

// Rand is the minimal PRNG surface the builder and generator need.
// *math/rand.Rand satisfies it; tests inject a seeded one (spec §5:
// "tests may inject a seeded PRNG").
type Rand interface {
	Intn(n int) int
	Float64() float64
	Int63() int64
	Int63n(n int64) int64
	Uint32() uint32
	Int31() int32
}

// state is local to one Generate call: resource/string memory (spec
// §4.2) plus the Prog under construction. It is discarded when
// generation completes, per spec §3's "Resource-handle memory is scoped
// to the program being generated" invariant.
type state struct {
	res  map[schema.TypeId][]ArgRef
	strs map[schema.StrKind][]string
	prog *Prog
	rnd  Rand
}

func newState(prog *Prog, rnd Rand) *state {
	return &state{
		res:  make(map[schema.TypeId][]ArgRef),
		strs: make(map[schema.StrKind][]string),
		prog: prog,
		rnd:  rnd,
	}
}

// recordRes appends a reference to the slot that just produced a
// resource: the current (last) call's Ret slot if isRet, else its last
// Arg slot. Spec §4.2: "record_res(tid, is_return) appends
// (len(prog)-1, Ret | Arg(last_arg_pos))".
func (s *state) recordRes(tid schema.TypeId, isRet bool) {
	cid := len(s.prog.Calls) - 1
	var pos ArgPos
	if isRet {
		pos = ArgPos{Kind: PosRet}
	} else {
		call := &s.prog.Calls[cid]
		pos = ArgPos{Kind: PosArg, Index: len(call.Args) - 1}
	}
	s.res[tid] = append(s.res[tid], ArgRef{Call: cid, Pos: pos})
}

// tryReuseRes returns a uniformly chosen prior reference to a handle of
// type tid, or false if none has been recorded yet this program.
func (s *state) tryReuseRes(tid schema.TypeId) (ArgRef, bool) {
	cands := s.res[tid]
	if len(cands) == 0 {
		return ArgRef{}, false
	}
	return cands[s.rnd.Intn(len(cands))], true
}

// reusePool maps a requested string kind to the pool it is recorded into
// and queried from. Per spec §9 open question 2, CStr reuse queries the
// Str pool rather than its own — the spec keeps this as the preserved,
// documented behavior (see DESIGN.md), so both Str and CStr route here.
func reusePool(kind schema.StrKind) schema.StrKind {
	if kind == schema.CStr {
		return schema.Str
	}
	return kind
}

func (s *state) recordStr(kind schema.StrKind, val string) {
	pool := reusePool(kind)
	s.strs[pool] = append(s.strs[pool], val)
}

// tryReuseStr reuses probabilistically: a fair coin decides whether to
// reuse when candidates exist (spec §4.2).
func (s *state) tryReuseStr(kind schema.StrKind) (string, bool) {
	pool := reusePool(kind)
	cands := s.strs[pool]
	if len(cands) == 0 || s.rnd.Float64() >= 0.5 {
		return "", false
	}
	return cands[s.rnd.Intn(len(cands))], true
}
