// Copyright 2024 healer project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package prog implements the value builder, resource/string memory and
// program generator described in spec §4.1, §4.2 and §4.4. A Prog is a
// dense vector of Calls; every intra-program reference is a small
// (call index, arg position) pair rather than an owning pointer, per the
// "arena + index" shape spec §9 calls out explicitly.
package prog

import "github.com/killvxk/healer/pkg/schema"

// ArgPosKind discriminates a reference's target slot within a call.
type ArgPosKind int

const (
	PosRet ArgPosKind = iota
	PosArg
)

// ArgPos is `Ret | Arg(k)` from spec §3.
type ArgPos struct {
	Kind ArgPosKind
	Index int // meaningful only when Kind == PosArg
}

// ArgRef is `(call_index, arg_pos)` from spec §3 — the only shape
// back-references take. It is never an owning pointer, only a lookup key
// into Prog.Calls.
type ArgRef struct {
	Call int
	Pos  ArgPos
}

// ValueKind is Value's tag (spec §3: "Value (variants)").
type ValueKind int

const (
	VNum ValueKind = iota
	VStr
	VRef
	VGroup
	VOpt
	VNone
	VDefault
)

// Value is the closed sum of runtime value shapes. Exactly the fields
// relevant to Kind are populated; this mirrors TypeInfo's own
// single-struct tagged-union shape in package schema.
type Value struct {
	Kind ValueKind

	Signed bool  // VNum
	I64    int64 // VNum, signed
	U64    uint64 // VNum, unsigned

	Str string // VStr

	Ref ArgRef // VRef

	Group []Value // VGroup (struct fields or slice elements, in order)

	Choice int    // VOpt
	Val    *Value // VOpt

	Type schema.TypeId // VDefault
}

func NumSigned(v int64) Value  { return Value{Kind: VNum, Signed: true, I64: v} }
func NumUnsigned(v uint64) Value { return Value{Kind: VNum, Signed: false, U64: v} }
func StrVal(s string) Value    { return Value{Kind: VStr, Str: s} }
func RefVal(r ArgRef) Value    { return Value{Kind: VRef, Ref: r} }
func GroupVal(vs []Value) Value { return Value{Kind: VGroup, Group: vs} }
func OptVal(choice int, v Value) Value {
	vv := v
	return Value{Kind: VOpt, Choice: choice, Val: &vv}
}
func NoneVal() Value              { return Value{Kind: VNone} }
func DefaultVal(t schema.TypeId) Value { return Value{Kind: VDefault, Type: t} }

// Arg is `{ TypeId, Value }` from spec §3.
type Arg struct {
	Type  schema.TypeId
	Value Value
}

// Call is `{ FnId, ordered Args, optional return Arg }`.
type Call struct {
	Fn   schema.FnId
	Args []Arg
	Ret  *Arg
}

// Prog is `{ GroupId, ordered Calls }`.
type Prog struct {
	Group schema.GroupId
	Calls []Call
}

func (p *Prog) Len() int { return len(p.Calls) }

// Slot resolves an ArgRef into the Arg it names, for invariant checking
// and for consumers (e.g. the C translator) that need the referenced
// value. Panics if the ref is out of range — callers are expected to only
// ever construct refs that point at slots that exist (spec §3 invariant).
func (p *Prog) Slot(r ArgRef) Arg {
	c := p.Calls[r.Call]
	if r.Pos.Kind == PosRet {
		if c.Ret == nil {
			panic("prog: ref to missing return slot")
		}
		return *c.Ret
	}
	return c.Args[r.Pos.Index]
}
