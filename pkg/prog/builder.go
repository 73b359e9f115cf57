// Copyright 2024 healer project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package prog

import (
	"strings"

	"github.com/killvxk/healer/pkg/schema"
)

// Config is the subset of spec §6's configuration consumed by value
// building: string/path length bounds. Sequence length bounds live in
// rtable.PlannerConfig since only the planner consults them.
type Config struct {
	StrMinLen    int
	StrMaxLen    int
	PathMaxDepth int
}

const cstrAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// buildValue dispatches on tid's TypeInfo variant, implementing spec
// §4.1 in full. It is purely functional with respect to sc; all side
// effects land in st (resource/string memory and the call under
// construction).
func buildValue(tid schema.TypeId, sc *schema.Schema, conf Config, st *state) Value {
	t := sc.Type(tid)
	switch t.Kind {
	case schema.KindNum:
		return buildNum(t, st.rnd)
	case schema.KindPtr:
		return buildPtr(tid, t, sc, conf, st)
	case schema.KindSlice:
		return buildSlice(t, sc, conf, st)
	case schema.KindStr:
		return buildStr(t, conf, st)
	case schema.KindStruct:
		return buildStruct(t, sc, conf, st)
	case schema.KindUnion:
		return buildUnion(t, sc, conf, st)
	case schema.KindFlag:
		return buildFlag(t, st.rnd)
	case schema.KindAlias:
		return buildAlias(tid, t, sc, conf, st)
	case schema.KindRes:
		return buildRes(tid, t, sc, conf, st)
	case schema.KindLen:
		return NumUnsigned(0)
	default:
		panic("prog: unknown TypeInfo kind")
	}
}

func widen(signed bool, raw int64) Value {
	if signed {
		return NumSigned(raw)
	}
	return NumUnsigned(uint64(raw))
}

func buildNum(t schema.TypeInfo, r Rand) Value {
	signed := t.NumKind.Signed()
	switch t.NumLimit.Kind {
	case schema.LimitEnum:
		vals := t.NumLimit.Vals
		v := vals[r.Intn(len(vals))]
		return widen(signed, v)
	case schema.LimitRange:
		lo, hi := t.NumLimit.Lo, t.NumLimit.Hi
		span := hi - lo
		if span <= 0 {
			return widen(signed, lo)
		}
		v := lo + r.Int63n(span)
		return widen(signed, v)
	default: // LimitAny: draw the declared width, then sign/zero-extend to i64/u64.
		var raw int64
		switch t.NumKind {
		case schema.I8:
			raw = int64(int8(r.Int31()))
		case schema.U8:
			raw = int64(uint8(r.Int31()))
		case schema.I16:
			raw = int64(int16(r.Int31()))
		case schema.U16:
			raw = int64(uint16(r.Int31()))
		case schema.I32, schema.U32, schema.INative, schema.UNative:
			raw = int64(int32(r.Int31()))
		default: // I64, U64
			raw = r.Int63()
		}
		return widen(signed, raw)
	}
}

func buildPtr(tid schema.TypeId, t schema.TypeInfo, sc *schema.Schema, conf Config, st *state) Value {
	if t.PtrDepth != 1 {
		panic("prog: multi-level pointer not supported")
	}
	if t.PtrDir != schema.DirIn {
		if sc.IsRes(t.PtrInner) {
			st.recordRes(t.PtrInner, false)
		}
		return DefaultVal(t.PtrInner)
	}
	if st.rnd.Float64() < 0.9 {
		return buildValue(t.PtrInner, sc, conf, st)
	}
	return NoneVal()
}

func sliceLen(lo, hi int, r Rand) int {
	switch {
	case lo == -1 && hi == -1:
		return r.Intn(8)
	case hi == -1:
		if lo <= 0 {
			return 0
		}
		return r.Intn(lo)
	default:
		if hi <= lo {
			return lo
		}
		return lo + r.Intn(hi-lo)
	}
}

func buildSlice(t schema.TypeInfo, sc *schema.Schema, conf Config, st *state) Value {
	n := sliceLen(t.SliceLo, t.SliceHi, st.rnd)
	vals := make([]Value, n)
	for i := 0; i < n; i++ {
		vals[i] = buildValue(t.SliceInner, sc, conf, st)
	}
	return GroupVal(vals)
}

func buildStr(t schema.TypeInfo, conf Config, st *state) Value {
	if len(t.StrVals) > 0 {
		return StrVal(t.StrVals[st.rnd.Intn(len(t.StrVals))])
	}
	span := conf.StrMaxLen - conf.StrMinLen
	length := conf.StrMinLen
	if span > 0 {
		length += st.rnd.Intn(span)
	}
	switch t.StrKind {
	case schema.CStr:
		if s, ok := st.tryReuseStr(schema.CStr); ok {
			return StrVal(s)
		}
		v := randAlphanum(length, st.rnd)
		st.recordStr(schema.CStr, v)
		return StrVal(v)
	case schema.FileName:
		if s, ok := st.tryReuseStr(schema.FileName); ok {
			return StrVal(s)
		}
		v := buildFileName(length, conf.PathMaxDepth, st.rnd)
		st.recordStr(schema.FileName, v)
		return StrVal(v)
	default: // schema.Str
		if s, ok := st.tryReuseStr(schema.Str); ok {
			return StrVal(s)
		}
		v := randUnicode(length, st.rnd)
		st.recordStr(schema.Str, v)
		return StrVal(v)
	}
}

func randAlphanum(n int, r Rand) string {
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		b.WriteByte(cstrAlphabet[r.Intn(len(cstrAlphabet))])
	}
	return b.String()
}

// unicodeRanges avoids surrogate code points (D800-DFFF), which are not
// valid standalone runes.
var unicodeRanges = [][2]rune{{0x20, 0xD7FF}, {0xE000, 0xFFFD}}

func randUnicode(n int, r Rand) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		rg := unicodeRanges[r.Intn(len(unicodeRanges))]
		span := int(rg[1] - rg[0])
		ch := rg[0] + rune(r.Intn(span+1))
		b.WriteRune(ch)
	}
	return b.String()
}

// buildFileName implements the filename generation loop of spec §4.1:
// start from "." and append up to path_max_depth alphanumeric segments,
// continuing with probability 0.6 after each append. If the constructed
// path is not valid (here: contains a NUL byte, the one way a Go string
// can fail to be a usable host path), restart from scratch rather than
// try to escape it (spec §9 open question 3).
func buildFileName(segLen, maxDepth int, r Rand) string {
	for {
		segs := []string{"."}
		depth := 0
		for {
			segs = append(segs, randAlphanum(segLen, r))
			depth++
			if depth >= maxDepth || r.Float64() >= 0.6 {
				break
			}
		}
		path := strings.Join(segs, "/")
		if !strings.ContainsRune(path, 0) {
			return path
		}
	}
}

func buildStruct(t schema.TypeInfo, sc *schema.Schema, conf Config, st *state) Value {
	vals := make([]Value, len(t.Fields))
	for i, f := range t.Fields {
		vals[i] = buildValue(f.Type, sc, conf, st)
	}
	return GroupVal(vals)
}

func buildUnion(t schema.TypeInfo, sc *schema.Schema, conf Config, st *state) Value {
	i := st.rnd.Intn(len(t.Fields))
	v := buildValue(t.Fields[i].Type, sc, conf, st)
	return OptVal(i, v)
}

// buildFlag implements spec §4.1's Flag rule, including the open
// question about using AND instead of OR (spec §9 #1): preserved as-is.
func buildFlag(t schema.TypeInfo, r Rand) Value {
	if r.Float64() < 0.2 {
		return NumSigned(int64(int32(r.Int31())))
	}
	acc := t.Flags[r.Intn(len(t.Flags))].Val
	for r.Float64() < 0.5 {
		acc &= t.Flags[r.Intn(len(t.Flags))].Val
	}
	return NumSigned(acc)
}

// buildAlias implements spec §4.1's Alias rule. A resource-typed alias
// first tries its own reuse pool (keyed by the alias's own TypeId, since
// that is the identity function signatures reference it by) before
// falling through to whatever its Underlying type generates — which, for
// the common case of an alias directly naming a Res type, recurses into
// buildRes keyed by that Res type's own id.
func buildAlias(tid schema.TypeId, t schema.TypeInfo, sc *schema.Schema, conf Config, st *state) Value {
	if sc.IsRes(tid) {
		if ref, ok := st.tryReuseRes(tid); ok {
			return RefVal(ref)
		}
	}
	return buildValue(t.Underlying, sc, conf, st)
}

func buildRes(tid schema.TypeId, t schema.TypeInfo, sc *schema.Schema, conf Config, st *state) Value {
	if ref, ok := st.tryReuseRes(tid); ok {
		return RefVal(ref)
	}
	return buildValue(t.Underlying, sc, conf, st)
}
