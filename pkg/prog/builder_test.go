// Copyright 2024 healer project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package prog

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/killvxk/healer/pkg/schema"
	"github.com/stretchr/testify/require"
)

func testConf() Config {
	return Config{StrMinLen: 4, StrMaxLen: 12, PathMaxDepth: 3}
}

// S3 — Range numeric: across many invocations the emitted numbers all
// satisfy lo <= n < hi.
func TestBuildNum_Range(t *testing.T) {
	sc := &schema.Schema{Types: []schema.TypeInfo{{
		Kind:    schema.KindNum,
		NumKind: schema.U32,
		NumLimit: schema.NumLimit{Kind: schema.LimitRange, Lo: 10, Hi: 20},
	}}}
	r := rand.New(rand.NewSource(1))
	st := newState(&Prog{}, r)
	for i := 0; i < 10000; i++ {
		v := buildValue(0, sc, testConf(), st)
		require.Equal(t, VNum, v.Kind)
		require.False(t, v.Signed)
		require.GreaterOrEqual(t, v.U64, uint64(10))
		require.Less(t, v.U64, uint64(20))
	}
}

func TestBuildNum_Enum(t *testing.T) {
	vals := []int64{3, 7, 42}
	sc := &schema.Schema{Types: []schema.TypeInfo{{
		Kind:    schema.KindNum,
		NumKind: schema.I32,
		NumLimit: schema.NumLimit{Kind: schema.LimitEnum, Vals: vals},
	}}}
	r := rand.New(rand.NewSource(2))
	st := newState(&Prog{}, r)
	for i := 0; i < 1000; i++ {
		v := buildValue(0, sc, testConf(), st)
		require.Contains(t, vals, v.I64)
	}
}

// S4 — Flag combination: at least 80% of draws satisfy v & ~(A|B|C) == 0.
func TestBuildFlag_MostlyMasked(t *testing.T) {
	flags := []schema.FlagVal{{Name: "A", Val: 1}, {Name: "B", Val: 2}, {Name: "C", Val: 4}}
	sc := &schema.Schema{Types: []schema.TypeInfo{{Kind: schema.KindFlag, Flags: flags}}}
	r := rand.New(rand.NewSource(3))
	st := newState(&Prog{}, r)
	masked := 0
	const n = 10000
	for i := 0; i < n; i++ {
		v := buildValue(0, sc, testConf(), st)
		if v.I64&^int64(7) == 0 {
			masked++
		}
	}
	require.GreaterOrEqual(t, float64(masked)/float64(n), 0.8)
}

// S5 — Filename depth: with path_max_depth=3, every filename has at most
// 3 segments beyond the leading ".".
func TestBuildFileName_Depth(t *testing.T) {
	sc := &schema.Schema{Types: []schema.TypeInfo{{
		Kind: schema.KindStr, StrKind: schema.FileName,
	}}}
	r := rand.New(rand.NewSource(4))
	conf := Config{StrMinLen: 4, StrMaxLen: 8, PathMaxDepth: 3}
	for i := 0; i < 500; i++ {
		st := newState(&Prog{}, r)
		v := buildValue(0, sc, conf, st)
		require.Equal(t, VStr, v.Kind)
		segs := strings.Split(v.Str, "/")
		require.LessOrEqual(t, len(segs)-1, 3)
		require.Equal(t, ".", segs[0])
	}
}

func TestBuildStruct_FieldCount(t *testing.T) {
	sc := &schema.Schema{Types: []schema.TypeInfo{
		{Kind: schema.KindNum, NumKind: schema.U32, NumLimit: schema.NumLimit{Kind: schema.LimitAny}}, // 0
		{Kind: schema.KindStruct, Fields: []schema.Field{{Name: "a", Type: 0}, {Name: "b", Type: 0}}}, // 1
	}}
	r := rand.New(rand.NewSource(5))
	st := newState(&Prog{}, r)
	v := buildValue(1, sc, testConf(), st)
	require.Equal(t, VGroup, v.Kind)
	require.Len(t, v.Group, 2)
}

func TestBuildUnion_ChoiceInRange(t *testing.T) {
	sc := &schema.Schema{Types: []schema.TypeInfo{
		{Kind: schema.KindNum, NumKind: schema.U32, NumLimit: schema.NumLimit{Kind: schema.LimitAny}},
		{Kind: schema.KindUnion, Fields: []schema.Field{{Name: "a", Type: 0}, {Name: "b", Type: 0}, {Name: "c", Type: 0}}},
	}}
	r := rand.New(rand.NewSource(6))
	st := newState(&Prog{}, r)
	for i := 0; i < 200; i++ {
		v := buildValue(1, sc, testConf(), st)
		require.Equal(t, VOpt, v.Kind)
		require.GreaterOrEqual(t, v.Choice, 0)
		require.Less(t, v.Choice, 3)
	}
}

func TestBuildSlice_Bounds(t *testing.T) {
	sc := &schema.Schema{Types: []schema.TypeInfo{
		{Kind: schema.KindNum, NumKind: schema.U8, NumLimit: schema.NumLimit{Kind: schema.LimitAny}},
		{Kind: schema.KindSlice, SliceInner: 0, SliceLo: 2, SliceHi: 5},
	}}
	r := rand.New(rand.NewSource(7))
	st := newState(&Prog{}, r)
	for i := 0; i < 200; i++ {
		v := buildValue(1, sc, testConf(), st)
		require.GreaterOrEqual(t, len(v.Group), 2)
		require.Less(t, len(v.Group), 5)
	}
}
