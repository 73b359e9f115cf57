// Copyright 2024 healer project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package prog

import (
	"fmt"

	"github.com/killvxk/healer/pkg/rtable"
	"github.com/killvxk/healer/pkg/schema"
)

// GenConfig bundles the value-builder Config with the sequence planner's
// length bounds, matching the single `config` parameter spec §4.4's
// `generate(schema, rtables, config) -> Prog` takes.
type GenConfig struct {
	Config
	Planner rtable.PlannerConfig
}

// Generate implements spec §4.4. Precondition: rtables is non-empty and
// its key set equals sc's group set — violating either is a schema/static-
// analyzer mismatch and is fatal (spec §7 "Schema-invalid").
func Generate(sc *schema.Schema, rtables map[schema.GroupId]*rtable.RTable, conf GenConfig, r Rand) (*Prog, error) {
	if len(rtables) == 0 {
		return nil, fmt.Errorf("prog: generate: empty relation table set")
	}
	if len(rtables) != len(sc.Groups) {
		return nil, fmt.Errorf("prog: generate: %d relation tables for %d groups", len(rtables), len(sc.Groups))
	}

	gids := make([]schema.GroupId, 0, len(sc.Groups))
	for gid := range sc.Groups {
		gids = append(gids, gid)
	}
	gid := gids[r.Intn(len(gids))]
	group := sc.Groups[gid]
	rt, ok := rtables[gid]
	if !ok {
		return nil, fmt.Errorf("prog: generate: no relation table for group %d", gid)
	}

	seq := rtable.ChooseSeq(rt, conf.Planner, r)

	p := &Prog{Group: gid}
	st := newState(p, r)
	for _, idx := range seq {
		fn := group.Fns[idx]
		genCall(fn, sc, conf.Config, st)
	}
	return p, nil
}

// genCall appends one Call and fills in its arguments and return value,
// per spec §4.4: push a placeholder Arg, compute its value, overwrite;
// then, for a resource-typed return, attach a placeholder return Arg and
// record the new handle.
func genCall(fn *schema.FnInfo, sc *schema.Schema, conf Config, st *state) {
	st.prog.Calls = append(st.prog.Calls, Call{Fn: fn.ID})
	call := &st.prog.Calls[len(st.prog.Calls)-1]

	for _, param := range fn.Params {
		call.Args = append(call.Args, Arg{Type: param.Type})
		val := buildValue(param.Type, sc, conf, st)
		call.Args[len(call.Args)-1].Value = val
	}

	if fn.HasRet && sc.IsRes(fn.Ret) {
		call.Ret = &Arg{Type: fn.Ret, Value: DefaultVal(fn.Ret)}
		st.recordRes(fn.Ret, true)
	}
}
