// Copyright 2024 healer project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package csource defines the C-translation backend's interface (spec
// §6): given a Prog and the schema it was generated from, render it as a
// reproducer source file. The actual translator is out of this core's
// scope; this package only carries the contract and a stub used when no
// translator is configured.
package csource

import (
	"fmt"
	"strings"

	"github.com/killvxk/healer/pkg/prog"
	"github.com/killvxk/healer/pkg/schema"
)

// Translator renders a Prog as reproducer source. Render's returned
// string's last statement feeds case titles (spec §4.6, §6).
type Translator interface {
	Render(p *prog.Prog, s *schema.Schema) (string, error)
}

// FnNameStub is used when no real Translator is wired in: it renders
// each call on its own line as "<fn name>(<N> args)" ("?" for a function
// id the group does not list), without rendering any argument values,
// which is enough to seed stable, readable case titles even without the
// real C backend.
type FnNameStub struct{}

func (FnNameStub) Render(p *prog.Prog, s *schema.Schema) (string, error) {
	group, ok := s.Groups[p.Group]
	if !ok {
		return "", fmt.Errorf("csource: unknown group %d", p.Group)
	}
	var b strings.Builder
	for _, c := range p.Calls {
		fn := fnByID(group, c.Fn)
		name := "?"
		if fn != nil {
			name = fn.Name
		}
		fmt.Fprintf(&b, "%s(%d args)\n", name, len(c.Args))
	}
	return b.String(), nil
}

func fnByID(g *schema.GroupInfo, id schema.FnId) *schema.FnInfo {
	for _, fn := range g.Fns {
		if fn.ID == id {
			return fn
		}
	}
	return nil
}

// LastStatement returns the last non-empty line of a rendered script, the
// string case titles are built from (spec §4.6).
func LastStatement(script string) string {
	lines := strings.Split(strings.TrimRight(script, "\n"), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.TrimSpace(lines[i]) != "" {
			return strings.TrimSpace(lines[i])
		}
	}
	return ""
}
