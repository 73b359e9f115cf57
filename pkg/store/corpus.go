// Copyright 2024 healer project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package store

import (
	"crypto/sha256"
	"encoding/json"
	"sync"

	"github.com/killvxk/healer/pkg/prog"
)

// Hash is a canonical-rendering hash of a Prog, used as the Corpus's
// dedup key. Hashing the program
// rather than comparing structurally mirrors the teacher's
// "hash a canonical rendering" note in spec §4.6.
type Hash [sha256.Size]byte

func HashProg(p *prog.Prog) (Hash, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return Hash{}, err
	}
	return sha256.Sum256(data), nil
}

// Corpus is the set-like collection of programs that produced new
// coverage (spec §4.6). Insertion is concurrent; Snapshot takes a
// point-in-time copy safe to range over without holding the lock.
type Corpus struct {
	mu    sync.RWMutex
	progs map[Hash]*prog.Prog
}

func NewCorpus() *Corpus {
	return &Corpus{progs: make(map[Hash]*prog.Prog)}
}

// Insert adds p if its hash is not already present, reporting whether it
// was newly added.
func (c *Corpus) Insert(p *prog.Prog) (bool, error) {
	h, err := HashProg(p)
	if err != nil {
		return false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.progs[h]; ok {
		return false, nil
	}
	c.progs[h] = p
	return true, nil
}

func (c *Corpus) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.progs)
}

// Snapshot returns every program currently in the corpus.
func (c *Corpus) Snapshot() []*prog.Prog {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*prog.Prog, 0, len(c.progs))
	for _, p := range c.progs {
		out = append(out, p)
	}
	return out
}
