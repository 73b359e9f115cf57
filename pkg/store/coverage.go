// Copyright 2024 healer project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package store

import "sync"

// Coverage holds the two monotonically growing sets from spec §4.6:
// branches and blocks reported by the in-guest executor. Only unions are
// ever performed — nothing is ever removed — which is what makes
// concurrent, unordered updates from multiple workers safe (spec §5:
// "coverage is a set, so union is commutative and idempotent").
type Coverage struct {
	mu       sync.Mutex
	branches map[uint32]struct{}
	blocks   map[uint32]struct{}
}

func NewCoverage() *Coverage {
	return &Coverage{
		branches: make(map[uint32]struct{}),
		blocks:   make(map[uint32]struct{}),
	}
}

// Diff computes, without mutating the globals, which of the given
// branches/blocks are not yet in the global sets.
func (c *Coverage) Diff(branches, blocks []uint32) (newBranches, newBlocks []uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, b := range branches {
		if _, ok := c.branches[b]; !ok {
			newBranches = append(newBranches, b)
		}
	}
	for _, b := range blocks {
		if _, ok := c.blocks[b]; !ok {
			newBlocks = append(newBlocks, b)
		}
	}
	return
}

// Merge unions newBranches/newBlocks into the global sets.
func (c *Coverage) Merge(newBranches, newBlocks []uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, b := range newBranches {
		c.branches[b] = struct{}{}
	}
	for _, b := range newBlocks {
		c.blocks[b] = struct{}{}
	}
}

func (c *Coverage) Lens() (branches, blocks int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.branches), len(c.blocks)
}

// Snapshot returns copies of both sets.
func (c *Coverage) Snapshot() (branches, blocks []uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for b := range c.branches {
		branches = append(branches, b)
	}
	for b := range c.blocks {
		blocks = append(blocks, b)
	}
	return
}
