// Copyright 2024 healer project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package rtable

// PlannerConfig carries the two length bounds the planner consults.
// prog_min_len is read but, per spec §4.3/§9 open question 4, never
// enforced: the planner can return a sequence shorter than it, and tests
// must accept any length >= 1.
type PlannerConfig struct {
	ProgMaxLen int
	ProgMinLen int
}

// ChooseSeq implements spec §4.3: iteratively seed a fresh call index,
// close it under the relation table's producer/consumer edges, and keep
// going while a fair coin says so and the max length has not been hit.
// The returned slice is a sequence of indices into the owning group's
// function list; indices may repeat (a dependency closure can revisit an
// already-chosen function, spec §4.3 "repeat").
func ChooseSeq(t *RTable, conf PlannerConfig, r rng) []int {
	seq := make([]int, 0, conf.ProgMaxLen)
	visited := make([]bool, t.N)

	for {
		k := r.Intn(t.N)
		seq = append(seq, k)
		visited[k] = true
		closeDeps(t, conf, r, &seq, visited, len(seq)-1)

		if len(seq) > conf.ProgMaxLen {
			break
		}
		if r.Float64() >= 0.5 {
			break
		}
	}
	if len(seq) > conf.ProgMaxLen {
		seq = seq[:conf.ProgMaxLen]
	}
	return seq
}

// closeDeps performs breadth-first dependency closure starting from
// seq[from], per spec §4.3. A newly-discovered producer (Some/Unknown,
// not yet visited) is inserted immediately *before* the consuming
// position: the generator (§4.4) emits Calls in seq order, and a
// consumer's argument can only reuse a producer's resource handle via a
// Ref to an *earlier* call, so an unvisited dependency has to land before
// its consumer, not after it. A dependency that is already visited is
// instead appended at the end as a plain repeat: the resource it would
// produce already exists earlier in the sequence, so there is no
// ordering constraint to satisfy, only variety in how often it runs.
func closeDeps(t *RTable, conf PlannerConfig, r rng, seq *[]int, visited []bool, from int) {
	if len(*seq) >= conf.ProgMaxLen {
		return
	}
	pos := from
	i := (*seq)[pos]
	frontier := make([]int, 0)
	for j := 0; j < t.N; j++ {
		if len(*seq) >= conf.ProgMaxLen {
			return
		}
		switch t.At(i, j) {
		case Some:
			if !visited[j] && r.Float64() > 0.25 {
				insertBefore(seq, pos, j)
				visited[j] = true
				frontier = append(frontier, pos)
				pos++
			} else if visited[j] && r.Float64() > 0.75 {
				*seq = append(*seq, j)
				frontier = append(frontier, len(*seq)-1)
			}
		case Unknown:
			if !visited[j] && r.Float64() >= 0.5 {
				insertBefore(seq, pos, j)
				visited[j] = true
				frontier = append(frontier, pos)
				pos++
			} else if visited[j] && r.Float64() > 0.875 {
				*seq = append(*seq, j)
				frontier = append(frontier, len(*seq)-1)
			}
		}
	}
	for _, fp := range frontier {
		if len(*seq) >= conf.ProgMaxLen {
			return
		}
		closeDeps(t, conf, r, seq, visited, fp)
	}
}

// insertBefore inserts fn at index pos of *seq, shifting pos and
// everything after it one slot to the right.
func insertBefore(seq *[]int, pos, fn int) {
	*seq = append(*seq, 0)
	copy((*seq)[pos+1:], (*seq)[pos:len(*seq)-1])
	(*seq)[pos] = fn
}
