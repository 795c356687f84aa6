// Package dataflow implements the generic monotone worklist solver of
// spec §4.3, grounded on the teacher's extras/cfg/df.go: the same
// "iterate predecessors/successors, union or intersect into IN/OUT, repeat
// until nothing changes" fixed-point loop that reachingBuilder.build() and
// liveVarBuilder.build() each hard-coded once, lifted here into a single
// solver parameterized by meet and transfer closures (spec §9's explicit
// "avoid a class hierarchy per analysis" guidance). Lattice elements reuse
// the teacher's own github.com/bits-and-blooms/bitset dependency.
package dataflow

import (
	"github.com/bits-and-blooms/bitset"

	"github.com/he-andy/cs6120/cfg"
)

// Direction selects whether a problem flows forward (entry to exit) or
// backward (exit to entry) over the CFG.
type Direction int

const (
	Forward Direction = iota
	Backward
)

// Meet combines the lattice values flowing into a node from its relevant
// neighbors (a ∪ b for may-analyses, a ∩ b for must-analyses).
type Meet func(a, b *bitset.BitSet) *bitset.BitSet

// Transfer computes a node's effect on a lattice value flowing through it.
type Transfer func(x *bitset.BitSet, node int) *bitset.BitSet

// Union is the Meet function for may-analyses such as live variables and
// reaching definitions.
func Union(a, b *bitset.BitSet) *bitset.BitSet { return a.Union(b) }

// Result holds the per-node IN and OUT lattice values of a solved dataflow
// problem.
type Result struct {
	In  map[int]*bitset.BitSet
	Out map[int]*bitset.BitSet
}

// Solve runs the generic worklist algorithm of spec §4.3 to a fixed point:
//
//	Forward:  in[n]  = meet over p ∈ pred(n) of out[p] (bottom if no preds)
//	          out[n] = transfer(in[n], n)
//	Backward: out[n] = meet over s ∈ succ(n) of in[s] (bottom if no succs)
//	          in[n]  = transfer(out[n], n)
//
// All in/out values start at top. transfer must be monotone and meet must
// ascend to a finite-height element for the loop to terminate; Solve does
// not independently verify this (spec §4.3, §7 "Convergence").
func Solve(g *cfg.CFG, meet Meet, transfer Transfer, top, bottom *bitset.BitSet, dir Direction) *Result {
	n := len(g.Nodes)
	in := make(map[int]*bitset.BitSet, n)
	out := make(map[int]*bitset.BitSet, n)
	for i := 0; i < n; i++ {
		in[i] = top.Clone()
		out[i] = top.Clone()
	}

	queue := make([]int, n)
	queued := make([]bool, n)
	for i := 0; i < n; i++ {
		queue[i] = i
		queued[i] = true
	}

	push := func(i int) {
		if !queued[i] {
			queued[i] = true
			queue = append(queue, i)
		}
	}

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		queued[node] = false

		switch dir {
		case Forward:
			merged := bottom.Clone()
			for _, e := range g.Nodes[node].Preds {
				merged = meet(merged, out[e.To])
			}
			in[node] = merged
			newOut := transfer(in[node], node)
			if !newOut.Equal(out[node]) {
				out[node] = newOut
				for _, e := range g.Nodes[node].Succs {
					push(e.To)
				}
			}
		case Backward:
			merged := bottom.Clone()
			for _, e := range g.Nodes[node].Succs {
				merged = meet(merged, in[e.To])
			}
			out[node] = merged
			newIn := transfer(out[node], node)
			if !newIn.Equal(in[node]) {
				in[node] = newIn
				for _, e := range g.Nodes[node].Preds {
					push(e.To)
				}
			}
		}
	}

	return &Result{In: in, Out: out}
}
