// Package trace flattens a cfg.CFG back into a single linear instruction
// stream, choosing a block layout that maximizes fall-through (spec §4.9).
// Grounded on the same "arena of integer-indexed nodes, never mutate the
// CFG's edge lists" discipline as the cfg and dom packages; the true-edge
// cut described by the spec is never materialized as an actual edge
// removal, so the input CFG is left untouched by construction rather than
// needing an explicit "reinsert the cut edges" step afterward.
package trace

import (
	"github.com/he-andy/cs6120/cfg"
	"github.com/he-andy/cs6120/ir"
)

// Flatten returns g's blocks re-linearized into one instruction stream.
// Every block gains a label (cfg.CFG.AssignLabels is called first, a
// no-op for blocks that already have one) since the re-layout may need to
// name any block as an explicit jump target.
func Flatten(g *cfg.CFG) []ir.Instruction {
	g.AssignLabels()
	next := computeNext(g)
	traces := extractTraces(g, next)
	reorder(traces, next)
	return emit(g, traces, next)
}

// computeNext returns, for each node, the sole remaining successor once
// every taken (true) branch edge is conceptually cut (spec §4.9 step 1):
// -1 if none. Every node has at most one non-true outgoing edge (a branch
// contributes exactly one true and one false edge; a jump or fall-through
// contributes exactly one false edge; a return contributes none), so this
// is never a set of candidates to choose among — just the node's one
// remaining edge, if any.
func computeNext(g *cfg.CFG) []int {
	next := make([]int, len(g.Nodes))
	for i := range next {
		next[i] = -1
	}
	for i, n := range g.Nodes {
		for _, e := range n.Succs {
			if !e.Taken {
				next[i] = e.To
				break
			}
		}
	}
	return next
}

// extractTraces grows maximal traces (spec §4.9 step 2) by repeatedly
// seeding from the smallest-(visitCount, index) unmarked node and
// following next[] until a marked node or a dead end is reached. Since
// computeNext leaves out-degree at most 1, "take the successor with the
// greatest downstream maximal-trace length" has no alternatives to choose
// among: growth is a straight-line walk, and marking each node the moment
// it's appended is what stops the walk at both dead ends and cycles.
func extractTraces(g *cfg.CFG, next []int) [][]int {
	n := len(g.Nodes)
	marked := make([]bool, n)
	visitCount := make([]int, n)

	var traces [][]int
	for {
		seed := -1
		for i := 0; i < n; i++ {
			if marked[i] {
				continue
			}
			if seed == -1 || visitCount[i] < visitCount[seed] || (visitCount[i] == visitCount[seed] && i < seed) {
				seed = i
			}
		}
		if seed == -1 {
			break
		}

		var tr []int
		for cur := seed; cur != -1 && !marked[cur]; cur = next[cur] {
			tr = append(tr, cur)
			marked[cur] = true
		}
		for _, v := range tr {
			visitCount[v] += len(tr)
		}
		traces = append(traces, tr)
	}
	return traces
}

// reorder places the trace starting at the smallest node index first,
// then greedily pulls each trace's intended successor trace adjacent to
// it when one exists later in the order (spec §4.9 step 3), maximizing
// how often emit can drop or skip an explicit jump in favor of
// fall-through.
func reorder(traces [][]int, next []int) {
	if len(traces) == 0 {
		return
	}
	minPos := 0
	for i, tr := range traces {
		if tr[0] < traces[minPos][0] {
			minPos = i
		}
	}
	traces[0], traces[minPos] = traces[minPos], traces[0]

	for i := 0; i < len(traces); i++ {
		last := traces[i][len(traces[i])-1]
		succ := next[last]
		if succ == -1 {
			continue
		}
		for k := i + 1; k < len(traces); k++ {
			if traces[k][0] == succ {
				traces[i+1], traces[k] = traces[k], traces[i+1]
				break
			}
		}
	}
}

// emit concatenates the (now ordered) traces into one instruction stream
// (spec §4.9 step 4). Within a trace, a block's trailing jmp is always
// redundant (the trace was built by following exactly that edge) and is
// dropped. A trace's final block keeps a trailing jmp only when its
// intended successor isn't the physically next trace; a final block with
// no terminator at all gets one appended in that situation. A branch or
// return terminator is never touched: both already name their outgoing
// labels (or have none) independent of physical layout.
func emit(g *cfg.CFG, traces [][]int, next []int) []ir.Instruction {
	var out []ir.Instruction
	for i, tr := range traces {
		effectiveNext := -1
		if i+1 < len(traces) {
			effectiveNext = traces[i+1][0]
		}

		for pos, nodeIdx := range tr {
			block := g.Nodes[nodeIdx].Block
			out = append(out, &ir.Label{Name: block.Label})
			instrs := append([]ir.Instruction(nil), block.Instrs...)
			hasTerm := len(instrs) > 0 && instrs[len(instrs)-1].ControlFlow().IsTerminator()

			if pos != len(tr)-1 {
				if hasTerm && instrs[len(instrs)-1].ControlFlow().Kind == ir.JumpKind {
					instrs = instrs[:len(instrs)-1]
				}
				out = append(out, instrs...)
				continue
			}

			intended := next[nodeIdx]
			switch {
			case hasTerm && instrs[len(instrs)-1].ControlFlow().Kind == ir.JumpKind:
				if intended == effectiveNext {
					instrs = instrs[:len(instrs)-1]
				}
				out = append(out, instrs...)
			case !hasTerm:
				out = append(out, instrs...)
				if intended != -1 && intended != effectiveNext {
					out = append(out, &ir.EffectInstr{Op: "jmp", Labels: []string{g.Nodes[intended].Block.Label}})
				}
			default: // branch or return: both already final, untouched
				out = append(out, instrs...)
			}
		}
	}
	return out
}
