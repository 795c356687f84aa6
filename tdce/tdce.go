// Package tdce implements trivial dead code elimination: a whole-function
// global pass and a per-block local pass, both iterated to a fixed point
// (spec §4.8). Grounded on the teacher's extras/cfg/df.go fixed-point
// iteration idiom (there applied to reaching-definitions/live-variable
// bitsets; here applied to a used-variable set and a last-def index).
package tdce

import (
	"github.com/he-andy/cs6120/cfg"
	"github.com/he-andy/cs6120/ir"
)

// Local runs the per-block pass to a fixed point (spec §4.8): walking a
// block's instructions in order, a use of v clears any pending last_def
// entry for v (that earlier definition was consumed), and a definition of
// v that finds an existing last_def entry marks that earlier instruction
// dead. Iterates until a full pass removes nothing.
func Local(b *cfg.BasicBlock) {
	changed := true
	for changed {
		dead := localDead(b.Instrs)
		changed = len(dead) > 0
		if changed {
			b.Instrs = remove(b.Instrs, dead)
		}
	}
	b.RecomputeUsesDefs()
}

func localDead(instrs []ir.Instruction) map[int]bool {
	lastDef := map[string]int{}
	dead := map[int]bool{}
	for i, instr := range instrs {
		for _, u := range instr.Uses() {
			delete(lastDef, u)
		}
		for _, d := range instr.Defs() {
			if prev, ok := lastDef[d]; ok {
				dead[prev] = true
			}
			lastDef[d] = i
		}
	}
	return dead
}

// Global runs the whole-function pass to a fixed point (spec §4.8):
// compute used = the union of every instruction's uses across every block,
// delete any instruction whose single defined variable is not in used,
// repeat until nothing changes.
func Global(g *cfg.CFG) {
	for {
		used := usedVars(g)
		removedAny := false
		for _, n := range g.Nodes {
			dead := globalDead(n.Block.Instrs, used)
			if len(dead) == 0 {
				continue
			}
			n.Block.Instrs = remove(n.Block.Instrs, dead)
			removedAny = true
		}
		if !removedAny {
			break
		}
		for _, n := range g.Nodes {
			n.Block.RecomputeUsesDefs()
		}
	}
}

func usedVars(g *cfg.CFG) map[string]bool {
	used := map[string]bool{}
	for _, n := range g.Nodes {
		for _, instr := range n.Block.Instrs {
			for _, u := range instr.Uses() {
				used[u] = true
			}
		}
	}
	return used
}

func globalDead(instrs []ir.Instruction, used map[string]bool) map[int]bool {
	dead := map[int]bool{}
	for i, instr := range instrs {
		defs := instr.Defs()
		if len(defs) == 0 {
			continue
		}
		if !used[defs[0]] {
			dead[i] = true
		}
	}
	return dead
}

func remove(instrs []ir.Instruction, dead map[int]bool) []ir.Instruction {
	out := make([]ir.Instruction, 0, len(instrs)-len(dead))
	for i, instr := range instrs {
		if !dead[i] {
			out = append(out, instr)
		}
	}
	return out
}

// Run alternates the local and global passes to a fixed point: a local
// rewrite can expose a new function-wide dead definition and vice versa,
// so neither pass alone is guaranteed maximal.
func Run(g *cfg.CFG) {
	for {
		before := instrCount(g)
		for _, n := range g.Nodes {
			Local(n.Block)
		}
		Global(g)
		if instrCount(g) == before {
			return
		}
	}
}

func instrCount(g *cfg.CFG) int {
	n := 0
	for _, node := range g.Nodes {
		n += len(node.Block.Instrs)
	}
	return n
}
