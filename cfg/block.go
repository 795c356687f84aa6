// Package cfg builds basic blocks and a control-flow graph from a flat bril
// instruction/label stream, grounded on the teacher's extras/cfg package:
// the same "walk the statements, flow edges to whichever node comes next,
// reset at labels and terminators" discipline, generalized from an
// ast.Stmt-keyed adjacency map to an arena of integer-indexed blocks.
package cfg

import "github.com/he-andy/cs6120/ir"

// BasicBlock is a maximal straight-line run of instructions: an optional
// entry label, an ordered instruction list with at most one terminator
// (last), and cached use/def sets.
type BasicBlock struct {
	Label  string // "" if unlabeled
	Instrs []ir.Instruction
	uses   map[string]bool
	defs   map[string]bool
}

// Uses returns the set of variables used in this block before any
// redefinition within the block (recomputed, never stale).
func (b *BasicBlock) Uses() map[string]bool { return b.uses }

// Defs returns the set of variables defined anywhere in this block.
func (b *BasicBlock) Defs() map[string]bool { return b.defs }

// Terminator returns the block's terminator instruction, if any.
func (b *BasicBlock) Terminator() (ir.Instruction, bool) {
	if len(b.Instrs) == 0 {
		return nil, false
	}
	last := b.Instrs[len(b.Instrs)-1]
	if last.ControlFlow().IsTerminator() {
		return last, true
	}
	return nil, false
}

func newBlock(label string) *BasicBlock {
	return &BasicBlock{Label: label, uses: map[string]bool{}, defs: map[string]bool{}}
}

// RecomputeUsesDefs rebuilds the block's cached use/def sets. Any pass that
// rewrites b.Instrs in place (SSA renaming, LVN, TDCE) must call this
// afterward so cached-set consumers (dataflow.LiveVariables) don't see a
// stale block.
func (b *BasicBlock) RecomputeUsesDefs() { b.recomputeUsesDefs() }

// recomputeUsesDefs rebuilds a block's cached use/def sets by the
// single-pass rule of spec §4.1: uses |= (instr.Uses \ defs-so-far); defs |=
// instr.Defs, applied in instruction order.
func (b *BasicBlock) recomputeUsesDefs() {
	b.uses = map[string]bool{}
	b.defs = map[string]bool{}
	for _, instr := range b.Instrs {
		for _, u := range instr.Uses() {
			if !b.defs[u] {
				b.uses[u] = true
			}
		}
		for _, d := range instr.Defs() {
			b.defs[d] = true
		}
	}
}

// BuildBlocks segments a flat instruction/label stream into maximal basic
// blocks (spec §4.1). Empty blocks (no label, no instructions) are
// dropped.
func BuildBlocks(instrs []ir.Instruction) []*BasicBlock {
	var blocks []*BasicBlock
	cur := newBlock("")

	flush := func() {
		if cur.Label != "" || len(cur.Instrs) > 0 {
			cur.recomputeUsesDefs()
			blocks = append(blocks, cur)
		}
	}

	for _, instr := range instrs {
		if label, ok := instr.IsLabel(); ok {
			flush()
			cur = newBlock(label)
			continue
		}
		cur.Instrs = append(cur.Instrs, instr)
		if instr.ControlFlow().IsTerminator() {
			flush()
			cur = newBlock("")
		}
	}
	flush()
	return blocks
}
