// Package lvn implements local value numbering, a single-block common
// subexpression / copy-propagation pass (spec §4.6). Grounded on the
// teacher's df.go discipline of building a small per-block table and
// rewriting in a single forward pass, here applied to value identity
// instead of reaching definitions.
package lvn

import (
	"fmt"

	"github.com/he-andy/cs6120/cfg"
	"github.com/he-andy/cs6120/ir"
)

// expr is the hashable key for value_num: an operator paired with the
// value numbers of its operands (or, for constants, the canonical literal
// text in place of an operator).
type expr struct {
	op   string
	args string // fmt.Sprint of the []int operand numbers, or a literal key
}

// table is one block's value-numbering state (spec §4.6's var_num,
// value_num, num_canonical, num).
type table struct {
	varNum       map[string]int
	valueNum     map[expr]int
	numCanonical map[int]string
	next         int
	renameNext   int
}

func newTable() *table {
	return &table{varNum: map[string]int{}, valueNum: map[expr]int{}, numCanonical: map[int]string{}}
}

func (t *table) alloc(canonicalName string) int {
	n := t.next
	t.next++
	t.numCanonical[n] = canonicalName
	return n
}

// numberOf returns a's current value number, lazily allocating one (with a
// as its own canonical name, and no tabulated expression) the first time a
// variable defined outside this block — a live-in — is read.
func (t *table) numberOf(a string) int {
	if n, ok := t.varNum[a]; ok {
		return n
	}
	n := t.alloc(a)
	t.varNum[a] = n
	return n
}

// canonicalArgs resolves each source variable to the canonical variable
// name carried by its current value number.
func (t *table) canonicalArgs(args []string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = t.numCanonical[t.numberOf(a)]
	}
	return out
}

func (t *table) argNums(args []string) []int {
	nums := make([]int, len(args))
	for i, a := range args {
		nums[i] = t.numberOf(a)
	}
	return nums
}

// Block runs LVN over a single basic block, returning a new instruction
// list (the block's Instrs are not mutated in place; the caller installs
// the result, per this engine's non-destructive-transform convention).
func Block(b *cfg.BasicBlock) []ir.Instruction {
	t := newTable()
	lastDef := lastDefIndex(b.Instrs)

	out := make([]ir.Instruction, len(b.Instrs))
	for i, instr := range b.Instrs {
		out[i] = step(t, instr, i, lastDef)
	}
	return out
}

// lastDefIndex maps each variable to the index of its last defining
// instruction in the block, used to decide whether a definition may keep
// its original name (spec §4.6 step 2).
func lastDefIndex(instrs []ir.Instruction) map[string]int {
	last := map[string]int{}
	for i, instr := range instrs {
		for _, d := range instr.Defs() {
			last[d] = i
		}
	}
	return last
}

func step(t *table, instr ir.Instruction, index int, lastDef map[string]int) ir.Instruction {
	switch v := instr.(type) {
	case *ir.Const:
		return constStep(t, v, index, lastDef)
	case *ir.ValueInstr:
		if ir.OpaqueOps[v.Op] {
			return opaqueStep(t, v, index, lastDef)
		}
		return valueStep(t, v, index, lastDef)
	case *ir.EffectInstr:
		c := *v
		c.Args = t.canonicalArgs(v.Args)
		return &c
	default:
		return instr
	}
}

func rewrittenDest(dest string, index int, lastDef map[string]int, t *table) string {
	if lastDef[dest] == index {
		return dest
	}
	t.renameNext++
	return fmt.Sprintf("_lvn%d_%s", t.renameNext, dest)
}

func constStep(t *table, c *ir.Const, index int, lastDef map[string]int) ir.Instruction {
	key := expr{op: "const:" + c.Type.Base, args: ir.CanonicalLiteral(c.Type, c.Value)}
	dest := rewrittenDest(c.Dest, index, lastDef, t)

	if n, ok := t.valueNum[key]; ok {
		t.varNum[c.Dest] = n
		out := *c
		out.Dest = dest
		return &out
	}
	n := t.alloc(dest)
	t.valueNum[key] = n
	t.varNum[c.Dest] = n
	out := *c
	out.Dest = dest
	return &out
}

func valueStep(t *table, v *ir.ValueInstr, index int, lastDef map[string]int) ir.Instruction {
	nums := t.argNums(v.Args)
	key := expr{op: v.Op, args: fmt.Sprint(nums)}
	dest := rewrittenDest(v.Dest, index, lastDef, t)

	if n, ok := t.valueNum[key]; ok {
		t.varNum[v.Dest] = n
		return &ir.ValueInstr{Dest: dest, Op: "id", Type: v.Type, Args: []string{t.numCanonical[n]}}
	}
	n := t.alloc(dest)
	t.valueNum[key] = n
	t.varNum[v.Dest] = n
	out := *v
	out.Dest = dest
	out.Args = t.canonicalArgs(v.Args)
	return &out
}

// opaqueStep binds a fresh number (so a later use can refer to this
// instruction's canonical destination) but never tabulates the expression,
// so a textually identical later opaque op is never folded into an `id`
// (spec §4.6 "opaque ops", scenario S2).
func opaqueStep(t *table, v *ir.ValueInstr, index int, lastDef map[string]int) ir.Instruction {
	dest := rewrittenDest(v.Dest, index, lastDef, t)
	n := t.alloc(dest)
	t.varNum[v.Dest] = n
	out := *v
	out.Dest = dest
	out.Args = t.canonicalArgs(v.Args)
	return &out
}
