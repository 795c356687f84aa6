package ssa_test

import (
	"testing"

	"github.com/he-andy/cs6120/cfg"
	"github.com/he-andy/cs6120/diag"
	"github.com/he-andy/cs6120/ir"
	"github.com/he-andy/cs6120/ssa"
)

// A: br x L L2; L: y=const 1; jmp M; L2: y=const 2; jmp M; M: print y; ret
func diamond(t *testing.T) (*cfg.CFG, *ir.Function) {
	t.Helper()
	instrs := []ir.Instruction{
		&ir.EffectInstr{Op: "br", Args: []string{"x"}, Labels: []string{"L", "L2"}},
		&ir.Label{Name: "L"},
		&ir.Const{Dest: "y", Type: ir.Type{Base: "int"}, Value: []byte("1")},
		&ir.EffectInstr{Op: "jmp", Labels: []string{"M"}},
		&ir.Label{Name: "L2"},
		&ir.Const{Dest: "y", Type: ir.Type{Base: "int"}, Value: []byte("2")},
		&ir.EffectInstr{Op: "jmp", Labels: []string{"M"}},
		&ir.Label{Name: "M"},
		&ir.EffectInstr{Op: "print", Args: []string{"y"}},
		&ir.EffectInstr{Op: "ret"},
	}
	fn := &ir.Function{
		Name:   "main",
		Args:   []ir.Arg{{Name: "x", Type: ir.Type{Base: "bool"}}},
		Instrs: instrs,
	}
	blocks := cfg.BuildBlocks(fn.Instrs)
	g, err := cfg.Build(blocks, diag.NewLog(), fn.Name)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	g.AssignLabels()
	return g, fn
}

func TestToSSADiamondInsertsPhi(t *testing.T) {
	g, fn := diamond(t)
	log := diag.NewLog()
	if err := ssa.ToSSA(g, fn, log); err != nil {
		t.Fatalf("ToSSA: %v", err)
	}

	m, ok := g.Label("M")
	if !ok {
		t.Fatalf("block M missing after ToSSA")
	}
	instrs := g.Nodes[m].Block.Instrs
	if len(instrs) == 0 {
		t.Fatalf("block M has no instructions")
	}
	phi, ok := instrs[0].(*ir.ValueInstr)
	if !ok || phi.Op != "phi" {
		t.Fatalf("expected block M to start with a phi, got %#v", instrs[0])
	}
	if len(phi.Args) != 2 || len(phi.Labels) != 2 {
		t.Fatalf("expected phi with 2 sources, got args=%v labels=%v", phi.Args, phi.Labels)
	}
	for i, lbl := range phi.Labels {
		if lbl != "L" && lbl != "L2" {
			t.Fatalf("unexpected phi source label %q", lbl)
		}
		if phi.Args[i] == "y" {
			t.Fatalf("phi argument %q was not renamed", phi.Args[i])
		}
	}

	print, ok := instrs[len(instrs)-2].(*ir.EffectInstr)
	if !ok || print.Op != "print" {
		t.Fatalf("expected print before ret, got %#v", instrs[len(instrs)-2])
	}
	if print.Args[0] != phi.Dest {
		t.Fatalf("expected print to reference the phi's destination %q, got %q", phi.Dest, print.Args[0])
	}
}

// TestSingleAssignment checks the SSA property that every variable name is
// defined exactly once across the whole function (spec §8 property 5).
func TestSingleAssignment(t *testing.T) {
	g, fn := diamond(t)
	if err := ssa.ToSSA(g, fn, diag.NewLog()); err != nil {
		t.Fatalf("ToSSA: %v", err)
	}

	defCount := map[string]int{}
	for _, n := range g.Nodes {
		for _, instr := range n.Block.Instrs {
			for _, d := range instr.Defs() {
				defCount[d]++
			}
		}
	}
	for name, count := range defCount {
		if count != 1 {
			t.Fatalf("variable %q defined %d times, want exactly 1", name, count)
		}
	}
}

// TestPhiWidthMatchesReachingPredecessors checks that a phi for a variable
// defined on every predecessor path carries exactly one source per
// predecessor edge (spec §8 property 6).
func TestPhiWidthMatchesReachingPredecessors(t *testing.T) {
	g, fn := diamond(t)
	if err := ssa.ToSSA(g, fn, diag.NewLog()); err != nil {
		t.Fatalf("ToSSA: %v", err)
	}
	m, _ := g.Label("M")
	phi := g.Nodes[m].Block.Instrs[0].(*ir.ValueInstr)
	if len(phi.Args) != len(g.Nodes[m].Preds) {
		t.Fatalf("phi has %d sources, want %d (one per predecessor)", len(phi.Args), len(g.Nodes[m].Preds))
	}
}
