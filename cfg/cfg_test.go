package cfg_test

import (
	"testing"

	"github.com/he-andy/cs6120/cfg"
	"github.com/he-andy/cs6120/diag"
	"github.com/he-andy/cs6120/ir"
)

// diamondInstrs builds: A: br x L L2; L: y=const 1; jmp M; L2: y=const 2; jmp M; M: print y
func diamondInstrs() []ir.Instruction {
	return []ir.Instruction{
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
}

func TestBuildBlocksDiamond(t *testing.T) {
	blocks := cfg.BuildBlocks(diamondInstrs())
	if len(blocks) != 4 {
		t.Fatalf("expected 4 blocks, got %d", len(blocks))
	}
	if blocks[0].Label != "" {
		t.Fatalf("expected first block unlabeled, got %q", blocks[0].Label)
	}
	if blocks[1].Label != "L" || blocks[2].Label != "L2" || blocks[3].Label != "M" {
		t.Fatalf("unexpected labels: %q %q %q", blocks[1].Label, blocks[2].Label, blocks[3].Label)
	}
}

func TestCFGSoundness(t *testing.T) {
	blocks := cfg.BuildBlocks(diamondInstrs())
	g, err := cfg.Build(blocks, diag.NewLog(), "main")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	// A (node 0) branches to L (true) and L2 (false).
	a := g.Nodes[0]
	if len(a.Succs) != 2 {
		t.Fatalf("expected A to have 2 successors, got %d", len(a.Succs))
	}
	var sawTrue, sawFalse bool
	for _, e := range a.Succs {
		if e.Taken {
			sawTrue = true
			if g.Nodes[e.To].Block.Label != "L" {
				t.Fatalf("expected true edge to L, got %q", g.Nodes[e.To].Block.Label)
			}
		} else {
			sawFalse = true
			if g.Nodes[e.To].Block.Label != "L2" {
				t.Fatalf("expected false edge to L2, got %q", g.Nodes[e.To].Block.Label)
			}
		}
	}
	if !sawTrue || !sawFalse {
		t.Fatalf("expected exactly one true and one false edge from a branch")
	}

	// M (node 3) has no outgoing edges (terminates in ret).
	m, _ := g.Label("M")
	if len(g.Nodes[m].Succs) != 0 {
		t.Fatalf("expected M to have no successors, got %d", len(g.Nodes[m].Succs))
	}
	// M has two predecessors: L and L2, both via jmp (false edges).
	if len(g.Nodes[m].Preds) != 2 {
		t.Fatalf("expected M to have 2 predecessors, got %d", len(g.Nodes[m].Preds))
	}
	for _, e := range g.Nodes[m].Preds {
		if e.Taken {
			t.Fatalf("expected jmp edges into M to be untaken")
		}
	}
}

func TestJumpToMissingLabelIsFatal(t *testing.T) {
	instrs := []ir.Instruction{
		&ir.EffectInstr{Op: "jmp", Labels: []string{"nope"}},
	}
	blocks := cfg.BuildBlocks(instrs)
	if _, err := cfg.Build(blocks, diag.NewLog(), "main"); err == nil {
		t.Fatalf("expected error for jump to undefined label")
	}
}

func TestBranchMissingSideSilentlyOmitted(t *testing.T) {
	instrs := []ir.Instruction{
		&ir.EffectInstr{Op: "br", Args: []string{"x"}, Labels: []string{"L", "nope"}},
		&ir.Label{Name: "L"},
		&ir.EffectInstr{Op: "ret"},
	}
	blocks := cfg.BuildBlocks(instrs)
	log := diag.NewLog()
	g, err := cfg.Build(blocks, log, "main")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(g.Nodes[0].Succs) != 1 {
		t.Fatalf("expected exactly 1 edge (the defined side), got %d", len(g.Nodes[0].Succs))
	}
	if !log.ContainsErrors() && len(log.Entries) == 0 {
		t.Fatalf("expected a warning entry for the omitted edge")
	}
}

func TestFallThroughEdge(t *testing.T) {
	instrs := []ir.Instruction{
		&ir.Const{Dest: "a", Type: ir.Type{Base: "int"}, Value: []byte("1")},
		&ir.Label{Name: "next"},
		&ir.EffectInstr{Op: "ret"},
	}
	blocks := cfg.BuildBlocks(instrs)
	g, err := cfg.Build(blocks, diag.NewLog(), "main")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(g.Nodes[0].Succs) != 1 || g.Nodes[0].Succs[0].To != 1 {
		t.Fatalf("expected fall-through edge from block 0 to block 1, got %+v", g.Nodes[0].Succs)
	}
}

func TestDeleteUnreachable(t *testing.T) {
	instrs := []ir.Instruction{
		&ir.EffectInstr{Op: "jmp", Labels: []string{"live"}},
		&ir.Label{Name: "dead"},
		&ir.EffectInstr{Op: "ret"},
		&ir.Label{Name: "live"},
		&ir.EffectInstr{Op: "ret"},
	}
	blocks := cfg.BuildBlocks(instrs)
	g, err := cfg.Build(blocks, diag.NewLog(), "main")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(g.Nodes) != 3 {
		t.Fatalf("expected 3 nodes before deletion, got %d", len(g.Nodes))
	}
	g.DeleteUnreachable()
	if len(g.Nodes) != 2 {
		t.Fatalf("expected 2 reachable nodes, got %d", len(g.Nodes))
	}
	if _, ok := g.Label("dead"); ok {
		t.Fatalf("expected dead label to be removed")
	}
}
