package ir_test

import (
	"testing"

	"github.com/he-andy/cs6120/ir"
)

func TestValidateAcceptsResolvedJump(t *testing.T) {
	fn := &ir.Function{Name: "main", Instrs: []ir.Instruction{
		&ir.EffectInstr{Op: "jmp", Labels: []string{"L"}},
		&ir.Label{Name: "L"},
		&ir.EffectInstr{Op: "ret"},
	}}
	if err := ir.Validate(fn); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestValidateRejectsJumpToUndefinedLabel(t *testing.T) {
	fn := &ir.Function{Name: "main", Instrs: []ir.Instruction{
		&ir.EffectInstr{Op: "jmp", Labels: []string{"nowhere"}},
	}}
	if err := ir.Validate(fn); err == nil {
		t.Fatalf("expected an error for a jump to an undefined label")
	}
}

func TestValidateAllowsOneSidedBranch(t *testing.T) {
	fn := &ir.Function{Name: "main", Instrs: []ir.Instruction{
		&ir.EffectInstr{Op: "br", Args: []string{"x"}, Labels: []string{"L", "gone"}},
		&ir.Label{Name: "L"},
		&ir.EffectInstr{Op: "ret"},
	}}
	if err := ir.Validate(fn); err != nil {
		t.Fatalf("expected a one-sided dangling branch to be tolerated, got %v", err)
	}
}

func TestValidateRejectsWhollyDanglingBranch(t *testing.T) {
	fn := &ir.Function{Name: "main", Instrs: []ir.Instruction{
		&ir.EffectInstr{Op: "br", Args: []string{"x"}, Labels: []string{"gone1", "gone2"}},
	}}
	if err := ir.Validate(fn); err == nil {
		t.Fatalf("expected an error when neither branch target resolves")
	}
}
