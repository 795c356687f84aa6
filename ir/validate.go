package ir

import "fmt"

// Validate checks a function for the "Malformed IR" / "Malformed CFG"
// fatal conditions the driver must catch before attempting to transform
// it (spec §7): every jmp target and every wholly-dangling branch must
// resolve to a label actually present in the function. A branch missing
// exactly one side is not an error here — spec's adopted resolution is to
// drop that edge silently during CFG construction, not to reject the IR.
func Validate(fn *Function) error {
	labels := map[string]bool{}
	for _, instr := range fn.Instrs {
		if name, ok := instr.IsLabel(); ok {
			labels[name] = true
		}
	}
	for _, instr := range fn.Instrs {
		cf := instr.ControlFlow()
		switch cf.Kind {
		case JumpKind:
			if !labels[cf.Target] {
				return fmt.Errorf("ir: function %q: jump to undefined label %q", fn.Name, cf.Target)
			}
		case BranchKind:
			if !labels[cf.TrueLabel] && !labels[cf.FalseLabel] {
				return fmt.Errorf("ir: function %q: branch resolves neither %q nor %q", fn.Name, cf.TrueLabel, cf.FalseLabel)
			}
		}
	}
	return nil
}
