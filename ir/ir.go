// Package ir provides the data model for the bril-style intermediate
// representation this engine transforms: instructions, labels, types and
// the capability set (uses/defs/control-flow/label-identity) that the rest
// of the engine is polymorphic over.
package ir

import "encoding/json"

// CFKind classifies the control-flow behavior of an instruction or label.
type CFKind int

const (
	Normal CFKind = iota
	LabelKind
	JumpKind
	BranchKind
	ReturnKind
)

// ControlFlow describes how an instruction affects control flow. Target is
// valid only for JumpKind; TrueLabel/FalseLabel only for BranchKind; Label
// only for LabelKind.
type ControlFlow struct {
	Kind       CFKind
	Label      string
	Target     string
	TrueLabel  string
	FalseLabel string
}

// Instruction is the capability set every IR node exposes: the atomic unit
// the block builder, CFG, dataflow solver, LVN and SSA passes all consume.
type Instruction interface {
	Uses() []string
	Defs() []string
	ControlFlow() ControlFlow
	IsLabel() (string, bool)
}

// IsTerminator reports whether ctl ends a basic block.
func (c ControlFlow) IsTerminator() bool {
	switch c.Kind {
	case JumpKind, BranchKind, ReturnKind:
		return true
	default:
		return false
	}
}

// Type is a bril type: a base name ("int", "bool", "float", "char") or a
// pointer to another Type ("ptr": T).
type Type struct {
	Base string
	Elem *Type
}

func (t Type) IsZero() bool { return t.Base == "" && t.Elem == nil }

// Label names an addressable position in a function's instruction stream.
type Label struct {
	Name string
	Pos  json.RawMessage
}

func (l *Label) Uses() []string                { return nil }
func (l *Label) Defs() []string                { return nil }
func (l *Label) ControlFlow() ControlFlow      { return ControlFlow{Kind: LabelKind, Label: l.Name} }
func (l *Label) IsLabel() (string, bool)       { return l.Name, true }

// Const defines Dest from a literal, with no uses.
type Const struct {
	Dest  string
	Type  Type
	Value json.RawMessage
	Pos   json.RawMessage
}

func (c *Const) Uses() []string           { return nil }
func (c *Const) Defs() []string           { return []string{c.Dest} }
func (c *Const) ControlFlow() ControlFlow { return ControlFlow{Kind: Normal} }
func (c *Const) IsLabel() (string, bool)  { return "", false }

// ValueInstr defines Dest, computed from Op applied to Args (plus optional
// Funcs/Labels operands, e.g. call targets or phi source labels).
type ValueInstr struct {
	Dest   string
	Op     string
	Type   Type
	Args   []string
	Funcs  []string
	Labels []string
	Pos    json.RawMessage
}

func (v *ValueInstr) Uses() []string { return append([]string(nil), v.Args...) }
func (v *ValueInstr) Defs() []string { return []string{v.Dest} }
func (v *ValueInstr) ControlFlow() ControlFlow {
	return ControlFlow{Kind: Normal}
}
func (v *ValueInstr) IsLabel() (string, bool) { return "", false }

// EffectInstr defines nothing; it uses Args and may be a terminator
// (jmp/br/ret).
type EffectInstr struct {
	Op     string
	Args   []string
	Funcs  []string
	Labels []string
	Pos    json.RawMessage
}

func (e *EffectInstr) Uses() []string { return append([]string(nil), e.Args...) }
func (e *EffectInstr) Defs() []string { return nil }
func (e *EffectInstr) ControlFlow() ControlFlow {
	switch e.Op {
	case "jmp":
		if len(e.Labels) >= 1 {
			return ControlFlow{Kind: JumpKind, Target: e.Labels[0]}
		}
	case "br":
		if len(e.Labels) >= 2 {
			return ControlFlow{Kind: BranchKind, TrueLabel: e.Labels[0], FalseLabel: e.Labels[1]}
		}
	case "ret":
		return ControlFlow{Kind: ReturnKind}
	}
	return ControlFlow{Kind: Normal}
}
func (e *EffectInstr) IsLabel() (string, bool) { return "", false }

// OpaqueOps are value operations with hidden side effects: LVN binds their
// destination to a fresh value number but never tabulates the expression
// itself, so a later identical-looking call/alloc/load/ptradd is never
// treated as redundant.
var OpaqueOps = map[string]bool{
	"call":   true,
	"alloc":  true,
	"load":   true,
	"ptradd": true,
}

// Arg is a function parameter.
type Arg struct {
	Name string `json:"name"`
	Type Type   `json:"type"`
}

// Function is one bril function: a name, a parameter list, an optional
// return type and a flat instruction/label stream.
type Function struct {
	Name   string        `json:"name"`
	Args   []Arg         `json:"args,omitempty"`
	Type   *Type         `json:"type,omitempty"`
	Instrs []Instruction `json:"instrs"`
}

// Program is a whole bril program: a set of independently-transformed
// functions.
type Program struct {
	Functions []*Function `json:"functions"`
}

// Clone returns a copy of f with its own Args and Instrs slices (and its
// own return Type value). The Instruction values in Instrs are shared with
// f, not copied.
func (f *Function) Clone() *Function {
	clone := &Function{Name: f.Name, Args: append([]Arg(nil), f.Args...), Instrs: append([]Instruction(nil), f.Instrs...)}
	if f.Type != nil {
		t := *f.Type
		clone.Type = &t
	}
	return clone
}
