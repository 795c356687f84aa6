package ir

import (
	"encoding/json"
	"fmt"
)

// Type's wire form is either a bare string ("int") or a single-key object
// ({"ptr": T}).
func (t Type) MarshalJSON() ([]byte, error) {
	if t.Base == "ptr" {
		return json.Marshal(map[string]Type{"ptr": *t.Elem})
	}
	return json.Marshal(t.Base)
}

func (t *Type) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		t.Base = name
		t.Elem = nil
		return nil
	}
	var ptr struct {
		Ptr *Type `json:"ptr"`
	}
	if err := json.Unmarshal(data, &ptr); err != nil {
		return fmt.Errorf("ir: invalid type %s: %w", data, err)
	}
	if ptr.Ptr == nil {
		return fmt.Errorf("ir: invalid type %s", data)
	}
	t.Base = "ptr"
	t.Elem = ptr.Ptr
	return nil
}

// wireCode is the union shape of a single "instrs" element: a label, or an
// instruction of one of the three op shapes.
type wireCode struct {
	Label  *string         `json:"label,omitempty"`
	Dest   *string         `json:"dest,omitempty"`
	Op     *string         `json:"op,omitempty"`
	Type   *Type           `json:"type,omitempty"`
	Value  json.RawMessage `json:"value,omitempty"`
	Args   []string        `json:"args,omitempty"`
	Funcs  []string        `json:"funcs,omitempty"`
	Labels []string        `json:"labels,omitempty"`
	Pos    json.RawMessage `json:"pos,omitempty"`
}

func decodeInstruction(data []byte) (Instruction, error) {
	var w wireCode
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("ir: malformed instruction %s: %w", data, err)
	}
	switch {
	case w.Label != nil:
		return &Label{Name: *w.Label, Pos: w.Pos}, nil
	case w.Op == nil:
		return nil, fmt.Errorf("ir: malformed IR: element has neither label nor op: %s", data)
	case *w.Op == "const":
		if w.Dest == nil || w.Type == nil {
			return nil, fmt.Errorf("ir: malformed const: missing dest/type: %s", data)
		}
		return &Const{Dest: *w.Dest, Type: *w.Type, Value: w.Value, Pos: w.Pos}, nil
	case w.Dest != nil:
		if w.Type == nil {
			return nil, fmt.Errorf("ir: malformed value instruction %q: missing type", *w.Op)
		}
		return &ValueInstr{Dest: *w.Dest, Op: *w.Op, Type: *w.Type, Args: w.Args, Funcs: w.Funcs, Labels: w.Labels, Pos: w.Pos}, nil
	default:
		return &EffectInstr{Op: *w.Op, Args: w.Args, Funcs: w.Funcs, Labels: w.Labels, Pos: w.Pos}, nil
	}
}

func encodeInstruction(instr Instruction) (wireCode, error) {
	switch v := instr.(type) {
	case *Label:
		return wireCode{Label: &v.Name, Pos: v.Pos}, nil
	case *Const:
		return wireCode{Dest: &v.Dest, Op: strPtr("const"), Type: &v.Type, Value: v.Value, Pos: v.Pos}, nil
	case *ValueInstr:
		return wireCode{Dest: &v.Dest, Op: &v.Op, Type: &v.Type, Args: v.Args, Funcs: v.Funcs, Labels: v.Labels, Pos: v.Pos}, nil
	case *EffectInstr:
		return wireCode{Op: &v.Op, Args: v.Args, Funcs: v.Funcs, Labels: v.Labels, Pos: v.Pos}, nil
	default:
		return wireCode{}, fmt.Errorf("ir: unknown instruction type %T", instr)
	}
}

func strPtr(s string) *string { return &s }

func (f *Function) UnmarshalJSON(data []byte) error {
	var wire struct {
		Name   string            `json:"name"`
		Args   []Arg             `json:"args,omitempty"`
		Type   *Type             `json:"type,omitempty"`
		Instrs []json.RawMessage `json:"instrs"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("ir: malformed function: %w", err)
	}
	f.Name = wire.Name
	f.Args = wire.Args
	f.Type = wire.Type
	f.Instrs = make([]Instruction, 0, len(wire.Instrs))
	for _, raw := range wire.Instrs {
		instr, err := decodeInstruction(raw)
		if err != nil {
			return fmt.Errorf("ir: function %q: %w", f.Name, err)
		}
		f.Instrs = append(f.Instrs, instr)
	}
	return nil
}

func (f *Function) MarshalJSON() ([]byte, error) {
	codes := make([]wireCode, 0, len(f.Instrs))
	for _, instr := range f.Instrs {
		w, err := encodeInstruction(instr)
		if err != nil {
			return nil, fmt.Errorf("ir: function %q: %w", f.Name, err)
		}
		codes = append(codes, w)
	}
	wire := struct {
		Name   string     `json:"name"`
		Args   []Arg      `json:"args,omitempty"`
		Type   *Type      `json:"type,omitempty"`
		Instrs []wireCode `json:"instrs"`
	}{f.Name, f.Args, f.Type, codes}
	return json.Marshal(wire)
}

// Decode parses a whole bril program from its JSON wire representation.
func Decode(data []byte) (*Program, error) {
	var p Program
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("ir: malformed program: %w", err)
	}
	return &p, nil
}

// Encode serializes a program back to its JSON wire representation.
func Encode(p *Program) ([]byte, error) {
	return json.Marshal(p)
}
